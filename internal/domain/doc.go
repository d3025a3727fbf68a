// Package domain defines the core types of the closed-loop channel simulator.
//
// # Core Types
//
// ErrorRate is the p:q parameter pair of a Gilbert-Elliott channel: the
// probability of a good lane going bad on a tick, and of a bad lane
// recovering. NoLoss is the pair of a channel that never loses samples.
//
// Run records one simulation: its seed, the error rates of both loop
// directions, the timing and its lifecycle status.
//
// Tick is one persisted scan tick: the impaired measurement and manipulated
// vectors together with the per-lane channel states at that tick.
//
// RunSummary aggregates the persisted ticks of a run.
//
// # Design Principles
//
// - No database or external dependencies beyond ID generation
// - Pure domain logic without infrastructure concerns
package domain
