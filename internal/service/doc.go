// Package service implements the simulation harness around the impairment channels.
//
// # Services
//
// Simulation runs one closed loop: every scan tick the plant publishes its
// measurements on the xmeas variable, the controller reads them through the
// xmeas channel, computes the manipulated variables, and sends them back
// through the xmv channel before the plant integrates the scan period.
// Every save_every ticks a row is buffered and flushed to the repository.
//
// MonteCarlo repeats the simulation with error rates drawn from configured
// ranges, running a bounded number of runs concurrently.
//
// RunService gives the HTTP layer read access to stored runs, their
// summaries and exports.
//
// # Event System
//
// Simulations publish run and tick events via EventBus for real-time updates
// to connected clients via Server-Sent Events (SSE). Publishing never blocks
// the simulation; slow subscribers miss events.
//
// # Metrics
//
// Metrics exposes tick, substitution and run counters to Prometheus.
package service
