// Package channel implements a Gilbert-Elliott impairment model for lossy control links.
//
// An Engine sits between a sample source and its consumer. Every scan tick the
// caller hands it one vector of samples; each lane of the vector draws one
// uniform number, steps its good/bad Markov chain, and, if the lane ends the
// tick bad, repeats the value it emitted on the previous tick instead of the
// fresh sample (sample-and-hold on loss).
//
// # Transition Rule
//
// A good lane turns bad when the draw is at most the loss probability.
// A bad lane turns good when the draw is at most the recover probability.
// Substitution uses the state after the transition, so a lane that fails on
// a tick already holds on that tick, and a lane that recovers passes the fresh
// sample on the tick it recovers.
//
// # Reproducibility
//
// Draws are taken in lane order from a PCG source seeded at construction.
// Two engines built with the same rate, width, initial values and seed, fed
// the same vectors, emit bit-identical output.
package channel
