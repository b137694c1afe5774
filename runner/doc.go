// Package runner drives a randomized simulation end to end: it generates
// participants, pairs them for a configured number of exchanges, builds
// offers from their holdings and needs, resolves and settles each
// exchange, and finalizes the run.
//
// Runs are reproducible for a fixed seed up to the language model's
// replies.
package runner
