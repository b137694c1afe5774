// Package agent contains the two kinds of actors in a common-pool exchange:
//
//  1. Participant: holds resources and needs, and evaluates offers
//  2. Facilitator: proposes a valuation for each offer before the responder sees it
//
// Both delegate all reasoning to a core.Capability and return its text
// verbatim. Neither appends to its own history; the exchange orchestrator is
// the single writer and calls Record once per exchange.
//
// Instructions (system prompts) are templates rendered against the actor's
// state, so callers can tune the persona without touching code.
package agent
