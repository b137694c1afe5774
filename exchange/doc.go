// Package exchange implements the orchestrator of a common-pool exchange
// simulation.
//
// An Orchestrator owns the participants, the facilitator and the simulation
// record, and moves through three states:
//
//	Initializing -> Running -> Finalized
//
// Each InitiateExchange call asks the facilitator for a suggestion, lets the
// responder consider the offer plus suggestion, and appends one shared
// *core.ExchangeRecord to every history that references it. Outcomes start
// as pending (or failed when a capability call failed) and are resolved
// explicitly via ResolveExchange or a configured Resolver. Successful
// exchanges may then be settled, moving resources between the parties.
//
// EndSimulation captures final states, asks for a short summary and hands
// the record to the configured core.RecordStore.
package exchange
