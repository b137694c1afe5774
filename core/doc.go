// Package core provides the foundational domain types and interfaces of the
// common-pool exchange simulator. It defines:
//
//   - Resources and the Catalog of known resource kinds
//   - TradeOffer (immutable proposal) and ExchangeRecord (one negotiation attempt)
//   - StateSnapshot (defensive point-in-time copy of a participant)
//   - SimulationRecord (the full ledger of one run) and its persisted form
//   - The Capability contract used to reach a language model
//   - RecordStore / RecordReader persistence contracts
//   - The error taxonomy shared by all packages
//
// Concrete behaviour (participants, orchestration, storage backends) lives in
// sibling packages so that backends can be swapped without touching callers.
package core
