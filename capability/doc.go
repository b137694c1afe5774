// Package capability adapts a model.Model into the core.Capability used by
// participants and the facilitator. It renders structured prompts, bounds
// each call with a timeout and an optional per-run budget, and reports every
// failure as a *core.CapabilityError.
package capability
