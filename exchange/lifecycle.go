package exchange

import (
	"context"
	"errors"

	"github.com/hupe1980/commonpool/core"
)

// DefaultSummaryPrompt asks for the closing analysis of a run.
const DefaultSummaryPrompt = "Provide a very brief summary (max 50 words) of this simulation's key patterns " +
	"and outcomes. Compare initial and final states."

// GenerateSummary asks the capability for a short natural-language analysis
// comparing initial and current states.
func (o *Orchestrator) GenerateSummary(ctx context.Context) (string, error) {
	o.mu.Lock()
	data := o.summaryData(o.finalStates())
	o.mu.Unlock()

	return o.summarize(ctx, data)
}

func (o *Orchestrator) summarize(ctx context.Context, data map[string]any) (string, error) {
	summary, err := o.capability.Respond(ctx, core.Prompt{
		Instructions: o.opts.SummaryPrompt,
		Data:         data,
	})
	if err != nil {
		var ce *core.CapabilityError
		if errors.As(err, &ce) {
			return "", &core.CapabilityError{Op: "summary", Err: ce.Err}
		}
		return "", &core.CapabilityError{Op: "summary", Err: err}
	}
	return summary, nil
}

// summaryData builds the summary context. Callers hold o.mu.
func (o *Orchestrator) summaryData(final map[string]core.StateSnapshot) map[string]any {
	initial := make(map[string]core.StateSnapshot, len(o.record.InitialStates))
	for k, v := range o.record.InitialStates {
		initial[k] = v.Clone()
	}
	return map[string]any{
		"initial_states":   initial,
		"final_states":     final,
		"num_participants": len(o.participants),
		"num_exchanges":    len(o.history),
		"prompt":           o.opts.SummaryPrompt,
	}
}

// EndSimulation finalizes the run: it records the end time and final states,
// asks for a summary and persists the record through the configured store.
// It may be called once; later calls return core.ErrFinalized. Exchanges
// still in flight are discarded.
//
// A failed summary call is not an error: the summary holds the diagnostic
// and the record is still persisted. A failed write is returned as a
// *core.PersistenceError together with the finalized record.
func (o *Orchestrator) EndSimulation(ctx context.Context) (*core.SimulationRecord, error) {
	o.mu.Lock()
	if o.state == StateFinalized {
		o.mu.Unlock()
		return nil, core.ErrFinalized
	}
	o.state = StateFinalized
	end := o.opts.Clock()
	o.record.EndTime = &end
	o.record.FinalStates = o.finalStates()
	final := make(map[string]core.StateSnapshot, len(o.record.FinalStates))
	for k, v := range o.record.FinalStates {
		final[k] = v.Clone()
	}
	data := o.summaryData(final)
	o.mu.Unlock()

	summary, err := o.summarize(ctx, data)
	if err != nil {
		o.capabilityFailed("summary", err)
		summary = diagnostic(err)
	}

	o.mu.Lock()
	o.record.Summary = summary
	rec := o.record.Clone()
	o.mu.Unlock()

	o.opts.Metrics.observeFinalized()
	o.logger.Info("simulation.finalized",
		"participants", len(rec.InitialStates),
		"exchanges", len(rec.Exchanges),
	)

	if o.opts.Store == nil {
		return rec, nil
	}

	location, err := o.opts.Store.Save(ctx, rec)
	if err != nil {
		var pe *core.PersistenceError
		if !errors.As(err, &pe) {
			err = &core.PersistenceError{Path: core.RecordFilename(rec), Err: err}
		}
		o.logger.Error("artifact.save_failed", "error", err.Error())
		return rec, err
	}

	o.mu.Lock()
	o.location = location
	o.mu.Unlock()

	o.logger.Info("artifact.saved", "location", location)
	return rec, nil
}
