package agent

import (
	"context"
	"sync"

	"github.com/hupe1980/commonpool/core"
)

// RecentWindow is the number of most recently appended exchanges the
// facilitator sees when suggesting a valuation.
const RecentWindow = 5

// FacilitatorOptions configures a Facilitator.
type FacilitatorOptions struct {
	Instruction Instruction
	Window      int
}

// Facilitator is the neutral mediator of a simulation.
type Facilitator struct {
	capability  core.Capability
	instruction Instruction
	window      int

	mu      sync.RWMutex
	history []*core.ExchangeRecord
	notes   map[string][]string
}

// NewFacilitator creates a facilitator backed by capability.
func NewFacilitator(capability core.Capability, optFns ...func(o *FacilitatorOptions)) *Facilitator {
	opts := FacilitatorOptions{
		Instruction: NewInstructionFromText(DefaultFacilitatorInstruction),
		Window:      RecentWindow,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Window <= 0 {
		opts.Window = RecentWindow
	}

	return &Facilitator{
		capability:  capability,
		instruction: opts.Instruction,
		window:      opts.Window,
		notes:       map[string][]string{},
	}
}

// SuggestValuation asks the capability for a suggestion on offer, using the
// last Window() exchanges of the facilitator's own history as context.
func (f *Facilitator) SuggestValuation(
	ctx context.Context,
	offer core.TradeOffer,
	initiator, responder core.StateSnapshot,
) (string, error) {
	return f.SuggestValuationWith(ctx, offer, initiator, responder, f.Recent(f.window))
}

// SuggestValuationWith is SuggestValuation with an explicit recent history,
// for callers that capture it atomically with the snapshots. Only the last
// Window() entries are used.
func (f *Facilitator) SuggestValuationWith(
	ctx context.Context,
	offer core.TradeOffer,
	initiator, responder core.StateSnapshot,
	recent []core.ExchangeRecord,
) (string, error) {
	if len(recent) > f.window {
		recent = recent[len(recent)-f.window:]
	}
	if recent == nil {
		recent = []core.ExchangeRecord{}
	}

	instructions, err := f.instruction.Resolve(map[string]any{
		"initiator": initiator.Name,
		"responder": responder.Name,
	})
	if err != nil {
		return "", err
	}

	reply, err := f.capability.Respond(ctx, core.Prompt{
		Instructions: instructions,
		Data: map[string]any{
			"offer":            offer,
			"initiator_state":  initiator,
			"responder_state":  responder,
			"recent_exchanges": recent,
		},
	})
	if err != nil {
		return "", asCapabilityError("facilitator", err)
	}
	return reply, nil
}

// Window returns the number of recent exchanges used as context.
func (f *Facilitator) Window() int { return f.window }

// Record appends an exchange to the facilitator's history.
func (f *Facilitator) Record(ex *core.ExchangeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, ex)
}

// History returns every recorded exchange in append order.
func (f *Facilitator) History() []*core.ExchangeRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*core.ExchangeRecord{}, f.history...)
}

// Recent returns plain-data copies of the last n appended exchanges, oldest first.
func (f *Facilitator) Recent(n int) []core.ExchangeRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	start := len(f.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]core.ExchangeRecord, 0, len(f.history)-start)
	for _, ex := range f.history[start:] {
		out = append(out, ex.Clone())
	}
	return out
}

// AddNote appends a note about a participant.
func (f *Facilitator) AddNote(name, note string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[name] = append(f.notes[name], note)
}

// Notes returns the notes kept about a participant.
func (f *Facilitator) Notes(name string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string{}, f.notes[name]...)
}
