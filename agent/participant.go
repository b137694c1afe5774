package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/commonpool/core"
)

// ParticipantSpec describes a participant at registration time.
type ParticipantSpec struct {
	Name        string
	Personality string
	Resources   map[core.Resource]int
	Needs       []core.Resource

	// Instruction overrides DefaultParticipantInstruction.
	Instruction Instruction
}

// Participant is an autonomous agent holding resources and evaluating offers.
// It is safe for concurrent use.
type Participant struct {
	name        string
	personality string
	instruction Instruction
	capability  core.Capability

	mu        sync.RWMutex
	resources map[core.Resource]int
	needs     []core.Resource
	history   []*core.ExchangeRecord
}

// NewParticipant creates a participant. Maps and slices of the ParticipantSpec are copied.
func NewParticipant(spec ParticipantSpec, capability core.Capability) *Participant {
	instr := spec.Instruction
	if instr.IsZero() {
		instr = NewInstructionFromText(DefaultParticipantInstruction)
	}

	resources := core.CopyItems(spec.Resources)
	if resources == nil {
		resources = map[core.Resource]int{}
	}

	return &Participant{
		name:        spec.Name,
		personality: spec.Personality,
		instruction: instr,
		capability:  capability,
		resources:   resources,
		needs:       append([]core.Resource{}, spec.Needs...),
	}
}

// Name returns the participant's unique name.
func (p *Participant) Name() string { return p.name }

// Personality returns the participant's disposition descriptor.
func (p *Participant) Personality() string { return p.personality }

// ConsiderTrade asks the capability to evaluate offer given the facilitator's
// suggestion and returns its reply verbatim. It has no side effects.
func (p *Participant) ConsiderTrade(ctx context.Context, offer core.TradeOffer, suggestion string) (string, error) {
	state := p.State()

	instructions, err := p.instruction.Resolve(map[string]any{
		"name":        state.Name,
		"personality": state.Personality,
		"resources":   state.Resources,
		"needs":       state.Needs,
	})
	if err != nil {
		return "", err
	}

	reply, err := p.capability.Respond(ctx, core.Prompt{
		Instructions: instructions,
		Data: map[string]any{
			"personality": state.Personality,
			"resources":   state.Resources,
			"needs":       state.Needs,
			"offer":       offer,
			"suggestion":  suggestion,
		},
	})
	if err != nil {
		return "", asCapabilityError("responder", err)
	}
	return reply, nil
}

// State returns a defensive snapshot of the participant.
func (p *Participant) State() core.StateSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return core.StateSnapshot{
		Name:          p.name,
		Personality:   p.personality,
		Resources:     core.CopyItems(p.resources),
		Needs:         append([]core.Resource{}, p.needs...),
		ExchangeCount: len(p.history),
	}
}

// History returns the participant's exchanges in append order. The slice is a
// copy; the records are shared with the rest of the simulation.
func (p *Participant) History() []*core.ExchangeRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*core.ExchangeRecord{}, p.history...)
}

// Record appends an exchange to the participant's history.
func (p *Participant) Record(ex *core.ExchangeRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, ex)
}

// Holding returns the quantity held of r.
func (p *Participant) Holding(r core.Resource) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resources[r]
}

// SetResource sets the quantity held of r. Zero removes the entry.
func (p *Participant) SetResource(r core.Resource, qty int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if qty == 0 {
		delete(p.resources, r)
		return
	}
	p.resources[r] = qty
}

// Adjust applies delta to the holding of r. It refuses to drive a holding
// negative and leaves the participant unchanged in that case.
func (p *Participant) Adjust(r core.Resource, delta int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.resources[r] + delta
	if next < 0 {
		return core.ErrInsufficientResources
	}
	if next == 0 {
		delete(p.resources, r)
		return nil
	}
	p.resources[r] = next
	return nil
}

// asCapabilityError tags err with the calling role.
func asCapabilityError(op string, err error) error {
	var ce *core.CapabilityError
	if errors.As(err, &ce) {
		return &core.CapabilityError{Op: op, Err: ce.Err}
	}
	return &core.CapabilityError{Op: op, Err: err}
}
