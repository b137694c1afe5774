package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/commonpool/agent"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/internal/util"
	"github.com/hupe1980/commonpool/logging"
)

// State is the lifecycle state of an Orchestrator.
type State int

const (
	// StateInitializing accepts registrations; no exchange has run yet.
	StateInitializing State = iota
	// StateRunning is entered on the first exchange.
	StateRunning
	// StateFinalized is entered by EndSimulation and is terminal.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures an Orchestrator.
type Options struct {
	// SimulationID names the run; defaults to a random id.
	SimulationID string
	// Store persists the finished record; nil skips persistence.
	Store core.RecordStore
	// Catalog restricts the resource kinds; defaults to core.DefaultCatalog().
	Catalog *core.Catalog
	// Resolver is used by Resolve; nil leaves outcomes pending.
	Resolver Resolver
	Logger   logging.Logger
	Metrics  *Metrics
	// Clock supplies timestamps; defaults to time.Now.
	Clock func() time.Time

	FacilitatorOptions []func(o *agent.FacilitatorOptions)
	// ParticipantInstruction overrides agent.DefaultParticipantInstruction.
	ParticipantInstruction agent.Instruction
	// SummaryPrompt overrides DefaultSummaryPrompt.
	SummaryPrompt string
}

// Orchestrator drives one simulation run. It is safe for concurrent use;
// capability calls never run while its lock is held.
type Orchestrator struct {
	capability  core.Capability
	opts        Options
	logger      logging.Logger
	facilitator *agent.Facilitator

	mu           sync.Mutex
	state        State
	participants map[string]*agent.Participant
	order        []string
	history      []*core.ExchangeRecord
	known        map[*core.ExchangeRecord]struct{}
	settled      map[*core.ExchangeRecord]struct{}
	record       *core.SimulationRecord
	location     string
}

// New creates an orchestrator whose participants and facilitator share capability.
func New(capability core.Capability, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Catalog: core.DefaultCatalog(),
		Clock:   time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SimulationID == "" {
		opts.SimulationID = util.NewID()
	}
	if err := core.ValidateSimulationID(opts.SimulationID); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SummaryPrompt == "" {
		opts.SummaryPrompt = DefaultSummaryPrompt
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.SimLogger); ok {
		logger = sl.WithComponent("exchange").WithSimulation(opts.SimulationID)
	}

	return &Orchestrator{
		capability:   capability,
		opts:         opts,
		logger:       logger,
		facilitator:  agent.NewFacilitator(capability, opts.FacilitatorOptions...),
		participants: map[string]*agent.Participant{},
		known:        map[*core.ExchangeRecord]struct{}{},
		settled:      map[*core.ExchangeRecord]struct{}{},
		record:       core.NewSimulationRecord(opts.SimulationID, opts.Clock()),
	}, nil
}

// SimulationID returns the run identifier.
func (o *Orchestrator) SimulationID() string { return o.opts.SimulationID }

// Facilitator returns the simulation's facilitator.
func (o *Orchestrator) Facilitator() *agent.Facilitator { return o.facilitator }

// Catalog returns the resource catalog in use.
func (o *Orchestrator) Catalog() *core.Catalog { return o.opts.Catalog }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// AddParticipant registers a participant and captures its initial state.
func (o *Orchestrator) AddParticipant(name, personality string, resources map[core.Resource]int, needs []core.Resource) error {
	return o.Register(agent.ParticipantSpec{
		Name:        name,
		Personality: personality,
		Resources:   resources,
		Needs:       needs,
	})
}

// Register is AddParticipant for a full ParticipantSpec.
func (o *Orchestrator) Register(spec agent.ParticipantSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: empty name", core.ErrInvalidParticipant)
	}
	for r, qty := range spec.Resources {
		if !o.opts.Catalog.Contains(r) {
			return fmt.Errorf("%w: resource %q of %s", core.ErrUnknownResource, r, spec.Name)
		}
		if qty < 0 {
			return fmt.Errorf("%w: %s holds %d %s", core.ErrInvalidParticipant, spec.Name, qty, r)
		}
	}
	for _, r := range spec.Needs {
		if !o.opts.Catalog.Contains(r) {
			return fmt.Errorf("%w: need %q of %s", core.ErrUnknownResource, r, spec.Name)
		}
	}
	if spec.Instruction.IsZero() {
		spec.Instruction = o.opts.ParticipantInstruction
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateFinalized {
		return core.ErrFinalized
	}
	if _, exists := o.participants[spec.Name]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateParticipant, spec.Name)
	}

	p := agent.NewParticipant(spec, o.capability)
	o.participants[spec.Name] = p
	o.order = append(o.order, spec.Name)
	o.record.InitialStates[spec.Name] = p.State()

	o.logger.Debug("exchange.participant.added", "participant", spec.Name, "personality", spec.Personality)
	return nil
}

// InitiateExchange runs one negotiation round between two registered
// participants and returns the shared record appended to every history.
//
// Capability failures do not fail the call: the record is appended with
// outcome failed and the diagnostic in its notes or conversation. Unknown
// names, invalid offers, caller cancellation and finalization are errors and
// leave every history untouched.
func (o *Orchestrator) InitiateExchange(ctx context.Context, initiatorName, responderName string, offer core.TradeOffer) (*core.ExchangeRecord, error) {
	start := time.Now()

	o.mu.Lock()
	if o.state == StateFinalized {
		o.mu.Unlock()
		return nil, core.ErrFinalized
	}
	initiator, err := o.lookup(initiatorName)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	responder, err := o.lookup(responderName)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if initiatorName == responderName {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s cannot trade with itself", core.ErrInvalidOffer, initiatorName)
	}
	if err := o.opts.Catalog.ValidateOffer(offer); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.state == StateInitializing {
		o.state = StateRunning
	}
	initiatorState := initiator.State()
	responderState := responder.State()
	recent := o.facilitator.Recent(o.facilitator.Window())
	o.mu.Unlock()

	outcome := core.OutcomePending
	conversation := []string{}

	notes, err := o.facilitator.SuggestValuationWith(ctx, offer, initiatorState, responderState, recent)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.capabilityFailed("facilitator", err)
		notes = diagnostic(err)
		outcome = core.OutcomeFailed
	} else {
		reply, err := responder.ConsiderTrade(ctx, offer, notes)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.capabilityFailed("responder", err)
			conversation = append(conversation, diagnostic(err))
			outcome = core.OutcomeFailed
		} else {
			conversation = append(conversation, reply)
		}
	}

	rec := &core.ExchangeRecord{
		Timestamp:        o.opts.Clock(),
		Initiator:        initiatorName,
		Responder:        responderName,
		Offer:            offer,
		FacilitatorNotes: notes,
		Conversation:     conversation,
		Outcome:          outcome,
	}

	o.mu.Lock()
	if o.state == StateFinalized {
		o.mu.Unlock()
		return nil, core.ErrFinalized
	}
	o.history = append(o.history, rec)
	o.known[rec] = struct{}{}
	o.facilitator.Record(rec)
	initiator.Record(rec)
	responder.Record(rec)
	o.record.Exchanges = append(o.record.Exchanges, rec)
	o.mu.Unlock()

	dur := time.Since(start)
	o.opts.Metrics.observeExchange(string(outcome), dur)
	if sl, ok := o.logger.(*logging.SimLogger); ok {
		sl.LogExchange(initiatorName, responderName, string(outcome), dur)
	} else {
		o.logger.Info("exchange.recorded", "initiator", initiatorName, "responder", responderName, "outcome", string(outcome), "duration", dur)
	}

	return rec, nil
}

// ResolveExchange moves a pending exchange to success or failed, once.
// finalTerms, when non-nil, replaces the offer's requested items as what the
// responder delivers on settlement.
func (o *Orchestrator) ResolveExchange(rec *core.ExchangeRecord, outcome core.Outcome, finalTerms map[core.Resource]int) error {
	if outcome != core.OutcomeSuccess && outcome != core.OutcomeFailed {
		return fmt.Errorf("%w: cannot resolve to %q", core.ErrInvalidOffer, outcome)
	}
	if finalTerms != nil {
		if err := o.opts.Catalog.ValidateItems(finalTerms); err != nil {
			return err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.known[rec]; !ok {
		return fmt.Errorf("%w: exchange not part of simulation %s", core.ErrNotFound, o.opts.SimulationID)
	}
	if o.state == StateFinalized {
		return core.ErrFinalized
	}
	if rec.Outcome != core.OutcomePending {
		return fmt.Errorf("%w: outcome is %s", core.ErrAlreadyResolved, rec.Outcome)
	}

	rec.Outcome = outcome
	if finalTerms != nil {
		rec.FinalTerms = core.CopyItems(finalTerms)
	}

	o.opts.Metrics.observeResolution(string(outcome))
	o.logger.Debug("exchange.resolved", "initiator", rec.Initiator, "responder", rec.Responder, "outcome", string(outcome))
	return nil
}

// Resolve asks the configured Resolver for a decision and applies it. It
// returns the outcome after the call; without a resolver, or for an exchange
// that is no longer pending, nothing changes.
func (o *Orchestrator) Resolve(ctx context.Context, rec *core.ExchangeRecord) (core.Outcome, error) {
	o.mu.Lock()
	if _, ok := o.known[rec]; !ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: exchange not part of simulation %s", core.ErrNotFound, o.opts.SimulationID)
	}
	snapshot := rec.Clone()
	o.mu.Unlock()

	if o.opts.Resolver == nil || snapshot.Outcome != core.OutcomePending {
		return snapshot.Outcome, nil
	}

	decision, err := o.opts.Resolver.Resolve(ctx, snapshot)
	if err != nil {
		return core.OutcomePending, fmt.Errorf("resolve exchange: %w", err)
	}
	if decision.Outcome == core.OutcomePending || decision.Outcome == "" {
		return core.OutcomePending, nil
	}
	if err := o.ResolveExchange(rec, decision.Outcome, decision.FinalTerms); err != nil {
		return core.OutcomePending, err
	}
	return decision.Outcome, nil
}

// Settle transfers the resources of a successful exchange: the offered items
// move from initiator to responder and the requested items (or final terms)
// from responder to initiator. It is all-or-nothing, refuses to drive any
// holding negative and settles each exchange at most once.
func (o *Orchestrator) Settle(rec *core.ExchangeRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.known[rec]; !ok {
		return fmt.Errorf("%w: exchange not part of simulation %s", core.ErrNotFound, o.opts.SimulationID)
	}
	if o.state == StateFinalized {
		return core.ErrFinalized
	}
	if rec.Outcome != core.OutcomeSuccess {
		return fmt.Errorf("%w: outcome is %s", core.ErrNotSettleable, rec.Outcome)
	}
	if _, done := o.settled[rec]; done {
		return fmt.Errorf("%w: already settled", core.ErrNotSettleable)
	}

	initiator := o.participants[rec.Initiator]
	responder := o.participants[rec.Responder]

	give := rec.Offer.Offered()
	take := rec.Offer.Requested()
	if rec.FinalTerms != nil {
		take = core.CopyItems(rec.FinalTerms)
	}

	for r, qty := range give {
		if initiator.Holding(r) < qty {
			return fmt.Errorf("%w: %s holds %d %s, owes %d", core.ErrInsufficientResources, rec.Initiator, initiator.Holding(r), r, qty)
		}
	}
	for r, qty := range take {
		if responder.Holding(r) < qty {
			return fmt.Errorf("%w: %s holds %d %s, owes %d", core.ErrInsufficientResources, rec.Responder, responder.Holding(r), r, qty)
		}
	}

	// Cannot fail: feasibility was checked under the same lock.
	for r, qty := range give {
		_ = initiator.Adjust(r, -qty)
		_ = responder.Adjust(r, qty)
	}
	for r, qty := range take {
		_ = responder.Adjust(r, -qty)
		_ = initiator.Adjust(r, qty)
	}
	o.settled[rec] = struct{}{}

	o.opts.Metrics.observeSettlement()
	o.logger.Info("exchange.settled", "initiator", rec.Initiator, "responder", rec.Responder)
	return nil
}

// ParticipantState returns a snapshot of a registered participant.
func (o *Orchestrator) ParticipantState(name string) (core.StateSnapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.lookup(name)
	if err != nil {
		return core.StateSnapshot{}, err
	}
	return p.State(), nil
}

// Participant returns a registered participant.
func (o *Orchestrator) Participant(name string) (*agent.Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lookup(name)
}

// Participants returns the registered names in registration order.
func (o *Orchestrator) Participants() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string{}, o.order...)
}

// History returns the global exchange history in append order.
func (o *Orchestrator) History() []*core.ExchangeRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*core.ExchangeRecord{}, o.history...)
}

// Record returns a deep copy of the simulation record as it stands.
func (o *Orchestrator) Record() *core.SimulationRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.record.Clone()
}

// Location returns where the finished record was stored, once EndSimulation
// has persisted it.
func (o *Orchestrator) Location() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.location
}

func (o *Orchestrator) lookup(name string) (*agent.Participant, error) {
	p, ok := o.participants[name]
	if !ok {
		return nil, fmt.Errorf("%w: participant %q", core.ErrNotFound, name)
	}
	return p, nil
}

// finalStates snapshots every registered participant. Callers hold o.mu.
func (o *Orchestrator) finalStates() map[string]core.StateSnapshot {
	states := make(map[string]core.StateSnapshot, len(o.participants))
	for name, p := range o.participants {
		states[name] = p.State()
	}
	return states
}

func (o *Orchestrator) capabilityFailed(role string, err error) {
	o.opts.Metrics.observeCapabilityFailure(role)
	o.logger.Warn("exchange.capability_failed", "role", role, "error", err.Error())
}

// diagnostic renders a capability failure as the text stored in the record.
func diagnostic(err error) string {
	var ce *core.CapabilityError
	if errors.As(err, &ce) {
		return fmt.Sprintf("Error processing request: %s: %v", ce.Op, ce.Err)
	}
	return fmt.Sprintf("Error processing request: %v", err)
}
