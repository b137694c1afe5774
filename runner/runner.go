package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/commonpool/agent"
	"github.com/hupe1980/commonpool/config"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/exchange"
	"github.com/hupe1980/commonpool/logging"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Simulation describes participants, resources and exchange counts.
	Simulation config.Simulation
	// Store persists the finished record; nil skips persistence.
	Store   core.RecordStore
	Logger  logging.Logger
	Metrics *exchange.Metrics
	// Clock supplies timestamps; defaults to time.Now.
	Clock func() time.Time
}

// Runner executes simulations against one capability. Public methods are
// safe for concurrent use.
type Runner struct {
	capability core.Capability
	opts       Options
	logger     logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// Report describes a finished run.
type Report struct {
	SimulationID string
	Seed         int64
	Record       *core.SimulationRecord
	// Location is where the record was persisted ("" without a store).
	Location string
	// Planned is the number of exchange rounds drawn; Skipped rounds had
	// nothing to offer or nobody to ask.
	Planned int
	Skipped int
	Settled int
}

// New constructs a Runner with optional overrides.
func New(capability core.Capability, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Simulation: config.Default().Simulation,
		Logger:     logging.NoOpLogger{},
		Clock:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		capability: capability,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
		activeRuns: make(map[string]context.CancelFunc),
	}
}

// Run executes one simulation and finalizes it. An invalid simulation section
// fails with config.ErrInvalid before anything is drawn. A persistence failure
// is returned together with the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	sim := r.opts.Simulation
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	seed := sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))

	orch, err := exchange.New(r.capability, func(o *exchange.Options) {
		o.SimulationID = sim.ID
		o.Store = r.opts.Store
		o.Catalog = sim.Catalog()
		o.Resolver = resolverFor(sim.Resolver)
		o.Logger = r.opts.Logger
		o.Metrics = r.opts.Metrics
		o.Clock = r.opts.Clock
	})
	if err != nil {
		return nil, err
	}
	id := orch.SimulationID()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	if _, busy := r.activeRuns[id]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("simulation %s is already running", id)
	}
	r.activeRuns[id] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, id)
		r.mu.Unlock()
	}()

	for _, spec := range GenerateParticipants(rng, sim) {
		if err := orch.Register(spec); err != nil {
			return nil, fmt.Errorf("register %s: %w", spec.Name, err)
		}
	}

	report := &Report{SimulationID: id, Seed: seed}
	report.Planned = sim.MinExchanges + rng.IntN(sim.MaxExchanges-sim.MinExchanges+1)
	r.logger.Info("runner.start", "simulation", id, "seed", seed, "exchanges", report.Planned)
	if sl, ok := r.logger.(*logging.SimLogger); ok {
		defer sl.WithSimulation(id).StartTimer("runner.finished")()
	}

	names := orch.Participants()
	for i := 0; i < report.Planned; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		initiator, responder := pair(rng, names)
		offer, ok, err := buildOffer(rng, orch, initiator, responder)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Skipped++
			r.logger.Debug("runner.skip", "round", i, "initiator", initiator, "responder", responder)
			continue
		}

		rec, err := orch.InitiateExchange(ctx, initiator, responder, offer)
		if err != nil {
			return nil, fmt.Errorf("exchange %d: %w", i, err)
		}
		outcome, err := orch.Resolve(ctx, rec)
		if err != nil {
			r.logger.Warn("runner.resolve_failed", "round", i, "error", err.Error())
			continue
		}
		if outcome != core.OutcomeSuccess || !sim.Settle {
			continue
		}
		switch err := orch.Settle(rec); {
		case err == nil:
			report.Settled++
		case errors.Is(err, core.ErrInsufficientResources):
			r.logger.Info("runner.settle_skipped", "round", i, "reason", err.Error())
		default:
			return nil, fmt.Errorf("settle exchange %d: %w", i, err)
		}
	}

	rec, err := orch.EndSimulation(ctx)
	if rec == nil {
		return nil, err
	}
	report.Record = rec
	report.Location = orch.Location()
	return report, err
}

// Cancel stops the run of the given simulation.
func (r *Runner) Cancel(simulationID string) error {
	r.mu.RLock()
	cancel, ok := r.activeRuns[simulationID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no active run %s", core.ErrNotFound, simulationID)
	}
	cancel()
	return nil
}

// Active lists the simulations currently running.
func (r *Runner) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GenerateParticipants creates participants P1..Pn. Each configured
// resource is held with the configured probability, in a quantity drawn
// from its range; needs are distinct resources.
func GenerateParticipants(rng *rand.Rand, sim config.Simulation) []agent.ParticipantSpec {
	specs := make([]agent.ParticipantSpec, 0, sim.Participants)
	for i := 0; i < sim.Participants; i++ {
		spec := agent.ParticipantSpec{
			Name:        fmt.Sprintf("P%d", i+1),
			Personality: sim.Personalities[rng.IntN(len(sim.Personalities))],
			Resources:   map[core.Resource]int{},
		}
		for _, rr := range sim.Resources {
			if rng.Float64() < sim.HoldProbability {
				spec.Resources[core.Resource(rr.Name)] = rr.Min + rng.IntN(rr.Max-rr.Min+1)
			}
		}
		for _, idx := range rng.Perm(len(sim.Resources))[:sim.NeedsPerParticipant] {
			spec.Needs = append(spec.Needs, core.Resource(sim.Resources[idx].Name))
		}
		specs = append(specs, spec)
	}
	return specs
}

func pair(rng *rand.Rand, names []string) (string, string) {
	i := rng.IntN(len(names))
	j := rng.IntN(len(names) - 1)
	if j >= i {
		j++
	}
	return names[i], names[j]
}

// buildOffer offers 1..holding of one positively held resource for 1..2 of
// one of the initiator's needs. ok is false when the initiator holds
// nothing, has no needs, or the responder has no needs.
func buildOffer(rng *rand.Rand, orch *exchange.Orchestrator, initiator, responder string) (core.TradeOffer, bool, error) {
	from, err := orch.ParticipantState(initiator)
	if err != nil {
		return core.TradeOffer{}, false, err
	}
	to, err := orch.ParticipantState(responder)
	if err != nil {
		return core.TradeOffer{}, false, err
	}

	var available []core.Resource
	for r, qty := range from.Resources {
		if qty > 0 {
			available = append(available, r)
		}
	}
	if len(available) == 0 || len(to.Needs) == 0 || len(from.Needs) == 0 {
		return core.TradeOffer{}, false, nil
	}
	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })

	give := available[rng.IntN(len(available))]
	giveQty := 1 + rng.IntN(from.Resources[give])
	want := from.Needs[rng.IntN(len(from.Needs))]
	wantQty := 1 + rng.IntN(2)

	return core.NewTradeOffer(
		map[core.Resource]int{give: giveQty},
		map[core.Resource]int{want: wantQty},
		fmt.Sprintf("Would you be interested in trading %d %s for %d %s?", giveQty, give, wantQty, want),
	), true, nil
}

func resolverFor(name string) exchange.Resolver {
	if name == "none" {
		return nil
	}
	return exchange.NewKeywordResolver()
}

// WriteSummary prints the run summary and every participant's final state.
func (rep *Report) WriteSummary(w io.Writer) error {
	rec := rep.Record
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	printf("Simulation Summary:\n")
	printf("Number of participants: %d\n", len(rec.FinalStates))
	printf("Number of exchanges: %d\n", len(rec.Exchanges))
	printf("\nFinal States:\n")
	for _, name := range rec.Participants() {
		st := rec.FinalStates[name]
		printf("\n%s (%s):\n", name, st.Personality)
		printf("Resources: %s\n", formatItems(st.Resources))
		printf("Needs: %v\n", st.Needs)
		printf("Exchanges participated in: %d\n", st.ExchangeCount)
	}
	printf("\nSimulation Analysis:\n%s\n", rec.Summary)
	if rep.Location != "" {
		printf("\nSaved to %s\n", rep.Location)
	}
	return err
}

func formatItems(items map[core.Resource]int) string {
	keys := make([]string, 0, len(items))
	for r := range items {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %d", k, items[core.Resource(k)])
	}
	return out + "}"
}
