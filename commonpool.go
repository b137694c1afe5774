// Package commonpool provides a high-level façade over the exchange
// orchestrator and its services (capability, record store, logging,
// metrics). Most applications interact with this package by:
//  1. Creating a CommonPool via New() with a model.Model
//  2. Registering participants (AddParticipant / Register)
//  3. Running exchanges (InitiateExchange, Resolve, Settle)
//  4. Finalizing the run with EndSimulation
//
// All defaults are safe for local development and testing: records are
// kept in memory and outcomes are resolved by keyword. Production runs
// typically supply an artifact.FileStore and a structured logger.
package commonpool

import (
	"time"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/capability"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/exchange"
	"github.com/hupe1980/commonpool/logging"
	"github.com/hupe1980/commonpool/model"
)

// Options configures the CommonPool instance.
type Options struct {
	// SimulationID names the run (defaults to a random id).
	SimulationID string

	// Store persists the finished record (defaults to an in-memory store).
	Store core.RecordStore

	// Catalog restricts resource kinds (defaults to books, tools and skills).
	Catalog *core.Catalog

	// Resolver decides outcomes in Resolve (defaults to the keyword resolver).
	// Set DisableResolver to leave outcomes pending.
	Resolver        exchange.Resolver
	DisableResolver bool

	// CallTimeout bounds each model call; MaxCalls caps calls per run (0 = unlimited).
	CallTimeout time.Duration
	MaxCalls    int

	Metrics *exchange.Metrics

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// CommonPool is the high-level façade aggregating a capability-backed
// orchestrator and its record store.
type CommonPool struct {
	*exchange.Orchestrator

	opts       Options
	capability *capability.ModelCapability
}

// New creates a CommonPool whose facilitator and participants all speak
// through m.
func New(m model.Model, optFns ...func(o *Options)) (*CommonPool, error) {
	opts := Options{
		Store:       artifact.NewInMemoryStore(),
		Catalog:     core.DefaultCatalog(),
		Resolver:    exchange.NewKeywordResolver(),
		CallTimeout: capability.DefaultTimeout,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.DisableResolver {
		opts.Resolver = nil
	}

	c := capability.New(m, func(o *capability.Options) {
		o.Timeout = opts.CallTimeout
		o.MaxCalls = opts.MaxCalls
		o.Logger = opts.Logger
	})

	orch, err := exchange.New(c, func(o *exchange.Options) {
		o.SimulationID = opts.SimulationID
		o.Store = opts.Store
		o.Catalog = opts.Catalog
		o.Resolver = opts.Resolver
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})
	if err != nil {
		return nil, err
	}
	return &CommonPool{Orchestrator: orch, opts: opts, capability: c}, nil
}

// Store returns the record store the run is persisted to.
func (c *CommonPool) Store() core.RecordStore { return c.opts.Store }

// Calls returns the number of model calls made so far.
func (c *CommonPool) Calls() int { return c.capability.Calls() }
