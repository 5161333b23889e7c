package decider

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/logger"
	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// Decider runs the filter pipeline and the scoring engine for one
// transaction at a time. It holds no per-transaction state and is safe for
// concurrent use.
type Decider struct {
	storage Storage
	lookup  *eligibility.Lookup
	cache   cache.Store
	cfg     atomic.Pointer[config.DeciderConfig]
	rand    RandomSource
	emitter telemetry.Emitter
	log     *logger.Logger
	now     func() time.Time
}

type Option func(*Decider)

// WithRandom replaces the random source used for hedging, exploration and
// sampling
func WithRandom(r RandomSource) Option {
	return func(d *Decider) { d.rand = r }
}

func WithClock(now func() time.Time) Option {
	return func(d *Decider) { d.now = now }
}

func WithEmitter(e telemetry.Emitter) Option {
	return func(d *Decider) { d.emitter = e }
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Decider) { d.log = l }
}

// New creates a decider. A nil cfg selects the built-in defaults.
func New(storage Storage, lookup *eligibility.Lookup, store cache.Store, cfg *config.DeciderConfig, opts ...Option) *Decider {
	d := &Decider{
		storage: storage,
		lookup:  lookup,
		cache:   store,
		rand:    NewRandom(),
		emitter: telemetry.Nop{},
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if cfg == nil {
		cfg = config.DefaultDeciderConfig()
	}
	d.cfg.Store(cfg)
	return d
}

// SetConfig swaps the engine configuration; in-flight decisions keep the
// one they started with
func (d *Decider) SetConfig(cfg *config.DeciderConfig) {
	if cfg != nil {
		d.cfg.Store(cfg)
	}
}

func (d *Decider) Config() *config.DeciderConfig {
	return d.cfg.Load()
}

// Decide narrows the merchant's gateways to the functional set and scores
// them. An empty functional set is a normal outcome with approach NONE.
func (d *Decider) Decide(ctx context.Context, dc *DecisionContext) Decision {
	start := d.now()
	if dc.ID == "" {
		dc.ID = uuid.New().String()
	}
	log := d.log.With("decision_id", dc.ID, "merchant_id", dc.Merchant.MerchantID)

	attrs, err := ResolveAttributes(dc.Order, dc.Txn, dc.Card)
	if err != nil {
		log.Warn("Malformed transaction metadata, treating as absent", "error", err)
	}
	dc.Attributes = attrs

	accounts, err := d.storage.MerchantGatewayAccounts(ctx, dc.Merchant.MerchantID)
	if err != nil {
		log.Error("Failed to load merchant gateway accounts", "error", err)
		accounts = nil
	}
	enabled := make([]models.MerchantGatewayAccount, 0, len(accounts))
	for _, mga := range accounts {
		if !mga.Disabled {
			enabled = append(enabled, mga)
		}
	}
	dc.Functional.SetGatewaysAndAccounts(enabled)

	d.runFilters(ctx, dc)
	if dc.Functional.Len() == 0 {
		log.Warn("No functional gateways left after filtering", "initial_accounts", len(enabled))
	}

	result := d.score(ctx, dc)

	decision := Decision{
		DecisionID:         dc.ID,
		Scores:             result.scores,
		Approach:           result.approach,
		ResetApproach:      result.resetApproach,
		DownTime:           result.downTime,
		FunctionalGateways: dc.Functional.Gateways(),
		Accounts:           dc.Functional.Accounts(),
		Trail:              dc.Trail,
	}
	if top, _, ok := result.scores.Top(); ok {
		decision.TopGateway = top
	}

	log.Info("Gateway decision completed",
		"approach", decision.Approach,
		"top_gateway", decision.TopGateway,
		"functional_gateways", len(decision.FunctionalGateways),
		"duration_ms", float64(d.now().Sub(start).Microseconds())/1000.0)
	return decision
}
