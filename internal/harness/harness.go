package harness

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/ledger"
	"github.com/stockpilot/papertrade/internal/market"
	"github.com/stockpilot/papertrade/internal/policy"
	"github.com/stockpilot/papertrade/internal/score"
)

// instance bundles one strategy's config, scorer, per-symbol policies and
// ledger. Instances never share state; the harness is the only fan-out point.
type instance struct {
	cfg      policy.Config
	scorer   *score.Model
	policies map[string]*policy.Policy
	led      *ledger.Ledger
}

// Harness owns the strategy instances for one comparison session. The
// external driver guarantees at most one RunTick in flight; the harness
// additionally serializes RunTick/Compare with its own mutex so equity
// curve ordering can never interleave.
type Harness struct {
	mu sync.Mutex

	opts      Options
	sessionID string
	startedAt time.Time
	instances []*instance
	observers []Observer

	tickCount int
	latest    *Comparison
}

// New validates every strategy config and builds the isolated instances.
// Any invalid config aborts construction; no session runs half-configured.
func New(opts Options, configs []policy.Config, observers ...Observer) (*Harness, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("harness: at least one strategy config required")
	}
	if opts.FXRate <= 0 {
		return nil, fmt.Errorf("harness: fx_rate must be positive, got %.4f", opts.FXRate)
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = 10
	}

	seen := make(map[string]bool, len(configs))
	instances := make([]*instance, 0, len(configs))
	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("harness: %w", err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("harness: duplicate strategy name %q", cfg.Name)
		}
		seen[cfg.Name] = true

		scorer := score.NewModel()
		if opts.NoiseEnabled {
			// Each instance gets its own seeded source so runs with the
			// same seed replay identically.
			scorer = score.NewNoisyModel(rand.New(rand.NewSource(opts.NoiseSeed + int64(i))))
		}
		instances = append(instances, &instance{
			cfg:      cfg,
			scorer:   scorer,
			policies: make(map[string]*policy.Policy),
			led:      ledger.New(opts.InitialDomesticCash, opts.InitialForeignCash, cfg.RiskLimits()),
		})
	}

	return &Harness{
		opts:      opts,
		sessionID: uuid.NewString(),
		startedAt: time.Now(),
		instances: instances,
		observers: observers,
	}, nil
}

// SessionID returns the session's unique identifier.
func (h *Harness) SessionID() string {
	return h.sessionID
}

// TickCount returns the number of completed ticks.
func (h *Harness) TickCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tickCount
}

// RunTick fans one snapshot set out to every strategy instance. Instances
// evaluate concurrently since each owns a disjoint ledger and only reads the
// shared snapshot map; the harness joins all workers before checkpointing so
// every ledger gets an equity point with the same tick timestamp.
func (h *Harness) RunTick(ctx context.Context, now time.Time, snaps map[string]market.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tc := ledger.TickContext{Now: now, FXRate: h.opts.FXRate, Prices: market.SnapshotPrices(snaps)}

	symbols := make([]string, 0, len(snaps))
	for sym := range snaps {
		symbols = append(symbols, sym)
	}
	// Stable evaluation order keeps trade logs reproducible across runs.
	sort.Strings(symbols)

	var wg sync.WaitGroup
	for _, inst := range h.instances {
		wg.Add(1)
		go func(inst *instance) {
			defer wg.Done()
			h.evaluateInstance(ctx, tc, inst, symbols, snaps)
		}(inst)
	}
	wg.Wait()

	for _, inst := range h.instances {
		dd := inst.led.Checkpoint(tc)
		curve := inst.led.EquityCurve()
		point := curve[len(curve)-1]
		for _, obs := range h.observers {
			obs.OnCheckpoint(ctx, inst.cfg.Name, point, dd*100)
		}
	}
	h.tickCount++
}

func (h *Harness) evaluateInstance(ctx context.Context, tc ledger.TickContext, inst *instance, symbols []string, snaps map[string]market.Snapshot) {
	for _, sym := range symbols {
		snap := snaps[sym]
		scoreVal := inst.scorer.Score(snap)

		pol, ok := inst.policies[sym]
		if !ok {
			pol = policy.New(inst.cfg, sym)
			inst.policies[sym] = pol
		}

		trade, acted, err := pol.EvaluateTick(tc, snap, scoreVal, inst.led)
		if err != nil {
			h.notifyRejection(ctx, inst.cfg.Name, sym, err)
			continue
		}
		if !acted {
			continue
		}

		log.Info().
			Str("strategy", inst.cfg.Name).
			Str("symbol", trade.Symbol).
			Str("side", string(trade.Side)).
			Str("reason", string(trade.Reason)).
			Int64("qty", trade.Quantity).
			Float64("price", trade.Price).
			Float64("realized_pnl", trade.RealizedPnL).
			Msg("trade committed")

		for _, obs := range h.observers {
			obs.OnTrade(ctx, inst.cfg.Name, trade)
		}
	}

	// A held symbol missing from this tick's snapshot set is a data gap:
	// skip it, keep the position.
	for _, pos := range inst.led.Positions() {
		if _, ok := snaps[pos.Symbol]; !ok {
			log.Debug().
				Str("strategy", inst.cfg.Name).
				Str("symbol", pos.Symbol).
				Msg("snapshot missing for held symbol, skipping tick")
			for _, obs := range h.observers {
				obs.OnRejection(ctx, inst.cfg.Name, pos.Symbol, "tick", "DataGap")
			}
		}
	}
}

func (h *Harness) notifyRejection(ctx context.Context, strategy, symbol string, err error) {
	kind, reason := "buy", "unknown"
	if br, ok := ledger.AsBuyRejected(err); ok {
		reason = string(br.Reason)
	} else if sr, ok := ledger.AsSellRejected(err); ok {
		kind = "sell"
		reason = string(sr.Reason)
	}

	log.Warn().
		Str("strategy", strategy).
		Str("symbol", symbol).
		Str("kind", kind).
		Str("reason", reason).
		Msg("action rejected")

	for _, obs := range h.observers {
		obs.OnRejection(ctx, strategy, symbol, kind, reason)
	}
}
