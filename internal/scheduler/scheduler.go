// Package scheduler drives the session's tick loop: fetch snapshots, run
// the harness, and trigger periodic comparisons until the feed runs dry or
// the context is cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockpilot/papertrade/internal/feed"
	"github.com/stockpilot/papertrade/internal/harness"
	"github.com/stockpilot/papertrade/internal/metrics"
)

// Runner owns one session's loop.
type Runner struct {
	h            *harness.Harness
	src          feed.Source
	reg          *metrics.Registry
	interval     time.Duration
	compareEvery int

	// OnComparison fires after each periodic comparison; artifact writers
	// and publishers hang off this hook.
	OnComparison func(harness.Comparison)
}

// New builds a runner. An interval of zero drains the source without
// waiting, which is what file replays want.
func New(h *harness.Harness, src feed.Source, reg *metrics.Registry, interval time.Duration, compareEvery int) (*Runner, error) {
	if compareEvery <= 0 {
		return nil, fmt.Errorf("scheduler: compare interval must be positive")
	}
	return &Runner{
		h:            h,
		src:          src,
		reg:          reg,
		interval:     interval,
		compareEvery: compareEvery,
	}, nil
}

// Run loops until the context ends or a replay source is exhausted. The
// caller generates the final report afterwards; Run only drives ticks and
// periodic comparisons.
func (r *Runner) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		defer ticker.Stop()
	}

	for {
		set, err := r.src.Fetch(ctx)
		if err != nil {
			if errors.Is(err, feed.ErrExhausted) {
				log.Info().Int("ticks", r.h.TickCount()).Msg("feed exhausted, session complete")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("snapshot fetch failed, skipping tick")
		} else {
			start := time.Now()
			now := set.Timestamp
			if now.IsZero() {
				now = start
			}
			r.h.RunTick(ctx, now, set.Snapshots)
			if r.reg != nil {
				r.reg.ObserveTick(time.Since(start))
			}

			if r.h.TickCount()%r.compareEvery == 0 {
				comp := r.h.Compare(now)
				if r.reg != nil {
					r.reg.Comparisons.Inc()
				}
				logComparison(comp)
				if r.OnComparison != nil {
					r.OnComparison(comp)
				}
			}
		}

		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func logComparison(comp harness.Comparison) {
	ev := log.Info().
		Int("tick", comp.TickCount).
		Strs("ranking", comp.Ranking)
	if !comp.Significance.InsufficientData {
		ev = ev.Float64("p_value", comp.Significance.PValue).
			Bool("significant", comp.Significance.Significant)
	}
	ev.Msg("comparison checkpoint")
}
