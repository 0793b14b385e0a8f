package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stockpilot/papertrade/internal/bus"
	"github.com/stockpilot/papertrade/internal/config"
	"github.com/stockpilot/papertrade/internal/feed"
	"github.com/stockpilot/papertrade/internal/harness"
	"github.com/stockpilot/papertrade/internal/metrics"
	"github.com/stockpilot/papertrade/internal/persistence"
	"github.com/stockpilot/papertrade/internal/persistence/postgres"
	"github.com/stockpilot/papertrade/internal/report"
	"github.com/stockpilot/papertrade/internal/scheduler"
	"github.com/stockpilot/papertrade/internal/server"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a comparison session",
		Long: `Run strategies from the session config against the configured snapshot
feed until the feed is exhausted or the process is interrupted, then write
the final report.`,
		RunE: runSession,
	}
	cmd.Flags().String("config", "config/session.yaml", "Session config file")
	cmd.Flags().Bool("replay", false, "Drain a file feed without waiting between ticks")
	return cmd
}

func runSession(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	replay, _ := cmd.Flags().GetBool("replay")

	// Secrets come from the environment; .env is a local convenience.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	opts := harness.Options{
		InitialDomesticCash: cfg.Session.InitialDomesticCash,
		InitialForeignCash:  cfg.Session.InitialForeignCash,
		FXRate:              cfg.Session.FXRate,
		RiskFreeRate:        cfg.Session.RiskFreeRate,
		MinSamples:          cfg.Session.MinSamples,
		NoiseEnabled:        cfg.Session.Noise.Enabled,
		NoiseSeed:           cfg.Session.Noise.Seed,
	}

	observers := []harness.Observer{metrics.NewObserver(reg)}

	var recorder *persistence.Recorder
	if cfg.Persistence.Enabled {
		dsn := os.Getenv(cfg.Persistence.DSNEnv)
		if dsn == "" {
			return fmt.Errorf("persistence enabled but %s is not set", cfg.Persistence.DSNEnv)
		}
		store, db, err := postgres.Connect(ctx, dsn, cfg.Persistence.Timeout.Std())
		if err != nil {
			return err
		}
		defer db.Close()

		// Session ID is assigned below; the recorder is rebound after New.
		recorder = persistence.NewRecorder("", store)
		recorder.OnDrop = func(op string) {
			reg.StoreDrops.WithLabelValues(op).Inc()
		}
		observers = append(observers, recorder)
	}

	h, err := harness.New(opts, cfg.Strategies, observers...)
	if err != nil {
		return err
	}
	if recorder != nil {
		recorder.Bind(h.SessionID())
	}
	log.Info().
		Str("session_id", h.SessionID()).
		Int("strategies", len(cfg.Strategies)).
		Msg("session starting")

	writer, err := report.NewWriter(cfg.Session.ArtifactsDir, h.SessionID())
	if err != nil {
		return err
	}

	var publisher *bus.Publisher
	if cfg.Redis.Enabled {
		addr := os.Getenv(cfg.Redis.AddrEnv)
		if addr == "" {
			return fmt.Errorf("redis enabled but %s is not set", cfg.Redis.AddrEnv)
		}
		publisher, err = bus.NewPublisher(ctx, addr, cfg.Redis.Channel)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	src, err := buildSource(ctx, cfg.Feed)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr, reg, h)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	interval := cfg.Session.TickInterval.Std()
	if replay {
		interval = 0
	}
	runner, err := scheduler.New(h, src, reg, interval, cfg.Session.CompareEveryTicks)
	if err != nil {
		return err
	}
	board := newScoreboard(os.Stdout)
	runner.OnComparison = func(comp harness.Comparison) {
		board.Render(comp)
		if err := writer.WriteComparison(comp); err != nil {
			log.Error().Err(err).Msg("comparison artifact write failed")
		}
		if publisher != nil {
			publisher.PublishComparison(ctx, comp)
		}
	}

	if err := runner.Run(ctx); err != nil {
		return err
	}

	// Final report uses a fresh context: the run context is usually already
	// cancelled by the signal that ended the session.
	finalCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep := h.FinalReport(time.Now())
	if err := writer.WriteFinal(rep); err != nil {
		return err
	}
	if recorder != nil {
		if err := recorder.SaveReport(finalCtx, rep); err != nil {
			log.Error().Err(err).Msg("final report store failed")
		}
	}

	log.Info().
		Str("winner", rep.Winner).
		Str("artifacts", writer.Dir()).
		Msg("session complete")
	return nil
}

func buildSource(ctx context.Context, cfg config.Feed) (feed.Source, error) {
	switch cfg.Mode {
	case "file":
		return feed.NewFileSource(cfg.Dir)
	case "ws":
		src := feed.NewWSSource(cfg.URL)
		go src.Run(ctx)
		return src, nil
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.Mode)
	}
}
