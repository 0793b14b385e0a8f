// Package config loads and validates the YAML session configuration. A
// session's configuration is immutable once the harness starts; anything
// out of range fails here, before any tick runs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stockpilot/papertrade/internal/policy"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "5m". yaml.v3 has no native duration support.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SessionConfig is the root configuration document.
type SessionConfig struct {
	Session     Session         `yaml:"session"`
	Feed        Feed            `yaml:"feed"`
	Server      Server          `yaml:"server"`
	Persistence Persistence     `yaml:"persistence"`
	Redis       Redis           `yaml:"redis"`
	Strategies  []policy.Config `yaml:"strategies"`
}

// Session holds the harness-level knobs.
type Session struct {
	Name                string        `yaml:"name"`
	ArtifactsDir        string        `yaml:"artifacts_dir"`
	TickInterval        Duration `yaml:"tick_interval"`
	CompareEveryTicks   int      `yaml:"compare_every_ticks"`
	MinSamples          int      `yaml:"min_samples"`
	RiskFreeRate        float64  `yaml:"risk_free_rate"`
	FXRate              float64  `yaml:"fx_rate"`
	InitialDomesticCash float64  `yaml:"initial_domestic_cash"`
	InitialForeignCash  float64  `yaml:"initial_foreign_cash"`
	Noise               Noise    `yaml:"noise"`
}

// Noise controls the optional score jitter. The seed makes noisy runs
// replayable.
type Noise struct {
	Enabled bool  `yaml:"enabled"`
	Seed    int64 `yaml:"seed"`
}

// Feed selects the snapshot source for the run command.
type Feed struct {
	Mode string `yaml:"mode"` // "file" or "ws"
	Dir  string `yaml:"dir"`  // file mode: day-partitioned snapshot drops
	URL  string `yaml:"url"`  // ws mode: collector endpoint
}

// Server configures the metrics/status HTTP listener.
type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Persistence configures the Postgres store. The DSN itself comes from the
// environment, never the config file.
type Persistence struct {
	Enabled bool     `yaml:"enabled"`
	DSNEnv  string   `yaml:"dsn_env"`
	Timeout Duration `yaml:"timeout"`
}

// Redis configures the comparison publisher.
type Redis struct {
	Enabled bool   `yaml:"enabled"`
	AddrEnv string `yaml:"addr_env"`
	Channel string `yaml:"channel"`
}

// Load reads, defaults and validates a session configuration file.
func Load(path string) (SessionConfig, error) {
	var cfg SessionConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *SessionConfig) {
	if cfg.Session.Name == "" {
		cfg.Session.Name = "papertrade"
	}
	if cfg.Session.ArtifactsDir == "" {
		cfg.Session.ArtifactsDir = "artifacts"
	}
	if cfg.Session.TickInterval == 0 {
		cfg.Session.TickInterval = Duration(time.Minute)
	}
	if cfg.Session.CompareEveryTicks == 0 {
		cfg.Session.CompareEveryTicks = 60
	}
	if cfg.Session.MinSamples == 0 {
		cfg.Session.MinSamples = 10
	}
	if cfg.Session.RiskFreeRate == 0 {
		cfg.Session.RiskFreeRate = 3.0
	}
	if cfg.Session.FXRate == 0 {
		cfg.Session.FXRate = 1300
	}
	if cfg.Session.InitialDomesticCash == 0 {
		cfg.Session.InitialDomesticCash = 10_000_000
	}
	if cfg.Session.InitialForeignCash == 0 {
		cfg.Session.InitialForeignCash = 10_000
	}
	if cfg.Feed.Mode == "" {
		cfg.Feed.Mode = "file"
	}
	if cfg.Feed.Dir == "" {
		cfg.Feed.Dir = "data/realtime"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8889"
	}
	if cfg.Persistence.DSNEnv == "" {
		cfg.Persistence.DSNEnv = "DATABASE_URL"
	}
	if cfg.Persistence.Timeout == 0 {
		cfg.Persistence.Timeout = Duration(5 * time.Second)
	}
	if cfg.Redis.AddrEnv == "" {
		cfg.Redis.AddrEnv = "REDIS_ADDR"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "papertrade.comparisons"
	}
}

// Validate rejects any configuration a session must not start with.
func (cfg SessionConfig) Validate() error {
	if len(cfg.Strategies) == 0 {
		return fmt.Errorf("config: at least one strategy is required")
	}
	for _, s := range cfg.Strategies {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if cfg.Session.TickInterval <= 0 {
		return fmt.Errorf("config: tick_interval must be positive")
	}
	if cfg.Session.CompareEveryTicks <= 0 {
		return fmt.Errorf("config: compare_every_ticks must be positive")
	}
	if cfg.Session.FXRate <= 0 {
		return fmt.Errorf("config: fx_rate must be positive")
	}
	if cfg.Feed.Mode != "file" && cfg.Feed.Mode != "ws" {
		return fmt.Errorf("config: feed mode %q not supported (file, ws)", cfg.Feed.Mode)
	}
	if cfg.Feed.Mode == "ws" && cfg.Feed.URL == "" {
		return fmt.Errorf("config: feed url required in ws mode")
	}
	return nil
}
