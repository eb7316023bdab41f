// Package config loads and validates the bot's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"portfolio-trader-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string          `yaml:"env"`
	Session     SessionConfig   `yaml:"session"`
	Strategy    StrategyConfig  `yaml:"strategy"`
	Replenish   ReplenishConfig `yaml:"replenish"`
	Venue       VenueConfig     `yaml:"venue"`
	Logger      logger.Config   `yaml:"logger"`
	MetricsAddr string          `yaml:"metricsAddr"`
}

// SessionConfig describes the trading session timing.
type SessionConfig struct {
	// Minutes is the total session duration.
	Minutes float64 `yaml:"minutes"`
	// PhaseFraction splits the session between the market-making phase
	// and the reactive phase.
	PhaseFraction float64 `yaml:"phaseFraction"`
	// WarmupSeconds suppresses both strategies right after session open.
	WarmupSeconds float64 `yaml:"warmupSeconds"`
}

// StrategyConfig holds the tunable strategy parameters. These may be hot
// reloaded (see Watcher).
type StrategyConfig struct {
	// RiskPenalty weighs payoff variance against expected payoff.
	RiskPenalty float64 `yaml:"riskPenalty"`
	// MaxMarginCents is the quoting margin at session open.
	MaxMarginCents float64 `yaml:"maxMarginCents"`
	// StaleDepth is the queue depth (units ahead) beyond which a resting
	// reactive order is considered stale and cancelled.
	StaleDepth int64 `yaml:"staleDepth"`

	MMIntervalSeconds       int `yaml:"mmIntervalSeconds"`
	ReactiveIntervalSeconds int `yaml:"reactiveIntervalSeconds"`
	WatchdogIntervalSeconds int `yaml:"watchdogIntervalSeconds"`
	// SubmitPaceMs is the fixed delay between successive submissions.
	SubmitPaceMs int `yaml:"submitPaceMs"`
}

// ReplenishConfig drives the cash replenishment rule: when cash drops
// under the floor, sell a block of the cash-proxy security (the one with
// the highest identifier), accepting the performance haircut.
type ReplenishConfig struct {
	Enabled        bool  `yaml:"enabled"`
	CashFloorCents int64 `yaml:"cashFloorCents"`
	MinUnitsHeld   int64 `yaml:"minUnitsHeld"`
	PriceCents     int64 `yaml:"priceCents"`
	Units          int64 `yaml:"units"`
}

type VenueConfig struct {
	URL string `yaml:"url"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment-specific
// fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("BOT_VENUE_URL"); v != "" {
		cfg.Venue.URL = v
	}
	if v := os.Getenv("BOT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Session.PhaseFraction == 0 {
		cfg.Session.PhaseFraction = 0.2
	}
	if cfg.Session.WarmupSeconds == 0 {
		cfg.Session.WarmupSeconds = 4
	}
	if cfg.Strategy.RiskPenalty == 0 {
		cfg.Strategy.RiskPenalty = 0.0175
	}
	if cfg.Strategy.MaxMarginCents == 0 {
		cfg.Strategy.MaxMarginCents = 50
	}
	if cfg.Strategy.StaleDepth == 0 {
		cfg.Strategy.StaleDepth = 2
	}
	if cfg.Strategy.MMIntervalSeconds == 0 {
		cfg.Strategy.MMIntervalSeconds = 7
	}
	if cfg.Strategy.ReactiveIntervalSeconds == 0 {
		cfg.Strategy.ReactiveIntervalSeconds = 5
	}
	if cfg.Strategy.WatchdogIntervalSeconds == 0 {
		cfg.Strategy.WatchdogIntervalSeconds = 30
	}
	if cfg.Strategy.SubmitPaceMs == 0 {
		cfg.Strategy.SubmitPaceMs = 300
	}
}

// Validate ensures required fields are present and sane.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Session.Minutes <= 0 {
		return errors.New("session.minutes must be > 0")
	}
	if cfg.Session.PhaseFraction <= 0 || cfg.Session.PhaseFraction >= 1 {
		return errors.New("session.phaseFraction must be in (0, 1)")
	}
	if cfg.Session.WarmupSeconds < 0 {
		return errors.New("session.warmupSeconds must be >= 0")
	}
	if cfg.Strategy.RiskPenalty < 0 {
		return errors.New("strategy.riskPenalty must be >= 0")
	}
	if cfg.Strategy.MaxMarginCents <= 0 {
		return errors.New("strategy.maxMarginCents must be > 0")
	}
	if cfg.Strategy.StaleDepth < 0 {
		return errors.New("strategy.staleDepth must be >= 0")
	}
	if cfg.Strategy.MMIntervalSeconds <= 0 ||
		cfg.Strategy.ReactiveIntervalSeconds <= 0 ||
		cfg.Strategy.WatchdogIntervalSeconds <= 0 {
		return errors.New("strategy intervals must be > 0")
	}
	if cfg.Strategy.SubmitPaceMs < 0 {
		return errors.New("strategy.submitPaceMs must be >= 0")
	}
	if cfg.Replenish.Enabled {
		if cfg.Replenish.CashFloorCents <= 0 {
			return errors.New("replenish.cashFloorCents must be > 0 when enabled")
		}
		if cfg.Replenish.PriceCents <= 0 || cfg.Replenish.Units <= 0 {
			return errors.New("replenish.priceCents and replenish.units must be > 0 when enabled")
		}
	}
	return nil
}
