// Package config loads and validates player configuration from YAML files
// and the environment.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
)

// Config is the complete player configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" validate:"required"`

	// Advisor configuration
	Advisor AdvisorConfig `yaml:"advisor,omitempty" validate:"omitempty"`

	// Strategy cache configuration
	Cache CacheConfig `yaml:"cache,omitempty" validate:"omitempty"`

	// Review scheduling configuration
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty" validate:"omitempty"`

	// Batch run configuration
	Runner RunnerConfig `yaml:"runner,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// ServerConfig points at the game server.
type ServerConfig struct {
	// Base URL of the game server
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Player identifier sent with every new game
	PlayerID string `yaml:"player_id,omitempty"`

	// Per-request timeout
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Venue capacity per game
	Capacity int `yaml:"capacity,omitempty" validate:"omitempty,gt=0"`
}

// AdvisorConfig selects and tunes the strategy advisor.
type AdvisorConfig struct {
	// Advisor mode (heuristic or anthropic)
	Mode string `yaml:"mode,omitempty" validate:"omitempty,oneof=heuristic anthropic"`

	// Model ID for the anthropic mode
	Model string `yaml:"model,omitempty"`

	// API key; the ANTHROPIC_API_KEY environment variable takes precedence
	APIKey string `yaml:"api_key,omitempty"`

	// Per-consultation timeout
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CacheConfig tunes the strategy cache.
type CacheConfig struct {
	// Cache backend (memory or sqlite)
	Type string `yaml:"type,omitempty" validate:"omitempty,oneof=memory sqlite"`

	// Maximum number of cached strategies
	MaxEntries int `yaml:"max_entries,omitempty" validate:"omitempty,gt=0"`

	// Entry lifetime
	TTL time.Duration `yaml:"ttl,omitempty"`

	// Minimum similarity score for a near-match hit
	SimilarityThreshold float64 `yaml:"similarity_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`

	// Database path for the sqlite backend
	Path string `yaml:"path,omitempty"`
}

// SchedulerConfig tunes strategy review timing.
type SchedulerConfig struct {
	// Periodic review cadence in arrivals
	Interval int `yaml:"interval,omitempty" validate:"omitempty,gt=0"`

	// Arrival index past which the zero-acceptance emergency may fire
	EmergencyAfter int `yaml:"emergency_after,omitempty" validate:"omitempty,gt=0"`

	// Recent decisions inspected for the zero-acceptance condition
	EmergencyWindow int `yaml:"emergency_window,omitempty" validate:"omitempty,gt=0"`
}

// RunnerConfig tunes batch runs.
type RunnerConfig struct {
	// Keep playing remaining scenarios after a loss
	ContinueOnFailure bool `yaml:"continue_on_failure,omitempty"`

	// Scenarios played at once
	Concurrency int `yaml:"concurrency,omitempty" validate:"omitempty,gte=1"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	// Minimum severity (debug, info, warn, error)
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

var validate = validator.New()

// Validate checks the configuration against its schema.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}
