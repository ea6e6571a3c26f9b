package config

import (
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
)

// Default returns a configuration that plays against the public challenge
// server with the local heuristic advisor and an in-memory cache.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:  "https://berghain.challenges.listenlabs.ai",
			PlayerID: uuid.NewString(),
			Timeout:  30 * time.Second,
			Capacity: 1000,
		},
		Advisor: AdvisorConfig{
			Mode:    "heuristic",
			Timeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Type:                "memory",
			MaxEntries:          1000,
			TTL:                 30 * time.Minute,
			SimilarityThreshold: 0.85,
		},
		Scheduler: SchedulerConfig{
			Interval:        100,
			EmergencyAfter:  450,
			EmergencyWindow: 25,
		},
		Runner: RunnerConfig{
			Concurrency: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides,
// and validates the result. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse config file")
		}
	}

	applyEnv(cfg)

	if cfg.Server.PlayerID == "" {
		cfg.Server.PlayerID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over file values. The environment
// wins so deployments can keep secrets out of config files.
func applyEnv(cfg *Config) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Advisor.APIKey = key
	}
	if url := os.Getenv("BOUNCER_SERVER_URL"); url != "" {
		cfg.Server.BaseURL = url
	}
	if id := os.Getenv("BOUNCER_PLAYER_ID"); id != "" {
		cfg.Server.PlayerID = id
	}
}
