package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "heuristic", cfg.Advisor.Mode)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 0.85, cfg.Cache.SimilarityThreshold)
	assert.Equal(t, 100, cfg.Scheduler.Interval)
	assert.NotEmpty(t, cfg.Server.PlayerID)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("BOUNCER_SERVER_URL", "")
	t.Setenv("BOUNCER_PLAYER_ID", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://berghain.challenges.listenlabs.ai", cfg.Server.BaseURL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("BOUNCER_SERVER_URL", "")
	t.Setenv("BOUNCER_PLAYER_ID", "")

	path := writeConfig(t, `
server:
  base_url: "http://localhost:8080"
  player_id: "test-player"
advisor:
  mode: anthropic
  model: some-model
cache:
  type: sqlite
  path: /tmp/strategies.db
  max_entries: 50
runner:
  continue_on_failure: true
  concurrency: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, "test-player", cfg.Server.PlayerID)
	assert.Equal(t, "anthropic", cfg.Advisor.Mode)
	assert.Equal(t, "sqlite", cfg.Cache.Type)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Runner.ContinueOnFailure)
	assert.Equal(t, 2, cfg.Runner.Concurrency)

	// Unset fields keep their defaults.
	assert.Equal(t, 100, cfg.Scheduler.Interval)
	assert.Equal(t, 0.85, cfg.Cache.SimilarityThreshold)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("BOUNCER_SERVER_URL", "http://env-server:9090")
	t.Setenv("BOUNCER_PLAYER_ID", "")

	path := writeConfig(t, `
server:
  base_url: "http://file-server:8080"
advisor:
  api_key: file-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Advisor.APIKey)
	assert.Equal(t, "http://env-server:9090", cfg.Server.BaseURL)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("BOUNCER_SERVER_URL", "")

	tests := []struct {
		name    string
		content string
	}{
		{"Bad advisor mode", "server:\n  base_url: http://x\nadvisor:\n  mode: psychic\n"},
		{"Bad cache type", "server:\n  base_url: http://x\ncache:\n  type: redis\n"},
		{"Similarity above one", "server:\n  base_url: http://x\ncache:\n  similarity_threshold: 1.5\n"},
		{"Missing base url", "server:\n  base_url: \"\"\n"},
		{"Bad log level", "server:\n  base_url: http://x\nlogging:\n  level: verbose\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_GeneratesPlayerIDWhenBlank(t *testing.T) {
	t.Setenv("BOUNCER_SERVER_URL", "")
	t.Setenv("BOUNCER_PLAYER_ID", "")

	path := writeConfig(t, "server:\n  base_url: http://x\n  player_id: \"\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Server.PlayerID)
}
