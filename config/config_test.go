package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeYAML(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "SHADOW", cfg.Mode)
	assert.False(t, cfg.Live())
	assert.Equal(t, 0.07, cfg.Strategy.EdgeThreshold)
	assert.Equal(t, 0.25, cfg.Strategy.KellyFactor)
	assert.Equal(t, 2000.0, cfg.Strategy.MinMarketVolume)
	assert.Equal(t, 0.08, cfg.Strategy.MaxSpread)
	assert.Equal(t, 5.0, cfg.Strategy.MinTimeToStartMinutes)
	assert.Equal(t, 0.02, cfg.Strategy.SlippageTolerance)
	assert.Equal(t, 0.02, cfg.Risk.MaxPerBetPct)
	assert.Equal(t, 0.05, cfg.Risk.MaxPerGamePct)
	assert.Equal(t, 0.08, cfg.Risk.MaxPerTeamPct)
	assert.Equal(t, 0.10, cfg.Risk.MaxDailyRiskPct)
	assert.Equal(t, 60, cfg.Engine.PollIntervalSeconds)
	assert.Equal(t, "https://api.demo.kalshi.com/trade-api/v2", cfg.Kalshi.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeYAML(t, `
mode: shadow
strategy:
  edge_threshold: 0.05
  research_weights:
    HIGH: 0.9
risk:
  max_per_bet_pct: 0.01
engine:
  poll_interval_seconds: 15
`)
	t.Setenv("EDGE_THRESHOLD", "0.1")
	t.Setenv("MAX_DAILY_RISK_PCT", "0.2")
	t.Setenv("POLL_INTERVAL_SECONDS", "30")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SHADOW", cfg.Mode, "mode normalizado a mayúsculas")
	assert.Equal(t, 0.1, cfg.Strategy.EdgeThreshold, "env gana al YAML")
	assert.Equal(t, 0.01, cfg.Risk.MaxPerBetPct)
	assert.Equal(t, 0.2, cfg.Risk.MaxDailyRiskPct)
	assert.Equal(t, 30, cfg.Engine.PollIntervalSeconds)
	assert.Equal(t, 0.9, cfg.Strategy.ResearchWeights["HIGH"])
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	t.Setenv("KELLY_FACTOR", "quarter")
	_, err := Load(writeYAML(t, "{}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KELLY_FACTOR")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		setDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults ok", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Mode = "PAPER" }, "MODE"},
		{"live without credentials", func(c *Config) { c.Mode = "LIVE" }, "KALSHI_API_KEY"},
		{"live with credentials", func(c *Config) {
			c.Mode = "LIVE"
			c.Kalshi.APIKey = "k"
			c.Kalshi.APISecret = "s"
		}, ""},
		{"edge threshold 1", func(c *Config) { c.Strategy.EdgeThreshold = 1 }, "EDGE_THRESHOLD"},
		{"negative edge threshold", func(c *Config) { c.Strategy.EdgeThreshold = -0.1 }, "EDGE_THRESHOLD"},
		{"kelly above 1", func(c *Config) { c.Strategy.KellyFactor = 1.5 }, "KELLY_FACTOR"},
		{"kelly exactly 1", func(c *Config) { c.Strategy.KellyFactor = 1 }, ""},
		{"per bet negative", func(c *Config) { c.Risk.MaxPerBetPct = -0.02 }, "MAX_PER_BET_PCT"},
		{"daily above 1", func(c *Config) { c.Risk.MaxDailyRiskPct = 2 }, "MAX_DAILY_RISK_PCT"},
		{"unknown research weight", func(c *Config) {
			c.Strategy.ResearchWeights = map[string]float64{"SURE": 1}
		}, "research_weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
