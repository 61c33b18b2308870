package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func TestBlendWeights_OverridesDefaults(t *testing.T) {
	w := blendWeights(map[string]float64{"HIGH": 0.9})
	assert.Equal(t, 0.9, w[domain.ConfidenceHigh])
	assert.Equal(t, 0.70, w[domain.ConfidenceMedium])
	assert.Equal(t, 0.50, w[domain.ConfidenceLow])
}

func TestConfidenceMap(t *testing.T) {
	assert.Nil(t, confidenceMap(nil))
	m := confidenceMap(map[string]float64{"LOW": 0.5})
	assert.Equal(t, 0.5, m[domain.ConfidenceLow])
}

func TestBuild_ShadowAndLive(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	cfg, err := config.Load(writeConfig(t))
	require.NoError(t, err)

	a, err := build(cfg, store, notify.NewConsole(false))
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.engine)

	// LIVE con una clave inválida falla al construir el signer
	cfg.Mode = "LIVE"
	cfg.Kalshi.APIKey = "k"
	cfg.Kalshi.APISecret = "not a pem"
	_, err = build(cfg, store, notify.NewConsole(false))
	assert.Error(t, err)
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: SHADOW\nfeed:\n  path: "+filepath.Join(t.TempDir(), "snap.yaml")+"\n"), 0o600))
	return path
}
