package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.VariationWindow)
	assert.Equal(t, 5.0, cfg.VariationThreshold)
	assert.Equal(t, 10, cfg.DashboardTopN)
	assert.Equal(t, 0.8, cfg.MarginCriticalFactor)
	assert.Equal(t, 0.75, cfg.DefaultTargetMargin)
	assert.Equal(t, 21.0, cfg.DefaultTaxPct)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("VARIATION_THRESHOLD_PCT", "7.5")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 7.5, cfg.VariationThreshold)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", secret)

	path := filepath.Join(t.TempDir(), "tero.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: \"9090\"\nDASHBOARD_TOP_N: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 5, cfg.DashboardTopN)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "target margin of one", env: map[string]string{"JWT_SECRET": secret, "DEFAULT_TARGET_MARGIN": "1"}},
		{name: "zero window", env: map[string]string{"JWT_SECRET": secret, "VARIATION_WINDOW_DAYS": "0"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "production")
			for k, v := range testCase.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
