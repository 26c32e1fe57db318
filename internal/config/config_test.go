package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENWEATHER_API_KEY", "abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openweathermap", cfg.Provider)
	assert.Equal(t, "abc", cfg.APIKey())
	assert.Equal(t, 5*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "xlsx", cfg.HistoryBackend)
	assert.Equal(t, "weather_history.xlsx", cfg.HistoryFile)
	assert.Equal(t, "temperature_graph.png", cfg.ChartFile)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WEATHER_PROVIDER", "weatherapi")
	t.Setenv("WEATHERAPI_API_KEY", "wk")
	t.Setenv("FETCH_INTERVAL", "90s")
	t.Setenv("FETCH_RATE_LIMIT", "0.5")
	t.Setenv("HISTORY_BACKEND", "memory")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wk", cfg.APIKey())
	assert.Equal(t, 90*time.Second, cfg.FetchInterval)
	assert.Equal(t, 0.5, cfg.RateLimit)
	assert.Equal(t, "memory", cfg.HistoryBackend)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openweathermap
openweather_api_key: from-file
fetch_interval: 2m
http_timeout: 3s
history_file: data/history.xlsx
chart_width: 800
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HISTORY_FILE", "override.xlsx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.OpenWeatherAPIKey)
	assert.Equal(t, 2*time.Minute, cfg.FetchInterval)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 800, cfg.ChartWidth)
	assert.Equal(t, 600, cfg.ChartHeight)
	assert.Equal(t, "override.xlsx", cfg.HistoryFile)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad interval":  {"FETCH_INTERVAL": "soon"},
		"zero interval": {"FETCH_INTERVAL": "0s"},
		"bad provider":  {"WEATHER_PROVIDER": "accuweather"},
		"bad backend":   {"HISTORY_BACKEND": "postgres"},
		"bad rate":      {"FETCH_RATE_LIMIT": "fast"},
		"bad port":      {"PORT": "http"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
