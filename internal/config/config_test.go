package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_EnvOverrides(t *testing.T) {
	t.Setenv("JOYFUL_API_URL", "")
	t.Setenv("BACKEND_API_URL", "http://backend:81/api")
	t.Setenv("JOYFUL_REQUEST_TIMEOUT", "45s")
	t.Setenv("JOYFUL_LOG_CONSOLE", "true")

	cfg := DefaultConfig()
	assert.Equal(t, "http://backend:81/api", cfg.APIBaseURL)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.LogConsole)

	t.Setenv("JOYFUL_API_URL", "http://primary/api")
	assert.Equal(t, "http://primary/api", DefaultConfig().APIBaseURL)
}

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("JOYFUL_API_URL", "")
	t.Setenv("BACKEND_API_URL", "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestSaveAndLoadFrom_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.SetAPIBaseURL("https://joyful.example.com/api/"))
	cfg.LogLevel = "DEBUG"
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://joyful.example.com/api", loaded.APIBaseURL)
	assert.Equal(t, "DEBUG", loaded.LogLevel)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: [unterminated"), 0644))

	_, err := LoadFrom(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestSetAPIBaseURL_RejectsBareHost(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.SetAPIBaseURL("localhost:81"))
}
