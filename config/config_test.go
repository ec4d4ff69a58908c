package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrono/chrono-engine/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "Europe/Berlin", cfg.App.Timezone)
	assert.Equal(t, 2*time.Second, cfg.NFC.Interval)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLWithExpansionAndEnvOverride(t *testing.T) {
	// GIVEN: A YAML file referencing an environment variable
	t.Setenv("CHRONO_TEST_DB", "/tmp/chrono-test.db")
	t.Setenv("APP_PORT", "9090")
	path := writeFile(t, `
app:
  port: 8000
  timezone: UTC
  log_level: debug
database:
  path: ${CHRONO_TEST_DB}
nfc:
  reader_url: http://localhost:5000/uid
  interval: 500ms
`)

	// WHEN: Loading it
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: The placeholder is expanded and env wins over the file
	assert.Equal(t, "/tmp/chrono-test.db", cfg.Database.Path)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, 500*time.Millisecond, cfg.NFC.Interval)
	assert.Equal(t, 5*time.Second, cfg.NFC.Debounce)
}

func TestLoad_EnvSlices(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.App.CORSOrigins)
}

func TestLoad_RejectsUnparsableEnv(t *testing.T) {
	cases := map[string]map[string]string{
		"port":     {"APP_PORT": "seventy"},
		"duration": {"NFC_DEBOUNCE": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"range":     {"APP_PORT": "70000"},
		"timezone":  {"TIMEZONE": "Mars/Olympus"},
		"log level": {"LOG_LEVEL": "loud"},
		"interval":  {"NFC_READER_URL": "http://x", "NFC_INTERVAL": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			cfg, err := config.Load("")
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AfterFlagOverrides(t *testing.T) {
	// GIVEN: an out-of-range port in the environment
	t.Setenv("APP_PORT", "70000")
	cfg, err := config.Load("")
	require.NoError(t, err)

	// WHEN: command-line values replace them
	cfg.App.Port = 3000
	cfg.Database.Path = ":memory:"

	// THEN: the final configuration is valid
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
