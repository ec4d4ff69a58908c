package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/nfc"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	NFC      NFCConfig      `yaml:"nfc"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int      `yaml:"port"`
	Env         string   `yaml:"env"`
	LogLevel    string   `yaml:"log_level"`
	Timezone    string   `yaml:"timezone"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig points at an optional feature catalog YAML; empty means the
// built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// NFCConfig enables the card poller when ReaderURL is set.
type NFCConfig struct {
	ReaderURL string        `yaml:"reader_url"`
	Interval  time.Duration `yaml:"interval"`
	Debounce  time.Duration `yaml:"debounce"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:        8080,
			Env:         "development",
			LogLevel:    "info",
			Timezone:    generic.DefaultLocationName,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{Path: "./data/chrono.db"},
		NFC: NFCConfig{
			Interval: nfc.DefaultInterval,
			Debounce: nfc.DefaultWindow,
		},
	}
}

// Load builds the configuration in layers: defaults, the YAML file at path
// (skipped when path is empty), a .env file in the working directory, then
// environment variables. Callers apply their own overrides and then call
// Validate.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), config); err != nil {
			return nil, fmt.Errorf("error parsing config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// expandEnv replaces ${VAR} placeholders with their environment values.
// Unset variables are left as written.
func expandEnv(content string) string {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		content = strings.ReplaceAll(content, "${"+pair[0]+"}", pair[1])
	}
	return content
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT: %w", err)
		}
		c.App.Port = port
	}
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.Timezone = getEnv("TIMEZONE", c.App.Timezone)
	if origins := getEnvSlice("CORS_ORIGINS"); len(origins) > 0 {
		c.App.CORSOrigins = origins
	}

	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Catalog.Path = getEnv("CATALOG_PATH", c.Catalog.Path)
	c.NFC.ReaderURL = getEnv("NFC_READER_URL", c.NFC.ReaderURL)

	for name, dst := range map[string]*time.Duration{
		"NFC_INTERVAL": &c.NFC.Interval,
		"NFC_DEBOUNCE": &c.NFC.Debounce,
	} {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.App.Timezone, err)
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.App.LogLevel)
	}
	if c.NFC.ReaderURL != "" {
		if c.NFC.Interval <= 0 {
			return fmt.Errorf("NFC_INTERVAL must be positive")
		}
		if c.NFC.Debounce < 0 {
			return fmt.Errorf("NFC_DEBOUNCE must not be negative")
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.App.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
