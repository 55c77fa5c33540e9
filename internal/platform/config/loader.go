package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = ".config.yaml"

// Loader reads the server configuration from an optional YAML file layered
// over the built-in defaults.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader that reads from the default config path.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      defaultConfigPath,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load merges the YAML file (when present) over the defaults and validates
// the outcome. A missing config file is not an error.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env file just means the process environment is used as-is.
		_ = godotenv.Load()
	}

	path := l.path
	if env := os.Getenv("SNAPQUIZ_CONFIG"); env != "" {
		path = env
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Capture.DefaultIntervalSeconds <= 0 {
		return fmt.Errorf("capture interval must be positive, got %d", cfg.Capture.DefaultIntervalSeconds)
	}
	if cfg.Capture.FrameMaxBytes <= 0 {
		return fmt.Errorf("frame size cap must be positive, got %d", cfg.Capture.FrameMaxBytes)
	}
	switch cfg.History.Type {
	case "", "memory", "redis", "database":
	default:
		return fmt.Errorf("unsupported history store type: %s", cfg.History.Type)
	}
	if cfg.History.Type == "redis" && cfg.History.Redis.Addr == "" {
		return fmt.Errorf("redis history store requires an address")
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret == "" {
		return fmt.Errorf("auth enabled but no secret configured")
	}
	return nil
}
