package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxSyncWorkers caps concurrent checkouts; sync.workers may only lower it.
const MaxSyncWorkers = 8

// EnvConfigPath names the environment variable holding an optional config file path.
const EnvConfigPath = "TIZENCI_CONFIG"

// Config holds all tizenci configuration.
type Config struct {
	Tools   ToolsConfig   `yaml:"tools"`
	Symbols SymbolsConfig `yaml:"symbols"`
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
}

// ToolsConfig locates the external executables.
type ToolsConfig struct {
	NM  string `yaml:"nm"`
	Git string `yaml:"git"`

	// MaxOutputBytes caps captured stdout/stderr per process.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// SymbolsConfig configures the symbol export guard.
type SymbolsConfig struct {
	// ReservedPrefix marks the stable public API; such names always pass.
	ReservedPrefix string `yaml:"reserved_prefix"`
}

// SyncConfig configures the shallow dependency synchronizer.
type SyncConfig struct {
	Workers int    `yaml:"workers"` // 1 to MaxSyncWorkers
	Root    string `yaml:"root"`    // checkout destinations are <root>/<dependency name>

	// CheckoutTimeout bounds each git process. Empty or "0" means no timeout.
	CheckoutTimeout string `yaml:"checkout_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Tools: ToolsConfig{
			NM:             "nm",
			Git:            "git",
			MaxOutputBytes: 64 << 20,
		},
		Symbols: SymbolsConfig{
			ReservedPrefix: "FlutterEngine",
		},
		Sync: SyncConfig{
			Workers: MaxSyncWorkers,
			Root:    ".",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. An empty path or a missing
// file yields the defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by TIZENCI_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TIZENCI_NM"); v != "" {
		c.Tools.NM = v
	}
	if v := os.Getenv("TIZENCI_GIT"); v != "" {
		c.Tools.Git = v
	}
	if v := os.Getenv("TIZENCI_SYNC_ROOT"); v != "" {
		c.Sync.Root = v
	}
	if v := os.Getenv("TIZENCI_SYNC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.Workers = n
		}
	}
	if v := os.Getenv("TIZENCI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetCheckoutTimeout returns the per-process checkout timeout; zero means none.
func (c *Config) GetCheckoutTimeout() time.Duration {
	if c.Sync.CheckoutTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Sync.CheckoutTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Tools.NM == "" {
		return fmt.Errorf("tools.nm must not be empty")
	}
	if c.Tools.Git == "" {
		return fmt.Errorf("tools.git must not be empty")
	}
	if c.Sync.Workers < 1 || c.Sync.Workers > MaxSyncWorkers {
		return fmt.Errorf("sync.workers must be between 1 and %d, got %d", MaxSyncWorkers, c.Sync.Workers)
	}
	if c.Sync.CheckoutTimeout != "" {
		if _, err := time.ParseDuration(c.Sync.CheckoutTimeout); err != nil {
			return fmt.Errorf("invalid sync.checkout_timeout: %w", err)
		}
	}
	return nil
}
