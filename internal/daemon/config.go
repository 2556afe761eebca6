// Package daemon holds the server configuration, loaded from a TOML
// file with sane defaults for every key.
package daemon

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Metrics MetricsConfig `toml:"metrics"`
	Auth    AuthConfig    `toml:"auth"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig configures the sqlite ledger store.
type StorageConfig struct {
	Path string `toml:"path"`
}

// MetricsConfig toggles the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// AuthConfig configures session handling.
type AuthConfig struct {
	SessionTTL string `toml:"session_ttl"`
}

// SessionTTL parses the configured session lifetime, defaulting to
// 30 days when unset or malformed.
func (a AuthConfig) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(a.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8437,
		},
		Storage: StorageConfig{
			Path: filepath.Join(home, ".homeledger", "ledger.db"),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			SessionTTL: "720h",
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
