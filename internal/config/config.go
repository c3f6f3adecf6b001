// Package config loads the kiosk configuration from defaults, an
// optional config file and DASHWALL_* environment variables, in that
// precedence order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the kiosk process
type Config struct {
	// ListenAddr is the address of the local control API
	ListenAddr string `mapstructure:"listen_addr"`
	// BackendURL is the base URL of the dashboard backend REST API
	BackendURL string `mapstructure:"backend_url"`
	// WebsocketURL is the live update endpoint
	WebsocketURL string `mapstructure:"websocket_url"`
	// HeartbeatInterval is the websocket ping cadence
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// ReconnectDelay is the fixed wait between reconnect attempts
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	// DBPath is the SQLite file for settings and the session journal
	DBPath string `mapstructure:"db_path"`
	// LogLevel is debug, info, warn or error
	LogLevel string `mapstructure:"log_level"`
	// LogHTTP enables request logging on the control API
	LogHTTP bool `mapstructure:"log_http"`
	// CacheTTL is the freshness window of the widget definition cache
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// ReadOnly disables layout editing from the wall
	ReadOnly bool `mapstructure:"read_only"`
}

// Load reads the configuration. path may be empty, then only defaults
// and environment variables apply; a named file that cannot be read is
// an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("backend_url", "http://localhost:8080/api/v1")
	v.SetDefault("websocket_url", "ws://localhost:8080/ws")
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("reconnect_delay", 10*time.Second)
	v.SetDefault("db_path", "dashwall.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_http", false)
	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("read_only", false)

	v.SetEnvPrefix("DASHWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url must not be empty")
	}
	if c.WebsocketURL == "" {
		return fmt.Errorf("websocket_url must not be empty")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive")
	}
	return nil
}
