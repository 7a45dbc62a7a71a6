// Package config provides a Viper-backed implementation of the plugin.Config
// interface, plus the application config loader and logger factory.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Serrowxd/fluxor-sub001/pkg/plugin"
	"github.com/spf13/viper"
)

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig wraps a Viper instance to implement plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
// Returns the concrete type; callers assign to plugin.Config where needed.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

func (c *ViperConfig) Get(key string) any {
	return c.v.Get(key)
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *ViperConfig) Sub(key string) plugin.Config {
	sub := c.v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	return &ViperConfig{v: sub}
}

// Load reads the application configuration. When configPath is empty it
// searches the working directory and /etc/fluxor for fluxor.yaml. Environment
// variables override file values using the FLUXOR_ prefix (dots become
// underscores, e.g. FLUXOR_LOGGING_LEVEL).
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/fluxor.db")

	// Plugin defaults
	v.SetDefault("plugins.ingest.enabled", true)
	v.SetDefault("plugins.forecast.enabled", true)
	v.SetDefault("plugins.forecast.cache_ttl", "24h")
	v.SetDefault("plugins.forecast.min_history_days", 30)
	v.SetDefault("plugins.detect.enabled", true)
	v.SetDefault("plugins.detect.sweep_interval", "1h")
	v.SetDefault("plugins.detect.lookback_days", 30)

	v.SetEnvPrefix("FLUXOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configPath, err)
		}
		return v, nil
	}

	v.SetConfigName("fluxor")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/fluxor")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}
	return v, nil
}
