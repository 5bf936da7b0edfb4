package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig contains all configuration for the HTTP server.
type ServerConfig struct {
	REST    RESTConfig    `mapstructure:"rest"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RESTConfig contains REST API server configuration.
type RESTConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes limits the size of a run submission.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	// InputRoot is the only directory submitted input patterns may read from. Empty disables
	// file inputs.
	InputRoot string `mapstructure:"input_root"`
}

// LoadServer loads the server configuration from the given path.
// If configPath is empty, it looks for server.yaml in the config/ directory.
// Environment variables with MEMR_SERVER_ prefix override config file values.
func LoadServer(configPath string) (*ServerConfig, error) {
	v := viper.New()

	v.SetDefault("rest.addr", ":8080")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 60*time.Second)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("rest.shutdown_timeout", 30*time.Second)
	v.SetDefault("rest.max_body_bytes", 8<<20)
	v.SetDefault("rest.input_root", "")
	v.SetDefault("engine.mode", "parallel")
	v.SetDefault("engine.workers", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg ServerConfig
	if err := load(v, configPath, "server", "MEMR_SERVER", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
