package config

import (
	"github.com/spf13/viper"
)

// LocalConfig contains all configuration for a single local job run.
type LocalConfig struct {
	Job     JobConfig     `mapstructure:"job"`
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// JobConfig names the registered job and its parameters.
type JobConfig struct {
	Name   string            `mapstructure:"name"`
	Params map[string]string `mapstructure:"params"`
}

// InputConfig lists glob patterns of input files.
type InputConfig struct {
	Paths []string `mapstructure:"paths"`
}

// OutputConfig selects where and how results are written.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// LoadLocal loads the local run configuration from the given path.
// If configPath is empty, it looks for local.yaml in the config/ directory.
// Environment variables with MEMR_LOCAL_ prefix override config file values.
func LoadLocal(configPath string) (*LocalConfig, error) {
	v := viper.New()

	v.SetDefault("job.name", "")
	v.SetDefault("output.path", "")
	v.SetDefault("output.format", "tsv")
	v.SetDefault("engine.mode", "parallel")
	v.SetDefault("engine.workers", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	var cfg LocalConfig
	if err := load(v, configPath, "local", "MEMR_LOCAL", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
