// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Corrupt CorruptConfig `yaml:"corrupt" mapstructure:"corrupt"`
	Clean   CleanConfig   `yaml:"clean" mapstructure:"clean"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ModelConfig configures the cleaning model boundary.
type ModelConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "openai" or "anthropic"
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Name        string  `yaml:"name" mapstructure:"name"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// CorruptConfig configures error injection.
type CorruptConfig struct {
	Rate     float64 `yaml:"rate" mapstructure:"rate"`
	MaxEmpty float64 `yaml:"max_empty" mapstructure:"max_empty"`
	Seed     int64   `yaml:"seed" mapstructure:"seed"`
}

// CleanConfig configures the repair pipeline.
type CleanConfig struct {
	Variant         string `yaml:"variant" mapstructure:"variant"`
	Limit           int    `yaml:"limit" mapstructure:"limit"`
	CheckpointEvery int    `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	CheckpointDir   string `yaml:"checkpoint_dir" mapstructure:"checkpoint_dir"`
}

// StoreConfig configures the run results store.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "none"
	Path   string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RIDEWASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("model.provider", "openai")
	v.SetDefault("model.base_url", "http://localhost:11434/v1")
	v.SetDefault("model.name", "phi3:mini")
	v.SetDefault("model.temperature", 0.1)
	v.SetDefault("model.max_tokens", 2048)
	v.SetDefault("model.retries", 0)
	v.SetDefault("model.rate_per_sec", 2.0)
	v.SetDefault("corrupt.rate", 0.15)
	v.SetDefault("corrupt.max_empty", 0.03)
	v.SetDefault("corrupt.seed", 0)
	v.SetDefault("clean.variant", "rules")
	v.SetDefault("clean.checkpoint_every", 50)
	v.SetDefault("clean.checkpoint_dir", ".")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.path", "ridewash.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
