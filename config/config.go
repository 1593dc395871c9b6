package config

import (
	"runtime"

	"github.com/kbukum/traverse/logger"
	"github.com/kbukum/traverse/observability"
	"github.com/kbukum/traverse/version"
)

// Config is the engine configuration.
type Config struct {
	Name        string           `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string           `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string           `yaml:"version" mapstructure:"version"`
	Debug       bool             `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config    `yaml:"logging" mapstructure:"logging"`
	Strategies  StrategiesConfig `yaml:"strategies" mapstructure:"strategies"`
	Shards      ShardsConfig     `yaml:"shards" mapstructure:"shards"`
	Tracing     TracingConfig    `yaml:"tracing" mapstructure:"tracing"`
}

// StrategiesConfig selects the strategy set new traversals use.
type StrategiesConfig struct {
	// Profile names a strategy profile. Empty selects the standard set.
	Profile string `yaml:"profile" mapstructure:"profile"`
	// Dirs are searched for profile files.
	Dirs []string `yaml:"dirs" mapstructure:"dirs" validate:"required_with=Profile"`
	// Disable removes strategies by name after the profile resolves.
	Disable []string `yaml:"disable" mapstructure:"disable" validate:"dive,required"`
}

// ShardsConfig bounds shard merging.
type ShardsConfig struct {
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=0"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	if c.Shards.MaxParallel == 0 {
		c.Shards.MaxParallel = runtime.GOMAXPROCS(0)
	}
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1
	}
}

// Validate checks struct constraints, then the logging section.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// TracerConfig converts the tracing section for observability.InitTracer.
func (c *Config) TracerConfig() observability.TracerConfig {
	tc := observability.DefaultTracerConfig(c.Name)
	if c.Version != "" {
		tc.ServiceVersion = c.Version
	}
	tc.Environment = c.Environment
	if c.Tracing.Endpoint != "" {
		tc.Endpoint = c.Tracing.Endpoint
	}
	tc.Insecure = c.Tracing.Insecure
	tc.SampleRate = c.Tracing.SampleRate
	return tc
}

// Load reads, defaults and validates the configuration of serviceName.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	var cfg Config
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
