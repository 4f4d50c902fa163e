// Package config loads tessera.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/tolerance"
)

type Config struct {
	Scheduler  cpm.Config       `mapstructure:"scheduler"`
	Baseline   BaselineConfig   `mapstructure:"baseline"`
	MonteCarlo MonteCarloConfig `mapstructure:"montecarlo"`
	Log        LogConfig        `mapstructure:"log"`
	Claude     ClaudeConfig     `mapstructure:"claude"`
}

type BaselineConfig struct {
	Dir string `mapstructure:"dir"`
}

type MonteCarloConfig struct {
	Samples    int     `mapstructure:"samples"`
	Confidence float64 `mapstructure:"confidence"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ClaudeConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// EnvPrefix prefixes environment overrides, e.g. TESSERA_SCHEDULER_BUFFER.
const EnvPrefix = "TESSERA"

// New returns a viper instance carrying the defaults and env bindings. The CLI
// binds its flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName("tessera")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := cpm.DefaultConfig()
	v.SetDefault("scheduler.hours_per_day", def.HoursPerDay)
	v.SetDefault("scheduler.buffer", def.Buffer)
	v.SetDefault("scheduler.date_mode", string(def.DateMode))
	v.SetDefault("baseline.dir", baseline.DefaultDir)
	v.SetDefault("montecarlo.samples", tolerance.DefaultSamples)
	v.SetDefault("montecarlo.confidence", tolerance.DefaultConfidence)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("claude.model", "")
	v.SetDefault("claude.api_key", "")
	return v
}

// Load reads the config file (path, or tessera.yaml on the search path) into
// v and decodes it. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	const op = "config.Load"
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errs.Wrap(errs.Configuration, op, fmt.Errorf("read config: %w", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.Configuration, op, fmt.Errorf("decode config: %w", err))
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, err
	}
	if cfg.MonteCarlo.Samples <= 0 || cfg.MonteCarlo.Samples > tolerance.MaxSamples {
		return nil, errs.New(errs.Configuration, op, "montecarlo.samples %d out of range", cfg.MonteCarlo.Samples)
	}
	if cfg.MonteCarlo.Confidence <= 0 || cfg.MonteCarlo.Confidence >= 1 {
		return nil, errs.New(errs.Configuration, op, "montecarlo.confidence %g must be in (0, 1)", cfg.MonteCarlo.Confidence)
	}
	return &cfg, nil
}

// SchedulerConfig returns the scheduler settings.
func (c *Config) SchedulerConfig() cpm.Config {
	return c.Scheduler
}
