package config

import (
	stderrors "errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/jsbridge/errors"
)

// EnvPrefix is prepended to environment overrides, e.g.
// JSBRIDGE_HANDLES_INITIAL_CAPACITY.
const EnvPrefix = "JSBRIDGE"

// Config is the full module configuration.
type Config struct {
	Log     Log     `yaml:"log" mapstructure:"log"`
	Metrics Metrics `yaml:"metrics" mapstructure:"metrics"`
	Handles Handles `yaml:"handles" mapstructure:"handles"`
}

// Handles tunes the handle registry and drain scheduler.
type Handles struct {
	// InitialCapacity is the number of slots preallocated per engine.
	InitialCapacity int `yaml:"initial_capacity" mapstructure:"initial_capacity"`
	// AcquireDrainSteps is drained before every wrap.
	AcquireDrainSteps int `yaml:"acquire_drain_steps" mapstructure:"acquire_drain_steps"`
	// GrowDrainSteps is drained after a wrap that had to allocate a new slot.
	GrowDrainSteps int `yaml:"grow_drain_steps" mapstructure:"grow_drain_steps"`
	// IdleDrainSteps is drained by an idle notification.
	IdleDrainSteps int `yaml:"idle_drain_steps" mapstructure:"idle_drain_steps"`
	// ForceDrainSteps is drained by a forced collection.
	ForceDrainSteps int `yaml:"force_drain_steps" mapstructure:"force_drain_steps"`
	// CollectOnExhaustion runs a bounded collection pass when a wrap finds
	// the free list empty.
	CollectOnExhaustion bool `yaml:"collect_on_exhaustion" mapstructure:"collect_on_exhaustion"`
	// ExhaustionBudget caps the weak refs visited by that pass.
	ExhaustionBudget int `yaml:"exhaustion_budget" mapstructure:"exhaustion_budget"`
}

// Log selects the zap logger.
type Log struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// Metrics configures prometheus export.
type Metrics struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	Subsystem string `yaml:"subsystem" mapstructure:"subsystem"`
	Address   string `yaml:"address" mapstructure:"address"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Handles: Handles{
			InitialCapacity:   16,
			AcquireDrainSteps: 2,
			GrowDrainSteps:    10,
			IdleDrainSteps:    1000,
			ForceDrainSteps:   1000,
			ExhaustionBudget:  64,
		},
		Log: Log{
			Level: "info",
		},
		Metrics: Metrics{
			Namespace: "jsbridge",
			Subsystem: "handles",
			Address:   ":9464",
		},
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	h := c.Handles
	switch {
	case h.InitialCapacity <= 0:
		return errors.InvalidConfig("handles.initial_capacity", h.InitialCapacity, "must be positive")
	case h.AcquireDrainSteps < 0:
		return errors.InvalidConfig("handles.acquire_drain_steps", h.AcquireDrainSteps, "must not be negative")
	case h.GrowDrainSteps < 0:
		return errors.InvalidConfig("handles.grow_drain_steps", h.GrowDrainSteps, "must not be negative")
	case h.IdleDrainSteps < 0:
		return errors.InvalidConfig("handles.idle_drain_steps", h.IdleDrainSteps, "must not be negative")
	case h.ForceDrainSteps < 0:
		return errors.InvalidConfig("handles.force_drain_steps", h.ForceDrainSteps, "must not be negative")
	case h.CollectOnExhaustion && h.ExhaustionBudget <= 0:
		return errors.InvalidConfig("handles.exhaustion_budget", h.ExhaustionBudget, "must be positive when collect_on_exhaustion is set")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Value(c.Log.Level).
			Cause(err).
			Detail("log.level").
			Build()
	}
	return nil
}

// Load reads path (YAML) over the defaults, then applies JSBRIDGE_*
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist) {
				return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, path)
			}
			return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "read "+path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("handles.initial_capacity", d.Handles.InitialCapacity)
	v.SetDefault("handles.acquire_drain_steps", d.Handles.AcquireDrainSteps)
	v.SetDefault("handles.grow_drain_steps", d.Handles.GrowDrainSteps)
	v.SetDefault("handles.idle_drain_steps", d.Handles.IdleDrainSteps)
	v.SetDefault("handles.force_drain_steps", d.Handles.ForceDrainSteps)
	v.SetDefault("handles.collect_on_exhaustion", d.Handles.CollectOnExhaustion)
	v.SetDefault("handles.exhaustion_budget", d.Handles.ExhaustionBudget)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)
	v.SetDefault("metrics.address", d.Metrics.Address)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "encode")
	}
	return out, nil
}

// NewLogger builds a zap logger from the log section.
func (l Log) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "log.level")
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
