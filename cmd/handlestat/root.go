package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/persistent"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "handlestat",
		Short:         "Exercise and inspect the script handle registry",
		Long:          `handlestat runs a synthetic host workload against one or more script engines and reports slot, queue and collection statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML); JSBRIDGE_* environment variables override it")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

// load resolves the effective configuration.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// setup loads the config and installs the package loggers.
func (o *rootOptions) setup() (config.Config, *zap.Logger, error) {
	cfg, err := o.load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return config.Config{}, nil, err
	}
	handle.SetLogger(logger.Named("handle"))
	persistent.SetLogger(logger.Named("persistent"))
	return cfg, logger, nil
}
