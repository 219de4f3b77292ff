package jsbridge

import (
	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/lifecycle"
)

// NewEngine creates an engine from cfg, registered with the process-wide
// lifecycle registry. Extra options are applied after the configuration.
func NewEngine(cfg config.Config, host handle.Host, opts ...handle.Option) (*handle.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}

	all := []handle.Option{
		handle.WithConfig(cfg.Handles),
		handle.WithHost(host),
		handle.WithLogger(logger),
	}
	return handle.New(lifecycle.Default(), append(all, opts...)...)
}

// Open loads the configuration at path (see config.Load) and creates an
// engine from it.
func Open(path string, host handle.Host, opts ...handle.Option) (*handle.Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewEngine(cfg, host, opts...)
}
