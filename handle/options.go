package handle

import (
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/config"
)

type options struct {
	logger              *zap.Logger
	host                Host
	initialCapacity     int
	acquireDrainSteps   int
	growDrainSteps      int
	idleDrainSteps      int
	forceDrainSteps     int
	exhaustionBudget    int
	collectOnExhaustion bool
}

func defaultOptions() options {
	d := config.Default().Handles
	o := options{host: HostFuncs{}}
	o.applyConfig(d)
	return o
}

func (o *options) applyConfig(c config.Handles) {
	o.initialCapacity = c.InitialCapacity
	o.acquireDrainSteps = c.AcquireDrainSteps
	o.growDrainSteps = c.GrowDrainSteps
	o.idleDrainSteps = c.IdleDrainSteps
	o.forceDrainSteps = c.ForceDrainSteps
	o.collectOnExhaustion = c.CollectOnExhaustion
	o.exhaustionBudget = c.ExhaustionBudget
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHost installs the host predicates. Without it every dispose request
// is granted and revival never is.
func WithHost(h Host) Option {
	return func(o *options) {
		if h != nil {
			o.host = h
		}
	}
}

// WithConfig applies registry and drain settings.
func WithConfig(c config.Handles) Option {
	return func(o *options) {
		o.applyConfig(c)
	}
}

// WithInitialCapacity preallocates n slots.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

// WithCollectOnExhaustion runs a collection pass over at most budget weak
// values whenever a wrap finds no recyclable slot.
func WithCollectOnExhaustion(budget int) Option {
	return func(o *options) {
		o.collectOnExhaustion = budget > 0
		o.exhaustionBudget = budget
	}
}
