package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/lifecycle"
)

// workloadConfig shapes the synthetic host traffic.
type workloadConfig struct {
	Engines int
	Ops     int
	Rate    float64
	Seed    uint64
	// Fractions of wrapped values that are made weak, or handed to a
	// foreign goroutine for disposal. The rest are disposed in place.
	Weak    float64
	Foreign float64
	// IdleEvery sends an idle notification after that many ops.
	IdleEvery int
}

func defaultWorkload() workloadConfig {
	return workloadConfig{
		Engines:   2,
		Ops:       5000,
		Weak:      0.3,
		Foreign:   0.3,
		IdleEvery: 250,
	}
}

func (c workloadConfig) validate() error {
	switch {
	case c.Engines < 1:
		return errors.InvalidConfig("engines", c.Engines, "must be at least 1")
	case c.Ops < 0:
		return errors.InvalidConfig("ops", c.Ops, "must not be negative")
	case c.Rate < 0:
		return errors.InvalidConfig("rate", c.Rate, "must not be negative")
	case c.Weak < 0 || c.Foreign < 0 || c.Weak+c.Foreign > 1:
		return errors.InvalidConfig("weak", c.Weak+c.Foreign, "weak and foreign fractions must be in [0,1] and sum to at most 1")
	}
	return nil
}

// workload drives a set of engines the way an embedding host would:
// wrap script values, let some go weak, and release the rest from the
// engine goroutine or from a foreign one.
type workload struct {
	cfg     workloadConfig
	guard   *lifecycle.Registry
	engines []*handle.Engine
	hosts   []*hostRefs
	logger  *zap.Logger
	runID   string
	done    atomic.Int64
}

func newWorkload(cfg workloadConfig, hcfg config.Handles, logger *zap.Logger) (*workload, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	w := &workload{
		cfg:    cfg,
		guard:  lifecycle.New(),
		runID:  runID,
		logger: logger.With(zap.String("run", runID)),
	}

	for i := 0; i < cfg.Engines; i++ {
		host := newHostRefs()
		eng, err := handle.New(w.guard,
			handle.WithConfig(hcfg),
			handle.WithHost(host),
			handle.WithLogger(w.logger),
		)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.engines = append(w.engines, eng)
		w.hosts = append(w.hosts, host)
	}
	return w, nil
}

// Total is the number of ops the run will perform.
func (w *workload) Total() int {
	return w.cfg.Ops * len(w.engines)
}

// Done is the number of ops performed so far.
func (w *workload) Done() int {
	return int(w.done.Load())
}

// Stats returns a snapshot of every engine.
func (w *workload) Stats() []handle.Stats {
	out := make([]handle.Stats, 0, len(w.engines))
	for _, eng := range w.engines {
		out = append(out, eng.Stats())
	}
	return out
}

// Engines returns the engines driven by the run.
func (w *workload) Engines() []*handle.Engine {
	return w.engines
}

// Run performs the configured ops on every engine concurrently and ends
// with a forced collection on each.
func (w *workload) Run(ctx context.Context) error {
	w.logger.Info("workload started",
		zap.Int("engines", len(w.engines)),
		zap.Int("ops", w.cfg.Ops),
		zap.Float64("rate", w.cfg.Rate))

	var wg sync.WaitGroup
	errs := make([]error, len(w.engines))
	for i, eng := range w.engines {
		wg.Add(1)
		go func(i int, eng *handle.Engine) {
			defer wg.Done()
			errs[i] = w.drive(ctx, i, eng, w.hosts[i])
		}(i, eng)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	w.logger.Info("workload finished", zap.Int("ops", w.Done()))
	return nil
}

func (w *workload) drive(ctx context.Context, n int, eng *handle.Engine, host *hostRefs) error {
	limit := rate.Inf
	if w.cfg.Rate > 0 {
		limit = rate.Limit(w.cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)
	rng := rand.New(rand.NewPCG(w.cfg.Seed, uint64(n)))

	foreign := make(chan handle.Handle, 64)
	var disposer sync.WaitGroup
	disposer.Add(1)
	go func() {
		defer disposer.Done()
		for h := range foreign {
			eng.RequestDispose(h)
		}
	}()
	defer func() {
		close(foreign)
		disposer.Wait()
		eng.Collect()
	}()

	var weak []handle.Handle
	for i := 0; i < w.cfg.Ops; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		eng.Lock()
		h := eng.Execute("op.js", fmt.Sprintf("({op: %d, tags: ['a', 'b']})", i))
		if h.IsError() {
			msg := eng.Snapshot(h).String
			eng.Unlock()
			return fmt.Errorf("engine %d: %s", eng.ID(), msg)
		}

		switch p := rng.Float64(); {
		case p < w.cfg.Weak:
			host.hold(h.ID())
			eng.RequestMakeWeak(h)
			weak = append(weak, h)
		case p < w.cfg.Weak+w.cfg.Foreign:
			eng.Unlock()
			select {
			case foreign <- h:
			case <-ctx.Done():
				return ctx.Err()
			}
			eng.Lock()
		default:
			eng.RequestDispose(h)
		}

		// Drop weak values that the host stopped caring about.
		if len(weak) > 32 {
			for _, old := range weak[:16] {
				host.drop(old.ID())
				eng.RequestDispose(old)
			}
			weak = append(weak[:0], weak[16:]...)
		}
		eng.Unlock()

		w.done.Add(1)
		if w.cfg.IdleEvery > 0 && (i+1)%w.cfg.IdleEvery == 0 {
			eng.Idle()
		}
	}

	eng.Lock()
	for _, h := range weak {
		host.drop(h.ID())
		eng.RequestDispose(h)
	}
	eng.Unlock()
	return nil
}

// Close tears every engine down.
func (w *workload) Close() {
	for _, eng := range w.engines {
		if err := eng.Close(); err != nil {
			w.logger.Warn("engine close failed", zap.Uint32("engine", uint32(eng.ID())), zap.Error(err))
		}
	}
}

// hostRefs is the simulated host side. A held value is still referenced
// by the host, so the engine must neither dispose nor collect it; a weak
// value the engine offers for collection is always revived.
type hostRefs struct {
	held map[handle.HandleID]bool
	mu   sync.Mutex
}

func newHostRefs() *hostRefs {
	return &hostRefs{held: make(map[handle.HandleID]bool)}
}

func (r *hostRefs) hold(id handle.HandleID) {
	r.mu.Lock()
	r.held[id] = true
	r.mu.Unlock()
}

func (r *hostRefs) drop(id handle.HandleID) {
	r.mu.Lock()
	delete(r.held, id)
	r.mu.Unlock()
}

func (r *hostRefs) IsDisposeReady(id handle.HandleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.held[id]
}

func (r *hostRefs) RevivalPredicate(handle.HandleID) bool {
	return false
}
