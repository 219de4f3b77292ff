package handle

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/lifecycle"
	"github.com/wippyai/jsbridge/persistent"
	"github.com/wippyai/jsbridge/script"
	"github.com/wippyai/jsbridge/value"
)

// Engine owns one script context together with its slot registry,
// identity table, transition queues and persistent handles.
type Engine struct {
	guard  *lifecycle.Registry
	ctx    *script.Context
	host   Host
	logger *zap.Logger
	refs   *persistent.Table

	// guarded by mu, engine goroutine only
	slots        []*Proxy
	free         []HandleID
	identities   map[int32]*Proxy
	objects      map[*goja.Object]*Proxy
	nextIdentity int32

	queues [queueKinds]requestQueue
	stats  counters
	opts   options

	scope  scope
	mu     sync.Mutex
	depth  atomic.Int32
	closed atomic.Bool
	id     lifecycle.EngineID
}

// New registers a fresh engine with guard. A nil guard uses
// lifecycle.Default().
func New(guard *lifecycle.Registry, opts ...Option) (*Engine, error) {
	if guard == nil {
		guard = lifecycle.Default()
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.initialCapacity < 1 {
		o.initialCapacity = 1
	}

	id, err := guard.Register()
	if err != nil {
		return nil, err
	}

	l := o.logger
	if l == nil {
		l = Logger()
	}

	e := &Engine{
		guard:      guard,
		id:         id,
		ctx:        script.NewContext(),
		host:       o.host,
		logger:     l.With(zap.Uint32("engine", uint32(id))),
		refs:       persistent.NewTable(),
		slots:      make([]*Proxy, 0, o.initialCapacity),
		free:       make([]HandleID, 0, o.initialCapacity),
		identities: make(map[int32]*Proxy),
		objects:    make(map[*goja.Object]*Proxy),
		opts:       o,
	}
	e.refs.Subscribe(persistent.ObserverFunc(e.onPersistentEvent))

	e.logger.Debug("engine created", zap.Int("capacity", o.initialCapacity))
	return e, nil
}

// ID returns the engine id issued by the lifecycle guard.
func (e *Engine) ID() lifecycle.EngineID {
	return e.id
}

// Guard returns the lifecycle registry the engine is registered with.
func (e *Engine) Guard() *lifecycle.Registry {
	return e.guard
}

// Disposed reports whether the engine has been torn down.
func (e *Engine) Disposed() bool {
	return e.closed.Load() || e.guard.IsDisposed(e.id)
}

// Context exposes the script context. Callers must hold the engine scope
// while using it.
func (e *Engine) Context() *script.Context {
	return e.ctx
}

// Lock enters the engine scope, making the calling goroutine the engine
// goroutine until Unlock. Calls nest.
func (e *Engine) Lock() {
	e.scope.enter()
}

// Unlock leaves the engine scope.
func (e *Engine) Unlock() {
	e.scope.exit()
}

// Depth returns the reentrancy counter.
func (e *Engine) Depth() int32 {
	return e.depth.Load()
}

// Callback runs fn as a call into host code. Disposal requests made while
// it runs are queued.
func (e *Engine) Callback(fn func()) {
	e.scope.enter()
	defer e.scope.exit()

	e.depth.Add(1)
	defer e.depth.Add(-1)
	fn()
}

func (e *Engine) fatal(err *errors.Error) {
	e.logger.Error("protocol violation", zap.Error(err))
	panic(err)
}

// own returns h's proxy, checking that h belongs to this engine.
func (e *Engine) own(h Handle) *Proxy {
	if h.p == nil {
		return nil
	}
	if h.p.engine != e {
		e.fatal(errors.Protocol(errors.PhaseAcquire, uint32(e.id), int32(h.p.id),
			"handle belongs to engine %d", h.p.engine.id))
	}
	return h.p
}

func (e *Engine) mustBeAlive(phase errors.Phase) {
	if e.Disposed() {
		e.fatal(errors.EngineDisposed(phase, uint32(e.id)))
	}
}

// transition applies t to p, logging a rejected move.
func (e *Engine) transition(p *Proxy, gen uint32, t Transition) bool {
	from, ok := p.apply(gen, t)
	if !ok {
		e.logger.Debug("transition rejected",
			zap.Int32("handle", int32(p.id)),
			zap.Uint32("generation", gen),
			zap.Stringer("state", from),
			zap.Stringer("event", t))
	}
	return ok
}

// value returns the script value p roots. Engine goroutine only.
func (e *Engine) value(p *Proxy) (goja.Value, bool) {
	v, ok := e.refs.Get(p.ref)
	if !ok {
		return nil, false
	}
	gv, ok := v.(goja.Value)
	return gv, ok
}

// Wrap returns the handle for v, reusing the live handle when v is an
// object that is already wrapped. Wrapping on a disposed engine panics.
func (e *Engine) Wrap(v goja.Value) Handle {
	e.scope.enter()
	defer e.scope.exit()

	e.mustBeAlive(errors.PhaseAcquire)

	if p, gen, ok := e.probeIdentity(v); ok {
		e.reclaim(p, gen)
		return Handle{p: p, gen: gen}
	}

	e.drain(e.opts.acquireDrainSteps)
	return e.allocate(v, script.Kind(v), value.Snapshot{})
}

// reclaim withdraws a queued disposal for a value that was wrapped again.
func (e *Engine) reclaim(p *Proxy, gen uint32) {
	if _, s := p.load(); s != StateQueuedForDisposal {
		return
	}
	e.cancel(queueDispose, p, gen)
	e.deny(p, gen)
}

// allocate roots v in a slot classified as kind.
func (e *Engine) allocate(v any, kind value.Kind, snap value.Snapshot) Handle {
	if e.opts.collectOnExhaustion && e.freeLen() == 0 && e.refs.WeakLen() > 0 {
		e.collect(e.opts.exhaustionBudget)
	}

	ref, err := e.refs.New(v)
	if err != nil {
		e.fatal(errors.New(errors.PhaseAcquire, errors.KindEngineDisposed).
			Engine(uint32(e.id)).
			Cause(err).
			Build())
	}

	obj, isObject := v.(*goja.Object)

	e.mu.Lock()
	p, recycled := e.acquireSlotLocked()
	if isObject && obj != nil && kind.IsObject() {
		e.assignIdentityLocked(p)
		e.bindObjectLocked(p, obj)
	}
	e.mu.Unlock()

	p.ref = ref
	p.snap = snap
	p.kind.Store(int32(kind))

	gen, _ := p.load()
	if from, ok := p.apply(gen, TransitionInitialize); !ok {
		e.fatal(errors.IllegalState(errors.PhaseAcquire, int32(p.id), from.String(), TransitionInitialize.String()))
	}

	e.stats.wrapped.Add(1)
	if recycled {
		e.stats.recycled.Add(1)
	} else {
		e.drain(e.opts.growDrainSteps)
	}
	return Handle{p: p, gen: gen}
}

// Release disposes h from the engine goroutine, entering the scope first.
func (e *Engine) Release(h Handle) {
	e.scope.enter()
	defer e.scope.exit()
	e.RequestDispose(h)
}

// RequestDispose asks for h to be disposed. It is applied immediately only
// on the engine goroutine, outside host callbacks, and when the host
// reports it holds no further reference; otherwise it is queued. Safe from
// any goroutine. On a disposed engine the proxy is destroyed at once.
func (e *Engine) RequestDispose(h Handle) {
	p := e.own(h)
	if p == nil {
		return
	}
	if e.Disposed() {
		p.apply(h.gen, TransitionDestroy)
		return
	}
	if !h.current() {
		return
	}

	if !e.scope.held() || e.depth.Load() > 0 {
		e.queueDispose(p, h.gen)
		return
	}
	e.disposeNow(p, h.gen)
}

func (e *Engine) queueDispose(p *Proxy, gen uint32) {
	if !e.transition(p, gen, TransitionQueueDispose) {
		return
	}
	if e.enqueue(queueDispose, p, gen) {
		e.logger.Debug("dispose queued", zap.Int32("handle", int32(p.id)))
	}
}

func (e *Engine) disposeNow(p *Proxy, gen uint32) bool {
	if !e.hostReady(p.id) {
		e.queueDispose(p, gen)
		return false
	}
	return e.release(p, gen)
}

// release frees p's value and parks its slot. Engine goroutine only.
func (e *Engine) release(p *Proxy, gen uint32) bool {
	if !e.transition(p, gen, TransitionDispose) {
		return false
	}
	for k := queueKind(0); k < queueKinds; k++ {
		e.cancel(k, p, gen)
	}

	e.refs.Reset(p.ref)
	p.ref = 0
	p.snap = value.Snapshot{}
	p.kind.Store(int32(value.KindUninitialized))

	e.freeSlot(p)
	e.stats.released.Add(1)
	return true
}

// deny returns a queued proxy to Active, or WeakPending when its
// engine-side ref is still weak.
func (e *Engine) deny(p *Proxy, gen uint32) {
	if !e.transition(p, gen, TransitionDeny) {
		return
	}
	if e.refs.IsWeak(p.ref) {
		p.apply(gen, TransitionMakeWeak)
	}
}

// RequestMakeWeak marks h eligible for engine collection, subject to the
// revival check. Safe from any goroutine.
func (e *Engine) RequestMakeWeak(h Handle) {
	p := e.own(h)
	if p == nil || e.Disposed() || !h.current() {
		return
	}
	e.cancel(queueStrong, p, h.gen)
	if !e.scope.held() {
		e.enqueue(queueWeak, p, h.gen)
		return
	}
	e.makeWeak(p, h.gen)
}

// RequestMakeStrong cancels a weak request or re-roots h. Safe from any
// goroutine.
func (e *Engine) RequestMakeStrong(h Handle) {
	p := e.own(h)
	if p == nil || e.Disposed() || !h.current() {
		return
	}
	e.cancel(queueWeak, p, h.gen)
	if !e.scope.held() {
		e.enqueue(queueStrong, p, h.gen)
		return
	}
	e.makeStrong(p, h.gen)
}

func (e *Engine) makeWeak(p *Proxy, gen uint32) {
	if !e.transition(p, gen, TransitionMakeWeak) {
		return
	}
	e.refs.SetWeak(p.ref, e.revival(p, gen))
}

func (e *Engine) makeStrong(p *Proxy, gen uint32) {
	if !e.transition(p, gen, TransitionMakeStrong) {
		return
	}
	e.refs.ClearWeak(p.ref)
}

// revival is the engine collector's callback for a weak proxy. The host
// decides whether the value dies now or survives this pass.
func (e *Engine) revival(p *Proxy, gen uint32) persistent.WeakCallback {
	return func(ref persistent.Ref) {
		if g, _ := p.load(); g != gen || p.ref != ref {
			return
		}

		if e.hostAllowsCollect(p.id) {
			if e.release(p, gen) {
				e.stats.collected.Add(1)
				e.logger.Debug("weak value collected", zap.Int32("handle", int32(p.id)))
			}
			return
		}

		e.transition(p, gen, TransitionRevive)
		e.refs.ClearWeak(ref)
		e.stats.revived.Add(1)
		e.logger.Debug("weak value revived", zap.Int32("handle", int32(p.id)))
	}
}

// CollectResult reports a forced collection.
type CollectResult struct {
	persistent.CollectResult
	Drained int
}

// Collect drains the transition queues and then runs a full engine
// collection pass over every weak value.
func (e *Engine) Collect() CollectResult {
	e.scope.enter()
	defer e.scope.exit()

	if e.Disposed() {
		return CollectResult{}
	}
	drained := e.drain(e.opts.forceDrainSteps)
	return CollectResult{CollectResult: e.collect(0), Drained: drained}
}

func (e *Engine) collect(limit int) persistent.CollectResult {
	res := e.refs.Collect(limit)
	e.stats.passes.Add(1)
	return res
}

// Idle is an idle-time notification. It returns false without doing work
// when a script is executing or a host callback is active; otherwise it
// drains the queues and runs a bounded collection pass.
func (e *Engine) Idle() bool {
	if !e.scope.tryEnter() {
		return false
	}
	defer e.scope.exit()

	if e.Disposed() || e.ctx.Running() || e.depth.Load() > 0 {
		return false
	}
	e.drain(e.opts.idleDrainSteps)
	e.collect(e.opts.exhaustionBudget)
	return true
}

// Type returns the type tag of h.
func (e *Engine) Type(h Handle) value.Kind {
	e.own(h)
	return h.Kind()
}

// State returns the lifecycle state of h.
func (e *Engine) State(h Handle) State {
	e.own(h)
	return h.State()
}

// Value returns the script value behind h, or nil when h is stale or
// holds a compiled script.
func (e *Engine) Value(h Handle) goja.Value {
	e.scope.enter()
	defer e.scope.exit()

	p := e.own(h)
	if p == nil || !h.Valid() {
		return nil
	}
	v, _ := e.value(p)
	return v
}

// Snapshot refreshes and returns the host copy of h's value. Error and
// script handles keep the snapshot taken when they were created.
func (e *Engine) Snapshot(h Handle) value.Snapshot {
	e.scope.enter()
	defer e.scope.exit()

	p := e.own(h)
	if p == nil || !h.Valid() {
		return value.Snapshot{}
	}
	kind := p.Kind()
	if kind.IsError() || kind == value.KindScript {
		return p.snap
	}

	v, ok := e.value(p)
	if !ok {
		return p.snap
	}
	var snap value.Snapshot
	if err := e.ctx.Try(func() {
		snap = value.Capture(kind, script.Wrap(v))
	}); err != nil {
		e.logger.Warn("snapshot failed", zap.Int32("handle", int32(p.id)), zap.Error(err))
		return p.snap
	}
	p.snap = snap
	return snap
}

// Close tears the engine down. Cached proxies are destroyed, queued
// requests are dropped, and every later request on a live proxy destroys
// it immediately.
func (e *Engine) Close() error {
	e.scope.enter()
	defer e.scope.exit()

	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.guard.MarkDisposed(e.id)

	dropped := 0
	for k := range e.queues {
		dropped += e.queues[k].clear()
	}

	destroyed := 0
	e.mu.Lock()
	for _, p := range e.slots {
		gen, s := p.load()
		if s == StateDisposed || s == StateUninitialized {
			if _, ok := p.apply(gen, TransitionDestroy); ok {
				destroyed++
			}
		}
	}
	e.free = nil
	e.identities = make(map[int32]*Proxy)
	e.objects = make(map[*goja.Object]*Proxy)
	e.mu.Unlock()

	err := e.refs.Close()
	e.logger.Debug("engine closed",
		zap.Int("destroyed", destroyed),
		zap.Int("dropped_requests", dropped))
	return err
}

func (e *Engine) onPersistentEvent(ev persistent.Event) {
	switch ev.Type {
	case persistent.EventWeakened:
		e.stats.weakened.Add(1)
	case persistent.EventStrengthened:
		e.stats.strengthened.Add(1)
	}
}
