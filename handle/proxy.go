package handle

import (
	"fmt"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/wippyai/jsbridge/persistent"
	"github.com/wippyai/jsbridge/value"
)

// HandleID is the slot index backing a proxy. It is stable for one
// occupancy and may be reused once the proxy is disposed.
type HandleID int32

// NoIdentity marks a proxy without an externally tracked identity.
const NoIdentity int32 = -1

// Proxy is the registry record for one wrapped engine value.
//
// The lifecycle state and the occupancy generation share one atomic word
// so a request made for an old occupant can never move the state of a new
// one.
type Proxy struct {
	engine   *Engine
	word     atomic.Uint64
	pending  [queueKinds]atomic.Uint64
	kind     atomic.Int32
	identity atomic.Int32
	id       HandleID

	// engine goroutine only
	ref  persistent.Ref
	snap value.Snapshot

	// guarded by Engine.mu
	object *goja.Object
	free   bool
}

func newProxy(e *Engine, id HandleID) *Proxy {
	p := &Proxy{engine: e, id: id}
	p.identity.Store(NoIdentity)
	return p
}

func pack(gen uint32, s State) uint64 {
	return uint64(gen)<<8 | uint64(s)
}

func unpack(w uint64) (uint32, State) {
	return uint32(w >> 8), State(w & 0xff)
}

func (p *Proxy) load() (uint32, State) {
	return unpack(p.word.Load())
}

// apply moves the proxy along t if it is still on generation gen. Entering
// Disposed or Destroyed retires the generation.
func (p *Proxy) apply(gen uint32, t Transition) (State, bool) {
	for {
		w := p.word.Load()
		g, s := unpack(w)
		if g != gen {
			return s, false
		}
		n, ok := next(s, t)
		if !ok {
			return s, false
		}
		ng := g
		if endsOccupancy(n) && !endsOccupancy(s) {
			ng++
		}
		if p.word.CompareAndSwap(w, pack(ng, n)) {
			return s, true
		}
	}
}

func (p *Proxy) handle() Handle {
	g, _ := p.load()
	return Handle{p: p, gen: g}
}

// Kind returns the type tag of the current occupant.
func (p *Proxy) Kind() value.Kind {
	return value.Kind(p.kind.Load())
}

// Handle is the host-visible reference to a proxy occupancy. Handles are
// comparable values; a handle outlives its occupancy harmlessly, since
// every request made through a stale handle is ignored.
type Handle struct {
	p   *Proxy
	gen uint32
}

// ID returns the slot id, or -1 for the zero Handle.
func (h Handle) ID() HandleID {
	if h.p == nil {
		return -1
	}
	return h.p.id
}

// IsZero reports whether h was never assigned.
func (h Handle) IsZero() bool {
	return h.p == nil
}

// Generation returns the occupancy generation h was issued for.
func (h Handle) Generation() uint32 {
	return h.gen
}

// Engine returns the owning engine.
func (h Handle) Engine() *Engine {
	if h.p == nil {
		return nil
	}
	return h.p.engine
}

func (h Handle) current() bool {
	if h.p == nil {
		return false
	}
	g, _ := h.p.load()
	return g == h.gen
}

// State returns the lifecycle state of h's occupancy. A stale handle
// reports Disposed, or Destroyed once its engine is gone.
func (h Handle) State() State {
	if h.p == nil {
		return StateUninitialized
	}
	g, s := h.p.load()
	if g != h.gen {
		if s == StateDestroyed {
			return StateDestroyed
		}
		return StateDisposed
	}
	return s
}

// Valid reports whether h still refers to a live value.
func (h Handle) Valid() bool {
	return h.State().Live()
}

// Kind returns the type tag, or KindUninitialized once h is stale.
func (h Handle) Kind() value.Kind {
	if !h.current() {
		return value.KindUninitialized
	}
	return h.p.Kind()
}

// IsError reports whether h carries one of the error kinds.
func (h Handle) IsError() bool {
	return h.Kind().IsError()
}

// Identity returns the external identity, or NoIdentity.
func (h Handle) Identity() int32 {
	if !h.current() {
		return NoIdentity
	}
	return h.p.identity.Load()
}

func (h Handle) String() string {
	if h.p == nil {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle %d/%d (%s, %s)", h.p.id, h.gen, h.Kind(), h.State())
}
