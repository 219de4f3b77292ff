package handle

import (
	"sync/atomic"

	"github.com/wippyai/jsbridge/lifecycle"
)

type counters struct {
	wrapped      atomic.Uint64
	recycled     atomic.Uint64
	grown        atomic.Uint64
	queued       atomic.Uint64
	drained      atomic.Uint64
	skipped      atomic.Uint64
	denied       atomic.Uint64
	released     atomic.Uint64
	revived      atomic.Uint64
	collected    atomic.Uint64
	passes       atomic.Uint64
	weakened     atomic.Uint64
	strengthened atomic.Uint64
}

// Stats is a point-in-time view of an engine's registry.
type Stats struct {
	Engine   lifecycle.EngineID
	Disposed bool

	Slots      int
	Capacity   int
	Free       int
	Identities int

	Active            int
	WeakPending       int
	QueuedForDisposal int
	Cached            int
	Destroyed         int

	PendingDispose int
	PendingWeak    int
	PendingStrong  int
	PeakPending    int

	Persistent     int
	PersistentWeak int
	CallbackDepth  int32

	Wrapped      uint64
	Recycled     uint64
	Grown        uint64
	Queued       uint64
	Drained      uint64
	Skipped      uint64
	Denied       uint64
	Released     uint64
	Revived      uint64
	Collected    uint64
	Passes       uint64
	Weakened     uint64
	Strengthened uint64
}

// Stats collects registry statistics. It enters the engine scope.
func (e *Engine) Stats() Stats {
	e.scope.enter()
	defer e.scope.exit()

	s := Stats{
		Engine:         e.id,
		Disposed:       e.Disposed(),
		PendingDispose: e.queues[queueDispose].len(),
		PendingWeak:    e.queues[queueWeak].len(),
		PendingStrong:  e.queues[queueStrong].len(),
		Persistent:     e.refs.Len(),
		PersistentWeak: e.refs.WeakLen(),
		CallbackDepth:  e.depth.Load(),
		Wrapped:        e.stats.wrapped.Load(),
		Recycled:       e.stats.recycled.Load(),
		Grown:          e.stats.grown.Load(),
		Queued:         e.stats.queued.Load(),
		Drained:        e.stats.drained.Load(),
		Skipped:        e.stats.skipped.Load(),
		Denied:         e.stats.denied.Load(),
		Released:       e.stats.released.Load(),
		Revived:        e.stats.revived.Load(),
		Collected:      e.stats.collected.Load(),
		Passes:         e.stats.passes.Load(),
		Weakened:       e.stats.weakened.Load(),
		Strengthened:   e.stats.strengthened.Load(),
	}
	for k := range e.queues {
		s.PeakPending += e.queues[k].highWater()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.Slots = len(e.slots)
	s.Capacity = cap(e.slots)
	s.Free = len(e.free)
	s.Identities = len(e.identities)
	for _, p := range e.slots {
		_, st := p.load()
		switch st {
		case StateActive:
			s.Active++
		case StateWeakPending:
			s.WeakPending++
		case StateQueuedForDisposal:
			s.QueuedForDisposal++
		case StateDisposed:
			s.Cached++
		case StateDestroyed:
			s.Destroyed++
		}
	}
	return s
}
