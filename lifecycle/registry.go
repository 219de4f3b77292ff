package lifecycle

import (
	"sync"

	"github.com/wippyai/jsbridge/errors"
)

// EngineID identifies an engine within a Registry. Zero is never issued.
type EngineID uint32

const chunkSize = 64

// Registry tracks which engines have been torn down. Every handle
// operation consults it before touching engine state.
type Registry struct {
	disposed []bool
	next     EngineID
	live     int
	mu       sync.RWMutex
	closed   bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		disposed: make([]bool, chunkSize),
		next:     1,
	}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns a lazily created shared registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Register issues the next engine id. Ids increase monotonically and are
// never reused.
func (r *Registry) Register() (EngineID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errors.New(errors.PhaseEngine, errors.KindEngineDisposed).
			Detail("lifecycle registry closed").
			Build()
	}

	id := r.next
	r.next++
	for int(id) >= len(r.disposed) {
		r.disposed = append(r.disposed, make([]bool, chunkSize)...)
	}
	r.disposed[id] = false
	r.live++
	return id, nil
}

// MarkDisposed flags the engine as torn down. It reports whether this call
// changed the flag.
func (r *Registry) MarkDisposed(id EngineID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == 0 || id >= r.next || r.disposed[id] {
		return false
	}
	r.disposed[id] = true
	r.live--
	return true
}

// IsDisposed reports whether the engine has been torn down. Ids that were
// never issued count as disposed.
func (r *Registry) IsDisposed(id EngineID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || id == 0 || id >= r.next {
		return true
	}
	return r.disposed[id]
}

// Live returns the number of registered engines not yet disposed.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Issued returns the number of ids handed out so far.
func (r *Registry) Issued() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(r.next - 1)
}

// Close marks every engine disposed and rejects further registrations.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for i := EngineID(1); i < r.next; i++ {
		r.disposed[i] = true
	}
	r.live = 0
	return nil
}
