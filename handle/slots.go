package handle

import (
	"github.com/wippyai/jsbridge/errors"
)

// acquireSlotLocked pops the most recently freed slot, or appends a new
// proxy when none is free. Caller holds e.mu.
func (e *Engine) acquireSlotLocked() (*Proxy, bool) {
	if n := len(e.free); n > 0 {
		id := e.free[n-1]
		e.free = e.free[:n-1]
		p := e.slots[id]
		p.free = false
		return p, true
	}

	if len(e.slots) == cap(e.slots) {
		e.growLocked(2 * cap(e.slots))
	}
	p := newProxy(e, HandleID(len(e.slots)))
	e.slots = append(e.slots, p)
	return p, false
}

// growLocked reallocates the slot index. Proxies are held by pointer, so
// existing slot ids and handles stay valid.
func (e *Engine) growLocked(n int) {
	if n < 1 {
		n = 1
	}
	if n <= cap(e.slots) {
		return
	}
	slots := make([]*Proxy, len(e.slots), n)
	copy(slots, e.slots)
	e.slots = slots
	e.stats.grown.Add(1)
}

// Grow ensures room for n slots without further reallocation.
func (e *Engine) Grow(n int) {
	e.scope.enter()
	defer e.scope.exit()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.growLocked(n)
}

// freeSlot parks p on the free list and drops its identity and object
// entries. Freeing
// a slot twice is a protocol violation.
func (e *Engine) freeSlot(p *Proxy) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.free {
		e.fatal(errors.Protocol(errors.PhaseDispose, uint32(e.id), int32(p.id), "slot already on free list"))
	}
	e.unbindIdentityLocked(p)
	e.unbindObjectLocked(p)
	p.free = true
	e.free = append(e.free, p.id)
}

func (e *Engine) freeLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.free)
}

// Lookup returns the current occupancy of slot id.
func (e *Engine) Lookup(id HandleID) (Handle, bool) {
	e.scope.enter()
	defer e.scope.exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	if id < 0 || int(id) >= len(e.slots) {
		return Handle{}, false
	}
	h := e.slots[id].handle()
	return h, h.State().Live()
}
