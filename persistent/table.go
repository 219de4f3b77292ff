package persistent

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("persistent table closed")

// Table holds engine values on behalf of the host. A strong ref keeps its
// value reachable; a weak ref keeps it only until a collection pass lets
// the ref's callback release it.
type Table struct {
	entries   []entry
	freeList  []Ref
	observers []Observer
	weak      int
	obsMu     sync.RWMutex
	mu        sync.RWMutex
	closed    bool
}

type entry struct {
	value    any
	callback WeakCallback
	weak     bool
	valid    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Ref, 0, 16),
	}
}

// New stores value as a strong ref.
func (t *Table) New(value any) (Ref, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	e := entry{value: value, valid: true}
	var ref Ref
	if n := len(t.freeList); n > 0 {
		ref = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[ref-1] = e
	} else {
		t.entries = append(t.entries, e)
		ref = Ref(len(t.entries))
	}
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Ref: ref, Value: value})
	return ref, nil
}

// lookup returns the live entry for ref. Caller holds t.mu.
func (t *Table) lookup(ref Ref) *entry {
	if ref == 0 || int(ref) > len(t.entries) {
		return nil
	}
	e := &t.entries[ref-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves the value behind ref.
func (t *Table) Get(ref Ref) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(ref)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Set replaces the value behind ref, keeping its weak state.
func (t *Table) Set(ref Ref, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(ref)
	if e == nil {
		return false
	}
	e.value = value
	return true
}

// SetWeak marks ref weak. cb runs during Collect; a nil cb means the ref is
// released without consulting anyone.
func (t *Table) SetWeak(ref Ref, cb WeakCallback) bool {
	t.mu.Lock()
	e := t.lookup(ref)
	if e == nil {
		t.mu.Unlock()
		return false
	}
	if !e.weak {
		t.weak++
	}
	e.weak = true
	e.callback = cb
	value := e.value
	t.mu.Unlock()

	t.notify(Event{Type: EventWeakened, Ref: ref, Value: value})
	return true
}

// ClearWeak makes ref strong again.
func (t *Table) ClearWeak(ref Ref) bool {
	t.mu.Lock()
	e := t.lookup(ref)
	if e == nil {
		t.mu.Unlock()
		return false
	}
	wasWeak := e.weak
	if wasWeak {
		t.weak--
	}
	e.weak = false
	e.callback = nil
	value := e.value
	t.mu.Unlock()

	if wasWeak {
		t.notify(Event{Type: EventStrengthened, Ref: ref, Value: value})
	}
	return true
}

// IsWeak reports whether ref is live and weak.
func (t *Table) IsWeak(ref Ref) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(ref)
	return e != nil && e.weak
}

// Reset releases ref and returns the value it held.
func (t *Table) Reset(ref Ref) (any, bool) {
	value, ok := t.release(ref)
	if ok {
		t.notify(Event{Type: EventReleased, Ref: ref, Value: value})
	}
	return value, ok
}

func (t *Table) release(ref Ref) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(ref)
	if e == nil {
		return nil, false
	}
	if e.weak {
		t.weak--
	}
	value := e.value
	*e = entry{}
	t.freeList = append(t.freeList, ref)
	return value, true
}

// Collect runs one collection pass over at most limit weak refs (all of
// them when limit <= 0). Callbacks run without the table lock held so they
// may call back into the table.
func (t *Table) Collect(limit int) CollectResult {
	type candidate struct {
		cb  WeakCallback
		ref Ref
	}

	t.mu.RLock()
	candidates := make([]candidate, 0, t.weak)
	for i := range t.entries {
		e := &t.entries[i]
		if e.valid && e.weak {
			candidates = append(candidates, candidate{ref: Ref(i + 1), cb: e.callback})
		}
	}
	t.mu.RUnlock()

	var res CollectResult
	if limit > 0 && len(candidates) > limit {
		res.Remaining = len(candidates) - limit
		candidates = candidates[:limit]
	}

	for _, c := range candidates {
		res.Visited++
		if c.cb == nil {
			if value, ok := t.release(c.ref); ok {
				res.Released++
				t.notify(Event{Type: EventCollected, Ref: c.ref, Value: value})
			}
			continue
		}

		c.cb(c.ref)

		t.mu.RLock()
		e := t.lookup(c.ref)
		gone := e == nil
		weak := e != nil && e.weak
		t.mu.RUnlock()

		switch {
		case gone:
			res.Released++
		case weak:
			res.Deferred++
		default:
			res.Revived++
			t.notify(Event{Type: EventRevived, Ref: c.ref})
		}
	}

	if res.Visited > 0 {
		Logger().Debug("persistent collect",
			zap.Int("visited", res.Visited),
			zap.Int("released", res.Released),
			zap.Int("revived", res.Revived),
			zap.Int("deferred", res.Deferred),
			zap.Int("remaining", res.Remaining))
	}
	return res
}

// Len returns the number of live refs.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// WeakLen returns the number of live weak refs.
func (t *Table) WeakLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.weak
}

// Each iterates over live refs until fn returns false.
func (t *Table) Each(fn func(Ref, any, bool) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid {
			if !fn(Ref(i+1), e.value, e.weak) {
				break
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Close releases every ref and stops accepting new ones.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var released []Event
	for i := range t.entries {
		if t.entries[i].valid {
			released = append(released, Event{Type: EventReleased, Ref: Ref(i + 1), Value: t.entries[i].value})
		}
	}
	t.entries = nil
	t.freeList = nil
	t.weak = 0
	t.mu.Unlock()

	for _, e := range released {
		t.notify(e)
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnPersistentEvent(e)
	}
}
