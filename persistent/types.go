package persistent

// Ref is an engine-side persistent handle. Ref 0 is reserved and always invalid.
type Ref uint32

// WeakCallback is invoked by Collect for each weak ref under consideration.
// The callback decides the ref's fate by calling Reset (release) or
// ClearWeak (revive) on the table. A ref left weak is reconsidered on the
// next pass.
type WeakCallback func(Ref)

// Event types for persistent handle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
	EventWeakened
	EventStrengthened
	EventCollected
	EventRevived
)

var eventNames = [...]string{
	"created",
	"released",
	"weakened",
	"strengthened",
	"collected",
	"revived",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a persistent handle lifecycle event.
type Event struct {
	Value any
	Ref   Ref
	Type  EventType
}

// Observer receives notifications about persistent handle events.
type Observer interface {
	OnPersistentEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnPersistentEvent(e Event) { f(e) }

// CollectResult summarizes one collection pass.
type CollectResult struct {
	Visited   int // weak refs offered to their callbacks
	Released  int // refs gone after the pass
	Revived   int // refs made strong again
	Deferred  int // refs left weak
	Remaining int // weak refs not visited because of the limit
}
