package handle

import "strconv"

// State is the lifecycle state of a proxy.
type State uint8

const (
	StateUninitialized State = iota
	StateActive
	StateWeakPending
	StateQueuedForDisposal
	StateDisposed
	StateDestroyed

	stateCount
)

var stateNames = [...]string{
	"Uninitialized",
	"Active",
	"WeakPending",
	"QueuedForDisposal",
	"Disposed",
	"Destroyed",
}

var _ = [1]struct{}{}[len(stateNames)-int(stateCount)]

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Live reports whether the proxy currently wraps an engine value.
func (s State) Live() bool {
	return s == StateActive || s == StateWeakPending || s == StateQueuedForDisposal
}

// Transition is a lifecycle event applied to a proxy.
type Transition uint8

const (
	TransitionInitialize Transition = iota
	TransitionMakeWeak
	TransitionMakeStrong
	TransitionQueueDispose
	TransitionDispose
	TransitionRevive
	TransitionDeny
	TransitionDestroy

	transitionCount
)

var transitionNames = [...]string{
	"initialize",
	"make-weak",
	"make-strong",
	"queue-dispose",
	"dispose",
	"revive",
	"deny",
	"destroy",
}

var _ = [1]struct{}{}[len(transitionNames)-int(transitionCount)]

func (t Transition) String() string {
	if t < transitionCount {
		return transitionNames[t]
	}
	return "Transition(" + strconv.Itoa(int(t)) + ")"
}

type edge struct {
	to State
	ok bool
}

func to(s State) edge { return edge{to: s, ok: true} }

// transitions is indexed by [from][event]. Missing entries are illegal.
// Weak and strong requests on a proxy queued for disposal only toggle the
// engine-side flag; the state stays queued.
var transitions = [stateCount][transitionCount]edge{
	StateUninitialized: {
		TransitionInitialize: to(StateActive),
		TransitionDestroy:    to(StateDestroyed),
	},
	StateActive: {
		TransitionMakeWeak:     to(StateWeakPending),
		TransitionMakeStrong:   to(StateActive),
		TransitionQueueDispose: to(StateQueuedForDisposal),
		TransitionDispose:      to(StateDisposed),
		TransitionDestroy:      to(StateDestroyed),
	},
	StateWeakPending: {
		TransitionMakeWeak:     to(StateWeakPending),
		TransitionMakeStrong:   to(StateActive),
		TransitionQueueDispose: to(StateQueuedForDisposal),
		TransitionDispose:      to(StateDisposed),
		TransitionRevive:       to(StateActive),
		TransitionDestroy:      to(StateDestroyed),
	},
	StateQueuedForDisposal: {
		TransitionMakeWeak:     to(StateQueuedForDisposal),
		TransitionMakeStrong:   to(StateQueuedForDisposal),
		TransitionQueueDispose: to(StateQueuedForDisposal),
		TransitionDispose:      to(StateDisposed),
		TransitionRevive:       to(StateQueuedForDisposal),
		TransitionDeny:         to(StateActive),
		TransitionDestroy:      to(StateDestroyed),
	},
	StateDisposed: {
		TransitionInitialize: to(StateActive),
		TransitionDestroy:    to(StateDestroyed),
	},
	StateDestroyed: {
		TransitionDestroy: to(StateDestroyed),
	},
}

// next returns the state reached by applying t in s.
func next(s State, t Transition) (State, bool) {
	if s >= stateCount || t >= transitionCount {
		return s, false
	}
	e := transitions[s][t]
	return e.to, e.ok
}

// endsOccupancy reports whether reaching s retires the current generation.
func endsOccupancy(s State) bool {
	return s == StateDisposed || s == StateDestroyed
}
