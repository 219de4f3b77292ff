package handle

// Host is the managed side's view of its references. Both methods are
// called on the engine goroutine with the reentrancy counter raised, so
// a host that requests disposal from inside them is queued.
type Host interface {
	// IsDisposeReady reports whether the host holds no further strong
	// reference to the value in slot id.
	IsDisposeReady(id HandleID) bool

	// RevivalPredicate is asked during an engine collection pass whether a
	// weak value may be freed now.
	RevivalPredicate(id HandleID) bool
}

// HostFuncs adapts plain functions to Host. A nil DisposeReady always
// allows disposal; a nil Revival never does.
type HostFuncs struct {
	DisposeReady func(HandleID) bool
	Revival      func(HandleID) bool
}

// IsDisposeReady calls DisposeReady.
func (h HostFuncs) IsDisposeReady(id HandleID) bool {
	if h.DisposeReady == nil {
		return true
	}
	return h.DisposeReady(id)
}

// RevivalPredicate calls Revival.
func (h HostFuncs) RevivalPredicate(id HandleID) bool {
	if h.Revival == nil {
		return false
	}
	return h.Revival(id)
}

// hostReady asks the host with the reentrancy counter raised.
func (e *Engine) hostReady(id HandleID) bool {
	e.depth.Add(1)
	defer e.depth.Add(-1)
	return e.host.IsDisposeReady(id)
}

// hostAllowsCollect is the revival decision.
func (e *Engine) hostAllowsCollect(id HandleID) bool {
	e.depth.Add(1)
	defer e.depth.Add(-1)
	return e.host.IsDisposeReady(id) || e.host.RevivalPredicate(id)
}
