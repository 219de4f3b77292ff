// Package handle implements the handle lifecycle shared by a Go host and
// an embedded script engine.
//
// An Engine hands out Handles for script values. Each handle is backed by
// a slot in the engine's registry; slots are recycled through a LIFO free
// list, and object values additionally carry an identity id so wrapping
// the same object twice yields the same handle:
//
//	guard := lifecycle.New()
//	eng, err := handle.New(guard, handle.WithHost(host))
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	eng.Lock()
//	h := eng.Execute("main.js", "({answer: 42})")
//	eng.Unlock()
//
// # Two collectors
//
// The host decides when it no longer references a value; the engine
// decides when a weak value is unreachable. A value is freed only when
// both agree. RequestDispose asks the host via Host.IsDisposeReady. Weak
// values are offered to Host.RevivalPredicate during a collection pass
// (Collect, Idle) and either die in that pass or are made strong again.
//
// # Goroutines
//
// The goroutine holding the engine scope (Lock, or any engine method) is
// the engine goroutine. RequestDispose, RequestMakeWeak and
// RequestMakeStrong may be called from any goroutine; from a foreign one
// they are only queued. Disposal is also queued while a host callback is
// running (SetFunc, Callback, host predicates). Queues are drained on the
// engine goroutine by Drain, Wrap, Idle and Collect, newest request first.
//
// # States
//
//	Uninitialized -> Active <-> WeakPending
//	Active/WeakPending -> QueuedForDisposal -> Disposed | Active
//	Active/WeakPending/QueuedForDisposal -> Disposed -> Active (recycled)
//	any -> Destroyed (engine closed)
//
// # Errors
//
// Script failures are handles of kind value.KindCompilerError,
// KindExecutionError, KindExecutionTerminated or KindInternalError.
// Protocol violations panic with an *errors.Error. Requests on a closed
// engine or through a stale handle are ignored.
package handle
