package handle

import (
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/script"
	"github.com/wippyai/jsbridge/value"
)

// Terminated is the interrupt value passed to the runtime by Terminate.
const Terminated = "execution terminated"

// Execute compiles and runs src. Failures come back as handles carrying
// one of the error kinds, with the message in their snapshot.
func (e *Engine) Execute(name, src string) Handle {
	e.scope.enter()
	defer e.scope.exit()

	e.mustBeAlive(errors.PhaseScript)
	v, err := e.ctx.Execute(name, src)
	if err != nil {
		return e.wrapError(err)
	}
	return e.Wrap(v)
}

// Compile compiles src into a Script handle for Run.
func (e *Engine) Compile(name, src string) Handle {
	e.scope.enter()
	defer e.scope.exit()

	e.mustBeAlive(errors.PhaseScript)
	prog, err := e.ctx.Compile(name, src)
	if err != nil {
		return e.wrapError(err)
	}
	e.drain(e.opts.acquireDrainSteps)
	return e.allocate(prog, value.KindScript, value.Snapshot{
		Kind:   value.KindScript,
		String: name,
		Valid:  true,
	})
}

// Run executes a script handle returned by Compile.
func (e *Engine) Run(h Handle) Handle {
	e.scope.enter()
	defer e.scope.exit()

	e.mustBeAlive(errors.PhaseScript)
	p := e.own(h)
	if p == nil || !h.Valid() || p.Kind() != value.KindScript {
		return e.wrapError(errors.New(errors.PhaseScript, errors.KindInvalidHandle).
			Engine(uint32(e.id)).
			Handle(int32(h.ID())).
			Detail("not a live script handle").
			Build())
	}

	held, _ := e.refs.Get(p.ref)
	prog, _ := held.(*goja.Program)
	v, err := e.ctx.Run(prog)
	if err != nil {
		return e.wrapError(err)
	}
	return e.Wrap(v)
}

func (e *Engine) wrapError(err error) Handle {
	kind := script.ErrorKind(err)
	msg := err.Error()
	e.logger.Debug("script failed", zap.Stringer("kind", kind), zap.Error(err))

	e.drain(e.opts.acquireDrainSteps)
	return e.allocate(e.ctx.ToValue(msg), kind, value.Snapshot{
		Kind:   kind,
		String: msg,
		Valid:  true,
	})
}

// Terminate interrupts the running script and reports whether one was
// running. It is a no-op while idle and does not touch queued lifecycle
// requests. Safe from any goroutine.
func (e *Engine) Terminate() bool {
	if !e.ctx.Interrupt(Terminated) {
		return false
	}
	e.logger.Debug("termination requested")
	return true
}

// HostFunc is a host function callable from script.
type HostFunc func(call goja.FunctionCall) goja.Value

// SetFunc binds fn as a global function. While fn runs the reentrancy
// counter is raised.
func (e *Engine) SetFunc(name string, fn HostFunc) error {
	e.scope.enter()
	defer e.scope.exit()

	if e.Disposed() {
		return errors.EngineDisposed(errors.PhaseScript, uint32(e.id))
	}
	return e.ctx.Set(name, func(call goja.FunctionCall) goja.Value {
		e.depth.Add(1)
		defer e.depth.Add(-1)
		return fn(call)
	})
}

// SetGlobal binds the value behind h as a global.
func (e *Engine) SetGlobal(name string, h Handle) error {
	e.scope.enter()
	defer e.scope.exit()

	v := e.Value(h)
	if v == nil {
		return errors.StaleHandle(errors.PhaseScript, uint32(e.id), int32(h.ID()))
	}
	return e.ctx.Set(name, v)
}

func (e *Engine) wrapGo(v any) Handle {
	e.scope.enter()
	defer e.scope.exit()
	e.mustBeAlive(errors.PhaseAcquire)
	return e.Wrap(e.ctx.ToValue(v))
}

// NewUndefined wraps undefined.
func (e *Engine) NewUndefined() Handle { return e.Wrap(goja.Undefined()) }

// NewNull wraps null.
func (e *Engine) NewNull() Handle { return e.Wrap(goja.Null()) }

// NewBoolean wraps b.
func (e *Engine) NewBoolean(b bool) Handle { return e.wrapGo(b) }

// NewInt32 wraps i.
func (e *Engine) NewInt32(i int32) Handle { return e.wrapGo(int64(i)) }

// NewNumber wraps f.
func (e *Engine) NewNumber(f float64) Handle { return e.wrapGo(f) }

// NewString wraps s.
func (e *Engine) NewString(s string) Handle { return e.wrapGo(s) }

// NewObject wraps a fresh plain object.
func (e *Engine) NewObject() Handle {
	e.scope.enter()
	defer e.scope.exit()
	e.mustBeAlive(errors.PhaseAcquire)
	return e.Wrap(e.ctx.NewObject())
}

// NewArray wraps a fresh array of items.
func (e *Engine) NewArray(items ...any) Handle {
	e.scope.enter()
	defer e.scope.exit()
	e.mustBeAlive(errors.PhaseAcquire)
	return e.Wrap(e.ctx.NewArray(items...))
}

// NewDate wraps a Date for t.
func (e *Engine) NewDate(t time.Time) Handle {
	e.scope.enter()
	defer e.scope.exit()
	e.mustBeAlive(errors.PhaseAcquire)
	d, err := e.ctx.NewDate(t)
	if err != nil {
		return e.wrapError(err)
	}
	return e.Wrap(d)
}

// NewError wraps an Error object with msg.
func (e *Engine) NewError(msg string) Handle {
	e.scope.enter()
	defer e.scope.exit()
	e.mustBeAlive(errors.PhaseAcquire)
	o, err := e.ctx.NewError(msg)
	if err != nil {
		return e.wrapError(err)
	}
	return e.Wrap(o)
}
