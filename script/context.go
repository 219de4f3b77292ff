package script

import (
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/value"
)

// Context owns one goja runtime. It is not safe for concurrent use except
// for Interrupt and Running; callers serialize access through the engine
// scope.
type Context struct {
	rt      *goja.Runtime
	running atomic.Int32
}

// NewContext creates a fresh isolated runtime.
func NewContext() *Context {
	return &Context{rt: goja.New()}
}

// Runtime exposes the underlying goja runtime.
func (c *Context) Runtime() *goja.Runtime {
	return c.rt
}

// Running reports whether a script is currently executing.
func (c *Context) Running() bool {
	return c.running.Load() > 0
}

// CompileError is returned when source fails to compile.
type CompileError struct {
	Err  error
	Name string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile parses and compiles src without running it.
func (c *Context) Compile(name, src string) (*goja.Program, error) {
	p, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, &CompileError{Name: name, Err: err}
	}
	return p, nil
}

// Run executes a compiled program. A panic escaping the runtime is
// converted to an internal error.
func (c *Context) Run(p *goja.Program) (v goja.Value, err error) {
	if p == nil {
		return nil, errors.New(errors.PhaseScript, errors.KindInvalidInput).
			Detail("nil program").
			Build()
	}

	if c.running.Add(1) == 1 {
		c.rt.ClearInterrupt()
	}
	defer func() {
		if c.running.Add(-1) == 0 {
			c.rt.ClearInterrupt()
		}
		if r := recover(); r != nil {
			v = nil
			err = errors.New(errors.PhaseScript, errors.KindScript).
				Value(r).
				Detail("runtime panic: %v", r).
				Build()
		}
	}()

	return c.rt.RunProgram(p)
}

// Execute compiles and runs src.
func (c *Context) Execute(name, src string) (goja.Value, error) {
	p, err := c.Compile(name, src)
	if err != nil {
		return nil, err
	}
	return c.Run(p)
}

// Interrupt stops the running script and reports whether one was
// running. An idle context ignores the call, so the next run is not
// affected. Safe to call from any goroutine.
func (c *Context) Interrupt(reason any) bool {
	if !c.Running() {
		return false
	}
	c.rt.Interrupt(reason)
	return true
}

// ErrorKind maps a compile or run error to its value kind.
func ErrorKind(err error) value.Kind {
	if err == nil {
		return value.KindUninitialized
	}

	var (
		compileErr  *CompileError
		syntaxErr   *goja.CompilerSyntaxError
		interrupted *goja.InterruptedError
		exception   *goja.Exception
	)
	switch {
	case stderrors.As(err, &compileErr), stderrors.As(err, &syntaxErr):
		return value.KindCompilerError
	case stderrors.As(err, &interrupted):
		return value.KindExecutionTerminated
	case stderrors.As(err, &exception):
		return value.KindExecutionError
	}
	return value.KindInternalError
}

// Set binds a global.
func (c *Context) Set(name string, v any) error {
	if err := c.rt.Set(name, v); err != nil {
		return errors.Wrap(errors.PhaseScript, errors.KindScript, err, "set global "+name)
	}
	return nil
}

// Get reads a global.
func (c *Context) Get(name string) goja.Value {
	return c.rt.Get(name)
}

// Try runs fn and reports a script exception it raised.
func (c *Context) Try(fn func()) error {
	if ex := c.rt.Try(fn); ex != nil {
		return ex
	}
	return nil
}

func (c *Context) Null() goja.Value      { return goja.Null() }
func (c *Context) Undefined() goja.Value { return goja.Undefined() }

// ToValue converts a Go value using goja's default mapping.
func (c *Context) ToValue(v any) goja.Value {
	return c.rt.ToValue(v)
}

// NewObject creates an empty plain object.
func (c *Context) NewObject() *goja.Object {
	return c.rt.NewObject()
}

// NewArray creates an array holding items.
func (c *Context) NewArray(items ...any) *goja.Object {
	return c.rt.NewArray(items...)
}

// NewDate creates a Date for t at millisecond precision.
func (c *Context) NewDate(t time.Time) (*goja.Object, error) {
	return c.construct("Date", c.rt.ToValue(t.UnixMilli()))
}

// NewError creates an Error object with msg.
func (c *Context) NewError(msg string) (*goja.Object, error) {
	return c.construct("Error", c.rt.ToValue(msg))
}

func (c *Context) construct(ctor string, args ...goja.Value) (*goja.Object, error) {
	o, err := c.rt.New(c.rt.Get(ctor), args...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScript, errors.KindScript, err, "construct "+ctor)
	}
	return o, nil
}
