package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which part of the handle lifecycle raised the error
type Phase string

const (
	PhaseAcquire  Phase = "acquire"  // wrapping an engine value
	PhaseDispose  Phase = "dispose"  // release requests
	PhaseDrain    Phase = "drain"    // transition queue processing
	PhaseCollect  Phase = "collect"  // engine collector callbacks
	PhaseIdentity Phase = "identity" // object identity table
	PhaseEngine   Phase = "engine"   // engine lifecycle
	PhaseScript   Phase = "script"   // compile and run
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindEngineDisposed   Kind = "engine_disposed"
	KindProtocol         Kind = "protocol"
	KindInvalidHandle    Kind = "invalid_handle"
	KindStaleHandle      Kind = "stale_handle"
	KindIdentityConflict Kind = "identity_conflict"
	KindIllegalState     Kind = "illegal_state"
	KindInvalidConfig    Kind = "invalid_config"
	KindNotFound         Kind = "not_found"
	KindScript           Kind = "script"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Detail    string
	Engine    uint32 // 0 when not tied to an engine
	Handle    int32
	HasHandle bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasHandle || e.Engine != 0 {
		b.WriteString(" at ")
		if e.Engine != 0 {
			b.WriteString("engine ")
			b.WriteString(strconv.FormatUint(uint64(e.Engine), 10))
		}
		if e.HasHandle {
			if e.Engine != 0 {
				b.WriteString(", ")
			}
			b.WriteString("handle ")
			b.WriteString(strconv.FormatInt(int64(e.Handle), 10))
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Engine sets the engine id
func (b *Builder) Engine(id uint32) *Builder {
	b.err.Engine = id
	return b
}

// Handle sets the handle id
func (b *Builder) Handle(id int32) *Builder {
	b.err.Handle = id
	b.err.HasHandle = true
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// EngineDisposed reports an operation on a torn-down engine.
func EngineDisposed(phase Phase, engine uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEngineDisposed,
		Engine: engine,
		Detail: "engine has been disposed",
	}
}

// Protocol reports a violated lifecycle invariant. These are raised as panics.
func Protocol(phase Phase, engine uint32, handle int32, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:     phase,
		Kind:      KindProtocol,
		Engine:    engine,
		Handle:    handle,
		HasHandle: true,
		Detail:    detail,
	}
}

// InvalidHandle reports a handle id that does not name a slot.
func InvalidHandle(phase Phase, engine uint32, handle int32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindInvalidHandle,
		Engine:    engine,
		Handle:    handle,
		HasHandle: true,
		Detail:    "no such slot",
	}
}

// StaleHandle reports a handle whose occupancy has ended.
func StaleHandle(phase Phase, engine uint32, handle int32) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindStaleHandle,
		Engine:    engine,
		Handle:    handle,
		HasHandle: true,
		Detail:    "handle refers to a previous occupancy of its slot",
	}
}

// IdentityConflict reports an identity id already bound to another proxy.
func IdentityConflict(engine uint32, identity int32, owner int32) *Error {
	return &Error{
		Phase:     PhaseIdentity,
		Kind:      KindIdentityConflict,
		Engine:    engine,
		Handle:    owner,
		HasHandle: true,
		Value:     identity,
		Detail:    fmt.Sprintf("identity %d already bound", identity),
	}
}

// IllegalState reports a lifecycle event that the current state does not accept.
func IllegalState(phase Phase, handle int32, state, event string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindIllegalState,
		Handle:    handle,
		HasHandle: true,
		Detail:    fmt.Sprintf("event %s not allowed in state %s", event, state),
	}
}

// InvalidConfig reports a configuration field with an unusable value.
func InvalidConfig(field string, value any, reason string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Value:  value,
		Detail: fmt.Sprintf("%s: %s", field, reason),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
