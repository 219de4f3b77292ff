// Package errors provides structured error types for the jsbridge module.
//
// Errors are categorized by Phase (which part of the handle lifecycle raised
// them) and Kind (error category). The Error type carries the engine id, the
// handle id when one is involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispose, errors.KindStaleHandle).
//		Engine(1).
//		Handle(7).
//		Detail("generation %d expired", gen).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.IdentityConflict(engineID, 42, owner)
//	err := errors.InvalidConfig("initial_capacity", 0, "must be positive")
//
// Protocol violations (double release into the free list, wrapping on a
// torn-down engine) are raised as panics carrying an *Error of
// KindProtocol or KindEngineDisposed. Recoverable misuse is returned.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
