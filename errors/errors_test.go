package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		absent   []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseDispose,
				Kind:      KindStaleHandle,
				Engine:    3,
				Handle:    7,
				HasHandle: true,
				Detail:    "generation expired",
			},
			contains: []string{"[dispose]", "stale_handle", "engine 3", "handle 7", "generation expired"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDrain,
				Kind:  KindProtocol,
			},
			contains: []string{"[drain]", "protocol"},
			absent:   []string{" at "},
		},
		{
			name: "slot zero is printed",
			err: &Error{
				Phase:     PhaseAcquire,
				Kind:      KindInvalidHandle,
				HasHandle: true,
			},
			contains: []string{"handle 0"},
			absent:   []string{"engine"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindInvalidConfig,
				Detail: "bad file",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[config]", "invalid_config", "bad file", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseScript,
		Kind:  KindScript,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := EngineDisposed(PhaseAcquire, 2)

	if !err.Is(&Error{Phase: PhaseAcquire, Kind: KindEngineDisposed}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDispose, Kind: KindEngineDisposed}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseAcquire, Kind: KindProtocol}) {
		t.Error("Is should not match different kind")
	}

	var target error = &Error{Phase: PhaseAcquire, Kind: KindEngineDisposed}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}

	var as *Error
	if !errors.As(error(err), &as) || as.Engine != 2 {
		t.Errorf("errors.As = %v", as)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDrain, KindIllegalState).
		Engine(4).
		Handle(9).
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "active", "disposed").
		Build()

	if err.Phase != PhaseDrain {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDrain)
	}
	if err.Kind != KindIllegalState {
		t.Errorf("Kind = %v, want %v", err.Kind, KindIllegalState)
	}
	if err.Engine != 4 || err.Handle != 9 || !err.HasHandle {
		t.Errorf("Engine=%d Handle=%d HasHandle=%v", err.Engine, err.Handle, err.HasHandle)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected active, got disposed" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Protocol", func(t *testing.T) {
		err := Protocol(PhaseDispose, 1, 5, "slot %d already free", 5)
		if err.Kind != KindProtocol {
			t.Errorf("Kind = %v, want %v", err.Kind, KindProtocol)
		}
		if err.Detail != "slot 5 already free" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Protocol without args", func(t *testing.T) {
		err := Protocol(PhaseDispose, 1, 5, "100% broken")
		if err.Detail != "100% broken" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle(PhaseAcquire, 1, 99)
		if err.Kind != KindInvalidHandle || err.Handle != 99 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("StaleHandle", func(t *testing.T) {
		err := StaleHandle(PhaseDispose, 1, 3)
		if err.Kind != KindStaleHandle {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("IdentityConflict", func(t *testing.T) {
		err := IdentityConflict(1, 42, 0)
		if err.Kind != KindIdentityConflict || err.Value != int32(42) {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("IllegalState", func(t *testing.T) {
		err := IllegalState(PhaseDrain, 2, "Disposed", "make-weak")
		if !strings.Contains(err.Detail, "make-weak") || !strings.Contains(err.Detail, "Disposed") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		err := InvalidConfig("initial_capacity", 0, "must be positive")
		if err.Phase != PhaseConfig || err.Detail != "initial_capacity: must be positive" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseConfig, "config.yaml")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(PhaseScript, KindScript, cause, "run failed")
		if !errors.Is(err, cause) {
			t.Error("Wrap should keep cause in chain")
		}
	})
}
