package value

import (
	"math"
	"strconv"
	"time"
)

// Scalar is a Probe that can also convert itself to host scalars.
type Scalar interface {
	Probe
	ToBoolean() bool
	ToInt32() int32
	ToNumber() float64
	ToString() string
}

// Snapshot is a host-side copy of a value's scalar or string form taken at
// one point in time. It is not updated when the engine value changes.
type Snapshot struct {
	String string
	Number float64
	Int32  int32
	Kind   Kind
	Bool   bool
	Valid  bool
}

// Capture takes a snapshot of s, extracting the representation that fits k.
// Error kinds keep the message text; objects keep their string form.
func Capture(k Kind, s Scalar) Snapshot {
	snap := Snapshot{Kind: k, Valid: true}
	if s == nil {
		return snap
	}

	switch k {
	case KindBool, KindBoolObject:
		snap.Bool = s.ToBoolean()
	case KindInt32:
		snap.Int32 = s.ToInt32()
		snap.Number = float64(snap.Int32)
	case KindNumber, KindNumberObject, KindDate:
		snap.Number = s.ToNumber()
	case KindString, KindStringObject, KindObject, KindFunction, KindArray, KindRegExp, KindScript:
		snap.String = s.ToString()
	case KindNull, KindUndefined, KindUninitialized:
	default:
		if k.IsError() {
			snap.String = s.ToString()
		}
	}
	return snap
}

// Time returns the snapshot as a time for date kinds.
func (s Snapshot) Time() (time.Time, bool) {
	if s.Kind != KindDate || math.IsNaN(s.Number) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(s.Number)), true
}

// Interface returns the natural Go value of the snapshot.
func (s Snapshot) Interface() any {
	switch s.Kind {
	case KindBool, KindBoolObject:
		return s.Bool
	case KindInt32:
		return s.Int32
	case KindNumber, KindNumberObject:
		return s.Number
	case KindDate:
		if t, ok := s.Time(); ok {
			return t
		}
		return nil
	case KindNull, KindUndefined, KindUninitialized:
		return nil
	}
	return s.String
}

// Text renders the snapshot for display.
func (s Snapshot) Text() string {
	switch s.Kind {
	case KindBool, KindBoolObject:
		return strconv.FormatBool(s.Bool)
	case KindInt32:
		return strconv.FormatInt(int64(s.Int32), 10)
	case KindNumber, KindNumberObject:
		return strconv.FormatFloat(s.Number, 'g', -1, 64)
	case KindDate:
		if t, ok := s.Time(); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
		return "Invalid Date"
	case KindNull:
		return "null"
	case KindUndefined, KindUninitialized:
		return "undefined"
	}
	return s.String
}
