package script

import (
	"math"
	"reflect"

	"github.com/dop251/goja"

	"github.com/wippyai/jsbridge/value"
)

// Value adapts a goja value to the classifier's capability checks.
type Value struct {
	V goja.Value
}

var _ value.Scalar = Value{}

// Wrap returns the adapter for v.
func Wrap(v goja.Value) Value {
	return Value{V: v}
}

// Kind classifies v.
func Kind(v goja.Value) value.Kind {
	return value.Classify(Value{V: v})
}

func (v Value) object() (*goja.Object, bool) {
	o, ok := v.V.(*goja.Object)
	return o, ok && o != nil
}

func (v Value) primitive(kinds ...reflect.Kind) bool {
	if v.V == nil || goja.IsUndefined(v.V) || goja.IsNull(v.V) {
		return false
	}
	if _, ok := v.object(); ok {
		return false
	}
	if _, ok := v.V.(*goja.Symbol); ok {
		return false
	}
	t := v.V.ExportType()
	if t == nil {
		return false
	}
	for _, k := range kinds {
		if t.Kind() == k {
			return true
		}
	}
	return false
}

func (v Value) class(name string) bool {
	o, ok := v.object()
	return ok && o.ClassName() == name
}

func (v Value) IsEmpty() bool     { return v.V == nil }
func (v Value) IsUndefined() bool { return v.V != nil && goja.IsUndefined(v.V) }
func (v Value) IsNull() bool      { return v.V != nil && goja.IsNull(v.V) }
func (v Value) IsBoolean() bool   { return v.primitive(reflect.Bool) }
func (v Value) IsNumber() bool    { return v.primitive(reflect.Int64, reflect.Float64) }
func (v Value) IsString() bool    { return v.primitive(reflect.String) }

// IsInt32 reports integral numbers in int32 range. Negative zero is a number.
func (v Value) IsInt32() bool {
	if !v.IsNumber() {
		return false
	}
	f := v.V.ToFloat()
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return false
	}
	return !(f == 0 && math.Signbit(f))
}

func (v Value) IsBooleanObject() bool { return v.class("Boolean") }
func (v Value) IsNumberObject() bool  { return v.class("Number") }
func (v Value) IsStringObject() bool  { return v.class("String") }
func (v Value) IsDate() bool          { return v.class("Date") }
func (v Value) IsArray() bool         { return v.class("Array") }
func (v Value) IsRegExp() bool        { return v.class("RegExp") }

func (v Value) IsFunction() bool {
	if _, ok := v.object(); !ok {
		return false
	}
	_, ok := goja.AssertFunction(v.V)
	return ok
}

func (v Value) IsObject() bool {
	_, ok := v.object()
	return ok
}

// ToBoolean unwraps boolean objects, which are otherwise always truthy.
func (v Value) ToBoolean() bool {
	if v.V == nil {
		return false
	}
	if v.IsBooleanObject() {
		if b, ok := v.V.Export().(bool); ok {
			return b
		}
	}
	return v.V.ToBoolean()
}

func (v Value) ToInt32() int32 {
	if v.V == nil {
		return 0
	}
	return int32(v.V.ToInteger())
}

func (v Value) ToNumber() float64 {
	if v.V == nil {
		return math.NaN()
	}
	return v.V.ToFloat()
}

func (v Value) ToString() string {
	if v.V == nil {
		return ""
	}
	return v.V.String()
}
