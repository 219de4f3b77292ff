package value

import "strconv"

// Kind is the semantic type tag assigned to a wrapped engine value.
// Negative kinds are error results carried on the same channel as values.
type Kind int32

const (
	KindExecutionTerminated Kind = -4
	KindExecutionError      Kind = -3
	KindCompilerError       Kind = -2
	KindInternalError       Kind = -1

	KindUninitialized Kind = iota - 4
	KindScript
	KindUndefined
	KindNull
	KindBool
	KindBoolObject
	KindInt32
	KindNumber
	KindNumberObject
	KindString
	KindStringObject
	KindObject
	KindFunction
	KindDate
	KindArray
	KindRegExp

	kindCount = int(KindRegExp) + 1
)

var kindNames = [...]string{
	"Uninitialized",
	"Script",
	"Undefined",
	"Null",
	"Bool",
	"BoolObject",
	"Int32",
	"Number",
	"NumberObject",
	"String",
	"StringObject",
	"Object",
	"Function",
	"Date",
	"Array",
	"RegExp",
}

var errorNames = [...]string{
	"InternalError",
	"CompilerError",
	"ExecutionError",
	"ExecutionTerminated",
}

// Compile-time check that kindNames covers every non-negative kind.
var _ = [1]struct{}{}[len(kindNames)-kindCount]

func (k Kind) String() string {
	switch {
	case k >= 0 && int(k) < len(kindNames):
		return kindNames[k]
	case k < 0 && int(-k) <= len(errorNames):
		return errorNames[-k-1]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsError reports whether the kind is one of the error tags.
func (k Kind) IsError() bool {
	return k < 0 && k >= KindExecutionTerminated
}

// IsObject reports whether values of this kind are engine objects, which
// are the only values that carry an identity.
func (k Kind) IsObject() bool {
	switch k {
	case KindBoolObject, KindNumberObject, KindStringObject,
		KindObject, KindFunction, KindDate, KindArray, KindRegExp:
		return true
	}
	return false
}

// Valid reports whether k is a defined tag.
func (k Kind) Valid() bool {
	return k.IsError() || (k >= 0 && int(k) < kindCount)
}
