package value

// Probe exposes the capability checks the classifier needs from an engine
// value. Several capabilities overlap: every int32 is a number, and every
// function, array, date or regexp is also an object.
type Probe interface {
	IsEmpty() bool
	IsUndefined() bool
	IsNull() bool
	IsBoolean() bool
	IsBooleanObject() bool
	IsInt32() bool
	IsNumber() bool
	IsNumberObject() bool
	IsString() bool
	IsStringObject() bool
	IsDate() bool
	IsArray() bool
	IsRegExp() bool
	IsFunction() bool
	IsObject() bool
}

type rule struct {
	kind Kind
	test func(Probe) bool
}

// priority is the ordered classification table. The first matching rule
// wins, so narrower capabilities must precede the ones that contain them:
//
//  1. boolean / boolean object
//  2. int32 / number / number object
//  3. string / string object
//  4. date, array, regexp
//  5. null
//  6. function
//  7. undefined
//  8. generic object
//
// Anything left over is Undefined.
var priority = [...]rule{
	{KindBool, Probe.IsBoolean},
	{KindBoolObject, Probe.IsBooleanObject},
	{KindInt32, Probe.IsInt32},
	{KindNumber, Probe.IsNumber},
	{KindNumberObject, Probe.IsNumberObject},
	{KindString, Probe.IsString},
	{KindStringObject, Probe.IsStringObject},
	{KindDate, Probe.IsDate},
	{KindArray, Probe.IsArray},
	{KindRegExp, Probe.IsRegExp},
	{KindNull, Probe.IsNull},
	{KindFunction, Probe.IsFunction},
	{KindUndefined, Probe.IsUndefined},
	{KindObject, Probe.IsObject},
}

// Classify assigns the type tag for p. A nil or empty probe is Undefined,
// as is any value none of the rules recognize.
func Classify(p Probe) Kind {
	if p == nil || p.IsEmpty() {
		return KindUndefined
	}
	for _, r := range priority {
		if r.test(p) {
			return r.kind
		}
	}
	return KindUndefined
}
