// Package value classifies engine values into semantic type tags.
//
// Every wrapped value gets exactly one Kind. Classification runs through an
// explicit priority table where matched pairs (boolean and boolean object,
// number and number object, string and string object) are tested before the
// generic object check, and functions, arrays, dates and regexps are tested
// before it too because they also satisfy it:
//
//	k := value.Classify(probe)
//	if k.IsObject() {
//		// object-backed, may carry an identity
//	}
//
// The four negative kinds (KindInternalError, KindCompilerError,
// KindExecutionError, KindExecutionTerminated) are error results that share
// the value channel.
//
// A Snapshot is a point-in-time host copy of a value's scalar or string
// form, taken on demand with Capture.
package value
