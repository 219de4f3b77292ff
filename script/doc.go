// Package script wraps a goja runtime for the handle engine.
//
// Value adapts goja values to the value package's capability checks, so
// classification stays independent of the runtime:
//
//	ctx := script.NewContext()
//	v, err := ctx.Execute("init.js", "new Date(0)")
//	kind := script.Kind(v) // value.KindDate
//
// Compile and run failures map onto the four error kinds with ErrorKind.
package script
