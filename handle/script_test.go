package handle

import (
	"strings"
	"testing"

	"github.com/dop251/goja"

	"github.com/wippyai/jsbridge/value"
)

func TestExecute_Kinds(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	tests := []struct {
		src     string
		kind    value.Kind
		message string
	}{
		{"1 + 1", value.KindInt32, ""},
		{"'a' + 'b'", value.KindString, ""},
		{"[1, 2, 3]", value.KindArray, ""},
		{"/x+/g", value.KindRegExp, ""},
		{"(function f() {})", value.KindFunction, ""},
		{"new Boolean(false)", value.KindBoolObject, ""},
		{"new Number(2)", value.KindNumberObject, ""},
		{"new String('s')", value.KindStringObject, ""},
		{"new Date(0)", value.KindDate, ""},
		{"-0", value.KindNumber, ""},
		{"var x = ;", value.KindCompilerError, "compile"},
		{"throw new TypeError('nope')", value.KindExecutionError, "nope"},
		{"undefinedName.prop", value.KindExecutionError, "undefinedName"},
	}

	for _, tt := range tests {
		h := eng.Execute("kinds.js", tt.src)
		if got := eng.Type(h); got != tt.kind {
			t.Errorf("Execute(%q) kind = %v, want %v", tt.src, got, tt.kind)
			continue
		}
		if h.IsError() != tt.kind.IsError() {
			t.Errorf("Execute(%q) IsError = %v", tt.src, h.IsError())
		}
		if tt.message != "" && !strings.Contains(eng.Snapshot(h).String, tt.message) {
			t.Errorf("Execute(%q) message = %q, want %q", tt.src, eng.Snapshot(h).String, tt.message)
		}
	}
}

func TestCompileRun(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	prog := eng.Compile("counter.js", "var n = (typeof n === 'number' ? n : 0) + 1; n")
	if eng.Type(prog) != value.KindScript {
		t.Fatalf("Compile() kind = %v", eng.Type(prog))
	}
	if snap := eng.Snapshot(prog); snap.String != "counter.js" {
		t.Errorf("script snapshot = %+v", snap)
	}
	if eng.Value(prog) != nil {
		t.Error("script handle should not expose a script value")
	}

	for want := int32(1); want <= 3; want++ {
		r := eng.Run(prog)
		if got := eng.Snapshot(r).Int32; got != want {
			t.Errorf("run %d = %d", want, got)
		}
		eng.RequestDispose(r)
	}

	notScript := eng.NewObject()
	if r := eng.Run(notScript); eng.Type(r) != value.KindInternalError {
		t.Errorf("Run(object) kind = %v", eng.Type(r))
	}

	eng.RequestDispose(prog)
	if r := eng.Run(prog); eng.Type(r) != value.KindInternalError {
		t.Errorf("Run(disposed) kind = %v", eng.Type(r))
	}

	bad := eng.Compile("bad.js", "function (")
	if eng.Type(bad) != value.KindCompilerError {
		t.Errorf("Compile(bad) kind = %v", eng.Type(bad))
	}
}

func TestTerminate_KeepsQueuedRequests(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	victim := eng.NewObject()
	if err := eng.SetFunc("stop", func(goja.FunctionCall) goja.Value {
		eng.RequestDispose(victim)
		if victim.State() != StateQueuedForDisposal {
			t.Errorf("dispose inside host call should queue, state = %v", victim.State())
		}
		eng.Terminate()
		return goja.Undefined()
	}); err != nil {
		t.Fatal(err)
	}

	res := eng.Execute("loop.js", "stop(); for (;;) {}")
	if eng.Type(res) != value.KindExecutionTerminated {
		t.Fatalf("kind = %v", eng.Type(res))
	}
	if !strings.Contains(eng.Snapshot(res).String, Terminated) {
		t.Errorf("message = %q", eng.Snapshot(res).String)
	}
	if victim.Valid() {
		t.Errorf("queued dispose should be honored after termination: %v", victim)
	}

	// The runtime stays usable.
	if h := eng.Execute("after.js", "40 + 2"); eng.Snapshot(h).Int32 != 42 {
		t.Errorf("after termination = %+v", eng.Snapshot(h))
	}
}

func TestTerminate_Idle(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	if eng.Terminate() {
		t.Error("Terminate reported a running script while idle")
	}
	h := eng.Execute("sum.js", "1 + 1")
	if eng.Type(h) != value.KindInt32 || eng.Snapshot(h).Int32 != 2 {
		t.Errorf("Execute after idle Terminate = %v %+v", eng.Type(h), eng.Snapshot(h))
	}
}

func TestSetFunc_Depth(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	var depth int32
	var arg Handle
	if err := eng.SetFunc("host", func(call goja.FunctionCall) goja.Value {
		depth = eng.Depth()
		arg = eng.Wrap(call.Argument(0))
		return eng.Context().ToValue(7)
	}); err != nil {
		t.Fatal(err)
	}

	res := eng.Execute("call.js", "host({k: 'v'})")
	if depth != 1 || eng.Depth() != 0 {
		t.Errorf("depth inside = %d, after = %d", depth, eng.Depth())
	}
	if eng.Snapshot(res).Int32 != 7 {
		t.Errorf("result = %+v", eng.Snapshot(res))
	}
	if eng.Type(arg) != value.KindObject || !arg.Valid() {
		t.Errorf("argument handle = %v", arg)
	}
}

func TestSetGlobal(t *testing.T) {
	eng := newEngine(t)
	eng.Lock()
	defer eng.Unlock()

	obj := eng.Execute("obj.js", "({greeting: 'hello'})")
	if err := eng.SetGlobal("shared", obj); err != nil {
		t.Fatal(err)
	}
	if h := eng.Execute("read.js", "shared.greeting"); eng.Snapshot(h).String != "hello" {
		t.Errorf("global read = %+v", eng.Snapshot(h))
	}

	// The script sees the same object, so wrapping it again dedupes.
	if h := eng.Execute("same.js", "shared"); h != obj {
		t.Errorf("rewrap of global = %v, want %v", h, obj)
	}

	eng.RequestDispose(obj)
	if err := eng.SetGlobal("gone", obj); err == nil {
		t.Error("SetGlobal with a stale handle should fail")
	}
}
