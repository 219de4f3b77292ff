package jsbridge

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/lifecycle"
)

func TestNewEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Handles.InitialCapacity = 5

	eng, err := NewEngine(cfg, nil, handle.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if eng.Guard() != lifecycle.Default() {
		t.Error("engine should use the default lifecycle registry")
	}
	if st := eng.Stats(); st.Capacity != 5 {
		t.Errorf("capacity = %d, want 5", st.Capacity)
	}

	eng.Lock()
	h := eng.Execute("sum.js", "[1, 2, 3].reduce((a, b) => a + b)")
	if got := eng.Snapshot(h).Int32; got != 6 {
		t.Errorf("result = %d", got)
	}
	eng.Unlock()

	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if !lifecycle.Default().IsDisposed(eng.ID()) {
		t.Error("closed engine should be marked disposed")
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Handles.InitialCapacity = 0

	_, err := NewEngine(cfg, nil)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidConfig}) {
		t.Fatalf("NewEngine() error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsbridge.yaml")
	data := []byte("handles:\n  initial_capacity: 7\nlog:\n  level: warn\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	eng, err := Open(path, handle.HostFuncs{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer eng.Close()

	if st := eng.Stats(); st.Capacity != 7 {
		t.Errorf("capacity = %d, want 7", st.Capacity)
	}

	_, err = Open(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindNotFound}) {
		t.Errorf("Open(missing) error = %v", err)
	}
}
