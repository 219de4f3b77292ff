package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/errors"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/metrics"
)

func smallWorkload(t *testing.T, mutate func(*workloadConfig)) *workload {
	t.Helper()
	cfg := defaultWorkload()
	cfg.Ops = 300
	cfg.IdleEvery = 50
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := newWorkload(cfg, config.Default().Handles, zap.NewNop())
	if err != nil {
		t.Fatalf("newWorkload() error = %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func TestWorkload_Run(t *testing.T) {
	w := smallWorkload(t, nil)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if w.Done() != w.Total() || w.Total() != 600 {
		t.Fatalf("done=%d total=%d", w.Done(), w.Total())
	}

	for _, s := range w.Stats() {
		if s.Active+s.WeakPending+s.QueuedForDisposal != 0 {
			t.Errorf("engine %d leaked: %+v", s.Engine, s)
		}
		if s.Wrapped != 300 || s.Released != 300 {
			t.Errorf("engine %d wrapped=%d released=%d", s.Engine, s.Wrapped, s.Released)
		}
		if s.Slots >= 300 {
			t.Errorf("engine %d never recycled: %d slots", s.Engine, s.Slots)
		}
		if s.Persistent != 0 {
			t.Errorf("engine %d persistent refs = %d", s.Engine, s.Persistent)
		}
	}
}

func TestWorkload_Deterministic(t *testing.T) {
	run := func() []handle.Stats {
		w := smallWorkload(t, func(c *workloadConfig) {
			c.Engines = 1
			c.Foreign = 0
			c.Seed = 42
		})
		if err := w.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		return w.Stats()
	}

	a, b := run(), run()
	if a[0].Slots != b[0].Slots || a[0].Revived != b[0].Revived || a[0].Weakened != b[0].Weakened {
		t.Errorf("runs differ: %+v vs %+v", a[0], b[0])
	}
}

func TestWorkload_Cancel(t *testing.T) {
	w := smallWorkload(t, func(c *workloadConfig) {
		c.Ops = 1_000_000
		c.Rate = 1000
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err == nil {
		t.Fatal("Run() should fail on a cancelled context")
	}
	for _, s := range w.Stats() {
		if s.PendingDispose+s.PendingWeak+s.PendingStrong != 0 {
			t.Errorf("engine %d left requests queued", s.Engine)
		}
	}
}

func TestWorkloadConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*workloadConfig)
		ok     bool
	}{
		{"default", func(*workloadConfig) {}, true},
		{"no engines", func(c *workloadConfig) { c.Engines = 0 }, false},
		{"negative ops", func(c *workloadConfig) { c.Ops = -1 }, false},
		{"negative rate", func(c *workloadConfig) { c.Rate = -1 }, false},
		{"fractions too large", func(c *workloadConfig) { c.Weak, c.Foreign = 0.7, 0.7 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultWorkload()
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err == nil) != tt.ok {
				t.Errorf("validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidConfig}) {
				t.Errorf("validate() = %v, want an invalid config error", err)
			}
		})
	}
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf, []handle.Stats{{Engine: 3, Slots: 12, Released: 99}})

	out := strings.ToUpper(buf.String())
	for _, want := range []string{"ENGINE", "RELEASED", "12", "99"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRouter(t *testing.T) {
	w := smallWorkload(t, func(c *workloadConfig) { c.Ops = 20 })
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	collector, err := metrics.NewCollector(config.Default().Metrics, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, eng := range w.Engines() {
		collector.Add(eng)
	}
	router := newRouter(collector, w)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("/stats status = %d", rec.Code)
	}
	var all []handle.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil || len(all) != 2 {
		t.Fatalf("/stats body = %s (%v)", rec.Body.String(), err)
	}

	id := w.Engines()[1].ID()
	path := "/stats/" + strconv.FormatUint(uint64(id), 10)
	rec = get(path)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s status = %d", path, rec.Code)
	}
	var one handle.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil || one.Engine != id {
		t.Errorf("%s body = %s", path, rec.Body.String())
	}

	if rec := get("/stats/999"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown engine status = %d", rec.Code)
	}
	if rec := get("/stats/abc"); rec.Code != http.StatusNotFound {
		t.Errorf("non-numeric engine status = %d", rec.Code)
	}
	if rec := get("/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	rec = get("/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "jsbridge_handles_wrapped_total") {
		t.Errorf("/metrics = %d %s", rec.Code, rec.Body.String())
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("JSBRIDGE_HANDLES_INITIAL_CAPACITY", "48")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--log-level", "debug"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{"initial_capacity: 48", "level: debug", "namespace: jsbridge"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConfigCommand_BadLevel(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "--log-level", "loud"})
	if err := root.Execute(); err == nil {
		t.Fatal("Execute() should reject an unknown log level")
	}
}
