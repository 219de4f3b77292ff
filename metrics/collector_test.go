package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/lifecycle"
)

func testConfig() config.Metrics {
	return config.Metrics{Namespace: "test", Subsystem: "handles"}
}

func newEngine(t *testing.T) *handle.Engine {
	t.Helper()
	eng, err := handle.New(lifecycle.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestNewCollector_Defaults(t *testing.T) {
	c, err := NewCollector(config.Metrics{}, nil)
	require.NoError(t, err)
	require.NotNil(t, c.Registry())

	c.Add(newEngine(t))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "jsbridge_handles_slots"))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewCollector(testConfig(), registry)
	require.NoError(t, err)

	_, err = NewCollector(testConfig(), registry)
	assert.Error(t, err)
}

func TestCollector_Gauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := NewCollector(testConfig(), registry)
	require.NoError(t, err)

	eng := newEngine(t)
	c.Add(eng)

	eng.Lock()
	a := eng.NewObject()
	b := eng.NewObject()
	eng.NewObject()
	eng.RequestDispose(a)
	eng.RequestMakeWeak(b)
	eng.Unlock()

	expected := `
# HELP test_handles_slots Slots allocated in the registry.
# TYPE test_handles_slots gauge
test_handles_slots{engine="1"} 3
# HELP test_handles_free_slots Disposed slots waiting on the free list.
# TYPE test_handles_free_slots gauge
test_handles_free_slots{engine="1"} 1
# HELP test_handles_proxies Proxies by lifecycle state.
# TYPE test_handles_proxies gauge
test_handles_proxies{engine="1",state="Active"} 1
test_handles_proxies{engine="1",state="Destroyed"} 0
test_handles_proxies{engine="1",state="Disposed"} 1
test_handles_proxies{engine="1",state="QueuedForDisposal"} 0
test_handles_proxies{engine="1",state="WeakPending"} 1
# HELP test_handles_persistent_refs Engine-side persistent references by strength.
# TYPE test_handles_persistent_refs gauge
test_handles_persistent_refs{engine="1",strength="strong"} 1
test_handles_persistent_refs{engine="1",strength="weak"} 1
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"test_handles_slots",
		"test_handles_free_slots",
		"test_handles_proxies",
		"test_handles_persistent_refs",
	)
	assert.NoError(t, err)
}

func TestCollector_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := NewCollector(testConfig(), registry)
	require.NoError(t, err)

	eng := newEngine(t)
	c.Add(eng)

	eng.Lock()
	for i := 0; i < 5; i++ {
		h := eng.NewObject()
		eng.Callback(func() { eng.RequestDispose(h) })
		eng.Drain(1)
	}
	eng.Unlock()

	expected := `
# HELP test_handles_wrapped_total Values wrapped into handles.
# TYPE test_handles_wrapped_total counter
test_handles_wrapped_total{engine="1"} 5
# HELP test_handles_recycled_total Wraps served from the free list.
# TYPE test_handles_recycled_total counter
test_handles_recycled_total{engine="1"} 4
# HELP test_handles_queued_total Lifecycle requests queued.
# TYPE test_handles_queued_total counter
test_handles_queued_total{engine="1"} 5
# HELP test_handles_released_total Values released and slots freed.
# TYPE test_handles_released_total counter
test_handles_released_total{engine="1"} 5
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"test_handles_wrapped_total",
		"test_handles_recycled_total",
		"test_handles_queued_total",
		"test_handles_released_total",
	)
	assert.NoError(t, err)
}

func TestCollector_AddRemove(t *testing.T) {
	c, err := NewCollector(testConfig(), nil)
	require.NoError(t, err)

	guard := lifecycle.New()
	first, err := handle.New(guard)
	require.NoError(t, err)
	second, err := handle.New(guard)
	require.NoError(t, err)
	defer first.Close()
	defer second.Close()

	c.Add(first)
	c.Add(second)
	c.Add(first)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, testutil.CollectAndCount(c, "test_handles_capacity"))

	c.Remove(first.ID())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, testutil.CollectAndCount(c, "test_handles_capacity"))
}

func TestCollector_DisposedEngine(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := NewCollector(testConfig(), registry)
	require.NoError(t, err)

	eng := newEngine(t)
	c.Add(eng)
	require.NoError(t, eng.Close())

	expected := `
# HELP test_handles_engine_disposed 1 once the engine has been torn down.
# TYPE test_handles_engine_disposed gauge
test_handles_engine_disposed{engine="1"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_handles_engine_disposed"))
}

func TestCollector_Handler(t *testing.T) {
	c, err := NewCollector(testConfig(), nil)
	require.NoError(t, err)
	c.Add(newEngine(t))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_handles_slots{engine="1"} 0`)
	assert.Contains(t, string(body), "test_handles_collection_passes_total")
}

var _ Source = fakeSource{}

type fakeSource struct{ stats handle.Stats }

func (f fakeSource) ID() lifecycle.EngineID { return f.stats.Engine }
func (f fakeSource) Stats() handle.Stats    { return f.stats }

func TestCollector_Source(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := NewCollector(testConfig(), registry)
	require.NoError(t, err)

	c.Add(fakeSource{stats: handle.Stats{
		Engine:         9,
		PendingDispose: 3,
		PendingWeak:    2,
		PeakPending:    7,
		CallbackDepth:  1,
	}})

	expected := `
# HELP test_handles_pending_requests Queued lifecycle requests by queue.
# TYPE test_handles_pending_requests gauge
test_handles_pending_requests{engine="9",queue="dispose"} 3
test_handles_pending_requests{engine="9",queue="strong"} 0
test_handles_pending_requests{engine="9",queue="weak"} 2
# HELP test_handles_pending_requests_peak Highest combined queue length seen.
# TYPE test_handles_pending_requests_peak gauge
test_handles_pending_requests_peak{engine="9"} 7
# HELP test_handles_callback_depth Host callbacks currently on the stack.
# TYPE test_handles_callback_depth gauge
test_handles_callback_depth{engine="9"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"test_handles_pending_requests",
		"test_handles_pending_requests_peak",
		"test_handles_callback_depth",
	))
}
