package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/lifecycle"
)

// Source is an engine whose registry statistics are exported.
type Source interface {
	ID() lifecycle.EngineID
	Stats() handle.Stats
}

var _ Source = (*handle.Engine)(nil)

type counterDesc struct {
	desc  *prometheus.Desc
	value func(handle.Stats) uint64
}

// Collector exports handle registry statistics for a set of engines. It
// implements prometheus.Collector; values are read from each engine on
// scrape.
type Collector struct {
	registry *prometheus.Registry
	sources  map[lifecycle.EngineID]Source
	mu       sync.RWMutex

	disposed   *prometheus.Desc
	slots      *prometheus.Desc
	capacity   *prometheus.Desc
	free       *prometheus.Desc
	identities *prometheus.Desc
	proxies    *prometheus.Desc
	pending    *prometheus.Desc
	peak       *prometheus.Desc
	refs       *prometheus.Desc
	depth      *prometheus.Desc
	counters   []counterDesc
}

// NewCollector creates a collector named by cfg and registers it with
// registry. A nil registry gets a fresh one.
//
// Example:
//
//	c, err := metrics.NewCollector(cfg.Metrics, nil)
//	if err != nil {
//		return err
//	}
//	c.Add(eng)
//	http.Handle("/metrics", c.Handler())
func NewCollector(cfg config.Metrics, registry *prometheus.Registry) (*Collector, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "jsbridge"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "handles"
	}

	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(cfg.Namespace, cfg.Subsystem, name),
			help,
			append([]string{"engine"}, labels...),
			nil,
		)
	}
	counter := func(name, help string, value func(handle.Stats) uint64) counterDesc {
		return counterDesc{desc: desc(name+"_total", help), value: value}
	}

	c := &Collector{
		registry:   registry,
		sources:    make(map[lifecycle.EngineID]Source),
		disposed:   desc("engine_disposed", "1 once the engine has been torn down."),
		slots:      desc("slots", "Slots allocated in the registry."),
		capacity:   desc("capacity", "Slot capacity before the next reallocation."),
		free:       desc("free_slots", "Disposed slots waiting on the free list."),
		identities: desc("identities", "Objects tracked in the identity table."),
		proxies:    desc("proxies", "Proxies by lifecycle state.", "state"),
		pending:    desc("pending_requests", "Queued lifecycle requests by queue.", "queue"),
		peak:       desc("pending_requests_peak", "Highest combined queue length seen."),
		refs:       desc("persistent_refs", "Engine-side persistent references by strength.", "strength"),
		depth:      desc("callback_depth", "Host callbacks currently on the stack."),
		counters: []counterDesc{
			counter("wrapped", "Values wrapped into handles.", func(s handle.Stats) uint64 { return s.Wrapped }),
			counter("recycled", "Wraps served from the free list.", func(s handle.Stats) uint64 { return s.Recycled }),
			counter("grown", "Slot index reallocations.", func(s handle.Stats) uint64 { return s.Grown }),
			counter("queued", "Lifecycle requests queued.", func(s handle.Stats) uint64 { return s.Queued }),
			counter("drained", "Queued requests applied.", func(s handle.Stats) uint64 { return s.Drained }),
			counter("skipped", "Queued requests found stale or cancelled.", func(s handle.Stats) uint64 { return s.Skipped }),
			counter("denied", "Queued disposals refused by the host.", func(s handle.Stats) uint64 { return s.Denied }),
			counter("released", "Values released and slots freed.", func(s handle.Stats) uint64 { return s.Released }),
			counter("revived", "Weak values made strong by the host.", func(s handle.Stats) uint64 { return s.Revived }),
			counter("collected", "Weak values freed by a collection pass.", func(s handle.Stats) uint64 { return s.Collected }),
			counter("collection_passes", "Collection passes run.", func(s handle.Stats) uint64 { return s.Passes }),
		},
	}

	if err := registry.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Add starts exporting src. Adding an engine twice replaces it.
func (c *Collector) Add(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[src.ID()] = src
}

// Remove stops exporting engine id.
func (c *Collector) Remove(id lifecycle.EngineID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, id)
}

// Len returns the number of exported engines.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// Registry returns the registry the collector is registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.disposed, c.slots, c.capacity, c.free, c.identities,
		c.proxies, c.pending, c.peak, c.refs, c.depth,
	} {
		ch <- d
	}
	for _, cd := range c.counters {
		ch <- cd.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := make([]Source, 0, len(c.sources))
	for _, s := range c.sources {
		sources = append(sources, s)
	}
	c.mu.RUnlock()

	for _, src := range sources {
		c.collect(ch, src.Stats())
	}
}

func (c *Collector) collect(ch chan<- prometheus.Metric, s handle.Stats) {
	engine := strconv.FormatUint(uint64(s.Engine), 10)
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, append([]string{engine}, labels...)...)
	}

	disposed := 0.0
	if s.Disposed {
		disposed = 1
	}
	gauge(c.disposed, disposed)
	gauge(c.slots, float64(s.Slots))
	gauge(c.capacity, float64(s.Capacity))
	gauge(c.free, float64(s.Free))
	gauge(c.identities, float64(s.Identities))

	gauge(c.proxies, float64(s.Active), handle.StateActive.String())
	gauge(c.proxies, float64(s.WeakPending), handle.StateWeakPending.String())
	gauge(c.proxies, float64(s.QueuedForDisposal), handle.StateQueuedForDisposal.String())
	gauge(c.proxies, float64(s.Cached), handle.StateDisposed.String())
	gauge(c.proxies, float64(s.Destroyed), handle.StateDestroyed.String())

	gauge(c.pending, float64(s.PendingDispose), "dispose")
	gauge(c.pending, float64(s.PendingWeak), "weak")
	gauge(c.pending, float64(s.PendingStrong), "strong")
	gauge(c.peak, float64(s.PeakPending))

	gauge(c.refs, float64(s.Persistent-s.PersistentWeak), "strong")
	gauge(c.refs, float64(s.PersistentWeak), "weak")
	gauge(c.depth, float64(s.CallbackDepth))

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(s)), engine)
	}
}
