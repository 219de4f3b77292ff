// Package metrics exports handle registry statistics to Prometheus.
//
// A Collector reads Engine.Stats on every scrape, so it adds no work to
// the wrap and dispose paths. Each series carries an "engine" label:
//
//	jsbridge_handles_slots{engine="1"} 16
//	jsbridge_handles_proxies{engine="1",state="Active"} 12
//	jsbridge_handles_pending_requests{engine="1",queue="dispose"} 0
//	jsbridge_handles_released_total{engine="1"} 4096
//
// The namespace and subsystem come from config.Metrics.
package metrics
