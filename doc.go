// Package jsbridge manages the lifetime of script values shared between a
// Go host and an embedded JavaScript engine.
//
// Two collectors own every shared value: the host decides when it has
// dropped its last reference, and the engine decides when nothing in
// script can reach the value any more. jsbridge hands the host a Handle
// for each wrapped value, recycles handle slots through a free list, keeps
// one handle per script object, and frees a value only once both sides
// agree.
//
// # Architecture Overview
//
//	jsbridge/          Root package with NewEngine
//	├── handle/        Engine, handle registry, transition queues, drain scheduler
//	├── value/         Value kinds, classifier and host snapshots
//	├── script/        goja adapter: classification probes, compile/run, constructors
//	├── persistent/    Engine-side strong/weak reference table and collection passes
//	├── lifecycle/     Process-wide registry of live and disposed engines
//	├── config/        YAML/env configuration (viper)
//	├── metrics/       Prometheus collector over engine statistics
//	├── errors/        Structured error types
//	└── cmd/handlestat Workload driver and live dashboard
//
// # Quick Start
//
//	eng, err := jsbridge.NewEngine(config.Default(), host)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.Lock()
//	h := eng.Execute("greet.js", "({greeting: 'hello'})")
//	eng.Unlock()
//
//	// Later, possibly from another goroutine:
//	eng.RequestDispose(h)
//
// # Host Cooperation
//
// The host implements handle.Host. IsDisposeReady is asked before a value
// is freed on the host's request; RevivalPredicate is asked when the
// engine finds a weak value during a collection pass. Returning false from
// both keeps the value alive.
//
// # Threading
//
// Only the goroutine holding the engine scope touches the engine.
// Disposal and weak/strong requests from other goroutines are queued and
// applied on the engine goroutine the next time it wraps a value, drains,
// idles or collects.
package jsbridge
