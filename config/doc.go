// Package config loads jsbridge settings.
//
// Configuration comes from three layers, lowest first: built-in defaults,
// an optional YAML file, and JSBRIDGE_* environment variables:
//
//	handles:
//	  initial_capacity: 64
//	  collect_on_exhaustion: true
//	  exhaustion_budget: 128
//	log:
//	  level: debug
//	metrics:
//	  address: ":9464"
//
//	cfg, err := config.Load("jsbridge.yaml")
//	eng, err := handle.New(guard, handle.WithConfig(cfg.Handles))
//
// Nested keys map to environment names by joining with underscores, e.g.
// JSBRIDGE_HANDLES_INITIAL_CAPACITY=64.
package config
