// Package lifecycle provides the engine lifecycle guard.
//
// A Registry issues small monotonically increasing engine ids and records
// which engines have been torn down. Engines receive the registry by
// reference at construction:
//
//	guard := lifecycle.New()
//	defer guard.Close()
//
//	eng, err := handle.New(guard)
//
// Once an engine is marked disposed, every proxy belonging to it treats
// itself as unrecoverable: releases become immediate frees instead of
// returning slots to the free list, and weak/strong requests are ignored.
package lifecycle
