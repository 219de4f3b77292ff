package handle

import (
	"go.uber.org/zap"
)

// Drain applies up to maxSteps rounds of queued requests. Each round pops
// at most one request of each kind, newest first. Disposals stay queued
// while a host callback is active. Drain enters the engine scope, so it
// always runs as the engine goroutine. It returns the number of requests
// applied.
func (e *Engine) Drain(maxSteps int) int {
	e.scope.enter()
	defer e.scope.exit()

	if e.Disposed() {
		return 0
	}
	return e.drain(maxSteps)
}

func (e *Engine) drain(maxSteps int) int {
	applied, skipped := 0, 0

	for i := 0; i < maxSteps; i++ {
		progressed := false

		if e.depth.Load() == 0 {
			if r, ok := e.queues[queueDispose].pop(); ok {
				progressed = true
				if e.claim(queueDispose, r) && e.applyDispose(r) {
					applied++
				} else {
					skipped++
				}
			}
		}

		for _, k := range [...]queueKind{queueWeak, queueStrong} {
			r, ok := e.queues[k].pop()
			if !ok {
				continue
			}
			progressed = true
			if !e.claim(k, r) {
				skipped++
				continue
			}
			if k == queueWeak {
				e.makeWeak(r.p, r.gen)
			} else {
				e.makeStrong(r.p, r.gen)
			}
			applied++
		}

		if !progressed {
			break
		}
	}

	if applied+skipped > 0 {
		e.stats.drained.Add(uint64(applied))
		e.stats.skipped.Add(uint64(skipped))
		e.logger.Debug("drained transition queues",
			zap.Int("applied", applied),
			zap.Int("skipped", skipped),
			zap.Int32("depth", e.depth.Load()))
	}
	return applied
}

// applyDispose handles a dequeued disposal. If the host still holds a
// reference the request is dropped and the proxy returns to its previous
// reachability; the host has to ask again.
func (e *Engine) applyDispose(r request) bool {
	if g, _ := r.p.load(); g != r.gen {
		return false
	}
	if !e.hostReady(r.p.id) {
		e.deny(r.p, r.gen)
		e.stats.denied.Add(1)
		e.logger.Debug("queued dispose denied by host", zap.Int32("handle", int32(r.p.id)))
		return false
	}
	return e.release(r.p, r.gen)
}

// Pending returns the number of waiting dispose, weak and strong requests.
func (e *Engine) Pending() (dispose, weak, strong int) {
	return e.queues[queueDispose].len(), e.queues[queueWeak].len(), e.queues[queueStrong].len()
}
