package handle

import "sync"

type queueKind uint8

const (
	queueDispose queueKind = iota
	queueWeak
	queueStrong

	queueKinds
)

var queueNames = [...]string{"dispose", "weak", "strong"}

var _ = [1]struct{}{}[len(queueNames)-int(queueKinds)]

func (k queueKind) String() string {
	return queueNames[k]
}

// request is a deferred lifecycle transition for one proxy occupancy.
type request struct {
	p   *Proxy
	gen uint32
}

// requestQueue is a LIFO stack guarded by its own mutex. It is never held
// while registry or engine state is touched.
type requestQueue struct {
	items []request
	peak  int
	mu    sync.Mutex
}

func (q *requestQueue) push(r request) {
	q.mu.Lock()
	q.items = append(q.items, r)
	if len(q.items) > q.peak {
		q.peak = len(q.items)
	}
	q.mu.Unlock()
}

func (q *requestQueue) pop() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return request{}, false
	}
	r := q.items[n-1]
	q.items[n-1] = request{}
	q.items = q.items[:n-1]
	return r, true
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *requestQueue) highWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak
}

func (q *requestQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func mark(gen uint32) uint64 {
	return uint64(gen) + 1
}

// enqueue records a request unless the same request for the same
// occupancy is already waiting. Safe from any goroutine.
func (e *Engine) enqueue(k queueKind, p *Proxy, gen uint32) bool {
	m := mark(gen)
	for {
		old := p.pending[k].Load()
		if old == m {
			return false
		}
		if p.pending[k].CompareAndSwap(old, m) {
			break
		}
	}
	e.queues[k].push(request{p: p, gen: gen})
	e.stats.queued.Add(1)
	return true
}

// claim consumes the pending mark for r. A request whose mark was
// superseded or cancelled is skipped.
func (e *Engine) claim(k queueKind, r request) bool {
	return r.p.pending[k].CompareAndSwap(mark(r.gen), 0)
}

// cancel withdraws a waiting request so a later opposite request wins.
func (e *Engine) cancel(k queueKind, p *Proxy, gen uint32) {
	p.pending[k].CompareAndSwap(mark(gen), 0)
}
