package handle

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// scope is the engine's execution lock. The goroutine holding it is the
// engine goroutine; it may re-enter freely. Every other goroutine is
// foreign and only ever enqueues lifecycle requests.
type scope struct {
	mu    sync.Mutex
	owner atomic.Uint64
	depth int // owner only
}

func (s *scope) enter() {
	gid := goroutineID()
	if s.owner.Load() == gid {
		s.depth++
		return
	}
	s.mu.Lock()
	s.owner.Store(gid)
	s.depth = 1
}

// tryEnter enters the scope unless another goroutine holds it.
func (s *scope) tryEnter() bool {
	gid := goroutineID()
	if s.owner.Load() == gid {
		s.depth++
		return true
	}
	if !s.mu.TryLock() {
		return false
	}
	s.owner.Store(gid)
	s.depth = 1
	return true
}

func (s *scope) exit() {
	s.depth--
	if s.depth == 0 {
		s.owner.Store(0)
		s.mu.Unlock()
	}
}

// held reports whether the calling goroutine is inside the scope.
func (s *scope) held() bool {
	return s.owner.Load() == goroutineID()
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine NNN ["
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
