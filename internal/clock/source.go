package clock

import (
	"sort"
	"sync"
	"time"
)

// Source schedules callbacks. Implementations must not hold internal locks while calling fn.
type Source interface {
	// Every calls fn once per period until stop is called.
	Every(period time.Duration, fn func()) (stop func())
	// After calls fn once after d unless stop is called first.
	After(d time.Duration, fn func()) (stop func())
}

// RealSource drives callbacks from wall-clock time.
type RealSource struct{}

func (RealSource) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func (RealSource) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualSource fires callbacks only when told to. Tests use it to drive sessions
// deterministically from a single goroutine.
type ManualSource struct {
	mu      sync.Mutex
	nextID  int
	tickers map[int]func()
	timers  map[int]func()
}

func NewManualSource() *ManualSource {
	return &ManualSource{
		tickers: make(map[int]func()),
		timers:  make(map[int]func()),
	}
}

func (s *ManualSource) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.tickers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.tickers, id)
		s.mu.Unlock()
	}
}

func (s *ManualSource) After(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.timers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
	}
}

// Tick fires every active periodic callback once, in registration order.
func (s *ManualSource) Tick() {
	for _, fn := range s.snapshot(s.tickers, false) {
		fn()
	}
}

// TickN calls Tick n times.
func (s *ManualSource) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Flush fires and removes every pending one-shot callback.
func (s *ManualSource) Flush() {
	for _, fn := range s.snapshot(s.timers, true) {
		fn()
	}
}

// Active reports the number of running periodic callbacks.
func (s *ManualSource) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickers)
}

// Pending reports the number of one-shot callbacks not yet fired or stopped.
func (s *ManualSource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ManualSource) snapshot(set map[int]func(), remove bool) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, set[id])
		if remove {
			delete(set, id)
		}
	}
	return fns
}
