package core

import "sync"

// Semaphore is a counting signal. Wait blocks until the count is positive and
// then consumes one unit; Signal adds one unit and wakes a single waiter.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
}

func NewSemaphore(initialCount int) *Semaphore {
	s := &Semaphore{count: initialCount}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
	s.mu.Unlock()
}

// TryWait consumes one unit if available and never blocks.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	s.count--
	return true
}

func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}

// Count reports the number of pending signals.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
