package core

import (
	"sync"
	"testing"
	"time"
)

func TestSemaphore_SignalBeforeWait(t *testing.T) {
	s := NewSemaphore(0)
	s.Signal()
	s.Signal()

	s.Wait()
	s.Wait()

	if got := s.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}

func TestSemaphore_WaitBlocksUntilSignal(t *testing.T) {
	// Given: an empty semaphore and a goroutine waiting on it
	s := NewSemaphore(0)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	// Then: the waiter stays blocked while no signal exists
	select {
	case <-done:
		t.Fatal("Wait returned without a signal")
	case <-time.After(20 * time.Millisecond):
	}

	// When: a signal arrives the waiter is released
	s.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal")
	}
}

func TestSemaphore_CountsEverySignal(t *testing.T) {
	const n = 100
	s := NewSemaphore(0)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Signal()
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if !s.TryWait() {
			t.Fatalf("TryWait failed after %d units, want %d", i, n)
		}
	}
	if s.TryWait() {
		t.Fatal("TryWait succeeded on an empty semaphore")
	}
}

func TestNextHandle_Monotonic(t *testing.T) {
	prev := NextHandle()
	for i := 0; i < 10; i++ {
		h := NextHandle()
		if h <= prev {
			t.Fatalf("NextHandle() = %d after %d, want increasing", h, prev)
		}
		if h == InvalidHandle {
			t.Fatal("NextHandle returned InvalidHandle")
		}
		prev = h
	}
}

func TestFrameMetrics_PublishesFPS(t *testing.T) {
	m := NewFrameMetrics()
	published := false
	// 61 frames of ~16.6ms crosses the one second mark once
	for i := 0; i < 61; i++ {
		if m.Update(1.0 / 60.0) {
			published = true
		}
	}
	if !published {
		t.Fatal("Update never published an fps value")
	}
	if m.FPS() < 59 || m.FPS() > 61 {
		t.Fatalf("FPS() = %v, want about 60", m.FPS())
	}
	if m.FrameTime() <= 0 {
		t.Fatalf("FrameTime() = %v, want > 0", m.FrameTime())
	}
}
