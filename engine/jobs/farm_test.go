package jobs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine/core"
)

func newTestFarm(t *testing.T, workers int) *Farm {
	t.Helper()
	f, err := NewFarm("test-farm", workers)
	if err != nil {
		t.Fatalf("NewFarm() error = %v", err)
	}
	t.Cleanup(f.KillWorkers)
	return f
}

func waitIdle(t *testing.T, f *Farm) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- f.WaitIdle() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitIdle() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("farm did not become idle")
	}
}

func TestNewFarm_RejectsZeroWorkers(t *testing.T) {
	if _, err := NewFarm("empty", 0); !errors.Is(err, ErrNoWorkers) {
		t.Fatalf("NewFarm(0) error = %v, want ErrNoWorkers", err)
	}
}

func TestFarm_HoldsWorkUntilStarted(t *testing.T) {
	f := newTestFarm(t, 2)
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		f.Submit(func() { ran.Add(1) })
	}

	time.Sleep(20 * time.Millisecond)
	if ran.Load() != 0 {
		t.Fatalf("%d tasks ran before StartWork", ran.Load())
	}
	if err := f.WaitIdle(); !errors.Is(err, core.ErrNotStarted) {
		t.Fatalf("WaitIdle() before start error = %v, want ErrNotStarted", err)
	}

	f.StartWork()
	waitIdle(t, f)
	if ran.Load() != 5 {
		t.Fatalf("ran = %d, want 5", ran.Load())
	}
}

func TestFarm_BarrierOrdering(t *testing.T) {
	// Given: A1..A3, a barrier, B1..B3 queued before work starts
	f := newTestFarm(t, 4)
	var aDone atomic.Int32
	var violations atomic.Int32
	for i := 0; i < 3; i++ {
		f.Submit(func() {
			time.Sleep(10 * time.Millisecond)
			aDone.Add(1)
		})
	}
	f.AddBarrier()
	for i := 0; i < 3; i++ {
		f.Submit(func() {
			if aDone.Load() != 3 {
				violations.Add(1)
			}
		})
	}

	// When: work starts
	f.StartWork()
	waitIdle(t, f)

	// Then: no B task started before every A task completed
	if violations.Load() != 0 {
		t.Fatalf("%d tasks after the barrier started early", violations.Load())
	}
	if got := f.Stats().Completed; got != 6 {
		t.Fatalf("Completed = %d, want 6", got)
	}
}

func TestFarm_MultipleBarriers(t *testing.T) {
	f := newTestFarm(t, 3)
	var mu sync.Mutex
	var phases []int
	record := func(phase int) Task {
		return func() {
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			phases = append(phases, phase)
			mu.Unlock()
		}
	}
	for phase := 0; phase < 3; phase++ {
		for i := 0; i < 4; i++ {
			f.Submit(record(phase))
		}
		f.AddBarrier()
	}
	f.StartWork()
	waitIdle(t, f)

	if len(phases) != 12 {
		t.Fatalf("len(phases) = %d, want 12", len(phases))
	}
	for i := 1; i < len(phases); i++ {
		if phases[i] < phases[i-1] {
			t.Fatalf("phase %d finished after phase %d: %v", phases[i-1], phases[i], phases)
		}
	}
}

func TestFarm_BarrierAfterStartHoldsNewWork(t *testing.T) {
	// Given: a started farm with one slow task in flight
	f := newTestFarm(t, 2)
	f.StartWork()
	release := make(chan struct{})
	var slowDone atomic.Bool
	f.Submit(func() {
		<-release
		slowDone.Store(true)
	})

	// When: a barrier and a new task are added while it runs
	f.AddBarrier()
	var sawSlowDone atomic.Bool
	f.Submit(func() { sawSlowDone.Store(slowDone.Load()) })
	if got := f.Stats().Pending; got != 1 {
		t.Fatalf("Pending = %d, want 1 while the barrier is active", got)
	}
	close(release)
	waitIdle(t, f)

	// Then: the new task observed the slow task as completed
	if !sawSlowDone.Load() {
		t.Fatal("task after the barrier ran before the slow task completed")
	}
}

func TestFarm_StartWorkAgainKeepsBarrier(t *testing.T) {
	// Given: a started farm with a slow task held in front of a barrier
	f := newTestFarm(t, 3)
	f.StartWork()
	release := make(chan struct{})
	var slowDone atomic.Bool
	f.Submit(func() {
		<-release
		slowDone.Store(true)
	})
	f.AddBarrier()
	var sawSlowDone atomic.Bool
	f.Submit(func() { sawSlowDone.Store(slowDone.Load()) })

	// When: StartWork is called again while the barrier is active
	f.StartWork()
	if got := f.Stats().Pending; got != 1 {
		t.Fatalf("Pending = %d, want 1 after a second StartWork", got)
	}
	close(release)
	waitIdle(t, f)

	// Then: the held task still ran after the slow one completed
	if !sawSlowDone.Load() {
		t.Fatal("second StartWork released work past an active barrier")
	}
	if got := f.Stats().Completed; got != 2 {
		t.Fatalf("Completed = %d, want 2", got)
	}
}

func TestFarm_BarrierWithNothingOutstanding(t *testing.T) {
	// Given: a started, idle farm
	f := newTestFarm(t, 2)
	f.StartWork()

	// When: a barrier is added and then a task
	f.AddBarrier()
	done := make(chan struct{})
	f.Submit(func() { close(done) })

	// Then: the task is dispatched at once
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was held by a barrier with nothing to wait on")
	}
}

func TestFarm_EmptyBarriersAroundStart(t *testing.T) {
	// Given: barriers with nothing pending before and after StartWork
	f := newTestFarm(t, 2)
	f.AddBarrier()
	f.AddBarrier()

	// When: work starts and another empty barrier follows
	f.StartWork()
	if s := f.Stats(); s.Active != 0 || s.Pending != 0 {
		t.Fatalf("Stats() = %+v, want nothing active or pending", s)
	}
	f.AddBarrier()

	// Then: nothing hangs and later work still runs
	var ran atomic.Bool
	f.Submit(func() { ran.Store(true) })
	waitIdle(t, f)
	if !ran.Load() {
		t.Fatal("task after empty barriers did not run")
	}
	if s := f.Stats(); s.Barriers != 3 || s.Completed != 1 {
		t.Fatalf("Stats() = %+v, want 3 barriers and 1 completed task", s)
	}
}

func TestFarm_BestWorkerPrefersIdle(t *testing.T) {
	f := newTestFarm(t, 3)
	f.workers[0].load.Store(2)
	f.workers[1].load.Store(1)
	f.workers[2].load.Store(0)

	if got := f.bestWorkerLocked(); got != f.workers[2] {
		t.Fatalf("bestWorker = %s, want %s", got.Name(), f.workers[2].Name())
	}

	f.workers[2].load.Store(3)
	if got := f.bestWorkerLocked(); got != f.workers[1] {
		t.Fatalf("bestWorker = %s, want %s", got.Name(), f.workers[1].Name())
	}
	for _, w := range f.workers {
		w.load.Store(0)
	}
}

func TestFarm_PanicDoesNotStallBarrier(t *testing.T) {
	f := newTestFarm(t, 2)
	f.Submit(func() { panic("broken task") })
	f.AddBarrier()
	done := make(chan struct{})
	f.Submit(func() { close(done) })
	f.StartWork()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier never released after a panicking task")
	}
}

func TestFarm_CompletionRunsOnSameWorker(t *testing.T) {
	f := newTestFarm(t, 4)
	f.StartWork()
	var order []string
	var mu sync.Mutex
	done := make(chan struct{})
	f.SubmitWithCompletion(func() {
		mu.Lock()
		order = append(order, "task")
		mu.Unlock()
	}, func() {
		mu.Lock()
		order = append(order, "done")
		mu.Unlock()
		close(done)
	})
	<-done
	if len(order) != 2 || order[0] != "task" || order[1] != "done" {
		t.Fatalf("order = %v, want [task done]", order)
	}
}

func TestFarm_KillWorkersDropsLaterWork(t *testing.T) {
	f, err := NewFarm("killed", 2)
	if err != nil {
		t.Fatal(err)
	}
	f.Submit(func() {})
	f.KillWorkers()
	f.Submit(func() {})

	s := f.Stats()
	if s.Dropped != 2 {
		t.Fatalf("Dropped = %d, want 2", s.Dropped)
	}
	if err := f.WaitIdle(); !errors.Is(err, core.ErrTerminated) {
		t.Fatalf("WaitIdle() error = %v, want ErrTerminated", err)
	}
	// second kill is a no-op
	f.KillWorkers()
}

func TestFarm_Grow(t *testing.T) {
	f := newTestFarm(t, 1)
	f.Grow(3)
	if got := f.Workers(); got != 4 {
		t.Fatalf("Workers() = %d, want 4", got)
	}
}
