package resources

import (
	"sync"
	"sync/atomic"
	"testing"
)

type counterFactory struct {
	*Factory[*Script]
	loads    atomic.Int32
	destroys atomic.Int32
}

func newCounterFactory() *counterFactory {
	cf := &counterFactory{}
	cf.Factory = NewFactory("Script",
		func() *Script { return &Script{} },
		func(*Script) { cf.loads.Add(1) },
		func(*Script) { cf.destroys.Add(1) },
	)
	return cf
}

func TestFactory_SharesByName(t *testing.T) {
	f := newCounterFactory()

	a := f.Acquire("scripts/main")
	b := f.Acquire("scripts/main")

	if a != b {
		t.Fatal("same name produced two resources")
	}
	if a.RefCount() != 2 {
		t.Fatalf("RefCount() = %d, want 2", a.RefCount())
	}
	if f.loads.Load() != 1 {
		t.Fatalf("loads = %d, want 1", f.loads.Load())
	}

	f.Release(a)
	if f.Len() != 1 || f.destroys.Load() != 0 {
		t.Fatal("resource destroyed while still referenced")
	}
	f.Release(b)
	if f.Len() != 0 || f.destroys.Load() != 1 {
		t.Fatalf("Len() = %d destroys = %d, want 0 and 1", f.Len(), f.destroys.Load())
	}
	if !a.Released() {
		t.Fatal("released resource not flagged")
	}
}

func TestFactory_NewInstanceAfterRelease(t *testing.T) {
	f := newCounterFactory()
	a := f.Acquire("x")
	f.Release(a)

	b := f.Acquire("x")
	defer f.Release(b)

	if a == b || a.ID() == b.ID() {
		t.Fatal("a destroyed resource was handed out again")
	}
	if f.loads.Load() != 2 {
		t.Fatalf("loads = %d, want 2", f.loads.Load())
	}
}

func TestFactory_NormalizesNames(t *testing.T) {
	f := newCounterFactory()
	// "é" precomposed and as e + combining acute
	a := f.Acquire("caf\u00e9")
	b := f.Acquire("cafe\u0301")

	if a != b {
		t.Fatal("canonically equivalent names produced two resources")
	}
	if _, ok := f.Find("cafe\u0301"); !ok {
		t.Fatal("Find() did not normalise")
	}
}

func TestFactory_ConcurrentAcquire(t *testing.T) {
	f := newCounterFactory()
	const n = 64
	got := make([]*Script, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = f.Acquire("shared")
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		if s != got[0] {
			t.Fatal("concurrent acquires produced different resources")
		}
	}
	if f.loads.Load() != 1 {
		t.Fatalf("loads = %d, want 1", f.loads.Load())
	}
	if got[0].RefCount() != n {
		t.Fatalf("RefCount() = %d, want %d", got[0].RefCount(), n)
	}

	for _, s := range got {
		wg.Add(1)
		go func(s *Script) {
			defer wg.Done()
			f.Release(s)
		}(s)
	}
	wg.Wait()
	if f.destroys.Load() != 1 || f.Len() != 0 {
		t.Fatalf("destroys = %d Len() = %d, want 1 and 0", f.destroys.Load(), f.Len())
	}
}

func TestFactory_ReloadNeedsCompletedLoad(t *testing.T) {
	f := newCounterFactory()
	s := f.Acquire("x")
	defer f.Release(s)

	if f.Reload("x") {
		t.Fatal("Reload() of an in-flight resource succeeded")
	}
	s.markCompleted()
	if !f.Reload("x") {
		t.Fatal("Reload() of a loaded resource failed")
	}
	if f.Reload("missing") {
		t.Fatal("Reload() of an unknown resource succeeded")
	}
	if f.loads.Load() != 2 {
		t.Fatalf("loads = %d, want 2", f.loads.Load())
	}
}

func TestFactory_HashCollisionKeepsNamesApart(t *testing.T) {
	// Given: a factory whose hash maps every name to the same key
	f := newCounterFactory()
	f.hash = func(string) uint64 { return 42 }

	// When: two different names are acquired
	a := f.Acquire("scripts/a")
	b := f.Acquire("scripts/b")

	// Then: each name gets its own resource and both can be found and shared
	if a == b {
		t.Fatal("colliding names were handed the same resource")
	}
	if a.Name() != "scripts/a" || b.Name() != "scripts/b" {
		t.Fatalf("names = %q, %q", a.Name(), b.Name())
	}
	if got, ok := f.Find("scripts/b"); !ok || got != b {
		t.Fatal("Find() missed the colliding resource")
	}
	if again := f.Acquire("scripts/b"); again != b {
		t.Fatal("second acquire of the colliding name created a new resource")
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}

	// And: releasing one leaves the other registered
	f.Release(a)
	if _, ok := f.Find("scripts/a"); ok {
		t.Fatal("released resource still found")
	}
	if got, ok := f.Find("scripts/b"); !ok || got != b {
		t.Fatal("releasing the first name dropped the second")
	}
	f.Release(b)
	f.Release(b)
	if f.Len() != 0 || f.destroys.Load() != 2 {
		t.Fatalf("Len() = %d destroys = %d, want 0 and 2", f.Len(), f.destroys.Load())
	}
}

func TestHashName_Stable(t *testing.T) {
	if HashName("abc") != HashName("abc") {
		t.Fatal("hash not stable")
	}
	if HashName("abc") == HashName("abd") {
		t.Fatal("distinct names hashed equal")
	}
}
