package store

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/resource"
)

type todos struct {
	items []string
}

func newStore(w *bytes.Buffer) *Store[todos] {
	return New(func() *todos { return &todos{} }, Options{Warnings: w})
}

func TestLockSlot(t *testing.T) {
	var w bytes.Buffer
	s := newStore(&w)

	if err := s.Lock(); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	err := s.Lock()
	if err == nil {
		t.Fatal("second lock should report misuse")
	}
	if e, ok := errors.As(err); !ok || e.Kind != errors.KindLockMisuse {
		t.Errorf("error = %v", err)
	}
	if n := strings.Count(w.String(), "\n"); n != 1 {
		t.Errorf("warnings after double lock = %d, want 1", n)
	}
	if !s.Locked() {
		t.Error("slot should stay occupied")
	}

	if err := s.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if s.Locked() {
		t.Error("slot should be empty")
	}
	if n := strings.Count(w.String(), "\n"); n != 1 {
		t.Errorf("warnings after unlock = %d, want 1", n)
	}

	if err := s.Unlock(); err == nil {
		t.Error("unlock of empty slot should report misuse")
	}
	if n := strings.Count(w.String(), "\n"); n != 2 {
		t.Errorf("warnings after double unlock = %d, want 2", n)
	}
}

func TestLazyCreate(t *testing.T) {
	calls := 0
	s := New(func() *todos {
		calls++
		return &todos{items: []string{"seed"}}
	}, Options{Warnings: &bytes.Buffer{}})
	if calls != 0 {
		t.Fatal("state must not be created before use")
	}

	a := s.Create()
	b := s.Create()
	if a != b {
		t.Error("Create must return the same state")
	}
	if calls != 1 {
		t.Errorf("create called %d times", calls)
	}
	if diff := cmp.Diff([]string{"seed"}, a.items); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
}

func TestUpdateWaitsForParkedReader(t *testing.T) {
	s := newStore(&bytes.Buffer{})
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		s.Update(func(st *todos) { st.items = append(st.items, "x") })
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("update ran while a read guard was parked")
	case <-time.After(20 * time.Millisecond):
	}

	if err := s.Unlock(); err != nil {
		t.Fatal(err)
	}
	<-done
	s.View(func(st *todos) {
		if len(st.items) != 1 {
			t.Errorf("items = %v", st.items)
		}
	})
}

func TestDispatcher(t *testing.T) {
	s := newStore(&bytes.Buffer{})
	var seen []uint64
	d := NewDispatcher(s, func(st *todos, reqID uint64, msg string) {
		st.items = append(st.items, msg)
		seen = append(seen, reqID)
	})

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			d.Send(id, "todo")
		}(uint64(i))
	}
	wg.Wait()

	s.View(func(st *todos) {
		if len(st.items) != 20 {
			t.Errorf("items = %d, want 20", len(st.items))
		}
	})
	if len(seen) != 20 {
		t.Errorf("updates = %d, want 20", len(seen))
	}
}

func TestFreeDrainsReaders(t *testing.T) {
	s := newStore(&bytes.Buffer{})
	_, release := s.Read()

	done := make(chan struct{})
	go func() {
		s.Free()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("free returned with an outstanding reader")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	<-done
}

func TestFreeReleasesParkedGuard(t *testing.T) {
	var w bytes.Buffer
	s := newStore(&w)
	if err := s.Lock(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		s.Free()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("free blocked on the guard parked by lock")
	}
	if s.Locked() {
		t.Error("store still reports a parked guard")
	}
	if err := s.Unlock(); err == nil {
		t.Error("unlock after free must be reported as misuse")
	}
	s.Update(func(st *todos) { st.items = append(st.items, "after") })
}

type lockEvent struct {
	Locking bool
	Count   int
	Request string
}

func TestHostRunLockedNests(t *testing.T) {
	var w bytes.Buffer
	s := newStore(&w)
	h := NewHost(s)

	var events []lockEvent
	h.DebugLock = func(locking bool, count int, request string) {
		events = append(events, lockEvent{locking, count, request})
	}

	err := h.RunLocked("outer", func() error {
		if !s.Locked() {
			t.Error("outer call must hold the native lock")
		}
		return h.RunLocked("inner", func() error {
			if h.Depth() != 2 {
				t.Errorf("depth = %d", h.Depth())
			}
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Locked() {
		t.Error("lock must be released after the outermost call")
	}
	if w.Len() != 0 {
		t.Errorf("unexpected warnings: %q", w.String())
	}

	want := []lockEvent{
		{true, 1, "outer"},
		{true, 2, "inner"},
		{false, 1, "inner"},
		{false, 0, "outer"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("lock events (-want +got):\n%s", diff)
	}
}

func TestHostRunLockedReturnsError(t *testing.T) {
	s := newStore(&bytes.Buffer{})
	h := NewHost(s)
	want := errors.InvalidInput(errors.PhaseHost, "boom")
	if err := h.RunLocked("", func() error { return want }); err != want {
		t.Errorf("err = %v", err)
	}
	if s.Locked() || h.Depth() != 0 {
		t.Error("lock must be released on error")
	}
}

func TestExports(t *testing.T) {
	s := newStore(&bytes.Buffer{})
	s.Update(func(st *todos) { st.items = []string{"milk", "eggs"} })

	vh, err := ExportVec(s, func(st *todos) []string { return append([]string(nil), st.items...) })
	if err != nil {
		t.Fatal(err)
	}
	bh, err := ExportBox(s, func(st *todos) *todos { return &todos{items: st.items[:1]} })
	if err != nil {
		t.Fatal(err)
	}
	if s.Ledger().Len() != 2 {
		t.Fatalf("outstanding = %d", s.Ledger().Len())
	}

	if n, err := resource.VecLen[string](s.Ledger(), vh); err != nil || n != 2 {
		t.Errorf("len = %d, %v", n, err)
	}
	if v, err := resource.VecGet[string](s.Ledger(), vh, 1); err != nil || v != "eggs" {
		t.Errorf("item = %q, %v", v, err)
	}
	if _, err := FreeBox[todos, todos](s, vh); err == nil {
		t.Error("a vector handle must not free as a box")
	}

	got, err := FreeVec[todos, string](s, vh)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"milk", "eggs"}, got); diff != "" {
		t.Errorf("vec (-want +got):\n%s", diff)
	}
	if _, err := FreeVec[todos, string](s, vh); err == nil {
		t.Error("double free must fail")
	}
	b, err := FreeBox[todos, todos](s, bh)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"milk"}, b.items); diff != "" {
		t.Errorf("box (-want +got):\n%s", diff)
	}
	if s.Ledger().Len() != 0 {
		t.Errorf("outstanding = %d", s.Ledger().Len())
	}
}
