package resource

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestLedger_Basic(t *testing.T) {
	l := NewLedger()

	h, err := l.Leak(KindBox, "todo")
	if err != nil {
		t.Fatalf("Leak failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := l.Get(h)
	if !ok || val != "todo" {
		t.Fatalf("Get = %v, %v", val, ok)
	}
	if _, ok := l.GetKind(h, KindBox); !ok {
		t.Fatal("GetKind with the leaked kind failed")
	}
	if _, ok := l.GetKind(h, KindVec); ok {
		t.Fatal("GetKind with another kind should fail")
	}

	val, err = l.Reclaim(h, KindBox)
	if err != nil || val != "todo" {
		t.Fatalf("Reclaim = %v, %v", val, err)
	}
	if _, ok := l.Get(h); ok {
		t.Fatal("Expected Get to fail after Reclaim")
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d", l.Len())
	}
}

func TestLedger_ReclaimOnce(t *testing.T) {
	l := NewLedger()
	h, _ := l.Leak(KindBox, 1)

	if _, err := l.Reclaim(h, KindBox); err != nil {
		t.Fatal(err)
	}
	_, err := l.Reclaim(h, KindBox)
	e, ok := errors.As(err)
	if !ok || e.Kind != errors.KindInvalidHandle {
		t.Fatalf("second Reclaim err = %v", err)
	}
}

func TestLedger_WrongFreeEntry(t *testing.T) {
	l := NewLedger()
	h, _ := l.LeakCString("x")

	if _, err := l.Reclaim(h, KindVec); err == nil {
		t.Fatal("freeing a C string as a vector should fail")
	}
	if _, ok := l.Get(h); !ok {
		t.Fatal("a rejected Reclaim must keep the allocation live")
	}
}

func TestLedger_Borrow(t *testing.T) {
	l := NewLedger()
	h, _ := l.Leak(KindVec, []int{1})

	for i := 0; i < 3; i++ {
		if !l.Borrow(h) {
			t.Fatalf("Borrow %d failed", i)
		}
	}
	if _, err := l.Reclaim(h, KindVec); err != ErrOutstandingBorrow {
		t.Fatalf("Reclaim with borrows err = %v", err)
	}
	for i := 0; i < 3; i++ {
		if !l.ReturnBorrow(h) {
			t.Fatalf("ReturnBorrow %d failed", i)
		}
	}
	if l.ReturnBorrow(h) {
		t.Fatal("ReturnBorrow without a borrow should fail")
	}
	if _, err := l.Reclaim(h, KindVec); err != nil {
		t.Fatalf("Reclaim after returning borrows: %v", err)
	}
}

func TestLedger_HandleReuse(t *testing.T) {
	l := NewLedger()
	h1, _ := l.Leak(KindBox, 1)
	h2, _ := l.Leak(KindBox, 2)

	if _, err := l.Reclaim(h1, KindBox); err != nil {
		t.Fatal(err)
	}
	h3, _ := l.Leak(KindBox, 3)
	if h3 != h1 {
		t.Errorf("freed slot not reused: got %d, want %d", h3, h1)
	}
	if v, _ := l.Get(h2); v != 2 {
		t.Errorf("h2 = %v", v)
	}
}

func TestLedger_Outstanding(t *testing.T) {
	l := NewLedger()
	a, _ := l.LeakCString("a")
	v, _ := l.Leak(KindVec, []string{})
	b, _ := l.LeakCString("b")

	if diff := cmp.Diff([]Handle{a, v, b}, l.Outstanding(0)); diff != "" {
		t.Errorf("all (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Handle{a, b}, l.Outstanding(KindCString)); diff != "" {
		t.Errorf("cstrings (-want +got):\n%s", diff)
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestLedger_Close(t *testing.T) {
	l := NewLedger()
	d := &dropCounter{}
	l.Leak(KindBox, d)
	l.Leak(KindBox, "x")

	if n := l.Close(); n != 2 {
		t.Fatalf("Close reported %d live allocations", n)
	}
	if d.count != 1 {
		t.Errorf("Drop called %d times", d.count)
	}
	if _, err := l.Leak(KindBox, 1); err != ErrClosed {
		t.Fatalf("Leak after Close err = %v", err)
	}
	if n := l.Close(); n != 0 {
		t.Errorf("second Close reported %d", n)
	}
}

func TestLedger_Observer(t *testing.T) {
	l := NewLedger()
	obs := &testObserver{}
	l.Subscribe(obs)

	h, _ := l.Leak(KindBox, "x")
	l.Borrow(h)
	l.ReturnBorrow(h)
	l.Reclaim(h, KindBox)

	var types []EventType
	for _, e := range obs.events {
		types = append(types, e.Type)
		if e.Handle != h {
			t.Errorf("event handle = %d", e.Handle)
		}
	}
	want := []EventType{EventLeaked, EventBorrowed, EventBorrowReturned, EventReclaimed}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}

	l.Unsubscribe(obs)
	l.Leak(KindBox, "y")
	if len(obs.events) != 4 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestLedger_Dropper(t *testing.T) {
	l := NewLedger()
	d := &dropCounter{}
	h, _ := l.Leak(KindBox, d)
	l.Reclaim(h, KindBox)
	if d.count != 1 {
		t.Fatalf("Drop called %d times", d.count)
	}
}

func TestLedger_InvalidHandle(t *testing.T) {
	l := NewLedger()
	for _, h := range []Handle{0, 999} {
		if _, ok := l.Get(h); ok {
			t.Errorf("Get(%d) should fail", h)
		}
		if l.Borrow(h) {
			t.Errorf("Borrow(%d) should fail", h)
		}
		if _, err := l.Reclaim(h, KindBox); err == nil {
			t.Errorf("Reclaim(%d) should fail", h)
		}
	}
}

func TestLedger_Concurrent(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, err := l.Leak(KindBox, id)
			if err != nil {
				t.Error(err)
				return
			}
			l.Borrow(h)
			l.ReturnBorrow(h)
			if _, err := l.Reclaim(h, KindBox); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	if l.Len() != 0 {
		t.Fatalf("Len = %d", l.Len())
	}
}

func TestTyped(t *testing.T) {
	l := NewLedger()
	vecs := Vecs[string](l)
	h, _ := vecs.Leak([]string{"a", "b"})
	l.LeakCString("other")

	n, err := VecLen[string](l, h)
	if err != nil || n != 2 {
		t.Fatalf("VecLen = %d, %v", n, err)
	}
	s, err := VecGet[string](l, h, 1)
	if err != nil || s != "b" {
		t.Fatalf("VecGet = %q, %v", s, err)
	}
	if _, err := VecGet[string](l, h, 2); err == nil {
		t.Error("out of range index should fail")
	}
	if _, err := VecLen[int](l, h); err == nil {
		t.Error("element type mismatch should fail")
	}
	if vecs.Len() != 1 {
		t.Errorf("typed Len = %d", vecs.Len())
	}
	if _, err := Boxes[int](l).Free(h); err == nil {
		t.Error("freeing a vector as a box should fail")
	}
	if _, err := vecs.Free(h); err != nil {
		t.Fatal(err)
	}

	maps := Maps[string, uint32](l)
	mh, _ := maps.Leak(map[string]uint32{"k": 1})
	m, ok := maps.Get(mh)
	if !ok || m["k"] != 1 {
		t.Errorf("map = %v", m)
	}
}
