package resource

import (
	"sync"

	"go.uber.org/zap"
)

// Ledger tracks allocations handed across the boundary. An allocation is
// leaked to the host by Leak and must come back through Reclaim with the
// kind it was leaked as; anything still live at Close is reported.
// Thread-safe.
type Ledger struct {
	backend   *localBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{backend: newLocalBackend()}
}

// Leak hands value to the host and returns its handle.
func (l *Ledger) Leak(kind Kind, value any) (Handle, error) {
	h, err := l.backend.create(kind, value)
	if err != nil {
		return 0, err
	}
	l.notify(Event{Type: EventLeaked, Handle: h, Kind: kind, Value: value})
	return h, nil
}

// Get returns the value of a live handle.
func (l *Ledger) Get(h Handle) (any, bool) {
	v, _, ok := l.backend.get(h)
	return v, ok
}

// GetKind returns the value only if h was leaked as kind.
func (l *Ledger) GetKind(h Handle, kind Kind) (any, bool) {
	v, k, ok := l.backend.get(h)
	if !ok || k != kind {
		return nil, false
	}
	return v, true
}

// Reclaim takes ownership of h back. It fails for unknown handles, for a
// kind mismatch (freeing through the wrong entry), and while borrows are
// outstanding.
func (l *Ledger) Reclaim(h Handle, kind Kind) (any, error) {
	value, err := l.backend.drop(h, kind)
	if err != nil {
		Logger().Debug("reclaim rejected", zap.Uint64("handle", uint64(h)), zap.Stringer("kind", kind), zap.Error(err))
		return nil, err
	}
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	l.notify(Event{Type: EventReclaimed, Handle: h, Kind: kind, Value: value})
	return value, nil
}

// Borrow pins h against reclamation, the way a read guard pins a field
// reference.
func (l *Ledger) Borrow(h Handle) bool {
	if !l.backend.borrow(h) {
		return false
	}
	l.notify(Event{Type: EventBorrowed, Handle: h})
	return true
}

// ReturnBorrow releases one Borrow.
func (l *Ledger) ReturnBorrow(h Handle) bool {
	if !l.backend.returnBorrow(h) {
		return false
	}
	l.notify(Event{Type: EventBorrowReturned, Handle: h})
	return true
}

// Subscribe adds an observer.
func (l *Ledger) Subscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, o)
}

// Unsubscribe removes an observer.
func (l *Ledger) Unsubscribe(o Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	for i, obs := range l.observers {
		if obs == o {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live allocations.
func (l *Ledger) Len() int {
	return l.backend.len()
}

// Outstanding lists the live handles of kind, or of every kind when kind
// is 0.
func (l *Ledger) Outstanding(kind Kind) []Handle {
	var hs []Handle
	l.backend.each(func(h Handle, k Kind, _ any) bool {
		if kind == 0 || k == kind {
			hs = append(hs, h)
		}
		return true
	})
	return hs
}

// Close stops accepting allocations and returns the number left live.
// Live values implementing Dropper are dropped.
func (l *Ledger) Close() int {
	live := l.backend.close()
	for _, v := range live {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	if len(live) > 0 {
		Logger().Warn("allocations leaked at close", zap.Int("count", len(live)))
	}
	return len(live)
}

func (l *Ledger) notify(e Event) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, o := range l.observers {
		o.OnResourceEvent(e)
	}
}
