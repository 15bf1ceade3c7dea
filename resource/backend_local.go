package resource

import (
	"sync"

	"github.com/wippyai/ridgen/errors"
)

var (
	ErrClosed = &errors.Error{
		Phase:  errors.PhaseRuntime,
		Kind:   errors.KindInvalidHandle,
		Detail: "resource ledger closed",
	}
	ErrOutstandingBorrow = &errors.Error{
		Phase:  errors.PhaseRuntime,
		Kind:   errors.KindInvalidHandle,
		Detail: "cannot reclaim an allocation with outstanding borrows",
	}
)

// localBackend is the in-memory slot table behind a Ledger. Freed slots
// are reused.
type localBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	kind        Kind
	borrowCount uint32
	valid       bool
}

func newLocalBackend() *localBackend {
	return &localBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (b *localBackend) create(kind Kind, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{kind: kind, value: value, valid: true}
	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// lookup returns the live entry of handle. Callers hold mu.
func (b *localBackend) lookup(handle Handle) *entry {
	if handle == 0 || handle > Handle(len(b.entries)) {
		return nil
	}
	e := &b.entries[handle-1]
	if !e.valid {
		return nil
	}
	return e
}

func (b *localBackend) get(handle Handle) (any, Kind, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, 0, false
	}
	return e.value, e.kind, true
}

// drop frees the slot of handle if it has kind and no borrows.
func (b *localBackend) drop(handle Handle, kind Kind) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, invalidHandle(handle, kind, "not live")
	}
	if e.kind != kind {
		return nil, invalidHandle(handle, kind, "is a "+e.kind.String())
	}
	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}

	value := e.value
	*e = entry{}
	b.freeList = append(b.freeList, handle)
	return value, nil
}

func (b *localBackend) borrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}
	e.borrowCount++
	return true
}

func (b *localBackend) returnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return false
	}
	e.borrowCount--
	return true
}

func (b *localBackend) close() []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []any
	for i := range b.entries {
		if b.entries[i].valid {
			live = append(live, b.entries[i].value)
		}
	}
	b.entries = nil
	b.freeList = nil
	return live
}

func (b *localBackend) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (b *localBackend) each(fn func(Handle, Kind, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.kind, e.value) {
				break
			}
		}
	}
}

func invalidHandle(h Handle, kind Kind, why string) *errors.Error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidHandle).
		Path(kind.String()).
		Value(h).
		Detail("handle %d %s", h, why).
		Build()
}
