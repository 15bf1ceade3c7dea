package store

import (
	"sync"

	"go.uber.org/zap"
)

// UpdateFunc handles one message under the write lock. It is expected to
// post a reply carrying reqID before returning.
type UpdateFunc[S, M any] func(state *S, reqID uint64, msg M)

// Dispatcher delivers messages to a store, one write-locked update each.
type Dispatcher[S, M any] struct {
	store  *Store[S]
	update UpdateFunc[S, M]
}

// NewDispatcher binds update to s.
func NewDispatcher[S, M any](s *Store[S], update UpdateFunc[S, M]) *Dispatcher[S, M] {
	return &Dispatcher[S, M]{store: s, update: update}
}

// Send dispatches msg. It returns once the update has completed.
func (d *Dispatcher[S, M]) Send(reqID uint64, msg M) {
	d.store.Update(func(st *S) {
		d.update(st, reqID, msg)
	})
	Logger().Debug("message dispatched", zap.Uint64("req_id", reqID))
}

// Locker is the native lock pair a Host counts over.
type Locker interface {
	Lock() error
	Unlock() error
}

// DebugLockFunc observes every host lock transition with the nesting count
// after the transition and the optional request tag.
type DebugLockFunc func(locking bool, count int, request string)

// Host is the host-side view of the store lock. RunLocked nests by
// counting: the native lock is taken on the outermost entry and released
// on the outermost exit.
type Host struct {
	locker Locker
	count  int
	mu     sync.Mutex

	// DebugLock, when set, is called on every RunLocked entry and exit.
	DebugLock DebugLockFunc
}

// NewHost creates a host lock counter over l.
func NewHost(l Locker) *Host {
	return &Host{locker: l}
}

// RunLocked runs fn while holding the read lock.
func (h *Host) RunLocked(request string, fn func() error) error {
	if err := h.enter(request); err != nil {
		return err
	}
	defer h.exit(request)
	return fn()
}

func (h *Host) enter(request string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	if h.count == 1 {
		if err := h.locker.Lock(); err != nil {
			h.count--
			return err
		}
	}
	if h.DebugLock != nil {
		h.DebugLock(true, h.count, request)
	}
	return nil
}

func (h *Host) exit(request string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count--
	if h.DebugLock != nil {
		h.DebugLock(false, h.count, request)
	}
	if h.count == 0 {
		if err := h.locker.Unlock(); err != nil {
			Logger().Warn("host unlock failed", zap.String("request", request), zap.Error(err))
		}
	}
}

// Depth returns the current nesting count.
func (h *Host) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
