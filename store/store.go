package store

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/resource"
)

// Options configures a Store.
type Options struct {
	// Warnings receives one line per lock misuse. Defaults to os.Stderr.
	Warnings io.Writer
	// Ledger tracks values exported to the host. Nil uses a private one.
	Ledger *resource.Ledger
}

// Store is the single process-wide state guarded by a reader-writer lock.
// The state is created lazily on first access.
//
// Lock and Unlock mirror the native rid_store_lock/rid_store_unlock pair: a
// read guard is parked in a slot between the two calls. A second Lock or an
// Unlock of an empty slot writes a warning and is otherwise a no-op.
// Thread-safe.
type Store[S any] struct {
	create func() *S
	state  *S
	once   sync.Once
	mu     sync.RWMutex

	slotMu sync.Mutex
	held   bool

	warnings io.Writer
	ledger   *resource.Ledger
}

// New creates a store whose state is built by create on first use.
func New[S any](create func() *S, opts Options) *Store[S] {
	if opts.Warnings == nil {
		opts.Warnings = os.Stderr
	}
	if opts.Ledger == nil {
		opts.Ledger = resource.NewLedger()
	}
	return &Store[S]{create: create, warnings: opts.Warnings, ledger: opts.Ledger}
}

func (s *Store[S]) init() {
	s.once.Do(func() {
		s.state = s.create()
		Logger().Debug("store created")
	})
}

// Read acquires the read lock. The returned func releases it.
func (s *Store[S]) Read() (*S, func()) {
	s.init()
	s.mu.RLock()
	return s.state, s.mu.RUnlock
}

// Write acquires the write lock. The returned func releases it.
func (s *Store[S]) Write() (*S, func()) {
	s.init()
	s.mu.Lock()
	return s.state, s.mu.Unlock
}

// Update runs fn under the write lock, held for exactly this call.
func (s *Store[S]) Update(fn func(*S)) {
	st, unlock := s.Write()
	defer unlock()
	fn(st)
}

// View runs fn under the read lock.
func (s *Store[S]) View(fn func(*S)) {
	st, unlock := s.Read()
	defer unlock()
	fn(st)
}

// Lock parks a read guard in the slot.
func (s *Store[S]) Lock() error {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	if s.held {
		return s.misuse("rid_store_lock called while the store is already locked; ignoring")
	}
	s.init()
	s.mu.RLock()
	s.held = true
	return nil
}

// Unlock releases the parked read guard.
func (s *Store[S]) Unlock() error {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	if !s.held {
		return s.misuse("rid_store_unlock called while the store is not locked; ignoring")
	}
	s.held = false
	s.mu.RUnlock()
	return nil
}

// Locked reports whether the slot holds a read guard.
func (s *Store[S]) Locked() bool {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	return s.held
}

func (s *Store[S]) misuse(msg string) error {
	fmt.Fprintln(s.warnings, "rid: "+msg)
	err := errors.LockMisuse(msg)
	Logger().Warn("store lock misuse", zap.Error(err))
	return err
}

// Create returns the state, read under the lock like create_store. The
// pointer stays valid for the life of the process.
func (s *Store[S]) Create() *S {
	st, unlock := s.Read()
	unlock()
	return st
}

// Free releases a read guard parked by Lock, then waits for outstanding
// readers and the writer to finish. The state is not dropped.
func (s *Store[S]) Free() {
	s.slotMu.Lock()
	if s.held {
		s.held = false
		s.mu.RUnlock()
		Logger().Debug("store freed while locked; released the parked guard")
	}
	s.slotMu.Unlock()
	_, unlock := s.Write()
	unlock()
	if n := s.ledger.Len(); n > 0 {
		Logger().Warn("store freed with exported values outstanding", zap.Int("outstanding", n))
	}
	Logger().Debug("store drained")
}
