package store

import (
	"go.uber.org/zap"

	"github.com/wippyai/ridgen/resource"
)

// ExportBox runs fn under the read lock and hands its result to the host as
// a box, like an export returning an owned struct. The host releases it
// with FreeBox.
func ExportBox[S, T any](s *Store[S], fn func(*S) *T) (resource.Handle, error) {
	st, unlock := s.Read()
	v := fn(st)
	unlock()
	h, err := resource.Boxes[T](s.ledger).Leak(v)
	if err != nil {
		return 0, err
	}
	Logger().Debug("exported box", zap.Uint64("handle", uint64(h)))
	return h, nil
}

// FreeBox is rid_free_{T}.
func FreeBox[S, T any](s *Store[S], h resource.Handle) (*T, error) {
	return resource.Boxes[T](s.ledger).Free(h)
}

// ExportVec runs fn under the read lock and hands the returned vector to
// the host. Its elements are read with resource.VecLen and resource.VecGet
// on Ledger until FreeVec.
func ExportVec[S, T any](s *Store[S], fn func(*S) []T) (resource.Handle, error) {
	st, unlock := s.Read()
	v := fn(st)
	unlock()
	h, err := resource.Vecs[T](s.ledger).Leak(v)
	if err != nil {
		return 0, err
	}
	Logger().Debug("exported vec", zap.Uint64("handle", uint64(h)), zap.Int("len", len(v)))
	return h, nil
}

// FreeVec releases an exported vector through its rid_free_ entry.
func FreeVec[S, T any](s *Store[S], h resource.Handle) ([]T, error) {
	return resource.Vecs[T](s.ledger).Free(h)
}

// Ledger returns the ledger of values handed to the host.
func (s *Store[S]) Ledger() *resource.Ledger {
	return s.ledger
}
