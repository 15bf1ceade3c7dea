package resource

import (
	"github.com/wippyai/ridgen/errors"
)

// Typed is a typed view of one kind of allocation in a Ledger.
type Typed[T any] struct {
	ledger *Ledger
	kind   Kind
}

// Vecs views the foreign vectors of element type T.
func Vecs[T any](l *Ledger) *Typed[[]T] {
	return &Typed[[]T]{ledger: l, kind: KindVec}
}

// Maps views the hash maps handed out by value.
func Maps[K comparable, V any](l *Ledger) *Typed[map[K]V] {
	return &Typed[map[K]V]{ledger: l, kind: KindHashMap}
}

// Boxes views boxed structs of type T.
func Boxes[T any](l *Ledger) *Typed[*T] {
	return &Typed[*T]{ledger: l, kind: KindBox}
}

// Leak hands value to the host.
func (t *Typed[T]) Leak(value T) (Handle, error) {
	return t.ledger.Leak(t.kind, value)
}

// Get returns the value behind h.
func (t *Typed[T]) Get(h Handle) (T, bool) {
	var zero T
	v, ok := t.ledger.GetKind(h, t.kind)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}

// Free reclaims h.
func (t *Typed[T]) Free(h Handle) (T, error) {
	var zero T
	if _, ok := t.Get(h); !ok {
		return zero, invalidHandle(h, t.kind, "is not of the viewed type")
	}
	v, err := t.ledger.Reclaim(h, t.kind)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Each iterates the live allocations of the viewed type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.ledger.backend.each(func(h Handle, k Kind, v any) bool {
		if k != t.kind {
			return true
		}
		tv, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, tv)
	})
}

// Len returns the number of live allocations of the viewed type.
func (t *Typed[T]) Len() int {
	n := 0
	t.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// VecLen is rid_len_ridvec_{T}.
func VecLen[T any](l *Ledger, h Handle) (int, error) {
	v, ok := Vecs[T](l).Get(h)
	if !ok {
		return 0, invalidHandle(h, KindVec, "is not a live vector")
	}
	return len(v), nil
}

// VecGet is rid_get_item_ridvec_{T}.
func VecGet[T any](l *Ledger, h Handle, idx int) (T, error) {
	var zero T
	v, ok := Vecs[T](l).Get(h)
	if !ok {
		return zero, invalidHandle(h, KindVec, "is not a live vector")
	}
	if idx < 0 || idx >= len(v) {
		return zero, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(KindVec.String()).
			Value(idx).
			Detail("index %d out of range for length %d", idx, len(v)).
			Build()
	}
	return v[idx], nil
}
