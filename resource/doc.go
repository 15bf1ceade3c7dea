// Package resource tracks ownership of foreign allocations handed across
// the native/host boundary.
//
// Every value the native side gives away (a C string, a foreign vector, a
// hash map returned by value, a boxed struct) stays owned by the host
// until it is passed back to the matching free entry. The Ledger records
// each transfer under a handle and checks that it comes back exactly once
// and through the right entry:
//
//	l := resource.NewLedger()
//
//	h, _ := l.LeakCString("buy milk")  // rid: CString::into_raw
//	s, err := l.ReclaimCString(h)      // host: toDartString + rid_cstring_free
//
// # Kinds
//
//	KindCString  freed by rid_cstring_free
//	KindVec      freed by rid_free_ridvec_{T}
//	KindHashMap  freed by rid_free_ridhash_map_{K}_{V}
//	KindBox      freed by rid_free_{T}
//
// Typed views give element access the way the generated accessors do:
//
//	todos := resource.Vecs[string](l)
//	h, _ := todos.Leak([]string{"a", "b"})
//	n, _ := resource.VecLen[string](l, h)   // rid_len_ridvec_String
//	s, _ := resource.VecGet[string](l, h, 1) // rid_get_item_ridvec_String
//	todos.Free(h)                            // rid_free_ridvec_String
//
// # Borrows
//
// Field references are borrowed, not owned. Borrow pins a handle so that a
// Reclaim attempted while a borrow is outstanding fails.
//
// # Observers
//
// Observers see every transfer:
//
//	l.Subscribe(obs) // OnResourceEvent(Event{Type: EventLeaked, ...})
//
// Close reports how many allocations were never reclaimed.
package resource
