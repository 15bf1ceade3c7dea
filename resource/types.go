package resource

import "fmt"

// Handle is the address of a foreign allocation handed to the host.
// Handle 0 is the null pointer and always invalid.
type Handle uint64

// Kind is the shape of a foreign allocation. Each kind has its own free
// entry on the native side.
type Kind uint8

const (
	KindCString Kind = iota + 1 // rid_cstring_free
	KindVec                     // rid_free_ridvec_{T}
	KindHashMap                 // rid_free_ridhash_map_{K}_{V}
	KindBox                     // rid_free_{T}
)

func (k Kind) String() string {
	switch k {
	case KindCString:
		return "cstring"
	case KindVec:
		return "vec"
	case KindHashMap:
		return "hash_map"
	case KindBox:
		return "box"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// EventType is an ownership transition.
type EventType uint8

const (
	EventLeaked EventType = iota
	EventReclaimed
	EventBorrowed
	EventBorrowReturned
)

// Event describes one ownership transition.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives ownership events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by values that release something when
// reclaimed.
type Dropper interface {
	Drop()
}
