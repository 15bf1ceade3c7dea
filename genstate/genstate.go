package genstate

import (
	"fmt"
	"sort"
	"sync"
)

// Kind partitions the dedup ledger.
type Kind int

const (
	// CollectionAccess covers container access function sets.
	CollectionAccess Kind = iota
	// Free covers rid_free_* functions for handed-out wrappers.
	Free
	// UtilsModule is the shared utils module with the foreign vector type.
	UtilsModule
	// DartEnum is a host-side enum replica.
	DartEnum
	// VecAccess covers foreign vector access function sets.
	VecAccess
	// PointerAlias covers Pointer_T and PointerMut_T typedefs.
	PointerAlias
	// CStringFree is the single rid_cstring_free entry.
	CStringFree
	// Discriminant covers the from/into discriminant coders of an enum.
	Discriminant
	// Formatter covers debug and display entries of a type.
	Formatter
)

var kindNames = [...]string{
	"collection_access",
	"free",
	"utils_module",
	"dart_enum",
	"vec_access",
	"pointer_alias",
	"cstring_free",
	"discriminant",
	"formatter",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type key struct {
	kind Kind
	name string
}

// Artifact is a shared artifact recorded in the ledger. Users lists every
// item that asked for it, in request order, including requests that were
// deduplicated.
type Artifact struct {
	Kind  Kind
	Key   string
	Users []string
}

// GenCtx is the generation state of one translation unit. It is safe for
// concurrent use.
type GenCtx struct {
	mu      sync.Mutex
	emitted map[key]int
	order   []*Artifact
	unique  map[string]int
}

// New creates an empty generation state.
func New() *GenCtx {
	return &GenCtx{
		emitted: map[key]int{},
		unique:  map[string]int{},
	}
}

// Claim records that user needs the artifact (kind, name). It returns true
// exactly once per (kind, name): the caller that gets true emits it.
func (g *GenCtx) Claim(kind Kind, name, user string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key{kind, name}
	if idx, ok := g.emitted[k]; ok {
		a := g.order[idx]
		if user != "" {
			a.Users = append(a.Users, user)
		}
		return false
	}
	a := &Artifact{Kind: kind, Key: name}
	if user != "" {
		a.Users = []string{user}
	}
	g.emitted[k] = len(g.order)
	g.order = append(g.order, a)
	return true
}

// Emitted reports whether (kind, name) was claimed.
func (g *GenCtx) Emitted(kind Kind, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.emitted[key{kind, name}]
	return ok
}

// UniqueIdent mints base_1, base_2, ... so generated module names never
// collide.
func (g *GenCtx) UniqueIdent(base string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unique[base]++
	return fmt.Sprintf("%s_%d", base, g.unique[base])
}

// Artifacts returns a copy of the ledger in claim order.
func (g *GenCtx) Artifacts() []Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Artifact, len(g.order))
	for i, a := range g.order {
		out[i] = Artifact{Kind: a.Kind, Key: a.Key, Users: append([]string(nil), a.Users...)}
	}
	return out
}

// Keys returns the claimed names of one kind, sorted.
func (g *GenCtx) Keys(kind Kind) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for k := range g.emitted {
		if k.kind == kind {
			out = append(out, k.name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct artifacts.
func (g *GenCtx) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}
