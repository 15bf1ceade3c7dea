package access

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/model"
)

// Kind tells how a container reached the host.
type Kind int

const (
	// FieldReference is a container borrowed from a live struct; its
	// lifetime is tied to the owner and it is never freed by the host.
	FieldReference Kind = iota
	// MethodReturn is a container produced by an entry; the host owns it
	// and must free it.
	MethodReturn
)

func (k Kind) String() string {
	if k == MethodReturn {
		return "method_return"
	}
	return "field_reference"
}

// Functions names the entries an access renders. Empty names are not
// rendered.
type Functions struct {
	Len         string
	Get         string
	ContainsKey string
	Keys        string
	Free        string
}

// Names lists the non-empty function names.
func (f Functions) Names() []string {
	var out []string
	for _, n := range []string{f.Len, f.Get, f.ContainsKey, f.Keys, f.Free} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Access is one container exposed to the host. Vectors and hash maps both
// implement it so a single Aggregator can deduplicate and render them.
type Access interface {
	// Key is the dedup key, e.g. vec_Todo or ridhash_map_String_u32.
	Key() string
	Kind() Kind
	Span() errors.Span
	Functions() Functions
	// Container is the owned container type.
	Container() *model.RustType
	// Elements are the leaf types the access signatures mention.
	Elements() []*model.RustType
	// Nested are accesses this one needs on the host, e.g. the key vector
	// of a hash map.
	Nested() []Access
	RenderNative(b *strings.Builder)
	RenderHost(b *strings.Builder)
}

// For builds the access for a container type. ok is false when rt is not
// a Vec or HashMap.
func For(rt *model.RustType, kind Kind) (Access, bool) {
	c, ok := rt.Composite()
	if !ok {
		return nil, false
	}
	switch c.Kind {
	case model.CompositeVec:
		return NewVec(c.Inner, kind, rt.Span), true
	case model.CompositeHashMap:
		return NewHashMap(c.Inner, c.Inner2, kind, rt.Span), true
	}
	return nil, false
}

// KindOf returns the access kind of a container in return position: owned
// containers are method returns, borrowed ones reference a field.
func KindOf(rt *model.RustType) Kind {
	if rt.IsRef() {
		return FieldReference
	}
	return MethodReturn
}

func ledgerKind(a Access) genstate.Kind {
	if _, ok := a.(*VecAccess); ok {
		return genstate.VecAccess
	}
	return genstate.CollectionAccess
}

// Aggregator collects the accesses of a translation unit. Each key is
// registered once; registering an access also registers its nested ones.
type Aggregator struct {
	ctx   *genstate.GenCtx
	order []Access
}

// NewAggregator creates an aggregator recording into ctx.
func NewAggregator(ctx *genstate.GenCtx) *Aggregator {
	return &Aggregator{ctx: ctx}
}

// Register records a for user. It reports whether a was new.
func (g *Aggregator) Register(a Access, user string) bool {
	if !g.ctx.Claim(ledgerKind(a), a.Key(), user) {
		return false
	}
	if free := a.Functions().Free; free != "" {
		g.ctx.Claim(genstate.Free, free, user)
	}
	g.order = append(g.order, a)
	Logger().Debug("registered access", zap.String("key", a.Key()), zap.Stringer("kind", a.Kind()), zap.String("user", user))

	for _, n := range a.Nested() {
		g.Register(n, a.Key())
	}
	return true
}

// RegisterType registers the access of a container type, if rt is one.
func (g *Aggregator) RegisterType(rt *model.RustType, kind Kind, user string) (Access, bool) {
	a, ok := For(rt, kind)
	if !ok {
		return nil, false
	}
	g.Register(a, user)
	return a, true
}

// Accesses returns the registered accesses in registration order.
func (g *Aggregator) Accesses() []Access {
	return append([]Access(nil), g.order...)
}

// Get returns the access with the given key.
func (g *Aggregator) Get(key string) (Access, bool) {
	for _, a := range g.order {
		if a.Key() == key {
			return a, true
		}
	}
	return nil, false
}

// RenderNative writes the native functions of every access.
func (g *Aggregator) RenderNative(b *strings.Builder) {
	for _, a := range g.order {
		a.RenderNative(b)
	}
}

// RenderHost writes the host bindings and wrappers of every access.
func (g *Aggregator) RenderHost(b *strings.Builder) {
	for _, a := range g.order {
		a.RenderHost(b)
	}
}
