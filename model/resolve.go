package model

import (
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/syntax"
)

// Resolve maps a syntactic type onto the lattice. Names that are neither
// primitives, well-known values nor present in infos resolve to Unknown;
// the caller decides whether that is an error.
//
// Only one reference layer is kept. Tuples other than (), arrays, raw
// pointers and trait objects resolve to Unknown.
func Resolve(te *syntax.TypeExpr, infos TypeInfoMap) *RustType {
	if te == nil || te.IsUnit() {
		rt := &RustType{Ident: "()", Kind: Unit{}}
		if te != nil {
			rt.Span = te.Span
		}
		return rt
	}

	rt := resolveBare(te, infos)
	rt.Span = te.Span
	if te.Ref {
		kind := Ref
		if te.Mut {
			kind = RefMut
		}
		rt.Reference = Reference{Kind: kind, Lifetime: te.Lifetime}
	}
	return rt
}

func resolveBare(te *syntax.TypeExpr, infos TypeInfoMap) *RustType {
	if te.Tuple || te.Array || te.RawPtr || te.Dyn || len(te.Path) == 0 {
		return &RustType{Ident: te.Deref().String(), Kind: Unknown{Name: te.Deref().String()}}
	}

	name := te.Name()
	rt := &RustType{Ident: name}

	if len(te.Args) == 0 {
		if p, ok := lookupPrimitive(name); ok {
			rt.Kind = Prim{P: p}
			return rt
		}
		switch name {
		case "String":
			rt.Kind = Value{Kind: ValueString}
			return rt
		case "CString":
			rt.Kind = Value{Kind: ValueCString}
			return rt
		case "str":
			rt.Kind = Value{Kind: ValueStr}
			return rt
		}
		if info, ok := infos[name]; ok {
			rt.Kind = Value{Kind: ValueCustom, Info: info, Name: name}
			return rt
		}
		rt.Kind = Unknown{Name: name}
		return rt
	}

	args := make([]*RustType, len(te.Args))
	for i, a := range te.Args {
		args[i] = Resolve(a, infos)
	}

	switch {
	case name == "Vec" && len(args) == 1:
		rt.Kind = Composite{Kind: CompositeVec, Inner: args[0]}
	case name == "Option" && len(args) == 1:
		rt.Kind = Composite{Kind: CompositeOption, Inner: args[0]}
	case name == "HashMap" && len(args) == 2:
		rt.Kind = Composite{Kind: CompositeHashMap, Inner: args[0], Inner2: args[1]}
	default:
		info, ok := infos[name]
		if !ok {
			rt.Kind = Unknown{Name: name}
			return rt
		}
		c := Composite{Kind: CompositeCustom, Info: info, Name: name, Inner: args[0]}
		if len(args) > 1 {
			c.Inner2 = args[1]
		}
		rt.Kind = c
	}
	return rt
}

// SelfUnaliased rewrites every custom Self below t to owner. It is applied
// after Resolve by callers inside an impl block.
func (t *RustType) SelfUnaliased(owner TypeInfo) *RustType {
	if t == nil {
		return nil
	}
	c := *t
	switch k := t.Kind.(type) {
	case Value:
		if k.Kind == ValueCustom && k.Name == "Self" {
			k.Name = owner.Key
			k.Info = TypeInfo{Key: owner.Key, Category: owner.Category}
			c.Kind = k
			c.Ident = owner.Key
		}
	case Composite:
		k.Inner = k.Inner.SelfUnaliased(owner)
		k.Inner2 = k.Inner2.SelfUnaliased(owner)
		c.Kind = k
	}
	return &c
}

// FirstUnknown returns the first unresolved type inside t.
func (t *RustType) FirstUnknown() *RustType {
	var found *RustType
	t.Walk(func(n *RustType) {
		if found == nil && n.IsUnknown() {
			found = n
		}
	})
	return found
}

// ResolveChecked resolves te and turns Unknown into a diagnostic: Self
// outside an impl and unsupported syntax are UnsupportedShape, anything else
// is TypeUnknown.
func ResolveChecked(te *syntax.TypeExpr, infos TypeInfoMap) (*RustType, error) {
	rt := Resolve(te, infos)
	u := rt.FirstUnknown()
	if u == nil {
		return rt, nil
	}
	name := u.Kind.(Unknown).Name
	switch {
	case name == "Self":
		return nil, errors.UnsupportedShape(u.Span, "Self is only valid inside an impl block")
	case !isPlainName(name):
		return nil, errors.UnsupportedShape(u.Span, "unsupported type %s", name)
	}
	return nil, errors.TypeUnknown(u.Span, name)
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
