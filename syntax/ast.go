package syntax

import (
	"strings"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/syntax/token"
)

// File is one parsed source file.
type File struct {
	Name  string
	Items []Item
}

// Item is a top-level declaration the generator cares about.
type Item interface {
	ItemName() string
	ItemAttrs() []Attribute
	ItemSpan() errors.Span
	isItem()
}

// Attribute is an outer attribute such as #[rid::structs(Todo)].
// Args holds the tokens between the outer delimiters, or the tokens after
// '=' for the name-value form.
type Attribute struct {
	Path  []string
	Args  []token.Token
	Span  errors.Span
	Delim token.Type
	// HasArgs distinguishes #[rid::export] from #[rid::export()].
	HasArgs bool
	// NameValue is set for #[path = value].
	NameValue bool
}

// PathString joins the attribute path with '::'.
func (a Attribute) PathString() string {
	return strings.Join(a.Path, "::")
}

// Struct is a struct declaration.
type Struct struct {
	Attrs    []Attribute
	Name     string
	Span     errors.Span
	Fields   []Field
	Generics Generics
	Unit     bool
	Tuple    bool
}

func (s *Struct) ItemName() string       { return s.Name }
func (s *Struct) ItemAttrs() []Attribute { return s.Attrs }
func (s *Struct) ItemSpan() errors.Span  { return s.Span }
func (*Struct) isItem()                  {}

// Field is a named struct field or a positional variant field.
type Field struct {
	Attrs []Attribute
	Name  string
	Type  *TypeExpr
	Span  errors.Span
}

// VariantShape describes the field layout of an enum variant.
type VariantShape int

const (
	VariantUnit VariantShape = iota
	VariantTuple
	VariantNamed
)

// Variant is one enum variant.
type Variant struct {
	Attrs        []Attribute
	Name         string
	Span         errors.Span
	Fields       []Field
	Discriminant string
	Shape        VariantShape
}

// Enum is an enum declaration.
type Enum struct {
	Attrs    []Attribute
	Name     string
	Span     errors.Span
	Variants []Variant
	Generics Generics
}

func (e *Enum) ItemName() string       { return e.Name }
func (e *Enum) ItemAttrs() []Attribute { return e.Attrs }
func (e *Enum) ItemSpan() errors.Span  { return e.Span }
func (*Enum) isItem()                  {}

// Impl is an inherent or trait impl block.
type Impl struct {
	Attrs    []Attribute
	Owner    *TypeExpr
	Trait    *TypeExpr
	Span     errors.Span
	Methods  []*Fn
	Generics Generics
}

func (i *Impl) ItemName() string {
	if i.Owner == nil {
		return ""
	}
	return i.Owner.Name()
}
func (i *Impl) ItemAttrs() []Attribute { return i.Attrs }
func (i *Impl) ItemSpan() errors.Span  { return i.Span }
func (*Impl) isItem()                  {}

// Receiver is the self parameter of a method.
type Receiver struct {
	Lifetime string
	Span     errors.Span
	Ref      bool
	Mut      bool
}

// Param is a non-receiver function parameter.
type Param struct {
	Name string
	Type *TypeExpr
	Span errors.Span
}

// Fn is a free function or a method inside an impl block.
type Fn struct {
	Attrs    []Attribute
	Name     string
	Span     errors.Span
	Receiver *Receiver
	Params   []Param
	Return   *TypeExpr
	Generics Generics
	Public   bool
}

func (f *Fn) ItemName() string       { return f.Name }
func (f *Fn) ItemAttrs() []Attribute { return f.Attrs }
func (f *Fn) ItemSpan() errors.Span  { return f.Span }
func (*Fn) isItem()                  {}

// Generics lists declared lifetime and type parameters.
type Generics struct {
	Lifetimes []string
	Types     []string
}

// Empty reports whether no parameters were declared.
func (g Generics) Empty() bool {
	return len(g.Lifetimes) == 0 && len(g.Types) == 0
}

// TypeExpr is a syntactic type.
type TypeExpr struct {
	Lifetime string
	Path     []string
	Args     []*TypeExpr
	Elems    []*TypeExpr
	Span     errors.Span
	Ref      bool
	Mut      bool
	// RawPtr is set for *const T / *mut T; Mut carries the mutability.
	RawPtr bool
	// Tuple is set for (A, B) and for () when Elems is empty.
	Tuple bool
	// Array is set for [T; N] and [T].
	Array bool
	// Dyn is set for dyn Trait / impl Trait.
	Dyn bool
}

// Name returns the last path segment.
func (t *TypeExpr) Name() string {
	if t == nil || len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

// IsUnit reports whether t is ().
func (t *TypeExpr) IsUnit() bool {
	return t != nil && t.Tuple && len(t.Elems) == 0
}

// Deref returns t without its reference layer.
func (t *TypeExpr) Deref() *TypeExpr {
	if t == nil || !t.Ref {
		return t
	}
	c := *t
	c.Ref = false
	c.Mut = false
	c.Lifetime = ""
	return &c
}

// String renders t back as Rust syntax.
func (t *TypeExpr) String() string {
	if t == nil {
		return "()"
	}
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *TypeExpr) write(b *strings.Builder) {
	switch {
	case t.Ref:
		b.WriteByte('&')
		if t.Lifetime != "" {
			b.WriteByte('\'')
			b.WriteString(t.Lifetime)
			b.WriteByte(' ')
		}
		if t.Mut {
			b.WriteString("mut ")
		}
	case t.RawPtr:
		if t.Mut {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
	}

	switch {
	case t.Tuple:
		b.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b)
		}
		b.WriteByte(')')
		return
	case t.Array:
		b.WriteByte('[')
		if len(t.Elems) > 0 {
			t.Elems[0].write(b)
		}
		b.WriteByte(']')
		return
	case t.Dyn:
		b.WriteString("dyn ")
	}

	b.WriteString(strings.Join(t.Path, "::"))
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteByte('>')
	}
}
