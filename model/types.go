package model

import (
	"strings"

	"github.com/wippyai/ridgen/errors"
)

// Category classifies a user type announced through a hint attribute.
type Category int

const (
	CategoryStruct Category = iota
	CategoryEnum
	CategoryPrim
)

func (c Category) String() string {
	switch c {
	case CategoryStruct:
		return "Struct"
	case CategoryEnum:
		return "Enum"
	case CategoryPrim:
		return "Prim"
	}
	return "Unknown"
}

// ParseCategory maps Struct, Enum and Prim to their Category.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "Struct":
		return CategoryStruct, true
	case "Enum":
		return CategoryEnum, true
	case "Prim":
		return CategoryPrim, true
	}
	return 0, false
}

// TypeInfo pairs a type name with its category.
type TypeInfo struct {
	Key      string
	Category Category
}

// TypeInfoMap is keyed by type name.
type TypeInfoMap map[string]TypeInfo

// Add records info under its key, replacing an earlier entry.
func (m TypeInfoMap) Add(info TypeInfo) {
	m[info.Key] = info
}

// Merge returns a new map holding m overlaid with other.
func (m TypeInfoMap) Merge(other TypeInfoMap) TypeInfoMap {
	out := make(TypeInfoMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// WithSelf returns a copy of m in which Self aliases owner.
func (m TypeInfoMap) WithSelf(owner TypeInfo) TypeInfoMap {
	out := m.Merge(nil)
	out["Self"] = TypeInfo{Key: "Self", Category: owner.Category}
	if _, ok := out[owner.Key]; !ok {
		out[owner.Key] = owner
	}
	return out
}

// RefKind tells whether a type is owned or borrowed.
type RefKind int

const (
	Owned RefKind = iota
	Ref
	RefMut
)

func (k RefKind) String() string {
	switch k {
	case Ref:
		return "&"
	case RefMut:
		return "&mut"
	}
	return "owned"
}

// Reference is the reference layer of a type with its optional lifetime.
type Reference struct {
	Kind     RefKind
	Lifetime string
}

// Prefix renders the reference as Rust syntax, e.g. "&'a ".
func (r Reference) Prefix() string {
	if r.Kind == Owned {
		return ""
	}
	var b strings.Builder
	b.WriteByte('&')
	if r.Lifetime != "" {
		b.WriteByte('\'')
		b.WriteString(r.Lifetime)
		b.WriteByte(' ')
	}
	if r.Kind == RefMut {
		b.WriteString("mut ")
	}
	return b.String()
}

// Primitive enumerates the scalar types that cross the boundary by value.
type Primitive int

const (
	U8 Primitive = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	Usize
	Bool
)

var primitiveNames = [...]string{"u8", "i8", "u16", "i16", "u32", "i32", "u64", "i64", "usize", "bool"}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "?"
}

// Signed reports whether p is a signed integer.
func (p Primitive) Signed() bool {
	return p == I8 || p == I16 || p == I32 || p == I64
}

// Bits returns the integer width; bool is one byte on the wire.
func (p Primitive) Bits() int {
	switch p {
	case U8, I8, Bool:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	}
	return 64
}

func lookupPrimitive(name string) (Primitive, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return Primitive(i), true
		}
	}
	return 0, false
}

// ValueKind enumerates owned value types.
type ValueKind int

const (
	ValueCString ValueKind = iota
	ValueString
	ValueStr
	ValueCustom
)

// CompositeKind enumerates generic containers.
type CompositeKind int

const (
	CompositeVec CompositeKind = iota
	CompositeOption
	CompositeHashMap
	CompositeCustom
)

func (k CompositeKind) String() string {
	switch k {
	case CompositeVec:
		return "Vec"
	case CompositeOption:
		return "Option"
	case CompositeHashMap:
		return "HashMap"
	}
	return "Custom"
}

// TypeKind is the closed sum of resolved types: Prim, Value, Composite,
// Unit and Unknown.
type TypeKind interface {
	isTypeKind()
}

// Prim is a primitive scalar.
type Prim struct {
	P Primitive
}

// Value is an owned value type. Info and Name are set for ValueCustom.
type Value struct {
	Kind ValueKind
	Info TypeInfo
	Name string
}

// Composite is a generic container. Vec and Option carry Inner, HashMap
// carries Inner (key) and Inner2 (value).
type Composite struct {
	Kind   CompositeKind
	Info   TypeInfo
	Name   string
	Inner  *RustType
	Inner2 *RustType
}

// Unit is ().
type Unit struct{}

// Unknown is a type that could not be resolved; Name is kept for the
// diagnostic.
type Unknown struct {
	Name string
}

func (Prim) isTypeKind()      {}
func (Value) isTypeKind()     {}
func (Composite) isTypeKind() {}
func (Unit) isTypeKind()      {}
func (Unknown) isTypeKind()   {}

// RustType is a resolved native type.
type RustType struct {
	Kind      TypeKind
	Ident     string
	Reference Reference
	Span      errors.Span
}

// NewPrim returns an owned primitive.
func NewPrim(p Primitive) *RustType {
	return &RustType{Ident: p.String(), Kind: Prim{P: p}}
}

// NewCustom returns an owned custom value type.
func NewCustom(info TypeInfo) *RustType {
	return &RustType{Ident: info.Key, Kind: Value{Kind: ValueCustom, Info: info, Name: info.Key}}
}

// NewString returns an owned String.
func NewString() *RustType {
	return &RustType{Ident: "String", Kind: Value{Kind: ValueString}}
}

// NewVec returns an owned Vec<elem>.
func NewVec(elem *RustType) *RustType {
	return &RustType{Ident: "Vec", Kind: Composite{Kind: CompositeVec, Inner: elem}}
}

// NewOption returns an owned Option<inner>.
func NewOption(inner *RustType) *RustType {
	return &RustType{Ident: "Option", Kind: Composite{Kind: CompositeOption, Inner: inner}}
}

// NewHashMap returns an owned HashMap<key, val>.
func NewHashMap(key, val *RustType) *RustType {
	return &RustType{Ident: "HashMap", Kind: Composite{Kind: CompositeHashMap, Inner: key, Inner2: val}}
}

// WithRef returns a copy of t behind the given reference.
func (t *RustType) WithRef(kind RefKind, lifetime string) *RustType {
	c := *t
	c.Reference = Reference{Kind: kind, Lifetime: lifetime}
	return &c
}

// Owned returns a copy of t without its reference layer.
func (t *RustType) Owned() *RustType {
	return t.WithRef(Owned, "")
}

func (t *RustType) IsRef() bool    { return t.Reference.Kind != Owned }
func (t *RustType) IsRefMut() bool { return t.Reference.Kind == RefMut }

// Primitive returns the primitive if t is one.
func (t *RustType) Primitive() (Primitive, bool) {
	p, ok := t.Kind.(Prim)
	return p.P, ok
}

func (t *RustType) IsPrimitive() bool {
	_, ok := t.Kind.(Prim)
	return ok
}

func (t *RustType) IsBool() bool {
	p, ok := t.Primitive()
	return ok && p == Bool
}

func (t *RustType) IsUnit() bool {
	_, ok := t.Kind.(Unit)
	return ok
}

func (t *RustType) IsUnknown() bool {
	_, ok := t.Kind.(Unknown)
	return ok
}

// IsStringLike reports CString, String and str.
func (t *RustType) IsStringLike() bool {
	v, ok := t.Kind.(Value)
	return ok && v.Kind != ValueCustom
}

// ValueKind returns the value kind if t is a Value.
func (t *RustType) ValueKind() (ValueKind, bool) {
	v, ok := t.Kind.(Value)
	return v.Kind, ok
}

// Custom returns the type info of a custom value type.
func (t *RustType) Custom() (TypeInfo, bool) {
	v, ok := t.Kind.(Value)
	if !ok || v.Kind != ValueCustom {
		return TypeInfo{}, false
	}
	return v.Info, true
}

func (t *RustType) IsStruct() bool {
	info, ok := t.Custom()
	return ok && info.Category == CategoryStruct
}

func (t *RustType) IsEnum() bool {
	info, ok := t.Custom()
	return ok && info.Category == CategoryEnum
}

// Composite returns the container if t is one.
func (t *RustType) Composite() (Composite, bool) {
	c, ok := t.Kind.(Composite)
	return c, ok
}

func (t *RustType) IsVec() bool     { return t.isComposite(CompositeVec) }
func (t *RustType) IsOption() bool  { return t.isComposite(CompositeOption) }
func (t *RustType) IsHashMap() bool { return t.isComposite(CompositeHashMap) }

func (t *RustType) isComposite(k CompositeKind) bool {
	c, ok := t.Kind.(Composite)
	return ok && c.Kind == k
}

// IsCollection reports Vec and HashMap.
func (t *RustType) IsCollection() bool {
	return t.IsVec() || t.IsHashMap()
}

// Inner returns the first type argument of a container.
func (t *RustType) Inner() *RustType {
	if c, ok := t.Kind.(Composite); ok {
		return c.Inner
	}
	return nil
}

// Inner2 returns the second type argument of a container.
func (t *RustType) Inner2() *RustType {
	if c, ok := t.Kind.(Composite); ok {
		return c.Inner2
	}
	return nil
}

// Nested reports whether a container holds another container.
func (t *RustType) Nested() bool {
	c, ok := t.Kind.(Composite)
	if !ok {
		return false
	}
	for _, in := range []*RustType{c.Inner, c.Inner2} {
		if in != nil {
			if _, inner := in.Kind.(Composite); inner {
				return true
			}
		}
	}
	return false
}

// Key is the identifier used in generated artifact names: the primitive or
// type name for leaves, and Inner-derived names for containers.
func (t *RustType) Key() string {
	switch k := t.Kind.(type) {
	case Prim:
		return k.P.String()
	case Value:
		switch k.Kind {
		case ValueCString:
			return "CString"
		case ValueString:
			return "String"
		case ValueStr:
			return "str"
		}
		return k.Name
	case Composite:
		switch k.Kind {
		case CompositeVec:
			return "vec_" + k.Inner.Key()
		case CompositeOption:
			return "option_" + k.Inner.Key()
		case CompositeHashMap:
			return "hash_map_" + k.Inner.Key() + "_" + k.Inner2.Key()
		}
		return k.Name
	case Unit:
		return "unit"
	case Unknown:
		return k.Name
	}
	return t.Ident
}

// String renders t as Rust syntax including its reference.
func (t *RustType) String() string {
	if t == nil {
		return "()"
	}
	return t.Reference.Prefix() + t.bare()
}

func (t *RustType) bare() string {
	switch k := t.Kind.(type) {
	case Prim:
		return k.P.String()
	case Value:
		switch k.Kind {
		case ValueCString:
			return "CString"
		case ValueString:
			return "String"
		case ValueStr:
			return "str"
		}
		return k.Name
	case Composite:
		args := k.Inner.String()
		if k.Inner2 != nil {
			args += ", " + k.Inner2.String()
		}
		name := k.Name
		if k.Kind != CompositeCustom {
			name = k.Kind.String()
		}
		return name + "<" + args + ">"
	case Unit:
		return "()"
	case Unknown:
		return k.Name
	}
	return t.Ident
}

// Walk calls fn for t and every type argument below it, depth first.
func (t *RustType) Walk(fn func(*RustType)) {
	if t == nil {
		return
	}
	fn(t)
	if c, ok := t.Kind.(Composite); ok {
		c.Inner.Walk(fn)
		c.Inner2.Walk(fn)
	}
}
