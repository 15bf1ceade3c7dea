package model

import (
	"github.com/wippyai/ridgen/errors"
)

// ParsedField is a named struct field with its resolved type.
type ParsedField struct {
	Name string
	Type *RustType
	Span errors.Span
}

// ParsedStruct is a struct ready for rendering. RawIdent names the opaque
// pointer class on the host side.
type ParsedStruct struct {
	Ident     string
	RawIdent  string
	Fields    []ParsedField
	TypeInfos TypeInfoMap
	Span      errors.Span
	Debug     bool
	Display   bool
	Clone     bool
	IsStore   bool
}

// NewParsedStruct fills RawIdent from ident.
func NewParsedStruct(ident string, fields []ParsedField, infos TypeInfoMap) *ParsedStruct {
	return &ParsedStruct{Ident: ident, RawIdent: "Raw" + ident, Fields: fields, TypeInfos: infos}
}

// Info returns the struct's own type info.
func (s *ParsedStruct) Info() TypeInfo {
	return TypeInfo{Key: s.Ident, Category: CategoryStruct}
}

// ParsedVariant is an enum variant numbered by source position.
type ParsedVariant struct {
	Ident        string
	Discriminant int
	Fields       []*RustType
	Span         errors.Span
}

// ParsedEnum is an enum ready for rendering.
type ParsedEnum struct {
	Ident     string
	Variants  []ParsedVariant
	TypeInfos TypeInfoMap
	Span      errors.Span
	// CStyle is set when no variant carries fields.
	CStyle bool
	// ReprC is set when the enum carries #[repr(C)].
	ReprC bool
	Debug bool
}

// Info returns the enum's own type info.
func (e *ParsedEnum) Info() TypeInfo {
	return TypeInfo{Key: e.Ident, Category: CategoryEnum}
}

// Variant returns the variant with the given discriminant.
func (e *ParsedEnum) Variant(disc int) (ParsedVariant, bool) {
	if disc < 0 || disc >= len(e.Variants) {
		return ParsedVariant{}, false
	}
	return e.Variants[disc], true
}

// ParsedReceiver is the self parameter of a method.
type ParsedReceiver struct {
	Reference Reference
	Span      errors.Span
}

// ParsedArg is a named function argument.
type ParsedArg struct {
	Name string
	Type *RustType
	Span errors.Span
}

// ParsedFunction is an exported function or method.
type ParsedFunction struct {
	Ident    string
	Receiver *ParsedReceiver
	Args     []ParsedArg
	Return   *RustType
	Alias    string
	Span     errors.Span
}

// IsMethod reports whether f takes a receiver.
func (f *ParsedFunction) IsMethod() bool {
	return f.Receiver != nil
}

// ParsedImpl groups the exported methods of one owner.
type ParsedImpl struct {
	Owner   *RustType
	Methods []*ParsedFunction
	Span    errors.Span
}

// OwnerName returns the owner identifier.
func (i *ParsedImpl) OwnerName() string {
	if i.Owner == nil {
		return ""
	}
	return i.Owner.Ident
}

// ReplyShape is the field layout of a reply variant.
type ReplyShape int

const (
	// ReplyBare is a fire-and-forget notification.
	ReplyBare ReplyShape = iota
	// ReplyWithID correlates with a request.
	ReplyWithID
	// ReplyWithIDAndData correlates and carries a string payload.
	ReplyWithIDAndData
)

// ReplyVariant is one variant of a #[rid::reply] enum.
type ReplyVariant struct {
	Ident string
	Index int
	Shape ReplyShape
	Span  errors.Span
}

// HasID reports whether the variant carries a request id.
func (v ReplyVariant) HasID() bool {
	return v.Shape != ReplyBare
}

// ParsedReply is a #[rid::reply] enum.
type ParsedReply struct {
	Ident    string
	Variants []ReplyVariant
	Span     errors.Span
}

// MessageVariant is one variant of a #[rid::message] enum. Fields are
// positional or named; names are synthesized as arg0, arg1 for tuples.
type MessageVariant struct {
	Ident  string
	Index  int
	Fields []ParsedArg
	Span   errors.Span
	// Named is set for struct-like variants.
	Named bool
}

// ParsedMessage is a #[rid::message(Reply)] enum.
type ParsedMessage struct {
	Ident     string
	Reply     string
	Variants  []MessageVariant
	TypeInfos TypeInfoMap
	Span      errors.Span
}
