// Package witmap projects the parsed rid model onto WIT types.
//
// The projection is lossy in the same places the bridge is: references
// are dropped, usize widens to u64, HashMap becomes list<tuple<k, v>> and
// tuple message variants carry a tuple payload. It backs the describe
// command, which prints the generated surface as a WIT-like interface.
package witmap

import (
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/parse"
)

// Mapper converts resolved types of one crate. Named definitions are
// created once and shared.
type Mapper struct {
	crate   *parse.Crate
	defs    map[string]*wit.TypeDef
	order   []*wit.TypeDef
	structs map[string]*model.ParsedStruct
}

// New creates a mapper over c.
func New(c *parse.Crate) *Mapper {
	m := &Mapper{
		crate:   c,
		defs:    make(map[string]*wit.TypeDef),
		structs: make(map[string]*model.ParsedStruct),
	}
	for _, s := range c.Models() {
		m.structs[s.Ident] = s
	}
	return m
}

// Kebab converts a Rust identifier to a WIT name.
func Kebab(s string) string {
	return strings.ReplaceAll(model.Snake(s), "_", "-")
}

// Defs returns the named definitions in creation order.
func (m *Mapper) Defs() []*wit.TypeDef {
	return m.order
}

var primitives = map[model.Primitive]wit.Type{
	model.U8:    wit.U8{},
	model.I8:    wit.S8{},
	model.U16:   wit.U16{},
	model.I16:   wit.S16{},
	model.U32:   wit.U32{},
	model.I32:   wit.S32{},
	model.U64:   wit.U64{},
	model.I64:   wit.S64{},
	model.Usize: wit.U64{},
	model.Bool:  wit.Bool{},
}

// Type maps rt. Unit maps to nil.
func (m *Mapper) Type(rt *model.RustType) (wit.Type, error) {
	if rt == nil || rt.IsUnit() {
		return nil, nil
	}
	if p, ok := rt.Primitive(); ok {
		return primitives[p], nil
	}
	if rt.IsStringLike() {
		return wit.String{}, nil
	}
	if info, ok := rt.Custom(); ok {
		switch info.Category {
		case model.CategoryPrim:
			return wit.S64{}, nil
		case model.CategoryEnum:
			return m.Enum(info.Key)
		}
		return m.Record(info.Key)
	}

	c, ok := rt.Composite()
	if !ok {
		return nil, errors.UnsupportedShape(rt.Span, "type %s has no WIT form", rt)
	}
	inner, err := m.Type(c.Inner)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case model.CompositeVec:
		return &wit.TypeDef{Kind: &wit.List{Type: inner}}, nil
	case model.CompositeOption:
		return &wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil
	case model.CompositeHashMap:
		val, err := m.Type(c.Inner2)
		if err != nil {
			return nil, err
		}
		entry := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{inner, val}}}
		return &wit.TypeDef{Kind: &wit.List{Type: entry}}, nil
	}
	return nil, errors.UnsupportedShape(rt.Span, "type %s has no WIT form", rt)
}

func (m *Mapper) named(name string) (*wit.TypeDef, bool) {
	if def, ok := m.defs[name]; ok {
		return def, true
	}
	kebab := Kebab(name)
	def := &wit.TypeDef{Name: &kebab}
	m.defs[name] = def
	m.order = append(m.order, def)
	return def, false
}

// Record maps a model struct to a named record.
func (m *Mapper) Record(name string) (*wit.TypeDef, error) {
	s, ok := m.structs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRender, "model struct", name)
	}
	def, done := m.named(name)
	if done {
		return def, nil
	}
	rec := &wit.Record{}
	def.Kind = rec
	for _, f := range s.Fields {
		t, err := m.Type(f.Type)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, wit.Field{Name: Kebab(f.Name), Type: t})
	}
	return def, nil
}

// Enum maps a c-style enum to a named enum.
func (m *Mapper) Enum(name string) (*wit.TypeDef, error) {
	e, ok := m.crate.Enums[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRender, "c-style enum", name)
	}
	def, done := m.named(name)
	if done {
		return def, nil
	}
	en := &wit.Enum{}
	for _, v := range e.Variants {
		en.Cases = append(en.Cases, wit.EnumCase{Name: Kebab(v.Ident)})
	}
	def.Kind = en
	return def, nil
}

// Message maps a message enum to a named variant. Multi-field variants
// carry a tuple.
func (m *Mapper) Message(msg *model.ParsedMessage) (*wit.TypeDef, error) {
	def, done := m.named(msg.Ident)
	if done {
		return def, nil
	}
	v := &wit.Variant{}
	for _, mv := range msg.Variants {
		var types []wit.Type
		for _, f := range mv.Fields {
			t, err := m.Type(f.Type)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		v.Cases = append(v.Cases, wit.Case{Name: Kebab(mv.Ident), Type: payload(types)})
	}
	def.Kind = v
	return def, nil
}

// Reply maps a reply enum: ids are u64, data is a string.
func (m *Mapper) Reply(rp *model.ParsedReply) *wit.TypeDef {
	def, done := m.named(rp.Ident)
	if done {
		return def
	}
	v := &wit.Variant{}
	for _, rv := range rp.Variants {
		var types []wit.Type
		switch rv.Shape {
		case model.ReplyWithID:
			types = []wit.Type{wit.U64{}}
		case model.ReplyWithIDAndData:
			types = []wit.Type{wit.U64{}, wit.String{}}
		}
		v.Cases = append(v.Cases, wit.Case{Name: Kebab(rv.Ident), Type: payload(types)})
	}
	def.Kind = v
	return def
}

func payload(types []wit.Type) wit.Type {
	switch len(types) {
	case 0:
		return nil
	case 1:
		return types[0]
	}
	return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}
}
