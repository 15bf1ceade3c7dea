package parse

import (
	"fmt"

	"github.com/wippyai/ridgen/attr"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
)

// declareEnum builds the c-style projection of e, or nil if any variant
// carries fields. Discriminants follow source order; explicit values are
// not honoured on the wire.
func declareEnum(e *syntax.Enum) *model.ParsedEnum {
	pe := &model.ParsedEnum{Ident: e.Name, Span: e.Span, CStyle: true}
	for i, v := range e.Variants {
		if v.Shape != syntax.VariantUnit {
			return nil
		}
		pe.Variants = append(pe.Variants, model.ParsedVariant{Ident: v.Name, Discriminant: i, Span: v.Span})
	}
	if set, err := attr.Parse(e.Attrs, attr.TargetEnum); err == nil {
		pe.ReprC = set.ReprC
		pe.Debug = set.WantsDebug()
	}
	return pe
}

func (p *parser) enumItem(e *syntax.Enum) error {
	set, err := attr.Parse(e.Attrs, attr.TargetEnum)
	if err != nil {
		return err
	}
	if !e.Generics.Empty() && (set.Has(attr.KindModel) || set.Has(attr.KindMessage) || set.Has(attr.KindReply)) {
		return errors.UnsupportedShape(e.Span, "generic enum %s cannot cross the boundary", e.Name)
	}

	switch {
	case set.Has(attr.KindMessage):
		return p.messageItem(e, set)
	case set.Has(attr.KindReply):
		return p.replyItem(e)
	case set.Has(attr.KindModel):
		pe := p.crate.Enums[e.Name]
		if pe == nil {
			v := firstDataVariant(e)
			return errors.UnsupportedShape(v.Span, "model enum %s must be c-style; variant %s carries fields", e.Name, v.Name)
		}
		pe.TypeInfos = p.hints(set)
		p.add(Item{Kind: ItemEnum, Name: e.Name, Span: e.Span, Enum: pe})
	}
	return nil
}

func firstDataVariant(e *syntax.Enum) syntax.Variant {
	for _, v := range e.Variants {
		if v.Shape != syntax.VariantUnit {
			return v
		}
	}
	return syntax.Variant{Span: e.Span}
}

func (p *parser) messageItem(e *syntax.Enum, set *attr.Set) error {
	reply, _ := set.Message()
	a, _ := set.Get(attr.KindMessage)
	if !p.replies[reply] {
		return errors.New(errors.PhaseParse, errors.KindTypeUnknown).
			At(a.Span).
			Value(reply).
			Detail("reply enum %s is not declared with #[rid::reply]", reply).
			Build()
	}
	if !p.hasStore {
		return errors.NamingContract(a.Span, "messages are dispatched to the store; declare #[rid::store] struct Store")
	}

	infos := p.hints(set)
	msg := &model.ParsedMessage{Ident: e.Name, Reply: reply, TypeInfos: infos, Span: e.Span}
	for i, v := range e.Variants {
		mv := model.MessageVariant{Ident: v.Name, Index: i, Span: v.Span, Named: v.Shape == syntax.VariantNamed}
		for j, f := range v.Fields {
			rt, err := model.ResolveChecked(f.Type, infos)
			if err != nil {
				return withPath(err, e.Name, v.Name)
			}
			if err := checkPayload(rt); err != nil {
				return withPath(err, e.Name, v.Name)
			}
			name := f.Name
			if name == "" {
				name = fmt.Sprintf("arg%d", j)
			}
			mv.Fields = append(mv.Fields, model.ParsedArg{Name: name, Type: rt, Span: f.Span})
		}
		msg.Variants = append(msg.Variants, mv)
	}
	p.add(Item{Kind: ItemMessage, Name: e.Name, Span: e.Span, Message: msg})
	return nil
}

func (p *parser) replyItem(e *syntax.Enum) error {
	r := &model.ParsedReply{Ident: e.Name, Span: e.Span}
	for i, v := range e.Variants {
		shape, err := replyShape(v)
		if err != nil {
			return withPath(err, e.Name, v.Name)
		}
		r.Variants = append(r.Variants, model.ReplyVariant{Ident: v.Name, Index: i, Shape: shape, Span: v.Span})
	}
	p.add(Item{Kind: ItemReply, Name: e.Name, Span: e.Span, Reply: r})
	return nil
}

// replyShape accepts Name, Name(u64) and Name(u64, String).
func replyShape(v syntax.Variant) (model.ReplyShape, error) {
	switch v.Shape {
	case syntax.VariantUnit:
		return model.ReplyBare, nil
	case syntax.VariantNamed:
		if len(v.Fields) > 0 {
			return 0, errors.ReplyShape(v.Fields[0].Span, v.Name)
		}
		return 0, errors.ReplyShape(v.Span, v.Name)
	}
	if len(v.Fields) == 0 {
		return 0, errors.ReplyShape(v.Span, v.Name)
	}

	want := []string{"u64", "String"}
	if len(v.Fields) > len(want) {
		return 0, errors.ReplyShape(v.Fields[len(want)].Span, v.Name)
	}
	for i, f := range v.Fields {
		if f.Type.Ref || len(f.Type.Args) > 0 || f.Type.Name() != want[i] {
			return 0, errors.ReplyShape(f.Span, v.Name)
		}
	}
	if len(v.Fields) == 1 {
		return model.ReplyWithID, nil
	}
	return model.ReplyWithIDAndData, nil
}
