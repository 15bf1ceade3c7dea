package parse

import (
	"github.com/wippyai/ridgen/attr"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
)

func (p *parser) structItem(s *syntax.Struct) error {
	set, err := attr.Parse(s.Attrs, attr.TargetStruct)
	if err != nil {
		return err
	}
	isStore := set.Has(attr.KindStore)
	if !isStore && !set.Has(attr.KindModel) {
		return nil
	}

	if isStore {
		a, _ := set.Get(attr.KindStore)
		if s.Name != "Store" {
			return errors.NamingContract(a.Span, "#[rid::store] must be applied to a struct named Store, found %s", s.Name)
		}
		if p.crate.Store != nil {
			return errors.AttributeShape(a.Span, "only one #[rid::store] is allowed per crate")
		}
	}
	if !s.Generics.Empty() {
		return errors.UnsupportedShape(s.Span, "generic struct %s cannot cross the boundary", s.Name)
	}
	if s.Tuple {
		return errors.UnsupportedShape(s.Span, "tuple struct %s has no named fields", s.Name)
	}

	infos := p.hints(set)
	self := model.TypeInfo{Key: s.Name, Category: model.CategoryStruct}
	infos = infos.WithSelf(self)

	fields := make([]model.ParsedField, 0, len(s.Fields))
	for _, f := range s.Fields {
		rt, err := model.ResolveChecked(f.Type, infos)
		if err != nil {
			return withPath(err, s.Name, f.Name)
		}
		rt = rt.SelfUnaliased(self)
		if err := checkField(rt); err != nil {
			return withPath(err, s.Name, f.Name)
		}
		fields = append(fields, model.ParsedField{Name: f.Name, Type: rt, Span: f.Span})
	}

	ps := model.NewParsedStruct(s.Name, fields, infos)
	ps.Span = s.Span
	ps.Debug = set.WantsDebug()
	ps.Display = set.Has(attr.KindDisplay)
	ps.Clone = set.Derive.Clone
	ps.IsStore = isStore

	kind := ItemModel
	if isStore {
		kind = ItemStore
		p.crate.Store = ps
	}
	p.add(Item{Kind: kind, Name: s.Name, Span: s.Span, Struct: ps})
	return nil
}

func withPath(err error, path ...string) error {
	if e, ok := errors.As(err); ok && len(e.Path) == 0 {
		e.Path = path
	}
	return err
}
