package parse

import (
	"github.com/wippyai/ridgen/attr"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
)

// implItem collects the exported methods of an exported impl block. Each
// method is its own item for diagnostics: a bad method does not drop its
// siblings.
func (p *parser) implItem(impl *syntax.Impl) {
	owner := impl.ItemName()
	set, err := attr.Parse(impl.Attrs, attr.TargetImpl)
	if err != nil {
		p.diagnose(err, owner)
		return
	}
	if _, ok := set.Export(); !ok {
		return
	}
	if impl.Trait != nil {
		p.diagnose(errors.UnsupportedShape(impl.Span, "trait impl of %s cannot be exported; export an inherent impl", impl.Trait.Name()), owner)
		return
	}
	if !impl.Generics.Empty() || len(impl.Owner.Args) > 0 || impl.Owner.Ref {
		p.diagnose(errors.UnsupportedShape(impl.Span, "impl for %s must name a plain type", impl.Owner), owner)
		return
	}

	ownerInfo := model.TypeInfo{Key: owner, Category: p.categoryOf(owner)}
	base := p.hints(set)
	pi := &model.ParsedImpl{Owner: model.NewCustom(ownerInfo), Span: impl.Span}
	pi.Owner.Span = impl.Owner.Span

	for _, m := range impl.Methods {
		mset, err := attr.Parse(m.Attrs, attr.TargetMethod)
		if err != nil {
			p.diagnose(err, owner+"::"+m.Name)
			continue
		}
		alias, ok := mset.Export()
		if !ok {
			continue
		}
		infos := base.Merge(mset.TypeInfos).WithSelf(ownerInfo)
		fn, err := p.function(m, alias, infos, &ownerInfo)
		if err != nil {
			p.diagnose(err, owner+"::"+m.Name)
			continue
		}
		pi.Methods = append(pi.Methods, fn)
	}

	if len(pi.Methods) > 0 {
		p.add(Item{Kind: ItemImpl, Name: owner, Span: impl.Span, Impl: pi})
	}
}

func (p *parser) fnItem(fn *syntax.Fn) error {
	set, err := attr.Parse(fn.Attrs, attr.TargetFn)
	if err != nil {
		return err
	}
	alias, ok := set.Export()
	if !ok {
		return nil
	}
	pf, err := p.function(fn, alias, p.hints(set), nil)
	if err != nil {
		return err
	}
	p.add(Item{Kind: ItemFunction, Name: fn.Name, Span: fn.Span, Function: pf})
	return nil
}

// function resolves a signature. owner is nil for free functions.
func (p *parser) function(fn *syntax.Fn, alias string, infos model.TypeInfoMap, owner *model.TypeInfo) (*model.ParsedFunction, error) {
	if len(fn.Generics.Types) > 0 {
		return nil, errors.UnsupportedShape(fn.Span, "generic function %s cannot be exported", fn.Name)
	}
	if fn.Receiver != nil && owner == nil {
		return nil, errors.UnsupportedShape(fn.Receiver.Span, "self outside an impl block")
	}

	unalias := func(rt *model.RustType) *model.RustType {
		if owner == nil {
			return rt
		}
		return rt.SelfUnaliased(*owner)
	}

	pf := &model.ParsedFunction{Ident: fn.Name, Alias: alias, Span: fn.Span}
	if r := fn.Receiver; r != nil {
		if !r.Ref {
			return nil, errors.UnsupportedShape(r.Span, "%s takes self by value; exported methods borrow self", fn.Name)
		}
		kind := model.Ref
		if r.Mut {
			kind = model.RefMut
		}
		pf.Receiver = &model.ParsedReceiver{Reference: model.Reference{Kind: kind, Lifetime: r.Lifetime}, Span: r.Span}
	}

	for _, a := range fn.Params {
		rt, err := model.ResolveChecked(a.Type, infos)
		if err != nil {
			return nil, withPath(err, fn.Name, a.Name)
		}
		rt = unalias(rt)
		if err := checkArg(rt); err != nil {
			return nil, withPath(err, fn.Name, a.Name)
		}
		pf.Args = append(pf.Args, model.ParsedArg{Name: a.Name, Type: rt, Span: a.Span})
	}

	ret, err := model.ResolveChecked(fn.Return, infos)
	if err != nil {
		return nil, withPath(err, fn.Name, "return")
	}
	ret = unalias(ret)
	if err := checkReturn(ret); err != nil {
		return nil, withPath(err, fn.Name, "return")
	}
	pf.Return = ret
	return pf, nil
}
