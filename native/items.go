package native

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/model"
)

// requireEnum emits the discriminant coders of a c-style enum, once per
// unit.
func (r *Renderer) requireEnum(name, user string) error {
	e, ok := r.crate.Enums[name]
	if !ok {
		return errors.New(errors.PhaseRender, errors.KindTypeUnknown).
			Value(name).
			Detail("enum %s is not declared as a c-style enum in this unit", name).
			Build()
	}
	if !r.ctx.Claim(genstate.Discriminant, name, user) {
		return nil
	}
	writeCoders(&r.prelude, e)
	return nil
}

// requireEnums emits coders for every enum reachable from rt.
func (r *Renderer) requireEnums(rt *model.RustType, user string) error {
	var err error
	rt.Walk(func(t *model.RustType) {
		if err != nil || !t.IsEnum() {
			return
		}
		err = r.requireEnum(t.Key(), user)
	})
	return err
}

func writeCoders(b *strings.Builder, e *model.ParsedEnum) {
	fmt.Fprintf(b, "#[allow(dead_code)]\nimpl %s {\n", e.Ident)
	b.WriteString("    pub fn _rid_from_discriminant(d: i32) -> Self {\n        match d {\n")
	for _, v := range e.Variants {
		fmt.Fprintf(b, "            %d => %s::%s,\n", v.Discriminant, e.Ident, v.Ident)
	}
	fmt.Fprintf(b, "            _ => panic!(\"rid: invalid discriminant {} for enum %s\", d),\n", e.Ident)
	b.WriteString("        }\n    }\n\n")
	b.WriteString("    pub fn _rid_into_discriminant(&self) -> i32 {\n        match self {\n")
	for _, v := range e.Variants {
		fmt.Fprintf(b, "            %s::%s => %d,\n", e.Ident, v.Ident, v.Discriminant)
	}
	b.WriteString("        }\n    }\n}\n\n")
}

// requireFree emits rid_free_{T} for a boxed struct, once per unit.
func (r *Renderer) requireFree(key, user string) {
	name := ffi.FreeFn(key)
	if !r.ctx.Claim(genstate.Free, name, user) {
		return
	}
	r.entry(&r.prelude, name, []string{"ptr: " + ffi.PointerAlias(key, true)}, "",
		[]string{"assert!(!ptr.is_null(), " + fmt.Sprintf("%q", name+": null pointer") + ");"},
		"drop(unsafe { Box::from_raw(ptr) });")
}

func (r *Renderer) structItem(b *strings.Builder, s *model.ParsedStruct) error {
	recv := &model.ParsedReceiver{Reference: model.Reference{Kind: model.Ref}}
	for _, f := range s.Fields {
		name := ffi.FieldAccessor(s.Ident, f.Name)
		rt := f.Type
		expr := "&receiver." + f.Name
		if rt.IsRef() {
			expr = "receiver." + f.Name
		} else {
			rt = rt.WithRef(model.Ref, "")
		}
		ret, tail, err := r.marshalReturn(rt, "ret", name)
		if err != nil {
			return withField(err, s.Ident, f.Name)
		}
		rcv := receiver(s.Ident, recv, name)
		r.entry(b, name, []string{rcv.decl}, ret, []string{rcv.stmt, "let ret = " + expr + ";"}, tail)
	}
	if s.Debug {
		r.formatter(b, s.Ident, ffi.DebugFn(s.Ident, false), "{:?}", false)
		r.formatter(b, s.Ident, ffi.DebugFn(s.Ident, true), "{:#?}", false)
	}
	if s.Display {
		r.formatter(b, s.Ident, ffi.DisplayFn(s.Ident), "{}", false)
	}
	return nil
}

func withField(err error, owner, field string) error {
	if e, ok := errors.As(err); ok && len(e.Path) == 0 {
		e.Path = []string{owner, field}
		return e
	}
	return err
}

// formatter emits an entry rendering a value with format. Enum values
// arrive as discriminants, structs as pointers.
func (r *Renderer) formatter(b *strings.Builder, owner, name, format string, enum bool) {
	if !r.ctx.Claim(genstate.Formatter, name, owner) {
		return
	}
	r.useCStringFree(name)
	var params, stmts []string
	if enum {
		params = []string{"n: i32"}
		stmts = []string{fmt.Sprintf("let receiver = %s::_rid_from_discriminant(n);", owner)}
	} else {
		rcv := receiver(owner, &model.ParsedReceiver{Reference: model.Reference{Kind: model.Ref}}, name)
		params = []string{rcv.decl}
		stmts = []string{rcv.stmt}
	}
	stmts = append(stmts, fmt.Sprintf("let s = format!(%q, receiver);", format))
	r.entry(b, name, params, "*const "+ffi.CChar, stmts,
		fmt.Sprintf("%s::new(s).expect(%q).into_raw() as *const %s", ffi.CString, "rid: string contains an interior nul byte", ffi.CChar))
}

func (r *Renderer) enumItem(b *strings.Builder, e *model.ParsedEnum) error {
	if err := r.requireEnum(e.Ident, e.Ident); err != nil {
		return err
	}
	if e.Debug {
		r.formatter(b, e.Ident, ffi.DebugFn(e.Ident, false), "{:?}", true)
		r.formatter(b, e.Ident, ffi.DebugFn(e.Ident, true), "{:#?}", true)
	}
	return nil
}

// messageItem emits one dispatcher per variant. Each dispatch holds the
// store write lock for exactly one update.
func (r *Renderer) messageItem(b *strings.Builder, m *model.ParsedMessage) error {
	if r.crate.Store == nil {
		return errors.NamingContract(m.Span, "messages are dispatched to the store; declare #[rid::store] struct Store")
	}
	var out strings.Builder
	for _, v := range m.Variants {
		name := ffi.MessageFn(v.Ident)
		params := []string{"req_id: u64"}
		var stmts, calls []string
		for _, f := range v.Fields {
			p, err := r.marshalArg(f.Name, f.Type, name)
			if err != nil {
				return withField(err, m.Ident+"::"+v.Ident, f.Name)
			}
			params = append(params, p.decl)
			if p.stmt != "" {
				stmts = append(stmts, p.stmt)
			}
			switch {
			case !v.Named:
				calls = append(calls, p.call)
			case p.call == f.Name:
				calls = append(calls, f.Name)
			default:
				calls = append(calls, f.Name+": "+p.call)
			}
		}
		ctor := m.Ident + "::" + v.Ident
		switch {
		case len(v.Fields) == 0:
		case v.Named:
			ctor += " { " + strings.Join(calls, ", ") + " }"
		default:
			ctor += "(" + strings.Join(calls, ", ") + ")"
		}
		stmts = append(stmts, "let msg = "+ctor+";", "let mut store = rid_store::write();")
		r.entry(&out, name, params, "", stmts, "store.update(req_id, msg);")
	}
	b.WriteString(out.String())
	return nil
}

// replyItem emits Reply::post, which packs the variant and posts it on the
// reply channel.
func (r *Renderer) replyItem(b *strings.Builder, rp *model.ParsedReply) error {
	fmt.Fprintf(b, "impl %s {\n", rp.Ident)
	b.WriteString("    #[allow(dead_code)]\n    pub fn post(self) {\n        match self {\n")
	for _, v := range rp.Variants {
		switch v.Shape {
		case model.ReplyBare:
			fmt.Fprintf(b, "            %s::%s => rid_reply::post(rid_reply::encode_without_id(%d), None),\n", rp.Ident, v.Ident, v.Index)
		case model.ReplyWithID:
			fmt.Fprintf(b, "            %s::%s(id) => rid_reply::post(rid_reply::encode_with_id(%d, id), None),\n", rp.Ident, v.Ident, v.Index)
		case model.ReplyWithIDAndData:
			fmt.Fprintf(b, "            %s::%s(id, data) => rid_reply::post(rid_reply::encode_with_id(%d, id), Some(data)),\n", rp.Ident, v.Ident, v.Index)
		default:
			return errors.ReplyShape(v.Span, v.Ident)
		}
	}
	b.WriteString("        }\n    }\n}\n")
	return nil
}

// implItem emits one entry per exported method. A failing method is
// reported on its own; its siblings are kept.
func (r *Renderer) implItem(b *strings.Builder, impl *model.ParsedImpl) {
	owner := impl.OwnerName()
	for _, m := range impl.Methods {
		var mb strings.Builder
		if err := r.function(&mb, owner, m); err != nil {
			r.diagnose(err, owner+"::"+m.Ident)
			continue
		}
		b.WriteString(mb.String())
	}
}

// function emits rid_export_* for a free function or a method of owner.
func (r *Renderer) function(b *strings.Builder, owner string, f *model.ParsedFunction) error {
	name := ffi.ExportName(owner, f)
	var params, stmts, args []string

	callee := f.Ident
	switch {
	case f.IsMethod():
		rcv := receiver(owner, f.Receiver, name)
		params = append(params, rcv.decl)
		stmts = append(stmts, rcv.stmt)
		callee = "receiver." + f.Ident
	case owner != "":
		callee = owner + "::" + f.Ident
	}

	for _, a := range f.Args {
		p, err := r.marshalArg(a.Name, a.Type, name)
		if err != nil {
			return withField(err, f.Ident, a.Name)
		}
		params = append(params, p.decl)
		if p.stmt != "" {
			stmts = append(stmts, p.stmt)
		}
		args = append(args, p.call)
	}
	call := callee + "(" + strings.Join(args, ", ") + ")"

	ret, tail, err := r.marshalReturn(f.Return, "ret", name)
	if err != nil {
		return withField(err, f.Ident, "return")
	}
	if ret == "" {
		r.entry(b, name, params, "", stmts, call+";")
		return nil
	}
	stmts = append(stmts, "let ret = "+call+";")
	r.entry(b, name, params, ret, stmts, tail)
	return nil
}
