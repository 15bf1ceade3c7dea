package host

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/model"
)

type field struct {
	name string // Dart name
	typ  string // Dart value type
	proj string // expression building the value inside toDart
	rt   *model.RustType
}

func (r *Renderer) structItem(b *strings.Builder, s *model.ParsedStruct) {
	r.rawClass(s.Ident)
	raw := "Pointer<" + s.RawIdent + ">"
	self := sig{raw, raw}

	var fields []field
	var getters strings.Builder
	for _, f := range s.Fields {
		fn := ffi.FieldAccessor(s.Ident, f.Name)
		rt := f.Type
		if !rt.IsRef() {
			rt = rt.WithRef(model.Ref, "")
		}
		name := model.LowerCamel(f.Name)
		fd := field{name: name, typ: ffi.DartType(f.Type), proj: name, rt: f.Type}
		call := "_" + fn + "(this)"

		switch {
		case f.Type.IsVec():
			fmt.Fprintf(&getters, "  %s get %s => %s;\n", ffi.DartFFI(rt, ffi.Return), name, call)
			fd.proj = name + ".toDart().toList()"
		case f.Type.IsHashMap():
			fmt.Fprintf(&getters, "  %s get %s => %s;\n", ffi.DartFFI(rt, ffi.Return), name, call)
			fd.proj = name + ".toDart()"
		default:
			val, err := r.value(rt, call)
			if err != nil {
				r.diagnose(err, s.Ident+"."+f.Name)
				continue
			}
			fmt.Fprintf(&getters, "  %s get %s => %s;\n", fd.typ, name, val)
		}
		lookup(&r.lookups, fn, sigOf(rt, ffi.Return), self)
		fields = append(fields, fd)
	}

	fmt.Fprintf(b, "extension %sExt on %s {\n", s.RawIdent, raw)
	b.WriteString(getters.String())
	projs := make([]string, len(fields))
	for i, f := range fields {
		projs[i] = f.proj
	}
	fmt.Fprintf(b, "  %s toDart() => rid.runLocked(() => %s._(%s), request: '%s.toDart');\n",
		s.Ident, s.Ident, strings.Join(projs, ", "), s.Ident)
	r.formatters(b, s.Ident, self, "this")
	if r.ctx.Emitted(genstate.Free, ffi.FreeFn(s.Ident)) {
		fmt.Fprintf(b, "  void dispose() => %s(this);\n", r.freeLookup(s.Ident))
	}
	b.WriteString("}\n\n")

	valueClass(b, s.Ident, fields)
}

// formatters binds the debug and display entries of owner, if rendered.
func (r *Renderer) formatters(b *strings.Builder, owner string, self sig, recv string) {
	str := sig{"Pointer<Int8>", "Pointer<Int8>"}
	debug, pretty := ffi.DebugFn(owner, false), ffi.DebugFn(owner, true)
	if r.ctx.Emitted(genstate.Formatter, debug) {
		lookup(&r.lookups, debug, str, self)
		lookup(&r.lookups, pretty, str, self)
		fmt.Fprintf(b, "  String debug([bool pretty = false]) => (pretty ? _%s(%s) : _%s(%s)).takeDartString();\n",
			pretty, recv, debug, recv)
	}
	display := ffi.DisplayFn(owner)
	if r.ctx.Emitted(genstate.Formatter, display) {
		lookup(&r.lookups, display, str, self)
		fmt.Fprintf(b, "  String display() => _%s(%s).takeDartString();\n", display, recv)
	}
}

// valueClass emits the immutable projection of a struct. Equality and
// hashing cover every field; toString lists them in declaration order.
func valueClass(b *strings.Builder, name string, fields []field) {
	fmt.Fprintf(b, "class %s {\n", name)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = "this." + f.name
	}
	fmt.Fprintf(b, "  const %s._(%s);\n\n", name, strings.Join(names, ", "))
	for _, f := range fields {
		fmt.Fprintf(b, "  final %s %s;\n", f.typ, f.name)
	}
	if len(fields) > 0 {
		b.WriteString("\n")
	}

	eq := []string{"other is " + name}
	hash := make([]string, len(fields))
	str := make([]string, len(fields))
	for i, f := range fields {
		switch {
		case f.rt.IsCollection():
			eq = append(eq, fmt.Sprintf("_ridEquals(%s, other.%s)", f.name, f.name))
		default:
			eq = append(eq, fmt.Sprintf("%s == other.%s", f.name, f.name))
		}
		switch {
		case f.rt.IsVec():
			hash[i] = "Object.hashAll(" + f.name + ")"
		case f.rt.IsHashMap():
			hash[i] = "Object.hashAllUnordered(" + f.name + ".keys)"
		default:
			hash[i] = f.name + ".hashCode"
		}
		str[i] = f.name + ": $" + f.name
	}
	b.WriteString("  @override\n")
	fmt.Fprintf(b, "  bool operator ==(Object other) =>\n      identical(this, other) ||\n      %s;\n\n", strings.Join(eq, " && "))
	b.WriteString("  @override\n")
	if len(hash) == 0 {
		b.WriteString("  int get hashCode => 0;\n\n")
	} else {
		fmt.Fprintf(b, "  int get hashCode => %s;\n\n", strings.Join(hash, " ^ "))
	}
	b.WriteString("  @override\n")
	fmt.Fprintf(b, "  String toString() => '%s{%s}';\n}\n\n", name, strings.Join(str, ", "))
}

func (r *Renderer) enumItem(b *strings.Builder, e *model.ParsedEnum) error {
	r.enum(b, e.Ident)
	var ext strings.Builder
	r.formatters(&ext, e.Ident, sig{"Int32", "int"}, "index")
	if ext.Len() > 0 {
		fmt.Fprintf(b, "extension %sFormat on %s {\n%s}\n\n", e.Ident, e.Ident, ext.String())
	}
	return nil
}

func (r *Renderer) replyItem(b *strings.Builder, rp *model.ParsedReply) error {
	if !r.ctx.Claim(genstate.DartEnum, rp.Ident, rp.Ident) {
		return nil
	}
	idents := make([]string, len(rp.Variants))
	for i, v := range rp.Variants {
		idents[i] = v.Ident
	}
	fmt.Fprintf(b, "enum %s { %s }\n\n", rp.Ident, strings.Join(idents, ", "))
	return nil
}

// messageItem emits one send method per variant. A send mints a request
// id, dispatches, and awaits the reply carrying that id.
func (r *Renderer) messageItem(b *strings.Builder, m *model.ParsedMessage) error {
	if len(r.crate.Replies()) == 0 {
		return errors.New(errors.PhaseRender, errors.KindReplyShape).
			At(m.Span).
			Detail("message %s has no reply enum to await", m.Ident).
			Build()
	}
	fmt.Fprintf(b, "extension %sSend on Rid {\n", m.Ident)
	for i, v := range m.Variants {
		fn := ffi.MessageFn(v.Ident)
		args := []sig{{"Uint64", "int"}}
		var params []string
		calls := []string{"reqId"}
		for _, f := range v.Fields {
			name := model.LowerCamel(f.Name)
			args = append(args, sigOf(f.Type, ffi.Arg))
			params = append(params, ffi.DartType(f.Type)+" "+name)
			calls = append(calls, access.HostArg(f.Type, name))
		}
		params = append(params, "{Duration? timeout}")
		lookup(&r.lookups, fn, voidSig, args...)

		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "  Future<PostedReply> %s(%s) {\n", model.LowerCamel(v.Ident), strings.Join(params, ", "))
		b.WriteString("    final reqId = replyChannel.reqId;\n")
		fmt.Fprintf(b, "    _%s(%s);\n", fn, strings.Join(calls, ", "))
		b.WriteString("    return replyChannel.reply(reqId, timeout: timeout ?? RID_MSG_TIMEOUT, callSite: StackTrace.current);\n")
		b.WriteString("  }\n")
	}
	b.WriteString("}\n\n")
	return nil
}

// implItem binds the exported methods of an owner as an extension on its
// opaque pointer. Read-only store methods also get a wrapper on Rid that
// holds the read lock for the call.
func (r *Renderer) implItem(b *strings.Builder, impl *model.ParsedImpl) {
	owner := impl.OwnerName()
	isStore := r.crate.Store != nil && r.crate.Store.Ident == owner
	raw := "Pointer<" + ffi.RawClass(owner) + ">"

	var methods, statics, api strings.Builder
	for _, m := range impl.Methods {
		if r.skipped(owner + "::" + m.Ident) {
			continue
		}
		e, err := r.entry(owner, m)
		if err != nil {
			r.diagnose(err, owner+"::"+m.Ident)
			continue
		}
		if !m.IsMethod() {
			statics.WriteString(e.decl("", model.LowerCamel(owner)+model.UpperCamel(e.name)))
			continue
		}
		methods.WriteString(e.decl("  ", e.name))
		if isStore && m.Receiver.Reference.Kind != model.RefMut {
			fmt.Fprintf(&api, "  %s %s(%s) => runLocked(() => store.%s(%s), request: '%s');\n",
				e.ret, e.name, strings.Join(e.params, ", "), e.name, strings.Join(e.names, ", "), e.name)
		}
	}

	if methods.Len() > 0 {
		r.rawClass(owner)
		fmt.Fprintf(b, "extension %sMethods on %s {\n%s}\n\n", ffi.RawClass(owner), raw, methods.String())
	}
	if api.Len() > 0 {
		fmt.Fprintf(b, "extension %sApi on Rid {\n%s}\n\n", owner, api.String())
	}
	if statics.Len() > 0 {
		b.WriteString(statics.String())
		b.WriteString("\n")
	}
}

func (r *Renderer) function(b *strings.Builder, owner string, f *model.ParsedFunction) error {
	e, err := r.entry(owner, f)
	if err != nil {
		return err
	}
	b.WriteString(e.decl("", e.name))
	b.WriteString("\n")
	return nil
}

// entry is the host binding of one exported function.
type entry struct {
	name   string
	ret    string
	params []string
	names  []string
	body   string
}

func (e entry) decl(indent, name string) string {
	return fmt.Sprintf("%s%s %s(%s) => %s;\n", indent, e.ret, name, strings.Join(e.params, ", "), e.body)
}

func (r *Renderer) entry(owner string, f *model.ParsedFunction) (entry, error) {
	native := ffi.ExportName(owner, f)
	var args []sig
	var calls []string
	if f.IsMethod() {
		p := "Pointer<" + ffi.RawClass(owner) + ">"
		args = append(args, sig{p, p})
		calls = append(calls, "this")
	}

	e := entry{name: model.LowerCamel(f.Ident), ret: returnType(f.Return)}
	if f.Alias != "" {
		e.name = model.LowerCamel(f.Alias)
	}
	for _, a := range f.Args {
		name := model.LowerCamel(a.Name)
		args = append(args, sigOf(a.Type, ffi.Arg))
		e.params = append(e.params, r.argType(a.Type)+" "+name)
		e.names = append(e.names, name)
		calls = append(calls, access.HostArg(a.Type, name))
	}

	call := "_" + native + "(" + strings.Join(calls, ", ") + ")"
	val, err := r.value(f.Return, call)
	if err != nil {
		return e, err
	}
	if val == "" {
		val = call
	}
	e.body = val
	lookup(&r.lookups, native, sigOf(f.Return, ffi.Return), args...)
	return e, nil
}
