package native

import (
	"fmt"

	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
)

const utf8Msg = "Received String that wasn't valid UTF-8."

// param is one marshalled argument: the C parameter, the statement that
// restores the native value, and the expression passed to the call.
type param struct {
	decl string
	stmt string
	call string
}

func (r *Renderer) marshalArg(name string, rt *model.RustType, entry string) (param, error) {
	p := param{decl: name + ": " + ffi.Rust(rt, ffi.Arg), call: name}
	switch {
	case rt.IsBool():
		p.call = name + " != 0"
	case rt.IsPrimitive():
	case rt.IsStringLike():
		kind, _ := rt.ValueKind()
		if kind == model.ValueCString {
			p.stmt = fmt.Sprintf("let %s = unsafe { %s::from_raw(%s) };", name, ffi.CString, name)
		} else {
			p.stmt = fmt.Sprintf("let %s = unsafe { %s::from_raw(%s) }.to_str().expect(%q).to_string();", name, ffi.CString, name, utf8Msg)
		}
		switch {
		case kind == model.ValueStr:
			p.call = name + ".as_str()"
		case rt.IsRef():
			p.call = "&" + name
		}
	case rt.IsEnum():
		info, _ := rt.Custom()
		if err := r.requireEnum(info.Key, entry); err != nil {
			return p, err
		}
		p.stmt = fmt.Sprintf("let %s = %s::_rid_from_discriminant(%s);", name, info.Key, name)
		if rt.IsRef() {
			p.call = "&" + name
		}
	case rt.IsStruct():
		if !rt.IsRef() {
			return p, errors.UnsupportedShape(rt.Span, "struct argument %s must be passed by reference", rt)
		}
		p.stmt = fmt.Sprintf("let %s = %s;", name, reborrow(name, rt.IsRefMut(), entry+": null pointer for "+name))
	default:
		info, ok := rt.Custom()
		if !ok || info.Category != model.CategoryPrim {
			return p, errors.UnsupportedShape(rt.Span, "unsupported argument type %s", rt)
		}
	}
	return p, nil
}

func reborrow(ptr string, mut bool, msg string) string {
	if mut {
		return fmt.Sprintf("unsafe { %s.as_mut() }.expect(%q)", ptr, msg)
	}
	return fmt.Sprintf("unsafe { %s.as_ref() }.expect(%q)", ptr, msg)
}

// receiver marshals a method receiver into the leading ptr parameter.
func receiver(owner string, rcv *model.ParsedReceiver, entry string) param {
	mut := rcv.Reference.Kind == model.RefMut
	return param{
		decl: "ptr: " + ffi.PointerAlias(owner, mut),
		stmt: "let receiver = " + reborrow("ptr", mut, entry+": null receiver") + ";",
	}
}

// marshalReturn converts ret into its C form. It returns the C return type
// (empty for unit) and the returned expression.
func (r *Renderer) marshalReturn(rt *model.RustType, ret, entry string) (string, string, error) {
	if rt == nil || rt.IsUnit() {
		return "", "", nil
	}
	cty := ffi.Rust(rt, ffi.Return)

	if p, ok := rt.Primitive(); ok {
		expr := ret
		if rt.IsRef() {
			expr = "*" + ret
		}
		if p == model.Bool {
			expr += " as u8"
		}
		return cty, expr, nil
	}

	if kind, ok := rt.ValueKind(); ok && rt.IsStringLike() {
		r.useCStringFree(entry)
		switch {
		case kind == model.ValueCString && !rt.IsRef():
			return cty, ret + ".into_raw() as *const " + ffi.CChar, nil
		case kind == model.ValueString && !rt.IsRef():
			return cty, fmt.Sprintf("%s::new(%s).expect(%q).into_raw() as *const %s", ffi.CString, ret, "rid: string contains an interior nul byte", ffi.CChar), nil
		}
		return cty, access.NativeElem(rt, ret), nil
	}

	if info, ok := rt.Custom(); ok {
		switch info.Category {
		case model.CategoryEnum:
			if err := r.requireEnum(info.Key, entry); err != nil {
				return "", "", err
			}
			return cty, ret + "._rid_into_discriminant()", nil
		case model.CategoryPrim:
			if rt.IsRef() {
				return cty, "*" + ret, nil
			}
			return cty, ret, nil
		}
		if rt.IsRef() {
			return cty, ret + " as *const " + info.Key, nil
		}
		r.requireFree(info.Key, entry)
		return cty, "Box::into_raw(Box::new(" + ret + "))", nil
	}

	c, ok := rt.Composite()
	if !ok {
		return "", "", errors.UnsupportedShape(rt.Span, "return type %s is not supported", rt)
	}
	if err := r.requireEnums(rt, entry); err != nil {
		return "", "", err
	}
	switch c.Kind {
	case model.CompositeVec:
		r.registerAccess(rt, access.KindOf(rt), entry)
		if rt.IsRef() {
			return cty, ret + " as *const " + ffi.RustPath(rt.Owned()), nil
		}
		return cty, access.IntoRidVec(rt, ret), nil
	case model.CompositeHashMap:
		r.registerAccess(rt, access.KindOf(rt), entry)
		if rt.IsRef() {
			return cty, ret + " as *const " + ffi.RustPath(rt.Owned()), nil
		}
		return cty, "Box::into_raw(Box::new(" + ret + ")) as *const " + ffi.RustPath(rt.Owned()), nil
	case model.CompositeOption:
		return cty, r.optionReturn(rt, c.Inner, ret, entry), nil
	}
	return "", "", errors.UnsupportedShape(rt.Span, "return type %s is not supported", rt)
}

// optionReturn encodes None as null (or -1 for enums) and Some as a pointer
// to the referent.
func (r *Renderer) optionReturn(rt, in *model.RustType, ret, entry string) string {
	if in.IsStruct() && !in.IsRef() && !rt.IsRef() {
		r.requireFree(in.Key(), entry)
		return ret + ".map_or(::std::ptr::null_mut(), |x| Box::into_raw(Box::new(x)))"
	}
	src := ret
	if rt.IsRef() || !in.IsRef() {
		src = ret + ".as_ref()"
	}
	switch {
	case in.IsEnum():
		return src + ".map_or(-1, |x| x._rid_into_discriminant())"
	case in.IsStringLike():
		r.useCStringFree(entry)
		return fmt.Sprintf("%s.map_or(::std::ptr::null(), |x| %s)", src, access.NativeElem(in, "x"))
	case in.IsStruct():
		return fmt.Sprintf("%s.map_or(::std::ptr::null(), |x| x as *const %s)", src, in.Key())
	}
	return fmt.Sprintf("%s.map_or(::std::ptr::null(), |x| x as *const %s)", src, in.Owned())
}
