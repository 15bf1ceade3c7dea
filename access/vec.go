package access

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
)

// VecAccess exposes a Vec<T>. Field references are walked through a
// pointer to the live vector; method returns arrive as a foreign vector
// the host frees.
type VecAccess struct {
	elem *model.RustType
	kind Kind
	span errors.Span
}

// NewVec creates the access of Vec<elem>.
func NewVec(elem *model.RustType, kind Kind, span errors.Span) *VecAccess {
	return &VecAccess{elem: elem, kind: kind, span: span}
}

func (v *VecAccess) Key() string {
	if v.kind == MethodReturn {
		return "ridvec_" + ffi.ElemKey(v.elem)
	}
	return "vec_" + ffi.ElemKey(v.elem)
}

func (v *VecAccess) Kind() Kind                  { return v.kind }
func (v *VecAccess) Span() errors.Span           { return v.span }
func (v *VecAccess) Elem() *model.RustType       { return v.elem }
func (v *VecAccess) Elements() []*model.RustType { return []*model.RustType{v.elem} }
func (v *VecAccess) Nested() []Access            { return nil }

func (v *VecAccess) Container() *model.RustType {
	rt := model.NewVec(v.elem)
	rt.Span = v.span
	return rt
}

func (v *VecAccess) Functions() Functions {
	key := v.Key()
	f := Functions{Len: "rid_len_" + key, Get: "rid_get_item_" + key}
	if v.kind == MethodReturn {
		f.Free = "rid_free_" + key
	}
	return f
}

// param is the native parameter through which the vector arrives.
func (v *VecAccess) param() string {
	if v.kind == MethodReturn {
		return "vec: " + v.ridVec()
	}
	return "ptr: *const " + ffi.RustPath(v.Container())
}

func (v *VecAccess) ridVec() string {
	return ffi.RidVec + "<" + ffi.Rust(v.elem, ffi.Elem) + ">"
}

func (v *VecAccess) RenderNative(b *strings.Builder) {
	fns := v.Functions()
	elemType := ffi.Rust(v.elem, ffi.Elem)

	writeEntry(b, fmt.Sprintf("%s(%s) -> usize", fns.Len, v.param()))
	if v.kind == MethodReturn {
		b.WriteString("    vec.len()\n}\n\n")
	} else {
		fmt.Fprintf(b, "    let vec = unsafe { ptr.as_ref() }.expect(%q);\n", fns.Len+": null vector pointer")
		b.WriteString("    vec.len()\n}\n\n")
	}

	writeEntry(b, fmt.Sprintf("%s(%s, idx: usize) -> %s", fns.Get, v.param(), elemType))
	if v.kind == MethodReturn {
		if v.elem.IsStringLike() {
			b.WriteString("    let item = vec.get(idx);\n")
			fmt.Fprintf(b, "    unsafe { %s::from_ptr(item) }.to_owned().into_raw() as *const %s\n}\n\n", ffi.CStr, ffi.CChar)
		} else {
			b.WriteString("    vec.get(idx)\n}\n\n")
		}
	} else {
		fmt.Fprintf(b, "    let vec = unsafe { ptr.as_ref() }.expect(%q);\n", fns.Get+": null vector pointer")
		fmt.Fprintf(b, "    let %s = vec.get(idx).expect(%q);\n", Pattern(v.elem), fns.Get+": index out of bounds")
		fmt.Fprintf(b, "    %s\n}\n\n", NativeElem(v.elem, "item"))
	}

	if fns.Free == "" {
		return
	}
	writeEntry(b, fmt.Sprintf("%s(%s)", fns.Free, v.param()))
	if v.elem.IsStringLike() {
		b.WriteString("    for idx in 0..vec.len() {\n")
		fmt.Fprintf(b, "        drop(unsafe { %s::from_raw(vec.get(idx) as *mut %s) });\n", ffi.CString, ffi.CChar)
		b.WriteString("    }\n")
	}
	b.WriteString("    vec.free();\n}\n\n")
}

// HostClass is the Dart type of the container handle.
func (v *VecAccess) HostClass() string {
	if v.kind == MethodReturn {
		return ffi.RidVecClass(v.elem)
	}
	return "Pointer<" + ffi.RawVecClass(v.elem) + ">"
}

func (v *VecAccess) RenderHost(b *strings.Builder) {
	fns := v.Functions()
	handle := sig{native: v.HostClass(), dart: v.HostClass()}
	elem := sigOf(v.elem, ffi.Elem)
	dartElem := ffi.DartType(v.elem)

	if v.kind == MethodReturn {
		fmt.Fprintf(b, "final class %s extends Struct {\n", ffi.RidVecClass(v.elem))
		fmt.Fprintf(b, "  external Pointer<%s> data;\n", elem.native)
		b.WriteString("  @Size()\n  external int len;\n")
		b.WriteString("  @Size()\n  external int capacity;\n}\n\n")
	} else {
		fmt.Fprintf(b, "final class %s extends Opaque {}\n\n", ffi.RawVecClass(v.elem))
	}

	writeLookup(b, fns.Len, sizeSig, handle)
	writeLookup(b, fns.Get, elem, handle, sizeSig)
	if fns.Free != "" {
		writeLookup(b, fns.Free, voidSig, handle)
	}
	b.WriteString("\n")

	ext := ffi.RawVecClass(v.elem)
	if v.kind == MethodReturn {
		ext = ffi.RidVecClass(v.elem)
	}
	fmt.Fprintf(b, "extension %sAccess on %s {\n", ext, v.HostClass())
	fmt.Fprintf(b, "  int get length => _%s(this);\n", fns.Len)
	fmt.Fprintf(b, "  %s operator [](int idx) => _%s(this, idx);\n", elem.dart, fns.Get)
	if fns.Free != "" {
		fmt.Fprintf(b, "  void dispose() => _%s(this);\n", fns.Free)
		fmt.Fprintf(b, "  RidList<%s> toDart() => RidList<%s>(length, (i) => %s, dispose);\n", dartElem, dartElem, HostElem(v.elem, "this[i]"))
		fmt.Fprintf(b, "  List<%s> take() {\n    try {\n      return toDart().toList();\n    } finally {\n      dispose();\n    }\n  }\n", dartElem)
	} else {
		fmt.Fprintf(b, "  RidList<%s> toDart() => RidList<%s>(length, (i) => %s);\n", dartElem, dartElem, HostElem(v.elem, "this[i]"))
	}
	b.WriteString("}\n\n")
}
