package access

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
)

// Pattern binds an element reached through a shared borrow (&T) so that
// item is always &U, where U is the element type without its reference.
func Pattern(elem *model.RustType) string {
	if elem.IsRef() {
		return "&item"
	}
	return "item"
}

// NativeElem converts item (a &U) into the element's C-ABI form. String
// elements are copied into fresh C strings the host must free.
func NativeElem(elem *model.RustType, item string) string {
	if p, ok := elem.Primitive(); ok {
		if p == model.Bool {
			return "*" + item + " as u8"
		}
		return "*" + item
	}
	if kind, ok := elem.ValueKind(); ok {
		switch kind {
		case model.ValueCString:
			return fmt.Sprintf("%s.clone().into_raw() as *const %s", item, ffi.CChar)
		case model.ValueString:
			return fmt.Sprintf("%s::new(%s.as_str()).expect(%q).into_raw() as *const %s", ffi.CString, item, nulMsg, ffi.CChar)
		case model.ValueStr:
			return fmt.Sprintf("%s::new(%s).expect(%q).into_raw() as *const %s", ffi.CString, item, nulMsg, ffi.CChar)
		}
	}
	info, _ := elem.Custom()
	switch info.Category {
	case model.CategoryEnum:
		return item + "._rid_into_discriminant()"
	case model.CategoryPrim:
		return "*" + item
	}
	return fmt.Sprintf("%s as *const %s", item, info.Key)
}

const nulMsg = "rid: string contains an interior nul byte"

// HostElem converts a raw element value on the host into its Dart value.
func HostElem(elem *model.RustType, raw string) string {
	if p, ok := elem.Primitive(); ok {
		if p == model.Bool {
			return raw + " != 0"
		}
		return raw
	}
	if elem.IsStringLike() {
		return raw + ".takeDartString()"
	}
	info, _ := elem.Custom()
	switch info.Category {
	case model.CategoryEnum:
		return info.Key + ".values[" + raw + "]"
	case model.CategoryPrim:
		return raw
	}
	return raw + ".toDart()"
}

// HostArg converts a Dart value into the native argument form.
func HostArg(rt *model.RustType, v string) string {
	if rt.IsBool() {
		return v + " ? 1 : 0"
	}
	if rt.IsStringLike() {
		return v + ".toNativeInt8()"
	}
	if rt.IsEnum() {
		return v + ".index"
	}
	return v
}

// IntoRidVec renders the expression converting the owned vector expr into
// a foreign vector.
func IntoRidVec(vec *model.RustType, expr string) string {
	elem := vec.Inner()
	return fmt.Sprintf("%s::from(%s.iter().map(|%s| %s).collect::<Vec<_>>())",
		ffi.RidVec, expr, Pattern(elem), NativeElem(elem, "item"))
}

type sig struct {
	native string
	dart   string
}

func sigOf(rt *model.RustType, pos ffi.Position) sig {
	return sig{native: ffi.DartNative(rt, pos), dart: ffi.DartFFI(rt, pos)}
}

var (
	sizeSig = sig{native: "Size", dart: "int"}
	u8Sig   = sig{native: "Uint8", dart: "int"}
	voidSig = sig{native: "Void", dart: "void"}
)

// writeLookup binds a native entry on the host.
func writeLookup(b *strings.Builder, name string, ret sig, args ...sig) {
	natives := make([]string, len(args))
	darts := make([]string, len(args))
	for i, a := range args {
		natives[i] = a.native
		darts[i] = a.dart
	}
	fmt.Fprintf(b, "final _%s = _dl.lookupFunction<%s Function(%s), %s Function(%s)>('%s');\n",
		name, ret.native, strings.Join(natives, ", "), ret.dart, strings.Join(darts, ", "), name)
}

func writeEntry(b *strings.Builder, signature string) {
	b.WriteString(ffi.EntryAttrs)
	b.WriteString("pub extern \"C\" fn ")
	b.WriteString(signature)
	b.WriteString(" {\n")
}
