package ffi

import (
	"fmt"

	"github.com/wippyai/ridgen/model"
)

// Position is where a type crosses the boundary.
type Position int

const (
	// Arg is an entry parameter passed from the host.
	Arg Position = iota
	// Return is an entry result handed to the host.
	Return
	// Elem is a container element returned by an accessor.
	Elem
)

// Rust paths used in generated signatures.
const (
	CChar    = "::std::os::raw::c_char"
	CString  = "::std::ffi::CString"
	CStr     = "::std::ffi::CStr"
	HashMap  = "::std::collections::HashMap"
	UtilsMod = "rid_utils"
	RidVec   = UtilsMod + "::RidVec"
)

// EntryAttrs precede every generated C entry.
const EntryAttrs = "#[no_mangle]\n#[allow(non_snake_case)]\n"

// PointerAlias returns Pointer_T or PointerMut_T.
func PointerAlias(name string, mut bool) string {
	if mut {
		return "PointerMut_" + name
	}
	return "Pointer_" + name
}

// RawClass is the host-side opaque pointer class of a struct.
func RawClass(name string) string {
	return "Raw" + name
}

// RustPath renders rt as a Rust type for generated code: std paths are
// spelled out and lifetimes are dropped so the type is valid in any
// signature.
func RustPath(rt *model.RustType) string {
	var prefix string
	switch rt.Reference.Kind {
	case model.Ref:
		prefix = "&"
	case model.RefMut:
		prefix = "&mut "
	}
	switch k := rt.Kind.(type) {
	case model.Composite:
		switch k.Kind {
		case model.CompositeVec:
			return prefix + "Vec<" + RustPath(k.Inner) + ">"
		case model.CompositeOption:
			return prefix + "Option<" + RustPath(k.Inner) + ">"
		case model.CompositeHashMap:
			return prefix + HashMap + "<" + RustPath(k.Inner) + ", " + RustPath(k.Inner2) + ">"
		}
	case model.Value:
		if k.Kind == model.ValueCString {
			return prefix + CString
		}
	}
	return prefix + rt.Owned().String()
}

// Rust returns the C-ABI type rt takes at pos.
func Rust(rt *model.RustType, pos Position) string {
	if p, ok := rt.Primitive(); ok {
		if p == model.Bool {
			return "u8"
		}
		return p.String()
	}
	if rt.IsStringLike() {
		if pos == Arg {
			return "*mut " + CChar
		}
		return "*const " + CChar
	}
	if rt.IsEnum() {
		return "i32"
	}
	if info, ok := rt.Custom(); ok {
		switch {
		case info.Category == model.CategoryPrim:
			return info.Key
		case pos == Arg:
			return PointerAlias(info.Key, rt.IsRefMut())
		case pos == Return && !rt.IsRef():
			return PointerAlias(info.Key, true)
		}
		return PointerAlias(info.Key, false)
	}

	c, ok := rt.Composite()
	if !ok {
		return "()"
	}
	switch c.Kind {
	case model.CompositeVec:
		if rt.IsRef() {
			return "*const " + RustPath(rt.Owned())
		}
		return RidVec + "<" + Rust(c.Inner, Elem) + ">"
	case model.CompositeOption:
		in := c.Inner
		switch {
		case in.IsStruct():
			return PointerAlias(in.Key(), !in.IsRef() && !rt.IsRef())
		case in.IsEnum():
			return "i32"
		case in.IsStringLike():
			return "*const " + CChar
		}
		return "*const " + in.Owned().String()
	case model.CompositeHashMap:
		return "*const " + RustPath(rt.Owned())
	}
	return "()"
}

// ElemKey names the element type inside access function names: the key of
// the element with references stripped.
func ElemKey(rt *model.RustType) string {
	return rt.Key()
}

// Dart primitive native types for dart:ffi.
var dartNative = map[model.Primitive]string{
	model.U8:    "Uint8",
	model.I8:    "Int8",
	model.U16:   "Uint16",
	model.I16:   "Int16",
	model.U32:   "Uint32",
	model.I32:   "Int32",
	model.U64:   "Uint64",
	model.I64:   "Int64",
	model.Usize: "Size",
	model.Bool:  "Uint8",
}

// DartNative returns the dart:ffi native type of rt at pos, as used in the
// first type argument of lookupFunction.
func DartNative(rt *model.RustType, pos Position) string {
	if p, ok := rt.Primitive(); ok {
		return dartNative[p]
	}
	if rt.IsStringLike() {
		return "Pointer<Int8>"
	}
	if rt.IsEnum() {
		return "Int32"
	}
	if info, ok := rt.Custom(); ok {
		if info.Category == model.CategoryPrim {
			return "Int64"
		}
		return "Pointer<" + RawClass(info.Key) + ">"
	}
	if rt.IsUnit() {
		return "Void"
	}

	c, ok := rt.Composite()
	if !ok {
		return "Void"
	}
	switch c.Kind {
	case model.CompositeVec:
		if rt.IsRef() || pos == Elem {
			return "Pointer<" + RawVecClass(c.Inner) + ">"
		}
		return RidVecClass(c.Inner)
	case model.CompositeOption:
		in := c.Inner
		if in.IsStruct() || in.IsEnum() || in.IsStringLike() {
			return DartNative(in, pos)
		}
		return "Pointer<" + DartNative(in, Elem) + ">"
	case model.CompositeHashMap:
		if rt.IsRef() {
			return "Pointer<" + RawHashMapClass(c.Inner, c.Inner2) + ">"
		}
		return "Pointer<" + RidHashMapClass(c.Inner, c.Inner2) + ">"
	}
	return "Void"
}

// DartFFI returns the Dart type matching DartNative, as used in the second
// type argument of lookupFunction.
func DartFFI(rt *model.RustType, pos Position) string {
	n := DartNative(rt, pos)
	switch n {
	case "Uint8", "Int8", "Uint16", "Int16", "Uint32", "Int32", "Uint64", "Int64", "Size":
		return "int"
	case "Void":
		return "void"
	}
	return n
}

// RawVecClass is the host opaque class for a borrowed Vec<T>.
func RawVecClass(elem *model.RustType) string {
	return "RawVec_" + ElemKey(elem)
}

// RidVecClass is the host struct class mirroring RidVec of elem.
func RidVecClass(elem *model.RustType) string {
	return "RidVec_" + ElemKey(elem)
}

// RawHashMapClass is the host opaque class for a HashMap<K, V>.
func RawHashMapClass(k, v *model.RustType) string {
	return fmt.Sprintf("RawHashMap_%s_%s", ElemKey(k), ElemKey(v))
}

// RidHashMapClass is the host opaque class for a HashMap returned by value.
func RidHashMapClass(k, v *model.RustType) string {
	return fmt.Sprintf("RawRidHashMap_%s_%s", ElemKey(k), ElemKey(v))
}

// DartType returns the value type a projected class uses for rt.
func DartType(rt *model.RustType) string {
	if p, ok := rt.Primitive(); ok {
		if p == model.Bool {
			return "bool"
		}
		return "int"
	}
	if rt.IsStringLike() {
		return "String"
	}
	if info, ok := rt.Custom(); ok {
		if info.Category == model.CategoryPrim {
			return "int"
		}
		return info.Key
	}
	if rt.IsUnit() {
		return "void"
	}
	c, ok := rt.Composite()
	if !ok {
		return "dynamic"
	}
	switch c.Kind {
	case model.CompositeVec:
		return "List<" + DartType(c.Inner) + ">"
	case model.CompositeOption:
		return DartType(c.Inner) + "?"
	case model.CompositeHashMap:
		return "Map<" + DartType(c.Inner) + ", " + DartType(c.Inner2) + ">"
	}
	return "dynamic"
}
