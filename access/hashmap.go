package access

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
)

// HashMapAccess exposes a HashMap<K, V> through len, get, contains_key and
// keys. Values are handed out as views into the map; collection values
// register a nested vector access.
type HashMapAccess struct {
	key  *model.RustType
	val  *model.RustType
	kind Kind
	span errors.Span
}

// NewHashMap creates the access of HashMap<key, val>.
func NewHashMap(key, val *model.RustType, kind Kind, span errors.Span) *HashMapAccess {
	return &HashMapAccess{key: key, val: val, kind: kind, span: span}
}

func (m *HashMapAccess) Key() string {
	k := "hash_map_" + ffi.ElemKey(m.key) + "_" + ffi.ElemKey(m.val)
	if m.kind == MethodReturn {
		return "rid" + k
	}
	return k
}

func (m *HashMapAccess) Kind() Kind                  { return m.kind }
func (m *HashMapAccess) Span() errors.Span           { return m.span }
func (m *HashMapAccess) KeyType() *model.RustType    { return m.key }
func (m *HashMapAccess) ValueType() *model.RustType  { return m.val }
func (m *HashMapAccess) Elements() []*model.RustType { return []*model.RustType{m.key, m.val} }

func (m *HashMapAccess) Container() *model.RustType {
	rt := model.NewHashMap(m.key, m.val)
	rt.Span = m.span
	return rt
}

func (m *HashMapAccess) Functions() Functions {
	key := m.Key()
	f := Functions{
		Len:         "rid_len_" + key,
		Get:         "rid_get_" + key,
		ContainsKey: "rid_contains_key_" + key,
		Keys:        "rid_keys_" + key,
	}
	if m.kind == MethodReturn {
		f.Free = "rid_free_" + key
	}
	return f
}

// Nested returns the method-return vector produced by keys and, for
// vector values, the field-reference vector the value views resolve to.
func (m *HashMapAccess) Nested() []Access {
	out := []Access{NewVec(m.key.WithRef(model.Ref, ""), MethodReturn, m.span)}
	if m.val.IsVec() {
		out = append(out, NewVec(m.val.Inner(), FieldReference, m.span))
	}
	return out
}

// KeysVec is the vector access keys returns.
func (m *HashMapAccess) KeysVec() *VecAccess {
	return m.Nested()[0].(*VecAccess)
}

func (m *HashMapAccess) rustMap() string {
	return ffi.RustPath(m.Container())
}

// getReturn is the native return type of get and whether it needs the 'a
// lifetime parameter.
func (m *HashMapAccess) getReturn() (string, bool) {
	switch {
	case m.val.IsEnum():
		return "i32", false
	case m.val.IsStringLike():
		return "*const " + ffi.CChar, false
	}
	return "Option<&'a " + ffi.RustPath(m.val.Owned()) + ">", true
}

func (m *HashMapAccess) getExpr() string {
	switch {
	case m.val.IsEnum():
		return "map.get(&key).map_or(-1, |item| item._rid_into_discriminant())"
	case m.val.IsStringLike():
		return fmt.Sprintf("map.get(&key).map_or(::std::ptr::null(), |item| %s)", NativeElem(m.val, "item"))
	}
	return "map.get(&key)"
}

func (m *HashMapAccess) reclaimKey(b *strings.Builder) {
	switch {
	case m.key.IsStringLike():
		fmt.Fprintf(b, "    let key = unsafe { %s::from_raw(key) }.into_string().expect(\"Received String that wasn't valid UTF-8.\");\n", ffi.CString)
	case m.key.IsBool():
		b.WriteString("    let key = key != 0;\n")
	}
}

func (m *HashMapAccess) resolveMap(b *strings.Builder, fn string) {
	fmt.Fprintf(b, "    let map = unsafe { ptr.as_ref() }.expect(%q);\n", fn+": null map pointer")
}

func (m *HashMapAccess) RenderNative(b *strings.Builder) {
	fns := m.Functions()
	param := "ptr: *const " + m.rustMap()
	keyParam := "key: " + ffi.Rust(m.key, ffi.Arg)

	writeEntry(b, fmt.Sprintf("%s(%s) -> usize", fns.Len, param))
	m.resolveMap(b, fns.Len)
	b.WriteString("    map.len()\n}\n\n")

	ret, lifetime := m.getReturn()
	generics := ""
	if lifetime {
		generics = "<'a>"
	}
	writeEntry(b, fmt.Sprintf("%s%s(%s, %s) -> %s", fns.Get, generics, param, keyParam, ret))
	m.resolveMap(b, fns.Get)
	m.reclaimKey(b)
	fmt.Fprintf(b, "    %s\n}\n\n", m.getExpr())

	writeEntry(b, fmt.Sprintf("%s(%s, %s) -> u8", fns.ContainsKey, param, keyParam))
	m.resolveMap(b, fns.ContainsKey)
	m.reclaimKey(b)
	b.WriteString("    map.contains_key(&key) as u8\n}\n\n")

	keys := m.KeysVec()
	writeEntry(b, fmt.Sprintf("%s(%s) -> %s", fns.Keys, param, keys.ridVec()))
	m.resolveMap(b, fns.Keys)
	fmt.Fprintf(b, "    %s::from(map.keys().map(|item| %s).collect::<Vec<_>>())\n}\n\n", ffi.RidVec, NativeElem(m.key, "item"))

	if fns.Free == "" {
		return
	}
	writeEntry(b, fmt.Sprintf("%s(%s)", fns.Free, param))
	fmt.Fprintf(b, "    drop(unsafe { Box::from_raw(ptr as *mut %s) });\n}\n\n", m.rustMap())
}

// HostClass is the Dart opaque class of the map handle.
func (m *HashMapAccess) HostClass() string {
	if m.kind == MethodReturn {
		return ffi.RidHashMapClass(m.key, m.val)
	}
	return ffi.RawHashMapClass(m.key, m.val)
}

func (m *HashMapAccess) getSig() sig {
	switch {
	case m.val.IsEnum():
		return sig{native: "Int32", dart: "int"}
	case m.val.IsStringLike():
		return sig{native: "Pointer<Int8>", dart: "Pointer<Int8>"}
	case m.val.IsStruct():
		p := "Pointer<" + ffi.RawClass(m.val.Key()) + ">"
		return sig{native: p, dart: p}
	case m.val.IsVec():
		p := "Pointer<" + ffi.RawVecClass(m.val.Inner()) + ">"
		return sig{native: p, dart: p}
	}
	p := "Pointer<" + ffi.DartNative(m.val, ffi.Elem) + ">"
	return sig{native: p, dart: p}
}

// hostValue converts the raw get result res into a nullable Dart value.
func (m *HashMapAccess) hostValue() string {
	switch {
	case m.val.IsEnum():
		return "res < 0 ? null : " + m.val.Key() + ".values[res]"
	case m.val.IsStringLike():
		return "res.address == 0 ? null : res.takeDartString()"
	case m.val.IsStruct():
		return "res.address == 0 ? null : res.toDart()"
	case m.val.IsVec():
		return "res.address == 0 ? null : res.toDart().toList()"
	case m.val.IsBool():
		return "res.address == 0 ? null : res.value != 0"
	}
	return "res.address == 0 ? null : res.value"
}

func (m *HashMapAccess) RenderHost(b *strings.Builder) {
	fns := m.Functions()
	class := m.HostClass()
	handle := sig{native: "Pointer<" + class + ">", dart: "Pointer<" + class + ">"}
	keyArg := sigOf(m.key, ffi.Arg)
	keys := m.KeysVec()
	keysSig := sig{native: keys.HostClass(), dart: keys.HostClass()}
	dartKey := ffi.DartType(m.key)
	dartVal := ffi.DartType(m.val)

	fmt.Fprintf(b, "final class %s extends Opaque {}\n\n", class)
	writeLookup(b, fns.Len, sizeSig, handle)
	writeLookup(b, fns.Get, m.getSig(), handle, keyArg)
	writeLookup(b, fns.ContainsKey, u8Sig, handle, keyArg)
	writeLookup(b, fns.Keys, keysSig, handle)
	if fns.Free != "" {
		writeLookup(b, fns.Free, voidSig, handle)
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "extension %sAccess on Pointer<%s> {\n", class, class)
	fmt.Fprintf(b, "  int get length => _%s(this);\n", fns.Len)
	fmt.Fprintf(b, "  %s? operator [](%s key) {\n", dartVal, dartKey)
	fmt.Fprintf(b, "    final res = _%s(this, %s);\n", fns.Get, HostArg(m.key, "key"))
	fmt.Fprintf(b, "    return %s;\n  }\n", m.hostValue())
	fmt.Fprintf(b, "  bool containsKey(%s key) => _%s(this, %s) != 0;\n", dartKey, fns.ContainsKey, HostArg(m.key, "key"))
	fmt.Fprintf(b, "  RidList<%s> keys() => _%s(this).toDart();\n", dartKey, fns.Keys)
	if fns.Free != "" {
		fmt.Fprintf(b, "  void dispose() => _%s(this);\n", fns.Free)
	}
	fmt.Fprintf(b, "  Map<%s, %s> toDart() {\n", dartKey, dartVal)
	b.WriteString("    final keys = this.keys();\n")
	b.WriteString("    try {\n")
	b.WriteString("      return {for (final key in keys) key: this[key]!};\n")
	b.WriteString("    } finally {\n")
	b.WriteString("      keys.dispose();\n")
	b.WriteString("    }\n  }\n")
	if fns.Free != "" {
		fmt.Fprintf(b, "  Map<%s, %s> take() {\n    try {\n      return toDart();\n    } finally {\n      dispose();\n    }\n  }\n", dartKey, dartVal)
	}
	b.WriteString("}\n\n")
}
