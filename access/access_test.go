package access

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/model"
)

var (
	spanZero errors.Span
	todo     = model.NewCustom(model.TypeInfo{Key: "Todo", Category: model.CategoryStruct})
	filter   = model.NewCustom(model.TypeInfo{Key: "Filter", Category: model.CategoryEnum})
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		acc  Access
		want string
	}{
		{"field vec", NewVec(model.NewPrim(model.U8), FieldReference, spanZero), "vec_u8"},
		{"returned vec of refs", NewVec(todo.WithRef(model.Ref, "a"), MethodReturn, spanZero), "ridvec_Todo"},
		{"field map", NewHashMap(model.NewString(), model.NewPrim(model.U32), FieldReference, spanZero), "hash_map_String_u32"},
		{"returned map", NewHashMap(model.NewPrim(model.U8), filter, MethodReturn, spanZero), "ridhash_map_u8_Filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.acc.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVecFunctions(t *testing.T) {
	field := NewVec(todo, FieldReference, spanZero).Functions()
	if field.Free != "" {
		t.Errorf("field references are never freed, got %q", field.Free)
	}
	ret := NewVec(todo.WithRef(model.Ref, ""), MethodReturn, spanZero).Functions()
	want := []string{"rid_len_ridvec_Todo", "rid_get_item_ridvec_Todo", "rid_free_ridvec_Todo"}
	if diff := cmp.Diff(want, ret.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestReturnedVecRegisteredOnce(t *testing.T) {
	ctx := genstate.New()
	agg := NewAggregator(ctx)
	ret := model.NewVec(todo.WithRef(model.Ref, ""))

	if _, ok := agg.RegisterType(ret, MethodReturn, "Store::filtered_todos"); !ok {
		t.Fatal("Vec must produce an access")
	}
	agg.RegisterType(ret, MethodReturn, "Store::completed_todos")

	if n := len(agg.Accesses()); n != 1 {
		t.Fatalf("expected one access, got %d", n)
	}
	var b strings.Builder
	agg.RenderNative(&b)
	out := b.String()
	for _, fn := range []string{"rid_len_ridvec_Todo", "rid_get_item_ridvec_Todo", "rid_free_ridvec_Todo"} {
		if c := strings.Count(out, "fn "+fn+"("); c != 1 {
			t.Errorf("%s defined %d times", fn, c)
		}
	}
	if !strings.Contains(out, "idx: usize) -> Pointer_Todo") {
		t.Errorf("get must hand out Pointer_Todo:\n%s", out)
	}
	if !ctx.Emitted(genstate.Free, "rid_free_ridvec_Todo") {
		t.Error("free entry not recorded in the ledger")
	}

	arts := ctx.Artifacts()
	if diff := cmp.Diff([]string{"Store::filtered_todos", "Store::completed_todos"}, arts[0].Users); diff != "" {
		t.Errorf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldVecNative(t *testing.T) {
	var b strings.Builder
	NewVec(model.NewString(), FieldReference, spanZero).RenderNative(&b)
	out := b.String()

	for _, want := range []string{
		"#[no_mangle]\n#[allow(non_snake_case)]\npub extern \"C\" fn rid_len_vec_String(ptr: *const Vec<String>) -> usize",
		"fn rid_get_item_vec_String(ptr: *const Vec<String>, idx: usize) -> *const ::std::os::raw::c_char",
		"let item = vec.get(idx)",
		"::std::ffi::CString::new(item.as_str())",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "rid_free_") {
		t.Error("field reference must not render a free entry")
	}
}

func TestElementConversions(t *testing.T) {
	tests := []struct {
		elem   *model.RustType
		native string
		host   string
	}{
		{model.NewPrim(model.U32), "*item", "raw"},
		{model.NewPrim(model.Bool), "*item as u8", "raw != 0"},
		{filter, "item._rid_into_discriminant()", "Filter.values[raw]"},
		{todo, "item as *const Todo", "raw.toDart()"},
		{model.NewString(), "::std::ffi::CString::new(item.as_str())", "raw.takeDartString()"},
	}
	for _, tt := range tests {
		t.Run(tt.elem.String(), func(t *testing.T) {
			if got := NativeElem(tt.elem, "item"); !strings.HasPrefix(got, tt.native) {
				t.Errorf("NativeElem = %q, want prefix %q", got, tt.native)
			}
			if got := HostElem(tt.elem, "raw"); got != tt.host {
				t.Errorf("HostElem = %q, want %q", got, tt.host)
			}
		})
	}
}

func TestPatternDerefsBorrowedElements(t *testing.T) {
	if Pattern(todo.WithRef(model.Ref, "")) != "&item" || Pattern(todo) != "item" {
		t.Error("pattern mismatch")
	}
	got := IntoRidVec(model.NewVec(todo.WithRef(model.Ref, "")), "ret")
	want := "rid_utils::RidVec::from(ret.iter().map(|&item| item as *const Todo).collect::<Vec<_>>())"
	if got != want {
		t.Errorf("IntoRidVec = %q, want %q", got, want)
	}
}

func TestHashMapField(t *testing.T) {
	ctx := genstate.New()
	agg := NewAggregator(ctx)
	field := model.NewHashMap(model.NewString(), model.NewPrim(model.U32))

	a, _ := agg.RegisterType(field, FieldReference, "Store.settings")
	if a.Key() != "hash_map_String_u32" {
		t.Fatalf("key = %q", a.Key())
	}

	keys, ok := agg.Get("ridvec_String")
	if !ok {
		t.Fatal("keys must register a vector access")
	}
	if keys.Kind() != MethodReturn {
		t.Errorf("keys vector kind = %v", keys.Kind())
	}
	if !keys.(*VecAccess).Elem().IsRef() {
		t.Error("keys vector must be over &String")
	}
	if !ctx.Emitted(genstate.VecAccess, "ridvec_String") || !ctx.Emitted(genstate.CollectionAccess, "hash_map_String_u32") {
		t.Error("ledger mismatch")
	}

	var b strings.Builder
	agg.RenderNative(&b)
	out := b.String()
	for _, want := range []string{
		"fn rid_len_hash_map_String_u32(ptr: *const ::std::collections::HashMap<String, u32>) -> usize",
		"fn rid_get_hash_map_String_u32<'a>(ptr: *const ::std::collections::HashMap<String, u32>, key: *mut ::std::os::raw::c_char) -> Option<&'a u32>",
		"fn rid_contains_key_hash_map_String_u32(ptr: *const ::std::collections::HashMap<String, u32>, key: *mut ::std::os::raw::c_char) -> u8",
		"fn rid_keys_hash_map_String_u32(ptr: *const ::std::collections::HashMap<String, u32>) -> rid_utils::RidVec<*const ::std::os::raw::c_char>",
		"fn rid_len_ridvec_String(",
		"fn rid_free_ridvec_String(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(out, "rid_free_hash_map_String_u32") {
		t.Error("field map must not be freed")
	}

	// A second map with the same key type shares the key vector.
	agg.RegisterType(model.NewHashMap(model.NewString(), model.NewString()), FieldReference, "Store.labels")
	b.Reset()
	agg.RenderNative(&b)
	if c := strings.Count(b.String(), "fn rid_len_ridvec_String("); c != 1 {
		t.Errorf("ridvec_String rendered %d times", c)
	}
}

func TestHashMapVecValueIsView(t *testing.T) {
	agg := NewAggregator(genstate.New())
	agg.RegisterType(model.NewHashMap(model.NewPrim(model.U32), model.NewVec(model.NewPrim(model.U8))), MethodReturn, "")

	var keys []string
	for _, a := range agg.Accesses() {
		keys = append(keys, a.Key())
	}
	want := []string{"ridhash_map_u32_vec_u8", "ridvec_u32", "vec_u8"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("accesses mismatch (-want +got):\n%s", diff)
	}

	var b strings.Builder
	agg.RenderNative(&b)
	if !strings.Contains(b.String(), "-> Option<&'a Vec<u8>>") {
		t.Errorf("vector values must be handed out as views:\n%s", b.String())
	}
	if !strings.Contains(b.String(), "fn rid_free_ridhash_map_u32_vec_u8(") {
		t.Error("returned map must be freed")
	}
}

func TestHostRendering(t *testing.T) {
	agg := NewAggregator(genstate.New())
	agg.RegisterType(model.NewVec(todo.WithRef(model.Ref, "")), MethodReturn, "")
	agg.RegisterType(model.NewHashMap(model.NewString(), filter), FieldReference, "")

	var b strings.Builder
	agg.RenderHost(&b)
	out := b.String()
	for _, want := range []string{
		"final class RidVec_Todo extends Struct {",
		"external Pointer<Pointer<RawTodo>> data;",
		"final _rid_len_ridvec_Todo = _dl.lookupFunction<Size Function(RidVec_Todo), int Function(RidVec_Todo)>('rid_len_ridvec_Todo');",
		"RidList<Todo> toDart() => RidList<Todo>(length, (i) => this[i].toDart(), dispose);",
		"final class RawHashMap_String_Filter extends Opaque {}",
		"Filter? operator [](String key) {",
		"final res = _rid_get_hash_map_String_Filter(this, key.toNativeInt8());",
		"return res < 0 ? null : Filter.values[res];",
		"RidList<String> keys() => _rid_keys_hash_map_String_Filter(this).toDart();",
		"Map<String, Filter> toDart() {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestForRejectsNonContainers(t *testing.T) {
	if _, ok := For(todo, FieldReference); ok {
		t.Error("struct is not a container")
	}
	if _, ok := For(model.NewOption(todo), MethodReturn); ok {
		t.Error("Option has no access")
	}
	if KindOf(model.NewVec(todo).WithRef(model.Ref, "")) != FieldReference || KindOf(model.NewVec(todo)) != MethodReturn {
		t.Error("KindOf mismatch")
	}
}
