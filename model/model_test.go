package model

import (
	"testing"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/syntax"
)

func parseType(t *testing.T, src string) *syntax.TypeExpr {
	t.Helper()
	f, err := syntax.ParseFile("t.rs", "fn f(x: "+src+") {}")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return f.Items[0].(*syntax.Fn).Params[0].Type
}

var infos = TypeInfoMap{
	"Todo":   {Key: "Todo", Category: CategoryStruct},
	"Filter": {Key: "Filter", Category: CategoryEnum},
	"Id":     {Key: "Id", Category: CategoryPrim},
	"Table":  {Key: "Table", Category: CategoryStruct},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		src  string
		want string
		key  string
		ref  RefKind
	}{
		{"u8", "u8", "u8", Owned},
		{"bool", "bool", "bool", Owned},
		{"usize", "usize", "usize", Owned},
		{"String", "String", "String", Owned},
		{"&str", "&str", "str", Ref},
		{"CString", "CString", "CString", Owned},
		{"&'a Todo", "&'a Todo", "Todo", Ref},
		{"&mut Todo", "&mut Todo", "Todo", RefMut},
		{"Filter", "Filter", "Filter", Owned},
		{"Vec<&Todo>", "Vec<&Todo>", "vec_Todo", Owned},
		{"Option<u32>", "Option<u32>", "option_u32", Owned},
		{"std::collections::HashMap<String, u32>", "HashMap<String, u32>", "hash_map_String_u32", Owned},
		{"Table<u8>", "Table<u8>", "Table", Owned},
		{"()", "()", "unit", Owned},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			rt := Resolve(parseType(t, tt.src), infos)
			if got := rt.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := rt.Key(); got != tt.key {
				t.Errorf("Key() = %q, want %q", got, tt.key)
			}
			if rt.Reference.Kind != tt.ref {
				t.Errorf("reference = %v, want %v", rt.Reference.Kind, tt.ref)
			}
		})
	}
}

func TestResolveCategories(t *testing.T) {
	if !Resolve(parseType(t, "Todo"), infos).IsStruct() {
		t.Error("Todo should be a struct")
	}
	if !Resolve(parseType(t, "Filter"), infos).IsEnum() {
		t.Error("Filter should be an enum")
	}
	id := Resolve(parseType(t, "Id"), infos)
	if info, ok := id.Custom(); !ok || info.Category != CategoryPrim {
		t.Errorf("Id = %+v", id.Kind)
	}

	hm := Resolve(parseType(t, "HashMap<String, Vec<u8>>"), infos)
	if !hm.IsHashMap() || !hm.Inner().IsStringLike() || !hm.Inner2().IsVec() {
		t.Errorf("unexpected hash map %s", hm)
	}
	if !hm.Nested() {
		t.Error("HashMap<String, Vec<u8>> is nested")
	}
}

func TestResolveUnknown(t *testing.T) {
	tests := []struct {
		src  string
		kind errors.Kind
	}{
		{"Missing", errors.KindTypeUnknown},
		{"Vec<Missing>", errors.KindTypeUnknown},
		{"Self", errors.KindUnsupportedShape},
		{"(u8, u8)", errors.KindUnsupportedShape},
		{"*const u8", errors.KindUnsupportedShape},
		{"f64", errors.KindTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := ResolveChecked(parseType(t, tt.src), infos)
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
}

func TestSelfUnaliased(t *testing.T) {
	owner := TypeInfo{Key: "Store", Category: CategoryStruct}
	scoped := infos.WithSelf(owner)

	tests := []struct {
		src  string
		want string
	}{
		{"Self", "Store"},
		{"&Self", "&Store"},
		{"Vec<&Self>", "Vec<&Store>"},
		{"Option<Self>", "Option<Store>"},
		{"u8", "u8"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			rt, err := ResolveChecked(parseType(t, tt.src), scoped)
			if err != nil {
				t.Fatalf("ResolveChecked: %v", err)
			}
			got := rt.SelfUnaliased(owner)
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	self := Resolve(parseType(t, "Self"), scoped)
	if self.SelfUnaliased(owner); self.Ident != "Self" {
		t.Error("SelfUnaliased must not modify its receiver")
	}
	if _, ok := infos["Self"]; ok {
		t.Error("WithSelf must not modify the base map")
	}
}

func TestTypeInfoMapMerge(t *testing.T) {
	a := TypeInfoMap{"A": {Key: "A", Category: CategoryStruct}}
	b := TypeInfoMap{"A": {Key: "A", Category: CategoryEnum}, "B": {Key: "B"}}
	m := a.Merge(b)
	if len(m) != 2 || m["A"].Category != CategoryEnum {
		t.Errorf("merge = %+v", m)
	}
	if a["A"].Category != CategoryStruct {
		t.Error("merge must not modify its receiver")
	}
}

func TestParseCategory(t *testing.T) {
	for _, name := range []string{"Struct", "Enum", "Prim"} {
		c, ok := ParseCategory(name)
		if !ok || c.String() != name {
			t.Errorf("ParseCategory(%q) = %v, %v", name, c, ok)
		}
	}
	if _, ok := ParseCategory("Union"); ok {
		t.Error("Union is not a category")
	}
}

func TestPrimitive(t *testing.T) {
	if !I64.Signed() || U64.Signed() {
		t.Error("signedness mismatch")
	}
	if Bool.Bits() != 8 || Usize.Bits() != 64 || U16.Bits() != 16 {
		t.Error("width mismatch")
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		in, snake, lower string
	}{
		{"Todo", "todo", "todo"},
		{"TodoList", "todo_list", "todoList"},
		{"HTTPServer", "http_server", "hTTPServer"},
		{"filtered_todos", "filtered_todos", "filteredTodos"},
		{"AddTodo", "add_todo", "addTodo"},
	}
	for _, tt := range tests {
		if got := Snake(tt.in); got != tt.snake {
			t.Errorf("Snake(%q) = %q, want %q", tt.in, got, tt.snake)
		}
		if got := LowerCamel(tt.in); got != tt.lower {
			t.Errorf("LowerCamel(%q) = %q, want %q", tt.in, got, tt.lower)
		}
	}
	if got := UpperCamel("set_filter"); got != "SetFilter" {
		t.Errorf("UpperCamel = %q", got)
	}
}

func TestParsedEnumVariant(t *testing.T) {
	e := &ParsedEnum{Ident: "Filter", Variants: []ParsedVariant{{Ident: "All"}, {Ident: "Completed", Discriminant: 1}}}
	v, ok := e.Variant(1)
	if !ok || v.Ident != "Completed" {
		t.Errorf("Variant(1) = %+v, %v", v, ok)
	}
	if _, ok := e.Variant(2); ok {
		t.Error("Variant(2) must be out of range")
	}
	if _, ok := e.Variant(-1); ok {
		t.Error("Variant(-1) must be out of range")
	}
}
