package attr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
)

// attrsOf parses "<attrs> <item>" and returns the attribute list of the
// first item.
func attrsOf(t *testing.T, src string) []syntax.Attribute {
	t.Helper()
	f, err := syntax.ParseFile("lib.rs", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Items) == 0 {
		t.Fatal("no items")
	}
	return f.Items[0].ItemAttrs()
}

func TestParseVocabulary(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target Target
		kinds  []Kind
	}{
		{"store", "#[rid::store] struct Store {}", TargetStruct, []Kind{KindStore}},
		{"model struct", "#[rid::model] struct Todo {}", TargetStruct, []Kind{KindModel}},
		{"model enum", "#[rid::model] #[repr(C)] enum Filter { All }", TargetEnum, []Kind{KindModel}},
		{"message", "#[rid::message(Reply)] enum Msg {}", TargetEnum, []Kind{KindMessage}},
		{"reply", "#[rid::reply] enum Reply {}", TargetEnum, []Kind{KindReply}},
		{"export impl", "#[rid::export] impl Store {}", TargetImpl, []Kind{KindExport}},
		{"export fn", "#[rid::export(get_ver)] fn version() -> u8 { 1 }", TargetFn, []Kind{KindExport}},
		{"hints", "#[rid::structs(Todo, Item)] #[rid::enums(Filter)] struct Store {}", TargetStruct, []Kind{KindStructs, KindEnums}},
		{"long form", "#[rid(debug, types = { Todo: Struct })] struct Store {}", TargetStruct, []Kind{KindDebug, KindTypes}},
		{"display", "#[rid::display] struct Todo {}", TargetStruct, []Kind{KindDisplay}},
		{"foreign attributes", "#[serde(rename = \"x\")] #[inline] fn f() {}", TargetFn, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Parse(attrsOf(t, tt.src), tt.target)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			var kinds []Kind
			for _, a := range set.Attrs {
				kinds = append(kinds, a.Kind)
			}
			if diff := cmp.Diff(tt.kinds, kinds); diff != "" {
				t.Errorf("kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArguments(t *testing.T) {
	set, err := Parse(attrsOf(t, "#[rid::message(Reply)] enum Msg {}"), TargetEnum)
	if err != nil {
		t.Fatal(err)
	}
	if reply, ok := set.Message(); !ok || reply != "Reply" {
		t.Errorf("Message() = %q, %v", reply, ok)
	}

	set, err = Parse(attrsOf(t, "#[rid::export(get_ver)] fn version() -> u8 { 1 }"), TargetFn)
	if err != nil {
		t.Fatal(err)
	}
	if alias, ok := set.Export(); !ok || alias != "get_ver" {
		t.Errorf("Export() = %q, %v", alias, ok)
	}

	set, err = Parse(attrsOf(t, "#[rid::export] fn version() -> u8 { 1 }"), TargetFn)
	if err != nil {
		t.Fatal(err)
	}
	if alias, ok := set.Export(); !ok || alias != "" {
		t.Errorf("Export() = %q, %v", alias, ok)
	}
}

func TestTypeInfos(t *testing.T) {
	src := `
#[rid::structs(Todo)]
#[rid::enums(Filter)]
#[rid(types = { Id: Prim, Item: Struct, })]
struct Store {}
`
	set, err := Parse(attrsOf(t, src), TargetStruct)
	if err != nil {
		t.Fatal(err)
	}
	want := model.TypeInfoMap{
		"Todo":   {Key: "Todo", Category: model.CategoryStruct},
		"Filter": {Key: "Filter", Category: model.CategoryEnum},
		"Id":     {Key: "Id", Category: model.CategoryPrim},
		"Item":   {Key: "Item", Category: model.CategoryStruct},
	}
	if diff := cmp.Diff(want, set.TypeInfos); diff != "" {
		t.Errorf("type infos mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveAndRepr(t *testing.T) {
	set, err := Parse(attrsOf(t, "#[derive(Debug, Clone, PartialEq)] #[repr(C)] enum Filter { All }"), TargetEnum)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Derive.Debug || !set.Derive.Clone || !set.ReprC {
		t.Errorf("derive = %+v repr = %v", set.Derive, set.ReprC)
	}
	if !set.WantsDebug() {
		t.Error("derive(Debug) implies debug output")
	}

	set, err = Parse(attrsOf(t, "#[derive(std::fmt::Debug)] struct A {}"), TargetStruct)
	if err != nil {
		t.Fatal(err)
	}
	if !set.Derive.Debug || set.Derive.Clone {
		t.Errorf("derive = %+v", set.Derive)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		target Target
		token  string
	}{
		{"message on struct", "#[rid::message(Reply)] struct A {}", TargetStruct, "rid"},
		{"message on impl", "#[rid::message(Reply)] impl A {}", TargetImpl, "rid"},
		{"export on struct", "#[rid::export] struct A {}", TargetStruct, "rid"},
		{"export on enum", "#[rid::export] enum A {}", TargetEnum, "rid"},
		{"store on enum", "#[rid::store] enum Store {}", TargetEnum, "rid"},
		{"duplicate message", "#[rid::message(Reply)] #[rid::message(Other)] enum Msg {}", TargetEnum, "rid"},
		{"message without reply", "#[rid::message] enum Msg {}", TargetEnum, "rid"},
		{"message with brackets", "#[rid::message[Reply]] enum Msg {}", TargetEnum, "rid"},
		{"message with two replies", "#[rid::message(A, B)] enum Msg {}", TargetEnum, "rid"},
		{"types not braced", "#[rid(types = ( A: Struct ))] struct S {}", TargetStruct, "="},
		{"types bad pair", "#[rid(types = { A Struct })] struct S {}", TargetStruct, "A"},
		{"unknown category", "#[rid(types = { A: Union })] struct S {}", TargetStruct, "Union"},
		{"unknown rid attribute", "#[rid::frobnicate] struct S {}", TargetStruct, "rid"},
		{"unknown rid option", "#[rid(verbose)] struct S {}", TargetStruct, "verbose"},
		{"model with args", "#[rid::model(x)] struct S {}", TargetStruct, "rid"},
		{"structs literal", "#[rid::structs(\"Todo\")] struct S {}", TargetStruct, "Todo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(attrsOf(t, tt.src), tt.target)
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if e.Kind != errors.KindAttributeShape {
				t.Errorf("kind = %s", e.Kind)
			}
			if e.Span.Token != tt.token {
				t.Errorf("span token = %q, want %q", e.Span.Token, tt.token)
			}
			if e.Span.Line != 1 {
				t.Errorf("span line = %d", e.Span.Line)
			}
		})
	}
}
