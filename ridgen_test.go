package ridgen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/genstate"
)

const libSrc = `
#[rid::store]
#[rid::structs(Todo)]
pub struct Store {
    todos: Vec<Todo>,
    title: String,
}

#[rid::model]
pub struct Todo {
    id: u32,
    title: String,
    completed: bool,
}

#[rid::export]
#[rid::structs(Todo)]
pub fn make_todo(id: u32) -> Todo {
    Todo { id, title: String::new(), completed: false }
}
`

const msgSrc = `
#[rid::message(Reply)]
pub enum Msg {
    AddTodo(String),
    Reset,
}

#[rid::reply]
pub enum Reply {
    Added(u64),
    Tick,
}
`

func TestGenerate(t *testing.T) {
	out, err := Generate(context.Background(), []Source{
		{Name: "src/lib.rs", Data: libSrc},
		{Name: "src/msg.rs", Data: msgSrc},
	}, Options{LibPath: "libtodo.so", MsgTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", out.Diagnostics)
	}
	for _, want := range []string{
		`pub extern "C" fn rid_export_make_todo(`,
		"rid_store",
	} {
		if !strings.Contains(out.Rust, want) {
			t.Errorf("rust: missing %q", want)
		}
	}
	for _, want := range []string{
		"DynamicLibrary.open('libtodo.so')",
		"enum Reply {",
		"const Duration(milliseconds: 2000)",
	} {
		if !strings.Contains(out.Dart, want) {
			t.Errorf("dart: missing %q", want)
		}
	}
	if out.Model.Store == nil || out.Model.Store.Ident != "Store" {
		t.Errorf("store = %v", out.Model.Store)
	}
	if len(out.Artifacts) == 0 {
		t.Error("no artifacts recorded")
	}
	var frees int
	for _, a := range out.Artifacts {
		if a.Kind == genstate.Free {
			frees++
		}
	}
	if frees == 0 {
		t.Error("make_todo hands out a Todo and needs a free entry")
	}
}

func TestGenerateSyntaxError(t *testing.T) {
	_, err := Generate(context.Background(), []Source{
		{Name: "src/lib.rs", Data: libSrc},
		{Name: "src/broken.rs", Data: "struct A { x: u8"},
	}, Options{})
	e, ok := errors.As(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if e.Phase != errors.PhaseParse {
		t.Errorf("phase = %v", e.Phase)
	}
}

func TestGenerateNoSources(t *testing.T) {
	if _, err := Generate(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, []Source{{Name: "src/lib.rs", Data: libSrc}}, Options{})
	if err != context.Canceled {
		t.Errorf("err = %v", err)
	}
}

const failingSrc = `
pub enum Mode { Fast(u8), Slow }

#[rid::export]
#[rid::enums(Mode)]
pub fn mode_code(mode: Mode) -> u8 { 0 }

#[rid::export]
pub fn version() -> u8 { 1 }
`

func TestGenerateSkipsFailingItems(t *testing.T) {
	src := []Source{{Name: "src/lib.rs", Data: failingSrc}}

	out, err := Generate(context.Background(), src, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Diagnostics.ForItem("mode_code") == nil {
		t.Fatalf("expected a diagnostic for mode_code, got %v", out.Diagnostics)
	}
	if strings.Contains(out.Rust, "rid_export_mode_code") || strings.Contains(out.Dart, "modeCode") {
		t.Error("failed item must be left out of both units")
	}
	if !strings.Contains(out.Dart, "int version() => _rid_export_version();") {
		t.Error("healthy item must still be generated")
	}

	out, err = Generate(context.Background(), src, Options{Strict: true})
	if err == nil {
		t.Fatal("strict generation must fail")
	}
	if out == nil || out.Diagnostics.ForItem("mode_code") == nil {
		t.Errorf("strict output = %+v", out)
	}
}
