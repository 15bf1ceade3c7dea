package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen"
	"github.com/wippyai/ridgen/config"
	"github.com/wippyai/ridgen/genstate"
)

const cargo = `
[package]
name = "todo-app"
version = "0.1.0"

[package.metadata.rid]
msg_timeout_ms = 1000
ffigen_binding = "lib/generated/ffigen_binding.dart"
`

const lib = `
#[rid::model]
pub struct Todo {
    id: u32,
    title: String,
}

#[rid::export]
#[rid::structs(Todo)]
pub fn make_todo(id: u32) -> Todo {
    Todo { id, title: String::new() }
}
`

func crateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(cargo), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte(lib), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCrateFlagsOverride(t *testing.T) {
	dir := crateDir(t)
	c := crateFlags{dir: dir, lib: "todo", timeout: 3 * time.Second}
	cfg, err := c.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibPath() != "libtodo.so" || cfg.MsgTimeout != 3*time.Second {
		t.Errorf("config = %+v", cfg)
	}

	c = crateFlags{dir: dir}
	cfg, err = c.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibPath() != "libtodo_app.so" || cfg.MsgTimeout != time.Second {
		t.Errorf("config = %+v", cfg)
	}
}

func TestImports(t *testing.T) {
	cfg := &config.Config{DartOut: "lib/generated/rid_api.dart", FfigenBinding: "lib/generated/ffigen_binding.dart"}
	if diff := cmp.Diff([]string{"ffigen_binding.dart"}, imports(cfg)); diff != "" {
		t.Errorf("imports (-want +got):\n%s", diff)
	}
	cfg.FfigenBinding = ""
	if got := imports(cfg); got != nil {
		t.Errorf("imports = %v", got)
	}
}

func TestGenerateWrites(t *testing.T) {
	dir := crateDir(t)
	cmd := &generateCmd{crateFlags: crateFlags{dir: dir}}
	cfg, out, err := cmd.generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	targets := map[string]string{
		filepath.Join(dir, cfg.RustOut): out.Rust,
		filepath.Join(dir, cfg.DartOut): out.Dart,
	}
	if err := write(context.Background(), targets); err != nil {
		t.Fatal(err)
	}
	dart, err := os.ReadFile(filepath.Join(dir, config.DefaultDartOut))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"import 'ffigen_binding.dart';", "DynamicLibrary.open('libtodo_app.so')"} {
		if !strings.Contains(string(dart), want) {
			t.Errorf("dart: missing %q", want)
		}
	}
	rust, err := os.ReadFile(filepath.Join(dir, config.DefaultRustOut))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(rust), "rid_export_make_todo") {
		t.Error("rust: missing make_todo entry")
	}
}

func TestMissingSource(t *testing.T) {
	dir := crateDir(t)
	cmd := &generateCmd{crateFlags: crateFlags{dir: dir, sources: "src/lib.rs,src/gone.rs"}}
	if _, _, err := cmd.generate(context.Background()); err == nil {
		t.Fatal("expected an error for a missing source")
	}
}

func loaded() loadedMsg {
	return loadedMsg{name: "todo", out: &ridgen.Output{
		Rust: "pub extern \"C\" fn rid_free_Todo(ptr: *mut Todo) {}\n",
		Dart: "final _rid_free_Todo = _dl.lookupFunction<Void Function(Pointer<RawTodo>), void Function(Pointer<RawTodo>)>('rid_free_Todo');\n",
		Artifacts: []genstate.Artifact{
			{Kind: genstate.VecAccess, Key: "rid_vec_Todo", Users: []string{"Store.todos"}},
			{Kind: genstate.Free, Key: "rid_free_Todo", Users: []string{"rid_export_make_todo", "rid_export_todo_by_id"}},
			{Kind: genstate.CStringFree, Key: "rid_cstring_free", Users: []string{"Todo.title"}},
		},
	}}
}

func keys(m *exploreModel, ks ...tea.KeyMsg) {
	for _, k := range ks {
		m.Update(k)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func visibleKeys(m *exploreModel) []string {
	var out []string
	for _, a := range m.visible {
		out = append(out, a.Key)
	}
	return out
}

func TestExploreFilter(t *testing.T) {
	m := newExploreModel(nil)
	m.Update(loaded())

	want := []string{"rid_cstring_free", "rid_free_Todo", "rid_vec_Todo"}
	if diff := cmp.Diff(want, visibleKeys(m)); diff != "" {
		t.Fatalf("sorted artifacts (-want +got):\n%s", diff)
	}

	keys(m, runes("todo_by"))
	if diff := cmp.Diff([]string{"rid_free_Todo"}, visibleKeys(m)); diff != "" {
		t.Errorf("filter by user (-want +got):\n%s", diff)
	}

	keys(m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.visible) != 3 || m.filter.Value() != "" {
		t.Errorf("esc must clear the filter, visible = %v", visibleKeys(m))
	}
}

func TestExploreDetail(t *testing.T) {
	m := newExploreModel(nil)
	m.Update(loaded())
	keys(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateDetail {
		t.Fatalf("state = %v", m.state)
	}
	view := m.View()
	for _, want := range []string{"rid_free_Todo", "rid_export_make_todo", "rust:", "dart:"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}
	keys(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateBrowse {
		t.Errorf("esc must return to the list")
	}
}

func TestExcerpt(t *testing.T) {
	code := "a\n  rid_free_Todo(p);\nb\nrid_free_Todo\n"
	if diff := cmp.Diff([]string{"rid_free_Todo(p);", "rid_free_Todo"}, excerpt(code, "rid_free_Todo")); diff != "" {
		t.Errorf("excerpt (-want +got):\n%s", diff)
	}
}
