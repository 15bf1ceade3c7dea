package host

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/native"
	"github.com/wippyai/ridgen/parse"
	"github.com/wippyai/ridgen/syntax"
)

const todoApp = `
#[rid::store]
#[rid::structs(Todo)]
#[rid::enums(Filter)]
pub struct Store {
    todos: Vec<Todo>,
    filter: Filter,
    settings: HashMap<String, u32>,
    title: String,
    dirty: bool,
}

#[rid::model]
#[derive(Debug)]
pub struct Todo {
    id: u32,
    title: String,
    completed: bool,
}

#[rid::model]
pub enum Filter {
    All,
    Completed,
}

#[rid::export]
#[rid::structs(Todo)]
impl Store {
    #[rid::export]
    pub fn filtered_todos(&self) -> Vec<&Todo> {
        self.todos.iter().collect()
    }

    #[rid::export(todo_by_id)]
    pub fn find(&self, id: u32) -> Option<&Todo> {
        self.todos.iter().find(|t| t.id == id)
    }

    #[rid::export]
    pub fn rename(&mut self, title: String) {
        self.title = title;
    }
}

#[rid::message(Reply)]
#[rid::enums(Filter)]
pub enum Msg {
    AddTodo(String),
    SetFilter(Filter),
    Toggle { id: u32, done: bool },
    Reset,
}

#[rid::reply]
pub enum Reply {
    Added(u64),
    Loaded(u64, String),
    Tick,
}

#[rid::export]
#[rid::structs(Todo)]
pub fn make_todo(id: u32) -> Todo {
    Todo { id, title: String::new(), completed: false }
}
`

func render(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	f, err := syntax.ParseFile("lib.rs", src)
	if err != nil {
		t.Fatalf("syntax: %v", err)
	}
	c := parse.Parse([]*syntax.File{f}, parse.Options{})
	if len(c.Diagnostics) != 0 {
		t.Fatalf("parse diagnostics: %v", c.Diagnostics)
	}
	ctx := genstate.New()
	agg := access.NewAggregator(ctx)
	nat := native.Render(c, ctx, agg)
	opts.Skip = nat.Diagnostics
	return Render(c, ctx, agg, opts)
}

func mustContain(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEnumReplica(t *testing.T) {
	res := render(t, todoApp, Options{})
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if c := strings.Count(res.Code, "enum Filter {"); c != 1 {
		t.Errorf("Filter emitted %d times", c)
	}
	mustContain(t, res.Code,
		"enum Filter { All, Completed }",
		"enum Reply { Added, Loaded, Tick }",
	)
}

func TestValueClass(t *testing.T) {
	res := render(t, todoApp, Options{})
	mustContain(t, res.Code,
		"class Todo {\n  const Todo._(this.id, this.title, this.completed);\n\n  final int id;\n  final String title;\n  final bool completed;\n",
		"      other is Todo && id == other.id && title == other.title && completed == other.completed;",
		"int get hashCode => id.hashCode ^ title.hashCode ^ completed.hashCode;",
		"_ridEquals(todos, other.todos)",
		"Object.hashAll(todos) ^ filter.hashCode ^ Object.hashAllUnordered(settings.keys)",
		"final List<Todo> todos;",
		"final Map<String, int> settings;",
	)
}

func TestToStringListsFieldsInOrder(t *testing.T) {
	res := render(t, todoApp, Options{})
	re := regexp.MustCompile(`String toString\(\) => '(\w+)\{([^}]*)\}';`)

	want := map[string][]string{
		"Todo":  {"id", "title", "completed"},
		"Store": {"todos", "filter", "settings", "title", "dirty"},
	}
	seen := 0
	for _, m := range re.FindAllStringSubmatch(res.Code, -1) {
		fields, ok := want[m[1]]
		if !ok {
			continue
		}
		seen++
		var got []string
		for _, part := range strings.Split(m[2], ", ") {
			name, _, _ := strings.Cut(part, ":")
			got = append(got, name)
		}
		if diff := cmp.Diff(fields, got); diff != "" {
			t.Errorf("%s toString fields (-want +got):\n%s", m[1], diff)
		}
		for _, f := range fields {
			if c := strings.Count(m[2], f+": $"+f); c != 1 {
				t.Errorf("%s.%s mentioned %d times", m[1], f, c)
			}
		}
	}
	if seen != 2 {
		t.Errorf("found %d projected classes", seen)
	}
}

func TestRawExtensions(t *testing.T) {
	res := render(t, todoApp, Options{})
	mustContain(t, res.Code,
		"final _rid_todo_id = _dl.lookupFunction<Uint32 Function(Pointer<RawTodo>), int Function(Pointer<RawTodo>)>('rid_todo_id');",
		"extension RawTodoExt on Pointer<RawTodo> {",
		"  int get id => _rid_todo_id(this);",
		"  String get title => _rid_todo_title(this).takeDartString();",
		"  bool get completed => _rid_todo_completed(this) != 0;",
		"  Todo toDart() => rid.runLocked(() => Todo._(id, title, completed), request: 'Todo.toDart');",
		"  String debug([bool pretty = false]) => (pretty ? _rid_todo_debug_pretty(this) : _rid_todo_debug(this)).takeDartString();",
		"  void dispose() => _rid_free_Todo(this);",
		"  Pointer<RawVec_Todo> get todos => _rid_store_todos(this);",
		"  Filter get filter => Filter.values[_rid_store_filter(this)];",
		"Store._(todos.toDart().toList(), filter, settings.toDart(), title, dirty)",
	)
	for _, class := range []string{"RawTodo", "RawStore"} {
		if c := strings.Count(res.Code, "final class "+class+" extends Opaque {}"); c != 1 {
			t.Errorf("%s declared %d times", class, c)
		}
	}
}

func TestMessageSend(t *testing.T) {
	res := render(t, todoApp, Options{MsgTimeout: 5 * time.Second})
	mustContain(t, res.Code,
		"final _rid_msg_AddTodo = _dl.lookupFunction<Void Function(Uint64, Pointer<Int8>), void Function(int, Pointer<Int8>)>('rid_msg_AddTodo');",
		"extension MsgSend on Rid {",
		"  Future<PostedReply> addTodo(String arg0, {Duration? timeout}) {\n    final reqId = replyChannel.reqId;\n    _rid_msg_AddTodo(reqId, arg0.toNativeInt8());\n    return replyChannel.reply(reqId, timeout: timeout ?? RID_MSG_TIMEOUT, callSite: StackTrace.current);\n  }",
		"  Future<PostedReply> setFilter(Filter arg0, {Duration? timeout}) {",
		"    _rid_msg_SetFilter(reqId, arg0.index);",
		"  Future<PostedReply> toggle(int id, bool done, {Duration? timeout}) {",
		"    _rid_msg_Toggle(reqId, id, done ? 1 : 0);",
		"  Future<PostedReply> reset({Duration? timeout}) {",
		"Duration? RID_MSG_TIMEOUT = const Duration(milliseconds: 5000);",
	)
}

func TestReplyChannel(t *testing.T) {
	res := render(t, todoApp, Options{})
	mustContain(t, res.Code,
		"import 'dart:isolate';",
		"const int _ridIndexMask = 0xffff;",
		"  final Reply type;",
		"final id = (packed & 0x7fffffffffffffff) >> 16;",
		"return PostedReply._(Reply.values[idx], id, data);",
		"enum RidLogKind { log_info, log_warn, log_debug, err_error, err_severe }",
		"final parts = s.split('^');",
		"_rid_init_reply_isolate(_port.sendPort.nativePort);",
		"_pending.remove(reply.reqId)?.complete(reply);",
		"Duration? RID_MSG_TIMEOUT;",
	)
}

func TestStoreMethods(t *testing.T) {
	res := render(t, todoApp, Options{LibPath: "libtodo.so"})
	mustContain(t, res.Code,
		"final DynamicLibrary _dl = DynamicLibrary.open('libtodo.so');",
		"extension RawStoreMethods on Pointer<RawStore> {",
		"  List<Todo> filteredTodos() => _rid_export_Store_filtered_todos(this).take();",
		"  Todo? todoById(int id) => _ridNullable(_rid_export_todo_by_id(this, id), (p) => p.toDart());",
		"  void rename(String title) => _rid_export_Store_rename(this, title.toNativeInt8());",
		"extension StoreApi on Rid {",
		"  List<Todo> filteredTodos() => runLocked(() => store.filteredTodos(), request: 'filteredTodos');",
		"Todo makeTodo(int id) => _ridTake(_rid_export_make_todo(id), (p) => p.toDart(), _rid_free_Todo);",
		"  List<Todo> take() {",
		"if (_lockCount == 1) _rid_store_lock();",
		"if (_lockCount == 0) _rid_store_unlock();",
	)
	if strings.Contains(res.Code, "rename(title), request:") {
		t.Error("mutating methods must not run under the read lock")
	}
}

func TestNativeFailuresAreSkipped(t *testing.T) {
	src := `
pub enum Mode { Fast(u8), Slow }

#[rid::export]
#[rid::enums(Mode)]
pub fn mode_code(mode: Mode) -> u8 { 0 }

#[rid::export]
pub fn version() -> u8 { 1 }
`
	res := render(t, src, Options{})
	if strings.Contains(res.Code, "modeCode") {
		t.Error("item without native entries must not be bound")
	}
	mustContain(t, res.Code,
		"int version() => _rid_export_version();",
		"class Rid {",
	)
	if strings.Contains(res.Code, "PostedReply") || strings.Contains(res.Code, "RawStore") {
		t.Error("reply channel and store are only rendered when declared")
	}
}

func TestExtraImports(t *testing.T) {
	res := render(t, todoApp, Options{Imports: []string{"ffigen_binding.dart"}})
	mustContain(t, res.Code, "import 'package:ffi/ffi.dart';\nimport 'ffigen_binding.dart';\n\nfinal DynamicLibrary _dl")

	res = render(t, todoApp, Options{})
	mustContain(t, res.Code, "import 'package:ffi/ffi.dart';\n\nfinal DynamicLibrary _dl")
}
