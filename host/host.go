package host

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/parse"
	"github.com/wippyai/ridgen/reply"
)

//go:embed templates/*
var templateFS embed.FS

var templates = template.Must(template.New("host").ParseFS(templateFS, "templates/*.tmpl"))

// Options controls host rendering.
type Options struct {
	// LibPath is passed to DynamicLibrary.open.
	LibPath string
	// MsgTimeout is the initial RID_MSG_TIMEOUT; zero waits forever.
	MsgTimeout time.Duration
	// Imports are extra Dart imports added after the ffi ones.
	Imports []string
	// Skip lists the native diagnostics of the unit. Items and methods
	// that failed to render natively have no entries to bind and are
	// skipped.
	Skip errors.Diagnostics
}

// Result is a rendered host unit.
type Result struct {
	Code        string
	Diagnostics errors.Diagnostics
}

// Renderer renders the Dart side of one translation unit. It must run
// after the native renderer of the same unit, sharing its GenCtx and
// Aggregator.
type Renderer struct {
	crate *parse.Crate
	ctx   *genstate.GenCtx
	agg   *access.Aggregator
	opts  Options

	lookups strings.Builder
	items   strings.Builder
	raw     map[string]bool
	frees   map[string]bool
	diags   errors.Diagnostics
}

// New creates a renderer.
func New(c *parse.Crate, ctx *genstate.GenCtx, agg *access.Aggregator, opts Options) *Renderer {
	if opts.LibPath == "" {
		opts.LibPath = "librid.so"
	}
	return &Renderer{
		crate: c,
		ctx:   ctx,
		agg:   agg,
		opts:  opts,
		raw:   map[string]bool{},
		frees: map[string]bool{},
	}
}

// Render renders the host side of c.
func Render(c *parse.Crate, ctx *genstate.GenCtx, agg *access.Aggregator, opts Options) *Result {
	r := New(c, ctx, agg, opts)
	for _, it := range c.Items {
		r.Item(it)
	}
	return r.Finish()
}

func (r *Renderer) skipped(name string) bool {
	return r.opts.Skip.ForItem(name) != nil
}

// Item renders one parsed item.
func (r *Renderer) Item(it parse.Item) {
	if r.skipped(it.Name) {
		return
	}
	var b strings.Builder
	var err error
	switch it.Kind {
	case parse.ItemModel, parse.ItemStore:
		r.structItem(&b, it.Struct)
	case parse.ItemEnum:
		err = r.enumItem(&b, it.Enum)
	case parse.ItemMessage:
		err = r.messageItem(&b, it.Message)
	case parse.ItemReply:
		err = r.replyItem(&b, it.Reply)
	case parse.ItemImpl:
		r.implItem(&b, it.Impl)
	case parse.ItemFunction:
		err = r.function(&b, "", it.Function)
	}
	if err != nil {
		r.diagnose(err, it.Name)
		return
	}
	r.items.WriteString(b.String())
	Logger().Debug("rendered item", zap.String("item", it.Name), zap.Stringer("kind", it.Kind))
}

func (r *Renderer) diagnose(err error, item string) {
	e, ok := errors.As(err)
	if !ok {
		e = errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "render host item")
	}
	if e.Item == "" {
		e.Item = item
	}
	r.diags = append(r.diags, e)
	Logger().Warn("skipped host item", zap.String("item", item), zap.Error(e))
}

// rawClass records that the opaque class of a struct is needed.
func (r *Renderer) rawClass(name string) {
	r.raw[name] = true
}

// freeLookup binds rid_free_{T} of a boxed struct.
func (r *Renderer) freeLookup(key string) string {
	name := ffi.FreeFn(key)
	if !r.frees[key] {
		r.frees[key] = true
		r.rawClass(key)
		p := "Pointer<" + ffi.RawClass(key) + ">"
		lookup(&r.lookups, name, voidSig, sig{p, p})
	}
	return "_" + name
}

// Finish assembles the unit.
func (r *Renderer) Finish() *Result {
	var out strings.Builder
	replies := r.crate.Replies()

	r.exec(&out, "prelude", map[string]any{
		"LibPath": r.opts.LibPath,
		"Channel": len(replies) > 0,
		"Imports": r.opts.Imports,
	})
	out.WriteString("\n")
	if r.ctx.Emitted(genstate.CStringFree, ffi.CStringFree) {
		r.exec(&out, "cstring", ffi.CStringFree)
		out.WriteString("\n")
	}

	data := map[string]any{"TimeoutMs": r.opts.MsgTimeout.Milliseconds()}
	store := ""
	if s := r.crate.Store; s != nil && !r.skipped(s.Ident) {
		store = s.Ident
		data["Store"] = s.Ident
		data["Lock"] = ffi.StoreLock
		data["Unlock"] = ffi.StoreUnlock
		data["Create"] = ffi.CreateStore
		data["Free"] = ffi.StoreFree
	}
	r.exec(&out, "rid", data)
	out.WriteString("\n")

	if len(replies) > 0 {
		kinds := make([]string, len(reply.LogKinds))
		for i, k := range reply.LogKinds {
			kinds[i] = string(k)
		}
		r.exec(&out, "channel", map[string]any{
			"Reply":     replies[0].Ident,
			"IndexMask": reply.IndexMask,
			"IndexBits": reply.IndexBits,
			"Init":      ffi.InitReplyIsolate,
			"Sep":       "^",
			"Kinds":     kinds,
		})
		out.WriteString("\n")
		for _, extra := range replies[1:] {
			r.diagnose(errors.New(errors.PhaseRender, errors.KindReplyShape).
				At(extra.Span).
				Detail("the reply channel decodes one reply enum; %s is already bound", replies[0].Ident).
				Build(), extra.Ident)
		}
	}

	for _, key := range r.ctx.Keys(genstate.Discriminant) {
		r.enum(&out, key)
	}

	var acc strings.Builder
	r.agg.RenderHost(&acc)
	for _, a := range r.agg.Accesses() {
		for _, e := range a.Elements() {
			if e.IsStruct() {
				r.rawClass(e.Key())
			}
		}
	}

	var names []string
	for name := range r.raw {
		if name != store {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&out, "final class %s extends Opaque {}\n\n", ffi.RawClass(name))
	}

	if r.lookups.Len() > 0 {
		out.WriteString(r.lookups.String())
		out.WriteString("\n")
	}
	out.WriteString(r.items.String())
	out.WriteString(acc.String())
	return &Result{Code: out.String(), Diagnostics: r.diags}
}

func (r *Renderer) exec(out *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(out, name, data); err != nil {
		r.diagnose(errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "template "+name), name)
	}
}

// enum emits the host replica of a c-style enum once per unit.
func (r *Renderer) enum(b *strings.Builder, name string) {
	e, ok := r.crate.Enums[name]
	if !ok || !r.ctx.Claim(genstate.DartEnum, name, name) {
		return
	}
	idents := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		idents[i] = v.Ident
	}
	fmt.Fprintf(b, "enum %s { %s }\n\n", e.Ident, strings.Join(idents, ", "))
}

type sig struct {
	native string
	dart   string
}

var voidSig = sig{"Void", "void"}

func sigOf(rt *model.RustType, pos ffi.Position) sig {
	if rt == nil {
		return voidSig
	}
	return sig{ffi.DartNative(rt, pos), ffi.DartFFI(rt, pos)}
}

func lookup(b *strings.Builder, name string, ret sig, args ...sig) {
	natives := make([]string, len(args))
	darts := make([]string, len(args))
	for i, a := range args {
		natives[i] = a.native
		darts[i] = a.dart
	}
	fmt.Fprintf(b, "final _%s = _dl.lookupFunction<%s Function(%s), %s Function(%s)>('%s');\n",
		name, ret.native, strings.Join(natives, ", "), ret.dart, strings.Join(darts, ", "), name)
}
