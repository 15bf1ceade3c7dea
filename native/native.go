package native

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"

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

var templates = template.Must(template.New("native").ParseFS(templateFS, "templates/*.tmpl"))

// Header opens every generated native unit.
const Header = "// Generated by ridgen. Do not edit.\n"

// Result is a rendered native unit.
type Result struct {
	Code        string
	Diagnostics errors.Diagnostics
}

// Renderer renders the native shims of one translation unit.
type Renderer struct {
	crate *parse.Crate
	ctx   *genstate.GenCtx
	agg   *access.Aggregator

	aliases  strings.Builder
	prelude  strings.Builder
	items    strings.Builder
	diags    errors.Diagnostics
	utils    bool
	cstrFree bool
}

// New creates a renderer. ctx and agg are shared with the host renderer of
// the same unit.
func New(c *parse.Crate, ctx *genstate.GenCtx, agg *access.Aggregator) *Renderer {
	return &Renderer{crate: c, ctx: ctx, agg: agg}
}

// Render renders the native side of c.
func Render(c *parse.Crate, ctx *genstate.GenCtx, agg *access.Aggregator) *Result {
	r := New(c, ctx, agg)
	for _, it := range c.Items {
		r.Item(it)
	}
	return r.Finish()
}

// Item renders one parsed item. A failing item is dropped and reported;
// the rest of the unit is unaffected.
func (r *Renderer) Item(it parse.Item) {
	var b strings.Builder
	var err error
	switch it.Kind {
	case parse.ItemModel, parse.ItemStore:
		err = r.structItem(&b, it.Struct)
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
	if b.Len() == 0 {
		return
	}
	r.module(it.Name, b.String())
	Logger().Debug("rendered item", zap.String("item", it.Name), zap.Stringer("kind", it.Kind))
}

func (r *Renderer) diagnose(err error, item string) {
	e, ok := errors.As(err)
	if !ok {
		e = errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "render item")
	}
	if e.Item == "" {
		e.Item = item
	}
	r.diags = append(r.diags, e)
	Logger().Warn("skipped item", zap.String("item", item), zap.Error(e))
}

// module wraps an item's code in a uniquely named module.
func (r *Renderer) module(name, body string) {
	mod := r.ctx.UniqueIdent("__rid_" + model.Snake(name) + "_ffi")
	fmt.Fprintf(&r.items, "mod %s {\n", mod)
	r.items.WriteString("    #[allow(unused_imports)]\n    use super::*;\n\n")
	r.items.WriteString(indent(strings.TrimRight(body, "\n"), "    "))
	r.items.WriteString("\n}\n\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

var aliasRe = regexp.MustCompile(`\b(PointerMut|Pointer)_([A-Za-z_][A-Za-z0-9_]*)`)

// claimAliases declares every pointer alias sig mentions, once per unit.
func (r *Renderer) claimAliases(sig, user string) {
	for _, m := range aliasRe.FindAllStringSubmatch(sig, -1) {
		if !r.ctx.Claim(genstate.PointerAlias, m[0], user) {
			continue
		}
		ptr := "*const"
		if m[1] == "PointerMut" {
			ptr = "*mut"
		}
		fmt.Fprintf(&r.aliases, "#[allow(non_camel_case_types)]\npub type %s = %s %s;\n", m[0], ptr, m[2])
	}
}

// entry writes one C entry. Statements run in order; tail is the returned
// expression, or the last statement of a unit entry.
func (r *Renderer) entry(b *strings.Builder, name string, params []string, ret string, stmts []string, tail string) {
	sig := name + "(" + strings.Join(params, ", ") + ")"
	if ret != "" {
		sig += " -> " + ret
	}
	r.claimAliases(sig, name)

	b.WriteString(ffi.EntryAttrs)
	b.WriteString("pub extern \"C\" fn ")
	b.WriteString(sig)
	b.WriteString(" {\n")
	for _, s := range stmts {
		b.WriteString("    ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if tail != "" {
		b.WriteString("    ")
		b.WriteString(tail)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

// useUtils records that the unit hands out foreign vectors.
func (r *Renderer) useUtils(user string) {
	if r.ctx.Claim(genstate.UtilsModule, ffi.UtilsMod, user) {
		r.utils = true
	}
}

// useCStringFree records that the unit hands out C strings.
func (r *Renderer) useCStringFree(user string) {
	if r.ctx.Claim(genstate.CStringFree, ffi.CStringFree, user) {
		r.cstrFree = true
	}
}

// registerAccess registers the access of a container handed out by user.
func (r *Renderer) registerAccess(rt *model.RustType, kind access.Kind, user string) {
	r.agg.RegisterType(rt.Owned(), kind, user)
}

func (r *Renderer) accessNeeds(a access.Access, user string) {
	if a.Kind() == access.MethodReturn {
		if _, ok := a.(*access.VecAccess); ok {
			r.useUtils(user)
		}
	}
	for _, e := range a.Elements() {
		if e.IsStringLike() {
			r.useCStringFree(user)
		}
	}
	for _, n := range a.Nested() {
		r.accessNeeds(n, a.Key())
	}
}

// Finish renders the registered accesses and assembles the unit.
func (r *Renderer) Finish() *Result {
	var acc strings.Builder
	for _, a := range r.agg.Accesses() {
		r.accessNeeds(a, a.Key())
		if err := r.requireEnums(a.Container(), a.Key()); err != nil {
			r.diagnose(err, a.Key())
			continue
		}
		var b strings.Builder
		a.RenderNative(&b)
		r.claimAliases(b.String(), a.Key())
		acc.WriteString(b.String())
	}

	var out strings.Builder
	out.WriteString(Header)
	out.WriteString("\n")
	if r.aliases.Len() > 0 {
		out.WriteString(r.aliases.String())
		out.WriteString("\n")
	}
	if r.utils {
		r.exec(&out, "utils", ffi.UtilsMod)
	}
	if r.cstrFree {
		r.exec(&out, "cstring_free", ffi.CStringFree)
	}
	if r.crate.Store != nil {
		r.exec(&out, "store", map[string]string{
			"Store":  r.crate.Store.Ident,
			"Lock":   ffi.StoreLock,
			"Unlock": ffi.StoreUnlock,
			"Create": ffi.CreateStore,
			"Free":   ffi.StoreFree,
		})
	}
	if len(r.crate.Replies()) > 0 {
		kinds := make([]string, len(reply.LogKinds))
		for i, k := range reply.LogKinds {
			kinds[i] = string(k)
		}
		r.exec(&out, "reply", map[string]any{
			"Init":      ffi.InitReplyIsolate,
			"MaxID":     fmt.Sprintf("%d", reply.MaxID),
			"IndexBits": reply.IndexBits,
			"Sep":       "^",
			"Kinds":     kinds,
		})
	}
	out.WriteString(r.prelude.String())
	out.WriteString(r.items.String())
	out.WriteString(acc.String())

	return &Result{Code: out.String(), Diagnostics: r.diags}
}

func (r *Renderer) exec(out *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(out, name, data); err != nil {
		r.diagnose(errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "template "+name), name)
		return
	}
	out.WriteString("\n")
}
