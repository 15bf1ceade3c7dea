package witmap

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/ffi"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/parse"
)

// Param is a named function parameter.
type Param struct {
	Name string
	Type wit.Type
}

// Function is one exported entry.
type Function struct {
	Name   string
	Export string
	Params []Param
	Result wit.Type
}

// Interface is the WIT view of a crate.
type Interface struct {
	Name        string
	Types       []*wit.TypeDef
	Functions   []Function
	Diagnostics errors.Diagnostics
}

// Describe maps every item of c. Items that cannot be mapped are reported
// and left out.
func Describe(name string, c *parse.Crate) *Interface {
	m := New(c)
	iface := &Interface{Name: Kebab(name)}
	fail := func(err error, item string) {
		e, ok := errors.As(err)
		if !ok {
			e = errors.Wrap(errors.PhaseRender, errors.KindInvalidData, err, "describe")
		}
		if e.Item == "" {
			e.Item = item
		}
		iface.Diagnostics = append(iface.Diagnostics, e)
	}

	for _, it := range c.Items {
		var err error
		switch it.Kind {
		case parse.ItemModel, parse.ItemStore:
			_, err = m.Record(it.Name)
		case parse.ItemEnum:
			if it.Enum.CStyle {
				_, err = m.Enum(it.Name)
			}
		case parse.ItemMessage:
			_, err = m.Message(it.Message)
		case parse.ItemReply:
			m.Reply(it.Reply)
		case parse.ItemImpl:
			owner := it.Impl.OwnerName()
			for _, f := range it.Impl.Methods {
				fn, ferr := m.function(owner, f)
				if ferr != nil {
					fail(ferr, owner+"::"+f.Ident)
					continue
				}
				iface.Functions = append(iface.Functions, fn)
			}
		case parse.ItemFunction:
			var fn Function
			fn, err = m.function("", it.Function)
			if err == nil {
				iface.Functions = append(iface.Functions, fn)
			}
		}
		if err != nil {
			fail(err, it.Name)
		}
	}
	iface.Types = m.Defs()
	return iface
}

func (m *Mapper) function(owner string, f *model.ParsedFunction) (Function, error) {
	export := ffi.ExportName(owner, f)
	fn := Function{Export: export, Name: Kebab(strings.TrimPrefix(export, "rid_export_"))}
	if f.IsMethod() {
		self, err := m.Record(owner)
		if err != nil {
			return fn, err
		}
		fn.Params = append(fn.Params, Param{Name: "self", Type: self})
	}
	for _, a := range f.Args {
		t, err := m.Type(a.Type)
		if err != nil {
			return fn, err
		}
		fn.Params = append(fn.Params, Param{Name: Kebab(a.Name), Type: t})
	}
	t, err := m.Type(f.Return)
	if err != nil {
		return fn, err
	}
	fn.Result = t
	return fn, nil
}

// String renders the interface as WIT text.
func (i *Interface) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface %s {\n", i.Name)
	for _, def := range i.Types {
		writeDef(&b, def)
	}
	if len(i.Types) > 0 && len(i.Functions) > 0 {
		b.WriteString("\n")
	}
	for _, f := range i.Functions {
		params := make([]string, len(f.Params))
		for j, p := range f.Params {
			params[j] = p.Name + ": " + TypeString(p.Type)
		}
		fmt.Fprintf(&b, "  %s: func(%s)", f.Name, strings.Join(params, ", "))
		if f.Result != nil {
			fmt.Fprintf(&b, " -> %s", TypeString(f.Result))
		}
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func writeDef(b *strings.Builder, def *wit.TypeDef) {
	name := *def.Name
	switch k := def.Kind.(type) {
	case *wit.Record:
		fmt.Fprintf(b, "  record %s {\n", name)
		for _, f := range k.Fields {
			fmt.Fprintf(b, "    %s: %s,\n", f.Name, TypeString(f.Type))
		}
		b.WriteString("  }\n")
	case *wit.Enum:
		cases := make([]string, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = c.Name
		}
		fmt.Fprintf(b, "  enum %s { %s }\n", name, strings.Join(cases, ", "))
	case *wit.Variant:
		fmt.Fprintf(b, "  variant %s {\n", name)
		for _, c := range k.Cases {
			if c.Type == nil {
				fmt.Fprintf(b, "    %s,\n", c.Name)
			} else {
				fmt.Fprintf(b, "    %s(%s),\n", c.Name, TypeString(c.Type))
			}
		}
		b.WriteString("  }\n")
	}
}

// TypeString renders a type reference.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = TypeString(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		}
	}
	return fmt.Sprintf("%T", t)
}
