package parse

import (
	"github.com/wippyai/ridgen/attr"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
)

// ItemKind tells which entity an Item carries.
type ItemKind int

const (
	ItemModel ItemKind = iota
	ItemStore
	ItemEnum
	ItemMessage
	ItemReply
	ItemImpl
	ItemFunction
)

func (k ItemKind) String() string {
	switch k {
	case ItemModel:
		return "model"
	case ItemStore:
		return "store"
	case ItemEnum:
		return "enum"
	case ItemMessage:
		return "message"
	case ItemReply:
		return "reply"
	case ItemImpl:
		return "impl"
	case ItemFunction:
		return "function"
	}
	return "item"
}

// Item is one parsed entity in source order. Exactly one of the entity
// pointers is set, matching Kind.
type Item struct {
	Kind     ItemKind
	Name     string
	Span     errors.Span
	Struct   *model.ParsedStruct
	Enum     *model.ParsedEnum
	Message  *model.ParsedMessage
	Reply    *model.ParsedReply
	Impl     *model.ParsedImpl
	Function *model.ParsedFunction
}

// Crate is the parsed model of one translation unit.
type Crate struct {
	Items       []Item
	Store       *model.ParsedStruct
	Diagnostics errors.Diagnostics

	// Enums holds every c-style enum declared in the sources, annotated or
	// not, so referenced enums can be projected.
	Enums map[string]*model.ParsedEnum
	// Structs holds every struct declared in the sources.
	Structs map[string]*syntax.Struct
}

// Options controls parsing.
type Options struct {
	// InferTypes makes every struct and enum declared in the sources a
	// category hint for every item, in addition to explicit hints.
	InferTypes bool
}

// Models returns the model and store structs in source order.
func (c *Crate) Models() []*model.ParsedStruct {
	var out []*model.ParsedStruct
	for _, it := range c.Items {
		if it.Struct != nil {
			out = append(out, it.Struct)
		}
	}
	return out
}

// Messages returns the message enums in source order.
func (c *Crate) Messages() []*model.ParsedMessage {
	var out []*model.ParsedMessage
	for _, it := range c.Items {
		if it.Message != nil {
			out = append(out, it.Message)
		}
	}
	return out
}

// Reply returns the reply enum with the given name.
func (c *Crate) Reply(name string) *model.ParsedReply {
	for _, it := range c.Items {
		if it.Reply != nil && it.Reply.Ident == name {
			return it.Reply
		}
	}
	return nil
}

// Replies returns the reply enums in source order.
func (c *Crate) Replies() []*model.ParsedReply {
	var out []*model.ParsedReply
	for _, it := range c.Items {
		if it.Reply != nil {
			out = append(out, it.Reply)
		}
	}
	return out
}

// Item returns the item with the given name and kind.
func (c *Crate) Item(kind ItemKind, name string) (Item, bool) {
	for _, it := range c.Items {
		if it.Kind == kind && it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

type parser struct {
	crate    *Crate
	declared model.TypeInfoMap
	replies  map[string]bool
	hasStore bool
	opts     Options
}

// Parse builds the crate model from parsed files. Items whose attributes or
// types are malformed are skipped and reported in Crate.Diagnostics; the
// rest of the unit is still parsed.
func Parse(files []*syntax.File, opts Options) *Crate {
	p := &parser{
		crate: &Crate{
			Enums:   map[string]*model.ParsedEnum{},
			Structs: map[string]*syntax.Struct{},
		},
		declared: model.TypeInfoMap{},
		replies:  map[string]bool{},
		opts:     opts,
	}
	p.declare(files)

	for _, f := range files {
		for _, item := range f.Items {
			p.item(item)
		}
	}
	return p.crate
}

// declare records every struct and c-style enum so later passes can resolve
// enum variants and impl owners regardless of source order.
func (p *parser) declare(files []*syntax.File) {
	for _, f := range files {
		for _, item := range f.Items {
			switch it := item.(type) {
			case *syntax.Struct:
				p.crate.Structs[it.Name] = it
				p.declared.Add(model.TypeInfo{Key: it.Name, Category: model.CategoryStruct})
				if hasPath(it.Attrs, "rid", "store") && it.Name == "Store" {
					p.hasStore = true
				}
			case *syntax.Enum:
				p.declared.Add(model.TypeInfo{Key: it.Name, Category: model.CategoryEnum})
				if hasPath(it.Attrs, "rid", "reply") {
					p.replies[it.Name] = true
				}
				if e := declareEnum(it); e != nil {
					p.crate.Enums[it.Name] = e
				}
			}
		}
	}
}

func (p *parser) item(item syntax.Item) {
	var err error
	switch it := item.(type) {
	case *syntax.Struct:
		err = p.structItem(it)
	case *syntax.Enum:
		err = p.enumItem(it)
	case *syntax.Impl:
		p.implItem(it)
	case *syntax.Fn:
		err = p.fnItem(it)
	}
	if err != nil {
		p.diagnose(err, item.ItemName())
	}
}

func (p *parser) diagnose(err error, item string) {
	e, ok := errors.As(err)
	if !ok {
		e = errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "parse item")
	}
	if e.Item == "" {
		e.Item = item
	}
	p.crate.Diagnostics = append(p.crate.Diagnostics, e)
}

func (p *parser) add(it Item) {
	p.crate.Items = append(p.crate.Items, it)
}

// hints returns the type infos an item resolves against.
func (p *parser) hints(set *attr.Set) model.TypeInfoMap {
	if p.opts.InferTypes {
		return p.declared.Merge(set.TypeInfos)
	}
	return set.TypeInfos.Merge(nil)
}

// categoryOf returns the declared category of name, defaulting to Struct.
func (p *parser) categoryOf(name string) model.Category {
	if info, ok := p.declared[name]; ok {
		return info.Category
	}
	return model.CategoryStruct
}

func hasPath(attrs []syntax.Attribute, path ...string) bool {
	for _, a := range attrs {
		if len(a.Path) != len(path) {
			continue
		}
		match := true
		for i := range path {
			if a.Path[i] != path[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
