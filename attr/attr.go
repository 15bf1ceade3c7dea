package attr

import (
	"fmt"
	"strings"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/model"
	"github.com/wippyai/ridgen/syntax"
	"github.com/wippyai/ridgen/syntax/token"
)

// Kind is a recognised rid attribute.
type Kind int

const (
	KindStore Kind = iota
	KindModel
	KindMessage
	KindReply
	KindExport
	KindStructs
	KindEnums
	KindTypes
	KindDebug
	KindDisplay
)

var kindNames = map[Kind]string{
	KindStore:   "store",
	KindModel:   "model",
	KindMessage: "message",
	KindReply:   "reply",
	KindExport:  "export",
	KindStructs: "structs",
	KindEnums:   "enums",
	KindTypes:   "types",
	KindDebug:   "debug",
	KindDisplay: "display",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Target is the kind of item an attribute list is attached to.
type Target int

const (
	TargetStruct Target = iota
	TargetEnum
	TargetImpl
	TargetFn
	TargetMethod
)

func (t Target) String() string {
	switch t {
	case TargetStruct:
		return "struct"
	case TargetEnum:
		return "enum"
	case TargetImpl:
		return "impl block"
	case TargetFn:
		return "function"
	case TargetMethod:
		return "method"
	}
	return "item"
}

// placement lists the targets each attribute may appear on.
var placement = map[Kind][]Target{
	KindStore:   {TargetStruct},
	KindModel:   {TargetStruct, TargetEnum},
	KindMessage: {TargetEnum},
	KindReply:   {TargetEnum},
	KindExport:  {TargetImpl, TargetFn, TargetMethod},
	KindDebug:   {TargetStruct, TargetEnum},
	KindDisplay: {TargetStruct, TargetEnum},
}

// Attr is one recognised attribute.
type Attr struct {
	Kind Kind
	Span errors.Span
	// Reply names the reply enum of a message attribute.
	Reply string
	// Alias renames an exported function.
	Alias string
	// Idents lists the names of a structs(..) or enums(..) hint.
	Idents []string
}

// Derive records the derives the generator cares about.
type Derive struct {
	Debug bool
	Clone bool
}

// Set is the parsed attribute list of one item.
type Set struct {
	Attrs     []Attr
	TypeInfos model.TypeInfoMap
	Derive    Derive
	ReprC     bool
}

// Has reports whether an attribute of kind k is present.
func (s *Set) Has(k Kind) bool {
	_, ok := s.Get(k)
	return ok
}

// Get returns the first attribute of kind k.
func (s *Set) Get(k Kind) (Attr, bool) {
	for _, a := range s.Attrs {
		if a.Kind == k {
			return a, true
		}
	}
	return Attr{}, false
}

// Message returns the reply enum named by #[rid::message(Reply)].
func (s *Set) Message() (string, bool) {
	a, ok := s.Get(KindMessage)
	return a.Reply, ok
}

// Export reports whether the item is exported and under which alias.
func (s *Set) Export() (alias string, ok bool) {
	a, ok := s.Get(KindExport)
	return a.Alias, ok
}

// WantsDebug reports #[derive(Debug)] or #[rid(debug)].
func (s *Set) WantsDebug() bool {
	return s.Derive.Debug || s.Has(KindDebug)
}

// Parse recognises the rid vocabulary in attrs attached to an item of the
// given target. Attributes outside the rid namespace are ignored apart from
// derive and repr.
func Parse(attrs []syntax.Attribute, target Target) (*Set, error) {
	s := &Set{TypeInfos: model.TypeInfoMap{}}
	for _, a := range attrs {
		var err error
		switch {
		case len(a.Path) == 1 && a.Path[0] == "derive":
			s.Derive = parseDerive(a)
		case len(a.Path) == 1 && a.Path[0] == "repr":
			s.ReprC = parseRepr(a)
		case len(a.Path) == 1 && a.Path[0] == "rid":
			err = s.parseRidList(a, target)
		case len(a.Path) == 2 && a.Path[0] == "rid":
			err = s.parseRid(a, a.Path[1], target)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) parseRid(a syntax.Attribute, name string, target Target) error {
	kind, ok := lookupKind(name)
	if !ok || kind == KindTypes {
		return errors.AttributeShape(a.Span, "unknown attribute rid::%s", name)
	}
	if err := checkPlacement(a, kind, target); err != nil {
		return err
	}

	attr := Attr{Kind: kind, Span: a.Span}
	switch kind {
	case KindMessage:
		if s.Has(KindMessage) {
			return errors.AttributeShape(a.Span, "duplicate rid::message")
		}
		idents, err := identList(a)
		if err != nil {
			return err
		}
		if len(idents) != 1 {
			return errors.AttributeShape(a.Span, "rid::message expects exactly one reply enum, e.g. #[rid::message(Reply)]")
		}
		attr.Reply = idents[0]

	case KindExport:
		if a.HasArgs {
			idents, err := identList(a)
			if err != nil {
				return err
			}
			if len(idents) != 1 {
				return errors.AttributeShape(a.Span, "rid::export accepts at most one alias")
			}
			attr.Alias = idents[0]
		}

	case KindStructs, KindEnums:
		idents, err := identList(a)
		if err != nil {
			return err
		}
		if len(idents) == 0 {
			return errors.AttributeShape(a.Span, "rid::%s needs at least one type name", name)
		}
		attr.Idents = idents
		cat := model.CategoryStruct
		if kind == KindEnums {
			cat = model.CategoryEnum
		}
		for _, id := range idents {
			s.TypeInfos.Add(model.TypeInfo{Key: id, Category: cat})
		}

	default:
		if a.HasArgs || a.NameValue {
			return errors.AttributeShape(a.Span, "rid::%s takes no arguments", name)
		}
	}

	s.Attrs = append(s.Attrs, attr)
	return nil
}

// parseRidList handles the long form #[rid(debug, types = { A: Struct })].
func (s *Set) parseRidList(a syntax.Attribute, target Target) error {
	if !a.HasArgs || a.Delim != token.LParen {
		return errors.AttributeShape(a.Span, "expected #[rid(...)]")
	}
	for _, group := range splitTopLevel(a.Args) {
		if len(group) == 0 {
			continue
		}
		head := group[0]
		span := tokenSpan(a.Span.File, head)
		switch {
		case head.Is("types"):
			if len(group) < 2 || !group[1].Is("=") {
				return errors.AttributeShape(span, "expected types = { Name: Category, .. }")
			}
			infos, err := parseTypes(a.Span.File, group[1:])
			if err != nil {
				return err
			}
			for _, info := range infos {
				s.TypeInfos.Add(info)
			}
			s.Attrs = append(s.Attrs, Attr{Kind: KindTypes, Span: span})

		case head.Is("debug") && len(group) == 1:
			if err := checkPlacement(syntax.Attribute{Span: span}, KindDebug, target); err != nil {
				return err
			}
			s.Attrs = append(s.Attrs, Attr{Kind: KindDebug, Span: span})

		default:
			return errors.AttributeShape(span, "unknown rid option %q", head.Value)
		}
	}
	return nil
}

// parseTypes parses '=' { Name: Category, ... }.
func parseTypes(file string, toks []token.Token) ([]model.TypeInfo, error) {
	eq := toks[0]
	if len(toks) < 3 || toks[1].Type != token.LBrace || toks[len(toks)-1].Type != token.RBrace {
		return nil, errors.AttributeShape(tokenSpan(file, eq), "types must be a brace-delimited set of Name: Category pairs")
	}

	var infos []model.TypeInfo
	for _, pair := range splitTopLevel(toks[2 : len(toks)-1]) {
		if len(pair) == 0 {
			continue
		}
		if len(pair) != 3 || pair[0].Type != token.Ident || !pair[1].Is(":") || pair[2].Type != token.Ident {
			return nil, errors.AttributeShape(tokenSpan(file, pair[0]), "expected Name: Category")
		}
		cat, ok := model.ParseCategory(pair[2].Value)
		if !ok {
			return nil, errors.AttributeShape(tokenSpan(file, pair[2]), "unknown category %q, expected Struct, Enum or Prim", pair[2].Value)
		}
		infos = append(infos, model.TypeInfo{Key: pair[0].Value, Category: cat})
	}
	return infos, nil
}

func checkPlacement(a syntax.Attribute, kind Kind, target Target) error {
	allowed, ok := placement[kind]
	if !ok {
		return nil
	}
	for _, t := range allowed {
		if t == target {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, t := range allowed {
		names[i] = t.String()
	}
	return errors.AttributeShape(a.Span, "rid::%s is not allowed on a %s (only on %s)", kind, target, strings.Join(names, ", "))
}

// identList parses a parenthesised comma separated list of identifiers.
func identList(a syntax.Attribute) ([]string, error) {
	if !a.HasArgs || a.Delim != token.LParen {
		return nil, errors.AttributeShape(a.Span, "rid::%s expects parenthesised arguments", a.Path[len(a.Path)-1])
	}
	var out []string
	for _, group := range splitTopLevel(a.Args) {
		if len(group) == 0 {
			continue
		}
		if len(group) != 1 || group[0].Type != token.Ident {
			return nil, errors.AttributeShape(tokenSpan(a.Span.File, group[0]), "expected identifier")
		}
		out = append(out, group[0].Value)
	}
	return out, nil
}

func parseDerive(a syntax.Attribute) Derive {
	var d Derive
	for _, group := range splitTopLevel(a.Args) {
		if len(group) == 0 {
			continue
		}
		switch group[len(group)-1].Value {
		case "Debug":
			d.Debug = true
		case "Clone":
			d.Clone = true
		}
	}
	return d
}

func parseRepr(a syntax.Attribute) bool {
	for _, t := range a.Args {
		if t.Is("C") {
			return true
		}
	}
	return false
}

// splitTopLevel splits toks on commas outside nested delimiters.
func splitTopLevel(toks []token.Token) [][]token.Token {
	var groups [][]token.Token
	depth, start := 0, 0
	for i, t := range toks {
		switch {
		case t.Type.IsOpen():
			depth++
		case t.Type.IsClose():
			depth--
		case depth == 0 && t.Is(","):
			groups = append(groups, toks[start:i])
			start = i + 1
		}
	}
	if start < len(toks) {
		groups = append(groups, toks[start:])
	}
	return groups
}

func lookupKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

func tokenSpan(file string, t token.Token) errors.Span {
	return errors.Span{File: file, Line: t.Line, Col: t.Col, Token: t.Value}
}
