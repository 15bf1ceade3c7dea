package syntax

import (
	"fmt"

	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/syntax/token"
)

// Parser turns a token stream into the items the generator consumes.
// Items it does not understand (use, mod, const, traits, macros) are skipped.
type Parser struct {
	file   string
	tokens []token.Token
	pos    int
}

// New creates a parser over tokens produced by token.Tokenize.
func New(file string, tokens []token.Token) *Parser {
	return &Parser{file: file, tokens: tokens}
}

// ParseFile tokenizes and parses src.
func ParseFile(name, src string) (*File, error) {
	tokens, err := token.Tokenize(src)
	if err != nil {
		if te, ok := err.(*token.Error); ok {
			return nil, errors.ParseFailed(errors.Span{File: name, Line: te.Line, Col: te.Col}, "tokens", err)
		}
		return nil, errors.ParseFailed(errors.Span{File: name}, "tokens", err)
	}
	return New(name, tokens).Parse()
}

// Parse parses all items.
func (p *Parser) Parse() (*File, error) {
	f := &File{Name: p.file}
	for p.peek() != nil {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if item != nil {
			f.Items = append(f.Items, item)
		}
	}
	return f, nil
}

func (p *Parser) peek() *token.Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(off int) *token.Token {
	if p.pos+off >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+off]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) span(t *token.Token) errors.Span {
	if t == nil {
		if len(p.tokens) == 0 {
			return errors.Span{File: p.file}
		}
		last := p.tokens[len(p.tokens)-1]
		return errors.Span{File: p.file, Line: last.Line, Col: last.Col}
	}
	return errors.Span{File: p.file, Line: t.Line, Col: t.Col, Token: t.Value}
}

func (p *Parser) errorf(t *token.Token, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		At(p.span(t)).
		Detail(format, args...).
		Build()
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, p.errorf(nil, "unexpected end of input, expected %v", typ)
	}
	if t.Type != typ {
		return nil, p.errorf(t, "expected %v, got %q", typ, t.Value)
	}
	return t, nil
}

func (p *Parser) expectValue(v string) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, p.errorf(nil, "unexpected end of input, expected %q", v)
	}
	if !t.Is(v) {
		return nil, p.errorf(t, "expected %q, got %q", v, t.Value)
	}
	return t, nil
}

func (p *Parser) accept(v string) bool {
	if t := p.peek(); t != nil && t.Is(v) {
		p.pos++
		return true
	}
	return false
}

// skipGroup skips a balanced delimited group starting at an opening token.
// It returns the tokens between the delimiters.
func (p *Parser) skipGroup() ([]token.Token, error) {
	open := p.next()
	if open == nil || !open.Type.IsOpen() {
		return nil, p.errorf(open, "expected opening delimiter")
	}
	start := p.pos
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return nil, p.errorf(open, "unclosed %v", open.Type)
		}
		switch {
		case t.Type.IsOpen():
			depth++
		case t.Type.IsClose():
			depth--
		}
	}
	return p.tokens[start : p.pos-1], nil
}

// skipItem skips to the end of an item: either a ';' at depth zero or the
// close of the first brace group.
func (p *Parser) skipItem() error {
	for {
		t := p.peek()
		if t == nil {
			return nil
		}
		switch {
		case t.Is(";"):
			p.pos++
			return nil
		case t.Type == token.LBrace:
			if _, err := p.skipGroup(); err != nil {
				return err
			}
			// a braced item may still be followed by ';' (struct S {};)
			p.accept(";")
			return nil
		case t.Type.IsOpen():
			if _, err := p.skipGroup(); err != nil {
				return err
			}
		case t.Type.IsClose():
			return p.errorf(t, "unbalanced %q", t.Value)
		default:
			p.pos++
		}
	}
}

func (p *Parser) parseAttributes() ([]Attribute, error) {
	var attrs []Attribute
	for {
		t := p.peek()
		if t == nil || !t.Is("#") {
			return attrs, nil
		}
		// inner attribute #![...] applies to the enclosing module
		if n := p.peekAt(1); n != nil && n.Is("!") {
			p.pos += 2
			if _, err := p.skipGroup(); err != nil {
				return nil, err
			}
			continue
		}
		attr, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
}

func (p *Parser) parseAttribute() (Attribute, error) {
	hash := p.next()
	if _, err := p.expect(token.LBracket); err != nil {
		return Attribute{}, err
	}

	attr := Attribute{Span: p.span(hash)}
	for {
		seg, err := p.expect(token.Ident)
		if err != nil {
			return Attribute{}, err
		}
		if len(attr.Path) == 0 {
			attr.Span = p.span(seg)
		}
		attr.Path = append(attr.Path, seg.Value)
		if !p.accept("::") {
			break
		}
	}

	t := p.peek()
	switch {
	case t == nil:
		return Attribute{}, p.errorf(nil, "unterminated attribute")
	case t.Type.IsOpen():
		attr.Delim = t.Type
		attr.HasArgs = true
		args, err := p.skipGroup()
		if err != nil {
			return Attribute{}, err
		}
		attr.Args = args
	case t.Is("="):
		p.pos++
		attr.NameValue = true
		start := p.pos
		for p.peek() != nil && p.peek().Type != token.RBracket {
			if p.peek().Type.IsOpen() {
				if _, err := p.skipGroup(); err != nil {
					return Attribute{}, err
				}
				continue
			}
			p.pos++
		}
		attr.Args = p.tokens[start:p.pos]
	}

	if _, err := p.expect(token.RBracket); err != nil {
		return Attribute{}, err
	}
	return attr, nil
}

// parseVisibility consumes pub, pub(crate), pub(super), pub(in path).
func (p *Parser) parseVisibility() (bool, error) {
	if !p.accept("pub") {
		return false, nil
	}
	if t := p.peek(); t != nil && t.Type == token.LParen {
		if _, err := p.skipGroup(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (p *Parser) parseItem() (Item, error) {
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}
	public, err := p.parseVisibility()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if t == nil {
		if len(attrs) > 0 {
			return nil, p.errorf(nil, "attribute without item")
		}
		return nil, nil
	}

	switch {
	case t.Is("struct"):
		return p.parseStruct(attrs)
	case t.Is("enum"):
		return p.parseEnum(attrs)
	case t.Is("impl"):
		return p.parseImpl(attrs)
	case t.Is("unsafe") && p.peekAt(1) != nil && p.peekAt(1).Is("impl"):
		p.pos++
		return p.parseImpl(attrs)
	case p.isFnStart():
		fn, err := p.parseFn(attrs)
		if err != nil {
			return nil, err
		}
		fn.Public = public
		return fn, nil
	case t.Type.IsClose():
		return nil, p.errorf(t, "unbalanced %q", t.Value)
	default:
		return nil, p.skipItem()
	}
}

// isFnStart recognises fn, const fn, async fn, unsafe fn, extern "C" fn.
func (p *Parser) isFnStart() bool {
	for i := 0; ; i++ {
		t := p.peekAt(i)
		if t == nil {
			return false
		}
		switch {
		case t.Is("fn"):
			return true
		case t.Is("const"), t.Is("async"), t.Is("unsafe"), t.Is("extern"), t.Type == token.String:
			continue
		default:
			return false
		}
	}
}

func (p *Parser) parseStruct(attrs []Attribute) (*Struct, error) {
	p.next() // struct
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	s := &Struct{Attrs: attrs, Name: name.Value, Span: p.span(name)}

	if s.Generics, err = p.parseGenerics(); err != nil {
		return nil, err
	}
	if err := p.skipWhere(); err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t == nil:
		return nil, p.errorf(nil, "unexpected end of input in struct %s", s.Name)
	case t.Is(";"):
		p.pos++
		s.Unit = true
	case t.Type == token.LParen:
		s.Tuple = true
		fields, err := p.parseTupleFields()
		if err != nil {
			return nil, err
		}
		s.Fields = fields
		if err := p.skipWhere(); err != nil {
			return nil, err
		}
		p.accept(";")
	case t.Type == token.LBrace:
		fields, err := p.parseNamedFields()
		if err != nil {
			return nil, err
		}
		s.Fields = fields
	default:
		return nil, p.errorf(t, "unexpected %q in struct %s", t.Value, s.Name)
	}
	return s, nil
}

func (p *Parser) parseNamedFields() ([]Field, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fields []Field
	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.pos++
			return fields, nil
		}
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		if _, err := p.parseVisibility(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectValue(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Attrs: attrs, Name: name.Value, Type: typ, Span: p.span(name)})

		t := p.peek()
		switch {
		case t == nil:
			return nil, p.errorf(nil, "unclosed field list")
		case t.Is(","):
			p.pos++
		case t.Type != token.RBrace:
			return nil, p.errorf(t, "expected ',' or '}', got %q", t.Value)
		}
	}
}

func (p *Parser) parseTupleFields() ([]Field, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var fields []Field
	for {
		if t := p.peek(); t != nil && t.Type == token.RParen {
			p.pos++
			return fields, nil
		}
		attrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		if _, err := p.parseVisibility(); err != nil {
			return nil, err
		}
		start := p.peek()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Attrs: attrs, Type: typ, Span: p.span(start)})

		t := p.peek()
		switch {
		case t == nil:
			return nil, p.errorf(nil, "unclosed tuple field list")
		case t.Is(","):
			p.pos++
		case t.Type != token.RParen:
			return nil, p.errorf(t, "expected ',' or ')', got %q", t.Value)
		}
	}
}

func (p *Parser) parseEnum(attrs []Attribute) (*Enum, error) {
	p.next() // enum
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	e := &Enum{Attrs: attrs, Name: name.Value, Span: p.span(name)}
	if e.Generics, err = p.parseGenerics(); err != nil {
		return nil, err
	}
	if err := p.skipWhere(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	for {
		if t := p.peek(); t != nil && t.Type == token.RBrace {
			p.pos++
			return e, nil
		}
		vattrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		vname, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		v := Variant{Attrs: vattrs, Name: vname.Value, Span: p.span(vname)}

		if t := p.peek(); t != nil {
			switch t.Type {
			case token.LParen:
				v.Shape = VariantTuple
				if v.Fields, err = p.parseTupleFields(); err != nil {
					return nil, err
				}
			case token.LBrace:
				v.Shape = VariantNamed
				if v.Fields, err = p.parseNamedFields(); err != nil {
					return nil, err
				}
			}
		}
		if p.accept("=") {
			disc := p.next()
			if disc == nil {
				return nil, p.errorf(nil, "missing discriminant for %s", v.Name)
			}
			v.Discriminant = disc.Value
			if disc.Is("-") {
				if n := p.next(); n != nil {
					v.Discriminant = "-" + n.Value
				}
			}
		}
		e.Variants = append(e.Variants, v)

		t := p.peek()
		switch {
		case t == nil:
			return nil, p.errorf(nil, "unclosed enum %s", e.Name)
		case t.Is(","):
			p.pos++
		case t.Type != token.RBrace:
			return nil, p.errorf(t, "expected ',' or '}', got %q", t.Value)
		}
	}
}

func (p *Parser) parseImpl(attrs []Attribute) (*Impl, error) {
	implTok := p.next() // impl
	impl := &Impl{Attrs: attrs, Span: p.span(implTok)}

	var err error
	if impl.Generics, err = p.parseGenerics(); err != nil {
		return nil, err
	}

	p.accept("!")
	first, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.accept("for") {
		impl.Trait = first
		if impl.Owner, err = p.parseType(); err != nil {
			return nil, err
		}
	} else {
		impl.Owner = first
	}
	if impl.Owner != nil && impl.Owner.Span.Line > 0 {
		impl.Span = impl.Owner.Span
	}
	if err := p.skipWhere(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t == nil {
			return nil, p.errorf(implTok, "unclosed impl block")
		}
		if t.Type == token.RBrace {
			p.pos++
			return impl, nil
		}
		mattrs, err := p.parseAttributes()
		if err != nil {
			return nil, err
		}
		public, err := p.parseVisibility()
		if err != nil {
			return nil, err
		}
		if p.isFnStart() {
			fn, err := p.parseFn(mattrs)
			if err != nil {
				return nil, err
			}
			fn.Public = public
			impl.Methods = append(impl.Methods, fn)
			continue
		}
		if err := p.skipItem(); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseFn(attrs []Attribute) (*Fn, error) {
	for !p.peek().Is("fn") {
		p.pos++
	}
	p.next() // fn
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	fn := &Fn{Attrs: attrs, Name: name.Value, Span: p.span(name)}
	if fn.Generics, err = p.parseGenerics(); err != nil {
		return nil, err
	}
	if err := p.parseParams(fn); err != nil {
		return nil, err
	}
	if p.accept("->") {
		if fn.Return, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if err := p.skipWhere(); err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t == nil:
		return nil, p.errorf(nil, "unexpected end of input in fn %s", fn.Name)
	case t.Is(";"):
		p.pos++
	case t.Type == token.LBrace:
		if _, err := p.skipGroup(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(t, "expected fn body, got %q", t.Value)
	}
	return fn, nil
}

func (p *Parser) parseParams(fn *Fn) error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}

	first := true
	for {
		t := p.peek()
		if t == nil {
			return p.errorf(nil, "unclosed parameter list of %s", fn.Name)
		}
		if t.Type == token.RParen {
			p.pos++
			return nil
		}
		if _, err := p.parseAttributes(); err != nil {
			return err
		}

		if first {
			recv, ok, err := p.parseReceiver()
			if err != nil {
				return err
			}
			if ok {
				fn.Receiver = recv
				first = false
				if !p.accept(",") && p.peek() != nil && p.peek().Type != token.RParen {
					return p.errorf(p.peek(), "expected ',' after receiver")
				}
				continue
			}
		}
		first = false

		p.accept("mut")
		start := p.peek()
		name := "_"
		if start != nil && start.Type == token.Ident {
			name = start.Value
			p.pos++
		} else if start != nil && start.Type.IsOpen() {
			// destructuring pattern
			if _, err := p.skipGroup(); err != nil {
				return err
			}
		}
		if _, err := p.expectValue(":"); err != nil {
			return err
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		fn.Params = append(fn.Params, Param{Name: name, Type: typ, Span: p.span(start)})

		t = p.peek()
		switch {
		case t == nil:
			return p.errorf(nil, "unclosed parameter list of %s", fn.Name)
		case t.Is(","):
			p.pos++
		case t.Type != token.RParen:
			return p.errorf(t, "expected ',' or ')', got %q", t.Value)
		}
	}
}

// parseReceiver recognises self, mut self, &self, &mut self, &'a self,
// &'a mut self and self: Type.
func (p *Parser) parseReceiver() (*Receiver, bool, error) {
	save := p.pos
	start := p.peek()
	recv := &Receiver{Span: p.span(start)}

	if p.accept("&") {
		recv.Ref = true
		if t := p.peek(); t != nil && t.Type == token.Lifetime {
			recv.Lifetime = t.Value
			p.pos++
		}
	}
	if p.accept("mut") {
		// "mut self" by value is still an owned receiver
		if recv.Ref {
			recv.Mut = true
		}
	}
	if !p.accept("self") {
		p.pos = save
		return nil, false, nil
	}
	if p.accept(":") {
		typ, err := p.parseType()
		if err != nil {
			return nil, false, err
		}
		recv.Ref = typ.Ref
		recv.Mut = typ.Mut
		recv.Lifetime = typ.Lifetime
	}
	return recv, true, nil
}

// parseGenerics parses <'a, T: Bound, const N: usize> if present.
func (p *Parser) parseGenerics() (Generics, error) {
	var g Generics
	if !p.accept("<") {
		return g, nil
	}
	depth := 1
	expectParam := true
	for depth > 0 {
		t := p.next()
		if t == nil {
			return g, p.errorf(nil, "unclosed generic parameter list")
		}
		switch {
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
		case t.Is(",") && depth == 1:
			expectParam = true
			continue
		case t.Type.IsOpen():
			p.pos--
			if _, err := p.skipGroup(); err != nil {
				return g, err
			}
		case expectParam && depth == 1 && t.Type == token.Lifetime:
			g.Lifetimes = append(g.Lifetimes, t.Value)
		case expectParam && depth == 1 && t.Is("const"):
			continue
		case expectParam && depth == 1 && t.Type == token.Ident:
			g.Types = append(g.Types, t.Value)
		}
		expectParam = false
	}
	return g, nil
}

// skipWhere skips a where clause up to the item body.
func (p *Parser) skipWhere() error {
	if !p.accept("where") {
		return nil
	}
	depth := 0
	for {
		t := p.peek()
		if t == nil {
			return p.errorf(nil, "unterminated where clause")
		}
		switch {
		case t.Is("<"):
			depth++
		case t.Is(">"):
			depth--
		case depth == 0 && (t.Type == token.LBrace || t.Is(";")):
			return nil
		case t.Type == token.LParen || t.Type == token.LBracket:
			if _, err := p.skipGroup(); err != nil {
				return err
			}
			continue
		}
		p.pos++
	}
}

// parseType parses a type expression.
func (p *Parser) parseType() (*TypeExpr, error) {
	start := p.peek()
	if start == nil {
		return nil, p.errorf(nil, "expected type")
	}
	te := &TypeExpr{Span: p.span(start)}

	switch {
	case start.Is("&"):
		p.pos++
		te.Ref = true
		if t := p.peek(); t != nil && t.Type == token.Lifetime {
			te.Lifetime = t.Value
			p.pos++
		}
		te.Mut = p.accept("mut")
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if inner.Ref || inner.RawPtr {
			return nil, errors.UnsupportedShape(te.Span, "only one level of reference is supported: %s", "&"+inner.String())
		}
		inner.Ref, inner.Mut, inner.Lifetime = true, te.Mut, te.Lifetime
		inner.Span = te.Span
		return inner, nil

	case start.Is("*"):
		p.pos++
		switch {
		case p.accept("const"):
		case p.accept("mut"):
			te.Mut = true
		default:
			return nil, p.errorf(p.peek(), "expected const or mut after *")
		}
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		inner.RawPtr, inner.Mut = true, te.Mut
		inner.Span = te.Span
		return inner, nil

	case start.Type == token.LParen:
		p.pos++
		te.Tuple = true
		for {
			t := p.peek()
			if t == nil {
				return nil, p.errorf(start, "unclosed tuple type")
			}
			if t.Type == token.RParen {
				p.pos++
				return te, nil
			}
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			te.Elems = append(te.Elems, elem)
			if !p.accept(",") {
				if _, err := p.expect(token.RParen); err != nil {
					return nil, err
				}
				return te, nil
			}
		}

	case start.Type == token.LBracket:
		p.pos++
		te.Array = true
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		te.Elems = []*TypeExpr{elem}
		for p.peek() != nil && p.peek().Type != token.RBracket {
			p.pos++
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		return te, nil

	case start.Is("dyn") || start.Is("impl"):
		p.pos++
		te.Dyn = true
	}

	p.accept("::")
	for {
		seg, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		te.Path = append(te.Path, seg.Value)
		if !p.accept("::") {
			break
		}
		// turbofish Vec::<T>
		if t := p.peek(); t != nil && t.Is("<") {
			break
		}
	}

	if p.accept("<") {
		for {
			t := p.peek()
			if t == nil {
				return nil, p.errorf(start, "unclosed generic arguments")
			}
			if t.Is(">") {
				p.pos++
				break
			}
			if t.Type == token.Lifetime {
				// lifetime arguments such as Foo<'a> carry no type information
				p.pos++
			} else {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				te.Args = append(te.Args, arg)
			}
			if !p.accept(",") {
				if _, err := p.expectValue(">"); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	// Fn(A, B) -> R sugar
	if t := p.peek(); t != nil && t.Type == token.LParen && isFnTrait(te.Name()) {
		if _, err := p.skipGroup(); err != nil {
			return nil, err
		}
		if p.accept("->") {
			if _, err := p.parseType(); err != nil {
				return nil, err
			}
		}
	}

	// trait object bounds: dyn A + Send + 'static
	for te.Dyn && p.accept("+") {
		if t := p.peek(); t != nil && t.Type == token.Lifetime {
			p.pos++
			continue
		}
		if _, err := p.parseType(); err != nil {
			return nil, err
		}
	}
	return te, nil
}

func isFnTrait(name string) bool {
	return name == "Fn" || name == "FnMut" || name == "FnOnce"
}

// String implements fmt.Stringer for debugging.
func (p *Parser) String() string {
	return fmt.Sprintf("Parser{%s at %d/%d}", p.file, p.pos, len(p.tokens))
}
