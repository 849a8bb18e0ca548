package datamodel

import (
	"strconv"
	"strings"
)

// Parser is a recursive-descent parser over a pre-lexed token stream,
// generalizing the teacher's parser.go type-switch walk (there over a
// pg_query AST, here over datamodel tokens) into a hand-rolled grammar
// for the bracket/attribute-driven data-model language of spec §6.1.
type Parser struct {
	toks []Token
	pos  int
	diag Diagnostics
}

// Parse lexes and parses src into a Document plus any diagnostics found.
// Parsing never aborts on the first bad token: recoverable constructs
// (a malformed field, an unknown top-level keyword) are skipped to the
// next recognizable boundary so the caller sees every error in one pass.
func Parse(src string) (*Document, *Diagnostics) {
	toks := NewLexer(src).Tokens()
	// The grammar walk below only ever sees significant tokens; comments
	// and blank lines are re-attached afterward by position, from the
	// same raw token stream, so one lex pass serves both needs.
	p := &Parser{toks: filterSignificant(toks)}
	doc := p.parseDocument()
	attachComments(doc, toks)
	return doc, &p.diag
}

// attachComments re-associates the comments and blank lines dropped from
// the grammar's token stream with the items, fields, and enum values they
// belong to, by source line: a comment on a line with no prior content is
// leading (attached to whatever starts the next non-blank line), a
// comment following content on the same line is trailing, and the number
// of empty lines immediately above a node's anchor line (its first
// leading comment, if any, else its own line) becomes its
// BlankLinesBefore. Comments left over after the last item become the
// document's trailing comments.
func attachComments(doc *Document, raw []Token) {
	lineHasContent := map[int]bool{}
	lineSeen := map[int]bool{}
	leadingByLine := map[int][]Comment{}
	trailingByLine := map[int]Comment{}
	var pending []Comment

	for _, t := range raw {
		if t.Kind == TokEOF || t.Kind == TokNewline {
			continue
		}
		line := t.Span.Line
		lineSeen[line] = true
		if t.Kind == TokLineComment || t.Kind == TokDocComment {
			c := Comment{Text: t.Text, Doc: t.Kind == TokDocComment, Span: t.Span}
			if lineHasContent[line] {
				c.Trailing = true
				trailingByLine[line] = c
			} else {
				pending = append(pending, c)
			}
			continue
		}
		if !lineHasContent[line] {
			lineHasContent[line] = true
			if len(pending) > 0 {
				leadingByLine[line] = append(leadingByLine[line], pending...)
				pending = nil
			}
		}
	}
	doc.TrailingComments = pending

	blanksBefore := func(anchor int) int {
		n := 0
		for l := anchor - 1; l >= 1 && !lineSeen[l]; l-- {
			n++
		}
		return n
	}
	anchorLine := func(leading []Comment, fallback int) int {
		if len(leading) > 0 {
			return leading[0].Span.Line
		}
		return fallback
	}

	for i := range doc.Items {
		it := &doc.Items[i]
		it.Leading = leadingByLine[it.Span.Line]
		it.BlankLinesBefore = blanksBefore(anchorLine(it.Leading, it.Span.Line))

		for j := range it.Fields {
			f := &it.Fields[j]
			f.Leading = leadingByLine[f.Span.Line]
			f.BlankLinesBefore = blanksBefore(anchorLine(f.Leading, f.Span.Line))
			if tc, ok := trailingByLine[f.Span.Line]; ok {
				tcCopy := tc
				f.Trailing = &tcCopy
			}
		}
		for j := range it.EnumValues {
			ev := &it.EnumValues[j]
			ev.Leading = leadingByLine[ev.Span.Line]
			if tc, ok := trailingByLine[ev.Span.Line]; ok {
				tcCopy := tc
				ev.Trailing = &tcCopy
			}
		}
		for k := range it.Attributes {
			a := &it.Attributes[k]
			if tc, ok := trailingByLine[a.Span.Line]; ok {
				a.TrailingComment = tc.Text
			}
		}
	}
}

func filterSignificant(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == TokNewline || t.Kind == TokLineComment || t.Kind == TokDocComment {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) at(k TokenKind) bool { return p.peek().Kind == k }

func (p *Parser) atKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == TokIdent && t.Text == kw
}

func (p *Parser) expect(k TokenKind, what string) (Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.diag.Add(ErrUnexpectedToken, p.peek().Span, "expected %s, found %q", what, p.peek().Text)
	return Token{}, false
}

// skipToTopLevelBoundary recovers from a malformed item by skipping
// tokens until the next top-level keyword or closing brace, so one bad
// declaration doesn't cascade into spurious errors for the rest of the
// file.
func (p *Parser) skipToTopLevelBoundary() {
	depth := 0
	for !p.at(TokEOF) {
		switch p.peek().Kind {
		case TokLBrace:
			depth++
		case TokRBrace:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		}
		if depth == 0 && p.at(TokIdent) {
			switch p.peek().Text {
			case "datasource", "generator", "model", "view", "enum", "type":
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseDocument() *Document {
	doc := &Document{}
	for !p.at(TokEOF) {
		item, ok := p.parseItem()
		if ok {
			doc.Items = append(doc.Items, item)
		} else {
			p.skipToTopLevelBoundary()
		}
	}
	return doc
}

func (p *Parser) parseItem() (Item, bool) {
	kwTok := p.peek()
	if kwTok.Kind != TokIdent {
		p.diag.Add(ErrUnexpectedToken, kwTok.Span, "expected a top-level declaration, found %q", kwTok.Text)
		p.advance()
		return Item{}, false
	}

	var kind ItemKind
	switch kwTok.Text {
	case "datasource":
		kind = ItemDatasource
	case "generator":
		kind = ItemGenerator
	case "model":
		kind = ItemModel
	case "view":
		kind = ItemView
	case "enum":
		kind = ItemEnum
	case "type":
		kind = ItemTypeAlias
	default:
		p.diag.Add(ErrUnexpectedToken, kwTok.Span, "unknown top-level keyword %q", kwTok.Text)
		return Item{}, false
	}
	p.advance()

	nameTok, ok := p.expect(TokIdent, "an identifier")
	if !ok {
		return Item{}, false
	}
	item := Item{Kind: kind, Name: nameTok.Text, Span: Span{Start: kwTok.Span.Start, Line: kwTok.Span.Line}}

	if kind == ItemTypeAlias {
		if _, ok := p.expect(TokEquals, "'='"); !ok {
			return Item{}, false
		}
		alias := p.parseTypeRef()
		item.AliasOf = alias
		item.Span.End = alias.Span.End
		return item, true
	}

	if _, ok := p.expect(TokLBrace, "'{'"); !ok {
		return Item{}, false
	}

	for !p.at(TokRBrace) && !p.at(TokEOF) {
		switch kind {
		case ItemDatasource, ItemGenerator:
			prop, ok := p.parseProperty()
			if !ok {
				p.advanceUntilAny(TokIdent, TokRBrace)
				continue
			}
			item.Properties = append(item.Properties, prop)
		case ItemEnum:
			if p.at(TokAtAt) {
				attr, ok := p.parseAttribute(true)
				if ok {
					item.Attributes = append(item.Attributes, attr)
				}
				continue
			}
			ev, ok := p.parseEnumValue()
			if !ok {
				p.advance()
				continue
			}
			item.EnumValues = append(item.EnumValues, ev)
		default: // model, view, composite type
			if p.at(TokAtAt) {
				attr, ok := p.parseAttribute(true)
				if ok {
					item.Attributes = append(item.Attributes, attr)
				}
				continue
			}
			field, ok := p.parseField()
			if !ok {
				p.advance()
				continue
			}
			item.Fields = append(item.Fields, field)
		}
	}

	closeTok, _ := p.expect(TokRBrace, "'}'")
	item.Span.End = closeTok.Span.End
	return item, true
}

func (p *Parser) advanceUntilAny(kinds ...TokenKind) {
	for !p.at(TokEOF) {
		cur := p.peek().Kind
		for _, k := range kinds {
			if cur == k {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseProperty() (Property, bool) {
	nameTok, ok := p.expect(TokIdent, "a property name")
	if !ok {
		return Property{}, false
	}
	if _, ok := p.expect(TokEquals, "'='"); !ok {
		return Property{}, false
	}
	valTok := p.advance()
	return Property{Name: nameTok.Text, Value: p.renderArgValue(valTok), Span: Span{Start: nameTok.Span.Start, End: valTok.Span.End, Line: nameTok.Span.Line}}, true
}

func (p *Parser) parseEnumValue() (EnumValue, bool) {
	nameTok, ok := p.expect(TokIdent, "an enum value")
	if !ok {
		return EnumValue{}, false
	}
	ev := EnumValue{Name: nameTok.Text, Span: nameTok.Span}
	for p.at(TokAt) {
		attr, ok := p.parseAttribute(false)
		if ok {
			ev.Attributes = append(ev.Attributes, attr)
		}
	}
	return ev, true
}

func (p *Parser) parseField() (Field, bool) {
	nameTok, ok := p.expect(TokIdent, "a field name")
	if !ok {
		return Field{}, false
	}
	typeRef := p.parseTypeRef()
	field := Field{Name: nameTok.Text, Type: typeRef, Arity: ArityRequired, Span: Span{Start: nameTok.Span.Start, End: typeRef.Span.End, Line: nameTok.Span.Line}}

	if p.at(TokQuestion) {
		p.advance()
		field.Arity = ArityOptional
	} else if p.at(TokLBracket) {
		p.advance()
		if _, ok := p.expect(TokRBracket, "']'"); !ok {
			return Field{}, false
		}
		field.Arity = ArityList
	}

	for p.at(TokAt) {
		attr, ok := p.parseAttribute(false)
		if ok {
			field.Attributes = append(field.Attributes, attr)
			field.Span.End = attr.Span.End
		}
	}
	return field, true
}

func (p *Parser) parseTypeRef() TypeRef {
	tok, ok := p.expect(TokIdent, "a type name")
	if !ok {
		return TypeRef{Kind: TypeUnsupported, Span: tok.Span}
	}
	if tok.Text == "Unsupported" && p.at(TokLParen) {
		p.advance()
		strTok := p.advance()
		p.expect(TokRParen, "')'")
		return TypeRef{Name: strTok.Text, Kind: TypeUnsupported, Span: Span{Start: tok.Span.Start, End: strTok.Span.End, Line: tok.Span.Line}}
	}
	kind := TypeScalar
	if !isBuiltinScalar(tok.Text) {
		kind = TypeReference
	}
	return TypeRef{Name: tok.Text, Kind: kind, Span: tok.Span}
}

func isBuiltinScalar(name string) bool {
	switch name {
	case "String", "Boolean", "Int", "BigInt", "Float", "Decimal", "DateTime", "Json", "Bytes":
		return true
	}
	return false
}

func (p *Parser) parseAttribute(block bool) (Attribute, bool) {
	startTok := p.advance() // consume @ or @@
	nameTok, ok := p.expect(TokIdent, "an attribute name")
	if !ok {
		return Attribute{}, false
	}
	attr := Attribute{Name: nameTok.Text, Block: block, Span: Span{Start: startTok.Span.Start, End: nameTok.Span.End, Line: startTok.Span.Line}}

	if p.at(TokLParen) {
		p.advance()
		for !p.at(TokRParen) && !p.at(TokEOF) {
			arg, ok := p.parseArg()
			if ok {
				attr.Args = append(attr.Args, arg)
			}
			if p.at(TokComma) {
				p.advance()
				continue
			}
			break
		}
		closeTok, _ := p.expect(TokRParen, "')'")
		attr.Span.End = closeTok.Span.End
	}
	return attr, true
}

func (p *Parser) parseArg() (Arg, bool) {
	start := p.peek()
	name := ""
	// Named arg: `ident ':' value`. Lookahead by checking the token after
	// the identifier without consuming if it isn't a colon.
	if p.at(TokIdent) && p.peekAt(1).Kind == TokColon {
		name = p.advance().Text
		p.advance() // ':'
	}
	valTok := p.advance()
	value := p.renderArgValue(valTok)
	return Arg{Name: name, Value: value, Span: Span{Start: start.Span.Start, End: valTok.Span.End, Line: start.Span.Line}}, true
}

// renderArgValue reconstructs a textual argument value, descending into
// bracketed lists (`[a, b]`) and parenthesized call-like values
// (`now()`, `autoincrement()`, `dbgenerated("...")`) so the reformatter
// can later re-emit them verbatim and the calculator can match on the
// rendered text.
func (p *Parser) renderArgValue(first Token) string {
	switch first.Kind {
	case TokString:
		return strconv.Quote(first.Text)
	case TokLBracket:
		var parts []string
		for !p.at(TokRBracket) && !p.at(TokEOF) {
			t := p.advance()
			if t.Kind == TokComma {
				continue
			}
			parts = append(parts, t.Text)
		}
		p.expect(TokRBracket, "']'")
		return "[" + strings.Join(parts, ", ") + "]"
	case TokIdent:
		if p.at(TokLParen) {
			p.advance()
			var parts []string
			for !p.at(TokRParen) && !p.at(TokEOF) {
				t := p.advance()
				if t.Kind == TokComma {
					continue
				}
				parts = append(parts, p.renderArgValue(t))
			}
			p.expect(TokRParen, "')'")
			return first.Text + "(" + strings.Join(parts, ", ") + ")"
		}
		return first.Text
	default:
		return first.Text
	}
}

func (p *Parser) peekAt(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[idx]
}
