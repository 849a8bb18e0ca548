package datamodel

import "testing"

func kinds(toks []Token) []TokenKind {
	var out []TokenKind
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestLexer_Punctuation(t *testing.T) {
	toks := NewLexer("{}[]()=:,?|@@@").Tokens()
	want := []TokenKind{
		TokLBrace, TokRBrace, TokLBracket, TokRBracket, TokLParen, TokRParen,
		TokEquals, TokColon, TokComma, TokQuestion, TokPipe, TokAtAt, TokAt, TokEOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexer_Identifier(t *testing.T) {
	toks := NewLexer("model pg.VarChar").Tokens()
	if toks[0].Kind != TokIdent || toks[0].Text != "model" {
		t.Errorf("got %+v", toks[0])
	}
	if toks[1].Kind != TokIdent || toks[1].Text != "pg.VarChar" {
		t.Errorf("expected dotted native type name, got %+v", toks[1])
	}
}

func TestLexer_String(t *testing.T) {
	toks := NewLexer(`"hello world"`).Tokens()
	if toks[0].Kind != TokString || toks[0].Text != "hello world" {
		t.Errorf("got %+v", toks[0])
	}
}

func TestLexer_StringWithEscape(t *testing.T) {
	toks := NewLexer(`"a\"b"`).Tokens()
	if toks[0].Kind != TokString {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[0].Text != `a\"b` {
		t.Errorf("got %q", toks[0].Text)
	}
}

func TestLexer_Number(t *testing.T) {
	cases := []string{"42", "-7", "3.14"}
	for _, c := range cases {
		toks := NewLexer(c).Tokens()
		if toks[0].Kind != TokNumber || toks[0].Text != c {
			t.Errorf("NewLexer(%q) = %+v", c, toks[0])
		}
	}
}

func TestLexer_Comments(t *testing.T) {
	toks := NewLexer("// plain\n/// doc").Tokens()
	if toks[0].Kind != TokLineComment || toks[0].Text != "plain" {
		t.Errorf("got %+v", toks[0])
	}
	// toks[1] is the newline between the two comments.
	if toks[2].Kind != TokDocComment || toks[2].Text != "doc" {
		t.Errorf("got %+v", toks[2])
	}
}

func TestLexer_NewlineAdvancesLine(t *testing.T) {
	toks := NewLexer("a\nb").Tokens()
	if toks[0].Span.Line != 1 {
		t.Errorf("first ident line = %d, want 1", toks[0].Span.Line)
	}
	// toks[1] is the newline, toks[2] is "b"
	if toks[2].Span.Line != 2 {
		t.Errorf("second ident line = %d, want 2", toks[2].Span.Line)
	}
}

func TestLexer_EmptySourceYieldsOnlyEOF(t *testing.T) {
	toks := NewLexer("").Tokens()
	if len(toks) != 1 || toks[0].Kind != TokEOF {
		t.Errorf("got %+v", toks)
	}
}
