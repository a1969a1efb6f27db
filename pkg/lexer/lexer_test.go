package lexer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
)

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Type
	}{
		{"return", "int main(void) { return 2; }", []token.Type{
			token.Int, token.Ident, token.LParen, token.Void, token.RParen,
			token.LBrace, token.Return, token.Number, token.Semi, token.RBrace, token.EOF,
		}},
		{"unary", "-~!--", []token.Type{token.Minus, token.Complement, token.Not, token.Dec, token.EOF}},
		{"arith", "+ * / %", []token.Type{token.Plus, token.Star, token.Slash, token.Rem, token.EOF}},
		{"relational", "< <= > >= == !=", []token.Type{
			token.Lt, token.Lte, token.Gt, token.Gte, token.EqEq, token.Neq, token.EOF,
		}},
		{"logical", "a&&b||c", []token.Type{
			token.Ident, token.AndAnd, token.Ident, token.OrOr, token.Ident, token.EOF,
		}},
		{"comments", "// line\n/* block\n */ return", []token.Type{token.Return, token.EOF}},
		{"keyword prefix", "returned int_ void1", []token.Type{token.Ident, token.Ident, token.Ident, token.EOF}},
		{"empty", "", []token.Type{token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize([]rune(tt.src), config.NewConfig())
			if err != nil {
				t.Fatalf("Tokenize: %v", err)
			}
			if diff := cmp.Diff(tt.want, types(toks)); diff != "" {
				t.Errorf("token types mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPositions(t *testing.T) {
	toks, err := Tokenize([]rune("int\n  main 42"), config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Token{
		{Type: token.Int, Line: 1, Column: 0, Len: 3},
		{Type: token.Ident, Value: "main", Line: 2, Column: 2, Len: 4},
		{Type: token.Number, Value: "42", Line: 2, Column: 7, Len: 2},
		{Type: token.EOF, Line: 2, Column: 9},
	}
	if diff := cmp.Diff(want, toks); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsContinue(t *testing.T) {
	toks, err := Tokenize([]rune("return 123abc @ 7;"), config.NewConfig())
	var list ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("expected ErrorList, got %v", err)
	}
	want := ErrorList{
		{Line: 1, Column: 7, Char: 'a'},
		{Line: 1, Column: 14, Char: '@'},
	}
	if diff := cmp.Diff(want, list, cmpopts.IgnoreFields(Error{}, "Msg")); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]token.Type{token.Return, token.Number, token.Semi, token.EOF}, types(toks)); diff != "" {
		t.Errorf("scanning did not continue (-want +got):\n%s", diff)
	}
}

func TestCommentsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatComments, false)
	toks, err := Tokenize([]rune("1 // 2"), cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Type{token.Number, token.Slash, token.Slash, token.Number, token.EOF}
	if diff := cmp.Diff(want, types(toks)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestSingleCharOperatorsRejected(t *testing.T) {
	for _, src := range []string{"=", "&", "|"} {
		if _, err := Tokenize([]rune(src), nil); err == nil {
			t.Errorf("Tokenize(%q): expected error", src)
		}
	}
}

func TestDump(t *testing.T) {
	toks, _ := Tokenize([]rune("return x;"), nil)
	want := "1:0 'return'\n1:7 Ident(x)\n1:8 ';'\n1:9 EOF\n"
	if got := Dump(toks); got != want {
		t.Errorf("Dump = %q, want %q", got, want)
	}
}
