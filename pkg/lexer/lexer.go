package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
)

// Error is a single lexical error.
type Error struct {
	Msg    string
	Line   int
	Column int
	Char   rune
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Line, e.Column+1, e.Msg) }

// Tok returns a token spanning the offending character for diagnostics.
func (e *Error) Tok() token.Token {
	return token.Token{Type: token.EOF, Line: e.Line, Column: e.Column, Len: 1}
}

type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
	cfg    *config.Config
	errors ErrorList
}

func NewLexer(source []rune, cfg *config.Config) *Lexer {
	return &Lexer{source: source, line: 1, cfg: cfg}
}

// Tokenize scans all of source. The returned slice always ends in
// token.EOF; when err is non-nil it is an ErrorList and the tokens must
// not be parsed.
func Tokenize(source []rune, cfg *config.Config) ([]token.Token, error) {
	l := NewLexer(source, cfg)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(l.errors) > 0 {
		return toks, l.errors
	}
	return toks, nil
}

func (l *Lexer) Next() token.Token {
	for {
		l.skipWhitespaceAndComments()
		startPos, startCol, startLine := l.pos, l.column, l.line
		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine)
		}

		ch := l.peek()
		if unicode.IsLetter(ch) || ch == '_' {
			return l.identifierOrKeyword(startPos, startCol, startLine)
		}
		if isDigit(ch) {
			if tok, ok := l.number(startPos, startCol, startLine); ok {
				return tok
			}
			continue
		}

		l.advance()
		switch ch {
		case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
		case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
		case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
		case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
		case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
		case '~': return l.makeToken(token.Complement, "", startPos, startCol, startLine)
		case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine)
		case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine)
		case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine)
		case '%': return l.makeToken(token.Rem, "", startPos, startCol, startLine)
		case '-': return l.matchThen('-', token.Dec, token.Minus, startPos, startCol, startLine)
		case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
		case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
		case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
		case '=':
			if l.match('=') {
				return l.makeToken(token.EqEq, "", startPos, startCol, startLine)
			}
		case '&':
			if l.match('&') {
				return l.makeToken(token.AndAnd, "", startPos, startCol, startLine)
			}
		case '|':
			if l.match('|') {
				return l.makeToken(token.OrOr, "", startPos, startCol, startLine)
			}
		}
		l.errorAt(startLine, startCol, ch, "Unexpected character: '%c'", ch)
	}
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isWordChar(ch rune) bool { return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' }

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{Type: tokType, Value: value, Line: startLine, Column: startCol, Len: l.pos - startPos}
}

func (l *Lexer) matchThen(expected rune, then, otherwise token.Type, startPos, startCol, startLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(then, "", startPos, startCol, startLine)
	}
	return l.makeToken(otherwise, "", startPos, startCol, startLine)
}

func (l *Lexer) errorAt(line, col int, ch rune, format string, args ...any) {
	l.errors = append(l.errors, &Error{Msg: fmt.Sprintf(format, args...), Line: line, Column: col, Char: ch})
}

func (l *Lexer) skipWhitespaceAndComments() {
	comments := l.cfg == nil || l.cfg.IsFeatureEnabled(config.FeatComments)
	for !l.isAtEnd() {
		switch ch := l.peek(); {
		case unicode.IsSpace(ch):
			l.advance()
		case comments && ch == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case comments && ch == '/' && l.peekNext() == '*':
			l.blockComment()
		default:
			return
		}
	}
}

func (l *Lexer) blockComment() {
	line, col := l.line, l.column
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.errorAt(line, col, '/', "Unterminated block comment")
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isWordChar(l.peek()) {
		l.advance()
	}
	word := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[word]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, word, startPos, startCol, startLine)
}

// number scans a decimal constant. A digit run glued to word characters
// ("123abc") is one error and the whole word is consumed.
func (l *Lexer) number(startPos, startCol, startLine int) (token.Token, bool) {
	for isDigit(l.peek()) {
		l.advance()
	}
	if !isWordChar(l.peek()) {
		return l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine), true
	}
	bad := l.peek()
	for isWordChar(l.peek()) {
		l.advance()
	}
	word := string(l.source[startPos:l.pos])
	l.errorAt(startLine, startCol, bad, "Invalid number '%s': unexpected '%c' after digits", word, bad)
	return token.Token{}, false
}

// Dump renders tokens one per line in the --lex format.
func Dump(toks []token.Token) string {
	var sb strings.Builder
	for _, tok := range toks {
		fmt.Fprintf(&sb, "%d:%d %s\n", tok.Line, tok.Column, tok)
	}
	return sb.String()
}
