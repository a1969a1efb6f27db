package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/xplshn/kcc/pkg/ast"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
	"github.com/xplshn/kcc/pkg/util"
)

// Error is a syntax error at Tok.
type Error struct {
	Msg string
	Tok token.Token
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s (at %s)", e.Tok.Line, e.Tok.Column+1, e.Msg, e.Tok)
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

// bailout unwinds the current production after an error was recorded.
type bailout struct{}

type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
	errors   ErrorList
}

func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	p := &Parser{tokens: tokens, cfg: cfg}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

// Parse returns either a program or an ErrorList, never both.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	if len(p.tokens) == 0 || p.tokens[len(p.tokens)-1].Type != token.EOF {
		var last token.Token
		if len(p.tokens) > 0 {
			last = p.tokens[len(p.tokens)-1]
		}
		return nil, ErrorList{{Msg: "token stream does not end in EOF", Tok: last}}
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			prog, err = nil, p.errors
		}
	}()

	fn := p.parseFunction()
	if !p.check(token.EOF) {
		p.fail("Extra unprocessed token")
	}
	return &ast.Program{Functions: []*ast.FunctionDefinition{fn}}, nil
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool { return p.current.Type == tokType }

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	tok := p.current
	if !p.match(tokType) {
		p.fail("%s", message)
	}
	return tok
}

func (p *Parser) fail(format string, args ...any) {
	p.errors = append(p.errors, &Error{Msg: fmt.Sprintf(format, args...), Tok: p.current})
	panic(bailout{})
}

func (p *Parser) parseType() ast.Type {
	switch {
	case p.match(token.Int):
		return ast.TypeInt
	case p.match(token.Void):
		return ast.TypeVoid
	}
	p.fail("Expected a type name")
	return ast.TypeInt
}

func (p *Parser) parseFunction() *ast.FunctionDefinition {
	retType := p.parseType()
	nameTok := p.expect(token.Ident, "Expected function name")
	p.expect(token.LParen, "Expected '(' after function name")
	p.match(token.Void)
	p.expect(token.RParen, "Expected ')' after parameter list")
	body := p.parseBlock()
	return &ast.FunctionDefinition{Name: nameTok.Value, ReturnType: retType, Body: body, Tok: nameTok}
}

func (p *Parser) parseBlock() *ast.Block {
	tok := p.expect(token.LBrace, "Expected '{' to open function body")
	block := &ast.Block{Tok: tok}
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			p.fail("Expected '}' to close function body")
		}
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	p.advance()
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	tok := p.current
	if p.match(token.Return) {
		if p.match(token.Semi) {
			return &ast.ReturnStmt{Tok: tok}
		}
		expr := p.parseExpr(0)
		p.expect(token.Semi, "Expected ';' after return value")
		return &ast.ReturnStmt{Expr: expr, Tok: tok}
	}

	if !p.cfg.IsFeatureEnabled(config.FeatExprStmt) {
		p.fail("Expected 'return' statement")
	}
	if p.match(token.Semi) {
		return &ast.NullStmt{Tok: tok}
	}
	expr := p.parseExpr(0)
	p.expect(token.Semi, "Expected ';' after expression")
	return &ast.ExprStmt{Expr: expr, Tok: tok}
}

var binaryOps = map[token.Type]struct {
	op   ast.BinaryOp
	prec int
}{
	token.Star:   {ast.Mul, 50},
	token.Slash:  {ast.Div, 50},
	token.Rem:    {ast.Rem, 50},
	token.Plus:   {ast.Add, 45},
	token.Minus:  {ast.Sub, 45},
	token.Lt:     {ast.Less, 35},
	token.Lte:    {ast.LessEq, 35},
	token.Gt:     {ast.Greater, 35},
	token.Gte:    {ast.GreaterEq, 35},
	token.EqEq:   {ast.Equal, 30},
	token.Neq:    {ast.NotEqual, 30},
	token.AndAnd: {ast.And, 10},
	token.OrOr:   {ast.Or, 5},
}

// Precedence returns the binding power of a binary operator token, or -1.
func Precedence(t token.Type) int {
	if b, ok := binaryOps[t]; ok {
		return b.prec
	}
	return -1
}

// parseExpr is precedence climbing: the right operand is parsed one level
// tighter so operators of equal precedence associate to the left.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseFactor()
	for {
		b, ok := binaryOps[p.current.Type]
		if !ok || b.prec < minPrec {
			return left
		}
		tok := p.current
		p.advance()
		right := p.parseExpr(b.prec + 1)
		left = &ast.BinaryExpr{Op: b.op, Left: left, Right: right, Tok: tok}
	}
}

func (p *Parser) parseFactor() ast.Expr {
	tok := p.current
	switch {
	case p.match(token.Number):
		return p.intLiteral(tok)
	case p.match(token.Ident):
		return &ast.Var{Name: tok.Value, Tok: tok}
	case p.match(token.LParen):
		expr := p.parseExpr(0)
		p.expect(token.RParen, "Expected ')' after expression")
		return expr
	case p.match(token.Minus):
		return &ast.UnaryExpr{Op: ast.Negate, Operand: p.parseFactor(), Tok: tok}
	case p.match(token.Complement):
		return &ast.UnaryExpr{Op: ast.Complement, Operand: p.parseFactor(), Tok: tok}
	case p.match(token.Not):
		return &ast.UnaryExpr{Op: ast.Not, Operand: p.parseFactor(), Tok: tok}
	case p.check(token.Dec):
		p.fail("Decrement operator '--' requires an lvalue")
	}
	p.fail("Expected an expression")
	return nil
}

func (p *Parser) intLiteral(tok token.Token) ast.Expr {
	val, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		p.errors = append(p.errors, &Error{Msg: fmt.Sprintf("Integer constant '%s' is too large", tok.Value), Tok: tok})
		panic(bailout{})
	}
	if val > math.MaxInt32 {
		util.Warn(p.cfg, config.WarnOverflow, tok, "Integer constant '%s' does not fit in 'int' and is truncated to %d", tok.Value, int32(val))
	}
	return &ast.IntLiteral{Value: val, Tok: tok}
}
