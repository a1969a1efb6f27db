// Package ast defines the syntax tree produced by the parser.
package ast

import (
	"fmt"

	"github.com/xplshn/kcc/pkg/token"
)

type Type int

const (
	TypeInt Type = iota
	TypeVoid
)

func (t Type) String() string {
	if t == TypeVoid {
		return "void"
	}
	return "int"
}

type Program struct {
	Functions []*FunctionDefinition
}

// FunctionDefinition takes no parameters; "(void)" and "()" both mean none.
type FunctionDefinition struct {
	Name       string
	ReturnType Type
	Body       *Block
	Tok        token.Token
}

type Block struct {
	Stmts []Stmt
	Tok   token.Token
}

// Stmt is one of *ReturnStmt, *ExprStmt, *NullStmt.
type Stmt interface {
	isStmt()
	Token() token.Token
}

// ReturnStmt with a nil Expr is a bare "return;".
type ReturnStmt struct {
	Expr Expr
	Tok  token.Token
}

type ExprStmt struct {
	Expr Expr
	Tok  token.Token
}

type NullStmt struct{ Tok token.Token }

func (*ReturnStmt) isStmt() {}
func (*ExprStmt) isStmt()   {}
func (*NullStmt) isStmt()   {}

func (s *ReturnStmt) Token() token.Token { return s.Tok }
func (s *ExprStmt) Token() token.Token   { return s.Tok }
func (s *NullStmt) Token() token.Token   { return s.Tok }

// Expr is one of *IntLiteral, *Var, *UnaryExpr, *BinaryExpr.
type Expr interface {
	isExpr()
	Token() token.Token
}

type IntLiteral struct {
	Value int64
	Tok   token.Token
}

type Var struct {
	Name string
	Tok  token.Token
}

type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Tok     token.Token
}

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Tok   token.Token
}

func (*IntLiteral) isExpr() {}
func (*Var) isExpr()        {}
func (*UnaryExpr) isExpr()  {}
func (*BinaryExpr) isExpr() {}

func (e *IntLiteral) Token() token.Token { return e.Tok }
func (e *Var) Token() token.Token        { return e.Tok }
func (e *UnaryExpr) Token() token.Token  { return e.Tok }
func (e *BinaryExpr) Token() token.Token { return e.Tok }

type UnaryOp int

const (
	Negate UnaryOp = iota
	Complement
	Not
)

var unaryOpText = [...]string{Negate: "-", Complement: "~", Not: "!"}

func (op UnaryOp) String() string {
	if op >= 0 && int(op) < len(unaryOpText) {
		return unaryOpText[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Rem
	Less
	LessEq
	Greater
	GreaterEq
	Equal
	NotEqual
	And
	Or
)

var binaryOpText = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Rem: "%",
	Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">=",
	Equal: "==", NotEqual: "!=", And: "&&", Or: "||",
}

func (op BinaryOp) String() string {
	if op >= 0 && int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsShortCircuit reports whether op may skip evaluating its right operand.
func (op BinaryOp) IsShortCircuit() bool { return op == And || op == Or }

// TypeInfo maps expression nodes to the types a semantic pass resolved
// for them. Nodes are keyed by identity.
type TypeInfo struct {
	Types map[Expr]Type
}

func NewTypeInfo() *TypeInfo { return &TypeInfo{Types: make(map[Expr]Type)} }

// TypeOf returns the recorded type of e, defaulting to int.
func (ti *TypeInfo) TypeOf(e Expr) Type {
	if ti == nil {
		return TypeInt
	}
	if t, ok := ti.Types[e]; ok {
		return t
	}
	return TypeInt
}
