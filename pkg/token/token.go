package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	Number
	Int
	Void
	Return
	LParen
	RParen
	LBrace
	RBrace
	Semi
	Minus
	Dec
	Complement
	Not
	Plus
	Star
	Slash
	Rem
	Lt
	Lte
	Gt
	Gte
	EqEq
	Neq
	AndAnd
	OrOr
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"void":   Void,
	"return": Return,
}

var typeNames = map[Type]string{
	EOF:        "EOF",
	Ident:      "Ident",
	Number:     "Number",
	Int:        "int",
	Void:       "void",
	Return:     "return",
	LParen:     "(",
	RParen:     ")",
	LBrace:     "{",
	RBrace:     "}",
	Semi:       ";",
	Minus:      "-",
	Dec:        "--",
	Complement: "~",
	Not:        "!",
	Plus:       "+",
	Star:       "*",
	Slash:      "/",
	Rem:        "%",
	Lt:         "<",
	Lte:        "<=",
	Gt:         ">",
	Gte:        ">=",
	EqEq:       "==",
	Neq:        "!=",
	AndAnd:     "&&",
	OrOr:       "||",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Token is one lexeme. Line is 1-based, Column is 0-based and resets on
// every newline.
type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Len    int
}

func (t Token) String() string {
	switch t.Type {
	case Ident, Number:
		return fmt.Sprintf("%s(%s)", typeNames[t.Type], t.Value)
	case EOF:
		return "EOF"
	}
	return fmt.Sprintf("'%s'", t.Type)
}
