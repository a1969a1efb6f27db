package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Format prints prog as C source that parses back to an equal tree.
// Binary expressions are always parenthesized; unary operands are
// parenthesized unless they are atoms, so "-(-1)" never prints as "--1".
func Format(prog *Program) string {
	var sb strings.Builder
	for i, fn := range prog.Functions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		formatFunction(&sb, fn)
	}
	return sb.String()
}

func formatFunction(sb *strings.Builder, fn *FunctionDefinition) {
	fmt.Fprintf(sb, "%s %s(void) {\n", fn.ReturnType, fn.Name)
	if fn.Body != nil {
		for _, stmt := range fn.Body.Stmts {
			sb.WriteString("    ")
			sb.WriteString(FormatStmt(stmt))
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
}

func FormatStmt(stmt Stmt) string {
	switch s := stmt.(type) {
	case *ReturnStmt:
		if s.Expr == nil {
			return "return;"
		}
		return "return " + FormatExpr(s.Expr) + ";"
	case *ExprStmt:
		return FormatExpr(s.Expr) + ";"
	case *NullStmt:
		return ";"
	}
	return fmt.Sprintf("/* unknown statement %T */", stmt)
}

func FormatExpr(expr Expr) string {
	switch e := expr.(type) {
	case *IntLiteral:
		return strconv.FormatInt(e.Value, 10)
	case *Var:
		return e.Name
	case *UnaryExpr:
		switch e.Operand.(type) {
		case *IntLiteral, *Var:
			return e.Op.String() + FormatExpr(e.Operand)
		}
		return e.Op.String() + "(" + FormatExpr(e.Operand) + ")"
	case *BinaryExpr:
		return "(" + FormatExpr(e.Left) + " " + e.Op.String() + " " + FormatExpr(e.Right) + ")"
	}
	return fmt.Sprintf("/* unknown expression %T */", expr)
}
