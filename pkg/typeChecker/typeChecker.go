package typeChecker

import (
	"fmt"

	"github.com/xplshn/kcc/pkg/ast"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
	"github.com/xplshn/kcc/pkg/util"
)

type Error struct {
	Msg string
	Tok token.Token
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column+1, e.Msg) }

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

type Symbol struct {
	Name   string
	Type   ast.Type
	IsFunc bool
	Next   *Symbol
}

type Scope struct {
	Symbols *Symbol
	Parent  *Scope
}

func (s *Scope) lookup(name string) *Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		for sym := scope.Symbols; sym != nil; sym = sym.Next {
			if sym.Name == name {
				return sym
			}
		}
	}
	return nil
}

func (s *Scope) add(sym *Symbol) {
	sym.Next = s.Symbols
	s.Symbols = sym
}

type TypeChecker struct {
	cfg          *config.Config
	globalScope  *Scope
	currentScope *Scope
	currentFunc  *ast.FunctionDefinition
	info         *ast.TypeInfo
	errors       ErrorList
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	global := &Scope{}
	return &TypeChecker{cfg: cfg, globalScope: global, currentScope: global}
}

// Check resolves every expression of prog to a type. The grammar has no
// declarations, so any variable reference is undeclared.
func (tc *TypeChecker) Check(prog *ast.Program) (*ast.TypeInfo, error) {
	tc.info = ast.NewTypeInfo()
	for _, fn := range prog.Functions {
		if sym := tc.globalScope.lookup(fn.Name); sym != nil {
			tc.errorf(fn.Tok, "Redefinition of function '%s'", fn.Name)
			continue
		}
		tc.globalScope.add(&Symbol{Name: fn.Name, Type: fn.ReturnType, IsFunc: true})
	}
	for _, fn := range prog.Functions {
		tc.checkFunction(fn)
	}
	if len(tc.errors) > 0 {
		return nil, tc.errors
	}
	return tc.info, nil
}

func (tc *TypeChecker) errorf(tok token.Token, format string, args ...any) {
	tc.errors = append(tc.errors, &Error{Msg: fmt.Sprintf(format, args...), Tok: tok})
}

func (tc *TypeChecker) checkFunction(fn *ast.FunctionDefinition) {
	tc.currentFunc = fn
	tc.currentScope = &Scope{Parent: tc.globalScope}
	defer func() { tc.currentScope, tc.currentFunc = tc.globalScope, nil }()

	if fn.Body == nil {
		return
	}
	for _, stmt := range fn.Body.Stmts {
		tc.checkStmt(stmt)
	}
}

func (tc *TypeChecker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		if s.Expr == nil {
			if tc.currentFunc.ReturnType != ast.TypeVoid {
				util.Warn(tc.cfg, config.WarnReturnType, s.Tok, "'return' with no value in function '%s' returning 'int'", tc.currentFunc.Name)
			}
			return
		}
		tc.checkExpr(s.Expr)
		if tc.currentFunc.ReturnType == ast.TypeVoid {
			util.Warn(tc.cfg, config.WarnReturnType, s.Tok, "'return' with a value in function '%s' returning 'void'", tc.currentFunc.Name)
		}
	case *ast.ExprStmt:
		tc.checkExpr(s.Expr)
	case *ast.NullStmt:
	}
}

func (tc *TypeChecker) checkExpr(expr ast.Expr) ast.Type {
	var typ ast.Type
	switch e := expr.(type) {
	case *ast.IntLiteral:
		typ = ast.TypeInt
	case *ast.Var:
		sym := tc.currentScope.lookup(e.Name)
		switch {
		case sym == nil:
			tc.errorf(e.Tok, "Undeclared identifier '%s'", e.Name)
		case sym.IsFunc:
			tc.errorf(e.Tok, "Function '%s' used as a value", e.Name)
		default:
			typ = sym.Type
		}
	case *ast.UnaryExpr:
		tc.operand(e.Operand, e.Op.String())
		typ = ast.TypeInt
	case *ast.BinaryExpr:
		tc.operand(e.Left, e.Op.String())
		tc.operand(e.Right, e.Op.String())
		typ = ast.TypeInt
	}
	tc.info.Types[expr] = typ
	return typ
}

func (tc *TypeChecker) operand(expr ast.Expr, op string) {
	if tc.checkExpr(expr) == ast.TypeVoid {
		tc.errorf(expr.Token(), "Invalid operand of type 'void' to '%s'", op)
	}
}
