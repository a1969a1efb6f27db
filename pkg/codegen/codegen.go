package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/kcc/pkg/ast"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
	"github.com/xplshn/kcc/pkg/util"
)

// ErrInternal marks a node reaching a stage that cannot handle it. It
// always indicates a compiler bug.
var ErrInternal = errors.New("internal compiler error")

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// Context owns the naming counters of one compilation. Independent
// compilations need independent contexts.
type Context struct {
	tempCount  int
	labelCount int
	cfg        *config.Config
	types      *ast.TypeInfo
	insts      []ir.Instruction
}

func NewContext(cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Context{cfg: cfg}
}

// WithTypes makes the context check every expression against the types a
// checker resolved. Without it every expression is taken to be int.
func (ctx *Context) WithTypes(info *ast.TypeInfo) *Context {
	ctx.types = info
	return ctx
}

func (ctx *Context) newTemp() *ir.Var {
	name := fmt.Sprintf("tmp.%d", ctx.tempCount)
	ctx.tempCount++
	return &ir.Var{Name: name}
}

func (ctx *Context) newLabel(prefix string) string {
	name := fmt.Sprintf("%s.%d", prefix, ctx.labelCount)
	ctx.labelCount++
	return name
}

func (ctx *Context) emit(inst ir.Instruction) { ctx.insts = append(ctx.insts, inst) }

// GenerateIR lowers prog to IR. The tree is not modified.
func (ctx *Context) GenerateIR(prog *ast.Program) (*ir.Program, error) {
	if prog == nil || len(prog.Functions) != 1 {
		n := 0
		if prog != nil {
			n = len(prog.Functions)
		}
		return nil, internalf("expected exactly one function definition, got %d", n)
	}
	fn, err := ctx.genFunction(prog.Functions[0])
	if err != nil {
		return nil, err
	}
	return &ir.Program{Func: fn}, nil
}

func (ctx *Context) genFunction(fn *ast.FunctionDefinition) (*ir.Function, error) {
	ctx.insts = nil
	returned, warned := false, false
	if fn.Body != nil {
		for _, stmt := range fn.Body.Stmts {
			if returned && !warned {
				util.Warn(ctx.cfg, config.WarnUnreachableCode, stmt.Token(), "Unreachable code after 'return'")
				warned = true
			}
			if err := ctx.genStmt(stmt); err != nil {
				return nil, fmt.Errorf("in function '%s': %w", fn.Name, err)
			}
			if _, ok := stmt.(*ast.ReturnStmt); ok {
				returned = true
			}
		}
	}

	if n := len(ctx.insts); n == 0 || !isReturn(ctx.insts[n-1]) {
		if fn.ReturnType == ast.TypeInt && ctx.cfg.IsFeatureEnabled(config.FeatImplicitReturn) {
			ctx.emit(&ir.Return{Value: &ir.Const{Value: 0}})
		} else {
			ctx.emit(&ir.Return{})
		}
	}

	insts := ctx.insts
	ctx.insts = nil
	return &ir.Function{Name: fn.Name, Instructions: insts}, nil
}

func isReturn(inst ir.Instruction) bool {
	_, ok := inst.(*ir.Return)
	return ok
}

func (ctx *Context) genStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		if s.Expr == nil {
			ctx.emit(&ir.Return{})
			return nil
		}
		val, err := ctx.genExpr(s.Expr)
		if err != nil {
			return err
		}
		ctx.emit(&ir.Return{Value: val})
	case *ast.ExprStmt:
		_, err := ctx.genExpr(s.Expr)
		return err
	case *ast.NullStmt:
	default:
		return internalf("unhandled statement %T", stmt)
	}
	return nil
}

var unaryOps = map[ast.UnaryOp]ir.UnaryOp{
	ast.Negate:     ir.OpNegate,
	ast.Complement: ir.OpComplement,
	ast.Not:        ir.OpNot,
}

var binaryOps = map[ast.BinaryOp]ir.BinaryOp{
	ast.Add: ir.OpAdd, ast.Sub: ir.OpSub, ast.Mul: ir.OpMul, ast.Div: ir.OpDiv, ast.Rem: ir.OpRem,
	ast.Less: ir.OpLess, ast.LessEq: ir.OpLessEq, ast.Greater: ir.OpGreater, ast.GreaterEq: ir.OpGreaterEq,
	ast.Equal: ir.OpEqual, ast.NotEqual: ir.OpNotEqual,
}

func (ctx *Context) genExpr(expr ast.Expr) (ir.Value, error) {
	if t := ctx.types.TypeOf(expr); t != ast.TypeInt {
		return nil, internalf("expression of type %s used as a value", t)
	}
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return &ir.Const{Value: int32(e.Value)}, nil
	case *ast.Var:
		return &ir.Var{Name: e.Name}, nil
	case *ast.UnaryExpr:
		op, ok := unaryOps[e.Op]
		if !ok {
			return nil, internalf("unhandled unary operator %s", e.Op)
		}
		src, err := ctx.genExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		dst := ctx.newTemp()
		ctx.emit(&ir.Unary{Op: op, Src: src, Dst: dst})
		return dst, nil
	case *ast.BinaryExpr:
		switch e.Op {
		case ast.And:
			return ctx.genShortCircuit(e, "and_false", "and_end", 0)
		case ast.Or:
			return ctx.genShortCircuit(e, "or_true", "or_end", 1)
		}
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, internalf("unhandled binary operator %s", e.Op)
		}
		left, err := ctx.genExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := ctx.genExpr(e.Right)
		if err != nil {
			return nil, err
		}
		dst := ctx.newTemp()
		ctx.emit(&ir.Binary{Op: op, Src1: left, Src2: right, Dst: dst})
		return dst, nil
	}
	return nil, internalf("unhandled expression %T", expr)
}

// genShortCircuit lowers && (decided = 0) and || (decided = 1). The right
// operand is only evaluated when the left one does not decide the result.
func (ctx *Context) genShortCircuit(e *ast.BinaryExpr, shortPrefix, endPrefix string, decided int32) (ir.Value, error) {
	shortLabel := ctx.newLabel(shortPrefix)
	endLabel := ctx.newLabel(endPrefix)
	branch := func(cond ir.Value) ir.Instruction {
		if decided == 0 {
			return &ir.JumpIfZero{Cond: cond, Target: shortLabel}
		}
		return &ir.JumpIfNotZero{Cond: cond, Target: shortLabel}
	}

	left, err := ctx.genExpr(e.Left)
	if err != nil {
		return nil, err
	}
	ctx.emit(branch(left))
	right, err := ctx.genExpr(e.Right)
	if err != nil {
		return nil, err
	}
	ctx.emit(branch(right))

	dst := ctx.newTemp()
	ctx.emit(&ir.Copy{Src: &ir.Const{Value: 1 - decided}, Dst: dst})
	ctx.emit(&ir.Jump{Target: endLabel})
	ctx.emit(&ir.Label{Name: shortLabel})
	ctx.emit(&ir.Copy{Src: &ir.Const{Value: decided}, Dst: dst})
	ctx.emit(&ir.Label{Name: endLabel})
	return dst, nil
}
