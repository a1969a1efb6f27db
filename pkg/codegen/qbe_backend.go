package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
)

type qbeBackend struct {
	out        *strings.Builder
	tempCount  int
	terminated bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }

var qbeBinaryOps = map[ir.BinaryOp]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div", ir.OpRem: "rem",
	ir.OpLess: "csltw", ir.OpLessEq: "cslew", ir.OpGreater: "csgtw", ir.OpGreaterEq: "csgew",
	ir.OpEqual: "ceqw", ir.OpNotEqual: "cnew",
}

// GenerateIR renders prog as QBE IL.
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	if prog == nil || prog.Func == nil {
		return "", internalf("no function to generate QBE IL for")
	}
	var sb strings.Builder
	b.out, b.tempCount, b.terminated = &sb, 0, false

	fmt.Fprintf(b.out, "export function w $%s() {\n@start\n", prog.Func.Name)
	for _, inst := range prog.Func.Instructions {
		if err := b.genInstruction(inst); err != nil {
			return "", fmt.Errorf("in function '%s': %w", prog.Func.Name, err)
		}
	}
	if !b.terminated {
		b.op("ret 0")
	}
	b.out.WriteString("}\n")
	return sb.String(), nil
}

func (b *qbeBackend) newTemp(prefix string) string {
	name := fmt.Sprintf("%s.qbe.%d", prefix, b.tempCount)
	b.tempCount++
	return name
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch v := v.(type) {
	case *ir.Const:
		return fmt.Sprintf("%d", v.Value)
	case *ir.Var:
		return "%" + v.Name
	}
	return "0"
}

// op writes one instruction, opening a fresh block first when the previous
// instruction was a jump or return.
func (b *qbeBackend) op(format string, args ...any) {
	if b.terminated {
		fmt.Fprintf(b.out, "@%s\n", b.newTemp("dead"))
		b.terminated = false
	}
	fmt.Fprintf(b.out, "\t"+format+"\n", args...)
}

func (b *qbeBackend) terminate(format string, args ...any) {
	b.op(format, args...)
	b.terminated = true
}

// cond returns a jnz operand; constants are copied into a temporary first.
func (b *qbeBackend) cond(v ir.Value) string {
	if c, ok := v.(*ir.Const); ok {
		tmp := "%" + b.newTemp("cond")
		b.op("%s =w copy %d", tmp, c.Value)
		return tmp
	}
	return b.formatValue(v)
}

func (b *qbeBackend) genInstruction(inst ir.Instruction) error {
	switch i := inst.(type) {
	case *ir.Return:
		if i.Value == nil {
			b.terminate("ret 0")
		} else {
			b.terminate("ret %s", b.formatValue(i.Value))
		}
	case *ir.Unary:
		src, dst := b.formatValue(i.Src), b.formatValue(i.Dst)
		switch i.Op {
		case ir.OpNegate:
			b.op("%s =w sub 0, %s", dst, src)
		case ir.OpComplement:
			b.op("%s =w xor %s, -1", dst, src)
		case ir.OpNot:
			b.op("%s =w ceqw %s, 0", dst, src)
		default:
			return internalf("unhandled unary operator %s", i.Op)
		}
	case *ir.Binary:
		name, ok := qbeBinaryOps[i.Op]
		if !ok {
			return internalf("binary operator %s has no QBE form", i.Op)
		}
		b.op("%s =w %s %s, %s", b.formatValue(i.Dst), name, b.formatValue(i.Src1), b.formatValue(i.Src2))
	case *ir.Copy:
		b.op("%s =w copy %s", b.formatValue(i.Dst), b.formatValue(i.Src))
	case *ir.Jump:
		b.terminate("jmp @%s", i.Target)
	case *ir.JumpIfZero:
		c, fall := b.cond(i.Cond), b.newTemp("fall")
		b.terminate("jnz %s, @%s, @%s", c, fall, i.Target)
		b.label(fall)
	case *ir.JumpIfNotZero:
		c, fall := b.cond(i.Cond), b.newTemp("fall")
		b.terminate("jnz %s, @%s, @%s", c, i.Target, fall)
		b.label(fall)
	case *ir.Label:
		b.label(i.Name)
	default:
		return internalf("unhandled IR instruction %T", inst)
	}
	return nil
}

func (b *qbeBackend) label(name string) {
	fmt.Fprintf(b.out, "@%s\n", name)
	b.terminated = false
}

func (b *qbeBackend) Dump(prog *ir.Program, cfg *config.Config) (string, error) {
	return b.GenerateIR(prog, cfg)
}
