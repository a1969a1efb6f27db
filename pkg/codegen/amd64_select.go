package codegen

import (
	"github.com/xplshn/kcc/pkg/asm"
	"github.com/xplshn/kcc/pkg/ir"
)

var condCodes = map[ir.BinaryOp]asm.CondCode{
	ir.OpEqual:     asm.E,
	ir.OpNotEqual:  asm.NE,
	ir.OpLess:      asm.L,
	ir.OpLessEq:    asm.LE,
	ir.OpGreater:   asm.G,
	ir.OpGreaterEq: asm.GE,
}

var arithOps = map[ir.BinaryOp]asm.BinaryOp{
	ir.OpAdd: asm.Add,
	ir.OpSub: asm.Sub,
	ir.OpMul: asm.Mult,
}

var (
	regAX = &asm.Register{Reg: asm.AX}
	regDX = &asm.Register{Reg: asm.DX}
	zero  = &asm.Imm{Value: 0}
)

// SelectInstructions maps prog onto abstract x86-64. Operands that name
// IR variables become pseudo registers.
func SelectInstructions(prog *ir.Program) (*asm.Program, error) {
	if prog == nil || prog.Func == nil {
		return nil, internalf("no function to select instructions for")
	}
	var out []asm.Instruction
	for _, inst := range prog.Func.Instructions {
		sel, err := selectInstruction(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, sel...)
	}
	return &asm.Program{Func: &asm.Function{Name: prog.Func.Name, Instructions: out}}, nil
}

func operand(v ir.Value) asm.Operand {
	switch v := v.(type) {
	case *ir.Const:
		return &asm.Imm{Value: v.Value}
	case *ir.Var:
		return &asm.Pseudo{Name: v.Name}
	}
	return nil
}

func selectInstruction(inst ir.Instruction) ([]asm.Instruction, error) {
	switch i := inst.(type) {
	case *ir.Return:
		if i.Value == nil {
			return []asm.Instruction{&asm.Ret{}}, nil
		}
		return []asm.Instruction{&asm.Mov{Src: operand(i.Value), Dst: regAX}, &asm.Ret{}}, nil

	case *ir.Unary:
		src, dst := operand(i.Src), operand(i.Dst)
		switch i.Op {
		case ir.OpNegate:
			return []asm.Instruction{&asm.Mov{Src: src, Dst: dst}, &asm.Unary{Op: asm.Neg, Dst: dst}}, nil
		case ir.OpComplement:
			return []asm.Instruction{&asm.Mov{Src: src, Dst: dst}, &asm.Unary{Op: asm.Not, Dst: dst}}, nil
		case ir.OpNot:
			return []asm.Instruction{
				&asm.Cmp{Src: zero, Dst: src},
				&asm.Mov{Src: zero, Dst: dst},
				&asm.SetCC{Cond: asm.E, Dst: dst},
			}, nil
		}
		return nil, internalf("unhandled unary operator %s", i.Op)

	case *ir.Binary:
		return selectBinary(i)

	case *ir.Copy:
		return []asm.Instruction{&asm.Mov{Src: operand(i.Src), Dst: operand(i.Dst)}}, nil
	case *ir.Jump:
		return []asm.Instruction{&asm.Jmp{Target: i.Target}}, nil
	case *ir.JumpIfZero:
		return []asm.Instruction{
			&asm.Cmp{Src: zero, Dst: operand(i.Cond)},
			&asm.JmpCC{Cond: asm.E, Target: i.Target},
		}, nil
	case *ir.JumpIfNotZero:
		return []asm.Instruction{
			&asm.Cmp{Src: zero, Dst: operand(i.Cond)},
			&asm.JmpCC{Cond: asm.NE, Target: i.Target},
		}, nil
	case *ir.Label:
		return []asm.Instruction{&asm.Label{Name: i.Name}}, nil
	}
	return nil, internalf("unhandled IR instruction %T", inst)
}

func selectBinary(i *ir.Binary) ([]asm.Instruction, error) {
	src1, src2, dst := operand(i.Src1), operand(i.Src2), operand(i.Dst)

	if op, ok := arithOps[i.Op]; ok {
		return []asm.Instruction{&asm.Mov{Src: src1, Dst: dst}, &asm.Binary{Op: op, Src: src2, Dst: dst}}, nil
	}
	if cc, ok := condCodes[i.Op]; ok {
		// cmp src2, src1 sets flags from src1 - src2.
		return []asm.Instruction{
			&asm.Cmp{Src: src2, Dst: src1},
			&asm.Mov{Src: zero, Dst: dst},
			&asm.SetCC{Cond: cc, Dst: dst},
		}, nil
	}

	switch i.Op {
	case ir.OpDiv, ir.OpRem:
		result := asm.Operand(regAX)
		if i.Op == ir.OpRem {
			result = regDX
		}
		return []asm.Instruction{
			&asm.Mov{Src: src1, Dst: regAX},
			&asm.Cdq{},
			&asm.Idiv{Src: src2},
			&asm.Mov{Src: result, Dst: dst},
		}, nil
	case ir.OpAnd, ir.OpOr:
		return nil, internalf("short-circuit operator %s reached instruction selection", i.Op)
	}
	return nil, internalf("unhandled binary operator %s", i.Op)
}
