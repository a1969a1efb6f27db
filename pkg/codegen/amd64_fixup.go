package codegen

import (
	"github.com/samber/lo"
	"github.com/xplshn/kcc/pkg/asm"
)

var (
	regR10 = &asm.Register{Reg: asm.R10}
	regR11 = &asm.Register{Reg: asm.R11}
)

// Legalize rewrites operand forms x86-64 cannot encode through the r10
// and r11 scratch registers, and allocates frameSize bytes up front.
// Neither scratch register is live across instructions.
func Legalize(prog *asm.Program, frameSize int) *asm.Program {
	fixed := lo.FlatMap(prog.Func.Instructions, func(inst asm.Instruction, _ int) []asm.Instruction {
		return legalize(inst)
	})
	insts := append([]asm.Instruction{&asm.AllocateStack{Size: frameSize}}, fixed...)
	return &asm.Program{Func: &asm.Function{Name: prog.Func.Name, Instructions: insts}}
}

func legalize(inst asm.Instruction) []asm.Instruction {
	switch i := inst.(type) {
	case *asm.Mov:
		if asm.IsMemory(i.Src) && asm.IsMemory(i.Dst) {
			return []asm.Instruction{&asm.Mov{Src: i.Src, Dst: regR10}, &asm.Mov{Src: regR10, Dst: i.Dst}}
		}
	case *asm.Cmp:
		if asm.IsMemory(i.Src) && asm.IsMemory(i.Dst) {
			return []asm.Instruction{&asm.Mov{Src: i.Src, Dst: regR10}, &asm.Cmp{Src: regR10, Dst: i.Dst}}
		}
		if _, isImm := i.Dst.(*asm.Imm); isImm {
			return []asm.Instruction{&asm.Mov{Src: i.Dst, Dst: regR11}, &asm.Cmp{Src: i.Src, Dst: regR11}}
		}
	case *asm.Binary:
		switch i.Op {
		case asm.Add, asm.Sub:
			if asm.IsMemory(i.Src) && asm.IsMemory(i.Dst) {
				return []asm.Instruction{&asm.Mov{Src: i.Src, Dst: regR10}, &asm.Binary{Op: i.Op, Src: regR10, Dst: i.Dst}}
			}
		case asm.Mult:
			if asm.IsMemory(i.Dst) {
				return []asm.Instruction{
					&asm.Mov{Src: i.Dst, Dst: regR11},
					&asm.Binary{Op: asm.Mult, Src: i.Src, Dst: regR11},
					&asm.Mov{Src: regR11, Dst: i.Dst},
				}
			}
		}
	case *asm.Idiv:
		if _, isImm := i.Src.(*asm.Imm); isImm {
			return []asm.Instruction{&asm.Mov{Src: i.Src, Dst: regR10}, &asm.Idiv{Src: regR10}}
		}
	}
	return []asm.Instruction{inst}
}
