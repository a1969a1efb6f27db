package codegen

import (
	"github.com/samber/lo"
	"github.com/xplshn/kcc/pkg/asm"
)

const slotSize = 4

// stackAssigner hands out one slot per distinct pseudo name, in first-seen
// order, growing downwards from the frame base.
type stackAssigner struct {
	offsets map[string]int
	next    int
}

func (s *stackAssigner) slot(op asm.Operand) asm.Operand {
	p, ok := op.(*asm.Pseudo)
	if !ok {
		return op
	}
	off, seen := s.offsets[p.Name]
	if !seen {
		s.next -= slotSize
		off = s.next
		s.offsets[p.Name] = off
	}
	return &asm.Stack{Offset: off}
}

// AssignStack replaces every pseudo operand of prog with a stack slot and
// returns the new program and its frame size in bytes.
func AssignStack(prog *asm.Program) (*asm.Program, int) {
	s := &stackAssigner{offsets: make(map[string]int)}
	insts := lo.Map(prog.Func.Instructions, func(inst asm.Instruction, _ int) asm.Instruction {
		return asm.MapOperands(inst, s.slot)
	})
	return &asm.Program{Func: &asm.Function{Name: prog.Func.Name, Instructions: insts}}, -s.next
}
