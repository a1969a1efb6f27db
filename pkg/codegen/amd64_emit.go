package codegen

import (
	"bufio"
	"fmt"
	"io"

	"github.com/xplshn/kcc/pkg/asm"
	"github.com/xplshn/kcc/pkg/config"
)

var (
	reg32 = map[asm.Reg]string{asm.AX: "%eax", asm.DX: "%edx", asm.R10: "%r10d", asm.R11: "%r11d"}
	reg8  = map[asm.Reg]string{asm.AX: "%al", asm.DX: "%dl", asm.R10: "%r10b", asm.R11: "%r11b"}
)

type emitter struct {
	w   *bufio.Writer
	cfg *config.Config
}

// Emit writes prog as AT&T assembly. prog must be legalized.
func Emit(w io.Writer, prog *asm.Program, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	e := &emitter{w: bufio.NewWriter(w), cfg: cfg}
	if err := e.function(prog.Func); err != nil {
		return err
	}
	if cfg.IsELF() {
		fmt.Fprintf(e.w, "\n\t.section .note.GNU-stack,\"\",@progbits\n")
	}
	return e.w.Flush()
}

func (e *emitter) symbol(name string) string {
	if e.cfg.IsDarwin() {
		return "_" + name
	}
	return name
}

func (e *emitter) label(name string) string {
	if e.cfg.IsDarwin() {
		return "L" + name
	}
	return ".L" + name
}

func (e *emitter) ins(mnemonic string, operands ...string) {
	fmt.Fprintf(e.w, "\t%s", mnemonic)
	for i, op := range operands {
		if i == 0 {
			fmt.Fprintf(e.w, "\t%s", op)
		} else {
			fmt.Fprintf(e.w, ", %s", op)
		}
	}
	e.w.WriteByte('\n')
}

func (e *emitter) function(fn *asm.Function) error {
	name := e.symbol(fn.Name)
	fmt.Fprintf(e.w, "\t.globl %s\n%s:\n", name, name)
	e.ins("pushq", "%rbp")
	e.ins("movq", "%rsp", "%rbp")
	for _, inst := range fn.Instructions {
		if err := e.instruction(inst); err != nil {
			return fmt.Errorf("in function '%s': %w", fn.Name, err)
		}
	}
	return nil
}

func (e *emitter) operand(op asm.Operand, byteReg bool) (string, error) {
	switch o := op.(type) {
	case *asm.Imm:
		return fmt.Sprintf("$%d", o.Value), nil
	case *asm.Register:
		if byteReg {
			return reg8[o.Reg], nil
		}
		return reg32[o.Reg], nil
	case *asm.Stack:
		return fmt.Sprintf("%d(%%rbp)", o.Offset), nil
	case *asm.Pseudo:
		return "", internalf("pseudo register '%s' reached the emitter", o.Name)
	}
	return "", internalf("unhandled operand %T", op)
}

func (e *emitter) operands(byteReg bool, ops ...asm.Operand) ([]string, error) {
	out := make([]string, len(ops))
	for i, op := range ops {
		s, err := e.operand(op, byteReg)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (e *emitter) instruction(inst asm.Instruction) error {
	switch i := inst.(type) {
	case *asm.Jmp:
		e.ins("jmp", e.label(i.Target))
		return nil
	case *asm.JmpCC:
		e.ins("j"+i.Cond.String(), e.label(i.Target))
		return nil
	case *asm.Label:
		fmt.Fprintf(e.w, "%s:\n", e.label(i.Name))
		return nil
	case *asm.AllocateStack:
		e.ins("subq", fmt.Sprintf("$%d", i.Size), "%rsp")
		return nil
	case *asm.Cdq:
		e.ins("cdq")
		return nil
	case *asm.Ret:
		e.ins("movq", "%rbp", "%rsp")
		e.ins("popq", "%rbp")
		e.ins("ret")
		return nil
	}

	var (
		mnemonic string
		ops      []asm.Operand
		byteReg  bool
	)
	switch i := inst.(type) {
	case *asm.Mov:
		mnemonic, ops = "movl", []asm.Operand{i.Src, i.Dst}
	case *asm.Unary:
		mnemonic, ops = i.Op.String()+"l", []asm.Operand{i.Dst}
	case *asm.Binary:
		mnemonic, ops = i.Op.String()+"l", []asm.Operand{i.Src, i.Dst}
	case *asm.Idiv:
		mnemonic, ops = "idivl", []asm.Operand{i.Src}
	case *asm.Cmp:
		mnemonic, ops = "cmpl", []asm.Operand{i.Src, i.Dst}
	case *asm.SetCC:
		mnemonic, ops, byteReg = "set"+i.Cond.String(), []asm.Operand{i.Dst}, true
	default:
		return internalf("unhandled instruction %T", inst)
	}
	text, err := e.operands(byteReg, ops...)
	if err != nil {
		return err
	}
	e.ins(mnemonic, text...)
	return nil
}
