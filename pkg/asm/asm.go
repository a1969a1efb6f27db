// Package asm models the subset of x86-64 the amd64 backend selects,
// before and after stack slots are assigned.
package asm

import (
	"fmt"
	"strings"
)

type Reg int

const (
	AX Reg = iota
	DX
	R10
	R11
)

var regNames = [...]string{AX: "ax", DX: "dx", R10: "r10", R11: "r11"}

func (r Reg) String() string { return regNames[r] }

// Operand is *Imm, *Register, *Pseudo or *Stack.
type Operand interface {
	isOperand()
	String() string
}

type Imm struct{ Value int32 }

type Register struct{ Reg Reg }

// Pseudo is a named placeholder that the storage assigner replaces.
type Pseudo struct{ Name string }

// Stack is a slot at Offset bytes from the frame base.
type Stack struct{ Offset int }

func (*Imm) isOperand()      {}
func (*Register) isOperand() {}
func (*Pseudo) isOperand()   {}
func (*Stack) isOperand()    {}

func (o *Imm) String() string      { return fmt.Sprintf("$%d", o.Value) }
func (o *Register) String() string { return "%" + o.Reg.String() }
func (o *Pseudo) String() string   { return o.Name }
func (o *Stack) String() string    { return fmt.Sprintf("%d(%%rbp)", o.Offset) }

// IsMemory reports whether op addresses memory.
func IsMemory(op Operand) bool {
	_, ok := op.(*Stack)
	return ok
}

type CondCode int

const (
	E CondCode = iota
	NE
	L
	LE
	G
	GE
)

var condNames = [...]string{E: "e", NE: "ne", L: "l", LE: "le", G: "g", GE: "ge"}

func (c CondCode) String() string { return condNames[c] }

type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
)

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mult
)

var (
	unaryNames  = [...]string{Neg: "neg", Not: "not"}
	binaryNames = [...]string{Add: "add", Sub: "sub", Mult: "imul"}
)

func (op UnaryOp) String() string  { return unaryNames[op] }
func (op BinaryOp) String() string { return binaryNames[op] }

type Instruction interface {
	isInstruction()
	String() string
}

type Mov struct{ Src, Dst Operand }

type Unary struct {
	Op  UnaryOp
	Dst Operand
}

type Binary struct {
	Op       BinaryOp
	Src, Dst Operand
}

type Idiv struct{ Src Operand }

type Cdq struct{}

// Cmp is in AT&T order: it sets flags from Dst - Src.
type Cmp struct{ Src, Dst Operand }

type Jmp struct{ Target string }

type JmpCC struct {
	Cond   CondCode
	Target string
}

type SetCC struct {
	Cond CondCode
	Dst  Operand
}

type Label struct{ Name string }

type AllocateStack struct{ Size int }

type Ret struct{}

func (*Mov) isInstruction()           {}
func (*Unary) isInstruction()         {}
func (*Binary) isInstruction()        {}
func (*Idiv) isInstruction()          {}
func (*Cdq) isInstruction()           {}
func (*Cmp) isInstruction()           {}
func (*Jmp) isInstruction()           {}
func (*JmpCC) isInstruction()         {}
func (*SetCC) isInstruction()         {}
func (*Label) isInstruction()         {}
func (*AllocateStack) isInstruction() {}
func (*Ret) isInstruction()           {}

func (i *Mov) String() string           { return fmt.Sprintf("mov %s, %s", i.Src, i.Dst) }
func (i *Unary) String() string         { return fmt.Sprintf("%s %s", i.Op, i.Dst) }
func (i *Binary) String() string        { return fmt.Sprintf("%s %s, %s", i.Op, i.Src, i.Dst) }
func (i *Idiv) String() string          { return fmt.Sprintf("idiv %s", i.Src) }
func (i *Cdq) String() string           { return "cdq" }
func (i *Cmp) String() string           { return fmt.Sprintf("cmp %s, %s", i.Src, i.Dst) }
func (i *Jmp) String() string           { return "jmp " + i.Target }
func (i *JmpCC) String() string         { return fmt.Sprintf("j%s %s", i.Cond, i.Target) }
func (i *SetCC) String() string         { return fmt.Sprintf("set%s %s", i.Cond, i.Dst) }
func (i *Label) String() string         { return i.Name + ":" }
func (i *AllocateStack) String() string { return fmt.Sprintf("allocate %d", i.Size) }
func (i *Ret) String() string           { return "ret" }

// Operands returns the operands of inst in source order.
func Operands(inst Instruction) []Operand {
	switch i := inst.(type) {
	case *Mov:
		return []Operand{i.Src, i.Dst}
	case *Unary:
		return []Operand{i.Dst}
	case *Binary:
		return []Operand{i.Src, i.Dst}
	case *Idiv:
		return []Operand{i.Src}
	case *Cmp:
		return []Operand{i.Src, i.Dst}
	case *SetCC:
		return []Operand{i.Dst}
	}
	return nil
}

// MapOperands returns a copy of inst with every operand replaced by f(op).
// Instructions without operands are returned as is.
func MapOperands(inst Instruction, f func(Operand) Operand) Instruction {
	switch i := inst.(type) {
	case *Mov:
		return &Mov{Src: f(i.Src), Dst: f(i.Dst)}
	case *Unary:
		return &Unary{Op: i.Op, Dst: f(i.Dst)}
	case *Binary:
		return &Binary{Op: i.Op, Src: f(i.Src), Dst: f(i.Dst)}
	case *Idiv:
		return &Idiv{Src: f(i.Src)}
	case *Cmp:
		return &Cmp{Src: f(i.Src), Dst: f(i.Dst)}
	case *SetCC:
		return &SetCC{Cond: i.Cond, Dst: f(i.Dst)}
	}
	return inst
}

type Function struct {
	Name         string
	Instructions []Instruction
}

type Program struct {
	Func *Function
}

func (p *Program) String() string {
	if p.Func == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", p.Func.Name)
	for _, inst := range p.Func.Instructions {
		fmt.Fprintf(&sb, "    %s\n", inst)
	}
	return sb.String()
}
