// Package ir is the three-address intermediate form between the syntax
// tree and the machine backends.
package ir

import (
	"fmt"
	"strings"
)

type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpComplement
	OpNot
)

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpEqual
	OpNotEqual
	// OpAnd and OpOr are lowered to jumps and never appear in a
	// generated program.
	OpAnd
	OpOr
)

var unaryNames = [...]string{OpNegate: "neg", OpComplement: "not", OpNot: "lnot"}

var binaryNames = [...]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpLess: "lt", OpLessEq: "le", OpGreater: "gt", OpGreaterEq: "ge",
	OpEqual: "eq", OpNotEqual: "ne", OpAnd: "and", OpOr: "or",
}

func (op UnaryOp) String() string {
	if op >= 0 && int(op) < len(unaryNames) {
		return unaryNames[op]
	}
	return fmt.Sprintf("unary(%d)", int(op))
}

func (op BinaryOp) String() string {
	if op >= 0 && int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return fmt.Sprintf("binary(%d)", int(op))
}

// IsRelational reports whether op produces a 0/1 comparison result.
func (op BinaryOp) IsRelational() bool { return op >= OpLess && op <= OpNotEqual }

// Value is *Const or *Var.
type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int32 }

// Var names a temporary or source variable. Names are unique per program.
type Var struct{ Name string }

func (*Const) isValue() {}
func (*Var) isValue()   {}

func (c *Const) String() string { return fmt.Sprintf("%d", c.Value) }
func (v *Var) String() string   { return v.Name }

type Instruction interface {
	isInstruction()
	String() string
}

// Return with a nil Value returns nothing.
type Return struct{ Value Value }

type Unary struct {
	Op  UnaryOp
	Src Value
	Dst *Var
}

type Binary struct {
	Op   BinaryOp
	Src1 Value
	Src2 Value
	Dst  *Var
}

type Copy struct {
	Src Value
	Dst *Var
}

type Jump struct{ Target string }

type JumpIfZero struct {
	Cond   Value
	Target string
}

type JumpIfNotZero struct {
	Cond   Value
	Target string
}

type Label struct{ Name string }

func (*Return) isInstruction()        {}
func (*Unary) isInstruction()         {}
func (*Binary) isInstruction()        {}
func (*Copy) isInstruction()          {}
func (*Jump) isInstruction()          {}
func (*JumpIfZero) isInstruction()    {}
func (*JumpIfNotZero) isInstruction() {}
func (*Label) isInstruction()         {}

func (i *Return) String() string {
	if i.Value == nil {
		return "ret"
	}
	return "ret " + i.Value.String()
}
func (i *Unary) String() string  { return fmt.Sprintf("%s = %s %s", i.Dst, i.Op, i.Src) }
func (i *Binary) String() string { return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.Src1, i.Src2) }
func (i *Copy) String() string   { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }
func (i *Jump) String() string   { return "jmp " + i.Target }
func (i *JumpIfZero) String() string {
	return fmt.Sprintf("jz %s, %s", i.Cond, i.Target)
}
func (i *JumpIfNotZero) String() string {
	return fmt.Sprintf("jnz %s, %s", i.Cond, i.Target)
}
func (i *Label) String() string { return i.Name + ":" }

type Function struct {
	Name         string
	Instructions []Instruction
}

type Program struct {
	Func *Function
}

func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s {\n", f.Name)
	for _, inst := range f.Instructions {
		if _, isLabel := inst.(*Label); isLabel {
			fmt.Fprintf(&sb, "%s\n", inst)
			continue
		}
		fmt.Fprintf(&sb, "    %s\n", inst)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (p *Program) String() string {
	if p.Func == nil {
		return ""
	}
	return p.Func.String()
}
