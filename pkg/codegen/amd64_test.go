package codegen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/kcc/pkg/asm"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
)

func pseudo(n string) *asm.Pseudo { return &asm.Pseudo{Name: n} }
func stack(off int) *asm.Stack    { return &asm.Stack{Offset: off} }
func imm(v int32) *asm.Imm        { return &asm.Imm{Value: v} }

func selectOne(t *testing.T, inst ir.Instruction) []asm.Instruction {
	t.Helper()
	out, err := selectInstruction(inst)
	if err != nil {
		t.Fatalf("selectInstruction(%s): %v", inst, err)
	}
	return out
}

func TestSelectInstruction(t *testing.T) {
	a, b, d := tmp("a"), tmp("b"), tmp("d")
	tests := []struct {
		name string
		in   ir.Instruction
		want []asm.Instruction
	}{
		{"return", ret(cnst(3)), []asm.Instruction{&asm.Mov{Src: imm(3), Dst: regAX}, &asm.Ret{}}},
		{"bare return", &ir.Return{}, []asm.Instruction{&asm.Ret{}}},
		{"negate", &ir.Unary{Op: ir.OpNegate, Src: a, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: pseudo("a"), Dst: pseudo("d")}, &asm.Unary{Op: asm.Neg, Dst: pseudo("d")},
		}},
		{"complement", &ir.Unary{Op: ir.OpComplement, Src: a, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: pseudo("a"), Dst: pseudo("d")}, &asm.Unary{Op: asm.Not, Dst: pseudo("d")},
		}},
		{"logical not", &ir.Unary{Op: ir.OpNot, Src: a, Dst: d}, []asm.Instruction{
			&asm.Cmp{Src: imm(0), Dst: pseudo("a")},
			&asm.Mov{Src: imm(0), Dst: pseudo("d")},
			&asm.SetCC{Cond: asm.E, Dst: pseudo("d")},
		}},
		{"sub", &ir.Binary{Op: ir.OpSub, Src1: a, Src2: b, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: pseudo("a"), Dst: pseudo("d")}, &asm.Binary{Op: asm.Sub, Src: pseudo("b"), Dst: pseudo("d")},
		}},
		{"mul", &ir.Binary{Op: ir.OpMul, Src1: cnst(2), Src2: b, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: imm(2), Dst: pseudo("d")}, &asm.Binary{Op: asm.Mult, Src: pseudo("b"), Dst: pseudo("d")},
		}},
		{"divide", &ir.Binary{Op: ir.OpDiv, Src1: a, Src2: b, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: pseudo("a"), Dst: regAX}, &asm.Cdq{}, &asm.Idiv{Src: pseudo("b")}, &asm.Mov{Src: regAX, Dst: pseudo("d")},
		}},
		{"remainder", &ir.Binary{Op: ir.OpRem, Src1: a, Src2: b, Dst: d}, []asm.Instruction{
			&asm.Mov{Src: pseudo("a"), Dst: regAX}, &asm.Cdq{}, &asm.Idiv{Src: pseudo("b")}, &asm.Mov{Src: regDX, Dst: pseudo("d")},
		}},
		{"less", &ir.Binary{Op: ir.OpLess, Src1: a, Src2: b, Dst: d}, []asm.Instruction{
			&asm.Cmp{Src: pseudo("b"), Dst: pseudo("a")},
			&asm.Mov{Src: imm(0), Dst: pseudo("d")},
			&asm.SetCC{Cond: asm.L, Dst: pseudo("d")},
		}},
		{"copy", &ir.Copy{Src: cnst(1), Dst: d}, []asm.Instruction{&asm.Mov{Src: imm(1), Dst: pseudo("d")}}},
		{"jump", &ir.Jump{Target: "x"}, []asm.Instruction{&asm.Jmp{Target: "x"}}},
		{"jump if zero", &ir.JumpIfZero{Cond: a, Target: "x"}, []asm.Instruction{
			&asm.Cmp{Src: imm(0), Dst: pseudo("a")}, &asm.JmpCC{Cond: asm.E, Target: "x"},
		}},
		{"jump if not zero", &ir.JumpIfNotZero{Cond: a, Target: "x"}, []asm.Instruction{
			&asm.Cmp{Src: imm(0), Dst: pseudo("a")}, &asm.JmpCC{Cond: asm.NE, Target: "x"},
		}},
		{"label", label("x"), []asm.Instruction{&asm.Label{Name: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, selectOne(t, tt.in)); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConditionCodes(t *testing.T) {
	want := map[ir.BinaryOp]asm.CondCode{
		ir.OpEqual: asm.E, ir.OpNotEqual: asm.NE, ir.OpLess: asm.L,
		ir.OpLessEq: asm.LE, ir.OpGreater: asm.G, ir.OpGreaterEq: asm.GE,
	}
	for op, cc := range want {
		out := selectOne(t, &ir.Binary{Op: op, Src1: cnst(1), Src2: cnst(2), Dst: tmp("d")})
		if got := out[2].(*asm.SetCC).Cond; got != cc {
			t.Errorf("%s: condition %s, want %s", op, got, cc)
		}
	}
}

func TestSelectRejectsShortCircuit(t *testing.T) {
	for _, op := range []ir.BinaryOp{ir.OpAnd, ir.OpOr} {
		prog := &ir.Program{Func: &ir.Function{Name: "main", Instructions: []ir.Instruction{
			&ir.Binary{Op: op, Src1: cnst(1), Src2: cnst(0), Dst: tmp("d")},
		}}}
		if _, err := SelectInstructions(prog); !errors.Is(err, ErrInternal) {
			t.Errorf("%s: err = %v, want ErrInternal", op, err)
		}
	}
}

func TestAssignStack(t *testing.T) {
	in := &asm.Program{Func: &asm.Function{Name: "main", Instructions: []asm.Instruction{
		&asm.Mov{Src: imm(1), Dst: pseudo("a")},
		&asm.Binary{Op: asm.Add, Src: pseudo("b"), Dst: pseudo("a")},
		&asm.Cmp{Src: pseudo("c"), Dst: pseudo("b")},
		&asm.Idiv{Src: pseudo("c")},
		&asm.SetCC{Cond: asm.G, Dst: pseudo("d")},
		&asm.Unary{Op: asm.Neg, Dst: pseudo("a")},
		&asm.Ret{},
	}}}
	want := []asm.Instruction{
		&asm.Mov{Src: imm(1), Dst: stack(-4)},
		&asm.Binary{Op: asm.Add, Src: stack(-8), Dst: stack(-4)},
		&asm.Cmp{Src: stack(-12), Dst: stack(-8)},
		&asm.Idiv{Src: stack(-12)},
		&asm.SetCC{Cond: asm.G, Dst: stack(-16)},
		&asm.Unary{Op: asm.Neg, Dst: stack(-4)},
		&asm.Ret{},
	}
	got, frame := AssignStack(in)
	if frame != 16 {
		t.Errorf("frame size = %d, want 16", frame)
	}
	if diff := cmp.Diff(want, got.Func.Instructions); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	if _, isPseudo := in.Func.Instructions[0].(*asm.Mov).Dst.(*asm.Pseudo); !isPseudo {
		t.Error("input program was modified")
	}
}

func TestAssignStackEmpty(t *testing.T) {
	in := &asm.Program{Func: &asm.Function{Name: "main", Instructions: []asm.Instruction{
		&asm.Mov{Src: imm(0), Dst: regAX}, &asm.Ret{},
	}}}
	if _, frame := AssignStack(in); frame != 0 {
		t.Errorf("frame size = %d, want 0", frame)
	}
}

func TestLegalize(t *testing.T) {
	tests := []struct {
		name string
		in   asm.Instruction
		want []asm.Instruction
	}{
		{"mov mem mem", &asm.Mov{Src: stack(-4), Dst: stack(-8)}, []asm.Instruction{
			&asm.Mov{Src: stack(-4), Dst: regR10}, &asm.Mov{Src: regR10, Dst: stack(-8)},
		}},
		{"mov legal", &asm.Mov{Src: imm(1), Dst: stack(-8)}, []asm.Instruction{&asm.Mov{Src: imm(1), Dst: stack(-8)}}},
		{"cmp mem mem", &asm.Cmp{Src: stack(-4), Dst: stack(-8)}, []asm.Instruction{
			&asm.Mov{Src: stack(-4), Dst: regR10}, &asm.Cmp{Src: regR10, Dst: stack(-8)},
		}},
		{"cmp imm second", &asm.Cmp{Src: stack(-4), Dst: imm(5)}, []asm.Instruction{
			&asm.Mov{Src: imm(5), Dst: regR11}, &asm.Cmp{Src: stack(-4), Dst: regR11},
		}},
		{"cmp imm both", &asm.Cmp{Src: imm(0), Dst: imm(5)}, []asm.Instruction{
			&asm.Mov{Src: imm(5), Dst: regR11}, &asm.Cmp{Src: imm(0), Dst: regR11},
		}},
		{"add mem mem", &asm.Binary{Op: asm.Add, Src: stack(-4), Dst: stack(-8)}, []asm.Instruction{
			&asm.Mov{Src: stack(-4), Dst: regR10}, &asm.Binary{Op: asm.Add, Src: regR10, Dst: stack(-8)},
		}},
		{"sub mem mem", &asm.Binary{Op: asm.Sub, Src: stack(-4), Dst: stack(-8)}, []asm.Instruction{
			&asm.Mov{Src: stack(-4), Dst: regR10}, &asm.Binary{Op: asm.Sub, Src: regR10, Dst: stack(-8)},
		}},
		{"imul mem dst", &asm.Binary{Op: asm.Mult, Src: imm(3), Dst: stack(-8)}, []asm.Instruction{
			&asm.Mov{Src: stack(-8), Dst: regR11},
			&asm.Binary{Op: asm.Mult, Src: imm(3), Dst: regR11},
			&asm.Mov{Src: regR11, Dst: stack(-8)},
		}},
		{"idiv imm", &asm.Idiv{Src: imm(3)}, []asm.Instruction{&asm.Mov{Src: imm(3), Dst: regR10}, &asm.Idiv{Src: regR10}}},
		{"idiv mem", &asm.Idiv{Src: stack(-4)}, []asm.Instruction{&asm.Idiv{Src: stack(-4)}}},
		{"ret", &asm.Ret{}, []asm.Instruction{&asm.Ret{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &asm.Program{Func: &asm.Function{Name: "main", Instructions: []asm.Instruction{tt.in}}}
			got := Legalize(prog, 8).Func.Instructions
			want := append([]asm.Instruction{&asm.AllocateStack{Size: 8}}, tt.want...)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("legalization mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var pipelineSources = []string{
	"return 2;",
	"return -(~(-5));",
	"return (1 + 2) * 3 - 4 / 2 % 3;",
	"return 1 < 2 < 3;",
	"return 5 <= 5 == (6 != 7) >= !0;",
	"return 0 && 1 || 1 && (2 > 1);",
	"; 10 / 3; return 7 % -2;",
}

func lower(t *testing.T, body string) (*asm.Program, int) {
	t.Helper()
	selected, err := SelectInstructions(generate(t, body))
	if err != nil {
		t.Fatalf("SelectInstructions(%q): %v", body, err)
	}
	assigned, frame := AssignStack(selected)
	return Legalize(assigned, frame), frame
}

func TestPipelineProducesLegalCode(t *testing.T) {
	for _, src := range pipelineSources {
		prog, frame := lower(t, src)
		names := map[string]bool{}
		selected, _ := SelectInstructions(generate(t, src))
		for _, inst := range selected.Func.Instructions {
			for _, op := range asm.Operands(inst) {
				if p, ok := op.(*asm.Pseudo); ok {
					names[p.Name] = true
				}
			}
		}
		if frame != 4*len(names) {
			t.Errorf("%q: frame %d for %d pseudos", src, frame, len(names))
		}
		if first, ok := prog.Func.Instructions[0].(*asm.AllocateStack); !ok || first.Size != frame {
			t.Errorf("%q: first instruction is %s", src, prog.Func.Instructions[0])
		}
		for _, inst := range prog.Func.Instructions {
			ops := asm.Operands(inst)
			mem := 0
			for _, op := range ops {
				if asm.IsMemory(op) {
					mem++
				}
				if _, ok := op.(*asm.Pseudo); ok {
					t.Errorf("%q: pseudo left in %s", src, inst)
				}
			}
			if mem > 1 {
				t.Errorf("%q: two memory operands in %s", src, inst)
			}
			if d, ok := inst.(*asm.Idiv); ok {
				if _, isImm := d.Src.(*asm.Imm); isImm {
					t.Errorf("%q: immediate divisor in %s", src, inst)
				}
			}
			if c, ok := inst.(*asm.Cmp); ok {
				if _, isImm := c.Dst.(*asm.Imm); isImm {
					t.Errorf("%q: immediate second operand in %s", src, inst)
				}
			}
		}
	}
}

func linuxConfig(t *testing.T, goos string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	if err := cfg.SetTarget(goos, "amd64", ""); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestEmitLinux(t *testing.T) {
	prog, _ := lower(t, "return 2;")
	var buf bytes.Buffer
	if err := Emit(&buf, prog, linuxConfig(t, "linux")); err != nil {
		t.Fatal(err)
	}
	want := "\t.globl main\n" +
		"main:\n" +
		"\tpushq\t%rbp\n" +
		"\tmovq\t%rsp, %rbp\n" +
		"\tsubq\t$0, %rsp\n" +
		"\tmovl\t$2, %eax\n" +
		"\tmovq\t%rbp, %rsp\n" +
		"\tpopq\t%rbp\n" +
		"\tret\n" +
		"\n\t.section .note.GNU-stack,\"\",@progbits\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("assembly mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitDarwin(t *testing.T) {
	prog, _ := lower(t, "return 1 && 0;")
	var buf bytes.Buffer
	if err := Emit(&buf, prog, linuxConfig(t, "darwin")); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	for _, want := range []string{"\t.globl _main\n_main:\n", "\tje\tLand_false.0\n", "Land_end.1:\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "GNU-stack") {
		t.Error("darwin output carries a GNU-stack note")
	}
}

func TestEmitOperandForms(t *testing.T) {
	prog := &asm.Program{Func: &asm.Function{Name: "f", Instructions: []asm.Instruction{
		&asm.AllocateStack{Size: 8},
		&asm.SetCC{Cond: asm.LE, Dst: regR11},
		&asm.SetCC{Cond: asm.NE, Dst: stack(-8)},
		&asm.Binary{Op: asm.Mult, Src: imm(3), Dst: regR11},
		&asm.Unary{Op: asm.Not, Dst: stack(-4)},
		&asm.Idiv{Src: regR10},
		&asm.Cdq{},
		&asm.Cmp{Src: regR10, Dst: stack(-4)},
		&asm.Label{Name: "x"},
		&asm.Jmp{Target: "x"},
	}}}
	var buf bytes.Buffer
	if err := Emit(&buf, prog, linuxConfig(t, "linux")); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"\tsubq\t$8, %rsp\n", "\tsetle\t%r11b\n", "\tsetne\t-8(%rbp)\n", "\timull\t$3, %r11d\n",
		"\tnotl\t-4(%rbp)\n", "\tidivl\t%r10d\n", "\tcdq\n", "\tcmpl\t%r10d, -4(%rbp)\n",
		".Lx:\n", "\tjmp\t.Lx\n",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}
}

func TestEmitRejectsPseudo(t *testing.T) {
	prog := &asm.Program{Func: &asm.Function{Name: "main", Instructions: []asm.Instruction{
		&asm.Mov{Src: pseudo("a"), Dst: regAX},
	}}}
	if err := Emit(&bytes.Buffer{}, prog, nil); !errors.Is(err, ErrInternal) {
		t.Errorf("err = %v, want ErrInternal", err)
	}
}

func TestAMD64Backend(t *testing.T) {
	buf, err := NewBackend(linuxConfig(t, "linux")).Generate(generate(t, "return 6 / 3;"), linuxConfig(t, "linux"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"\tmovl\t$3, %r10d\n\tidivl\t%r10d\n", "\tcdq\n", "main:\n"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}
}
