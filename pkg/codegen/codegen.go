// Package codegen translates a resolved ir.Program into x86-64 NASM source
// for Linux. Every IR instruction becomes one labelled block under _start,
// so jump operands map directly onto labels. Values live on the machine
// stack as 64-bit slots holding sign-extended int32s or 0/1 booleans.
package codegen

import (
	"fmt"
	"strings"

	"minos/pkg/diag"
	"minos/pkg/ir"
)

// Options controls generation.
type Options struct {
	StackCheck StackCheck
}

// CodeGen emits assembly for one program.
type CodeGen struct {
	prog  *ir.Program
	flow  analysis
	out   strings.Builder
	errs  diag.List
	label string // label prefix for instruction blocks
}

func newCodeGen(p *ir.Program) *CodeGen {
	return &CodeGen{prog: p, label: ".INSTRUCTION_"}
}

// Generate returns NASM source for p. Stack underflow that the selected
// check can prove is reported as diagnostics and no source is returned.
func Generate(p *ir.Program, opts Options) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	cg := newCodeGen(p)
	cg.flow = analyze(p)
	if err := checkStack(p, opts.StackCheck, cg.flow); err != nil {
		return "", err
	}

	cg.prologue()
	for i := range p.Code {
		cg.instruction(i)
	}
	cg.epilogue()

	if err := cg.errs.Err(); err != nil {
		return "", err
	}
	return cg.out.String(), nil
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

// op writes one indented instruction with its operands aligned.
func (cg *CodeGen) op(mnemonic string, operands ...string) {
	if len(operands) == 0 {
		cg.line("    %s", mnemonic)
		return
	}
	cg.line("    %-7s %s", mnemonic, strings.Join(operands, ", "))
}

func (cg *CodeGen) target(i int) string {
	return fmt.Sprintf("%s%d", cg.label, i)
}

func (cg *CodeGen) prologue() {
	src := cg.prog.Source
	if src == "" {
		src = "<input>"
	}
	cg.comment("generated by minos from %s", src)
	cg.line("BITS 64")
	cg.line("segment .text")
	cg.line("")
	writeDump(cg)
	cg.line("")
	cg.line("global _start")
	cg.line("_start:")
}

func (cg *CodeGen) epilogue() {
	cg.line("%s:", cg.target(cg.prog.Len()))
	cg.line(".EXIT:")
	cg.op("mov", "rax", "60")
	cg.op("mov", "rdi", "0")
	cg.op("syscall")
}

// kinds returns what the analysis knows about the two operands of a binary
// op at i. Unreachable code is generated as plain integer code.
func (cg *CodeGen) kinds(i int) (left, right slotKind) {
	f := cg.flow.entry[i]
	if len(f) < 2 {
		return kInt, kInt
	}
	return f[len(f)-2], f[len(f)-1]
}

// toBool rewrites a register holding any integer into 0 or 1.
func (cg *CodeGen) toBool(reg, low string) {
	cg.op("test", reg, reg)
	cg.op("setnz", low)
	cg.op("movzx", reg, low)
}

// operands pops right into rbx and left into rax. When right is a Bool the
// left operand is narrowed to 0/1 first so the op runs on booleans. A right
// operand that is Bool on some paths and Int on others picks the result
// representation at run time, which the generated code cannot follow.
func (cg *CodeGen) operands(i int) slotKind {
	left, right := cg.kinds(i)
	if right == kAny {
		in := cg.prog.Code[i]
		cg.errs = append(cg.errs, diag.New(in.Pos(), diag.Unsupported,
			"native code cannot apply '%s' to an operand that is bool on some paths and int on others", in.Token.Lexeme))
	}
	cg.op("pop", "rbx")
	cg.op("pop", "rax")
	if right == kBool && left != kBool {
		cg.toBool("rax", "al")
	}
	return right
}

func (cg *CodeGen) instruction(i int) {
	in := cg.prog.Code[i]
	cg.line("%s:", cg.target(i))
	cg.comment("%s %s %q", in.Pos(), in.Op, in.Token.Lexeme)

	switch op := in.Op; {
	case op == ir.Push:
		switch in.Operand.Kind {
		case ir.KindInt32:
			cg.op("push", fmt.Sprint(in.Operand.Int32()))
		case ir.KindBool:
			cg.op("push", in.Operand.String())
		default:
			cg.errs = append(cg.errs, diag.New(in.Pos(), diag.Unsupported, "native code cannot push a %s literal", in.Operand.Kind))
		}

	case op.IsArith():
		right := cg.operands(i)
		switch op {
		case ir.Plus:
			cg.op("add", "rax", "rbx")
		case ir.Minus:
			cg.op("sub", "rax", "rbx")
		case ir.Multiply:
			cg.op("imul", "rax", "rbx")
		case ir.Divide:
			cg.op("cqo")
			cg.op("idiv", "rbx")
		}
		if right == kBool {
			cg.toBool("rax", "al")
		} else {
			cg.op("movsxd", "rax", "eax")
		}
		cg.op("push", "rax")

	case op.IsCompare():
		cg.op("mov", "rcx", "0")
		cg.op("mov", "rdx", "1")
		cg.operands(i)
		cg.op("cmp", "rax", "rbx")
		switch op {
		case ir.Equal:
			cg.op("cmove", "rcx", "rdx")
		case ir.Greater:
			cg.op("cmovg", "rcx", "rdx")
		case ir.Less:
			cg.op("cmovl", "rcx", "rdx")
		}
		cg.op("push", "rcx")

	case op == ir.Dump:
		cg.op("pop", "rdi")
		cg.op("call", "dump")

	case op == ir.Dup:
		cg.op("pop", "rax")
		cg.op("push", "rax")
		cg.op("push", "rax")

	case op == ir.If, op == ir.Do:
		cg.op("pop", "rax")
		cg.op("test", "rax", "rax")
		cg.op("jz", cg.target(in.Target()))

	case op == ir.Else:
		cg.op("jmp", cg.target(in.Target()))

	case op == ir.While:

	case op == ir.End:
		if cg.prog.IsBackEdge(i) {
			cg.op("jmp", cg.target(in.Target()))
		}
	}
}
