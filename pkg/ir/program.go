// Package ir holds the resolved instruction stream shared by the minos
// interpreter and code generator.
//
// Pipeline: source → frontend.Lint → *ir.Program → {interp, codegen}
package ir

import (
	"fmt"
	"io"
	"strings"

	"minos/pkg/diag"
)

// Instruction is one resolved operation. Operand is unused (the zero Value)
// for stack operations, holds the literal for Push and the resolved jump
// target for control-flow operations.
type Instruction struct {
	Token   Token
	Op      OpCode
	Operand Value
}

// Target returns the jump target encoded in the operand.
func (in Instruction) Target() int { return int(in.Operand.Uint32()) }

// Pos is shorthand for in.Token.Pos.
func (in Instruction) Pos() diag.Pos { return in.Token.Pos }

// Program is the ordered instruction sequence built by the front end. It is
// complete before any backend sees it and is treated as read-only afterwards.
type Program struct {
	Source string
	Code   []Instruction
}

func (p *Program) Len() int { return len(p.Code) }

// IsBackEdge reports whether the End at index i closes a loop, i.e. jumps
// backwards to its while head. An End closing an if/else targets the
// instruction after itself and falls through.
func (p *Program) IsBackEdge(i int) bool {
	in := p.Code[i]
	return in.Op == End && in.Target() <= i
}

// Validate checks that every control-flow target lies inside the program
// (the index one past the last instruction is the exit and is allowed).
func (p *Program) Validate() error {
	var errs diag.List
	for i, in := range p.Code {
		if in.Op < Push || in.Op > End {
			errs = append(errs, diag.New(in.Pos(), diag.Unsupported, "instruction %d has unknown opcode %d", i, int(in.Op)))
			continue
		}
		if !in.Op.IsControl() {
			continue
		}
		if in.Operand.Kind != KindUint32 {
			errs = append(errs, diag.New(in.Pos(), diag.Unsupported, "%s at %d has an unresolved target", in.Op, i))
			continue
		}
		if t := in.Target(); t > len(p.Code) {
			errs = append(errs, diag.New(in.Pos(), diag.Unsupported, "%s at %d jumps to %d, past the end of the program", in.Op, i, t))
		}
	}
	return errs.Err()
}

// Format writes a listing of p, one instruction per line.
func (p *Program) Format(w io.Writer) error {
	for i, in := range p.Code {
		var operand string
		switch {
		case in.Op == Push:
			operand = fmt.Sprintf("%#v", in.Operand)
		case in.Op == End && !p.IsBackEdge(i):
			operand = fmt.Sprintf("-> %d (fallthrough)", in.Target())
		case in.Op.IsControl():
			operand = fmt.Sprintf("-> %d", in.Target())
		case in.Op == While:
			operand = "loop head"
		}
		if _, err := fmt.Fprintf(w, "%4d  %-8s %-24s ; %s %q\n", i, in.Op, operand, in.Pos(), in.Token.Lexeme); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%4d  EXIT\n", len(p.Code))
	return err
}

func (p *Program) String() string {
	var b strings.Builder
	_ = p.Format(&b)
	return b.String()
}
