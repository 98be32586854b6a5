// Package frontend turns minos source text into a resolved ir.Program.
//
// Source is scanned line by line and word by word. Each word becomes one
// instruction; the control-flow words if/else/while/do/end are matched with a
// backpatch stack so that every jump operand is known before a backend runs.
package frontend

import (
	"cmp"
	"errors"
	"slices"
	"strconv"

	"minos/pkg/diag"
	"minos/pkg/ir"
)

// operators maps the words that need no resolution to their opcode.
var operators = map[string]ir.OpCode{
	"+":   ir.Plus,
	"-":   ir.Minus,
	"*":   ir.Multiply,
	"/":   ir.Divide,
	".":   ir.Dump,
	"=":   ir.Equal,
	">":   ir.Greater,
	"<":   ir.Less,
	"dup": ir.Dup,
}

// Resolver accumulates instructions across lines. The zero value is not
// usable; call NewResolver.
type Resolver struct {
	Path string

	code []ir.Instruction
	open []int // backpatch stack: indices of unclosed if/else/while/do
	errs diag.List
	line int
}

func NewResolver(path string) *Resolver {
	return &Resolver{Path: path}
}

// Feed resolves the next source line. The first error on a line abandons
// the rest of that line and is returned; it is also kept for Finish, so
// feeding can continue to collect diagnostics from later lines.
func (r *Resolver) Feed(line string) error {
	r.line++
	for _, w := range words(line) {
		if err := r.word(w); err != nil {
			r.errs = append(r.errs, err)
			return err
		}
	}
	return nil
}

// Open reports how many blocks are waiting for their 'end'.
func (r *Resolver) Open() int { return len(r.open) }

// Failed reports whether any line fed so far had an error.
func (r *Resolver) Failed() bool { return len(r.errs) > 0 }

// Finish closes the input. Blocks that are still open are diagnosed at their
// opening word. On any diagnostic no Program is returned.
func (r *Resolver) Finish() (*ir.Program, error) {
	errs := slices.Clone(r.errs)
	for _, i := range r.open {
		in := r.code[i]
		errs = append(errs, diag.New(in.Pos(), diag.UnclosedBlock, "unclosed block: '%s' is never closed with 'end'", in.Token.Lexeme))
	}
	slices.SortStableFunc(errs, func(a, b *diag.Error) int {
		if c := cmp.Compare(a.Pos.Line, b.Pos.Line); c != 0 {
			return c
		}
		return cmp.Compare(a.Pos.Col, b.Pos.Col)
	})
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return &ir.Program{Source: r.Path, Code: slices.Clone(r.code)}, nil
}

// Lint resolves a whole source file. Every line is scanned even after an
// error so that all diagnostics are reported together.
func Lint(path, src string) (*ir.Program, error) {
	r := NewResolver(path)
	for _, line := range splitLines(src) {
		_ = r.Feed(line)
	}
	return r.Finish()
}

func (r *Resolver) emit(op ir.OpCode, pos diag.Pos, lexeme string, operand ir.Value) {
	r.code = append(r.code, ir.Instruction{
		Token:   ir.Token{Pos: pos, Kind: op, Lexeme: lexeme},
		Op:      op,
		Operand: operand,
	})
}

// pop removes the innermost open block and returns its index, or -1 when
// nothing is open. The entry is consumed even if the caller rejects it.
func (r *Resolver) pop() int {
	if len(r.open) == 0 {
		return -1
	}
	i := r.open[len(r.open)-1]
	r.open = r.open[:len(r.open)-1]
	return i
}

// is reports whether i is an instruction index with one of ops.
func (r *Resolver) is(i int, ops ...ir.OpCode) bool {
	return i >= 0 && slices.Contains(ops, r.code[i].Op)
}

func (r *Resolver) word(w word) *diag.Error {
	pos := diag.Pos{Path: r.Path, Line: r.line, Col: w.col}

	if isNumber(w.text) {
		n, err := strconv.ParseInt(w.text, 10, 32)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return diag.New(pos, diag.BadNumber, "unable to convert '%s' into a number: out of 32-bit range", w.text)
			}
			return diag.New(pos, diag.BadNumber, "unable to convert '%s' into a number", w.text)
		}
		r.emit(ir.Push, pos, w.text, ir.Int32(int32(n)))
		return nil
	}
	if op, ok := operators[w.text]; ok {
		r.emit(op, pos, w.text, ir.Value{})
		return nil
	}

	n := len(r.code)
	switch w.text {
	case "true", "false":
		r.emit(ir.Push, pos, w.text, ir.Bool(w.text == "true"))

	case "if":
		r.open = append(r.open, n)
		r.emit(ir.If, pos, w.text, ir.Value{})

	case "else":
		opener := r.pop()
		if !r.is(opener, ir.If) {
			return diag.New(pos, diag.MismatchedElse, "")
		}
		r.code[opener].Operand = ir.Index(n + 1)
		r.open = append(r.open, n)
		r.emit(ir.Else, pos, w.text, ir.Value{})

	case "while":
		r.open = append(r.open, n)
		r.emit(ir.While, pos, w.text, ir.Value{})

	case "do":
		head := r.pop()
		if !r.is(head, ir.While) {
			return diag.New(pos, diag.DoWithoutWhile, "")
		}
		r.open = append(r.open, n)
		r.emit(ir.Do, pos, w.text, ir.Index(head))

	case "end":
		opener := r.pop()
		switch {
		case r.is(opener, ir.If, ir.Else):
			r.code[opener].Operand = ir.Index(n)
			r.emit(ir.End, pos, w.text, ir.Index(n+1))
		case r.is(opener, ir.Do):
			r.emit(ir.End, pos, w.text, r.code[opener].Operand)
			r.code[opener].Operand = ir.Index(n + 1)
		default:
			return diag.New(pos, diag.OutOfPlaceEnd, "")
		}

	default:
		return diag.New(pos, diag.UnrecognizedToken, "unrecognized token: '%s'", w.text)
	}
	return nil
}

// isNumber reports whether s should be read as an integer literal: it starts
// with a digit, or with a sign followed by a digit.
func isNumber(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
