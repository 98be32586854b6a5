// Package diag defines the positioned diagnostics shared by the minos front
// end, interpreter and code generator.
//
// Every diagnostic renders as "path:line:col: message".
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a diagnostic. A Kind is itself an error so
// that callers can test for a category with errors.Is(err, diag.OutOfPlaceEnd).
type Kind int

const (
	_ Kind = iota

	// Lexical
	BadNumber         // integer literal that does not fit or does not parse
	UnrecognizedToken // word that is neither literal, operator nor keyword

	// Structural
	MismatchedElse // 'else' without an open 'if'
	OutOfPlaceEnd  // 'end' that closes nothing it can close
	DoWithoutWhile // 'do' not preceded by its 'while'
	UnclosedBlock  // opener still pending at end of input

	// Runtime / generation
	StackUnderflow // pop from an empty (or statically empty) stack
	DivisionByZero // integer division by zero
	PoisonedValue  // an operand carried the error sentinel
	StepLimit      // interpreter step budget exhausted
	Unsupported    // construct the selected backend cannot express
)

var kindNames = [...]string{
	BadNumber:         "bad number",
	UnrecognizedToken: "unrecognized token",
	MismatchedElse:    "mismatched if/else",
	OutOfPlaceEnd:     "out-of-place end",
	DoWithoutWhile:    "do must follow while",
	UnclosedBlock:     "unclosed block",
	StackUnderflow:    "stack underflow",
	DivisionByZero:    "division by zero",
	PoisonedValue:     "poisoned value",
	StepLimit:         "step limit exceeded",
	Unsupported:       "unsupported",
}

// messages holds the default text reported for each kind.
var messages = [...]string{
	BadNumber:         "cannot convert token into a 32-bit integer",
	UnrecognizedToken: "unrecognized token",
	MismatchedElse:    "mismatched if/else: 'else' without a preceding 'if'",
	OutOfPlaceEnd:     "out-of-place end: 'end' can only close an 'if', 'else' or 'do'",
	DoWithoutWhile:    "do must follow while: 'do' without a preceding 'while'",
	UnclosedBlock:     "block is never closed with 'end'",
	StackUnderflow:    "segmentation fault: stack underflow, popped from an empty stack",
	DivisionByZero:    "division by zero",
	PoisonedValue:     "internal error: operand holds the error sentinel",
	StepLimit:         "step limit exceeded",
	Unsupported:       "unsupported construct",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error makes a bare Kind usable as a sentinel error.
func (k Kind) Error() string { return k.String() }

// Message returns the default diagnostic text for k.
func (k Kind) Message() string {
	if k > 0 && int(k) < len(messages) {
		return messages[k]
	}
	return k.String()
}

// Pos is a 1-based source location.
type Pos struct {
	Path string
	Line int
	Col  int
}

func (p Pos) String() string {
	path := p.Path
	if path == "" {
		path = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", path, p.Line, p.Col)
}

// Error is a single positioned diagnostic.
type Error struct {
	Pos  Pos
	Kind Kind
	Msg  string
}

// New returns a diagnostic of the given kind. An empty format uses the
// kind's default message.
func New(pos Pos, kind Kind, format string, args ...any) *Error {
	msg := kind.Message()
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Pos: pos, Kind: kind, Msg: msg}
}

// At attaches a position to err. Bare kinds keep their category, any other
// error becomes an Unsupported diagnostic carrying err's text.
func At(pos Pos, err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	var k Kind
	if errors.As(err, &k) {
		return New(pos, k, "")
	}
	return New(pos, Unsupported, "%s", err.Error())
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Is reports whether target is e's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// List collects the diagnostics of one resolution pass in source order.
type List []*Error

func (l List) Error() string {
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the individual diagnostics to errors.Is and errors.As.
func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns l as an error, or nil when l is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Flatten returns every positioned diagnostic contained in err, in order.
// Errors without a position are not included.
func Flatten(err error) []*Error {
	if err == nil {
		return nil
	}
	var l List
	if errors.As(err, &l) {
		return l
	}
	var e *Error
	if errors.As(err, &e) {
		return []*Error{e}
	}
	return nil
}
