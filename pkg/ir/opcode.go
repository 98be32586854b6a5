package ir

import "fmt"

// OpCode identifies what an Instruction does.
type OpCode int

const (
	Push OpCode = iota // push the operand

	// Arithmetic
	Plus     // +
	Minus    // -
	Multiply // *
	Divide   // /

	Dump // . pop and print

	// Comparison (push a Bool)
	Equal   // =
	Greater // >
	Less    // <

	Dup // duplicate the top of stack

	// Control flow; the operand is a resolved instruction index.
	If    // pop; jump to operand when falsy
	Else  // jump to operand
	While // loop head marker
	Do    // pop; jump to operand (loop exit) when falsy
	End   // jump to operand when it is a loop back-edge
)

var opNames = [...]string{
	Push:     "PUSH",
	Plus:     "PLUS",
	Minus:    "MINUS",
	Multiply: "MULTIPLY",
	Divide:   "DIVIDE",
	Dump:     "DUMP",
	Equal:    "EQUAL",
	Greater:  "GREATER",
	Less:     "LESS",
	Dup:      "DUP",
	If:       "IF",
	Else:     "ELSE",
	While:    "WHILE",
	Do:       "DO",
	End:      "END",
}

func (op OpCode) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("OpCode(%d)", int(op))
}

// Pops is the number of values op removes from the stack.
func (op OpCode) Pops() int {
	switch op {
	case Plus, Minus, Multiply, Divide, Equal, Greater, Less:
		return 2
	case Dump, Dup, If, Do:
		return 1
	}
	return 0
}

// Pushes is the number of values op leaves on the stack afterwards.
func (op OpCode) Pushes() int {
	switch op {
	case Push, Plus, Minus, Multiply, Divide, Equal, Greater, Less:
		return 1
	case Dup:
		return 2
	}
	return 0
}

// IsArith reports whether op is one of + - * /.
func (op OpCode) IsArith() bool {
	return op == Plus || op == Minus || op == Multiply || op == Divide
}

// IsCompare reports whether op is one of = > <.
func (op OpCode) IsCompare() bool {
	return op == Equal || op == Greater || op == Less
}

// IsControl reports whether op's operand is a jump target.
func (op OpCode) IsControl() bool {
	return op == If || op == Else || op == Do || op == End
}
