package ir

import (
	"fmt"

	"minos/pkg/diag"
)

// Token records where an instruction came from.
type Token struct {
	Pos    diag.Pos
	Kind   OpCode
	Lexeme string // the exact source word
}

func (t Token) String() string {
	return fmt.Sprintf("%-8s %-8q %s", t.Kind, t.Lexeme, t.Pos)
}
