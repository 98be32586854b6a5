// Package asm checks generated x86-64 NASM source before it is handed to the
// external assembler. It does not encode anything: pass 1 collects labels,
// pass 2 verifies that every instruction is one the generator is allowed to
// emit and that every branch target resolves.
package asm

import (
	"fmt"
	"strings"
	"unicode"
)

// operandCounts lists the accepted mnemonics and how many operands each takes.
var operandCounts = map[string]int{
	"ADD":     2,
	"SUB":     2,
	"IMUL":    2,
	"IDIV":    1,
	"DIV":     1,
	"CQO":     0,
	"NEG":     1,
	"INC":     1,
	"DEC":     1,
	"MOV":     2,
	"MOVZX":   2,
	"MOVSXD":  2,
	"LEA":     2,
	"PUSH":    1,
	"POP":     1,
	"CMP":     2,
	"TEST":    2,
	"XOR":     2,
	"SETNZ":   1,
	"CMOVE":   2,
	"CMOVG":   2,
	"CMOVL":   2,
	"JMP":     1,
	"JZ":      1,
	"JNZ":     1,
	"JNS":     1,
	"CALL":    1,
	"RET":     0,
	"SYSCALL": 0,
}

var branchOps = map[string]bool{
	"JMP":  true,
	"JZ":   true,
	"JNZ":  true,
	"JNS":  true,
	"CALL": true,
}

// directives are accepted and otherwise ignored.
var directives = map[string]bool{
	"BITS":    true,
	"SEGMENT": true,
	"SECTION": true,
	"GLOBAL":  true,
}

// Checker holds the label table of one Check run.
type Checker struct {
	labels map[string]int // qualified label -> defining line
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewChecker() *Checker {
	return &Checker{labels: make(map[string]int)}
}

// Check validates code and returns the label table, keyed by qualified name
// ("_start.INSTRUCTION_3" for local labels) with the defining line number.
func Check(code string) (map[string]int, error) {
	c := NewChecker()
	if err := c.Check(code); err != nil {
		return nil, err
	}
	return c.labels, nil
}

func (c *Checker) Check(code string) error {
	lines := strings.Split(code, "\n")
	if err := c.pass1(lines); err != nil {
		return err
	}
	return c.pass2(lines)
}

func (c *Checker) pass1(lines []string) error {
	scope := ""
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		for _, lbl := range p.labels {
			key := qualify(scope, lbl)
			if !isLocal(lbl) {
				scope = lbl
			}
			if prev, exists := c.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d (first defined on line %d)", lbl, lineNo, prev)
			}
			c.labels[key] = lineNo
		}
	}
	return nil
}

func (c *Checker) pass2(lines []string) error {
	scope := ""
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		for _, lbl := range p.labels {
			if !isLocal(lbl) {
				scope = lbl
			}
		}
		if p.mnemonic == "" || directives[p.mnemonic] {
			continue
		}

		want, ok := operandCounts[p.mnemonic]
		if !ok {
			return fmt.Errorf("unknown instruction on line %d: %s", lineNo, p.mnemonic)
		}
		if len(p.operands) != want {
			return fmt.Errorf("%s expects %d operand(s) on line %d, got %d", p.mnemonic, want, lineNo, len(p.operands))
		}

		if branchOps[p.mnemonic] {
			target := p.operands[0]
			if !isIdentifier(strings.TrimPrefix(target, ".")) {
				return fmt.Errorf("invalid branch target '%s' on line %d", target, lineNo)
			}
			if _, ok := c.labels[qualify(scope, target)]; !ok {
				return fmt.Errorf("undefined label '%s' on line %d", target, lineNo)
			}
		}
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}
	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t[") {
			break
		}
		if !isIdentifier(strings.TrimPrefix(beforeColon, ".")) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}
		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, rest = line[:i], line[i+1:]
	}
	p.mnemonic = strings.ToUpper(mnemonic)
	rest = strings.TrimSpace(rest)
	if rest == "" || directives[p.mnemonic] {
		return p, nil
	}
	for _, op := range strings.Split(rest, ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			return p, fmt.Errorf("empty operand on line %d", lineNo)
		}
		p.operands = append(p.operands, op)
	}
	return p, nil
}

func stripComments(line string) string {
	if cut := strings.IndexByte(line, ';'); cut >= 0 {
		return line[:cut]
	}
	return line
}

func isLocal(label string) bool {
	return strings.HasPrefix(label, ".")
}

// qualify resolves a local label against the enclosing non-local label,
// the way NASM does.
func qualify(scope, label string) string {
	if isLocal(label) {
		return scope + label
	}
	return label
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
