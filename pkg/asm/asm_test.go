package asm

import (
	"strings"
	"testing"
)

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"abc", true},
		{"_abc", true},
		{"INSTRUCTION_12", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	if got := qualify("_start", ".EXIT"); got != "_start.EXIT" {
		t.Errorf("qualify = %q", got)
	}
	if got := qualify("_start", "dump"); got != "dump" {
		t.Errorf("qualify = %q", got)
	}
	if got := stripComments("    push    5 ; t:1:1 PUSH"); strings.Contains(got, "PUSH") {
		t.Errorf("stripComments = %q", got)
	}
}

func TestParseLine(t *testing.T) {
	p, err := parseLine(".INSTRUCTION_0:   pop rbx ; comment", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.labels) != 1 || p.labels[0] != ".INSTRUCTION_0" {
		t.Errorf("labels = %v", p.labels)
	}
	if p.mnemonic != "POP" || len(p.operands) != 1 || p.operands[0] != "rbx" {
		t.Errorf("parsed = %+v", p)
	}

	p, err = parseLine("    mov     BYTE [rsi], 10", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.operands) != 2 || p.operands[0] != "BYTE [rsi]" {
		t.Errorf("operands = %q", p.operands)
	}

	if _, err := parseLine("bad-label: ret", 7); err == nil || !strings.Contains(err.Error(), "line 7") {
		t.Errorf("expected invalid label error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	src := `segment .text
helper:
.loop:
    dec     rdi
    jnz     .loop
    ret
global _start
_start:
.loop:
    mov     rdi, 3
    call    helper
    jmp     .EXIT
.EXIT:
    mov     rax, 60
    syscall
`
	labels, err := Check(src)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	for name, line := range map[string]int{"helper": 2, "helper.loop": 3, "_start.loop": 9, "_start.EXIT": 13} {
		if labels[name] != line {
			t.Errorf("label %s on line %d, want %d", name, labels[name], line)
		}
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"duplicate", "_start:\n.a:\n.a:\n", "duplicate label '.a' on line 3"},
		{"undefined", "_start:\n    jmp .nowhere\n", "undefined label '.nowhere' on line 2"},
		{"local from other scope", "a:\n.x:\nb:\n    jz .x\n", "undefined label '.x' on line 4"},
		{"unknown instruction", "_start:\n    vmovdqa ymm0, ymm1\n", "unknown instruction on line 2: VMOVDQA"},
		{"operand count", "_start:\n    push rax, rbx\n", "PUSH expects 1 operand(s) on line 2, got 2"},
		{"empty operand", "_start:\n    mov rax,\n", "empty operand on line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}
