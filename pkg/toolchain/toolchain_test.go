package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestOutputPaths(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.minos")

	p, err := OutputPaths(src, "", "")
	if err != nil {
		t.Fatal(err)
	}
	want := Paths{
		Source: src,
		Asm:    filepath.Join(dir, "prog.asm"),
		Object: filepath.Join(dir, "prog.o"),
		Exe:    filepath.Join(dir, "prog"),
	}
	if p != want {
		t.Errorf("OutputPaths = %+v, want %+v", p, want)
	}

	out := filepath.Join(dir, "build")
	p, err = OutputPaths(src, out, filepath.Join(dir, "bin", "app"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Asm != filepath.Join(out, "prog.asm") || p.Exe != filepath.Join(dir, "bin", "app") {
		t.Errorf("with overrides = %+v", p)
	}

	p, err = OutputPaths(filepath.Join(dir, "noext"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Exe != filepath.Join(dir, "noext.out") {
		t.Errorf("exe for extensionless source = %s", p.Exe)
	}
	if got := p.Intermediates(); len(got) != 2 || got[0] != p.Asm {
		t.Errorf("Intermediates = %v", got)
	}
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"2.16.01", "v2.16.1", false},
		{"2.10", "v2.10.0", false},
		{"v3", "v3.0.0", false},
		{"2.x", "", true},
		{"", "", true},
		{"1.2.3.4", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalVersion(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("CanonicalVersion(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct{ banner, want string }{
		{"NASM version 2.16.01 compiled on Jan  1 2024\n", "v2.16.1"},
		{"GNU ld (GNU Binutils for Ubuntu) 2.42\n", "v2.42.0"},
		{"GNU ld version 2.30-119.el8\n", "v2.30.0"},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.banner)
		if err != nil || got != tt.want {
			t.Errorf("ParseVersion(%q) = %q, %v; want %q", tt.banner, got, err, tt.want)
		}
	}
	if _, err := ParseVersion(""); err == nil {
		t.Errorf("expected error for empty banner")
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		have, minimum string
		want          bool
	}{
		{"2.16.01", "2.10", true},
		{"2.9", "2.10", false},
		{"v2.10.0", "2.10", true},
	}
	for _, tt := range tests {
		got, err := AtLeast(tt.have, tt.minimum)
		if err != nil || got != tt.want {
			t.Errorf("AtLeast(%q, %q) = %v, %v", tt.have, tt.minimum, got, err)
		}
	}
}

// fakeTool writes a shell script standing in for an external tool. It
// records its arguments and creates the file named after -o.
func fakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const touchOutput = `echo "$@" >> "$(dirname "$0")/calls"
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then shift; : > "$1"; fi
  shift
done`

func TestBuildWithFakeTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	tc := &Toolchain{
		Assembler:     fakeTool(t, dir, "fake-nasm", touchOutput),
		AssemblerArgs: []string{"-felf64"},
		Linker:        fakeTool(t, dir, "fake-ld", touchOutput),
	}
	p, err := OutputPaths(filepath.Join(dir, "prog.minos"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Build(context.Background(), "; empty\n", p, false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(p.Exe); err != nil {
		t.Errorf("executable not produced: %v", err)
	}
	for _, f := range p.Intermediates() {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("intermediate %s should be removed, stat err = %v", f, err)
		}
	}
	calls, _ := os.ReadFile(filepath.Join(dir, "calls"))
	lines := strings.Split(strings.TrimSpace(string(calls)), "\n")
	if len(lines) != 2 || lines[0] != "-felf64 -o "+p.Object+" "+p.Asm || lines[1] != "-o "+p.Exe+" "+p.Object {
		t.Errorf("tool calls = %q", lines)
	}
}

func TestBuildKeepsIntermediatesAndReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	tc := &Toolchain{
		Assembler: fakeTool(t, dir, "fake-nasm", touchOutput),
		Linker:    fakeTool(t, dir, "bad-ld", "echo 'undefined reference to dump' >&2\nexit 3"),
	}
	p, err := OutputPaths(filepath.Join(dir, "prog.minos"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	err = tc.Build(context.Background(), "_start:\n", p, true)
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *ToolError", err)
	}
	if !strings.Contains(te.Error(), "undefined reference to dump") {
		t.Errorf("stderr not attached: %q", te.Error())
	}
	data, err := os.ReadFile(p.Asm)
	if err != nil || string(data) != "_start:\n" {
		t.Errorf("assembly file = %q, %v", data, err)
	}
}

func TestProbeMissingTool(t *testing.T) {
	tc := &Toolchain{Assembler: "definitely-not-an-assembler-xyz", Linker: "definitely-not-a-linker-xyz"}
	a, l := tc.Probe(context.Background())
	if a.Err == nil || l.Err == nil {
		t.Errorf("expected lookup errors, got %+v %+v", a, l)
	}
	if err := tc.CheckAssembler(context.Background(), "2.10"); err == nil {
		t.Errorf("CheckAssembler should fail for a missing tool")
	}
}

func TestProbeFakeVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	tc := &Toolchain{
		Assembler: fakeTool(t, dir, "old-nasm", "echo 'NASM version 2.09.10 compiled on Jan  1 2010'"),
		Linker:    fakeTool(t, dir, "new-ld", "echo 'GNU ld (GNU Binutils) 2.42'"),
	}
	a, l := tc.Probe(context.Background())
	if a.Version != "v2.9.10" || l.Version != "v2.42.0" {
		t.Errorf("versions = %q, %q", a.Version, l.Version)
	}
	if err := tc.CheckAssembler(context.Background(), "2.10"); err == nil || !strings.Contains(err.Error(), "need at least 2.10") {
		t.Errorf("CheckAssembler = %v", err)
	}
	if err := tc.CheckAssembler(context.Background(), "2.09"); err != nil {
		t.Errorf("CheckAssembler(2.09) = %v", err)
	}
}

func TestBuildRejectsBadAssembly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	tc := &Toolchain{
		Assembler: fakeTool(t, dir, "fake-nasm", touchOutput),
		Linker:    fakeTool(t, dir, "fake-ld", touchOutput),
	}
	p, err := OutputPaths(filepath.Join(dir, "prog.minos"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	err = tc.Build(context.Background(), "_start:\n    jmp .nowhere\n", p, true)
	if err == nil || !strings.Contains(err.Error(), "undefined label") {
		t.Fatalf("Build error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "calls")); !os.IsNotExist(err) {
		t.Errorf("assembler ran on rejected code")
	}
}
