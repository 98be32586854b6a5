package toolchain_test

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"minos/pkg/codegen"
	"minos/pkg/frontend"
	"minos/pkg/interp"
	"minos/pkg/toolchain"
)

func requireNative(t *testing.T) *toolchain.Toolchain {
	t.Helper()
	if ok, machine := toolchain.HostCanRun(); !ok {
		t.Skipf("native executables do not run on %s", machine)
	}
	tc := toolchain.Default()
	for _, tool := range []string{tc.Assembler, tc.Linker} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}
	return tc
}

// TestNativeMatchesInterpreter builds each program and compares the
// executable's output with the interpreter's.
func TestNativeMatchesInterpreter(t *testing.T) {
	tc := requireNative(t)
	programs := map[string]string{
		"add":         "2 3 + .",
		"compare":     "3 5 > . 5 3 > . 3 5 < . 4 4 = .",
		"dup":         "5 dup + .",
		"negative":    "0 7 - . -2147483648 .",
		"wrap":        "2147483647 1 + .",
		"divide":      "-7 2 / . 20 4 / .",
		"multiply":    "-4 6 * .",
		"if else":     "0 if 10 . else 20 . end 1 if 30 . end",
		"countdown":   "5 while dup 0 > do dup . 1 - end",
		"bool arith":  "true true + . 9 true = .",
		"nested loop": "2 while dup do 2 while dup do dup . 1 - end . 1 - end",
	}

	for name, src := range programs {
		t.Run(name, func(t *testing.T) {
			p, err := frontend.Lint(name+".minos", src)
			if err != nil {
				t.Fatalf("Lint: %v", err)
			}

			var want bytes.Buffer
			m := interp.New(p)
			m.Output = &want
			if err := m.Run(); err != nil {
				t.Fatalf("interpreter: %v", err)
			}

			code, err := codegen.Generate(p, codegen.Options{})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			paths, err := toolchain.OutputPaths(filepath.Join(t.TempDir(), "prog.minos"), "", "")
			if err != nil {
				t.Fatal(err)
			}
			if err := tc.Build(context.Background(), code, paths, false); err != nil {
				t.Fatalf("Build: %v", err)
			}
			var got bytes.Buffer
			if err := toolchain.Run(context.Background(), paths.Exe, &got, nil); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got.String() != want.String() {
				t.Errorf("native output %q, interpreter output %q", got.String(), want.String())
			}
		})
	}
}
