// Package toolchain drives the external assembler and linker that turn
// generated NASM source into a Linux executable.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"minos/pkg/asm"
)

// Toolchain names the external tools and their fixed arguments.
type Toolchain struct {
	Assembler     string
	AssemblerArgs []string
	Linker        string
	LinkerArgs    []string

	// Stdout and Stderr receive tool output as it is produced. Stderr is
	// also kept and attached to the error when a tool fails.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives one record per tool invocation. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// Default returns the NASM/ld toolchain for 64-bit ELF.
func Default() *Toolchain {
	return &Toolchain{
		Assembler:     "nasm",
		AssemblerArgs: []string{"-felf64"},
		Linker:        "ld",
	}
}

func (t *Toolchain) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// ToolError is returned when an external tool exits unsuccessfully.
type ToolError struct {
	Tool   string
	Args   []string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

func (t *Toolchain) run(ctx context.Context, tool string, args ...string) error {
	t.logger().Debug("running tool", "tool", tool, "args", args)

	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if t.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, t.Stderr)
	}
	cmd.Stdout = t.Stdout

	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: tool, Args: args, Err: err, Stderr: stderr.String()}
	}
	return nil
}

// Assemble turns asmPath into the object file objPath.
func (t *Toolchain) Assemble(ctx context.Context, asmPath, objPath string) error {
	args := append(append([]string(nil), t.AssemblerArgs...), "-o", objPath, asmPath)
	t.logger().Info("assembling", "source", asmPath, "object", objPath)
	return t.run(ctx, t.Assembler, args...)
}

// Link turns objPath into the executable exePath.
func (t *Toolchain) Link(ctx context.Context, objPath, exePath string) error {
	args := append(append([]string(nil), t.LinkerArgs...), "-o", exePath, objPath)
	t.logger().Info("linking", "object", objPath, "executable", exePath)
	return t.run(ctx, t.Linker, args...)
}

// WriteAsm writes the generated source to path: create, write, close.
func WriteAsm(path, code string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Build checks code, writes it to p.Asm, then assembles and links it into
// p.Exe. Unless keep is set the assembly and object files are removed
// afterwards, whether or not the build succeeded.
func (t *Toolchain) Build(ctx context.Context, code string, p Paths, keep bool) error {
	labels, err := asm.Check(code)
	if err != nil {
		return fmt.Errorf("generated assembly rejected: %w", err)
	}
	t.logger().Debug("assembly checked", "labels", len(labels))
	if !keep {
		defer func() {
			for _, f := range p.Intermediates() {
				if rmErr := os.Remove(f); rmErr != nil && !os.IsNotExist(rmErr) {
					t.logger().Warn("could not remove intermediate", "path", f, "err", rmErr)
				}
			}
		}()
	}
	if err := WriteAsm(p.Asm, code); err != nil {
		return err
	}
	if err := t.Assemble(ctx, p.Asm, p.Object); err != nil {
		return err
	}
	return t.Link(ctx, p.Object, p.Exe)
}

// Run executes a built program, sending its output to stdout and stderr.
func Run(ctx context.Context, exe string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, exe)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", exe, err)
	}
	return nil
}
