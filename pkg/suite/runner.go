package suite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"

	"minos/pkg/codegen"
	"minos/pkg/frontend"
	"minos/pkg/interp"
	"minos/pkg/toolchain"
)

// Result is the outcome of one case on one backend.
type Result struct {
	Suite   string
	Case    string
	Backend Backend
	Passed  bool
	Skipped bool
	Reason  string // why the case failed or was skipped
	Stdout  string
}

// Results collects every outcome of a run.
type Results []Result

// Counts returns the number of passed, failed and skipped results.
func (rs Results) Counts() (passed, failed, skipped int) {
	for _, r := range rs {
		switch {
		case r.Skipped:
			skipped++
		case r.Passed:
			passed++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}

// Failures returns only the failed results.
func (rs Results) Failures() Results {
	var out Results
	for _, r := range rs {
		if !r.Passed && !r.Skipped {
			out = append(out, r)
		}
	}
	return out
}

// Runner executes suites.
type Runner struct {
	Toolchain  *toolchain.Toolchain
	StackCheck codegen.StackCheck
	MaxSteps   int

	// WorkDir holds native builds. A temporary directory is used when empty.
	WorkDir string
	// Progress receives a progress bar. Nil disables it.
	Progress io.Writer
	Logger   *slog.Logger

	native     bool
	nativeWhy  string
	workDir    string
	buildCount int
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// nativeAvailable decides once per run whether native cases can execute.
func (r *Runner) nativeAvailable() {
	r.native = false
	if ok, machine := toolchain.HostCanRun(); !ok {
		r.nativeWhy = "native executables do not run on " + machine
		return
	}
	if r.Toolchain == nil {
		r.Toolchain = toolchain.Default()
	}
	for _, tool := range []string{r.Toolchain.Assembler, r.Toolchain.Linker} {
		if _, err := exec.LookPath(tool); err != nil {
			r.nativeWhy = tool + " not found"
			return
		}
	}
	r.native = true
}

// Run executes every case of every spec.
func (r *Runner) Run(ctx context.Context, specs []*Spec) (Results, error) {
	r.nativeAvailable()
	if !r.native {
		r.logger().Warn("native backend unavailable, skipping native cases", "reason", r.nativeWhy)
	}

	r.workDir = r.WorkDir
	if r.workDir == "" {
		dir, err := os.MkdirTemp("", "minos-suite-")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(dir)
		r.workDir = dir
	}

	total := 0
	for _, s := range specs {
		for i := range s.Cases {
			total += len(s.backends(&s.Cases[i]))
		}
	}
	var bar *progressbar.ProgressBar
	if r.Progress != nil {
		bar = progressbar.NewOptions64(int64(total),
			progressbar.OptionSetWriter(r.Progress),
			progressbar.OptionSetDescription("running cases"),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
	}

	var results Results
	for _, s := range specs {
		r.logger().Debug("running suite", "name", s.Name, "path", s.Path, "cases", len(s.Cases))
		for i := range s.Cases {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, r.runCase(ctx, s, &s.Cases[i])...)
			if bar != nil {
				_ = bar.Add(len(s.backends(&s.Cases[i])))
			}
		}
	}
	return results, nil
}

// outcome is what a backend produced for a case.
type outcome struct {
	stdout string
	err    error
}

func (r *Runner) runCase(ctx context.Context, s *Spec, c *Case) Results {
	var out Results
	var interpOut *outcome
	for _, b := range s.backends(c) {
		res := Result{Suite: s.Name, Case: c.Name, Backend: b}
		if c.Skip {
			res.Skipped, res.Reason = true, "skipped by suite"
			out = append(out, res)
			continue
		}

		var o outcome
		switch b {
		case Interp:
			o = r.runInterp(c)
			interpOut = &o
		case Native:
			if !r.native {
				res.Skipped, res.Reason = true, r.nativeWhy
				out = append(out, res)
				continue
			}
			o = r.runNative(ctx, c)
		}
		res.Stdout = o.stdout
		res.Reason = check(c, o)
		if res.Reason == "" && b == Native && interpOut != nil && interpOut.err == nil && o.err == nil && o.stdout != interpOut.stdout {
			res.Reason = fmt.Sprintf("output %q differs from interpreter output %q", o.stdout, interpOut.stdout)
		}
		res.Passed = res.Reason == ""
		out = append(out, res)
	}
	return out
}

// check compares an outcome with the case's expectations and returns the
// failure reason, or "" when it matches.
func check(c *Case, o outcome) string {
	if c.Error == "" && o.err != nil {
		return "unexpected error: " + o.err.Error()
	}
	if c.Error != "" {
		if o.err == nil {
			return fmt.Sprintf("expected an error containing %q, program succeeded", c.Error)
		}
		if !strings.Contains(o.err.Error(), c.Error) {
			return fmt.Sprintf("error %q does not contain %q", o.err.Error(), c.Error)
		}
	}
	if c.Stdout != nil && o.stdout != *c.Stdout {
		return fmt.Sprintf("stdout %q, want %q", o.stdout, *c.Stdout)
	}
	return ""
}

func (r *Runner) runInterp(c *Case) outcome {
	p, err := frontend.Lint(c.Name, c.Source)
	if err != nil {
		return outcome{err: err}
	}
	var buf bytes.Buffer
	m := interp.New(p)
	m.Output = &buf
	m.MaxSteps = r.MaxSteps
	err = m.Run()
	return outcome{stdout: buf.String(), err: err}
}

func (r *Runner) runNative(ctx context.Context, c *Case) outcome {
	p, err := frontend.Lint(c.Name, c.Source)
	if err != nil {
		return outcome{err: err}
	}
	code, err := codegen.Generate(p, codegen.Options{StackCheck: r.StackCheck})
	if err != nil {
		return outcome{err: err}
	}

	r.buildCount++
	src := filepath.Join(r.workDir, fmt.Sprintf("case%d.minos", r.buildCount))
	paths, err := toolchain.OutputPaths(src, "", "")
	if err != nil {
		return outcome{err: err}
	}
	if err := r.Toolchain.Build(ctx, code, paths, false); err != nil {
		return outcome{err: err}
	}
	defer os.Remove(paths.Exe)

	var buf bytes.Buffer
	err = toolchain.Run(ctx, paths.Exe, &buf, io.Discard)
	return outcome{stdout: buf.String(), err: err}
}
