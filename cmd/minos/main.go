// Command minos runs, compiles and tests minos programs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/term"

	"minos/pkg/codegen"
	"minos/pkg/config"
	"minos/pkg/diag"
	"minos/pkg/frontend"
	"minos/pkg/interp"
	"minos/pkg/ir"
	"minos/pkg/suite"
	"minos/pkg/toolchain"
)

const version = "0.3.0"

func usage() {
	fmt.Fprintln(os.Stderr, `usage: minos <command> [flags] [args]

commands:
  run FILE        interpret a program
  compile FILE    compile a program to a native executable
  ir FILE         print the resolved instruction listing
  repl            start an interactive session
  test [PATH...]  run YAML suites (default: suites)
  doctor          check the assembler, linker and host
  version         print the version

Run "minos <command> -h" for the flags of a command.`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "run":
		os.Exit(cmdRun(args))
	case "compile":
		os.Exit(cmdCompile(args))
	case "ir":
		os.Exit(cmdIR(args))
	case "repl":
		os.Exit(cmdRepl(args))
	case "test":
		os.Exit(cmdTest(args))
	case "doctor":
		os.Exit(cmdDoctor(args))
	case "version", "-version", "--version":
		fmt.Println("minos", version)
	case "help", "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

// common holds the flags every subcommand accepts.
type common struct {
	configPath string
	verbose    bool
	color      string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "configuration file (default: ./"+config.FileName+" if present)")
	fs.BoolVar(&c.verbose, "v", false, "log toolchain and suite activity")
	fs.StringVar(&c.color, "color", "", "colour diagnostics: auto, always or never (overrides config)")
}

// env is what a subcommand needs after flag parsing.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	printer *diag.Printer
}

func (c *common) setup() (*env, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, err := config.Discover(c.configPath, ".")
	if err != nil {
		return nil, err
	}
	if c.color != "" {
		cfg.Diagnostics.Color = c.color
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("-color: %w", err)
		}
	}
	if cfg.Path != "" {
		log.Debug("loaded config", "path", cfg.Path)
	}
	return &env{
		cfg:     cfg,
		log:     log,
		printer: diag.NewPrinter(os.Stderr, diag.ColorMode(cfg.Diagnostics.Color), "minos"),
	}, nil
}

func (e *env) toolchain() *toolchain.Toolchain {
	tc := e.cfg.Toolchain
	return &toolchain.Toolchain{
		Assembler:     tc.Assembler,
		AssemblerArgs: tc.AssemblerArgs,
		Linker:        tc.Linker,
		LinkerArgs:    tc.LinkerArgs,
		Stderr:        os.Stderr,
		Logger:        e.log,
	}
}

// parse parses args and returns the environment. It reports problems itself
// and returns a non-zero exit code when the command cannot continue.
func parse(fs *flag.FlagSet, c *common, args []string) (*env, int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, 0
		}
		return nil, 2
	}
	e, err := c.setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return nil, 1
	}
	return e, -1
}

func oneFile(fs *flag.FlagSet) (string, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: minos %s [flags] FILE\n", fs.Name())
		fs.PrintDefaults()
		return "", false
	}
	return fs.Arg(0), true
}

// load reads and resolves a source file, printing any diagnostics.
func (e *env) load(path string) (*ir.Program, bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos: read error:", err)
		return nil, false
	}
	p, err := frontend.Lint(path, string(src))
	if err != nil {
		e.printer.Print(err)
		return nil, false
	}
	e.log.Debug("resolved", "path", path, "instructions", p.Len())
	return p, true
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var c common
	c.register(fs)
	corePath := fs.String("core", "", "write a JSON core dump here when the program faults")
	maxSteps := fs.Int("max-steps", 0, "abort after this many instructions (0: no limit)")
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}
	path, ok := oneFile(fs)
	if !ok {
		return 2
	}
	p, ok := e.load(path)
	if !ok {
		return 1
	}

	out := bufio.NewWriter(os.Stdout)
	m := interp.New(p)
	m.Output = out
	m.MaxSteps = *maxSteps
	err := m.Run()
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err == nil {
		return 0
	}
	e.printer.Print(err)
	if *corePath != "" && m.Fault != nil {
		if cerr := m.WriteCore(*corePath); cerr != nil {
			fmt.Fprintln(os.Stderr, "minos:", cerr)
		} else {
			fmt.Fprintf(os.Stderr, "core dumped to %s\n", *corePath)
		}
	}
	return 1
}

func cmdCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	var c common
	c.register(fs)
	outPath := fs.String("o", "", "executable path (default: source without its extension)")
	asmOnly := fs.Bool("S", false, "write the assembly file only")
	runAfter := fs.Bool("run", false, "run the executable after linking")
	stack := fs.String("stack", "", "build-time stack check: flow, linear or off (overrides config)")
	keep := fs.Bool("keep", false, "keep the .asm and .o files even if the config says otherwise")
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}
	path, ok := oneFile(fs)
	if !ok {
		return 2
	}

	mode := e.cfg.Check.Stack
	if *stack != "" {
		mode = *stack
	}
	check, err := codegen.ParseStackCheck(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 2
	}

	p, ok := e.load(path)
	if !ok {
		return 1
	}
	asmText, err := codegen.Generate(p, codegen.Options{StackCheck: check})
	if err != nil {
		e.printer.Print(err)
		return 1
	}

	paths, err := toolchain.OutputPaths(path, e.cfg.Build.OutputDir, *outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	if *asmOnly {
		if err := toolchain.WriteAsm(paths.Asm, asmText); err != nil {
			fmt.Fprintln(os.Stderr, "minos:", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", paths.Asm)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tc := e.toolchain()
	if err := tc.CheckAssembler(ctx, e.cfg.Toolchain.MinAssemblerVersion); err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	if err := tc.Build(ctx, asmText, paths, *keep || e.cfg.Build.Keep()); err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	e.log.Info("built", "exe", paths.Exe)
	if !*runAfter {
		return 0
	}
	if err := toolchain.Run(ctx, paths.Exe, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	return 0
}

func cmdIR(args []string) int {
	fs := flag.NewFlagSet("ir", flag.ContinueOnError)
	var c common
	c.register(fs)
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}
	path, ok := oneFile(fs)
	if !ok {
		return 2
	}
	p, ok := e.load(path)
	if !ok {
		return 1
	}
	out := bufio.NewWriter(os.Stdout)
	if err := p.Format(out); err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	if err := out.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}
	return 0
}

func cmdTest(args []string) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c common
	c.register(fs)
	maxSteps := fs.Int("max-steps", 1_000_000, "interpreter step limit per case")
	stack := fs.String("stack", "", "build-time stack check for native cases (overrides config)")
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"suites"}
	}

	mode := e.cfg.Check.Stack
	if *stack != "" {
		mode = *stack
	}
	check, err := codegen.ParseStackCheck(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 2
	}

	specs, err := suite.Load(paths...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Tool stderr is attached to failures instead of streamed.
	tc := e.toolchain()
	tc.Stderr = nil
	r := &suite.Runner{
		Toolchain:  tc,
		StackCheck: check,
		MaxSteps:   *maxSteps,
		Logger:     e.log,
	}
	if term.IsTerminal(int(os.Stderr.Fd())) && !c.verbose {
		r.Progress = os.Stderr
	}
	results, err := r.Run(ctx, specs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos:", err)
		return 1
	}

	for _, f := range results.Failures() {
		fmt.Printf("FAIL %s/%s [%s]: %s\n", f.Suite, f.Case, f.Backend, f.Reason)
	}
	passed, failed, skipped := results.Counts()
	fmt.Printf("%d passed, %d failed, %d skipped\n", passed, failed, skipped)
	if failed > 0 {
		return 1
	}
	return 0
}

func cmdDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	var c common
	c.register(fs)
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}

	status := 0
	if e.cfg.Path != "" {
		fmt.Printf("config:    %s\n", e.cfg.Path)
	} else {
		fmt.Printf("config:    defaults (no %s)\n", config.FileName)
	}

	asmInfo, ldInfo := e.toolchain().Probe(context.Background())
	for _, t := range []struct {
		label string
		info  toolchain.ToolInfo
	}{{"assembler", asmInfo}, {"linker", ldInfo}} {
		if t.info.Err != nil {
			fmt.Printf("%-10s %s: %v\n", t.label+":", t.info.Name, t.info.Err)
			status = 1
			continue
		}
		v := t.info.Version
		if v == "" {
			v = "unknown version"
		}
		fmt.Printf("%-10s %s (%s)\n", t.label+":", t.info.Path, v)
	}

	if minimum := e.cfg.Toolchain.MinAssemblerVersion; asmInfo.Err == nil && asmInfo.Version != "" && minimum != "" {
		ok, err := toolchain.AtLeast(asmInfo.Version, minimum)
		switch {
		case err != nil:
			fmt.Printf("version:   cannot compare: %v\n", err)
			status = 1
		case !ok:
			fmt.Printf("version:   %s is older than the required %s\n", asmInfo.Version, minimum)
			status = 1
		default:
			fmt.Printf("version:   ok (>= %s)\n", minimum)
		}
	}

	if ok, machine := toolchain.HostCanRun(); ok {
		fmt.Printf("host:      %s, native executables can run\n", machine)
	} else {
		fmt.Printf("host:      %s, native executables cannot run here\n", machine)
		status = 1
	}
	if dir := e.cfg.Build.OutputDir; dir != "" {
		abs, _ := filepath.Abs(dir)
		fmt.Printf("output:    %s\n", abs)
	}
	fmt.Printf("stack:     %s\n", e.cfg.Check.Stack)
	return status
}
