package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"minos/pkg/diag"
	"minos/pkg/frontend"
	"minos/pkg/interp"
	"minos/pkg/ir"
)

const (
	promptMain = "minos> "
	promptCont = "...    "
)

const replHelp = `:stack        show the stack, bottom first
:clear        empty the stack
:ir           list the last program that ran
:core FILE    save the stack and machine state to FILE
:load FILE    replace the stack with the one saved in FILE
:quit         leave (also Ctrl-D)`

// session is the REPL state. Lines are resolved one at a time; a program
// runs once every block it opened has been closed. The stack survives from
// one program to the next.
type session struct {
	m       *interp.Machine
	res     *frontend.Resolver
	last    *ir.Program
	out     io.Writer
	printer *diag.Printer
}

func newSession(out io.Writer, printer *diag.Printer) *session {
	m := interp.New(nil)
	m.Output = out
	return &session{m: m, out: out, printer: printer}
}

func (s *session) prompt() string {
	if s.res != nil && s.res.Open() > 0 {
		return promptCont
	}
	return promptMain
}

// feed handles one line of input and reports whether the session should end.
func (s *session) feed(line string) bool {
	if s.res == nil {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ":") {
			return s.command(trimmed)
		}
		s.res = frontend.NewResolver("<stdin>")
	}

	// A bad line discards the pending input; nothing of it has run yet.
	if err := s.res.Feed(line); err != nil {
		s.printer.Print(err)
		s.res = nil
		return false
	}
	if s.res.Open() > 0 {
		return false
	}
	p, err := s.res.Finish()
	s.res = nil
	if err != nil {
		s.printer.Print(err)
		return false
	}
	if p.Len() == 0 {
		return false
	}
	s.last = p
	if err := s.m.Exec(p); err != nil {
		s.printer.Print(err)
	}
	return false
}

func (s *session) command(cmd string) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprintln(s.out, replHelp)
	case ":stack", ":s":
		if len(s.m.Stack) == 0 {
			fmt.Fprintln(s.out, "<empty>")
			break
		}
		parts := make([]string, len(s.m.Stack))
		for i, v := range s.m.Stack {
			parts[i] = fmt.Sprintf("%#v", v)
		}
		fmt.Fprintln(s.out, strings.Join(parts, " "))
	case ":clear":
		s.m.Stack = s.m.Stack[:0]
	case ":ir":
		if s.last == nil {
			fmt.Fprintln(s.out, "nothing has run yet")
			break
		}
		if err := s.last.Format(s.out); err != nil {
			s.printer.Print(err)
		}
	case ":core":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :core FILE")
			break
		}
		if err := s.m.WriteCore(arg); err != nil {
			s.printer.Print(err)
		}
	case ":load":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :load FILE")
			break
		}
		c, err := interp.ReadCore(arg)
		if err == nil {
			err = s.m.RestoreStack(c)
		}
		if err != nil {
			s.printer.Print(err)
			break
		}
		fmt.Fprintf(s.out, "loaded %d value(s)\n", len(s.m.Stack))
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", name)
	}
	return false
}

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	var c common
	c.register(fs)
	maxSteps := fs.Int("max-steps", 10_000_000, "abort a line after this many instructions (0: no limit)")
	e, code := parse(fs, &c, args)
	if e == nil {
		return code
	}

	s := newSession(os.Stdout, e.printer)
	s.m.MaxSteps = *maxSteps

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return replPlain(s, os.Stdin)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetMultiLineMode(true)

	histPath := e.cfg.REPL.HistoryFile
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				e.log.Warn("could not save history", "path", histPath, "err", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			f.Close()
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM)
	go func() {
		<-sigs
		ln.Close()
		os.Exit(130)
	}()

	fmt.Fprintln(os.Stdout, "minos", version, "(:help for commands)")
	for {
		line, err := ln.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl-C drops unfinished input.
				s.res = nil
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stdout)
				return 0
			}
			fmt.Fprintln(os.Stderr, "minos: read error:", err)
			return 1
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if s.feed(line) {
			return 0
		}
	}
}

// replPlain serves piped input without line editing.
func replPlain(s *session, r io.Reader) int {
	data, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minos: read error:", err)
		return 1
	}
	for _, line := range strings.Split(string(data), "\n") {
		if s.feed(strings.TrimSuffix(line, "\r")) {
			return 0
		}
	}
	if s.res != nil && s.res.Open() > 0 {
		_, err := s.res.Finish()
		s.printer.Print(err)
		return 1
	}
	return 0
}
