package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// ColorMode selects when diagnostics are styled.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

var (
	posStyle = ansi.Style{}.Bold()
	msgStyle = ansi.Style{}.ForegroundColor(ansi.Red)
)

// Printer writes diagnostics one per line.
type Printer struct {
	W     io.Writer
	Color bool
	// Prefix is used for errors that carry no source position.
	Prefix string
}

// NewPrinter returns a Printer for f. In ColorAuto mode styling is enabled
// only when f is a terminal and NO_COLOR is unset.
func NewPrinter(f *os.File, mode ColorMode, prefix string) *Printer {
	color := false
	switch mode {
	case ColorAlways:
		color = true
	case ColorAuto, "":
		color = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(f.Fd()))
	}
	return &Printer{W: f, Color: color, Prefix: prefix}
}

// Print reports err. Lists are expanded to one line per diagnostic.
func (p *Printer) Print(err error) {
	if err == nil {
		return
	}
	diags := Flatten(err)
	if len(diags) == 0 {
		if p.Prefix != "" {
			fmt.Fprintf(p.W, "%s: %v\n", p.Prefix, err)
		} else {
			fmt.Fprintln(p.W, err)
		}
		return
	}
	for _, d := range diags {
		p.print(d)
	}
}

func (p *Printer) print(d *Error) {
	pos := d.Pos.String() + ":"
	if !p.Color {
		fmt.Fprintf(p.W, "%s %s\n", pos, d.Msg)
		return
	}
	fmt.Fprintf(p.W, "%s %s\n", posStyle.Styled(pos), msgStyle.Styled(d.Msg))
}
