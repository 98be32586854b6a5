package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(Pos{"prog.minos", 1, 1}, StackUnderflow, ""), "prog.minos:1:1: " + StackUnderflow.Message()},
		{New(Pos{"a.minos", 3, 7}, UnrecognizedToken, "unrecognized token %q", "foo"), `a.minos:3:7: unrecognized token "foo"`},
		{New(Pos{"", 2, 4}, OutOfPlaceEnd, ""), "<input>:2:4: " + OutOfPlaceEnd.Message()},
	}
	for _, tc := range tests {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q; want %q", got, tc.want)
		}
	}
}

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("running: %w", New(Pos{"x", 1, 2}, DivisionByZero, ""))
	if !errors.Is(err, DivisionByZero) {
		t.Errorf("errors.Is(err, DivisionByZero) = false")
	}
	if errors.Is(err, StackUnderflow) {
		t.Errorf("errors.Is(err, StackUnderflow) = true")
	}

	list := List{
		New(Pos{"x", 1, 1}, BadNumber, ""),
		New(Pos{"x", 2, 1}, OutOfPlaceEnd, ""),
	}
	if !errors.Is(list.Err(), OutOfPlaceEnd) {
		t.Errorf("list does not match OutOfPlaceEnd")
	}
	if List(nil).Err() != nil {
		t.Errorf("empty list should be a nil error")
	}
}

func TestAt(t *testing.T) {
	pos := Pos{"p", 4, 2}

	e := At(pos, DivisionByZero)
	if e.Kind != DivisionByZero || e.Pos != pos {
		t.Errorf("At(kind) = %+v", e)
	}

	e = At(pos, errors.New("boom"))
	if e.Kind != Unsupported || e.Msg != "boom" {
		t.Errorf("At(plain) = %+v", e)
	}

	orig := New(Pos{"q", 1, 1}, BadNumber, "")
	if got := At(pos, orig); got != orig {
		t.Errorf("At should keep an existing diagnostic")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf, Prefix: "minos"}
	p.Print(List{
		New(Pos{"f", 1, 5}, UnrecognizedToken, "unrecognized token %q", "x"),
		New(Pos{"f", 2, 1}, OutOfPlaceEnd, ""),
	})
	p.Print(errors.New("cannot read f"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if lines[0] != `f:1:5: unrecognized token "x"` {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "f:2:1: out-of-place end") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[2] != "minos: cannot read f" {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf, Color: true}
	p.Print(New(Pos{"f", 1, 1}, StackUnderflow, ""))
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected SGR sequences in %q", out)
	}
	if !strings.Contains(out, "f:1:1:") {
		t.Errorf("position missing in %q", out)
	}
}
