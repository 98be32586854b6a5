// Package interp executes a resolved ir.Program directly on an explicit
// value stack.
package interp

import (
	"fmt"
	"io"
	"os"

	"minos/pkg/diag"
	"minos/pkg/ir"
)

// Machine is the interpreter state: one value stack and one instruction
// pointer over a loaded Program.
type Machine struct {
	Program *ir.Program

	Stack []ir.Value
	IP    int

	// Steps counts executed instructions since the last Load.
	Steps int
	// MaxSteps aborts Run with a StepLimit diagnostic once Steps reaches it.
	// Zero means no limit.
	MaxSteps int

	Halted bool
	// Fault is the diagnostic that stopped execution, if any.
	Fault *diag.Error

	// Output is where Dump writes. If nil, os.Stdout is used.
	Output io.Writer
}

// New returns a machine ready to run p from its first instruction.
func New(p *ir.Program) *Machine {
	m := &Machine{}
	m.Load(p)
	return m
}

// Load points the machine at p and rewinds it. The stack is kept, so a
// session can run several programs over the same values.
func (m *Machine) Load(p *ir.Program) {
	m.Program = p
	m.IP = 0
	m.Steps = 0
	m.Halted = p == nil || p.Len() == 0
	m.Fault = nil
}

func (m *Machine) outputSink() io.Writer {
	if m.Output != nil {
		return m.Output
	}
	return os.Stdout
}

// Top returns the value on top of the stack.
func (m *Machine) Top() (ir.Value, bool) {
	if len(m.Stack) == 0 {
		return ir.Value{}, false
	}
	return m.Stack[len(m.Stack)-1], true
}

func (m *Machine) push(v ir.Value) { m.Stack = append(m.Stack, v) }

func (m *Machine) pop() ir.Value {
	v := m.Stack[len(m.Stack)-1]
	m.Stack = m.Stack[:len(m.Stack)-1]
	return v
}

// fail records a fault at the current instruction and halts.
func (m *Machine) fail(err error) error {
	m.Fault = diag.At(m.Program.Code[m.IP].Pos(), err)
	m.Halted = true
	return m.Fault
}

// Step executes one instruction. A fault halts the machine with IP left on
// the faulting instruction and the stack as it was before it.
func (m *Machine) Step() error {
	if m.Halted {
		if m.Fault != nil {
			return m.Fault
		}
		return nil
	}
	in := m.Program.Code[m.IP]
	if len(m.Stack) < in.Op.Pops() {
		return m.fail(diag.StackUnderflow)
	}

	next := m.IP + 1
	switch op := in.Op; {
	case op == ir.Push:
		m.push(in.Operand)

	case op.IsArith(), op.IsCompare():
		right, left := m.Stack[len(m.Stack)-1], m.Stack[len(m.Stack)-2]
		v, err := ir.Apply(op, left, right)
		if err != nil {
			return m.fail(err)
		}
		m.Stack = m.Stack[:len(m.Stack)-2]
		m.push(v)

	case op == ir.Dump:
		v, _ := m.Top()
		if v.IsError() {
			return m.fail(diag.PoisonedValue)
		}
		m.pop()
		if _, err := fmt.Fprintln(m.outputSink(), v.String()); err != nil {
			m.Halted = true
			return fmt.Errorf("write output: %w", err)
		}

	case op == ir.Dup:
		v, _ := m.Top()
		m.push(v)

	case op == ir.If, op == ir.Do:
		ok, err := m.Stack[len(m.Stack)-1].Truthy()
		if err != nil {
			return m.fail(err)
		}
		m.pop()
		if !ok {
			next = in.Target()
		}

	case op == ir.Else:
		next = in.Target()

	case op == ir.While:

	case op == ir.End:
		if m.Program.IsBackEdge(m.IP) {
			next = in.Target()
		}

	default:
		return m.fail(fmt.Errorf("unknown opcode %s", op))
	}

	m.IP = next
	m.Steps++
	if m.IP >= m.Program.Len() {
		m.Halted = true
	}
	return nil
}

// Run steps until the program exits or faults.
func (m *Machine) Run() error {
	for !m.Halted {
		if m.MaxSteps > 0 && m.Steps >= m.MaxSteps {
			return m.fail(diag.New(m.Program.Code[m.IP].Pos(), diag.StepLimit, "step limit of %d instructions exceeded", m.MaxSteps))
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Exec loads p and runs it to completion.
func (m *Machine) Exec(p *ir.Program) error {
	m.Load(p)
	return m.Run()
}
