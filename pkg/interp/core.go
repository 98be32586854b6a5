package interp

import (
	"encoding/json"
	"fmt"
	"os"

	"minos/pkg/ir"
)

// Core is the JSON snapshot of a machine, written when a run faults so the
// stack at the point of failure can be inspected or reloaded.
type Core struct {
	Source      string      `json:"source"`
	IP          int         `json:"ip"`
	Steps       int         `json:"steps"`
	Halted      bool        `json:"halted"`
	Fault       string      `json:"fault,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Position    string      `json:"position,omitempty"`
	Stack       []CoreValue `json:"stack"` // bottom first
}

// CoreValue is one stack slot. Bits holds the exact payload; Text is the
// Dump rendering for people reading the file.
type CoreValue struct {
	Kind string `json:"kind"`
	Bits uint32 `json:"bits"`
	Text string `json:"text"`
}

// Snapshot captures the machine state.
func (m *Machine) Snapshot() Core {
	c := Core{
		IP:     m.IP,
		Steps:  m.Steps,
		Halted: m.Halted,
		Stack:  make([]CoreValue, 0, len(m.Stack)),
	}
	if m.Program != nil {
		c.Source = m.Program.Source
		if m.IP < m.Program.Len() {
			in := m.Program.Code[m.IP]
			c.Instruction = in.Op.String()
			c.Position = in.Pos().String()
		}
	}
	if m.Fault != nil {
		c.Fault = m.Fault.Error()
	}
	for _, v := range m.Stack {
		c.Stack = append(c.Stack, CoreValue{Kind: v.Kind.String(), Bits: v.Bits(), Text: v.String()})
	}
	return c
}

// Values decodes the saved stack.
func (c *Core) Values() ([]ir.Value, error) {
	vals := make([]ir.Value, len(c.Stack))
	for i, cv := range c.Stack {
		k, ok := ir.ParseKind(cv.Kind)
		if !ok || k == ir.KindError {
			return nil, fmt.Errorf("stack slot %d: unknown kind %q", i, cv.Kind)
		}
		vals[i] = ir.FromBits(k, cv.Bits)
	}
	return vals, nil
}

// WriteCore saves the machine snapshot to path as indented JSON.
func (m *Machine) WriteCore(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal core: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write core: %w", err)
	}
	return nil
}

// ReadCore loads a snapshot written by WriteCore.
func ReadCore(path string) (*Core, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read core: %w", err)
	}
	var c Core
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal core: %w", err)
	}
	return &c, nil
}

// RestoreStack replaces the machine's stack with the one saved in c.
func (m *Machine) RestoreStack(c *Core) error {
	vals, err := c.Values()
	if err != nil {
		return err
	}
	m.Stack = vals
	return nil
}
