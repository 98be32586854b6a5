package codegen

import (
	"fmt"

	"minos/pkg/diag"
	"minos/pkg/ir"
)

// slotKind is what the analysis knows about one stack slot.
type slotKind uint8

const (
	kInt  slotKind = iota // an int32, kept sign-extended in a 64-bit slot
	kBool                 // 0 or 1
	kAny                  // differs between paths
)

// frame is the abstract stack at the entry of an instruction: the values
// guaranteed to be present on every path, bottom first.
type frame []slotKind

// merge returns the frame that holds on both paths: the shorter depth, with
// slots compared from the top.
func merge(a, b frame) frame {
	d := min(len(a), len(b))
	out := make(frame, d)
	for i := 0; i < d; i++ {
		ka, kb := a[len(a)-d+i], b[len(b)-d+i]
		if ka == kb {
			out[i] = ka
		} else {
			out[i] = kAny
		}
	}
	return out
}

func equalFrames(a, b frame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valueKind(v ir.Value) slotKind {
	if v.Kind == ir.KindBool {
		return kBool
	}
	return kInt
}

// transfer applies op to the entry frame. It reports underflow when the op
// pops more slots than the frame guarantees. The missing slots are machine
// words from below the program's values, so they are treated as kInt and
// the analysis continues past the fault.
func transfer(in ir.Instruction, f frame) (frame, bool) {
	out := append(frame(nil), f...)
	under := len(out) < in.Op.Pops()
	for len(out) < in.Op.Pops() {
		out = append(frame{kInt}, out...)
	}
	pop := func() slotKind {
		k := out[len(out)-1]
		out = out[:len(out)-1]
		return k
	}

	switch op := in.Op; {
	case op == ir.Push:
		out = append(out, valueKind(in.Operand))
	case op.IsArith():
		right := pop()
		pop()
		out = append(out, right)
	case op.IsCompare():
		pop()
		pop()
		out = append(out, kBool)
	case op == ir.Dup:
		k := pop()
		out = append(out, k, k)
	case op == ir.Dump, op == ir.If, op == ir.Do:
		pop()
	}
	return out, under
}

// successors lists the instructions control can reach after i. The exit
// index p.Len() is included when reachable.
func successors(p *ir.Program, i int) []int {
	in := p.Code[i]
	switch in.Op {
	case ir.If, ir.Do:
		return []int{i + 1, in.Target()}
	case ir.Else:
		return []int{in.Target()}
	case ir.End:
		if p.IsBackEdge(i) {
			return []int{in.Target()}
		}
	}
	return []int{i + 1}
}

// analysis is the result of the stack flow pass.
type analysis struct {
	entry     []frame // nil for unreachable instructions
	underflow []int   // instruction indices, ascending
}

// analyze runs a forward worklist over p starting from an empty stack.
// Entry frames only shrink or widen to kAny at joins, so it terminates.
func analyze(p *ir.Program) analysis {
	n := p.Len()
	a := analysis{entry: make([]frame, n)}
	if n == 0 {
		return a
	}
	under := make([]bool, n)
	a.entry[0] = frame{}
	work := []int{0}
	queued := make([]bool, n)
	queued[0] = true

	for len(work) > 0 {
		i := work[0]
		work = work[1:]
		queued[i] = false

		out, u := transfer(p.Code[i], a.entry[i])
		if u {
			under[i] = true
		}
		for _, s := range successors(p, i) {
			if s >= n {
				continue
			}
			next := out
			if a.entry[s] != nil {
				next = merge(a.entry[s], out)
				if equalFrames(next, a.entry[s]) {
					continue
				}
			}
			a.entry[s] = next
			if !queued[s] {
				queued[s] = true
				work = append(work, s)
			}
		}
	}

	for i, u := range under {
		if u {
			a.underflow = append(a.underflow, i)
		}
	}
	return a
}

// linearUnderflow counts stack depth in program order without following
// jumps, reporting each instruction that pops below zero.
func linearUnderflow(p *ir.Program) []int {
	var out []int
	depth := 0
	for i, in := range p.Code {
		if depth < in.Op.Pops() {
			out = append(out, i)
			depth = 0
		} else {
			depth -= in.Op.Pops()
		}
		depth += in.Op.Pushes()
	}
	return out
}

// StackCheck selects how Generate detects stack underflow at build time.
type StackCheck int

const (
	// CheckFlow follows every control-flow path and reports an op that can
	// pop more values than all paths to it guarantee.
	CheckFlow StackCheck = iota
	// CheckLinear counts depth in program order, ignoring jumps.
	CheckLinear
	// CheckOff defers every underflow to the executable.
	CheckOff
)

var stackCheckNames = map[StackCheck]string{
	CheckFlow:   "flow",
	CheckLinear: "linear",
	CheckOff:    "off",
}

func (s StackCheck) String() string {
	if name, ok := stackCheckNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StackCheck(%d)", int(s))
}

// ParseStackCheck accepts "flow", "linear" or "off"; empty means flow.
func ParseStackCheck(s string) (StackCheck, error) {
	if s == "" {
		return CheckFlow, nil
	}
	for k, name := range stackCheckNames {
		if name == s {
			return k, nil
		}
	}
	return CheckFlow, fmt.Errorf("unknown stack check %q (want flow, linear or off)", s)
}

// checkStack returns one StackUnderflow diagnostic per offending instruction.
func checkStack(p *ir.Program, mode StackCheck, a analysis) error {
	var idx []int
	switch mode {
	case CheckFlow:
		idx = a.underflow
	case CheckLinear:
		idx = linearUnderflow(p)
	}
	var errs diag.List
	for _, i := range idx {
		errs = append(errs, diag.New(p.Code[i].Pos(), diag.StackUnderflow, ""))
	}
	return errs.Err()
}
