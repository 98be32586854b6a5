package ir

import (
	"cmp"
	"fmt"

	"minos/pkg/diag"
)

var (
	errPoisoned  error = diag.PoisonedValue
	errDivByZero error = diag.DivisionByZero
)

// Apply evaluates a binary operator. right is the operand popped first and
// its Kind selects the representation: left is converted to right's kind
// before the operation, and arithmetic results keep that kind. Comparisons
// always produce a Bool. The operation reads left-to-right, so with "5 3 >"
// left is 5 and right is 3.
//
// Bool arithmetic is integer arithmetic on 0/1 narrowed back to a Bool.
func Apply(op OpCode, left, right Value) (Value, error) {
	if left.IsError() || right.IsError() {
		return Value{}, errPoisoned
	}
	switch {
	case op.IsArith():
		return arith(op, left, right)
	case op.IsCompare():
		return Bool(compare(op, left, right)), nil
	}
	return Value{}, fmt.Errorf("%s is not a binary operator", op)
}

func arith(op OpCode, left, right Value) (Value, error) {
	switch right.Kind {
	case KindInt32:
		n, err := integer(op, left.Int32(), right.Int32())
		return Int32(n), err
	case KindUint32:
		n, err := integer(op, left.Uint32(), right.Uint32())
		return Uint32(n), err
	case KindFloat32:
		return Float32(float(op, left.Float32(), right.Float32())), nil
	case KindBool:
		n, err := integer(op, b2i(left.Bool()), b2i(right.Bool()))
		return Bool(n != 0), err
	}
	return Value{}, errPoisoned
}

func compare(op OpCode, left, right Value) bool {
	switch right.Kind {
	case KindInt32:
		return order(op, left.Int32(), right.Int32())
	case KindUint32:
		return order(op, left.Uint32(), right.Uint32())
	case KindFloat32:
		return order(op, left.Float32(), right.Float32())
	case KindBool:
		return order(op, b2i(left.Bool()), b2i(right.Bool()))
	}
	return false
}

func integer[T int32 | uint32](op OpCode, l, r T) (T, error) {
	switch op {
	case Plus:
		return l + r, nil
	case Minus:
		return l - r, nil
	case Multiply:
		return l * r, nil
	case Divide:
		if r == 0 {
			return 0, errDivByZero
		}
		return l / r, nil
	}
	return 0, fmt.Errorf("%s is not arithmetic", op)
}

func float(op OpCode, l, r float32) float32 {
	switch op {
	case Plus:
		return l + r
	case Minus:
		return l - r
	case Multiply:
		return l * r
	case Divide:
		return l / r
	}
	return 0
}

func order[T cmp.Ordered](op OpCode, l, r T) bool {
	switch op {
	case Equal:
		return l == r
	case Greater:
		return l > r
	case Less:
		return l < r
	}
	return false
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
