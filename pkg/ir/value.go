package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the active variant of a Value.
type Kind uint8

const (
	KindError Kind = iota // sentinel; the zero Value
	KindInt32
	KindUint32
	KindFloat32
	KindBool
)

var kindNames = [...]string{
	KindError:   "error",
	KindInt32:   "i32",
	KindUint32:  "u32",
	KindFloat32: "f32",
	KindBool:    "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindError, false
}

// Value is a 32-bit scalar tagged with its Kind. The zero Value is the error
// sentinel and is never produced by well-formed programs.
type Value struct {
	Kind Kind
	bits uint32
}

func Int32(n int32) Value     { return Value{Kind: KindInt32, bits: uint32(n)} }
func Uint32(n uint32) Value   { return Value{Kind: KindUint32, bits: n} }
func Float32(f float32) Value { return Value{Kind: KindFloat32, bits: math.Float32bits(f)} }

func Bool(b bool) Value {
	v := Value{Kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// FromBits rebuilds a Value from its kind and raw 32-bit payload.
func FromBits(k Kind, bits uint32) Value {
	if k > KindBool {
		return Value{}
	}
	return Value{Kind: k, bits: bits}
}

// Bits returns the raw 32-bit payload of v.
func (v Value) Bits() uint32 { return v.bits }

// Index encodes an instruction index as a jump operand.
func Index(i int) Value { return Uint32(uint32(i)) }

// IsError reports whether v is the error sentinel.
func (v Value) IsError() bool { return v.Kind == KindError }

// Int32 converts v to a signed integer. Floats truncate toward zero and
// booleans become 0 or 1.
func (v Value) Int32() int32 {
	switch v.Kind {
	case KindInt32, KindUint32:
		return int32(v.bits)
	case KindFloat32:
		return int32(v.float())
	case KindBool:
		return int32(v.bits)
	}
	return 0
}

// Uint32 converts v to an unsigned integer with the same rules as Int32.
func (v Value) Uint32() uint32 {
	switch v.Kind {
	case KindInt32, KindUint32, KindBool:
		return v.bits
	case KindFloat32:
		return uint32(v.float())
	}
	return 0
}

// Float32 converts v to a float. Signed and unsigned integers keep their
// numeric value, booleans become 0 or 1.
func (v Value) Float32() float32 {
	switch v.Kind {
	case KindInt32:
		return float32(int32(v.bits))
	case KindUint32, KindBool:
		return float32(v.bits)
	case KindFloat32:
		return v.float()
	}
	return 0
}

// Bool reports whether v is non-zero.
func (v Value) Bool() bool {
	if v.Kind == KindFloat32 {
		return v.float() != 0
	}
	return v.bits != 0
}

func (v Value) float() float32 { return math.Float32frombits(v.bits) }

// Truthy is the condition test used by If and Do.
func (v Value) Truthy() (bool, error) {
	if v.IsError() {
		return false, errPoisoned
	}
	return v.Bool(), nil
}

// String renders v the way Dump prints it: integers in decimal, floats with
// six decimals, booleans as 1 or 0.
func (v Value) String() string {
	switch v.Kind {
	case KindInt32:
		return strconv.FormatInt(int64(int32(v.bits)), 10)
	case KindUint32:
		return strconv.FormatUint(uint64(v.bits), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(v.float()), 'f', 6, 32)
	case KindBool:
		if v.bits != 0 {
			return "1"
		}
		return "0"
	}
	return "<error>"
}

// GoString renders v with its kind, as used in program listings.
func (v Value) GoString() string {
	if v.Kind == KindBool {
		return fmt.Sprintf("bool:%t", v.bits != 0)
	}
	return v.Kind.String() + ":" + v.String()
}
