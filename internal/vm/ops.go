package vm

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"aves/internal/ir"
)

// numeric promotes a mixed int/float pair to floats. ok is false when either
// side is not a number.
func numeric(a, b Value) (x, y float64, isFloat, ok bool) {
	switch {
	case a.Kind == VKInt && b.Kind == VKInt:
		return 0, 0, false, true
	case a.Kind == VKFloat && b.Kind == VKFloat:
		return a.Float, b.Float, true, true
	case a.Kind == VKInt && b.Kind == VKFloat:
		return float64(a.Int), b.Float, true, true
	case a.Kind == VKFloat && b.Kind == VKInt:
		return a.Float, float64(b.Int), true, true
	default:
		return 0, 0, false, false
	}
}

// arith implements add/sub/mul/div/mod. Integer arithmetic wraps on overflow.
func (vm *VM) arith(op ir.Opcode, a, b Value) Value {
	if op == ir.OpAdd && a.Kind == VKString && b.Kind == VKString {
		return MakeString(a.Str + b.Str)
	}
	x, y, isFloat, ok := numeric(a, b)
	if !ok {
		vm.panic(TrapTypeMismatch, fmt.Sprintf("%s: cannot apply to %s and %s", op, a.Kind, b.Kind))
	}
	// целый ноль в делителе ловушка и при смешанной арифметике;
	// float 0.0 следует IEEE 754 (±Inf, NaN)
	if (op == ir.OpDiv || op == ir.OpMod) && b.Kind == VKInt && b.Int == 0 {
		vm.panic(TrapDivisionByZero, fmt.Sprintf("%s: division by integer zero", op))
	}
	if isFloat {
		switch op {
		case ir.OpAdd:
			return MakeFloat(x + y)
		case ir.OpSub:
			return MakeFloat(x - y)
		case ir.OpMul:
			return MakeFloat(x * y)
		case ir.OpDiv:
			return MakeFloat(x / y)
		default:
			return MakeFloat(math.Mod(x, y))
		}
	}
	switch op {
	case ir.OpAdd:
		return MakeInt(a.Int + b.Int)
	case ir.OpSub:
		return MakeInt(a.Int - b.Int)
	case ir.OpMul:
		return MakeInt(a.Int * b.Int)
	}
	// MinInt64 / -1 wraps to MinInt64 with remainder 0, as Go defines it
	if op == ir.OpDiv {
		return MakeInt(a.Int / b.Int)
	}
	return MakeInt(a.Int % b.Int)
}

func (vm *VM) negate(v Value) Value {
	switch v.Kind {
	case VKInt:
		return MakeInt(-v.Int)
	case VKFloat:
		return MakeFloat(-v.Float)
	default:
		panic(vm.eb.typeMismatch("neg", "int or float", v))
	}
}

func (vm *VM) bitwise(op ir.Opcode, a, b int64) int64 {
	switch op {
	case ir.OpBand:
		return a & b
	case ir.OpBor:
		return a | b
	case ir.OpXor:
		return a ^ b
	}
	if b < 0 {
		vm.panic(TrapOutOfBounds, fmt.Sprintf("%s: negative shift count %d", op, b))
	}
	if op == ir.OpShl {
		return a << uint64(b)
	}
	return a >> uint64(b)
}

// equal compares values of the same kind; ints and floats compare
// numerically and strings compare after NFC normalization. Values of
// unrelated kinds are simply unequal.
func (vm *VM) equal(a, b Value) bool {
	if x, y, isFloat, ok := numeric(a, b); ok {
		if isFloat {
			return x == y
		}
		return a.Int == b.Int
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VKUnit:
		return true
	case VKBool:
		return a.Bool == b.Bool
	case VKString:
		return a.Str == b.Str || norm.NFC.String(a.Str) == norm.NFC.String(b.Str)
	case VKBytes:
		return a.Str == b.Str
	case VKArray:
		return a.H == b.H
	default:
		return false
	}
}

func (vm *VM) ordered(op ir.Opcode, a, b Value) bool {
	var c int
	if x, y, isFloat, ok := numeric(a, b); ok {
		if isFloat {
			// NaN is unordered: every ordering comparison is false
			if math.IsNaN(x) || math.IsNaN(y) {
				return false
			}
			c = cmp.Compare(x, y)
		} else {
			c = cmp.Compare(a.Int, b.Int)
		}
	} else if a.Kind == VKString && b.Kind == VKString {
		c = strings.Compare(norm.NFC.String(a.Str), norm.NFC.String(b.Str))
	} else {
		vm.panic(TrapTypeMismatch, fmt.Sprintf("%s: cannot order %s and %s", op, a.Kind, b.Kind))
	}
	switch op {
	case ir.OpLt:
		return c < 0
	case ir.OpLe:
		return c <= 0
	case ir.OpGt:
		return c > 0
	default:
		return c >= 0
	}
}
