// Package vm implements the Aves IR execution engine: a stack machine with
// per-call frames, a handle-indexed heap for arrays and host intrinsics.
package vm

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"aves/internal/ir"
)

// ValueKind identifies the runtime type of a Value.
type ValueKind uint8

const (
	// VKInvalid represents an invalid value.
	VKInvalid ValueKind = iota
	// VKUnit represents the unit value.
	VKUnit
	// VKInt represents a signed 64-bit integer.
	VKInt
	// VKFloat represents an IEEE-754 double.
	VKFloat
	// VKBool represents a boolean value.
	VKBool
	// VKString represents an immutable string.
	VKString
	// VKBytes represents an immutable byte string.
	VKBytes
	// VKArray represents an array handle.
	VKArray
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case VKInvalid:
		return "invalid"
	case VKUnit:
		return "unit"
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKBool:
		return "bool"
	case VKString:
		return "string"
	case VKBytes:
		return "bytes"
	case VKArray:
		return "array"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value represents a runtime value in the VM.
type Value struct {
	Kind  ValueKind
	Int   int64   // For VKInt
	Float float64 // For VKFloat
	Bool  bool    // For VKBool
	Str   string  // For VKString, and the payload of VKBytes
	H     Handle  // For VKArray
}

func MakeUnit() Value            { return Value{Kind: VKUnit} }
func MakeInt(n int64) Value      { return Value{Kind: VKInt, Int: n} }
func MakeFloat(f float64) Value  { return Value{Kind: VKFloat, Float: f} }
func MakeBool(b bool) Value      { return Value{Kind: VKBool, Bool: b} }
func MakeString(s string) Value  { return Value{Kind: VKString, Str: s} }
func MakeBytes(b []byte) Value   { return Value{Kind: VKBytes, Str: string(b)} }
func MakeArray(h Handle) Value   { return Value{Kind: VKArray, H: h} }

// FromLiteral converts a program literal into a runtime value.
func FromLiteral(lit ir.Literal) Value {
	switch lit.Kind {
	case ir.LitUnit:
		return MakeUnit()
	case ir.LitInt:
		return MakeInt(lit.Int)
	case ir.LitFloat:
		return MakeFloat(lit.Float)
	case ir.LitBool:
		return MakeBool(lit.Bool)
	case ir.LitStr:
		return MakeString(lit.Str)
	case ir.LitBytes:
		return MakeBytes(lit.Bytes)
	default:
		return Value{}
	}
}

// String returns a debug representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case VKString:
		return strconv.Quote(v.Str)
	case VKArray:
		return fmt.Sprintf("array#%d", v.H)
	case VKInvalid:
		return "<invalid>"
	default:
		return formatScalar(v)
	}
}

// formatScalar renders every kind except arrays the way print shows it.
func formatScalar(v Value) string {
	switch v.Kind {
	case VKUnit:
		return "unit"
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKString:
		return v.Str
	case VKBytes:
		return `x"` + hex.EncodeToString([]byte(v.Str)) + `"`
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
