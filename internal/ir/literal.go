package ir

import (
	"bytes"
	"fmt"
	"math"
)

// LiteralKind tags a Literal. Values are part of the bytecode format.
type LiteralKind uint8

const (
	LitUnit  LiteralKind = 0
	LitInt   LiteralKind = 1
	LitFloat LiteralKind = 2
	LitBool  LiteralKind = 3
	LitStr   LiteralKind = 4
	LitBytes LiteralKind = 5
)

func (k LiteralKind) String() string {
	switch k {
	case LitUnit:
		return "unit"
	case LitInt:
		return "i64"
	case LitFloat:
		return "f64"
	case LitBool:
		return "bool"
	case LitStr:
		return "str"
	case LitBytes:
		return "bytes"
	default:
		return fmt.Sprintf("LiteralKind(%d)", k)
	}
}

// Valid reports whether k is a known literal tag.
func (k LiteralKind) Valid() bool {
	return k <= LitBytes
}

// Pooled reports whether literals of kind k may live in the constant pool.
// Integers are always inlined through OpIconst.
func (k LiteralKind) Pooled() bool {
	return k == LitFloat || k == LitStr || k == LitBytes
}

// Literal is a constant value carried by the constant pool or a global initializer.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Bytes []byte
}

func UnitLit() Literal           { return Literal{Kind: LitUnit} }
func IntLit(v int64) Literal     { return Literal{Kind: LitInt, Int: v} }
func FloatLit(v float64) Literal { return Literal{Kind: LitFloat, Float: v} }
func BoolLit(v bool) Literal     { return Literal{Kind: LitBool, Bool: v} }
func StrLit(v string) Literal    { return Literal{Kind: LitStr, Str: v} }
func BytesLit(v []byte) Literal  { return Literal{Kind: LitBytes, Bytes: v} }

// Equal compares literals structurally. Floats compare by bit pattern so that
// NaN payloads and signed zeros are significant.
func (l Literal) Equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LitUnit:
		return true
	case LitInt:
		return l.Int == o.Int
	case LitFloat:
		return math.Float64bits(l.Float) == math.Float64bits(o.Float)
	case LitBool:
		return l.Bool == o.Bool
	case LitStr:
		return l.Str == o.Str
	case LitBytes:
		return bytes.Equal(l.Bytes, o.Bytes)
	default:
		return false
	}
}

func (l Literal) String() string {
	switch l.Kind {
	case LitUnit:
		return "unit"
	case LitInt:
		return fmt.Sprintf("i64 %d", l.Int)
	case LitFloat:
		return fmt.Sprintf("f64 %v", l.Float)
	case LitBool:
		return fmt.Sprintf("bool %t", l.Bool)
	case LitStr:
		return fmt.Sprintf("str %q", l.Str)
	case LitBytes:
		return fmt.Sprintf("bytes %x", l.Bytes)
	default:
		return l.Kind.String()
	}
}
