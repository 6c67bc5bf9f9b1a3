// Package ir defines the in-memory Aves IR shared by the bytecode codec,
// the text codec and the execution engine.
package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies an instruction. Values are part of the bytecode format;
// do not renumber.
type Opcode uint8

const (
	OpNop   Opcode = 0x00
	OpLabel Opcode = 0x01

	// constants
	OpIconst Opcode = 0x10
	OpConst  Opcode = 0x11
	OpTrue   Opcode = 0x12
	OpFalse  Opcode = 0x13
	OpUnit   Opcode = 0x14

	// stack
	OpPop  Opcode = 0x18
	OpDup  Opcode = 0x19
	OpSwap Opcode = 0x1a

	// arithmetic
	OpAdd Opcode = 0x20
	OpSub Opcode = 0x21
	OpMul Opcode = 0x22
	OpDiv Opcode = 0x23
	OpMod Opcode = 0x24
	OpNeg Opcode = 0x25

	// bitwise
	OpBand Opcode = 0x28
	OpBor  Opcode = 0x29
	OpXor  Opcode = 0x2a
	OpShl  Opcode = 0x2b
	OpShr  Opcode = 0x2c

	// logic
	OpAnd Opcode = 0x30
	OpOr  Opcode = 0x31
	OpNot Opcode = 0x32

	// comparison
	OpEq Opcode = 0x38
	OpNe Opcode = 0x39
	OpLt Opcode = 0x3a
	OpLe Opcode = 0x3b
	OpGt Opcode = 0x3c
	OpGe Opcode = 0x3d

	// variables
	OpLoad   Opcode = 0x40
	OpStore  Opcode = 0x41
	OpGload  Opcode = 0x42
	OpGstore Opcode = 0x43

	// control flow
	OpJmp  Opcode = 0x48
	OpJf   Opcode = 0x49
	OpJt   Opcode = 0x4a
	OpCall Opcode = 0x4b
	OpRet  Opcode = 0x4c

	// heap
	OpAnew Opcode = 0x50
	OpAget Opcode = 0x51
	OpAset Opcode = 0x52
	OpAlen Opcode = 0x53

	OpIntrinsic Opcode = 0x60
)

// Shape is the fixed operand layout of an opcode.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeInt
	ShapeConst
	ShapeSlot
	ShapeLabel
	ShapeDecl
	ShapeCall
	ShapeIntrinsic
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeInt:
		return "int"
	case ShapeConst:
		return "const"
	case ShapeSlot:
		return "slot"
	case ShapeLabel:
		return "label"
	case ShapeDecl:
		return "decl"
	case ShapeCall:
		return "call"
	case ShapeIntrinsic:
		return "intrinsic"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

type opInfo struct {
	name  string
	shape Shape
}

var opTable = map[Opcode]opInfo{
	OpNop:       {"nop", ShapeNone},
	OpLabel:     {"label", ShapeLabel},
	OpIconst:    {"iconst", ShapeInt},
	OpConst:     {"const", ShapeConst},
	OpTrue:      {"true", ShapeNone},
	OpFalse:     {"false", ShapeNone},
	OpUnit:      {"unit", ShapeNone},
	OpPop:       {"pop", ShapeNone},
	OpDup:       {"dup", ShapeNone},
	OpSwap:      {"swap", ShapeNone},
	OpAdd:       {"add", ShapeNone},
	OpSub:       {"sub", ShapeNone},
	OpMul:       {"mul", ShapeNone},
	OpDiv:       {"div", ShapeNone},
	OpMod:       {"mod", ShapeNone},
	OpNeg:       {"neg", ShapeNone},
	OpBand:      {"band", ShapeNone},
	OpBor:       {"bor", ShapeNone},
	OpXor:       {"xor", ShapeNone},
	OpShl:       {"shl", ShapeNone},
	OpShr:       {"shr", ShapeNone},
	OpAnd:       {"and", ShapeNone},
	OpOr:        {"or", ShapeNone},
	OpNot:       {"not", ShapeNone},
	OpEq:        {"eq", ShapeNone},
	OpNe:        {"ne", ShapeNone},
	OpLt:        {"lt", ShapeNone},
	OpLe:        {"le", ShapeNone},
	OpGt:        {"gt", ShapeNone},
	OpGe:        {"ge", ShapeNone},
	OpLoad:      {"load", ShapeSlot},
	OpStore:     {"store", ShapeSlot},
	OpGload:     {"gload", ShapeDecl},
	OpGstore:    {"gstore", ShapeDecl},
	OpJmp:       {"jmp", ShapeLabel},
	OpJf:        {"jf", ShapeLabel},
	OpJt:        {"jt", ShapeLabel},
	OpCall:      {"call", ShapeCall},
	OpRet:       {"ret", ShapeNone},
	OpAnew:      {"anew", ShapeNone},
	OpAget:      {"aget", ShapeNone},
	OpAset:      {"aset", ShapeNone},
	OpAlen:      {"alen", ShapeNone},
	OpIntrinsic: {"intrinsic", ShapeIntrinsic},
}

var opByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opTable))
	for op, info := range opTable {
		m[info.name] = op
	}
	return m
}()

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opTable[op]
	return ok
}

// Shape returns the operand layout of op.
func (op Opcode) Shape() Shape {
	return opTable[op].shape
}

// String returns the text mnemonic of op.
func (op Opcode) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(0x%02x)", uint8(op))
}

// IsJump reports whether op transfers control to a label operand.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op == OpJf || op == OpJt
}

// LookupOpcode resolves a mnemonic, ignoring case.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opByName[strings.ToLower(name)]
	return op, ok
}
