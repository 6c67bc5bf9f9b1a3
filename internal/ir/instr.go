package ir

import (
	"fmt"
	"strconv"
)

// Instr is a single instruction. Only the operand fields selected by
// Op.Shape() are meaningful; the others stay zero so that instructions can be
// compared with ==.
type Instr struct {
	Op        Opcode
	Int       int64     // ShapeInt
	Index     uint32    // ShapeConst, ShapeSlot, ShapeDecl, ShapeCall (callee)
	Argc      uint32    // ShapeCall
	Label     string    // ShapeLabel
	Intrinsic Intrinsic // ShapeIntrinsic
}

// Op builds an operand-less instruction.
func Op(op Opcode) Instr { return Instr{Op: op} }

// Iconst pushes an integer literal.
func Iconst(v int64) Instr { return Instr{Op: OpIconst, Int: v} }

// Const pushes constant-pool entry k.
func Const(k uint32) Instr { return Instr{Op: OpConst, Index: k} }

func Load(slot uint32) Instr  { return Instr{Op: OpLoad, Index: slot} }
func Store(slot uint32) Instr { return Instr{Op: OpStore, Index: slot} }

func Gload(decl uint32) Instr  { return Instr{Op: OpGload, Index: decl} }
func Gstore(decl uint32) Instr { return Instr{Op: OpGstore, Index: decl} }

// Label defines a jump target at the current position.
func Label(name string) Instr { return Instr{Op: OpLabel, Label: name} }

func Jmp(label string) Instr { return Instr{Op: OpJmp, Label: label} }
func Jf(label string) Instr  { return Instr{Op: OpJf, Label: label} }
func Jt(label string) Instr  { return Instr{Op: OpJt, Label: label} }

// Call invokes declaration decl with argc arguments.
func Call(decl, argc uint32) Instr { return Instr{Op: OpCall, Index: decl, Argc: argc} }

// Intr invokes a host intrinsic.
func Intr(in Intrinsic) Instr { return Instr{Op: OpIntrinsic, Intrinsic: in} }

// String renders the instruction for traces and diagnostics. Declaration
// operands are shown by index; the text codec renders them by name.
func (in Instr) String() string {
	switch in.Op.Shape() {
	case ShapeInt:
		return in.Op.String() + " " + strconv.FormatInt(in.Int, 10)
	case ShapeConst:
		return fmt.Sprintf("%s #%d", in.Op, in.Index)
	case ShapeSlot:
		return fmt.Sprintf("%s %d", in.Op, in.Index)
	case ShapeLabel:
		if in.Op == OpLabel {
			return in.Label + ":"
		}
		return in.Op.String() + " " + in.Label
	case ShapeDecl:
		return fmt.Sprintf("%s @%d", in.Op, in.Index)
	case ShapeCall:
		return fmt.Sprintf("%s @%d %d", in.Op, in.Index, in.Argc)
	case ShapeIntrinsic:
		return in.Op.String() + " " + in.Intrinsic.String()
	default:
		return in.Op.String()
	}
}
