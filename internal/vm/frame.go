package vm

import "aves/internal/ir"

// Frame represents a function activation record on the call stack.
type Frame struct {
	Func   *ir.Func // The function being executed
	Decl   uint32   // declaration index of Func
	IP     int      // index of the next instruction in Func.Code
	Locals []Value  // argument and local slots
	Base   int      // operand stack height when the frame was entered
}

// NewFrame creates a frame with every slot set to unit.
func NewFrame(fn *ir.Func, decl uint32) *Frame {
	locals := make([]Value, fn.Locals)
	for i := range locals {
		locals[i] = MakeUnit()
	}
	return &Frame{Func: fn, Decl: decl, Locals: locals}
}

// CurrentInstr returns the instruction at IP, or nil past the end of the body.
func (f *Frame) CurrentInstr() *ir.Instr {
	if f.IP < 0 || f.IP >= len(f.Func.Code) {
		return nil
	}
	return &f.Func.Code[f.IP]
}
