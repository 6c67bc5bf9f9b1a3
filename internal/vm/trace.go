package vm

import (
	"fmt"
	"io"
	"strings"

	"aves/internal/ir"
)

// Tracer outputs execution traces for debugging.
type Tracer struct {
	w     io.Writer
	stack bool // also dump the operand stack after every instruction
}

// NewTracer creates a new tracer that writes to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// WithStack enables operand stack dumps.
func (t *Tracer) WithStack() *Tracer {
	t.stack = true
	return t
}

// TraceInstr traces execution of an instruction.
// Format: [depth=N] <func>+<ip> <instr>
func (t *Tracer) TraceInstr(depth int, fn *ir.Func, ip int, in *ir.Instr, prog *ir.Program) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[depth=%d] %s+%d %s\n", depth, fn.Name, ip, formatInstr(in, prog))
}

// TraceStack dumps the operand values of the current frame.
func (t *Tracer) TraceStack(vals []Value) {
	if t == nil || t.w == nil || !t.stack {
		return
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	fmt.Fprintf(t.w, "    stack [%s]\n", strings.Join(parts, ", "))
}

func (t *Tracer) TraceCall(depth int, callee *ir.Func, args []Value) {
	if t == nil || t.w == nil {
		return
	}
	parts := make([]string, len(args))
	for i, v := range args {
		parts[i] = v.String()
	}
	fmt.Fprintf(t.w, "[depth=%d] enter %s(%s)\n", depth, callee.Name, strings.Join(parts, ", "))
}

func (t *Tracer) TraceReturn(depth int, fn *ir.Func, v Value) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[depth=%d] leave %s = %s\n", depth, fn.Name, v)
}

func (t *Tracer) TraceHeapAlloc(h Handle, n int) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[heap] alloc array#%d len=%d\n", h, n)
}

// formatInstr renders declaration operands by name.
func formatInstr(in *ir.Instr, prog *ir.Program) string {
	switch in.Op.Shape() {
	case ir.ShapeDecl, ir.ShapeCall:
		name := fmt.Sprintf("@%d", in.Index)
		if prog != nil && int64(in.Index) < int64(len(prog.Decls)) {
			name = prog.Decls[in.Index].DeclName()
		}
		if in.Op.Shape() == ir.ShapeCall {
			return fmt.Sprintf("%s %s %d", in.Op, name, in.Argc)
		}
		return in.Op.String() + " " + name
	default:
		return in.String()
	}
}
