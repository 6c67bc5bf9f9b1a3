package vm

import (
	"fmt"
	"strings"
)

// TrapCode identifies the condition that stopped a run.
type TrapCode int

// Stable trap codes - do not change values.
const (
	TrapTypeMismatch    TrapCode = 1001 // VM1001: operand of the wrong kind
	TrapStackUnderflow  TrapCode = 1002 // VM1002: pop from an empty operand stack
	TrapStackOverflow   TrapCode = 1003 // VM1003: call depth limit exceeded
	TrapOperandOverflow TrapCode = 1004 // VM1004: operand stack limit exceeded
	TrapDivisionByZero  TrapCode = 1005 // VM1005: integer div/mod by zero
	TrapOutOfBounds     TrapCode = 1006 // VM1006: index, slot or conversion out of range
	TrapArityMismatch   TrapCode = 1007 // VM1007: call argc differs from callee arity
	TrapUndefinedLabel  TrapCode = 1008 // VM1008: jump to a label the function lacks
	TrapUndefinedDecl   TrapCode = 1009 // VM1009: reference to a missing or mismatched declaration
	TrapFellOffEnd      TrapCode = 1010 // VM1010: function body ended without ret
	TrapBadInstruction  TrapCode = 1011 // VM1011: unknown opcode or intrinsic
	TrapMissingEntry    TrapCode = 1012 // VM1012: no callable main
	TrapHeapExhausted   TrapCode = 1013 // VM1013: heap cell budget exceeded
)

var trapNames = map[TrapCode]string{
	TrapTypeMismatch:    "TypeMismatch",
	TrapStackUnderflow:  "StackUnderflow",
	TrapStackOverflow:   "StackOverflow",
	TrapOperandOverflow: "OperandOverflow",
	TrapDivisionByZero:  "DivisionByZero",
	TrapOutOfBounds:     "OutOfBounds",
	TrapArityMismatch:   "ArityMismatch",
	TrapUndefinedLabel:  "UndefinedLabel",
	TrapUndefinedDecl:   "UndefinedDecl",
	TrapFellOffEnd:      "FellOffEnd",
	TrapBadInstruction:  "BadInstruction",
	TrapMissingEntry:    "MissingEntry",
	TrapHeapExhausted:   "HeapExhausted",
}

// String returns the code as "VM1001" format.
func (c TrapCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// Name returns the condition name, e.g. "DivisionByZero".
func (c TrapCode) Name() string {
	if n, ok := trapNames[c]; ok {
		return n
	}
	return "Unknown"
}

// BacktraceFrame represents one frame in the trap backtrace.
type BacktraceFrame struct {
	FuncName string
	IP       int
}

func (f BacktraceFrame) String() string {
	return fmt.Sprintf("%s+%d", f.FuncName, f.IP)
}

// VMError represents a trapped run.
type VMError struct {
	Code      TrapCode
	Message   string
	Func      string // function executing when the trap fired, empty before the first frame
	IP        int
	Op        string           // mnemonic of the failing instruction
	Backtrace []BacktraceFrame // Stack frames from top to bottom
}

// Error implements the error interface.
func (e *VMError) Error() string {
	return fmt.Sprintf("trap %s %s: %s", e.Code, e.Code.Name(), e.Message)
}

// Format renders the trap with its location and backtrace.
func (e *VMError) Format() string {
	var sb strings.Builder

	// Header: trap VM1005 DivisionByZero: <message>
	sb.WriteString(e.Error())
	sb.WriteString("\n")

	if e.Func != "" {
		fmt.Fprintf(&sb, "at %s+%d", e.Func, e.IP)
		if e.Op != "" {
			fmt.Fprintf(&sb, " (%s)", e.Op)
		}
		sb.WriteString("\n")
	}
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s\n", i, frame)
		}
	}
	return sb.String()
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	vm *VM
}

func (eb *errorBuilder) makeError(code TrapCode, msg string) *VMError {
	e := &VMError{
		Code:    code,
		Message: msg,
	}
	frames := eb.vm.frames
	if len(frames) > 0 {
		top := &frames[len(frames)-1]
		e.Func = top.Func.Name
		e.IP = top.IP
		if in := top.CurrentInstr(); in != nil {
			e.Op = in.Op.String()
		}
	}

	// Build backtrace from stack (top to bottom)
	e.Backtrace = make([]BacktraceFrame, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		e.Backtrace[len(frames)-1-i] = BacktraceFrame{FuncName: frames[i].Func.Name, IP: frames[i].IP}
	}
	return e
}

func (eb *errorBuilder) typeMismatch(op, expected string, got Value) *VMError {
	return eb.makeError(TrapTypeMismatch, fmt.Sprintf("%s: expected %s, got %s", op, expected, got.Kind))
}

func (eb *errorBuilder) outOfBounds(what string, index int64, length int) *VMError {
	return eb.makeError(TrapOutOfBounds, fmt.Sprintf("%s %d out of bounds for length %d", what, index, length))
}
