package vm

import (
	"fmt"

	"aves/internal/ir"
)

func (vm *VM) push(v Value) {
	if len(vm.stack) >= vm.opts.MaxOperandStack {
		vm.panic(TrapOperandOverflow, fmt.Sprintf("operand stack limit %d reached", vm.opts.MaxOperandStack))
	}
	vm.stack = append(vm.stack, v)
}

// pop removes the top operand of the current frame.
func (vm *VM) pop(op string) Value {
	base := vm.frames[len(vm.frames)-1].Base
	if len(vm.stack) <= base {
		vm.panic(TrapStackUnderflow, fmt.Sprintf("%s: operand stack is empty", op))
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) popInt(op string) int64 {
	v := vm.pop(op)
	if v.Kind != VKInt {
		panic(vm.eb.typeMismatch(op, "int", v))
	}
	return v.Int
}

func (vm *VM) popBool(op string) bool {
	v := vm.pop(op)
	if v.Kind != VKBool {
		panic(vm.eb.typeMismatch(op, "bool", v))
	}
	return v.Bool
}

func (vm *VM) popString(op string) string {
	v := vm.pop(op)
	if v.Kind != VKString {
		panic(vm.eb.typeMismatch(op, "string", v))
	}
	return v.Str
}

func (vm *VM) popArray(op string) *Object {
	v := vm.pop(op)
	if v.Kind != VKArray {
		panic(vm.eb.typeMismatch(op, "array", v))
	}
	return vm.Heap.Get(v.H)
}

// exec runs one instruction. Faults panic with *VMError and are recovered
// by Step; the instruction pointer only advances on success.
func (vm *VM) exec(frame *Frame, in *ir.Instr) {
	switch in.Op {
	case ir.OpNop, ir.OpLabel:

	case ir.OpIconst:
		vm.push(MakeInt(in.Int))
	case ir.OpConst:
		if int64(in.Index) >= int64(len(vm.Prog.Consts)) {
			vm.panic(TrapUndefinedDecl, fmt.Sprintf("const #%d out of range (pool size %d)", in.Index, len(vm.Prog.Consts)))
		}
		vm.push(FromLiteral(vm.Prog.Consts[in.Index]))
	case ir.OpTrue:
		vm.push(MakeBool(true))
	case ir.OpFalse:
		vm.push(MakeBool(false))
	case ir.OpUnit:
		vm.push(MakeUnit())

	case ir.OpPop:
		vm.pop(in.Op.String())
	case ir.OpDup:
		v := vm.pop(in.Op.String())
		vm.push(v)
		vm.push(v)
	case ir.OpSwap:
		b := vm.pop(in.Op.String())
		a := vm.pop(in.Op.String())
		vm.push(b)
		vm.push(a)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		b := vm.pop(in.Op.String())
		a := vm.pop(in.Op.String())
		vm.push(vm.arith(in.Op, a, b))
	case ir.OpNeg:
		vm.push(vm.negate(vm.pop(in.Op.String())))
	case ir.OpBand, ir.OpBor, ir.OpXor, ir.OpShl, ir.OpShr:
		b := vm.popInt(in.Op.String())
		a := vm.popInt(in.Op.String())
		vm.push(MakeInt(vm.bitwise(in.Op, a, b)))

	case ir.OpAnd, ir.OpOr:
		b := vm.popBool(in.Op.String())
		a := vm.popBool(in.Op.String())
		if in.Op == ir.OpAnd {
			vm.push(MakeBool(a && b))
		} else {
			vm.push(MakeBool(a || b))
		}
	case ir.OpNot:
		vm.push(MakeBool(!vm.popBool(in.Op.String())))

	case ir.OpEq, ir.OpNe:
		b := vm.pop(in.Op.String())
		a := vm.pop(in.Op.String())
		eq := vm.equal(a, b)
		vm.push(MakeBool(eq == (in.Op == ir.OpEq)))
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		b := vm.pop(in.Op.String())
		a := vm.pop(in.Op.String())
		vm.push(MakeBool(vm.ordered(in.Op, a, b)))

	case ir.OpLoad:
		vm.push(frame.Locals[vm.slot(frame, in)])
	case ir.OpStore:
		idx := vm.slot(frame, in)
		frame.Locals[idx] = vm.pop(in.Op.String())
	case ir.OpGload:
		vm.push(vm.globals[vm.global(in)])
	case ir.OpGstore:
		idx := vm.global(in)
		vm.globals[idx] = vm.pop(in.Op.String())

	case ir.OpJmp:
		frame.IP = vm.resolveLabel(frame, in.Label)
		return
	case ir.OpJf, ir.OpJt:
		cond := vm.popBool(in.Op.String())
		if cond == (in.Op == ir.OpJt) {
			frame.IP = vm.resolveLabel(frame, in.Label)
			return
		}
	case ir.OpCall:
		vm.call(frame, in)
		return
	case ir.OpRet:
		vm.ret(frame)
		return

	case ir.OpAnew:
		n := vm.popInt(in.Op.String())
		if n < 0 || n > maxArrayLen {
			panic(vm.eb.outOfBounds("array length", n, maxArrayLen))
		}
		vm.push(MakeArray(vm.Heap.AllocArray(int(n))))
	case ir.OpAget:
		idx := vm.popInt(in.Op.String())
		arr := vm.popArray(in.Op.String())
		vm.push(arr.Arr[vm.index(idx, len(arr.Arr))])
	case ir.OpAset:
		v := vm.pop(in.Op.String())
		idx := vm.popInt(in.Op.String())
		arr := vm.popArray(in.Op.String())
		arr.Arr[vm.index(idx, len(arr.Arr))] = v
	case ir.OpAlen:
		arr := vm.popArray(in.Op.String())
		vm.push(MakeInt(int64(len(arr.Arr))))

	case ir.OpIntrinsic:
		vm.intrinsic(in.Intrinsic)
		if vm.status != StatusRunning {
			return
		}

	default:
		vm.panic(TrapBadInstruction, fmt.Sprintf("unknown opcode 0x%02x", uint8(in.Op)))
	}
	frame.IP++
}

func (vm *VM) index(idx int64, n int) int {
	if idx < 0 || idx >= int64(n) {
		panic(vm.eb.outOfBounds("index", idx, n))
	}
	return int(idx)
}

func (vm *VM) slot(frame *Frame, in *ir.Instr) uint32 {
	if int64(in.Index) >= int64(len(frame.Locals)) {
		panic(vm.eb.outOfBounds("slot", int64(in.Index), len(frame.Locals)))
	}
	return in.Index
}

func (vm *VM) global(in *ir.Instr) uint32 {
	if vm.Prog.GlobalAt(in.Index) == nil {
		vm.panic(TrapUndefinedDecl, fmt.Sprintf("%s: declaration @%d is not a global", in.Op, in.Index))
	}
	return in.Index
}

// resolveLabel finds the instruction index of label in the current function.
// Label tables are built lazily, once per function.
func (vm *VM) resolveLabel(frame *Frame, label string) int {
	table, ok := vm.labels[frame.Func]
	if !ok {
		table = frame.Func.Labels()
		vm.labels[frame.Func] = table
	}
	ip, ok := table[label]
	if !ok {
		vm.panic(TrapUndefinedLabel, fmt.Sprintf("label %q is not defined in %s", label, frame.Func.Name))
	}
	return ip
}

func (vm *VM) call(frame *Frame, in *ir.Instr) {
	callee := vm.Prog.FuncAt(in.Index)
	if callee == nil {
		vm.panic(TrapUndefinedDecl, fmt.Sprintf("call: declaration @%d is not a function", in.Index))
	}
	if in.Argc != callee.Arity {
		vm.panic(TrapArityMismatch, fmt.Sprintf("%s takes %d arguments, called with %d", callee.Name, callee.Arity, in.Argc))
	}
	if len(vm.frames) >= vm.opts.MaxCallDepth {
		vm.panic(TrapStackOverflow, fmt.Sprintf("call depth limit %d reached calling %s", vm.opts.MaxCallDepth, callee.Name))
	}
	argc := int(in.Argc)
	if len(vm.stack)-frame.Base < argc {
		vm.panic(TrapStackUnderflow, fmt.Sprintf("call %s: needs %d arguments, operand stack holds %d", callee.Name, argc, len(vm.stack)-frame.Base))
	}
	next := NewFrame(callee, in.Index)
	args := vm.stack[len(vm.stack)-argc:]
	copy(next.Locals, args)
	if vm.Trace != nil {
		vm.Trace.TraceCall(len(vm.frames)+1, callee, args)
	}
	vm.stack = vm.stack[:len(vm.stack)-argc]
	next.Base = len(vm.stack)
	frame.IP++
	// frame указывает в vm.frames и может стать недействительным после append
	vm.frames = append(vm.frames, *next)
}

func (vm *VM) ret(frame *Frame) {
	v := vm.pop("ret")
	if vm.Trace != nil {
		vm.Trace.TraceReturn(len(vm.frames), frame.Func, v)
	}
	vm.stack = vm.stack[:frame.Base]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.Result = v
		vm.ExitCode = 0
		vm.status = StatusReturned
		return
	}
	vm.push(v)
}
