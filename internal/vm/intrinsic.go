package vm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"aves/internal/ir"
)

// intrinsic dispatches a host operation. Print intrinsics write nothing on
// the operand stack.
func (vm *VM) intrinsic(id ir.Intrinsic) {
	name := id.String()
	switch id {
	case ir.IntrinsicPrintInt:
		vm.write(strconv.FormatInt(vm.popInt(name), 10))
	case ir.IntrinsicPrintString:
		vm.write(vm.popString(name))
	case ir.IntrinsicPrintFloat:
		v := vm.pop(name)
		if v.Kind != VKFloat {
			panic(vm.eb.typeMismatch(name, "float", v))
		}
		vm.write(formatScalar(v))
	case ir.IntrinsicPrint:
		vm.write(vm.display(vm.pop(name)))
	case ir.IntrinsicPrintln:
		vm.write(vm.display(vm.pop(name)) + "\n")

	case ir.IntrinsicExit:
		code := vm.popInt(name)
		if code < math.MinInt32 || code > math.MaxInt32 {
			panic(vm.eb.outOfBounds("exit code", code, math.MaxInt32))
		}
		vm.RT.Exit(int(code))
		vm.ExitCode = int(code)
		vm.status = StatusExited

	case ir.IntrinsicConcat:
		b := vm.popString(name)
		a := vm.popString(name)
		vm.push(MakeString(a + b))
	case ir.IntrinsicLen:
		v := vm.pop(name)
		switch v.Kind {
		case VKString, VKBytes:
			vm.push(MakeInt(int64(len(v.Str))))
		case VKArray:
			vm.push(MakeInt(int64(len(vm.Heap.Get(v.H).Arr))))
		default:
			panic(vm.eb.typeMismatch(name, "string, bytes or array", v))
		}
	case ir.IntrinsicItof:
		vm.push(MakeFloat(float64(vm.popInt(name))))
	case ir.IntrinsicFtoi:
		v := vm.pop(name)
		if v.Kind != VKFloat {
			panic(vm.eb.typeMismatch(name, "float", v))
		}
		// out-of-range conversions are implementation-defined in Go
		t := math.Trunc(v.Float)
		if math.IsNaN(t) || t < math.MinInt64 || t >= math.MaxInt64 {
			vm.panic(TrapOutOfBounds, fmt.Sprintf("%s: %v does not fit in int", name, v.Float))
		}
		vm.push(MakeInt(int64(t)))
	case ir.IntrinsicToString:
		vm.push(MakeString(vm.display(vm.pop(name))))

	case ir.IntrinsicReadLine:
		if line, ok := vm.RT.ReadLine(); ok {
			vm.push(MakeString(line))
		} else {
			vm.push(MakeUnit())
		}
	case ir.IntrinsicArgc:
		vm.push(MakeInt(int64(len(vm.RT.Argv()))))
	case ir.IntrinsicArgv:
		idx := vm.popInt(name)
		argv := vm.RT.Argv()
		vm.push(MakeString(argv[vm.index(idx, len(argv))]))

	default:
		vm.panic(TrapBadInstruction, fmt.Sprintf("unknown intrinsic %d", uint32(id)))
	}
}

func (vm *VM) write(s string) {
	// ошибки вывода не влияют на семантику программы
	_, _ = io.WriteString(vm.RT.Stdout(), s)
}

// display renders v the way print shows it; arrays print their elements.
func (vm *VM) display(v Value) string {
	if v.Kind != VKArray {
		return formatScalar(v)
	}
	var sb strings.Builder
	vm.displayArray(&sb, v.H, make(map[Handle]bool))
	return sb.String()
}

func (vm *VM) displayArray(sb *strings.Builder, h Handle, seen map[Handle]bool) {
	if seen[h] {
		sb.WriteString("[...]")
		return
	}
	seen[h] = true
	defer delete(seen, h)
	sb.WriteByte('[')
	for i, el := range vm.Heap.Get(h).Arr {
		if i > 0 {
			sb.WriteString(", ")
		}
		if el.Kind == VKArray {
			vm.displayArray(sb, el.H, seen)
			continue
		}
		if el.Kind == VKString {
			sb.WriteString(strconv.Quote(el.Str))
			continue
		}
		sb.WriteString(formatScalar(el))
	}
	sb.WriteByte(']')
}
