package vm

import (
	"fmt"

	"aves/internal/ir"
)

const (
	// DefaultMaxCallDepth bounds nested calls when Options leaves it zero.
	DefaultMaxCallDepth = 1024
	// DefaultMaxOperandStack bounds operand values across all frames.
	DefaultMaxOperandStack = 65536
	// DefaultMaxHeapCells bounds array elements allocated over a whole run.
	DefaultMaxHeapCells = 1 << 22
	// maxArrayLen caps a single anew so a hostile program cannot exhaust memory.
	maxArrayLen = 1 << 24
)

// Options configures VM execution.
type Options struct {
	MaxCallDepth    int     // 0 means DefaultMaxCallDepth
	MaxOperandStack int     // 0 means DefaultMaxOperandStack
	MaxHeapCells    int     // 0 means DefaultMaxHeapCells
	Trace           *Tracer // nil disables instruction tracing
}

// Status is the lifecycle state of a run.
type Status uint8

const (
	StatusReady Status = iota
	StatusRunning
	StatusReturned // main executed ret
	StatusExited   // the exit intrinsic halted the program
	StatusTrapped  // an engine fault aborted the run
	StatusRaised   // reserved for language-level exceptions; never produced
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusReturned:
		return "returned"
	case StatusExited:
		return "exited"
	case StatusTrapped:
		return "trapped"
	case StatusRaised:
		return "raised"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Done reports whether the run has reached a terminal state.
func (s Status) Done() bool {
	return s >= StatusReturned
}

// VM executes a single program once. It is not safe for concurrent use;
// independent VMs may share one program.
type VM struct {
	Prog  *ir.Program
	RT    Runtime
	Trace *Tracer
	Heap  *Heap

	// ExitCode is 0 after a normal return and the exit intrinsic's argument
	// after StatusExited.
	ExitCode int
	// Result holds the value main returned.
	Result Value

	opts    Options
	globals []Value
	frames  []Frame
	stack   []Value
	labels  map[*ir.Func]map[string]int
	status  Status
	trap    *VMError
	steps   uint64

	eb *errorBuilder // for creating errors with backtrace
}

// New creates a VM for p. Globals are initialized immediately; execution
// begins with Start or Run.
func New(p *ir.Program, rt Runtime, opts Options) *VM {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.MaxOperandStack <= 0 {
		opts.MaxOperandStack = DefaultMaxOperandStack
	}
	if opts.MaxHeapCells <= 0 {
		opts.MaxHeapCells = DefaultMaxHeapCells
	}
	vm := &VM{
		Prog:   p,
		RT:     rt,
		Trace:  opts.Trace,
		opts:   opts,
		labels: make(map[*ir.Func]map[string]int),
	}
	vm.eb = &errorBuilder{vm: vm}
	vm.Heap = newHeap(vm, opts.MaxHeapCells)
	vm.globals = make([]Value, len(p.Decls))
	for i, d := range p.Decls {
		if g, ok := d.(*ir.Global); ok {
			vm.globals[i] = FromLiteral(g.Init)
		}
	}
	return vm
}

// Status returns the current lifecycle state.
func (vm *VM) Status() Status {
	return vm.status
}

// Err returns the trap that ended the run, if any.
func (vm *VM) Err() *VMError {
	return vm.trap
}

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Depth returns the current call depth.
func (vm *VM) Depth() int {
	return len(vm.frames)
}

// Run executes the program from main until it returns, exits or traps.
// Returns a VMError if execution traps, nil otherwise.
func (vm *VM) Run() *VMError {
	if vmErr := vm.Start(); vmErr != nil {
		return vmErr
	}
	for vm.status == StatusRunning {
		if vmErr := vm.Step(); vmErr != nil {
			return vmErr
		}
	}
	return nil
}

// Start pushes the frame for main. Calling it again is a no-op.
func (vm *VM) Start() *VMError {
	if vm.status != StatusReady {
		return vm.trap
	}
	vm.status = StatusRunning
	fn, idx, ok := vm.Prog.Entry()
	if !ok {
		return vm.fail(vm.eb.makeError(TrapMissingEntry, fmt.Sprintf("no function named %q", ir.EntryName)))
	}
	if fn.Arity != 0 {
		return vm.fail(vm.eb.makeError(TrapArityMismatch, fmt.Sprintf("%s must take no arguments, takes %d", ir.EntryName, fn.Arity)))
	}
	vm.frames = append(vm.frames, *NewFrame(fn, uint32(idx)))
	if vm.Trace != nil {
		vm.Trace.TraceCall(1, fn, nil)
	}
	return nil
}

func (vm *VM) fail(e *VMError) *VMError {
	vm.status = StatusTrapped
	vm.trap = e
	return e
}

// Step executes exactly one instruction.
// A trapped VM keeps returning the same error; a finished one returns nil.
func (vm *VM) Step() (vmErr *VMError) {
	switch vm.status {
	case StatusReady:
		return vm.Start()
	case StatusRunning:
	default:
		return vm.trap
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*VMError); ok {
				vmErr = vm.fail(e)
				return
			}
			panic(r)
		}
	}()

	frame := &vm.frames[len(vm.frames)-1]
	in := frame.CurrentInstr()
	if in == nil {
		vm.panic(TrapFellOffEnd, fmt.Sprintf("%s ended without ret", frame.Func.Name))
	}
	if vm.Trace != nil {
		vm.Trace.TraceInstr(len(vm.frames), frame.Func, frame.IP, in, vm.Prog)
	}
	vm.steps++
	vm.exec(frame, in)
	if vm.Trace != nil && len(vm.frames) > 0 {
		vm.Trace.TraceStack(vm.stack[vm.frames[len(vm.frames)-1].Base:])
	}
	return nil
}

func (vm *VM) panic(code TrapCode, msg string) {
	panic(vm.eb.makeError(code, msg))
}
