// Package toolchain is the front door of aves: one closed set of requests
// (print, emit, exec) over a Source, each with its own result type.
package toolchain

import (
	"io"

	"aves/internal/vm"
)

// Request is one of PrintRequest, EmitRequest or ExecRequest.
type Request interface {
	isRequest()
	source() Source
}

// PrintRequest renders a program as canonical text IR.
type PrintRequest struct {
	Source Source
}

// EmitRequest encodes a program as bytecode.
type EmitRequest struct {
	Source Source
}

// ExecRequest runs a program's main function.
type ExecRequest struct {
	Source Source
	Argv   []string
	Stdin  io.Reader // nil means empty input
	Stdout io.Writer // nil means os.Stdout
	Limits Limits

	// VMTrace receives a per-instruction trace when non-nil.
	VMTrace      io.Writer
	VMTraceStack bool
}

// Limits bound one execution. Zero values select engine defaults; a zero
// MaxSteps means no step budget.
type Limits struct {
	MaxSteps        uint64
	MaxCallDepth    int
	MaxOperandStack int
	MaxHeapCells    int
}

func (PrintRequest) isRequest() {}
func (EmitRequest) isRequest()  {}
func (ExecRequest) isRequest()  {}

func (r PrintRequest) source() Source { return r.Source }
func (r EmitRequest) source() Source  { return r.Source }
func (r ExecRequest) source() Source  { return r.Source }

// Result is one of PrintResult, EmitResult or ExecResult.
type Result interface {
	isResult()
}

// PrintResult holds canonical text IR.
type PrintResult struct {
	Text []byte
}

// EmitResult holds encoded bytecode.
type EmitResult struct {
	Bytecode []byte
}

// ExecResult describes a finished, trapped or interrupted run.
type ExecResult struct {
	Status   vm.Status
	ExitCode int
	Steps    uint64
	Trap     *vm.VMError
}

func (PrintResult) isResult() {}
func (EmitResult) isResult()  {}
func (ExecResult) isResult()  {}
