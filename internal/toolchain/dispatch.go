package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"

	"aves/internal/bytecode"
	"aves/internal/ir"
	"aves/internal/textir"
	"aves/internal/trace"
	"aves/internal/vm"
)

// ErrStepBudget is returned when a run exceeds Limits.MaxSteps.
var ErrStepBudget = errors.New("step budget exhausted")

// cancelCheckInterval is how many steps run between context checks.
const cancelCheckInterval = 1024

// Dispatch executes req. For ExecRequest the result is returned even when
// the run fails: a trap yields the *vm.VMError as the error, a budget or
// cancellation stop yields ErrStepBudget or the context error.
func Dispatch(ctx context.Context, req Request) (Result, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	p, err := req.source().Load(ctx)
	if err != nil {
		return nil, err
	}

	switch r := req.(type) {
	case PrintRequest:
		_, span := trace.Start(ctx, trace.ScopePhase, "print")
		end := timerFrom(ctx).Track("print")
		text := textir.Print(p)
		end("")
		span.End("")
		return PrintResult{Text: text}, nil

	case EmitRequest:
		_, span := trace.Start(ctx, trace.ScopePhase, "encode")
		end := timerFrom(ctx).Track("encode")
		data, err := bytecode.Encode(p)
		end(fmt.Sprintf("%d bytes", len(data)))
		span.End(errDetail(err))
		if err != nil {
			return nil, err
		}
		return EmitResult{Bytecode: data}, nil

	case ExecRequest:
		return execute(ctx, r, newMachine(r, p))

	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
}

func newMachine(r ExecRequest, p *ir.Program) *vm.VM {
	out := r.Stdout
	if out == nil {
		out = os.Stdout
	}
	opts := vm.Options{
		MaxCallDepth:    r.Limits.MaxCallDepth,
		MaxOperandStack: r.Limits.MaxOperandStack,
		MaxHeapCells:    r.Limits.MaxHeapCells,
	}
	if r.VMTrace != nil {
		opts.Trace = vm.NewTracer(r.VMTrace)
		if r.VMTraceStack {
			opts.Trace.WithStack()
		}
	}
	return vm.New(p, vm.NewStreamRuntime(out, r.Stdin, r.Argv), opts)
}

// execute steps the machine, layering the step budget and cancellation on
// top of the engine.
func execute(ctx context.Context, r ExecRequest, m *vm.VM) (ExecResult, error) {
	ctx, span := trace.Start(ctx, trace.ScopePhase, "execute")
	end := timerFrom(ctx).Track("execute")
	res, err := drive(ctx, r.Limits.MaxSteps, m)
	end(fmt.Sprintf("%d steps", res.Steps))
	span.WithExtra("steps", fmt.Sprint(res.Steps)).WithExtra("status", res.Status.String()).End(errDetail(err))
	return res, err
}

func drive(ctx context.Context, budget uint64, m *vm.VM) (ExecResult, error) {
	result := func() ExecResult {
		return ExecResult{Status: m.Status(), ExitCode: m.ExitCode, Steps: m.Steps(), Trap: m.Err()}
	}
	if vmErr := m.Start(); vmErr != nil {
		return result(), vmErr
	}
	for m.Status() == vm.StatusRunning {
		if budget > 0 && m.Steps() >= budget {
			return result(), fmt.Errorf("%w after %d steps", ErrStepBudget, m.Steps())
		}
		if m.Steps()%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return result(), err
			}
			if m.Steps() > 0 {
				trace.Point(ctx, trace.ScopeInstr, "steps", fmt.Sprintf("%d depth=%d", m.Steps(), m.Depth()))
			}
		}
		if vmErr := m.Step(); vmErr != nil {
			return result(), vmErr
		}
	}
	return result(), nil
}
