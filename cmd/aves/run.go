package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/config"
	"aves/internal/toolchain"
	"aves/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run <file|-> [args...]",
	Short: "Execute a program",
	Long: `Execute the program's main function. Arguments after the file are
passed to the program; stdin and stdout are the program's own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExecution,
}

func init() {
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().String("format", "auto", "input format (auto|bytecode|text)")
	runCmd.Flags().Bool("vm-trace", false, "trace executed instructions to stderr")
	runCmd.Flags().Bool("vm-trace-stack", false, "include operand stack snapshots in --vm-trace")
	runCmd.Flags().Uint64("max-steps", 0, "abort after N instructions (0 = unlimited)")
	runCmd.Flags().Int("max-depth", 0, "maximum call depth")
	runCmd.Flags().Int("max-operand-stack", 0, "maximum operand stack size")
	runCmd.Flags().Int("max-heap", 0, "maximum array cells allocated per run")
}

func runExecution(cmd *cobra.Command, args []string) error {
	src, err := readInput(cmd, args[:1])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limits, err := readLimits(cmd, cfg.Engine)
	if err != nil {
		return err
	}
	vmTrace, err := cmd.Flags().GetBool("vm-trace")
	if err != nil {
		return err
	}
	vmTraceStack, err := cmd.Flags().GetBool("vm-trace-stack")
	if err != nil {
		return err
	}

	req := toolchain.ExecRequest{
		Source:       src,
		Argv:         args[1:],
		Stdin:        os.Stdin,
		Stdout:       cmd.OutOrStdout(),
		Limits:       limits,
		VMTraceStack: vmTraceStack,
	}
	if src.Path == toolchain.StdinPath {
		// программа уже прочитана из stdin
		req.Stdin = nil
	}
	if vmTrace || vmTraceStack {
		req.VMTrace = cmd.ErrOrStderr()
	}

	ctx, report := timedContext(cmd)
	res, err := toolchain.Dispatch(ctx, req)
	report()
	var vmErr *vm.VMError
	switch {
	case err == nil:
	case errors.As(err, &vmErr), errors.Is(err, toolchain.ErrStepBudget):
		return fail(cmd.ErrOrStderr(), err, nil)
	default:
		return fail(cmd.ErrOrStderr(), err, &src)
	}
	exec := res.(toolchain.ExecResult)
	if code := processExitCode(exec.ExitCode); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// readLimits layers explicitly set flags over the configured engine limits.
func readLimits(cmd *cobra.Command, engine config.EngineConfig) (toolchain.Limits, error) {
	limits := toolchain.Limits{
		MaxSteps:        engine.MaxSteps,
		MaxCallDepth:    engine.MaxCallDepth,
		MaxOperandStack: engine.MaxOperandStack,
		MaxHeapCells:    engine.MaxHeapCells,
	}
	flags := cmd.Flags()
	if flags.Changed("max-steps") {
		v, err := flags.GetUint64("max-steps")
		if err != nil {
			return limits, err
		}
		limits.MaxSteps = v
	}
	if flags.Changed("max-depth") {
		v, err := flags.GetInt("max-depth")
		if err != nil {
			return limits, err
		}
		if v <= 0 {
			return limits, fmt.Errorf("--max-depth must be positive, got %d", v)
		}
		limits.MaxCallDepth = v
	}
	if flags.Changed("max-operand-stack") {
		v, err := flags.GetInt("max-operand-stack")
		if err != nil {
			return limits, err
		}
		if v <= 0 {
			return limits, fmt.Errorf("--max-operand-stack must be positive, got %d", v)
		}
		limits.MaxOperandStack = v
	}
	if flags.Changed("max-heap") {
		v, err := flags.GetInt("max-heap")
		if err != nil {
			return limits, err
		}
		if v <= 0 {
			return limits, fmt.Errorf("--max-heap must be positive, got %d", v)
		}
		limits.MaxHeapCells = v
	}
	return limits, nil
}

// processExitCode maps a program exit code onto a process status. Codes
// the OS would truncate (outside 0..255) become 1 so failure stays visible.
func processExitCode(code int) int {
	if code < 0 || code > 255 {
		return 1
	}
	return code
}
