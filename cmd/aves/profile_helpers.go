package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/prof"
)

// setupProfiling enables the profilers named by persistent flags. The
// returned cleanup is safe to call multiple times.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()

	cpuProfile, err := flags.GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := flags.GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := flags.GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	report := func(what string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to %s: %v\n", what, err)
		}
	}
	stopCPU := func() {}
	stopTrace := func() {}
	writeMem := func() {}

	if cpuProfile != "" {
		if err := prof.StartCPU(cpuProfile); err != nil {
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		stopCPU = func() { report("stop cpu profile", prof.StopCPU()) }
	}
	if tracePath != "" {
		if err := prof.StartTrace(tracePath); err != nil {
			stopCPU()
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		stopTrace = func() { report("stop runtime trace", prof.StopTrace()) }
	}
	if memProfile != "" {
		writeMem = func() { report("write heap profile", prof.WriteMem(memProfile)) }
	}

	cleaned := false
	return func() {
		if cleaned {
			return
		}
		cleaned = true
		stopTrace()
		stopCPU()
		writeMem()
	}, nil
}
