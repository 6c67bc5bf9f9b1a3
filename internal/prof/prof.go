// Package prof wires runtime/pprof and runtime/trace to CLI flags.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

var (
	cpuFile   *os.File
	traceFile *os.File
)

// StartCPU enables CPU profiling and writes samples to path.
func StartCPU(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return errors.Join(err, f.Close())
	}
	cpuFile = f
	return nil
}

// StopCPU stops an active CPU profile and closes its file.
func StopCPU() error {
	pprof.StopCPUProfile()
	if cpuFile == nil {
		return nil
	}
	err := cpuFile.Close()
	cpuFile = nil
	return err
}

// WriteMem captures a heap profile to path.
func WriteMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

// StartTrace writes runtime trace data to path.
func StartTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		return errors.Join(err, f.Close())
	}
	traceFile = f
	return nil
}

// StopTrace ends an active runtime trace and closes its file.
func StopTrace() error {
	trace.Stop()
	if traceFile == nil {
		return nil
	}
	err := traceFile.Close()
	traceFile = nil
	return err
}
