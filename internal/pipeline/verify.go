// Package pipeline verifies batches of bytecode files: every file must
// survive a round trip through the text representation, and files with an
// expected-output companion must print exactly that output when run.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aves/internal/toolchain"
	"aves/internal/trace"
	"aves/internal/vcache"
	"aves/internal/version"
	"aves/internal/vm"
)

// DefaultExpectedExt names expected-output files next to .avb files.
const DefaultExpectedExt = ".out"

// VerifyRequest configures a batch.
type VerifyRequest struct {
	Paths       []string
	BaseDir     string // display paths are relative to it
	Jobs        int    // 0 = GOMAXPROCS
	ExpectedExt string // "" = DefaultExpectedExt
	Limits      toolchain.Limits
	Cache       *vcache.Cache // nil disables caching
	Progress    ProgressSink
}

// Outcome is the verdict for one file.
type Outcome uint8

const (
	OutcomePassed Outcome = iota
	OutcomeCached
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeCached:
		return "cached"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// FileResult describes one verified file.
type FileResult struct {
	Path     string
	Display  string
	Outcome  Outcome
	Stage    Stage // stage that failed, or the last one run
	Err      error
	Executed bool
	Steps    uint64
	Elapsed  time.Duration
}

// VerifyResult lists files in sorted path order.
type VerifyResult struct {
	Files   []FileResult
	Passed  int
	Cached  int
	Failed  int
	Timings Timings
}

// OutputMismatchError reports program output that differs from the
// expected-output file.
type OutputMismatchError struct {
	Offset  int
	WantLen int
	GotLen  int
}

func (e *OutputMismatchError) Error() string {
	return fmt.Sprintf("output differs at byte %d (expected %d bytes, got %d)", e.Offset, e.WantLen, e.GotLen)
}

// Verify checks every file named by req. Per-file failures are reported in
// the result; the error is reserved for problems with the batch itself
// (unreadable paths, cancellation).
func Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	var result VerifyResult
	files, err := CollectFiles(req.Paths)
	if err != nil {
		return result, err
	}
	display := DisplayPaths(files, req.BaseDir)
	ext := req.ExpectedExt
	if ext == "" {
		ext = DefaultExpectedExt
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.Start(ctx, trace.ScopePhase, "verify")
	defer func() {
		span.WithExtra("files", fmt.Sprint(len(files))).WithExtra("failed", fmt.Sprint(result.Failed)).End("")
	}()

	for _, d := range display {
		emit(req.Progress, d, StageRoundTrip, StatusQueued, nil, 0)
	}

	// индексы уникальны для каждой горутины, мьютекс нужен только для Timings
	result.Files = make([]FileResult, len(files))
	var timingsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v := &verifier{req: req, ext: ext, path: path, display: display[i]}
			res := v.run(gctx)
			result.Files[i] = res
			timingsMu.Lock()
			for stage, d := range v.stageTimes {
				result.Timings.Add(stage, d)
			}
			timingsMu.Unlock()
			if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
				return res.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, f := range result.Files {
		switch f.Outcome {
		case OutcomePassed:
			result.Passed++
		case OutcomeCached:
			result.Cached++
		default:
			result.Failed++
		}
	}
	return result, nil
}

type verifier struct {
	req        VerifyRequest
	ext        string
	path       string
	display    string
	stageTimes map[Stage]time.Duration
}

func (v *verifier) run(ctx context.Context) FileResult {
	ctx, span := trace.Start(ctx, trace.ScopeFile, "file:"+v.display)
	start := time.Now()
	res := v.check(ctx)
	res.Path = v.path
	res.Display = v.display
	res.Elapsed = time.Since(start)
	span.WithExtra("outcome", res.Outcome.String()).End(errText(res.Err))

	switch res.Outcome {
	case OutcomeFailed:
		emit(v.req.Progress, v.display, res.Stage, StatusError, res.Err, res.Elapsed)
	case OutcomeCached:
		emit(v.req.Progress, v.display, res.Stage, StatusCached, nil, res.Elapsed)
	default:
		emit(v.req.Progress, v.display, res.Stage, StatusDone, nil, res.Elapsed)
	}
	return res
}

func (v *verifier) check(ctx context.Context) FileResult {
	res := FileResult{Stage: StageRoundTrip}
	fail := func(stage Stage, err error) FileResult {
		res.Stage = stage
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		return fail(StageRoundTrip, err)
	}
	expected, hasExpected, err := readOptional(ExpectedPath(v.path, v.ext))
	if err != nil {
		return fail(StageExecute, err)
	}

	key := v.cacheKey(data, expected, hasExpected)
	var rec vcache.Record
	if found, err := v.req.Cache.Get(key, &rec); err == nil && found {
		res.Outcome = OutcomeCached
		res.Executed = rec.Executed
		res.Steps = rec.Steps
		if rec.Executed {
			res.Stage = StageExecute
		}
		return res
	}

	emit(v.req.Progress, v.display, StageRoundTrip, StatusWorking, nil, 0)
	if err := v.timed(StageRoundTrip, func() error { return toolchain.RoundTrip(data) }); err != nil {
		return fail(StageRoundTrip, err)
	}

	if hasExpected {
		res.Stage = StageExecute
		res.Executed = true
		emit(v.req.Progress, v.display, StageExecute, StatusWorking, nil, 0)
		var steps uint64
		err := v.timed(StageExecute, func() error {
			var err error
			steps, err = v.execute(ctx, data, expected)
			return err
		})
		res.Steps = steps
		if err != nil {
			return fail(StageExecute, err)
		}
	}

	res.Outcome = OutcomePassed
	if err := v.req.Cache.Put(key, &vcache.Record{Path: v.display, Executed: res.Executed, Steps: res.Steps}); err != nil {
		trace.Point(ctx, trace.ScopeFile, "cache", "put failed: "+err.Error())
	}
	return res
}

func (v *verifier) execute(ctx context.Context, data, expected []byte) (uint64, error) {
	var out bytes.Buffer
	res, err := toolchain.Dispatch(ctx, toolchain.ExecRequest{
		Source: toolchain.Source{Path: v.path, Data: data, Format: toolchain.FormatBytecode},
		Stdout: &out,
		Limits: v.req.Limits,
	})
	var steps uint64
	if er, ok := res.(toolchain.ExecResult); ok {
		steps = er.Steps
	}
	if err != nil {
		return steps, err
	}
	if off, same := firstDiff(expected, out.Bytes()); !same {
		return steps, &OutputMismatchError{Offset: off, WantLen: len(expected), GotLen: out.Len()}
	}
	return steps, nil
}

func (v *verifier) timed(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if v.stageTimes == nil {
		v.stageTimes = make(map[Stage]time.Duration)
	}
	v.stageTimes[stage] += time.Since(start)
	return err
}

// cacheKey covers everything the verdict depends on: the bytecode, the
// expected output, the limits and the toolchain version.
func (v *verifier) cacheKey(data, expected []byte, hasExpected bool) vcache.Digest {
	limits := fmt.Sprintf("%d/%d/%d/%d/%t", v.req.Limits.MaxSteps, v.req.Limits.MaxCallDepth, v.req.Limits.MaxOperandStack, v.req.Limits.MaxHeapCells, hasExpected)
	return vcache.KeyOf(data, expected, []byte(limits), []byte(version.Version))
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func firstDiff(a, b []byte) (int, bool) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i, false
		}
	}
	return n, len(a) == len(b)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	var vmErr *vm.VMError
	if errors.As(err, &vmErr) {
		return vmErr.Code.String()
	}
	return "error"
}
