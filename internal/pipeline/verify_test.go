package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"aves/internal/bytecode"
	"aves/internal/testkit"
	"aves/internal/toolchain"
	"aves/internal/vcache"
	"aves/internal/vm"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) final() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Status)
	for _, ev := range s.events {
		out[ev.File] = ev.Status
	}
	return out
}

func writeProgram(t *testing.T, dir, name, src string) {
	t.Helper()
	data := testkit.MustEncode(t, testkit.MustParse(t, src))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeText(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const printFive = "func main(0) { iconst 2 iconst 3 add intrinsic print_int unit ret }"

func setupBatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeProgram(t, dir, "a_sum.avb", printFive)
	writeText(t, filepath.Join(dir, "a_sum.out"), "5")
	writeProgram(t, dir, "b_mismatch.avb", printFive)
	writeText(t, filepath.Join(dir, "b_mismatch.out"), "6")
	writeProgram(t, dir, "c_trap.avb", "func main(0) { iconst 1 iconst 0 div ret }")
	writeText(t, filepath.Join(dir, "c_trap.out"), "")
	writeText(t, filepath.Join(dir, "d_garbage.avb"), "AVES\x01\x00")
	writeProgram(t, dir, "e_codec_only.avb", "func helper(0) { unit ret }")
	writeText(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeProgram(t, filepath.Join(dir, "nested"), "f_deep.avb", printFive)
	return dir
}

func TestVerifyBatch(t *testing.T) {
	dir := setupBatch(t)
	sink := &recordingSink{}
	res, err := Verify(context.Background(), VerifyRequest{
		Paths:    []string{dir},
		BaseDir:  dir,
		Jobs:     3,
		Progress: sink,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	want := []struct {
		display string
		outcome Outcome
		stage   Stage
	}{
		{"a_sum.avb", OutcomePassed, StageExecute},
		{"b_mismatch.avb", OutcomeFailed, StageExecute},
		{"c_trap.avb", OutcomeFailed, StageExecute},
		{"d_garbage.avb", OutcomeFailed, StageRoundTrip},
		{"e_codec_only.avb", OutcomePassed, StageRoundTrip},
		{"nested/f_deep.avb", OutcomePassed, StageRoundTrip},
	}
	if len(res.Files) != len(want) {
		t.Fatalf("got %d files: %+v", len(res.Files), res.Files)
	}
	for i, w := range want {
		got := res.Files[i]
		if got.Display != w.display || got.Outcome != w.outcome || got.Stage != w.stage {
			t.Errorf("file %d = %s %s %s (err %v), want %s %s %s", i, got.Display, got.Outcome, got.Stage, got.Err, w.display, w.outcome, w.stage)
		}
	}
	if res.Passed != 3 || res.Failed != 3 || res.Cached != 0 {
		t.Fatalf("counts = %d passed, %d failed, %d cached", res.Passed, res.Failed, res.Cached)
	}

	var mismatch *OutputMismatchError
	if !errors.As(res.Files[1].Err, &mismatch) || mismatch.Offset != 0 {
		t.Errorf("mismatch err = %v", res.Files[1].Err)
	}
	var vmErr *vm.VMError
	if !errors.As(res.Files[2].Err, &vmErr) || vmErr.Code != vm.TrapDivisionByZero {
		t.Errorf("trap err = %v", res.Files[2].Err)
	}
	var fe *bytecode.FormatError
	if !errors.As(res.Files[3].Err, &fe) {
		t.Errorf("garbage err = %v", res.Files[3].Err)
	}
	if !res.Timings.Has(StageRoundTrip) || !res.Timings.Has(StageExecute) {
		t.Error("timings missing stages")
	}

	final := sink.final()
	if final["a_sum.avb"] != StatusDone || final["b_mismatch.avb"] != StatusError {
		t.Errorf("final statuses = %v", final)
	}
}

func TestVerifyUsesCache(t *testing.T) {
	dir := setupBatch(t)
	cache, err := vcache.Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	req := VerifyRequest{Paths: []string{dir}, BaseDir: dir, Cache: cache}
	first, err := Verify(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached != 0 {
		t.Fatalf("first run cached %d files", first.Cached)
	}

	sink := &recordingSink{}
	req.Progress = sink
	second, err := Verify(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	// only passing files are remembered
	if second.Cached != 3 || second.Failed != 3 || second.Passed != 0 {
		t.Fatalf("second run = %d cached, %d failed, %d passed", second.Cached, second.Failed, second.Passed)
	}
	if sink.final()["a_sum.avb"] != StatusCached {
		t.Errorf("a_sum.avb status = %s", sink.final()["a_sum.avb"])
	}
	if !second.Files[0].Executed || second.Files[0].Steps != 6 {
		t.Errorf("cached record = %+v", second.Files[0])
	}

	// a changed expectation invalidates the entry
	writeText(t, filepath.Join(dir, "a_sum.out"), "55")
	third, err := Verify(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if third.Files[0].Outcome != OutcomeFailed {
		t.Fatalf("a_sum.avb after edit = %s", third.Files[0].Outcome)
	}
}

func TestVerifyStepBudget(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "spin.avb", "func main(0) { top: jmp top }")
	writeText(t, filepath.Join(dir, "spin.out"), "")
	res, err := Verify(context.Background(), VerifyRequest{
		Paths:  []string{filepath.Join(dir, "spin.avb")},
		Limits: toolchain.Limits{MaxSteps: 50},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || !errors.Is(res.Files[0].Err, toolchain.ErrStepBudget) {
		t.Fatalf("result = %+v", res.Files)
	}
}

func TestVerifyCancelled(t *testing.T) {
	dir := setupBatch(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Verify(ctx, VerifyRequest{Paths: []string{dir}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestVerifyMissingPath(t *testing.T) {
	if _, err := Verify(context.Background(), VerifyRequest{Paths: []string{filepath.Join(t.TempDir(), "nope")}}); err == nil {
		t.Fatal("expected error for a missing path")
	}
}

func TestExpectedPath(t *testing.T) {
	if got := ExpectedPath("dir/prog.avb", ".out"); got != "dir/prog.out" {
		t.Fatalf("ExpectedPath = %q", got)
	}
}
