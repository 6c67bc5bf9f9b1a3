package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aves/internal/bytecode"
	"aves/internal/config"
	"aves/internal/pipeline"
	"aves/internal/toolchain"
)

func init() {
	color.NoColor = true
}

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in   string
		want uiMode
		ok   bool
	}{
		{"", uiAuto, true},
		{"AUTO", uiAuto, true},
		{" on ", uiOn, true},
		{"tui", uiOn, true},
		{"off", uiPlain, true},
		{"plain", uiPlain, true},
		{"sometimes", uiAuto, false},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("readUIMode(%q) = %d, %v", tt.in, got, err)
		}
	}
	if !useProgressView(uiOn, os.Stdout) || useProgressView(uiPlain, os.Stdout) {
		t.Fatal("explicit ui modes must win over terminal detection")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if useProgressView(uiAuto, f) {
		t.Fatal("auto mode chose the live view for a regular file")
	}
}

func limitsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Uint64("max-steps", 0, "")
	cmd.Flags().Int("max-depth", 0, "")
	cmd.Flags().Int("max-operand-stack", 0, "")
	cmd.Flags().Int("max-heap", 0, "")
	return cmd
}

var testEngine = config.EngineConfig{MaxSteps: 500, MaxCallDepth: 64, MaxOperandStack: 128, MaxHeapCells: 4096}

func TestReadLimitsKeepsConfigWhenFlagsUnset(t *testing.T) {
	cmd := limitsCommand()
	limits, err := readLimits(cmd, testEngine)
	if err != nil {
		t.Fatal(err)
	}
	want := toolchain.Limits{MaxSteps: 500, MaxCallDepth: 64, MaxOperandStack: 128, MaxHeapCells: 4096}
	if limits != want {
		t.Fatalf("limits = %+v, want %+v", limits, want)
	}
}

func TestReadLimitsFlagsOverride(t *testing.T) {
	cmd := limitsCommand()
	if err := cmd.Flags().Parse([]string{"--max-steps=10", "--max-depth=3", "--max-heap=64"}); err != nil {
		t.Fatal(err)
	}
	limits, err := readLimits(cmd, testEngine)
	if err != nil {
		t.Fatal(err)
	}
	want := toolchain.Limits{MaxSteps: 10, MaxCallDepth: 3, MaxOperandStack: 128, MaxHeapCells: 64}
	if limits != want {
		t.Fatalf("limits = %+v, want %+v", limits, want)
	}

	cmd = limitsCommand()
	if err := cmd.Flags().Parse([]string{"--max-depth=0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimits(cmd, testEngine); err == nil {
		t.Fatal("zero depth accepted")
	}

	cmd = limitsCommand()
	if err := cmd.Flags().Parse([]string{"--max-heap=-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimits(cmd, testEngine); err == nil {
		t.Fatal("negative heap budget accepted")
	}
}

func TestProcessExitCode(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0},
		{3, 3},
		{255, 255},
		{256, 1},
		{512, 1},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := processExitCode(tt.in); got != tt.want {
			t.Errorf("processExitCode(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHexWindow(t *testing.T) {
	data := []byte{0x41, 0x56, 0x45, 0x53, 0x01}
	if got, want := hexWindow(data, 4), "@0: 41 56 45 53 [01]"; got != want {
		t.Fatalf("hexWindow = %q, want %q", got, want)
	}
	if got := hexWindow(data, 5); !strings.Contains(got, "end of input after 5 bytes") {
		t.Fatalf("hexWindow at end = %q", got)
	}
}

func TestPrintErrorShowsSnippet(t *testing.T) {
	src := toolchain.Source{Path: "bad.avt", Data: []byte("func main(0) {\n  frob\n}\n"), Format: toolchain.FormatText}
	_, err := toolchain.Dispatch(context.Background(), toolchain.EmitRequest{Source: src})
	if err == nil {
		t.Fatal("expected parse error")
	}
	var buf bytes.Buffer
	printError(&buf, err, &src)
	out := buf.String()
	if !strings.HasPrefix(out, "error: ") {
		t.Fatalf("missing error label:\n%s", out)
	}
	if !strings.Contains(out, "frob") || !strings.Contains(out, "^") {
		t.Fatalf("missing snippet:\n%s", out)
	}
}

func TestPrintErrorShowsBytes(t *testing.T) {
	src := toolchain.Source{Path: "short.avb", Data: []byte("AVES"), Format: toolchain.FormatBytecode}
	_, err := toolchain.Dispatch(context.Background(), toolchain.PrintRequest{Source: src})
	var ferr *bytecode.FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *bytecode.FormatError, got %v", err)
	}
	var buf bytes.Buffer
	printError(&buf, err, &src)
	if !strings.Contains(buf.String(), "bytes:") {
		t.Fatalf("missing byte window:\n%s", buf.String())
	}
}

func TestPrintErrorFormatsTrap(t *testing.T) {
	src := toolchain.Source{Path: "div.avt", Data: []byte("func main(0) {\n  iconst 1\n  iconst 0\n  div\n  ret\n}\n"), Format: toolchain.FormatText}
	_, err := toolchain.Dispatch(context.Background(), toolchain.ExecRequest{Source: src, Stdout: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("expected trap")
	}
	var buf bytes.Buffer
	printError(&buf, err, nil)
	out := buf.String()
	if !strings.HasPrefix(out, "error: ") || !strings.Contains(out, "VM1005") {
		t.Fatalf("unexpected trap output:\n%s", out)
	}
}

func TestPrintVerifyReport(t *testing.T) {
	result := pipeline.VerifyResult{
		Files: []pipeline.FileResult{
			{Display: "a.avb", Outcome: pipeline.OutcomePassed, Executed: true, Steps: 6},
			{Display: "b.avb", Outcome: pipeline.OutcomeCached},
			{Display: "c.avb", Outcome: pipeline.OutcomeFailed, Stage: pipeline.StageExecute, Err: errors.New("boom")},
		},
		Passed: 1, Cached: 1, Failed: 1,
	}
	var buf bytes.Buffer
	printVerifyReport(&buf, result, false)
	want := "ok   a.avb (roundtrip, ran 6 steps)\n" +
		"skip b.avb\n" +
		"FAIL c.avb [execute]: boom\n" +
		"1 passed, 1 cached, 1 failed\n"
	if buf.String() != want {
		t.Fatalf("report:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	printVerifyReport(&buf, result, true)
	if strings.Contains(buf.String(), "a.avb") || !strings.Contains(buf.String(), "c.avb") {
		t.Fatalf("quiet report:\n%s", buf.String())
	}
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"tool": "aves"`) {
		t.Fatalf("json = %s", buf.String())
	}
}
