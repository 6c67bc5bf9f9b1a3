package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "DEBUG"} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if lvl.String() != strings.ToLower(s) {
			t.Fatalf("ParseLevel(%q) = %s", s, lvl)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelPhase, ScopeCommand, true},
		{LevelPhase, ScopePhase, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeInstr, false},
		{LevelDebug, ScopeInstr, true},
		{LevelError, ScopeCommand, false},
		{LevelOff, ScopeCommand, false},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamSpansNest(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, cmd := Start(ctx, ScopeCommand, "run")
	_, phase := Start(ctx, ScopePhase, "decode")
	phase.WithExtra("bytes", "42").End("")
	_, file := Start(ctx, ScopeFile, "file:a.avb")
	file.End("")
	cmd.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], "→ run") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "  → decode") {
		t.Errorf("nested span not indented: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "← decode {bytes=42}") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "← run (ok)") {
		t.Errorf("line 3 = %q", lines[3])
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)
	Point(ctx, ScopeInstr, "step", "main+0 iconst 1")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["scope"] != "instr" || got["detail"] != "main+0 iconst 1" {
		t.Fatalf("event = %v", got)
	}
}

func TestRingKeepsLastEvents(t *testing.T) {
	r := NewRingTracer(3, LevelError)
	for _, name := range []string{"a", "b", "c", "d"} {
		Begin(r, ScopeCommand, name, 0).End("")
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d events", len(snap))
	}
	want := []string{"c", "d", "d"}
	for i, ev := range snap {
		if ev.Name != want[i] {
			t.Fatalf("snapshot[%d] = %s, want %s", i, ev.Name, want[i])
		}
	}
	var out bytes.Buffer
	if err := r.Dump(&out, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(out.String(), "\n") != 3 {
		t.Fatalf("dump:\n%s", out.String())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatal("off tracer should be disabled")
	}
	span := Begin(tr, ScopeCommand, "x", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatal("disabled span should be inert")
	}
}

func TestNewBothExposesRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopePhase, "encode", 0).End("")
	ring := RingOf(tr)
	if ring == nil || len(ring.Snapshot()) != 2 {
		t.Fatal("both mode should record into a ring")
	}
	if buf.Len() == 0 {
		t.Fatal("both mode should stream")
	}
}
