package ui

import (
	"strings"
	"testing"

	"aves/internal/pipeline"
)

func TestApplyEventTracksFiles(t *testing.T) {
	m := NewProgressModel("verify", []string{"a.avb", "b.avb"}, nil).(*progressModel)

	m.applyEvent(pipeline.Event{File: "a.avb", Stage: pipeline.StageExecute, Status: pipeline.StatusWorking})
	if m.items[0].status != "running" || m.items[0].final {
		t.Fatalf("item a = %+v", m.items[0])
	}
	if got := m.fraction(); got != 0.35 {
		t.Fatalf("fraction = %v, want 0.35", got)
	}

	m.applyEvent(pipeline.Event{File: "a.avb", Stage: pipeline.StageExecute, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "b.avb", Stage: pipeline.StageRoundTrip, Status: pipeline.StatusCached})
	m.applyEvent(pipeline.Event{File: "unknown.avb", Status: pipeline.StatusError})
	if m.fraction() != 1 {
		t.Fatalf("fraction = %v, want 1", m.fraction())
	}

	view := m.View()
	for _, want := range []string{"verify 2/2", "done", "cached", "a.avb", "b.avb"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.avb", 20, "short.avb"},
		{"a/very/long/path/prog.avb", 10, "a/very/..."},
		{"abcdef", 2, "ab"},
		{"привет.avb", 0, "привет.avb"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
