package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	end := tm.Track("decode")
	end("12 bytes")
	idx := tm.Begin("execute")
	tm.End(idx, "")
	tm.End(99, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(report.Phases))
	}
	if report.Phases[0].Name != "decode" || report.Phases[0].Note != "12 bytes" {
		t.Fatalf("phase 0 = %+v", report.Phases[0])
	}
	summary := tm.Summary()
	for _, want := range []string{"timings:", "decode", "// 12 bytes", "total"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.Track("x")("")
	if tm.Duration("x") != 0 || len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer should record nothing")
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1500 * time.Microsecond); got != 1.5 {
		t.Fatalf("Millis = %v", got)
	}
}
