package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load config")
	tm.End(idx, "gasguard.toml")
	if err := tm.Track("scan", func() error { return errors.New("boom") }); err == nil {
		t.Fatalf("Track must return fn's error")
	}
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases: %+v", r.Phases)
	}
	if r.Phases[0].Note != "gasguard.toml" || r.Phases[1].Note != "failed" {
		t.Fatalf("notes: %+v", r.Phases)
	}
	s := tm.Summary()
	if !strings.HasPrefix(s, "timings:\n") || !strings.Contains(s, "load config") || !strings.Contains(s, "total") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer should report nothing")
	}
}
