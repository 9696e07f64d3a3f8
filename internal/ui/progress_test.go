package ui

import (
	"strings"
	"testing"

	"gasguard/internal/scanner"
)

func TestProgressModelCountsFinishedFiles(t *testing.T) {
	events := make(chan scanner.Event)
	m := NewProgressModel("scanning", []string{"a.rs", "b.rs", "c.rs"}, events).(*progressModel)

	m.Update(eventMsg{File: "a.rs", Status: scanner.StatusWorking})
	m.Update(eventMsg{File: "a.rs", Status: scanner.StatusDone, Violations: 3})
	m.Update(eventMsg{File: "b.rs", Status: scanner.StatusError})
	m.Update(eventMsg{File: "b.rs", Status: scanner.StatusError})
	m.Update(eventMsg{File: "unknown.rs", Status: scanner.StatusDone})

	if m.finished != 2 || m.violations != 3 || m.failed != 1 {
		t.Fatalf("counters: finished=%d violations=%d failed=%d", m.finished, m.violations, m.failed)
	}
	view := m.View()
	for _, want := range []string{"2/3 files", "3 violations", "1 failed", "3 found", "error", "queued"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view is missing %q:\n%s", want, view)
		}
	}

	m.Update(doneMsg{})
	if !m.done || !strings.Contains(m.View(), "done:") {
		t.Fatalf("model should render as done")
	}
}

func TestVisibleCapsLongLists(t *testing.T) {
	files := make([]string, 30)
	for i := range files {
		files[i] = strings.Repeat("x", i+1) + ".rs"
	}
	m := NewProgressModel("scanning", files, nil).(*progressModel)
	m.Update(eventMsg{File: files[29], Status: scanner.StatusWorking})
	vis := m.visible()
	if len(vis) != maxVisible || vis[0].path != files[29] {
		t.Fatalf("working files must be listed first: %+v", vis[0])
	}
	if !strings.Contains(m.View(), "18 more") {
		t.Fatalf("hidden count missing:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("contracts/token.rs", 10); got != "contrac..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("short.rs", 20); got != "short.rs" {
		t.Fatalf("got %q", got)
	}
}
