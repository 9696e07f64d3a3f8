package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gasguard/internal/rules"
	"gasguard/internal/scanner"
)

const contract = `use soroban_sdk::{contract, contractimpl, contracttype};

#[contracttype]
pub struct Counter {
    pub value: u128,
}

#[contractimpl]
impl Counter {
    pub fn bump(&mut self) {
        self.value += 1;
    }
}
`

// place writes content outside the watched tree and renames it in, so the
// watcher sees one complete file.
func place(t *testing.T, staging, dst, content string) {
	t.Helper()
	tmp := filepath.Join(staging, filepath.Base(dst))
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("events closed early")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a watch event")
	}
	return Event{}
}

func TestWatcherRescansChangedContracts(t *testing.T) {
	root, staging := t.TempDir(), t.TempDir()
	w, err := New(scanner.New(rules.Default()), Config{Root: root, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	place(t, staging, filepath.Join(root, "notes.txt"), "not a contract")
	path := filepath.Join(root, "counter.rs")
	place(t, staging, path, contract)

	ev := next(t, w.Events())
	if ev.Path != path || ev.Op != OpCreate || ev.Err != nil {
		t.Fatalf("create event: %+v", ev)
	}
	if ev.Result == nil || len(ev.Result.Violations) != 1 || ev.Result.Violations[0].RuleID != rules.InefficientIntegersID {
		t.Fatalf("scan result: %+v", ev.Result)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ev = next(t, w.Events())
	if ev.Path != path || ev.Op != OpDelete || ev.Result != nil {
		t.Fatalf("delete event: %+v", ev)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case _, ok := <-w.Events():
		if ok {
			t.Fatalf("no events expected after stop")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("events channel was not closed")
	}
}

func TestStopBeforeStart(t *testing.T) {
	w, err := New(scanner.New(rules.Default()), Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Fatalf("events should be closed")
	}
	if _, err := New(nil, Config{}); err == nil {
		t.Fatalf("nil scanner must be rejected")
	}
}
