package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopeDriver, true},
		{LevelPhase, ScopeFile, true},
		{LevelPhase, ScopeRule, false},
		{LevelDetail, ScopeRule, true},
		{LevelDetail, ScopeMatch, false},
		{LevelDebug, ScopeMatch, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s): got %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if lvl, err := ParseLevel("Detail"); err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if mode, err := ParseMode("both"); err != nil || mode != ModeBoth {
		t.Fatalf("ParseMode: %v %v", mode, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
}

func TestStreamTracerFiltersByScope(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)

	file := Begin(tr, ScopeFile, "file:token.rs", 0)
	rule := Begin(tr, ScopeRule, "rule:unused", file.ID())
	rule.End("")
	file.WithExtra("violations", "2").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected begin+end for the file span only, got %d lines:\n%s", len(lines), buf.String())
	}
	var end jsonEvent
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if end.Kind != "end" || end.Scope != "file" || end.Detail != "ok" || end.Extra["violations"] != "2" {
		t.Fatalf("unexpected end event: %+v", end)
	}
	if rule.ID() != file.ID() {
		t.Fatalf("filtered span should report its parent id")
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := 0; i < 5; i++ {
		Point(r, ScopeMatch, "p", string(rune('a'+i)), 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot size: got %d, want 3", len(snap))
	}
	got := snap[0].Detail + snap[1].Detail + snap[2].Detail
	if got != "cde" {
		t.Fatalf("ring order: got %q, want cde", got)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("dump lines: %q", buf.String())
	}

	tail := r.Tail(2)
	if len(tail) != 2 || tail[0].Detail != "d" || tail[1].Detail != "e" {
		t.Fatalf("tail: %+v", tail)
	}
	if n := len(NewRingTracer(4, LevelDebug).Tail(10)); n != 0 {
		t.Fatalf("empty ring tail: got %d events", n)
	}
}

func TestNewAndRingOf(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level should yield a disabled tracer")
	}

	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopeDriver, "scan", 0).End("")
	ring := RingOf(tr)
	if ring == nil {
		t.Fatalf("expected a ring behind ModeBoth")
	}
	if len(ring.Snapshot()) != 2 {
		t.Fatalf("ring should hold begin and end")
	}
	if !strings.Contains(buf.String(), "→ scan") {
		t.Fatalf("stream output: %q", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should carry Nop")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(r, ScopeDriver, "scan", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx).SpanID != span.ID() {
		t.Fatalf("span not propagated")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("disabled tracer must not start a heartbeat")
	}
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond, func() string { return "files=3" })
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat {
		t.Fatalf("expected heartbeat events, got %+v", snap)
	}
	if snap[0].Detail != "#1 files=3" {
		t.Fatalf("heartbeat detail: got %q", snap[0].Detail)
	}
}
