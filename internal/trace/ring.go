package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory so they can be dumped
// when a scan panics or fails.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	next  int // slot the next event goes to
	count int // number of valid slots
	level Level
}

// NewRingTracer allocates a ring of capacity events (4096 when <= 0).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
	t.mu.Unlock()
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.Tail(0)
}

// Tail returns up to n of the newest events, oldest first. n <= 0 means all.
func (t *RingTracer) Tail(n int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > t.count {
		n = t.count
	}
	out := make([]Event, n)
	start := t.next - n
	if start < 0 {
		start += len(t.buf)
	}
	for i := range out {
		out[i] = t.buf[(start+i)%len(t.buf)]
	}
	return out
}

// Dump writes every stored event to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	return t.DumpTail(w, format, 0)
}

// DumpTail writes the newest n events to w.
func (t *RingTracer) DumpTail(w io.Writer, format Format, n int) error {
	events := t.Tail(n)
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
