package trace

import (
	"strconv"
	"sync"
	"time"
)

// Probe reports a one-line status, e.g. scan counters, for a heartbeat.
type Probe func() string

// Heartbeat emits periodic liveness events for long-running commands such
// as watch, so a silent trace can be told apart from a stuck process.
type Heartbeat struct {
	tracer Tracer
	probe  Probe
	stopCh chan struct{}
	once   sync.Once
	done   chan struct{}
}

// StartHeartbeat ticks every interval until Stop. Each event's detail is the
// tick number followed by probe's status when probe is non-nil. It returns
// nil when tracing is disabled or interval is not positive; Stop on nil is a
// no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration, probe Probe) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer: tracer,
		probe:  probe,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go h.run(interval)
	return h
}

func (h *Heartbeat) run(interval time.Duration) {
	defer close(h.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := uint64(1); ; n++ {
		select {
		case <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: h.detail(n),
			})
		case <-h.stopCh:
			return
		}
	}
}

func (h *Heartbeat) detail(n uint64) string {
	d := "#" + strconv.FormatUint(n, 10)
	if h.probe != nil {
		if status := h.probe(); status != "" {
			d += " " + status
		}
	}
	return d
}

// Stop ends the goroutine and waits for it.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stopCh) })
	<-h.done
}
