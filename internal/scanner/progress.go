package scanner

import "time"

// Status captures the progress state of one file.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the file is being scanned.
	StatusWorking Status = "working"
	// StatusDone indicates the file was scanned.
	StatusDone Status = "done"
	// StatusError indicates the file could not be scanned.
	StatusError Status = "error"
)

// Event reports progress for a file, or for the whole batch when File is empty.
type Event struct {
	File       string
	Status     Status
	Err        error
	Violations int
	Cached     bool
	Elapsed    time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use; directory workers report from their own goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
