// Package prof wraps the runtime profilers used to investigate slow scans
// of large contract trees.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output files; empty paths disable that profiler.
type Options struct {
	CPU          string
	Heap         string
	RuntimeTrace string
}

// Session is a set of running profilers.
type Session struct {
	heap    string
	cpu     *os.File
	rtTrace *os.File
	stopped bool
}

// Start enables the profilers opts names. On error nothing stays running.
func Start(opts Options) (*Session, error) {
	s := &Session{heap: opts.Heap}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		s.cpu = f
	}
	if opts.RuntimeTrace != "" {
		f, err := os.Create(opts.RuntimeTrace)
		if err == nil {
			if err = trace.Start(f); err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			s.heap = ""
			_ = s.Stop()
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		s.rtTrace = f
	}
	return s, nil
}

// Active reports whether any profiler was requested.
func (s *Session) Active() bool {
	return s != nil && (s.cpu != nil || s.rtTrace != nil || s.heap != "")
}

// Stop ends the profilers and writes the heap profile. Calling it again is
// a no-op.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.rtTrace != nil {
		trace.Stop()
		errs = append(errs, s.rtTrace.Close())
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpu.Close())
	}
	if s.heap != "" {
		errs = append(errs, writeHeap(s.heap))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
