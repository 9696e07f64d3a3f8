package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"gasguard/internal/trace"
)

const panicDumpEvents = 256

// activeTracer is the tracer of the running command, for panic dumps.
var activeTracer atomic.Value

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}

	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}

	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}

	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}

	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	// an output path without a level means "trace the phases"
	if level == trace.LevelOff {
		if traceOutput == "" {
			cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
			return func() {}, nil
		}
		level = trace.LevelPhase
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	// an explicit output implies streaming
	if traceOutput != "" && mode == trace.ModeRing {
		mode = trace.ModeBoth
	}

	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	activeTracer.Store(tracerBox{tracer})

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval, cacheProbe)

	cleanup := func() {
		heartbeat.Stop()
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// cacheProbe reports result cache counters on heartbeats.
func cacheProbe() string {
	cache := activeCache.Load()
	if cache == nil {
		return ""
	}
	hits, misses := cache.Stats()
	return fmt.Sprintf("cache hits=%d misses=%d", hits, misses)
}

// tracerBox keeps atomic.Value's stored type constant.
type tracerBox struct {
	tracer trace.Tracer
}

// dumpTraceOnPanic writes the trace ring to stderr before re-panicking.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if box, ok := activeTracer.Load().(tracerBox); ok {
		if ring := trace.RingOf(box.tracer); ring != nil {
			fmt.Fprintf(os.Stderr, "--- last %d trace events ---\n", panicDumpEvents)
			if err := ring.DumpTail(os.Stderr, trace.FormatText, panicDumpEvents); err != nil {
				fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
			}
		}
	}
	panic(r)
}
