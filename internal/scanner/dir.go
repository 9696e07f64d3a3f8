package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"gasguard/internal/detect"
	"gasguard/internal/trace"
)

// DirOptions controls a directory scan.
type DirOptions struct {
	// Jobs bounds the worker pool; <= 0 means GOMAXPROCS.
	Jobs int
	// Include, when non-empty, selects files by doublestar pattern relative
	// to the root instead of by extension.
	Include []string
	// Exclude drops files and directories matching any doublestar pattern.
	Exclude []string
	// KeepClean keeps results with zero violations.
	KeepClean bool
	Progress  ProgressSink
}

// ListContracts returns the sorted contract paths under dir.
func ListContracts(dir string, include, exclude []string) ([]string, error) {
	for _, pattern := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && (matchAny(exclude, rel) || matchAny(exclude, rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if Selected(rel, include, exclude) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Selected reports whether the slash-separated path rel, relative to the
// scan root, is a contract under the include and exclude patterns.
func Selected(rel string, include, exclude []string) bool {
	if matchAny(exclude, rel) {
		return false
	}
	if len(include) > 0 {
		return matchAny(include, rel)
	}
	return hasContractExt(rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func hasContractExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range detect.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ScanDir scans every contract under dir in parallel. A file that cannot be
// read, parsed or routed becomes a Failure and the scan continues. The
// returned error is non-nil only when listing fails or ctx is cancelled;
// the partial batch is still returned in the latter case.
func (s *Scanner) ScanDir(ctx context.Context, dir string, opts DirOptions) (*Batch, error) {
	files, err := ListContracts(dir, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	return s.ScanPaths(ctx, dir, files, opts)
}

type outcome struct {
	result *ScanResult
	err    error
}

// ScanPaths scans an explicit list of files with the same semantics as
// ScanDir. root only labels the batch.
func (s *Scanner) ScanPaths(ctx context.Context, root string, files []string, opts DirOptions) (*Batch, error) {
	started := time.Now()
	batch := &Batch{Root: root, Files: len(files)}
	if len(files) == 0 {
		return batch, nil
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "scan-dir", trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for _, path := range files {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	// each worker writes only its own index
	outcomes := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			emit(opts.Progress, Event{File: path, Status: StatusWorking})
			fileStart := time.Now()
			res, err := s.ScanFile(gctx, path)
			outcomes[i] = outcome{result: res, err: err}

			evt := Event{File: path, Status: StatusDone, Elapsed: time.Since(fileStart)}
			if err != nil {
				evt.Status = StatusError
				evt.Err = err
			} else {
				evt.Violations = len(res.Violations)
				evt.Cached = res.FromCache()
			}
			emit(opts.Progress, evt)
			return nil
		})
	}
	waitErr := g.Wait()

	for i, o := range outcomes {
		switch {
		case o.err != nil:
			batch.Failures = append(batch.Failures, Failure{Path: files[i], Err: o.err})
		case o.result == nil:
			// never started: cancelled before its turn
		default:
			if o.result.FromCache() {
				batch.Cached++
			}
			if o.result.HasViolations() || opts.KeepClean {
				batch.Results = append(batch.Results, *o.result)
			}
		}
	}
	batch.Elapsed = time.Since(started)

	span.WithExtra("files", fmt.Sprint(len(files))).
		WithExtra("failures", fmt.Sprint(len(batch.Failures))).
		End("")
	emit(opts.Progress, Event{Status: StatusDone, Elapsed: batch.Elapsed})

	if waitErr != nil {
		return batch, waitErr
	}
	return batch, nil
}
