package scanner

import (
	"time"

	"gasguard/internal/detect"
	"gasguard/internal/violation"
)

// ScanResult is the outcome of scanning one source.
type ScanResult struct {
	Source     string                `json:"source" yaml:"source"`
	Style      detect.Style          `json:"style" yaml:"style"`
	Violations []violation.Violation `json:"violations" yaml:"violations"`
	ScanTime   time.Time             `json:"scan_time" yaml:"scan_time"`

	cached bool
}

// FromCache reports whether the violations were loaded from the disk cache.
func (r *ScanResult) FromCache() bool {
	return r != nil && r.cached
}

// HasViolations reports whether any rule fired.
func (r *ScanResult) HasViolations() bool {
	return r != nil && len(r.Violations) > 0
}

// BySeverity returns the violations with exactly sev.
func (r *ScanResult) BySeverity(sev violation.Severity) []violation.Violation {
	if r == nil {
		return nil
	}
	return violation.BySeverity(r.Violations, sev)
}

// AtLeast reports whether some violation is at or above min.
func (r *ScanResult) AtLeast(min violation.Severity) bool {
	if r == nil {
		return false
	}
	for _, v := range r.Violations {
		if v.Severity >= min {
			return true
		}
	}
	return false
}

// Located pairs every violation with the result's source label.
func (r *ScanResult) Located() []violation.Located {
	if r == nil {
		return nil
	}
	out := make([]violation.Located, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = violation.Located{Path: r.Source, Violation: v}
	}
	return out
}

// Failure records a file a directory scan could not analyze.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return f.Path + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Batch is the outcome of a directory scan. Results hold one entry per
// scanned file in path order; Failures are never mixed into Results.
type Batch struct {
	Root     string
	Files    int
	Results  []ScanResult
	Failures []Failure
	Cached   int
	Elapsed  time.Duration
}

// AtLeast reports whether any result has a violation at or above min.
func (b *Batch) AtLeast(min violation.Severity) bool {
	if b == nil {
		return false
	}
	for i := range b.Results {
		if b.Results[i].AtLeast(min) {
			return true
		}
	}
	return false
}

// Located flattens every result's violations.
func (b *Batch) Located() []violation.Located {
	if b == nil {
		return nil
	}
	var out []violation.Located
	for i := range b.Results {
		out = append(out, b.Results[i].Located()...)
	}
	return out
}

// Violations counts all findings in the batch.
func (b *Batch) Violations() int {
	if b == nil {
		return 0
	}
	n := 0
	for i := range b.Results {
		n += len(b.Results[i].Violations)
	}
	return n
}
