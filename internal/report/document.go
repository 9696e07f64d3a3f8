package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"gasguard/internal/scanner"
	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// Meta describes the run a document belongs to.
type Meta struct {
	Tool    string
	Version string
	Args    []string
	Rules   []RuleInfo
	Now     func() time.Time

	// MinSeverity drops findings below it from the document.
	MinSeverity violation.Severity
	// MaxPerFile caps the findings kept per result; 0 keeps all. Dropped
	// findings are counted in Summary.Omitted.
	MaxPerFile int
}

// RuleInfo describes one configured rule for SARIF and `rules` output.
type RuleInfo struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Severity    violation.Severity `json:"severity" yaml:"severity"`
	Enabled     bool               `json:"enabled" yaml:"enabled"`
}

// Document is the serialized form of one run. Field names are stable.
type Document struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	Tool        string               `json:"tool" yaml:"tool"`
	Version     string               `json:"version" yaml:"version"`
	Root        string               `json:"root,omitempty" yaml:"root,omitempty"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Results     []scanner.ScanResult `json:"results" yaml:"results"`
	Failures    []FailureEntry       `json:"failures" yaml:"failures"`
	Summary     Summary              `json:"summary" yaml:"summary"`

	rules       []RuleInfo
	args        []string
	minSeverity violation.Severity
	maxPerFile  int
}

// FailureEntry is a file that could not be analyzed.
type FailureEntry struct {
	Path  string `json:"path" yaml:"path"`
	Kind  string `json:"kind" yaml:"kind"`
	Error string `json:"error" yaml:"error"`
}

// Summary aggregates a document.
type Summary struct {
	Files      int `json:"files" yaml:"files"`
	Scanned    int `json:"scanned" yaml:"scanned"`
	Failed     int `json:"failed" yaml:"failed"`
	Cached     int `json:"cached" yaml:"cached"`
	Violations int `json:"violations" yaml:"violations"`
	Errors     int `json:"errors" yaml:"errors"`
	Warnings   int `json:"warnings" yaml:"warnings"`
	Infos      int `json:"infos" yaml:"infos"`
	Omitted    int `json:"omitted" yaml:"omitted"`
}

// Failure kinds.
const (
	KindIO          = "io"
	KindMissing     = "missing_declaration"
	KindMalformed   = "malformed"
	KindUnsupported = "unsupported_style"
	KindOther       = "other"
)

// FailureKind classifies a scan error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, soroban.ErrIO):
		return KindIO
	case errors.Is(err, soroban.ErrMissingDeclarationMacro):
		return KindMissing
	case errors.Is(err, soroban.ErrMalformedStructure):
		return KindMalformed
	case errors.Is(err, scanner.ErrUnsupportedStyle):
		return KindUnsupported
	default:
		return KindOther
	}
}

func newDocument(meta Meta) *Document {
	now := time.Now
	if meta.Now != nil {
		now = meta.Now
	}
	tool := meta.Tool
	if tool == "" {
		tool = "gasguard"
	}
	return &Document{
		RunID:       uuid.NewString(),
		Tool:        tool,
		Version:     meta.Version,
		GeneratedAt: now().UTC(),
		Results:     []scanner.ScanResult{},
		Failures:    []FailureEntry{},
		rules:       meta.Rules,
		args:        meta.Args,
		minSeverity: meta.MinSeverity,
		maxPerFile:  meta.MaxPerFile,
	}
}

// addResult appends res with its findings filtered, deduplicated and capped
// per the document's limits. The caller's slice is not modified.
func (d *Document) addResult(res scanner.ScanResult) {
	kept := violation.Dedup(violation.Filter(res.Violations, d.minSeverity))
	set := violation.NewSet(d.maxPerFile)
	d.Summary.Omitted += len(kept) - set.Extend(kept)
	res.Violations = set.Items()
	d.Results = append(d.Results, res)
}

// NewDocument wraps a directory batch.
func NewDocument(batch *scanner.Batch, meta Meta) *Document {
	doc := newDocument(meta)
	if batch == nil {
		return doc
	}
	doc.Root = batch.Root
	for i := range batch.Results {
		doc.addResult(batch.Results[i])
	}
	for _, f := range batch.Failures {
		doc.Failures = append(doc.Failures, FailureEntry{Path: f.Path, Kind: FailureKind(f.Err), Error: f.Err.Error()})
	}
	doc.Summary.Files = batch.Files
	doc.Summary.Cached = batch.Cached
	doc.summarize()
	return doc
}

// FromResult wraps a single scan. A clean result is kept so the document
// always names the scanned source.
func FromResult(res *scanner.ScanResult, meta Meta) *Document {
	doc := newDocument(meta)
	if res != nil {
		doc.addResult(*res)
		doc.Summary.Files = 1
		if res.FromCache() {
			doc.Summary.Cached = 1
		}
	}
	doc.summarize()
	return doc
}

// FromFailure wraps a single scan that failed.
func FromFailure(path string, err error, meta Meta) *Document {
	doc := newDocument(meta)
	doc.Failures = append(doc.Failures, FailureEntry{Path: path, Kind: FailureKind(err), Error: err.Error()})
	doc.Summary.Files = 1
	doc.summarize()
	return doc
}

func (d *Document) summarize() {
	d.Summary.Failed = len(d.Failures)
	d.Summary.Scanned = d.Summary.Files - d.Summary.Failed
	if d.Summary.Scanned < 0 {
		d.Summary.Scanned = 0
	}
	d.Summary.Violations = 0
	d.Summary.Errors, d.Summary.Warnings, d.Summary.Infos = 0, 0, 0
	for i := range d.Results {
		counts := violation.Counts(d.Results[i].Violations)
		d.Summary.Violations += len(d.Results[i].Violations)
		d.Summary.Errors += counts[violation.SevError]
		d.Summary.Warnings += counts[violation.SevWarning]
		d.Summary.Infos += counts[violation.SevInfo]
	}
}

// Located flattens every violation with its source label.
func (d *Document) Located() []violation.Located {
	var out []violation.Located
	for i := range d.Results {
		out = append(out, d.Results[i].Located()...)
	}
	return out
}

// AtLeast reports whether the document holds a violation at or above min.
func (d *Document) AtLeast(min violation.Severity) bool {
	for i := range d.Results {
		if d.Results[i].AtLeast(min) {
			return true
		}
	}
	return false
}
