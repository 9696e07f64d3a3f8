package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gasguard/internal/detect"
	"gasguard/internal/rules"
	"gasguard/internal/soroban"
	"gasguard/internal/source"
	"gasguard/internal/trace"
	"gasguard/internal/violation"
)

// ErrUnsupportedStyle is returned when no analyzer is registered for the
// resolved style.
var ErrUnsupportedStyle = errors.New("unsupported contract style")

// Analyzer checks the source of one contract style. *rules.Engine is the
// Soroban analyzer.
type Analyzer interface {
	AnalyzeContext(ctx context.Context, src, label string) ([]violation.Violation, error)
}

// Fingerprinter is implemented by analyzers whose output depends on
// configuration. Results are only cached for analyzers that implement it.
type Fingerprinter interface {
	Fingerprint() string
}

// Scanner routes sources to the analyzer registered for their style.
type Scanner struct {
	analyzers map[detect.Style]Analyzer
	fallback  detect.Style
	cache     *DiskCache
	files     *source.FileSet
	now       func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithAnalyzer registers a for style, replacing any earlier registration.
func WithAnalyzer(style detect.Style, a Analyzer) Option {
	return func(s *Scanner) {
		if a == nil {
			delete(s.analyzers, style)
			return
		}
		s.analyzers[style] = a
	}
}

// WithFallback sets the style used when neither content nor extension
// identify one.
func WithFallback(style detect.Style) Option {
	return func(s *Scanner) { s.fallback = style }
}

// WithCache enables the on-disk result cache.
func WithCache(c *DiskCache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithFileSet records every scanned file in fs so reporters can quote lines.
func WithFileSet(fs *source.FileSet) Option {
	return func(s *Scanner) { s.files = fs }
}

// WithClock overrides the time source used for ScanTime.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a scanner that analyzes Soroban contracts with engine. A nil
// engine leaves Soroban unregistered.
func New(engine *rules.Engine, opts ...Option) *Scanner {
	s := &Scanner{
		analyzers: make(map[detect.Style]Analyzer),
		now:       time.Now,
	}
	if engine != nil {
		s.analyzers[detect.Soroban] = engine
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Supports reports whether an analyzer is registered for style.
func (s *Scanner) Supports(style detect.Style) bool {
	_, ok := s.analyzers[style]
	return ok
}

// FileSet returns the file set given with WithFileSet, or nil.
func (s *Scanner) FileSet() *source.FileSet {
	return s.files
}

// ScanFile reads and analyzes path. Read failures are soroban.ErrIO.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*ScanResult, error) {
	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, soroban.IOError(path, err)
	}
	return s.scanBytes(ctx, raw, path, detect.Unknown)
}

// ScanContent analyzes in-memory text, detecting its style.
func (s *Scanner) ScanContent(ctx context.Context, content, label string) (*ScanResult, error) {
	return s.scanBytes(ctx, []byte(content), label, detect.Unknown)
}

// ScanContentWithStyle analyzes text with an explicit style.
func (s *Scanner) ScanContentWithStyle(ctx context.Context, content, label string, style detect.Style) (*ScanResult, error) {
	return s.scanBytes(ctx, []byte(content), label, style)
}

func (s *Scanner) scanBytes(ctx context.Context, raw []byte, label string, explicit detect.Style) (*ScanResult, error) {
	var text string
	if s.files != nil {
		text = s.files.Add(label, raw, 0).Text()
	} else {
		text = source.NewFile(label, raw).Text()
	}

	style := detect.Resolve(explicit, label, text, s.fallback)
	analyzer, ok := s.analyzers[style]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", label, ErrUnsupportedStyle, style)
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFile, "file:"+label, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)

	vs, cached, err := s.analyze(ctx, analyzer, style, text, label)
	if err != nil {
		span.End(err.Error())
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	span.WithExtra("style", style.String()).
		WithExtra("violations", strconv.Itoa(len(vs))).
		WithExtra("cached", strconv.FormatBool(cached)).
		End("")

	return &ScanResult{
		Source:     label,
		Style:      style,
		Violations: vs,
		ScanTime:   s.now().UTC(),
		cached:     cached,
	}, nil
}

func (s *Scanner) analyze(ctx context.Context, a Analyzer, style detect.Style, text, label string) ([]violation.Violation, bool, error) {
	fp, cacheable := a.(Fingerprinter)
	if !cacheable || s.cache == nil {
		vs, err := a.AnalyzeContext(ctx, text, label)
		return vs, false, err
	}

	key := NewCacheKey(style, fp.Fingerprint(), text)
	if vs, ok, err := s.cache.Get(key); err == nil && ok {
		return vs, true, nil
	} else if err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFile, "cache", "read failed: "+err.Error(), trace.CurrentSpan(ctx).SpanID)
	}

	vs, err := a.AnalyzeContext(ctx, text, label)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Put(key, vs); err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFile, "cache", "write failed: "+err.Error(), trace.CurrentSpan(ctx).SpanID)
	}
	return vs, false, nil
}
