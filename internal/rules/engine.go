package rules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gasguard/internal/soroban"
	"gasguard/internal/trace"
	"gasguard/internal/violation"
)

var (
	// ErrNilRule is returned by New for a nil entry.
	ErrNilRule = errors.New("nil rule")
	// ErrDuplicateRule is returned by New when two rules share an id.
	ErrDuplicateRule = errors.New("duplicate rule id")
)

// Engine runs an ordered list of rules. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules []Rule
}

// New builds an engine from rules in the given order.
func New(rules ...Rule) (*Engine, error) {
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if r == nil {
			return nil, fmt.Errorf("rule #%d: %w", i, ErrNilRule)
		}
		if _, dup := seen[r.ID()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID())
		}
		seen[r.ID()] = struct{}{}
	}
	return &Engine{rules: append([]Rule(nil), rules...)}, nil
}

// Default returns an engine with every built-in rule at default settings.
func Default() *Engine {
	return &Engine{rules: DefaultRules()}
}

// Rules returns the registered rules in order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Fingerprint identifies the effective rule configuration. Results cached
// under one fingerprint are not valid under another.
func (e *Engine) Fingerprint() string {
	var sb strings.Builder
	for _, r := range e.rules {
		fmt.Fprintf(&sb, "%s:%s:%t;", r.ID(), r.Severity(), r.Enabled())
	}
	return sb.String()
}

// Analyze parses src and applies the enabled rules. Parse failures are
// returned unchanged.
func (e *Engine) Analyze(src, label string) ([]violation.Violation, error) {
	return e.AnalyzeContext(context.Background(), src, label)
}

// AnalyzeContext is Analyze with the tracer and parent span taken from ctx.
func (e *Engine) AnalyzeContext(ctx context.Context, src, label string) ([]violation.Violation, error) {
	c, err := soroban.Parse(src, label)
	if err != nil {
		return nil, err
	}
	return e.AnalyzeContract(ctx, c), nil
}

// AnalyzeContract applies the enabled rules to an already parsed contract.
// The result is never nil. Violations repeating an (id, line, variable)
// triple are dropped.
func (e *Engine) AnalyzeContract(ctx context.Context, c *soroban.Contract) []violation.Violation {
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	collected := &violation.Collector{}
	sink := violation.NewDedupReporter(collected)
	for _, r := range e.rules {
		if !r.Enabled() {
			continue
		}
		span := trace.Begin(tracer, trace.ScopeRule, "rule:"+r.ID(), parent)
		found, err := applyRule(r, c)
		for _, v := range found {
			sink.Report(v)
			trace.Point(tracer, trace.ScopeMatch, r.ID(), fmt.Sprintf("line %d %s", v.Line, v.Variable), span.ID())
		}
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		span.WithExtra("violations", strconv.Itoa(len(found))).End(detail)
	}

	out := collected.Items()
	if out == nil {
		out = []violation.Violation{}
	}
	return out
}

// applyRule isolates rule failures: a panicking rule contributes nothing.
func applyRule(r Rule, c *soroban.Contract) (out []violation.Violation, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("rule %s panicked: %v", r.ID(), rec)
		}
	}()
	return r.Apply(c), nil
}
