package rules

import (
	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// Rule is one independent heuristic check over a parsed contract.
//
// Apply must not fail: a degenerate contract yields no violations. Rules
// keep no state between calls.
type Rule interface {
	ID() string
	Name() string
	Severity() violation.Severity
	Enabled() bool
	Apply(c *soroban.Contract) []violation.Violation
}

// Describer is implemented by rules that carry a longer explanation.
type Describer interface {
	Description() string
}

// Meta holds the identity and settings shared by all built-in rules.
type Meta struct {
	id          string
	name        string
	description string
	severity    violation.Severity
	enabled     bool
}

func (m *Meta) ID() string                   { return m.id }
func (m *Meta) Name() string                 { return m.name }
func (m *Meta) Description() string          { return m.description }
func (m *Meta) Severity() violation.Severity { return m.severity }
func (m *Meta) Enabled() bool                { return m.enabled }

// Option mutates rule settings during construction.
type Option func(*Meta)

// WithSeverity overrides the default severity.
func WithSeverity(sev violation.Severity) Option {
	return func(m *Meta) {
		m.severity = sev
	}
}

// WithEnabled turns the rule on or off.
func WithEnabled(enabled bool) Option {
	return func(m *Meta) {
		m.enabled = enabled
	}
}

func newMeta(id, name, description string, sev violation.Severity, opts []Option) Meta {
	m := Meta{
		id:          id,
		name:        name,
		description: description,
		severity:    sev,
		enabled:     true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// report starts a violation of rule m at line.
func (m *Meta) report(r violation.Reporter, line uint32, msg string) *violation.ReportBuilder {
	return violation.NewReportBuilder(r, m.severity, m.id, line, msg)
}
