// Package violation defines the finding model shared by rules, the scanner
// and the report layer.
//
// # Data model
//
// Violation is the central record:
//
//   - RuleID – stable rule identifier (serialized as rule_name).
//   - Description – short human text.
//   - Severity – Info < Warning < Error.
//   - Line, Column – 1-based position of the offending declaration or statement.
//   - Variable – field or parameter name the finding is about; may be empty.
//   - Suggestion – remediation hint.
//
// Two violations are the same finding when their (RuleID, Line, Variable)
// triples match; Dedup and DedupReporter use that identity.
//
// # Emitting
//
// Rules report through a Reporter, usually via NewReportBuilder chained with
// WithVariable / WithSuggestion before Emit. Collector and Set store what is
// reported; DedupReporter drops repeats.
//
// Package violation performs no IO and no formatting beyond the short
// one-line form used by golden tests and the CLI; structured renderers live in
// internal/report.
package violation
