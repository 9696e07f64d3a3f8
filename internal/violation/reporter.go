package violation

// Reporter receives violations from rules. Implementations: Collector,
// DedupReporter.
type Reporter interface {
	Report(v Violation)
}

// Collector keeps reported violations in arrival order.
type Collector struct {
	items []Violation
}

func (c *Collector) Report(v Violation) {
	c.items = append(c.items, v)
}

// Items returns the collected violations; nil when nothing was reported.
func (c *Collector) Items() []Violation {
	return c.items
}

// DedupReporter suppresses violations whose Key was already forwarded.
type DedupReporter struct {
	next Reporter
	seen map[Key]struct{}
}

// NewDedupReporter wraps next.
func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[Key]struct{})}
}

func (r *DedupReporter) Report(v Violation) {
	if r == nil {
		return
	}
	k := v.Key()
	if _, ok := r.seen[k]; ok {
		return
	}
	r.seen[k] = struct{}{}
	if r.next != nil {
		r.next.Report(v)
	}
}

// ReportBuilder accumulates violation details before emitting to a Reporter.
type ReportBuilder struct {
	reporter Reporter
	v        Violation
	emitted  bool
}

// NewReportBuilder constructs a builder bound to r.
func NewReportBuilder(r Reporter, sev Severity, ruleID string, line uint32, msg string) *ReportBuilder {
	return &ReportBuilder{reporter: r, v: New(sev, ruleID, line, msg)}
}

func (b *ReportBuilder) WithColumn(col uint32) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.v = b.v.WithColumn(col)
	return b
}

func (b *ReportBuilder) WithVariable(name string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.v.Variable = name
	return b
}

func (b *ReportBuilder) WithSuggestion(s string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.v.Suggestion = s
	return b
}

// Emit sends the violation exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.v)
	}
	b.emitted = true
}
