package rules

import (
	"fmt"
	"regexp"
	"strings"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// UnboundedLoopID identifies the unbounded-iteration rule.
const UnboundedLoopID = "soroban-unbounded-loop"

var (
	forInRe     = regexp.MustCompile(`\bfor\s+[^{;]*?\bin\s+(?:&\s*(?:mut\s+)?)?([A-Za-z_][A-Za-z0-9_]*)\b`)
	iterCallRe  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\.\s*(?:iter|into_iter|iter_mut|keys|values)\s*\(\s*\)`)
	refPrefixRe = regexp.MustCompile(`^&\s*(?:'[A-Za-z_][A-Za-z0-9_]*\s+)?(?:mut\s+)?`)
)

var unboundedTypes = map[string]bool{
	"Vec":    true,
	"Map":    true,
	"Bytes":  true,
	"String": true,
}

type unboundedLoop struct {
	Meta
}

// NewUnboundedLoop flags iteration over a caller-supplied collection when
// the function never checks the collection's length before the loop.
func NewUnboundedLoop(opts ...Option) Rule {
	return &unboundedLoop{
		Meta: newMeta(UnboundedLoopID, "Unbounded Loop",
			"Loops over caller-controlled input can exhaust the instruction budget.",
			violation.SevWarning, opts),
	}
}

func (r *unboundedLoop) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	dedup := violation.NewDedupReporter(&out)
	for _, fn := range c.Functions() {
		body := bodyOffset(fn)
		if body < 0 {
			continue
		}
		if !anyUnbounded(fn.Params) {
			continue
		}
		for _, re := range []*regexp.Regexp{forInRe, iterCallRe} {
			for _, m := range re.FindAllStringSubmatchIndex(fn.Code[body:], -1) {
				name := fn.Code[body+m[2] : body+m[3]]
				start := body + m[0]
				if p, ok := fn.Param(name); !ok || !unboundedType(p.Type) {
					continue
				}
				if calledOn(fn.Code[body:start], name, "len", true) {
					continue
				}
				line, col := fn.PosAt(start)
				r.report(dedup, line, fmt.Sprintf("Loop in function '%s' iterates over caller-supplied '%s' without a length bound", fn.Name, name)).
					WithColumn(col).
					WithVariable(name).
					WithSuggestion(fmt.Sprintf("Check %s.len() against a maximum before iterating, or process the input in pages", name)).
					Emit()
			}
		}
	}
	return sortedByLine(out.Items())
}

// unboundedType reports whether a parameter type can grow with caller input.
func unboundedType(typ string) bool {
	t := refPrefixRe.ReplaceAllString(strings.TrimSpace(typ), "")
	if strings.HasPrefix(t, "[") {
		return !strings.Contains(t, ";")
	}
	if k := strings.IndexByte(t, '<'); k >= 0 {
		t = t[:k]
	}
	if k := strings.LastIndex(t, "::"); k >= 0 {
		t = t[k+2:]
	}
	return unboundedTypes[strings.TrimSpace(t)]
}

func anyUnbounded(params []soroban.ParamDecl) bool {
	for _, p := range params {
		if unboundedType(p.Type) {
			return true
		}
	}
	return false
}
