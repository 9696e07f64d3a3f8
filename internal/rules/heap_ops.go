package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

const (
	// ExpensiveStringsID identifies the string-building rule.
	ExpensiveStringsID = "soroban-expensive-strings"
	// VecWithoutCapacityID identifies the Vec growth rule.
	VecWithoutCapacityID = "soroban-vec-without-capacity"
)

var stringOps = []struct {
	label string
	re    *regexp.Regexp
}{
	{"format!", regexp.MustCompile(`\bformat\s*!\s*[\(\[\{]`)},
	{".to_string()", regexp.MustCompile(`\.\s*to_string\s*\(\s*\)`)},
	{"String::from", regexp.MustCompile(`\bString\s*::\s*from\s*\(`)},
	{"string concatenation", regexp.MustCompile(`\+\s*&`)},
	{".push_str()", regexp.MustCompile(`\.\s*push_str\s*\(`)},
}

type expensiveStrings struct {
	Meta
}

// NewExpensiveStrings flags heap-allocating string construction inside
// function bodies, at most once per line.
func NewExpensiveStrings(opts ...Option) Rule {
	return &expensiveStrings{
		Meta: newMeta(ExpensiveStringsID, "Expensive String Operations",
			"Formatting and concatenation allocate on the heap on every call.",
			violation.SevInfo, opts),
	}
}

func (r *expensiveStrings) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	for _, fn := range c.Functions() {
		body := bodyOffset(fn)
		if body < 0 {
			continue
		}
		for off := body; off < len(fn.Code); {
			end := strings.IndexByte(fn.Code[off:], '\n')
			if end < 0 {
				end = len(fn.Code)
			} else {
				end += off
			}
			if at, label := firstStringOp(fn.Code[off:end]); at >= 0 {
				line, col := fn.PosAt(off + at)
				r.report(&out, line, fmt.Sprintf("Heap-allocating string operation (%s) in function '%s'", label, fn.Name)).
					WithColumn(col).
					WithSuggestion("Prefer Symbol or fixed-size Bytes; build display strings off-chain").
					Emit()
			}
			off = end + 1
		}
	}
	return out.Items()
}

func firstStringOp(line string) (int, string) {
	best, label := -1, ""
	for _, op := range stringOps {
		if loc := op.re.FindStringIndex(line); loc != nil && (best < 0 || loc[0] < best) {
			best, label = loc[0], op.label
		}
	}
	return best, label
}

var vecNewRe = regexp.MustCompile(`\blet\s+(?:mut\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*(?::[^=;]*)?=\s*Vec\s*(?:::\s*<[^>]*>\s*)?::\s*new\s*\(\s*\)`)

type vecWithoutCapacity struct {
	Meta
}

// NewVecWithoutCapacity flags a local Vec created with Vec::new() and then
// grown with push in the same function.
func NewVecWithoutCapacity(opts ...Option) Rule {
	return &vecWithoutCapacity{
		Meta: newMeta(VecWithoutCapacityID, "Vec Without Capacity",
			"Growing a vector from empty reallocates repeatedly.",
			violation.SevInfo, opts),
	}
}

func (r *vecWithoutCapacity) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	for _, fn := range c.Functions() {
		for _, m := range vecNewRe.FindAllStringSubmatchIndex(fn.Code, -1) {
			name := fn.Code[m[2]:m[3]]
			if !calledOn(fn.Code[m[1]:], name, "push", false) {
				continue
			}
			line, col := fn.PosAt(m[0])
			r.report(&out, line, fmt.Sprintf("Vector '%s' is created without capacity and grown with push", name)).
				WithColumn(col).
				WithVariable(name).
				WithSuggestion("Use Vec::with_capacity(n) when the final size is known").
				Emit()
		}
	}
	return out.Items()
}

// sortedByLine orders violations by position, keeping emission order for
// ties.
func sortedByLine(vs []violation.Violation) []violation.Violation {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Line != vs[j].Line {
			return vs[i].Line < vs[j].Line
		}
		return vs[i].Column < vs[j].Column
	})
	return vs
}
