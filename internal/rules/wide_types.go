package rules

import (
	"fmt"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

const (
	// InefficientIntegersID identifies the oversized-integer rule.
	InefficientIntegersID = "soroban-inefficient-integers"
	// StringOverSymbolID identifies the String-instead-of-Symbol rule.
	StringOverSymbolID = "soroban-string-over-symbol"
)

var wideIntegers = []string{"u128", "i128", "U256", "I256"}

type inefficientIntegers struct {
	Meta
}

// NewInefficientIntegers flags fields and parameters typed with 128- or
// 256-bit integers. The check looks at the declared type text only.
func NewInefficientIntegers(opts ...Option) Rule {
	return &inefficientIntegers{
		Meta: newMeta(InefficientIntegersID, "Inefficient Integer Types",
			"Wide integers cost more to store and to compute with than u64/u32.",
			violation.SevWarning, opts),
	}
}

func (r *inefficientIntegers) Apply(c *soroban.Contract) []violation.Violation {
	return typeScan(c, func(typ string) string {
		for _, w := range wideIntegers {
			if containsWord(typ, w) {
				return w
			}
		}
		return ""
	}, func(out violation.Reporter, kind, name, found string, line, col uint32) {
		r.report(out, line, fmt.Sprintf("%s '%s' uses %s", kind, name, found)).
			WithColumn(col).
			WithVariable(name).
			WithSuggestion(fmt.Sprintf("Use u64 or u32 for '%s' if the value range allows it", name)).
			Emit()
	})
}

type stringOverSymbol struct {
	Meta
}

// NewStringOverSymbol flags String-typed fields and parameters where a
// Symbol would do.
func NewStringOverSymbol(opts ...Option) Rule {
	return &stringOverSymbol{
		Meta: newMeta(StringOverSymbolID, "String Instead of Symbol",
			"Short identifiers stored as String are heap allocated; Symbol is cheaper.",
			violation.SevInfo, opts),
	}
}

func (r *stringOverSymbol) Apply(c *soroban.Contract) []violation.Violation {
	return typeScan(c, func(typ string) string {
		if containsWord(typ, "String") {
			return "String"
		}
		return ""
	}, func(out violation.Reporter, kind, name, _ string, line, col uint32) {
		r.report(out, line, fmt.Sprintf("%s '%s' is a String", kind, name)).
			WithColumn(col).
			WithVariable(name).
			WithSuggestion("Use Symbol for short identifiers (up to 32 characters)").
			Emit()
	})
}

// typeScan runs match over every field and parameter type and calls emit for
// the ones it selects, fields first.
func typeScan(
	c *soroban.Contract,
	match func(typ string) string,
	emit func(out violation.Reporter, kind, name, found string, line, col uint32),
) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	for _, f := range c.Fields() {
		if found := match(f.Type); found != "" {
			emit(&out, "Field", f.Name, found, f.Line, f.Column)
		}
	}
	for _, fn := range c.Functions() {
		for _, p := range fn.Params {
			if found := match(p.Type); found != "" {
				line, col := paramPos(fn, p)
				emit(&out, "Parameter", p.Name, found, line, col)
			}
		}
	}
	return out.Items()
}
