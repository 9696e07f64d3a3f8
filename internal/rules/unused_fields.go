package rules

import (
	"fmt"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// UnusedStateVariablesID identifies the unused-field rule.
const UnusedStateVariablesID = "soroban-unused-state-variables"

type unusedStateVariables struct {
	Meta
}

// NewUnusedStateVariables flags contract fields that no function reads or
// writes. A field counts as used when some function mentions self.<field>
// or uses it as a shorthand initializer key (Self { field, .. }). An
// explicit "field: value" initializer alone is not a use.
func NewUnusedStateVariables(opts ...Option) Rule {
	return &unusedStateVariables{
		Meta: newMeta(UnusedStateVariablesID, "Unused State Variables",
			"Contract fields that are never accessed still occupy ledger storage.",
			violation.SevWarning, opts),
	}
}

func (r *unusedStateVariables) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	fns := c.Functions()
	var out violation.Collector
	for _, field := range c.Fields() {
		if fieldUsed(field.Name, fns) {
			continue
		}
		r.report(&out, field.Line, fmt.Sprintf("State variable '%s' is declared but never used", field.Name)).
			WithColumn(field.Column).
			WithVariable(field.Name).
			WithSuggestion(fmt.Sprintf("Remove '%s' from the contract type to save a storage entry", field.Name)).
			Emit()
	}
	return out.Items()
}

func fieldUsed(name string, fns []*soroban.FunctionDecl) bool {
	for _, fn := range fns {
		for _, at := range wordIndexes(fn.Code, name) {
			if isSelfAccess(fn.Code, at) || isShorthandInit(fn.Code, at, len(name)) {
				return true
			}
		}
	}
	return false
}

// isSelfAccess reports whether the word at is preceded by "self.".
func isSelfAccess(code string, at int) bool {
	dot := prevNonSpace(code, at)
	if dot < 0 || code[dot] != '.' {
		return false
	}
	end := prevNonSpace(code, dot)
	start := end - len("self") + 1
	if start < 0 || code[start:end+1] != "self" {
		return false
	}
	return start == 0 || !isIdentByte(code[start-1])
}

// isShorthandInit reports whether the word at is a bare key inside a struct
// literal: "{ name," / ", name }" and the like.
func isShorthandInit(code string, at, n int) bool {
	prev := prevNonSpace(code, at)
	if prev < 0 || (code[prev] != '{' && code[prev] != ',') {
		return false
	}
	next := nextNonSpace(code, at+n)
	if next >= len(code) || (code[next] != ',' && code[next] != '}') {
		return false
	}
	return enclosingOpener(code, at) == '{'
}
