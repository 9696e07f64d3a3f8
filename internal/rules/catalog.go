package rules

import (
	"errors"
	"fmt"
	"sort"

	"gasguard/internal/violation"
)

// ErrUnknownRule is returned when configuration names a rule that does not
// exist.
var ErrUnknownRule = errors.New("unknown rule")

// Entry describes a built-in rule and how to construct it.
type Entry struct {
	ID       string
	Name     string
	Severity violation.Severity
	New      func(opts ...Option) Rule
}

// catalog lists constructors only; rule instances are always created fresh.
var catalog = []Entry{
	{UnusedStateVariablesID, "Unused State Variables", violation.SevWarning, NewUnusedStateVariables},
	{InefficientIntegersID, "Inefficient Integer Types", violation.SevWarning, NewInefficientIntegers},
	{StringOverSymbolID, "String Instead of Symbol", violation.SevInfo, NewStringOverSymbol},
	{RepeatedStorageAccessID, "Repeated Storage Access", violation.SevWarning, NewRepeatedStorageAccess},
	{UnboundedLoopID, "Unbounded Loop", violation.SevWarning, NewUnboundedLoop},
	{ExpensiveStringsID, "Expensive String Operations", violation.SevInfo, NewExpensiveStrings},
	{VecWithoutCapacityID, "Vec Without Capacity", violation.SevInfo, NewVecWithoutCapacity},
	{PrivateContractFieldID, "Private Contract Field", violation.SevInfo, NewPrivateContractField},
}

// Catalog returns the built-in rules in default registration order.
func Catalog() []Entry {
	return append([]Entry(nil), catalog...)
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (Entry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// DefaultRules returns fresh instances of every built-in rule.
func DefaultRules() []Rule {
	out := make([]Rule, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.New())
	}
	return out
}

// Override adjusts one rule. Nil fields keep the default.
type Override struct {
	Enabled  *bool
	Severity *violation.Severity
}

// Build instantiates the catalog with overrides applied. Unknown ids are
// rejected, reported in sorted order.
func Build(overrides map[string]Override) ([]Rule, error) {
	var unknown []string
	for id := range overrides {
		if _, ok := Lookup(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, unknown)
	}

	out := make([]Rule, 0, len(catalog))
	for _, e := range catalog {
		var opts []Option
		if o, ok := overrides[e.ID]; ok {
			if o.Enabled != nil {
				opts = append(opts, WithEnabled(*o.Enabled))
			}
			if o.Severity != nil {
				opts = append(opts, WithSeverity(*o.Severity))
			}
		}
		out = append(out, e.New(opts...))
	}
	return out, nil
}
