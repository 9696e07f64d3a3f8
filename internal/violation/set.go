package violation

import "sort"

// Set is an ordered violation list with an optional size limit.
type Set struct {
	items []Violation
	limit int
}

// NewSet creates a set holding at most limit violations; limit <= 0 means
// unlimited. Items of a new set is empty, never nil.
func NewSet(limit int) *Set {
	return &Set{items: make([]Violation, 0, max(limit, 0)), limit: limit}
}

// Add appends v. Returns false when the limit has been reached.
func (s *Set) Add(v Violation) bool {
	if s.limit > 0 && len(s.items) >= s.limit {
		return false
	}
	s.items = append(s.items, v)
	return true
}

// Extend adds every violation in vs and returns how many were accepted.
func (s *Set) Extend(vs []Violation) int {
	n := 0
	for _, v := range vs {
		if !s.Add(v) {
			break
		}
		n++
	}
	return n
}

// Items returns the backing slice; callers must not modify it.
func (s *Set) Items() []Violation {
	return s.items
}

// Sort orders by line, column, severity (desc), rule id, variable.
func (s *Set) Sort() {
	sort.SliceStable(s.items, func(i, j int) bool {
		a, b := s.items[i], s.items[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Variable < b.Variable
	})
}

// Dedup returns vs without repeated identity triples, preserving order.
func Dedup(vs []Violation) []Violation {
	if len(vs) == 0 {
		return vs
	}
	seen := make(map[Key]struct{}, len(vs))
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Filter returns the violations at or above min, preserving order.
func Filter(vs []Violation, min Severity) []Violation {
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		if v.Severity >= min {
			out = append(out, v)
		}
	}
	return out
}

// BySeverity returns the violations with exactly sev.
func BySeverity(vs []Violation, sev Severity) []Violation {
	out := make([]Violation, 0)
	for _, v := range vs {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}

// Counts tallies violations per severity.
func Counts(vs []Violation) map[Severity]int {
	out := make(map[Severity]int, 3)
	for _, v := range vs {
		out[v.Severity]++
	}
	return out
}
