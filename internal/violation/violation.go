package violation

// Violation is one located finding produced by a rule. The serialized field
// names are part of the report contract and must not change.
type Violation struct {
	RuleID      string   `json:"rule_name" yaml:"rule_name" msgpack:"rule_name"`
	Description string   `json:"description" yaml:"description" msgpack:"description"`
	Severity    Severity `json:"severity" yaml:"severity" msgpack:"severity"`
	Line        uint32   `json:"line_number" yaml:"line_number" msgpack:"line_number"`
	Column      uint32   `json:"column_number" yaml:"column_number" msgpack:"column_number"`
	Variable    string   `json:"variable_name" yaml:"variable_name" msgpack:"variable_name"`
	Suggestion  string   `json:"suggestion" yaml:"suggestion" msgpack:"suggestion"`
}

// Key identifies a violation for deduplication.
type Key struct {
	RuleID   string
	Line     uint32
	Variable string
}

// Key returns the (rule id, line, variable) identity triple.
func (v Violation) Key() Key {
	return Key{RuleID: v.RuleID, Line: v.Line, Variable: v.Variable}
}

// New builds a violation at column 1.
func New(sev Severity, ruleID string, line uint32, desc string) Violation {
	return Violation{
		RuleID:      ruleID,
		Description: desc,
		Severity:    sev,
		Line:        line,
		Column:      1,
	}
}

func (v Violation) WithColumn(col uint32) Violation {
	if col > 0 {
		v.Column = col
	}
	return v
}

func (v Violation) WithVariable(name string) Violation {
	v.Variable = name
	return v
}

func (v Violation) WithSuggestion(s string) Violation {
	v.Suggestion = s
	return v
}
