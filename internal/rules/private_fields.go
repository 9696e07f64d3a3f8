package rules

import (
	"fmt"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// PrivateContractFieldID identifies the private-field rule.
const PrivateContractFieldID = "soroban-private-contract-field"

type privateContractField struct {
	Meta
}

// NewPrivateContractField flags fields of contract types declared without
// pub. The type is serialized whole, so a private field is still stored and
// paid for while callers cannot build or read the value directly.
func NewPrivateContractField(opts ...Option) Rule {
	return &privateContractField{
		Meta: newMeta(PrivateContractFieldID, "Private Contract Field",
			"Contract type fields are serialized in full; private ones are stored but hidden from callers.",
			violation.SevInfo, opts),
	}
}

func (r *privateContractField) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	for _, t := range c.Types {
		for _, f := range t.Fields {
			if f.Visibility == soroban.Public {
				continue
			}
			r.report(&out, f.Line, fmt.Sprintf("Field '%s' of contract type '%s' is private", f.Name, t.Name)).
				WithColumn(f.Column).
				WithVariable(f.Name).
				WithSuggestion(fmt.Sprintf("Mark '%s' pub, or drop it from the contract type if callers never need it", f.Name)).
				Emit()
		}
	}
	return out.Items()
}
