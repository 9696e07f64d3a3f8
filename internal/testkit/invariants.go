// Package testkit holds structural checks shared by parser and rule tests.
package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// CheckContractInvariants verifies the shape guarantees of a parsed contract:
//  1. there is at least one type and Name is the first type's name
//  2. every recorded line lies within the source
//  3. lines never decrease in discovery order
//  4. each field's name sits at its recorded line and column
//  5. each function's Raw text is a slice of the source and Code mirrors it
func CheckContractInvariants(c *soroban.Contract) error {
	if c == nil {
		return fmt.Errorf("nil contract")
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("contract without types")
	}
	if c.Name != c.Types[0].Name {
		return fmt.Errorf("contract name %q differs from first type %q", c.Name, c.Types[0].Name)
	}
	lines := strings.Split(c.Source, "\n")
	total, err := safecast.Conv[uint32](len(lines))
	if err != nil {
		return fmt.Errorf("line count overflow: %w", err)
	}
	inBounds := func(what string, line uint32) error {
		if line < 1 || line > total {
			return fmt.Errorf("%s line %d outside 1..%d", what, line, total)
		}
		return nil
	}

	var lastType uint32
	for _, t := range c.Types {
		if err := inBounds("type "+t.Name, t.Line); err != nil {
			return err
		}
		if t.Line < lastType {
			return fmt.Errorf("type %s at line %d precedes previous type at %d", t.Name, t.Line, lastType)
		}
		lastType = t.Line
		last := t.Line
		for _, f := range t.Fields {
			if f.Name == "" || f.Type == "" {
				return fmt.Errorf("type %s has an incomplete field %+v", t.Name, f)
			}
			if err := inBounds("field "+f.Name, f.Line); err != nil {
				return err
			}
			if f.Line < last {
				return fmt.Errorf("field %s at line %d precedes line %d", f.Name, f.Line, last)
			}
			last = f.Line
			text := lines[f.Line-1]
			col := int(f.Column)
			if col < 1 || col-1+len(f.Name) > len(text) || text[col-1:col-1+len(f.Name)] != f.Name {
				return fmt.Errorf("field %s not found at %d:%d", f.Name, f.Line, f.Column)
			}
		}
	}

	var lastImpl uint32
	for _, impl := range c.Impls {
		if err := inBounds("impl "+impl.Target, impl.Line); err != nil {
			return err
		}
		if impl.Line < lastImpl {
			return fmt.Errorf("impl %s at line %d precedes previous impl at %d", impl.Target, impl.Line, lastImpl)
		}
		lastImpl = impl.Line
		last := impl.Line
		for _, fn := range impl.Functions {
			if err := inBounds("fn "+fn.Name, fn.Line); err != nil {
				return err
			}
			if fn.Line < last {
				return fmt.Errorf("fn %s at line %d precedes line %d", fn.Name, fn.Line, last)
			}
			last = fn.Line
			if fn.BodyLine != 0 && (fn.BodyLine < fn.Line || fn.BodyLine > total) {
				return fmt.Errorf("fn %s body line %d out of range", fn.Name, fn.BodyLine)
			}
			for _, p := range fn.Params {
				if p.Line < fn.Line || p.Line > total {
					return fmt.Errorf("fn %s param %s line %d out of range", fn.Name, p.Name, p.Line)
				}
			}
			if !strings.Contains(c.Source, fn.Raw) {
				return fmt.Errorf("fn %s raw text is not part of the source", fn.Name)
			}
			if len(fn.Code) != len(fn.Raw) || strings.Count(fn.Code, "\n") != strings.Count(fn.Raw, "\n") {
				return fmt.Errorf("fn %s code does not mirror raw layout", fn.Name)
			}
		}
	}
	return nil
}

// CheckViolations verifies that every violation points inside c's source and
// carries the identity fields reports depend on.
func CheckViolations(c *soroban.Contract, vs []violation.Violation) error {
	total := strings.Count(c.Source, "\n") + 1
	for i, v := range vs {
		if v.RuleID == "" || v.Description == "" {
			return fmt.Errorf("violation %d lacks id or description: %+v", i, v)
		}
		if v.Line < 1 || int(v.Line) > total {
			return fmt.Errorf("violation %d line %d outside 1..%d", i, v.Line, total)
		}
		if v.Column < 1 {
			return fmt.Errorf("violation %d has column %d", i, v.Column)
		}
		if v.Severity > violation.SevError {
			return fmt.Errorf("violation %d has severity %d", i, v.Severity)
		}
	}
	return nil
}
