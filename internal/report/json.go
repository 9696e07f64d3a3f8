package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"gasguard/internal/scanner"
)

// JSON writes doc as indented JSON.
func JSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// ResultJSON renders a single scan result without the batch envelope.
func ResultJSON(res *scanner.ScanResult) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}

// YAML writes doc as YAML with the JSON field names.
func YAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}
