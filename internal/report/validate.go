package report

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/report.schema.json
var schemaJSON []byte

// Schema returns the JSON Schema every JSON report conforms to.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// ValidationError lists the schema violations of a report.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one schema violation at a document path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("report validation failed:\n")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// ValidateJSON checks a serialized report against the embedded schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate report: %w", err)
	}
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{Field: e.Field(), Message: e.Description()})
	}
	return ve
}
