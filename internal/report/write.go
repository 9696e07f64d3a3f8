package report

import (
	"fmt"
	"io"

	"gasguard/internal/source"
)

// Write renders doc in format. fs and opts only matter for the pretty and
// short renderers.
func Write(w io.Writer, format Format, doc *Document, fs *source.FileSet, opts PrettyOpts) error {
	switch format {
	case FormatJSON:
		return JSON(w, doc)
	case FormatYAML:
		return YAML(w, doc)
	case FormatShort:
		return Short(w, doc, opts.PathMode, opts.BaseDir)
	case FormatSARIF:
		return SARIF(w, doc)
	case FormatPretty:
		return Pretty(w, doc, fs, opts)
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}
