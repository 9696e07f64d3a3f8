package report

import (
	"fmt"
	"io"

	"gasguard/internal/violation"
)

// Short writes one line per violation followed by one line per failure.
func Short(w io.Writer, doc *Document, mode PathMode, base string) error {
	located := doc.Located()
	for i := range located {
		located[i].Path = displayPath(located[i].Path, mode, base)
	}
	if out := violation.FormatShort(located); out != "" {
		if _, err := fmt.Fprintln(w, out); err != nil {
			return err
		}
	}
	for _, f := range doc.Failures {
		if _, err := fmt.Fprintf(w, "failed %s %s: %s\n", f.Kind, displayPath(f.Path, mode, base), f.Error); err != nil {
			return err
		}
	}
	return nil
}
