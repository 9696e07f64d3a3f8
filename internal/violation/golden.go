package violation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Located pairs a violation with the label of the source it was found in.
type Located struct {
	Path string
	Violation
}

// FormatShort renders one stable line per violation:
//
//	<severity> <rule id> <path>:<line>:<col> <description>
//
// Entries are sorted by path, position, severity and rule id.
func FormatShort(items []Located) string {
	if len(items) == 0 {
		return ""
	}
	rendered := make([]Located, len(items))
	copy(rendered, items)
	for i := range rendered {
		rendered[i].Path = normalizePath(rendered[i].Path)
	}
	sort.SliceStable(rendered, func(i, j int) bool {
		a, b := rendered[i], rendered[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
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
		return a.Description < b.Description
	})

	var b strings.Builder
	for i, v := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", v.Severity, v.RuleID, v.Path, v.Line, v.Column, sanitizeMessage(v.Description))
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
