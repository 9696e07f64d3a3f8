package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"gasguard/internal/source"
	"gasguard/internal/violation"
)

type palette struct {
	err, warn, info *color.Color
	path, gutter    *color.Color
	caret, help     *color.Color
	dim             *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgMagenta, color.Bold),
		help:   color.New(color.FgGreen),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.caret, p.help, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev violation.Severity) *color.Color {
	switch sev {
	case violation.SevError:
		return p.err
	case violation.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders doc for a terminal:
//
//	<path>:<line>:<col>: <severity>[<rule id>]: <description>
//	   7 |     unused_data: String,
//	     |     ^^^^^^^^^^^
//	     = help: <suggestion>
//
// Source lines are quoted from fs when the file is loaded there.
func Pretty(w io.Writer, doc *Document, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	tab := opts.TabWidth
	if tab <= 0 {
		tab = 4
	}

	var b strings.Builder
	for i := range doc.Results {
		res := &doc.Results[i]
		var file *source.File
		if fs != nil {
			file, _ = fs.GetByPath(res.Source)
		}
		path := displayPath(res.Source, opts.PathMode, opts.BaseDir)
		// source order reads top-down next to the excerpts
		ordered := violation.NewSet(0)
		ordered.Extend(res.Violations)
		ordered.Sort()
		for _, v := range ordered.Items() {
			fmt.Fprintf(&b, "%s: %s: %s\n",
				p.path.Sprintf("%s:%d:%d", path, v.Line, v.Column),
				p.severity(v.Severity).Sprintf("%s[%s]", v.Severity, v.RuleID),
				v.Description)
			if opts.Quiet {
				continue
			}
			if file != nil {
				writeExcerpt(&b, p, file, v, opts.Context, tab)
			}
			if v.Suggestion != "" {
				fmt.Fprintf(&b, "%s %s\n", p.gutter.Sprint(strings.Repeat(" ", gutterWidth(v.Line))+" ="), p.help.Sprint("help: "+v.Suggestion))
			}
			b.WriteByte('\n')
		}
	}
	for _, f := range doc.Failures {
		fmt.Fprintf(&b, "%s: %s: %s\n", p.path.Sprint(displayPath(f.Path, opts.PathMode, opts.BaseDir)), p.err.Sprint("failed"), f.Error)
	}
	b.WriteString(summaryLine(doc, p))
	_, err := io.WriteString(w, b.String())
	return err
}

func gutterWidth(line uint32) int {
	return max(len(fmt.Sprint(line)), 3)
}

func writeExcerpt(b *strings.Builder, p palette, file *source.File, v violation.Violation, context, tab int) {
	if v.Line == 0 || v.Line > file.LineCount() {
		return
	}
	width := gutterWidth(v.Line)
	first := v.Line
	for k := 0; k < context && first > 1; k++ {
		first--
	}
	for ln := first; ln <= v.Line; ln++ {
		text := expandTabs(file.GetLine(ln), tab)
		fmt.Fprintf(b, "%s %s\n", p.gutter.Sprintf("%*d |", width, ln), text)
	}

	raw := file.GetLine(v.Line)
	col := int(v.Column)
	if col < 1 || col > len(raw)+1 {
		col = 1
	}
	pad := runewidth.StringWidth(expandTabs(raw[:col-1], tab))
	span := 1
	if v.Variable != "" && strings.HasPrefix(raw[col-1:], v.Variable) {
		span = max(runewidth.StringWidth(v.Variable), 1)
	}
	fmt.Fprintf(b, "%s %s%s\n", p.gutter.Sprint(strings.Repeat(" ", width)+" |"), strings.Repeat(" ", pad), p.caret.Sprint(strings.Repeat("^", span)))
}

func expandTabs(s string, width int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := width - col%width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return b.String()
}

func summaryLine(doc *Document, p palette) string {
	s := doc.Summary
	if s.Violations == 0 && s.Failed == 0 {
		return p.help.Sprintf("no issues found in %d file(s)\n", s.Scanned)
	}
	parts := []string{
		p.err.Sprintf("%d error(s)", s.Errors),
		p.warn.Sprintf("%d warning(s)", s.Warnings),
		p.info.Sprintf("%d info", s.Infos),
	}
	line := fmt.Sprintf("%d violation(s): %s in %d file(s)", s.Violations, strings.Join(parts, ", "), s.Scanned)
	if s.Failed > 0 {
		line += fmt.Sprintf("; %d file(s) failed", s.Failed)
	}
	return line + "\n"
}
