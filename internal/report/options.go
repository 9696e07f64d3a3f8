package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"gasguard/internal/source"
)

// Format selects an output renderer.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
	FormatYAML
	FormatShort
	FormatSARIF
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatShort:
		return "short"
	case FormatSARIF:
		return "sarif"
	default:
		return "pretty"
	}
}

// ParseFormat parses the --format flag.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "short":
		return FormatShort, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return FormatPretty, fmt.Errorf("unknown format %q (expected: pretty|json|yaml|short|sarif)", s)
	}
}

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto renders paths relative to the base when they live under it.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode parses the --path-mode flag.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute", "abs":
		return PathModeAbsolute, nil
	case "relative", "rel":
		return PathModeRelative, nil
	case "basename", "base":
		return PathModeBasename, nil
	default:
		return PathModeAuto, fmt.Errorf("unknown path mode %q (expected: auto|absolute|relative|basename)", s)
	}
}

// PrettyOpts configures the terminal renderer.
type PrettyOpts struct {
	Color    bool
	Context  int // extra source lines shown above the finding
	PathMode PathMode
	BaseDir  string
	TabWidth int
	// Quiet drops the source excerpt and suggestion lines.
	Quiet bool
}

// displayPath renders a source label according to mode.
func displayPath(label string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(label); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeBasename:
		return filepath.Base(label)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			return filepath.ToSlash(label)
		}
		if rel, err := source.RelativePath(label, base); err == nil {
			if mode == PathModeAuto && filepath.IsAbs(rel) {
				return filepath.ToSlash(label)
			}
			return rel
		}
	}
	return filepath.ToSlash(label)
}
