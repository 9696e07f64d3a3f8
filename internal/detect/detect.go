// Package detect decides which contract style a source is written in.
package detect

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Style is a contract authoring style.
type Style uint8

const (
	Unknown Style = iota
	Rust
	Vyper
	Soroban
)

func (s Style) String() string {
	switch s {
	case Rust:
		return "rust"
	case Vyper:
		return "vyper"
	case Soroban:
		return "soroban"
	default:
		return "unknown"
	}
}

// ParseStyle accepts the lowercase style names.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rust", "rs":
		return Rust, nil
	case "vyper", "vy":
		return Vyper, nil
	case "soroban":
		return Soroban, nil
	case "", "auto", "unknown":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("invalid style: %q (expected: auto|rust|vyper|soroban)", s)
	}
}

func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Extensions lists the file extensions a directory scan picks up.
var Extensions = []string{".rs", ".vy"}

// FromExtension maps a path's extension to a style. Soroban contracts are
// ordinary .rs files, so .rs yields Rust; content detection refines it.
func FromExtension(path string) Style {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs":
		return Rust
	case ".vy":
		return Vyper
	}
	return Unknown
}

type marker struct {
	style Style
	all   []string // every one must be present
	any   []string // at least one must be present
}

// markers are checked in order; the most specific style comes first.
var markers = []marker{
	{style: Soroban, all: []string{"soroban_sdk"}, any: []string{"#[contract]", "#[contractimpl]", "#[contracttype]"}},
	{style: Vyper, any: []string{"# @version", "#pragma version", "interface "}},
	{style: Rust, any: []string{"fn main(", "#[derive("}},
}

// FromContent applies the ordered marker heuristics. Unknown means the
// caller must supply a style.
func FromContent(content string) Style {
	for _, m := range markers {
		if m.matches(content) {
			return m.style
		}
	}
	return Unknown
}

func (m marker) matches(content string) bool {
	for _, s := range m.all {
		if !strings.Contains(content, s) {
			return false
		}
	}
	if len(m.any) == 0 {
		return true
	}
	for _, s := range m.any {
		if strings.Contains(content, s) {
			return true
		}
	}
	return false
}

// Resolve picks a style: explicit wins, then content markers, then the
// path's extension, then fallback.
func Resolve(explicit Style, path, content string, fallback Style) Style {
	if explicit != Unknown {
		return explicit
	}
	if s := FromContent(content); s != Unknown {
		return s
	}
	if s := FromExtension(path); s != Unknown {
		return s
	}
	return fallback
}
