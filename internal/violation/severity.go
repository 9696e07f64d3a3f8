package violation

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a violation. Higher is more severe.
type Severity uint8

const (
	// SevInfo marks advisory findings.
	SevInfo Severity = iota
	// SevWarning marks probable waste.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity accepts the lowercase names and the common short aliases.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "note":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error", "err":
		return SevError, nil
	default:
		return SevInfo, fmt.Errorf("invalid severity: %q (expected: info|warning|error)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if s > SevError {
		return nil, fmt.Errorf("invalid severity value %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
