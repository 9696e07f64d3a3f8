package soroban

import (
	"errors"
	"fmt"
)

// ErrorKind tags the ParseError variants.
type ErrorKind uint8

const (
	// KindMissingDeclarationMacro: no annotation-marked type declaration.
	KindMissingDeclarationMacro ErrorKind = iota + 1
	// KindMalformedStructure: a block, group, literal or comment never closes.
	KindMalformedStructure
	// KindIO: the source could not be read.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingDeclarationMacro:
		return "missing declaration macro"
	case KindMalformedStructure:
		return "malformed structure"
	case KindIO:
		return "io error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; a *ParseError matches the sentinel of its kind.
var (
	ErrMissingDeclarationMacro = errors.New("missing declaration macro")
	ErrMalformedStructure      = errors.New("malformed structure")
	ErrIO                      = errors.New("io error")
)

// ParseError is the only error type returned by Parse and ParseFile.
type ParseError struct {
	Kind ErrorKind
	Msg  string
	Line uint32 // 0 when not tied to a line
	Err  error  // underlying cause, IO only
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", e.Kind, e.Line, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMissingDeclarationMacro:
		return e.Kind == KindMissingDeclarationMacro
	case ErrMalformedStructure:
		return e.Kind == KindMalformedStructure
	case ErrIO:
		return e.Kind == KindIO
	}
	return false
}

// MissingDeclarationMacro reports that no marked type declaration was found in
// the source identified by context.
func MissingDeclarationMacro(context string) *ParseError {
	return &ParseError{
		Kind: KindMissingDeclarationMacro,
		Msg:  fmt.Sprintf("cannot determine contract name in %s: no #[contracttype] or #[contract] type declaration", context),
	}
}

// MalformedStructure reports an unbalanced construct first noticed at line.
func MalformedStructure(line uint32, reason string) *ParseError {
	return &ParseError{Kind: KindMalformedStructure, Msg: reason, Line: line}
}

// IOError wraps a read failure for path.
func IOError(path string, err error) *ParseError {
	return &ParseError{Kind: KindIO, Msg: path, Err: err}
}
