package rules

import (
	"strings"

	"gasguard/internal/soroban"
)

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// wordIndexes returns the offset of every occurrence of word in s that has
// identifier boundaries on both sides.
func wordIndexes(s, word string) []int {
	if word == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(s)-len(word); {
		k := strings.Index(s[from:], word)
		if k < 0 {
			break
		}
		at := from + k
		end := at + len(word)
		if (at == 0 || !isIdentByte(s[at-1])) && (end == len(s) || !isIdentByte(s[end])) {
			out = append(out, at)
		}
		from = at + 1
	}
	return out
}

func containsWord(s, word string) bool {
	return len(wordIndexes(s, word)) > 0
}

// prevNonSpace returns the index of the last non-whitespace byte before i,
// or -1.
func prevNonSpace(s string, i int) int {
	for i--; i >= 0; i-- {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return i
		}
	}
	return -1
}

// nextNonSpace returns the index of the first non-whitespace byte at or
// after i, or len(s).
func nextNonSpace(s string, i int) int {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return i
		}
	}
	return len(s)
}

// methodCallAt reports whether s continues at i with ".method(", whitespace
// allowed around the dot, and returns the offset of the '('.
func methodCallAt(s string, i int, method string) (int, bool) {
	i = nextNonSpace(s, i)
	if i >= len(s) || s[i] != '.' {
		return 0, false
	}
	i = nextNonSpace(s, i+1)
	if !strings.HasPrefix(s[i:], method) {
		return 0, false
	}
	i += len(method)
	if i < len(s) && isIdentByte(s[i]) {
		return 0, false
	}
	i = nextNonSpace(s, i)
	if i >= len(s) || s[i] != '(' {
		return 0, false
	}
	return i, true
}

// calledOn reports whether s holds name.method(..) with name word-bounded.
// With noArgs the parentheses must be empty.
func calledOn(s, name, method string, noArgs bool) bool {
	for _, at := range wordIndexes(s, name) {
		open, ok := methodCallAt(s, at+len(name), method)
		if !ok {
			continue
		}
		if !noArgs {
			return true
		}
		if k := nextNonSpace(s, open+1); k < len(s) && s[k] == ')' {
			return true
		}
	}
	return false
}

// enclosingOpener returns the innermost bracket still open at offset i.
func enclosingOpener(s string, i int) byte {
	var stack []byte
	for k := 0; k < i && k < len(s); k++ {
		switch c := s[k]; c {
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1.
func matchParen(s string, open int) int {
	if open >= len(s) || s[open] != '(' {
		return -1
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// bodyOffset returns the offset in fn.Code of the opening body brace, or -1
// when the function has no body.
func bodyOffset(fn *soroban.FunctionDecl) int {
	if fn.BodyLine == 0 || fn.BodyLine < fn.Line {
		return -1
	}
	off := 0
	for n := fn.BodyLine - fn.Line; n > 0; n-- {
		k := strings.IndexByte(fn.Code[off:], '\n')
		if k < 0 {
			return -1
		}
		off += k + 1
	}
	k := strings.IndexByte(fn.Code[off:], '{')
	if k < 0 {
		return -1
	}
	return off + k
}

// paramOffset locates the declaration of parameter name in the signature.
func paramOffset(fn *soroban.FunctionDecl, name string) int {
	for _, at := range wordIndexes(fn.Code, name) {
		nx := nextNonSpace(fn.Code, at+len(name))
		if nx < len(fn.Code) && fn.Code[nx] == ':' && (nx+1 == len(fn.Code) || fn.Code[nx+1] != ':') {
			return at
		}
	}
	return -1
}

// paramPos returns the line and column of a parameter's name.
func paramPos(fn *soroban.FunctionDecl, p soroban.ParamDecl) (line, col uint32) {
	if off := paramOffset(fn, p.Name); off >= 0 {
		return fn.PosAt(off)
	}
	return p.Line, 1
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
