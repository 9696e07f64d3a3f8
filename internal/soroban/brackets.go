package soroban

import (
	"fmt"
	"strings"
	"unicode"

	"fortio.org/safecast"
)

// bracketSet selects which bracket kinds nest during a scan.
type bracketSet uint8

const (
	bracketRound bracketSet = 1 << iota
	bracketSquare
	bracketAngle
	bracketCurly
)

const (
	// signatureBrackets nest in parameter lists and type text, where
	// generics may contain commas.
	signatureBrackets = bracketRound | bracketSquare | bracketAngle
	// blockBrackets nest in bodies, where '<' and '>' are usually operators.
	blockBrackets = bracketRound | bracketSquare | bracketCurly
	allBrackets   = signatureBrackets | bracketCurly
)

func openerKind(c byte) bracketSet {
	switch c {
	case '(':
		return bracketRound
	case '[':
		return bracketSquare
	case '<':
		return bracketAngle
	case '{':
		return bracketCurly
	}
	return 0
}

func closerKind(c byte) bracketSet {
	switch c {
	case ')':
		return bracketRound
	case ']':
		return bracketSquare
	case '>':
		return bracketAngle
	case '}':
		return bracketCurly
	}
	return 0
}

// isArrow reports whether the '>' at i belongs to "->" or "=>".
func isArrow(s string, i int) bool {
	return s[i] == '>' && i > 0 && (s[i-1] == '-' || s[i-1] == '=')
}

// matchClose returns the offset of the bracket closing the opener at start.
// All kinds in set nest together, so "(Vec<(u32, i64)>)" closes at its last
// byte. A closer of the wrong kind or end of input yields ok == false.
func matchClose(s string, start int, set bracketSet) (int, bool) {
	if start >= len(s) || openerKind(s[start])&set == 0 {
		return 0, false
	}
	stack := make([]bracketSet, 0, 8)
	for i := start; i < len(s); i++ {
		c := s[i]
		if k := openerKind(c); k&set != 0 {
			stack = append(stack, k)
			continue
		}
		k := closerKind(c)
		if k&set == 0 || (k == bracketAngle && isArrow(s, i)) {
			continue
		}
		if stack[len(stack)-1] != k {
			return 0, false
		}
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return i, true
		}
	}
	return 0, false
}

// balanced reports whether every bracket of the kinds in set is closed by
// the matching kind.
func balanced(s string, set bracketSet) bool {
	stack := make([]bracketSet, 0, 8)
	for i := 0; i < len(s); i++ {
		if k := openerKind(s[i]); k&set != 0 {
			stack = append(stack, k)
			continue
		}
		k := closerKind(s[i])
		if k&set == 0 || (k == bracketAngle && isArrow(s, i)) {
			continue
		}
		if len(stack) == 0 || stack[len(stack)-1] != k {
			return false
		}
		stack = stack[:len(stack)-1]
	}
	return len(stack) == 0
}

// ExtractBetweenParentheses returns the text between the first top-level '('
// and its balanced ')'. Parentheses, square and angle brackets nest together.
// ok is false when there is no '(' or the text's brackets do not balance.
func ExtractBetweenParentheses(text string) (string, bool) {
	if !balanced(text, signatureBrackets) {
		return "", false
	}
	depth := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '(' && depth == 0:
			end, ok := matchClose(text, i, signatureBrackets)
			if !ok {
				return "", false
			}
			return text[i+1 : end], true
		case openerKind(c)&signatureBrackets != 0:
			depth++
		case closerKind(c)&signatureBrackets != 0 && !isArrow(text, i):
			if depth > 0 {
				depth--
			}
		}
	}
	return "", false
}

// SplitPreservingParentheses splits text at delim wherever no bracket group
// is open, trims each entry and drops empty ones. Parentheses, square and
// angle brackets nest together, so "a: (u32, String), b: Map<K, V>" yields
// two entries.
func SplitPreservingParentheses(text string, delim rune) []string {
	pieces := splitTop(text, delim, signatureBrackets)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

type piece struct {
	text string
	off  int // offset of text within the split input
}

func splitTop(s string, delim rune, set bracketSet) []piece {
	var out []piece
	stack := make([]bracketSet, 0, 8)
	segStart := 0
	flush := func(end int) {
		seg := s[segStart:end]
		trimmed := strings.TrimSpace(seg)
		if trimmed != "" {
			lead := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
			out = append(out, piece{text: trimmed, off: segStart + lead})
		}
	}
	for i, r := range s {
		if r < 0x80 {
			c := byte(r)
			if k := openerKind(c); k&set != 0 {
				stack = append(stack, k)
				continue
			}
			if k := closerKind(c); k&set != 0 && !(k == bracketAngle && isArrow(s, i)) {
				if len(stack) > 0 && stack[len(stack)-1] == k {
					stack = stack[:len(stack)-1]
				}
				continue
			}
		}
		if r == delim && len(stack) == 0 {
			flush(i)
			segStart = i + len(string(r))
		}
	}
	flush(len(s))
	return out
}

// normalizeSpace collapses every whitespace run, including newlines, into a
// single space.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether word occurs in s with identifier boundaries on
// both sides.
func containsWord(s, word string) bool {
	return indexWord(s, word, 0) >= 0
}

// indexWord finds word in s at or after from, bounded by non-identifier bytes.
func indexWord(s, word string, from int) int {
	if word == "" {
		return -1
	}
	for from <= len(s)-len(word) {
		k := strings.Index(s[from:], word)
		if k < 0 {
			return -1
		}
		at := from + k
		end := at + len(word)
		if (at == 0 || !isIdentByte(s[at-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return at
		}
		from = at + 1
	}
	return -1
}

// wordAt reports whether word starts at offset i of s with identifier
// boundaries on both sides.
func wordAt(s string, i int, word string) bool {
	if !strings.HasPrefix(s[i:], word) {
		return false
	}
	end := i + len(word)
	return (i == 0 || !isIdentByte(s[i-1])) && (end == len(s) || !isIdentByte(s[end]))
}

func u32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}
