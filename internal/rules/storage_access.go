package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

// RepeatedStorageAccessID identifies the repeated-read rule.
const RepeatedStorageAccessID = "soroban-repeated-storage-access"

var (
	fieldGetRe   = regexp.MustCompile(`\bself\s*\.\s*([A-Za-z_][A-Za-z0-9_]*)\s*\.\s*get\s*(?:::\s*<[^>]*>\s*)?\(`)
	storageGetRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\s*\.\s*storage\s*\(\s*\)\s*\.\s*(?:persistent|instance|temporary)\s*\(\s*\)\s*\.\s*get\s*(?:::\s*<[^>]*>\s*)?\(`)
	letPrefixRe  = regexp.MustCompile(`\blet\s+(?:mut\s+)?[A-Za-z_][A-Za-z0-9_]*\s*(?::[^=]*)?=\s*$`)
)

type repeatedStorageAccess struct {
	Meta
}

// NewRepeatedStorageAccess flags a storage lookup that appears more than
// once in one function when its first occurrence is not bound with let.
func NewRepeatedStorageAccess(opts ...Option) Rule {
	return &repeatedStorageAccess{
		Meta: newMeta(RepeatedStorageAccessID, "Repeated Storage Access",
			"Every storage read is metered; reading the same entry twice pays twice.",
			violation.SevWarning, opts),
	}
}

type storageRead struct {
	start, end int // end is the closing ')'
	key        string
	variable   string
}

func (r *repeatedStorageAccess) Apply(c *soroban.Contract) []violation.Violation {
	if c == nil {
		return nil
	}
	var out violation.Collector
	for _, fn := range c.Functions() {
		reads := storageReads(fn)

		type state struct {
			count  int
			cached bool
		}
		seen := make(map[string]*state, len(reads))
		for _, rd := range reads {
			st, ok := seen[rd.key]
			if !ok {
				st = &state{cached: boundByLet(fn.Code, rd)}
				seen[rd.key] = st
			}
			st.count++
			if st.count != 2 || st.cached {
				continue
			}
			line, col := fn.PosAt(rd.start)
			r.report(&out, line, fmt.Sprintf("Storage read '%s' is repeated in function '%s'", rd.key, fn.Name)).
				WithColumn(col).
				WithVariable(rd.variable).
				WithSuggestion("Read the value once into a local variable and reuse it").
				Emit()
		}
	}
	return out.Items()
}

// storageReads lists lookup expressions in fn ordered by offset. Keys come
// from the raw text so that literal arguments tell reads apart.
func storageReads(fn *soroban.FunctionDecl) []storageRead {
	var reads []storageRead
	add := func(m []int, variable func(open, close int) string) {
		open := m[1] - 1
		closeAt := matchParen(fn.Code, open)
		if closeAt < 0 {
			return
		}
		reads = append(reads, storageRead{
			start:    m[0],
			end:      closeAt,
			key:      normalizeSpace(fn.Raw[m[0] : closeAt+1]),
			variable: variable(open, closeAt),
		})
	}
	for _, m := range fieldGetRe.FindAllStringSubmatchIndex(fn.Code, -1) {
		add(m, func(int, int) string { return fn.Code[m[2]:m[3]] })
	}
	for _, m := range storageGetRe.FindAllStringIndex(fn.Code, -1) {
		add(m, func(open, closeAt int) string { return normalizeSpace(fn.Raw[open+1 : closeAt]) })
	}
	sort.SliceStable(reads, func(i, j int) bool { return reads[i].start < reads[j].start })
	return reads
}

// boundByLet reports whether rd is the whole initializer of a let binding:
// "let x = <read>" optionally followed by unwrap or expect calls, then ';'.
func boundByLet(code string, rd storageRead) bool {
	lineStart := strings.LastIndexByte(code[:rd.start], '\n') + 1
	if !letPrefixRe.MatchString(code[lineStart:rd.start]) {
		return false
	}
	pos := rd.end + 1
	for {
		pos = nextNonSpace(code, pos)
		switch {
		case pos >= len(code):
			return false
		case code[pos] == ';':
			return true
		case code[pos] == '?':
			pos++
			continue
		case code[pos] != '.':
			return false
		}
		name := nextNonSpace(code, pos+1)
		end := name
		for end < len(code) && isIdentByte(code[end]) {
			end++
		}
		if !unwrapCall(code[name:end]) {
			return false
		}
		open := nextNonSpace(code, end)
		closeAt := matchParen(code, open)
		if closeAt < 0 {
			return false
		}
		pos = closeAt + 1
	}
}

func unwrapCall(name string) bool {
	return name == "expect" || strings.HasPrefix(name, "unwrap")
}
