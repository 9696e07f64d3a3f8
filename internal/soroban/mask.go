package soroban

import (
	"bytes"
	"unicode/utf8"

	"gasguard/internal/source"
)

// mask returns file's content with comment bodies and literal contents
// replaced by spaces. Newlines, quotes and every byte offset are preserved, so
// bracket counting over the result never sees braces from strings such as
// format!("{}") and line numbers computed on it match the source.
//
// On an unterminated comment or literal the error is a MalformedStructure
// and the returned text is still usable: everything from the opening
// delimiter on is blanked.
func mask(file *source.File) (string, error) {
	src := file.Content
	out := make([]byte, len(src))
	copy(out, src)

	blank := func(from, to int) {
		for k := from; k < to && k < len(out); k++ {
			if out[k] != '\n' {
				out[k] = ' '
			}
		}
	}
	fail := func(off int, msg string) (string, error) {
		blank(off, len(out))
		return string(out), MalformedStructure(file.Position(u32(off)).Line, msg)
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := bytes.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src)
			} else {
				end += i
			}
			blank(i, end)
			i = end

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			// block comments nest
			depth, j := 1, i+2
			for j < len(src) && depth > 0 {
				switch {
				case src[j] == '/' && j+1 < len(src) && src[j+1] == '*':
					depth++
					j += 2
				case src[j] == '*' && j+1 < len(src) && src[j+1] == '/':
					depth--
					j += 2
				default:
					j++
				}
			}
			if depth > 0 {
				return fail(i, "unterminated block comment")
			}
			blank(i, j)
			i = j

		case (c == 'r' || c == 'b') && (i == 0 || !isIdentByte(src[i-1])):
			end, ok, err := rawStringEnd(src, i)
			if err != nil {
				return fail(i, err.Error())
			}
			if !ok {
				i++
				continue
			}
			blank(i, end)
			i = end

		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return fail(i, "unterminated string literal")
			}
			blank(i+1, j)
			i = j + 1

		case c == '\'':
			i = skipCharLiteral(src, i, blank)

		default:
			i++
		}
	}
	return string(out), nil
}

type maskError string

func (e maskError) Error() string { return string(e) }

// rawStringEnd recognizes r"..", r#".."#, br".." at i and returns the offset
// just past the closing delimiter. ok is false when i does not start a raw string.
func rawStringEnd(src []byte, i int) (end int, ok bool, err error) {
	j := i
	if src[j] == 'b' {
		j++
	}
	if j >= len(src) || src[j] != 'r' {
		return 0, false, nil
	}
	j++
	hashes := 0
	for j < len(src) && src[j] == '#' {
		hashes++
		j++
	}
	if j >= len(src) || src[j] != '"' {
		// raw identifier such as r#type
		return 0, false, nil
	}
	closing := append([]byte{'"'}, bytes.Repeat([]byte{'#'}, hashes)...)
	k := bytes.Index(src[j+1:], closing)
	if k < 0 {
		return 0, false, maskError("unterminated raw string literal")
	}
	return j + 1 + k + len(closing), true, nil
}

// skipCharLiteral blanks a char literal starting at i and returns the next
// offset. Lifetimes ('a, 'static) are left alone.
func skipCharLiteral(src []byte, i int, blank func(from, to int)) int {
	if i+1 >= len(src) {
		return i + 1
	}
	if src[i+1] == '\\' {
		// escaped char: '\n', '\'', '\u{1F600}'
		limit := min(len(src), i+12)
		for j := i + 3; j < limit; j++ {
			if src[j] == '\n' {
				break
			}
			if src[j] == '\'' {
				blank(i+1, j)
				return j + 1
			}
		}
		return i + 1
	}
	_, size := utf8.DecodeRune(src[i+1:])
	if src[i+1] != '\n' && i+1+size < len(src) && src[i+1+size] == '\'' {
		blank(i+1, i+1+size)
		return i + 2 + size
	}
	return i + 1
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
