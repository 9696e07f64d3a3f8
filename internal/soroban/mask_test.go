package soroban

import (
	"errors"
	"strings"
	"testing"

	"gasguard/internal/source"
)

func maskString(t *testing.T, src string) string {
	t.Helper()
	out, err := mask(source.NewFile("mask.rs", []byte(src)))
	if err != nil {
		t.Fatalf("mask(%q): %v", src, err)
	}
	if len(out) != len(src) {
		t.Fatalf("mask changed length: %d -> %d", len(src), len(out))
	}
	return out
}

func TestMaskBlanksCommentsAndLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`let s = "a{b";`, `let s = "   ";`},
		{"x // }\ny", "x     \ny"},
		{"a /* { /* } */ { */ b", "a                   b"},
		{`let e = "q\"{";`, `let e = "    ";`},
		{`let c = '{';`, `let c = ' ';`},
		{`let n = '\n';`, `let n = '  ';`},
		{`let r = r#"}"#;`, `let r =       ;`},
		{`let b = br"{";`, `let b =      ;`},
		{"fn f<'a>(x: &'a str) {}", "fn f<'a>(x: &'a str) {}"},
		{"let r#type = 1;", "let r#type = 1;"},
		{"for x in v { }", "for x in v { }"},
	}
	for _, tt := range tests {
		if got := maskString(t, tt.src); got != tt.want {
			t.Fatalf("mask(%q):\n got %q\nwant %q", tt.src, got, tt.want)
		}
	}
}

func TestMaskKeepsNewlines(t *testing.T) {
	src := "a /* one\ntwo\nthree */ b\n\"x\ny\"\n"
	got := maskString(t, src)
	if strings.Count(got, "\n") != strings.Count(src, "\n") {
		t.Fatalf("newlines not preserved: %q", got)
	}
	if strings.ContainsAny(got, "owtxy") {
		t.Fatalf("comment or string text leaked: %q", got)
	}
}

func TestMaskUnterminated(t *testing.T) {
	tests := []struct {
		src  string
		line uint32
		want string
	}{
		{"ok\n\"open", 2, "ok\n     "},
		{"/* open\n", 1, "       \n"},
		{"a\nb\nr#\"open", 3, "a\nb\n       "},
		{"// x\n\"open", 2, "    \n     "},
	}
	for _, tt := range tests {
		got, err := mask(source.NewFile("mask.rs", []byte(tt.src)))
		if got != tt.want {
			t.Fatalf("mask(%q) partial text:\n got %q\nwant %q", tt.src, got, tt.want)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Kind != KindMalformedStructure {
			t.Fatalf("mask(%q): expected malformed structure, got %v", tt.src, err)
		}
		if pe.Line != tt.line {
			t.Fatalf("mask(%q): line %d, want %d", tt.src, pe.Line, tt.line)
		}
	}
}
