package soroban

import (
	"reflect"
	"testing"
)

func TestExtractBetweenParentheses(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"fn test(param1: u64, param2: String)", "param1: u64, param2: String", true},
		{"fn f(a: (u32, Vec<(u8, u8)>), b: u8) -> u32", "a: (u32, Vec<(u8, u8)>), b: u8", true},
		{"Vec<(u32, i64)> f(a: u8)", "a: u8", true},
		{"fn unit()", "", true},
		{"no parens here", "", false},
		{"fn f(a: u32", "", false},
		{"fn f(a: Vec<u32)", "", false},
		{"fn f(a: u32))", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractBetweenParentheses(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ExtractBetweenParentheses(%q): got (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSplitPreservingParentheses(t *testing.T) {
	tests := []struct {
		text  string
		delim rune
		want  []string
	}{
		{"param1: u64, param2: (u32, String)", ',', []string{"param1: u64", "param2: (u32, String)"}},
		{"a: Map<u32, Vec<u8>>, b: fn(u32) -> u64, c: [u8; 32]", ',', []string{"a: Map<u32, Vec<u8>>", "b: fn(u32) -> u64", "c: [u8; 32]"}},
		{"\n  env: Env,\n  to: Address,\n", ',', []string{"env: Env", "to: Address"}},
		{"a; b; (c; d)", ';', []string{"a", "b", "(c; d)"}},
		{"", ',', []string{}},
	}
	for _, tt := range tests {
		got := SplitPreservingParentheses(tt.text, tt.delim)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("SplitPreservingParentheses(%q): got %#v, want %#v", tt.text, got, tt.want)
		}
	}
}

func TestSplitNeverCutsNestedGroups(t *testing.T) {
	inputs := []string{
		"a: Vec<(u32, u64)>, b: Map<Symbol, (i128, [u8; 4])>",
		"x: (u8, (u16, (u32, u64))), y: u8",
		"f: fn(Vec<u8>, u32) -> Result<(), Error>, g: u32",
	}
	for _, in := range inputs {
		for _, entry := range SplitPreservingParentheses(in, ',') {
			if !balanced(entry, signatureBrackets) {
				t.Fatalf("split of %q produced unbalanced entry %q", in, entry)
			}
		}
	}
}

func TestMatchClose(t *testing.T) {
	tests := []struct {
		s     string
		start int
		set   bracketSet
		want  int
		ok    bool
	}{
		{"(Vec<(u32, i64)>)", 0, signatureBrackets, 16, true},
		{"{ a -> b }", 0, blockBrackets, 9, true},
		{"{ if a < b { c } }", 0, blockBrackets, 17, true},
		{"(a]", 0, signatureBrackets, 0, false},
		{"(a", 0, signatureBrackets, 0, false},
		{"x(a)", 0, signatureBrackets, 0, false},
	}
	for _, tt := range tests {
		got, ok := matchClose(tt.s, tt.start, tt.set)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("matchClose(%q): got (%d, %v), want (%d, %v)", tt.s, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWordHelpers(t *testing.T) {
	if !containsWord("Map<u32, i128>", "i128") {
		t.Fatalf("i128 should be found as a word")
	}
	if containsWord("Vec<i1280>", "i128") {
		t.Fatalf("i128 must not match inside i1280")
	}
	if got := indexWord("xself self", "self", 0); got != 6 {
		t.Fatalf("indexWord: got %d, want 6", got)
	}
	if !wordAt("a where b", 2, "where") || wordAt("nowhere", 2, "where") {
		t.Fatalf("wordAt boundaries")
	}
	if got := normalizeSpace("  Vec<\n\t u8 >  "); got != "Vec< u8 >" {
		t.Fatalf("normalizeSpace: got %q", got)
	}
}
