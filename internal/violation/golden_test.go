package violation

import "testing"

func TestFormatShort(t *testing.T) {
	items := []Located{
		{Path: "./contracts/token.rs", Violation: New(SevInfo, "soroban-expensive-strings", 12, "format! allocates\non the host").WithColumn(9)},
		{Path: "contracts/token.rs", Violation: New(SevWarning, "soroban-unused-state-variables", 4, "field `dust` is never read").WithColumn(5)},
		{Path: "contracts/a.rs", Violation: New(SevWarning, "soroban-inefficient-integers", 2, "u128 field")},
	}

	expected := "warning soroban-inefficient-integers contracts/a.rs:2:1 u128 field\n" +
		"warning soroban-unused-state-variables contracts/token.rs:4:5 field `dust` is never read\n" +
		"info soroban-expensive-strings contracts/token.rs:12:9 format! allocates on the host"

	if got := FormatShort(items); got != expected {
		t.Fatalf("unexpected short output:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
	if FormatShort(nil) != "" {
		t.Fatal("expected empty output for no violations")
	}
}
