package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gasguard/internal/detect"
	"gasguard/internal/report"
	"gasguard/internal/rules"
	"gasguard/internal/scanner"
	"gasguard/internal/source"
	"gasguard/internal/violation"
	"gasguard/internal/watch"
)

const wasteful = `use soroban_sdk::{contract, contractimpl, contracttype, Address};

#[contracttype]
pub struct Ledger {
    owner: Address,
    total: u128,
    forgotten: u32,
}

#[contractimpl]
impl Ledger {
    pub fn bump(&mut self) {
        self.total += 1;
        let _ = self.owner.clone();
    }
}
`

func testMeta() report.Meta {
	return reportMeta(rules.Default())
}

func TestScanSingleReportsFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.rs")
	if err := os.WriteFile(path, []byte(wasteful), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := source.NewFileSet()
	sc := scanner.New(rules.Default(), scanner.WithFileSet(fs))

	doc, err := scanSingle(context.Background(), path, sc, 0, testMeta())
	if err != nil {
		t.Fatalf("scanSingle: %v", err)
	}
	if doc.Summary.Files != 1 || doc.Summary.Warnings < 2 {
		t.Fatalf("summary: %+v", doc.Summary)
	}
	if !doc.AtLeast(violation.SevWarning) {
		t.Fatalf("expected a warning-level finding")
	}

	var out bytes.Buffer
	flags := scanFlags{format: report.FormatJSON, validate: true}
	if err := renderReport(&out, doc, fs, flags, ""); err != nil {
		t.Fatalf("renderReport: %v", err)
	}
	if !strings.Contains(out.String(), `"forgotten"`) {
		t.Fatalf("json report lacks the unused field:\n%s", out.String())
	}
}

func TestScanSingleMissingFile(t *testing.T) {
	sc := scanner.New(rules.Default())
	path := filepath.Join(t.TempDir(), "absent.rs")
	doc, err := scanSingle(context.Background(), path, sc, 0, testMeta())
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if doc == nil || len(doc.Failures) != 1 || doc.Failures[0].Kind != report.KindIO {
		t.Fatalf("failure document: %+v", doc)
	}
}

func TestScanStdin(t *testing.T) {
	sc := scanner.New(rules.Default())
	doc, err := scanStdin(context.Background(), strings.NewReader(wasteful), sc, 0, testMeta())
	if err != nil {
		t.Fatalf("scanStdin: %v", err)
	}
	if len(doc.Results) != 1 || doc.Results[0].Source != "<stdin>" {
		t.Fatalf("results: %+v", doc.Results)
	}
}

func TestReadUIMode(t *testing.T) {
	tests := map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff}
	for in, want := range tests {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}

func TestUseColorExplicit(t *testing.T) {
	if on, err := useColor("on", os.Stdout); err != nil || !on {
		t.Fatalf("on: %v %v", on, err)
	}
	if on, err := useColor("off", os.Stdout); err != nil || on {
		t.Fatalf("off: %v %v", on, err)
	}
	if _, err := useColor("rainbow", os.Stdout); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestRenderRulesPretty(t *testing.T) {
	var out bytes.Buffer
	if err := renderRulesPretty(&out, ruleInfos(rules.Default()), false); err != nil {
		t.Fatalf("renderRulesPretty: %v", err)
	}
	for _, e := range rules.Catalog() {
		if !strings.Contains(out.String(), e.ID) {
			t.Fatalf("missing %s in:\n%s", e.ID, out.String())
		}
	}
	if strings.Contains(out.String(), "\x1b[") {
		t.Fatalf("unexpected escape codes")
	}
}

func TestPrintWatchEventDelete(t *testing.T) {
	var out bytes.Buffer
	ev := watch.Event{Path: "src/lib.rs", Op: watch.OpDelete}
	if err := printWatchEvent(&out, ev, report.FormatShort, testMeta(), nil, report.PrettyOpts{}); err != nil {
		t.Fatalf("printWatchEvent: %v", err)
	}
	if got := out.String(); got != "removed src/lib.rs\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScanSingleHonorsMinSeverity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.rs")
	if err := os.WriteFile(path, []byte(wasteful), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	sc := scanner.New(rules.Default())

	all, err := scanSingle(context.Background(), path, sc, 0, testMeta())
	if err != nil {
		t.Fatalf("scanSingle: %v", err)
	}
	if all.Summary.Infos == 0 {
		t.Fatalf("private fields should yield info findings: %+v", all.Summary)
	}

	meta := testMeta()
	meta.MinSeverity = violation.SevWarning
	meta.MaxPerFile = 1
	doc, err := scanSingle(context.Background(), path, sc, 0, meta)
	if err != nil {
		t.Fatalf("scanSingle: %v", err)
	}
	if doc.Summary.Infos != 0 || doc.Summary.Violations != 1 || doc.Summary.Omitted != all.Summary.Warnings-1 {
		t.Fatalf("filtered summary: %+v (unfiltered %+v)", doc.Summary, all.Summary)
	}
}

func TestWriteDetectedMarksUnanalyzableStyles(t *testing.T) {
	sc := scanner.New(rules.Default())
	var out bytes.Buffer
	writeDetected(&out, "a.rs", detect.Soroban, sc)
	writeDetected(&out, "b.vy", detect.Vyper, sc)
	want := "a.rs\tsoroban\nb.vy\tvyper\t(no analyzer)\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}
