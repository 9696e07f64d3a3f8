package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"gasguard/internal/detect"
	"gasguard/internal/rules"
	"gasguard/internal/soroban"
	"gasguard/internal/violation"
)

const badContract = `use soroban_sdk::{contract, contractimpl, contracttype, Address, Env};

#[contracttype]
pub struct BadContract {
    admin: Address,
    counter: u128,
    unused_data: String,
}

#[contractimpl]
impl BadContract {
    pub fn new(admin: Address) -> Self {
        Self {
            admin,
            counter: 0,
            unused_data: "never_used".to_string(),
        }
    }

    pub fn increment(&mut self) {
        self.counter += 1;
    }
}
`

const cleanContract = `use soroban_sdk::{contract, contractimpl, contracttype, Address};

#[contracttype]
pub struct Clean {
    pub owner: Address,
    pub balance: u64,
}

#[contractimpl]
impl Clean {
    pub fn new(owner: Address) -> Self {
        Self { owner, balance: 0 }
    }

    pub fn deposit(&mut self, amount: u64) {
        self.balance += amount;
    }
}
`

const brokenContract = `use soroban_sdk::contracttype;

#[contracttype]
pub struct Broken {
    pub owner: Address,
`

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newScanner(opts ...Option) *Scanner {
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	return New(rules.Default(), opts...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanContent(t *testing.T) {
	res, err := newScanner().ScanContent(context.Background(), badContract, "bad.rs")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.Style != detect.Soroban || res.Source != "bad.rs" || !res.ScanTime.Equal(fixedTime) {
		t.Fatalf("result header: %+v", res)
	}
	if !res.HasViolations() {
		t.Fatalf("expected violations")
	}
	if got := res.BySeverity(violation.SevWarning); len(got) != 2 {
		t.Fatalf("warnings: got %+v", got)
	}
	if !res.AtLeast(violation.SevWarning) || res.AtLeast(violation.SevError) {
		t.Fatalf("AtLeast thresholds are wrong")
	}
}

func TestScanContentCleanIsNotFailure(t *testing.T) {
	res, err := newScanner().ScanContent(context.Background(), cleanContract, "clean.rs")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if res.HasViolations() || res.Violations == nil {
		t.Fatalf("expected an empty, non-nil violation list: %+v", res.Violations)
	}
}

func TestScanContentErrors(t *testing.T) {
	s := newScanner()
	ctx := context.Background()

	if _, err := s.ScanContent(ctx, "fn main() {}\n", "main.rs"); !errors.Is(err, ErrUnsupportedStyle) {
		t.Fatalf("expected ErrUnsupportedStyle, got %v", err)
	}
	if _, err := s.ScanContent(ctx, brokenContract, "broken.rs"); !errors.Is(err, soroban.ErrMalformedStructure) {
		t.Fatalf("expected ErrMalformedStructure, got %v", err)
	}
	if _, err := s.ScanContentWithStyle(ctx, "struct Plain {}\n", "plain.rs", detect.Soroban); !errors.Is(err, soroban.ErrMissingDeclarationMacro) {
		t.Fatalf("expected ErrMissingDeclarationMacro, got %v", err)
	}
	if _, err := s.ScanFile(ctx, filepath.Join(t.TempDir(), "missing.rs")); !errors.Is(err, soroban.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestExplicitStyleAndFallback(t *testing.T) {
	plain := "#[contracttype]\npub struct P {\n    pub wide: u128,\n}\n"
	if _, err := newScanner().ScanContent(context.Background(), plain, "p.txt"); !errors.Is(err, ErrUnsupportedStyle) {
		t.Fatalf("undetectable content should be unsupported, got %v", err)
	}
	res, err := newScanner(WithFallback(detect.Soroban)).ScanContent(context.Background(), plain, "p.txt")
	if err != nil || len(res.Violations) != 2 {
		t.Fatalf("fallback scan: %+v %v", res, err)
	}
	res, err = newScanner().ScanContentWithStyle(context.Background(), plain, "p.txt", detect.Soroban)
	if err != nil || res.Style != detect.Soroban {
		t.Fatalf("explicit style: %+v %v", res, err)
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.rs", badContract)
	writeFile(t, dir, "clean.rs", cleanContract)
	writeFile(t, dir, "nested/broken.rs", brokenContract)
	writeFile(t, dir, "main.rs", "fn main() {}\n")
	writeFile(t, dir, "notes.txt", badContract)
	writeFile(t, dir, "target/debug/gen.rs", badContract)

	s := newScanner()
	opts := DirOptions{Jobs: 2, Exclude: []string{"target/**"}}
	batch, err := s.ScanDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("scan dir: %v", err)
	}
	if batch.Files != 4 {
		t.Fatalf("files: got %d, want 4", batch.Files)
	}
	if len(batch.Results) != 1 || filepath.Base(batch.Results[0].Source) != "bad.rs" {
		t.Fatalf("results: %+v", batch.Results)
	}
	if len(batch.Failures) != 2 {
		t.Fatalf("failures: %+v", batch.Failures)
	}
	if !errors.Is(batch.Failures[0], ErrUnsupportedStyle) {
		t.Fatalf("main.rs should fail as unsupported: %v", batch.Failures[0])
	}
	if !errors.Is(batch.Failures[1], soroban.ErrMalformedStructure) {
		t.Fatalf("broken.rs should fail as malformed: %v", batch.Failures[1])
	}
	if !batch.AtLeast(violation.SevWarning) || batch.Violations() != len(batch.Results[0].Violations) {
		t.Fatalf("batch helpers disagree")
	}

	opts.KeepClean = true
	batch, err = s.ScanDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("scan dir: %v", err)
	}
	if len(batch.Results) != 2 {
		t.Fatalf("KeepClean results: %+v", batch.Results)
	}
}

func TestListContracts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", "")
	writeFile(t, dir, "b.vy", "")
	writeFile(t, dir, "c.md", "")
	writeFile(t, dir, "contracts/d.rs", "")

	files, err := ListContracts(dir, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.rs"),
		filepath.Join(dir, "b.vy"),
		filepath.Join(dir, "contracts", "d.rs"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("got %v, want %v", files, want)
	}

	files, err = ListContracts(dir, []string{"contracts/**/*.rs"}, nil)
	if err != nil || len(files) != 1 {
		t.Fatalf("include: %v %v", files, err)
	}
	if _, err := ListContracts(dir, nil, []string{"[unclosed"}); err == nil {
		t.Fatalf("expected invalid pattern error")
	}
}

func TestScanDirProgressAndCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.rs", badContract)
	writeFile(t, dir, "b.rs", cleanContract)

	var mu sync.Mutex
	counts := map[Status]int{}
	sink := SinkFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if e.File != "" {
			counts[e.Status]++
		}
	})
	if _, err := newScanner().ScanDir(context.Background(), dir, DirOptions{Progress: sink}); err != nil {
		t.Fatalf("scan dir: %v", err)
	}
	if counts[StatusQueued] != 2 || counts[StatusWorking] != 2 || counts[StatusDone] != 2 {
		t.Fatalf("progress counts: %v", counts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch, err := newScanner().ScanDir(ctx, dir, DirOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if batch == nil || len(batch.Results) != 0 {
		t.Fatalf("cancelled batch: %+v", batch)
	}
}

func TestDiskCache(t *testing.T) {
	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	s := newScanner(WithCache(cache))
	ctx := context.Background()

	first, err := s.ScanContent(ctx, badContract, "bad.rs")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if first.FromCache() {
		t.Fatalf("first scan cannot be cached")
	}
	second, err := s.ScanContent(ctx, badContract, "bad.rs")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !second.FromCache() {
		t.Fatalf("second scan should hit the cache")
	}
	if !reflect.DeepEqual(first.Violations, second.Violations) {
		t.Fatalf("cached violations differ:\n%+v\n%+v", first.Violations, second.Violations)
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("stats: hits=%d misses=%d", hits, misses)
	}

	engine, err := rules.New(rules.NewInefficientIntegers())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	third, err := New(engine, WithCache(cache)).ScanContent(ctx, badContract, "bad.rs")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if third.FromCache() || len(third.Violations) != 1 {
		t.Fatalf("a different rule set must not reuse cached results: %+v", third)
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, err := cache.Get(NewCacheKey(detect.Soroban, rules.Default().Fingerprint(), badContract)); ok || err != nil {
		t.Fatalf("dropped entry still present: %v %v", ok, err)
	}
}
