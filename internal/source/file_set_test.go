package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	f1 := fs.Add("token.rs", []byte("pub struct Token {}"), 0)
	f2 := fs.Add("token.rs", []byte("pub struct Token { a: u32 }"), 0)
	if f1.ID == f2.ID {
		t.Fatalf("expected distinct ids, got %d twice", f1.ID)
	}

	latest, ok := fs.GetByPath("token.rs")
	if !ok {
		t.Fatal("expected file to exist after Add")
	}
	if latest.ID != f2.ID {
		t.Fatalf("expected latest id %d, got %d", f2.ID, latest.ID)
	}
	if got := fs.Get(f1.ID).Text(); got != "pub struct Token {}" {
		t.Fatalf("old version lost: got %q", got)
	}
	if fs.Len() != 2 {
		t.Fatalf("expected 2 stored versions, got %d", fs.Len())
	}
}

func TestAddVirtualLineIdx(t *testing.T) {
	fs := NewFileSet()
	file := fs.AddVirtual("a.rs", []byte("a\nb\n"))

	expected := []uint32{1, 3}
	if len(file.LineIdx) != len(expected) {
		t.Fatalf("expected LineIdx length %d, got %d", len(expected), len(file.LineIdx))
	}
	for i, val := range expected {
		if file.LineIdx[i] != val {
			t.Errorf("expected LineIdx[%d] = %d, got %d", i, val, file.LineIdx[i])
		}
	}
	if file.Flags&FileVirtual == 0 {
		t.Error("expected FileVirtual flag to be set")
	}
	if file.LineCount() != 2 {
		t.Errorf("expected 2 lines, got %d", file.LineCount())
	}
}

func TestNormalizeBOMAndCRLF(t *testing.T) {
	raw := []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'b', '\r', 'c'}
	got, flags := Normalize(raw)
	if string(got) != "a\nb\rc" {
		t.Fatalf("unexpected normalized content %q", got)
	}
	if flags&FileHadBOM == 0 {
		t.Error("expected FileHadBOM")
	}
	if flags&FileNormalizedCRLF == 0 {
		t.Error("expected FileNormalizedCRLF")
	}
}

func TestNormalizeNFC(t *testing.T) {
	// "e" followed by a combining acute accent composes into U+00E9.
	got, flags := Normalize([]byte("cafe\u0301"))
	if string(got) != "caf\u00e9" {
		t.Fatalf("expected composed form, got %q", got)
	}
	if flags&FileNormalizedNFC == 0 {
		t.Error("expected FileNormalizedNFC")
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	file := fs.AddVirtual("x.rs", []byte("first\nsecond\nthird"))

	tests := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
	}
	for _, tt := range tests {
		if got := file.GetLine(tt.line); got != tt.want {
			t.Errorf("GetLine(%d): got %q, want %q", tt.line, got, tt.want)
		}
	}
	if file.LineCount() != 3 {
		t.Errorf("expected 3 lines, got %d", file.LineCount())
	}
}

func TestPosition(t *testing.T) {
	fs := NewFileSet()
	file := fs.AddVirtual("x.rs", []byte("ab\ncd\n"))

	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{2, LineCol{Line: 1, Col: 3}},
		{3, LineCol{Line: 2, Col: 1}},
		{4, LineCol{Line: 2, Col: 2}},
	}
	for _, tt := range tests {
		if got := file.Position(tt.off); got != tt.want {
			t.Errorf("Position(%d): got %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.rs")
	if err := os.WriteFile(path, []byte("line1\r\nline2\r\n"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	fs := NewFileSetWithBase(dir)
	file, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.Text() != "line1\nline2\n" {
		t.Fatalf("unexpected content %q", file.Text())
	}
	if file.Flags&FileNormalizedCRLF == 0 {
		t.Error("expected FileNormalizedCRLF flag")
	}
	if got := file.DisplayPath(fs.BaseDir()); got != "contract.rs" {
		t.Errorf("DisplayPath: got %q, want %q", got, "contract.rs")
	}

	if _, err := fs.Load(filepath.Join(dir, "missing.rs")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
