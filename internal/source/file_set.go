package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"sync"

	"fortio.org/safecast"
)

// FileSet keeps every contract loaded during a run so reporters can quote
// source lines. Safe for concurrent use by scan workers.
type FileSet struct {
	mu      sync.RWMutex
	files   []*File
	index   map[string]FileID // path -> latest id
	baseDir string
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{index: make(map[string]FileID)}
}

// NewFileSetWithBase creates a FileSet whose paths are rendered relative to baseDir.
func NewFileSetWithBase(baseDir string) *FileSet {
	fs := NewFileSet()
	fs.baseDir = baseDir
	return fs
}

// BaseDir returns the directory used for relative paths, defaulting to the
// working directory.
func (fileSet *FileSet) BaseDir() string {
	if fileSet.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return fileSet.baseDir
}

// Add normalizes content and stores it under path. Re-adding a path creates a
// new version; lookups by path return the latest one.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) *File {
	f := NewFile(path, content)
	f.Flags |= flags

	fileSet.mu.Lock()
	defer fileSet.mu.Unlock()
	id, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	f.ID = FileID(id)
	fileSet.files = append(fileSet.files, f)
	fileSet.index[f.Path] = f.ID
	return f
}

// NewFile normalizes content and indexes its lines without registering it
// anywhere. The returned file has ID 0.
func NewFile(path string, content []byte) *File {
	content, flags := Normalize(content)
	return &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
}

// Load reads a file from disk and adds it.
func (fileSet *FileSet) Load(path string) (*File, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fileSet.Add(path, content, 0), nil
}

// AddVirtual adds in-memory content with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) *File {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file with the given id, or nil.
func (fileSet *FileSet) Get(id FileID) *File {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	if int(id) >= len(fileSet.files) {
		return nil
	}
	return fileSet.files[id]
}

// GetByPath returns the latest version loaded for path.
func (fileSet *FileSet) GetByPath(path string) (*File, bool) {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	id, ok := fileSet.index[normalizePath(path)]
	if !ok {
		return nil, false
	}
	return fileSet.files[id], true
}

// Len reports how many versions are stored.
func (fileSet *FileSet) Len() int {
	fileSet.mu.RLock()
	defer fileSet.mu.RUnlock()
	return len(fileSet.files)
}

// Text returns the normalized content as a string.
func (f *File) Text() string {
	return string(f.Content)
}

// LineCount returns the number of lines; a trailing newline does not open a new line.
func (f *File) LineCount() uint32 {
	n := len(f.LineIdx)
	if len(f.Content) > 0 && f.Content[len(f.Content)-1] != '\n' {
		n++
	}
	count, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("line count overflow: %w", err))
	}
	return count
}

// Position converts a byte offset into a 1-based line/column pair.
func (f *File) Position(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}

// GetLine returns line lineNum (1-based) without its newline, or "" when out of range.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	idx := int(lineNum) - 1
	var start int
	if idx > 0 {
		if idx-1 >= len(f.LineIdx) {
			return ""
		}
		start = int(f.LineIdx[idx-1]) + 1
	}
	end := len(f.Content)
	if idx < len(f.LineIdx) {
		end = int(f.LineIdx[idx])
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// DisplayPath renders the path relative to baseDir when possible.
func (f *File) DisplayPath(baseDir string) string {
	if f.Flags&FileVirtual != 0 || baseDir == "" {
		return f.Path
	}
	if rel, err := RelativePath(f.Path, baseDir); err == nil {
		return rel
	}
	return f.Path
}
