package source

type (
	// FileID uniquely identifies a contract source within a FileSet.
	FileID uint32
	// FileFlags records what normalization did to the raw bytes.
	FileFlags uint8
)

const (
	// FileVirtual marks content that did not come from disk (stdin, tests).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	FileNormalizedNFC
)

// File is a normalized contract source with a precomputed line index.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
