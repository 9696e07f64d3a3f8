package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"gasguard/internal/detect"
	"gasguard/internal/violation"
)

// Current schema version - increment when cachePayload format changes
const cacheSchemaVersion uint16 = 1

// CacheKey addresses one cached analysis.
type CacheKey [32]byte

// NewCacheKey hashes everything an analysis result depends on: the style,
// the effective rule configuration and the normalized content.
func NewCacheKey(style detect.Style, fingerprint, content string) CacheKey {
	h := sha256.New()
	h.Write([]byte(style.String()))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(content))
	var k CacheKey
	copy(k[:], h.Sum(nil))
	return k
}

func (k CacheKey) String() string {
	return hex.EncodeToString(k[:])
}

type cachePayload struct {
	Schema     uint16
	Violations []violation.Violation
}

// DiskCache keeps analysis results on disk between runs. Safe for concurrent
// use. A nil *DiskCache is a valid, always-missing cache.
type DiskCache struct {
	mu     sync.RWMutex
	dir    string
	hits   atomic.Int64
	misses atomic.Int64
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/<app>, falling back to
// ~/.cache/<app>.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens a cache rooted at dir.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key CacheKey) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "results", hexKey[:2], hexKey+".mp")
}

// Put stores violations under key, replacing the file atomically.
func (c *DiskCache) Put(key CacheKey, vs []violation.Violation) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(&cachePayload{Schema: cacheSchemaVersion, Violations: vs}); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the violations stored under key. Entries written by another
// schema version are reported as missing.
func (c *DiskCache) Get(key CacheKey) ([]violation.Violation, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != cacheSchemaVersion {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	if payload.Violations == nil {
		payload.Violations = []violation.Violation{}
	}
	return payload.Violations, true, nil
}

// Stats returns the hit and miss counters since the cache was opened.
func (c *DiskCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// DropAll removes every cached result.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "results"))
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}
