package gen

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"reflex/internal/diag"
	"reflex/internal/version"
)

// Current schema version - increment when Entry format changes.
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 sum.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Cache stores generated files on disk, keyed by the digest of the package
// sources and the generator settings. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Entry is one cached generation result.
type Entry struct {
	Schema  uint16
	PkgPath string
	Types   []string
	Empty   bool
	Source  []byte
	Diags   []CachedDiag
}

// CachedDiag is the msgpack-safe form of a diagnostic.
type CachedDiag struct {
	Severity uint8
	Code     uint16
	Message  string
	File     string
	Line     int
	Column   int
}

// OpenCache returns the cache under $XDG_CACHE_HOME/app (or ~/.cache/app).
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewCache(filepath.Join(base, app))
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "gen", key.String()+".mp")
}

// Put writes e under key, replacing the file atomically.
func (c *Cache) Put(key Digest, e *Entry) (err error) {
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

	e.Schema = cacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(e); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry stored under key. Entries of another schema count as
// misses.
func (c *Cache) Get(key Digest) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, err
	}
	if e.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll removes every cached entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// KeyFor digests the package identity, its source files and the settings
// that shape the output. Files are hashed in path order.
func KeyFor(pkgPath string, files []string, output string, opts Options) (Digest, error) {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write("reflex-gen")
	write(version.Version)
	write(pkgPath)
	write(output)
	if opts.IncludeUnexported {
		write("include-unexported")
	}
	for _, path := range sorted {
		src, err := os.ReadFile(path)
		if err != nil {
			return Digest{}, err
		}
		sum := sha256.Sum256(src)
		write(filepath.Base(path))
		h.Write(sum[:])
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

func cacheDiags(diags []diag.Diagnostic) []CachedDiag {
	out := make([]CachedDiag, 0, len(diags))
	for _, d := range diags {
		out = append(out, CachedDiag{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			File:     d.Primary.Filename,
			Line:     d.Primary.Line,
			Column:   d.Primary.Column,
		})
	}
	return out
}

func restoreDiags(cached []CachedDiag) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(cached))
	for _, c := range cached {
		pos := diagPosition(c.File, c.Line, c.Column)
		out = append(out, diag.New(diag.Severity(c.Severity), diag.Code(c.Code), pos, c.Message))
	}
	return out
}
