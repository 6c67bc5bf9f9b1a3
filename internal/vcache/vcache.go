// Package vcache remembers which bytecode files already passed
// verification, keyed by a digest of everything the verdict depends on.
package vcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// schemaVersion - increment when Record changes shape.
const schemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// KeyOf hashes parts with length prefixes, so ("ab", "c") and ("a", "bc")
// give different keys.
func KeyOf(parts ...[]byte) Digest {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

// Record is what the verifier stores for a passed file.
type Record struct {
	Schema    uint16
	Path      string
	Executed  bool // an expected-output file was compared
	Steps     uint64
	ExitCode  int
	CheckedAt int64 // unix seconds
}

// Cache is a directory of msgpack records. Safe for concurrent use.
// A nil *Cache is a disabled cache.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open creates dir if needed and returns a cache rooted there.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := key.String()
	// двухсимвольные подкаталоги, чтобы не держать тысячи файлов в одном
	return filepath.Join(c.dir, "verify", hexKey[:2], hexKey+".mp")
}

// Put writes rec under key, replacing any previous record atomically.
func (c *Cache) Put(key Digest, rec *Record) (err error) {
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
		// после успешного Rename временного файла уже нет
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	stored := *rec
	stored.Schema = schemaVersion
	if stored.CheckedAt == 0 {
		stored.CheckedAt = time.Now().Unix()
	}
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		return errors.Join(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the record for key. Records from another schema version count
// as missing.
func (c *Cache) Get(key Digest, out *Record) (found bool, err error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	var rec Record
	if err := msgpack.NewDecoder(f).Decode(&rec); err != nil {
		return false, err
	}
	if rec.Schema != schemaVersion {
		return false, nil
	}
	*out = rec
	return true, nil
}

// Drop removes every record.
func (c *Cache) Drop() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименовываем целиком, чтобы параллельный Get не увидел полкаталога
	old := c.dir + ".old-" + time.Now().Format("20060102150405.000000000")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
