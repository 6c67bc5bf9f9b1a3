package vcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestKeyOfSeparatesParts(t *testing.T) {
	if KeyOf([]byte("ab"), []byte("c")) == KeyOf([]byte("a"), []byte("bc")) {
		t.Fatal("length prefixes should separate parts")
	}
	if KeyOf([]byte("x")) != KeyOf([]byte("x")) {
		t.Fatal("KeyOf should be deterministic")
	}
}

func TestPutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := KeyOf([]byte("prog"), []byte("5"))

	var rec Record
	if found, err := c.Get(key, &rec); err != nil || found {
		t.Fatalf("empty cache: found=%v err=%v", found, err)
	}
	if err := c.Put(key, &Record{Path: "sum.avb", Executed: true, Steps: 6}); err != nil {
		t.Fatalf("put: %v", err)
	}
	found, err := c.Get(key, &rec)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if rec.Path != "sum.avb" || !rec.Executed || rec.Steps != 6 || rec.Schema != schemaVersion || rec.CheckedAt == 0 {
		t.Fatalf("record = %+v", rec)
	}

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(c.pathFor(key)))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache dir holds %d entries", len(entries))
	}
}

func TestStaleSchemaIsMissing(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := KeyOf([]byte("old"))
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := msgpack.Marshal(&Record{Schema: schemaVersion + 1, Path: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	var rec Record
	if found, err := c.Get(key, &rec); err != nil || found {
		t.Fatalf("stale record: found=%v err=%v", found, err)
	}
}

func TestDrop(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := KeyOf([]byte("a"))
	if err := c.Put(key, &Record{Path: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Drop(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	var rec Record
	if found, _ := c.Get(key, &rec); found {
		t.Fatal("record survived Drop")
	}
	if err := c.Put(key, &Record{Path: "a"}); err != nil {
		t.Fatalf("put after drop: %v", err)
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	var rec Record
	if err := c.Put(KeyOf(), &rec); err != nil {
		t.Fatal(err)
	}
	if found, err := c.Get(KeyOf(), &rec); found || err != nil {
		t.Fatal("nil cache should miss")
	}
	if c.Drop() != nil || c.Dir() != "" {
		t.Fatal("nil cache should be inert")
	}
}
