// Package cache keeps parsed report inputs on disk so that re-rendering an
// unchanged proof skips the verifier output parsers.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"proofview/internal/step"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// Cache stores payloads by input Digest. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Payload holds the registries of one proof. Traces are stored as
// reconstructed steps; the other registries as their JSON dumps, plus the
// failure descriptions the results dump does not carry.
type Payload struct {
	Schema uint16

	Traces              map[string][]step.Step
	Results             []byte
	FailureDescriptions map[string]string
	Coverage            []byte
	Properties          []byte
	Loops               []byte
}

// Open uses dir as the cache directory, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// OpenDefault opens the cache under $XDG_CACHE_HOME/app, or ~/.cache/app.
func OpenDefault(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "proofs", key.String()+".mp")
}

// Put serializes and writes a payload. A nil Cache ignores the call.
func (c *Cache) Put(key Digest, payload *Payload) (err error) {
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

	payload.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads a payload. Entries written by another schema version are
// reported as misses.
func (c *Cache) Get(key Digest) (*Payload, bool, error) {
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

	var out Payload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	if out.Schema != schemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог, затем удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
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
