package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// Cache is a persistent, on-disk JSON cache keyed by the full registry
// command string, mirroring the original tool's .npm_cache.json: a single
// flat JSON object, read in full on first access and rewritten in full on
// every miss. Concurrent use of the same cache file is undefined, matching
// the "exclusive access assumed" resource model the rest of this module
// follows.
type Cache struct {
	path   string
	data   map[string]json.RawMessage
	loaded bool
}

// NewCache returns a Cache backed by the file at path. The file is not read
// until the first Get or Put.
func NewCache(path string) *Cache {
	return &Cache{path: path, data: map[string]json.RawMessage{}}
}

func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	c.loaded = true
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache %s: %w", c.path, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return fmt.Errorf("parsing cache %s: %w", c.path, err)
	}
	return nil
}

// Get returns the cached payload for key, if present.
func (c *Cache) Get(key string) (json.RawMessage, bool, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, false, err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

// Put stores value under key and rewrites the cache file in full.
func (c *Cache) Put(key string, value json.RawMessage) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.data[key] = value
	out, err := json.MarshalIndent(c.data, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(c.path, out, 0o644); err != nil {
		return fmt.Errorf("writing cache %s: %w", c.path, err)
	}
	return nil
}
