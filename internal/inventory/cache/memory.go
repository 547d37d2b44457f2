package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process TTL cache, the single-node counterpart of the
// Redis adapter. Expired entries are dropped lazily on read and on write.
type Memory struct {
	mu sync.RWMutex
	m  map[string]entry
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{m: make(map[string]entry)}
}

// Get unmarshals the cached value into v if the key is present and unexpired
func (c *Memory) Get(_ context.Context, key string, v any) (bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(e.data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a JSON-encoded value with a TTL. A zero TTL means no expiry.
func (c *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes the given keys
func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every key with the given prefix
func (c *Memory) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	c.mu.Unlock()
	return nil
}
