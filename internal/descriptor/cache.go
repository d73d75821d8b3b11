package descriptor

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize bounds the number of decoded descriptors kept per Cache.
const DefaultCacheSize = 4096

// Cache memoizes Decode results. Decoded types are never mutated, so one
// entry may be shared by concurrent callers. Errors are not cached.
type Cache struct {
	types *lru.Cache
}

// NewCache creates a cache holding up to size descriptors.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{types: c}, nil
}

// Decode is Decode with memoization. A nil Cache decodes directly.
func (c *Cache) Decode(s string) (Type, error) {
	if c == nil {
		return Decode(s)
	}
	if v, ok := c.types.Get(s); ok {
		return v.(Type), nil
	}
	t, err := Decode(s)
	if err != nil {
		return nil, err
	}
	c.types.Add(s, t)
	return t, nil
}

// Len returns the number of cached descriptors.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.types.Len()
}
