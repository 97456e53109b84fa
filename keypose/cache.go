package keypose

import "sync"

// pairKey is an order-independent key for a pair of pose IDs. The smaller ID
// always comes first, halving storage and lookups.
type pairKey struct {
	lo, hi int64
}

func makePairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// DistanceCache memoizes pairwise key pose distances across comparisons. It
// is shared mutable state between recognition calls: a missed lookup costs
// only a duplicate computation, so correctness rests entirely on the lock
// discipline around the map.
type DistanceCache struct {
	mu      sync.RWMutex
	entries map[pairKey]float64
}

// NewDistanceCache creates an empty cache
func NewDistanceCache() *DistanceCache {
	return &DistanceCache{entries: make(map[pairKey]float64)}
}

// Get looks up the cached distance between two poses by ID, in either order
func (c *DistanceCache) Get(a, b int64) (float64, bool) {
	c.mu.RLock()
	d, ok := c.entries[makePairKey(a, b)]
	c.mu.RUnlock()
	return d, ok
}

// Put stores the distance between two poses by ID
func (c *DistanceCache) Put(a, b int64, distance float64) {
	c.mu.Lock()
	c.entries[makePairKey(a, b)] = distance
	c.mu.Unlock()
}

// Len returns how many pairs are cached
func (c *DistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
