package vm

import "sync"

// ---------------------------------------------------------------------------
// Polymorphic inline caches
// ---------------------------------------------------------------------------

// CallSite identifies one property or method access site: the instruction
// position within its chunk, combined with the chunk's registry-assigned
// ID so sites in different functions never collide.
type CallSite uint64

// MakeCallSite combines a chunk cache ID with an instruction position.
func MakeCallSite(chunkID uint32, pos int) CallSite {
	return CallSite(uint64(chunkID)<<32 | uint64(uint32(pos)))
}

// inlineCacheCapacity bounds the entries per site. One entry is
// monomorphic, two or three polymorphic; at capacity the site goes
// megamorphic and further distinct shapes are rejected.
const inlineCacheCapacity = 4

// PropertyCacheEntry caches a resolved field offset for one
// (symbol, shape) pair.
type PropertyCacheEntry struct {
	Symbol SymbolID
	Shape  HiddenClassID
	Offset int
}

// PropertyInlineCache is the cache state for one property access site.
type PropertyInlineCache struct {
	Entries []PropertyCacheEntry
	Hits    uint64
	Misses  uint64
}

// Lookup scans the entries for a matching (symbol, shape) pair.
func (c *PropertyInlineCache) Lookup(symbol SymbolID, shape HiddenClassID) (int, bool) {
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Symbol == symbol && e.Shape == shape {
			return e.Offset, true
		}
	}
	return 0, false
}

// Insert records a resolved offset. An existing (symbol, shape) entry is
// updated in place without growing. At capacity an unseen shape is
// rejected and Insert returns false: the site is megamorphic and callers
// should stay on the general lookup path instead of thrashing the cache.
func (c *PropertyInlineCache) Insert(symbol SymbolID, shape HiddenClassID, offset int) bool {
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Symbol == symbol && e.Shape == shape {
			e.Offset = offset
			return true
		}
	}
	if len(c.Entries) >= inlineCacheCapacity {
		return false
	}
	c.Entries = append(c.Entries, PropertyCacheEntry{Symbol: symbol, Shape: shape, Offset: offset})
	return true
}

// IsMonomorphic reports whether exactly one shape has been seen.
func (c *PropertyInlineCache) IsMonomorphic() bool { return len(c.Entries) == 1 }

// IsMegamorphic reports whether the cache is saturated.
func (c *PropertyInlineCache) IsMegamorphic() bool { return len(c.Entries) >= inlineCacheCapacity }

func (c *PropertyInlineCache) clone() PropertyInlineCache {
	cp := *c
	cp.Entries = append([]PropertyCacheEntry(nil), c.Entries...)
	return cp
}

// MethodCacheEntry caches a resolved method for one (symbol, shape) pair.
type MethodCacheEntry struct {
	Symbol SymbolID
	Shape  HiddenClassID
	Method *Closure
}

// MethodInlineCache is the cache state for one method access site.
type MethodInlineCache struct {
	Entries []MethodCacheEntry
	Hits    uint64
	Misses  uint64
}

// Lookup scans the entries for a matching (symbol, shape) pair.
func (c *MethodInlineCache) Lookup(symbol SymbolID, shape HiddenClassID) (*Closure, bool) {
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Symbol == symbol && e.Shape == shape {
			return e.Method, true
		}
	}
	return nil, false
}

// Insert mirrors PropertyInlineCache.Insert for method entries.
func (c *MethodInlineCache) Insert(symbol SymbolID, shape HiddenClassID, method *Closure) bool {
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Symbol == symbol && e.Shape == shape {
			e.Method = method
			return true
		}
	}
	if len(c.Entries) >= inlineCacheCapacity {
		return false
	}
	c.Entries = append(c.Entries, MethodCacheEntry{Symbol: symbol, Shape: shape, Method: method})
	return true
}

func (c *MethodInlineCache) IsMonomorphic() bool { return len(c.Entries) == 1 }
func (c *MethodInlineCache) IsMegamorphic() bool { return len(c.Entries) >= inlineCacheCapacity }

func (c *MethodInlineCache) clone() MethodInlineCache {
	cp := *c
	cp.Entries = append([]MethodCacheEntry(nil), c.Entries...)
	return cp
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Sites  int
	Hits   uint64
	Misses uint64
}

// ---------------------------------------------------------------------------
// Cache registry
// ---------------------------------------------------------------------------

// CacheRegistry holds every inline cache in the process, keyed by call
// site. It also hands out fresh HiddenClassIDs from a single shared
// counter: shapes and caches are co-designed, so every new shape must be
// observable by every cache keyed against it.
type CacheRegistry struct {
	mu         sync.RWMutex
	properties map[CallSite]*PropertyInlineCache
	methods    map[CallSite]*MethodInlineCache
	nextShape  HiddenClassID
	nextChunk  uint32
}

// NewCacheRegistry creates an empty cache registry.
func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{
		properties: make(map[CallSite]*PropertyInlineCache),
		methods:    make(map[CallSite]*MethodInlineCache),
	}
}

// nextHiddenClassID allocates a fresh shape ID. The first allocation is
// the root shape's ID 0.
func (r *CacheRegistry) nextHiddenClassID() HiddenClassID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextShape
	r.nextShape++
	return id
}

// nextChunkID allocates a cache namespace for one chunk.
func (r *CacheRegistry) nextChunkID() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextChunk++
	return r.nextChunk
}

// GetPropertyCache returns a clone of the site's current cache state,
// lazily creating the cache. The clone is for local reasoning and
// instrumentation; mutations go through LookupProperty/InsertProperty.
func (r *CacheRegistry) GetPropertyCache(site CallSite) PropertyInlineCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.properties[site]
	if !ok {
		c = &PropertyInlineCache{}
		r.properties[site] = c
	}
	return c.clone()
}

// GetMethodCache mirrors GetPropertyCache for method sites.
func (r *CacheRegistry) GetMethodCache(site CallSite) MethodInlineCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.methods[site]
	if !ok {
		c = &MethodInlineCache{}
		r.methods[site] = c
	}
	return c.clone()
}

// LookupProperty consults the site's cache. A hit is authoritative: the
// caller may use the returned offset without the general lookup.
func (r *CacheRegistry) LookupProperty(site CallSite, symbol SymbolID, shape HiddenClassID) (int, bool) {
	r.mu.RLock()
	c, ok := r.properties[site]
	if !ok {
		r.mu.RUnlock()
		return 0, false
	}
	offset, hit := c.Lookup(symbol, shape)
	r.mu.RUnlock()

	r.mu.Lock()
	if hit {
		c.Hits++
	} else {
		c.Misses++
	}
	r.mu.Unlock()
	return offset, hit
}

// InsertProperty records a slow-path resolution for future hits. Returns
// false when the site is megamorphic for the given shape.
func (r *CacheRegistry) InsertProperty(site CallSite, symbol SymbolID, shape HiddenClassID, offset int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.properties[site]
	if !ok {
		c = &PropertyInlineCache{}
		r.properties[site] = c
	}
	return c.Insert(symbol, shape, offset)
}

// LookupMethod consults the site's method cache.
func (r *CacheRegistry) LookupMethod(site CallSite, symbol SymbolID, shape HiddenClassID) (*Closure, bool) {
	r.mu.RLock()
	c, ok := r.methods[site]
	if !ok {
		r.mu.RUnlock()
		return nil, false
	}
	m, hit := c.Lookup(symbol, shape)
	r.mu.RUnlock()

	r.mu.Lock()
	if hit {
		c.Hits++
	} else {
		c.Misses++
	}
	r.mu.Unlock()
	return m, hit
}

// InsertMethod records a slow-path method resolution.
func (r *CacheRegistry) InsertMethod(site CallSite, symbol SymbolID, shape HiddenClassID, method *Closure) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.methods[site]
	if !ok {
		c = &MethodInlineCache{}
		r.methods[site] = c
	}
	return c.Insert(symbol, shape, method)
}

// Stats aggregates hit/miss counts over every site.
func (r *CacheRegistry) Stats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s CacheStats
	for _, c := range r.properties {
		s.Sites++
		s.Hits += c.Hits
		s.Misses += c.Misses
	}
	for _, c := range r.methods {
		s.Sites++
		s.Hits += c.Hits
		s.Misses += c.Misses
	}
	return s
}

// ---------------------------------------------------------------------------
// Process-wide registry
// ---------------------------------------------------------------------------

var (
	cachesOnce    sync.Once
	defaultCaches *CacheRegistry
)

// Caches returns the process-wide inline-cache registry.
func Caches() *CacheRegistry {
	cachesOnce.Do(func() {
		defaultCaches = NewCacheRegistry()
	})
	return defaultCaches
}
