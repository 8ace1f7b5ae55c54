package vm

import "sync"

// ---------------------------------------------------------------------------
// Hidden classes (object shapes)
// ---------------------------------------------------------------------------

// HiddenClassID identifies a shape node. ID 0 is the root shape with no
// properties.
type HiddenClassID uint32

// RootShapeID is the canonical empty shape of the process-wide registry,
// allocated at package initialization.
const RootShapeID HiddenClassID = 0

// HiddenClass describes which properties an object owns and at which
// storage slot. Shapes form a DAG shared across all objects with the same
// property-addition history: property_offsets holds only the properties
// added at this node, ancestors are resolved through ParentID.
//
// Offsets assigned at a node are contiguous and start at the parent's
// total property count, so an object's flat field storage can be indexed
// directly.
type HiddenClass struct {
	ID              HiddenClassID
	ParentID        HiddenClassID
	HasParent       bool
	PropertyOffsets map[SymbolID]int
	PropertyCount   int // total including ancestors
	Transitions     map[SymbolID]HiddenClassID
	Sealed          bool
}

// snapshot returns a copy safe for callers to inspect without holding the
// registry lock.
func (hc *HiddenClass) snapshot() HiddenClass {
	cp := *hc
	cp.PropertyOffsets = make(map[SymbolID]int, len(hc.PropertyOffsets))
	for k, v := range hc.PropertyOffsets {
		cp.PropertyOffsets[k] = v
	}
	cp.Transitions = make(map[SymbolID]HiddenClassID, len(hc.Transitions))
	for k, v := range hc.Transitions {
		cp.Transitions[k] = v
	}
	return cp
}

// ShapeRegistry owns every shape node in the process. Transitions are
// memoized globally: two objects independently adding the same property to
// the same starting shape converge on one target shape.
//
// Reads (offset lookups during execution) take the read lock; a new
// transition takes the write lock for the insert only. Transitions are
// rare relative to lookups, so contention stays tolerable even though
// every property access touches this shared state.
type ShapeRegistry struct {
	mu     sync.RWMutex
	shapes map[HiddenClassID]*HiddenClass
	root   HiddenClassID
}

// NewShapeRegistry creates a registry holding only the root shape.
func NewShapeRegistry() *ShapeRegistry {
	r := &ShapeRegistry{shapes: make(map[HiddenClassID]*HiddenClass)}
	root := &HiddenClass{
		ID:              Caches().nextHiddenClassID(),
		PropertyOffsets: make(map[SymbolID]int),
		Transitions:     make(map[SymbolID]HiddenClassID),
	}
	r.shapes[root.ID] = root
	r.root = root.ID
	return r
}

// Root returns this registry's empty shape. For the process-wide registry
// this is RootShapeID.
func (r *ShapeRegistry) Root() HiddenClassID {
	return r.root
}

// Get returns a snapshot of a shape node, or false for an unknown ID.
func (r *ShapeRegistry) Get(id HiddenClassID) (HiddenClass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hc, ok := r.shapes[id]
	if !ok {
		return HiddenClass{}, false
	}
	return hc.snapshot(), true
}

// AddProperty transitions from current to the shape that additionally owns
// symbol, returning the target shape and the property's storage offset.
//
// The transition is memoized: repeating the same (shape, symbol) addition
// returns the identical target ID and offset. Adding to a sealed shape is
// a silent no-op that reports the current shape and its total property
// count; sealing degrades growth, never correctness.
func (r *ShapeRegistry) AddProperty(current HiddenClassID, symbol SymbolID) (HiddenClassID, int) {
	// Fast path: memoized transition under the read lock.
	r.mu.RLock()
	cur, ok := r.shapes[current]
	if !ok {
		r.mu.RUnlock()
		return current, 0
	}
	if next, ok := cur.Transitions[symbol]; ok {
		offset := r.shapes[next].PropertyOffsets[symbol]
		r.mu.RUnlock()
		return next, offset
	}
	if offset, ok := r.lookupOffset(cur, symbol); ok {
		// Property already owned somewhere on the chain: no transition.
		r.mu.RUnlock()
		return current, offset
	}
	sealed := cur.Sealed
	count := cur.PropertyCount
	r.mu.RUnlock()

	if sealed {
		return current, count
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another thread may have raced us.
	cur = r.shapes[current]
	if next, ok := cur.Transitions[symbol]; ok {
		return next, r.shapes[next].PropertyOffsets[symbol]
	}

	offset := cur.PropertyCount
	next := &HiddenClass{
		ID:              Caches().nextHiddenClassID(),
		ParentID:        current,
		HasParent:       true,
		PropertyOffsets: map[SymbolID]int{symbol: offset},
		PropertyCount:   cur.PropertyCount + 1,
		Transitions:     make(map[SymbolID]HiddenClassID),
	}
	r.shapes[next.ID] = next
	cur.Transitions[symbol] = next.ID
	return next.ID, offset
}

// Seal marks a shape as non-extendable.
func (r *ShapeRegistry) Seal(id HiddenClassID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hc, ok := r.shapes[id]; ok {
		hc.Sealed = true
	}
}

// HasProperty reports whether the shape or any ancestor owns symbol.
func (r *ShapeRegistry) HasProperty(id HiddenClassID, symbol SymbolID) bool {
	_, ok := r.PropertyOffset(id, symbol)
	return ok
}

// PropertyOffset resolves a property's storage offset, walking the parent
// chain from the local node outward.
func (r *ShapeRegistry) PropertyOffset(id HiddenClassID, symbol SymbolID) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hc, ok := r.shapes[id]
	if !ok {
		return 0, false
	}
	return r.lookupOffset(hc, symbol)
}

// lookupOffset walks the parent chain. Caller holds at least the read lock.
func (r *ShapeRegistry) lookupOffset(hc *HiddenClass, symbol SymbolID) (int, bool) {
	for {
		if off, ok := hc.PropertyOffsets[symbol]; ok {
			return off, true
		}
		if !hc.HasParent {
			return 0, false
		}
		hc = r.shapes[hc.ParentID]
	}
}

// TotalPropertyCount returns the number of properties owned by the shape
// and all its ancestors.
func (r *ShapeRegistry) TotalPropertyCount(id HiddenClassID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if hc, ok := r.shapes[id]; ok {
		return hc.PropertyCount
	}
	return 0
}

// ---------------------------------------------------------------------------
// Process-wide registry
// ---------------------------------------------------------------------------

var (
	shapesOnce    sync.Once
	defaultShapes *ShapeRegistry
)

// Shapes returns the process-wide shape registry.
func Shapes() *ShapeRegistry {
	shapesOnce.Do(func() {
		defaultShapes = NewShapeRegistry()
	})
	return defaultShapes
}

// The process-wide root must hold RootShapeID, so its registry claims the
// first allocation before any other registry can.
func init() {
	Shapes()
}

// ---------------------------------------------------------------------------
// HiddenClassObject: shape-backed field storage
// ---------------------------------------------------------------------------

// HiddenClassObject is an object's concrete storage: the current shape ID
// plus a flat field slice addressed by shape offsets. A fresh object
// starts with the root shape and empty storage; each Set either writes in
// place or performs a shape transition and grows the storage.
type HiddenClassObject struct {
	HiddenClassID HiddenClassID
	Fields        []Value
}

// NewHiddenClassObject creates an empty object with the root shape.
func NewHiddenClassObject() *HiddenClassObject {
	return &HiddenClassObject{HiddenClassID: Shapes().Root()}
}

// Get reads a property, resolving the offset through the shape chain.
func (o *HiddenClassObject) Get(symbol SymbolID) (Value, bool) {
	offset, ok := Shapes().PropertyOffset(o.HiddenClassID, symbol)
	if !ok || offset >= len(o.Fields) {
		return Null, false
	}
	return o.Fields[offset], true
}

// GetAt reads the field at a known offset, as resolved by an inline cache.
func (o *HiddenClassObject) GetAt(offset int) (Value, bool) {
	if offset < 0 || offset >= len(o.Fields) {
		return Null, false
	}
	return o.Fields[offset], true
}

// SetAt writes the field at a known offset, as resolved by an inline
// cache. Returns false when the offset is not valid for this object.
func (o *HiddenClassObject) SetAt(offset int, v Value) bool {
	if offset < 0 || offset >= len(o.Fields) {
		return false
	}
	o.Fields[offset] = v
	return true
}

// Set writes a property, transitioning the shape when the property is new.
func (o *HiddenClassObject) Set(symbol SymbolID, v Value) int {
	if offset, ok := Shapes().PropertyOffset(o.HiddenClassID, symbol); ok {
		if offset < len(o.Fields) {
			o.Fields[offset] = v
		}
		return offset
	}
	next, offset := Shapes().AddProperty(o.HiddenClassID, symbol)
	if next == o.HiddenClassID {
		// Sealed shape refused the growth; the write is dropped.
		return offset
	}
	o.HiddenClassID = next
	for len(o.Fields) <= offset {
		o.Fields = append(o.Fields, Null)
	}
	o.Fields[offset] = v
	return offset
}
