package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: Interned property and variable names
// ---------------------------------------------------------------------------

// SymbolID identifies an interned name. The same string always interns to
// the same ID for the lifetime of the process; IDs are never reused.
type SymbolID uint32

// SymbolTable interns name strings to dense numeric IDs.
//
// Property and variable names are converted to IDs once, so hidden-class
// maps and inline caches can key on small integers instead of strings.
// The table is append-only and safe for concurrent use: lookups take a
// read lock, new names take a write lock for the minimal insert.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]SymbolID // name -> ID
	byID   []string            // ID -> name
}

// NewSymbolTable creates a new empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]SymbolID),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for a name, creating a new one if needed.
func (st *SymbolTable) Intern(name string) SymbolID {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	// Slow path: need to add a new symbol
	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := SymbolID(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a name without interning, or false if the
// name was never interned.
func (st *SymbolTable) Lookup(name string) (SymbolID, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the name for an ID, or false if the ID was never issued.
// It never fabricates a name.
func (st *SymbolTable) Name(id SymbolID) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if int(id) >= len(st.byID) {
		return "", false
	}
	return st.byID[id], true
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

// ---------------------------------------------------------------------------
// Process-wide table
// ---------------------------------------------------------------------------

// The symbol table is one of the three process-wide singletons shared by
// all VM instances (the others are the shape registry and the inline-cache
// registry). It lives for the process lifetime and is never torn down.
var (
	symbolsOnce    sync.Once
	defaultSymbols *SymbolTable
)

// Symbols returns the process-wide symbol table.
func Symbols() *SymbolTable {
	symbolsOnce.Do(func() {
		defaultSymbols = NewSymbolTable()
	})
	return defaultSymbols
}

// GetSymbol interns a name in the process-wide table.
func GetSymbol(name string) SymbolID {
	return Symbols().Intern(name)
}

// SymbolString reverses a process-wide symbol ID to its name.
func SymbolString(id SymbolID) (string, bool) {
	return Symbols().Name(id)
}
