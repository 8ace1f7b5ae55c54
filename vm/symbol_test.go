package vm

import (
	"fmt"
	"sync"
	"testing"
)

func TestSymbolTable_InternIdempotent(t *testing.T) {
	st := NewSymbolTable()
	a := st.Intern("name")
	b := st.Intern("name")
	if a != b {
		t.Errorf("Intern(\"name\") = %d then %d, want identical IDs", a, b)
	}
}

func TestSymbolTable_DistinctNames(t *testing.T) {
	st := NewSymbolTable()
	a := st.Intern("x")
	b := st.Intern("y")
	if a == b {
		t.Errorf("distinct names interned to the same ID %d", a)
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}
}

func TestSymbolTable_Name(t *testing.T) {
	st := NewSymbolTable()
	id := st.Intern("width")

	name, ok := st.Name(id)
	if !ok || name != "width" {
		t.Errorf("Name(%d) = %q, %v, want \"width\", true", id, name, ok)
	}

	if _, ok := st.Name(id + 1000); ok {
		t.Error("Name of an unknown ID reported ok")
	}
}

func TestSymbolTable_Lookup(t *testing.T) {
	st := NewSymbolTable()
	id := st.Intern("height")

	got, ok := st.Lookup("height")
	if !ok || got != id {
		t.Errorf("Lookup(\"height\") = %d, %v, want %d, true", got, ok, id)
	}
	if _, ok := st.Lookup("missing"); ok {
		t.Error("Lookup of an uninterned name reported ok")
	}
}

func TestSymbolTable_ConcurrentIntern(t *testing.T) {
	st := NewSymbolTable()
	const workers = 8
	const names = 100

	var wg sync.WaitGroup
	ids := make([][]SymbolID, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids[w] = make([]SymbolID, names)
			for i := 0; i < names; i++ {
				ids[w][i] = st.Intern(fmt.Sprintf("sym%d", i))
			}
		}(w)
	}
	wg.Wait()

	// Every worker must have observed the same ID for the same name.
	for w := 1; w < workers; w++ {
		for i := 0; i < names; i++ {
			if ids[w][i] != ids[0][i] {
				t.Fatalf("worker %d got ID %d for sym%d, worker 0 got %d", w, ids[w][i], i, ids[0][i])
			}
		}
	}
	if st.Len() != names {
		t.Errorf("Len() = %d, want %d", st.Len(), names)
	}
}
