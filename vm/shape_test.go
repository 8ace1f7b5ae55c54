package vm

import (
	"sync"
	"testing"
)

func TestShapes_RootIsCanonical(t *testing.T) {
	if got := Shapes().Root(); got != RootShapeID {
		t.Errorf("Shapes().Root() = %d, want %d", got, RootShapeID)
	}
	// Locally built registries draw later IDs; only the process-wide
	// root may claim the canonical one.
	if r := NewShapeRegistry(); r.Root() == RootShapeID {
		t.Errorf("NewShapeRegistry().Root() = %d, collides with the canonical root", r.Root())
	}
}

func TestShapeRegistry_TransitionMemoized(t *testing.T) {
	r := NewShapeRegistry()
	sym := GetSymbol("shape_memo_a")

	s1, off1 := r.AddProperty(r.Root(), sym)
	s2, off2 := r.AddProperty(r.Root(), sym)

	if s1 != s2 {
		t.Errorf("repeated transition produced shapes %d and %d, want identical", s1, s2)
	}
	if off1 != off2 || off1 != 0 {
		t.Errorf("offsets = %d, %d, want 0, 0", off1, off2)
	}
}

func TestShapeRegistry_OffsetsAreDeclarationOrder(t *testing.T) {
	r := NewShapeRegistry()
	names := []string{"shape_ord_a", "shape_ord_b", "shape_ord_c"}

	shape := r.Root()
	for i, name := range names {
		var off int
		shape, off = r.AddProperty(shape, GetSymbol(name))
		if off != i {
			t.Errorf("property %q assigned offset %d, want %d", name, off, i)
		}
	}
	if n := r.TotalPropertyCount(shape); n != len(names) {
		t.Errorf("TotalPropertyCount = %d, want %d", n, len(names))
	}

	// Offsets resolve through the parent chain from the final shape.
	for i, name := range names {
		off, ok := r.PropertyOffset(shape, GetSymbol(name))
		if !ok || off != i {
			t.Errorf("PropertyOffset(%q) = %d, %v, want %d, true", name, off, ok, i)
		}
	}
}

func TestShapeRegistry_DivergentOrdersDiverge(t *testing.T) {
	r := NewShapeRegistry()
	a := GetSymbol("shape_div_a")
	b := GetSymbol("shape_div_b")

	ab, _ := r.AddProperty(r.Root(), a)
	ab, _ = r.AddProperty(ab, b)

	ba, _ := r.AddProperty(r.Root(), b)
	ba, _ = r.AddProperty(ba, a)

	if ab == ba {
		t.Error("different insertion orders converged to the same shape")
	}
}

func TestShapeRegistry_ExistingPropertyDoesNotTransition(t *testing.T) {
	r := NewShapeRegistry()
	a := GetSymbol("shape_exist_a")
	b := GetSymbol("shape_exist_b")

	s, _ := r.AddProperty(r.Root(), a)
	s, _ = r.AddProperty(s, b)

	// Re-adding a property owned earlier on the chain keeps the shape.
	got, off := r.AddProperty(s, a)
	if got != s {
		t.Errorf("re-adding an owned property transitioned %d -> %d", s, got)
	}
	if off != 0 {
		t.Errorf("offset = %d, want 0", off)
	}
}

func TestShapeRegistry_SealedShapeRefusesGrowth(t *testing.T) {
	r := NewShapeRegistry()
	s, _ := r.AddProperty(r.Root(), GetSymbol("shape_seal_a"))
	r.Seal(s)

	got, count := r.AddProperty(s, GetSymbol("shape_seal_b"))
	if got != s {
		t.Errorf("sealed shape transitioned %d -> %d, want no-op", s, got)
	}
	if count != 1 {
		t.Errorf("sealed no-op reported count %d, want 1", count)
	}
	if r.HasProperty(s, GetSymbol("shape_seal_b")) {
		t.Error("sealed shape gained a property")
	}
}

func TestShapeRegistry_ConcurrentSameTransition(t *testing.T) {
	r := NewShapeRegistry()
	sym := GetSymbol("shape_race_a")

	const workers = 16
	results := make([]HiddenClassID, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w], _ = r.AddProperty(r.Root(), sym)
		}(w)
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		if results[w] != results[0] {
			t.Fatalf("racing transitions produced shapes %d and %d", results[0], results[w])
		}
	}
}

func TestHiddenClassObject_SetGetRoundTrip(t *testing.T) {
	obj := NewHiddenClassObject()
	fields := map[string]Value{
		"obj_rt_x": IntValue(1),
		"obj_rt_y": StringValue("two"),
		"obj_rt_z": FloatValue(3.5),
	}
	for name, v := range fields {
		obj.Set(GetSymbol(name), v)
	}
	for name, want := range fields {
		got, ok := obj.Get(GetSymbol(name))
		if !ok {
			t.Fatalf("Get(%q) missed", name)
		}
		if !got.Equal(want) {
			t.Errorf("Get(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestHiddenClassObject_OverwriteKeepsShape(t *testing.T) {
	obj := NewHiddenClassObject()
	sym := GetSymbol("obj_ow_a")

	obj.Set(sym, IntValue(1))
	before := obj.HiddenClassID
	obj.Set(sym, IntValue(2))

	if obj.HiddenClassID != before {
		t.Errorf("overwrite transitioned shape %d -> %d", before, obj.HiddenClassID)
	}
	if v, _ := obj.Get(sym); v.Int != 2 {
		t.Errorf("value after overwrite = %v, want 2", v)
	}
}

func TestHiddenClassObject_SameHistorySharesShape(t *testing.T) {
	names := []string{"obj_share_a", "obj_share_b"}

	o1 := NewHiddenClassObject()
	o2 := NewHiddenClassObject()
	for _, name := range names {
		o1.Set(GetSymbol(name), Null)
		o2.Set(GetSymbol(name), Null)
	}

	if o1.HiddenClassID != o2.HiddenClassID {
		t.Errorf("identical histories yielded shapes %d and %d", o1.HiddenClassID, o2.HiddenClassID)
	}
}
