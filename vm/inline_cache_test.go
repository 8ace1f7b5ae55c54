package vm

import (
	"sync"
	"testing"
)

func TestPropertyInlineCache_StateProgression(t *testing.T) {
	var c PropertyInlineCache
	sym := SymbolID(1)

	if c.IsMonomorphic() || c.IsMegamorphic() {
		t.Error("empty cache reported a populated state")
	}

	c.Insert(sym, 10, 0)
	if !c.IsMonomorphic() {
		t.Error("one entry, not monomorphic")
	}

	c.Insert(sym, 11, 1)
	if c.IsMonomorphic() || c.IsMegamorphic() {
		t.Error("two entries should be polymorphic")
	}

	c.Insert(sym, 12, 2)
	c.Insert(sym, 13, 3)
	if !c.IsMegamorphic() {
		t.Errorf("four entries, want megamorphic, have %d entries", len(c.Entries))
	}
}

func TestPropertyInlineCache_SaturationRejects(t *testing.T) {
	var c PropertyInlineCache
	sym := SymbolID(1)

	for i := 0; i < inlineCacheCapacity; i++ {
		if !c.Insert(sym, HiddenClassID(10+i), i) {
			t.Fatalf("insert %d rejected before capacity", i)
		}
	}
	if c.Insert(sym, HiddenClassID(99), 9) {
		t.Error("insert beyond capacity accepted")
	}
	if len(c.Entries) != inlineCacheCapacity {
		t.Errorf("entry count = %d, want %d", len(c.Entries), inlineCacheCapacity)
	}

	// Earlier entries still hit after saturation.
	if off, ok := c.Lookup(sym, 10); !ok || off != 0 {
		t.Errorf("Lookup(shape 10) = %d, %v, want 0, true", off, ok)
	}
	if _, ok := c.Lookup(sym, 99); ok {
		t.Error("rejected shape reported a hit")
	}
}

func TestPropertyInlineCache_UpdateInPlace(t *testing.T) {
	var c PropertyInlineCache
	sym := SymbolID(7)

	c.Insert(sym, 20, 0)
	if !c.Insert(sym, 20, 5) {
		t.Error("re-insert for a cached shape rejected")
	}
	if !c.IsMonomorphic() {
		t.Errorf("re-insert grew the cache to %d entries", len(c.Entries))
	}
	if off, _ := c.Lookup(sym, 20); off != 5 {
		t.Errorf("offset after update = %d, want 5", off)
	}
}

func TestMethodInlineCache_Saturation(t *testing.T) {
	var c MethodInlineCache
	sym := SymbolID(3)
	method := &Closure{Proto: &FunctionProto{Name: "m", Chunk: &Chunk{}}}

	for i := 0; i < inlineCacheCapacity; i++ {
		if !c.Insert(sym, HiddenClassID(40+i), method) {
			t.Fatalf("insert %d rejected before capacity", i)
		}
	}
	if c.Insert(sym, HiddenClassID(99), method) {
		t.Error("insert beyond capacity accepted")
	}
	if got, ok := c.Lookup(sym, 41); !ok || got != method {
		t.Error("cached method lookup failed after saturation")
	}
}

func TestCacheRegistry_SiteIsolation(t *testing.T) {
	r := NewCacheRegistry()
	sym := SymbolID(5)

	siteA := MakeCallSite(1, 0)
	siteB := MakeCallSite(1, 8)

	r.InsertProperty(siteA, sym, 30, 2)

	if _, ok := r.LookupProperty(siteB, sym, 30); ok {
		t.Error("site B observed site A's cache entry")
	}
	if off, ok := r.LookupProperty(siteA, sym, 30); !ok || off != 2 {
		t.Errorf("site A lookup = %d, %v, want 2, true", off, ok)
	}
}

func TestCacheRegistry_Stats(t *testing.T) {
	r := NewCacheRegistry()
	sym := SymbolID(9)
	site := MakeCallSite(2, 4)

	r.InsertProperty(site, sym, 50, 0)
	r.LookupProperty(site, sym, 50) // hit
	r.LookupProperty(site, sym, 51) // miss

	s := r.Stats()
	if s.Sites != 1 {
		t.Errorf("Sites = %d, want 1", s.Sites)
	}
	if s.Hits != 1 {
		t.Errorf("Hits = %d, want 1", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
}

func TestMakeCallSite_DistinctChunksAndOffsets(t *testing.T) {
	seen := make(map[CallSite]bool)
	for chunk := uint32(1); chunk <= 3; chunk++ {
		for pos := 0; pos < 3; pos++ {
			site := MakeCallSite(chunk, pos)
			if seen[site] {
				t.Fatalf("call site collision for chunk %d pos %d", chunk, pos)
			}
			seen[site] = true
		}
	}
}

func TestCacheRegistry_ChunkIDsAreUnique(t *testing.T) {
	r := NewCacheRegistry()
	a := r.nextChunkID()
	b := r.nextChunkID()
	if a == b || a == 0 || b == 0 {
		t.Errorf("chunk IDs = %d, %d, want distinct nonzero", a, b)
	}
}

func TestChunk_CacheIDConcurrentAgreement(t *testing.T) {
	chunk := NewChunkBuilder().Build()

	const goroutines = 8
	ids := make([]uint32, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = chunk.CacheID()
		}(i)
	}
	wg.Wait()

	if ids[0] == 0 {
		t.Fatal("CacheID() = 0, want a nonzero namespace")
	}
	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("goroutine %d saw namespace %d, want %d", i, id, ids[0])
		}
	}
}

func TestChunk_SharedAcrossVMs(t *testing.T) {
	// One compiled proto executed on several VMs at once settles on a
	// single call-site namespace for its property accesses.
	init := NewChunkBuilder()
	init.Emit(OpGetThis)
	init.EmitA(OpGetLocal, 1)
	init.EmitA(OpSetProperty, init.AddConstant(strConst("x")))
	init.Emit(OpPop)
	init.Emit(OpNull)
	init.Emit(OpReturn)
	initProto := &FunctionProto{Name: "init", Arity: 1, Chunk: init.Build()}

	b := NewChunkBuilder()
	b.EmitA(OpClass, b.AddConstant(strConst("Point")))
	b.Emit(OpNull)
	b.EmitA(OpField, b.AddConstant(strConst("x")))
	b.EmitA(OpClosure, b.AddConstant(fnConst(initProto)))
	b.EmitA(OpMethod, b.AddConstant(strConst("init")))
	b.EmitA(OpDefineGlobal, b.AddConstant(strConst("Point")))
	b.EmitA(OpGetGlobal, b.AddConstant(strConst("Point")))
	b.Constant(intConst(9))
	b.EmitA(OpNew, 1)
	b.EmitA(OpGetProperty, b.AddConstant(strConst("x")))
	b.Emit(OpReturn)
	proto := script(b.Build())

	const vms = 8
	results := make([]Value, vms)
	errs := make([]*RuntimeError, vms)
	var wg sync.WaitGroup
	for i := 0; i < vms; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = NewVM().Execute(proto)
		}(i)
	}
	wg.Wait()

	for i := 0; i < vms; i++ {
		if errs[i] != nil {
			t.Fatalf("vm %d: Execute failed: %v", i, errs[i])
		}
		if results[i].Kind != KindInt || results[i].Int != 9 {
			t.Errorf("vm %d: result = %v, want 9", i, results[i])
		}
	}
	if proto.Chunk.CacheID() == 0 {
		t.Error("executed chunk has no call-site namespace")
	}
}
