package vm

import "testing"

func TestValue_EqualNumericCrossKind(t *testing.T) {
	if !IntValue(3).Equal(FloatValue(3.0)) {
		t.Error("3 != 3.0")
	}
	if IntValue(3).Equal(FloatValue(3.5)) {
		t.Error("3 == 3.5")
	}
}

func TestValue_EqualStrings(t *testing.T) {
	if !StringValue("a").Equal(StringValue("a")) {
		t.Error("equal strings compared unequal")
	}
	if StringValue("a").Equal(StringValue("b")) {
		t.Error("distinct strings compared equal")
	}
}

func TestValue_EqualReferenceIdentity(t *testing.T) {
	a := NewArray([]Value{IntValue(1)})
	b := NewArray([]Value{IntValue(1)})
	if ArrayValue(a).Equal(ArrayValue(b)) {
		t.Error("distinct arrays compared equal")
	}
	if !ArrayValue(a).Equal(ArrayValue(a)) {
		t.Error("an array compared unequal to itself")
	}
}

func TestValue_Truthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{False, false},
		{True, true},
		{IntValue(0), true},
		{StringValue(""), true},
	}
	for _, tc := range cases {
		if got := tc.v.Truthy(); got != tc.want {
			t.Errorf("Truthy(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestValue_String(t *testing.T) {
	if s := IntValue(42).String(); s != "42" {
		t.Errorf("int string = %q, want 42", s)
	}
	if s := Null.String(); s != "null" {
		t.Errorf("null string = %q, want null", s)
	}
	if s := True.String(); s != "true" {
		t.Errorf("bool string = %q, want true", s)
	}
}

func TestHashKey_RejectsAggregates(t *testing.T) {
	if _, ok := HashKey(ArrayValue(NewArray(nil))); ok {
		t.Error("array accepted as a hash key")
	}
	if key, ok := HashKey(IntValue(7)); !ok || key == "" {
		t.Errorf("int key = %q, %v, want nonempty, true", key, ok)
	}
}

func TestHashObject_PreservesInsertionOrder(t *testing.T) {
	h := NewHash()
	h.Set("b", IntValue(1))
	h.Set("a", IntValue(2))
	h.Set("c", IntValue(3))
	h.Set("a", IntValue(4)) // update must not reorder

	want := []string{"b", "a", "c"}
	if len(h.Keys) != len(want) {
		t.Fatalf("key count = %d, want %d", len(h.Keys), len(want))
	}
	for i, k := range want {
		if h.Keys[i] != k {
			t.Errorf("key %d = %q, want %q", i, h.Keys[i], k)
		}
	}
}

func TestIterator_Array(t *testing.T) {
	it, ok := NewIterator(ArrayValue(NewArray([]Value{IntValue(1), IntValue(2)})))
	if !ok {
		t.Fatal("array is not iterable")
	}
	var got []int64
	for {
		v, more := it.Next()
		if !more {
			break
		}
		got = append(got, v.Int)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("iterated %v, want [1 2]", got)
	}
}

func TestIterator_RangeExclusiveEnd(t *testing.T) {
	it, ok := NewIterator(RangeValue(&RangeObject{Start: 2, End: 5}))
	if !ok {
		t.Fatal("range is not iterable")
	}
	var got []int64
	for {
		v, more := it.Next()
		if !more {
			break
		}
		got = append(got, v.Int)
	}
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("iterated %v, want [2 3 4]", got)
	}
}

func TestIterator_StringRunes(t *testing.T) {
	it, ok := NewIterator(StringValue("héllo"[:3])) // "hé"
	if !ok {
		t.Fatal("string is not iterable")
	}
	first, _ := it.Next()
	second, _ := it.Next()
	if first.Str != "h" || second.Str != "é" {
		t.Errorf("runes = %q, %q, want h, é", first.Str, second.Str)
	}
	if _, more := it.Next(); more {
		t.Error("iterator overran the string")
	}
}

func TestIterator_NonIterable(t *testing.T) {
	if _, ok := NewIterator(IntValue(3)); ok {
		t.Error("int reported iterable")
	}
}
