package vm

// ---------------------------------------------------------------------------
// Iteration protocol
// ---------------------------------------------------------------------------

type iterKind uint8

const (
	iterArray iterKind = iota
	iterRange
	iterHashKeys
	iterString
)

// Iterator is the value produced by GetIter and advanced by ForIter.
// Arrays yield elements, ranges yield integers, hashes yield their keys in
// insertion order, strings yield runes as 1-character strings.
type Iterator struct {
	kind  iterKind
	array *ArrayObject
	rng   *RangeObject
	keys  []string
	runes []rune
	pos   int
}

// NewIterator obtains an iterator for a value, or false for a value that
// is not iterable.
func NewIterator(v Value) (*Iterator, bool) {
	switch v.Kind {
	case KindArray:
		return &Iterator{kind: iterArray, array: v.Array()}, true
	case KindRange:
		return &Iterator{kind: iterRange, rng: v.Range()}, true
	case KindHash:
		keys := append([]string(nil), v.Hash().Keys...)
		return &Iterator{kind: iterHashKeys, keys: keys}, true
	case KindString:
		return &Iterator{kind: iterString, runes: []rune(v.Str)}, true
	case KindIterator:
		return v.Iterator(), true
	}
	return nil, false
}

// Next advances the iterator, returning false when exhausted.
func (it *Iterator) Next() (Value, bool) {
	switch it.kind {
	case iterArray:
		if it.pos >= len(it.array.Elements) {
			return Null, false
		}
		v := it.array.Elements[it.pos]
		it.pos++
		return v, true
	case iterRange:
		cur := it.rng.Start + int64(it.pos)
		if cur >= it.rng.End {
			return Null, false
		}
		it.pos++
		return IntValue(cur), true
	case iterHashKeys:
		if it.pos >= len(it.keys) {
			return Null, false
		}
		k := it.keys[it.pos]
		it.pos++
		return StringValue(k), true
	case iterString:
		if it.pos >= len(it.runes) {
			return Null, false
		}
		r := it.runes[it.pos]
		it.pos++
		return StringValue(string(r)), true
	}
	return Null, false
}
