package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Value: the runtime value model
// ---------------------------------------------------------------------------

// ValueKind tags a Value. The set of variants is closed: every operation
// that is polymorphic over values (property access, indexing, iteration)
// switches exhaustively over this tag.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindArray
	KindHash
	KindRange
	KindClosure
	KindClass
	KindClassBuilder
	KindInstance
	KindBoundMethod
	KindIterator
	kindSpread // internal marker produced by the Spread opcode
)

var kindNames = [...]string{
	KindNull:         "Null",
	KindBool:         "Bool",
	KindInt:          "Int",
	KindFloat:        "Float",
	KindDecimal:      "Decimal",
	KindString:       "String",
	KindArray:        "Array",
	KindHash:         "Hash",
	KindRange:        "Range",
	KindClosure:      "Function",
	KindClass:        "Class",
	KindClassBuilder: "Class",
	KindInstance:     "Instance",
	KindBoundMethod:  "BoundMethod",
	KindIterator:     "Iterator",
	kindSpread:       "Spread",
}

// Value is a tagged union. Scalar payloads live inline; everything that is
// shared by reference (arrays, hashes, instances, classes, closures) lives
// behind Obj. Two values alias the same object exactly when their Obj
// pointers are equal. Values are only ever touched from one OS thread at a
// time, so no per-value locking is paid.
type Value struct {
	Kind  ValueKind
	Int   int64   // KindInt; 0/1 for KindBool
	Float float64 // KindFloat
	Str   string  // KindString; decimal digits for KindDecimal
	Obj   any     // pointer payload for reference kinds
}

// Null, True and False are the canonical singleton values.
var (
	Null  = Value{Kind: KindNull}
	True  = Value{Kind: KindBool, Int: 1}
	False = Value{Kind: KindBool, Int: 0}
)

func IntValue(n int64) Value       { return Value{Kind: KindInt, Int: n} }
func FloatValue(f float64) Value   { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func DecimalValue(s string) Value  { return Value{Kind: KindDecimal, Str: s} }
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func ArrayValue(a *ArrayObject) Value       { return Value{Kind: KindArray, Obj: a} }
func HashValue(h *HashObject) Value         { return Value{Kind: KindHash, Obj: h} }
func RangeValue(r *RangeObject) Value       { return Value{Kind: KindRange, Obj: r} }
func ClosureValue(c *Closure) Value         { return Value{Kind: KindClosure, Obj: c} }
func ClassValue(c *Class) Value             { return Value{Kind: KindClass, Obj: c} }
func BuilderValue(b *ClassBuilder) Value    { return Value{Kind: KindClassBuilder, Obj: b} }
func InstanceValue(i *Instance) Value       { return Value{Kind: KindInstance, Obj: i} }
func BoundMethodValue(b *BoundMethod) Value { return Value{Kind: KindBoundMethod, Obj: b} }
func IteratorValue(it *Iterator) Value      { return Value{Kind: KindIterator, Obj: it} }

func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) Bool() bool   { return v.Int != 0 }

func (v Value) Array() *ArrayObject     { return v.Obj.(*ArrayObject) }
func (v Value) Hash() *HashObject       { return v.Obj.(*HashObject) }
func (v Value) Range() *RangeObject     { return v.Obj.(*RangeObject) }
func (v Value) Closure() *Closure       { return v.Obj.(*Closure) }
func (v Value) Class() *Class           { return v.Obj.(*Class) }
func (v Value) Builder() *ClassBuilder  { return v.Obj.(*ClassBuilder) }
func (v Value) Instance() *Instance     { return v.Obj.(*Instance) }
func (v Value) Bound() *BoundMethod     { return v.Obj.(*BoundMethod) }
func (v Value) Iterator() *Iterator     { return v.Obj.(*Iterator) }

// TypeName returns the runtime type name used in error messages.
func (v Value) TypeName() string {
	if int(v.Kind) < len(kindNames) {
		return kindNames[v.Kind]
	}
	return "Unknown"
}

// Truthy reports a value's boolean interpretation: null and false are
// falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool()
	default:
		return true
	}
}

// IsNumber reports whether the value participates in numeric arithmetic.
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindDecimal
}

// AsFloat converts a numeric value to float64. Decimals parse their digit
// string; the compiler guarantees the string is well formed.
func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	case KindDecimal:
		f, _ := strconv.ParseFloat(v.Str, 64)
		return f
	}
	return 0
}

// Equal implements language-level equality: numbers compare by numeric
// value, strings by content, reference kinds by identity.
func (v Value) Equal(other Value) bool {
	if v.IsNumber() && other.IsNumber() {
		if v.Kind == KindInt && other.Kind == KindInt {
			return v.Int == other.Int
		}
		return v.AsFloat() == other.AsFloat()
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Int == other.Int
	case KindString, KindDecimal:
		return v.Str == other.Str
	case KindRange:
		a, b := v.Range(), other.Range()
		return a.Start == b.Start && a.End == b.End
	default:
		return v.Obj == other.Obj
	}
}

// String renders the value's default textual form.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindDecimal:
		return v.Str
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array().Elements))
		for i, el := range v.Array().Elements {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindHash:
		h := v.Hash()
		parts := make([]string, 0, len(h.Keys))
		for _, k := range h.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, h.Entries[k].String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindRange:
		r := v.Range()
		return fmt.Sprintf("%d..%d", r.Start, r.End)
	case KindClosure:
		c := v.Closure()
		if c.Proto.Name == "" {
			return "<fn>"
		}
		return fmt.Sprintf("<fn %s>", c.Proto.Name)
	case KindClass:
		return fmt.Sprintf("<class %s>", v.Class().Name)
	case KindClassBuilder:
		return fmt.Sprintf("<class %s>", v.Builder().Name)
	case KindInstance:
		return fmt.Sprintf("<%s instance>", v.Instance().Class.Name)
	case KindBoundMethod:
		return fmt.Sprintf("<method %s>", v.Bound().Name)
	case KindIterator:
		return "<iterator>"
	}
	return "<unknown>"
}

// ---------------------------------------------------------------------------
// Reference object payloads
// ---------------------------------------------------------------------------

// ArrayObject is a mutable, growable sequence shared by reference.
type ArrayObject struct {
	Elements []Value
}

func NewArray(elements []Value) *ArrayObject {
	return &ArrayObject{Elements: elements}
}

// HashObject is a string-keyed map that preserves insertion order.
type HashObject struct {
	Entries map[string]Value
	Keys    []string
}

func NewHash() *HashObject {
	return &HashObject{Entries: make(map[string]Value)}
}

// Set inserts or overwrites a key, preserving first-insertion order.
func (h *HashObject) Set(key string, v Value) {
	if _, exists := h.Entries[key]; !exists {
		h.Keys = append(h.Keys, key)
	}
	h.Entries[key] = v
}

// Get returns the value for key and whether it is present.
func (h *HashObject) Get(key string) (Value, bool) {
	v, ok := h.Entries[key]
	return v, ok
}

// HashKey converts a value to a hash key. Only scalar values may key a
// hash; anything else is a type error at the call site.
func HashKey(v Value) (string, bool) {
	switch v.Kind {
	case KindString, KindInt, KindBool, KindDecimal:
		return v.String(), true
	}
	return "", false
}

// RangeObject is an integer range with an exclusive end.
type RangeObject struct {
	Start int64
	End   int64
}
