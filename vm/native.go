package vm

import (
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Native methods for built-in receivers
// ---------------------------------------------------------------------------

// Property access on arrays, strings and hashes produces a bound method
// value carrying only the receiver and the name; the actual operation is
// resolved here when the call happens.

func resolveNative(receiver Value, name string) (NativeMethod, bool) {
	switch receiver.Kind {
	case KindArray:
		m, ok := arrayMethods[name]
		return m, ok
	case KindString:
		m, ok := stringMethods[name]
		return m, ok
	case KindHash:
		m, ok := hashMethods[name]
		return m, ok
	case KindRange:
		m, ok := rangeMethods[name]
		return m, ok
	}
	return nil, false
}

func arityError(machine *VM, expected, got int) *RuntimeError {
	return &RuntimeError{Kind: ErrWrongArity, Span: machine.currentSpan(), Expected: expected, Got: got}
}

var arrayMethods = map[string]NativeMethod{
	"length": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 0 {
			return Null, arityError(machine, 0, len(args))
		}
		return IntValue(int64(len(recv.Array().Elements))), nil
	},
	"push": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		arr := recv.Array()
		arr.Elements = append(arr.Elements, args...)
		return recv, nil
	},
	"pop": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		arr := recv.Array()
		if len(arr.Elements) == 0 {
			return Null, &RuntimeError{Kind: ErrIndexOutOfBounds, Span: machine.currentSpan(), Index: -1, Length: 0}
		}
		v := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return v, nil
	},
	"first": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		arr := recv.Array()
		if len(arr.Elements) == 0 {
			return Null, nil
		}
		return arr.Elements[0], nil
	},
	"last": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		arr := recv.Array()
		if len(arr.Elements) == 0 {
			return Null, nil
		}
		return arr.Elements[len(arr.Elements)-1], nil
	},
	"contains": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 {
			return Null, arityError(machine, 1, len(args))
		}
		for _, el := range recv.Array().Elements {
			if el.Equal(args[0]) {
				return True, nil
			}
		}
		return False, nil
	},
	"join": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		sep := ""
		if len(args) > 0 {
			sep = args[0].String()
		}
		parts := make([]string, len(recv.Array().Elements))
		for i, el := range recv.Array().Elements {
			parts[i] = el.String()
		}
		return StringValue(strings.Join(parts, sep)), nil
	},
	"reverse": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		src := recv.Array().Elements
		out := make([]Value, len(src))
		for i, el := range src {
			out[len(src)-1-i] = el
		}
		return ArrayValue(NewArray(out)), nil
	},
	"sort": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		out := append([]Value(nil), recv.Array().Elements...)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.IsNumber() && b.IsNumber() {
				return a.AsFloat() < b.AsFloat()
			}
			return a.String() < b.String()
		})
		return ArrayValue(NewArray(out)), nil
	},
}

var stringMethods = map[string]NativeMethod{
	"length": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return IntValue(int64(len([]rune(recv.Str)))), nil
	},
	"upper": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return StringValue(strings.ToUpper(recv.Str)), nil
	},
	"lower": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return StringValue(strings.ToLower(recv.Str)), nil
	},
	"trim": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return StringValue(strings.TrimSpace(recv.Str)), nil
	},
	"split": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 || args[0].Kind != KindString {
			return Null, typeError(machine.currentSpan(), "split expects a string separator")
		}
		parts := strings.Split(recv.Str, args[0].Str)
		elements := make([]Value, len(parts))
		for i, p := range parts {
			elements[i] = StringValue(p)
		}
		return ArrayValue(NewArray(elements)), nil
	},
	"contains": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 || args[0].Kind != KindString {
			return Null, typeError(machine.currentSpan(), "contains expects a string argument")
		}
		return BoolValue(strings.Contains(recv.Str, args[0].Str)), nil
	},
	"startsWith": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 || args[0].Kind != KindString {
			return Null, typeError(machine.currentSpan(), "startsWith expects a string argument")
		}
		return BoolValue(strings.HasPrefix(recv.Str, args[0].Str)), nil
	},
	"endsWith": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 || args[0].Kind != KindString {
			return Null, typeError(machine.currentSpan(), "endsWith expects a string argument")
		}
		return BoolValue(strings.HasSuffix(recv.Str, args[0].Str)), nil
	},
	"replace": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 2 || args[0].Kind != KindString || args[1].Kind != KindString {
			return Null, typeError(machine.currentSpan(), "replace expects two string arguments")
		}
		return StringValue(strings.ReplaceAll(recv.Str, args[0].Str, args[1].Str)), nil
	},
}

var hashMethods = map[string]NativeMethod{
	"length": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return IntValue(int64(len(recv.Hash().Keys))), nil
	},
	"keys": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		h := recv.Hash()
		elements := make([]Value, len(h.Keys))
		for i, k := range h.Keys {
			elements[i] = StringValue(k)
		}
		return ArrayValue(NewArray(elements)), nil
	},
	"values": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		h := recv.Hash()
		elements := make([]Value, len(h.Keys))
		for i, k := range h.Keys {
			elements[i] = h.Entries[k]
		}
		return ArrayValue(NewArray(elements)), nil
	},
	"has": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 {
			return Null, arityError(machine, 1, len(args))
		}
		key, ok := HashKey(args[0])
		if !ok {
			return Null, typeError(machine.currentSpan(), "%s cannot be used as a hash key", args[0].TypeName())
		}
		_, present := recv.Hash().Get(key)
		return BoolValue(present), nil
	},
	"remove": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		if len(args) != 1 {
			return Null, arityError(machine, 1, len(args))
		}
		key, ok := HashKey(args[0])
		if !ok {
			return Null, typeError(machine.currentSpan(), "%s cannot be used as a hash key", args[0].TypeName())
		}
		h := recv.Hash()
		if _, present := h.Entries[key]; !present {
			return False, nil
		}
		delete(h.Entries, key)
		for i, k := range h.Keys {
			if k == key {
				h.Keys = append(h.Keys[:i], h.Keys[i+1:]...)
				break
			}
		}
		return True, nil
	},
}

var rangeMethods = map[string]NativeMethod{
	"length": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		r := recv.Range()
		if r.End <= r.Start {
			return IntValue(0), nil
		}
		return IntValue(r.End - r.Start), nil
	},
	"start": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return IntValue(recv.Range().Start), nil
	},
	"end": func(machine *VM, recv Value, args []Value) (Value, *RuntimeError) {
		return IntValue(recv.Range().End), nil
	},
}
