package vm

// ---------------------------------------------------------------------------
// Property and method access
// ---------------------------------------------------------------------------

// getProperty dispatches GetProperty by the receiver's runtime variant.
// site keys the inline caches; cache hits are authoritative and skip the
// general lookup path entirely. Misses resolve through the general path
// and populate the cache unless the site has gone megamorphic.
func (m *VM) getProperty(receiver Value, name string, site CallSite) (Value, *RuntimeError) {
	switch receiver.Kind {
	case KindInstance:
		return m.getInstanceProperty(receiver, name, site)

	case KindClass:
		return m.getClassProperty(receiver, name)

	case KindHash:
		if v, ok := receiver.Hash().Get(name); ok {
			return v, nil
		}
		// Not a key: produce a hash-method dispatch value so .keys,
		// .length and friends work uniformly.
		return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name}), nil

	case KindArray, KindString, KindRange:
		// No stored fields; a later Call resolves the operation by name.
		return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name}), nil
	}

	return Null, noSuchProperty(m.currentSpan(), receiver.TypeName(), name)
}

func (m *VM) getInstanceProperty(receiver Value, name string, site CallSite) (Value, *RuntimeError) {
	inst := receiver.Instance()
	symbol := GetSymbol(name)
	shape := inst.Fields.HiddenClassID
	caches := Caches()

	// Field fast path.
	if offset, hit := caches.LookupProperty(site, symbol, shape); hit {
		if v, ok := inst.Fields.GetAt(offset); ok {
			return v, nil
		}
	}
	// Method fast path.
	if method, hit := caches.LookupMethod(site, symbol, shape); hit {
		return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name, Method: method}), nil
	}

	// General path: field, then method table, then native method table.
	if offset, ok := Shapes().PropertyOffset(shape, symbol); ok {
		caches.InsertProperty(site, symbol, shape, offset)
		if v, ok := inst.Fields.GetAt(offset); ok {
			return v, nil
		}
		return Null, nil
	}
	if method, ok := inst.Class.ResolveMethod(name); ok {
		caches.InsertMethod(site, symbol, shape, method)
		return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name, Method: method}), nil
	}
	if native, ok := inst.Class.ResolveNativeMethod(name); ok {
		return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name, Native: native}), nil
	}
	return Null, noSuchProperty(m.currentSpan(), inst.Class.Name, name)
}

// getClassProperty resolves static access: static field, then static
// method, then native static method, then nested class.
func (m *VM) getClassProperty(receiver Value, name string) (Value, *RuntimeError) {
	cls := receiver.Class()
	for c := cls; c != nil; c = c.Super {
		if v, ok := c.StaticFields.Get(name); ok {
			return v, nil
		}
		if sm, ok := c.StaticMethods[name]; ok {
			return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name, Method: sm}), nil
		}
		if ns, ok := c.NativeStatics[name]; ok {
			return BoundMethodValue(&BoundMethod{Receiver: receiver, Name: name, Native: ns}), nil
		}
		if nested, ok := c.NestedClasses[name]; ok {
			return ClassValue(nested), nil
		}
	}
	return Null, noSuchProperty(m.currentSpan(), cls.Name, name)
}

// setProperty dispatches SetProperty by the receiver's runtime variant.
func (m *VM) setProperty(receiver Value, name string, v Value, site CallSite) *RuntimeError {
	switch receiver.Kind {
	case KindInstance:
		inst := receiver.Instance()
		symbol := GetSymbol(name)
		shape := inst.Fields.HiddenClassID
		caches := Caches()

		if offset, hit := caches.LookupProperty(site, symbol, shape); hit {
			if inst.Fields.SetAt(offset, v) {
				return nil
			}
		}
		offset := inst.Fields.Set(symbol, v)
		// Cache against the shape the object has after the write, so the
		// next access along this shape history hits. A sealed shape drops
		// the write and yields no cacheable offset.
		if offset < len(inst.Fields.Fields) {
			caches.InsertProperty(site, symbol, inst.Fields.HiddenClassID, offset)
		}
		return nil

	case KindClass:
		// Classes are immutable once published; static fields are the one
		// shared mutable cell.
		receiver.Class().StaticFields.Set(name, v)
		return nil

	case KindHash:
		receiver.Hash().Set(name, v)
		return nil
	}

	return typeError(m.currentSpan(), "cannot set property '%s' on %s", name, receiver.TypeName())
}

// getSuperMethod resolves a method on the superclass of the currently
// executing method's class, binding the frame's `this`.
func (m *VM) getSuperMethod(name string) (Value, *RuntimeError) {
	frame := &m.frames[m.fp-1]
	cls := frame.closure.Class
	if cls == nil || cls.Super == nil {
		return Null, noSuchProperty(m.currentSpan(), "Super", name)
	}
	if method, ok := cls.Super.ResolveMethod(name); ok {
		return BoundMethodValue(&BoundMethod{Receiver: frame.this, Name: name, Method: method}), nil
	}
	if native, ok := cls.Super.ResolveNativeMethod(name); ok {
		return BoundMethodValue(&BoundMethod{Receiver: frame.this, Name: name, Native: native}), nil
	}
	return Null, noSuchProperty(m.currentSpan(), cls.Super.Name, name)
}
