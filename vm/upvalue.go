package vm

// ---------------------------------------------------------------------------
// Closures and upvalues
// ---------------------------------------------------------------------------

// Upvalue is a captured outer-scope variable. While the defining frame is
// live the upvalue is "open": Slot indexes the VM's value stack, so the
// closure observes mutations made before the frame exits. When the frame
// returns (or is unwound) the upvalue is "closed": the value is copied
// into Closed and the stack slot is abandoned.
type Upvalue struct {
	Slot   int // stack slot while open
	Closed Value
	open   bool
	next   *Upvalue // open-upvalue list, sorted by Slot descending
}

// get reads through the upvalue.
func (uv *Upvalue) get(stack []Value) Value {
	if uv.open {
		return stack[uv.Slot]
	}
	return uv.Closed
}

// set writes through the upvalue.
func (uv *Upvalue) set(stack []Value, v Value) {
	if uv.open {
		stack[uv.Slot] = v
		return
	}
	uv.Closed = v
}

// close copies the stack slot into owned storage.
func (uv *Upvalue) close(stack []Value) {
	uv.Closed = stack[uv.Slot]
	uv.open = false
}

// Closure pairs a function prototype with its captured upvalues. Class is
// the defining class for methods, nil for plain functions; GetSuper
// resolves through it.
type Closure struct {
	Proto    *FunctionProto
	Upvalues []*Upvalue
	Class    *Class
}

// NewClosure wraps a prototype with empty upvalue slots.
func NewClosure(proto *FunctionProto) *Closure {
	return &Closure{
		Proto:    proto,
		Upvalues: make([]*Upvalue, len(proto.Upvalues)),
	}
}
