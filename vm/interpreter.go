package vm

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ---------------------------------------------------------------------------
// CallFrame: execution state for one function invocation
// ---------------------------------------------------------------------------

// CallFrame records one active invocation: the closure being executed, the
// instruction pointer into its chunk, and the base stack slot (the slot
// holding the callee; arguments and locals follow it).
type CallFrame struct {
	closure       *Closure
	ip            int
	base          int
	this          Value
	isConstructor bool
}

// ---------------------------------------------------------------------------
// VM: the bytecode execution engine
// ---------------------------------------------------------------------------

const maxFrames = 1024

// VM executes compiled function prototypes. Each instance owns its value
// stack, frames, globals and handler stack exclusively; the only shared
// state is the three process-wide registries (symbols, shapes, caches),
// which are internally locked. The dispatch loop is single-threaded and
// synchronous: run one VM per worker goroutine for parallelism.
type VM struct {
	stack    []Value
	sp       int
	frames   []CallFrame
	fp       int
	globals  map[string]Value
	handlers []HandlerRecord

	// Open upvalues, sorted by stack slot descending.
	openUpvalues *Upvalue

	stdout io.Writer
}

// NewVM creates a VM with an empty global environment.
func NewVM() *VM {
	return &VM{
		stack:   make([]Value, 256),
		frames:  make([]CallFrame, 0, 64),
		globals: make(map[string]Value),
		stdout:  os.Stdout,
	}
}

// SetStdout redirects Print output.
func (m *VM) SetStdout(w io.Writer) {
	m.stdout = w
}

// DefineGlobal pre-populates the environment, for embedders.
func (m *VM) DefineGlobal(name string, v Value) {
	m.globals[name] = v
}

// Global reads a global, for embedders and tests.
func (m *VM) Global(name string) (Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (m *VM) push(v Value) {
	if m.sp >= len(m.stack) {
		grown := make([]Value, len(m.stack)*2)
		copy(grown, m.stack)
		m.stack = grown
	}
	m.stack[m.sp] = v
	m.sp++
}

func (m *VM) pop() Value {
	m.sp--
	return m.stack[m.sp]
}

func (m *VM) peek(distance int) Value {
	return m.stack[m.sp-1-distance]
}

func (m *VM) popN(n int) []Value {
	out := make([]Value, n)
	m.sp -= n
	copy(out, m.stack[m.sp:m.sp+n])
	return out
}

// currentSpan locates the instruction that just executed, for errors.
func (m *VM) currentSpan() Span {
	if m.fp == 0 {
		return Span{}
	}
	frame := &m.frames[m.fp-1]
	return Span{Line: frame.closure.Proto.Chunk.Line(frame.ip - 1)}
}

// ---------------------------------------------------------------------------
// Upvalue machinery
// ---------------------------------------------------------------------------

// captureUpvalue returns the open upvalue for a stack slot, creating it if
// none exists. The open list is kept sorted by slot descending.
func (m *VM) captureUpvalue(slot int) *Upvalue {
	var prev *Upvalue
	uv := m.openUpvalues
	for uv != nil && uv.Slot > slot {
		prev = uv
		uv = uv.next
	}
	if uv != nil && uv.Slot == slot {
		return uv
	}
	created := &Upvalue{Slot: slot, open: true, next: uv}
	if prev == nil {
		m.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above the given slot.
func (m *VM) closeUpvalues(from int) {
	for m.openUpvalues != nil && m.openUpvalues.Slot >= from {
		uv := m.openUpvalues
		uv.close(m.stack)
		m.openUpvalues = uv.next
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callValue invokes the callee sitting argc slots below the top of stack.
func (m *VM) callValue(callee Value, argc int) *RuntimeError {
	switch callee.Kind {
	case KindClosure:
		return m.callClosure(callee.Closure(), argc, Null, false)

	case KindBoundMethod:
		bound := callee.Bound()
		if bound.Method != nil {
			return m.callClosure(bound.Method, argc, bound.Receiver, false)
		}
		native := bound.Native
		if native == nil {
			resolved, ok := resolveNative(bound.Receiver, bound.Name)
			if !ok {
				return noSuchProperty(m.currentSpan(), bound.Receiver.TypeName(), bound.Name)
			}
			native = resolved
		}
		args := m.popN(argc)
		m.pop() // the bound method itself
		result, err := native(m, bound.Receiver, args)
		if err != nil {
			return err
		}
		m.push(result)
		return nil
	}

	return &RuntimeError{Kind: ErrNotCallable, Span: m.currentSpan(), ValueType: callee.TypeName()}
}

// callClosure pushes a frame for a compiled function. The callee slot
// becomes the frame base; arguments already occupy the following slots.
func (m *VM) callClosure(closure *Closure, argc int, this Value, isConstructor bool) *RuntimeError {
	if argc != closure.Proto.Arity {
		return &RuntimeError{Kind: ErrWrongArity, Span: m.currentSpan(), Expected: closure.Proto.Arity, Got: argc}
	}
	if m.fp >= maxFrames {
		return generalError(m.currentSpan(), "stack overflow")
	}
	frame := CallFrame{
		closure:       closure,
		base:          m.sp - argc - 1,
		this:          this,
		isConstructor: isConstructor,
	}
	if m.fp < len(m.frames) {
		m.frames[m.fp] = frame
	} else {
		m.frames = append(m.frames, frame)
	}
	m.fp++
	return nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Execute runs a compiled prototype to completion and returns the script's
// result value. The first error stops the dispatch loop; language-level
// throws only surface here when genuinely uncaught.
func (m *VM) Execute(proto *FunctionProto) (Value, *RuntimeError) {
	closure := NewClosure(proto)
	m.push(ClosureValue(closure))
	if err := m.callClosure(closure, 0, Null, false); err != nil {
		return Null, err
	}
	return m.run()
}

// run is the dispatch loop: one instruction per iteration against the
// active frame, until the bottom frame returns or an error surfaces.
func (m *VM) run() (Value, *RuntimeError) {
	for {
		frame := &m.frames[m.fp-1]
		chunk := frame.closure.Proto.Chunk

		if frame.ip >= len(chunk.Code) {
			// Implicit return at end of chunk.
			m.closeUpvalues(frame.base)
			m.sp = frame.base
			m.fp--
			if m.fp == 0 {
				return Null, nil
			}
			m.push(Null)
			continue
		}

		pos := frame.ip
		op := chunk.Code[pos]
		frame.ip++

		switch op.Code {
		// --- Stack and constants ---
		case OpConstant:
			if op.A >= len(chunk.Constants) {
				return Null, generalError(m.currentSpan(), "constant index %d out of range", op.A)
			}
			m.push(chunk.Constants[op.A].Value())

		case OpNull:
			m.push(Null)

		case OpTrue:
			m.push(True)

		case OpFalse:
			m.push(False)

		case OpPop:
			m.pop()

		case OpDup:
			m.push(m.peek(0))

		// --- Variables ---
		case OpGetLocal:
			m.push(m.stack[frame.base+op.A])

		case OpSetLocal:
			m.stack[frame.base+op.A] = m.peek(0)

		case OpGetGlobal:
			name := chunk.ConstantName(op.A)
			v, ok := m.globals[name]
			if !ok {
				return Null, &RuntimeError{Kind: ErrUndefinedVariable, Span: m.currentSpan(), Name: name}
			}
			m.push(v)

		case OpSetGlobal:
			name := chunk.ConstantName(op.A)
			if _, ok := m.globals[name]; !ok {
				return Null, &RuntimeError{Kind: ErrUndefinedVariable, Span: m.currentSpan(), Name: name}
			}
			m.globals[name] = m.publish(m.peek(0))

		case OpDefineGlobal:
			name := chunk.ConstantName(op.A)
			m.globals[name] = m.publish(m.pop())

		case OpGetUpvalue:
			m.push(frame.closure.Upvalues[op.A].get(m.stack))

		case OpSetUpvalue:
			frame.closure.Upvalues[op.A].set(m.stack, m.peek(0))

		case OpCloseUpvalue:
			m.closeUpvalues(m.sp - 1)
			m.pop()

		// --- Arithmetic, comparison, logic ---
		case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo,
			OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
			if err := m.binaryOp(op.Code); err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
			}

		case OpNegate:
			v := m.pop()
			switch v.Kind {
			case KindInt:
				m.push(IntValue(-v.Int))
			case KindFloat:
				m.push(FloatValue(-v.Float))
			case KindDecimal:
				m.push(FloatValue(-v.AsFloat()))
			default:
				if err := m.maybeThrow(typeError(m.currentSpan(), "cannot negate %s", v.TypeName())); err != nil {
					return Null, err
				}
			}

		case OpEqual:
			b := m.pop()
			a := m.pop()
			m.push(BoolValue(a.Equal(b)))

		case OpNotEqual:
			b := m.pop()
			a := m.pop()
			m.push(BoolValue(!a.Equal(b)))

		case OpNot:
			m.push(BoolValue(!m.pop().Truthy()))

		// --- Control flow ---
		case OpJump, OpLoop:
			frame.ip = op.A

		case OpJumpIfFalse:
			if !m.pop().Truthy() {
				frame.ip = op.A
			}

		case OpJumpIfFalseNoPop:
			if !m.peek(0).Truthy() {
				frame.ip = op.A
			}

		case OpJumpIfTrueNoPop:
			if m.peek(0).Truthy() {
				frame.ip = op.A
			}

		case OpNullishJump:
			// Short-circuit for the nullish operator: a non-null value
			// jumps past the fallback expression and stays on the stack;
			// null is popped and execution falls through to the fallback.
			if m.peek(0).IsNull() {
				m.pop()
			} else {
				frame.ip = op.A
			}

		// --- Calls ---
		case OpCall:
			argc := op.A
			if err := m.callValue(m.peek(argc), argc); err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
			}

		case OpClosure:
			k := chunk.Constants[op.A]
			if k.Kind != ConstFunction {
				return Null, generalError(m.currentSpan(), "constant %d is not a function", op.A)
			}
			closure := NewClosure(k.Function)
			for i, desc := range k.Function.Upvalues {
				if desc.IsLocal {
					closure.Upvalues[i] = m.captureUpvalue(frame.base + desc.Index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[desc.Index]
				}
			}
			m.push(ClosureValue(closure))

		case OpReturn:
			result := m.pop()
			if frame.isConstructor {
				result = frame.this
			}
			m.closeUpvalues(frame.base)
			m.sp = frame.base
			m.fp--
			if m.fp == 0 {
				return result, nil
			}
			m.push(result)

		// --- Aggregate literals ---
		case OpArray:
			elements := m.popN(op.A)
			m.push(ArrayValue(NewArray(flattenSpreads(elements))))

		case OpHash:
			pairs := m.popN(op.A * 2)
			h := NewHash()
			var keyErr *RuntimeError
			for i := 0; i < len(pairs); i += 2 {
				key, ok := HashKey(pairs[i])
				if !ok {
					keyErr = typeError(m.currentSpan(), "%s cannot be used as a hash key", pairs[i].TypeName())
					break
				}
				h.Set(key, pairs[i+1])
			}
			if keyErr != nil {
				if err := m.maybeThrow(keyErr); err != nil {
					return Null, err
				}
				continue
			}
			m.push(HashValue(h))

		case OpRange:
			end := m.pop()
			start := m.pop()
			if start.Kind != KindInt || end.Kind != KindInt {
				if err := m.maybeThrow(typeError(m.currentSpan(), "range bounds must be integers")); err != nil {
					return Null, err
				}
				continue
			}
			m.push(RangeValue(&RangeObject{Start: start.Int, End: end.Int}))

		case OpGetIndex:
			index := m.pop()
			receiver := m.pop()
			v, err := m.getIndex(receiver, index)
			if err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			m.push(v)

		case OpSetIndex:
			v := m.pop()
			index := m.pop()
			receiver := m.pop()
			if err := m.setIndex(receiver, index, v); err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			m.push(v)

		case OpBuildString:
			parts := m.popN(op.A)
			var sb strings.Builder
			for _, p := range parts {
				sb.WriteString(p.String())
			}
			m.push(StringValue(sb.String()))

		case OpSpread:
			v := m.pop()
			it, ok := NewIterator(v)
			if !ok {
				if err := m.maybeThrow(typeError(m.currentSpan(), "%s is not spreadable", v.TypeName())); err != nil {
					return Null, err
				}
				continue
			}
			var expanded []Value
			for {
				el, more := it.Next()
				if !more {
					break
				}
				expanded = append(expanded, el)
			}
			m.push(Value{Kind: kindSpread, Obj: NewArray(expanded)})

		// --- Properties and classes ---
		case OpGetProperty:
			name := chunk.ConstantName(op.A)
			receiver := m.pop()
			site := MakeCallSite(chunk.CacheID(), pos)
			v, err := m.getProperty(receiver, name, site)
			if err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			m.push(v)

		case OpSetProperty:
			name := chunk.ConstantName(op.A)
			v := m.pop()
			receiver := m.pop()
			site := MakeCallSite(chunk.CacheID(), pos)
			if err := m.setProperty(receiver, name, v, site); err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			m.push(v)

		case OpClass:
			m.push(BuilderValue(NewClassBuilder(chunk.ConstantName(op.A))))

		case OpInherit:
			superVal := m.pop()
			if superVal.Kind != KindClass {
				err := &RuntimeError{Kind: ErrNotAClass, Span: m.currentSpan(), Name: superVal.String()}
				if err := m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			builder, err := m.peekBuilder()
			if err != nil {
				return Null, err
			}
			builder.Super = superVal.Class()

		case OpMethod:
			method := m.pop()
			builder, err := m.peekBuilder()
			if err != nil {
				return Null, err
			}
			if method.Kind != KindClosure {
				return Null, typeError(m.currentSpan(), "method body must be a function")
			}
			builder.AddMethod(chunk.ConstantName(op.A), method.Closure())

		case OpStaticMethod:
			method := m.pop()
			builder, err := m.peekBuilder()
			if err != nil {
				return Null, err
			}
			if method.Kind != KindClosure {
				return Null, typeError(m.currentSpan(), "method body must be a function")
			}
			builder.AddStaticMethod(chunk.ConstantName(op.A), method.Closure())

		case OpField:
			def := m.pop()
			builder, err := m.peekBuilder()
			if err != nil {
				return Null, err
			}
			builder.AddField(chunk.ConstantName(op.A), def)

		case OpStaticField:
			v := m.pop()
			builder, err := m.peekBuilder()
			if err != nil {
				return Null, err
			}
			builder.AddStaticField(chunk.ConstantName(op.A), v)

		case OpNew:
			if err := m.instantiate(op.A); err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
			}

		case OpGetThis:
			m.push(frame.this)

		case OpGetSuper:
			v, err := m.getSuperMethod(chunk.ConstantName(op.A))
			if err != nil {
				if err = m.maybeThrow(err); err != nil {
					return Null, err
				}
				continue
			}
			m.push(v)

		// --- Exceptions ---
		case OpTryBegin:
			m.pushHandler(op.A, op.B)

		case OpTryEnd:
			m.popHandler()

		case OpThrow:
			v := m.pop()
			if err := m.throwValue(v, m.currentSpan()); err != nil {
				return Null, err
			}

		// --- Iteration ---
		case OpGetIter:
			v := m.pop()
			it, ok := NewIterator(v)
			if !ok {
				if err := m.maybeThrow(typeError(m.currentSpan(), "%s is not iterable", v.TypeName())); err != nil {
					return Null, err
				}
				continue
			}
			m.push(IteratorValue(it))

		case OpForIter:
			it := m.peek(0)
			if it.Kind != KindIterator {
				return Null, typeError(m.currentSpan(), "for-loop state is not an iterator")
			}
			el, more := it.Iterator().Next()
			if more {
				m.push(el)
			} else {
				m.pop()
				frame.ip = op.A
			}

		// --- Misc ---
		case OpPrint:
			parts := m.popN(op.A)
			strs := make([]string, len(parts))
			for i, p := range parts {
				strs[i] = p.String()
			}
			fmt.Fprintln(m.stdout, strings.Join(strs, " "))

		case OpNamedArg:
			// Named arguments are resolved to positional order by the
			// compiler; at VM time the marker is informational.

		case OpImport:
			// Imports are resolved before execution reaches the VM.

		default:
			return Null, generalError(m.currentSpan(), "unknown opcode %s", op.Code)
		}
	}
}

// maybeThrow routes a runtime error through the language-level handler
// stack when one is installed, so native failures are catchable like
// explicit throws. With no handler the error surfaces unchanged.
func (m *VM) maybeThrow(err *RuntimeError) *RuntimeError {
	if len(m.handlers) == 0 {
		return err
	}
	if throwErr := m.throwValue(StringValue(err.describe()), err.Span); throwErr != nil {
		return throwErr
	}
	return nil
}

// publish finalizes a class builder into its immutable snapshot at the
// moment the definition is stored; all other values pass through.
func (m *VM) publish(v Value) Value {
	if v.Kind == KindClassBuilder {
		return ClassValue(v.Builder().Finalize())
	}
	return v
}

func (m *VM) peekBuilder() (*ClassBuilder, *RuntimeError) {
	v := m.peek(0)
	if v.Kind != KindClassBuilder {
		return nil, generalError(m.currentSpan(), "class definition opcode outside a class body")
	}
	return v.Builder(), nil
}

// instantiate implements New(argc): the callee slot holds the class; it is
// replaced by a fresh instance whose fields default to the class's field
// initializers, then the constructor (when declared) runs through the
// normal call path with `this` bound to the instance.
func (m *VM) instantiate(argc int) *RuntimeError {
	calleeSlot := m.sp - argc - 1
	callee := m.stack[calleeSlot]
	if callee.Kind != KindClass {
		return &RuntimeError{Kind: ErrNotAClass, Span: m.currentSpan(), Name: callee.String()}
	}
	cls := callee.Class()
	instance := InstanceValue(NewInstance(cls))
	m.stack[calleeSlot] = instance

	ctor, ok := cls.ResolveConstructor()
	if !ok {
		if argc != 0 {
			return &RuntimeError{Kind: ErrWrongArity, Span: m.currentSpan(), Expected: 0, Got: argc}
		}
		return nil
	}
	return m.callClosure(ctor, argc, instance, true)
}

// flattenSpreads expands spread markers produced by the Spread opcode.
func flattenSpreads(values []Value) []Value {
	expanded := false
	for _, v := range values {
		if v.Kind == kindSpread {
			expanded = true
			break
		}
	}
	if !expanded {
		return values
	}
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if v.Kind == kindSpread {
			out = append(out, v.Obj.(*ArrayObject).Elements...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Binary operations and indexing
// ---------------------------------------------------------------------------

func (m *VM) binaryOp(code Opcode) *RuntimeError {
	b := m.pop()
	a := m.pop()

	if code == OpAdd && a.Kind == KindString && b.Kind == KindString {
		m.push(StringValue(a.Str + b.Str))
		return nil
	}

	if !a.IsNumber() || !b.IsNumber() {
		return typeError(m.currentSpan(), "operands must be numbers, got %s and %s", a.TypeName(), b.TypeName())
	}

	// Integer arithmetic stays exact when both operands are ints.
	if a.Kind == KindInt && b.Kind == KindInt {
		switch code {
		case OpAdd:
			m.push(IntValue(a.Int + b.Int))
		case OpSubtract:
			m.push(IntValue(a.Int - b.Int))
		case OpMultiply:
			m.push(IntValue(a.Int * b.Int))
		case OpDivide:
			if b.Int == 0 {
				return &RuntimeError{Kind: ErrDivisionByZero, Span: m.currentSpan()}
			}
			m.push(IntValue(a.Int / b.Int))
		case OpModulo:
			if b.Int == 0 {
				return &RuntimeError{Kind: ErrDivisionByZero, Span: m.currentSpan()}
			}
			m.push(IntValue(a.Int % b.Int))
		case OpLess:
			m.push(BoolValue(a.Int < b.Int))
		case OpLessEqual:
			m.push(BoolValue(a.Int <= b.Int))
		case OpGreater:
			m.push(BoolValue(a.Int > b.Int))
		case OpGreaterEqual:
			m.push(BoolValue(a.Int >= b.Int))
		}
		return nil
	}

	af, bf := a.AsFloat(), b.AsFloat()
	switch code {
	case OpAdd:
		m.push(FloatValue(af + bf))
	case OpSubtract:
		m.push(FloatValue(af - bf))
	case OpMultiply:
		m.push(FloatValue(af * bf))
	case OpDivide:
		if bf == 0 {
			return &RuntimeError{Kind: ErrDivisionByZero, Span: m.currentSpan()}
		}
		m.push(FloatValue(af / bf))
	case OpModulo:
		return typeError(m.currentSpan(), "modulo requires integer operands")
	case OpLess:
		m.push(BoolValue(af < bf))
	case OpLessEqual:
		m.push(BoolValue(af <= bf))
	case OpGreater:
		m.push(BoolValue(af > bf))
	case OpGreaterEqual:
		m.push(BoolValue(af >= bf))
	}
	return nil
}

// normalizeIndex converts end-relative negative indices: len + index.
// Anything still out of range after normalization is a bounds error.
func normalizeIndex(index, length int64) (int64, bool) {
	if index < 0 {
		index = length + index
	}
	if index < 0 || index >= length {
		return 0, false
	}
	return index, true
}

func (m *VM) getIndex(receiver, index Value) (Value, *RuntimeError) {
	switch receiver.Kind {
	case KindArray:
		if index.Kind != KindInt {
			return Null, typeError(m.currentSpan(), "array index must be an integer, got %s", index.TypeName())
		}
		elements := receiver.Array().Elements
		idx, ok := normalizeIndex(index.Int, int64(len(elements)))
		if !ok {
			return Null, &RuntimeError{Kind: ErrIndexOutOfBounds, Span: m.currentSpan(), Index: index.Int, Length: int64(len(elements))}
		}
		return elements[idx], nil

	case KindHash:
		key, ok := HashKey(index)
		if !ok {
			return Null, typeError(m.currentSpan(), "%s cannot be used as a hash key", index.TypeName())
		}
		if v, present := receiver.Hash().Get(key); present {
			return v, nil
		}
		return Null, nil

	case KindString:
		if index.Kind != KindInt {
			return Null, typeError(m.currentSpan(), "string index must be an integer, got %s", index.TypeName())
		}
		runes := []rune(receiver.Str)
		idx, ok := normalizeIndex(index.Int, int64(len(runes)))
		if !ok {
			return Null, &RuntimeError{Kind: ErrIndexOutOfBounds, Span: m.currentSpan(), Index: index.Int, Length: int64(len(runes))}
		}
		return StringValue(string(runes[idx])), nil
	}

	return Null, typeError(m.currentSpan(), "%s is not indexable", receiver.TypeName())
}

func (m *VM) setIndex(receiver, index, v Value) *RuntimeError {
	switch receiver.Kind {
	case KindArray:
		if index.Kind != KindInt {
			return typeError(m.currentSpan(), "array index must be an integer, got %s", index.TypeName())
		}
		elements := receiver.Array().Elements
		idx, ok := normalizeIndex(index.Int, int64(len(elements)))
		if !ok {
			return &RuntimeError{Kind: ErrIndexOutOfBounds, Span: m.currentSpan(), Index: index.Int, Length: int64(len(elements))}
		}
		elements[idx] = v
		return nil

	case KindHash:
		key, ok := HashKey(index)
		if !ok {
			return typeError(m.currentSpan(), "%s cannot be used as a hash key", index.TypeName())
		}
		receiver.Hash().Set(key, v)
		return nil
	}

	return typeError(m.currentSpan(), "%s does not support index assignment", receiver.TypeName())
}
