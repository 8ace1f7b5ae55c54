package vm

// ---------------------------------------------------------------------------
// Exception handling
// ---------------------------------------------------------------------------

// HandlerRecord is one active try scope. TryBegin pushes a record
// capturing the frame and stack depths at entry plus the catch/finally
// instruction targets; Throw pops and consumes records while unwinding,
// TryEnd pops the record when the try body completes normally.
type HandlerRecord struct {
	FrameDepth int
	StackDepth int
	CatchIP    int
	FinallyIP  int // -1 when the try has no finally block
}

// pushHandler installs a handler for the current try scope.
func (m *VM) pushHandler(catchIP, finallyIP int) {
	m.handlers = append(m.handlers, HandlerRecord{
		FrameDepth: m.fp,
		StackDepth: m.sp,
		CatchIP:    catchIP,
		FinallyIP:  finallyIP,
	})
}

// popHandler removes the handler installed by the matching TryBegin.
func (m *VM) popHandler() {
	if len(m.handlers) > 0 {
		m.handlers = m.handlers[:len(m.handlers)-1]
	}
}

// throwValue unwinds to the nearest handler. Call frames above the
// handler's depth are popped with their upvalues closed, the value stack
// is truncated to the recorded depth, the thrown value is pushed and the
// instruction pointer jumps to the catch target. With no handler left the
// thrown value surfaces as a General runtime error carrying the throw
// site's span.
func (m *VM) throwValue(v Value, span Span) *RuntimeError {
	if len(m.handlers) == 0 {
		return &RuntimeError{Kind: ErrGeneral, Span: span, Message: thrownMessage(v)}
	}

	h := m.handlers[len(m.handlers)-1]
	m.handlers = m.handlers[:len(m.handlers)-1]

	// Pop frames down to the handler's depth, closing upvalues opened by
	// the unwound frames so closures created inside the unwound scope keep
	// the values they observed.
	for m.fp > h.FrameDepth {
		frame := &m.frames[m.fp-1]
		m.closeUpvalues(frame.base)
		m.fp--
	}

	m.sp = h.StackDepth
	m.push(v)

	target := h.CatchIP
	if target < 0 {
		target = h.FinallyIP
	}
	m.frames[m.fp-1].ip = target
	return nil
}

// thrownMessage derives the uncaught-throw message: an instance exposing
// a "message" field contributes that field's textual form, anything else
// its default textual form.
func thrownMessage(v Value) string {
	if v.Kind == KindInstance {
		if msg, ok := v.Instance().Fields.Get(GetSymbol("message")); ok {
			return msg.String()
		}
	}
	return v.String()
}
