package vm

import "fmt"

// ---------------------------------------------------------------------------
// Runtime error taxonomy
// ---------------------------------------------------------------------------

// Span locates an error in the original source. The VM recovers the line
// from the chunk's line table; column information is only available when
// the compiler recorded it.
type Span struct {
	Line uint32
	Col  uint32
}

func (s Span) String() string {
	if s.Col == 0 {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("line %d:%d", s.Line, s.Col)
}

// ErrorKind classifies a runtime error. The same taxonomy serves type
// errors, arity mismatches and missing-member errors; there is no separate
// VM-internal error type.
type ErrorKind uint8

const (
	ErrGeneral ErrorKind = iota
	ErrDivisionByZero
	ErrUndefinedVariable
	ErrNotCallable
	ErrWrongArity
	ErrTypeError
	ErrIndexOutOfBounds
	ErrNoSuchProperty
	ErrNotAClass
)

var errorKindNames = map[ErrorKind]string{
	ErrGeneral:           "General",
	ErrDivisionByZero:    "DivisionByZero",
	ErrUndefinedVariable: "UndefinedVariable",
	ErrNotCallable:       "NotCallable",
	ErrWrongArity:        "WrongArity",
	ErrTypeError:         "TypeError",
	ErrIndexOutOfBounds:  "IndexOutOfBounds",
	ErrNoSuchProperty:    "NoSuchProperty",
	ErrNotAClass:         "NotAClass",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// RuntimeError is the error surfaced to the embedding caller for every
// fallible operation in the VM. Each carries a source Span and a kind;
// the payload fields below are populated per kind.
type RuntimeError struct {
	Kind    ErrorKind
	Span    Span
	Message string // General, TypeError

	Name string // UndefinedVariable, NotAClass

	Expected int // WrongArity
	Got      int // WrongArity

	Index  int64 // IndexOutOfBounds
	Length int64 // IndexOutOfBounds

	ValueType string // NoSuchProperty
	Property  string // NoSuchProperty
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Span, e.describe())
}

func (e *RuntimeError) describe() string {
	switch e.Kind {
	case ErrDivisionByZero:
		return "division by zero"
	case ErrUndefinedVariable:
		return fmt.Sprintf("undefined variable '%s'", e.Name)
	case ErrNotCallable:
		if e.ValueType != "" {
			return fmt.Sprintf("value of type %s is not callable", e.ValueType)
		}
		return "value is not callable"
	case ErrWrongArity:
		return fmt.Sprintf("expected %d arguments but got %d", e.Expected, e.Got)
	case ErrIndexOutOfBounds:
		return fmt.Sprintf("index %d out of bounds (length %d)", e.Index, e.Length)
	case ErrNoSuchProperty:
		return fmt.Sprintf("%s has no property '%s'", e.ValueType, e.Property)
	case ErrNotAClass:
		return fmt.Sprintf("'%s' is not a class", e.Name)
	default:
		return e.Message
	}
}

func generalError(span Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: ErrGeneral, Span: span, Message: fmt.Sprintf(format, args...)}
}

func typeError(span Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: ErrTypeError, Span: span, Message: fmt.Sprintf(format, args...)}
}

func noSuchProperty(span Span, valueType, property string) *RuntimeError {
	return &RuntimeError{Kind: ErrNoSuchProperty, Span: span, ValueType: valueType, Property: property}
}
