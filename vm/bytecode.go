package vm

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies a single VM instruction.
type Opcode uint8

// Stack and constant operations
const (
	OpConstant Opcode = iota // push constant pool entry A
	OpNull                   // push null
	OpTrue                   // push true
	OpFalse                  // push false
	OpPop                    // discard top of stack
	OpDup                    // duplicate top of stack

	// Variables
	OpGetLocal     // push local at frame slot A
	OpSetLocal     // store top into frame slot A (value stays)
	OpGetGlobal    // push global named by constant A
	OpSetGlobal    // store top into existing global named by constant A
	OpDefineGlobal // define global named by constant A from top
	OpGetUpvalue   // push upvalue A
	OpSetUpvalue   // store top into upvalue A
	OpCloseUpvalue // close the upvalue for the top slot, then pop

	// Arithmetic, comparison, logic
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpNot

	// Control flow (A is an absolute instruction index)
	OpJump
	OpJumpIfFalse
	OpLoop
	OpJumpIfFalseNoPop
	OpJumpIfTrueNoPop
	OpNullishJump

	// Calls
	OpCall    // A = argument count
	OpClosure // A = constant index of the FunctionProto
	OpReturn

	// Aggregate literals
	OpArray       // A = element count
	OpHash        // A = pair count
	OpRange       // pops end, start
	OpGetIndex    // pops index, receiver
	OpSetIndex    // pops value, index, receiver
	OpBuildString // A = part count
	OpSpread      // expand top-of-stack iterable into the pending literal

	// Properties and classes
	OpGetProperty  // A = constant index of the name
	OpSetProperty  // A = constant index of the name
	OpClass        // A = constant index of the class name
	OpInherit      // pops superclass; subclass builder stays
	OpMethod       // A = name; pops method closure
	OpStaticMethod // A = name; pops method closure
	OpNew          // A = argument count
	OpGetThis
	OpGetSuper    // A = constant index of the method name
	OpField       // A = name; pops field initializer
	OpStaticField // A = name; pops static value

	// Exceptions
	OpTryBegin // A = catch target, B = finally target (-1 when absent)
	OpTryEnd
	OpThrow

	// Iteration
	OpGetIter
	OpForIter // A = jump target when the iterator is exhausted

	// Misc
	OpPrint    // A = value count
	OpNamedArg // A = constant index of the argument name
	OpImport   // A = constant index of the module name; resolved pre-execution
)

// opcodeNames holds the disassembler mnemonics.
var opcodeNames = [...]string{
	OpConstant:         "CONSTANT",
	OpNull:             "NULL",
	OpTrue:             "TRUE",
	OpFalse:            "FALSE",
	OpPop:              "POP",
	OpDup:              "DUP",
	OpGetLocal:         "GET_LOCAL",
	OpSetLocal:         "SET_LOCAL",
	OpGetGlobal:        "GET_GLOBAL",
	OpSetGlobal:        "SET_GLOBAL",
	OpDefineGlobal:     "DEFINE_GLOBAL",
	OpGetUpvalue:       "GET_UPVALUE",
	OpSetUpvalue:       "SET_UPVALUE",
	OpCloseUpvalue:     "CLOSE_UPVALUE",
	OpAdd:              "ADD",
	OpSubtract:         "SUBTRACT",
	OpMultiply:         "MULTIPLY",
	OpDivide:           "DIVIDE",
	OpModulo:           "MODULO",
	OpNegate:           "NEGATE",
	OpEqual:            "EQUAL",
	OpNotEqual:         "NOT_EQUAL",
	OpLess:             "LESS",
	OpLessEqual:        "LESS_EQUAL",
	OpGreater:          "GREATER",
	OpGreaterEqual:     "GREATER_EQUAL",
	OpNot:              "NOT",
	OpJump:             "JUMP",
	OpJumpIfFalse:      "JUMP_IF_FALSE",
	OpLoop:             "LOOP",
	OpJumpIfFalseNoPop: "JUMP_IF_FALSE_NO_POP",
	OpJumpIfTrueNoPop:  "JUMP_IF_TRUE_NO_POP",
	OpNullishJump:      "NULLISH_JUMP",
	OpCall:             "CALL",
	OpClosure:          "CLOSURE",
	OpReturn:           "RETURN",
	OpArray:            "ARRAY",
	OpHash:             "HASH",
	OpRange:            "RANGE",
	OpGetIndex:         "GET_INDEX",
	OpSetIndex:         "SET_INDEX",
	OpBuildString:      "BUILD_STRING",
	OpSpread:           "SPREAD",
	OpGetProperty:      "GET_PROPERTY",
	OpSetProperty:      "SET_PROPERTY",
	OpClass:            "CLASS",
	OpInherit:          "INHERIT",
	OpMethod:           "METHOD",
	OpStaticMethod:     "STATIC_METHOD",
	OpNew:              "NEW",
	OpGetThis:          "GET_THIS",
	OpGetSuper:         "GET_SUPER",
	OpField:            "FIELD",
	OpStaticField:      "STATIC_FIELD",
	OpTryBegin:         "TRY_BEGIN",
	OpTryEnd:           "TRY_END",
	OpThrow:            "THROW",
	OpGetIter:          "GET_ITER",
	OpForIter:          "FOR_ITER",
	OpPrint:            "PRINT",
	OpNamedArg:         "NAMED_ARG",
	OpImport:           "IMPORT",
}

// Name returns the disassembler mnemonic for an opcode.
func (op Opcode) Name() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("UNKNOWN_%02X", uint8(op))
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// Op is one decoded instruction. A and B are the operands; their meaning
// depends on the opcode. Instruction positions (indices into Chunk.Code)
// are the call-site keys for the inline-cache registry.
type Op struct {
	Code Opcode
	A    int
	B    int
}

// ---------------------------------------------------------------------------
// Constants and function prototypes
// ---------------------------------------------------------------------------

// ConstantKind tags a constant pool entry.
type ConstantKind uint8

const (
	ConstInt ConstantKind = iota
	ConstFloat
	ConstDecimal
	ConstString
	ConstBool
	ConstNull
	ConstFunction
)

// Constant is one constant pool entry. Function constants carry a nested
// prototype for closures defined at compile time.
type Constant struct {
	Kind     ConstantKind
	Int      int64
	Float    float64
	Str      string // ConstString and ConstDecimal
	Bool     bool
	Function *FunctionProto
}

// Value converts a constant to its runtime value. Function constants are
// materialized by the Closure opcode, not here.
func (c Constant) Value() Value {
	switch c.Kind {
	case ConstInt:
		return IntValue(c.Int)
	case ConstFloat:
		return FloatValue(c.Float)
	case ConstDecimal:
		return DecimalValue(c.Str)
	case ConstString:
		return StringValue(c.Str)
	case ConstBool:
		return BoolValue(c.Bool)
	}
	return Null
}

// String renders a constant for disassembly.
func (c Constant) String() string {
	switch c.Kind {
	case ConstFunction:
		if c.Function.Name == "" {
			return "<fn>"
		}
		return fmt.Sprintf("<fn %s>", c.Function.Name)
	default:
		return c.Value().String()
	}
}

// UpvalueDescriptor tells the Closure opcode where a captured variable
// lives: in the enclosing frame's slots (IsLocal) or in the enclosing
// closure's own upvalues.
type UpvalueDescriptor struct {
	IsLocal bool
	Index   int
}

// Chunk is a compiled instruction stream with its constant pool and line
// table. Lines[i] is the source line for Code[i].
type Chunk struct {
	Code      []Op
	Constants []Constant
	Lines     []uint32

	// cacheID namespaces this chunk's call sites in the inline-cache
	// registry. Assigned on first execution; a zero value means
	// unassigned. Chunks may run on several VMs at once, so the
	// assignment must be race-free.
	cacheID atomic.Uint32
}

// CacheID returns the chunk's call-site namespace, assigning it on first
// use. Concurrent callers agree on one namespace; a losing allocation is
// discarded and its counter value simply never used.
func (c *Chunk) CacheID() uint32 {
	if id := c.cacheID.Load(); id != 0 {
		return id
	}
	c.cacheID.CompareAndSwap(0, Caches().nextChunkID())
	return c.cacheID.Load()
}

// Line returns the source line for the instruction at pos.
func (c *Chunk) Line(pos int) uint32 {
	if pos >= 0 && pos < len(c.Lines) {
		return c.Lines[pos]
	}
	return 0
}

// ConstantName resolves a constant pool index to a string constant, for
// name-bearing operands. Returns "?" when the index is not a string.
func (c *Chunk) ConstantName(idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "?"
	}
	k := c.Constants[idx]
	if k.Kind != ConstString {
		return "?"
	}
	return k.Str
}

// FunctionProto is a compiled function: the unit of input the compiler
// hands to the VM.
type FunctionProto struct {
	Name     string
	Arity    int
	Upvalues []UpvalueDescriptor
	Chunk    *Chunk
}

// ---------------------------------------------------------------------------
// ChunkBuilder: programmatic chunk construction
// ---------------------------------------------------------------------------

// ChunkBuilder assembles chunks in tests and tools. The production
// compiler emits chunks directly.
type ChunkBuilder struct {
	chunk Chunk
	line  uint32
}

// NewChunkBuilder creates an empty builder.
func NewChunkBuilder() *ChunkBuilder {
	return &ChunkBuilder{line: 1}
}

// SetLine sets the source line attributed to subsequently emitted ops.
func (b *ChunkBuilder) SetLine(line uint32) *ChunkBuilder {
	b.line = line
	return b
}

// Emit appends an instruction with no operands.
func (b *ChunkBuilder) Emit(code Opcode) int {
	return b.EmitAB(code, 0, 0)
}

// EmitA appends an instruction with one operand.
func (b *ChunkBuilder) EmitA(code Opcode, a int) int {
	return b.EmitAB(code, a, 0)
}

// EmitAB appends an instruction with two operands and returns its position.
func (b *ChunkBuilder) EmitAB(code Opcode, a, mb int) int {
	pos := len(b.chunk.Code)
	b.chunk.Code = append(b.chunk.Code, Op{Code: code, A: a, B: mb})
	b.chunk.Lines = append(b.chunk.Lines, b.line)
	return pos
}

// AddConstant appends a constant and returns its pool index.
func (b *ChunkBuilder) AddConstant(k Constant) int {
	b.chunk.Constants = append(b.chunk.Constants, k)
	return len(b.chunk.Constants) - 1
}

// Constant appends a constant and emits a Constant instruction for it.
func (b *ChunkBuilder) Constant(k Constant) int {
	return b.EmitA(OpConstant, b.AddConstant(k))
}

// Position returns the index the next instruction will occupy.
func (b *ChunkBuilder) Position() int {
	return len(b.chunk.Code)
}

// Patch rewrites the A operand of a previously emitted instruction, for
// forward jump targets.
func (b *ChunkBuilder) Patch(pos, target int) {
	b.chunk.Code[pos].A = target
}

// Build returns the assembled chunk.
func (b *ChunkBuilder) Build() *Chunk {
	return &b.chunk
}
