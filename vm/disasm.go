package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleProto renders a function prototype and, recursively, every
// nested function constant, each appended after its enclosing function.
//
// The text format is one line per instruction: a 4-digit zero-padded
// offset, a 4-character line number ("   |" when identical to the previous
// instruction's line), the mnemonic, then operands. Name-bearing operands
// render as "IDX (resolved-string)".
func DisassembleProto(proto *FunctionProto) string {
	var sb strings.Builder
	disassembleInto(&sb, proto)
	return sb.String()
}

// DisassembleChunk renders a bare chunk without a function header, for
// tooling that works on chunks directly.
func DisassembleChunk(chunk *Chunk) string {
	var sb strings.Builder
	writeChunk(&sb, chunk)
	return strings.TrimSuffix(sb.String(), "\n")
}

func disassembleInto(sb *strings.Builder, proto *FunctionProto) {
	name := proto.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(sb, "== %s (arity=%d, upvalues=%d) ==\n", name, proto.Arity, len(proto.Upvalues))
	writeChunk(sb, proto.Chunk)

	for _, k := range proto.Chunk.Constants {
		if k.Kind == ConstFunction {
			disassembleInto(sb, k.Function)
		}
	}
}

func writeChunk(sb *strings.Builder, chunk *Chunk) {
	var prevLine uint32
	for pos := range chunk.Code {
		line := chunk.Line(pos)
		if pos > 0 && line == prevLine {
			fmt.Fprintf(sb, "%04d %s %s\n", pos, "   |", instructionString(chunk, pos))
		} else {
			fmt.Fprintf(sb, "%04d %4d %s\n", pos, line, instructionString(chunk, pos))
		}
		prevLine = line
	}
}

// instructionString renders the mnemonic and operands for one instruction.
func instructionString(chunk *Chunk, pos int) string {
	op := chunk.Code[pos]
	name := op.Code.Name()

	switch op.Code {
	case OpConstant, OpClosure:
		return fmt.Sprintf("%-12s %d (%s)", name, op.A, constantString(chunk, op.A))

	case OpGetGlobal, OpSetGlobal, OpDefineGlobal,
		OpGetProperty, OpSetProperty,
		OpClass, OpMethod, OpStaticMethod, OpField, OpStaticField,
		OpGetSuper, OpNamedArg, OpImport:
		return fmt.Sprintf("%-12s %d (%s)", name, op.A, chunk.ConstantName(op.A))

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue,
		OpCall, OpNew, OpArray, OpHash, OpBuildString, OpPrint,
		OpJump, OpJumpIfFalse, OpLoop, OpJumpIfFalseNoPop,
		OpJumpIfTrueNoPop, OpNullishJump, OpForIter:
		return fmt.Sprintf("%-12s %d", name, op.A)

	case OpTryBegin:
		return fmt.Sprintf("%-12s %d %d", name, op.A, op.B)

	default:
		return name
	}
}

func constantString(chunk *Chunk, idx int) string {
	if idx < 0 || idx >= len(chunk.Constants) {
		return "?"
	}
	return chunk.Constants[idx].String()
}
