// Package wire serializes compiled function prototypes for storage and
// transport. The encoding is canonical CBOR, so the same prototype always
// produces the same bytes and the content hash is stable across hosts.
package wire

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/quill-lang/quill/vm"
)

const formatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Program is the top-level wire record: a versioned envelope around the
// root prototype of a compiled script.
type Program struct {
	Version int      `cbor:"1,keyasint"`
	Root    Proto    `cbor:"2,keyasint"`
	Source  [32]byte `cbor:"3,keyasint,omitempty"`
}

// Proto mirrors vm.FunctionProto. Nested function constants carry their
// own Proto, so the full tree round-trips through one record.
type Proto struct {
	Name     string    `cbor:"1,keyasint,omitempty"`
	Arity    int       `cbor:"2,keyasint"`
	Upvalues []Upvalue `cbor:"3,keyasint,omitempty"`
	Chunk    Chunk     `cbor:"4,keyasint"`
}

// Upvalue mirrors vm.UpvalueDescriptor.
type Upvalue struct {
	IsLocal bool `cbor:"1,keyasint"`
	Index   int  `cbor:"2,keyasint"`
}

// Chunk mirrors vm.Chunk minus its runtime cache identity, which is
// assigned fresh on load.
type Chunk struct {
	Code      []Op       `cbor:"1,keyasint,omitempty"`
	Constants []Constant `cbor:"2,keyasint,omitempty"`
	Lines     []uint32   `cbor:"3,keyasint,omitempty"`
}

// Op mirrors vm.Op.
type Op struct {
	Code uint8 `cbor:"1,keyasint"`
	A    int   `cbor:"2,keyasint,omitempty"`
	B    int   `cbor:"3,keyasint,omitempty"`
}

// Constant mirrors vm.Constant. Exactly one payload field is meaningful,
// selected by Kind.
type Constant struct {
	Kind  uint8   `cbor:"1,keyasint"`
	Int   int64   `cbor:"2,keyasint,omitempty"`
	Float float64 `cbor:"3,keyasint,omitempty"`
	Str   string  `cbor:"4,keyasint,omitempty"`
	Bool  bool    `cbor:"5,keyasint,omitempty"`
	Proto *Proto  `cbor:"6,keyasint,omitempty"`
}

// MarshalProgram serializes a compiled prototype tree to canonical CBOR.
func MarshalProgram(root *vm.FunctionProto) ([]byte, error) {
	p := Program{Version: formatVersion, Root: encodeProto(root)}
	data, err := cborEncMode.Marshal(&p)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal program: %w", err)
	}
	return data, nil
}

// UnmarshalProgram deserializes a compiled prototype tree.
func UnmarshalProgram(data []byte) (*vm.FunctionProto, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("wire: unmarshal program: %w", err)
	}
	if p.Version != formatVersion {
		return nil, fmt.Errorf("wire: unsupported format version %d", p.Version)
	}
	return decodeProto(&p.Root)
}

// Hash returns the content hash of a prototype's canonical encoding.
func Hash(root *vm.FunctionProto) ([32]byte, error) {
	data, err := MarshalProgram(root)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

func encodeProto(p *vm.FunctionProto) Proto {
	out := Proto{
		Name:  p.Name,
		Arity: p.Arity,
		Chunk: Chunk{
			Code:  make([]Op, len(p.Chunk.Code)),
			Lines: p.Chunk.Lines,
		},
	}
	for _, uv := range p.Upvalues {
		out.Upvalues = append(out.Upvalues, Upvalue{IsLocal: uv.IsLocal, Index: uv.Index})
	}
	for i, op := range p.Chunk.Code {
		out.Chunk.Code[i] = Op{Code: uint8(op.Code), A: op.A, B: op.B}
	}
	for _, k := range p.Chunk.Constants {
		wk := Constant{Kind: uint8(k.Kind), Int: k.Int, Float: k.Float, Str: k.Str, Bool: k.Bool}
		if k.Kind == vm.ConstFunction && k.Function != nil {
			nested := encodeProto(k.Function)
			wk.Proto = &nested
		}
		out.Chunk.Constants = append(out.Chunk.Constants, wk)
	}
	return out
}

func decodeProto(p *Proto) (*vm.FunctionProto, error) {
	out := &vm.FunctionProto{
		Name:  p.Name,
		Arity: p.Arity,
		Chunk: &vm.Chunk{Lines: p.Chunk.Lines},
	}
	for _, uv := range p.Upvalues {
		out.Upvalues = append(out.Upvalues, vm.UpvalueDescriptor{IsLocal: uv.IsLocal, Index: uv.Index})
	}
	for _, op := range p.Chunk.Code {
		out.Chunk.Code = append(out.Chunk.Code, vm.Op{Code: vm.Opcode(op.Code), A: op.A, B: op.B})
	}
	for i, wk := range p.Chunk.Constants {
		k := vm.Constant{Kind: vm.ConstantKind(wk.Kind), Int: wk.Int, Float: wk.Float, Str: wk.Str, Bool: wk.Bool}
		if k.Kind == vm.ConstFunction {
			if wk.Proto == nil {
				return nil, fmt.Errorf("wire: function constant %d missing prototype", i)
			}
			nested, err := decodeProto(wk.Proto)
			if err != nil {
				return nil, err
			}
			k.Function = nested
		}
		out.Chunk.Constants = append(out.Chunk.Constants, k)
	}
	return out, nil
}
