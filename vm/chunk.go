package vm

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/cylixlee/ruslox/diagnostic"
)

// ---------------------------------------------------------------------------
// Constants: compile-time literal values
// ---------------------------------------------------------------------------

// MaxConstants is the capacity of a chunk's constant pool. Constant
// instructions address the pool with a single byte, so the pool can never
// grow past 256 entries.
const MaxConstants = 256

type constantKind byte

const (
	constantNumber constantKind = iota
	constantString
)

// Constant is a compile-time literal stored in a chunk's constant pool.
// Only numbers and strings exist at compile time; heap objects are created
// when a constant instruction executes.
type Constant struct {
	kind   constantKind
	number float64
	text   string
}

// NumberConstant creates a numeric constant.
func NumberConstant(n float64) Constant {
	return Constant{kind: constantNumber, number: n}
}

// StringConstant creates a string constant.
func StringConstant(s string) Constant {
	return Constant{kind: constantString, text: s}
}

// IsNumber reports whether the constant is numeric.
func (c Constant) IsNumber() bool { return c.kind == constantNumber }

// IsString reports whether the constant is a string.
func (c Constant) IsString() bool { return c.kind == constantString }

// Number returns the numeric payload.
func (c Constant) Number() float64 { return c.number }

// Text returns the string payload.
func (c Constant) Text() string { return c.text }

func (c Constant) String() string {
	if c.kind == constantNumber {
		return strconv.FormatFloat(c.number, 'g', -1, 64)
	}
	return fmt.Sprintf("%q", c.text)
}

// ---------------------------------------------------------------------------
// Function prototypes
// ---------------------------------------------------------------------------

// Capture describes how a closure obtains one captured variable when it is
// instantiated: either from a slot of the enclosing frame, or from a cell
// the enclosing closure already captured.
type Capture struct {
	Local bool // true: Index is an enclosing frame slot; false: an enclosing capture index
	Index byte
}

// Function is a compiled function prototype: a chunk plus calling metadata.
// Prototypes are immutable after compilation; the runtime Closure object
// pairs a prototype with its captured cells.
type Function struct {
	Name     string
	Arity    int
	Captures []Capture
	Chunk    *Chunk
}

// ---------------------------------------------------------------------------
// Chunk: a compiled unit of bytecode
// ---------------------------------------------------------------------------

// Chunk is a compiled unit: an instruction stream, a constant pool, a line
// table parallel to the instruction bytes, and the function prototypes
// declared within it. Chunks are immutable after compilation and may be
// shared by any number of VM instances.
type Chunk struct {
	Code      []byte
	Lines     []int // Lines[i] is the source line of Code[i]
	Constants []Constant
	Functions []*Function

	constantIndex map[Constant]int // dedup map, compile-time only
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:          make([]byte, 0, 64),
		Lines:         make([]int, 0, 64),
		constantIndex: make(map[Constant]int),
	}
}

// Len returns the length of the instruction stream in bytes.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// Write appends a raw byte to the instruction stream.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// Emit appends an opcode with no operands.
func (c *Chunk) Emit(op Opcode, line int) {
	c.Write(byte(op), line)
}

// EmitByte appends an opcode with a single byte operand.
func (c *Chunk) EmitByte(op Opcode, operand byte, line int) {
	c.Write(byte(op), line)
	c.Write(operand, line)
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (c *Chunk) EmitUint16(op Opcode, operand uint16, line int) {
	c.Write(byte(op), line)
	c.Write(byte(operand), line)
	c.Write(byte(operand>>8), line)
}

// PatchUint16 overwrites the 16-bit operand starting at position pos.
// Used by the code generator to backpatch jump placeholders.
func (c *Chunk) PatchUint16(pos int, operand uint16) {
	c.Code[pos] = byte(operand)
	c.Code[pos+1] = byte(operand >> 8)
}

// ReadUint16 reads the 16-bit operand starting at position pos.
func (c *Chunk) ReadUint16(pos int) uint16 {
	return binary.LittleEndian.Uint16(c.Code[pos:])
}

// AddConstant adds a constant to the pool, deduplicating equal values, and
// returns its index. A pool that would exceed MaxConstants fails with E0001.
func (c *Chunk) AddConstant(constant Constant) (byte, *diagnostic.Diagnostic) {
	if c.constantIndex == nil {
		c.constantIndex = make(map[Constant]int)
	}
	if index, ok := c.constantIndex[constant]; ok {
		return byte(index), nil
	}
	if len(c.Constants) >= MaxConstants {
		return 0, diagnostic.New("E0001", "too many constants in one chunk")
	}
	index := len(c.Constants)
	c.Constants = append(c.Constants, constant)
	c.constantIndex[constant] = index
	return byte(index), nil
}

// AddFunction appends a function prototype and returns its index.
func (c *Chunk) AddFunction(fn *Function) int {
	c.Functions = append(c.Functions, fn)
	return len(c.Functions) - 1
}

// Line returns the source line recorded for the instruction byte at offset,
// or 0 if the offset is out of range.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
