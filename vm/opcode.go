package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack operations
const (
	OpPop Opcode = 0x00 // discard top of stack
	OpDup Opcode = 0x01 // duplicate top of stack
)

// Constants and literals
const (
	OpConstant Opcode = 0x10 // push constant from pool (8-bit index)
	OpNil      Opcode = 0x11 // push nil
	OpTrue     Opcode = 0x12 // push true
	OpFalse    Opcode = 0x13 // push false
)

// Variable operations
const (
	OpDefineGlobal Opcode = 0x20 // define global named by constant (8-bit index)
	OpGetGlobal    Opcode = 0x21 // push global named by constant (8-bit index)
	OpSetGlobal    Opcode = 0x22 // store into existing global (8-bit index)
	OpGetLocal     Opcode = 0x23 // push frame-relative slot (8-bit index)
	OpSetLocal     Opcode = 0x24 // store into frame-relative slot (8-bit index)
	OpGetCapture   Opcode = 0x25 // push captured cell value (8-bit index)
	OpSetCapture   Opcode = 0x26 // store into captured cell (8-bit index)
	OpCloseCell    Opcode = 0x27 // close the top stack slot into its cell and pop
)

// Arithmetic and logic
const (
	OpAdd      Opcode = 0x30 // numbers add, strings concatenate
	OpSubtract Opcode = 0x31
	OpMultiply Opcode = 0x32
	OpDivide   Opcode = 0x33
	OpNegate   Opcode = 0x34
	OpNot      Opcode = 0x35
	OpEqual    Opcode = 0x36
	OpGreater  Opcode = 0x37
	OpLess     Opcode = 0x38
)

// Control flow
const (
	OpJump        Opcode = 0x40 // unconditional forward jump (16-bit offset)
	OpJumpIfFalse Opcode = 0x41 // pop, forward jump if falsy (16-bit offset)
	OpJumpIfTrue  Opcode = 0x42 // pop, forward jump if truthy (16-bit offset)
	OpLoop        Opcode = 0x43 // unconditional backward jump (16-bit offset)
)

// Functions
const (
	OpCall    Opcode = 0x50 // call value below argc arguments (8-bit argc)
	OpClosure Opcode = 0x51 // instantiate function prototype (16-bit index)
	OpReturn  Opcode = 0x52 // return top of stack to the caller
)

// Miscellaneous
const (
	OpPrint Opcode = 0x60 // pop and print top of stack
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpPop: {"POP", 0},
	OpDup: {"DUP", 0},

	OpConstant: {"CONSTANT", 1},
	OpNil:      {"NIL", 0},
	OpTrue:     {"TRUE", 0},
	OpFalse:    {"FALSE", 0},

	OpDefineGlobal: {"DEFINE_GLOBAL", 1},
	OpGetGlobal:    {"GET_GLOBAL", 1},
	OpSetGlobal:    {"SET_GLOBAL", 1},
	OpGetLocal:     {"GET_LOCAL", 1},
	OpSetLocal:     {"SET_LOCAL", 1},
	OpGetCapture:   {"GET_CAPTURE", 1},
	OpSetCapture:   {"SET_CAPTURE", 1},
	OpCloseCell:    {"CLOSE_CELL", 0},

	OpAdd:      {"ADD", 0},
	OpSubtract: {"SUBTRACT", 0},
	OpMultiply: {"MULTIPLY", 0},
	OpDivide:   {"DIVIDE", 0},
	OpNegate:   {"NEGATE", 0},
	OpNot:      {"NOT", 0},
	OpEqual:    {"EQUAL", 0},
	OpGreater:  {"GREATER", 0},
	OpLess:     {"LESS", 0},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", 2},
	OpLoop:        {"LOOP", 2},

	OpCall:    {"CALL", 1},
	OpClosure: {"CLOSURE", 2},
	OpReturn:  {"RETURN", 0},

	OpPrint: {"PRINT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}
