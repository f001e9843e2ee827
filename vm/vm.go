package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/cylixlee/ruslox/diagnostic"
)

// ---------------------------------------------------------------------------
// VM options
// ---------------------------------------------------------------------------

// DefaultFrameCapacity is the call frame limit used when no explicit
// capacity is configured.
const DefaultFrameCapacity = 64

// Options configures a VM instance.
type Options struct {
	StackCapacity int       // operand stack slots, DefaultStackCapacity if zero
	FrameCapacity int       // call depth limit, DefaultFrameCapacity if zero
	Trace         bool      // log each instruction before executing it
	Stdout        io.Writer // destination for print statements, os.Stdout if nil
}

// ---------------------------------------------------------------------------
// Call frames
// ---------------------------------------------------------------------------

// callFrame is one activation record. base is the absolute stack index of
// slot 0, which always holds the callee closure; parameters occupy the
// slots immediately above it.
type callFrame struct {
	closure *Closure
	ip      int
	base    int
}

// ---------------------------------------------------------------------------
// Virtual machine
// ---------------------------------------------------------------------------

// VM executes compiled chunks. A VM holds mutable state (operand stack,
// globals, interned strings) and may run any number of chunks in sequence;
// globals persist across runs, which is what keeps a REPL session alive.
type VM struct {
	stack     *Stack
	frames    []callFrame
	maxFrames int
	globals   map[string]Value
	interned  map[string]*StringObject
	openCells map[int]*Cell
	stdout    io.Writer
	trace     bool
	log       commonlog.Logger
}

// New creates a VM with the given options.
func New(options Options) *VM {
	frameCapacity := options.FrameCapacity
	if frameCapacity <= 0 {
		frameCapacity = DefaultFrameCapacity
	}
	stdout := options.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return &VM{
		stack:     NewStack(options.StackCapacity),
		frames:    make([]callFrame, 0, frameCapacity),
		maxFrames: frameCapacity,
		globals:   make(map[string]Value),
		interned:  make(map[string]*StringObject),
		openCells: make(map[int]*Cell),
		stdout:    stdout,
		trace:     options.Trace,
		log:       commonlog.GetLogger("vm"),
	}
}

// Global returns the value bound to a global name, if defined. Useful for
// hosts that want to inspect state after a run.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// Interpret wraps the chunk in an implicit script function and runs it to
// completion. The returned value is whatever the script's final return
// leaves behind; plain scripts return nil.
func (vm *VM) Interpret(chunk *Chunk) (Value, *diagnostic.Diagnostic) {
	script := &Closure{Fn: &Function{Chunk: chunk}}
	vm.stack.Clear()
	vm.frames = vm.frames[:0]
	vm.openCells = make(map[int]*Cell)
	if err := vm.stack.Push(FromObject(script)); err != nil {
		return Nil, err
	}
	vm.frames = append(vm.frames, callFrame{closure: script})
	result, err := vm.run()
	if err != nil {
		vm.stack.Clear()
		vm.frames = vm.frames[:0]
		return Nil, err
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

func (vm *VM) run() (Value, *diagnostic.Diagnostic) {
	for {
		frame := &vm.frames[len(vm.frames)-1]
		chunk := frame.closure.Fn.Chunk
		if frame.ip >= len(chunk.Code) {
			// Chunks end with an explicit return; running off the end
			// means the bytecode is malformed.
			return Nil, diagnostic.New("E1011", "instruction pointer ran past end of chunk")
		}
		opIP := frame.ip
		op := Opcode(chunk.Code[frame.ip])
		frame.ip++
		if vm.trace {
			vm.traceInstruction(chunk, opIP)
		}

		fail := func(d *diagnostic.Diagnostic) (Value, *diagnostic.Diagnostic) {
			return Nil, d.WithLine(chunk.Line(opIP))
		}

		switch op {
		case OpPop:
			if _, err := vm.stack.Pop(); err != nil {
				return fail(err)
			}
		case OpDup:
			top, err := vm.stack.Peek(0)
			if err != nil {
				return fail(err)
			}
			if err := vm.stack.Push(top); err != nil {
				return fail(err)
			}

		case OpConstant:
			index := chunk.Code[frame.ip]
			frame.ip++
			if err := vm.stack.Push(vm.constantValue(chunk.Constants[index])); err != nil {
				return fail(err)
			}
		case OpNil:
			if err := vm.stack.Push(Nil); err != nil {
				return fail(err)
			}
		case OpTrue:
			if err := vm.stack.Push(True); err != nil {
				return fail(err)
			}
		case OpFalse:
			if err := vm.stack.Push(False); err != nil {
				return fail(err)
			}

		case OpDefineGlobal:
			index := chunk.Code[frame.ip]
			frame.ip++
			constant := chunk.Constants[index]
			if !constant.IsString() {
				return fail(diagnostic.New("E1006", "global name must be a string constant"))
			}
			// Slot base holds the callee, so a frame with no pushed value
			// still has Len == base+1.
			if vm.stack.Len() <= frame.base+1 {
				return fail(diagnostic.Newf("E1007", "no value on stack to define global '%s'", constant.Text()))
			}
			value, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			vm.globals[constant.Text()] = value
		case OpGetGlobal:
			index := chunk.Code[frame.ip]
			frame.ip++
			constant := chunk.Constants[index]
			if !constant.IsString() {
				return fail(diagnostic.New("E1006", "global name must be a string constant"))
			}
			value, ok := vm.globals[constant.Text()]
			if !ok {
				return fail(diagnostic.Newf("E1008", "undefined variable '%s'", constant.Text()))
			}
			if err := vm.stack.Push(value); err != nil {
				return fail(err)
			}
		case OpSetGlobal:
			index := chunk.Code[frame.ip]
			frame.ip++
			constant := chunk.Constants[index]
			if !constant.IsString() {
				return fail(diagnostic.New("E1006", "global name must be a string constant"))
			}
			if _, ok := vm.globals[constant.Text()]; !ok {
				return fail(diagnostic.Newf("E1008", "undefined variable '%s'", constant.Text()))
			}
			value, err := vm.stack.Peek(0)
			if err != nil {
				return fail(err)
			}
			vm.globals[constant.Text()] = value

		case OpGetLocal:
			slot := frame.base + int(chunk.Code[frame.ip])
			frame.ip++
			if slot < frame.base || slot >= vm.stack.Len() {
				return fail(diagnostic.Newf("E1009", "local slot %d is outside the current frame", slot-frame.base))
			}
			if err := vm.stack.Push(vm.stack.At(slot)); err != nil {
				return fail(err)
			}
		case OpSetLocal:
			slot := frame.base + int(chunk.Code[frame.ip])
			frame.ip++
			if slot < frame.base || slot >= vm.stack.Len() {
				return fail(diagnostic.Newf("E1010", "local slot %d is outside the current frame", slot-frame.base))
			}
			value, err := vm.stack.Peek(0)
			if err != nil {
				return fail(err)
			}
			vm.stack.SetAt(slot, value)

		case OpGetCapture:
			index := chunk.Code[frame.ip]
			frame.ip++
			cell := frame.closure.Captures[index]
			if err := vm.stack.Push(vm.cellValue(cell)); err != nil {
				return fail(err)
			}
		case OpSetCapture:
			index := chunk.Code[frame.ip]
			frame.ip++
			value, err := vm.stack.Peek(0)
			if err != nil {
				return fail(err)
			}
			vm.setCellValue(frame.closure.Captures[index], value)
		case OpCloseCell:
			if vm.stack.Len() <= frame.base+1 {
				return fail(diagnostic.New("E1002", "stack underflow"))
			}
			vm.closeCells(vm.stack.Len() - 1)
			if _, err := vm.stack.Pop(); err != nil {
				return fail(err)
			}

		case OpAdd:
			if err := vm.binaryAdd(); err != nil {
				return fail(err)
			}
		case OpSubtract, OpMultiply, OpDivide, OpGreater, OpLess:
			if err := vm.binaryNumeric(op); err != nil {
				return fail(err)
			}
		case OpNegate:
			value, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			if !value.IsNumber() {
				return fail(diagnostic.New("E1004", "operand must be a number"))
			}
			if err := vm.stack.Push(FromNumber(-value.Number())); err != nil {
				return fail(err)
			}
		case OpNot:
			value, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			if err := vm.stack.Push(FromBoolean(!value.IsTruthy())); err != nil {
				return fail(err)
			}
		case OpEqual:
			right, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			left, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			if err := vm.stack.Push(FromBoolean(left.Equals(right))); err != nil {
				return fail(err)
			}

		case OpJump:
			offset := int(chunk.ReadUint16(frame.ip))
			frame.ip += 2
			if frame.ip+offset > len(chunk.Code) {
				return fail(diagnostic.New("E1011", "jump target is outside the chunk"))
			}
			frame.ip += offset
		case OpJumpIfFalse, OpJumpIfTrue:
			offset := int(chunk.ReadUint16(frame.ip))
			frame.ip += 2
			if frame.ip+offset > len(chunk.Code) {
				return fail(diagnostic.New("E1011", "jump target is outside the chunk"))
			}
			if vm.stack.Len() <= frame.base+1 {
				return fail(diagnostic.New("E1012", "no condition value on stack for conditional jump"))
			}
			condition, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			truthy := condition.IsTruthy()
			if (op == OpJumpIfFalse && !truthy) || (op == OpJumpIfTrue && truthy) {
				frame.ip += offset
			}
		case OpLoop:
			offset := int(chunk.ReadUint16(frame.ip))
			frame.ip += 2
			if frame.ip-offset < 0 {
				return fail(diagnostic.New("E1013", "loop target is before the start of the chunk"))
			}
			frame.ip -= offset

		case OpCall:
			argc := int(chunk.Code[frame.ip])
			frame.ip++
			if err := vm.callValue(argc); err != nil {
				return fail(err)
			}
		case OpClosure:
			index := int(chunk.ReadUint16(frame.ip))
			frame.ip += 2
			if index >= len(chunk.Functions) {
				return fail(diagnostic.Newf("E1011", "function index %d is outside the chunk", index))
			}
			prototype := chunk.Functions[index]
			closure := &Closure{Fn: prototype, Captures: make([]*Cell, len(prototype.Captures))}
			for i, capture := range prototype.Captures {
				if capture.Local {
					closure.Captures[i] = vm.captureLocal(frame.base + int(capture.Index))
				} else {
					closure.Captures[i] = frame.closure.Captures[capture.Index]
				}
			}
			if err := vm.stack.Push(FromObject(closure)); err != nil {
				return fail(err)
			}
		case OpReturn:
			result, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			vm.closeCells(frame.base)
			base := frame.base
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack.Truncate(base)
			if len(vm.frames) == 0 {
				return result, nil
			}
			if err := vm.stack.Push(result); err != nil {
				return fail(err)
			}

		case OpPrint:
			value, err := vm.stack.Pop()
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(vm.stdout, value.String())

		default:
			return fail(diagnostic.Newf("E1011", "unknown opcode 0x%02X", byte(op)))
		}
	}
}

// ---------------------------------------------------------------------------
// Binary operators
// ---------------------------------------------------------------------------

func (vm *VM) binaryAdd() *diagnostic.Diagnostic {
	right, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	left, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if left.IsNumber() && right.IsNumber() {
		return vm.stack.Push(FromNumber(left.Number() + right.Number()))
	}
	leftString, leftOk := left.AsString()
	rightString, rightOk := right.AsString()
	if leftOk && rightOk {
		return vm.stack.Push(FromObject(vm.intern(leftString.Text + rightString.Text)))
	}
	return diagnostic.New("E1005", "operands must be two numbers or two strings")
}

func (vm *VM) binaryNumeric(op Opcode) *diagnostic.Diagnostic {
	right, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	left, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if !left.IsNumber() || !right.IsNumber() {
		return diagnostic.New("E1003", "operands must be numbers")
	}
	a, b := left.Number(), right.Number()
	switch op {
	case OpSubtract:
		return vm.stack.Push(FromNumber(a - b))
	case OpMultiply:
		return vm.stack.Push(FromNumber(a * b))
	case OpDivide:
		return vm.stack.Push(FromNumber(a / b))
	case OpGreater:
		return vm.stack.Push(FromBoolean(a > b))
	case OpLess:
		return vm.stack.Push(FromBoolean(a < b))
	}
	return diagnostic.Newf("E1011", "unknown numeric opcode 0x%02X", byte(op))
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (vm *VM) callValue(argc int) *diagnostic.Diagnostic {
	callee, err := vm.stack.Peek(argc)
	if err != nil {
		return err
	}
	closure, ok := callee.AsClosure()
	if !ok {
		return diagnostic.Newf("E1014", "can only call functions, got %s", callee)
	}
	if closure.Fn.Arity != argc {
		return diagnostic.Newf("E1015", "expected %d arguments to '%s' but got %d",
			closure.Fn.Arity, closure.Fn.Name, argc)
	}
	if len(vm.frames) >= vm.maxFrames {
		return diagnostic.New("E1001", "stack overflow").
			WithNote(fmt.Sprintf("call depth exceeded %d frames", vm.maxFrames))
	}
	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		base:    vm.stack.Len() - argc - 1,
	})
	return nil
}

// ---------------------------------------------------------------------------
// Cells
// ---------------------------------------------------------------------------

// captureLocal returns the open cell for an absolute stack slot, creating
// one on first capture so sibling closures share the same cell.
func (vm *VM) captureLocal(slot int) *Cell {
	if cell, ok := vm.openCells[slot]; ok {
		return cell
	}
	cell := newOpenCell(slot)
	vm.openCells[slot] = cell
	return cell
}

func (vm *VM) cellValue(cell *Cell) Value {
	if cell.open {
		return vm.stack.At(cell.slot)
	}
	return cell.value
}

func (vm *VM) setCellValue(cell *Cell, value Value) {
	if cell.open {
		vm.stack.SetAt(cell.slot, value)
		return
	}
	cell.value = value
}

// closeCells moves every open cell at or above the given absolute slot off
// the stack and into its own storage.
func (vm *VM) closeCells(from int) {
	for slot, cell := range vm.openCells {
		if slot >= from {
			cell.value = vm.stack.At(slot)
			cell.open = false
			delete(vm.openCells, slot)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// constantValue materializes a compile-time constant as a runtime value.
// Equal string constants share one interned object.
func (vm *VM) constantValue(constant Constant) Value {
	if constant.IsNumber() {
		return FromNumber(constant.Number())
	}
	return FromObject(vm.intern(constant.Text()))
}

func (vm *VM) intern(text string) *StringObject {
	if object, ok := vm.interned[text]; ok {
		return object
	}
	object := &StringObject{Text: text}
	vm.interned[text] = object
	return object
}

func (vm *VM) traceInstruction(chunk *Chunk, offset int) {
	var rendered strings.Builder
	for _, value := range vm.stack.Slice() {
		fmt.Fprintf(&rendered, "[ %s ]", value)
	}
	vm.log.Debugf("%-40s %s", instructionString(chunk, offset), rendered.String())
}
