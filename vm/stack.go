package vm

import "github.com/cylixlee/ruslox/diagnostic"

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

// DefaultStackCapacity is the operand stack size used when no explicit
// capacity is configured.
const DefaultStackCapacity = 256

// Stack is the VM's bounded operand stack. Capacity is fixed at creation;
// overflow and underflow are reported as diagnostics rather than panics so
// the interpreter can surface them with source locations attached.
type Stack struct {
	data []Value
	top  int
}

// NewStack creates a stack with the given capacity. Non-positive capacities
// fall back to DefaultStackCapacity.
func NewStack(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}
	return &Stack{data: make([]Value, capacity)}
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int { return s.top }

// Push appends a value, failing with E1001 when the stack is full.
func (s *Stack) Push(v Value) *diagnostic.Diagnostic {
	if s.top >= len(s.data) {
		return diagnostic.New("E1001", "stack overflow")
	}
	s.data[s.top] = v
	s.top++
	return nil
}

// Pop removes and returns the top value, failing with E1002 when empty.
func (s *Stack) Pop() (Value, *diagnostic.Diagnostic) {
	if s.top == 0 {
		return Nil, diagnostic.New("E1002", "stack underflow")
	}
	s.top--
	return s.data[s.top], nil
}

// Peek returns the value distance slots below the top without removing it.
func (s *Stack) Peek(distance int) (Value, *diagnostic.Diagnostic) {
	index := s.top - 1 - distance
	if index < 0 {
		return Nil, diagnostic.New("E1002", "stack underflow")
	}
	return s.data[index], nil
}

// At returns the value at an absolute stack index.
func (s *Stack) At(index int) Value { return s.data[index] }

// SetAt stores a value at an absolute stack index.
func (s *Stack) SetAt(index int, v Value) { s.data[index] = v }

// Truncate discards every value at or above the given absolute index.
func (s *Stack) Truncate(index int) {
	if index < s.top {
		s.top = index
	}
}

// Clear empties the stack.
func (s *Stack) Clear() { s.top = 0 }

// Slice returns the live portion of the stack, bottom first. The returned
// slice aliases the stack's storage and is only valid until the next push.
func (s *Stack) Slice() []Value { return s.data[:s.top] }
