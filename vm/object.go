package vm

import "fmt"

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// Object is implemented by every heap-allocated runtime value. Objects are
// shared by reference; their lifetime is the lifetime of the longest holder
// (stack slot, global binding, or closure capture), which Go's collector
// enforces directly.
type Object interface {
	String() string
	object() // marker method
}

// StringObject is an immutable heap string.
type StringObject struct {
	Text string
}

func (s *StringObject) String() string { return s.Text }
func (s *StringObject) object()        {}

// Closure pairs a function prototype with the cells it captured from its
// enclosing scopes.
type Closure struct {
	Fn       *Function
	Captures []*Cell
}

func (c *Closure) String() string {
	if c.Fn.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", c.Fn.Name)
}
func (c *Closure) object() {}

// Cell is a heap-allocated mutable box for a captured variable. While the
// variable's stack slot is live the cell stays "open" and the VM reads and
// writes through the slot; when the slot is popped the value moves into the
// cell, so every closure sharing it still observes mutations.
type Cell struct {
	open  bool
	slot  int // absolute stack index, valid while open
	value Value
}

func newOpenCell(slot int) *Cell {
	return &Cell{open: true, slot: slot}
}
