package vm

import (
	"math"
	"strconv"
)

// numberEpsilon is the tolerance used for number equality, matching IEEE 754
// double-precision machine epsilon.
const numberEpsilon = 2.220446049250313e-16

// ValueKind discriminates the runtime value union.
type ValueKind byte

const (
	KindNil ValueKind = iota
	KindBoolean
	KindNumber
	KindObject
)

// Value is a tagged runtime datum: nil, boolean, number, or a reference to
// a heap object (string or closure). Values are small and copied freely;
// heap objects are shared and live as long as any stack slot, global
// binding, or closure capture references them.
type Value struct {
	kind    ValueKind
	boolean bool
	number  float64
	object  Object
}

// Nil is the nil value.
var Nil = Value{kind: KindNil}

// True and False are the boolean values.
var (
	True  = Value{kind: KindBoolean, boolean: true}
	False = Value{kind: KindBoolean, boolean: false}
)

// FromNumber creates a number value.
func FromNumber(n float64) Value {
	return Value{kind: KindNumber, number: n}
}

// FromBoolean creates a boolean value.
func FromBoolean(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromObject creates a value referencing a heap object.
func FromObject(o Object) Value {
	return Value{kind: KindObject, object: o}
}

// Kind returns the value's kind tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsBoolean reports whether v is a boolean.
func (v Value) IsBoolean() bool { return v.kind == KindBoolean }

// IsNumber reports whether v is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObject reports whether v references a heap object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// Number returns the numeric payload. Valid only when IsNumber.
func (v Value) Number() float64 { return v.number }

// Boolean returns the boolean payload. Valid only when IsBoolean.
func (v Value) Boolean() bool { return v.boolean }

// Object returns the referenced heap object. Valid only when IsObject.
func (v Value) Object() Object { return v.object }

// AsString returns the referenced string object, if any.
func (v Value) AsString() (*StringObject, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	s, ok := v.object.(*StringObject)
	return s, ok
}

// AsClosure returns the referenced closure object, if any.
func (v Value) AsClosure() (*Closure, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	c, ok := v.object.(*Closure)
	return c, ok
}

// IsTruthy reports whether v counts as true in conditionals. Only nil and
// false are falsy.
func (v Value) IsTruthy() bool {
	return !(v.kind == KindNil || (v.kind == KindBoolean && !v.boolean))
}

// Equals reports value equality: numbers within epsilon, booleans and nil
// by identity, strings by content, other objects by reference.
func (v Value) Equals(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBoolean:
		return v.boolean == other.boolean
	case KindNumber:
		return math.Abs(v.number-other.number) < numberEpsilon
	case KindObject:
		left, leftOk := v.AsString()
		right, rightOk := other.AsString()
		if leftOk && rightOk {
			return left.Text == right.Text
		}
		return v.object == other.object
	}
	return false
}

// String renders the value for printing.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindObject:
		return v.object.String()
	}
	return "<invalid>"
}
