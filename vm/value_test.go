package vm

import "testing"

func TestValueTruthiness(t *testing.T) {
	tests := []struct {
		value Value
		want  bool
	}{
		{Nil, false},
		{False, false},
		{True, true},
		{FromNumber(0), true},
		{FromNumber(-1), true},
		{FromObject(&StringObject{Text: ""}), true},
		{FromObject(&Closure{Fn: &Function{}}), true},
	}
	for _, test := range tests {
		if got := test.value.IsTruthy(); got != test.want {
			t.Errorf("IsTruthy(%s) = %v, want %v", test.value, got, test.want)
		}
	}
}

func TestNumberEqualityWithinEpsilon(t *testing.T) {
	left := FromNumber(0.1 + 0.2)
	right := FromNumber(0.3)
	if !left.Equals(right) {
		t.Errorf("0.1+0.2 should equal 0.3 within epsilon")
	}
	if FromNumber(1).Equals(FromNumber(2)) {
		t.Errorf("1 should not equal 2")
	}
}

func TestStringEqualityByContent(t *testing.T) {
	left := FromObject(&StringObject{Text: "hello"})
	right := FromObject(&StringObject{Text: "hello"})
	if !left.Equals(right) {
		t.Errorf("distinct string objects with same text should be equal")
	}
	if left.Equals(FromObject(&StringObject{Text: "world"})) {
		t.Errorf("different text should not be equal")
	}
}

func TestClosureEqualityByReference(t *testing.T) {
	fn := &Function{Name: "f"}
	a := FromObject(&Closure{Fn: fn})
	b := FromObject(&Closure{Fn: fn})
	if a.Equals(b) {
		t.Errorf("distinct closures should not be equal")
	}
	if !a.Equals(a) {
		t.Errorf("closure should equal itself")
	}
}

func TestMixedKindsNeverEqual(t *testing.T) {
	if Nil.Equals(False) {
		t.Errorf("nil should not equal false")
	}
	if FromNumber(0).Equals(False) {
		t.Errorf("0 should not equal false")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{FromNumber(3.5), "3.5"},
		{FromNumber(42), "42"},
		{FromObject(&StringObject{Text: "hi"}), "hi"},
		{FromObject(&Closure{Fn: &Function{Name: "f"}}), "<fn f>"},
		{FromObject(&Closure{Fn: &Function{}}), "<script>"},
	}
	for _, test := range tests {
		if got := test.value.String(); got != test.want {
			t.Errorf("String() = %q, want %q", got, test.want)
		}
	}
}
