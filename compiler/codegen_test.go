package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/cylixlee/ruslox/diagnostic"
	"github.com/cylixlee/ruslox/vm"
)

// runSource compiles and executes a program, returning everything it
// printed. Compile errors fail the test; runtime errors are returned.
func runSource(t *testing.T, source string) (string, *diagnostic.Diagnostic) {
	t.Helper()
	chunk, diagnostics := CompileSource(source)
	if len(diagnostics) > 0 {
		t.Fatalf("compile diagnostics: %v", diagnostics)
	}
	var out bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &out})
	_, d := machine.Interpret(chunk)
	return out.String(), d
}

// expectOutput asserts a program runs cleanly and prints exactly want.
func expectOutput(t *testing.T, source, want string) {
	t.Helper()
	out, d := runSource(t, source)
	if d != nil {
		t.Fatalf("runtime error: %v", d)
	}
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// expectRuntimeCode asserts a program compiles but fails with the given
// runtime diagnostic code.
func expectRuntimeCode(t *testing.T, source, code string) *diagnostic.Diagnostic {
	t.Helper()
	_, d := runSource(t, source)
	if d == nil {
		t.Fatalf("expected %s, program succeeded", code)
	}
	if d.Code != code {
		t.Fatalf("expected %s, got %s (%s)", code, d.Code, d.Message)
	}
	return d
}

// expectCompileCode asserts compilation fails with the given codes.
func expectCompileCode(t *testing.T, source string, codes ...string) {
	t.Helper()
	_, diagnostics := CompileSource(source)
	if len(diagnostics) != len(codes) {
		t.Fatalf("got %d diagnostics, want %d: %v", len(diagnostics), len(codes), diagnostics)
	}
	for i, code := range codes {
		if diagnostics[i].Code != code {
			t.Errorf("diagnostic %d code = %s, want %s", i, diagnostics[i].Code, code)
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions and statements
// ---------------------------------------------------------------------------

func TestArithmetic(t *testing.T) {
	expectOutput(t, "print 1 + 2 * 3;", "7\n")
	expectOutput(t, "print (1 + 2) * 3;", "9\n")
	expectOutput(t, "print 10 / 4;", "2.5\n")
	expectOutput(t, "print -3 + 5;", "2\n")
}

func TestStringConcatenation(t *testing.T) {
	expectOutput(t, `print "foo" + "bar";`, "foobar\n")
}

func TestComparisonsAndEquality(t *testing.T) {
	expectOutput(t, "print 1 < 2;", "true\n")
	expectOutput(t, "print 1 >= 2;", "false\n")
	expectOutput(t, "print 1 <= 1;", "true\n")
	expectOutput(t, "print 1 == 1;", "true\n")
	expectOutput(t, "print 1 != 1;", "false\n")
	expectOutput(t, `print "a" == "a";`, "true\n")
	expectOutput(t, `print 1 == "1";`, "false\n")
	expectOutput(t, "print nil == nil;", "true\n")
	expectOutput(t, "print !nil;", "true\n")
	expectOutput(t, "print !0;", "false\n")
}

func TestGlobalVariables(t *testing.T) {
	expectOutput(t, "var x = 1; x = x + 2; print x;", "3\n")
	expectOutput(t, "var x; print x;", "nil\n")
}

func TestLocalVariables(t *testing.T) {
	expectOutput(t, `
		{
			var a = 1;
			var b = 2;
			print a + b;
		}
	`, "3\n")
}

func TestShadowingInitializerReadsOuterBinding(t *testing.T) {
	// The new slot is invisible to its own initializer.
	expectOutput(t, `
		var a = "outer";
		{
			var a = a + "!";
			print a;
		}
		print a;
	`, "outer!\nouter\n")
}

func TestSameScopeRedeclaration(t *testing.T) {
	expectOutput(t, `
		{
			var a = 1;
			var a = a + 1;
			print a;
		}
	`, "2\n")
}

func TestIfElse(t *testing.T) {
	expectOutput(t, `if (1 < 2) print "then"; else print "else";`, "then\n")
	expectOutput(t, `if (1 > 2) print "then"; else print "else";`, "else\n")
	expectOutput(t, `if (nil) print "unreachable";`, "")
}

func TestWhileLoop(t *testing.T) {
	expectOutput(t, `
		var sum = 0;
		var i = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`, "10\n")
}

func TestLogicalShortCircuit(t *testing.T) {
	expectOutput(t, "print 1 and 2;", "2\n")
	expectOutput(t, "print false and 1;", "false\n")
	expectOutput(t, "print nil or \"fallback\";", "fallback\n")
	expectOutput(t, "print 1 or 2;", "1\n")
	// The right operand must not evaluate when short-circuited.
	expectOutput(t, `
		var called = false;
		fun touch() { called = true; return true; }
		var _ = false and touch();
		print called;
	`, "false\n")
}

// ---------------------------------------------------------------------------
// Functions and closures
// ---------------------------------------------------------------------------

func TestFunctionCallAndReturn(t *testing.T) {
	expectOutput(t, `
		fun add(a, b) { return a + b; }
		print add(1, 2);
	`, "3\n")
	expectOutput(t, `
		fun noReturn() { }
		print noReturn();
	`, "nil\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`, "55\n")
}

func TestClosureCounter(t *testing.T) {
	expectOutput(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		var other = makeCounter();
		print other();
		print counter();
	`, "1\n2\n1\n3\n")
}

func TestSiblingClosuresShareCell(t *testing.T) {
	expectOutput(t, `
		fun makePair() {
			var value = 0;
			fun set(v) { value = v; }
			fun get() { return value; }
			set(42);
			print get();
		}
		makePair();
	`, "42\n")
}

func TestClosureCapturesVariableNotValue(t *testing.T) {
	expectOutput(t, `
		var report;
		{
			var x = 1;
			fun show() { print x; }
			x = 2;
			report = show;
		}
		report();
	`, "2\n")
}

// ---------------------------------------------------------------------------
// Compile-time limits
// ---------------------------------------------------------------------------

func TestReturnOutsideFunction(t *testing.T) {
	expectCompileCode(t, "return 1;", "E0009")
}

func TestTooManyConstants(t *testing.T) {
	var source strings.Builder
	for i := 0; i < vm.MaxConstants+8; i++ {
		fmt.Fprintf(&source, "print %d;\n", i)
	}
	_, diagnostics := CompileSource(source.String())
	if len(diagnostics) == 0 {
		t.Fatal("expected E0001")
	}
	if diagnostics[0].Code != "E0001" {
		t.Errorf("code = %s, want E0001", diagnostics[0].Code)
	}
}

func TestConstantDeduplication(t *testing.T) {
	// The same literal must not exhaust the pool.
	var source strings.Builder
	for i := 0; i < vm.MaxConstants+8; i++ {
		source.WriteString("print 7;\n")
	}
	if _, diagnostics := CompileSource(source.String()); len(diagnostics) != 0 {
		t.Fatalf("repeated literal should dedup: %v", diagnostics)
	}
}

func TestTooManyLocals(t *testing.T) {
	var source strings.Builder
	source.WriteString("{\n")
	for i := 0; i < MaxLocals+8; i++ {
		fmt.Fprintf(&source, "var l%d = 0;\n", i)
	}
	source.WriteString("}\n")
	_, diagnostics := CompileSource(source.String())
	found := false
	for _, d := range diagnostics {
		if d.Code == "E0010" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0010, got %v", diagnostics)
	}
}

func TestJumpDistanceTooLarge(t *testing.T) {
	// Each print statement is three bytes of code; enough of them inside a
	// conditional overflows the 16-bit jump operand.
	var source strings.Builder
	source.WriteString("if (true) {\n")
	for i := 0; i < 23000; i++ {
		source.WriteString("print 0;\n")
	}
	source.WriteString("}\n")
	_, diagnostics := CompileSource(source.String())
	found := false
	for _, d := range diagnostics {
		if d.Code == "E0011" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0011, got %d diagnostics", len(diagnostics))
	}
}

// ---------------------------------------------------------------------------
// Runtime errors from compiled programs
// ---------------------------------------------------------------------------

func TestUndefinedVariable(t *testing.T) {
	d := expectRuntimeCode(t, "print missing;", "E1008")
	if d.Line != 1 {
		t.Errorf("line = %d, want 1", d.Line)
	}
}

func TestAssignUndefinedVariable(t *testing.T) {
	expectRuntimeCode(t, "missing = 1;", "E1008")
}

func TestMixedConcatenationFails(t *testing.T) {
	expectRuntimeCode(t, `print "a" + 1;`, "E1005")
}

func TestArithmeticOnNonNumbers(t *testing.T) {
	expectRuntimeCode(t, `print "a" - "b";`, "E1003")
	expectRuntimeCode(t, "print -nil;", "E1004")
}

func TestCallNonFunction(t *testing.T) {
	expectRuntimeCode(t, "var x = 1; x();", "E1014")
}

func TestArityMismatch(t *testing.T) {
	d := expectRuntimeCode(t, `
		fun two(a, b) { return a; }
		two(1);
	`, "E1015")
	if !strings.Contains(d.Message, "2") || !strings.Contains(d.Message, "1") {
		t.Errorf("message should mention expected and actual counts: %s", d.Message)
	}
}

func TestUnboundedRecursionOverflows(t *testing.T) {
	expectRuntimeCode(t, `
		fun loop() { return loop(); }
		loop();
	`, "E1001")
}

func TestRuntimeErrorLineAttribution(t *testing.T) {
	d := expectRuntimeCode(t, "var a = 1;\nvar b = 2;\nprint a + nil;\n", "E1005")
	if d.Line != 3 {
		t.Errorf("line = %d, want 3", d.Line)
	}
}

// ---------------------------------------------------------------------------
// Expression compilation for the REPL path
// ---------------------------------------------------------------------------

func TestCompileExpressionReturnsValue(t *testing.T) {
	chunk, diagnostics := CompileSourceExpression("1 + 2 * 3")
	if len(diagnostics) > 0 {
		t.Fatalf("diagnostics: %v", diagnostics)
	}
	machine := vm.New(vm.Options{})
	result, d := machine.Interpret(chunk)
	if d != nil {
		t.Fatal(d)
	}
	if !result.Equals(vm.FromNumber(7)) {
		t.Errorf("result = %s, want 7", result)
	}
}

func TestCompileExpressionSeesGlobals(t *testing.T) {
	machine := vm.New(vm.Options{})
	setup, diagnostics := CompileSource("var x = 40;")
	if len(diagnostics) > 0 {
		t.Fatalf("diagnostics: %v", diagnostics)
	}
	if _, d := machine.Interpret(setup); d != nil {
		t.Fatal(d)
	}
	expr, diagnostics := CompileSourceExpression("x + 2")
	if len(diagnostics) > 0 {
		t.Fatalf("diagnostics: %v", diagnostics)
	}
	result, d := machine.Interpret(expr)
	if d != nil {
		t.Fatal(d)
	}
	if !result.Equals(vm.FromNumber(42)) {
		t.Errorf("result = %s, want 42", result)
	}
}
