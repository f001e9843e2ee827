package compiler

import "testing"

func mustParse(t *testing.T, source string) []Stmt {
	t.Helper()
	tokens, diagnostics := Scan(source)
	if len(diagnostics) > 0 {
		t.Fatalf("scan diagnostics: %v", diagnostics)
	}
	statements, diagnostics := Parse(tokens)
	if len(diagnostics) > 0 {
		t.Fatalf("parse diagnostics: %v", diagnostics)
	}
	return statements
}

func parseExpectingCodes(t *testing.T, source string, codes ...string) []Stmt {
	t.Helper()
	tokens, scanDiagnostics := Scan(source)
	if len(scanDiagnostics) > 0 {
		t.Fatalf("scan diagnostics: %v", scanDiagnostics)
	}
	statements, diagnostics := Parse(tokens)
	if len(diagnostics) != len(codes) {
		t.Fatalf("got %d diagnostics, want %d: %v", len(diagnostics), len(codes), diagnostics)
	}
	for i, code := range codes {
		if diagnostics[i].Code != code {
			t.Errorf("diagnostic %d code = %s, want %s", i, diagnostics[i].Code, code)
		}
	}
	return statements
}

func TestParseFunctionDeclaration(t *testing.T) {
	statements := mustParse(t, "fun add(a, b) { return a + b; }")
	if len(statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(statements))
	}
	fn, ok := statements[0].(*FunDecl)
	if !ok {
		t.Fatalf("statement is %T, want *FunDecl", statements[0])
	}
	if fn.Name != "add" {
		t.Errorf("name = %q, want add", fn.Name)
	}
	if len(fn.Parameters) != 2 || fn.Parameters[0] != "a" || fn.Parameters[1] != "b" {
		t.Errorf("parameters = %v, want [a b]", fn.Parameters)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("body has %d statements, want 1", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*Return); !ok {
		t.Errorf("body statement is %T, want *Return", fn.Body[0])
	}
}

func TestParsePrecedence(t *testing.T) {
	statements := mustParse(t, "print 1 + 2 * 3;")
	print := statements[0].(*Print)
	add, ok := print.Expression.(*Binary)
	if !ok || add.Operator != TokenPlus {
		t.Fatalf("top operator should be +, got %#v", print.Expression)
	}
	multiply, ok := add.Right.(*Binary)
	if !ok || multiply.Operator != TokenStar {
		t.Fatalf("right operand should be *, got %#v", add.Right)
	}
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	statements := mustParse(t, "a = b = 1;")
	expr := statements[0].(*ExprStmt)
	outer, ok := expr.Expression.(*Assign)
	if !ok || outer.Name != "a" {
		t.Fatalf("outer should assign a, got %#v", expr.Expression)
	}
	inner, ok := outer.Value.(*Assign)
	if !ok || inner.Name != "b" {
		t.Fatalf("inner should assign b, got %#v", outer.Value)
	}
}

func TestParseLogicalOperators(t *testing.T) {
	statements := mustParse(t, "print a or b and c;")
	print := statements[0].(*Print)
	or, ok := print.Expression.(*Logical)
	if !ok || or.Operator != TokenOr {
		t.Fatalf("top operator should be or, got %#v", print.Expression)
	}
	and, ok := or.Right.(*Logical)
	if !ok || and.Operator != TokenAnd {
		t.Fatalf("and should bind tighter than or, got %#v", or.Right)
	}
}

func TestRecoveryAtTopLevel(t *testing.T) {
	// The bad expression statement is dropped; the declarations after the
	// semicolon still parse.
	statements := parseExpectingCodes(t, `1 + ; var x = 1; print x;`, "E0005")
	if len(statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(statements))
	}
	if _, ok := statements[0].(*VarDecl); !ok {
		t.Errorf("first recovered statement is %T, want *VarDecl", statements[0])
	}
}

func TestRecoveryInsideBlock(t *testing.T) {
	// Recovery must not eat the '}' that closes the block, or the statement
	// after the block would be swallowed into it.
	statements := parseExpectingCodes(t, `{ var a = ; } print "after";`, "E0005")
	if len(statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(statements))
	}
	if _, ok := statements[0].(*Block); !ok {
		t.Errorf("first statement is %T, want *Block", statements[0])
	}
	if _, ok := statements[1].(*Print); !ok {
		t.Errorf("second statement is %T, want *Print", statements[1])
	}
}

func TestRecoveryAfterTokenThatCannotStartStatement(t *testing.T) {
	// A stray token sitting right after a semicolon cannot begin a
	// statement; recovery must skip it rather than stop at the boundary,
	// or the parser would re-report the same error at the same position
	// forever.
	parseExpectingCodes(t, "1; )", "E0005")
	parseExpectingCodes(t, "a; }", "E0005")
	statements := parseExpectingCodes(t, "var x = 1; ) print x;", "E0005")
	if len(statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(statements))
	}
	if _, ok := statements[0].(*VarDecl); !ok {
		t.Errorf("first statement is %T, want *VarDecl", statements[0])
	}
	if _, ok := statements[1].(*Print); !ok {
		t.Errorf("second statement is %T, want *Print", statements[1])
	}
}

func TestRecoveryReportsMultipleErrors(t *testing.T) {
	parseExpectingCodes(t, "1 + ; 2 * ; print 3;", "E0005", "E0005")
}

func TestVarWithoutName(t *testing.T) {
	parseExpectingCodes(t, "var = 1;", "E0007")
}

func TestMissingSemicolon(t *testing.T) {
	parseExpectingCodes(t, "print 1", "E0006")
}

func TestInvalidAssignmentTarget(t *testing.T) {
	parseExpectingCodes(t, "1 = 2;", "E0008")
	parseExpectingCodes(t, "a + b = 1;", "E0008")
}

func TestStrayClosingBrace(t *testing.T) {
	statements := parseExpectingCodes(t, "} print 1;", "E0005")
	if len(statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(statements))
	}
}

func TestParseExpressionEntry(t *testing.T) {
	tokens, _ := Scan("1 + 2 * 3")
	expression, diagnostics := ParseExpression(tokens)
	if len(diagnostics) > 0 {
		t.Fatalf("diagnostics: %v", diagnostics)
	}
	if _, ok := expression.(*Binary); !ok {
		t.Errorf("expression is %T, want *Binary", expression)
	}
}

func TestParseExpressionRejectsStatements(t *testing.T) {
	tokens, _ := Scan("print 1;")
	_, diagnostics := ParseExpression(tokens)
	if len(diagnostics) == 0 {
		t.Fatal("expected diagnostics for statement input")
	}
}

func TestIfElseAttachment(t *testing.T) {
	statements := mustParse(t, "if (a) if (b) print 1; else print 2;")
	outer := statements[0].(*If)
	inner, ok := outer.Then.(*If)
	if !ok {
		t.Fatalf("then branch is %T, want *If", outer.Then)
	}
	if inner.Else == nil {
		t.Error("else should attach to the nearest if")
	}
	if outer.Else != nil {
		t.Error("outer if should have no else")
	}
}

func TestCallArguments(t *testing.T) {
	statements := mustParse(t, "f(1, 2, 3);")
	expr := statements[0].(*ExprStmt)
	call, ok := expr.Expression.(*Call)
	if !ok {
		t.Fatalf("expression is %T, want *Call", expr.Expression)
	}
	if len(call.Arguments) != 3 {
		t.Errorf("got %d arguments, want 3", len(call.Arguments))
	}
	callee, ok := call.Callee.(*Variable)
	if !ok || callee.Name != "f" {
		t.Errorf("callee = %#v, want variable f", call.Callee)
	}
}
