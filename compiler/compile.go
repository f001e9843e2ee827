// Package compiler turns source text into bytecode chunks: a scanner
// producing tokens, a recursive-descent parser producing an AST, and a
// single-pass code generator producing chunks for the vm package.
//
// Every stage collects diagnostics instead of stopping at the first error;
// a later stage only runs when the earlier ones were clean.
package compiler

import (
	"github.com/cylixlee/ruslox/diagnostic"
	"github.com/cylixlee/ruslox/vm"
)

// CompileSource compiles a program from source text. The chunk is non-nil
// only when the diagnostic slice is empty.
func CompileSource(source string) (*vm.Chunk, []*diagnostic.Diagnostic) {
	tokens, diagnostics := Scan(source)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	statements, diagnostics := Parse(tokens)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	chunk, diagnostics := Compile(statements)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	return chunk, nil
}

// CompileSourceExpression compiles a single expression into a chunk that
// returns the expression's value.
func CompileSourceExpression(source string) (*vm.Chunk, []*diagnostic.Diagnostic) {
	tokens, diagnostics := Scan(source)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	expression, diagnostics := ParseExpression(tokens)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	chunk, diagnostics := CompileExpression(expression)
	if len(diagnostics) > 0 {
		return nil, diagnostics
	}
	return chunk, nil
}
