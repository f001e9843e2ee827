package main

import (
	"fmt"
	"io"

	"github.com/cylixlee/ruslox/diagnostic"
)

// renderDiagnostics writes diagnostics in a compact, code-first layout:
//
//	error[E0006]: expected ';' after expression, got EOF
//	  --> hello.lox:3
//	  note: string opened here is never closed
func renderDiagnostics(w io.Writer, filename string, diagnostics ...*diagnostic.Diagnostic) {
	for _, d := range diagnostics {
		fmt.Fprintf(w, "error[%s]: %s\n", d.Code, d.Message)
		if d.Line > 0 {
			fmt.Fprintf(w, "  --> %s:%d\n", filename, d.Line)
		}
		for _, label := range d.Labels {
			fmt.Fprintf(w, "  = %s\n", label.Message)
		}
		for _, note := range d.Notes {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
	}
}
