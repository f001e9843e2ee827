// Package diagnostic defines the code-tagged diagnostics emitted by the
// scanner, parser, code generator, and virtual machine.
//
// Every failure in the pipeline is reported as a Diagnostic carrying a
// stable error code (E0xxx for compile-time, E1xxx for runtime), a message,
// and a source location. External renderers key off the code, never the
// message text.
package diagnostic

import (
	"fmt"
	"strings"
)

// Label points at a span of source text with an explanatory message.
type Label struct {
	Start   int // byte offset, inclusive
	End     int // byte offset, exclusive
	Message string
}

// Diagnostic is a single code-tagged error report.
type Diagnostic struct {
	Code    string // E0### (compile) or E1### (runtime)
	Message string
	Line    int // 1-based source line, 0 if unknown
	Labels  []Label
	Notes   []string
}

// New creates a diagnostic with the given code and message.
func New(code, message string) *Diagnostic {
	return &Diagnostic{Code: code, Message: message}
}

// Newf creates a diagnostic with a formatted message.
func Newf(code, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithLine sets the source line and returns the diagnostic.
func (d *Diagnostic) WithLine(line int) *Diagnostic {
	d.Line = line
	return d
}

// WithLabel attaches a labeled source span and returns the diagnostic.
func (d *Diagnostic) WithLabel(start, end int, message string) *Diagnostic {
	d.Labels = append(d.Labels, Label{Start: start, End: end, Message: message})
	return d
}

// WithNote attaches a free-form note and returns the diagnostic.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// IsRuntime reports whether the diagnostic belongs to the runtime tier.
func (d *Diagnostic) IsRuntime() bool {
	return strings.HasPrefix(d.Code, "E1")
}

// String renders the diagnostic as a single line.
func (d *Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("error[%s]: %s (line %d)", d.Code, d.Message, d.Line)
	}
	return fmt.Sprintf("error[%s]: %s", d.Code, d.Message)
}

// Error implements the error interface so a Diagnostic can cross host-level
// error boundaries without losing its code.
func (d *Diagnostic) Error() string {
	return d.String()
}
