package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"github.com/cylixlee/ruslox/compiler"
	"github.com/cylixlee/ruslox/vm"
)

// runREPL executes a read, eval, print loop. A single VM instance lives for
// the whole session, so globals defined on one line are visible on the
// next. Input that parses as an expression has its value echoed; anything
// else executes as statements.
func runREPL(options vm.Options) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      ">> ",
		HistoryFile: filepath.Join(os.TempDir(), ".ruslox_history"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	defer rl.Close()

	machine := vm.New(options)
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			fmt.Println()
			return
		}
		if line == "" {
			continue
		}
		evalLine(machine, line)
	}
}

// evalLine compiles and runs one REPL line against the session VM.
func evalLine(machine *vm.VM, line string) {
	echo := true
	chunk, diagnostics := compiler.CompileSourceExpression(line)
	if len(diagnostics) > 0 {
		// Not a lone expression; compile as statements instead and report
		// the statement-path diagnostics, which match what a script would
		// produce.
		echo = false
		chunk, diagnostics = compiler.CompileSource(line)
	}
	if len(diagnostics) > 0 {
		renderDiagnostics(os.Stderr, "<stdin>", diagnostics...)
		return
	}

	result, d := machine.Interpret(chunk)
	if d != nil {
		renderDiagnostics(os.Stderr, "<stdin>", d)
		return
	}
	if echo && !result.IsNil() {
		fmt.Println(result)
	}
}
