// Ruslox CLI - compiles and runs Lox programs on the bytecode VM.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/cylixlee/ruslox/compiler"
	"github.com/cylixlee/ruslox/manifest"
	"github.com/cylixlee/ruslox/vm"
)

// Exit codes follow the BSD sysexits convention.
const (
	exitUsage   = 64 // command line misuse
	exitCompile = 65 // source failed to compile
	exitNoInput = 66 // script file unreadable
	exitIOErr   = 74 // output file unwritable
	exitRuntime = 70 // program failed at runtime
)

func main() {
	interactive := flag.Bool("i", false, "Start interactive REPL")
	disassemble := flag.Bool("d", false, "Disassemble instead of running")
	build := flag.Bool("build", false, "Compile to an image instead of running")
	output := flag.String("o", "", "Image output path (used with -build)")
	trace := flag.Bool("trace", false, "Log each instruction while executing")
	verbose := flag.Int("v", 0, "Log verbosity (0-2)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ruslox [options] [script]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a .lox script or a compiled .rslx image. With no script,\n")
		fmt.Fprintf(os.Stderr, "the entry from ruslox.toml is used if one is found.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ruslox -i                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  ruslox hello.lox             # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  ruslox -d hello.lox          # Show bytecode\n")
		fmt.Fprintf(os.Stderr, "  ruslox -build hello.lox      # Write hello.rslx\n")
		fmt.Fprintf(os.Stderr, "  ruslox hello.rslx            # Run a compiled image\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)
	log := commonlog.GetLogger("cli")

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		m = nil
	}

	options := vm.Options{Trace: *trace}
	if m != nil {
		options.StackCapacity = m.VM.StackCapacity
		options.FrameCapacity = m.VM.FrameCapacity
		if m.VM.Trace {
			options.Trace = true
		}
	}

	if *interactive {
		runREPL(options)
		return
	}

	var scriptPath string
	switch {
	case flag.NArg() >= 1:
		scriptPath = flag.Arg(0)
	case m != nil && m.Project.Entry != "":
		scriptPath = m.EntryPath()
		log.Infof("using entry %s from ruslox.toml", scriptPath)
	default:
		if *build || *disassemble {
			flag.Usage()
			os.Exit(exitUsage)
		}
		// No script and no manifest entry: drop into the REPL.
		runREPL(options)
		return
	}

	chunk := loadChunk(scriptPath)

	if *disassemble {
		vm.Disassemble(os.Stdout, chunk, filepath.Base(scriptPath))
		return
	}

	if *build {
		writeImage(chunk, scriptPath, *output, m)
		return
	}

	machine := vm.New(options)
	if _, d := machine.Interpret(chunk); d != nil {
		renderDiagnostics(os.Stderr, scriptPath, d)
		os.Exit(exitRuntime)
	}
}

// loadChunk produces a runnable chunk from a source script or a compiled
// image, exiting with the appropriate code on failure.
func loadChunk(path string) *vm.Chunk {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitNoInput)
	}

	if strings.HasSuffix(path, ".rslx") {
		chunk, err := vm.UnmarshalChunk(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitNoInput)
		}
		return chunk
	}

	chunk, diagnostics := compiler.CompileSource(string(data))
	if len(diagnostics) > 0 {
		renderDiagnostics(os.Stderr, path, diagnostics...)
		os.Exit(exitCompile)
	}
	return chunk
}

// writeImage serializes the chunk to disk. The output path comes from -o,
// then the manifest, then the script name with a .rslx extension.
func writeImage(chunk *vm.Chunk, scriptPath, output string, m *manifest.Manifest) {
	if output == "" {
		if m != nil && m.Image.Output != "" {
			output = m.OutputPath()
		} else {
			output = strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath)) + ".rslx"
		}
	}
	data, err := vm.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOErr)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOErr)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", output, len(data))
}
