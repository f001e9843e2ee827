package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// Disassemble writes a human-readable listing of the chunk and every
// function prototype it contains.
func Disassemble(w io.Writer, chunk *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
	for index, fn := range chunk.Functions {
		label := fn.Name
		if label == "" {
			label = fmt.Sprintf("fn#%d", index)
		}
		fmt.Fprintln(w)
		Disassemble(w, fn.Chunk, label)
	}
}

// DisassembleInstruction writes one instruction starting at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) int {
	if offset > 0 && chunk.Line(offset) == chunk.Line(offset-1) {
		fmt.Fprintf(w, "%04d    | ", offset)
	} else {
		fmt.Fprintf(w, "%04d %4d ", offset, chunk.Line(offset))
	}
	fmt.Fprintln(w, instructionString(chunk, offset))
	op := Opcode(chunk.Code[offset])
	return offset + 1 + op.Info().OperandBytes
}

// instructionString renders one instruction without offset or line prefix.
func instructionString(chunk *Chunk, offset int) string {
	op := Opcode(chunk.Code[offset])
	info := op.Info()
	switch info.OperandBytes {
	case 0:
		return info.Name
	case 1:
		operand := chunk.Code[offset+1]
		var detail strings.Builder
		fmt.Fprintf(&detail, "%-16s %4d", info.Name, operand)
		switch op {
		case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
			if int(operand) < len(chunk.Constants) {
				fmt.Fprintf(&detail, " ; %s", chunk.Constants[operand])
			}
		}
		return detail.String()
	case 2:
		operand := chunk.ReadUint16(offset + 1)
		switch op {
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			return fmt.Sprintf("%-16s %4d ; -> %04d", info.Name, operand, offset+3+int(operand))
		case OpLoop:
			return fmt.Sprintf("%-16s %4d ; -> %04d", info.Name, operand, offset+3-int(operand))
		case OpClosure:
			if int(operand) < len(chunk.Functions) {
				fn := chunk.Functions[operand]
				return fmt.Sprintf("%-16s %4d ; <fn %s>", info.Name, operand, fn.Name)
			}
		}
		return fmt.Sprintf("%-16s %4d", info.Name, operand)
	}
	return info.Name
}
