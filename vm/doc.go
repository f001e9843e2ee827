// Package vm implements the Ruslox virtual machine.
//
// This package contains:
//   - Tagged value representation and heap objects
//   - Bytecode chunks, opcodes, and the constant pool
//   - Bounded operand stack and call frames
//   - Fetch-decode-execute interpreter with closure cells
//   - Disassembler and CBOR chunk image serialization
package vm
