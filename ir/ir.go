// Package ir defines the tape-machine intermediate representation and the
// passes that lower source text into it: parsing, bracket verification,
// run fusion, idiom recognition, and bracket matching. Every backend in
// this module (interpreter, codegen, emitter) consumes the Program this
// package produces.
package ir

import "tapeforge/chunklist"

// TapeSize is the number of cells in the tape ring. Pointer arithmetic
// wraps modulo TapeSize; cell arithmetic wraps modulo 256.
const TapeSize = 65536

// Unresolved marks a LoopStart/LoopEnd target that has not yet been
// through the bracket matcher.
const Unresolved = -1

// Op identifies one case of the IR instruction.
type Op int

const (
	// Shift moves the pointer by Offset, modulo TapeSize.
	Shift Op = iota
	// Arithmetic adds Delta to the current cell, modulo 256.
	Arithmetic
	// LoopStart jumps past its matched LoopEnd if the current cell is zero.
	LoopStart
	// LoopEnd jumps back to its matched LoopStart if the current cell is nonzero.
	LoopEnd
	// Input reads one byte from the program's input into the current cell.
	Input
	// Output writes the current cell to the program's output.
	Output
	// Zero sets the current cell to 0.
	Zero
	// Multiply adds the current cell times Factor to the cell at Offset,
	// then zeroes the current cell.
	Multiply
	// Move adds the current cell to the cell at Offset, then zeroes the
	// current cell.
	Move
	// AnchorRight scans rightward for a cell holding 255.
	AnchorRight
	// AnchorLeft scans leftward for a cell holding 255.
	AnchorLeft
)

func (o Op) String() string {
	switch o {
	case Shift:
		return "Shift"
	case Arithmetic:
		return "Arithmetic"
	case LoopStart:
		return "LoopStart"
	case LoopEnd:
		return "LoopEnd"
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Zero:
		return "Zero"
	case Multiply:
		return "Multiply"
	case Move:
		return "Move"
	case AnchorRight:
		return "AnchorRight"
	case AnchorLeft:
		return "AnchorLeft"
	default:
		return "Op(?)"
	}
}

// Inst is one tagged IR instruction. Only the fields relevant to its Op
// are meaningful; this mirrors a sum type with a flat struct, the same
// shape cpu.DecodedInstruction uses for decoded m68k opcodes.
type Inst struct {
	Op Op

	// Offset is used by Shift (pointer delta), Multiply and Move
	// (destination cell offset from the current pointer).
	Offset int

	// Delta is used by Arithmetic (cell delta); Factor is used by
	// Multiply (an 8-bit unsigned value 0-255).
	Delta int8
	Factor uint8

	// Target is the matched bracket partner's index, valid only after
	// Match has run on a LoopStart/LoopEnd.
	Target int
}

// Program is a matched-or-unmatched IR sequence plus the pass state a
// backend needs to know about it.
type Program struct {
	Insts  *chunklist.List[Inst]
	Matched bool
}

// Len is a convenience accessor over the underlying chunklist.
func (p *Program) Len() int {
	return p.Insts.Len()
}
