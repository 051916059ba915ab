package ir

import "tapeforge/chunklist"

type instList = chunklist.List[Inst]

// RecognizeIdioms is optimizer pass B: it rewrites fixed short templates of
// primitive instructions into compound opcodes (Zero, Move, Multiply,
// AnchorRight, AnchorLeft). It returns the number of instructions removed.
//
// At each cursor position the three window sizes are checked independently
// and in priority order — six-element (Move, then Multiply), five-element
// (Anchor), three-element (Zero) — against whatever the sequence currently
// holds at that index, so a rewrite made by an earlier check in the same
// step is visible to a later one. The cursor itself advances exactly once
// per outer step regardless of how many of the three checks fired.
func RecognizeIdioms(p *Program) int {
	insts := p.Insts
	pruned := 0

	for idx := 0; idx < insts.Len(); {
		if idx+5 < insts.Len() {
			if n, ok := matchSixWindow(insts, idx); ok {
				pruned += n
			}
		}
		if idx+4 < insts.Len() {
			if n, ok := matchAnchorWindow(insts, idx); ok {
				pruned += n
			}
		}
		if idx+2 < insts.Len() {
			if n, ok := matchZeroWindow(insts, idx); ok {
				pruned += n
			}
		}
		idx++
	}
	return pruned
}

// matchSixWindow checks the Move and Multiply templates:
//
//	LoopStart, Shift(+o), Arithmetic(+k), Shift(-o), Arithmetic(-1), LoopEnd
//
// k == 1 is the Move special case and is checked first so the simpler op
// wins; any other k >= 0 collapses to Multiply.
func matchSixWindow(insts *instList, idx int) (int, bool) {
	a0 := insts.At(idx)
	a1 := insts.At(idx + 1)
	a2 := insts.At(idx + 2)
	a3 := insts.At(idx + 3)
	a4 := insts.At(idx + 4)
	a5 := insts.At(idx + 5)

	if a0.Op != LoopStart || a1.Op != Shift || a2.Op != Arithmetic ||
		a3.Op != Shift || a4.Op != Arithmetic || a5.Op != LoopEnd {
		return 0, false
	}
	if a1.Offset != -a3.Offset {
		return 0, false
	}
	if a4.Delta != -1 {
		return 0, false
	}
	if a2.Delta < 0 {
		return 0, false
	}

	var replacement Inst
	if a2.Delta == 1 {
		replacement = Inst{Op: Move, Offset: a1.Offset}
	} else {
		replacement = Inst{Op: Multiply, Offset: a1.Offset, Factor: uint8(a2.Delta)}
	}

	insts.Set(idx, replacement)
	removeDescending(insts, idx+5, idx+4, idx+3, idx+2, idx+1)
	return 5, true
}

// matchAnchorWindow checks the anchor template:
//
//	LoopStart, Arithmetic(-1), Shift(+1|-1), Arithmetic(+1), LoopEnd
func matchAnchorWindow(insts *instList, idx int) (int, bool) {
	a0 := insts.At(idx)
	a1 := insts.At(idx + 1)
	a2 := insts.At(idx + 2)
	a3 := insts.At(idx + 3)
	a4 := insts.At(idx + 4)

	if a0.Op != LoopStart || a1.Op != Arithmetic || a2.Op != Shift ||
		a3.Op != Arithmetic || a4.Op != LoopEnd {
		return 0, false
	}
	if a1.Delta != -1 || a3.Delta != 1 {
		return 0, false
	}
	if a2.Offset != 1 && a2.Offset != -1 {
		return 0, false
	}

	op := AnchorRight
	if a2.Offset == -1 {
		op = AnchorLeft
	}
	insts.Set(idx, Inst{Op: op})
	removeDescending(insts, idx+4, idx+3, idx+2, idx+1)
	return 4, true
}

// matchZeroWindow checks the zero template:
//
//	LoopStart, Arithmetic(delta), LoopEnd
//
// Accepting any delta here is unsound in general: on wrapping 8-bit cells,
// a loop that repeatedly adds an even, non-zero delta is not guaranteed to
// ever land on zero from an arbitrary starting value (e.g. delta=2
// starting from 1 cycles through every odd byte and never hits 0).
// tapeforge takes the conservative reading and only rewrites when delta
// is odd (which includes the overwhelmingly common +1/-1 case), where
// repeated wrapping addition is a bijection on the residues mod 256 and
// is guaranteed to pass through zero.
func matchZeroWindow(insts *instList, idx int) (int, bool) {
	a0 := insts.At(idx)
	a1 := insts.At(idx + 1)
	a2 := insts.At(idx + 2)

	if a0.Op != LoopStart || a1.Op != Arithmetic || a2.Op != LoopEnd {
		return 0, false
	}
	if a1.Delta%2 == 0 {
		return 0, false
	}

	insts.Set(idx, Inst{Op: Zero})
	removeDescending(insts, idx+2, idx+1)
	return 2, true
}

// removeDescending removes the given logical indices, which callers must
// supply in descending order so earlier removals never invalidate later
// ones.
func removeDescending(insts *instList, indices ...int) {
	for _, i := range indices {
		insts.Remove(i)
	}
}
