package ir

// FuseRuns is optimizer pass A: it fuses adjacent homogeneous pointer
// shifts or cell arithmetic into a single instruction, dropping any
// arithmetic fusion whose wrapped result is a no-op. It returns the number
// of instructions removed.
//
// An alternative design guards arithmetic fusion with "sum < int8 max",
// an asymmetric check that mixes a sentinel comparison into what should
// be plain wrapping arithmetic. tapeforge instead always fuses and
// relies on Go's defined wraparound for fixed-width signed integer
// addition, then drops the fused instruction if the wrapped result is
// zero: a uniform rule with no asymmetric edge case to hit.
func FuseRuns(p *Program) int {
	insts := p.Insts
	pruned := 0
	idx := 0
	for idx < insts.Len() {
		if idx+1 >= insts.Len() {
			break
		}
		cur := insts.Ptr(idx)
		next := insts.At(idx + 1)

		switch {
		case cur.Op == Shift && next.Op == Shift:
			cur.Offset += next.Offset
			insts.Remove(idx + 1)
			pruned++

		case cur.Op == Arithmetic && next.Op == Arithmetic:
			cur.Delta += next.Delta // wraps modulo 256 per Go's int8 semantics
			removeCur := cur.Delta == 0
			insts.Remove(idx + 1)
			pruned++
			if removeCur {
				insts.Remove(idx)
				pruned++
				// The instructions now straddling idx were never compared
				// to each other: step back so the pair that slid together
				// here gets examined next, the same way two Shifts fused
				// in place are revisited through the unchanged cursor.
				if idx > 0 {
					idx--
				}
			}

		default:
			idx++
		}
	}
	return pruned
}
