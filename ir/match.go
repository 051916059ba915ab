package ir

// Match resolves every LoopStart/LoopEnd pair in p to a mutual index. It is
// required before interpretation; codegen and the assembly emitter derive
// their own control flow from the linear walk and do not need it.
//
// Verify guarantees the source was structurally bracket-balanced (no
// closing bracket ever precedes its opener, not just equal counts), and
// every idiom rewrite in RecognizeIdioms replaces a balanced window with
// one non-bracket instruction, so that structure is preserved end to
// end: the forward scan below always finds a partner and never needs an
// error return.
func Match(p *Program) {
	insts := p.Insts
	for i := 0; i < insts.Len(); i++ {
		if insts.At(i).Op != LoopStart {
			continue
		}
		depth := 1
		j := i + 1
		for depth > 0 {
			switch insts.At(j).Op {
			case LoopStart:
				depth++
			case LoopEnd:
				depth--
			}
			if depth > 0 {
				j++
			}
		}
		insts.Ptr(i).Target = j
		insts.Ptr(j).Target = i
	}
	p.Matched = true
}
