package ir

import "fmt"

// Build runs the full middle end over source: bracket verification,
// lowering, run fusion, and idiom recognition. If match is true the
// bracket matcher also runs, which the interpreter backend requires and
// the codegen and emitter backends do not. Build returns the resulting
// program along with diagnostic counts a driver may choose to log on a
// side channel; these are informational only, never part of the
// functional contract.
func Build(source string, match bool) (prog *Program, fused int, idioms int, err error) {
	if err := Verify(source); err != nil {
		return nil, 0, 0, fmt.Errorf("bracket check failed: %w", err)
	}
	prog = Compile(source)
	fused = FuseRuns(prog)
	idioms = RecognizeIdioms(prog)
	if match {
		Match(prog)
	}
	return prog, fused, idioms, nil
}
