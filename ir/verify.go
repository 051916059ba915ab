package ir

import "fmt"

// Verify scans raw source for bracket balance before lowering. It fails
// fast with the excess count on whichever side is unmatched, so the
// bracket matcher can later assume true structural balance and never
// needs an error path of its own.
//
// A closing bracket is rejected the moment it drives depth negative, not
// just when the final count is off: a count-balanced source like "][" has
// depth 0 at the end but opens no loop before closing one, which is not
// structurally valid and would otherwise reach Match and walk off the end
// of the program looking for a partner that was never there.
func Verify(source string) error {
	depth := 0
	for _, r := range source {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("%d unmatched closing bracket", -depth)
			}
		}
	}
	if depth > 0 {
		return fmt.Errorf("%d unmatched opening bracket", depth)
	}
	return nil
}
