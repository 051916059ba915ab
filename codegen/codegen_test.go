package codegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapeforge/codegen"
	"tapeforge/ir"
)

func TestBuildProducesMainFunction(t *testing.T) {
	prog, _, _, err := ir.Build("++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.", false)
	require.NoError(t, err)

	mod, err := codegen.Build(prog)
	require.NoError(t, err)
	require.NotNil(t, mod)

	text := mod.String()
	assert.Contains(t, text, "tapeforge_main")
	assert.Contains(t, text, "@tape")
	assert.Contains(t, text, "declare i32 @getchar")
	assert.Contains(t, text, "declare i32 @putchar")
}

func TestBuildRejectsMatchedProgram(t *testing.T) {
	prog, _, _, err := ir.Build("+++", true)
	require.NoError(t, err)

	_, err = codegen.Build(prog)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unmatched"))
}

func TestBuildRejectsUnterminatedLoop(t *testing.T) {
	// A program containing a bare, never-closed LoopStart cannot occur
	// from ir.Build (Verify rejects unbalanced source), so construct the
	// unmatched program directly to exercise codegen's own guard.
	prog := ir.Compile("[+")
	_, err := codegen.Build(prog)
	assert.Error(t, err)
}
