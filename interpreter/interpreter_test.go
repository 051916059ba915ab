package interpreter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapeforge/interpreter"
	"tapeforge/ir"
)

func run(t *testing.T, source string, input string) (*interpreter.Machine, string) {
	t.Helper()
	prog, _, _, err := ir.Build(source, true)
	require.NoError(t, err)

	var out bytes.Buffer
	m := interpreter.New(strings.NewReader(input), &out)
	require.NoError(t, m.Run(prog))
	return m, out.String()
}

func TestEmptyProgram(t *testing.T) {
	_, out := run(t, "", "")
	assert.Equal(t, "", out)
}

func TestHelloWorld(t *testing.T) {
	const src = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>++++++++++++.------------.<-.<.+++.------.--------.>>+.>++."
	_, out := run(t, src, "")
	assert.Equal(t, "Hello, World!\n", out)
}

func TestClearCell(t *testing.T) {
	m, _ := run(t, "+++++[-]", "")
	assert.Equal(t, byte(0), m.Tape[0])
	assert.Equal(t, uint16(0), m.Ptr)
}

func TestCopyByMove(t *testing.T) {
	m, _ := run(t, "++++>[<+>-]", "")
	assert.Equal(t, byte(4), m.Tape[0])
	assert.Equal(t, byte(0), m.Tape[1])
}

func TestMultiply(t *testing.T) {
	m, _ := run(t, "+++[>++<-]", "")
	assert.Equal(t, byte(0), m.Tape[0])
	assert.Equal(t, byte(6), m.Tape[1])
}

func TestUnbalancedRejectedBeforeRunning(t *testing.T) {
	_, _, _, err := ir.Build("+++[>++", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 unmatched opening bracket")
}

func TestInputEchoesThroughOutput(t *testing.T) {
	_, out := run(t, ",.", "A")
	assert.Equal(t, "A", out)
}

func TestInputEOFIsFatal(t *testing.T) {
	prog, _, _, err := ir.Build(",", true)
	require.NoError(t, err)
	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	err = m.Run(prog)
	require.Error(t, err)
}

func TestAnchorRightFindsSentinel(t *testing.T) {
	prog, _, _, err := ir.Build("[->+]", true)
	require.NoError(t, err)
	require.Equal(t, 1, prog.Len())
	require.Equal(t, ir.AnchorRight, prog.Insts.At(0).Op)

	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	m.Tape[0] = 3
	m.Tape[5] = 0xFF
	require.NoError(t, m.Run(prog))
	assert.Equal(t, uint16(5), m.Ptr)
	assert.Equal(t, byte(0), m.Tape[5])
	assert.Equal(t, byte(2), m.Tape[0])
}

func TestAnchorLeftWrapsAround(t *testing.T) {
	prog, _, _, err := ir.Build("[-<+]", true)
	require.NoError(t, err)

	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	m.Ptr = 2
	m.Tape[2] = 5
	m.Tape[ir.TapeSize-1] = 0xFF
	require.NoError(t, m.Run(prog))
	assert.Equal(t, uint16(ir.TapeSize-1), m.Ptr)
}

func TestAnchorExhaustionIsAnError(t *testing.T) {
	prog, _, _, err := ir.Build("[->+]", true)
	require.NoError(t, err)

	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	m.Tape[0] = 1 // no 0xFF anywhere else on the tape
	err = m.Run(prog)
	require.ErrorIs(t, err, interpreter.ErrAnchorExhausted)
}

func TestAnchorNoOpOnZeroCell(t *testing.T) {
	prog, _, _, err := ir.Build("[->+]", true)
	require.NoError(t, err)

	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, m.Run(prog))
	assert.Equal(t, uint16(0), m.Ptr)
}

func TestPointerWraps(t *testing.T) {
	prog, _, _, err := ir.Build("<", true)
	require.NoError(t, err)
	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, m.Run(prog))
	assert.Equal(t, uint16(ir.TapeSize-1), m.Ptr)
}

func TestCellWraps(t *testing.T) {
	prog, _, _, err := ir.Build("-", true)
	require.NoError(t, err)
	m := interpreter.New(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, m.Run(prog))
	assert.Equal(t, byte(255), m.Tape[0])
}
