// Package interpreter is the direct-execution backend: it walks a matched
// IR program against an owned 65536-byte tape and a 16-bit pointer,
// executing each instruction immediately rather than translating it.
package interpreter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"tapeforge/ir"
)

// ErrUnmatched is returned by Run if the program has not been through
// ir.Match; the interpreter's loop dispatch depends on resolved targets.
var ErrUnmatched = fmt.Errorf("interpreter: program has not been through the bracket matcher")

// ErrAnchorExhausted is returned when an AnchorRight/AnchorLeft scan walks
// the whole tape ring without finding a cell holding 255.
var ErrAnchorExhausted = fmt.Errorf("interpreter: infinite loop detected during anchor scan")

// flusher is satisfied by *bufio.Writer and anything else that can flush
// buffered output. Output is flushed after every byte so streaming output
// is visible immediately.
type flusher interface {
	Flush() error
}

// Machine is the interpreter's owned state: the tape, the pointer, and the
// program's I/O streams.
type Machine struct {
	Tape [ir.TapeSize]byte
	Ptr  uint16

	In  io.Reader
	Out io.Writer
}

// New creates a machine with a zeroed tape, reading from in and writing to
// out. If out does not already buffer and flush on its own, callers should
// wrap it in a *bufio.Writer so Run's per-byte flush has something to do;
// Run flushes unconditionally when Out implements flusher.
func New(in io.Reader, out io.Writer) *Machine {
	return &Machine{In: in, Out: out}
}

// Run executes prog to completion. prog must already have been through
// ir.Match. Run returns the first I/O or anchor-scan error encountered;
// every error is fatal to the run.
func (m *Machine) Run(prog *ir.Program) error {
	if !prog.Matched {
		return ErrUnmatched
	}

	reader := bufio.NewReader(m.In)
	pc := 0
	n := prog.Len()
	for pc < n {
		inst := prog.Insts.At(pc)
		switch inst.Op {
		case ir.Shift:
			m.Ptr = uint16(int(m.Ptr) + inst.Offset)

		case ir.Arithmetic:
			m.Tape[m.Ptr] += byte(inst.Delta)

		case ir.LoopStart:
			if m.Tape[m.Ptr] == 0 {
				pc = inst.Target
			}

		case ir.LoopEnd:
			if m.Tape[m.Ptr] != 0 {
				pc = inst.Target
			}

		case ir.Input:
			b, err := reader.ReadByte()
			if err != nil {
				return fmt.Errorf("interpreter: input failed: %w", err)
			}
			m.Tape[m.Ptr] = b

		case ir.Output:
			if err := m.writeByte(m.Tape[m.Ptr]); err != nil {
				return fmt.Errorf("interpreter: output failed: %w", err)
			}

		case ir.Zero:
			m.Tape[m.Ptr] = 0

		case ir.Multiply:
			dst := m.cellAt(inst.Offset)
			m.Tape[dst] += m.Tape[m.Ptr] * inst.Factor
			m.Tape[m.Ptr] = 0

		case ir.Move:
			dst := m.cellAt(inst.Offset)
			m.Tape[dst] += m.Tape[m.Ptr]
			m.Tape[m.Ptr] = 0

		case ir.AnchorRight:
			if err := m.anchor(1); err != nil {
				return err
			}

		case ir.AnchorLeft:
			if err := m.anchor(-1); err != nil {
				return err
			}

		default:
			return fmt.Errorf("interpreter: unhandled op %s", inst.Op)
		}
		pc++
	}
	return nil
}

// cellAt returns the tape index offset cells from the current pointer,
// wrapping modulo TapeSize.
func (m *Machine) cellAt(offset int) uint16 {
	return uint16(int(m.Ptr) + offset)
}

func (m *Machine) writeByte(b byte) error {
	if _, err := m.Out.Write([]byte{b}); err != nil {
		return err
	}
	if f, ok := m.Out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// anchor implements the AnchorRight (dir=1) / AnchorLeft (dir=-1) compound:
// a no-op if the current cell is already zero, otherwise decrement the
// current cell and scan in dir for a neighboring cell holding 255,
// wrapping around the ring exactly once before giving up.
func (m *Machine) anchor(dir int) error {
	if m.Tape[m.Ptr] == 0 {
		return nil
	}
	m.Tape[m.Ptr]--

	if idx, ok := m.scan(dir); ok {
		m.Ptr = idx
		m.Tape[idx] = 0
		return nil
	}
	return ErrAnchorExhausted
}

// scan walks the ring starting just past the current pointer in direction
// dir, looking for a byte equal to 255. It uses bytes.IndexByte /
// bytes.LastIndexByte over the two contiguous spans a wraparound splits
// the ring into, rather than a manual byte-by-byte loop.
func (m *Machine) scan(dir int) (uint16, bool) {
	if dir > 0 {
		if i := bytes.IndexByte(m.Tape[m.Ptr+1:], 0xFF); i >= 0 {
			return m.Ptr + 1 + uint16(i), true
		}
		if i := bytes.IndexByte(m.Tape[:m.Ptr+1], 0xFF); i >= 0 {
			return uint16(i), true
		}
		return 0, false
	}

	if i := bytes.LastIndexByte(m.Tape[:m.Ptr], 0xFF); i >= 0 {
		return uint16(i), true
	}
	if i := bytes.LastIndexByte(m.Tape[m.Ptr:], 0xFF); i >= 0 {
		return m.Ptr + uint16(i), true
	}
	return 0, false
}
