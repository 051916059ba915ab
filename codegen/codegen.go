// Package codegen is the native codegen backend. It consumes unmatched
// IR — no bracket-matcher pass required — and builds an in-memory LLVM
// module realizing the same abstract machine the interpreter executes
// directly. Turning the resulting module into a running JIT or a linked
// AOT binary is external-tool work (an LLVM execution engine, or llc
// plus a linker), so Build's job ends at a well-formed *ir.Module.
//
// Control flow is derived from a single linear walk over the instruction
// sequence with an explicit stack of loop blocks, rather than from the
// bracket matcher's resolved targets.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	tfir "tapeforge/ir"
)

// tapeSize is tfir.TapeSize under a short local name.
const tapeSize = tfir.TapeSize

// loopFrame is one entry in the block stack codegen keeps while walking
// the unmatched instruction sequence, one per currently-open LoopStart.
type loopFrame struct {
	header *ir.Block
	exit   *ir.Block
}

// builder holds the in-progress module and the cursor state a linear walk
// over unmatched IR needs.
type builder struct {
	module *ir.Module
	fn     *ir.Func
	tape   *ir.Global
	ptr    *ir.InstAlloca

	cur   *ir.Block
	stack []loopFrame

	getchar *ir.Func
	putchar *ir.Func
	abort   *ir.Func

	blockCount int
}

// Build lowers an unmatched program into an LLVM module with a single
// exported function, tapeforge_main, that runs the program against a
// file-scope tape global and returns 0 on success.
func Build(prog *tfir.Program) (*ir.Module, error) {
	if prog.Matched {
		return nil, errors.New("codegen: expected unmatched IR, got a program that has been through the bracket matcher")
	}

	b := newBuilder()
	for _, inst := range prog.Insts.Values() {
		if err := b.emit(inst); err != nil {
			return nil, errors.Wrapf(err, "codegen")
		}
	}
	if len(b.stack) != 0 {
		return nil, errors.New("codegen: unterminated loop at end of program")
	}
	b.cur.NewRet(constant.NewInt(types.I32, 0))
	return b.module, nil
}

func newBuilder() *builder {
	m := ir.NewModule()

	tapeType := types.NewArray(tapeSize, types.I8)
	tape := m.NewGlobalDef("tape", constant.NewZeroInitializer(tapeType))

	getchar := m.NewFunc("getchar", types.I32)
	putchar := m.NewFunc("putchar", types.I32, ir.NewParam("c", types.I32))
	abort := m.NewFunc("abort", types.Void)

	fn := m.NewFunc("tapeforge_main", types.I32)
	entry := fn.NewBlock("entry")
	ptr := entry.NewAlloca(types.I16)
	entry.NewStore(constant.NewInt(types.I16, 0), ptr)

	return &builder{
		module:  m,
		fn:      fn,
		tape:    tape,
		ptr:     ptr,
		cur:     entry,
		getchar: getchar,
		putchar: putchar,
		abort:   abort,
	}
}

func (b *builder) newBlock(name string) *ir.Block {
	b.blockCount++
	blk := b.fn.NewBlock(fmt.Sprintf("%s.%d", name, b.blockCount))
	return blk
}

// cellAddr computes the address of the tape cell offset positions from the
// current pointer, wrapping modulo tapeSize via i16 arithmetic before
// zero-extending to the i64 GEP index LLVM requires.
func (b *builder) cellAddr(blk *ir.Block, offset int) *ir.InstGetElementPtr {
	curPtr := blk.NewLoad(types.I16, b.ptr)
	var idx16 value.Value = curPtr
	if offset != 0 {
		idx16 = blk.NewAdd(curPtr, constant.NewInt(types.I16, int64(offset)))
	}
	idx64 := blk.NewZExt(idx16, types.I64)
	return blk.NewGetElementPtr(types.NewArray(tapeSize, types.I8), b.tape,
		constant.NewInt(types.I64, 0), idx64)
}

func (b *builder) currentCellAddr(blk *ir.Block) *ir.InstGetElementPtr {
	return b.cellAddr(blk, 0)
}

func (b *builder) emit(inst tfir.Inst) error {
	switch inst.Op {
	case tfir.Shift:
		cur := b.cur.NewLoad(types.I16, b.ptr)
		next := b.cur.NewAdd(cur, constant.NewInt(types.I16, int64(inst.Offset)))
		b.cur.NewStore(next, b.ptr)

	case tfir.Arithmetic:
		addr := b.currentCellAddr(b.cur)
		val := b.cur.NewLoad(types.I8, addr)
		next := b.cur.NewAdd(val, constant.NewInt(types.I8, int64(inst.Delta)))
		b.cur.NewStore(next, addr)

	case tfir.Zero:
		addr := b.currentCellAddr(b.cur)
		b.cur.NewStore(constant.NewInt(types.I8, 0), addr)

	case tfir.Move:
		b.emitMoveOrMultiply(inst, false)

	case tfir.Multiply:
		b.emitMoveOrMultiply(inst, true)

	case tfir.Input:
		addr := b.currentCellAddr(b.cur)
		got := b.cur.NewCall(b.getchar)
		b.cur.NewStore(b.cur.NewTrunc(got, types.I8), addr)

	case tfir.Output:
		addr := b.currentCellAddr(b.cur)
		val := b.cur.NewLoad(types.I8, addr)
		b.cur.NewCall(b.putchar, b.cur.NewZExt(val, types.I32))

	case tfir.LoopStart:
		b.emitLoopStart()

	case tfir.LoopEnd:
		if err := b.emitLoopEnd(); err != nil {
			return err
		}

	case tfir.AnchorRight:
		b.emitAnchor(1)

	case tfir.AnchorLeft:
		b.emitAnchor(-1)

	default:
		return errors.Errorf("unhandled op %s", inst.Op)
	}
	return nil
}

func (b *builder) emitMoveOrMultiply(inst tfir.Inst, multiply bool) {
	srcAddr := b.currentCellAddr(b.cur)
	srcVal := b.cur.NewLoad(types.I8, srcAddr)

	contribution := value.Value(srcVal)
	if multiply {
		contribution = b.cur.NewMul(srcVal, constant.NewInt(types.I8, int64(inst.Factor)))
	}

	dstAddr := b.cellAddr(b.cur, inst.Offset)
	dstVal := b.cur.NewLoad(types.I8, dstAddr)
	sum := b.cur.NewAdd(dstVal, contribution)
	b.cur.NewStore(sum, dstAddr)
	b.cur.NewStore(constant.NewInt(types.I8, 0), srcAddr)
}

// emitLoopStart realizes a LoopStart as the header of a standard
// while-loop lowering: the header block tests the current cell and
// conditionally branches into the body (pushed as the walk's new current
// block) or the exit block.
func (b *builder) emitLoopStart() {
	header := b.newBlock("loop.header")
	body := b.newBlock("loop.body")
	exit := b.newBlock("loop.exit")

	b.cur.NewBr(header)

	addr := b.currentCellAddr(header)
	val := header.NewLoad(types.I8, addr)
	cond := header.NewICmp(enum.IPredNE, val, constant.NewInt(types.I8, 0))
	header.NewCondBr(cond, body, exit)

	b.stack = append(b.stack, loopFrame{header: header, exit: exit})
	b.cur = body
}

// emitLoopEnd closes the innermost open loop by branching back to its
// header, which re-tests the cell and decides whether to re-enter the
// body or fall through to the exit block the walk continues from.
func (b *builder) emitLoopEnd() error {
	if len(b.stack) == 0 {
		return errors.New("unmatched LoopEnd")
	}
	frame := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	b.cur.NewBr(frame.header)
	b.cur = frame.exit
	return nil
}

// emitAnchor inlines the anchor scan: decrement the current cell (the
// no-op-on-zero case is folded into the same check that guards entering
// the scan at all), then step through the ring in direction dir counting
// cells visited, comparing each to 255, and trapping via abort() if the
// whole ring is exhausted first.
func (b *builder) emitAnchor(dir int) {
	addr := b.currentCellAddr(b.cur)
	val := b.cur.NewLoad(types.I8, addr)
	isZero := b.cur.NewICmp(enum.IPredEQ, val, constant.NewInt(types.I8, 0))

	skip := b.newBlock("anchor.skip")
	scan := b.newBlock("anchor.scan")
	b.cur.NewCondBr(isZero, skip, scan)

	i64 := types.I64
	scan.NewStore(scan.NewSub(val, constant.NewInt(types.I8, 1)), addr)
	counter := scan.NewAlloca(i64)
	scan.NewStore(constant.NewInt(i64, 0), counter)

	header := b.newBlock("anchor.loop.header")
	body := b.newBlock("anchor.loop.body")
	advance := b.newBlock("anchor.advance")
	found := b.newBlock("anchor.found")
	trap := b.newBlock("anchor.trap")
	done := b.newBlock("anchor.done")

	scan.NewBr(header)

	// header: loop while fewer than tapeSize-1 cells have been visited.
	n := header.NewLoad(i64, counter)
	more := header.NewICmp(enum.IPredSLT, n, constant.NewInt(i64, tapeSize-1))
	header.NewCondBr(more, body, trap)

	// body: compute the next candidate cell (ptr + dir*(n+1), wrapped) and
	// test it against the 255 sentinel.
	cnt := body.NewLoad(i64, counter)
	n16 := body.NewTrunc(cnt, types.I16)
	step := constant.NewInt(types.I16, int64(dir))
	delta := body.NewMul(step, body.NewAdd(n16, constant.NewInt(types.I16, 1)))
	curPtr := body.NewLoad(types.I16, b.ptr)
	candidate16 := body.NewAdd(curPtr, delta)
	candidate64 := body.NewZExt(candidate16, i64)
	candidateAddr := body.NewGetElementPtr(types.NewArray(tapeSize, types.I8), b.tape,
		constant.NewInt(i64, 0), candidate64)
	candidateVal := body.NewLoad(types.I8, candidateAddr)
	isSentinel := body.NewICmp(enum.IPredEQ, candidateVal, constant.NewInt(types.I8, 0xFF))
	body.NewCondBr(isSentinel, found, advance)

	// advance: not this one, count it and loop.
	advCnt := advance.NewLoad(i64, counter)
	advance.NewStore(advance.NewAdd(advCnt, constant.NewInt(i64, 1)), counter)
	advance.NewBr(header)

	// found: park the pointer there and consume the sentinel.
	found.NewStore(candidate16, b.ptr)
	found.NewStore(constant.NewInt(types.I8, 0), candidateAddr)
	found.NewBr(done)

	// trap: the whole ring was exhausted without finding a sentinel.
	trap.NewCall(b.abort)
	trap.NewUnreachable()

	skip.NewBr(done)

	b.cur = done
}
