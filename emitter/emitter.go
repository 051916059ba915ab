// Package emitter consumes unmatched IR and writes a flat-assembler
// (fasm) ELF64 text listing that, once assembled and linked, realizes
// the same abstract machine the interpreter executes directly. Like
// codegen, it derives its own control flow from a single linear walk
// with an explicit label stack rather than from matched bracket targets.
package emitter

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"tapeforge/ir"
)

// EmitOptions controls details of the emitted listing.
type EmitOptions struct {
	// LinkLibc selects between two lowerings of the anchor idioms: a libc
	// memchr/memrchr call (set), or an inline glide loop over the raw tape
	// (unset, the default). Both stop at the same cell when some cell holds
	// 255. When no cell does, the memchr lowering prints "infinite loop
	// detected" and exits non-zero; the inline glide loop has no such check
	// and keeps scanning.
	LinkLibc bool
}

const preamble = `; tapeforge-generated tape machine
format ELF64
public _start

section '.bss' writable
tape rb 65536

section '.text' executable
_start:
xor r8, r8
`

// Emit writes prog as fasm text to w. prog must not have been through
// ir.Match; Emit manages its own label numbering from a linear walk, the
// same way codegen manages its own block stack.
func Emit(prog *ir.Program, opts EmitOptions, w io.Writer) error {
	if prog.Matched {
		return errors.New("emitter: expected unmatched IR, got a program that has been through the bracket matcher")
	}

	bw := &errWriter{w: w}
	bw.printf(preamble)

	var labelStack []int
	nextLabel := 0

	for _, inst := range prog.Insts.Values() {
		switch inst.Op {
		case ir.Shift:
			if inst.Offset < 0 {
				bw.printf("sub r8, %d\n", -inst.Offset)
			} else {
				bw.printf("add r8, %d\n", inst.Offset)
			}
			bw.printf("and r8, 0xFFFF\n")

		case ir.Arithmetic:
			if inst.Delta < 0 {
				bw.printf("sub byte [tape + r8], %d\n", -int(inst.Delta))
			} else {
				bw.printf("add byte [tape + r8], %d\n", inst.Delta)
			}

		case ir.LoopStart:
			label := nextLabel
			nextLabel++
			bw.printf("o%x:\n", label)
			bw.printf("cmp byte [tape + r8], 0\n")
			bw.printf("jz c%x\n", label)
			labelStack = append(labelStack, label)

		case ir.LoopEnd:
			if len(labelStack) == 0 {
				return errors.New("emitter: unmatched LoopEnd")
			}
			label := labelStack[len(labelStack)-1]
			labelStack = labelStack[:len(labelStack)-1]
			bw.printf("jmp o%x\n", label)
			bw.printf("c%x:\n", label)

		case ir.Input:
			bw.printf("call i\n")

		case ir.Output:
			bw.printf("call o\n")

		case ir.Zero:
			bw.printf("call z\n")

		case ir.Multiply:
			suffix := ""
			if inst.Offset <= 0 {
				suffix = "s"
			}
			bw.printf("mov r13b, %d\n", inst.Factor)
			bw.printf("mov r12, %d\n", abs(inst.Offset))
			bw.printf("call m%s\n", suffix)

		case ir.Move:
			suffix := ""
			if inst.Offset <= 0 {
				suffix = "s"
			}
			bw.printf("mov r12, %d\n", abs(inst.Offset))
			bw.printf("call M%s\n", suffix)

		case ir.AnchorRight:
			bw.printf("call r\n")

		case ir.AnchorLeft:
			bw.printf("call l\n")

		default:
			return errors.Errorf("emitter: unhandled op %s", inst.Op)
		}
	}
	if len(labelStack) != 0 {
		return errors.New("emitter: unterminated loop at end of program")
	}

	bw.printf(exitAndMacros)
	if opts.LinkLibc {
		bw.printf(anchorLibc)
	} else {
		bw.printf(anchorInline)
	}
	return bw.err
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// errWriter collapses the repeated "if err != nil { return err }" pattern
// fmt.Fprintf would otherwise need after every single line of output.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

const exitAndMacros = `
; exit syscall
mov rax, 60
xor rdi, rdi
syscall

; ` + "`,`" + ` -- reads one byte of input into the current cell
i:
xor rax, rax
xor rdi, rdi
lea rsi, byte [tape + r8]
mov rdx, 1
syscall
ret

; ` + "`.`" + ` -- writes the current cell
o:
mov rax, 1
mov rdi, 1
lea rsi, byte [tape + r8]
mov rdx, 1
syscall
ret

; zero current cell
z:
mov byte [tape + r8], 0
ret

; multiply (positive output offset)
m:
add r12, r8
and r12, 0xFFFF
mov al, r13b
mul byte [tape + r8]
add byte [tape + r12], al
mov byte [tape + r8], 0
ret

; multiply (negative output offset)
ms:
mov r14, r8
sub r14, r12
and r14, 0xFFFF
mov al, r13b
mul byte [tape + r8]
add byte [tape + r14], al
mov byte [tape + r8], 0
ret

; move (positive output offset)
M:
add r12, r8
and r12, 0xFFFF
mov r13b, byte [tape + r8]
add byte [tape + r12], r13b
mov byte [tape + r8], 0
ret

; move (negative output offset)
Ms:
mov r14, r8
sub r14, r12
and r14, 0xFFFF
mov r13b, byte [tape + r8]
add byte [tape + r14], r13b
mov byte [tape + r8], 0
ret
`

const anchorLibc = `
extrn memchr
extrn memrchr

; find right anchor (memchr-backed)
r:
call anchor_start
lea rdi, byte [tape + r8]
mov rsi, 255
mov rdx, 0x10000
sub rdx, r8
call memchr
cmp rax, 0
jz r_wrap
jmp anchor_done
r_wrap:
lea rdi, byte [tape]
mov rsi, 255
mov rdx, r8
call memchr
cmp rax, 0
jz anchor_exhausted
jmp anchor_done

; find left anchor (memrchr-backed)
l:
call anchor_start
lea rdi, byte [tape]
mov rsi, 255
mov rdx, r8
call memrchr
cmp rax, 0
jz l_wrap
jmp anchor_done
l_wrap:
lea rdi, byte [tape + r8]
mov rsi, 255
mov rdx, 0x10000
sub rdx, r8
call memrchr
cmp rax, 0
jz anchor_exhausted
jmp anchor_done

anchor_start:
cmp byte [tape + r8], 0
jz anchor_short_circuit
sub byte [tape + r8], 1
ret

anchor_short_circuit:
add rsp, 8
ret

anchor_done:
mov r8, rax
lea rax, byte [tape]
sub r8, rax
mov byte [tape + r8], 0
ret

; infinite loop detected: report and exit non-zero
anchor_exhausted:
mov rax, 1
mov rdi, 1
lea rsi, byte [anchor_exhausted_msg]
mov rdx, anchor_exhausted_msg_len
syscall
mov rax, 60
mov rdi, 1
syscall

section '.data'
anchor_exhausted_msg db 'infinite loop detected', 0xA
anchor_exhausted_msg_len = $-anchor_exhausted_msg
`

const anchorInline = `
; find right anchor (inline glide, no libc)
r:
call anchor_start
r_glide:
add r8, 1
and r8, 0xFFFF
cmp byte [tape + r8], 255
jne r_glide
jmp anchor_end

; find left anchor (inline glide, no libc)
l:
call anchor_start
l_glide:
sub r8, 1
and r8, 0xFFFF
cmp byte [tape + r8], 255
jne l_glide
jmp anchor_end

anchor_start:
cmp byte [tape + r8], 0
jz anchor_short_circuit
sub byte [tape + r8], 1
ret

anchor_short_circuit:
add rsp, 8
ret

anchor_end:
mov byte [tape + r8], 0
ret
`
