package emitter_test

import (
	"strings"
	"testing"

	"tapeforge/emitter"
	"tapeforge/ir"
)

func build(t *testing.T, source string) *ir.Program {
	t.Helper()
	prog, _, _, err := ir.Build(source, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return prog
}

func TestEmitProducesFasmPreamble(t *testing.T) {
	prog := build(t, "+")
	var out strings.Builder
	if err := emitter.Emit(prog, emitter.EmitOptions{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"format ELF64", "public _start", "tape rb 65536", "add byte [tape + r8], 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestEmitLoopLabelsAreBalanced(t *testing.T) {
	prog := build(t, "[>]")
	var out strings.Builder
	if err := emitter.Emit(prog, emitter.EmitOptions{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "o0:") || !strings.Contains(text, "c0:") || !strings.Contains(text, "jmp o0") {
		t.Errorf("expected a matched o0/c0 label pair, got:\n%s", text)
	}
}

func TestEmitRejectsMatchedProgram(t *testing.T) {
	prog, _, _, err := ir.Build("+++", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out strings.Builder
	if err := emitter.Emit(prog, emitter.EmitOptions{}, &out); err == nil {
		t.Fatal("expected an error for a matched program")
	}
}

func TestEmitLinkLibcSelectsMemchr(t *testing.T) {
	prog := build(t, "[->+]")
	var withLibc, withoutLibc strings.Builder
	if err := emitter.Emit(prog, emitter.EmitOptions{LinkLibc: true}, &withLibc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := emitter.Emit(prog, emitter.EmitOptions{LinkLibc: false}, &withoutLibc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(withLibc.String(), "extrn memchr") {
		t.Error("expected LinkLibc output to extern memchr")
	}
	if strings.Contains(withoutLibc.String(), "extrn memchr") {
		t.Error("expected non-libc output to avoid memchr")
	}
	if !strings.Contains(withoutLibc.String(), "r_glide:") {
		t.Error("expected non-libc output to use the inline glide loop")
	}
}

func TestEmitMultiplyUsesPositiveOffsetRoutine(t *testing.T) {
	prog := build(t, "[>++<-]")
	var out strings.Builder
	if err := emitter.Emit(prog, emitter.EmitOptions{}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "call m\n") {
		t.Errorf("expected positive-offset multiply call, got:\n%s", text)
	}
}
