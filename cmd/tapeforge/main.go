// Command tapeforge drives the middle end over a source file and hands
// the result to one of three backends. It is a thin driver: file I/O and
// backend selection live here, the pipeline's actual semantics live in
// the ir, interpreter, codegen, and emitter packages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"tapeforge/codegen"
	"tapeforge/emitter"
	"tapeforge/interpreter"
	"tapeforge/ir"
)

var (
	backend  = flag.String("backend", "run", "Backend to use: run, llvm, or asm.")
	linkLibc = flag.Bool("link-libc", false, "Assembly backend only: call memchr/memrchr for anchor scans instead of an inline glide loop.")
	out      = flag.String("o", "", "Output file for llvm/asm backends; defaults to stdout.")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Println("Usage: tapeforge [options] <sourcefile>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		log.Fatalf("tapeforge: %v", err)
	}
}

func run(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading source file %q", path)
	}

	switch *backend {
	case "run":
		return runInterpreter(string(source))
	case "llvm":
		return runCodegen(string(source))
	case "asm":
		return runEmitter(string(source))
	default:
		return errors.Errorf("unknown backend %q (want run, llvm, or asm)", *backend)
	}
}

func runInterpreter(source string) error {
	prog, fused, idioms, err := ir.Build(source, true)
	if err != nil {
		return errors.Wrap(err, "building program")
	}
	fmt.Fprintf(os.Stderr, "* collapsing repeated instructions / pruned %d\n", fused)
	fmt.Fprintf(os.Stderr, "* collapsing idioms / pruned %d\n", idioms)

	m := interpreter.New(os.Stdin, os.Stdout)
	if err := m.Run(prog); err != nil {
		return errors.Wrap(err, "running program")
	}
	return nil
}

func runCodegen(source string) error {
	prog, _, _, err := ir.Build(source, false)
	if err != nil {
		return errors.Wrap(err, "building program")
	}
	mod, err := codegen.Build(prog)
	if err != nil {
		return errors.Wrap(err, "generating LLVM IR")
	}

	w, closeW, err := openOutput()
	if err != nil {
		return err
	}
	defer closeW()

	fmt.Fprint(w, mod.String())
	return nil
}

func runEmitter(source string) error {
	prog, _, _, err := ir.Build(source, false)
	if err != nil {
		return errors.Wrap(err, "building program")
	}

	w, closeW, err := openOutput()
	if err != nil {
		return err
	}
	defer closeW()

	if err := emitter.Emit(prog, emitter.EmitOptions{LinkLibc: *linkLibc}, w); err != nil {
		return errors.Wrap(err, "emitting assembly")
	}
	return nil
}

func openOutput() (*os.File, func(), error) {
	if *out == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(*out)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating output file %q", *out)
	}
	return f, func() { f.Close() }, nil
}
