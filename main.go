// Command compiler is the MyLang semantic analyser and LLVM-IR code
// generator's entry point: "compiler <source> <ast-dump> <ir-output>", per
// spec.md §6.
package main

import (
	"fmt"
	"os"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/compiler"
	"github.com/tcbbd/dragon-Compiler/internal/irverify"
	"github.com/tcbbd/dragon-Compiler/internal/util"
)

func run(opt util.Options) error {
	src, err := util.ReadSource(opt.Src)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	ir, err := compiler.Compile(src)
	if err != nil {
		msg := err.Error()
		if _, ok := err.(*ast.Error); !ok {
			msg = fmt.Sprintf("error: %s", err)
		}
		if werr := util.WriteFailure(opt.IrOut, msg); werr != nil {
			return fmt.Errorf("%s (and failed to write failure output: %s)", err, werr)
		}
		return err
	}

	if opt.VerifyIR {
		if err := irverify.Verify(ir); err != nil {
			if werr := util.WriteFailure(opt.IrOut, err.Error()); werr != nil {
				return fmt.Errorf("%s (and failed to write failure output: %s)", err, werr)
			}
			return err
		}
	}

	w, err := util.NewFileWriter(opt.IrOut)
	if err != nil {
		return fmt.Errorf("could not open IR output: %s", err)
	}
	w.WriteString(ir)
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not write IR output: %s", err)
	}

	if opt.Verbose {
		fmt.Println(ir)
	}
	return nil
}

func main() {
	opt, err := util.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(2)
	}
}
