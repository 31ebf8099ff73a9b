// Package util provides shared plumbing used across the compiler: command
// line argument parsing, the scope stack and the buffered output sink.
package util

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds the parsed command line configuration for a single
// compiler invocation.
type Options struct {
	Src       string // Path to the MyLang source file.
	AstDump   string // Path to the human readable syntax tree dump.
	IrOut     string // Path to the emitted LLVM IR file.
	Verbose   bool   // Set true if the compiler should log progress to stdout.
	VerifyIR  bool   // Set true if the emitted IR should be parsed back with tinygo.org/x/go-llvm.
}

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses the fixed positional command line interface described in
// spec.md §6: "compiler <source> <ast-dump> <ir-output>". Additional flags
// (-v, -verify-llvm) may follow the three positional arguments in any order.
func ParseArgs(args []string) (Options, error) {
	var opt Options
	var pos []string

	for _, a := range args {
		switch a {
		case "-v", "--verbose":
			opt.Verbose = true
		case "-verify-llvm":
			opt.VerifyIR = true
		default:
			pos = append(pos, a)
		}
	}

	if len(pos) < 3 {
		return opt, fmt.Errorf("missing arguments: expected <source> <ast-dump> <ir-output>, got %d", len(pos))
	}

	opt.Src = pos[0]
	opt.AstDump = pos[1]
	opt.IrOut = pos[2]
	return opt, nil
}
