// Package irverify provides an optional, gated (-verify-llvm) validation
// pass: it hands the emitted textual LLVM IR back to LLVM's own parser via
// tinygo.org/x/go-llvm, catching any malformed IR the code generator might
// have produced before it reaches a downstream LLVM toolchain. This is pure
// belt-and-suspenders: spec.md's own testable properties (§8) are checked
// independently of LLVM, so a Verify failure always indicates a generator
// bug rather than a missed language-level diagnostic.
package irverify

import (
	"fmt"

	"tinygo.org/x/go-llvm"
)

// Verify parses ir with LLVM's own IR reader and reports any malformed
// module text. The parsed module is disposed before returning; only the
// pass/fail result (and LLVM's own diagnostic string on failure) escapes
// this package.
func Verify(ir string) error {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf := llvm.NewMemoryBufferFromString(ir, "module")
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return fmt.Errorf("generated LLVM IR failed to parse: %w", err)
	}
	defer mod.Dispose()

	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("generated LLVM IR failed verification: %w", err)
	}
	return nil
}
