package irwriter

import "strings"

// Sentinel bytes outside the valid LLVM-IR character set, used to mark a
// break/continue branch target that is not known until the enclosing loop
// finishes lowering its body (spec.md §4.7, §9).
const (
	BreakSentinel    byte = 0x80
	ContinueSentinel byte = 0x81

	// HoleWidth is the number of characters reserved for a placeholder: the
	// sentinel byte itself plus HoleWidth-1 padding spaces.
	HoleWidth = 4
)

// Placeholder returns the text written in place of a real branch label: the
// sentinel byte followed by padding out to HoleWidth characters. The caller
// records the byte offset at which this text lands so it can later be
// overwritten directly; patching is scoped per loop frame in
// internal/codegen rather than by a whole-buffer sentinel scan, since a
// nested loop's placeholder is otherwise indistinguishable from an
// enclosing loop's.
func Placeholder(sentinel byte) string {
	return string([]byte{sentinel}) + strings.Repeat(" ", HoleWidth-1)
}
