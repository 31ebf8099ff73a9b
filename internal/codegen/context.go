package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tcbbd/dragon-Compiler/internal/irwriter"
	"github.com/tcbbd/dragon-Compiler/internal/symtab"
	"github.com/tcbbd/dragon-Compiler/internal/types"
	"github.com/tcbbd/dragon-Compiler/internal/util"
)

// loopFrame records exactly which placeholders in the buffer belong to this
// loop: the byte offset of each break/continue sentinel written while this
// frame was innermost, plus the block label active at the point of emission
// (needed to extend the loop's exit/re-check block preds comment). A nested
// loop only ever records into its own frame, so patching it can never touch
// an outer loop's still-pending placeholders (spec.md §4.7).
type loopFrame struct {
	breakPos, continuePos       []int
	breakBlocks, continueBlocks []string
}

// Gen is the mutable emission state threaded through one function or method
// body's lowering: the monotonic SSA/block counters, the current
// reachability flags, the active loop nesting, and the accumulating IR
// buffer (spec.md §3's Code Generation Context, split per §9 into the
// immutable scope info carried in Table/Class/RetType and this mutable
// part).
type Gen struct {
	Reg     *types.Registry
	Program *symtab.Program
	Module  *irwriter.Module

	Table   *symtab.Table
	Class   *types.ClassDecl // nil for a free function
	RetType types.Type

	buf strings.Builder

	ssaCounter   int
	blockCounter int

	blockIsOver    bool
	terminatedByBr bool

	// currentLabel names the block currently being emitted into, for use as
	// a `preds` entry by whatever block gets opened next. Empty denotes the
	// function's unlabelled entry block.
	currentLabel string

	loopDepth int
	loops     util.Stack // of *loopFrame, for nested break/continue validity

	markerCounter int
}

// NewGen returns a Gen ready to lower one function/method body.
func NewGen(reg *types.Registry, prog *symtab.Program, mod *irwriter.Module, table *symtab.Table, class *types.ClassDecl, ret types.Type) *Gen {
	return &Gen{Reg: reg, Program: prog, Module: mod, Table: table, Class: class, RetType: ret}
}

// NewSSA returns the next free SSA register name.
func (g *Gen) NewSSA() string {
	g.ssaCounter++
	return fmt.Sprintf("%%%d", g.ssaCounter)
}

// NewBlock returns the next free basic-block label (a bare number, used both
// as an SSA-space name and a `label %N:` header).
func (g *Gen) NewBlock() string {
	g.blockCounter++
	return fmt.Sprintf("%d", g.blockCounter)
}

// emit appends one already-formatted IR line (caller supplies leading
// indentation/newline conventions) to the function buffer.
func (g *Gen) emit(format string, args ...interface{}) {
	fmt.Fprintf(&g.buf, format, args...)
}

// Emit is emit exported for the Program Driver, which writes the
// parameter/local alloca prologue before handing control to LowerBlock.
func (g *Gen) Emit(format string, args ...interface{}) {
	g.emit(format, args...)
}

// SetSSACounter fast-forwards the SSA counter past the registers already
// consumed by a function's incoming arguments (and the implicit `this` for
// a method), so the first NewSSA call inside the body continues the
// sequence instead of colliding with an argument register.
func (g *Gen) SetSSACounter(n int) {
	g.ssaCounter = n
}

// Flags reports the reachability state left behind after lowering a
// function body, for the Program Driver's end-of-function unreachable/ret
// void decision (spec.md §4.6).
func (g *Gen) Flags() (blockIsOver, terminatedByBr bool) {
	return g.blockIsOver, g.terminatedByBr
}

// emitLabel closes the current block (the caller must have already emitted
// its terminator) and opens a new one headed `<label>:` with a preds
// comment.
func (g *Gen) emitLabel(label string, preds ...string) {
	var named []string
	for _, p := range preds {
		if p != "" {
			named = append(named, "%"+p)
		}
	}
	if len(named) > 0 {
		g.emit("\n%s:                                               ; preds = %s\n", label, strings.Join(named, ", "))
	} else {
		g.emit("\n%s:\n", label)
	}
	g.blockIsOver = false
	g.terminatedByBr = false
	g.currentLabel = label
}

// emitLabelPending opens a new block whose preds comment cannot be computed
// until later (typically a loop header, whose back-edge predecessor is only
// known once the loop body has been fully lowered). It returns an opaque
// marker to pass to resolvePreds once the real predecessor list is known.
func (g *Gen) emitLabelPending(label string) string {
	g.markerCounter++
	marker := fmt.Sprintf("@PREDS%d@", g.markerCounter)
	g.emit("\n%s:                                               ; preds = %s\n", label, marker)
	g.blockIsOver = false
	g.terminatedByBr = false
	g.currentLabel = label
	return marker
}

// resolvePreds substitutes a marker from emitLabelPending with the final,
// comma-joined predecessor list.
func (g *Gen) resolvePreds(marker string, preds ...string) {
	var named []string
	for _, p := range preds {
		if p != "" {
			named = append(named, "%"+p)
		}
	}
	s := strings.Replace(g.buf.String(), marker, strings.Join(named, ", "), 1)
	g.buf.Reset()
	g.buf.WriteString(s)
}

func (g *Gen) enterLoop() *loopFrame {
	g.loopDepth++
	f := &loopFrame{}
	g.loops.Push(f)
	return f
}

func (g *Gen) exitLoop() {
	g.loopDepth--
	g.loops.Pop()
}

func (g *Gen) inLoop() bool { return g.loopDepth > 0 }

// emitSentinelBranch writes `br label %<placeholder>` for a break/continue
// and records the placeholder's byte offset, plus the block it was written
// from, into the innermost loop frame.
func (g *Gen) emitSentinelBranch(sentinel byte) {
	g.emit("  br label %%")
	pos := g.buf.Len()
	g.emit("%s\n", irwriter.Placeholder(sentinel))

	frame, _ := g.loops.Peek().(*loopFrame)
	if frame == nil {
		return
	}
	if sentinel == irwriter.BreakSentinel {
		frame.breakPos = append(frame.breakPos, pos)
		frame.breakBlocks = append(frame.breakBlocks, g.currentLabel)
	} else {
		frame.continuePos = append(frame.continuePos, pos)
		frame.continueBlocks = append(frame.continueBlocks, g.currentLabel)
	}
}

// patchLoopSentinels resolves only the placeholders recorded in frame,
// leaving any enclosing loop's still-pending sentinels untouched. Positions
// are patched in descending order so replacing one does not shift the
// offsets recorded for the others.
func (g *Gen) patchLoopSentinels(frame *loopFrame, breakLabel, continueLabel string) {
	type patch struct {
		pos   int
		label string
	}
	patches := make([]patch, 0, len(frame.breakPos)+len(frame.continuePos))
	for _, p := range frame.breakPos {
		patches = append(patches, patch{p, breakLabel})
	}
	for _, p := range frame.continuePos {
		patches = append(patches, patch{p, continueLabel})
	}
	if len(patches) == 0 {
		return
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].pos > patches[j].pos })

	s := g.buf.String()
	for _, p := range patches {
		s = s[:p.pos] + p.label + s[p.pos+irwriter.HoleWidth:]
	}
	g.buf.Reset()
	g.buf.WriteString(s)
}

// Finish returns the accumulated function body text. Loops patch their own
// sentinels as they complete, and break/continue are rejected outside a
// loop, so no placeholder is left by then; Finish itself patches nothing.
func (g *Gen) Finish() string {
	return g.buf.String()
}
