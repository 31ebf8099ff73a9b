// Package codegen implements the Expression Lowerer and Statement
// Lowerer/Control-Flow Builder (spec.md §4.4-§4.7): the walk from a
// type-checked ast.Node body to textual LLVM IR.
package codegen

import (
	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// ResultKind tags the shape of a lowered expression, per spec.md §3's
// Expression Result Descriptor.
type ResultKind int

const (
	Simple ResultKind = iota
	Pointer
	ValueResult
	FuncResult
	NoneResult
)

// Result is the payload threaded back up through expression lowering.
type Result struct {
	Kind ResultKind
	Type types.Type

	// Simple: the unmaterialised leaf node (literal, identifier, this).
	Leaf *ast.Node

	// Pointer / ValueResult: the SSA register holding the pointer or value.
	SSA      string
	IsLvalue bool

	// FuncResult: the callable this resolves to, plus its bound receiver
	// (nil/empty for a free function).
	FuncDefn  *ast.Node
	RecvClass *types.ClassDecl
	RecvSSA   string
}
