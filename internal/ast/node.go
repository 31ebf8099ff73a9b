// Package ast defines the syntax tree data model the semantic analyser and
// code generator operate on. Lexing and parsing (the frontend package) are
// the only producers of ast.Node trees; this package only describes their
// shape, mirroring the teacher's ir.Node/ir.NodeType split.
package ast

import "fmt"

// NodeType differentiates the kinds of node that appear in the syntax tree.
type NodeType int

// Node is a single node in the syntax tree. Every node owns its Children and
// is destroyed along with the tree it belongs to; nothing outside the tree
// keeps an owning reference to a Node.
type Node struct {
	Typ      NodeType
	Loc      Location
	Data     interface{} // Leaf payload: identifier name, literal value, operator text, type name.
	Children []*Node
}

const (
	PROGRAM NodeType = iota
	GLOBAL_LIST

	ARRAY_DECL  // (name, length-expr, element-type-name)
	CLASS_DECL  // (name, optional superclass-name, class-body)
	CLASS_BODY  // list of FIELD_DECL and METHOD_DECL
	FIELD_DECL  // TYPED_VARIABLE_LIST wrapper, single member declaration
	METHOD_DECL // same shape as FUNCTION_DECL

	FUNCTION_DECL // Data: name. Children: [PARAMETER_LIST, return-type-name, DECLARATION_LIST, BLOCK].
	PARAMETER_LIST
	TYPED_VARIABLE_LIST // (VARIABLE_LIST of identifiers, type-name)
	VARIABLE_LIST
	DECLARATION_LIST // local var declarations inside a function body
	ARGUMENT_LIST

	BLOCK
	VAR_DECL_STMT
	ASSIGN_STMT
	RETURN_STMT
	PRINT_STMT
	PRINT_LIST
	IF_STMT // (cond, then-block[, elif-chain...][, else-block])
	WHILE_STMT
	REPEAT_STMT
	FOREACH_STMT
	BREAK_STMT
	CONTINUE_STMT
	NULL_STMT

	BINARY_EXPR // Data: operator string. Children: [lhs, rhs].
	UNARY_EXPR  // Data: operator string. Children: [operand].
	ASSIGN_EXPR // E.g. the rhs of ':=' when used as an expression result; Children: [lhs, rhs].
	CALL_EXPR   // (callee-expr, ARGUMENT_LIST)
	FIELD_ACCESS_EXPR // (receiver-expr, field-name)
	ARRAY_ACCESS_EXPR // (receiver-expr, index-expr)

	IDENTIFIER_EXPR
	THIS_EXPR
	INTEGER_LIT
	BOOLEAN_LIT
	STRING_LIT

	TYPE_REF // Data: type name string.
)

var nodeNames = [...]string{
	"PROGRAM", "GLOBAL_LIST",
	"ARRAY_DECL", "CLASS_DECL", "CLASS_BODY", "FIELD_DECL", "METHOD_DECL",
	"FUNCTION_DECL", "PARAMETER_LIST", "TYPED_VARIABLE_LIST", "VARIABLE_LIST",
	"DECLARATION_LIST", "ARGUMENT_LIST",
	"BLOCK", "VAR_DECL_STMT", "ASSIGN_STMT", "RETURN_STMT", "PRINT_STMT",
	"PRINT_LIST", "IF_STMT", "WHILE_STMT", "REPEAT_STMT", "FOREACH_STMT",
	"BREAK_STMT", "CONTINUE_STMT", "NULL_STMT",
	"BINARY_EXPR", "UNARY_EXPR", "ASSIGN_EXPR", "CALL_EXPR", "FIELD_ACCESS_EXPR",
	"ARRAY_ACCESS_EXPR",
	"IDENTIFIER_EXPR", "THIS_EXPR", "INTEGER_LIT", "BOOLEAN_LIT", "STRING_LIT",
	"TYPE_REF",
}

// String returns a print friendly name for the node's type.
func (n NodeType) String() string {
	if int(n) < 0 || int(n) >= len(nodeNames) {
		return fmt.Sprintf("NODETYPE(%d)", int(n))
	}
	return nodeNames[n]
}

// String returns a print-friendly one-line representation of n, used by the
// (out of core scope) terminal AST dump traversal.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Data == nil {
		return n.Typ.String()
	}
	return fmt.Sprintf("%s [%v]", n.Typ, n.Data)
}
