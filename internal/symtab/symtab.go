// Package symtab implements the Symbol Resolver (spec.md §4.2): the
// block-scoped table of parameters and locals inside a single function or
// method body, falling back to the enclosing class's fields (walking the
// superclass chain) when nothing closer matches.
package symtab

import (
	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
	"github.com/tcbbd/dragon-Compiler/internal/util"
)

// SymbolKind differentiates where a resolved name came from, which in turn
// decides how the code generator addresses it.
type SymbolKind int

const (
	Parameter SymbolKind = iota
	Local
	Field
	FreeFunction
	Method
)

// Symbol is a single resolvable name: a parameter, a local variable, or
// (only once nothing closer has matched) a class field.
type Symbol struct {
	Kind SymbolKind
	Name string
	Type types.Type

	// IRName is the SSA register or global name holding this symbol's
	// storage: "%1" for a parameter/local alloca, "%0" for the implicit
	// `this` slot, or empty for a Field (fields are addressed through `this`
	// plus a getelementptr, not by their own register).
	IRName string

	// For Field: the ordinal and declaring class, needed to walk the
	// superclass-prefix chain when emitting the getelementptr.
	FieldOf  *types.ClassDecl
	Ordinal  int
}

// Table is the scope-stack symbol table active while lowering one function
// or method body. Scopes push/pop in lock-step with BLOCK nodes (spec.md
// §4.2's "block scoping" rule) so a local declared inside an if-branch does
// not leak past it.
type Table struct {
	reg *types.Registry

	// class is the class owning the method being lowered, nil for free
	// functions. Used for the field-fallback step of Resolve.
	class *types.ClassDecl

	scopes *util.Stack // of map[string]*Symbol, innermost on top
}

// NewTable returns a Table for a function (class == nil) or method body.
func NewTable(reg *types.Registry, class *types.ClassDecl) *Table {
	t := &Table{reg: reg, class: class, scopes: &util.Stack{}}
	t.Push()
	return t
}

// Push opens a new, innermost scope.
func (t *Table) Push() {
	t.scopes.Push(make(map[string]*Symbol))
}

// Pop discards the innermost scope. Every Push in a function body must be
// matched by a Pop when its BLOCK is fully lowered.
func (t *Table) Pop() {
	t.scopes.Pop()
}

// Declare introduces name into the innermost scope. Returns an error if name
// is already declared in that same scope (shadowing an outer scope, or a
// field, is permitted; redeclaring within one scope is not).
func (t *Table) Declare(sym *Symbol, loc ast.Location) error {
	scope := t.scopes.Peek().(map[string]*Symbol)
	if _, ok := scope[sym.Name]; ok {
		return ast.Errorf(loc, "redeclaration of %q in the same scope", sym.Name)
	}
	scope[sym.Name] = sym
	return nil
}

// Resolve looks up name using the priority chain mandated by spec.md §4.2:
// nearest-enclosing local/parameter scope first, then the current class's
// own fields, then its superclass's fields, and so on up the inheritance
// chain. Free functions are resolved separately, only in call position, by
// the caller consulting Program.Functions.
func (t *Table) Resolve(name string, loc ast.Location) (*Symbol, error) {
	for i := 1; i <= t.scopes.Size(); i++ {
		scope := t.scopes.Get(i).(map[string]*Symbol)
		if sym, ok := scope[name]; ok {
			return sym, nil
		}
	}

	if t.class != nil {
		if m, owner := t.reg.FindMember(t.class.Name, name); m != nil {
			return &Symbol{
				Kind:    Field,
				Name:    m.Name,
				Type:    m.Type,
				FieldOf: owner,
				Ordinal: m.Ordinal,
			}, nil
		}
	}

	return nil, ast.Errorf(loc, "undeclared identifier %q", name)
}

// Program is the whole-compilation-unit symbol table: every free function
// and every class (with its own member/method tables, built during Layout
// Resolution) visible from the compilation unit's top level.
type Program struct {
	Registry  *types.Registry
	Functions map[string]*ast.Node // Free function name -> FUNCTION_DECL.
}

// NewProgram returns an empty Program table.
func NewProgram(reg *types.Registry) *Program {
	return &Program{Registry: reg, Functions: make(map[string]*ast.Node)}
}

// DeclareFunction registers a free function. Returns an error on
// redeclaration of a function name. A collision with a class name is not
// checked: classes and free functions do not share a namespace in MyLang,
// so collisions are only checked against other functions.
func (p *Program) DeclareFunction(name string, n *ast.Node, loc ast.Location) error {
	if _, ok := p.Functions[name]; ok {
		return ast.Errorf(loc, "redeclaration of function %q", name)
	}
	p.Functions[name] = n
	return nil
}

// ResolveFunction looks up a free function by name for a call-position
// reference.
func (p *Program) ResolveFunction(name string, loc ast.Location) (*ast.Node, error) {
	n, ok := p.Functions[name]
	if !ok {
		return nil, ast.Errorf(loc, "call to undeclared function %q", name)
	}
	return n, nil
}

// ResolveMethod looks up a method by name starting from className, walking
// the superclass chain, for a `receiver.name(...)` call.
func (p *Program) ResolveMethod(className, name string, loc ast.Location) (*ast.Node, *types.ClassDecl, error) {
	n, owner := p.Registry.FindMethod(className, name)
	if n == nil {
		return nil, nil, ast.Errorf(loc, "class %q has no method %q", className, name)
	}
	return n, owner, nil
}
