// Package compiler implements the Program Driver (spec.md §4's top-level
// orchestration and §5's ordering guarantees): it wires the frontend parser
// to the Type Registry, Layout Resolver and Symbol Resolver, then drives the
// Expression/Statement Lowerers over every function, method and the program
// entry point to assemble one LLVM IR module.
package compiler

import (
	"fmt"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/constfold"
	"github.com/tcbbd/dragon-Compiler/internal/frontend"
	"github.com/tcbbd/dragon-Compiler/internal/irwriter"
	"github.com/tcbbd/dragon-Compiler/internal/layout"
	"github.com/tcbbd/dragon-Compiler/internal/symtab"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// Compile lexes, parses and lowers src, returning the complete textual LLVM
// IR module on success. The first error encountered anywhere aborts the
// whole compilation, per spec.md §7's "no error recovery" policy.
func Compile(src string) (string, error) {
	unit, err := frontend.Parse(src)
	if err != nil {
		return "", err
	}

	globals := unit.Children[0].Children
	if len(globals) == 0 {
		return "", ast.Errorf(unit.Loc, "empty compilation unit")
	}
	programEntry := globals[len(globals)-1]
	rest := globals[:len(globals)-1]

	reg := types.NewRegistry()
	prog := symtab.NewProgram(reg)

	classBodies := make(map[string]*ast.Node)
	var freeFuncs []*ast.Node

	for _, n := range rest {
		switch n.Typ {
		case ast.ARRAY_DECL:
			if err := declareArray(reg, n); err != nil {
				return "", err
			}
		case ast.CLASS_DECL:
			name, super := classNameAndSuper(n)
			body := n.Children[0]
			d := &types.ClassDecl{
				Name: name, SuperName: super, Loc: n.Loc,
				MemberByName: make(map[string]*types.Member),
				Methods:      make(map[string]*ast.Node),
			}
			if err := reg.DeclareClass(d); err != nil {
				return "", err
			}
			classBodies[name] = body
		case ast.FUNCTION_DECL:
			freeFuncs = append(freeFuncs, n)
		}
	}

	for name, body := range classBodies {
		d := reg.Classes[name]
		if err := populateClassBody(reg, d, body); err != nil {
			return "", err
		}
	}

	for _, n := range freeFuncs {
		if err := prog.DeclareFunction(n.Data.(string), n, n.Loc); err != nil {
			return "", err
		}
	}

	order, err := layout.Order(reg)
	if err != nil {
		return "", err
	}
	if err := layout.Resolve(reg, order); err != nil {
		return "", err
	}

	mod := irwriter.NewModule()
	for _, name := range order {
		// Arrays have no named type declaration: their IR type is the literal
		// "[N x elem]" form, used inline wherever an array-typed value is
		// referenced, so only class struct types get a top-level `type` line.
		if d, ok := reg.Classes[name]; ok {
			mod.AddTypeDecl(d.IRTypeName(), d.Body())
		}
	}

	// Ordering per spec.md §5: every class's methods (registry-iteration
	// order, i.e. topological order here since it is deterministic), then
	// every free function, then the program entry renamed to @main.
	for _, name := range order {
		d, ok := reg.Classes[name]
		if !ok {
			continue
		}
		for _, methodName := range sortedMethodNames(d) {
			defn := d.Methods[methodName]
			body, err := lowerFunction(reg, prog, mod, defn, d, fmt.Sprintf("class.%s.%s", d.Name, methodName), 1)
			if err != nil {
				return "", err
			}
			mod.AddFunction(body)
		}
	}
	for _, n := range freeFuncs {
		name := n.Data.(string)
		irName := name
		if irName == "main" {
			irName = "...main"
		}
		body, err := lowerFunction(reg, prog, mod, n, nil, irName, 1)
		if err != nil {
			return "", err
		}
		mod.AddFunction(body)
	}

	entryBody, err := lowerFunction(reg, prog, mod, programEntry, nil, "main", 2)
	if err != nil {
		return "", err
	}
	mod.AddFunction(entryBody)

	return mod.String(), nil
}

func classNameAndSuper(n *ast.Node) (string, string) {
	pair := n.Data.([2]string)
	return pair[0], pair[1]
}

func declareArray(reg *types.Registry, n *ast.Node) error {
	name := n.Data.(string)
	lengthExpr, elemType := n.Children[0], n.Children[1]
	c, ok, err := constfold.Fold(lengthExpr)
	if err != nil {
		return err
	}
	if !ok || c.IsBool {
		return ast.Errorf(lengthExpr.Loc, "array length must be a constant integer expression")
	}
	if c.Int < 1 {
		return ast.Errorf(lengthExpr.Loc, "array length must be at least 1, got %d", c.Int)
	}
	d := &types.ArrayDecl{Name: name, Length: int(c.Int), ElementName: elemType.Data.(string), Loc: n.Loc}
	return reg.DeclareArray(d)
}

// populateClassBody resolves each field's declared type (now that every
// type name in the compilation unit has been registered) and records every
// method, rejecting a duplicate field, a duplicate method, and a field and
// method of the same class sharing a name. A field that shadows an ancestor
// field is rejected later, by layout.Resolve.
func populateClassBody(reg *types.Registry, d *types.ClassDecl, body *ast.Node) error {
	ordinal := 0
	for _, member := range body.Children {
		switch member.Typ {
		case ast.FIELD_DECL:
			names := member.Children[0].Data.([]string)
			tyName := member.Children[1].Data.(string)
			ty, err := reg.Resolve(tyName, member.Loc)
			if err != nil {
				return err
			}
			for _, name := range names {
				// Cross-class shadowing of an ancestor field cannot be
				// checked here: classBodies is walked in arbitrary map
				// order, so the superclass's own fields may not be
				// populated yet. layout.Resolve rechecks this once the
				// topological order guarantees ancestors go first.
				if _, ok := d.MemberByName[name]; ok {
					return ast.Errorf(member.Loc, "duplicate field %q", name)
				}
				if _, ok := d.Methods[name]; ok {
					return ast.Errorf(member.Loc, "field %q collides with a method of the same name", name)
				}
				m := &types.Member{Ordinal: ordinal, Name: name, Type: ty, Loc: member.Loc}
				d.Members = append(d.Members, m)
				d.MemberByName[name] = m
				ordinal++
			}
		case ast.METHOD_DECL:
			name := member.Data.(string)
			if _, ok := d.Methods[name]; ok {
				return ast.Errorf(member.Loc, "duplicate method %q", name)
			}
			if _, ok := d.MemberByName[name]; ok {
				return ast.Errorf(member.Loc, "method %q collides with a field of the same name", name)
			}
			d.Methods[name] = member
		}
	}
	return nil
}

func sortedMethodNames(d *types.ClassDecl) []string {
	names := make([]string, 0, len(d.Methods))
	for name := range d.Methods {
		names = append(names, name)
	}
	// Deterministic, not source order: acceptable since methods never call
	// each other by emission position, only by name through the registry.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
