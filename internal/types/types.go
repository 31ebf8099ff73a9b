// Package types implements the Type Registry: an interned catalogue of the
// named types visible in a MyLang program (spec.md §3, §4.1).
package types

import (
	"fmt"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
)

// Kind tags the category of a Type.
type Kind int

const (
	Integer Kind = iota
	Boolean
	Void // Absent return type, or "no superclass" marker.
	Array
	Class
	StringLit // Only ever produced by a string literal leaf; illegal everywhere but print.
)

// Type is the tagged value described in spec.md §3.
type Type struct {
	Kind Kind
	Name string // Key into the Registry for Array/Class; empty for primitives/Void.
}

func (t Type) String() string {
	switch t.Kind {
	case Integer:
		return "integer"
	case Boolean:
		return "boolean"
	case Void:
		return "void"
	case Array:
		return "array " + t.Name
	case Class:
		return "class " + t.Name
	}
	return "?"
}

// IsPrimitive reports whether t is Integer or Boolean.
func (t Type) IsPrimitive() bool {
	return t.Kind == Integer || t.Kind == Boolean
}

// Equal reports structural equality between two Types.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.Name == o.Name
}

// Member is a single field of a class: its positional ordinal in LLVM
// struct layout, its name and its declared Type.
type Member struct {
	Ordinal int
	Name    string
	Type    Type
	Loc     ast.Location
}

// ArrayDecl is an array type declaration: name, compile-time length and
// element type.
type ArrayDecl struct {
	Name        string
	Length      int
	ElementName string // Name key of the element type (may itself be an array or class).
	Loc         ast.Location

	// irType is filled in by the Layout Resolver once the declaration has
	// been ordered and its dependencies emitted.
	irType string
}

// SetIRType is called by the Layout Resolver once d's dependencies have been
// ordered and it is d's turn to be emitted.
func (d *ArrayDecl) SetIRType(irType string) { d.irType = irType }

// IRTypeName returns the LLVM type string for d, or "" if Layout Resolver
// has not processed it yet.
func (d *ArrayDecl) IRTypeName() string { return d.irType }

// ClassDecl is a class type declaration: ordered own members plus an
// optional superclass name.
type ClassDecl struct {
	Name         string
	SuperName    string // Empty if the class has no superclass.
	Members      []*Member
	MemberByName map[string]*Member
	Methods      map[string]*ast.Node // Method name -> FUNCTION_DECL node (method form).
	Loc          ast.Location

	irType string // "%class.Name", filled in once Layout Resolver has ordered this class.
	body   string // "{ %class.Base, i32, ... }", the struct body for the `type` declaration.
}

// SetIRType is called by the Layout Resolver once d's dependencies have been
// ordered and it is d's turn to be emitted.
func (d *ClassDecl) SetIRType(irType string) { d.irType = irType }

// IRTypeName returns d's LLVM named-type reference (e.g. "%class.Foo"), or
// "" if the Layout Resolver has not processed it yet.
func (d *ClassDecl) IRTypeName() string { return d.irType }

// SetBody records the LLVM struct body text for d's `type` declaration.
func (d *ClassDecl) SetBody(body string) { d.body = body }

// Body returns the LLVM struct body text assigned by SetBody.
func (d *ClassDecl) Body() string { return d.body }

// Registry is the interned catalogue of types visible in a single
// compilation unit. Registries are not process-wide: every Compile call
// constructs its own, per spec.md §9's "no process-wide storage" strategy.
type Registry struct {
	Arrays map[string]*ArrayDecl
	Classes map[string]*ClassDecl
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		Arrays:  make(map[string]*ArrayDecl),
		Classes: make(map[string]*ClassDecl),
	}
}

// DeclareArray registers a new array type. Returns an error on redeclaration.
func (r *Registry) DeclareArray(d *ArrayDecl) error {
	if _, ok := r.Arrays[d.Name]; ok {
		return ast.Errorf(d.Loc, "redeclaration of array type %q", d.Name)
	}
	if _, ok := r.Classes[d.Name]; ok {
		return ast.Errorf(d.Loc, "redeclaration of type %q as array, already declared as class", d.Name)
	}
	r.Arrays[d.Name] = d
	return nil
}

// DeclareClass registers a new class type. Returns an error on redeclaration.
func (r *Registry) DeclareClass(d *ClassDecl) error {
	if _, ok := r.Classes[d.Name]; ok {
		return ast.Errorf(d.Loc, "redeclaration of class type %q", d.Name)
	}
	if _, ok := r.Arrays[d.Name]; ok {
		return ast.Errorf(d.Loc, "redeclaration of type %q as class, already declared as array", d.Name)
	}
	r.Classes[d.Name] = d
	return nil
}

// Resolve looks up a type name and returns its tagged Type. Primitive and
// Void names are always resolvable; array/class names must have been
// registered first.
func (r *Registry) Resolve(name string, loc ast.Location) (Type, error) {
	switch name {
	case "integer":
		return Type{Kind: Integer}, nil
	case "boolean":
		return Type{Kind: Boolean}, nil
	case "void":
		return Type{Kind: Void}, nil
	}
	if _, ok := r.Arrays[name]; ok {
		return Type{Kind: Array, Name: name}, nil
	}
	if _, ok := r.Classes[name]; ok {
		return Type{Kind: Class, Name: name}, nil
	}
	return Type{}, ast.Errorf(loc, "undeclared type %q", name)
}

// IRType returns the LLVM IR type string for t. For Array/Class this is only
// valid once the Layout Resolver has processed the declaration.
func (r *Registry) IRType(t Type) (string, error) {
	switch t.Kind {
	case Integer:
		return "i32", nil
	case Boolean:
		return "i8", nil
	case Void:
		return "void", nil
	case Array:
		d, ok := r.Arrays[t.Name]
		if !ok || d.irType == "" {
			return "", fmt.Errorf("array type %q has not been laid out yet", t.Name)
		}
		return d.irType, nil
	case Class:
		d, ok := r.Classes[t.Name]
		if !ok || d.irType == "" {
			return "", fmt.Errorf("class type %q has not been laid out yet", t.Name)
		}
		return d.irType, nil
	}
	return "", fmt.Errorf("unknown type kind %d", t.Kind)
}

// ClassChain returns the ordered chain of class declarations from c up
// through its ancestors, c first. Used for field/method resolution (spec.md §4.2).
func (r *Registry) ClassChain(className string) []*ClassDecl {
	var chain []*ClassDecl
	name := className
	for name != "" {
		c, ok := r.Classes[name]
		if !ok {
			break
		}
		chain = append(chain, c)
		name = c.SuperName
	}
	return chain
}

// FindMember searches c and its ancestors (outward) for a member named
// name, per spec.md §4.2's field resolution order.
func (r *Registry) FindMember(className, name string) (*Member, *ClassDecl) {
	for _, c := range r.ClassChain(className) {
		if m, ok := c.MemberByName[name]; ok {
			return m, c
		}
	}
	return nil, nil
}

// FindMethod searches c and its ancestors (outward) for a method named name.
func (r *Registry) FindMethod(className, name string) (*ast.Node, *ClassDecl) {
	for _, c := range r.ClassChain(className) {
		if m, ok := c.Methods[name]; ok {
			return m, c
		}
	}
	return nil, nil
}
