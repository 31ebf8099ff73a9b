package layout

import (
	"strings"
	"testing"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

func TestOrderSimpleChain(t *testing.T) {
	reg := types.NewRegistry()
	must(t, reg.DeclareClass(&types.ClassDecl{
		Name: "Base", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{},
	}))
	must(t, reg.DeclareClass(&types.ClassDecl{
		Name: "Derived", SuperName: "Base",
		MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{},
	}))

	order, err := Order(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idxBase := indexOf(order, "Base")
	idxDerived := indexOf(order, "Derived")
	if idxBase < 0 || idxDerived < 0 || idxBase > idxDerived {
		t.Fatalf("expected Base before Derived, got %v", order)
	}
}

func TestOrderDetectsCycle(t *testing.T) {
	reg := types.NewRegistry()
	must(t, reg.DeclareArray(&types.ArrayDecl{Name: "A", Length: 4, ElementName: "B"}))
	must(t, reg.DeclareArray(&types.ArrayDecl{Name: "B", Length: 4, ElementName: "A"}))

	_, err := Order(reg)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("expected cycle message, got %q", err.Error())
	}
}

func TestResolveClassLayout(t *testing.T) {
	reg := types.NewRegistry()
	base := &types.ClassDecl{
		Name:         "Base",
		MemberByName: map[string]*types.Member{},
		Methods:      map[string]*ast.Node{},
	}
	fx := &types.Member{Name: "x", Type: types.Type{Kind: types.Integer}}
	base.Members = []*types.Member{fx}
	base.MemberByName["x"] = fx
	must(t, reg.DeclareClass(base))

	derived := &types.ClassDecl{
		Name:         "Derived",
		SuperName:    "Base",
		MemberByName: map[string]*types.Member{},
		Methods:      map[string]*ast.Node{},
	}
	fy := &types.Member{Name: "y", Type: types.Type{Kind: types.Integer}}
	derived.Members = []*types.Member{fy}
	derived.MemberByName["y"] = fy
	must(t, reg.DeclareClass(derived))

	order, err := Order(reg)
	must(t, err)
	must(t, Resolve(reg, order))

	if base.IRTypeName() != "%class.Base" {
		t.Errorf("got base irType %q", base.IRTypeName())
	}
	if fx.Ordinal != 0 {
		t.Errorf("expected base field x at ordinal 0, got %d", fx.Ordinal)
	}
	if fy.Ordinal != 1 {
		t.Errorf("expected derived field y at ordinal 1 (after superclass prefix), got %d", fy.Ordinal)
	}
	if !strings.Contains(derived.Body(), "%class.Base") {
		t.Errorf("expected derived body to prefix superclass struct, got %q", derived.Body())
	}
}

func TestResolveEmptyClassPlaceholder(t *testing.T) {
	reg := types.NewRegistry()
	empty := &types.ClassDecl{Name: "Empty", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	must(t, reg.DeclareClass(empty))

	order, err := Order(reg)
	must(t, err)
	must(t, Resolve(reg, order))

	if empty.Body() != "{ i8 }" {
		t.Errorf("expected empty class placeholder body, got %q", empty.Body())
	}
}

func TestResolveRejectsFieldShadowing(t *testing.T) {
	reg := types.NewRegistry()
	base := &types.ClassDecl{Name: "Base", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	fx := &types.Member{Name: "x", Type: types.Type{Kind: types.Integer}}
	base.Members = []*types.Member{fx}
	base.MemberByName["x"] = fx
	must(t, reg.DeclareClass(base))

	derived := &types.ClassDecl{Name: "Derived", SuperName: "Base", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	fx2 := &types.Member{Name: "x", Type: types.Type{Kind: types.Integer}}
	derived.Members = []*types.Member{fx2}
	derived.MemberByName["x"] = fx2
	must(t, reg.DeclareClass(derived))

	order, err := Order(reg)
	must(t, err)
	if err := Resolve(reg, order); err == nil {
		t.Fatalf("expected a field-shadowing error")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
