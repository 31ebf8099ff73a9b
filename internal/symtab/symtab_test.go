package symtab

import (
	"testing"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

func TestResolveParameterShadowsField(t *testing.T) {
	reg := types.NewRegistry()
	class := &types.ClassDecl{Name: "C", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	fx := &types.Member{Name: "x", Ordinal: 0, Type: types.Type{Kind: types.Integer}}
	class.Members = []*types.Member{fx}
	class.MemberByName["x"] = fx
	if err := reg.DeclareClass(class); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(reg, class)
	if err := tbl.Declare(&Symbol{Kind: Parameter, Name: "x", Type: types.Type{Kind: types.Boolean}}, ast.Location{}); err != nil {
		t.Fatal(err)
	}

	sym, err := tbl.Resolve("x", ast.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if sym.Kind != Parameter {
		t.Errorf("expected parameter to shadow field, got kind %v", sym.Kind)
	}
}

func TestResolveFallsBackToSuperclassField(t *testing.T) {
	reg := types.NewRegistry()
	base := &types.ClassDecl{Name: "Base", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	fy := &types.Member{Name: "y", Ordinal: 0, Type: types.Type{Kind: types.Integer}}
	base.Members = []*types.Member{fy}
	base.MemberByName["y"] = fy
	if err := reg.DeclareClass(base); err != nil {
		t.Fatal(err)
	}

	derived := &types.ClassDecl{Name: "Derived", SuperName: "Base", MemberByName: map[string]*types.Member{}, Methods: map[string]*ast.Node{}}
	if err := reg.DeclareClass(derived); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(reg, derived)
	sym, err := tbl.Resolve("y", ast.Location{})
	if err != nil {
		t.Fatal(err)
	}
	if sym.Kind != Field || sym.FieldOf.Name != "Base" {
		t.Errorf("expected field resolved from Base, got %+v", sym)
	}
}

func TestResolveUndeclaredIsError(t *testing.T) {
	reg := types.NewRegistry()
	tbl := NewTable(reg, nil)
	if _, err := tbl.Resolve("nope", ast.Location{}); err == nil {
		t.Fatalf("expected an error for undeclared identifier")
	}
}

func TestBlockScopingPopRemovesLocal(t *testing.T) {
	reg := types.NewRegistry()
	tbl := NewTable(reg, nil)
	tbl.Push()
	if err := tbl.Declare(&Symbol{Kind: Local, Name: "i", Type: types.Type{Kind: types.Integer}}, ast.Location{}); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Resolve("i", ast.Location{}); err != nil {
		t.Fatalf("expected local to resolve inside its block: %v", err)
	}
	tbl.Pop()
	if _, err := tbl.Resolve("i", ast.Location{}); err == nil {
		t.Fatalf("expected local to be gone once its block has been popped")
	}
}

func TestDeclareRejectsSameScopeRedeclaration(t *testing.T) {
	reg := types.NewRegistry()
	tbl := NewTable(reg, nil)
	if err := tbl.Declare(&Symbol{Kind: Local, Name: "a", Type: types.Type{Kind: types.Integer}}, ast.Location{}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Declare(&Symbol{Kind: Local, Name: "a", Type: types.Type{Kind: types.Integer}}, ast.Location{}); err == nil {
		t.Fatalf("expected redeclaration error")
	}
}
