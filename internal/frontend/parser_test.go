package frontend

import (
	"testing"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
)

func TestParseMinimalProgram(t *testing.T) {
	src := `program P is begin print 40 + 2 end`
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Typ != ast.PROGRAM {
		t.Fatalf("expected PROGRAM root, got %v", root.Typ)
	}
	globals := root.Children[0]
	if len(globals.Children) != 1 {
		t.Fatalf("expected exactly one top-level entry (the program itself), got %d", len(globals.Children))
	}
	entry := globals.Children[0]
	if entry.Typ != ast.FUNCTION_DECL || entry.Data != "P" {
		t.Fatalf("expected program entry FUNCTION_DECL named P, got %+v", entry)
	}
}

func TestParseWhileLoop(t *testing.T) {
	src := `program P var x is integer is begin x := 5; while x > 0 do x := x - 1 end while end`
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := root.Children[0].Children[0]
	body := entry.Children[3]
	if len(body.Children) != 2 {
		t.Fatalf("expected 2 statements (assign, while), got %d", len(body.Children))
	}
	if body.Children[1].Typ != ast.WHILE_STMT {
		t.Fatalf("expected second statement to be WHILE_STMT, got %v", body.Children[1].Typ)
	}
}

func TestParseArrayAndClassDecl(t *testing.T) {
	src := `type A is array of 3 integer;
type Base is class var b is integer; end class;
type Derived extends Base is class var d is integer; end class;
program P is begin end`
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	globals := root.Children[0].Children
	if len(globals) != 4 {
		t.Fatalf("expected 3 type decls + program, got %d", len(globals))
	}
	if globals[0].Typ != ast.ARRAY_DECL {
		t.Errorf("expected ARRAY_DECL, got %v", globals[0].Typ)
	}
	if globals[2].Typ != ast.CLASS_DECL {
		t.Errorf("expected CLASS_DECL, got %v", globals[2].Typ)
	}
	pair := globals[2].Data.([2]string)
	if pair[0] != "Derived" || pair[1] != "Base" {
		t.Errorf("expected Derived extends Base, got %+v", pair)
	}
}

func TestParseForeachAndRepeat(t *testing.T) {
	src := `type A is array of 3 integer;
program P var a is A; var i is integer is begin
foreach i in a do print i end foreach
repeat i := i - 1 until i == 0
end`
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := root.Children[0].Children[1]
	body := entry.Children[3]
	if body.Children[0].Typ != ast.FOREACH_STMT {
		t.Errorf("expected FOREACH_STMT, got %v", body.Children[0].Typ)
	}
	if body.Children[1].Typ != ast.REPEAT_STMT {
		t.Errorf("expected REPEAT_STMT, got %v", body.Children[1].Typ)
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse(`program P is begin if true end`)
	if err == nil {
		t.Fatalf("expected a syntax error for a malformed if statement")
	}
}
