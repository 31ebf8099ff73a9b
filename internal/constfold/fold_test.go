package constfold

import (
	"testing"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
)

func lit(v int64) *ast.Node {
	return &ast.Node{Typ: ast.INTEGER_LIT, Data: v}
}

func blit(v bool) *ast.Node {
	return &ast.Node{Typ: ast.BOOLEAN_LIT, Data: v}
}

func bin(op string, l, r *ast.Node) *ast.Node {
	return &ast.Node{Typ: ast.BINARY_EXPR, Data: op, Children: []*ast.Node{l, r}}
}

func un(op string, v *ast.Node) *ast.Node {
	return &ast.Node{Typ: ast.UNARY_EXPR, Data: op, Children: []*ast.Node{v}}
}

func TestFoldArithmetic(t *testing.T) {
	tests := []struct {
		name string
		n    *ast.Node
		want int64
	}{
		{"add", bin("+", lit(2), lit(3)), 5},
		{"sub", bin("-", lit(10), lit(4)), 6},
		{"mul", bin("*", lit(3), lit(4)), 12},
		{"div", bin("/", lit(9), lit(2)), 4},
		{"mod", bin("%", lit(9), lit(2)), 1},
		{"nested", bin("+", bin("*", lit(2), lit(3)), lit(1)), 7},
		{"unary-neg", un("-", lit(5)), -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok, err := Fold(tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatalf("expected foldable constant")
			}
			if c.IsBool || c.Int != tt.want {
				t.Errorf("got %+v, want int %d", c, tt.want)
			}
		})
	}
}

func TestFoldBoolean(t *testing.T) {
	tests := []struct {
		name string
		n    *ast.Node
		want bool
	}{
		{"and", bin("and", blit(true), blit(false)), false},
		{"or", bin("or", blit(true), blit(false)), true},
		{"not", un("not", blit(false)), true},
		{"int-eq", bin("==", lit(4), lit(4)), true},
		{"int-lt", bin("<", lit(3), lit(4)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok, err := Fold(tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatalf("expected foldable constant")
			}
			if !c.IsBool || c.Bool != tt.want {
				t.Errorf("got %+v, want bool %v", c, tt.want)
			}
		})
	}
}

func TestFoldBitwiseAndShift(t *testing.T) {
	tests := []struct {
		name string
		n    *ast.Node
		want int64
	}{
		{"or", bin("|", lit(1), lit(2)), 3},
		{"xor", bin("^", lit(6), lit(3)), 5},
		{"and", bin("&", lit(6), lit(3)), 2},
		{"shl", bin("<<", lit(1), lit(4)), 16},
		{"shr", bin(">>", lit(16), lit(2)), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok, err := Fold(tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Fatalf("expected foldable constant")
			}
			if c.IsBool || c.Int != tt.want {
				t.Errorf("got %+v, want int %d", c, tt.want)
			}
		})
	}
}

func TestFoldDivisionByZero(t *testing.T) {
	_, ok, err := Fold(bin("/", lit(1), lit(0)))
	if !ok {
		t.Fatalf("division by zero subtree should still be reported as constant")
	}
	if err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestFoldModulusByZero(t *testing.T) {
	_, ok, err := Fold(bin("%", lit(1), lit(0)))
	if !ok {
		t.Fatalf("modulus by zero subtree should still be reported as constant")
	}
	if err == nil {
		t.Fatalf("expected modulus by zero error")
	}
}

func TestFoldNotConstant(t *testing.T) {
	ref := &ast.Node{Typ: ast.IDENTIFIER_EXPR, Data: "x"}
	_, ok, err := Fold(bin("+", lit(1), ref))
	if ok {
		t.Fatalf("identifier subtree must not be reported foldable")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
