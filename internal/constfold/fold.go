// Package constfold implements the Constant Evaluator (spec.md §4.3): folding
// of expression subtrees built entirely from integer/boolean literals and
// operators, and rejection of compile-time division or modulus by zero.
package constfold

import (
	"github.com/tcbbd/dragon-Compiler/internal/ast"
)

// Const is a folded compile-time value: either an integer or a boolean.
type Const struct {
	IsBool bool
	Int    int64
	Bool   bool
}

func integer(v int64) Const { return Const{Int: v} }
func boolean(v bool) Const  { return Const{IsBool: true, Bool: v} }

// Fold attempts to evaluate n as a compile-time constant. ok is false when n
// contains anything other than literals and operators over them (an
// identifier reference, a call, a field/array access): such a subtree is
// not constant and must be lowered normally by the code generator. A non-nil
// error means the subtree IS constant but evaluating it is a compile error
// (division or modulus by zero), per spec.md §4.3 and §8 scenario 5.
func Fold(n *ast.Node) (Const, bool, error) {
	if n == nil {
		return Const{}, false, nil
	}

	switch n.Typ {
	case ast.INTEGER_LIT:
		return integer(n.Data.(int64)), true, nil

	case ast.BOOLEAN_LIT:
		return boolean(n.Data.(bool)), true, nil

	case ast.UNARY_EXPR:
		operand, ok, err := Fold(n.Children[0])
		if !ok || err != nil {
			return Const{}, ok, err
		}
		return foldUnary(n, operand)

	case ast.BINARY_EXPR:
		lhs, ok, err := Fold(n.Children[0])
		if !ok || err != nil {
			return Const{}, ok, err
		}
		rhs, ok, err := Fold(n.Children[1])
		if !ok || err != nil {
			return Const{}, ok, err
		}
		return foldBinary(n, lhs, rhs)

	default:
		return Const{}, false, nil
	}
}

func foldUnary(n *ast.Node, v Const) (Const, bool, error) {
	op := n.Data.(string)
	switch op {
	case "-":
		if v.IsBool {
			return Const{}, false, ast.Errorf(n.Loc, "operator '-' requires an integer operand")
		}
		return integer(-v.Int), true, nil
	case "not":
		if !v.IsBool {
			return Const{}, false, ast.Errorf(n.Loc, "operator 'not' requires a boolean operand")
		}
		return boolean(!v.Bool), true, nil
	}
	return Const{}, false, ast.Errorf(n.Loc, "unknown unary operator %q", op)
}

func foldBinary(n *ast.Node, l, r Const) (Const, bool, error) {
	op := n.Data.(string)
	switch op {
	case "and":
		if !l.IsBool || !r.IsBool {
			return Const{}, false, ast.Errorf(n.Loc, "operator 'and' requires boolean operands")
		}
		return boolean(l.Bool && r.Bool), true, nil
	case "or":
		if !l.IsBool || !r.IsBool {
			return Const{}, false, ast.Errorf(n.Loc, "operator 'or' requires boolean operands")
		}
		return boolean(l.Bool || r.Bool), true, nil
	}

	if l.IsBool || r.IsBool {
		switch op {
		case "==":
			return boolean(l.IsBool && r.IsBool && l.Bool == r.Bool), true, nil
		case "!=":
			return boolean(!(l.IsBool && r.IsBool && l.Bool == r.Bool)), true, nil
		}
		return Const{}, false, ast.Errorf(n.Loc, "operator %q requires integer operands", op)
	}

	switch op {
	case "+":
		return integer(l.Int + r.Int), true, nil
	case "-":
		return integer(l.Int - r.Int), true, nil
	case "*":
		return integer(l.Int * r.Int), true, nil
	case "/":
		if r.Int == 0 {
			return Const{}, true, ast.Errorf(n.Loc, "division by zero in constant expression")
		}
		return integer(l.Int / r.Int), true, nil
	case "%":
		if r.Int == 0 {
			return Const{}, true, ast.Errorf(n.Loc, "modulus by zero in constant expression")
		}
		return integer(l.Int % r.Int), true, nil
	case "<":
		return boolean(l.Int < r.Int), true, nil
	case "<=":
		return boolean(l.Int <= r.Int), true, nil
	case ">":
		return boolean(l.Int > r.Int), true, nil
	case ">=":
		return boolean(l.Int >= r.Int), true, nil
	case "==":
		return boolean(l.Int == r.Int), true, nil
	case "!=":
		return boolean(l.Int != r.Int), true, nil
	case "|":
		return integer(l.Int | r.Int), true, nil
	case "^":
		return integer(l.Int ^ r.Int), true, nil
	case "&":
		return integer(l.Int & r.Int), true, nil
	case "<<":
		return integer(l.Int << uint(r.Int)), true, nil
	case ">>":
		return integer(l.Int >> uint(r.Int)), true, nil
	}
	return Const{}, false, ast.Errorf(n.Loc, "unknown binary operator %q", op)
}
