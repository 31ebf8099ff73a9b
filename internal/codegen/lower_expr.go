package codegen

import (
	"strconv"
	"strings"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/constfold"
	"github.com/tcbbd/dragon-Compiler/internal/symtab"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// foldedResult attempts compile-time evaluation of n (spec.md §4.3). When n
// is constant it returns a Simple Result wrapping a fresh literal leaf, so
// the subtree is materialised as an immediate value with no instructions
// emitted for it at all, per spec.md §8's "folded literal present, no
// instruction for that subtree" testable property. A non-nil error means n
// IS constant but its value is undefined (division/modulus by zero).
func foldedResult(n *ast.Node) (Result, bool, error) {
	c, ok, err := constfold.Fold(n)
	if !ok || err != nil {
		return Result{}, ok, err
	}
	if c.IsBool {
		leaf := &ast.Node{Typ: ast.BOOLEAN_LIT, Loc: n.Loc, Data: c.Bool}
		return Result{Kind: Simple, Leaf: leaf, Type: types.Type{Kind: types.Boolean}}, true, nil
	}
	leaf := &ast.Node{Typ: ast.INTEGER_LIT, Loc: n.Loc, Data: c.Int}
	return Result{Kind: Simple, Leaf: leaf, Type: types.Type{Kind: types.Integer}}, true, nil
}

// LowerExpr walks an expression subtree, emitting IR for any composed
// (non-leaf) part of it, and returns the Result descriptor spec.md §3
// defines. Leaves (literals, identifiers, this) are returned unmaterialised
// as Simple so the caller can decide whether it needs a value, an address,
// or nothing at all.
func LowerExpr(g *Gen, n *ast.Node) (Result, error) {
	switch n.Typ {
	case ast.INTEGER_LIT:
		return Result{Kind: Simple, Leaf: n, Type: types.Type{Kind: types.Integer}}, nil
	case ast.BOOLEAN_LIT:
		return Result{Kind: Simple, Leaf: n, Type: types.Type{Kind: types.Boolean}}, nil
	case ast.STRING_LIT:
		return Result{Kind: Simple, Leaf: n, Type: types.Type{Kind: types.StringLit}}, nil
	case ast.THIS_EXPR:
		if g.Class == nil {
			return Result{}, ast.Errorf(n.Loc, "'this' used outside a method")
		}
		return Result{Kind: Simple, Leaf: n, Type: types.Type{Kind: types.Class, Name: g.Class.Name}}, nil
	case ast.IDENTIFIER_EXPR:
		sym, err := g.Table.Resolve(n.Data.(string), n.Loc)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Simple, Leaf: n, Type: sym.Type}, nil
	case ast.BINARY_EXPR:
		if r, ok, err := foldedResult(n); ok || err != nil {
			return r, err
		}
		return lowerBinary(g, n)
	case ast.UNARY_EXPR:
		if r, ok, err := foldedResult(n); ok || err != nil {
			return r, err
		}
		return lowerUnary(g, n)
	case ast.FIELD_ACCESS_EXPR:
		return lowerFieldAccess(g, n)
	case ast.ARRAY_ACCESS_EXPR:
		return lowerArrayAccess(g, n)
	case ast.CALL_EXPR:
		return lowerCall(g, n)
	}
	return Result{}, ast.Errorf(n.Loc, "cannot lower expression of kind %s", n.Typ)
}

// materializeValue forces r into a scalar LLVM value (an immediate literal
// or an already-loaded SSA register), loading through a pointer if
// necessary. Classes, arrays, strings and `this` have no scalar
// representation and are rejected here with a diagnostic naming the
// forbidden category (spec.md §7's "arithmetic on string/this/function").
func materializeValue(g *Gen, r Result, loc ast.Location) (types.Type, string, error) {
	switch r.Kind {
	case Simple:
		leaf := r.Leaf
		switch leaf.Typ {
		case ast.INTEGER_LIT:
			return types.Type{Kind: types.Integer}, strconv.FormatInt(leaf.Data.(int64), 10), nil
		case ast.BOOLEAN_LIT:
			if leaf.Data.(bool) {
				return types.Type{Kind: types.Boolean}, "1", nil
			}
			return types.Type{Kind: types.Boolean}, "0", nil
		case ast.STRING_LIT:
			return types.Type{}, "", ast.Errorf(loc, "a string literal cannot be used as a value")
		case ast.THIS_EXPR:
			return types.Type{}, "", ast.Errorf(loc, "'this' cannot be used as a value")
		case ast.IDENTIFIER_EXPR:
			sym, err := g.Table.Resolve(leaf.Data.(string), leaf.Loc)
			if err != nil {
				return types.Type{}, "", err
			}
			if sym.Type.Kind == types.Class || sym.Type.Kind == types.Array {
				return types.Type{}, "", ast.Errorf(loc, "cannot use %s as a value", sym.Type)
			}
			addr, err := symbolAddr(g, sym, loc)
			if err != nil {
				return types.Type{}, "", err
			}
			irTy, err := g.Reg.IRType(sym.Type)
			if err != nil {
				return types.Type{}, "", err
			}
			ssa := g.NewSSA()
			g.emit("  %s = load %s, %s* %s\n", ssa, irTy, irTy, addr)
			return sym.Type, ssa, nil
		}
	case Pointer:
		if r.Type.Kind == types.Class || r.Type.Kind == types.Array {
			return types.Type{}, "", ast.Errorf(loc, "cannot use %s as a value", r.Type)
		}
		irTy, err := g.Reg.IRType(r.Type)
		if err != nil {
			return types.Type{}, "", err
		}
		ssa := g.NewSSA()
		g.emit("  %s = load %s, %s* %s\n", ssa, irTy, irTy, r.SSA)
		return r.Type, ssa, nil
	case ValueResult:
		return r.Type, r.SSA, nil
	}
	return types.Type{}, "", ast.Errorf(loc, "expression does not produce a value")
}

// convertValue materializes r and, if needed, applies the integer<->boolean
// implicit conversion from spec.md §4.4 to reach want. Any other mismatch is
// a fatal type error.
func convertValue(g *Gen, r Result, want types.Type, loc ast.Location) (string, error) {
	srcType, text, err := materializeValue(g, r, loc)
	if err != nil {
		return "", err
	}
	if srcType.Equal(want) {
		return text, nil
	}
	if srcType.Kind == types.Integer && want.Kind == types.Boolean {
		t1 := g.NewSSA()
		g.emit("  %s = icmp ne i32 %s, 0\n", t1, text)
		t2 := g.NewSSA()
		g.emit("  %s = zext i1 %s to i8\n", t2, t1)
		return t2, nil
	}
	if srcType.Kind == types.Boolean && want.Kind == types.Integer {
		t := g.NewSSA()
		g.emit("  %s = zext i8 %s to i32\n", t, text)
		return t, nil
	}
	return "", ast.Errorf(loc, "cannot convert %s to %s", srcType, want)
}

// toPointer returns the address of r, for use as a GEP base (field/array
// receiver) or as an assignment target. Only identifiers, `this`, and
// already-addressed Pointer results are addressable.
func toPointer(g *Gen, r Result, loc ast.Location) (types.Type, string, error) {
	switch r.Kind {
	case Simple:
		leaf := r.Leaf
		switch leaf.Typ {
		case ast.IDENTIFIER_EXPR:
			sym, err := g.Table.Resolve(leaf.Data.(string), leaf.Loc)
			if err != nil {
				return types.Type{}, "", err
			}
			addr, err := symbolAddr(g, sym, loc)
			return sym.Type, addr, err
		case ast.THIS_EXPR:
			if g.Class == nil {
				return types.Type{}, "", ast.Errorf(loc, "'this' used outside a method")
			}
			return types.Type{Kind: types.Class, Name: g.Class.Name}, "%0", nil
		}
		return types.Type{}, "", ast.Errorf(loc, "expression is not addressable")
	case Pointer:
		return r.Type, r.SSA, nil
	}
	return types.Type{}, "", ast.Errorf(loc, "expression is not addressable")
}

// symbolAddr returns the storage address of a resolved symbol: the alloca
// register itself for a parameter/local, or a getelementptr through `this`
// for a field.
func symbolAddr(g *Gen, sym *symtab.Symbol, loc ast.Location) (string, error) {
	switch sym.Kind {
	case symtab.Parameter, symtab.Local:
		return sym.IRName, nil
	case symtab.Field:
		if g.Class == nil {
			return "", ast.Errorf(loc, "field %q referenced outside a method", sym.Name)
		}
		recvType := types.Type{Kind: types.Class, Name: g.Class.Name}
		member := &types.Member{Ordinal: sym.Ordinal, Name: sym.Name, Type: sym.Type}
		return g.fieldGEP(recvType, "%0", member, sym.FieldOf, loc)
	}
	return "", ast.Errorf(loc, "identifier %q does not denote a storage location", sym.Name)
}

// fieldGEP builds the getelementptr chain from a pointer of recvType down
// to member, declared on owner: one leading "i32 0" to deref the pointer
// itself, then one "i32 0" per inheritance hop from recvType to owner
// (each superclass occupies struct index 0 in its subclass), then member's
// own ordinal (spec.md §4.2, scenario 4 in §8).
func (g *Gen) fieldGEP(recvType types.Type, recvPtr string, member *types.Member, owner *types.ClassDecl, loc ast.Location) (string, error) {
	chain := g.Reg.ClassChain(recvType.Name)
	hops := -1
	for i, c := range chain {
		if c.Name == owner.Name {
			hops = i
			break
		}
	}
	if hops < 0 {
		return "", ast.Errorf(loc, "class %q is not related to %q", recvType.Name, owner.Name)
	}
	irType, err := g.Reg.IRType(recvType)
	if err != nil {
		return "", err
	}
	indices := make([]string, 0, hops+2)
	indices = append(indices, "0")
	for i := 0; i < hops; i++ {
		indices = append(indices, "0")
	}
	indices = append(indices, strconv.Itoa(member.Ordinal))

	ssa := g.NewSSA()
	g.emit("  %s = getelementptr inbounds %s, %s* %s, i32 %s\n", ssa, irType, irType, recvPtr, strings.Join(indices, ", i32 "))
	return ssa, nil
}

func lowerFieldAccess(g *Gen, n *ast.Node) (Result, error) {
	recvR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return Result{}, err
	}
	recvType, recvPtr, err := toPointer(g, recvR, n.Loc)
	if err != nil {
		return Result{}, err
	}
	if recvType.Kind != types.Class {
		return Result{}, ast.Errorf(n.Loc, "'.' requires a class-typed receiver, got %s", recvType)
	}
	fieldName := n.Data.(string)
	member, owner := g.Reg.FindMember(recvType.Name, fieldName)
	if member == nil {
		return Result{}, ast.Errorf(n.Loc, "class %q has no field %q", recvType.Name, fieldName)
	}
	addr, err := g.fieldGEP(recvType, recvPtr, member, owner, n.Loc)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: Pointer, Type: member.Type, SSA: addr, IsLvalue: true}, nil
}

func lowerArrayAccess(g *Gen, n *ast.Node) (Result, error) {
	recvR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return Result{}, err
	}
	recvType, recvPtr, err := toPointer(g, recvR, n.Loc)
	if err != nil {
		return Result{}, err
	}
	if recvType.Kind != types.Array {
		return Result{}, ast.Errorf(n.Loc, "'[]' requires an array-typed receiver, got %s", recvType)
	}
	idxR, err := LowerExpr(g, n.Children[1])
	if err != nil {
		return Result{}, err
	}
	idxVal, err := convertValue(g, idxR, types.Type{Kind: types.Integer}, n.Loc)
	if err != nil {
		return Result{}, err
	}
	arr := g.Reg.Arrays[recvType.Name]
	elemType, err := g.Reg.Resolve(arr.ElementName, n.Loc)
	if err != nil {
		return Result{}, err
	}
	irType, err := g.Reg.IRType(recvType)
	if err != nil {
		return Result{}, err
	}
	ssa := g.NewSSA()
	g.emit("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %s\n", ssa, irType, irType, recvPtr, idxVal)
	return Result{Kind: Pointer, Type: elemType, SSA: ssa, IsLvalue: true}, nil
}

var arithMnemonic = map[string]string{
	"+": "add nsw i32", "-": "sub nsw i32", "*": "mul nsw i32",
	"/": "sdiv i32", "%": "srem i32",
	"|": "or i32", "^": "xor i32", "&": "and i32",
	"<<": "shl i32", ">>": "ashr i32",
}

var icmpPredicate = map[string]string{
	"==": "eq", "!=": "ne", "<": "slt", "<=": "sle", ">": "sgt", ">=": "sge",
}

func lowerBinary(g *Gen, n *ast.Node) (Result, error) {
	op := n.Data.(string)
	if op == "and" || op == "or" {
		return lowerShortCircuit(g, n, op)
	}

	lhsR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return Result{}, err
	}
	rhsR, err := LowerExpr(g, n.Children[1])
	if err != nil {
		return Result{}, err
	}

	if mnemonic, ok := arithMnemonic[op]; ok {
		if (op == "/" || op == "%") && isZeroLiteral(rhsR) {
			return Result{}, ast.Errorf(n.Loc, "division by zero")
		}
		lv, err := convertValue(g, lhsR, types.Type{Kind: types.Integer}, n.Loc)
		if err != nil {
			return Result{}, err
		}
		rv, err := convertValue(g, rhsR, types.Type{Kind: types.Integer}, n.Loc)
		if err != nil {
			return Result{}, err
		}
		ssa := g.NewSSA()
		g.emit("  %s = %s %s, %s\n", ssa, mnemonic, lv, rv)
		return Result{Kind: ValueResult, Type: types.Type{Kind: types.Integer}, SSA: ssa}, nil
	}

	if pred, ok := icmpPredicate[op]; ok {
		target := types.Type{Kind: types.Integer}
		irTy := "i32"
		if lhsR.Type.Kind == types.Boolean && rhsR.Type.Kind == types.Boolean {
			target = types.Type{Kind: types.Boolean}
			irTy = "i8"
		}
		lv, err := convertValue(g, lhsR, target, n.Loc)
		if err != nil {
			return Result{}, err
		}
		rv, err := convertValue(g, rhsR, target, n.Loc)
		if err != nil {
			return Result{}, err
		}
		t1 := g.NewSSA()
		g.emit("  %s = icmp %s %s %s, %s\n", t1, pred, irTy, lv, rv)
		t2 := g.NewSSA()
		g.emit("  %s = zext i1 %s to i8\n", t2, t1)
		return Result{Kind: ValueResult, Type: types.Type{Kind: types.Boolean}, SSA: t2}, nil
	}

	return Result{}, ast.Errorf(n.Loc, "unknown binary operator %q", op)
}

func isZeroLiteral(r Result) bool {
	return r.Kind == Simple && r.Leaf.Typ == ast.INTEGER_LIT && r.Leaf.Data.(int64) == 0
}

// lowerShortCircuit implements spec.md §4.4's branch+phi lowering for
// `and`/`or`, including the constant-left fast path that skips branching
// entirely.
func lowerShortCircuit(g *Gen, n *ast.Node, op string) (Result, error) {
	lhsR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return Result{}, err
	}
	if lhsR.Kind == Simple && lhsR.Leaf.Typ == ast.BOOLEAN_LIT {
		lv := lhsR.Leaf.Data.(bool)
		if (op == "and" && !lv) || (op == "or" && lv) {
			return Result{Kind: Simple, Leaf: &ast.Node{Typ: ast.BOOLEAN_LIT, Data: lv}, Type: types.Type{Kind: types.Boolean}}, nil
		}
		rhsR, err := LowerExpr(g, n.Children[1])
		if err != nil {
			return Result{}, err
		}
		v, err := convertValue(g, rhsR, types.Type{Kind: types.Boolean}, n.Loc)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: ValueResult, Type: types.Type{Kind: types.Boolean}, SSA: v}, nil
	}

	lv, err := convertValue(g, lhsR, types.Type{Kind: types.Boolean}, n.Loc)
	if err != nil {
		return Result{}, err
	}
	t1 := g.NewSSA()
	g.emit("  %s = trunc i8 %s to i1\n", t1, lv)

	predLabel := g.currentLabel
	rhsBlock := g.NewBlock()
	joinBlock := g.NewBlock()
	if op == "and" {
		g.emit("  br i1 %s, label %%%s, label %%%s\n", t1, rhsBlock, joinBlock)
	} else {
		g.emit("  br i1 %s, label %%%s, label %%%s\n", t1, joinBlock, rhsBlock)
	}

	g.emitLabel(rhsBlock, predLabel)
	rhsR, err := LowerExpr(g, n.Children[1])
	if err != nil {
		return Result{}, err
	}
	rv, err := convertValue(g, rhsR, types.Type{Kind: types.Boolean}, n.Loc)
	if err != nil {
		return Result{}, err
	}
	rt1 := g.NewSSA()
	g.emit("  %s = trunc i8 %s to i1\n", rt1, rv)
	rhsEndLabel := g.currentLabel
	g.emit("  br label %%%s\n", joinBlock)

	g.emitLabel(joinBlock, predLabel, rhsEndLabel)
	shortValue := "false"
	if op == "or" {
		shortValue = "true"
	}
	phi := g.NewSSA()
	g.emit("  %s = phi i1 [ %s, %%%s ], [ %s, %%%s ]\n", phi, shortValue, predLabel, rt1, rhsEndLabel)
	z := g.NewSSA()
	g.emit("  %s = zext i1 %s to i8\n", z, phi)
	return Result{Kind: ValueResult, Type: types.Type{Kind: types.Boolean}, SSA: z}, nil
}

func lowerUnary(g *Gen, n *ast.Node) (Result, error) {
	op := n.Data.(string)
	operandR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return Result{}, err
	}
	switch op {
	case "-":
		v, err := convertValue(g, operandR, types.Type{Kind: types.Integer}, n.Loc)
		if err != nil {
			return Result{}, err
		}
		ssa := g.NewSSA()
		g.emit("  %s = sub nsw i32 0, %s\n", ssa, v)
		return Result{Kind: ValueResult, Type: types.Type{Kind: types.Integer}, SSA: ssa}, nil
	case "not":
		v, err := convertValue(g, operandR, types.Type{Kind: types.Boolean}, n.Loc)
		if err != nil {
			return Result{}, err
		}
		ssa := g.NewSSA()
		g.emit("  %s = xor i8 %s, 1\n", ssa, v)
		return Result{Kind: ValueResult, Type: types.Type{Kind: types.Boolean}, SSA: ssa}, nil
	}
	return Result{}, ast.Errorf(n.Loc, "unknown unary operator %q", op)
}
