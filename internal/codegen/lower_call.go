package codegen

import (
	"fmt"
	"strings"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// lowerCall resolves the callee (a method on a receiver, an in-method call
// implicitly bound to `this`, or a free function) and emits the `call`
// instruction, per spec.md §4.4's method-invocation rules.
func lowerCall(g *Gen, n *ast.Node) (Result, error) {
	callee := n.Children[0]
	args := n.Children[1].Children

	switch callee.Typ {
	case ast.FIELD_ACCESS_EXPR:
		recvR, err := LowerExpr(g, callee.Children[0])
		if err != nil {
			return Result{}, err
		}
		recvType, recvPtr, err := toPointer(g, recvR, n.Loc)
		if err != nil {
			return Result{}, err
		}
		if recvType.Kind != types.Class {
			return Result{}, ast.Errorf(n.Loc, "method call requires a class-typed receiver, got %s", recvType)
		}
		methodName := callee.Data.(string)
		defn, owner, err := g.Program.ResolveMethod(recvType.Name, methodName, n.Loc)
		if err != nil {
			return Result{}, err
		}
		return emitCall(g, fmt.Sprintf("@class.%s.%s", owner.Name, methodName), defn, owner.Name, recvPtr, args, n.Loc)

	case ast.IDENTIFIER_EXPR:
		name := callee.Data.(string)
		if g.Class != nil {
			if defn, owner := g.Reg.FindMethod(g.Class.Name, name); defn != nil {
				return emitCall(g, fmt.Sprintf("@class.%s.%s", owner.Name, name), defn, owner.Name, "%0", args, n.Loc)
			}
		}
		defn, err := g.Program.ResolveFunction(name, n.Loc)
		if err != nil {
			return Result{}, err
		}
		irName := name
		if irName == "main" {
			// The top-level program entry owns the real @main; a free
			// function that happens to also be named main is renamed so the
			// two never collide (spec.md §4.4).
			irName = "...main"
		}
		return emitCall(g, "@"+irName, defn, "", "", args, n.Loc)
	}

	return Result{}, ast.Errorf(n.Loc, "call target is not callable")
}

// emitCall type-checks arguments against defn's parameter list (applying
// int/bool conversions), emits the `call` instruction, and returns its
// Result.
func emitCall(g *Gen, irFuncName string, defn *ast.Node, recvClassName, recvPtr string, argNodes []*ast.Node, loc ast.Location) (Result, error) {
	params := defn.Children[0].Children
	retTypeName := defn.Children[1].Data.(string)
	retType, err := g.Reg.Resolve(retTypeName, loc)
	if err != nil {
		return Result{}, err
	}

	var argTexts []string
	if recvPtr != "" {
		argTexts = append(argTexts, fmt.Sprintf("%%class.%s* %s", recvClassName, recvPtr))
	}

	if len(argNodes) != len(params) {
		return Result{}, ast.Errorf(loc, "expected %d argument(s), got %d", len(params), len(argNodes))
	}
	for i, p := range params {
		wantName := p.Children[1].Data.(string)
		want, err := g.Reg.Resolve(wantName, loc)
		if err != nil {
			return Result{}, err
		}
		argR, err := LowerExpr(g, argNodes[i])
		if err != nil {
			return Result{}, err
		}
		irTy, err := g.Reg.IRType(want)
		if err != nil {
			return Result{}, err
		}
		var val string
		if want.Kind == types.Class || want.Kind == types.Array {
			// Aggregates are passed by value: load the whole object.
			if argNodes[i].Typ == ast.THIS_EXPR {
				return Result{}, ast.Errorf(loc, "'this' cannot be passed as an argument")
			}
			argType, addr, err := toPointer(g, argR, loc)
			if err != nil {
				return Result{}, err
			}
			if !argType.Equal(want) {
				return Result{}, ast.Errorf(loc, "cannot convert %s to %s", argType, want)
			}
			val = g.NewSSA()
			g.emit("  %s = load %s, %s* %s\n", val, irTy, irTy, addr)
		} else if val, err = convertValue(g, argR, want, loc); err != nil {
			return Result{}, err
		}
		argTexts = append(argTexts, fmt.Sprintf("%s %s", irTy, val))
	}

	if retType.Kind == types.Void {
		g.emit("  call void %s(%s)\n", irFuncName, strings.Join(argTexts, ", "))
		return Result{Kind: NoneResult}, nil
	}
	retIR, err := g.Reg.IRType(retType)
	if err != nil {
		return Result{}, err
	}
	ssa := g.NewSSA()
	g.emit("  %s = call %s %s(%s)\n", ssa, retIR, irFuncName, strings.Join(argTexts, ", "))
	return Result{Kind: ValueResult, Type: retType, SSA: ssa}, nil
}
