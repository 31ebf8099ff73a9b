package compiler

import (
	"fmt"
	"strings"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/codegen"
	"github.com/tcbbd/dragon-Compiler/internal/irwriter"
	"github.com/tcbbd/dragon-Compiler/internal/symtab"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// lowerFunction lowers one FUNCTION_DECL/METHOD_DECL node (a free function,
// a method, or the program entry point) to a complete `define ... { ... }`
// text, per spec.md §4.8's IR Writer Contract. class is non-nil for a
// method, giving it the implicit `this` receiver at register %0.
func lowerFunction(reg *types.Registry, prog *symtab.Program, mod *irwriter.Module, n *ast.Node, class *types.ClassDecl, irName string, attrGroup int) (string, error) {
	params := n.Children[0].Children
	retTypeName := n.Children[1].Data.(string)
	locals := n.Children[2].Children
	body := n.Children[3]

	retType, err := reg.Resolve(retTypeName, n.Loc)
	if err != nil {
		return "", err
	}

	table := symtab.NewTable(reg, class)
	g := codegen.NewGen(reg, prog, mod, table, class, retType)

	var sigParts []string
	nextArg := 0
	if class != nil {
		sigParts = append(sigParts, fmt.Sprintf("%s* %%0", class.IRTypeName()))
		nextArg = 1
	}

	type paramInfo struct {
		name string
		ty   types.Type
		reg  string
	}
	var infos []paramInfo
	for _, p := range params {
		name := p.Children[0].Data.([]string)[0]
		tyName := p.Children[1].Data.(string)
		ty, err := reg.Resolve(tyName, p.Loc)
		if err != nil {
			return "", err
		}
		irTy, err := reg.IRType(ty)
		if err != nil {
			return "", err
		}
		argReg := fmt.Sprintf("%%%d", nextArg)
		sigParts = append(sigParts, fmt.Sprintf("%s %s", irTy, argReg))
		infos = append(infos, paramInfo{name: name, ty: ty, reg: argReg})
		nextArg++
	}
	g.SetSSACounter(nextArg - 1)

	for _, pi := range infos {
		irTy, err := reg.IRType(pi.ty)
		if err != nil {
			return "", err
		}
		ssa := g.NewSSA()
		g.Emit("  %s = alloca %s, align 4\n", ssa, irTy)
		g.Emit("  store %s %s, %s* %s\n", irTy, pi.reg, irTy, ssa)
		if err := table.Declare(&symtab.Symbol{Kind: symtab.Parameter, Name: pi.name, Type: pi.ty, IRName: ssa}, n.Loc); err != nil {
			return "", err
		}
	}

	for _, l := range locals {
		names := l.Children[0].Data.([]string)
		tyName := l.Children[1].Data.(string)
		ty, err := reg.Resolve(tyName, l.Loc)
		if err != nil {
			return "", err
		}
		irTy, err := reg.IRType(ty)
		if err != nil {
			return "", err
		}
		for _, name := range names {
			ssa := g.NewSSA()
			g.Emit("  %s = alloca %s, align 4\n", ssa, irTy)
			if err := table.Declare(&symtab.Symbol{Kind: symtab.Local, Name: name, Type: ty, IRName: ssa}, l.Loc); err != nil {
				return "", err
			}
		}
	}

	if err := codegen.LowerBlock(g, body); err != nil {
		return "", err
	}

	tailIsOver, tailTerminatedByBr := g.Flags()
	if tailIsOver && tailTerminatedByBr {
		g.Emit("  unreachable\n")
	} else if !tailIsOver {
		if retType.Kind != types.Void {
			return "", ast.Errorf(n.Loc, "function must return a value on every code path")
		}
		g.Emit("  ret void\n")
	}

	retIR, err := reg.IRType(retType)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "define %s @%s(%s) #%d {\n", retIR, irName, strings.Join(sigParts, ", "), attrGroup)
	sb.WriteString(g.Finish())
	sb.WriteString("}\n")
	return sb.String(), nil
}
