package codegen

import (
	"fmt"
	"strings"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/irwriter"
	"github.com/tcbbd/dragon-Compiler/internal/symtab"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// LowerBlock lowers every statement in a BLOCK node in order. Once one
// statement sets blockIsOver, the remaining statements are still lowered
// (so they are still fully type-checked) but into a discarded buffer, per
// the original's unreachable-code handling preserved per spec.md §9's open
// question.
func LowerBlock(g *Gen, block *ast.Node) error {
	g.Table.Push()
	defer g.Table.Pop()

	for _, stmt := range block.Children {
		if !g.blockIsOver {
			if err := LowerStmt(g, stmt); err != nil {
				return err
			}
			continue
		}

		saved := g.buf
		savedSSA, savedBlock := g.ssaCounter, g.blockCounter
		savedOver, savedByBr, savedLabel := g.blockIsOver, g.terminatedByBr, g.currentLabel
		frame, _ := g.loops.Peek().(*loopFrame)
		var nBreak, nCont int
		if frame != nil {
			nBreak, nCont = len(frame.breakPos), len(frame.continuePos)
		}
		g.buf = strings.Builder{}
		err := LowerStmt(g, stmt)
		g.buf = saved
		g.ssaCounter, g.blockCounter = savedSSA, savedBlock
		g.blockIsOver, g.terminatedByBr, g.currentLabel = savedOver, savedByBr, savedLabel
		if frame != nil {
			frame.breakPos, frame.breakBlocks = frame.breakPos[:nBreak], frame.breakBlocks[:nBreak]
			frame.continuePos, frame.continueBlocks = frame.continuePos[:nCont], frame.continueBlocks[:nCont]
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// LowerStmt lowers a single statement, updating reachability flags.
func LowerStmt(g *Gen, n *ast.Node) error {
	switch n.Typ {
	case ast.NULL_STMT:
		return nil
	case ast.VAR_DECL_STMT:
		return lowerVarDecl(g, n)
	case ast.ASSIGN_STMT:
		return lowerAssign(g, n)
	case ast.RETURN_STMT:
		return lowerReturn(g, n)
	case ast.PRINT_STMT:
		return lowerPrint(g, n)
	case ast.IF_STMT:
		return lowerIf(g, n)
	case ast.WHILE_STMT:
		return lowerWhile(g, n)
	case ast.REPEAT_STMT:
		return lowerRepeat(g, n)
	case ast.FOREACH_STMT:
		return lowerForeach(g, n)
	case ast.BREAK_STMT:
		return lowerBreak(g, n)
	case ast.CONTINUE_STMT:
		return lowerContinue(g, n)
	default:
		// A bare expression statement (e.g. a call for its side effect).
		_, err := LowerExpr(g, n)
		return err
	}
}

func lowerVarDecl(g *Gen, n *ast.Node) error {
	names := n.Children[0].Data.([]string)
	tyName := n.Children[1].Data.(string)
	ty, err := g.Reg.Resolve(tyName, n.Loc)
	if err != nil {
		return err
	}
	irTy, err := g.Reg.IRType(ty)
	if err != nil {
		return err
	}
	for _, name := range names {
		ssa := g.NewSSA()
		g.emit("  %s = alloca %s, align 4\n", ssa, irTy)
		if err := g.Table.Declare(&symtab.Symbol{Kind: symtab.Local, Name: name, Type: ty, IRName: ssa}, n.Loc); err != nil {
			return err
		}
	}
	return nil
}

func lowerAssign(g *Gen, n *ast.Node) error {
	lhsNode, rhsNode := n.Children[0], n.Children[1]
	if lhsNode.Typ == ast.THIS_EXPR {
		return ast.Errorf(n.Loc, "cannot assign to 'this'")
	}
	lhsR, err := LowerExpr(g, lhsNode)
	if err != nil {
		return err
	}
	lhsType, lhsAddr, err := toPointer(g, lhsR, n.Loc)
	if err != nil {
		return err
	}
	if lhsType.Kind == types.Array {
		return ast.Errorf(n.Loc, "cannot assign to an array")
	}
	if lhsType.Kind == types.StringLit {
		return ast.Errorf(n.Loc, "cannot assign a string literal")
	}

	rhsR, err := LowerExpr(g, rhsNode)
	if err != nil {
		return err
	}

	irTy, err := g.Reg.IRType(lhsType)
	if err != nil {
		return err
	}

	if lhsType.Kind == types.Class {
		// Whole-object assignment: copy the struct value through a load/store
		// pair rather than a scalar conversion.
		if rhsNode.Typ == ast.THIS_EXPR {
			return ast.Errorf(n.Loc, "cannot assign 'this'")
		}
		_, rhsAddr, err := toPointer(g, rhsR, n.Loc)
		if err != nil {
			return err
		}
		tmp := g.NewSSA()
		g.emit("  %s = load %s, %s* %s\n", tmp, irTy, irTy, rhsAddr)
		g.emit("  store %s %s, %s* %s\n", irTy, tmp, irTy, lhsAddr)
		return nil
	}

	val, err := convertValue(g, rhsR, lhsType, n.Loc)
	if err != nil {
		return err
	}
	g.emit("  store %s %s, %s* %s\n", irTy, val, irTy, lhsAddr)
	return nil
}

func lowerReturn(g *Gen, n *ast.Node) error {
	if len(n.Children) == 0 {
		if g.RetType.Kind != types.Void {
			return ast.Errorf(n.Loc, "non-void function must return a value")
		}
		g.emit("  ret void\n")
		g.blockIsOver = true
		g.terminatedByBr = false
		return nil
	}
	valR, err := LowerExpr(g, n.Children[0])
	if err != nil {
		return err
	}
	val, err := convertValue(g, valR, g.RetType, n.Loc)
	if err != nil {
		return err
	}
	irTy, err := g.Reg.IRType(g.RetType)
	if err != nil {
		return err
	}
	g.emit("  ret %s %s\n", irTy, val)
	g.blockIsOver = true
	g.terminatedByBr = false
	return nil
}

func lowerPrint(g *Gen, n *ast.Node) error {
	items := n.Children[0].Children
	for i, item := range items {
		r, err := LowerExpr(g, item)
		if err != nil {
			return err
		}
		if r.Kind == Simple && r.Leaf.Typ == ast.STRING_LIT {
			id := g.Module.InternString(r.Leaf.Data.(string))
			length := g.Module.StrLen(id)
			arrTy := fmt.Sprintf("[%d x i8]", length)
			ssa := g.NewSSA()
			g.emit("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds (%s, %s* @.str%d, i32 0, i32 0))\n", ssa, arrTy, arrTy, id)
		} else {
			if r.Type.Kind == types.Class || r.Type.Kind == types.Array {
				return ast.Errorf(item.Loc, "cannot print a %s", r.Type)
			}
			val, err := convertValue(g, r, types.Type{Kind: types.Integer}, item.Loc)
			if err != nil {
				return err
			}
			ssa := g.NewSSA()
			g.emit("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([3 x i8], [3 x i8]* @.str2, i32 0, i32 0), i32 %s)\n", ssa, val)
		}
		if i < len(items)-1 {
			ssa := g.NewSSA()
			g.emit("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([2 x i8], [2 x i8]* @.str1, i32 0, i32 0))\n", ssa)
		}
	}
	ssa := g.NewSSA()
	g.emit("  %s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([2 x i8], [2 x i8]* @.str0, i32 0, i32 0))\n", ssa)
	return nil
}

func lowerIf(g *Gen, n *ast.Node) error {
	children := n.Children
	hasElse := len(children)%2 == 1
	nPairs := len(children) / 2

	condLabels := make([]string, nPairs)
	condLabels[0] = g.currentLabel
	for i := 1; i < nPairs; i++ {
		condLabels[i] = g.NewBlock()
	}
	thenLabels := make([]string, nPairs)
	for i := 0; i < nPairs; i++ {
		thenLabels[i] = g.NewBlock()
	}
	elseLabel := ""
	if hasElse {
		elseLabel = g.NewBlock()
	}
	joinLabel := g.NewBlock()

	var joinPreds []string

	for i := 0; i < nPairs; i++ {
		if i > 0 {
			g.emitLabel(condLabels[i], condLabels[i-1])
		}
		condNode, bodyNode := children[2*i], children[2*i+1]
		condR, err := LowerExpr(g, condNode)
		if err != nil {
			return err
		}
		condVal, err := convertValue(g, condR, types.Type{Kind: types.Boolean}, condNode.Loc)
		if err != nil {
			return err
		}
		t1 := g.NewSSA()
		g.emit("  %s = trunc i8 %s to i1\n", t1, condVal)

		var falseTarget string
		if i+1 < nPairs {
			falseTarget = condLabels[i+1]
		} else if hasElse {
			falseTarget = elseLabel
		} else {
			falseTarget = joinLabel
			joinPreds = append(joinPreds, condLabels[i])
		}
		g.emit("  br i1 %s, label %%%s, label %%%s\n", t1, thenLabels[i], falseTarget)
		g.blockIsOver = true

		g.emitLabel(thenLabels[i], condLabels[i])
		if err := LowerBlock(g, bodyNode); err != nil {
			return err
		}
		if !g.blockIsOver {
			g.emit("  br label %%%s\n", joinLabel)
			joinPreds = append(joinPreds, g.currentLabel)
		}
	}

	if hasElse {
		g.emitLabel(elseLabel, condLabels[nPairs-1])
		if err := LowerBlock(g, children[len(children)-1]); err != nil {
			return err
		}
		if !g.blockIsOver {
			g.emit("  br label %%%s\n", joinLabel)
			joinPreds = append(joinPreds, g.currentLabel)
		}
	}

	g.emitLabel(joinLabel, joinPreds...)
	return nil
}

func lowerWhile(g *Gen, n *ast.Node) error {
	condNode, bodyNode := n.Children[0], n.Children[1]

	predLabel := g.currentLabel
	condBlock := g.NewBlock()
	g.emit("  br label %%%s\n", condBlock)
	g.blockIsOver = true

	predsMarker := g.emitLabelPending(condBlock)
	condR, err := LowerExpr(g, condNode)
	if err != nil {
		return err
	}
	condVal, err := convertValue(g, condR, types.Type{Kind: types.Boolean}, condNode.Loc)
	if err != nil {
		return err
	}
	t1 := g.NewSSA()
	g.emit("  %s = trunc i8 %s to i1\n", t1, condVal)

	bodyBlock := g.NewBlock()
	exitBlock := g.NewBlock()
	g.emit("  br i1 %s, label %%%s, label %%%s\n", t1, bodyBlock, exitBlock)
	g.blockIsOver = true

	g.emitLabel(bodyBlock, condBlock)
	frame := g.enterLoop()
	if err := LowerBlock(g, bodyNode); err != nil {
		return err
	}
	bodyEndLabel := ""
	if !g.blockIsOver {
		bodyEndLabel = g.currentLabel
		g.emit("  br label %%%s\n", condBlock)
	}
	g.exitLoop()

	g.patchLoopSentinels(frame, exitBlock, condBlock)

	g.resolvePreds(predsMarker, append([]string{predLabel, bodyEndLabel}, frame.continueBlocks...)...)
	g.emitLabel(exitBlock, append([]string{condBlock}, frame.breakBlocks...)...)
	return nil
}

func lowerRepeat(g *Gen, n *ast.Node) error {
	bodyNode, condNode := n.Children[0], n.Children[1]

	predLabel := g.currentLabel
	bodyBlock := g.NewBlock()
	g.emit("  br label %%%s\n", bodyBlock)
	g.blockIsOver = true

	bodyPredsMarker := g.emitLabelPending(bodyBlock)
	frame := g.enterLoop()
	if err := LowerBlock(g, bodyNode); err != nil {
		return err
	}
	g.exitLoop()

	exitBlock := g.NewBlock()
	condEndLabel := ""
	if !g.blockIsOver {
		condR, err := LowerExpr(g, condNode)
		if err != nil {
			return err
		}
		condVal, err := convertValue(g, condR, types.Type{Kind: types.Boolean}, condNode.Loc)
		if err != nil {
			return err
		}
		t1 := g.NewSSA()
		g.emit("  %s = trunc i8 %s to i1\n", t1, condVal)
		// repeat B until E: take the back-edge while E is false.
		g.emit("  br i1 %s, label %%%s, label %%%s\n", t1, exitBlock, bodyBlock)
		g.blockIsOver = true
		condEndLabel = g.currentLabel
	}

	g.patchLoopSentinels(frame, exitBlock, bodyBlock)

	g.resolvePreds(bodyPredsMarker, append([]string{predLabel, condEndLabel}, frame.continueBlocks...)...)
	g.emitLabel(exitBlock, append([]string{condEndLabel}, frame.breakBlocks...)...)
	return nil
}

func lowerForeach(g *Gen, n *ast.Node) error {
	iterName := n.Data.(string)
	arrNode, bodyNode := n.Children[0], n.Children[1]

	arrR, err := LowerExpr(g, arrNode)
	if err != nil {
		return err
	}
	arrType, arrAddr, err := toPointer(g, arrR, n.Loc)
	if err != nil {
		return err
	}
	if arrType.Kind != types.Array {
		return ast.Errorf(n.Loc, "foreach requires an array, got %s", arrType)
	}
	arr := g.Reg.Arrays[arrType.Name]
	elemType, err := g.Reg.Resolve(arr.ElementName, n.Loc)
	if err != nil {
		return err
	}
	elemIR, err := g.Reg.IRType(elemType)
	if err != nil {
		return err
	}

	iterSym, err := g.Table.Resolve(iterName, n.Loc)
	if err != nil {
		return err
	}
	if iterSym.Kind != symtab.Local {
		return ast.Errorf(n.Loc, "foreach iterator %q must be a local variable", iterName)
	}
	if !iterSym.Type.Equal(elemType) {
		return ast.Errorf(n.Loc, "foreach iterator %q has type %s, array element is %s", iterName, iterSym.Type, elemType)
	}

	counterAddr := g.NewSSA()
	g.emit("  %s = alloca i32, align 4\n", counterAddr)
	g.emit("  store i32 0, i32* %s\n", counterAddr)

	arrIR, err := g.Reg.IRType(arrType)
	if err != nil {
		return err
	}
	elem0 := g.NewSSA()
	g.emit("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 0\n", elem0, arrIR, arrIR, arrAddr)
	v0 := g.NewSSA()
	g.emit("  %s = load %s, %s* %s\n", v0, elemIR, elemIR, elem0)
	g.emit("  store %s %s, %s* %s\n", elemIR, v0, elemIR, iterSym.IRName)

	predLabel := g.currentLabel
	condBlock := g.NewBlock()
	g.emit("  br label %%%s\n", condBlock)
	g.blockIsOver = true

	predsMarker := g.emitLabelPending(condBlock)
	cv := g.NewSSA()
	g.emit("  %s = load i32, i32* %s\n", cv, counterAddr)
	cmp := g.NewSSA()
	g.emit("  %s = icmp slt i32 %s, %d\n", cmp, cv, arr.Length)

	bodyBlock := g.NewBlock()
	exitBlock := g.NewBlock()
	g.emit("  br i1 %s, label %%%s, label %%%s\n", cmp, bodyBlock, exitBlock)
	g.blockIsOver = true

	g.emitLabel(bodyBlock, condBlock)
	frame := g.enterLoop()
	if err := LowerBlock(g, bodyNode); err != nil {
		return err
	}
	g.exitLoop()

	stepBlock := ""
	if !g.blockIsOver {
		cv2 := g.NewSSA()
		g.emit("  %s = load i32, i32* %s\n", cv2, counterAddr)
		next := g.NewSSA()
		g.emit("  %s = add nsw i32 %s, 1\n", next, cv2)
		g.emit("  store i32 %s, i32* %s\n", next, counterAddr)
		elemN := g.NewSSA()
		g.emit("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %s\n", elemN, arrIR, arrIR, arrAddr, next)
		vn := g.NewSSA()
		g.emit("  %s = load %s, %s* %s\n", vn, elemIR, elemIR, elemN)
		g.emit("  store %s %s, %s* %s\n", elemIR, vn, elemIR, iterSym.IRName)
		g.emit("  br label %%%s\n", condBlock)
		stepBlock = g.currentLabel
	}

	g.patchLoopSentinels(frame, exitBlock, condBlock)

	g.resolvePreds(predsMarker, append([]string{predLabel, stepBlock}, frame.continueBlocks...)...)
	g.emitLabel(exitBlock, append([]string{condBlock}, frame.breakBlocks...)...)
	return nil
}

func lowerBreak(g *Gen, n *ast.Node) error {
	if !g.inLoop() {
		return ast.Errorf(n.Loc, "'break' outside a loop")
	}
	g.emitSentinelBranch(irwriter.BreakSentinel)
	g.blockIsOver = true
	g.terminatedByBr = true
	return nil
}

func lowerContinue(g *Gen, n *ast.Node) error {
	if !g.inLoop() {
		return ast.Errorf(n.Loc, "'continue' outside a loop")
	}
	g.emitSentinelBranch(irwriter.ContinueSentinel)
	g.blockIsOver = true
	g.terminatedByBr = true
	return nil
}
