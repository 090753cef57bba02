package compiler

import (
	"fmt"

	"valuescript/pkg/asm"
	"valuescript/pkg/parser"
	"valuescript/pkg/scope"
)

// funcCompiler lowers one function-like body (function, arrow, method,
// or the synthetic module_init) into a flat FnLine sequence. Named
// bindings never need allocation here: their Register came from the
// scope analyzer during hoisting. Only intermediate expression results
// need a fresh temporary.
type funcCompiler struct {
	c          *Compiler
	owner      scope.OwnerId
	fn         *asm.Function
	body       []asm.FnLine
	labelSeq   int
	loops      []loopLabels
	finallies  []finallyCtx
	catchDepth int
}

type loopLabels struct {
	continueLabel string
	breakLabel    string
	// catchDepth is the static SetCatch nesting at loop entry; break and
	// continue emit UnsetCatch down to it before jumping so a try inside
	// the loop body can't leak its handler.
	catchDepth int
}

// finallyCtx tracks an enclosing try-with-finally while its guarded
// region compiles: a `return` inside it must run the finally body
// before the frame can End, so it sets isReturning and jumps to the
// finally entry instead of emitting End directly.
type finallyCtx struct {
	entryLabel  string
	isReturning asm.Register
	// catchDepth is the static SetCatch nesting at the finally entry
	// label, where the guarded region's own handler is no longer active.
	catchDepth int
}

func newFuncCompiler(c *Compiler, owner scope.OwnerId) *funcCompiler {
	return &funcCompiler{c: c, owner: owner, fn: &asm.Function{}}
}

func (fc *funcCompiler) emit(line asm.FnLine) { fc.body = append(fc.body, line) }

func (fc *funcCompiler) emitOp(op asm.OpCode, operands []asm.Operand, dst *asm.Register) {
	fc.emit(asm.InstructionLine(&asm.Instruction{Op: op, Operands: operands, Dst: dst}))
}

func (fc *funcCompiler) newLabel(prefix string) string {
	fc.labelSeq++
	return fmt.Sprintf("%s%d", prefix, fc.labelSeq)
}

func (fc *funcCompiler) label(name string) { fc.emit(asm.LabelLine(name)) }
func (fc *funcCompiler) jump(target string) {
	fc.emitOp(asm.OpJmp, []asm.Operand{asm.LabelRef{Name: target}}, nil)
}
func (fc *funcCompiler) jumpIf(cond asm.Operand, target string) {
	fc.emitOp(asm.OpJmpIf, []asm.Operand{cond, asm.LabelRef{Name: target}}, nil)
}
func (fc *funcCompiler) jumpIfNot(cond asm.Operand, target string) {
	fc.emitOp(asm.OpJmpIfNot, []asm.Operand{cond, asm.LabelRef{Name: target}}, nil)
}

func (fc *funcCompiler) temp() asm.Register { return fc.c.analysis.NewTemp(fc.owner) }

func (fc *funcCompiler) setCatch(label string) {
	fc.emitOp(asm.OpSetCatch, []asm.Operand{asm.LabelRef{Name: label}}, nil)
	fc.catchDepth++
}

func (fc *funcCompiler) unsetCatch() {
	fc.emitOp(asm.OpUnsetCatch, nil, nil)
	fc.catchDepth--
}

// unwindCatchesTo emits the UnsetCatch instructions a non-local jump
// (return-to-finally, break, continue) owes for the SetCatch regions it
// exits. It does not change the tracked depth: the fall-through path
// after the jump still has those handlers active.
func (fc *funcCompiler) unwindCatchesTo(depth int) {
	for i := fc.catchDepth; i > depth; i-- {
		fc.emitOp(asm.OpUnsetCatch, nil, nil)
	}
}

func regOf(op asm.Operand) (asm.Register, bool) {
	r, ok := op.(asm.Register)
	return r, ok
}

// into moves op into dst unless it already is dst.
func (fc *funcCompiler) into(op asm.Operand, dst asm.Register) {
	if r, ok := regOf(op); ok && r.Name == dst.Name {
		return
	}
	fc.emitOp(asm.OpMov, []asm.Operand{op}, &dst)
}

// compileToTemp evaluates expr and guarantees the result lives in a
// fresh register (needed when the value must survive further emission
// that could otherwise clobber a literal/pointer operand in place).
func (fc *funcCompiler) compileToTemp(expr parser.Expression) asm.Register {
	v := fc.compileExpr(expr)
	if r, ok := regOf(v); ok {
		return r
	}
	t := fc.temp()
	fc.into(v, t)
	return t
}

// --- Statements ---

func (fc *funcCompiler) compileStatement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.VarStatement:
		fc.compileDeclInit(s.Name, s.Value)
	case *parser.LetStatement:
		fc.compileDeclInit(s.Name, s.Value)
	case *parser.ConstStatement:
		fc.compileDeclInit(s.Name, s.Value)
	case *parser.ArrayDestructuringDeclaration:
		fc.compileArrayDestructuring(s.Elements, s.Value)
	case *parser.ObjectDestructuringDeclaration:
		fc.compileObjectDestructuring(s.Properties, s.RestProperty, s.Value)
	case *parser.ExpressionStatement:
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			fc.c.compileFunctionDecl(fn)
			return
		}
		if en, ok := s.Expression.(*parser.EnumDeclaration); ok {
			fc.c.compileEnumDecl(en)
			return
		}
		fc.compileExpr(s.Expression)
	case *parser.ReturnStatement:
		if s.ReturnValue != nil {
			v := fc.compileExpr(s.ReturnValue)
			fc.into(v, asm.Reg(asm.ReturnReg))
		}
		if n := len(fc.finallies); n > 0 {
			ctx := fc.finallies[n-1]
			fc.unwindCatchesTo(ctx.catchDepth)
			fc.into(asm.BoolLit(true), ctx.isReturning)
			fc.jump(ctx.entryLabel)
			return
		}
		fc.emitOp(asm.OpEnd, nil, nil)
	case *parser.BlockStatement:
		for _, sub := range s.Statements {
			fc.compileStatement(sub)
		}
	case *parser.IfStatement:
		fc.compileIf(s)
	case *parser.WhileStatement:
		fc.compileWhile(s)
	case *parser.DoWhileStatement:
		fc.compileDoWhile(s)
	case *parser.ForStatement:
		fc.compileFor(s)
	case *parser.ForOfStatement:
		fc.compileForOf(s)
	case *parser.ForInStatement:
		fc.compileForIn(s)
	case *parser.BreakStatement:
		if len(fc.loops) > 0 {
			lbls := fc.loops[len(fc.loops)-1]
			fc.unwindCatchesTo(lbls.catchDepth)
			fc.jump(lbls.breakLabel)
		}
	case *parser.ContinueStatement:
		if len(fc.loops) > 0 {
			lbls := fc.loops[len(fc.loops)-1]
			fc.unwindCatchesTo(lbls.catchDepth)
			fc.jump(lbls.continueLabel)
		}
	case *parser.TryStatement:
		fc.compileTry(s)
	case *parser.ThrowStatement:
		v := fc.compileExpr(s.Value)
		fc.into(v, asm.Reg(asm.ReturnReg))
		fc.emitOp(asm.OpThrow, nil, nil)
	case *parser.SwitchStatement:
		fc.compileSwitch(s)
	case *parser.ClassDeclaration:
		fc.c.compileClassDecl(s)
	case *parser.ImportDeclaration:
		fc.c.compileImportDecl(s)
	default:
		// statement kinds with no lowering yet (e.g. type-only declarations)
	}
}

func (fc *funcCompiler) compileDeclInit(ident *parser.Identifier, value parser.Expression) {
	name, ok := fc.c.analysis.Lookup(ident)
	if !ok || value == nil {
		if value != nil {
			fc.compileExpr(value)
		}
		return
	}
	reg, ok := name.Value.(asm.Register)
	if !ok {
		return
	}
	v := fc.compileExpr(value)
	fc.into(v, reg)
}

func (fc *funcCompiler) compileDefaultParam(p *parser.Parameter) {
	name, ok := fc.c.analysis.Lookup(p.Name)
	if !ok {
		return
	}
	reg, ok := name.Value.(asm.Register)
	if !ok {
		return
	}
	// Default parameters evaluate whenever the incoming value is
	// `undefined` — the caller omitted the argument or passed it
	// explicitly, both observably the same per §4.4's call convention.
	undef := asm.UndefinedLit{}
	isUndef := fc.temp()
	fc.emitOp(asm.OpStrictEqual, []asm.Operand{reg.Untake(), undef}, &isUndef)
	afterLabel := fc.newLabel("default_end")
	fc.jumpIfNot(isUndef, afterLabel)
	v := fc.compileExpr(p.DefaultValue)
	fc.into(v, reg)
	fc.label(afterLabel)
}

func (fc *funcCompiler) compileIf(s *parser.IfStatement) {
	cond := fc.compileExpr(s.Condition)
	elseLabel := fc.newLabel("else")
	endLabel := fc.newLabel("endif")
	fc.jumpIfNot(cond, elseLabel)
	if s.Consequence != nil {
		fc.compileStatement(s.Consequence)
	}
	if s.Alternative != nil {
		fc.jump(endLabel)
		fc.label(elseLabel)
		fc.compileStatement(s.Alternative)
		fc.label(endLabel)
	} else {
		fc.label(elseLabel)
	}
}

func (fc *funcCompiler) compileWhile(s *parser.WhileStatement) {
	start := fc.newLabel("loop")
	end := fc.newLabel("loopend")
	fc.loops = append(fc.loops, loopLabels{continueLabel: start, breakLabel: end, catchDepth: fc.catchDepth})
	fc.label(start)
	cond := fc.compileExpr(s.Condition)
	fc.jumpIfNot(cond, end)
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.jump(start)
	fc.label(end)
	fc.loops = fc.loops[:len(fc.loops)-1]
}

func (fc *funcCompiler) compileDoWhile(s *parser.DoWhileStatement) {
	start := fc.newLabel("loop")
	condLabel := fc.newLabel("loopcond")
	end := fc.newLabel("loopend")
	fc.loops = append(fc.loops, loopLabels{continueLabel: condLabel, breakLabel: end, catchDepth: fc.catchDepth})
	fc.label(start)
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.label(condLabel)
	cond := fc.compileExpr(s.Condition)
	fc.jumpIf(cond, start)
	fc.label(end)
	fc.loops = fc.loops[:len(fc.loops)-1]
}

func (fc *funcCompiler) compileFor(s *parser.ForStatement) {
	if s.Initializer != nil {
		fc.compileStatement(s.Initializer)
	}
	start := fc.newLabel("loop")
	update := fc.newLabel("loopupdate")
	end := fc.newLabel("loopend")
	fc.loops = append(fc.loops, loopLabels{continueLabel: update, breakLabel: end, catchDepth: fc.catchDepth})
	fc.label(start)
	if s.Condition != nil {
		cond := fc.compileExpr(s.Condition)
		fc.jumpIfNot(cond, end)
	}
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.label(update)
	if s.Update != nil {
		fc.compileExpr(s.Update)
	}
	fc.jump(start)
	fc.label(end)
	fc.loops = fc.loops[:len(fc.loops)-1]
}

// compileForOf lowers `for (x of iterable)` onto the iterator protocol
// every Array/String/generator value exposes via GetIterator/Next, per
// §4.6. The per-step result object exposes "done"/"value" properties,
// read with the same OpSub used for ordinary member access rather than
// a dedicated unpack opcode.
func (fc *funcCompiler) compileForOf(s *parser.ForOfStatement) {
	iterable := fc.compileToTemp(s.Iterable)
	iter := fc.temp()
	getIterator := asm.Builtin{Name: "GetIterator"}
	fc.emitOp(asm.OpCall, []asm.Operand{getIterator, iterable.Untake()}, &iter)

	start := fc.newLabel("loop")
	update := fc.newLabel("loopupdate")
	end := fc.newLabel("loopend")
	fc.loops = append(fc.loops, loopLabels{continueLabel: update, breakLabel: end, catchDepth: fc.catchDepth})
	fc.label(start)

	res := fc.temp()
	fc.emitOp(asm.OpNext, []asm.Operand{iter.Untake()}, &res)
	done := fc.temp()
	fc.emitOp(asm.OpSub, []asm.Operand{res.Untake(), asm.StringLit("done")}, &done)
	fc.jumpIf(done.Untake(), end)

	value := fc.temp()
	fc.emitOp(asm.OpSub, []asm.Operand{res.Untake(), asm.StringLit("value")}, &value)
	fc.assignLoopVariable(s.Variable, value.Untake())
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.label(update)
	fc.jump(start)
	fc.label(end)
	fc.loops = fc.loops[:len(fc.loops)-1]
}

// loopVariableIdent extracts the bound identifier out of a for-of/for-in
// head, which the parser represents as a LetStatement, ConstStatement,
// VarStatement, or (for a bare existing binding, e.g. `for (x of xs)`)
// an ExpressionStatement wrapping an Identifier.
func loopVariableIdent(stmt parser.Statement) *parser.Identifier {
	switch v := stmt.(type) {
	case *parser.LetStatement:
		return v.Name
	case *parser.ConstStatement:
		return v.Name
	case *parser.VarStatement:
		return v.Name
	case *parser.ExpressionStatement:
		if ident, ok := v.Expression.(*parser.Identifier); ok {
			return ident
		}
	}
	return nil
}

func (fc *funcCompiler) assignLoopVariable(stmt parser.Statement, value asm.Operand) {
	ident := loopVariableIdent(stmt)
	if ident == nil {
		return
	}
	name, ok := fc.c.analysis.Lookup(ident)
	if !ok {
		return
	}
	reg, ok := name.Value.(asm.Register)
	if !ok {
		return
	}
	fc.into(value, reg)
}

func (fc *funcCompiler) compileForIn(s *parser.ForInStatement) {
	// Enumerating object keys is a builtin surface concern (Object.keys)
	// rather than a dedicated opcode; lower to an index loop over the key
	// array (compare against its length, Sub each key).
	obj := fc.compileToTemp(s.Object)
	keysFn := asm.Builtin{Name: "Object_keys"}
	keys := fc.temp()
	fc.emitOp(asm.OpCall, []asm.Operand{keysFn, obj.Untake()}, &keys)

	idx := fc.temp()
	fc.into(asm.NumberLit(0), idx)
	lenReg := fc.temp()
	fc.emitOp(asm.OpSub, []asm.Operand{keys.Untake(), asm.StringLit("length")}, &lenReg)

	start := fc.newLabel("loop")
	update := fc.newLabel("loopupdate")
	end := fc.newLabel("loopend")
	fc.loops = append(fc.loops, loopLabels{continueLabel: update, breakLabel: end, catchDepth: fc.catchDepth})
	fc.label(start)
	cmp := fc.temp()
	fc.emitOp(asm.OpLess, []asm.Operand{idx.Untake(), lenReg.Untake()}, &cmp)
	fc.jumpIfNot(cmp.Untake(), end)

	key := fc.temp()
	fc.emitOp(asm.OpSub, []asm.Operand{keys.Untake(), idx.Untake()}, &key)
	fc.assignLoopVariable(s.Variable, key.Untake())
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.label(update)
	one := asm.NumberLit(1)
	fc.emitOp(asm.OpAdd, []asm.Operand{idx.Untake(), one}, &idx)
	fc.jump(start)
	fc.label(end)
	fc.loops = fc.loops[:len(fc.loops)-1]
}

func (fc *funcCompiler) compileTry(s *parser.TryStatement) {
	if s.FinallyBlock == nil {
		fc.compileTryCatch(s)
		return
	}
	fc.compileTryFinally(s)
}

func (fc *funcCompiler) compileTryCatch(s *parser.TryStatement) {
	catchLabel := fc.newLabel("catch")
	endLabel := fc.newLabel("tryend")
	fc.setCatch(catchLabel)
	if s.Body != nil {
		fc.compileStatement(s.Body)
	}
	fc.unsetCatch()
	fc.jump(endLabel)
	fc.label(catchLabel)
	if s.CatchClause != nil {
		fc.bindCatchParameter(s.CatchClause)
		if s.CatchClause.Body != nil {
			fc.compileStatement(s.CatchClause.Body)
		}
	}
	fc.label(endLabel)
}

// compileTryFinally implements §4.2's finally contract: the finally
// body runs exactly once whether the guarded region completed, threw
// and was caught, threw uncaught, or returned. An in-flight exception
// is stashed in a fresh register and rethrown after the finally body;
// a pending return routes to the function end (or the next enclosing
// finally) once the body has run.
func (fc *funcCompiler) compileTryFinally(s *parser.TryStatement) {
	finLabel := fc.newLabel("finally")
	finCatch := fc.newLabel("finallycatch")
	endLabel := fc.newLabel("tryend")

	isReturning := fc.temp()
	fc.into(asm.BoolLit(false), isReturning)
	errPending := fc.temp()
	fc.into(asm.BoolLit(false), errPending)
	errVal := fc.temp()

	fc.finallies = append(fc.finallies, finallyCtx{entryLabel: finLabel, isReturning: isReturning, catchDepth: fc.catchDepth})

	if s.CatchClause != nil {
		catchLabel := fc.newLabel("catch")
		fc.setCatch(catchLabel)
		if s.Body != nil {
			fc.compileStatement(s.Body)
		}
		fc.unsetCatch()
		fc.jump(finLabel)
		fc.label(catchLabel)
		// The handler itself is guarded too: an exception it throws
		// still owes the finally body a run.
		fc.setCatch(finCatch)
		fc.bindCatchParameter(s.CatchClause)
		if s.CatchClause.Body != nil {
			fc.compileStatement(s.CatchClause.Body)
		}
		fc.unsetCatch()
		fc.jump(finLabel)
	} else {
		fc.setCatch(finCatch)
		if s.Body != nil {
			fc.compileStatement(s.Body)
		}
		fc.unsetCatch()
		fc.jump(finLabel)
	}

	fc.label(finCatch)
	fc.into(asm.Reg(asm.ReturnReg), errVal)
	fc.into(asm.BoolLit(true), errPending)

	fc.label(finLabel)
	fc.finallies = fc.finallies[:len(fc.finallies)-1]
	fc.compileStatement(s.FinallyBlock)

	afterRethrow := fc.newLabel("afterrethrow")
	fc.jumpIfNot(errPending.Untake(), afterRethrow)
	fc.into(errVal.Untake(), asm.Reg(asm.ReturnReg))
	fc.emitOp(asm.OpThrow, nil, nil)
	fc.label(afterRethrow)

	fc.jumpIfNot(isReturning.Untake(), endLabel)
	if n := len(fc.finallies); n > 0 {
		outer := fc.finallies[n-1]
		fc.unwindCatchesTo(outer.catchDepth)
		fc.into(asm.BoolLit(true), outer.isReturning)
		fc.jump(outer.entryLabel)
	} else {
		fc.emitOp(asm.OpEnd, nil, nil)
	}
	fc.label(endLabel)
}

func (fc *funcCompiler) bindCatchParameter(clause *parser.CatchClause) {
	if clause.Parameter == nil {
		return
	}
	if name, ok := fc.c.analysis.Lookup(clause.Parameter); ok {
		if reg, ok := name.Value.(asm.Register); ok {
			fc.into(asm.Reg(asm.ReturnReg), reg)
		}
	}
}

func (fc *funcCompiler) compileSwitch(s *parser.SwitchStatement) {
	subject := fc.compileToTemp(s.Expression)
	end := fc.newLabel("switchend")
	var caseLabels []string
	defaultIdx := -1
	for i, c := range s.Cases {
		if c.Condition == nil {
			defaultIdx = i
			caseLabels = append(caseLabels, "")
			continue
		}
		label := fc.newLabel("case")
		caseLabels = append(caseLabels, label)
		cmpVal := fc.compileExpr(c.Condition)
		eq := fc.temp()
		fc.emitOp(asm.OpStrictEqual, []asm.Operand{subject.Untake(), cmpVal}, &eq)
		fc.jumpIf(eq.Untake(), label)
	}
	if defaultIdx >= 0 {
		fc.jump(fc.newLabelFor(caseLabels, defaultIdx))
	} else {
		fc.jump(end)
	}
	for i, c := range s.Cases {
		if caseLabels[i] == "" {
			caseLabels[i] = fc.newLabel("default")
		}
		fc.label(caseLabels[i])
		for _, sub := range c.Body {
			fc.compileStatement(sub)
		}
	}
	fc.label(end)
}

// newLabelFor names the default case's label on first request, so the
// dispatch jump above can reference it before the case bodies are
// emitted; the body-emission loop then reuses that same name.
func (fc *funcCompiler) newLabelFor(labels []string, idx int) string {
	if labels[idx] == "" {
		labels[idx] = fc.newLabel("default")
	}
	return labels[idx]
}
