package compiler

import (
	"strings"

	"valuescript/pkg/asm"
	"valuescript/pkg/parser"
	"valuescript/pkg/scope"
)

// compileExpr lowers one expression node to an operand: either a
// literal/pointer/builtin that can be referenced directly, or a
// register holding a freshly computed value.
func (fc *funcCompiler) compileExpr(expr parser.Expression) asm.Operand {
	switch x := expr.(type) {
	case *parser.Identifier:
		return fc.compileIdentifier(x)
	case *parser.ThisExpression:
		return asm.Reg(asm.ThisReg)
	case *parser.NumberLiteral:
		return asm.NumberLit(x.Value)
	case *parser.StringLiteral:
		return asm.StringLit(x.Value)
	case *parser.BooleanLiteral:
		return asm.BoolLit(x.Value)
	case *parser.NullLiteral:
		return asm.NullLit{}
	case *parser.UndefinedLiteral:
		return asm.UndefinedLit{}
	case *parser.TemplateLiteral:
		return fc.compileTemplateLiteral(x)
	case *parser.ArrayLiteral:
		return fc.compileArrayLiteral(x)
	case *parser.ObjectLiteral:
		return fc.compileObjectLiteral(x)
	case *parser.PrefixExpression:
		return fc.compilePrefix(x)
	case *parser.TypeofExpression:
		v := fc.compileExpr(x.Operand)
		result := fc.temp()
		fc.emitOp(asm.OpTypeof, []asm.Operand{v}, &result)
		return result.Untake()
	case *parser.TypeAssertionExpression:
		return fc.compileExpr(x.Expression)
	case *parser.InfixExpression:
		return fc.compileInfix(x)
	case *parser.TernaryExpression:
		return fc.compileTernary(x)
	case *parser.AssignmentExpression:
		return fc.compileAssignment(x)
	case *parser.UpdateExpression:
		return fc.compileUpdate(x)
	case *parser.CallExpression:
		return fc.compileCall(x)
	case *parser.NewExpression:
		return fc.compileNew(x)
	case *parser.MemberExpression:
		obj := fc.compileToTemp(x.Object)
		key := asm.StringLit(methodKeyName(x.Property))
		result := fc.temp()
		fc.emitOp(asm.OpSub, []asm.Operand{obj.Untake(), key}, &result)
		return result.Untake()
	case *parser.IndexExpression:
		obj := fc.compileToTemp(x.Left)
		key := fc.compileExpr(x.Index)
		result := fc.temp()
		fc.emitOp(asm.OpSub, []asm.Operand{obj.Untake(), key}, &result)
		return result.Untake()
	case *parser.OptionalChainingExpression:
		return fc.compileOptionalChain(x)
	case *parser.FunctionLiteral:
		owner := fc.c.analysis.FunctionOwners[x]
		name := ""
		if x.Name != nil {
			name = x.Name.Value
		}
		var body []parser.Statement
		if x.Body != nil {
			body = x.Body.Statements
		}
		return fc.compileClosure(owner, x.Parameters, x.RestParameter, body, name, x.IsGenerator)
	case *parser.ArrowFunctionLiteral:
		owner := fc.c.analysis.FunctionOwners[x]
		return fc.compileClosure(owner, x.Parameters, x.RestParameter, arrowBodyStatements(x.Body), "", false)
	case *parser.YieldExpression:
		return fc.compileYield(x)
	case *parser.SpreadElement:
		return fc.compileExpr(x.Argument)
	}
	return asm.UndefinedLit{}
}

func arrowBodyStatements(body parser.Node) []parser.Statement {
	if block, ok := body.(*parser.BlockStatement); ok {
		return block.Statements
	}
	if expr, ok := body.(parser.Expression); ok {
		return []parser.Statement{&parser.ReturnStatement{ReturnValue: expr}}
	}
	return nil
}

func (fc *funcCompiler) compileIdentifier(ident *parser.Identifier) asm.Operand {
	name, ok := fc.c.analysis.Lookup(ident)
	if !ok {
		return asm.UndefinedLit{}
	}
	switch name.Kind {
	case scope.KindFunction:
		if ptr, ok := name.Value.(asm.Pointer); ok {
			// A named function that captures enclosing bindings needs the
			// same Bind a closure literal gets, emitted at the reference
			// (capturing binds the values current at this point).
			if owner, ok := fc.c.analysis.FunctionOwnerByName[name.Id]; ok {
				if captureOps := fc.bindOperandsFor(owner); len(captureOps) > 0 {
					result := fc.temp()
					fc.emitOp(asm.OpBind, append([]asm.Operand{ptr}, captureOps...), &result)
					return result.Untake()
				}
			}
			return ptr
		}
	case scope.KindClass, scope.KindImport, scope.KindConstant:
		if ptr, ok := name.Value.(asm.Pointer); ok {
			return ptr
		}
	case scope.KindBuiltin:
		if b, ok := name.Value.(asm.Builtin); ok {
			return b
		}
	}
	// Take-annotation (moving instead of copying a last-use register) is
	// deliberately not applied here: refCounts alone can't tell a true
	// last use from one textual reference re-executed by a loop, and
	// voiding the slot early would be a correctness bug, not just a
	// missed optimization.
	return fc.regForName(name).Untake()
}

// regForName resolves a binding to the register that holds it from the
// perspective of the function currently being compiled: its own
// register if fc owns it, or the capture-parameter register threaded
// in for it otherwise.
func (fc *funcCompiler) regForName(n *scope.Name) asm.Register {
	if n.Owner != fc.owner {
		if regs, ok := fc.c.analysis.CaptureRegisters[fc.owner]; ok {
			if r, ok := regs[n.Id]; ok {
				return r
			}
		}
	}
	if reg, ok := n.Value.(asm.Register); ok {
		return reg
	}
	return fc.temp()
}

func (fc *funcCompiler) identRegister(ident *parser.Identifier) asm.Register {
	name, ok := fc.c.analysis.Lookup(ident)
	if !ok {
		return fc.temp()
	}
	return fc.regForName(name)
}

func (fc *funcCompiler) compileTemplateLiteral(tl *parser.TemplateLiteral) asm.Operand {
	result := fc.temp()
	fc.into(asm.StringLit(""), result)
	for i, part := range tl.Parts {
		var piece asm.Operand
		if i%2 == 0 {
			piece = asm.StringLit(part.String())
		} else {
			expr, ok := part.(parser.Expression)
			if !ok {
				continue
			}
			piece = fc.compileExpr(expr)
		}
		fc.emitOp(asm.OpCat, []asm.Operand{result.Untake(), piece}, &result)
	}
	return result.Untake()
}

func (fc *funcCompiler) compileArrayLiteral(al *parser.ArrayLiteral) asm.Operand {
	hasSpread := false
	for _, el := range al.Elements {
		if _, ok := el.(*parser.SpreadElement); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		elems := make([]asm.Operand, 0, len(al.Elements))
		for _, el := range al.Elements {
			elems = append(elems, fc.compileExpr(el))
		}
		result := fc.temp()
		fc.emitOp(asm.OpMakeArray, elems, &result)
		return result.Untake()
	}

	result := fc.temp()
	fc.emitOp(asm.OpMakeArray, nil, &result)
	var pending []asm.Operand
	flush := func() {
		if len(pending) == 0 {
			return
		}
		chunk := fc.temp()
		fc.emitOp(asm.OpMakeArray, pending, &chunk)
		fc.emitOp(asm.OpCat, []asm.Operand{result.Untake(), chunk.Untake()}, &result)
		pending = nil
	}
	for _, el := range al.Elements {
		if se, ok := el.(*parser.SpreadElement); ok {
			flush()
			v := fc.compileExpr(se.Argument)
			fc.emitOp(asm.OpCat, []asm.Operand{result.Untake(), v}, &result)
			continue
		}
		pending = append(pending, fc.compileExpr(el))
	}
	flush()
	return result.Untake()
}

func (fc *funcCompiler) compileObjectLiteral(ol *parser.ObjectLiteral) asm.Operand {
	var keys []string
	var vals []asm.Operand
	var spreads []asm.Operand
	for _, p := range ol.Properties {
		if se, ok := p.Key.(*parser.SpreadElement); ok {
			spreads = append(spreads, fc.compileExpr(se.Argument))
			continue
		}
		key := methodKeyName(p.Key)
		var val asm.Operand
		if sm, ok := p.Value.(*parser.ShorthandMethod); ok {
			val = fc.compileShorthandMethod(sm)
		} else {
			val = fc.compileExpr(p.Value)
		}
		keys = append(keys, key)
		vals = append(vals, val)
	}
	result := fc.temp()
	fc.emitOp(asm.OpMakeObject, makeObjectOperands(keys, vals), &result)
	for _, s := range spreads {
		fc.emitOp(asm.OpCat, []asm.Operand{result.Untake(), s}, &result)
	}
	return result.Untake()
}

func makeObjectOperands(keys []string, vals []asm.Operand) []asm.Operand {
	ops := make([]asm.Operand, 0, len(keys)*2)
	for i, k := range keys {
		ops = append(ops, asm.StringLit(k), vals[i])
	}
	return ops
}

func (fc *funcCompiler) compilePrefix(pe *parser.PrefixExpression) asm.Operand {
	v := fc.compileExpr(pe.Right)
	switch pe.Operator {
	case "!":
		result := fc.temp()
		fc.emitOp(asm.OpNot, []asm.Operand{v}, &result)
		return result.Untake()
	case "-":
		result := fc.temp()
		fc.emitOp(asm.OpNegate, []asm.Operand{v}, &result)
		return result.Untake()
	case "~":
		result := fc.temp()
		fc.emitOp(asm.OpBitNot, []asm.Operand{v}, &result)
		return result.Untake()
	}
	// unary "+" has no dedicated opcode; numeric coercion of an
	// already-numeric operand is a no-op.
	return v
}

func infixOpFor(operator string) (asm.OpCode, bool) {
	switch operator {
	case "+":
		return asm.OpAdd, true
	case "-":
		return asm.OpSubtract, true
	case "*":
		return asm.OpMultiply, true
	case "/":
		return asm.OpDivide, true
	case "%":
		return asm.OpRemainder, true
	case "**":
		return asm.OpExponent, true
	case "==":
		return asm.OpEqual, true
	case "!=":
		return asm.OpNotEqual, true
	case "===":
		return asm.OpStrictEqual, true
	case "!==":
		return asm.OpStrictNotEqual, true
	case "<":
		return asm.OpLess, true
	case "<=":
		return asm.OpLessEqual, true
	case ">":
		return asm.OpGreater, true
	case ">=":
		return asm.OpGreaterEqual, true
	case "&":
		return asm.OpBitAnd, true
	case "|":
		return asm.OpBitOr, true
	case "^":
		return asm.OpBitXor, true
	case "<<":
		return asm.OpShiftLeft, true
	case ">>":
		return asm.OpShiftRight, true
	case ">>>":
		return asm.OpShiftRightUnsigned, true
	case "instanceof":
		return asm.OpInstanceof, true
	case "in":
		return asm.OpIn, true
	}
	return 0, false
}

func (fc *funcCompiler) compileInfix(ie *parser.InfixExpression) asm.Operand {
	switch ie.Operator {
	case "&&":
		return fc.compileLogicalAnd(ie.Left, ie.Right)
	case "||":
		return fc.compileLogicalOr(ie.Left, ie.Right)
	case "??":
		return fc.compileNullishCoalesce(ie.Left, ie.Right)
	}
	op, ok := infixOpFor(ie.Operator)
	if !ok {
		return fc.compileExpr(ie.Left)
	}
	left := fc.compileExpr(ie.Left)
	right := fc.compileExpr(ie.Right)
	result := fc.temp()
	fc.emitOp(op, []asm.Operand{left, right}, &result)
	return result.Untake()
}

func (fc *funcCompiler) compileLogicalAnd(leftExpr, rightExpr parser.Expression) asm.Operand {
	left := fc.compileToTemp(leftExpr)
	end := fc.newLabel("and_end")
	fc.jumpIfNot(left.Untake(), end)
	right := fc.compileExpr(rightExpr)
	fc.into(right, left)
	fc.label(end)
	return left.Untake()
}

func (fc *funcCompiler) compileLogicalOr(leftExpr, rightExpr parser.Expression) asm.Operand {
	left := fc.compileToTemp(leftExpr)
	end := fc.newLabel("or_end")
	fc.jumpIf(left.Untake(), end)
	right := fc.compileExpr(rightExpr)
	fc.into(right, left)
	fc.label(end)
	return left.Untake()
}

func (fc *funcCompiler) compileNullishCoalesce(leftExpr, rightExpr parser.Expression) asm.Operand {
	left := fc.compileToTemp(leftExpr)
	useRight := fc.newLabel("nullish_right")
	end := fc.newLabel("nullish_end")
	isNull := fc.temp()
	fc.emitOp(asm.OpStrictEqual, []asm.Operand{left.Untake(), asm.NullLit{}}, &isNull)
	fc.jumpIf(isNull.Untake(), useRight)
	isUndef := fc.temp()
	fc.emitOp(asm.OpStrictEqual, []asm.Operand{left.Untake(), asm.UndefinedLit{}}, &isUndef)
	fc.jumpIf(isUndef.Untake(), useRight)
	fc.jump(end)
	fc.label(useRight)
	right := fc.compileExpr(rightExpr)
	fc.into(right, left)
	fc.label(end)
	return left.Untake()
}

func (fc *funcCompiler) compileTernary(te *parser.TernaryExpression) asm.Operand {
	cond := fc.compileExpr(te.Condition)
	elseLabel := fc.newLabel("tern_else")
	end := fc.newLabel("tern_end")
	result := fc.temp()
	fc.jumpIfNot(cond, elseLabel)
	cons := fc.compileExpr(te.Consequence)
	fc.into(cons, result)
	fc.jump(end)
	fc.label(elseLabel)
	alt := fc.compileExpr(te.Alternative)
	fc.into(alt, result)
	fc.label(end)
	return result.Untake()
}

// compileOptionalChain lowers `a?.b` as: if a is null/undefined, the
// whole expression is undefined; otherwise read the property normally.
func (fc *funcCompiler) compileOptionalChain(oc *parser.OptionalChainingExpression) asm.Operand {
	obj := fc.compileToTemp(oc.Object)
	isNull := fc.temp()
	fc.emitOp(asm.OpStrictEqual, []asm.Operand{obj.Untake(), asm.NullLit{}}, &isNull)
	isUndef := fc.temp()
	fc.emitOp(asm.OpStrictEqual, []asm.Operand{obj.Untake(), asm.UndefinedLit{}}, &isUndef)

	result := fc.temp()
	short := fc.newLabel("optchain_short")
	end := fc.newLabel("optchain_end")
	fc.jumpIf(isNull.Untake(), short)
	fc.jumpIf(isUndef.Untake(), short)
	key := asm.StringLit(methodKeyName(oc.Property))
	fc.emitOp(asm.OpSub, []asm.Operand{obj.Untake(), key}, &result)
	fc.jump(end)
	fc.label(short)
	fc.into(asm.UndefinedLit{}, result)
	fc.label(end)
	return result.Untake()
}

func (fc *funcCompiler) compileAssignment(x *parser.AssignmentExpression) asm.Operand {
	if x.Operator == "=" {
		v := fc.compileExpr(x.Value)
		return fc.compileStore(x.Left, v)
	}
	if x.Operator == "&&=" || x.Operator == "||=" || x.Operator == "??=" {
		return fc.compileLogicalAssign(x)
	}
	op, ok := infixOpFor(strings.TrimSuffix(x.Operator, "="))
	if !ok {
		return fc.compileExpr(x.Value)
	}
	cur := fc.compileExpr(x.Left)
	rhs := fc.compileExpr(x.Value)
	result := fc.temp()
	fc.emitOp(op, []asm.Operand{cur, rhs}, &result)
	return fc.compileStore(x.Left, result.Untake())
}

func (fc *funcCompiler) compileLogicalAssign(x *parser.AssignmentExpression) asm.Operand {
	cur := fc.compileToTemp(x.Left)
	assignLabel := fc.newLabel("logicassign")
	end := fc.newLabel("logicassignend")
	result := fc.temp()

	switch x.Operator {
	case "&&=":
		fc.jumpIf(cur.Untake(), assignLabel)
	case "||=":
		fc.jumpIfNot(cur.Untake(), assignLabel)
	case "??=":
		isNull := fc.temp()
		fc.emitOp(asm.OpStrictEqual, []asm.Operand{cur.Untake(), asm.NullLit{}}, &isNull)
		fc.jumpIf(isNull.Untake(), assignLabel)
		isUndef := fc.temp()
		fc.emitOp(asm.OpStrictEqual, []asm.Operand{cur.Untake(), asm.UndefinedLit{}}, &isUndef)
		fc.jumpIf(isUndef.Untake(), assignLabel)
	}
	fc.into(cur.Untake(), result)
	fc.jump(end)
	fc.label(assignLabel)
	v := fc.compileExpr(x.Value)
	stored := fc.compileStore(x.Left, v)
	fc.into(stored, result)
	fc.label(end)
	return result.Untake()
}

// compileStore writes value into target, returning the operand now
// readable at target (itself, for a plain identifier; the updated
// container, for a member/index target). Member/index targets recurse
// through their object expression so `a.b.c = v` rebinds `a` with a
// freshly updated `b`, matching copy-on-write container semantics.
func (fc *funcCompiler) compileStore(target parser.Expression, value asm.Operand) asm.Operand {
	switch t := target.(type) {
	case *parser.Identifier:
		reg := fc.identRegister(t)
		fc.into(value, reg)
		return reg.Untake()
	case *parser.MemberExpression:
		key := asm.StringLit(methodKeyName(t.Property))
		return fc.compileSubscriptStore(t.Object, key, value)
	case *parser.IndexExpression:
		key := fc.compileExpr(t.Index)
		return fc.compileSubscriptStore(t.Left, key, value)
	}
	return value
}

func (fc *funcCompiler) compileSubscriptStore(containerExpr parser.Expression, key asm.Operand, value asm.Operand) asm.Operand {
	container := fc.compileToTemp(containerExpr)
	fc.emitOp(asm.OpSubMov, []asm.Operand{key, value}, &container)
	return fc.compileStore(containerExpr, container.Untake())
}

func (fc *funcCompiler) compileUpdate(x *parser.UpdateExpression) asm.Operand {
	ident, ok := x.Argument.(*parser.Identifier)
	if !ok {
		return fc.compileExpr(x.Argument)
	}
	reg := fc.identRegister(ident)
	one := asm.NumberLit(1)
	op := asm.OpAdd
	if x.Operator == "--" {
		op = asm.OpSubtract
	}
	if x.Prefix {
		fc.emitOp(op, []asm.Operand{reg.Untake(), one}, &reg)
		return reg.Untake()
	}
	old := fc.temp()
	fc.into(reg.Untake(), old)
	fc.emitOp(op, []asm.Operand{reg.Untake(), one}, &reg)
	return old.Untake()
}

func (fc *funcCompiler) compileCall(ce *parser.CallExpression) asm.Operand {
	args := make([]asm.Operand, 0, len(ce.Arguments))
	for _, a := range ce.Arguments {
		if se, ok := a.(*parser.SpreadElement); ok {
			// Spread call arguments need an Apply-style variadic
			// encoding; until that's wired, the spread's elements are
			// passed through as a single array argument rather than
			// splicing them individually.
			args = append(args, fc.compileExpr(se.Argument))
			continue
		}
		args = append(args, fc.compileExpr(a))
	}

	if member, ok := ce.Function.(*parser.MemberExpression); ok {
		receiver := fc.compileToTemp(member.Object)
		key := asm.StringLit(methodKeyName(member.Property))
		result := fc.temp()
		op := asm.OpThisSubCall
		if ident, ok := member.Object.(*parser.Identifier); ok {
			if name, ok := fc.c.analysis.Lookup(ident); ok && name.EffectivelyConst {
				op = asm.OpConstSubCall
			}
		}
		operands := append([]asm.Operand{receiver.Untake(), key}, args...)
		fc.emitOp(op, operands, &result)
		return result.Untake()
	}
	if idx, ok := ce.Function.(*parser.IndexExpression); ok {
		receiver := fc.compileToTemp(idx.Left)
		key := fc.compileExpr(idx.Index)
		result := fc.temp()
		operands := append([]asm.Operand{receiver.Untake(), key}, args...)
		fc.emitOp(asm.OpThisSubCall, operands, &result)
		return result.Untake()
	}

	fn := fc.compileExpr(ce.Function)
	result := fc.temp()
	operands := append([]asm.Operand{fn}, args...)
	fc.emitOp(asm.OpCall, operands, &result)
	return result.Untake()
}

func (fc *funcCompiler) compileNew(ne *parser.NewExpression) asm.Operand {
	ctor := fc.compileExpr(ne.Constructor)
	args := make([]asm.Operand, 0, len(ne.Arguments))
	for _, a := range ne.Arguments {
		args = append(args, fc.compileExpr(a))
	}
	result := fc.temp()
	fc.emitOp(asm.OpNew, append([]asm.Operand{ctor}, args...), &result)
	return result.Untake()
}

// compileYield lowers `yield v` / `yield* it`. The destination register
// receives whatever the resuming `.next(value)` call passed in.
func (fc *funcCompiler) compileYield(ye *parser.YieldExpression) asm.Operand {
	var arg asm.Operand = asm.UndefinedLit{}
	if ye.Argument != nil {
		arg = fc.compileExpr(ye.Argument)
	}
	op := asm.OpYield
	if ye.Delegate {
		op = asm.OpYieldStar
	}
	result := fc.temp()
	fc.emitOp(op, []asm.Operand{arg}, &result)
	return result.Untake()
}

// compileClosure compiles a function/arrow/method body as a standalone
// Definition, then binds its captured registers (in the canonical
// NameId order shared with the callee's parameter prologue) to produce
// the closure value at the point the literal is evaluated.
func (fc *funcCompiler) compileClosure(owner scope.OwnerId, params []*parser.Parameter, rest *parser.RestParameter, body []parser.Statement, name string, isGenerator bool) asm.Operand {
	fn := fc.c.compileFunctionBody(owner, params, rest, body, name)
	fn.IsGenerator = isGenerator
	defName := name
	if defName == "" {
		defName = "closure"
	}
	ptr := fc.c.analysis.Pointers.Allocate(defName)
	fc.c.module.Add(&asm.Definition{Name: ptr.Name, Function: fn})

	captureOps := fc.bindOperandsFor(owner)
	if len(captureOps) == 0 {
		return ptr
	}
	operands := append([]asm.Operand{ptr}, captureOps...)
	result := fc.temp()
	fc.emitOp(asm.OpBind, operands, &result)
	return result.Untake()
}

func (fc *funcCompiler) bindOperandsFor(owner scope.OwnerId) []asm.Operand {
	order := captureOrder(fc.c.analysis, owner)
	if len(order) == 0 {
		return nil
	}
	ops := make([]asm.Operand, 0, len(order))
	for _, id := range order {
		n := fc.c.analysis.Names[id]
		if n == nil {
			continue
		}
		ops = append(ops, fc.regForName(n).Untake())
	}
	return ops
}

func (fc *funcCompiler) compileShorthandMethod(sm *parser.ShorthandMethod) asm.Operand {
	owner := fc.c.analysis.FunctionOwners[sm]
	var body []parser.Statement
	if sm.Body != nil {
		body = sm.Body.Statements
	}
	name := ""
	if sm.Name != nil {
		name = sm.Name.Value
	}
	return fc.compileClosure(owner, sm.Parameters, sm.RestParameter, body, name, false)
}

// --- Destructuring ---

func (fc *funcCompiler) compileArrayDestructuring(elements []*parser.DestructuringElement, value parser.Expression) {
	if value == nil {
		return
	}
	src := fc.compileExpr(value)
	fc.destructureArrayElements(elements, src)
}

func (fc *funcCompiler) compileObjectDestructuring(props []*parser.DestructuringProperty, rest *parser.DestructuringElement, value parser.Expression) {
	if value == nil {
		return
	}
	src := fc.compileExpr(value)
	fc.destructureObjectProps(props, rest, src)
}

func (fc *funcCompiler) destructureArrayElements(elements []*parser.DestructuringElement, src asm.Operand) {
	srcReg := fc.ensureReg(src)
	for i, el := range elements {
		if el == nil || el.Target == nil {
			continue
		}
		if el.IsRest {
			restFn := asm.Builtin{Name: "Array_sliceFrom"}
			rest := fc.temp()
			fc.emitOp(asm.OpCall, []asm.Operand{restFn, srcReg.Untake(), asm.NumberLit(float64(i))}, &rest)
			fc.assignDestructuringTarget(el.Target, rest.Untake(), el.Default)
			continue
		}
		elVal := fc.temp()
		fc.emitOp(asm.OpSub, []asm.Operand{srcReg.Untake(), asm.NumberLit(float64(i))}, &elVal)
		fc.assignDestructuringTarget(el.Target, elVal.Untake(), el.Default)
	}
}

func (fc *funcCompiler) destructureObjectProps(props []*parser.DestructuringProperty, rest *parser.DestructuringElement, src asm.Operand) {
	srcReg := fc.ensureReg(src)
	for _, p := range props {
		if p == nil || p.Key == nil {
			continue
		}
		key := p.Key.Value
		elVal := fc.temp()
		fc.emitOp(asm.OpSub, []asm.Operand{srcReg.Untake(), asm.StringLit(key)}, &elVal)
		target := p.Target
		if target == nil {
			target = p.Key
		}
		fc.assignDestructuringTarget(target, elVal.Untake(), p.Default)
	}
	if rest != nil && rest.Target != nil {
		restFn := asm.Builtin{Name: "Object_omit"}
		excluded := asm.ArrayLit{}
		// Source order, not map order: identical input must produce
		// identical bytecode.
		for _, p := range props {
			if p == nil || p.Key == nil {
				continue
			}
			excluded.Elements = append(excluded.Elements, asm.StringLit(p.Key.Value))
		}
		restVal := fc.temp()
		fc.emitOp(asm.OpCall, []asm.Operand{restFn, srcReg.Untake(), excluded}, &restVal)
		fc.assignDestructuringTarget(rest.Target, restVal.Untake(), nil)
	}
}

func (fc *funcCompiler) assignDestructuringTarget(target parser.Expression, value asm.Operand, defaultVal parser.Expression) {
	if defaultVal != nil {
		isUndef := fc.temp()
		fc.emitOp(asm.OpStrictEqual, []asm.Operand{value, asm.UndefinedLit{}}, &isUndef)
		useDefault := fc.newLabel("destr_default")
		end := fc.newLabel("destr_end")
		fc.jumpIf(isUndef.Untake(), useDefault)
		fc.assignDestructuringTarget(target, value, nil)
		fc.jump(end)
		fc.label(useDefault)
		dv := fc.compileExpr(defaultVal)
		fc.assignDestructuringTarget(target, dv, nil)
		fc.label(end)
		return
	}
	switch t := target.(type) {
	case *parser.ArrayParameterPattern:
		fc.destructureArrayElements(t.Elements, value)
	case *parser.ObjectParameterPattern:
		fc.destructureObjectProps(t.Properties, t.RestProperty, value)
	default:
		fc.compileStore(target, value)
	}
}

func (fc *funcCompiler) ensureReg(op asm.Operand) asm.Register {
	if r, ok := regOf(op); ok {
		return r
	}
	t := fc.temp()
	fc.into(op, t)
	return t
}
