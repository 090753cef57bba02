package scope

import (
	"valuescript/pkg/errors"
	"valuescript/pkg/parser"
)

// walkStatement performs the resolution pass: it descends the AST in
// source order, declaring `let`/`const` bindings at the point they're
// reached (so forward-referencing closures still resolve, while direct
// same-owner use before that point is caught inline by checkTDZ),
// resolving every Identifier to a NameId, and recording mutations and
// captures as they're discovered.
func (a *Analysis) walkStatement(e *env, stmt parser.Statement) {
	owner := e.functionScope()
	switch s := stmt.(type) {
	case *parser.VarStatement:
		if s.Value != nil {
			a.walkExpression(e, owner, s.Value)
		}
	case *parser.LetStatement:
		a.declareBlockScoped(e, KindLet, s.Name)
		if s.Value != nil {
			a.walkExpression(e, owner, s.Value)
		}
		a.activate(e, s.Name)
	case *parser.ConstStatement:
		a.declareBlockScoped(e, KindConst, s.Name)
		if s.Value != nil {
			a.walkExpression(e, owner, s.Value)
		}
		a.activate(e, s.Name)
	case *parser.ArrayDestructuringDeclaration:
		if s.Value != nil {
			a.walkExpression(e, owner, s.Value)
		}
		a.declareDestructuringElements(e, s.Elements, s.IsConst)
	case *parser.ObjectDestructuringDeclaration:
		if s.Value != nil {
			a.walkExpression(e, owner, s.Value)
		}
		for _, p := range s.Properties {
			a.declareDestructuringTarget(e, p.Target, s.IsConst)
			if p.Default != nil {
				a.walkExpression(e, owner, p.Default)
			}
		}
		if s.RestProperty != nil {
			a.declareDestructuringTarget(e, s.RestProperty.Target, s.IsConst)
		}
	case *parser.ExpressionStatement:
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			a.walkFunctionBody(e, fn, owner)
			break
		}
		if en, ok := s.Expression.(*parser.EnumDeclaration); ok {
			for _, m := range en.Members {
				if m != nil && m.Value != nil {
					a.walkExpression(e, owner, m.Value)
				}
			}
			break
		}
		a.walkExpression(e, owner, s.Expression)
	case *parser.ReturnStatement:
		if s.ReturnValue != nil {
			a.walkExpression(e, owner, s.ReturnValue)
		}
	case *parser.BlockStatement:
		child := e.child()
		a.hoistLexicalOnly(child, s.Statements, owner)
		for _, sub := range s.Statements {
			a.walkStatement(child, sub)
		}
	case *parser.IfStatement:
		if s.Condition != nil {
			a.walkExpression(e, owner, s.Condition)
		}
		if s.Consequence != nil {
			a.walkStatement(e, s.Consequence)
		}
		if s.Alternative != nil {
			a.walkStatement(e, s.Alternative)
		}
	case *parser.WhileStatement:
		if s.Condition != nil {
			a.walkExpression(e, owner, s.Condition)
		}
		if s.Body != nil {
			a.walkStatement(e, s.Body)
		}
	case *parser.DoWhileStatement:
		if s.Body != nil {
			a.walkStatement(e, s.Body)
		}
		if s.Condition != nil {
			a.walkExpression(e, owner, s.Condition)
		}
	case *parser.ForStatement:
		child := e.child()
		if s.Initializer != nil {
			a.walkStatement(child, s.Initializer)
		}
		if s.Condition != nil {
			a.walkExpression(child, owner, s.Condition)
		}
		if s.Update != nil {
			a.walkExpression(child, owner, s.Update)
		}
		if s.Body != nil {
			a.walkStatement(child, s.Body)
		}
	case *parser.ForOfStatement:
		child := e.child()
		if s.Variable != nil {
			a.walkStatement(child, s.Variable)
		}
		if s.Iterable != nil {
			a.walkExpression(child, owner, s.Iterable)
		}
		if s.Body != nil {
			a.walkStatement(child, s.Body)
		}
	case *parser.ForInStatement:
		child := e.child()
		if s.Variable != nil {
			a.walkStatement(child, s.Variable)
		}
		if s.Object != nil {
			a.walkExpression(child, owner, s.Object)
		}
		if s.Body != nil {
			a.walkStatement(child, s.Body)
		}
	case *parser.TryStatement:
		if s.Body != nil {
			a.walkStatement(e, s.Body)
		}
		if s.CatchClause != nil {
			catchEnv := e.child()
			if s.CatchClause.Parameter != nil {
				a.declareBlockScoped(catchEnv, KindLet, s.CatchClause.Parameter)
				a.activate(catchEnv, s.CatchClause.Parameter)
			}
			if s.CatchClause.Body != nil {
				for _, sub := range s.CatchClause.Body.Statements {
					a.walkStatement(catchEnv, sub)
				}
			}
		}
		if s.FinallyBlock != nil {
			a.walkStatement(e, s.FinallyBlock)
		}
	case *parser.SwitchStatement:
		if s.Expression != nil {
			a.walkExpression(e, owner, s.Expression)
		}
		child := e.child()
		for _, c := range s.Cases {
			if c.Condition != nil {
				a.walkExpression(child, owner, c.Condition)
			}
			for _, sub := range c.Body {
				a.walkStatement(child, sub)
			}
		}
	case *parser.BreakStatement, *parser.ContinueStatement:
		// no identifiers to resolve
	case *parser.ClassDeclaration:
		a.walkClass(e, owner, s)
	case *parser.ImportDeclaration:
		// already hoisted; nothing to walk
	case *parser.ExportDefaultDeclaration:
		a.walkExpression(e, owner, s.Declaration)
	case *parser.ExportNamedDeclaration:
		if s.Declaration != nil {
			a.walkStatement(e, s.Declaration)
		}
		for _, spec := range s.Specifiers {
			if named, ok := spec.(*parser.ExportNamedSpecifier); ok && named.Local != nil {
				a.resolveIdent(e, owner, named.Local)
			}
		}
	default:
		// statement kinds with no nested identifiers under this grammar
	}
}

func kindFor(isConst bool) NameKind {
	if isConst {
		return KindConst
	}
	return KindLet
}

func (a *Analysis) declareDestructuringElements(e *env, elems []*parser.DestructuringElement, isConst bool) {
	for _, el := range elems {
		if el == nil {
			continue
		}
		a.declareDestructuringTarget(e, el.Target, isConst)
		if el.Default != nil {
			a.walkExpression(e, e.functionScope(), el.Default)
		}
	}
}

func (a *Analysis) declareDestructuringTarget(e *env, target parser.Node, isConst bool) {
	switch t := target.(type) {
	case *parser.Identifier:
		a.declareBlockScoped(e, kindFor(isConst), t)
		a.activate(e, t)
	case *parser.ArrayParameterPattern:
		a.declareDestructuringElements(e, t.Elements, isConst)
	case *parser.ObjectParameterPattern:
		for _, p := range t.Properties {
			a.declareDestructuringTarget(e, p.Target, isConst)
		}
		if t.RestProperty != nil {
			a.declareDestructuringTarget(e, t.RestProperty.Target, isConst)
		}
	}
}

// declareBlockScoped introduces a let/const binding into e, with a TDZ
// marker ending at the binding's own declaration position. The name is
// visible to any closure walked later in the same block (so a function
// declared before it can still capture it), but a direct, same-owner
// reference seen before activate() runs is a TDZ violation, diagnosed
// inline by checkTDZ.
func (a *Analysis) declareBlockScoped(e *env, kind NameKind, ident *parser.Identifier) {
	if ident == nil {
		return
	}
	if _, declared := a.Refs[ident]; declared {
		// Already pre-declared by hoistLexicalOnly.
		return
	}
	owner := e.functionScope()
	reg := a.regAllocFor(owner).Allocate(ident.Value)
	id := a.newNameId()
	p := pos(ident.Token)
	a.Names[id] = &Name{
		Id: id, Owner: owner, Symbol: ident.Value, Kind: kind,
		EffectivelyConst: kind == KindConst, Value: reg, DeclPos: p, TDZEnd: &p,
	}
	e.declare(ident.Value, id)
	a.Refs[ident] = id
}

func (a *Analysis) activate(e *env, ident *parser.Identifier) {
	if ident == nil {
		return
	}
	if id, ok := a.Refs[ident]; ok {
		if a.activated == nil {
			a.activated = map[NameId]bool{}
		}
		a.activated[id] = true
	}
}

// hoistLexicalOnly pre-declares the let/const names that live directly
// in this block (not nested ones), so a closure walked earlier in the
// same block can still resolve a forward-declared let/const; function
// and class declarations are already pointer-allocated to the whole
// function scope by hoistBlock, so they're not repeated here.
func (a *Analysis) hoistLexicalOnly(e *env, stmts []parser.Statement, funcOwner OwnerId) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.LetStatement:
			a.declareBlockScoped(e, KindLet, s.Name)
		case *parser.ConstStatement:
			a.declareBlockScoped(e, KindConst, s.Name)
		}
	}
}

func (a *Analysis) walkClass(e *env, owner OwnerId, decl *parser.ClassDeclaration) {
	if decl.SuperClass != nil {
		a.walkExpression(e, owner, decl.SuperClass)
	}
	if decl.Body == nil {
		return
	}
	for _, m := range decl.Body.Methods {
		if m.Value == nil {
			continue
		}
		a.walkFunctionLiteralAs(e, a.newChildOwner(owner), m.Value)
	}
	for _, p := range decl.Body.Properties {
		if p.Value != nil {
			a.walkExpression(e, owner, p.Value)
		}
	}
}

// walkFunctionBody handles a named function-declaration statement: the
// function's own Name (already hoisted, pointer-allocated) identifies
// its owner via FunctionOwners once assigned here.
func (a *Analysis) walkFunctionBody(e *env, fn *parser.FunctionLiteral, enclosing OwnerId) {
	owner := a.newChildOwner(enclosing)
	if fn.Name != nil {
		if id, ok := a.Refs[fn.Name]; ok {
			a.FunctionOwnerByName[id] = owner
		}
	}
	a.walkFunctionLiteralAs(e, owner, fn)
}

func (a *Analysis) walkFunctionLiteralAs(e *env, owner OwnerId, fn *parser.FunctionLiteral) {
	a.FunctionOwners[fn] = owner
	fnEnv := e.childFunction(owner)
	a.declareParameters(fnEnv, owner, fn.Parameters, fn.RestParameter)
	if fn.Body != nil {
		a.hoistBlock(fnEnv, fn.Body.Statements, owner)
		a.hoistLexicalOnly(fnEnv, fn.Body.Statements, owner)
		for _, stmt := range fn.Body.Statements {
			a.walkStatement(fnEnv, stmt)
		}
	}
}

// walkShorthandMethod handles the `{ method() { ... } }` object-literal
// form, which parses to its own node rather than reusing FunctionLiteral.
func (a *Analysis) walkShorthandMethod(e *env, enclosing OwnerId, sm *parser.ShorthandMethod) {
	owner := a.newChildOwner(enclosing)
	a.FunctionOwners[sm] = owner
	fnEnv := e.childFunction(owner)
	a.declareParameters(fnEnv, owner, sm.Parameters, sm.RestParameter)
	if sm.Body != nil {
		a.hoistBlock(fnEnv, sm.Body.Statements, owner)
		a.hoistLexicalOnly(fnEnv, sm.Body.Statements, owner)
		for _, stmt := range sm.Body.Statements {
			a.walkStatement(fnEnv, stmt)
		}
	}
}

func (a *Analysis) declareParameters(e *env, owner OwnerId, params []*parser.Parameter, rest *parser.RestParameter) {
	for _, p := range params {
		if p == nil {
			continue
		}
		if p.DefaultValue != nil {
			a.walkExpression(e, owner, p.DefaultValue)
		}
		switch {
		case p.Name != nil:
			a.declareParamName(e, owner, p.Name)
		case p.Pattern != nil:
			a.declareDestructuringTarget(e, p.Pattern, false)
		}
	}
	if rest != nil && rest.Name != nil {
		a.declareParamName(e, owner, rest.Name)
	}
}

func (a *Analysis) declareParamName(e *env, owner OwnerId, ident *parser.Identifier) {
	reg := a.regAllocFor(owner).Allocate(ident.Value)
	id := a.newNameId()
	a.Names[id] = &Name{
		Id: id, Owner: owner, Symbol: ident.Value, Kind: KindParam,
		EffectivelyConst: false, Value: reg, DeclPos: pos(ident.Token),
	}
	e.declare(ident.Value, id)
	a.Refs[ident] = id
}

// walkExpression resolves identifiers, descends into subexpressions,
// records mutations on assignment/update targets, records optional
// (method-call) mutations, and creates new owners for function/arrow
// literals — capturing every name whose owner differs from the active
// one along the way.
func (a *Analysis) walkExpression(e *env, owner OwnerId, expr parser.Expression) {
	if expr == nil {
		return
	}
	switch x := expr.(type) {
	case *parser.Identifier:
		a.resolveIdent(e, owner, x)
	case *parser.ThisExpression:
		// `this` is not a lexical binding under this model; nothing to resolve
	case *parser.PrefixExpression:
		a.walkExpression(e, owner, x.Right)
	case *parser.InfixExpression:
		a.walkExpression(e, owner, x.Left)
		a.walkExpression(e, owner, x.Right)
	case *parser.TernaryExpression:
		a.walkExpression(e, owner, x.Condition)
		a.walkExpression(e, owner, x.Consequence)
		a.walkExpression(e, owner, x.Alternative)
	case *parser.AssignmentExpression:
		a.walkExpression(e, owner, x.Value)
		a.walkAssignmentTarget(e, owner, x.Left)
	case *parser.UpdateExpression:
		a.walkExpression(e, owner, x.Argument)
		if ident, ok := x.Argument.(*parser.Identifier); ok {
			a.recordMutation(e, owner, ident)
		}
	case *parser.CallExpression:
		if member, ok := x.Function.(*parser.MemberExpression); ok {
			a.walkOptionalMutationReceiver(e, owner, member)
		}
		a.walkExpression(e, owner, x.Function)
		for _, arg := range x.Arguments {
			a.walkExpression(e, owner, arg)
		}
	case *parser.MemberExpression:
		a.walkExpression(e, owner, x.Object)
	case *parser.IndexExpression:
		a.walkExpression(e, owner, x.Left)
		a.walkExpression(e, owner, x.Index)
	case *parser.ArrayLiteral:
		for _, el := range x.Elements {
			a.walkExpression(e, owner, el)
		}
	case *parser.ObjectLiteral:
		for _, p := range x.Properties {
			if sm, ok := p.Value.(*parser.ShorthandMethod); ok {
				a.walkShorthandMethod(e, owner, sm)
				continue
			}
			if p.Value != nil {
				a.walkExpression(e, owner, p.Value)
			}
		}
	case *parser.SpreadElement:
		a.walkExpression(e, owner, x.Argument)
	case *parser.YieldExpression:
		a.walkExpression(e, owner, x.Argument)
	case *parser.FunctionLiteral:
		a.walkFunctionLiteralAs(e, a.newChildOwner(owner), x)
	case *parser.ArrowFunctionLiteral:
		a.walkArrow(e, owner, x)
	default:
		// literal/terminal expressions (numbers, strings, booleans) have
		// no nested identifiers
	}
}

func (a *Analysis) walkArrow(e *env, enclosing OwnerId, fn *parser.ArrowFunctionLiteral) {
	owner := a.newChildOwner(enclosing)
	a.FunctionOwners[fn] = owner
	fnEnv := e.childFunction(owner)
	a.declareParameters(fnEnv, owner, fn.Parameters, fn.RestParameter)
	switch body := fn.Body.(type) {
	case *parser.BlockStatement:
		a.hoistBlock(fnEnv, body.Statements, owner)
		a.hoistLexicalOnly(fnEnv, body.Statements, owner)
		for _, stmt := range body.Statements {
			a.walkStatement(fnEnv, stmt)
		}
	case parser.Expression:
		a.walkExpression(fnEnv, owner, body)
	}
}

// walkAssignmentTarget handles both plain-identifier and member-access
// assignment left-hand sides; only the former can record a direct
// binding mutation.
func (a *Analysis) walkAssignmentTarget(e *env, owner OwnerId, target parser.Expression) {
	switch t := target.(type) {
	case *parser.Identifier:
		a.resolveIdent(e, owner, t)
		a.recordMutation(e, owner, t)
	case *parser.MemberExpression:
		a.walkExpression(e, owner, t.Object)
	case *parser.IndexExpression:
		a.walkExpression(e, owner, t.Left)
		a.walkExpression(e, owner, t.Index)
	default:
		a.walkExpression(e, owner, target)
	}
}

// walkOptionalMutationReceiver records a call like `arr.push(x)` as an
// optional mutation of `arr` per §4.1: a call through a member access
// whose receiver is a plain identifier might mutate that identifier's
// value via copy-on-write aliasing, so it gets tentatively recorded and
// promoted to a real mutation by processOptionalMutations unless the
// receiver turns out to be effectively const (in which case a getter
// like `.length` would have wrongly been flagged, and is dropped).
func (a *Analysis) walkOptionalMutationReceiver(e *env, owner OwnerId, member *parser.MemberExpression) {
	ident, ok := member.Object.(*parser.Identifier)
	if !ok {
		return
	}
	nameId, found := e.lookup(ident.Value)
	if !found {
		return
	}
	a.Refs[ident] = nameId
	if name := a.Names[nameId]; name != nil && name.Owner == owner {
		a.checkTDZ(name, ident)
	}
	a.OptionalMutations = append(a.OptionalMutations, MutationSite{Pos: pos(ident.Token), Target: nameId})
}

func (a *Analysis) resolveIdent(e *env, useOwner OwnerId, ident *parser.Identifier) {
	nameId, ok := e.lookup(ident.Value)
	if !ok {
		a.addDiagnostic(errors.LevelError, pos(ident.Token), "undeclared identifier %q", ident.Value)
		return
	}
	a.Refs[ident] = nameId
	name := a.Names[nameId]
	if name == nil {
		return
	}

	if name.Owner != useOwner {
		// Only register-valued bindings capture; pointer-valued names
		// (functions, classes, imports, enums) and builtins are
		// module-wide addressable and need no closure parameter.
		if capturableKind(name.Kind) {
			a.recordCapture(useOwner, nameId, pos(ident.Token))
		}
	} else {
		a.checkTDZ(name, ident)
	}
}

func capturableKind(k NameKind) bool {
	switch k {
	case KindVar, KindLet, KindConst, KindParam:
		return true
	default:
		return false
	}
}

func (a *Analysis) checkTDZ(name *Name, ident *parser.Identifier) {
	if name.TDZEnd == nil {
		return
	}
	if a.activated != nil && a.activated[name.Id] {
		return
	}
	if pos(ident.Token).StartPos < name.TDZEnd.StartPos {
		a.addDiagnostic(errors.LevelError, pos(ident.Token),
			"cannot access %q before initialization", name.Symbol)
	}
}

func (a *Analysis) recordCapture(captorOwner OwnerId, nameId NameId, at errors.Position) {
	name := a.Names[nameId]
	if name == nil {
		return
	}
	name.Captures = append(name.Captures, Capture{Ref: at, CaptorOwner: captorOwner})
	set, ok := a.Captures[captorOwner]
	if !ok {
		set = map[NameId]bool{}
		a.Captures[captorOwner] = set
	}
	set[nameId] = true
}

func (a *Analysis) recordMutation(e *env, owner OwnerId, ident *parser.Identifier) {
	nameId, ok := a.Refs[ident]
	if !ok {
		nameId, ok = e.lookup(ident.Value)
		if !ok {
			return
		}
		a.Refs[ident] = nameId
	}
	site := MutationSite{Pos: pos(ident.Token), Target: nameId}
	a.Mutations = append(a.Mutations, site)
	if name := a.Names[nameId]; name != nil {
		name.Mutations = append(name.Mutations, site.Pos)
	}
}
