package scope

import (
	"valuescript/pkg/asm"
	"valuescript/pkg/errors"
	"valuescript/pkg/lexer"
	"valuescript/pkg/parser"
)

// Analyze runs the full scope & capture analysis pipeline over a parsed
// module: hoisting, resolution, mutation recording, transitive capture
// expansion, effectively-const inference, and TDZ/const-mutation
// diagnostics, per §4.1's algorithm.
func Analyze(program *parser.Program) *Analysis {
	a := newAnalysis()
	root := newModuleEnv()

	seedBuiltins(a, root)

	a.hoistBlock(root, program.Statements, ModuleOwner)
	a.hoistLexicalOnly(root, program.Statements, ModuleOwner)
	for _, stmt := range program.Statements {
		a.walkStatement(root, stmt)
	}

	a.expandCaptures()
	a.expandEffectivelyConst()
	a.processOptionalMutations()
	a.diagnoseConstMutations()
	a.diagnoseTDZViolations()

	return a
}

func pos(tok lexer.Token) errors.Position {
	return errors.Position{Line: tok.Line, Column: tok.Column, StartPos: tok.StartPos, EndPos: tok.EndPos}
}

// seedBuiltins pre-populates the module scope with the handful of
// global names the VM's built-in surface provides (§4.7); everything
// else resolves as a plain undeclared-identifier diagnostic.
func seedBuiltins(a *Analysis, root *env) {
	for _, name := range []string{"Math", "Object", "Array", "String", "Number", "JSON"} {
		id := a.newNameId()
		a.Names[id] = &Name{
			Id: id, Owner: ModuleOwner, Symbol: name, Kind: KindBuiltin,
			EffectivelyConst: true, Value: asm.Builtin{Name: name},
		}
		root.declare(name, id)
	}
}

// --- Hoisting ---

// hoistBlock collects `var` (to the nearest function owner) and
// `function`/`class`/`import` declarations (pointer-allocated) that
// live directly in this statement list, without descending into nested
// function bodies. Per §4.1 step 1, `let`/`const` are hoisted only to
// the top of their own block (handled inline during the walk, since Go
// doesn't need a separate TDZ-tracking prepass: insertion order already
// reflects declaration order).
func (a *Analysis) hoistBlock(e *env, stmts []parser.Statement, funcOwner OwnerId) {
	for _, stmt := range stmts {
		a.hoistStatement(e, stmt, funcOwner)
	}
}

func (a *Analysis) hoistStatement(e *env, stmt parser.Statement, funcOwner OwnerId) {
	switch s := stmt.(type) {
	case *parser.VarStatement:
		a.declareVar(e, s.Name, funcOwner)
	case *parser.BlockStatement:
		a.hoistBlock(e, s.Statements, funcOwner)
	case *parser.IfStatement:
		if s.Consequence != nil {
			a.hoistBlock(e, s.Consequence.Statements, funcOwner)
		}
		if s.Alternative != nil {
			a.hoistBlock(e, s.Alternative.Statements, funcOwner)
		}
	case *parser.WhileStatement:
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
	case *parser.DoWhileStatement:
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
	case *parser.ForStatement:
		if vs, ok := s.Initializer.(*parser.VarStatement); ok {
			a.declareVar(e, vs.Name, funcOwner)
		}
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
	case *parser.ForOfStatement:
		if vs, ok := s.Variable.(*parser.VarStatement); ok {
			a.declareVar(e, vs.Name, funcOwner)
		}
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
	case *parser.ForInStatement:
		if vs, ok := s.Variable.(*parser.VarStatement); ok {
			a.declareVar(e, vs.Name, funcOwner)
		}
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
	case *parser.TryStatement:
		if s.Body != nil {
			a.hoistBlock(e, s.Body.Statements, funcOwner)
		}
		if s.CatchClause != nil && s.CatchClause.Body != nil {
			a.hoistBlock(e, s.CatchClause.Body.Statements, funcOwner)
		}
		if s.FinallyBlock != nil {
			a.hoistBlock(e, s.FinallyBlock.Statements, funcOwner)
		}
	case *parser.ExpressionStatement:
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			a.declarePointerName(e, KindFunction, fn.Name)
		}
		if en, ok := s.Expression.(*parser.EnumDeclaration); ok && en.Name != nil {
			// Enums compile to a frozen constant object definition, so the
			// binding is pointer-valued like a function or class.
			a.declarePointerName(e, KindConstant, en.Name)
		}
	case *parser.ClassDeclaration:
		if s.Name != nil {
			a.declarePointerName(e, KindClass, s.Name)
		}
	case *parser.ImportDeclaration:
		a.hoistImport(e, s)
	case *parser.ExportNamedDeclaration:
		if s.Declaration != nil {
			a.hoistStatement(e, s.Declaration, funcOwner)
		}
	case *parser.ExportDefaultDeclaration:
		if fn, ok := s.Declaration.(*parser.FunctionLiteral); ok && fn.Name != nil {
			a.declarePointerName(e, KindFunction, fn.Name)
		}
	}
}

func (a *Analysis) declareVar(e *env, ident *parser.Identifier, funcOwner OwnerId) {
	if ident == nil {
		return
	}
	if _, already := e.names[ident.Value]; already {
		return
	}
	reg := a.regAllocFor(funcOwner).Allocate(ident.Value)
	id := a.newNameId()
	a.Names[id] = &Name{
		Id: id, Owner: funcOwner, Symbol: ident.Value, Kind: KindVar,
		EffectivelyConst: false, Value: reg, DeclPos: pos(ident.Token),
	}
	e.declare(ident.Value, id)
	a.Refs[ident] = id
}

func (a *Analysis) declarePointerName(e *env, kind NameKind, ident *parser.Identifier) {
	if ident == nil {
		return
	}
	ptr := a.Pointers.Allocate(ident.Value)
	id := a.newNameId()
	a.Names[id] = &Name{
		Id: id, Owner: e.functionScope(), Symbol: ident.Value, Kind: kind,
		EffectivelyConst: true, Value: ptr, DeclPos: pos(ident.Token),
	}
	e.declare(ident.Value, id)
	a.Refs[ident] = id
}

func (a *Analysis) hoistImport(e *env, decl *parser.ImportDeclaration) {
	for _, spec := range decl.Specifiers {
		switch s := spec.(type) {
		case *parser.ImportDefaultSpecifier:
			a.declarePointerName(e, KindImport, s.Local)
		case *parser.ImportNamedSpecifier:
			if !s.IsTypeOnly {
				a.declarePointerName(e, KindImport, s.Local)
			}
		case *parser.ImportNamespaceSpecifier:
			a.declarePointerName(e, KindImport, s.Local)
		}
	}
}
