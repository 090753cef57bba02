// Package compiler lowers a parsed module, together with its scope
// analysis, into the register-based Assembly IR defined in pkg/asm.
// Registers are not allocated here: the scope analyzer already handed
// every binding a Register (or, for module-scope function/class/import
// names, a Pointer) during hoisting, so this package's only allocation
// job is temporaries for intermediate expression results.
package compiler

import (
	"fmt"
	"strconv"

	"valuescript/pkg/asm"
	"valuescript/pkg/errors"
	"valuescript/pkg/parser"
	"valuescript/pkg/scope"
)

// Compiler drives module-level compilation: one Definition per
// top-level function/class declaration, plus a synthetic module_init
// function carrying every other top-level statement. Nothing in the
// driver, module loader or VM invokes module_init: exports are
// evaluated directly from their own definitions.
type Compiler struct {
	analysis    *scope.Analysis
	module      *asm.Module
	diagnostics []*errors.Diagnostic
	refCounts   map[scope.NameId]int
}

// Compile runs the full analyzer + compiler pipeline over a parsed
// program and returns the Assembly IR module ready for the assembler.
func Compile(program *parser.Program) (*asm.Module, []*errors.Diagnostic) {
	analysis := scope.Analyze(program)
	c := &Compiler{
		analysis: analysis,
		module:   &asm.Module{},
	}
	c.diagnostics = append(c.diagnostics, analysis.Diagnostics...)
	c.countRefs()
	c.compileProgram(program)
	return c.module, c.diagnostics
}

func (c *Compiler) countRefs() {
	c.refCounts = map[scope.NameId]int{}
	for _, nameId := range c.analysis.Refs {
		c.refCounts[nameId]++
	}
}

func (c *Compiler) errorf(pos errors.Position, format string, args ...interface{}) {
	c.diagnostics = append(c.diagnostics, errors.NewDiagnostic(pos, errors.LevelError, format, args...))
}

func (c *Compiler) compileProgram(program *parser.Program) {
	initPtr := c.analysis.Pointers.Allocate("module_init")
	fc := newFuncCompiler(c, scope.ModuleOwner)

	var defaultExport asm.Operand
	for _, stmt := range program.Statements {
		if def, ok := stmt.(*parser.ExportDefaultDeclaration); ok {
			defaultExport = fc.compileExpr(def.Declaration)
			continue
		}
		if named, ok := stmt.(*parser.ExportNamedDeclaration); ok {
			if named.IsTypeOnly {
				continue
			}
			if named.Declaration != nil {
				c.compileTopLevel(fc, named.Declaration)
				c.exportDeclaredNames(named.Declaration)
			}
			for _, spec := range named.Specifiers {
				c.exportSpecifier(spec)
			}
			continue
		}
		c.compileTopLevel(fc, stmt)
	}
	fc.emitOp(asm.OpEnd, nil, nil)

	c.module.Add(&asm.Definition{
		Name:     initPtr.Name,
		Function: &asm.Function{Name: "module_init", Body: fc.body},
	})
	if defaultExport != nil {
		c.module.ExportDefault = defaultExport
	}
}

// compileTopLevel handles the statements that can appear directly at
// module scope: function/class declarations become their own
// Definition (already pointer-allocated by the scope analyzer);
// everything else is emitted into the running module_init body.
func (c *Compiler) compileTopLevel(fc *funcCompiler, stmt parser.Statement) asm.Operand {
	switch s := stmt.(type) {
	case *parser.ExpressionStatement:
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			c.compileFunctionDecl(fn)
			return nil
		}
		if en, ok := s.Expression.(*parser.EnumDeclaration); ok {
			c.compileEnumDecl(en)
			return nil
		}
	case *parser.ClassDeclaration:
		c.compileClassDecl(s)
		return nil
	case *parser.ImportDeclaration:
		c.compileImportDecl(s)
		return nil
	}
	fc.compileStatement(stmt)
	return nil
}

// exportDeclaredNames records `export function f`/`export class C`/
// `export enum E` bindings in the module's named-export table. Only
// pointer-valued bindings can appear there — an exported `const`/`let`
// lives in a module_init register the export table has no way to name,
// which is recorded as a TODO diagnostic rather than silently dropped.
func (c *Compiler) exportDeclaredNames(decl parser.Statement) {
	switch s := decl.(type) {
	case *parser.ExpressionStatement:
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			c.exportPointerName(fn.Name)
		}
		if en, ok := s.Expression.(*parser.EnumDeclaration); ok && en.Name != nil {
			c.exportPointerName(en.Name)
		}
	case *parser.ClassDeclaration:
		c.exportPointerName(s.Name)
	case *parser.ConstStatement:
		c.diagnoseValueExport(s.Name)
	case *parser.LetStatement:
		c.diagnoseValueExport(s.Name)
	case *parser.VarStatement:
		c.diagnoseValueExport(s.Name)
	}
}

func (c *Compiler) exportSpecifier(spec parser.ExportSpecifier) {
	named, ok := spec.(*parser.ExportNamedSpecifier)
	if !ok || named.Local == nil {
		return
	}
	exported := named.Local
	if named.Exported != nil {
		exported = named.Exported
	}
	name, ok := c.analysis.Lookup(named.Local)
	if !ok {
		return
	}
	if ptr, isPtr := name.Value.(asm.Pointer); isPtr {
		c.addExport(exported.Value, ptr)
		return
	}
	c.diagnoseValueExport(named.Local)
}

func (c *Compiler) exportPointerName(ident *parser.Identifier) {
	name, ok := c.analysis.Lookup(ident)
	if !ok {
		return
	}
	if ptr, isPtr := name.Value.(asm.Pointer); isPtr {
		c.addExport(ident.Value, ptr)
	}
}

func (c *Compiler) diagnoseValueExport(ident *parser.Identifier) {
	label := "?"
	if ident != nil {
		label = ident.Value
	}
	c.diagnostics = append(c.diagnostics, errors.NewDiagnostic(errors.Position{}, errors.LevelTODO,
		"exported binding %q is register-valued and cannot appear in the export table", label))
}

func (c *Compiler) addExport(key string, val asm.Operand) {
	if c.module.ExportStarProps == nil {
		c.module.ExportStarProps = &asm.ObjectLit{}
	}
	c.module.ExportStarProps.Keys = append(c.module.ExportStarProps.Keys, key)
	c.module.ExportStarProps.Values = append(c.module.ExportStarProps.Values, val)
}

// compileEnumDecl lowers an enum to a frozen constant-object definition
// mapping member name → value, with the reverse number → name entries
// numeric enums also carry, matching TypeScript's own emit. Member
// values must fold to number or string literals; anything computed is
// out of scope for a constant definition.
func (c *Compiler) compileEnumDecl(decl *parser.EnumDeclaration) {
	if decl.Name == nil {
		return
	}
	name, _ := c.analysis.Lookup(decl.Name)
	var ptr asm.Pointer
	if name != nil {
		if p, ok := name.Value.(asm.Pointer); ok {
			ptr = p
		}
	}
	if ptr.Name == "" {
		ptr = c.analysis.Pointers.Allocate(decl.Name.Value)
	}

	table := asm.ObjectLit{}
	add := func(key string, val asm.Operand) {
		table.Keys = append(table.Keys, key)
		table.Values = append(table.Values, val)
	}

	next := 0.0
	autoOK := true
	for _, m := range decl.Members {
		if m == nil || m.Name == nil {
			continue
		}
		switch v := m.Value.(type) {
		case nil:
			if !autoOK {
				c.errorf(errors.Position{}, "enum member %s.%s needs an initializer after a string member", decl.Name.Value, m.Name.Value)
				continue
			}
			add(m.Name.Value, asm.NumberLit(next))
			add(formatEnumNumber(next), asm.StringLit(m.Name.Value))
			next++
		case *parser.NumberLiteral:
			add(m.Name.Value, asm.NumberLit(v.Value))
			add(formatEnumNumber(v.Value), asm.StringLit(m.Name.Value))
			next = v.Value + 1
			autoOK = true
		case *parser.StringLiteral:
			add(m.Name.Value, asm.StringLit(v.Value))
			autoOK = false
		default:
			c.errorf(errors.Position{}, "enum member %s.%s must be initialized with a number or string literal", decl.Name.Value, m.Name.Value)
		}
	}

	c.module.Add(&asm.Definition{Name: ptr.Name, Value: table})
}

func formatEnumNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// compileImportDecl lowers each import binding to a Lazy definition per
// §4.3: a default import is a one-instruction `Import src`, a namespace
// import an `ImportStar src`, and a named import an `ImportStar src`
// followed by a `Sub` picking the one export out of the namespace.
func (c *Compiler) compileImportDecl(decl *parser.ImportDeclaration) {
	for _, spec := range decl.Specifiers {
		var ident *parser.Identifier
		var importedName string
		op := asm.OpImport
		switch s := spec.(type) {
		case *parser.ImportDefaultSpecifier:
			ident = s.Local
		case *parser.ImportNamedSpecifier:
			if s.IsTypeOnly {
				continue
			}
			ident = s.Local
			op = asm.OpImportStar
			importedName = s.Local.Value
			if s.Imported != nil {
				importedName = s.Imported.Value
			}
		case *parser.ImportNamespaceSpecifier:
			ident = s.Local
			op = asm.OpImportStar
		}
		if ident == nil {
			continue
		}
		name, ok := c.analysis.Lookup(ident)
		if !ok {
			continue
		}
		ptr, ok := name.Value.(asm.Pointer)
		if !ok {
			continue
		}
		body := []asm.FnLine{
			asm.InstructionLine(&asm.Instruction{
				Op:       op,
				Operands: []asm.Operand{asm.StringLit(decl.Source.Value)},
				Dst:      regPtr(asm.Reg(asm.ReturnReg)),
			}),
		}
		if importedName != "" {
			body = append(body, asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpSub,
				Operands: []asm.Operand{asm.Reg(asm.ReturnReg), asm.StringLit(importedName)},
				Dst:      regPtr(asm.Reg(asm.ReturnReg)),
			}))
		}
		body = append(body, asm.InstructionLine(&asm.Instruction{Op: asm.OpEnd}))
		c.module.Add(&asm.Definition{Name: ptr.Name, Lazy: &asm.LazyDef{Body: body}})
	}
}

func regPtr(r asm.Register) *asm.Register { return &r }

// patternSlot pairs a destructuring parameter's compiler-only argument
// slot with the pattern to unpack it into, at function prologue time.
type patternSlot struct {
	pattern parser.Expression
	slot    asm.Register
}

func (c *Compiler) compileFunctionDecl(fn *parser.FunctionLiteral) *asm.Pointer {
	owner, ok := c.analysis.FunctionOwners[fn]
	if !ok {
		c.errorf(errors.Position{}, "internal: no owner recorded for function %q", fnName(fn))
		return nil
	}
	name, _ := c.analysis.Lookup(fn.Name)
	var ptr asm.Pointer
	if name != nil {
		if p, ok := name.Value.(asm.Pointer); ok {
			ptr = p
		}
	}
	if ptr.Name == "" {
		ptr = c.analysis.Pointers.Allocate(fnName(fn))
	}
	compiled := c.compileFunctionBody(owner, fn.Parameters, fn.RestParameter, fn.Body.Statements, fnName(fn))
	compiled.IsGenerator = fn.IsGenerator
	c.module.Add(&asm.Definition{Name: ptr.Name, Function: compiled})
	return &ptr
}

func fnName(fn *parser.FunctionLiteral) string {
	if fn.Name != nil {
		return fn.Name.Value
	}
	return "anonymous"
}

// compileFunctionBody lowers one function/arrow/method body given its
// already-known owner, returning the asm.Function ready to attach to a
// Definition. Parameters carrying captures (see funcCompiler.captures)
// are prepended ahead of the declared parameter registers, mirroring
// how Bind supplies them at the call site.
func (c *Compiler) compileFunctionBody(owner scope.OwnerId, params []*parser.Parameter, rest *parser.RestParameter, body []parser.Statement, name string) *asm.Function {
	return c.compileFunctionBodyWith(owner, params, rest, body, name, nil)
}

// compileFunctionBodyWith additionally runs prologue between parameter
// setup and the user statements; the class compiler uses it to prepend
// instance-property initializers to a constructor body.
func (c *Compiler) compileFunctionBodyWith(owner scope.OwnerId, params []*parser.Parameter, rest *parser.RestParameter, body []parser.Statement, name string, prologue func(*funcCompiler)) *asm.Function {
	fc := newFuncCompiler(c, owner)

	captureRegs := c.analysis.CaptureRegisters[owner]
	for _, reg := range sortedCaptureRegs(c.analysis, owner, captureRegs) {
		fc.fn.Parameters = append(fc.fn.Parameters, reg)
	}
	// Destructuring parameters ({x, y}, [a, b]) have no binding of their
	// own in the scope analyzer — only their leaf names do — so the
	// parameter slot itself is a compiler-only temp, unpacked into those
	// leaf registers at the top of the function body.
	var patternSlots []patternSlot
	for _, p := range params {
		if p == nil {
			continue
		}
		switch {
		case p.Name != nil:
			if n, ok := c.analysis.Lookup(p.Name); ok {
				if reg, ok := n.Value.(asm.Register); ok {
					fc.fn.Parameters = append(fc.fn.Parameters, reg)
				}
			}
		case p.Pattern != nil:
			slot := c.analysis.NewTemp(owner)
			fc.fn.Parameters = append(fc.fn.Parameters, slot)
			patternSlots = append(patternSlots, patternSlot{pattern: p.Pattern, slot: slot})
		}
	}
	if rest != nil && rest.Name != nil {
		if n, ok := c.analysis.Lookup(rest.Name); ok {
			if reg, ok := n.Value.(asm.Register); ok {
				fc.fn.Parameters = append(fc.fn.Parameters, reg)
				fc.fn.HasRestParam = true
			}
		}
	}

	for _, ps := range patternSlots {
		fc.assignDestructuringTarget(ps.pattern, ps.slot.Untake(), nil)
	}
	for _, p := range params {
		if p != nil && p.DefaultValue != nil && p.Name != nil {
			fc.compileDefaultParam(p)
		}
	}
	if prologue != nil {
		prologue(fc)
	}

	for _, stmt := range body {
		fc.compileStatement(stmt)
	}
	fc.emitOp(asm.OpEnd, nil, nil)

	fc.fn.Name = name
	fc.fn.Body = fc.body
	annotateReleases(fc.fn)
	if name != "" {
		metaPtr := c.analysis.Pointers.Allocate(name + "_meta")
		c.module.Add(&asm.Definition{Name: metaPtr.Name, Meta: &asm.MetaDef{Name: name}})
		fc.fn.Meta = &metaPtr
	}
	return fc.fn
}

// sortedCaptureRegs returns a stable ordering of a function's capture
// registers (by NameId, the order names were first discovered) so the
// Bind call site and the function's parameter list agree on position.
func sortedCaptureRegs(a *scope.Analysis, owner scope.OwnerId, captured map[scope.NameId]asm.Register) []asm.Register {
	if len(captured) == 0 {
		return nil
	}
	order := captureOrder(a, owner)
	regs := make([]asm.Register, 0, len(order))
	for _, id := range order {
		if r, ok := captured[id]; ok {
			regs = append(regs, r)
		}
	}
	return regs
}

// captureOrder returns the NameIds captured by owner in a deterministic
// order (ascending NameId), used consistently by both the callee's
// parameter prologue and the caller's Bind argument list.
func captureOrder(a *scope.Analysis, owner scope.OwnerId) []scope.NameId {
	set := a.Captures[owner]
	ids := make([]scope.NameId, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	// simple insertion sort: capture sets are small (a handful of names)
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// compileClassDecl lowers a class declaration to a Class definition per
// §4.3: methods become pointer entries on the instance/static tables,
// and instance-property initializers are prepended to the constructor
// body as SubMov-into-this instructions (a synthesized empty
// constructor carries them when the class declares none).
func (c *Compiler) compileClassDecl(decl *parser.ClassDeclaration) {
	if decl.Body == nil {
		return
	}
	name, _ := c.analysis.Lookup(decl.Name)
	var ptr asm.Pointer
	if name != nil {
		if p, ok := name.Value.(asm.Pointer); ok {
			ptr = p
		}
	}
	if ptr.Name == "" {
		ptr = c.analysis.Pointers.Allocate(decl.Name.Value)
	}

	instanceProto := asm.ObjectLit{}
	staticProto := asm.ObjectLit{}

	var ctorMethod *parser.MethodDefinition
	for _, m := range decl.Body.Methods {
		if m.Value == nil {
			continue
		}
		if m.Kind == "constructor" {
			ctorMethod = m
			continue
		}
		key := methodKeyName(m.Key)
		owner, ok := c.analysis.FunctionOwners[m.Value]
		if !ok {
			c.errorf(errors.Position{}, "internal: no owner recorded for method %q of class %q", key, decl.Name.Value)
			continue
		}
		var body []parser.Statement
		if m.Value.Body != nil {
			body = m.Value.Body.Statements
		}
		compiled := c.compileFunctionBody(owner, m.Value.Parameters, m.Value.RestParameter, body, key)
		methodPtr := c.analysis.Pointers.Allocate(decl.Name.Value + "_" + key)
		c.module.Add(&asm.Definition{Name: methodPtr.Name, Function: compiled})
		if m.IsStatic {
			staticProto.Keys = append(staticProto.Keys, key)
			staticProto.Values = append(staticProto.Values, methodPtr)
		} else {
			instanceProto.Keys = append(instanceProto.Keys, key)
			instanceProto.Values = append(instanceProto.Values, methodPtr)
		}
	}

	var instanceProps []*parser.PropertyDefinition
	for _, p := range decl.Body.Properties {
		key := methodKeyName(p.Key)
		if !p.IsStatic {
			if p.Value != nil {
				instanceProps = append(instanceProps, p)
			}
			continue
		}
		var val asm.Operand = asm.UndefinedLit{}
		if p.Value != nil {
			probe := newFuncCompiler(c, scope.ModuleOwner)
			val = probe.compileExpr(p.Value)
			if len(probe.body) > 0 {
				// The probe's instructions have nowhere to run; only
				// initializers that fold to a constant operand fit the
				// static table's literal encoding.
				c.diagnostics = append(c.diagnostics, errors.NewDiagnostic(errors.Position{}, errors.LevelTODO,
					"computed static property initializer for %q.%s is not supported", decl.Name.Value, key))
				val = asm.UndefinedLit{}
			}
		}
		staticProto.Keys = append(staticProto.Keys, key)
		staticProto.Values = append(staticProto.Values, val)
	}

	prologue := func(fc *funcCompiler) {
		this := asm.Reg(asm.ThisReg)
		for _, p := range instanceProps {
			v := fc.compileExpr(p.Value)
			fc.emitOp(asm.OpSubMov, []asm.Operand{asm.StringLit(methodKeyName(p.Key)), v}, &this)
		}
	}

	ctorPtr := c.analysis.Pointers.Allocate(decl.Name.Value + "_constructor")
	var ctorFn *asm.Function
	if ctorMethod != nil {
		owner, ok := c.analysis.FunctionOwners[ctorMethod.Value]
		if !ok {
			c.errorf(errors.Position{}, "internal: no owner recorded for constructor of class %q", decl.Name.Value)
			return
		}
		var body []parser.Statement
		if ctorMethod.Value.Body != nil {
			body = ctorMethod.Value.Body.Statements
		}
		ctorFn = c.compileFunctionBodyWith(owner, ctorMethod.Value.Parameters, ctorMethod.Value.RestParameter, body, decl.Name.Value, prologue)
	} else {
		ctorFn = c.compileFunctionBodyWith(scope.ModuleOwner, nil, nil, nil, decl.Name.Value, prologue)
	}
	c.module.Add(&asm.Definition{Name: ctorPtr.Name, Function: ctorFn})

	var superPtr *asm.Pointer
	if decl.SuperClass != nil {
		if ident, ok := decl.SuperClass.(*parser.Identifier); ok {
			if n, ok := c.analysis.Lookup(ident); ok {
				if p, ok := n.Value.(asm.Pointer); ok {
					superPtr = &p
				}
			}
		}
	}

	c.module.Add(&asm.Definition{
		Name: ptr.Name,
		Class: &asm.ClassDef{
			Name:              decl.Name.Value,
			Constructor:       ctorPtr,
			InstancePrototype: instanceProto,
			Static:            staticProto,
			SuperClass:        superPtr,
		},
	})
}

func methodKeyName(key parser.Expression) string {
	if ident, ok := key.(*parser.Identifier); ok {
		return ident.Value
	}
	return fmt.Sprintf("%v", key)
}
