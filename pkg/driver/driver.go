// Package driver orchestrates the full pipeline: source text → lexer →
// parser → scope analysis + compiler → Assembly IR → bytecode → VM. It
// is the only layer that sees every stage, and the layer that logs.
package driver

import (
	"fmt"

	"valuescript/pkg/asm"
	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/compiler"
	"valuescript/pkg/errors"
	"valuescript/pkg/lexer"
	"valuescript/pkg/parser"
	"valuescript/pkg/values"
	"valuescript/pkg/vm"
	"valuescript/pkg/vmlog"
)

// CompileResult carries everything the front half of the pipeline
// produced: the IR module, the assembled bytecode, and the accumulated
// diagnostics. Diagnostics at LevelError or LevelInternalError make the
// result unrunnable; lints and TODOs do not.
type CompileResult struct {
	Module      *asm.Module
	Bytecode    []byte
	Diagnostics []*errors.Diagnostic
}

// HasErrors reports whether any diagnostic is severe enough that the
// emitted bytecode should not be executed.
func (r *CompileResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Level == errors.LevelError || d.Level == errors.LevelInternalError {
			return true
		}
	}
	return false
}

// CompileSource runs source text through the front half of the
// pipeline. Parse failures surface as an error (there is no AST to
// analyze); everything after parsing accumulates diagnostics instead,
// per §4.1's failure model.
func CompileSource(name, src string) (*CompileResult, error) {
	l := lexer.NewLexer(src)
	p := parser.NewParser(l)
	program, parseErrs := p.ParseProgram()
	if len(parseErrs) > 0 {
		return nil, fmt.Errorf("%s: %w", name, parseErrs[0])
	}

	module, diagnostics := compiler.Compile(program)
	result := &CompileResult{Module: module, Diagnostics: diagnostics}
	if result.HasErrors() {
		vmlog.Logger.WithField("module", name).Debugf("compilation produced %d diagnostics, skipping assembly", len(diagnostics))
		return result, nil
	}

	buf, err := bytecode.Assemble(module, builtins.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	result.Bytecode = buf
	vmlog.Logger.WithField("module", name).Debugf("assembled %d bytes of bytecode", len(buf))
	return result, nil
}

// RunSource compiles and executes source text: the module's default
// export is evaluated and, when callable, invoked with the given
// arguments. loader may be nil for modules with no imports.
func RunSource(name, src string, loader vm.ImportLoader, args []values.Value) (values.Value, error) {
	result, err := CompileSource(name, src)
	if err != nil {
		return values.Void(), err
	}
	if result.HasErrors() {
		return values.Void(), &CompileFailure{Diagnostics: result.Diagnostics}
	}
	return RunBytecode(result.Bytecode, loader, args)
}

// RunBytecode executes an already-assembled module the same way.
func RunBytecode(buf []byte, loader vm.ImportLoader, args []values.Value) (values.Value, error) {
	machine := vm.New(buf, loader)
	def, err := machine.Run()
	if err != nil {
		return values.Void(), err
	}
	if !def.IsCallable() {
		return def, nil
	}
	return machine.Call(def, values.Undefined(), args)
}

// CompileFailure wraps hard compile diagnostics as a Go error so the
// CLI and module loader can report them without losing the structured
// list.
type CompileFailure struct {
	Diagnostics []*errors.Diagnostic
}

func (f *CompileFailure) Error() string {
	for _, d := range f.Diagnostics {
		if d.Level == errors.LevelError || d.Level == errors.LevelInternalError {
			return d.Error()
		}
	}
	return "compilation failed"
}

// PrintIR renders a compiled module in the textual assembly form.
func PrintIR(m *asm.Module) string { return asm.Print(m) }
