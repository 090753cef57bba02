// Package modules resolves import specifiers to loaded, compiled
// modules, implementing vm.ImportLoader for the driver. Only relative
// specifiers resolve to files; ValueScript has no package registry, so
// bare specifiers are rejected (after a syntax check, so the message
// distinguishes a malformed specifier from a merely unresolvable one).
package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/module"

	"valuescript/pkg/driver"
	"valuescript/pkg/values"
	"valuescript/pkg/vm"
	"valuescript/pkg/vmlog"
)

// extensions tried, in order, when a specifier names no file directly.
var extensions = []string{"", ".ts", ".vs"}

// Resolver loads and caches modules by absolute file path. Each module
// compiles and links once; its default export and namespace object are
// memoized so a diamond import graph evaluates every module exactly
// once.
type Resolver struct {
	cache map[string]*Module
}

// Module is one loaded, compiled module and its memoized exports.
type Module struct {
	machine *vm.VM
	loading bool

	def    values.Value
	hasDef bool
	ns     values.Value
	hasNS  bool
}

func NewResolver() *Resolver {
	return &Resolver{cache: map[string]*Module{}}
}

// LoaderFor returns the vm.ImportLoader for modules imported from dir;
// relative specifiers resolve against it.
func (r *Resolver) LoaderFor(dir string) vm.ImportLoader {
	return &scopedLoader{r: r, dir: dir}
}

// LoadFile compiles the module at path (if not cached) and returns its
// entry for export access.
func (r *Resolver) LoadFile(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if m, ok := r.cache[abs]; ok {
		if m.loading {
			return nil, fmt.Errorf("modules: import cycle through %s", abs)
		}
		return m, nil
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	m := &Module{loading: true}
	r.cache[abs] = m

	vmlog.Logger.WithField("module", abs).Debug("loading module")
	result, err := driver.CompileSource(abs, string(src))
	if err != nil {
		delete(r.cache, abs)
		return nil, err
	}
	if result.HasErrors() {
		delete(r.cache, abs)
		return nil, &driver.CompileFailure{Diagnostics: result.Diagnostics}
	}
	m.machine = vm.New(result.Bytecode, r.LoaderFor(filepath.Dir(abs)))
	m.loading = false
	return m, nil
}

// Default returns the module's default export, evaluating it on first
// access.
func (m *Module) Default() (values.Value, error) {
	if !m.hasDef {
		v, err := m.machine.Run()
		if err != nil {
			return values.Void(), err
		}
		m.def = v
		m.hasDef = true
	}
	return values.Retain(m.def), nil
}

// RunDefault evaluates the module's default export and, when it is
// callable, invokes it with args — the CLI `run` semantics.
func (m *Module) RunDefault(args []values.Value) (values.Value, error) {
	def, err := m.Default()
	if err != nil {
		return values.Void(), err
	}
	if !def.IsCallable() {
		return def, nil
	}
	return m.machine.Call(def, values.Undefined(), args)
}

// Namespace returns the module's named-export object.
func (m *Module) Namespace() (values.Value, error) {
	if !m.hasNS {
		v, err := m.machine.Exports()
		if err != nil {
			return values.Void(), err
		}
		m.ns = v
		m.hasNS = true
	}
	return values.Retain(m.ns), nil
}

type scopedLoader struct {
	r   *Resolver
	dir string
}

func (l *scopedLoader) LoadDefault(specifier string) (values.Value, error) {
	m, err := l.load(specifier)
	if err != nil {
		return values.Void(), err
	}
	return m.Default()
}

func (l *scopedLoader) LoadNamespace(specifier string) (values.Value, error) {
	m, err := l.load(specifier)
	if err != nil {
		return values.Void(), err
	}
	return m.Namespace()
}

func (l *scopedLoader) load(specifier string) (*Module, error) {
	path, err := l.resolve(specifier)
	if err != nil {
		return nil, err
	}
	return l.r.LoadFile(path)
}

func (l *scopedLoader) resolve(specifier string) (string, error) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		if err := module.CheckImportPath(specifier); err != nil {
			return "", fmt.Errorf("modules: malformed import specifier %q: %w", specifier, err)
		}
		return "", fmt.Errorf("modules: bare specifier %q cannot be resolved (only relative imports are supported)", specifier)
	}
	base := filepath.Join(l.dir, filepath.FromSlash(specifier))
	for _, ext := range extensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("modules: cannot resolve %q from %s", specifier, l.dir)
}
