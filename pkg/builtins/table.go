// Package builtins implements the slimmed-down global surface named by
// spec §4.7: Math, the Object/Array/String/Number/JSON namespace objects
// referenced by plain identifier, and the handful of internal helper
// builtins the compiler emits directly ($GetIterator, $Object_keys, …).
// It also owns the per-type instance-method dispatch tables pkg/vm
// consults from Sub/SubCall/ThisSubCall/ConstSubCall, since "what method
// does `arr.push` resolve to" is a built-in surface concern, not a VM
// concern, per the SYSTEM OVERVIEW table's component split.
package builtins

import (
	"sort"

	"valuescript/pkg/values"
)

// names is the stable builtin-name table; its index is the code
// pkg/bytecode.BuiltinCode hands back to the assembler and the VM's
// Linker.ResolveBuiltin looks up by index. Order matters once bytecode
// has been assembled against it, so entries are only ever appended.
var names = []string{
	"Math",
	"Object",
	"Array",
	"String",
	"Number",
	"JSON",
	"GetIterator",
	"Object_keys",
	"Object_omit",
	"Array_sliceFrom",
}

var codeByName = func() map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// Code implements pkg/bytecode.BuiltinCode.
func Code(name string) (int, bool) {
	c, ok := codeByName[name]
	return c, ok
}

// Name is Code's inverse, used by disassembly.
func Name(code int) (string, bool) {
	if code < 0 || code >= len(names) {
		return "", false
	}
	return names[code], true
}

// Value resolves a builtin code to its runtime value, implementing the
// value half of pkg/bytecode.Linker.ResolveBuiltin (pkg/vm supplies the
// pointer half, which needs the loaded module).
func Value(code int) (values.Value, bool) {
	name, ok := Name(code)
	if !ok {
		return values.Void(), false
	}
	switch name {
	case "Math":
		return mathNamespace, true
	case "Object":
		return objectNamespace, true
	case "Array":
		return arrayNamespace, true
	case "String":
		return stringNamespace, true
	case "Number":
		return numberNamespace, true
	case "JSON":
		return jsonNamespace, true
	case "GetIterator":
		return values.Static(&values.StaticEntry{Name: "GetIterator", Fn: getIterator}), true
	case "Object_keys":
		return values.Static(&values.StaticEntry{Name: "Object_keys", Fn: objectKeysHelper}), true
	case "Object_omit":
		return values.Static(&values.StaticEntry{Name: "Object_omit", Fn: objectOmitHelper}), true
	case "Array_sliceFrom":
		return values.Static(&values.StaticEntry{Name: "Array_sliceFrom", Fn: arraySliceFromHelper}), true
	default:
		return values.Void(), false
	}
}

// method is one entry in a per-type instance-method table: a method
// name plus its native function (NativeFunc is always variadic-safe).
type method struct {
	name string
	fn   values.NativeFunc
}

func namespaceObject(methods map[string]values.NativeFunc, props map[string]values.Value) values.Value {
	// Sorted so Object.keys(Math) is the same sequence on every run.
	propKeys := make([]string, 0, len(props))
	for k := range props {
		propKeys = append(propKeys, k)
	}
	sort.Strings(propKeys)
	methodKeys := make([]string, 0, len(methods))
	for k := range methods {
		methodKeys = append(methodKeys, k)
	}
	sort.Strings(methodKeys)

	keys := make([]string, 0, len(methods)+len(props))
	vals := make([]values.Value, 0, len(methods)+len(props))
	for _, k := range propKeys {
		keys = append(keys, k)
		vals = append(vals, props[k])
	}
	for _, k := range methodKeys {
		keys = append(keys, k)
		vals = append(vals, values.Static(&values.StaticEntry{Name: k, Fn: methods[k]}))
	}
	return values.NewObjectWithProps(keys, vals)
}
