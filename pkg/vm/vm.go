// Package vm implements the bytecode interpreter described by §4.6/§5: a
// stack of register-window frames driven by one dispatch loop, built
// directly against pkg/bytecode's Decoder/Linker contract and
// pkg/values' copy-on-write value model. There is no bytecode
// compilation here — pkg/compiler/pkg/bytecode already produced the
// byte stream this package only reads.
package vm

import (
	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/errors"
	"valuescript/pkg/values"
)

// ImportLoader resolves a module specifier to its default export
// (Import) or namespace object (ImportStar). pkg/modules supplies the
// real implementation; a bare VM used directly (e.g. by pkg/bytecode's
// own tests, or a one-off `vm.Run`) may pass nil, in which case any
// import instruction is a hard failure since there is no
// filesystem/module graph to resolve against.
type ImportLoader interface {
	LoadDefault(specifier string) (values.Value, error)
	LoadNamespace(specifier string) (values.Value, error)
}

// VM executes one loaded bytecode module. It owns the byte buffer and a
// cache of already-resolved top-level pointers (functions, classes,
// lazily-evaluated import bindings); frames are transient and created
// per call.
type VM struct {
	buf      []byte
	pointers map[int]values.Value
	lazy     map[int]bool // offsets currently being forced, to catch import cycles
	imports  ImportLoader
}

// New constructs a VM over an already-assembled bytecode buffer (see
// pkg/bytecode.Assemble). loader may be nil if the module never imports
// anything.
func New(buf []byte, loader ImportLoader) *VM {
	return &VM{
		buf:      buf,
		pointers: map[int]values.Value{},
		lazy:     map[int]bool{},
		imports:  loader,
	}
}

// Run evaluates the module's export-default expression and returns it,
// resolving the full header (ExportStar includes plus the local export
// table) first since default evaluation may depend on lazy imports
// already having been registered.
func (vm *VM) Run() (values.Value, error) {
	dec := bytecode.NewDecoder(vm.buf)
	def, _, _, _, err := dec.ReadExportHeader(vm)
	if err != nil {
		return values.Void(), err
	}
	return def, nil
}

// Exports evaluates and returns the module's full named-export object,
// merging any ExportStar includes' local tables ahead of this module's
// own (so a later module's same-named export overrides an earlier
// one's, per the compiler's ExportStarIncludes ordering).
func (vm *VM) Exports() (values.Value, error) {
	dec := bytecode.NewDecoder(vm.buf)
	_, includes, keys, vals, err := dec.ReadExportHeader(vm)
	if err != nil {
		return values.Void(), err
	}
	merged := values.NewObjectWithProps(nil, nil)
	obj := values.AsObject(merged)
	for _, off := range includes {
		v, err := vm.ResolvePointer(off)
		if err != nil {
			return values.Void(), err
		}
		if v.IsObject() {
			src := values.AsObject(v)
			for i, k := range src.Keys {
				obj.Set(k, values.Retain(src.Vals[i]))
			}
		}
	}
	for i, k := range keys {
		obj.Set(k, vals[i])
	}
	return merged, nil
}

// ResolvePointer implements bytecode.Linker: decode the definition that
// begins at offset, memoizing the result so a pointer referenced from
// many call sites (or recursively) is only loaded once. Every handout
// retains, since the cache keeps its own reference — without that, a
// constant object definition handed to two sites would look uniquely
// owned at the first mutation and the second site would observe it.
func (vm *VM) ResolvePointer(offset int) (values.Value, error) {
	if v, ok := vm.pointers[offset]; ok {
		return values.Retain(v), nil
	}

	dec := bytecode.NewDecoder(vm.buf)
	dec.Seek(offset)
	tagByte, err := dec.ReadOpCode() // peek: every definition starts with a one-byte tag
	if err != nil {
		return values.Void(), err
	}
	dec.Seek(offset)

	switch bytecode.Tag(tagByte) {
	case bytecode.TagFunction, bytecode.TagGeneratorFunction:
		v, err := vm.loadFunction(dec)
		if err != nil {
			return values.Void(), err
		}
		vm.pointers[offset] = v
		return values.Retain(v), nil
	case bytecode.TagClass:
		v, err := vm.loadClass(dec)
		if err != nil {
			return values.Void(), err
		}
		vm.pointers[offset] = v
		return values.Retain(v), nil
	case bytecode.TagMeta:
		name, err := dec.ReadMeta()
		if err != nil {
			return values.Void(), err
		}
		v := values.String(name)
		vm.pointers[offset] = v
		return v, nil
	case bytecode.TagLazy:
		if vm.lazy[offset] {
			return values.Void(), bytecode.RuntimeErrorf("vm: circular reference while forcing lazy definition at offset %d", offset)
		}
		vm.lazy[offset] = true
		defer delete(vm.lazy, offset)
		v, err := vm.forceLazy(dec)
		if err != nil {
			return values.Void(), err
		}
		vm.pointers[offset] = v
		return values.Retain(v), nil
	default:
		op, err := dec.ReadOperand(vm)
		if err != nil {
			return values.Void(), err
		}
		if op.Kind != bytecode.OperandValue {
			return values.Void(), bytecode.RuntimeErrorf("vm: definition at offset %d is a bare register, not a value", offset)
		}
		vm.pointers[offset] = op.Value
		return values.Retain(op.Value), nil
	}
}

// ResolveBuiltin implements bytecode.Linker by delegating to the
// builtins package's stable name/code table.
func (vm *VM) ResolveBuiltin(code int) (values.Value, error) {
	v, ok := builtins.Value(code)
	if !ok {
		return values.Void(), bytecode.RuntimeErrorf("vm: unknown builtin code %d", code)
	}
	// The namespace objects are process-wide singletons; retaining each
	// handout keeps a user-level write from ever looking uniquely owned.
	return values.Retain(v), nil
}

func (vm *VM) loadFunction(dec *bytecode.Decoder) (values.Value, error) {
	h, err := dec.ReadFunctionHeader()
	if err != nil {
		return values.Void(), err
	}
	fn := &values.FunctionClosure{
		Entry:          h.BodyStart,
		ParameterCount: h.ParameterCount,
		HasRestParam:   h.HasRestParam,
		RegisterCount:  h.RegisterCount,
		IsGenerator:    h.IsGenerator,
	}
	if h.HasMeta {
		metaVal, err := vm.ResolvePointer(h.MetaOffset)
		if err != nil {
			return values.Void(), err
		}
		if metaVal.IsString() {
			fn.Name = values.AsString(metaVal)
		}
	}
	return values.NewFunction(fn), nil
}

func (vm *VM) loadClass(dec *bytecode.Decoder) (values.Value, error) {
	h, err := dec.ReadClassHeader(vm)
	if err != nil {
		return values.Void(), err
	}
	ctor, err := vm.resolveOptionalFunctionPointer(h.ConstructorOffset)
	if err != nil {
		return values.Void(), err
	}
	cls := &values.ClassBody{
		Name:          h.Name,
		Constructor:   ctor,
		InstanceProto: values.AsObject(h.InstanceProto),
		Static:        values.AsObject(h.Static),
	}
	if h.HasSuper {
		superVal, err := vm.ResolvePointer(h.SuperOffset)
		if err != nil {
			return values.Void(), err
		}
		if !superVal.IsClass() {
			return values.Void(), bytecode.RuntimeErrorf("vm: superclass of %q is not a class", h.Name)
		}
		super := values.AsClass(superVal)
		cls.SuperClass = super
		// Link the prototype chain so an instance method lookup that
		// misses on the subclass's own prototype falls through to the
		// superclass's, via ObjectBody.Get's single Proto hop.
		cls.InstanceProto.Proto = super.InstanceProto
	}
	return values.NewClass(cls), nil
}

// resolveOptionalFunctionPointer handles a class with no explicit
// constructor: the assembler still always reserves a constructor
// pointer slot (see ClassDef.Constructor being a plain Pointer, not
// *Pointer), pointing at whatever the compiler wrote there — an empty
// generated function in the common case. There's no sentinel "no
// constructor" offset in the wire format, so this always resolves a
// real function.
func (vm *VM) resolveOptionalFunctionPointer(offset int) (values.Value, error) {
	return vm.ResolvePointer(offset)
}

// forceLazy runs a Lazy definition's tiny body (an import-binding thunk)
// to completion as an ordinary frame with zero arguments, memoizing the
// result the same way a real ES module namespace import is only
// evaluated once.
func (vm *VM) forceLazy(dec *bytecode.Decoder) (values.Value, error) {
	h, err := dec.ReadFunctionHeader()
	if err != nil {
		return values.Void(), err
	}
	f := &frame{
		dec:        bytecode.NewDecoder(vm.buf),
		registers:  make([]values.Value, h.RegisterCount),
		retTarget:  bytecode.IgnoreRegisterIndex,
		thisTarget: bytecode.IgnoreRegisterIndex,
		yieldDst:   bytecode.IgnoreRegisterIndex,
	}
	f.registers[bytecode.ReturnRegisterIndex] = values.Undefined()
	f.registers[bytecode.ThisRegisterIndex] = values.Undefined()
	f.dec.Seek(h.BodyStart)
	return vm.run([]*frame{f})
}

// Error reports an uncaught exception that reached the bottom of the
// call stack. Other VM hard failures (malformed bytecode, a decoder read
// past the end of the buffer) are returned as *errors.RuntimeError. The
// thrown Value is kept so a host can inspect it instead of only seeing
// its string form.
type Error struct {
	*errors.RuntimeError
	Thrown *values.Value
}

func uncaught(v values.Value) error {
	return &Error{RuntimeError: &errors.RuntimeError{Msg: "uncaught exception: " + v.String()}, Thrown: &v}
}
