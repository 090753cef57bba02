package vm

import (
	"strconv"

	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/values"
)

// caller adapts the VM to values.Caller so native built-ins
// (Array.prototype.map and friends) can re-enter user bytecode. Each
// Call drives a fresh frame stack through the same dispatch loop the
// outer program runs on, so callback semantics — argument binding,
// closures, thrown-value unwinding — are identical to a compiled call
// site's.
type caller struct {
	vm *VM
}

func (c caller) Call(fn values.Value, this values.Value, args []values.Value) (values.Value, error) {
	return c.vm.Call(fn, this, args)
}

// Call invokes any callable value to completion and returns its result.
// This is also the host entry point the driver uses to run a module's
// default export.
func (vm *VM) Call(fn values.Value, this values.Value, args []values.Value) (values.Value, error) {
	switch fn.Type {
	case values.TypeStatic:
		entry := values.AsStatic(fn)
		if entry.Fn == nil {
			return values.Void(), typeError(entry.Name + " is not a function")
		}
		return entry.Fn(caller{vm}, this, args)
	case values.TypeFunction:
		closure := values.AsFunction(fn)
		if closure.IsGenerator {
			return vm.newGenerator(closure, this, args)
		}
		f, err := vm.newFrame(closure, this, args)
		if err != nil {
			return values.Void(), err
		}
		st := &execState{frames: []*frame{f}}
		v, _, err := vm.exec(st)
		return v, err
	case values.TypeClass:
		return values.Void(), typeError("Class constructor " + values.AsClass(fn).Name + " cannot be invoked without 'new'")
	default:
		return values.Void(), typeError(values.TypeOf(fn) + " is not a function")
	}
}

// construct implements New: allocate an instance whose prototype is the
// class's instance table, then run the constructor with it as `this`.
// The caller receives the instance (the constructor frame's this slot),
// not the return slot.
func (vm *VM) construct(st *execState, ctor values.Value, args []values.Value, dst byte) error {
	if !ctor.IsClass() {
		return typeError(values.TypeOf(ctor) + " is not a constructor")
	}
	cls := values.AsClass(ctor)
	instance := values.NewObjectFromBody(cls.NewInstance())
	if !cls.Constructor.IsFunction() {
		cur := st.frames[len(st.frames)-1]
		cur.set(dst, instance)
		return nil
	}
	f, err := vm.newFrame(values.AsFunction(cls.Constructor), instance, args)
	if err != nil {
		return err
	}
	f.retTarget = dst
	f.returnThis = true
	st.frames = append(st.frames, f)
	return nil
}

// invoke handles Call/Apply on an already-resolved callee: native
// built-ins complete synchronously; compiled functions push a frame;
// generator functions construct their iterator handle without running.
func (vm *VM) invoke(st *execState, fn values.Value, this values.Value, args []values.Value, dst byte, thisTarget byte, constThis bool) error {
	cur := st.frames[len(st.frames)-1]
	switch fn.Type {
	case values.TypeStatic:
		entry := values.AsStatic(fn)
		if entry.Fn == nil {
			return typeError(entry.Name + " is not a function")
		}
		v, err := entry.Fn(caller{vm}, this, args)
		if err != nil {
			return err
		}
		cur.set(dst, v)
		return nil
	case values.TypeFunction:
		closure := values.AsFunction(fn)
		if closure.IsGenerator {
			gen, err := vm.newGenerator(closure, this, args)
			if err != nil {
				return err
			}
			cur.set(dst, gen)
			return nil
		}
		f, err := vm.newFrame(closure, this, args)
		if err != nil {
			return err
		}
		f.retTarget = dst
		f.thisTarget = thisTarget
		f.constThis = constThis
		st.frames = append(st.frames, f)
		return nil
	case values.TypeClass:
		return typeError("Class constructor " + values.AsClass(fn).Name + " cannot be invoked without 'new'")
	default:
		return typeError(values.TypeOf(fn) + " is not a function")
	}
}

// subRead implements the Sub property read, dispatching on the
// receiver's type per §4.6's per-type sub-tables.
func (vm *VM) subRead(recv values.Value, key values.Value) (values.Value, error) {
	if recv.IsNullish() || recv.IsVoid() {
		return values.Void(), typeError("Cannot read properties of " + values.TypeOf(recv) + " (reading '" + values.ToPropertyKey(key) + "')")
	}
	if key.IsSymbol() && values.AsSymbol(key) == values.SymbolIterator {
		if recv.IsObject() {
			if v, ok := values.AsObject(recv).GetSymbol(values.SymbolIterator); ok {
				return values.Retain(v), nil
			}
		}
		return values.Undefined(), nil
	}
	name := values.ToPropertyKey(key)

	switch recv.Type {
	case values.TypeArray:
		arr := values.AsArray(recv)
		if idx, ok := propertyIndex(key, name); ok {
			if idx < 0 || idx >= len(arr.Elements) {
				return values.Undefined(), nil
			}
			el := arr.Elements[idx]
			if el.IsVoid() {
				// A moved-from slot is never user-observable.
				return values.Undefined(), nil
			}
			return values.Retain(el), nil
		}
		if name == "length" {
			return values.Number(float64(len(arr.Elements))), nil
		}
		if entry, ok := builtins.ArrayMethod(name); ok {
			return boundMethod(name, recv, entry.Fn), nil
		}
		return values.Undefined(), nil

	case values.TypeString:
		runes := []rune(values.AsString(recv))
		if idx, ok := propertyIndex(key, name); ok {
			if idx < 0 || idx >= len(runes) {
				return values.Undefined(), nil
			}
			return values.String(string(runes[idx])), nil
		}
		if name == "length" {
			return values.Number(float64(len(runes))), nil
		}
		if fn, ok := builtins.StringMethod(name); ok {
			return boundMethod(name, recv, fn), nil
		}
		return values.Undefined(), nil

	case values.TypeNumber, values.TypeBigInt:
		if fn, ok := builtins.NumberMethod(name); ok {
			return boundMethod(name, recv, fn), nil
		}
		return values.Undefined(), nil

	case values.TypeObject:
		v, _ := values.AsObject(recv).Get(name)
		if v.IsVoid() {
			return values.Undefined(), nil
		}
		return values.Retain(v), nil

	case values.TypeClass:
		v, _ := values.AsClass(recv).Static.Get(name)
		if v.IsVoid() {
			return values.Undefined(), nil
		}
		return values.Retain(v), nil

	case values.TypeCustom:
		if it, ok := values.AsCustom(recv).(values.Iterator); ok && name == "next" {
			return boundIteratorNext(recv, it), nil
		}
		return values.Undefined(), nil

	default:
		return values.Undefined(), nil
	}
}

// boundMethod packages a per-type native method read out by Sub (rather
// than invoked directly by SubCall) so a later plain Call still sees the
// receiver it was read from. The receiver is snapshotted at the read —
// value semantics make that indistinguishable from JS-style late
// binding for non-mutating methods, and a mutating method reached this
// way has no register to write back through, so it operates on the
// snapshot alone.
func boundMethod(name string, recv values.Value, fn values.NativeFunc) values.Value {
	bound := values.Retain(recv)
	return values.Static(&values.StaticEntry{
		Name: name,
		Fn: func(c values.Caller, _ values.Value, args []values.Value) (values.Value, error) {
			return fn(c, bound, args)
		},
	})
}

func boundIteratorNext(recv values.Value, it values.Iterator) values.Value {
	return values.Static(&values.StaticEntry{
		Name: "next",
		Fn: func(values.Caller, values.Value, []values.Value) (values.Value, error) {
			return it.Next()
		},
	})
}

// propertyIndex recognizes an array/string subscript: a Number key with
// an integral value, or a string key that is the canonical decimal form
// of an integer. Negative indices are returned too; callers range-check.
func propertyIndex(key values.Value, name string) (int, bool) {
	if key.IsNumber() {
		n := values.AsNumber(key)
		i := int(n)
		if float64(i) == n {
			return i, true
		}
		return 0, false
	}
	if name == "" {
		return 0, false
	}
	i, err := strconv.Atoi(name)
	if err != nil || strconv.Itoa(i) != name {
		return 0, false
	}
	return i, true
}

// subWrite implements SubMov's in-place subscript write on an owned
// container body. The caller has already run copy-on-write ownership on
// the receiver; recv here is the (possibly freshly cloned) unique value.
func subWrite(recv values.Value, key values.Value, val values.Value) error {
	switch recv.Type {
	case values.TypeArray:
		arr := values.AsArray(recv)
		name := values.ToPropertyKey(key)
		idx, ok := propertyIndex(key, name)
		if !ok {
			return typeError("Cannot write non-index property '" + name + "' on an array")
		}
		if idx < 0 {
			return values.Throw(values.NewError("RangeError", "Invalid array index "+name))
		}
		for len(arr.Elements) <= idx {
			arr.Elements = append(arr.Elements, values.Undefined())
		}
		arr.Elements[idx] = val
		return nil
	case values.TypeObject:
		values.AsObject(recv).Set(values.ToPropertyKey(key), val)
		return nil
	case values.TypeClass:
		values.AsClass(recv).Static.Set(values.ToPropertyKey(key), val)
		return nil
	default:
		return typeError("Cannot assign properties of " + values.TypeOf(recv))
	}
}

// ownedForMutation returns a value the current instruction may mutate in
// place, splitting the copy-on-write share if the body has ever been
// duplicated. The returned value must be stored back wherever the
// original handle lived.
func ownedForMutation(v values.Value) values.Value {
	switch v.Type {
	case values.TypeArray:
		body := values.AsArray(v)
		owned := body.Own()
		if owned == body {
			return v
		}
		return values.NewArrayFromBody(owned)
	case values.TypeObject:
		body := values.AsObject(v)
		owned := body.Own()
		if owned == body {
			return v
		}
		return values.NewObjectFromBody(owned)
	case values.TypeClass:
		body := values.AsClass(v)
		owned := body.Own()
		if owned == body {
			return v
		}
		return values.NewClass(owned)
	default:
		return v
	}
}

// subCall dispatches SubCall/ThisSubCall/ConstSubCall. recvReg is the
// caller register holding the receiver (the write-back channel for
// mutating calls; ignore when the receiver was a temporary or proven
// const); constRecv marks a receiver the compiler proved effectively
// const, which refuses mutating methods instead of cloning.
func (vm *VM) subCall(st *execState, recv values.Value, recvReg byte, key values.Value, args []values.Value, dst byte, constRecv bool) error {
	cur := st.frames[len(st.frames)-1]
	if recv.IsNullish() || recv.IsVoid() {
		return typeError("Cannot read properties of " + values.TypeOf(recv) + " (reading '" + values.ToPropertyKey(key) + "')")
	}
	name := values.ToPropertyKey(key)

	switch recv.Type {
	case values.TypeArray:
		entry, ok := builtins.ArrayMethod(name)
		if !ok {
			return typeError(name + " is not a function")
		}
		if entry.Mutates {
			if constRecv {
				return typeError("Cannot mutate a const array with ." + name)
			}
			recv = ownedForMutation(recv)
			cur.set(recvReg, recv)
		}
		v, err := entry.Fn(caller{vm}, recv, args)
		if err != nil {
			return err
		}
		cur.set(dst, v)
		return nil

	case values.TypeString:
		fn, ok := builtins.StringMethod(name)
		if !ok {
			return typeError(name + " is not a function")
		}
		v, err := fn(caller{vm}, recv, args)
		if err != nil {
			return err
		}
		cur.set(dst, v)
		return nil

	case values.TypeNumber, values.TypeBigInt:
		fn, ok := builtins.NumberMethod(name)
		if !ok {
			return typeError(name + " is not a function")
		}
		v, err := fn(caller{vm}, recv, args)
		if err != nil {
			return err
		}
		cur.set(dst, v)
		return nil

	case values.TypeObject:
		method, found := values.AsObject(recv).Get(name)
		if !found || !method.IsCallable() {
			return typeError(name + " is not a function")
		}
		thisTarget := recvReg
		if constRecv {
			thisTarget = bytecode.IgnoreRegisterIndex
		}
		return vm.invoke(st, method, values.Retain(recv), args, dst, thisTarget, constRecv)

	case values.TypeClass:
		method, found := values.AsClass(recv).Static.Get(name)
		if !found || !method.IsCallable() {
			return typeError(name + " is not a function")
		}
		thisTarget := recvReg
		if constRecv {
			thisTarget = bytecode.IgnoreRegisterIndex
		}
		return vm.invoke(st, method, values.Retain(recv), args, dst, thisTarget, constRecv)

	case values.TypeCustom:
		if gen, ok := values.AsCustom(recv).(*generatorState); ok && name == "next" {
			resume := values.Undefined()
			if len(args) > 0 {
				resume = args[0]
			}
			v, err := gen.Resume(resume)
			if err != nil {
				return err
			}
			cur.set(dst, v)
			return nil
		}
		if it, ok := values.AsCustom(recv).(values.Iterator); ok && name == "next" {
			v, err := it.Next()
			if err != nil {
				return err
			}
			cur.set(dst, v)
			return nil
		}
		return typeError(name + " is not a function")

	default:
		return typeError(name + " is not a function")
	}
}

// instanceOf walks the instance's prototype up through the class and its
// superclasses; handle identity of the prototype bodies is the link the
// loader established at class-resolve time.
func instanceOf(v values.Value, cls values.Value) (values.Value, error) {
	if !cls.IsClass() {
		return values.Void(), typeError("Right-hand side of 'instanceof' is not a class")
	}
	if !v.IsObject() {
		return values.False, nil
	}
	proto := values.AsObject(v).Proto
	for c := values.AsClass(cls); c != nil; c = c.SuperClass {
		for p := proto; p != nil; p = p.Proto {
			if p == c.InstanceProto {
				return values.True, nil
			}
		}
	}
	return values.False, nil
}

func propertyIn(key values.Value, v values.Value) (values.Value, error) {
	name := values.ToPropertyKey(key)
	switch v.Type {
	case values.TypeObject:
		_, ok := values.AsObject(v).Get(name)
		return values.Bool(ok), nil
	case values.TypeArray:
		arr := values.AsArray(v)
		if idx, ok := propertyIndex(key, name); ok {
			return values.Bool(idx >= 0 && idx < len(arr.Elements)), nil
		}
		return values.Bool(name == "length"), nil
	case values.TypeClass:
		_, ok := values.AsClass(v).Static.Get(name)
		return values.Bool(ok), nil
	default:
		return values.Void(), typeError("Cannot use 'in' operator to search for '" + name + "' in " + values.TypeOf(v))
	}
}
