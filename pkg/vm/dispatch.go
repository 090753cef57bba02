package vm

import (
	"valuescript/pkg/asm"
	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/values"
)

// execState is one running frame stack. The module's main execution and
// every suspended generator each own one; a generator's persists across
// resumes inside its Custom handle.
type execState struct {
	frames  []*frame
	genMode bool
}

func (st *execState) current() *frame { return st.frames[len(st.frames)-1] }

// run drives a frame stack to completion; forceLazy uses it for
// lazy-definition forcing.
func (vm *VM) run(frames []*frame) (values.Value, error) {
	v, _, err := vm.exec(&execState{frames: frames})
	return v, err
}

// exec is the dispatch loop from §4.6/§5: decode one instruction from
// the current frame, execute it, repeat. It returns when the bottom
// frame Ends (yielded=false), when a generator frame Yields
// (yielded=true), or when an exception escapes every catch setting.
// Thrown values surface as *values.Thrown; any other error is a VM hard
// failure (malformed bytecode, decoder past end).
func (vm *VM) exec(st *execState) (values.Value, bool, error) {
	for {
		if len(st.frames) == 0 {
			return values.Void(), false, bytecode.RuntimeErrorf("vm: execution resumed with an empty frame stack")
		}
		f := st.current()

		// An in-flight yield* drains its delegate one element per resume
		// before this frame's own instructions continue.
		if st.genMode && len(st.frames) == 1 && f.delegate != nil {
			res, err := f.delegate.Next()
			if err != nil {
				if v, ok := thrownValue(err); ok {
					if !unwind(st, v) {
						return values.Void(), false, uncaught(v)
					}
					continue
				}
				return values.Void(), false, err
			}
			if !res.IsObject() {
				return values.Void(), false, bytecode.RuntimeErrorf("vm: iterator result is not an object")
			}
			doneV, _ := values.AsObject(res).Get("done")
			valV, _ := values.AsObject(res).Get("value")
			if doneV.Truthy() {
				f.delegate = nil
				f.set(f.yieldDst, valV)
			} else {
				return valV, true, nil
			}
		}

		ins, err := vm.decodeInstr(f)
		if err != nil {
			return values.Void(), false, err
		}

		done, result, yielded, err := vm.step(st, f, &ins)
		if err != nil {
			if v, ok := thrownValue(err); ok {
				if !unwind(st, v) {
					return values.Void(), false, uncaught(v)
				}
				continue
			}
			return values.Void(), false, err
		}
		if yielded {
			return result, true, nil
		}
		if done {
			return result, false, nil
		}
	}
}

// step executes one decoded instruction. done reports that the bottom
// frame returned (result is the program/generator result); yielded
// reports a generator suspension (result is the yielded value).
func (vm *VM) step(st *execState, f *frame, ins *instr) (done bool, result values.Value, yielded bool, err error) {
	op := asm.OpCode(ins.op)
	switch op {
	case asm.OpEnd:
		if len(st.frames) == 1 {
			st.frames = st.frames[:0]
			return true, f.registers[bytecode.ReturnRegisterIndex], false, nil
		}
		st.frames = st.frames[:len(st.frames)-1]
		parent := st.current()
		ret := f.registers[bytecode.ReturnRegisterIndex]
		if f.returnThis {
			ret = f.registers[bytecode.ThisRegisterIndex]
		}
		parent.set(f.retTarget, ret)
		if f.thisTarget != bytecode.IgnoreRegisterIndex {
			parent.set(f.thisTarget, f.registers[bytecode.ThisRegisterIndex])
		}
		return false, values.Void(), false, nil

	case asm.OpMov:
		src, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := f.argValue(src)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, v)
		return false, values.Void(), false, nil

	case asm.OpAdd, asm.OpSubtract, asm.OpMultiply, asm.OpDivide, asm.OpRemainder,
		asm.OpExponent, asm.OpEqual, asm.OpNotEqual, asm.OpStrictEqual,
		asm.OpStrictNotEqual, asm.OpLess, asm.OpLessEqual, asm.OpGreater,
		asm.OpGreaterEqual, asm.OpBitAnd, asm.OpBitOr, asm.OpBitXor,
		asm.OpShiftLeft, asm.OpShiftRight, asm.OpShiftRightUnsigned:
		a, b, err := vm.twoValues(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := binaryOp(op, a, b)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, v)
		return false, values.Void(), false, nil

	case asm.OpNegate, asm.OpNot, asm.OpBitNot:
		v, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		r, err := unaryOp(op, v)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, r)
		return false, values.Void(), false, nil

	case asm.OpTypeof:
		v, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, values.String(values.TypeOf(v)))
		return false, values.Void(), false, nil

	case asm.OpInstanceof:
		a, b, err := vm.twoValues(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := instanceOf(a, b)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, v)
		return false, values.Void(), false, nil

	case asm.OpIn:
		a, b, err := vm.twoValues(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := propertyIn(a, b)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, v)
		return false, values.Void(), false, nil

	case asm.OpSub:
		recv, key, err := vm.twoValues(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := vm.subRead(recv, key)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, v)
		return false, values.Void(), false, nil

	case asm.OpSubMov:
		return false, values.Void(), false, vm.execSubMov(f, ins)

	case asm.OpSubCall, asm.OpThisSubCall, asm.OpConstSubCall:
		return false, values.Void(), false, vm.execSubCall(st, f, ins, op)

	case asm.OpRequireMutableThis:
		if f.constThis {
			return false, values.Void(), false, typeError("Cannot mutate this because it is const")
		}
		return false, values.Void(), false, nil

	case asm.OpCall:
		fnOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		fn, err := f.value(fnOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		args, err := vm.argList(f, ins.operands[1:])
		if err != nil {
			return false, values.Void(), false, err
		}
		return false, values.Void(), false, vm.invoke(st, fn, values.Undefined(), args, ins.dst, bytecode.IgnoreRegisterIndex, false)

	case asm.OpApply:
		fnOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		fn, err := f.value(fnOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		thisOp, err := ins.operand(1)
		if err != nil {
			return false, values.Void(), false, err
		}
		this, err := f.argValue(thisOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		thisTarget := byte(bytecode.IgnoreRegisterIndex)
		if thisOp.Kind == bytecode.OperandRegister && !thisOp.Take {
			thisTarget = thisOp.Reg
		}
		args, err := vm.argList(f, ins.operands[2:])
		if err != nil {
			return false, values.Void(), false, err
		}
		return false, values.Void(), false, vm.invoke(st, fn, this, args, ins.dst, thisTarget, false)

	case asm.OpBind:
		return false, values.Void(), false, vm.execBind(f, ins)

	case asm.OpNew:
		ctorOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		ctor, err := f.value(ctorOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		args, err := vm.argList(f, ins.operands[1:])
		if err != nil {
			return false, values.Void(), false, err
		}
		return false, values.Void(), false, vm.construct(st, ctor, args, ins.dst)

	case asm.OpJmp:
		target, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.dec.Seek(int(values.AsNumber(target)))
		return false, values.Void(), false, nil

	case asm.OpJmpIf, asm.OpJmpIfNot:
		cond, target, err := vm.twoValues(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		if cond.Truthy() == (op == asm.OpJmpIf) {
			f.dec.Seek(int(values.AsNumber(target)))
		}
		return false, values.Void(), false, nil

	case asm.OpThrow:
		// The compiler stages the thrown value in the return slot.
		return false, values.Void(), false, values.Throw(f.registers[bytecode.ReturnRegisterIndex])

	case asm.OpSetCatch:
		target, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.catches = append(f.catches, int(values.AsNumber(target)))
		return false, values.Void(), false, nil

	case asm.OpUnsetCatch:
		if n := len(f.catches); n > 0 {
			f.catches = f.catches[:n-1]
		}
		return false, values.Void(), false, nil

	case asm.OpNext:
		v, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		if !v.IsCustom() {
			return false, values.Void(), false, typeError(values.TypeOf(v) + " is not an iterator")
		}
		it, ok := values.AsCustom(v).(values.Iterator)
		if !ok {
			return false, values.Void(), false, typeError(values.AsCustom(v).TypeName() + " is not an iterator")
		}
		res, err := it.Next()
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, res)
		return false, values.Void(), false, nil

	case asm.OpUnpackIterRes:
		resOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		res, err := f.value(resOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		if !res.IsObject() {
			return false, values.Void(), false, typeError("iterator result is not an object")
		}
		valTarget, err := ins.operand(1)
		if err != nil {
			return false, values.Void(), false, err
		}
		if valTarget.Kind != bytecode.OperandRegister {
			return false, values.Void(), false, bytecode.RuntimeErrorf("vm: unpackiterres value target must be a register")
		}
		valV, _ := values.AsObject(res).Get("value")
		doneV, _ := values.AsObject(res).Get("done")
		f.set(valTarget.Reg, values.Retain(valV))
		f.set(ins.dst, doneV)
		return false, values.Void(), false, nil

	case asm.OpCat:
		return false, values.Void(), false, vm.execCat(f, ins)

	case asm.OpYield:
		if !st.genMode || len(st.frames) != 1 {
			return false, values.Void(), false, typeError("yield outside of a generator")
		}
		srcOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := f.argValue(srcOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.yieldDst = bytecode.IgnoreRegisterIndex
		if ins.hasDst {
			f.yieldDst = ins.dst
		}
		return false, v, true, nil

	case asm.OpYieldStar:
		if !st.genMode || len(st.frames) != 1 {
			return false, values.Void(), false, typeError("yield outside of a generator")
		}
		srcOp, err := ins.operand(0)
		if err != nil {
			return false, values.Void(), false, err
		}
		v, err := f.value(srcOp)
		if err != nil {
			return false, values.Void(), false, err
		}
		it, err := builtins.IteratorFor(caller{vm}, v)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.delegate = it
		f.yieldDst = bytecode.IgnoreRegisterIndex
		if ins.hasDst {
			f.yieldDst = ins.dst
		}
		return false, values.Void(), false, nil

	case asm.OpImport, asm.OpImportStar:
		v, err := vm.oneValue(f, ins)
		if err != nil {
			return false, values.Void(), false, err
		}
		if !v.IsString() {
			return false, values.Void(), false, typeError("import specifier must be a string")
		}
		if vm.imports == nil {
			return false, values.Void(), false, bytecode.RuntimeErrorf("vm: no module loader configured for import of %q", values.AsString(v))
		}
		var loaded values.Value
		if op == asm.OpImport {
			loaded, err = vm.imports.LoadDefault(values.AsString(v))
		} else {
			loaded, err = vm.imports.LoadNamespace(values.AsString(v))
		}
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, loaded)
		return false, values.Void(), false, nil

	case asm.OpMakeArray:
		elems, err := vm.argList(f, ins.operands)
		if err != nil {
			return false, values.Void(), false, err
		}
		f.set(ins.dst, values.NewArray(elems))
		return false, values.Void(), false, nil

	case asm.OpMakeObject:
		if len(ins.operands)%2 != 0 {
			return false, values.Void(), false, bytecode.RuntimeErrorf("vm: makeobject needs key/value operand pairs")
		}
		n := len(ins.operands) / 2
		keys := make([]string, 0, n)
		vals := make([]values.Value, 0, n)
		for i := 0; i < len(ins.operands); i += 2 {
			k, err := f.value(ins.operands[i])
			if err != nil {
				return false, values.Void(), false, err
			}
			v, err := f.argValue(ins.operands[i+1])
			if err != nil {
				return false, values.Void(), false, err
			}
			keys = append(keys, values.ToPropertyKey(k))
			vals = append(vals, v)
		}
		f.set(ins.dst, values.NewObjectWithProps(keys, vals))
		return false, values.Void(), false, nil

	default:
		return false, values.Void(), false, bytecode.RuntimeErrorf("vm: unknown opcode %d at offset %d", ins.op, f.dec.Pos())
	}
}

func (vm *VM) oneValue(f *frame, ins *instr) (values.Value, error) {
	op, err := ins.operand(0)
	if err != nil {
		return values.Void(), err
	}
	return f.value(op)
}

func (vm *VM) twoValues(f *frame, ins *instr) (values.Value, values.Value, error) {
	a, err := vm.oneValue(f, ins)
	if err != nil {
		return values.Void(), values.Void(), err
	}
	op, err := ins.operand(1)
	if err != nil {
		return values.Void(), values.Void(), err
	}
	b, err := f.value(op)
	return a, b, err
}

func (vm *VM) argList(f *frame, ops []bytecode.Operand) ([]values.Value, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	args := make([]values.Value, len(ops))
	for i, op := range ops {
		v, err := f.argValue(op)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// execSubMov performs the in-place subscript write: the dst register
// holds the container, which is split from any copy-on-write share
// before mutation and stored back, per §4.6's SubMov contract.
func (vm *VM) execSubMov(f *frame, ins *instr) error {
	keyOp, err := ins.operand(0)
	if err != nil {
		return err
	}
	key, err := f.value(keyOp)
	if err != nil {
		return err
	}
	valOp, err := ins.operand(1)
	if err != nil {
		return err
	}
	val, err := f.argValue(valOp)
	if err != nil {
		return err
	}
	if !ins.hasDst || ins.dst == bytecode.IgnoreRegisterIndex {
		return nil
	}
	container := ownedForMutation(f.get(ins.dst))
	if err := subWrite(container, key, val); err != nil {
		return err
	}
	f.set(ins.dst, container)
	return nil
}

func (vm *VM) execSubCall(st *execState, f *frame, ins *instr, op asm.OpCode) error {
	recvOp, err := ins.operand(0)
	if err != nil {
		return err
	}
	keyOp, err := ins.operand(1)
	if err != nil {
		return err
	}
	key, err := f.value(keyOp)
	if err != nil {
		return err
	}
	args, err := vm.argList(f, ins.operands[2:])
	if err != nil {
		return err
	}

	constRecv := op == asm.OpConstSubCall
	recvReg := byte(bytecode.IgnoreRegisterIndex)
	var recv values.Value
	if recvOp.Kind == bytecode.OperandRegister && recvOp.Reg != bytecode.IgnoreRegisterIndex {
		recvReg = recvOp.Reg
		recv = f.get(recvReg)
		// A method reached through `this` inherits the constness the
		// current frame was entered with.
		if op == asm.OpThisSubCall && recvReg == bytecode.ThisRegisterIndex && f.constThis {
			constRecv = true
		}
	} else {
		recv, err = f.value(recvOp)
		if err != nil {
			return err
		}
	}
	if constRecv {
		recvReg = bytecode.IgnoreRegisterIndex
	}
	return vm.subCall(st, recv, recvReg, key, args, ins.dst, constRecv)
}

// execBind produces a closure carrying the captured values, appending
// them after any captures the source closure already holds (a bound
// bind composes left to right, same as the callee's parameter order).
func (vm *VM) execBind(f *frame, ins *instr) error {
	fnOp, err := ins.operand(0)
	if err != nil {
		return err
	}
	fn, err := f.value(fnOp)
	if err != nil {
		return err
	}
	if !fn.IsFunction() {
		return typeError(values.TypeOf(fn) + " is not bindable")
	}
	captures, err := vm.argList(f, ins.operands[1:])
	if err != nil {
		return err
	}
	base := values.AsFunction(fn)
	all := make([]values.Value, 0, len(base.Captures)+len(captures))
	for _, c := range base.Captures {
		all = append(all, values.Retain(c))
	}
	all = append(all, captures...)
	bound := &values.FunctionClosure{
		Name:           base.Name,
		Entry:          base.Entry,
		ParameterCount: base.ParameterCount,
		HasRestParam:   base.HasRestParam,
		RegisterCount:  base.RegisterCount,
		IsGenerator:    base.IsGenerator,
		Captures:       all,
		BoundThis:      base.BoundThis,
	}
	f.set(ins.dst, values.NewFunction(bound))
	return nil
}

// execCat concatenates per the base operand's type: strings
// concatenate, arrays append the piece's iteration sequence, objects
// merge the piece's properties. When the base register is also the
// destination the compiler is threading an accumulator through, so the
// body is reused in place when unique instead of cloned.
func (vm *VM) execCat(f *frame, ins *instr) error {
	baseOp, err := ins.operand(0)
	if err != nil {
		return err
	}
	base, err := f.value(baseOp)
	if err != nil {
		return err
	}
	pieceOp, err := ins.operand(1)
	if err != nil {
		return err
	}
	piece, err := f.value(pieceOp)
	if err != nil {
		return err
	}
	moved := baseOp.Kind != bytecode.OperandRegister || baseOp.Take ||
		(ins.hasDst && baseOp.Reg == ins.dst)

	switch base.Type {
	case values.TypeString:
		f.set(ins.dst, values.String(values.AsString(base)+values.ToStringTag(piece)))
		return nil

	case values.TypeArray:
		body := values.AsArray(base)
		var owned *values.ArrayBody
		if moved {
			owned = body.Own()
		} else {
			owned = body.Clone()
		}
		switch piece.Type {
		case values.TypeArray:
			for _, el := range values.AsArray(piece).Elements {
				owned.Elements = append(owned.Elements, values.Retain(el))
			}
		case values.TypeString:
			for _, r := range values.AsString(piece) {
				owned.Elements = append(owned.Elements, values.String(string(r)))
			}
		case values.TypeCustom:
			it, ok := values.AsCustom(piece).(values.Iterator)
			if !ok {
				return typeError(values.AsCustom(piece).TypeName() + " is not iterable")
			}
			for {
				res, err := it.Next()
				if err != nil {
					return err
				}
				if !res.IsObject() {
					return bytecode.RuntimeErrorf("vm: iterator result is not an object")
				}
				doneV, _ := values.AsObject(res).Get("done")
				if doneV.Truthy() {
					break
				}
				valV, _ := values.AsObject(res).Get("value")
				owned.Elements = append(owned.Elements, valV)
			}
		default:
			return typeError(values.TypeOf(piece) + " is not iterable")
		}
		f.set(ins.dst, values.NewArrayFromBody(owned))
		return nil

	case values.TypeObject:
		body := values.AsObject(base)
		var owned *values.ObjectBody
		if moved {
			owned = body.Own()
		} else {
			owned = body.Clone()
		}
		if !piece.IsObject() {
			return typeError("Cannot spread " + values.TypeOf(piece) + " into an object")
		}
		src := values.AsObject(piece)
		for i, k := range src.Keys {
			owned.Set(k, values.Retain(src.Vals[i]))
		}
		f.set(ins.dst, values.NewObjectFromBody(owned))
		return nil

	default:
		return typeError("Cannot concatenate onto " + values.TypeOf(base))
	}
}

// unwind implements the exception model from §4.6: the innermost catch
// setting of the topmost frame that has one receives the thrown value
// in its return slot; frames without one pop. Returns false when the
// stack empties without a handler.
func unwind(st *execState, thrown values.Value) bool {
	for len(st.frames) > 0 {
		f := st.current()
		if n := len(f.catches); n > 0 {
			pos := f.catches[n-1]
			f.catches = f.catches[:n-1]
			f.dec.Seek(pos)
			f.registers[bytecode.ReturnRegisterIndex] = thrown
			return true
		}
		st.frames = st.frames[:len(st.frames)-1]
	}
	return false
}

// thrownValue unwraps a ValueScript exception from an error return; any
// other error kind is a hard failure that bypasses catch settings.
func thrownValue(err error) (values.Value, bool) {
	if t, ok := err.(*values.Thrown); ok {
		return t.Value, true
	}
	return values.Void(), false
}
