package vm

import (
	"valuescript/pkg/bytecode"
	"valuescript/pkg/values"
)

// frame is one activation record: a register window plus a decoder
// positioned inside the function's body. The current frame is the only
// mutable one; frames below it on the stack are suspended at the
// instruction after their call and touched again only at return time.
type frame struct {
	dec       *bytecode.Decoder
	registers []values.Value

	// catches holds the decoder offsets of every active SetCatch in this
	// frame, innermost last. Throw consumes the innermost; UnsetCatch
	// pops it when the guarded region exits normally.
	catches []int

	// retTarget / thisTarget are register indices in the *caller's*
	// window: retTarget receives registers[0] on End, thisTarget (when
	// not ignore) receives the possibly-updated registers[1], which is
	// how a mutating method call writes its receiver back.
	retTarget  byte
	thisTarget byte

	// returnThis redirects retTarget to registers[1] instead of
	// registers[0]; set for constructor frames, whose result is the
	// instance, not the return slot.
	returnThis bool

	// constThis marks a frame entered through ConstSubCall (or a
	// ThisSubCall whose receiver was itself a const this). Mutating the
	// receiver is refused at RequireMutableThis, and thisTarget is
	// ignore so no write-back can happen either.
	constThis bool

	// Generator resumption state: yieldDst is the register the next
	// resume value lands in (ignore until the first Yield executes);
	// delegate is the in-flight yield* iterator, drained one element per
	// resume before the frame's own instructions continue.
	yieldDst byte
	delegate values.Iterator
}

// newFrame builds the activation record for one closure call: register 0
// is the return slot (Undefined until written), register 1 is this, then
// capture parameters and declared parameters in the order the compiler
// laid them out, with a rest parameter collecting the argument tail.
func (vm *VM) newFrame(fn *values.FunctionClosure, this values.Value, args []values.Value) (*frame, error) {
	if fn.RegisterCount < bytecode.FirstUserRegister {
		return nil, bytecode.RuntimeErrorf("vm: function %q declares %d registers, need at least %d", fn.Name, fn.RegisterCount, bytecode.FirstUserRegister)
	}
	f := &frame{
		dec:        bytecode.NewDecoder(vm.buf),
		registers:  make([]values.Value, fn.RegisterCount),
		retTarget:  bytecode.IgnoreRegisterIndex,
		thisTarget: bytecode.IgnoreRegisterIndex,
		yieldDst:   bytecode.IgnoreRegisterIndex,
	}
	f.dec.Seek(fn.Entry)
	f.registers[bytecode.ReturnRegisterIndex] = values.Undefined()
	if fn.BoundThis != nil {
		this = values.Retain(*fn.BoundThis)
	}
	f.registers[bytecode.ThisRegisterIndex] = this

	// Captures are still owned by the closure; copying them into the
	// window is a duplication.
	all := make([]values.Value, 0, len(fn.Captures)+len(args))
	for _, c := range fn.Captures {
		all = append(all, values.Retain(c))
	}
	all = append(all, args...)

	positional := fn.ParameterCount
	if fn.HasRestParam {
		positional--
	}
	if positional < 0 {
		return nil, bytecode.RuntimeErrorf("vm: function %q has a rest parameter but no parameter slots", fn.Name)
	}
	reg := bytecode.FirstUserRegister
	for i := 0; i < positional; i++ {
		if reg >= len(f.registers) {
			return nil, bytecode.RuntimeErrorf("vm: function %q parameter %d exceeds its register window", fn.Name, i)
		}
		if i < len(all) {
			f.registers[reg] = all[i]
		} else {
			f.registers[reg] = values.Undefined()
		}
		reg++
	}
	if fn.HasRestParam {
		if reg >= len(f.registers) {
			return nil, bytecode.RuntimeErrorf("vm: function %q rest parameter exceeds its register window", fn.Name)
		}
		var rest []values.Value
		if positional < len(all) {
			rest = append(rest, all[positional:]...)
		}
		f.registers[reg] = values.NewArray(rest)
	}
	return f, nil
}

// value resolves one decoded operand against this frame. A take-register
// operand performs the move: the slot is left holding Void and the
// original value is handed to the instruction, per §4.6's take decode.
func (f *frame) value(op bytecode.Operand) (values.Value, error) {
	if op.Kind == bytecode.OperandValue {
		return op.Value, nil
	}
	if op.Reg == bytecode.IgnoreRegisterIndex {
		return values.Undefined(), nil
	}
	if int(op.Reg) >= len(f.registers) {
		return values.Void(), bytecode.RuntimeErrorf("vm: register %d out of range (frame has %d)", op.Reg, len(f.registers))
	}
	v := f.registers[op.Reg]
	if op.Take {
		f.registers[op.Reg] = values.Void()
	}
	return v, nil
}

// argValue resolves an operand that is about to be stored somewhere new
// (a callee register, an array slot, a closure capture): a plain
// register read is a duplication and must be retained; a take read or a
// freshly decoded literal transfers ownership and must not be.
func (f *frame) argValue(op bytecode.Operand) (values.Value, error) {
	v, err := f.value(op)
	if err != nil {
		return v, err
	}
	if op.Kind == bytecode.OperandRegister && !op.Take {
		v = values.Retain(v)
	}
	return v, nil
}

func (f *frame) set(reg byte, v values.Value) {
	if reg == bytecode.IgnoreRegisterIndex || int(reg) >= len(f.registers) {
		return
	}
	f.registers[reg] = v
}

func (f *frame) get(reg byte) values.Value {
	if reg == bytecode.IgnoreRegisterIndex || int(reg) >= len(f.registers) {
		return values.Undefined()
	}
	return f.registers[reg]
}

// instr is one fully decoded instruction. Decoding is completed before
// dispatch so the stream position always rests on an instruction
// boundary when control transfers (jump, call, throw, yield).
type instr struct {
	op       byte
	operands []bytecode.Operand
	hasDst   bool
	dst      byte
}

func (vm *VM) decodeInstr(f *frame) (instr, error) {
	op, err := f.dec.ReadOpCode()
	if err != nil {
		return instr{}, err
	}
	n, err := f.dec.ReadOperandCount()
	if err != nil {
		return instr{}, err
	}
	ins := instr{op: op}
	if n > 0 {
		ins.operands = make([]bytecode.Operand, n)
		for i := 0; i < n; i++ {
			if ins.operands[i], err = f.dec.ReadOperand(vm); err != nil {
				return instr{}, err
			}
		}
	}
	ins.hasDst, ins.dst, err = f.dec.ReadDst()
	return ins, err
}

func (ins *instr) operand(i int) (bytecode.Operand, error) {
	if i >= len(ins.operands) {
		return bytecode.Operand{}, bytecode.RuntimeErrorf("vm: instruction missing operand %d", i)
	}
	return ins.operands[i], nil
}
