package bytecode

import (
	"fmt"
	"math"
	"math/big"

	"valuescript/pkg/asm"
)

// BuiltinCode resolves a built-in's assembly name ("$name") to its stable
// numeric code in the global built-in table. Implemented by pkg/builtins;
// kept as a function parameter here so this package never imports the
// built-in surface, matching its stated 3%-of-source "random-access
// reader" scope in the SYSTEM OVERVIEW table — encoding is the one place
// that needs the name, so it takes the lookup as a dependency rather than
// owning the table.
type BuiltinCode func(name string) (int, bool)

// patchList records every unresolved reference to a named location
// (module-level pointer, or function-local label) as a 2-byte placeholder
// site; Resolve patches every site once all locations are known. This is
// the two-pass encode→patch technique from spec §4.5/§9.
type patchList struct {
	pending map[string][]int // name -> byte offsets of 2-byte placeholders
	found   map[string]int   // name -> absolute byte offset of its definition
}

func newPatchList() *patchList {
	return &patchList{pending: map[string][]int{}, found: map[string]int{}}
}

func (p *patchList) define(name string, pos int) { p.found[name] = pos }

func (p *patchList) reserve(out []byte, name string) []byte {
	p.pending[name] = append(p.pending[name], len(out))
	return append(out, 0xff, 0xff)
}

func (p *patchList) resolve(out []byte) error {
	for name, sites := range p.pending {
		loc, ok := p.found[name]
		if !ok {
			return fmt.Errorf("bytecode: unresolved reference to %q", name)
		}
		if loc > 0xffff {
			return fmt.Errorf("bytecode: definition %q at offset %d exceeds the 16-bit offset limit", name, loc)
		}
		for _, site := range sites {
			out[site] = byte(loc & 0xff)
			out[site+1] = byte((loc >> 8) & 0xff)
		}
	}
	return nil
}

// assembler holds the running output buffer and linking state for one
// module encode pass.
type assembler struct {
	out         []byte
	builtinCode BuiltinCode
	definitions *patchList // module-wide: pointer name -> offset

	// per-function state, reset by each function()/lazy() call.
	registers  map[string]byte
	nextReg    byte
	regCountAt int
	labels     *patchList
}

// Assemble lowers a complete Assembly IR module into the bytecode byte
// stream described by spec §6.1: export-default value, export-star
// header, then every top-level definition, each addressable by the
// absolute offset patched into any pointer site that names it.
func Assemble(m *asm.Module, builtinCode BuiltinCode) ([]byte, error) {
	a := &assembler{builtinCode: builtinCode, definitions: newPatchList()}

	var err error
	if a.out, err = a.encodeOperand(a.out, m.ExportDefault); err != nil {
		return nil, err
	}

	a.out = append(a.out, byte(TagExportStar))
	a.out = putVarint(a.out, len(m.ExportStarIncludes))
	for _, p := range m.ExportStarIncludes {
		a.out = a.definitions.reserve(append(a.out, byte(TagPointer)), p.Name)
	}
	props := m.ExportStarProps
	if props == nil {
		props = &asm.ObjectLit{}
	}
	if a.out, err = a.encodeObjectLit(a.out, *props); err != nil {
		return nil, err
	}

	for _, def := range m.Definitions {
		if err := a.encodeDefinition(def); err != nil {
			return nil, err
		}
	}

	if err := a.definitions.resolve(a.out); err != nil {
		return nil, err
	}
	return a.out, nil
}

func (a *assembler) encodeDefinition(def *asm.Definition) error {
	a.definitions.define(def.Name, len(a.out))

	switch {
	case def.Function != nil:
		return a.encodeFunction(def.Function)
	case def.Class != nil:
		return a.encodeClass(def.Class)
	case def.Meta != nil:
		a.out = append(a.out, byte(TagMeta))
		a.out = a.encodeString(a.out, def.Meta.Name)
		return nil
	case def.Lazy != nil:
		return a.encodeLazy(def.Lazy)
	default:
		var err error
		a.out, err = a.encodeOperand(a.out, def.Value)
		return err
	}
}

func (a *assembler) encodeFunction(fn *asm.Function) error {
	if fn.IsGenerator {
		a.out = append(a.out, byte(TagGeneratorFunction))
	} else {
		a.out = append(a.out, byte(TagFunction))
	}

	if fn.Meta != nil {
		a.out = append(a.out, 0x01)
		a.out = a.definitions.reserve(append(a.out, byte(TagPointer)), fn.Meta.Name)
	} else {
		a.out = append(a.out, 0x00)
	}

	a.beginFunction()
	a.regCountAt = len(a.out)
	a.out = append(a.out, 0xff) // placeholder, patched below

	if len(fn.Parameters) > 0xff {
		return fmt.Errorf("bytecode: function %q has more than 255 parameters", fn.Name)
	}
	a.out = append(a.out, byte(len(fn.Parameters)))
	for _, p := range fn.Parameters {
		a.lookupRegister(p.Name) // reserve parameter registers first, in order
	}
	if fn.HasRestParam {
		a.out = append(a.out, 0x01)
	} else {
		a.out = append(a.out, 0x00)
	}

	if err := a.encodeBody(fn.Body); err != nil {
		return err
	}
	a.out = append(a.out, byte(asm.OpEnd))

	// +3 for the reserved return/this/ignore slots, per §4.5.
	regCount := int(a.nextReg) + 3
	if regCount > 0xff {
		return fmt.Errorf("bytecode: function %q needs more than 255 registers", fn.Name)
	}
	a.out[a.regCountAt] = byte(regCount)

	return a.labels.resolve(a.out)
}

func (a *assembler) encodeLazy(lazy *asm.LazyDef) error {
	a.out = append(a.out, byte(TagLazy))

	a.beginFunction()
	a.regCountAt = len(a.out)
	a.out = append(a.out, 0xff)

	if err := a.encodeBody(lazy.Body); err != nil {
		return err
	}
	a.out = append(a.out, byte(asm.OpEnd))

	regCount := int(a.nextReg) + 3
	a.out[a.regCountAt] = byte(regCount)

	return a.labels.resolve(a.out)
}

func (a *assembler) encodeClass(c *asm.ClassDef) error {
	a.out = append(a.out, byte(TagClass))
	a.out = a.encodeString(a.out, c.Name)
	a.out = a.definitions.reserve(append(a.out, byte(TagPointer)), c.Constructor.Name)
	var err error
	if a.out, err = a.encodeObjectLit(a.out, c.InstancePrototype); err != nil {
		return err
	}
	if a.out, err = a.encodeObjectLit(a.out, c.Static); err != nil {
		return err
	}
	if c.SuperClass != nil {
		a.out = append(a.out, 0x01)
		a.out = a.definitions.reserve(append(a.out, byte(TagPointer)), c.SuperClass.Name)
	} else {
		a.out = append(a.out, 0x00)
	}
	return nil
}

func (a *assembler) beginFunction() {
	a.registers = map[string]byte{}
	a.nextReg = 0
	a.labels = newPatchList()
}

func (a *assembler) lookupRegister(name string) byte {
	switch name {
	case asm.ReturnReg:
		return returnRegisterIndex
	case asm.ThisReg:
		return thisRegisterIndex
	case asm.IgnoreReg:
		return IgnoreRegisterIndex
	}
	if idx, ok := a.registers[name]; ok {
		return idx
	}
	idx := a.nextReg + firstUserRegister
	a.registers[name] = idx
	a.nextReg++
	return idx
}

func (a *assembler) encodeBody(body []asm.FnLine) error {
	for _, line := range body {
		switch line.Kind {
		case asm.LineInstruction:
			if err := a.encodeInstruction(line.Instruction); err != nil {
				return err
			}
		case asm.LineLabel:
			a.labels.define(line.Label, len(a.out))
		case asm.LineRelease, asm.LineComment, asm.LineEmpty:
			// not part of the executable bytecode stream.
		}
	}
	return nil
}

// encodeInstruction writes: opcode byte, operand-count varint, each
// operand tag-prefixed in order, then a dst-presence byte and (if
// present) a raw register index. Using an explicit count rather than a
// fixed per-opcode arity (the original Rust encoding's approach) is this
// implementation's choice: the compiler emits call-family instructions
// (Call/New/ThisSubCall/ConstSubCall/Bind) with a variable-length
// argument tail flattened directly into Operands, so the decoder needs a
// count regardless; applying it uniformly keeps one decode path instead
// of a per-opcode arity table. See DESIGN.md.
func (a *assembler) encodeInstruction(ins *asm.Instruction) error {
	a.out = append(a.out, byte(ins.Op))
	a.out = putVarint(a.out, len(ins.Operands))
	for _, op := range ins.Operands {
		var err error
		if a.out, err = a.encodeOperand(a.out, op); err != nil {
			return err
		}
	}
	if ins.Dst != nil {
		a.out = append(a.out, 0x01, a.lookupRegister(ins.Dst.Name))
	} else {
		a.out = append(a.out, 0x00)
	}
	return nil
}

func (a *assembler) encodeOperand(out []byte, op asm.Operand) ([]byte, error) {
	switch v := op.(type) {
	case asm.Register:
		if v.Take {
			out = append(out, byte(TagTakeRegister))
		} else {
			out = append(out, byte(TagRegister))
		}
		return append(out, a.lookupRegister(v.Name)), nil
	case asm.Pointer:
		return a.definitions.reserve(append(out, byte(TagPointer)), v.Name), nil
	case asm.LabelRef:
		return a.labels.reserve(append(out, byte(TagLabel)), v.Name), nil
	case asm.Builtin:
		code, ok := a.builtinCode(v.Name)
		if !ok {
			return nil, fmt.Errorf("bytecode: unknown builtin %q", v.Name)
		}
		out = append(out, byte(TagBuiltin))
		return putVarint(out, code), nil
	case asm.VoidLit:
		return append(out, byte(TagVoid)), nil
	case asm.UndefinedLit:
		return append(out, byte(TagUndefined)), nil
	case asm.NullLit:
		return append(out, byte(TagNull)), nil
	case asm.BoolLit:
		if v {
			return append(out, byte(TagTrue)), nil
		}
		return append(out, byte(TagFalse)), nil
	case asm.NumberLit:
		return a.encodeNumber(out, float64(v)), nil
	case asm.StringLit:
		return a.encodeString(out, string(v)), nil
	case asm.BigIntLit:
		return a.encodeBigInt(out, v.Value), nil
	case asm.ArrayLit:
		out = append(out, byte(TagArray))
		out = putVarint(out, len(v.Elements))
		for _, el := range v.Elements {
			var err error
			if out, err = a.encodeOperand(out, el); err != nil {
				return nil, err
			}
		}
		return out, nil
	case asm.ObjectLit:
		return a.encodeObjectLit(out, v)
	case asm.Hash:
		out = append(out, byte(TagEnd)) // reserved, never emitted by the compiler today
		return append(out, v[:]...), nil
	default:
		return nil, fmt.Errorf("bytecode: unsupported operand type %T", op)
	}
}

func (a *assembler) encodeObjectLit(out []byte, o asm.ObjectLit) ([]byte, error) {
	out = append(out, byte(TagObject))
	out = putVarint(out, len(o.Keys))
	for i, k := range o.Keys {
		out = a.encodeString(out, k)
		var err error
		if out, err = a.encodeOperand(out, o.Values[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *assembler) encodeString(out []byte, s string) []byte {
	out = append(out, byte(TagString))
	out = putVarint(out, len(s))
	return append(out, s...)
}

func (a *assembler) encodeNumber(out []byte, n float64) []byte {
	if float64(int8(n)) == n {
		out = append(out, byte(TagSignedByte))
		return append(out, byte(int8(n)))
	}
	out = append(out, byte(TagNumber))
	bits := math.Float64bits(n)
	for i := 0; i < 8; i++ {
		out = append(out, byte(bits>>(8*i)))
	}
	return out
}

func (a *assembler) encodeBigInt(out []byte, v *big.Int) []byte {
	out = append(out, byte(TagBigInt))
	switch v.Sign() {
	case -1:
		out = append(out, 0)
	case 0:
		out = append(out, 1)
	default:
		out = append(out, 2)
	}
	mag := v.Bytes() // big-endian magnitude
	le := make([]byte, len(mag))
	for i, b := range mag {
		le[len(mag)-1-i] = b
	}
	out = putVarint(out, len(le))
	return append(out, le...)
}
