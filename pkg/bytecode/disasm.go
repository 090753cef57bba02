package bytecode

import (
	"fmt"
	"math"
	"sort"

	"valuescript/pkg/asm"
)

// BuiltinName resolves a built-in table code back to its assembly name,
// the inverse of BuiltinCode. Supplied by pkg/builtins.
type BuiltinName func(code int) (string, bool)

// Disassemble reconstructs an Assembly IR module from assembled
// bytecode. Definitions are discovered through the pointer graph rooted
// at the export header — the wire format has no definition directory,
// so anything unreferenced (dead weight by construction) is invisible
// here. Synthetic names are positional: definitions become @def_<offset>,
// labels .L_<offset>, registers %r<index>.
func Disassemble(buf []byte, builtinName BuiltinName) (*asm.Module, error) {
	d := &disassembler{
		dec:         NewDecoder(buf),
		builtinName: builtinName,
		names:       map[int]string{},
		defs:        map[int]*asm.Definition{},
	}
	m := &asm.Module{}

	var err error
	if m.ExportDefault, err = d.rawOperand(); err != nil {
		return nil, err
	}
	tagByte, err := d.dec.readByte()
	if err != nil {
		return nil, err
	}
	if Tag(tagByte) != TagExportStar {
		return nil, fmt.Errorf("bytecode: expected ExportStar header, got tag 0x%02x", tagByte)
	}
	n, err := d.dec.readVarint()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		p, err := d.rawPointer()
		if err != nil {
			return nil, err
		}
		m.ExportStarIncludes = append(m.ExportStarIncludes, p)
	}
	props, err := d.rawObjectLit()
	if err != nil {
		return nil, err
	}
	m.ExportStarProps = &props

	// Drain the worklist; visiting a definition can discover more.
	for len(d.pending) > 0 {
		offset := d.pending[0]
		d.pending = d.pending[1:]
		if _, done := d.defs[offset]; done {
			continue
		}
		def, err := d.definitionAt(offset)
		if err != nil {
			return nil, err
		}
		d.defs[offset] = def
	}

	offsets := make([]int, 0, len(d.defs))
	for off := range d.defs {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	for _, off := range offsets {
		m.Add(d.defs[off])
	}
	return m, nil
}

type disassembler struct {
	dec         *Decoder
	builtinName BuiltinName
	names       map[int]string
	pending     []int
	defs        map[int]*asm.Definition
}

func (d *disassembler) nameFor(offset int) string {
	if n, ok := d.names[offset]; ok {
		return n
	}
	n := fmt.Sprintf("def_%04x", offset)
	d.names[offset] = n
	d.pending = append(d.pending, offset)
	return n
}

func (d *disassembler) definitionAt(offset int) (*asm.Definition, error) {
	saved := d.dec.Pos()
	defer d.dec.Seek(saved)
	d.dec.Seek(offset)

	tagByte, err := d.dec.readByte()
	if err != nil {
		return nil, err
	}
	d.dec.Seek(offset)
	def := &asm.Definition{Name: d.nameFor(offset)}

	switch Tag(tagByte) {
	case TagFunction, TagGeneratorFunction:
		fn, err := d.function()
		if err != nil {
			return nil, err
		}
		def.Function = fn
		return def, nil
	case TagLazy:
		h, err := d.dec.ReadFunctionHeader()
		if err != nil {
			return nil, err
		}
		body, err := d.body(h.BodyStart)
		if err != nil {
			return nil, err
		}
		def.Lazy = &asm.LazyDef{Body: body}
		return def, nil
	case TagClass:
		cls, err := d.class()
		if err != nil {
			return nil, err
		}
		def.Class = cls
		return def, nil
	case TagMeta:
		name, err := d.dec.ReadMeta()
		if err != nil {
			return nil, err
		}
		def.Meta = &asm.MetaDef{Name: name}
		return def, nil
	default:
		v, err := d.rawOperand()
		if err != nil {
			return nil, err
		}
		def.Value = v
		return def, nil
	}
}

func (d *disassembler) function() (*asm.Function, error) {
	h, err := d.dec.ReadFunctionHeader()
	if err != nil {
		return nil, err
	}
	fn := &asm.Function{IsGenerator: h.IsGenerator, HasRestParam: h.HasRestParam}
	if h.HasMeta {
		p := asm.Pointer{Name: d.nameFor(h.MetaOffset)}
		fn.Meta = &p
	}
	for i := 0; i < h.ParameterCount; i++ {
		fn.Parameters = append(fn.Parameters, asm.Register{Name: registerName(byte(FirstUserRegister + i))})
	}
	fn.Body, err = d.body(h.BodyStart)
	return fn, err
}

// body decodes instructions from start until the function's terminal
// End. An End instruction ends the body only once no label target seen
// so far still lies ahead: any later instruction would be reachable
// solely through such a label, and every label is referenced by an
// earlier operand.
func (d *disassembler) body(start int) ([]asm.FnLine, error) {
	d.dec.Seek(start)
	type located struct {
		pos int
		ins *asm.Instruction
	}
	var instrs []located
	labelTargets := map[int]bool{}
	maxLabel := -1

	for {
		pos := d.dec.Pos()
		ins, targets, err := d.instruction()
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			labelTargets[t] = true
			if t > maxLabel {
				maxLabel = t
			}
		}
		instrs = append(instrs, located{pos: pos, ins: ins})
		if ins.Op == asm.OpEnd && d.dec.Pos() > maxLabel {
			break
		}
	}

	var body []asm.FnLine
	for _, loc := range instrs {
		if labelTargets[loc.pos] {
			body = append(body, asm.LabelLine(labelName(loc.pos)))
		}
		body = append(body, asm.InstructionLine(loc.ins))
	}
	return body, nil
}

func (d *disassembler) instruction() (*asm.Instruction, []int, error) {
	opByte, err := d.dec.ReadOpCode()
	if err != nil {
		return nil, nil, err
	}
	op := asm.OpCode(opByte)
	if op.String() == "unknown" {
		return nil, nil, fmt.Errorf("bytecode: unknown opcode 0x%02x at offset %d", opByte, d.dec.Pos()-1)
	}
	n, err := d.dec.ReadOperandCount()
	if err != nil {
		return nil, nil, err
	}
	ins := &asm.Instruction{Op: op}
	var targets []int
	for i := 0; i < n; i++ {
		operand, target, err := d.rawOperandWithLabel()
		if err != nil {
			return nil, nil, err
		}
		if target >= 0 {
			targets = append(targets, target)
		}
		ins.Operands = append(ins.Operands, operand)
	}
	hasDst, dst, err := d.dec.ReadDst()
	if err != nil {
		return nil, nil, err
	}
	if hasDst {
		r := asm.Register{Name: registerName(dst)}
		ins.Dst = &r
	}
	return ins, targets, nil
}

// rawOperand decodes one operand without resolving anything: pointers
// and builtins stay symbolic, labels are not expected.
func (d *disassembler) rawOperand() (asm.Operand, error) {
	op, target, err := d.rawOperandWithLabel()
	if err != nil {
		return nil, err
	}
	if target >= 0 {
		return nil, fmt.Errorf("bytecode: label operand outside a function body")
	}
	return op, nil
}

func (d *disassembler) rawOperandWithLabel() (asm.Operand, int, error) {
	tagByte, err := d.dec.readByte()
	if err != nil {
		return nil, -1, err
	}
	switch Tag(tagByte) {
	case TagVoid:
		return asm.VoidLit{}, -1, nil
	case TagUndefined:
		return asm.UndefinedLit{}, -1, nil
	case TagNull:
		return asm.NullLit{}, -1, nil
	case TagFalse:
		return asm.BoolLit(false), -1, nil
	case TagTrue:
		return asm.BoolLit(true), -1, nil
	case TagSignedByte:
		b, err := d.dec.readByte()
		if err != nil {
			return nil, -1, err
		}
		return asm.NumberLit(float64(int8(b))), -1, nil
	case TagNumber:
		bs, err := d.dec.readBytes(8)
		if err != nil {
			return nil, -1, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(bs[i]) << (8 * i)
		}
		return asm.NumberLit(math.Float64frombits(bits)), -1, nil
	case TagString:
		s, err := d.dec.readString()
		if err != nil {
			return nil, -1, err
		}
		return asm.StringLit(s), -1, nil
	case TagBigInt:
		v, err := d.dec.readBigInt()
		if err != nil {
			return nil, -1, err
		}
		return asm.BigIntLit{Value: v}, -1, nil
	case TagRegister:
		idx, err := d.dec.readByte()
		if err != nil {
			return nil, -1, err
		}
		return asm.Register{Name: registerName(idx)}, -1, nil
	case TagTakeRegister:
		idx, err := d.dec.readByte()
		if err != nil {
			return nil, -1, err
		}
		return asm.Register{Name: registerName(idx), Take: true}, -1, nil
	case TagPointer:
		offset, err := d.dec.readOffset()
		if err != nil {
			return nil, -1, err
		}
		return asm.Pointer{Name: d.nameFor(offset)}, -1, nil
	case TagBuiltin:
		code, err := d.dec.readVarint()
		if err != nil {
			return nil, -1, err
		}
		name, ok := d.builtinName(code)
		if !ok {
			return nil, -1, fmt.Errorf("bytecode: unknown builtin code %d", code)
		}
		return asm.Builtin{Name: name}, -1, nil
	case TagLabel:
		offset, err := d.dec.readOffset()
		if err != nil {
			return nil, -1, err
		}
		return asm.LabelRef{Name: labelName(offset)}, offset, nil
	case TagArray:
		n, err := d.dec.readVarint()
		if err != nil {
			return nil, -1, err
		}
		lit := asm.ArrayLit{}
		for i := 0; i < n; i++ {
			el, err := d.rawOperand()
			if err != nil {
				return nil, -1, err
			}
			lit.Elements = append(lit.Elements, el)
		}
		return lit, -1, nil
	case TagObject:
		d.dec.Seek(d.dec.Pos() - 1)
		lit, err := d.rawObjectLit()
		return lit, -1, err
	default:
		return nil, -1, fmt.Errorf("bytecode: unexpected operand tag 0x%02x at offset %d", tagByte, d.dec.Pos()-1)
	}
}

func (d *disassembler) rawObjectLit() (asm.ObjectLit, error) {
	tagByte, err := d.dec.readByte()
	if err != nil {
		return asm.ObjectLit{}, err
	}
	if Tag(tagByte) != TagObject {
		return asm.ObjectLit{}, fmt.Errorf("bytecode: expected object literal, got tag 0x%02x", tagByte)
	}
	n, err := d.dec.readVarint()
	if err != nil {
		return asm.ObjectLit{}, err
	}
	lit := asm.ObjectLit{}
	for i := 0; i < n; i++ {
		k, err := d.dec.readString()
		if err != nil {
			return asm.ObjectLit{}, err
		}
		v, err := d.rawOperand()
		if err != nil {
			return asm.ObjectLit{}, err
		}
		lit.Keys = append(lit.Keys, k)
		lit.Values = append(lit.Values, v)
	}
	return lit, nil
}

func (d *disassembler) rawPointer() (asm.Pointer, error) {
	tagByte, err := d.dec.readByte()
	if err != nil {
		return asm.Pointer{}, err
	}
	if Tag(tagByte) != TagPointer {
		return asm.Pointer{}, fmt.Errorf("bytecode: expected pointer, got tag 0x%02x", tagByte)
	}
	offset, err := d.dec.readOffset()
	if err != nil {
		return asm.Pointer{}, err
	}
	return asm.Pointer{Name: d.nameFor(offset)}, nil
}

func (d *disassembler) class() (*asm.ClassDef, error) {
	tagByte, err := d.dec.readByte()
	if err != nil {
		return nil, err
	}
	if Tag(tagByte) != TagClass {
		return nil, fmt.Errorf("bytecode: expected class definition, got tag 0x%02x", tagByte)
	}
	cls := &asm.ClassDef{}
	if cls.Name, err = d.dec.readString(); err != nil {
		return nil, err
	}
	if cls.Constructor, err = d.rawPointer(); err != nil {
		return nil, err
	}
	if cls.InstancePrototype, err = d.rawObjectLit(); err != nil {
		return nil, err
	}
	if cls.Static, err = d.rawObjectLit(); err != nil {
		return nil, err
	}
	superFlag, err := d.dec.readByte()
	if err != nil {
		return nil, err
	}
	if superFlag == 1 {
		p, err := d.rawPointer()
		if err != nil {
			return nil, err
		}
		cls.SuperClass = &p
	}
	return cls, nil
}

func registerName(idx byte) string {
	switch idx {
	case ReturnRegisterIndex:
		return asm.ReturnReg
	case ThisRegisterIndex:
		return asm.ThisReg
	case IgnoreRegisterIndex:
		return asm.IgnoreReg
	default:
		return fmt.Sprintf("r%d", idx)
	}
}

func labelName(offset int) string { return fmt.Sprintf("L_%04x", offset) }
