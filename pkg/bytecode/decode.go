package bytecode

import (
	"fmt"
	"math"
	"math/big"

	"valuescript/pkg/errors"
	"valuescript/pkg/values"
)

// Decoder is a random-access reader over an immutable bytecode buffer,
// per the "Bytecode decoder" row of the SYSTEM OVERVIEW table. The VM
// owns one Decoder per loaded module and repositions it (via Seek) on
// every call/jump/resume rather than allocating a new one.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) Pos() int     { return d.pos }
func (d *Decoder) Seek(pos int) { d.pos = pos }
func (d *Decoder) Len() int     { return len(d.buf) }
func (d *Decoder) AtEnd() bool  { return d.pos >= len(d.buf) }

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("bytecode: read past end of buffer at offset %d", d.pos)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("bytecode: read %d bytes past end of buffer at offset %d", n, d.pos)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readOffset() (int, error) {
	lo, err := d.readByte()
	if err != nil {
		return 0, err
	}
	hi, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return int(lo) | int(hi)<<8, nil
}

// ReadOpCode reads the next instruction's opcode byte without decoding
// its operands; the VM's dispatch loop uses this to select the handler.
func (d *Decoder) ReadOpCode() (byte, error) { return d.readByte() }

// ReadOperandCount reads the operand-count varint this implementation
// prefixes every instruction with (see encode.go's encodeInstruction doc).
func (d *Decoder) ReadOperandCount() (int, error) { return d.readVarint() }

// ReadDst reads an instruction's destination-presence byte and, if
// present, the raw register index that follows it.
func (d *Decoder) ReadDst() (present bool, reg byte, err error) {
	flag, err := d.readByte()
	if err != nil {
		return false, 0, err
	}
	if flag == 0 {
		return false, 0, nil
	}
	reg, err = d.readByte()
	return true, reg, err
}

// Linker resolves the handles an Operand may refer to beyond its own
// bytes: a module-level pointer (function/class/lazy/leaf definition, by
// absolute offset) or a built-in table slot. Implemented by pkg/vm, kept
// as an interface here so this package stays free of VM/closure concerns.
type Linker interface {
	ResolvePointer(offset int) (values.Value, error)
	ResolveBuiltin(code int) (values.Value, error)
}

// OperandKind discriminates what ReadOperand decoded: a register
// reference (which the VM resolves against the current frame, with Take
// performing the move-semantics swap-for-Void) versus a ready-to-use
// Value (literal, or resolved through the Linker).
type OperandKind int

const (
	OperandValue OperandKind = iota
	OperandRegister
)

type Operand struct {
	Kind  OperandKind
	Reg   byte // valid when Kind == OperandRegister
	Take  bool // valid when Kind == OperandRegister
	Value values.Value
}

// ReadOperand decodes one tag-prefixed operand per spec §4.5. Register
// operands are returned unresolved (the caller holds the frame); every
// other tag is fully resolved into a values.Value, recursing through the
// Linker for Pointer/Builtin and through itself for nested Array/Object
// literal elements.
func (d *Decoder) ReadOperand(link Linker) (Operand, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return Operand{}, err
	}
	tag := Tag(tagByte)

	switch tag {
	case TagRegister, TagTakeRegister:
		idx, err := d.readByte()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: OperandRegister, Reg: idx, Take: tag == TagTakeRegister}, nil
	case TagVoid:
		return Operand{Value: values.Void()}, nil
	case TagUndefined:
		return Operand{Value: values.Undefined()}, nil
	case TagNull:
		return Operand{Value: values.Null()}, nil
	case TagFalse:
		return Operand{Value: values.False}, nil
	case TagTrue:
		return Operand{Value: values.True}, nil
	case TagSignedByte:
		b, err := d.readByte()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.Number(float64(int8(b)))}, nil
	case TagNumber:
		bs, err := d.readBytes(8)
		if err != nil {
			return Operand{}, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(bs[i]) << (8 * i)
		}
		return Operand{Value: values.Number(math.Float64frombits(bits))}, nil
	case TagString:
		s, err := d.readString()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.String(s)}, nil
	case TagBigInt:
		v, err := d.readBigInt()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.BigInt(v)}, nil
	case TagArray:
		elems, err := d.readLiteralSeq(link)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.NewArray(elems)}, nil
	case TagObject:
		keys, vals, err := d.readObjectBody(link)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.NewObjectWithProps(keys, vals)}, nil
	case TagPointer:
		offset, err := d.readOffset()
		if err != nil {
			return Operand{}, err
		}
		v, err := link.ResolvePointer(offset)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: v}, nil
	case TagBuiltin:
		code, err := d.readVarint()
		if err != nil {
			return Operand{}, err
		}
		v, err := link.ResolveBuiltin(code)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: v}, nil
	case TagLabel:
		offset, err := d.readOffset()
		if err != nil {
			return Operand{}, err
		}
		return Operand{Value: values.Number(float64(offset))}, nil
	default:
		return Operand{}, fmt.Errorf("bytecode: unexpected operand tag 0x%02x at offset %d", tagByte, d.pos-1)
	}
}

// ReadLabelOffset reads a TagLabel operand, as used by Jmp/JmpIf/JmpIfNot
// and the label-ref half of SetCatch, returning the absolute decoder
// position to jump to.
func (d *Decoder) ReadLabelOffset() (int, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return 0, err
	}
	if Tag(tagByte) != TagLabel {
		return 0, fmt.Errorf("bytecode: expected label operand, got tag 0x%02x", tagByte)
	}
	return d.readOffset()
}

func (d *Decoder) readLiteralSeq(link Linker) ([]values.Value, error) {
	n, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	elems := make([]values.Value, n)
	for i := 0; i < n; i++ {
		op, err := d.ReadOperand(link)
		if err != nil {
			return nil, err
		}
		if op.Kind != OperandValue {
			return nil, fmt.Errorf("bytecode: register operand not permitted inside a constant literal")
		}
		elems[i] = op.Value
	}
	return elems, nil
}

func (d *Decoder) readObjectBody(link Linker) ([]string, []values.Value, error) {
	n, err := d.readVarint()
	if err != nil {
		return nil, nil, err
	}
	keys := make([]string, n)
	vals := make([]values.Value, n)
	for i := 0; i < n; i++ {
		k, err := d.readString()
		if err != nil {
			return nil, nil, err
		}
		op, err := d.ReadOperand(link)
		if err != nil {
			return nil, nil, err
		}
		if op.Kind != OperandValue {
			return nil, nil, fmt.Errorf("bytecode: register operand not permitted inside a constant literal")
		}
		keys[i] = k
		vals[i] = op.Value
	}
	return keys, vals, nil
}

// readTaggedObjectBody reads a TagObject-prefixed object literal, the
// form encodeObjectLit writes for the export table and class tables.
func (d *Decoder) readTaggedObjectBody(link Linker) ([]string, []values.Value, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return nil, nil, err
	}
	if Tag(tagByte) != TagObject {
		return nil, nil, fmt.Errorf("bytecode: expected object literal, got tag 0x%02x", tagByte)
	}
	return d.readObjectBody(link)
}

func (d *Decoder) readString() (string, error) {
	n, err := d.readVarint()
	if err != nil {
		return "", err
	}
	b, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) readBigInt() (*big.Int, error) {
	signByte, err := d.readByte()
	if err != nil {
		return nil, err
	}
	n, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	le, err := d.readBytes(n)
	if err != nil {
		return nil, err
	}
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	switch signByte {
	case 0:
		v.Neg(v)
	case 1, 2:
		// zero or positive: magnitude already correct
	default:
		return nil, fmt.Errorf("bytecode: invalid bigint sign byte %d", signByte)
	}
	return v, nil
}

// DefinitionHeader describes what kind of top-level definition begins at
// the decoder's current position, used by the VM's loader when resolving
// a Pointer for the first time.
type DefinitionHeader struct {
	Tag            Tag
	IsGenerator    bool
	MetaOffset     int // valid when HasMeta
	HasMeta        bool
	RegisterCount  int
	ParameterCount int
	// HasRestParam marks the last parameter register as a rest binding
	// (functions only; always false for TagLazy headers).
	HasRestParam bool
	BodyStart    int // decoder position of the first instruction (functions/lazy only)
}

// ReadFunctionHeader consumes a Function/GeneratorFunction/Lazy header —
// meta-flag, register-count placeholder, parameter count — leaving the
// decoder positioned at the first instruction, per §4.5's function
// prologue layout.
func (d *Decoder) ReadFunctionHeader() (DefinitionHeader, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return DefinitionHeader{}, err
	}
	h := DefinitionHeader{Tag: Tag(tagByte)}
	h.IsGenerator = h.Tag == TagGeneratorFunction

	if h.Tag == TagLazy {
		regCount, err := d.readByte()
		if err != nil {
			return DefinitionHeader{}, err
		}
		h.RegisterCount = int(regCount)
		h.BodyStart = d.pos
		return h, nil
	}

	metaFlag, err := d.readByte()
	if err != nil {
		return DefinitionHeader{}, err
	}
	if metaFlag == 1 {
		off, err := d.readOffset()
		if err != nil {
			return DefinitionHeader{}, err
		}
		h.HasMeta = true
		h.MetaOffset = off
	}
	regCount, err := d.readByte()
	if err != nil {
		return DefinitionHeader{}, err
	}
	h.RegisterCount = int(regCount)
	paramCount, err := d.readByte()
	if err != nil {
		return DefinitionHeader{}, err
	}
	h.ParameterCount = int(paramCount)
	restFlag, err := d.readByte()
	if err != nil {
		return DefinitionHeader{}, err
	}
	h.HasRestParam = restFlag == 1
	h.BodyStart = d.pos
	return h, nil
}

// ReadMeta decodes a Meta definition (just a name in this
// implementation; no content hash is stored).
func (d *Decoder) ReadMeta() (string, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return "", err
	}
	if Tag(tagByte) != TagMeta {
		return "", fmt.Errorf("bytecode: expected meta definition, got tag 0x%02x", tagByte)
	}
	return d.readString()
}

// ReadClassHeader decodes a Class definition's fixed-shape header:
// name, constructor pointer, instance prototype, static table, optional
// superclass pointer.
type ClassHeader struct {
	Name              string
	ConstructorOffset int
	InstanceProto     values.Value
	Static            values.Value
	HasSuper          bool
	SuperOffset       int
}

func (d *Decoder) ReadClassHeader(link Linker) (ClassHeader, error) {
	tagByte, err := d.readByte()
	if err != nil {
		return ClassHeader{}, err
	}
	if Tag(tagByte) != TagClass {
		return ClassHeader{}, fmt.Errorf("bytecode: expected class definition, got tag 0x%02x", tagByte)
	}
	var h ClassHeader
	if h.Name, err = d.readString(); err != nil {
		return ClassHeader{}, err
	}
	ctorTag, err := d.readByte()
	if err != nil {
		return ClassHeader{}, err
	}
	if Tag(ctorTag) != TagPointer {
		return ClassHeader{}, fmt.Errorf("bytecode: expected constructor pointer in class %q", h.Name)
	}
	if h.ConstructorOffset, err = d.readOffset(); err != nil {
		return ClassHeader{}, err
	}
	keys, vals, err := d.readTaggedObjectBody(link)
	if err != nil {
		return ClassHeader{}, err
	}
	h.InstanceProto = values.NewObjectWithProps(keys, vals)
	keys, vals, err = d.readTaggedObjectBody(link)
	if err != nil {
		return ClassHeader{}, err
	}
	h.Static = values.NewObjectWithProps(keys, vals)
	superFlag, err := d.readByte()
	if err != nil {
		return ClassHeader{}, err
	}
	if superFlag == 1 {
		superTag, err := d.readByte()
		if err != nil {
			return ClassHeader{}, err
		}
		if Tag(superTag) != TagPointer {
			return ClassHeader{}, fmt.Errorf("bytecode: expected superclass pointer in class %q", h.Name)
		}
		h.HasSuper = true
		if h.SuperOffset, err = d.readOffset(); err != nil {
			return ClassHeader{}, err
		}
	}
	return h, nil
}

// ReadExportHeader decodes the module header: export-default value,
// then the ExportStar include list and local export table, per §6.1.
func (d *Decoder) ReadExportHeader(link Linker) (defaultVal values.Value, includes []int, localKeys []string, localVals []values.Value, err error) {
	op, err := d.ReadOperand(link)
	if err != nil {
		return values.Void(), nil, nil, nil, err
	}
	if op.Kind != OperandValue {
		return values.Void(), nil, nil, nil, fmt.Errorf("bytecode: export-default must not be a bare register")
	}
	defaultVal = op.Value

	tagByte, err := d.readByte()
	if err != nil {
		return values.Void(), nil, nil, nil, err
	}
	if Tag(tagByte) != TagExportStar {
		return values.Void(), nil, nil, nil, fmt.Errorf("bytecode: expected ExportStar header, got tag 0x%02x", tagByte)
	}
	n, err := d.readVarint()
	if err != nil {
		return values.Void(), nil, nil, nil, err
	}
	includes = make([]int, n)
	for i := range includes {
		ptrTag, err := d.readByte()
		if err != nil {
			return values.Void(), nil, nil, nil, err
		}
		if Tag(ptrTag) != TagPointer {
			return values.Void(), nil, nil, nil, fmt.Errorf("bytecode: expected pointer in export-star include list")
		}
		if includes[i], err = d.readOffset(); err != nil {
			return values.Void(), nil, nil, nil, err
		}
	}
	localKeys, localVals, err = d.readTaggedObjectBody(link)
	return defaultVal, includes, localKeys, localVals, err
}

// RuntimeErrorf is a small convenience used throughout the VM's decode
// error paths to produce a spec §7 "VM hard failure" (malformed
// bytecode / decoder read past end) as a ValueScriptError.
func RuntimeErrorf(format string, args ...interface{}) *errors.RuntimeError {
	return &errors.RuntimeError{Msg: fmt.Sprintf(format, args...)}
}
