package bytecode

import (
	"math/big"
	"testing"

	"valuescript/pkg/asm"
	"valuescript/pkg/values"
)

// fakeLinker resolves pointers by re-seeking a shared decoder and
// resolving builtins out of a tiny name table, enough to exercise the
// encode/decode round trip without pulling in pkg/vm.
type fakeLinker struct {
	dec       *Decoder
	resolving map[int]bool
}

func (l *fakeLinker) ResolvePointer(offset int) (values.Value, error) {
	if l.resolving[offset] {
		return values.Void(), nil
	}
	l.resolving[offset] = true
	defer delete(l.resolving, offset)

	saved := l.dec.pos
	defer l.dec.Seek(saved)
	l.dec.Seek(offset)

	tagByte := l.dec.buf[offset]
	if Tag(tagByte) == TagFunction || Tag(tagByte) == TagGeneratorFunction {
		h, err := l.dec.ReadFunctionHeader()
		if err != nil {
			return values.Void(), err
		}
		return values.Number(float64(h.BodyStart)), nil
	}
	op, err := l.dec.ReadOperand(l)
	if err != nil {
		return values.Void(), err
	}
	return op.Value, nil
}

func (l *fakeLinker) ResolveBuiltin(code int) (values.Value, error) {
	return values.String("builtin"), nil
}

func sampleModule() *asm.Module {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}

	fn := &asm.Function{
		Parameters: []asm.Register{asm.Reg("a")},
		Body: []asm.FnLine{
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpAdd,
				Operands: []asm.Operand{asm.Reg("a"), asm.NumberLit(41)},
				Dst:      func() *asm.Register { r := asm.Reg(asm.ReturnReg); return &r }(),
			}),
			asm.InstructionLine(&asm.Instruction{Op: asm.OpEnd}),
		},
	}
	m.Add(&asm.Definition{Name: "main", Function: fn})
	m.Add(&asm.Definition{Name: "greeting", Value: asm.StringLit("hello")})

	return m
}

func builtinCode(name string) (int, bool) { return 0, true }

func TestAssembleDecodeValueRoundTrip(t *testing.T) {
	m := &asm.Module{
		ExportDefault: asm.StringLit("top"),
		ExportStarProps: &asm.ObjectLit{
			Keys:   []string{"n"},
			Values: []asm.Operand{asm.NumberLit(42)},
		},
	}
	m.Add(&asm.Definition{Name: "ignored", Value: asm.BoolLit(true)})

	out, err := Assemble(m, builtinCode)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	dec := NewDecoder(out)
	link := &fakeLinker{dec: dec, resolving: map[int]bool{}}
	def, includes, keys, vals, err := dec.ReadExportHeader(link)
	if err != nil {
		t.Fatalf("ReadExportHeader: %v", err)
	}
	if values.AsString(def) != "top" {
		t.Fatalf("export default = %v, want \"top\"", def)
	}
	if len(includes) != 0 {
		t.Fatalf("includes = %v, want none", includes)
	}
	if len(keys) != 1 || keys[0] != "n" || values.AsNumber(vals[0]) != 42 {
		t.Fatalf("local exports = %v/%v, want n=42", keys, vals)
	}
}

func TestAssembleFunctionPrologueRegisterCount(t *testing.T) {
	m := sampleModule()
	out, err := Assemble(m, builtinCode)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	dec2 := NewDecoder(out)
	// The module header (export-default value + ExportStar table) comes
	// first; "main"'s Function definition immediately follows it.
	link2 := &fakeLinker{dec: dec2, resolving: map[int]bool{}}
	if _, _, _, _, err := dec2.ReadExportHeader(link2); err != nil {
		t.Fatalf("ReadExportHeader: %v", err)
	}
	h, err := dec2.ReadFunctionHeader()
	if err != nil {
		t.Fatalf("ReadFunctionHeader: %v", err)
	}
	// return, this, ignore (implicit) + 1 parameter = 3 reserved + 1.
	if h.RegisterCount != 4 {
		t.Fatalf("RegisterCount = %d, want 4", h.RegisterCount)
	}
	if h.ParameterCount != 1 {
		t.Fatalf("ParameterCount = %d, want 1", h.ParameterCount)
	}

	opcode, err := dec2.ReadOpCode()
	if err != nil {
		t.Fatalf("ReadOpCode: %v", err)
	}
	if asm.OpCode(opcode) != asm.OpAdd {
		t.Fatalf("first opcode = %d, want OpAdd", opcode)
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("n")}
	want := new(big.Int).SetInt64(-123456789012345)
	m.Add(&asm.Definition{Name: "n", Value: asm.BigIntLit{Value: want}})

	out, err := Assemble(m, builtinCode)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	dec := NewDecoder(out)
	link := &fakeLinker{dec: dec, resolving: map[int]bool{}}
	def, _, _, _, err := dec.ReadExportHeader(link)
	if err != nil {
		t.Fatalf("ReadExportHeader: %v", err)
	}
	if values.AsBigInt(def).String() != want.String() {
		t.Fatalf("bigint round-trip = %v, want %v", values.AsBigInt(def), want)
	}
}
