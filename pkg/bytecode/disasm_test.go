package bytecode

import (
	"bytes"
	"testing"

	"valuescript/pkg/asm"
)

func testBuiltinName(code int) (string, bool) {
	if code == 0 {
		return "GetIterator", true
	}
	return "", false
}

func testBuiltinCode(name string) (int, bool) {
	if name == "GetIterator" {
		return 0, true
	}
	return 0, false
}

// Disassembling and re-assembling must reproduce the exact byte stream
// when every definition is reachable from the export header: synthetic
// names change, but offsets, operand encodings, and patch sites cannot.
func TestDisassembleReassembleByteIdentical(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Parameters: []asm.Register{asm.Reg("n")},
		Body: []asm.FnLine{
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpMov,
				Operands: []asm.Operand{asm.NumberLit(0)},
				Dst:      regPtrTest("acc"),
			}),
			asm.LabelLine("loop"),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpLessEqual,
				Operands: []asm.Operand{asm.Reg("n"), asm.NumberLit(0)},
				Dst:      regPtrTest("done"),
			}),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpJmpIf,
				Operands: []asm.Operand{asm.Reg("done"), asm.LabelRef{Name: "out"}},
			}),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpAdd,
				Operands: []asm.Operand{asm.Reg("acc"), asm.Reg("n")},
				Dst:      regPtrTest("acc"),
			}),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpSubtract,
				Operands: []asm.Operand{asm.Reg("n"), asm.NumberLit(1)},
				Dst:      regPtrTest("n"),
			}),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpJmp,
				Operands: []asm.Operand{asm.LabelRef{Name: "loop"}},
			}),
			asm.LabelLine("out"),
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpCall,
				Operands: []asm.Operand{asm.Builtin{Name: "GetIterator"}, asm.TakeReg("acc")},
				Dst:      regPtrTest(asm.ReturnReg),
			}),
			asm.InstructionLine(&asm.Instruction{Op: asm.OpEnd}),
		},
	}})
	m.Add(&asm.Definition{Name: "greeting", Value: asm.StringLit("hi")})
	m.ExportStarProps = &asm.ObjectLit{
		Keys:   []string{"greeting"},
		Values: []asm.Operand{asm.Ptr("greeting")},
	}

	first, err := Assemble(m, testBuiltinCode)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	ir, err := Disassemble(first, testBuiltinName)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	second, err := Assemble(ir, testBuiltinCode)
	if err != nil {
		t.Fatalf("re-Assemble: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed the byte stream:\n first=%x\nsecond=%x", first, second)
	}
}

func TestDisassembleRecoversStructure(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("gen")}
	m.Add(&asm.Definition{Name: "gen", Function: &asm.Function{
		IsGenerator: true,
		Body: []asm.FnLine{
			asm.InstructionLine(&asm.Instruction{
				Op:       asm.OpYield,
				Operands: []asm.Operand{asm.NumberLit(1)},
			}),
			asm.InstructionLine(&asm.Instruction{Op: asm.OpEnd}),
		},
	}})

	buf, err := Assemble(m, testBuiltinCode)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	ir, err := Disassemble(buf, testBuiltinName)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(ir.Definitions) != 1 {
		t.Fatalf("recovered %d definitions, want 1", len(ir.Definitions))
	}
	fn := ir.Definitions[0].Function
	if fn == nil || !fn.IsGenerator {
		t.Fatalf("recovered definition is not a generator function: %+v", ir.Definitions[0])
	}
	if fn.Body[0].Instruction.Op != asm.OpYield {
		t.Fatalf("first instruction = %v, want yield", fn.Body[0].Instruction)
	}
}

func regPtrTest(name string) *asm.Register { r := asm.Reg(name); return &r }
