package asm

import (
	"strings"
	"testing"
)

func sampleModule() *Module {
	m := &Module{ExportDefault: Ptr("main")}

	fn := &Function{
		Parameters: []Register{Reg("a"), Reg("b")},
		Body: []FnLine{
			InstructionLine(&Instruction{
				Op:       OpAdd,
				Operands: []Operand{Reg("a"), Reg("b")},
				Dst:      regPtr(Reg("tmp0")),
			}),
			InstructionLine(&Instruction{
				Op:       OpMov,
				Operands: []Operand{TakeReg("tmp0")},
				Dst:      regPtr(Reg(ReturnReg)),
			}),
			ReleaseLine(Reg("tmp0")),
			InstructionLine(&Instruction{Op: OpEnd}),
		},
	}
	m.Add(&Definition{Name: "main", Function: fn})

	m.Add(&Definition{Name: "greeting", Value: StringLit("hello")})

	return m
}

func regPtr(r Register) *Register { return &r }

func TestPrintParseRoundTrip(t *testing.T) {
	m := sampleModule()
	text := Print(m)

	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v\n--- input ---\n%s", err, text)
	}

	again := Print(parsed)
	if normalize(text) != normalize(again) {
		t.Fatalf("round-trip mismatch:\n--- first ---\n%s\n--- second ---\n%s", text, again)
	}
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func TestInstructionString(t *testing.T) {
	ins := &Instruction{
		Op:       OpAdd,
		Operands: []Operand{Reg("x"), NumberLit(1)},
		Dst:      regPtr(Reg("y")),
	}
	want := "add %x, 1 -> %y"
	if got := ins.String(); got != want {
		t.Fatalf("Instruction.String() = %q, want %q", got, want)
	}
}

func TestTakeRegisterPrint(t *testing.T) {
	r := TakeReg("foo")
	if r.String() != "%!foo" {
		t.Fatalf("expected take-register sigil, got %q", r.String())
	}
}

func TestLookupOpCode(t *testing.T) {
	op, ok := LookupOpCode("submov")
	if !ok || op != OpSubMov {
		t.Fatalf("expected submov to resolve to OpSubMov, got %v ok=%v", op, ok)
	}
	if _, ok := LookupOpCode("not-a-real-op"); ok {
		t.Fatalf("expected unknown opcode name to fail lookup")
	}
}
