package vm

import (
	"math/big"
	"testing"

	"valuescript/pkg/asm"
	"valuescript/pkg/builtins"
	"valuescript/pkg/bytecode"
	"valuescript/pkg/values"
)

func bigInt(n int64) *big.Int { return big.NewInt(n) }

func reg(name string) *asm.Register { r := asm.Reg(name); return &r }

func ins(op asm.OpCode, dst *asm.Register, operands ...asm.Operand) asm.FnLine {
	return asm.InstructionLine(&asm.Instruction{Op: op, Operands: operands, Dst: dst})
}

func end() asm.FnLine { return asm.InstructionLine(&asm.Instruction{Op: asm.OpEnd}) }

func mustAssemble(t *testing.T, m *asm.Module) []byte {
	t.Helper()
	buf, err := bytecode.Assemble(m, builtins.Code)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return buf
}

// runDefault loads the module, evaluates its default export, and calls
// it with args when callable.
func runDefault(t *testing.T, m *asm.Module, args ...values.Value) (values.Value, error) {
	t.Helper()
	machine := New(mustAssemble(t, m), nil)
	def, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !def.IsCallable() {
		return def, nil
	}
	return machine.Call(def, values.Undefined(), args)
}

func TestCallAndArithmetic(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Parameters: []asm.Register{asm.Reg("a")},
		Body: []asm.FnLine{
			ins(asm.OpAdd, reg(asm.ReturnReg), asm.Reg("a"), asm.NumberLit(41)),
			end(),
		},
	}})

	got, err := runDefault(t, m, values.Number(1))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if values.AsNumber(got) != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

// An alias taken before a subscript write must keep observing the
// original elements: the mutation splits the copy-on-write share.
func TestSubMovDoesNotAffectAlias(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("a"), asm.NumberLit(1), asm.NumberLit(2), asm.NumberLit(3)),
			ins(asm.OpMov, reg("b"), asm.Reg("a")),
			ins(asm.OpSubMov, reg("a"), asm.NumberLit(0), asm.NumberLit(9)),
			ins(asm.OpSub, reg("first_a"), asm.Reg("a"), asm.NumberLit(0)),
			ins(asm.OpSub, reg("first_b"), asm.Reg("b"), asm.NumberLit(0)),
			ins(asm.OpMakeArray, reg(asm.ReturnReg), asm.Reg("first_a"), asm.Reg("first_b")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 9 || values.AsNumber(elements[1]) != 1 {
		t.Fatalf("got [%v, %v], want [9, 1]", elements[0], elements[1])
	}
}

// A take operand moves: the source register is left holding Void
// (typeof reads "undefined") and the destination holds the value.
func TestTakeOperandMoves(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("a"), asm.NumberLit(7)),
			ins(asm.OpMov, reg("b"), asm.TakeReg("a")),
			ins(asm.OpTypeof, reg("gone"), asm.Reg("a")),
			ins(asm.OpSub, reg("kept"), asm.Reg("b"), asm.NumberLit(0)),
			ins(asm.OpMakeArray, reg(asm.ReturnReg), asm.Reg("gone"), asm.Reg("kept")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	elements := values.AsArray(got).Elements
	if values.AsString(elements[0]) != "undefined" {
		t.Fatalf("moved-from register reads as %v, want undefined", elements[0])
	}
	if values.AsNumber(elements[1]) != 7 {
		t.Fatalf("moved value = %v, want 7", elements[1])
	}
}

func TestThrowReachesCatch(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpSetCatch, nil, asm.LabelRef{Name: "handler"}),
			ins(asm.OpMov, reg(asm.ReturnReg), asm.StringLit("e")),
			ins(asm.OpThrow, nil),
			ins(asm.OpMov, reg(asm.ReturnReg), asm.StringLit("unreachable")),
			asm.LabelLine("handler"),
			// The thrown value arrives in the return slot; leave it there.
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if values.AsString(got) != "e" {
		t.Fatalf("got %v, want \"e\"", got)
	}
}

func TestUncaughtThrowUnwindsThroughFrames(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "thrower", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMov, reg(asm.ReturnReg), asm.StringLit("boom")),
			ins(asm.OpThrow, nil),
			end(),
		},
	}})
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpSetCatch, nil, asm.LabelRef{Name: "handler"}),
			ins(asm.OpCall, reg("r"), asm.Ptr("thrower")),
			ins(asm.OpUnsetCatch, nil),
			asm.LabelLine("handler"),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if values.AsString(got) != "boom" {
		t.Fatalf("got %v, want \"boom\"", got)
	}
}

func TestIteratorProtocol(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("arr"), asm.NumberLit(10), asm.NumberLit(20)),
			ins(asm.OpCall, reg("it"), asm.Builtin{Name: "GetIterator"}, asm.Reg("arr")),
			ins(asm.OpNext, reg("res"), asm.Reg("it")),
			ins(asm.OpUnpackIterRes, reg("done"), asm.Reg("res"), asm.Reg("val")),
			ins(asm.OpMakeArray, reg(asm.ReturnReg), asm.Reg("val"), asm.Reg("done")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 10 {
		t.Fatalf("first value = %v, want 10", elements[0])
	}
	if elements[1].Truthy() {
		t.Fatalf("done after one step of a two-element array")
	}
}

func TestBindClosure(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("make")}
	m.Add(&asm.Definition{Name: "adder", Function: &asm.Function{
		Parameters: []asm.Register{asm.Reg("captured"), asm.Reg("n")},
		Body: []asm.FnLine{
			ins(asm.OpAdd, reg(asm.ReturnReg), asm.Reg("captured"), asm.Reg("n")),
			end(),
		},
	}})
	m.Add(&asm.Definition{Name: "make", Function: &asm.Function{
		Parameters: []asm.Register{asm.Reg("x")},
		Body: []asm.FnLine{
			ins(asm.OpBind, reg(asm.ReturnReg), asm.Ptr("adder"), asm.Reg("x")),
			end(),
		},
	}})

	machine := New(mustAssemble(t, m), nil)
	def, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	closure, err := machine.Call(def, values.Undefined(), []values.Value{values.Number(40)})
	if err != nil {
		t.Fatalf("make(40): %v", err)
	}
	got, err := machine.Call(closure, values.Undefined(), []values.Value{values.Number(2)})
	if err != nil {
		t.Fatalf("closure(2): %v", err)
	}
	if values.AsNumber(got) != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestMutatingMethodWritesBackThroughRegister(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("a"), asm.NumberLit(1)),
			ins(asm.OpMov, reg("alias"), asm.Reg("a")),
			ins(asm.OpThisSubCall, reg("len"), asm.Reg("a"), asm.StringLit("push"), asm.NumberLit(2)),
			ins(asm.OpSub, reg("own_len"), asm.Reg("a"), asm.StringLit("length")),
			ins(asm.OpSub, reg("alias_len"), asm.Reg("alias"), asm.StringLit("length")),
			ins(asm.OpMakeArray, reg(asm.ReturnReg), asm.Reg("own_len"), asm.Reg("alias_len")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	elements := values.AsArray(got).Elements
	if values.AsNumber(elements[0]) != 2 {
		t.Fatalf("receiver length = %v, want 2 after push", elements[0])
	}
	if values.AsNumber(elements[1]) != 1 {
		t.Fatalf("alias length = %v, want 1 (push must not leak through the share)", elements[1])
	}
}

func TestConstSubCallRefusesMutation(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("a"), asm.NumberLit(1)),
			ins(asm.OpConstSubCall, reg("r"), asm.Reg("a"), asm.StringLit("push"), asm.NumberLit(2)),
			end(),
		},
	}})

	_, err := runDefault(t, m)
	if err == nil {
		t.Fatal("expected a TypeError for push through a const receiver")
	}
}

func TestGeneratorYieldSequence(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("gen")}
	m.Add(&asm.Definition{Name: "gen", Function: &asm.Function{
		IsGenerator: true,
		Body: []asm.FnLine{
			ins(asm.OpYield, nil, asm.NumberLit(1)),
			ins(asm.OpYield, nil, asm.NumberLit(2)),
			ins(asm.OpMov, reg(asm.ReturnReg), asm.NumberLit(3)),
			end(),
		},
	}})

	machine := New(mustAssemble(t, m), nil)
	def, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	genVal, err := machine.Call(def, values.Undefined(), nil)
	if err != nil {
		t.Fatalf("gen(): %v", err)
	}
	it, ok := values.AsCustom(genVal).(values.Iterator)
	if !ok {
		t.Fatalf("generator call produced %v, want an iterator", genVal)
	}

	expect := func(wantVal float64, wantDone bool) {
		t.Helper()
		res, err := it.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		obj := values.AsObject(res)
		v, _ := obj.Get("value")
		d, _ := obj.Get("done")
		if values.AsNumber(v) != wantVal || d.Truthy() != wantDone {
			t.Fatalf("next = {%v, %v}, want {%v, %v}", v, d, wantVal, wantDone)
		}
	}
	expect(1, false)
	expect(2, false)
	expect(3, true)
}

func TestYieldStarDelegates(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("outer")}
	m.Add(&asm.Definition{Name: "outer", Function: &asm.Function{
		IsGenerator: true,
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("xs"), asm.NumberLit(1), asm.NumberLit(2)),
			ins(asm.OpYieldStar, nil, asm.Reg("xs")),
			ins(asm.OpYield, nil, asm.NumberLit(3)),
			end(),
		},
	}})

	machine := New(mustAssemble(t, m), nil)
	def, err := machine.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	genVal, err := machine.Call(def, values.Undefined(), nil)
	if err != nil {
		t.Fatalf("outer(): %v", err)
	}
	it := values.AsCustom(genVal).(values.Iterator)

	var seen []float64
	for {
		res, err := it.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		obj := values.AsObject(res)
		d, _ := obj.Get("done")
		if d.Truthy() {
			break
		}
		v, _ := obj.Get("value")
		seen = append(seen, values.AsNumber(v))
	}
	want := []float64{1, 2, 3}
	if len(seen) != len(want) {
		t.Fatalf("yielded %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("yielded %v, want %v", seen, want)
		}
	}
}

func TestNewRunsConstructorAndPrototypeMethods(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "Point_ctor", Function: &asm.Function{
		Parameters: []asm.Register{asm.Reg("x")},
		Body: []asm.FnLine{
			ins(asm.OpSubMov, reg(asm.ThisReg), asm.StringLit("x"), asm.Reg("x")),
			end(),
		},
	}})
	m.Add(&asm.Definition{Name: "Point_getX", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpSub, reg(asm.ReturnReg), asm.Reg(asm.ThisReg), asm.StringLit("x")),
			end(),
		},
	}})
	m.Add(&asm.Definition{Name: "Point", Class: &asm.ClassDef{
		Name:        "Point",
		Constructor: asm.Ptr("Point_ctor"),
		InstancePrototype: asm.ObjectLit{
			Keys:   []string{"getX"},
			Values: []asm.Operand{asm.Ptr("Point_getX")},
		},
	}})
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpNew, reg("p"), asm.Ptr("Point"), asm.NumberLit(5)),
			ins(asm.OpThisSubCall, reg(asm.ReturnReg), asm.Reg("p"), asm.StringLit("getX")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if values.AsNumber(got) != 5 {
		t.Fatalf("got %v, want 5", got)
	}
}

func TestStructuralStrictEquality(t *testing.T) {
	m := &asm.Module{ExportDefault: asm.Ptr("main")}
	m.Add(&asm.Definition{Name: "main", Function: &asm.Function{
		Body: []asm.FnLine{
			ins(asm.OpMakeArray, reg("a"), asm.NumberLit(1), asm.NumberLit(2)),
			ins(asm.OpMakeArray, reg("b"), asm.NumberLit(1), asm.NumberLit(2)),
			ins(asm.OpStrictEqual, reg(asm.ReturnReg), asm.Reg("a"), asm.Reg("b")),
			end(),
		},
	}})

	got, err := runDefault(t, m)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !values.AsBool(got) {
		t.Fatal("structurally equal arrays must compare === true")
	}
}

func TestBigIntMixRejected(t *testing.T) {
	a, err := binaryOp(asm.OpAdd, values.BigInt(bigInt(1)), values.Number(2))
	if err == nil {
		t.Fatalf("1n + 2 = %v, want TypeError", a)
	}
	if _, ok := err.(*values.Thrown); !ok {
		t.Fatalf("error %v is not a thrown value", err)
	}
}

func TestBigIntUnsignedShiftRejected(t *testing.T) {
	_, err := binaryOp(asm.OpShiftRightUnsigned, values.BigInt(bigInt(8)), values.BigInt(bigInt(1)))
	if err == nil {
		t.Fatal("BigInt >>> must be a TypeError")
	}
}
