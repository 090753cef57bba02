package asm

// OpCode enumerates the instruction set from §4.6, plus the operator
// family (`Op*`) spelled out individually since Go has no operand-based
// opcode overloading. Arithmetic "Sub" (subtraction) and the property-
// read "Sub" op share a name in the prose spec; they're disambiguated
// here as OpSubtract and OpSub respectively.
type OpCode int

const (
	OpEnd OpCode = iota
	OpMov

	// Arithmetic / logical / bitwise operators.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpRemainder
	OpExponent
	OpNegate
	OpNot
	OpEqual
	OpNotEqual
	OpStrictEqual
	OpStrictNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShiftLeft
	OpShiftRight
	OpShiftRightUnsigned
	OpTypeof
	OpInstanceof
	OpIn

	// Property access.
	OpSub    // property read: V,V -> R
	OpSubMov // in-place subscript write: V_key, V_val -> R_target

	// Calls.
	OpSubCall
	OpConstSubCall
	OpThisSubCall
	OpRequireMutableThis
	OpCall
	OpApply
	OpBind
	OpNew

	// Control flow.
	OpJmp
	OpJmpIf
	OpJmpIfNot
	OpThrow
	OpSetCatch
	OpUnsetCatch

	// Iteration.
	OpNext
	OpUnpackIterRes
	OpCat

	// Generators.
	OpYield
	OpYieldStar

	// Modules.
	OpImport
	OpImportStar

	// Construction helpers (not in the prose table but needed to build
	// Array/Object values at runtime from a sequence of elements).
	OpMakeArray
	OpMakeObject
)

var opNames = map[OpCode]string{
	OpEnd: "end", OpMov: "mov",
	OpAdd: "add", OpSubtract: "subtract", OpMultiply: "multiply", OpDivide: "divide",
	OpRemainder: "remainder", OpExponent: "exponent", OpNegate: "negate", OpNot: "not",
	OpEqual: "eq", OpNotEqual: "ne", OpStrictEqual: "eq3", OpStrictNotEqual: "ne3",
	OpLess: "lt", OpLessEqual: "lte", OpGreater: "gt", OpGreaterEqual: "gte",
	OpBitAnd: "bitand", OpBitOr: "bitor", OpBitXor: "bitxor", OpBitNot: "bitnot",
	OpShiftLeft: "shl", OpShiftRight: "shr", OpShiftRightUnsigned: "ushr",
	OpTypeof: "typeof", OpInstanceof: "instanceof", OpIn: "in",
	OpSub: "sub", OpSubMov: "submov",
	OpSubCall: "subcall", OpConstSubCall: "constsubcall", OpThisSubCall: "thissubcall",
	OpRequireMutableThis: "requiremutablethis",
	OpCall:               "call", OpApply: "apply", OpBind: "bind", OpNew: "new",
	OpJmp: "jmp", OpJmpIf: "jmpif", OpJmpIfNot: "jmpifnot",
	OpThrow: "throw", OpSetCatch: "setcatch", OpUnsetCatch: "unsetcatch",
	OpNext: "next", OpUnpackIterRes: "unpackiterres", OpCat: "cat",
	OpYield: "yield", OpYieldStar: "yieldstar",
	OpImport: "import", OpImportStar: "importstar",
	OpMakeArray: "makearray", OpMakeObject: "makeobject",
}

func (o OpCode) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

var opByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

func LookupOpCode(name string) (OpCode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Instruction is one bytecode-producing line: an opcode, its input
// operands in source order, and an optional destination register
// (nil for ops with no result, e.g. Throw/Jmp/SetCatch).
type Instruction struct {
	Op       OpCode
	Operands []Operand
	Dst      *Register
}

func (i *Instruction) String() string {
	s := i.Op.String()
	for idx, o := range i.Operands {
		if idx == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += o.String()
	}
	if i.Dst != nil {
		s += " -> " + i.Dst.String()
	}
	return s
}

// LineKind discriminates the FnLine union from §4.2.
type LineKind int

const (
	LineInstruction LineKind = iota
	LineLabel
	LineRelease
	LineComment
	LineEmpty
)

// FnLine is one line of a Function's body. Release lines record that a
// register's binding has gone out of scope; register numbers are never
// physically reused by the compiler so that later passes (and the
// printed IR) retain exact liveness information, per §4.2's register
// allocation policy.
type FnLine struct {
	Kind        LineKind
	Instruction *Instruction
	Label       string
	Release     Register
	Comment     string
}

func InstructionLine(ins *Instruction) FnLine { return FnLine{Kind: LineInstruction, Instruction: ins} }
func LabelLine(name string) FnLine            { return FnLine{Kind: LineLabel, Label: name} }
func ReleaseLine(r Register) FnLine           { return FnLine{Kind: LineRelease, Release: r} }
func CommentLine(text string) FnLine          { return FnLine{Kind: LineComment, Comment: text} }
func EmptyLine() FnLine                       { return FnLine{Kind: LineEmpty} }

// Function is one compiled function-like (function, arrow, constructor,
// or generator body). Parameters occupy the register window right after
// the reserved return/this slots, in declaration order, including any
// capture-parameters a closure's Bind prepends.
type Function struct {
	Name        string
	Parameters  []Register
	Body        []FnLine
	IsGenerator bool
	// HasRestParam marks the last entry of Parameters as a rest binding:
	// the VM collects every argument beyond the non-rest parameter count
	// into a new array and stores it there, instead of binding it 1:1.
	HasRestParam bool
	// Meta, if non-nil, names a Meta definition carrying the function's
	// declared source name for stack traces / toString, per the
	// function-prologue "meta-flag (0|1 + optional Pointer)" encoding.
	Meta *Pointer
}

// ClassDef is a Class top-level definition: a constructor function plus
// instance and static member tables. Per §3.2/§4.3, classes compile
// their member initializers into the constructor's prologue and their
// methods into the instance prototype object.
type ClassDef struct {
	Name              string
	Constructor       Pointer
	InstancePrototype ObjectLit
	Static            ObjectLit
	SuperClass        *Pointer
}

// MetaDef carries debug metadata (currently just the declared name) for
// a Function or ClassDef, referenced by a function's Meta pointer.
type MetaDef struct {
	Name string
}

// LazyDef is the body of an import binding: a tiny function, evaluated
// once and memoized by the VM, that performs the module load and
// (for named imports) a Sub to pick one export out of the namespace.
type LazyDef struct {
	Body []FnLine
}

// Definition is one top-level, pointer-addressable module member.
// Exactly one of the payload fields is non-nil.
type Definition struct {
	Name     string
	Function *Function
	Class    *ClassDef
	Meta     *MetaDef
	Lazy     *LazyDef
	Value    Operand // leaf constant (string, number, object literal, ...)
}

// Module is the top-level Assembly IR unit produced by the module
// compiler: one default export value, the namespace-export object
// (possibly re-exporting other modules via ExportStarIncludes), and the
// ordered list of pointer-addressable definitions.
type Module struct {
	ExportDefault      Operand
	ExportStarIncludes []Pointer
	ExportStarProps    *ObjectLit
	Definitions        []*Definition
}

func (m *Module) Lookup(name string) *Definition {
	for _, d := range m.Definitions {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func (m *Module) Add(d *Definition) { m.Definitions = append(m.Definitions, d) }
