// Package scope implements the scope and capture analyzer: the pass
// that turns a parsed module into a complete binding table (a Name per
// declaration), a transitively-expanded capture map, per-owner register
// allocators, and the diagnostics needed to reject const-mutation and
// temporal-dead-zone violations before compilation begins.
package scope

import (
	"valuescript/pkg/asm"
	"valuescript/pkg/errors"
	"valuescript/pkg/parser"
)

// NameId identifies one binding (one declaration site) for the lifetime
// of an analysis. Unlike the Rust original, which keys names by source
// span, this implementation has real Go AST node pointers to work with
// and uses a simple monotonic counter instead.
type NameId uint64

// OwnerId identifies a scope's owning function, arrow, method, class
// constructor, or the module itself (OwnerId 0, ModuleOwner).
type OwnerId uint64

const ModuleOwner OwnerId = 0

// NameKind is the binding kind, per §3.3's Name record.
type NameKind int

const (
	KindVar NameKind = iota
	KindLet
	KindConst
	KindParam
	KindFunction
	KindClass
	KindImport
	KindBuiltin
	KindConstant
)

func (k NameKind) String() string {
	switch k {
	case KindVar:
		return "Var"
	case KindLet:
		return "Let"
	case KindConst:
		return "Const"
	case KindParam:
		return "Param"
	case KindFunction:
		return "Function"
	case KindClass:
		return "Class"
	case KindImport:
		return "Import"
	case KindBuiltin:
		return "Builtin"
	case KindConstant:
		return "Constant"
	default:
		return "Unknown"
	}
}

// Capture records that some OwnerId referenced a Name owned by an
// enclosing scope, at the given source position.
type Capture struct {
	Ref         errors.Position
	CaptorOwner OwnerId
}

// Name is one binding's complete analysis record.
type Name struct {
	Id               NameId
	Owner            OwnerId
	Symbol           string
	Kind             NameKind
	EffectivelyConst bool
	Value            asm.Operand // Register, Pointer, or Builtin
	DeclPos          errors.Position
	TDZEnd           *errors.Position
	Mutations        []errors.Position
	Captures         []Capture
}

// MutationSite records a write to a name at a position; used both for
// the direct-mutation list and, separately, for optional (method-call
// aliasing) mutations that get promoted post-hoc.
type MutationSite struct {
	Pos    errors.Position
	Target NameId
}

// Analysis is the complete output of Analyze: a Name table, reference
// resolution map, mutation lists, transitively-expanded captures, and
// one register/pointer allocator per owner.
type Analysis struct {
	Names             map[NameId]*Name
	Refs              map[*parser.Identifier]NameId
	Mutations         []MutationSite
	OptionalMutations []MutationSite
	Captures          map[OwnerId]map[NameId]bool
	CaptureRegisters  map[OwnerId]map[NameId]asm.Register
	RegAllocators     map[OwnerId]*RegAllocator
	Pointers          *PointerAllocator
	FunctionOwners    map[parser.Node]OwnerId
	// FunctionOwnerByName maps a named function declaration's binding to
	// the owner of its body, so a reference to the name can recover the
	// function's capture set (a captured named function needs the same
	// Bind a closure literal gets).
	FunctionOwnerByName map[NameId]OwnerId
	// OwnerParent maps a function/arrow/method owner to the owner of its
	// lexically enclosing function (or ModuleOwner), used to walk the
	// nesting chain during transitive capture expansion.
	OwnerParent map[OwnerId]OwnerId
	Diagnostics []*errors.Diagnostic

	nextName  NameId
	nextOwner OwnerId
	// activated tracks, during the resolution walk, which let/const/class
	// bindings have reached their own declaration statement yet — used
	// only to detect direct (same-owner, non-deferred) TDZ violations.
	activated map[NameId]bool
}

func newAnalysis() *Analysis {
	return &Analysis{
		Names:               map[NameId]*Name{},
		Refs:                map[*parser.Identifier]NameId{},
		Captures:            map[OwnerId]map[NameId]bool{},
		CaptureRegisters:    map[OwnerId]map[NameId]asm.Register{},
		RegAllocators:       map[OwnerId]*RegAllocator{},
		Pointers:            &PointerAllocator{},
		FunctionOwners:      map[parser.Node]OwnerId{},
		FunctionOwnerByName: map[NameId]OwnerId{},
		OwnerParent:         map[OwnerId]OwnerId{},
		nextOwner:           1, // 0 is ModuleOwner
	}
}

func (a *Analysis) newOwner() OwnerId {
	id := a.nextOwner
	a.nextOwner++
	return id
}

// newChildOwner allocates a fresh owner and records its lexical parent,
// so expandCaptures can walk the nesting chain later.
func (a *Analysis) newChildOwner(parent OwnerId) OwnerId {
	id := a.newOwner()
	a.OwnerParent[id] = parent
	return id
}

func (a *Analysis) newNameId() NameId {
	a.nextName++
	return a.nextName
}

// NewTemp hands the compiler a fresh compiler-only temporary register
// for owner, drawn from the same allocator used during hoisting so
// numbering never collides with a named binding's register.
func (a *Analysis) NewTemp(owner OwnerId) asm.Register {
	return a.regAllocFor(owner).AllocateNumbered("tmp")
}

func (a *Analysis) regAllocFor(owner OwnerId) *RegAllocator {
	r, ok := a.RegAllocators[owner]
	if !ok {
		r = &RegAllocator{}
		a.RegAllocators[owner] = r
	}
	return r
}

// Lookup resolves an identifier reference (as visited during Analyze)
// to its Name.
func (a *Analysis) Lookup(id *parser.Identifier) (*Name, bool) {
	nameId, ok := a.Refs[id]
	if !ok {
		return nil, false
	}
	n, ok := a.Names[nameId]
	return n, ok
}

func (a *Analysis) addDiagnostic(level errors.DiagnosticLevel, pos errors.Position, format string, args ...interface{}) {
	a.Diagnostics = append(a.Diagnostics, errors.NewDiagnostic(pos, level, format, args...))
}
