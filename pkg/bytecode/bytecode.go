// Package bytecode implements the two-pass IR-to-bytecode assembler and
// the random-access decoder that reads it back, per spec §4.5/§4.6/§6.1.
// It knows nothing about control flow or value semantics; it is purely a
// byte-level codec between pkg/asm's Assembly IR and the tagged byte
// stream pkg/vm executes.
package bytecode

// Tag is the on-the-wire ValueType discriminant from spec §4.5. Most
// values match the prose table exactly; TagLabel is an addition of this
// implementation (see DESIGN.md's pkg/bytecode entry) used to keep every
// instruction operand — including jump targets — behind a uniform
// tag-prefixed encoding instead of mixing tagged and raw operand forms.
type Tag uint8

const (
	TagEnd Tag = iota
	TagVoid
	TagUndefined
	TagNull
	TagFalse
	TagTrue
	TagSignedByte
	TagNumber
	TagString
	TagArray
	TagObject
	TagFunction
	_ // 0x0c reserved (Instance, per original_source)
	TagPointer
	TagRegister
	TagTakeRegister
	TagBuiltin
	TagClass
	TagLazy
	TagBigInt
	TagGeneratorFunction
	TagExportStar
	TagMeta
	TagLabel // this implementation's addition: a raw 2-byte absolute jump offset
)

// IgnoreRegisterIndex is the reserved index meaning "discard this write",
// per spec §3.2's `ignore` (0xFF).
const IgnoreRegisterIndex byte = 0xFF

// ReturnRegisterIndex and ThisRegisterIndex are the two reserved register
// slots every frame's window begins with, per spec §3.2/§4.6: index 0
// holds the function's result (initialized to Undefined on entry, read by
// the caller on End), index 1 holds `this` (and can be reassigned, e.g.
// the constructor-call convention that writes the newly allocated
// instance back into it). FirstUserRegister is where parameters and
// body temporaries begin.
const (
	ReturnRegisterIndex = 0
	ThisRegisterIndex   = 1
	FirstUserRegister   = 2

	returnRegisterIndex = ReturnRegisterIndex
	thisRegisterIndex   = ThisRegisterIndex
	firstUserRegister   = FirstUserRegister
)
