package scope

import (
	"valuescript/pkg/asm"
	"valuescript/pkg/errors"
)

// expandCaptures propagates each direct capture (recorded at the
// innermost function that actually references the name) up through
// every intervening function boundary, per §4.1: if a deeply nested
// closure reads a name owned by some distant ancestor, every function
// on the nesting path between them must also capture it in order to
// thread the value down through each intermediate closure's capture
// list. Each newly-discovered intermediate capture gets its own
// register, recorded in CaptureRegisters.
func (a *Analysis) expandCaptures() {
	// NameId order, not map order: capture-register allocation must be
	// deterministic for identical source to assemble identically.
	for _, nameId := range a.sortedNameIds() {
		name := a.Names[nameId]
		if len(name.Captures) == 0 {
			continue
		}
		for _, c := range name.Captures {
			owner := c.CaptorOwner
			for owner != name.Owner {
				a.markCapture(owner, nameId)
				parent, ok := a.OwnerParent[owner]
				if !ok {
					break
				}
				owner = parent
			}
		}
	}
}

// sortedNameIds returns every NameId in allocation order; NameIds are a
// monotonic counter, so this is also source-discovery order.
func (a *Analysis) sortedNameIds() []NameId {
	ids := make([]NameId, 0, len(a.Names))
	for id := range a.Names {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

func (a *Analysis) markCapture(owner OwnerId, nameId NameId) {
	set, ok := a.Captures[owner]
	if !ok {
		set = map[NameId]bool{}
		a.Captures[owner] = set
	}
	if set[nameId] {
		return
	}
	set[nameId] = true

	regs, ok := a.CaptureRegisters[owner]
	if !ok {
		regs = map[NameId]asm.Register{}
		a.CaptureRegisters[owner] = regs
	}
	name := a.Names[nameId]
	base := "cap"
	if name != nil && name.Symbol != "" {
		base = name.Symbol
	}
	regs[nameId] = a.regAllocFor(owner).Allocate(base)
}

// expandEffectivelyConst promotes any `let` binding that is captured by
// at least one nested closure to effectively-const, per §4.1: once a
// closure has captured a register's current value, later reassigning
// the outer `let` would desynchronize the two without the VM
// re-threading the capture, so it's linted as though it had been
// written `const` to begin with.
func (a *Analysis) expandEffectivelyConst() {
	for _, nameId := range a.sortedNameIds() {
		name := a.Names[nameId]
		if name.Kind != KindLet || name.EffectivelyConst {
			continue
		}
		captured := false
		for _, set := range a.Captures {
			if set[nameId] {
				captured = true
				break
			}
		}
		if !captured {
			continue
		}
		name.EffectivelyConst = true
		a.addDiagnostic(errors.LevelLint, name.DeclPos,
			"%q is captured by a closure and never reassigned after capture; consider declaring it const", name.Symbol)
	}
}

// diagnoseConstMutations walks every recorded mutation and flags the
// ones whose target is const or effectively-const.
func (a *Analysis) diagnoseConstMutations() {
	for _, site := range a.Mutations {
		name := a.Names[site.Target]
		if name == nil || !name.EffectivelyConst {
			continue
		}
		a.addDiagnostic(errors.LevelError, site.Pos,
			"cannot assign to %q because it is a constant", name.Symbol)
	}
}

// processOptionalMutations promotes each tentative method-call mutation
// (e.g. `arr.push(x)`) into a real mutation only when the receiver
// isn't effectively const — an effectively-const receiver means every
// such call was actually a read (like `.length` or `.map`), and since
// nothing else mutates it, treating the call site as a mutation would
// just produce spurious const-mutation diagnostics. A non-const
// receiver might really be aliased through such a call, so it's folded
// into the real mutation list for downstream consumers (e.g. codegen
// deciding whether a register needs an Own() before the call).
func (a *Analysis) processOptionalMutations() {
	for _, site := range a.OptionalMutations {
		name := a.Names[site.Target]
		if name == nil || name.EffectivelyConst {
			continue
		}
		a.Mutations = append(a.Mutations, site)
		name.Mutations = append(name.Mutations, site.Pos)
	}
}

// diagnoseTDZViolations is a placeholder in the five-pass pipeline kept
// for parity with the algorithm's stage order. Unlike a span-keyed
// implementation that must defer every TDZ check to a final sweep, this
// analyzer checks each direct (same-owner) reference the moment it's
// resolved (see checkTDZ), because a captured reference's TDZ status
// can only be judged correctly at the textual position where it's
// resolved inline — by the time a final pass runs, every binding has
// long since been activated and position comparisons alone can't tell
// a deferred closure call from direct same-scope use without redoing
// the owner bookkeeping the inline check already has on hand.
func (a *Analysis) diagnoseTDZViolations() {}
