package scope

import (
	"fmt"

	"valuescript/pkg/asm"
)

// RegAllocator hands out unique register names within one owner's
// function body. allocate(name) and allocate_numbered(prefix) mirror
// §4.2's register allocation policy: named bindings get their own
// source name (disambiguated on collision), temporaries get a counted
// prefix. Registers are never reused by number here — that's the
// compiler's job once liveness is known; this allocator only needs to
// hand out distinct names.
type RegAllocator struct {
	used    map[string]int
	counter int
}

// Allocate returns the canonical register for a named binding (a
// variable, parameter, or capture), disambiguating against any
// previous allocation under the same base name (which happens when two
// nested blocks each declare their own `x`).
func (a *RegAllocator) Allocate(baseName string) asm.Register {
	if a.used == nil {
		a.used = map[string]int{}
	}
	n := a.used[baseName]
	a.used[baseName] = n + 1
	name := baseName
	if n > 0 {
		name = fmt.Sprintf("%s_%d", baseName, n)
	}
	return asm.Reg(name)
}

// AllocateNumbered returns a fresh compiler-only temporary, used by the
// function compiler (not the scope analyzer itself) for intermediate
// values that have no source-level name.
func (a *RegAllocator) AllocateNumbered(prefix string) asm.Register {
	r := asm.Reg(fmt.Sprintf("%s%d", prefix, a.counter))
	a.counter++
	return r
}

// PointerAllocator hands out unique definition names for module-level
// pointer-addressable values: compiled functions, classes, and lazy
// import bindings.
type PointerAllocator struct {
	used map[string]int
}

func (a *PointerAllocator) Allocate(baseName string) asm.Pointer {
	if a.used == nil {
		a.used = map[string]int{}
	}
	if baseName == "" {
		baseName = "anonymous"
	}
	n := a.used[baseName]
	a.used[baseName] = n + 1
	name := baseName
	if n > 0 {
		name = fmt.Sprintf("%s_%d", baseName, n)
	}
	return asm.Ptr(name)
}
