package compiler

import (
	"github.com/bits-and-blooms/bitset"

	"valuescript/pkg/asm"
)

// annotateReleases appends a Release line after the last textual use of
// each body register, per §4.2's allocation policy: registers are never
// renumbered or physically reused, so the Release annotations are how
// downstream passes (and the printed IR) see accurate liveness. The
// assembler skips them — they are not part of the executable stream —
// so last-textual-use is a safe approximation even across loop
// back-edges.
//
// Reserved registers and declared parameters are never released; only
// body-allocated registers (temporaries and local bindings) are.
func annotateReleases(fn *asm.Function) {
	index := map[string]uint{}
	var names []string
	idxOf := func(name string) (uint, bool) {
		if name == asm.ReturnReg || name == asm.ThisReg || name == asm.IgnoreReg {
			return 0, false
		}
		if i, ok := index[name]; ok {
			return i, true
		}
		i := uint(len(names))
		index[name] = i
		names = append(names, name)
		return i, true
	}

	params := bitset.New(uint(len(fn.Parameters)) + 1)
	for _, p := range fn.Parameters {
		if i, ok := idxOf(p.Name); ok {
			params.Set(i)
		}
	}

	lastUse := map[uint]int{}
	for lineNo, line := range fn.Body {
		if line.Kind != asm.LineInstruction {
			continue
		}
		forEachRegister(line.Instruction, func(name string) {
			if i, ok := idxOf(name); ok && !params.Test(i) {
				lastUse[i] = lineNo
			}
		})
	}
	if len(lastUse) == 0 {
		return
	}

	releaseAt := map[int][]uint{}
	for reg, lineNo := range lastUse {
		releaseAt[lineNo] = append(releaseAt[lineNo], reg)
	}

	released := bitset.New(uint(len(names)))
	out := make([]asm.FnLine, 0, len(fn.Body)+len(lastUse))
	for lineNo, line := range fn.Body {
		out = append(out, line)
		regs := releaseAt[lineNo]
		// Deterministic order within one line: first-allocation order.
		for _, i := range sortedUints(regs) {
			if released.Test(i) {
				continue
			}
			released.Set(i)
			out = append(out, asm.ReleaseLine(asm.Reg(names[i])))
		}
	}
	fn.Body = out
}

func forEachRegister(ins *asm.Instruction, visit func(name string)) {
	for _, op := range ins.Operands {
		if r, ok := op.(asm.Register); ok {
			visit(r.Name)
		}
	}
	if ins.Dst != nil {
		visit(ins.Dst.Name)
	}
}

func sortedUints(xs []uint) []uint {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
	return xs
}
