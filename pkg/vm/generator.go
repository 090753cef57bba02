package vm

import (
	"valuescript/pkg/builtins"
	"valuescript/pkg/values"
)

// generatorState is the Custom handle a GeneratorFunction call returns:
// a suspended frame stack that .next() re-enters. Each Yield persists
// the decoder position and register file here simply by leaving the
// frame in place; resumption writes the incoming value into the
// register the Yield instruction named as its destination.
type generatorState struct {
	vm      *VM
	st      *execState
	started bool
	done    bool
}

// newGenerator prepares the suspended initial state without running any
// of the body; the first .next() executes up to the first Yield.
func (vm *VM) newGenerator(fn *values.FunctionClosure, this values.Value, args []values.Value) (values.Value, error) {
	f, err := vm.newFrame(fn, this, args)
	if err != nil {
		return values.Void(), err
	}
	gen := &generatorState{
		vm: vm,
		st: &execState{frames: []*frame{f}, genMode: true},
	}
	return values.NewCustom(gen), nil
}

func (g *generatorState) TypeName() string { return "Generator" }
func (g *generatorState) Inspect() string  { return "[object Generator]" }

// Next drives the for-of protocol; resume values only flow through
// explicit .next(v) calls, which the VM routes to Resume directly.
func (g *generatorState) Next() (values.Value, error) {
	return g.Resume(values.Undefined())
}

func (g *generatorState) Resume(v values.Value) (values.Value, error) {
	if g.done || len(g.st.frames) == 0 {
		g.done = true
		return builtins.IterResult(values.Undefined(), true), nil
	}
	if g.started {
		// While suspended the stack is exactly the generator frame; the
		// pending Yield's destination receives the resume value.
		base := g.st.frames[0]
		base.set(base.yieldDst, v)
	}
	g.started = true

	val, yielded, err := g.vm.exec(g.st)
	if err != nil {
		g.done = true
		return values.Void(), err
	}
	if yielded {
		return builtins.IterResult(val, false), nil
	}
	g.done = true
	return builtins.IterResult(val, true), nil
}
