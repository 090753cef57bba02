package scope

// env is one lexical scope frame: a persistent-style linked map from
// symbol to NameId. Blocks push a new env with the same FuncOwner as
// their parent (register allocation and `var` hoisting target); a
// function/arrow/method body pushes a new env with a fresh FuncOwner.
type env struct {
	parent    *env
	FuncOwner OwnerId
	names     map[string]NameId
}

func newModuleEnv() *env {
	return &env{FuncOwner: ModuleOwner, names: map[string]NameId{}}
}

func (e *env) child() *env {
	return &env{parent: e, FuncOwner: e.FuncOwner, names: map[string]NameId{}}
}

func (e *env) childFunction(owner OwnerId) *env {
	return &env{parent: e, FuncOwner: owner, names: map[string]NameId{}}
}

func (e *env) declare(sym string, id NameId) {
	e.names[sym] = id
}

// lookup walks outward through enclosing blocks and functions, returning
// the Name bound to sym and the nearest function scope boundary is left
// for the caller to detect (by comparing e.FuncOwner as it walks).
func (e *env) lookup(sym string) (NameId, bool) {
	for s := e; s != nil; s = s.parent {
		if id, ok := s.names[sym]; ok {
			return id, true
		}
	}
	return 0, false
}

// functionScope returns the owner of the nearest enclosing function
// scope — the scope that `var` hoisting and local (non-captured)
// register allocation target. Since every env
// below a function boundary shares that function's FuncOwner, looking
// at e.FuncOwner directly already gives the right owner; this helper
// exists for readability at call sites.
func (e *env) functionScope() OwnerId { return e.FuncOwner }
