package values

// ArrayBody is the shared, potentially-aliased backing store for an
// Array value. refs starts at 1 (the value that created it); see the
// package doc comment for the increment-only discipline.
type ArrayBody struct {
	refs     int
	Elements []Value
}

func NewArray(elements []Value) Value {
	return Value{Type: TypeArray, obj: &ArrayBody{refs: 1, Elements: elements}}
}

// NewArrayFromBody wraps an already-owned ArrayBody (e.g. one returned by
// Own after a copy-on-write split) as a Value without re-allocating it.
func NewArrayFromBody(a *ArrayBody) Value { return Value{Type: TypeArray, obj: a} }

// IsUnique reports whether this body has never been duplicated, i.e.
// whether it's safe to mutate it in place without affecting any alias.
func (a *ArrayBody) IsUnique() bool { return a.refs <= 1 }

// Clone makes an independent copy whose own refs starts fresh at 1; the
// elements themselves are retained since they're now referenced from two
// bodies (the original and the clone) rather than one.
func (a *ArrayBody) Clone() *ArrayBody {
	elements := make([]Value, len(a.Elements))
	copy(elements, a.Elements)
	RetainAll(elements)
	return &ArrayBody{refs: 1, Elements: elements}
}

// Own returns a body safe to mutate in place: itself if unique, or a
// fresh clone otherwise. Callers performing an in-place array mutation
// (push, splice, index assignment) should call this first and use the
// returned body, storing it back wherever the original handle lived if
// a clone was made.
func (a *ArrayBody) Own() *ArrayBody {
	if a.IsUnique() {
		return a
	}
	return a.Clone()
}

// ObjectBody is the shared backing store for an Object value: an
// insertion-ordered list of string-keyed properties plus an optional
// prototype link used for class instances. Symbol-keyed properties are
// stored separately since the only symbol in scope (Symbol.iterator)
// never needs insertion-order interleaving with string keys.
type ObjectBody struct {
	refs    int
	Keys    []string
	Vals    []Value
	index   map[string]int
	Symbols map[SymbolID]Value
	// Proto, when non-nil, is the class instance prototype this object
	// was constructed from; property reads fall back to it.
	Proto *ObjectBody
	// ClassName labels instances created via `new`, purely for
	// diagnostics/inspection (`[object Foo]`).
	ClassName string
}

func NewObject() Value {
	return Value{Type: TypeObject, obj: &ObjectBody{refs: 1}}
}

func NewObjectWithProps(keys []string, vals []Value) Value {
	o := &ObjectBody{refs: 1, Keys: keys, Vals: vals}
	o.reindex()
	return Value{Type: TypeObject, obj: o}
}

// NewObjectFromBody wraps an already-constructed ObjectBody (e.g. one
// returned by ClassBody.NewInstance, which sets Proto/ClassName fields
// NewObjectWithProps has no parameters for) as a Value.
func NewObjectFromBody(o *ObjectBody) Value { return Value{Type: TypeObject, obj: o} }

func (o *ObjectBody) reindex() {
	o.index = make(map[string]int, len(o.Keys))
	for i, k := range o.Keys {
		o.index[k] = i
	}
}

func (o *ObjectBody) IsUnique() bool { return o.refs <= 1 }

func (o *ObjectBody) Clone() *ObjectBody {
	keys := make([]string, len(o.Keys))
	copy(keys, o.Keys)
	vals := make([]Value, len(o.Vals))
	copy(vals, o.Vals)
	RetainAll(vals)
	var symbols map[SymbolID]Value
	if len(o.Symbols) > 0 {
		symbols = make(map[SymbolID]Value, len(o.Symbols))
		for k, v := range o.Symbols {
			symbols[k] = Retain(v)
		}
	}
	clone := &ObjectBody{refs: 1, Keys: keys, Vals: vals, Symbols: symbols, Proto: o.Proto, ClassName: o.ClassName}
	clone.reindex()
	return clone
}

func (o *ObjectBody) Own() *ObjectBody {
	if o.IsUnique() {
		return o
	}
	return o.Clone()
}

// Get looks up a string-keyed property, falling back to the prototype
// chain (used only for class-instance methods, never for plain object
// literals, which have no Proto).
func (o *ObjectBody) Get(key string) (Value, bool) {
	if i, ok := o.index[key]; ok {
		return o.Vals[i], true
	}
	if o.Proto != nil {
		return o.Proto.Get(key)
	}
	return Undefined(), false
}

// Set assigns a string-keyed property on a body the caller has already
// confirmed is uniquely owned (via Own). New keys are appended,
// preserving insertion order per the data model.
func (o *ObjectBody) Set(key string, val Value) {
	if i, ok := o.index[key]; ok {
		o.Vals[i] = val
		return
	}
	if o.index == nil {
		o.index = make(map[string]int)
	}
	o.index[key] = len(o.Keys)
	o.Keys = append(o.Keys, key)
	o.Vals = append(o.Vals, val)
}

// Delete removes a string-keyed property, shifting later keys down by
// one to preserve insertion order.
func (o *ObjectBody) Delete(key string) bool {
	i, ok := o.index[key]
	if !ok {
		return false
	}
	o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
	o.Vals = append(o.Vals[:i], o.Vals[i+1:]...)
	o.reindex()
	return true
}

func (o *ObjectBody) GetSymbol(id SymbolID) (Value, bool) {
	v, ok := o.Symbols[id]
	if !ok && o.Proto != nil {
		return o.Proto.GetSymbol(id)
	}
	return v, ok
}

func (o *ObjectBody) SetSymbol(id SymbolID, val Value) {
	if o.Symbols == nil {
		o.Symbols = make(map[SymbolID]Value)
	}
	o.Symbols[id] = val
}

// FunctionClosure is the runtime representation of a compiled function
// value: a pointer into the module's bytecode plus the captured
// environment. Closures are themselves value-semantic handles (captured
// registers are copied into Captures at closure-creation time per the
// take-operand optimization in the compiler), so FunctionClosure bodies
// are immutable after construction and refs exists only to decide
// whether a capture slot needs cloning — which never happens, since
// nothing in ValueScript source can mutate a function's captured
// environment from outside. refs is still tracked for uniformity with
// the other handle kinds and so Retain/IsUnique stay total functions.
type FunctionClosure struct {
	refs int

	Name string
	// Entry is the absolute bytecode offset of the function's first
	// instruction, resolved by the assembler/loader from the function's
	// asm.Pointer at link time.
	Entry int
	// ParameterCount excludes `this` and the rest parameter, if any.
	ParameterCount int
	HasRestParam   bool
	RegisterCount  int
	IsGenerator    bool
	// Captures holds the closed-over values in the order the compiler's
	// Bind pass assigned them; the prologue copies them into the callee's
	// register window as parent_reg_0, parent_reg_1, ....
	Captures []Value
	// BoundThis is non-nil for closures created by `this`-capturing
	// arrow functions or bound methods.
	BoundThis *Value
}

func NewFunction(f *FunctionClosure) Value {
	if f.refs == 0 {
		f.refs = 1
	}
	return Value{Type: TypeFunction, obj: f}
}

func (f *FunctionClosure) IsUnique() bool { return f.refs <= 1 }

// ClassBody is the runtime representation of a class declaration:
// a constructor function, an instance-method prototype object, and a
// static-member object. Per §3.2, mutating a static member through one
// binding of the class is not observable through another — ClassBody is
// therefore COW exactly like ObjectBody, with Static treated as its one
// mutable part (the constructor and InstanceProto are fixed at
// definition time and never reassigned after compilation).
type ClassBody struct {
	refs int

	Name          string
	Constructor   Value // TypeFunction; the compiler generates one for classes with no explicit constructor
	InstanceProto *ObjectBody
	Static        *ObjectBody
	SuperClass    *ClassBody
}

func NewClass(c *ClassBody) Value {
	if c.refs == 0 {
		c.refs = 1
	}
	return Value{Type: TypeClass, obj: c}
}

func (c *ClassBody) IsUnique() bool { return c.refs <= 1 }

func (c *ClassBody) Clone() *ClassBody {
	clone := &ClassBody{
		refs:          1,
		Name:          c.Name,
		Constructor:   Retain(c.Constructor),
		InstanceProto: c.InstanceProto,
		Static:        c.Static.Clone(),
		SuperClass:    c.SuperClass,
	}
	return clone
}

func (c *ClassBody) Own() *ClassBody {
	if c.IsUnique() {
		return c
	}
	return c.Clone()
}

// NewInstance allocates a fresh object whose prototype is the class's
// instance-method table, ready for the constructor body to populate
// fields on via `this`.
func (c *ClassBody) NewInstance() *ObjectBody {
	return &ObjectBody{refs: 1, Proto: c.InstanceProto, ClassName: c.Name}
}
