package builtins

import (
	"valuescript/pkg/values"
)

// sliceIterator drives Array.prototype.values/entries and the
// `for (const x of array)` lowering. It holds its own retained snapshot
// of the elements so later mutation of the original array (a fresh COW
// body once mutated) never affects an in-flight iteration, matching
// Testable Property #3.
type sliceIterator struct {
	elements []values.Value
	pos      int
	entries  bool // true: yield [index, value] pairs (Array.prototype.entries)
}

func (it *sliceIterator) TypeName() string { return "Array Iterator" }
func (it *sliceIterator) Inspect() string  { return "[object Array Iterator]" }

func (it *sliceIterator) Next() (values.Value, error) {
	if it.pos >= len(it.elements) {
		return iterResult(values.Undefined(), true), nil
	}
	v := it.elements[it.pos]
	idx := it.pos
	it.pos++
	if it.entries {
		return iterResult(values.NewArray([]values.Value{values.Number(float64(idx)), values.Retain(v)}), false), nil
	}
	return iterResult(values.Retain(v), false), nil
}

// stringIterator walks a string one Unicode code point at a time
// (ValueScript strings are sequences of runes, not UTF-16 code units —
// a deliberate simplification over JavaScript).
type stringIterator struct {
	runes []rune
	pos   int
}

func (it *stringIterator) TypeName() string { return "String Iterator" }
func (it *stringIterator) Inspect() string  { return "[object String Iterator]" }

func (it *stringIterator) Next() (values.Value, error) {
	if it.pos >= len(it.runes) {
		return iterResult(values.Undefined(), true), nil
	}
	r := it.runes[it.pos]
	it.pos++
	return iterResult(values.String(string(r)), false), nil
}

func iterResult(value values.Value, done bool) values.Value {
	return values.NewObjectWithProps([]string{"value", "done"}, []values.Value{value, values.Bool(done)})
}

// IterResult builds a `{value, done}` iterator-protocol result object;
// pkg/vm uses it for generator suspension results so the shape stays
// identical to the ones the built-in iterators produce.
func IterResult(value values.Value, done bool) values.Value { return iterResult(value, done) }

// IteratorFor resolves the iterator for any iterable the same way the
// $GetIterator builtin does, returning the values.Iterator directly.
// pkg/vm's YieldStar delegation uses this to avoid re-wrapping the
// Custom handle it is about to drive.
func IteratorFor(c values.Caller, v values.Value) (values.Iterator, error) {
	itVal, err := getIterator(c, values.Undefined(), []values.Value{v})
	if err != nil {
		return nil, err
	}
	if itVal.IsCustom() {
		if it, ok := values.AsCustom(itVal).(values.Iterator); ok {
			return it, nil
		}
	}
	return nil, RuntimeTypeError("%s is not iterable", values.TypeOf(v))
}

// getIterator implements the `$GetIterator` builtin the compiler emits
// at the head of every `for-of` loop (pkg/compiler/function.go's
// compileForOf): produce the `{value,done}`-protocol Custom handle for
// whatever iterable was passed, per the well-known Symbol.iterator
// dispatch §4.6 describes.
func getIterator(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Void(), RuntimeTypeError("GetIterator: missing iterable argument")
	}
	v := args[0]
	switch v.Type {
	case values.TypeArray:
		elements := make([]values.Value, len(values.AsArray(v).Elements))
		copy(elements, values.AsArray(v).Elements)
		values.RetainAll(elements)
		return values.NewCustom(&sliceIterator{elements: elements}), nil
	case values.TypeString:
		return values.NewCustom(&stringIterator{runes: []rune(values.AsString(v))}), nil
	case values.TypeCustom:
		if it, ok := values.AsCustom(v).(values.Iterator); ok {
			return values.NewCustom(it), nil
		}
	case values.TypeObject:
		obj := values.AsObject(v)
		if sym, ok := obj.GetSymbol(values.SymbolIterator); ok {
			return c.Call(sym, v, nil)
		}
	}
	return values.Void(), RuntimeTypeError("%s is not iterable", values.TypeOf(v))
}

// objectKeysHelper backs both `Object.keys` and the `$Object_keys`
// builtin the compiler's for-in lowering calls directly
// (pkg/compiler/function.go's compileForIn).
func objectKeysHelper(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return values.NewArray(nil), nil
	}
	obj := values.AsObject(args[0])
	keys := make([]values.Value, len(obj.Keys))
	for i, k := range obj.Keys {
		keys[i] = values.String(k)
	}
	return values.NewArray(keys), nil
}

// objectOmitHelper backs `$Object_omit`, used by the compiler's object
// rest-destructuring lowering (`const { a, ...rest } = o`) to build the
// rest object out of every own key except the ones already destructured.
func objectOmitHelper(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return values.NewObject(), nil
	}
	obj := values.AsObject(args[0])
	omit := make(map[string]bool, len(args)-1)
	for _, a := range args[1:] {
		omit[values.AsString(a)] = true
	}
	var keys []string
	var vals []values.Value
	for i, k := range obj.Keys {
		if omit[k] {
			continue
		}
		keys = append(keys, k)
		vals = append(vals, values.Retain(obj.Vals[i]))
	}
	return values.NewObjectWithProps(keys, vals), nil
}

// arraySliceFromHelper backs `$Array_sliceFrom`, used by the compiler's
// array rest-destructuring lowering (`const [a, ...rest] = arr`) and
// rest-parameter collection to build the tail of an array from a start
// index.
func arraySliceFromHelper(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) < 2 || !args[0].IsArray() {
		return values.NewArray(nil), nil
	}
	elements := values.AsArray(args[0]).Elements
	start := int(values.ToNumber(args[1]))
	if start < 0 {
		start = 0
	}
	if start >= len(elements) {
		return values.NewArray(nil), nil
	}
	rest := make([]values.Value, len(elements)-start)
	copy(rest, elements[start:])
	values.RetainAll(rest)
	return values.NewArray(rest), nil
}
