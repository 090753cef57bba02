package builtins

import "valuescript/pkg/values"

var objectNamespace = namespaceObject(map[string]values.NativeFunc{
	"keys":    objectKeysHelper,
	"values":  objectValues,
	"entries": objectEntries,
	"assign":  objectAssign,
	"freeze":  objectFreeze,
}, nil)

func objectValues(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return values.NewArray(nil), nil
	}
	obj := values.AsObject(args[0])
	vals := make([]values.Value, len(obj.Vals))
	for i, v := range obj.Vals {
		vals[i] = values.Retain(v)
	}
	return values.NewArray(vals), nil
}

func objectEntries(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return values.NewArray(nil), nil
	}
	obj := values.AsObject(args[0])
	pairs := make([]values.Value, len(obj.Keys))
	for i, k := range obj.Keys {
		pairs[i] = values.NewArray([]values.Value{values.String(k), values.Retain(obj.Vals[i])})
	}
	return values.NewArray(pairs), nil
}

// objectAssign merges every source object's own properties into a fresh
// copy of the first argument, left to right — value semantics mean
// there's no in-place-mutate-the-first-argument shortcut to take here
// the way JavaScript's Object.assign does.
func objectAssign(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsObject() {
		return values.NewObject(), nil
	}
	first := values.AsObject(args[0])
	keys := append([]string(nil), first.Keys...)
	vals := make([]values.Value, len(first.Vals))
	for i, v := range first.Vals {
		vals[i] = values.Retain(v)
	}
	merged := values.NewObjectWithProps(keys, vals)
	out := values.AsObject(merged)
	for _, src := range args[1:] {
		if !src.IsObject() {
			continue
		}
		s := values.AsObject(src)
		for i, k := range s.Keys {
			out.Set(k, values.Retain(s.Vals[i]))
		}
	}
	return merged, nil
}

func objectFreeze(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	// Every composite value is already an immutable snapshot from the
	// perspective of any other binding (§3.2); freezing has nothing left
	// to do beyond returning the argument unchanged.
	if len(args) == 0 {
		return values.Undefined(), nil
	}
	return args[0], nil
}
