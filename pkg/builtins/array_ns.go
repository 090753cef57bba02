package builtins

import "valuescript/pkg/values"

var arrayNamespace = namespaceObject(map[string]values.NativeFunc{
	"isArray": arrayIsArray,
	"of":      arrayOf,
	"from":    arrayFrom,
}, nil)

func arrayIsArray(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.Bool(len(args) > 0 && args[0].IsArray()), nil
}

func arrayOf(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	elements := make([]values.Value, len(args))
	copy(elements, args)
	return values.NewArray(elements), nil
}

// arrayFrom accepts an array (copied), a string (split into code
// points), or any iterable Custom value, optionally passing each element
// through a map callback — the two-argument form JavaScript supports.
func arrayFrom(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.NewArray(nil), nil
	}
	var elements []values.Value
	switch args[0].Type {
	case values.TypeArray:
		elements = append(elements, values.AsArray(args[0]).Elements...)
		values.RetainAll(elements)
	case values.TypeString:
		for _, r := range values.AsString(args[0]) {
			elements = append(elements, values.String(string(r)))
		}
	default:
		it, err := getIterator(c, values.Undefined(), args[:1])
		if err != nil {
			return values.Void(), err
		}
		iter := values.AsCustom(it).(values.Iterator)
		for {
			res, err := iter.Next()
			if err != nil {
				return values.Void(), err
			}
			obj := values.AsObject(res)
			done, _ := obj.Get("done")
			if done.Truthy() {
				break
			}
			v, _ := obj.Get("value")
			elements = append(elements, v)
		}
	}
	if len(args) > 1 && args[1].IsCallable() {
		mapped := make([]values.Value, len(elements))
		for i, v := range elements {
			r, err := c.Call(args[1], values.Undefined(), []values.Value{v, values.Number(float64(i))})
			if err != nil {
				return values.Void(), err
			}
			mapped[i] = r
		}
		elements = mapped
	}
	return values.NewArray(elements), nil
}
