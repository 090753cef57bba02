package builtins

import "valuescript/pkg/values"

var stringNamespace = namespaceObject(map[string]values.NativeFunc{
	"fromCharCode":  stringFromCharCode,
	"fromCodePoint": stringFromCharCode,
}, nil)

func stringFromCharCode(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := make([]rune, len(args))
	for i, a := range args {
		runes[i] = rune(int(values.ToNumber(a)))
	}
	return values.String(string(runes)), nil
}
