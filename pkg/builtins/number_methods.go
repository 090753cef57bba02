package builtins

import (
	"strconv"

	"valuescript/pkg/values"
)

var numberMethods = map[string]values.NativeFunc{
	"toFixed":     numberToFixed,
	"toPrecision": numberToPrecision,
	"toString":    numberToString,
}

func NumberMethod(name string) (values.NativeFunc, bool) {
	m, ok := numberMethods[name]
	return m, ok
}

func numberToFixed(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	digits := 0
	if len(args) > 0 {
		digits = int(values.ToNumber(args[0]))
	}
	return values.String(strconv.FormatFloat(values.AsNumber(this), 'f', digits, 64)), nil
}

func numberToPrecision(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || args[0].IsUndefined() {
		return values.String(values.ToStringTag(this)), nil
	}
	prec := int(values.ToNumber(args[0]))
	return values.String(strconv.FormatFloat(values.AsNumber(this), 'g', prec, 64)), nil
}

func numberToString(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	n := values.AsNumber(this)
	base := 10
	if len(args) > 0 && !args[0].IsUndefined() {
		base = int(values.ToNumber(args[0]))
	}
	if base == 10 {
		return values.String(values.ToStringTag(this)), nil
	}
	if n == float64(int64(n)) {
		return values.String(strconv.FormatInt(int64(n), base)), nil
	}
	return values.String(strconv.FormatFloat(n, 'g', -1, 64)), nil
}
