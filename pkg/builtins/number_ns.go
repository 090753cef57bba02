package builtins

import (
	"math"
	"strconv"
	"strings"

	"valuescript/pkg/values"
)

var numberNamespace = namespaceObject(map[string]values.NativeFunc{
	"isInteger":     numberIsInteger,
	"isFinite":      numberIsFinite,
	"isNaN":         numberIsNaN,
	"isSafeInteger": numberIsSafeInteger,
	"parseFloat":    numberParseFloat,
	"parseInt":      numberParseInt,
}, map[string]values.Value{
	"MAX_SAFE_INTEGER":  values.Number(9007199254740991),
	"MIN_SAFE_INTEGER":  values.Number(-9007199254740991),
	"MAX_VALUE":         values.Number(math.MaxFloat64),
	"EPSILON":           values.Number(2.220446049250313e-16),
	"POSITIVE_INFINITY": values.Number(math.Inf(1)),
	"NEGATIVE_INFINITY": values.Number(math.Inf(-1)),
	"NaN":               values.Number(math.NaN()),
})

func numberIsInteger(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsNumber() {
		return values.False, nil
	}
	n := values.AsNumber(args[0])
	return values.Bool(!math.IsNaN(n) && !math.IsInf(n, 0) && n == math.Trunc(n)), nil
}

func numberIsSafeInteger(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsNumber() {
		return values.False, nil
	}
	n := values.AsNumber(args[0])
	return values.Bool(n == math.Trunc(n) && math.Abs(n) <= 9007199254740991), nil
}

func numberIsFinite(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsNumber() {
		return values.False, nil
	}
	n := values.AsNumber(args[0])
	return values.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
}

func numberIsNaN(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.Bool(len(args) > 0 && args[0].IsNumber() && math.IsNaN(values.AsNumber(args[0]))), nil
}

func numberParseFloat(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(math.NaN()), nil
	}
	s := strings.TrimSpace(values.ToStringTag(args[0]))
	end := len(s)
	for end > 0 {
		if _, err := strconv.ParseFloat(s[:end], 64); err == nil {
			break
		}
		end--
	}
	if end == 0 {
		return values.Number(math.NaN()), nil
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return values.Number(math.NaN()), nil
	}
	return values.Number(f), nil
}

func numberParseInt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(math.NaN()), nil
	}
	s := strings.TrimSpace(values.ToStringTag(args[0]))
	base := 10
	if len(args) > 1 {
		if b := int(values.ToNumber(args[1])); b != 0 {
			base = b
		}
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if base == 16 {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	}
	end := 0
	for end < len(s) && digitInBase(s[end], base) {
		end++
	}
	if end == 0 {
		return values.Number(math.NaN()), nil
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return values.Number(math.NaN()), nil
	}
	f := float64(n)
	if neg {
		f = -f
	}
	return values.Number(f), nil
}

func digitInBase(b byte, base int) bool {
	var v int
	switch {
	case b >= '0' && b <= '9':
		v = int(b - '0')
	case b >= 'a' && b <= 'z':
		v = int(b-'a') + 10
	case b >= 'A' && b <= 'Z':
		v = int(b-'A') + 10
	default:
		return false
	}
	return v < base
}
