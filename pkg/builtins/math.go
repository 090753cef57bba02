package builtins

import (
	"math"

	"valuescript/pkg/values"
)

// mathNamespace is the `Math` global. `Math.random` is deliberately
// omitted per spec §6.4: a nondeterministic built-in would violate the
// value-semantic determinism Testable Property #8 relies on.
var mathNamespace = namespaceObject(map[string]values.NativeFunc{
	"abs":   unaryMath(math.Abs),
	"floor": unaryMath(math.Floor),
	"ceil":  unaryMath(math.Ceil),
	"round": unaryMath(mathRound),
	"trunc": unaryMath(math.Trunc),
	"sign":  unaryMath(mathSign),
	"sqrt":  unaryMath(math.Sqrt),
	"cbrt":  unaryMath(math.Cbrt),
	"log":   unaryMath(math.Log),
	"log2":  unaryMath(math.Log2),
	"log10": unaryMath(math.Log10),
	"exp":   unaryMath(math.Exp),
	"sin":   unaryMath(math.Sin),
	"cos":   unaryMath(math.Cos),
	"tan":   unaryMath(math.Tan),
	"atan":  unaryMath(math.Atan),
	"pow":   mathPow,
	"atan2": mathAtan2,
	"min":   mathMin,
	"max":   mathMax,
}, map[string]values.Value{
	"PI":     values.Number(math.Pi),
	"E":      values.Number(math.E),
	"LN2":    values.Number(math.Ln2),
	"LN10":   values.Number(math.Log(10)),
	"SQRT2":  values.Number(math.Sqrt2),
	"LOG2E":  values.Number(1 / math.Ln2),
	"LOG10E": values.Number(1 / math.Log(10)),
})

func mathRound(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return n
	}
	return math.Floor(n + 0.5)
}

func mathSign(n float64) float64 {
	switch {
	case math.IsNaN(n):
		return n
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return n
	}
}

func unaryMath(f func(float64) float64) values.NativeFunc {
	return func(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
		return values.Number(f(argNumber(args, 0))), nil
	}
}

func mathPow(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.Number(math.Pow(argNumber(args, 0), argNumber(args, 1))), nil
}

func mathAtan2(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.Number(math.Atan2(argNumber(args, 0), argNumber(args, 1))), nil
}

func mathMin(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(math.Inf(1)), nil
	}
	m := argNumber(args, 0)
	for _, a := range args[1:] {
		n := values.ToNumber(a)
		if math.IsNaN(n) {
			return values.Number(math.NaN()), nil
		}
		if n < m {
			m = n
		}
	}
	return values.Number(m), nil
}

func mathMax(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(math.Inf(-1)), nil
	}
	m := argNumber(args, 0)
	for _, a := range args[1:] {
		n := values.ToNumber(a)
		if math.IsNaN(n) {
			return values.Number(math.NaN()), nil
		}
		if n > m {
			m = n
		}
	}
	return values.Number(m), nil
}

func argNumber(args []values.Value, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	return values.ToNumber(args[i])
}

func argOr(args []values.Value, i int, def values.Value) values.Value {
	if i >= len(args) || args[i].IsUndefined() {
		return def
	}
	return args[i]
}
