package builtins

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"valuescript/pkg/values"
)

// Strings are immutable primitives in ValueScript, so every instance
// method here is non-mutating; there is no ArrayMethodEntry-style
// Mutates flag to track.
var stringMethods = map[string]values.NativeFunc{
	"at":          stringAt,
	"charAt":      stringCharAt,
	"charCodeAt":  stringCharCodeAt,
	"codePointAt": stringCodePointAt,
	"concat":      stringConcat,
	"endsWith":    stringEndsWith,
	"includes":    stringIncludes,
	"indexOf":     stringIndexOf,
	"lastIndexOf": stringLastIndexOf,
	"normalize":   stringNormalize,
	"padEnd":      stringPadEnd,
	"padStart":    stringPadStart,
	"repeat":      stringRepeat,
	"replace":     stringReplace,
	"replaceAll":  stringReplaceAll,
	"slice":       stringSlice,
	"split":       stringSplit,
	"startsWith":  stringStartsWith,
	"substring":   stringSubstring,
	"toLowerCase": stringToLowerCase,
	"toUpperCase": stringToUpperCase,
	"trim":        stringTrim,
	"trimStart":   stringTrimStart,
	"trimEnd":     stringTrimEnd,
	"values":      stringValuesMethod,
}

func StringMethod(name string) (values.NativeFunc, bool) {
	m, ok := stringMethods[name]
	return m, ok
}

func runesOf(v values.Value) []rune { return []rune(values.AsString(v)) }

func stringNormIndex(i, length int) int {
	if i < 0 {
		i += length
		if i < 0 {
			i = 0
		}
	}
	if i > length {
		i = length
	}
	return i
}

func stringAt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := runesOf(this)
	i := 0
	if len(args) > 0 {
		i = int(values.ToNumber(args[0]))
	}
	if i < 0 {
		i += len(runes)
	}
	if i < 0 || i >= len(runes) {
		return values.Undefined(), nil
	}
	return values.String(string(runes[i])), nil
}

func stringCharAt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := runesOf(this)
	i := 0
	if len(args) > 0 {
		i = int(values.ToNumber(args[0]))
	}
	if i < 0 || i >= len(runes) {
		return values.String(""), nil
	}
	return values.String(string(runes[i])), nil
}

func stringCharCodeAt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := runesOf(this)
	i := 0
	if len(args) > 0 {
		i = int(values.ToNumber(args[0]))
	}
	if i < 0 || i >= len(runes) {
		return values.Number(nan()), nil
	}
	return values.Number(float64(runes[i])), nil
}

func stringCodePointAt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return stringCharCodeAt(c, this, args)
}

func stringConcat(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	s := values.AsString(this)
	for _, a := range args {
		s += values.ToStringTag(a)
	}
	return values.String(s), nil
}

func stringEndsWith(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.False, nil
	}
	s := values.AsString(this)
	if len(args) > 1 {
		end := int(values.ToNumber(args[1]))
		if end < len(s) {
			s = s[:end]
		}
	}
	return values.Bool(strings.HasSuffix(s, values.ToStringTag(args[0]))), nil
}

func stringIncludes(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.False, nil
	}
	return values.Bool(strings.Contains(values.AsString(this), values.ToStringTag(args[0]))), nil
}

func stringIndexOf(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(-1), nil
	}
	return values.Number(float64(strings.Index(values.AsString(this), values.ToStringTag(args[0])))), nil
}

func stringLastIndexOf(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(-1), nil
	}
	return values.Number(float64(strings.LastIndex(values.AsString(this), values.ToStringTag(args[0])))), nil
}

// stringNormalize uses x/text/unicode/norm rather than hand-rolling
// Unicode normalization, matching the DOMAIN STACK's Unicode-sensitive
// string handling.
func stringNormalize(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	form := "NFC"
	if len(args) > 0 {
		form = values.ToStringTag(args[0])
	}
	var f norm.Form
	switch form {
	case "NFD":
		f = norm.NFD
	case "NFKC":
		f = norm.NFKC
	case "NFKD":
		f = norm.NFKD
	default:
		f = norm.NFC
	}
	return values.String(f.String(values.AsString(this))), nil
}

func stringPadEnd(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return stringPad(this, args, false), nil
}

func stringPadStart(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return stringPad(this, args, true), nil
}

func stringPad(this values.Value, args []values.Value, start bool) values.Value {
	s := values.AsString(this)
	if len(args) == 0 {
		return values.String(s)
	}
	target := int(values.ToNumber(args[0]))
	pad := " "
	if len(args) > 1 && len(values.ToStringTag(args[1])) > 0 {
		pad = values.ToStringTag(args[1])
	}
	cur := utf8.RuneCountInString(s)
	if cur >= target || pad == "" {
		return values.String(s)
	}
	var b strings.Builder
	for utf8.RuneCountInString(b.String()) < target-cur {
		b.WriteString(pad)
	}
	fill := string([]rune(b.String())[:target-cur])
	if start {
		return values.String(fill + s)
	}
	return values.String(s + fill)
}

func stringRepeat(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	n := 0
	if len(args) > 0 {
		n = int(values.ToNumber(args[0]))
	}
	if n < 0 {
		return values.Void(), RuntimeRangeError("repeat count must be non-negative")
	}
	return values.String(strings.Repeat(values.AsString(this), n)), nil
}

func stringReplace(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) < 2 {
		return this, nil
	}
	return values.String(strings.Replace(values.AsString(this), values.ToStringTag(args[0]), values.ToStringTag(args[1]), 1)), nil
}

func stringReplaceAll(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) < 2 {
		return this, nil
	}
	return values.String(strings.ReplaceAll(values.AsString(this), values.ToStringTag(args[0]), values.ToStringTag(args[1]))), nil
}

func stringSlice(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := runesOf(this)
	start, end := 0, len(runes)
	if len(args) > 0 {
		start = stringNormIndex(int(values.ToNumber(args[0])), len(runes))
	}
	if len(args) > 1 && !args[1].IsUndefined() {
		end = stringNormIndex(int(values.ToNumber(args[1])), len(runes))
	}
	if end < start {
		end = start
	}
	return values.String(string(runes[start:end])), nil
}

func stringSubstring(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	runes := runesOf(this)
	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i > len(runes) {
			return len(runes)
		}
		return i
	}
	start, end := 0, len(runes)
	if len(args) > 0 {
		start = clamp(int(values.ToNumber(args[0])))
	}
	if len(args) > 1 && !args[1].IsUndefined() {
		end = clamp(int(values.ToNumber(args[1])))
	}
	if start > end {
		start, end = end, start
	}
	return values.String(string(runes[start:end])), nil
}

func stringSplit(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	s := values.AsString(this)
	if len(args) == 0 || args[0].IsUndefined() {
		return values.NewArray([]values.Value{values.String(s)}), nil
	}
	sep := values.ToStringTag(args[0])
	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	elements := make([]values.Value, len(parts))
	for i, p := range parts {
		elements[i] = values.String(p)
	}
	return values.NewArray(elements), nil
}

func stringStartsWith(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.False, nil
	}
	s := values.AsString(this)
	if len(args) > 1 {
		start := int(values.ToNumber(args[1]))
		if start > 0 && start < len(s) {
			s = s[start:]
		} else if start >= len(s) {
			s = ""
		}
	}
	return values.Bool(strings.HasPrefix(s, values.ToStringTag(args[0]))), nil
}

// stringToLowerCase/stringToUpperCase use x/text/cases instead of
// strings.ToLower/ToUpper so casing follows Unicode case-folding rules
// rather than the ASCII-biased stdlib tables.
func stringToLowerCase(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.String(cases.Lower(language.Und).String(values.AsString(this))), nil
}

func stringToUpperCase(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.String(cases.Upper(language.Und).String(values.AsString(this))), nil
}

func stringTrim(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.String(strings.TrimSpace(values.AsString(this))), nil
}

func stringTrimStart(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.String(strings.TrimLeft(values.AsString(this), " \t\n\r\f\v")), nil
}

func stringTrimEnd(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return values.String(strings.TrimRight(values.AsString(this), " \t\n\r\f\v")), nil
}

func stringValuesMethod(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return getIterator(c, values.Undefined(), []values.Value{this})
}

func nan() float64 {
	var f float64
	return f / f
}
