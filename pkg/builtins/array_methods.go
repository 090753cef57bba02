package builtins

import (
	"valuescript/pkg/values"
)

// ArrayMethodEntry pairs a native implementation with whether it mutates
// its receiver in place. pkg/vm's ConstSubCall dispatch consults Mutates
// to reject a mutating call through a const-bound receiver (the native
// equivalent of a compiled method's `RequireMutableThis` prologue) since
// no register write-back happens on that call path.
type ArrayMethodEntry struct {
	Fn      values.NativeFunc
	Mutates bool
}

var arrayMethods = map[string]ArrayMethodEntry{
	"push":          {arrayPush, true},
	"pop":           {arrayPop, true},
	"shift":         {arrayShift, true},
	"unshift":       {arrayUnshift, true},
	"splice":        {arraySplice, true},
	"reverse":       {arrayReverse, true},
	"sort":          {arraySort, true},
	"fill":          {arrayFill, true},
	"copyWithin":    {arrayCopyWithin, true},
	"at":            {arrayAt, false},
	"concat":        {arrayConcat, false},
	"entries":       {arrayEntries, false},
	"values":        {arrayValues, false},
	"keys":          {arrayKeys, false},
	"every":         {arrayEvery, false},
	"some":          {arraySome, false},
	"filter":        {arrayFilter, false},
	"find":          {arrayFind, false},
	"findIndex":     {arrayFindIndex, false},
	"findLast":      {arrayFindLast, false},
	"findLastIndex": {arrayFindLastIndex, false},
	"flat":          {arrayFlat, false},
	"flatMap":       {arrayFlatMap, false},
	"includes":      {arrayIncludes, false},
	"indexOf":       {arrayIndexOf, false},
	"lastIndexOf":   {arrayLastIndexOf, false},
	"join":          {arrayJoin, false},
	"map":           {arrayMap, false},
	"forEach":       {arrayForEach, false},
	"reduce":        {arrayReduce, false},
	"reduceRight":   {arrayReduceRight, false},
	"slice":         {arraySlice, false},
}

func ArrayMethod(name string) (ArrayMethodEntry, bool) {
	m, ok := arrayMethods[name]
	return m, ok
}

func normalizeIndex(i, length int) int {
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

func arrayPush(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	values.RetainAll(args)
	arr.Elements = append(arr.Elements, args...)
	return values.Number(float64(len(arr.Elements))), nil
}

func arrayPop(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	if len(arr.Elements) == 0 {
		return values.Undefined(), nil
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return last, nil
}

func arrayShift(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	if len(arr.Elements) == 0 {
		return values.Undefined(), nil
	}
	first := arr.Elements[0]
	arr.Elements = arr.Elements[1:]
	return first, nil
}

func arrayUnshift(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	values.RetainAll(args)
	arr.Elements = append(append([]values.Value{}, args...), arr.Elements...)
	return values.Number(float64(len(arr.Elements))), nil
}

func arraySplice(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	start := 0
	if len(args) > 0 {
		start = normalizeIndex(int(values.ToNumber(args[0])), len(arr.Elements))
	}
	deleteCount := len(arr.Elements) - start
	if len(args) > 1 {
		deleteCount = int(values.ToNumber(args[1]))
		if deleteCount < 0 {
			deleteCount = 0
		}
		if start+deleteCount > len(arr.Elements) {
			deleteCount = len(arr.Elements) - start
		}
	}
	removed := make([]values.Value, deleteCount)
	copy(removed, arr.Elements[start:start+deleteCount])

	insert := args
	if len(args) > 2 {
		insert = args[2:]
	} else {
		insert = nil
	}
	values.RetainAll(insert)

	tail := append([]values.Value{}, arr.Elements[start+deleteCount:]...)
	arr.Elements = append(append(arr.Elements[:start:start], insert...), tail...)
	return values.NewArray(removed), nil
}

func arrayReverse(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
		arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
	}
	return this, nil
}

func arraySort(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	var cmpErr error
	var cmp func(a, b values.Value) int
	if len(args) > 0 && args[0].IsCallable() {
		fn := args[0]
		cmp = func(a, b values.Value) int {
			if cmpErr != nil {
				return 0
			}
			r, err := c.Call(fn, values.Undefined(), []values.Value{a, b})
			if err != nil {
				cmpErr = err
				return 0
			}
			n := values.ToNumber(r)
			switch {
			case n < 0:
				return -1
			case n > 0:
				return 1
			default:
				return 0
			}
		}
	} else {
		cmp = func(a, b values.Value) int {
			sa, sb := values.ToStringTag(a), values.ToStringTag(b)
			switch {
			case sa < sb:
				return -1
			case sa > sb:
				return 1
			default:
				return 0
			}
		}
	}
	values.SortStable(arr.Elements, cmp)
	if cmpErr != nil {
		return values.Void(), cmpErr
	}
	return this, nil
}

func arrayFill(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	var fillValue values.Value
	if len(args) > 0 {
		fillValue = args[0]
	} else {
		fillValue = values.Undefined()
	}
	start, end := 0, len(arr.Elements)
	if len(args) > 1 {
		start = normalizeIndex(int(values.ToNumber(args[1])), len(arr.Elements))
	}
	if len(args) > 2 {
		end = normalizeIndex(int(values.ToNumber(args[2])), len(arr.Elements))
	}
	for i := start; i < end; i++ {
		arr.Elements[i] = values.Retain(fillValue)
	}
	return this, nil
}

func arrayCopyWithin(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	n := len(arr.Elements)
	target := 0
	if len(args) > 0 {
		target = normalizeIndex(int(values.ToNumber(args[0])), n)
	}
	start := 0
	if len(args) > 1 {
		start = normalizeIndex(int(values.ToNumber(args[1])), n)
	}
	end := n
	if len(args) > 2 {
		end = normalizeIndex(int(values.ToNumber(args[2])), n)
	}
	segment := append([]values.Value{}, arr.Elements[start:end]...)
	for i, v := range segment {
		if target+i >= n {
			break
		}
		arr.Elements[target+i] = v
	}
	return this, nil
}

func arrayAt(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	arr := values.AsArray(this)
	i := 0
	if len(args) > 0 {
		i = int(values.ToNumber(args[0]))
	}
	if i < 0 {
		i += len(arr.Elements)
	}
	if i < 0 || i >= len(arr.Elements) {
		return values.Undefined(), nil
	}
	return values.Retain(arr.Elements[i]), nil
}

func arrayConcat(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	elements := append([]values.Value{}, values.AsArray(this).Elements...)
	for _, a := range args {
		if a.IsArray() {
			elements = append(elements, values.AsArray(a).Elements...)
		} else {
			elements = append(elements, a)
		}
	}
	values.RetainAll(elements)
	return values.NewArray(elements), nil
}

func arrayEntries(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	elements := append([]values.Value{}, values.AsArray(this).Elements...)
	values.RetainAll(elements)
	return values.NewCustom(&sliceIterator{elements: elements, entries: true}), nil
}

func arrayValues(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	return getIterator(c, values.Undefined(), []values.Value{this})
}

func arrayKeys(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	n := len(values.AsArray(this).Elements)
	idx := make([]values.Value, n)
	for i := range idx {
		idx[i] = values.Number(float64(i))
	}
	return values.NewArray(idx), nil
}

func callPredicate(c values.Caller, fn values.Value, v values.Value, i int, arr values.Value) (values.Value, error) {
	return c.Call(fn, values.Undefined(), []values.Value{v, values.Number(float64(i)), arr})
}

func requireCallback(args []values.Value) (values.Value, error) {
	if len(args) == 0 || !args[0].IsCallable() {
		return values.Void(), RuntimeTypeError("callback is not a function")
	}
	return args[0], nil
}

func arrayEvery(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if !r.Truthy() {
			return values.False, nil
		}
	}
	return values.True, nil
}

func arraySome(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			return values.True, nil
		}
	}
	return values.False, nil
}

func arrayFilter(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	var out []values.Value
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			out = append(out, values.Retain(v))
		}
	}
	return values.NewArray(out), nil
}

func arrayFind(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			return values.Retain(v), nil
		}
	}
	return values.Undefined(), nil
}

func arrayFindIndex(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			return values.Number(float64(i)), nil
		}
	}
	return values.Number(-1), nil
}

func arrayFindLast(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	elements := values.AsArray(this).Elements
	for i := len(elements) - 1; i >= 0; i-- {
		r, err := callPredicate(c, fn, elements[i], i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			return values.Retain(elements[i]), nil
		}
	}
	return values.Undefined(), nil
}

func arrayFindLastIndex(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	elements := values.AsArray(this).Elements
	for i := len(elements) - 1; i >= 0; i-- {
		r, err := callPredicate(c, fn, elements[i], i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.Truthy() {
			return values.Number(float64(i)), nil
		}
	}
	return values.Number(-1), nil
}

func flattenInto(out *[]values.Value, elements []values.Value, depth int) {
	for _, v := range elements {
		if depth > 0 && v.IsArray() {
			flattenInto(out, values.AsArray(v).Elements, depth-1)
			continue
		}
		*out = append(*out, values.Retain(v))
	}
}

func arrayFlat(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	depth := 1
	if len(args) > 0 {
		depth = int(values.ToNumber(args[0]))
	}
	var out []values.Value
	flattenInto(&out, values.AsArray(this).Elements, depth)
	return values.NewArray(out), nil
}

func arrayFlatMap(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	var out []values.Value
	for i, v := range values.AsArray(this).Elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		if r.IsArray() {
			out = append(out, values.AsArray(r).Elements...)
		} else {
			out = append(out, r)
		}
	}
	return values.NewArray(out), nil
}

func arrayIncludes(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.False, nil
	}
	for _, v := range values.AsArray(this).Elements {
		if values.StrictEquals(v, args[0]) {
			return values.True, nil
		}
	}
	return values.False, nil
}

func arrayIndexOf(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(-1), nil
	}
	for i, v := range values.AsArray(this).Elements {
		if values.StrictEquals(v, args[0]) {
			return values.Number(float64(i)), nil
		}
	}
	return values.Number(-1), nil
}

func arrayLastIndexOf(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Number(-1), nil
	}
	elements := values.AsArray(this).Elements
	for i := len(elements) - 1; i >= 0; i-- {
		if values.StrictEquals(elements[i], args[0]) {
			return values.Number(float64(i)), nil
		}
	}
	return values.Number(-1), nil
}

func arrayJoin(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	sep := ","
	if len(args) > 0 && !args[0].IsUndefined() {
		sep = values.ToStringTag(args[0])
	}
	elements := values.AsArray(this).Elements
	parts := make([]string, len(elements))
	for i, v := range elements {
		if v.IsNullish() {
			parts[i] = ""
		} else {
			parts[i] = values.ToStringTag(v)
		}
	}
	return values.String(joinStrings(parts, sep)), nil
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func arrayMap(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	elements := values.AsArray(this).Elements
	out := make([]values.Value, len(elements))
	for i, v := range elements {
		r, err := callPredicate(c, fn, v, i, this)
		if err != nil {
			return values.Void(), err
		}
		out[i] = r
	}
	return values.NewArray(out), nil
}

func arrayForEach(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	for i, v := range values.AsArray(this).Elements {
		if _, err := callPredicate(c, fn, v, i, this); err != nil {
			return values.Void(), err
		}
	}
	return values.Undefined(), nil
}

func arrayReduce(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	elements := values.AsArray(this).Elements
	i := 0
	var acc values.Value
	if len(args) > 1 {
		acc = args[1]
	} else {
		if len(elements) == 0 {
			return values.Void(), RuntimeTypeError("reduce of empty array with no initial value")
		}
		acc = elements[0]
		i = 1
	}
	for ; i < len(elements); i++ {
		r, err := c.Call(fn, values.Undefined(), []values.Value{acc, elements[i], values.Number(float64(i)), this})
		if err != nil {
			return values.Void(), err
		}
		acc = r
	}
	return acc, nil
}

func arrayReduceRight(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	fn, err := requireCallback(args)
	if err != nil {
		return values.Void(), err
	}
	elements := values.AsArray(this).Elements
	i := len(elements) - 1
	var acc values.Value
	if len(args) > 1 {
		acc = args[1]
	} else {
		if len(elements) == 0 {
			return values.Void(), RuntimeTypeError("reduceRight of empty array with no initial value")
		}
		acc = elements[i]
		i--
	}
	for ; i >= 0; i-- {
		r, err := c.Call(fn, values.Undefined(), []values.Value{acc, elements[i], values.Number(float64(i)), this})
		if err != nil {
			return values.Void(), err
		}
		acc = r
	}
	return acc, nil
}

func arraySlice(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	elements := values.AsArray(this).Elements
	start, end := 0, len(elements)
	if len(args) > 0 {
		start = normalizeIndex(int(values.ToNumber(args[0])), len(elements))
	}
	if len(args) > 1 && !args[1].IsUndefined() {
		end = normalizeIndex(int(values.ToNumber(args[1])), len(elements))
	}
	if end < start {
		end = start
	}
	out := make([]values.Value, end-start)
	copy(out, elements[start:end])
	values.RetainAll(out)
	return values.NewArray(out), nil
}
