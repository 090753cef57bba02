package builtins

import (
	"encoding/json"
	"strconv"
	"strings"

	"valuescript/pkg/values"
)

var jsonNamespace = namespaceObject(map[string]values.NativeFunc{
	"stringify": jsonStringify,
	"parse":     jsonParse,
}, nil)

// jsonStringify projects a Value onto JSON. Functions/classes/Custom
// values have no JSON representation and are dropped (object properties),
// become `null` (array elements), or make the result `undefined` (top
// level), matching `JSON.stringify`'s documented behavior for
// non-serializable values.
func jsonStringify(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Undefined(), nil
	}
	var b strings.Builder
	if !writeJSON(&b, args[0]) {
		return values.Undefined(), nil
	}
	return values.String(b.String()), nil
}

func writeJSON(b *strings.Builder, v values.Value) bool {
	switch v.Type {
	case values.TypeUndefined, values.TypeVoid, values.TypeFunction, values.TypeClass, values.TypeStatic, values.TypeSymbol:
		return false
	case values.TypeNull:
		b.WriteString("null")
	case values.TypeBool:
		b.WriteString(strconv.FormatBool(values.AsBool(v)))
	case values.TypeNumber:
		n := values.AsNumber(v)
		if n != n || n > 1.7976931348623157e+308 || n < -1.7976931348623157e+308 {
			b.WriteString("null")
		} else {
			b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
		}
	case values.TypeBigInt:
		return false // BigInt is not JSON-serializable; treated like the other non-serializable kinds rather than throwing
	case values.TypeString:
		enc, _ := json.Marshal(values.AsString(v))
		b.Write(enc)
	case values.TypeArray:
		b.WriteByte('[')
		for i, el := range values.AsArray(v).Elements {
			if i > 0 {
				b.WriteByte(',')
			}
			if !writeJSON(b, el) {
				b.WriteString("null")
			}
		}
		b.WriteByte(']')
	case values.TypeObject:
		obj := values.AsObject(v)
		b.WriteByte('{')
		first := true
		for i, k := range obj.Keys {
			var field strings.Builder
			if !writeJSON(&field, obj.Vals[i]) {
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			b.WriteString(field.String())
		}
		b.WriteByte('}')
	default:
		return false
	}
	return true
}

// jsonParse decodes JSON text into the equivalent Value tree via the
// standard library's decoder (a generic `interface{}` tree is exactly
// what `encoding/json` already hands back, and no pack example wraps a
// third-party JSON library around this same shape).
func jsonParse(c values.Caller, this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.Undefined(), RuntimeTypeError("JSON.parse: missing argument")
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(values.ToStringTag(args[0])), &decoded); err != nil {
		return values.Undefined(), RuntimeTypeError("JSON.parse: %s", err.Error())
	}
	return fromJSON(decoded), nil
}

func fromJSON(v interface{}) values.Value {
	switch x := v.(type) {
	case nil:
		return values.Null()
	case bool:
		return values.Bool(x)
	case float64:
		return values.Number(x)
	case string:
		return values.String(x)
	case []interface{}:
		elements := make([]values.Value, len(x))
		for i, el := range x {
			elements[i] = fromJSON(el)
		}
		return values.NewArray(elements)
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		vals := make([]values.Value, 0, len(x))
		for k, el := range x {
			keys = append(keys, k)
			vals = append(vals, fromJSON(el))
		}
		return values.NewObjectWithProps(keys, vals)
	default:
		return values.Undefined()
	}
}
