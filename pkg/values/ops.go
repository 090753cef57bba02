package values

import (
	"math"
	"math/big"
	"strconv"
)

// TypeOf implements the `typeof` operator per §4.6. ValueScript has no
// `"undefined"` vs missing-property distinction beyond the usual one,
// and functions/classes both report "function" as in JavaScript.
func TypeOf(v Value) string {
	switch v.Type {
	case TypeUndefined, TypeVoid:
		return "undefined"
	case TypeNull:
		return "object"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeFunction, TypeClass:
		return "function"
	case TypeStatic:
		if AsStatic(v).Fn != nil {
			return "function"
		}
		return "object"
	default:
		return "object"
	}
}

// ToNumber coerces a primitive to a number per the limited coercion
// rules the scope/compile-time type erasure still needs at runtime for
// `+`/relational operators against mixed primitive operands. BigInt
// never implicitly coerces (mirrors the TypeScript-level restriction
// that arithmetic between bigint and number is a compile error); the
// compiler is responsible for rejecting that statically; at runtime it
// surfaces as NaN rather than panicking.
func ToNumber(v Value) float64 {
	switch v.Type {
	case TypeNumber:
		return v.num
	case TypeBool:
		if v.b {
			return 1
		}
		return 0
	case TypeNull:
		return 0
	case TypeUndefined, TypeVoid:
		return math.NaN()
	case TypeString:
		return stringToNumber(v.str)
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	trimmed := trimSpace(s)
	if trimmed == "" {
		return 0
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// ToStringTag converts a value to its string representation per the
// `+`/template-literal coercion rules; composite values use the same
// Inspect-style formatting as Value.String.
func ToStringTag(v Value) string {
	return v.String()
}

// ToPropertyKey converts a computed member-access expression's value to
// the string (or symbol) used to index into an Object, per §4.6's
// `ToPropertyKey` bytecode op.
func ToPropertyKey(v Value) string {
	if v.Type == TypeString {
		return v.str
	}
	return v.String()
}

// BigIntAdd and friends always allocate a fresh *big.Int for the
// result rather than mutating either operand in place, which is what
// lets Value treat BigInt as a plain immutable payload with no
// refcounting: two BigInt values can share the same *big.Int pointer
// and never observe a mutation through the other.
func BigIntAdd(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func BigIntSub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }
func BigIntMul(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }
func BigIntDiv(a, b *big.Int) *big.Int { return new(big.Int).Quo(a, b) }
func BigIntMod(a, b *big.Int) *big.Int { return new(big.Int).Rem(a, b) }
func BigIntNeg(a *big.Int) *big.Int    { return new(big.Int).Neg(a) }
func BigIntPow(a, b *big.Int) *big.Int { return new(big.Int).Exp(a, b, nil) }
