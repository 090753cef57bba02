package vm

import (
	"math"
	"math/big"

	"valuescript/pkg/asm"
	"valuescript/pkg/values"
)

// typeError builds the thrown `{name, message}` object the operator
// semantics call for and wraps it for the unwind machinery.
func typeError(msg string) error {
	return values.Throw(values.NewError("TypeError", msg))
}

// binaryOp implements the Op* family per §4.6's operator semantics:
// both-BigInt stays BigInt, a BigInt/non-BigInt mix is a TypeError,
// `+` with any string operand concatenates, everything else coerces to
// Number.
func binaryOp(op asm.OpCode, a, b values.Value) (values.Value, error) {
	switch op {
	case asm.OpAdd:
		if a.IsString() || b.IsString() || isStringish(a) || isStringish(b) {
			return values.String(values.ToStringTag(a) + values.ToStringTag(b)), nil
		}
		if a.IsBigInt() && b.IsBigInt() {
			return values.BigInt(values.BigIntAdd(values.AsBigInt(a), values.AsBigInt(b))), nil
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(values.ToNumber(a) + values.ToNumber(b)), nil
	case asm.OpSubtract:
		return numericOp(a, b, values.BigIntSub, func(x, y float64) float64 { return x - y })
	case asm.OpMultiply:
		return numericOp(a, b, values.BigIntMul, func(x, y float64) float64 { return x * y })
	case asm.OpDivide:
		if a.IsBigInt() && b.IsBigInt() {
			if values.AsBigInt(b).Sign() == 0 {
				return values.Void(), values.Throw(values.NewError("RangeError", "Division by zero"))
			}
			return values.BigInt(values.BigIntDiv(values.AsBigInt(a), values.AsBigInt(b))), nil
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(values.ToNumber(a) / values.ToNumber(b)), nil
	case asm.OpRemainder:
		if a.IsBigInt() && b.IsBigInt() {
			if values.AsBigInt(b).Sign() == 0 {
				return values.Void(), values.Throw(values.NewError("RangeError", "Division by zero"))
			}
			return values.BigInt(values.BigIntMod(values.AsBigInt(a), values.AsBigInt(b))), nil
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(math.Mod(values.ToNumber(a), values.ToNumber(b))), nil
	case asm.OpExponent:
		if a.IsBigInt() && b.IsBigInt() {
			if values.AsBigInt(b).Sign() < 0 {
				return values.Void(), values.Throw(values.NewError("RangeError", "Exponent must be non-negative"))
			}
			return values.BigInt(values.BigIntPow(values.AsBigInt(a), values.AsBigInt(b))), nil
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(math.Pow(values.ToNumber(a), values.ToNumber(b))), nil

	case asm.OpEqual:
		return values.Bool(values.LooseEquals(a, b)), nil
	case asm.OpNotEqual:
		return values.Bool(!values.LooseEquals(a, b)), nil
	case asm.OpStrictEqual:
		return values.Bool(values.StrictEquals(a, b)), nil
	case asm.OpStrictNotEqual:
		return values.Bool(!values.StrictEquals(a, b)), nil

	case asm.OpLess:
		return relational(a, b, func(c int) bool { return c < 0 })
	case asm.OpLessEqual:
		return relational(a, b, func(c int) bool { return c <= 0 })
	case asm.OpGreater:
		return relational(a, b, func(c int) bool { return c > 0 })
	case asm.OpGreaterEqual:
		return relational(a, b, func(c int) bool { return c >= 0 })

	case asm.OpBitAnd:
		return bitwiseOp(a, b, new(big.Int).And, func(x, y int32) int32 { return x & y })
	case asm.OpBitOr:
		return bitwiseOp(a, b, new(big.Int).Or, func(x, y int32) int32 { return x | y })
	case asm.OpBitXor:
		return bitwiseOp(a, b, new(big.Int).Xor, func(x, y int32) int32 { return x ^ y })
	case asm.OpShiftLeft:
		if a.IsBigInt() && b.IsBigInt() {
			return bigShift(a, b, false)
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(float64(toInt32(values.ToNumber(a)) << (toUint32(values.ToNumber(b)) & 31))), nil
	case asm.OpShiftRight:
		if a.IsBigInt() && b.IsBigInt() {
			return bigShift(a, b, true)
		}
		if err := rejectBigIntMix(a, b); err != nil {
			return values.Void(), err
		}
		return values.Number(float64(toInt32(values.ToNumber(a)) >> (toUint32(values.ToNumber(b)) & 31))), nil
	case asm.OpShiftRightUnsigned:
		if a.IsBigInt() || b.IsBigInt() {
			// Matches ECMAScript: BigInts have no fixed width to shift
			// zeroes into.
			return values.Void(), typeError("BigInts have no unsigned right shift, use >> instead")
		}
		return values.Number(float64(toUint32(values.ToNumber(a)) >> (toUint32(values.ToNumber(b)) & 31))), nil
	}
	return values.Void(), typeError("unsupported binary operator " + op.String())
}

func isStringish(v values.Value) bool {
	return v.IsArray() || v.IsObject()
}

func rejectBigIntMix(a, b values.Value) error {
	if a.IsBigInt() != b.IsBigInt() {
		return typeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	return nil
}

func numericOp(a, b values.Value, bigFn func(x, y *big.Int) *big.Int, numFn func(x, y float64) float64) (values.Value, error) {
	if a.IsBigInt() && b.IsBigInt() {
		return values.BigInt(bigFn(values.AsBigInt(a), values.AsBigInt(b))), nil
	}
	if err := rejectBigIntMix(a, b); err != nil {
		return values.Void(), err
	}
	return values.Number(numFn(values.ToNumber(a), values.ToNumber(b))), nil
}

func bitwiseOp(a, b values.Value, bigFn func(x, y *big.Int) *big.Int, intFn func(x, y int32) int32) (values.Value, error) {
	if a.IsBigInt() && b.IsBigInt() {
		return values.BigInt(bigFn(values.AsBigInt(a), values.AsBigInt(b))), nil
	}
	if err := rejectBigIntMix(a, b); err != nil {
		return values.Void(), err
	}
	return values.Number(float64(intFn(toInt32(values.ToNumber(a)), toInt32(values.ToNumber(b))))), nil
}

func bigShift(a, b values.Value, right bool) (values.Value, error) {
	n := values.AsBigInt(b)
	if !n.IsInt64() {
		return values.Void(), values.Throw(values.NewError("RangeError", "BigInt shift amount out of range"))
	}
	shift := n.Int64()
	if right {
		shift = -shift
	}
	x := values.AsBigInt(a)
	if shift >= 0 {
		return values.BigInt(new(big.Int).Lsh(x, uint(shift))), nil
	}
	return values.BigInt(new(big.Int).Rsh(x, uint(-shift))), nil
}

// relational compares two values for the <, <=, >, >= family: strings
// compare lexicographically, BigInts exactly, and a BigInt/Number mix
// compares mathematically (relational mixing is not arithmetic, so the
// TypeError rule above does not apply).
func relational(a, b values.Value, verdict func(cmp int) bool) (values.Value, error) {
	if a.IsString() && b.IsString() {
		sa, sb := values.AsString(a), values.AsString(b)
		switch {
		case sa < sb:
			return values.Bool(verdict(-1)), nil
		case sa > sb:
			return values.Bool(verdict(1)), nil
		default:
			return values.Bool(verdict(0)), nil
		}
	}
	if a.IsBigInt() && b.IsBigInt() {
		return values.Bool(verdict(values.AsBigInt(a).Cmp(values.AsBigInt(b)))), nil
	}
	if a.IsBigInt() || b.IsBigInt() {
		fa := bigOrNumberFloat(a)
		fb := bigOrNumberFloat(b)
		return values.Bool(verdict(fa.Cmp(fb))), nil
	}
	na, nb := values.ToNumber(a), values.ToNumber(b)
	if math.IsNaN(na) || math.IsNaN(nb) {
		return values.False, nil
	}
	switch {
	case na < nb:
		return values.Bool(verdict(-1)), nil
	case na > nb:
		return values.Bool(verdict(1)), nil
	default:
		return values.Bool(verdict(0)), nil
	}
}

func bigOrNumberFloat(v values.Value) *big.Float {
	if v.IsBigInt() {
		return new(big.Float).SetInt(values.AsBigInt(v))
	}
	return big.NewFloat(values.ToNumber(v))
}

// unaryOp implements Negate, Not, and BitNot.
func unaryOp(op asm.OpCode, v values.Value) (values.Value, error) {
	switch op {
	case asm.OpNegate:
		if v.IsBigInt() {
			return values.BigInt(values.BigIntNeg(values.AsBigInt(v))), nil
		}
		return values.Number(-values.ToNumber(v)), nil
	case asm.OpNot:
		return values.Bool(!v.Truthy()), nil
	case asm.OpBitNot:
		if v.IsBigInt() {
			return values.BigInt(new(big.Int).Not(values.AsBigInt(v))), nil
		}
		return values.Number(float64(^toInt32(values.ToNumber(v)))), nil
	}
	return values.Void(), typeError("unsupported unary operator " + op.String())
}

// toInt32 and toUint32 implement the ECMAScript 32-bit integer
// coercions: NaN/Infinity map to 0, everything else truncates and wraps
// modulo 2^32.
func toInt32(n float64) int32 {
	return int32(toUint32(n))
}

func toUint32(n float64) uint32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	t := math.Trunc(n)
	m := math.Mod(t, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}
