// Package strategy decides how two-operand (and multivariate) operations
// on encrypted integers are lowered to table lookups. Every strategy can
// report whether it is feasible for a pair of operand types and which
// minimum bit widths the operands must be promoted to before lowering.
package strategy

import (
	"lutra/internal/values"
)

// MaximumTLUBitWidth is the widest input a single table lookup can take.
const MaximumTLUBitWidth = 16

// integerDtype extracts the integer dtype of an operand. Strategies are
// only defined over integers, so a non-integer operand is a caller bug.
func integerDtype(d values.Description) values.Integer {
	dtype, ok := d.Dtype.(values.Integer)
	if !ok {
		panic("strategy: operand is not an integer")
	}
	return dtype
}

// differenceWidth returns the bit width of the smallest integer type that
// can hold every possible value of x - y.
func differenceWidth(x, y values.Integer) int {
	return values.IntegerThatCanRepresent(x.Min()-y.Max(), x.Max()-y.Min()).Width
}

// packingWidth returns the bit width needed to pack x and y side by side
// into a single table lookup input.
func packingWidth(x, y values.Integer) int {
	return x.Width + y.Width
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clippedDifferenceWidths computes the widths of smaller - clipped(bigger)
// and clipped(bigger) - smaller, where clipped clamps the bigger operand
// into smaller.Min()-1 .. smaller.Max()+1 within the bigger operand's own
// range. The clipped strategies trade a lookup on the bigger operand for
// a narrower subtraction.
func clippedDifferenceWidths(smaller, bigger values.Integer) (int, int) {
	smallerMin, smallerMax := smaller.Min(), smaller.Max()
	clippedMin := clamp(smallerMin-1, bigger.Min(), bigger.Max())
	clippedMax := clamp(smallerMax+1, bigger.Min(), bigger.Max())

	smallerMinusClipped := values.IntegerThatCanRepresent(
		smallerMin-clippedMax,
		smallerMax-clippedMin,
	)
	clippedMinusSmaller := values.IntegerThatCanRepresent(
		clippedMin-smallerMax,
		clippedMax-smallerMin,
	)
	return smallerMinusClipped.Width, clippedMinusSmaller.Width
}

// usableIntermediateWidth reports whether width can serve as the
// intermediate type of a clipped strategy: it has to fit in a table
// lookup, not exceed the bigger operand, and actually gain something
// over the smaller operand.
func usableIntermediateWidth(width int, smaller, bigger values.Integer) bool {
	return width <= MaximumTLUBitWidth && width <= bigger.Width && width > smaller.Width
}
