package strategy

import (
	"fmt"
	"strings"

	"lutra/internal/values"
)

// Comparison selects how an encrypted comparison is lowered. All of the
// non-chunked variants evaluate a single lookup over x - y and only
// differ in how the operands are brought to the subtraction's bit width.
type Comparison int

const (
	// ComparisonOneTLUPromoted promotes both operands to the width of
	// x - y so the comparison is a single table lookup.
	ComparisonOneTLUPromoted Comparison = iota

	// ComparisonThreeTLUCasted keeps the operands at their own widths
	// and casts each with a lookup before the comparison lookup.
	ComparisonThreeTLUCasted

	// ComparisonTwoTLUBiggerPromotedSmallerCasted promotes the bigger
	// operand and casts the smaller one with a lookup.
	ComparisonTwoTLUBiggerPromotedSmallerCasted

	// ComparisonTwoTLUBiggerCastedSmallerPromoted promotes the smaller
	// operand and casts the bigger one with a lookup.
	ComparisonTwoTLUBiggerCastedSmallerPromoted

	// ComparisonThreeTLUBiggerClippedSmallerCasted clips the bigger
	// operand into the smaller operand's range before subtracting, so
	// the intermediate width stays below the bigger operand's width.
	ComparisonThreeTLUBiggerClippedSmallerCasted

	// ComparisonTwoTLUBiggerClippedSmallerPromoted clips the bigger
	// operand and promotes the smaller one to the clipped width.
	ComparisonTwoTLUBiggerClippedSmallerPromoted

	// ComparisonChunked splits the operands into chunks and compares
	// them chunk by chunk. Always feasible, never cheap.
	ComparisonChunked
)

var comparisonNames = map[Comparison]string{
	ComparisonOneTLUPromoted:                     "one-tlu-promoted",
	ComparisonThreeTLUCasted:                     "three-tlu-casted",
	ComparisonTwoTLUBiggerPromotedSmallerCasted:  "two-tlu-bigger-promoted-smaller-casted",
	ComparisonTwoTLUBiggerCastedSmallerPromoted:  "two-tlu-bigger-casted-smaller-promoted",
	ComparisonThreeTLUBiggerClippedSmallerCasted: "three-tlu-bigger-clipped-smaller-casted",
	ComparisonTwoTLUBiggerClippedSmallerPromoted: "two-tlu-bigger-clipped-smaller-promoted",
	ComparisonChunked:                            "chunked",
}

func (s Comparison) String() string {
	return comparisonNames[s]
}

// ParseComparison converts a strategy name to a Comparison.
func ParseComparison(name string) (Comparison, error) {
	lowered := strings.ToLower(name)
	for strategy, known := range comparisonNames {
		if lowered == known {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("'%s' is not a valid comparison strategy (%s)", name, knownComparisonNames())
}

func knownComparisonNames() string {
	names := make([]string, 0, len(comparisonNames))
	for s := ComparisonOneTLUPromoted; s <= ComparisonChunked; s++ {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

func (s Comparison) usesClipping() bool {
	return s == ComparisonThreeTLUBiggerClippedSmallerCasted ||
		s == ComparisonTwoTLUBiggerClippedSmallerPromoted
}

// CanBeUsed reports whether the strategy is feasible for comparing
// operands described by x and y. Both operands must be integers.
func (s Comparison) CanBeUsed(x, y values.Description) bool {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)

	switch s {
	case ComparisonOneTLUPromoted,
		ComparisonThreeTLUCasted,
		ComparisonTwoTLUBiggerPromotedSmallerCasted,
		ComparisonTwoTLUBiggerCastedSmallerPromoted:
		return differenceWidth(xDtype, yDtype) <= MaximumTLUBitWidth
	}

	if s.usesClipping() {
		if xDtype.Width == yDtype.Width {
			return false
		}
		smaller, bigger := xDtype, yDtype
		if smaller.Width > bigger.Width {
			smaller, bigger = bigger, smaller
		}
		first, second := clippedDifferenceWidths(smaller, bigger)
		return usableIntermediateWidth(first, smaller, bigger) ||
			usableIntermediateWidth(second, smaller, bigger)
	}

	return true
}

// Promotions returns the minimum bit widths x and y must be promoted to
// before lowering the comparison with the strategy.
func (s Comparison) Promotions(x, y values.Description) (int, int) {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)
	subtractionWidth := differenceWidth(xDtype, yDtype)

	if xDtype.Width <= yDtype.Width {
		smallerRequired, biggerRequired := s.promotions(xDtype, yDtype, subtractionWidth)
		return smallerRequired, biggerRequired
	}
	smallerRequired, biggerRequired := s.promotions(yDtype, xDtype, subtractionWidth)
	return biggerRequired, smallerRequired
}

// promotions returns the required widths in (smaller, bigger) order.
func (s Comparison) promotions(smaller, bigger values.Integer, subtractionWidth int) (int, int) {
	switch s {
	case ComparisonOneTLUPromoted:
		return subtractionWidth, subtractionWidth

	case ComparisonTwoTLUBiggerPromotedSmallerCasted:
		smallerRequired := subtractionWidth
		if smaller.Width != bigger.Width {
			smallerRequired = smaller.Width
		}
		return smallerRequired, subtractionWidth

	case ComparisonTwoTLUBiggerCastedSmallerPromoted:
		biggerRequired := subtractionWidth
		if bigger.Width != smaller.Width {
			biggerRequired = bigger.Width
		}
		return subtractionWidth, biggerRequired

	case ComparisonTwoTLUBiggerClippedSmallerPromoted:
		first, second := clippedDifferenceWidths(smaller, bigger)
		return min(first, second), bigger.Width
	}

	return smaller.Width, bigger.Width
}

// SelectComparison returns the first feasible non-chunked strategy in
// preference order, falling back to chunked comparison.
func SelectComparison(preference []Comparison, x, y values.Description) Comparison {
	for _, s := range preference {
		if s != ComparisonChunked && s.CanBeUsed(x, y) {
			return s
		}
	}
	return ComparisonChunked
}
