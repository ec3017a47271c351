package strategy

import (
	"fmt"
	"strings"

	"lutra/internal/values"
)

// Bitwise selects how an encrypted bitwise operation is lowered. The
// non-chunked variants pack both operands into one table lookup input,
// so the intermediate width is the sum of the operand widths.
type Bitwise int

const (
	// BitwiseOneTLUPromoted promotes both operands to the packing width
	// so the operation is a single table lookup.
	BitwiseOneTLUPromoted Bitwise = iota

	// BitwiseThreeTLUCasted keeps the operands at their own widths and
	// casts each with a lookup before the packed lookup.
	BitwiseThreeTLUCasted

	// BitwiseTwoTLUBiggerPromotedSmallerCasted promotes the bigger
	// operand and casts the smaller one with a lookup.
	BitwiseTwoTLUBiggerPromotedSmallerCasted

	// BitwiseTwoTLUBiggerCastedSmallerPromoted promotes the smaller
	// operand and casts the bigger one with a lookup.
	BitwiseTwoTLUBiggerCastedSmallerPromoted

	// BitwiseChunked splits the operands into chunks and combines them
	// chunk by chunk. Always feasible.
	BitwiseChunked
)

var bitwiseNames = map[Bitwise]string{
	BitwiseOneTLUPromoted:                    "one-tlu-promoted",
	BitwiseThreeTLUCasted:                    "three-tlu-casted",
	BitwiseTwoTLUBiggerPromotedSmallerCasted: "two-tlu-bigger-promoted-smaller-casted",
	BitwiseTwoTLUBiggerCastedSmallerPromoted: "two-tlu-bigger-casted-smaller-promoted",
	BitwiseChunked:                           "chunked",
}

func (s Bitwise) String() string {
	return bitwiseNames[s]
}

// ParseBitwise converts a strategy name to a Bitwise.
func ParseBitwise(name string) (Bitwise, error) {
	lowered := strings.ToLower(name)
	for strategy, known := range bitwiseNames {
		if lowered == known {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("'%s' is not a valid bitwise strategy (%s)", name, knownBitwiseNames())
}

func knownBitwiseNames() string {
	names := make([]string, 0, len(bitwiseNames))
	for s := BitwiseOneTLUPromoted; s <= BitwiseChunked; s++ {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// CanBeUsed reports whether the strategy is feasible for a bitwise
// operation on operands described by x and y.
func (s Bitwise) CanBeUsed(x, y values.Description) bool {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)

	if s == BitwiseChunked {
		return true
	}
	return packingWidth(xDtype, yDtype) <= MaximumTLUBitWidth
}

// Promotions returns the minimum bit widths x and y must be promoted to
// before lowering the bitwise operation with the strategy.
func (s Bitwise) Promotions(x, y values.Description) (int, int) {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)

	if xDtype.Width <= yDtype.Width {
		smallerRequired, biggerRequired := s.promotions(xDtype, yDtype)
		return smallerRequired, biggerRequired
	}
	smallerRequired, biggerRequired := s.promotions(yDtype, xDtype)
	return biggerRequired, smallerRequired
}

// promotions returns the required widths in (smaller, bigger) order.
func (s Bitwise) promotions(smaller, bigger values.Integer) (int, int) {
	width := packingWidth(smaller, bigger)

	switch s {
	case BitwiseOneTLUPromoted:
		return width, width

	case BitwiseTwoTLUBiggerPromotedSmallerCasted:
		smallerRequired := width
		if smaller.Width != bigger.Width {
			smallerRequired = smaller.Width
		}
		return smallerRequired, width

	case BitwiseTwoTLUBiggerCastedSmallerPromoted:
		biggerRequired := width
		if bigger.Width != smaller.Width {
			biggerRequired = bigger.Width
		}
		return width, biggerRequired
	}

	return smaller.Width, bigger.Width
}

// SelectBitwise returns the first feasible non-chunked strategy in
// preference order, falling back to chunked evaluation.
func SelectBitwise(preference []Bitwise, x, y values.Description) Bitwise {
	for _, s := range preference {
		if s != BitwiseChunked && s.CanBeUsed(x, y) {
			return s
		}
	}
	return BitwiseChunked
}
