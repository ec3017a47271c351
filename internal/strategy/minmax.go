package strategy

import (
	"fmt"
	"strings"

	"lutra/internal/values"
)

// MinMax selects how encrypted minimum and maximum are lowered. The
// non-chunked variants compute tlu(x - y) + y, so the intermediate width
// is the width of the signed difference.
type MinMax int

const (
	// MinMaxOneTLUPromoted promotes both operands to the width of x - y
	// so the operation is a single lookup plus an addition.
	MinMaxOneTLUPromoted MinMax = iota

	// MinMaxThreeTLUCasted keeps the operands at their own widths and
	// casts each with a lookup before the difference lookup.
	MinMaxThreeTLUCasted

	// MinMaxChunked splits the operands into chunks. Always feasible.
	MinMaxChunked
)

var minMaxNames = map[MinMax]string{
	MinMaxOneTLUPromoted: "one-tlu-promoted",
	MinMaxThreeTLUCasted: "three-tlu-casted",
	MinMaxChunked:        "chunked",
}

func (s MinMax) String() string {
	return minMaxNames[s]
}

// ParseMinMax converts a strategy name to a MinMax.
func ParseMinMax(name string) (MinMax, error) {
	lowered := strings.ToLower(name)
	for strategy, known := range minMaxNames {
		if lowered == known {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("'%s' is not a valid min/max strategy (%s)", name, knownMinMaxNames())
}

func knownMinMaxNames() string {
	names := make([]string, 0, len(minMaxNames))
	for s := MinMaxOneTLUPromoted; s <= MinMaxChunked; s++ {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// CanBeUsed reports whether the strategy is feasible for a minimum or
// maximum of operands described by x and y.
func (s MinMax) CanBeUsed(x, y values.Description) bool {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)

	if s == MinMaxChunked {
		return true
	}
	return differenceWidth(xDtype, yDtype) <= MaximumTLUBitWidth
}

// Promotions returns the minimum bit widths x and y must be promoted to
// before lowering the operation with the strategy.
func (s MinMax) Promotions(x, y values.Description) (int, int) {
	xDtype := integerDtype(x)
	yDtype := integerDtype(y)

	if s == MinMaxOneTLUPromoted {
		width := differenceWidth(xDtype, yDtype)
		return width, width
	}
	return xDtype.Width, yDtype.Width
}

// SelectMinMax returns the first feasible non-chunked strategy in
// preference order, falling back to chunked evaluation.
func SelectMinMax(preference []MinMax, x, y values.Description) MinMax {
	for _, s := range preference {
		if s != MinMaxChunked && s.CanBeUsed(x, y) {
			return s
		}
	}
	return MinMaxChunked
}
