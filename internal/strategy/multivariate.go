package strategy

import (
	"fmt"
	"strings"

	"lutra/internal/values"
)

// Multivariate selects how a fused multivariate table lookup is lowered.
// The operands are packed into one lookup input, so feasibility depends
// on the sum of the operand widths. There is no chunked fallback.
type Multivariate int

const (
	// MultivariatePromoted promotes every operand to the packing width.
	MultivariatePromoted Multivariate = iota

	// MultivariateCasted keeps the operands at their own widths and
	// casts each with a lookup before the packed lookup.
	MultivariateCasted
)

var multivariateNames = map[Multivariate]string{
	MultivariatePromoted: "promoted",
	MultivariateCasted:   "casted",
}

func (s Multivariate) String() string {
	return multivariateNames[s]
}

// ParseMultivariate converts a strategy name to a Multivariate.
func ParseMultivariate(name string) (Multivariate, error) {
	lowered := strings.ToLower(name)
	for strategy, known := range multivariateNames {
		if lowered == known {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("'%s' is not a valid multivariate strategy (%s)", name, knownMultivariateNames())
}

func knownMultivariateNames() string {
	names := make([]string, 0, len(multivariateNames))
	for s := MultivariatePromoted; s <= MultivariateCasted; s++ {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

func sumOfWidths(operands []values.Description) int {
	total := 0
	for _, operand := range operands {
		total += integerDtype(operand).Width
	}
	return total
}

// CanBeUsed reports whether the strategy is feasible for a multivariate
// operation on the given operands.
func (s Multivariate) CanBeUsed(operands ...values.Description) bool {
	return sumOfWidths(operands) <= MaximumTLUBitWidth
}

// Promotions returns the minimum bit width each operand must be promoted
// to before lowering the operation with the strategy.
func (s Multivariate) Promotions(operands ...values.Description) []int {
	total := sumOfWidths(operands)

	required := make([]int, len(operands))
	for i, operand := range operands {
		if s == MultivariatePromoted {
			required[i] = total
		} else {
			required[i] = integerDtype(operand).Width
		}
	}
	return required
}

// SelectMultivariate returns the first feasible strategy in preference
// order. The second result is false when no strategy fits in a table
// lookup, in which case the operation cannot be lowered at all.
func SelectMultivariate(preference []Multivariate, operands ...values.Description) (Multivariate, bool) {
	for _, s := range preference {
		if s.CanBeUsed(operands...) {
			return s, true
		}
	}
	if MultivariateCasted.CanBeUsed(operands...) {
		return MultivariateCasted, true
	}
	return MultivariateCasted, false
}
