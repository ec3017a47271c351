package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := UnsupportedOperation("arctn", []string{"arctan", "arcsin", "arccos"})
	formatted := err.Format()

	// Should contain error level and code
	assert.Contains(t, formatted, "error["+ErrorUnsupportedOperation+"]")
	assert.Contains(t, formatted, "not supported")
	assert.Contains(t, formatted, "arctn")

	// Should contain suggestions
	assert.Contains(t, formatted, "did you mean")
	assert.Contains(t, formatted, "arctan")
}

func TestErrorInterface(t *testing.T) {
	err := BranchingNotAllowed()
	assert.Equal(t, ErrorBranchingNotAllowed, err.Code)
	assert.Contains(t, err.Error(), "error["+ErrorBranchingNotAllowed+"]")
	assert.Contains(t, err.Error(), "branching within circuits is not possible")
}

func TestLocationAndDetail(t *testing.T) {
	err := NewError(ErrorMultipleInputNodes, "a subgraph within the function cannot be fused").
		WithLocation("circuit.go:42").
		WithDetail("%0 = x\n%1 = y\n%2 = add(%0, %1)").
		Build()

	formatted := err.Format()
	assert.Contains(t, formatted, "--> circuit.go:42")

	// Each detail line sits behind the gutter
	for _, line := range []string{"%0 = x", "%1 = y", "%2 = add(%0, %1)"} {
		assert.True(t, strings.Contains(formatted, "│ "+line+"\n"), "missing gutter line %q", line)
	}
}

func TestUnsupportedKwarg(t *testing.T) {
	err := UnsupportedKwarg("sum", "initial", []string{"axis", "keepdims"})
	assert.Equal(t, ErrorUnsupportedKwarg, err.Code)
	assert.Contains(t, err.Message, "initial")
	assert.Len(t, err.Notes, 1)
	assert.Contains(t, err.Notes[0], "axis, keepdims")

	err = UnsupportedKwarg("negative", "axis", nil)
	assert.Contains(t, err.Notes[0], "no keyword arguments")
}

func TestFusionErrors(t *testing.T) {
	err := MultipleInputNodes("this subgraph has 2 input nodes")
	assert.Equal(t, ErrorMultipleInputNodes, err.Code)
	assert.NotEmpty(t, err.HelpText)

	err = NonFusableNode("reshape cannot be fused")
	assert.Equal(t, ErrorNonFusableNode, err.Code)

	err = ShapeMismatch("node has shape (3,) but the region starts at shape (2, 3)")
	assert.Equal(t, ErrorShapeMismatch, err.Code)
}

func TestWarningFormatting(t *testing.T) {
	err := NewWarning(ErrorNonFusableNode, "subgraph left unfused").Build()
	formatted := err.Format()

	assert.Contains(t, formatted, "warning["+ErrorNonFusableNode+"]")
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestSimilarNameFinding(t *testing.T) {
	candidates := []string{"maximum", "minimum", "matmul", "xyz"}

	similar := findSimilarNames("maxmum", candidates)
	assert.Contains(t, similar, "maximum")
	assert.NotContains(t, similar, "xyz")

	similar = findSimilarNames("verydifferent", candidates)
	assert.Empty(t, similar)
}
