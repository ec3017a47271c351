package errors

// Error codes for the lutra front end.
// These codes are used in error messages and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// T0001-T0099: Tracing errors
// F0001-F0099: Fusion errors
const (
	// T0001: Operation outside the supported set
	ErrorUnsupportedOperation = "T0001"

	// T0002: Supported operation used with an unsupported keyword argument
	ErrorUnsupportedKwarg = "T0002"

	// T0003: Boolean coercion of a traced value
	ErrorBranchingNotAllowed = "T0003"

	// T0004: Invalid indexing expression
	ErrorInvalidIndexing = "T0004"

	// T0005: Traced function returned an unsupported value
	ErrorUnsupportedReturn = "T0005"

	// F0001: Subgraph that needs fusion has multiple variable input nodes
	ErrorMultipleInputNodes = "F0001"

	// F0002: Subgraph that needs fusion contains a non-fusable node
	ErrorNonFusableNode = "F0002"

	// F0003: Subgraph node shape differs from the subgraph's input node
	ErrorShapeMismatch = "F0003"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	descriptions := map[string]string{
		ErrorUnsupportedOperation: "Operation is not in the supported set",
		ErrorUnsupportedKwarg:     "Keyword argument is not supported for this operation",
		ErrorBranchingNotAllowed:  "Branching on traced values is not possible",
		ErrorInvalidIndexing:      "Indexing expression is not valid",
		ErrorUnsupportedReturn:    "Traced function returned an unsupported value",
		ErrorMultipleInputNodes:   "Subgraph has multiple variable input nodes",
		ErrorNonFusableNode:       "Subgraph contains a node marked as non-fusable",
		ErrorShapeMismatch:        "Subgraph node shape differs from the input node",
	}

	if desc, exists := descriptions[code]; exists {
		return desc
	}
	return "Unknown error code"
}
