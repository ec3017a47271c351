package errors

import (
	"fmt"
	"strings"
)

// ErrorBuilder provides a fluent interface for creating diagnostics with suggestions
type ErrorBuilder struct {
	err CompilerError
}

// NewError creates a new error builder
func NewError(code, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:   Error,
			Code:    code,
			Message: message,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:   Warning,
			Code:    code,
			Message: message,
		},
	}
}

// WithLocation records the call site that created the node at fault
func (b *ErrorBuilder) WithLocation(location string) *ErrorBuilder {
	b.err.Location = location
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithNote adds a note to the error
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// WithDetail attaches a rendered graph excerpt to the error
func (b *ErrorBuilder) WithDetail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Build returns the completed compiler error
func (b *ErrorBuilder) Build() CompilerError {
	return b.err
}

// Common diagnostic constructors with suggestions

// UnsupportedOperation creates an error for operations outside the traceable set
func UnsupportedOperation(name string, supported []string) CompilerError {
	builder := NewError(ErrorUnsupportedOperation, fmt.Sprintf("operation '%s' is not supported", name))

	similar := findSimilarNames(name, supported)
	if len(similar) > 0 {
		if len(similar) == 1 {
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
		} else {
			suggestions := strings.Join(similar, "', '")
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", suggestions))
		}
	}

	return builder.WithHelp("only operations from the supported set can be traced").Build()
}

// UnsupportedKwarg creates an error for keyword arguments an operation does not accept
func UnsupportedKwarg(operation, kwarg string, allowed []string) CompilerError {
	builder := NewError(ErrorUnsupportedKwarg,
		fmt.Sprintf("operation '%s' does not accept keyword argument '%s'", operation, kwarg))

	if len(allowed) > 0 {
		builder = builder.WithNote(fmt.Sprintf("accepted keyword arguments: %s", strings.Join(allowed, ", ")))
	} else {
		builder = builder.WithNote(fmt.Sprintf("operation '%s' accepts no keyword arguments", operation))
	}

	return builder.Build()
}

// BranchingNotAllowed creates the error raised when a traced value is used as a branch condition
func BranchingNotAllowed() CompilerError {
	return NewError(ErrorBranchingNotAllowed, "branching within circuits is not possible").
		WithSuggestion("replace the branch with a select, e.g. Where(condition, then, otherwise)").
		WithNote("traced values are symbolic and have no concrete truth value").
		Build()
}

// InvalidIndexing creates an error for unsupported index expressions
func InvalidIndexing(message string) CompilerError {
	return NewError(ErrorInvalidIndexing, message).
		WithHelp("indices can be integers, slices, or clear scalar traced values").
		Build()
}

// UnsupportedReturn creates an error for functions returning something other than traced values
func UnsupportedReturn(message string) CompilerError {
	return NewError(ErrorUnsupportedReturn, message).
		WithHelp("traced functions must return one or more traced values").
		Build()
}

// MultipleInputNodes creates the fatal fusion error for subgraphs with several variable inputs
func MultipleInputNodes(message string) CompilerError {
	return NewError(ErrorMultipleInputNodes, message).
		WithNote("a table lookup consumes exactly one encrypted input").
		WithHelp("rewrite the computation so the fused region depends on a single variable").
		Build()
}

// NonFusableNode creates an error for a node that blocks fusion of its subgraph
func NonFusableNode(message string) CompilerError {
	return NewError(ErrorNonFusableNode, message).
		WithNote("operations that change the shape of their input cannot be absorbed into a lookup table").
		Build()
}

// ShapeMismatch creates an error for a fused region whose nodes disagree on shape
func ShapeMismatch(message string) CompilerError {
	return NewError(ErrorShapeMismatch, message).
		WithNote("every node of a fused region must have the shape of the region's variable input").
		Build()
}

// Helper functions

func findSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create matrix
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	// Initialize first row and column
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	// Fill the matrix
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			matrix[i][j] = min3(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
