package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// CompilerError represents a structured diagnostic with suggestions and context.
// Tracing and fusion diagnostics point at graph nodes rather than source spans,
// so Location carries the call site that created the offending node and Detail
// carries a rendered view of the computation graph with the node highlighted.
type CompilerError struct {
	Level       ErrorLevel
	Code        string       // Error code like T0001
	Message     string       // Primary error message
	Location    string       // Call site of the node at fault, file:line
	Suggestions []Suggestion // Suggested fixes
	Notes       []string     // Additional context notes
	HelpText    string       // Help text for the error
	Detail      string       // Rendered graph excerpt with the fault highlighted
}

// Suggestion represents a suggested fix
type Suggestion struct {
	Message string
}

// At returns a copy of the error pointing at the given call site.
func (e CompilerError) At(location string) CompilerError {
	e.Location = location
	return e
}

// WithDetail returns a copy of the error carrying a rendered graph
// excerpt.
func (e CompilerError) WithDetail(detail string) CompilerError {
	e.Detail = detail
	return e
}

// Error implements the error interface with the plain header line.
func (e CompilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Level, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Level, e.Message)
}

// Format renders the diagnostic with Rust-like styling.
func (e CompilerError) Format() string {
	var result strings.Builder

	levelColor := getLevelColor(e.Level)
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[T0001]: message
	if e.Code != "" {
		result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
			levelColor(string(e.Level)), e.Code, e.Message))
	} else {
		result.WriteString(fmt.Sprintf("%s: %s\n",
			levelColor(string(e.Level)), e.Message))
	}

	indent := "   "

	// Location line: --> filename:line
	if e.Location != "" {
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("-->"), e.Location))
	}

	// Graph excerpt, every line behind the gutter
	if e.Detail != "" {
		result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))
		for _, line := range strings.Split(strings.TrimRight(e.Detail, "\n"), "\n") {
			result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), line))
		}
	}

	if len(e.Suggestions) > 0 {
		result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))
		suggestionColor := color.New(color.FgCyan).SprintFunc()
		for i, suggestion := range e.Suggestions {
			if i == 0 {
				result.WriteString(fmt.Sprintf("%s %s %s: %s\n",
					indent, suggestionColor("help"), suggestionColor("try"), suggestion.Message))
			} else {
				result.WriteString(fmt.Sprintf("%s %s %s\n",
					indent, suggestionColor("    "), suggestion.Message))
			}
		}
	}

	for _, note := range e.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("│"), noteColor("note:"), note))
	}

	if e.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("│"), helpColor("help:"), e.HelpText))
	}

	result.WriteString("\n")
	return result.String()
}

// getLevelColor returns the appropriate color function for an error level
func getLevelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
