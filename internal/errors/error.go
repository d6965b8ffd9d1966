package errors

import (
	"fmt"
	"os"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryResolve    Category = "resolve"
	CategoryManifest   Category = "manifest"
	CategoryProtocol   Category = "protocol"
	CategoryValidation Category = "validation"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// Location represents a position in a configuration or manifest file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String renders the location as file:line or file:line:column.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	s := fmt.Sprintf("%s:%d", l.File, l.Line)
	if l.Column > 0 {
		s = fmt.Sprintf("%s:%d", s, l.Column)
	}
	return s
}

// WayfinderError is a structured error with file location, redirect
// trace, suggestions, and documentation.
type WayfinderError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (resolve, manifest, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred.
	Location *Location

	// Context contains surrounding file lines.
	Context []string

	// Trace is the sequence of locations a failed resolution pass
	// visited, in order.
	Trace []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is configuration showing the correct approach.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *WayfinderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *WayfinderError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *WayfinderError) WithLocation(file string, line, column int) *WayfinderError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithLocationFromOffset converts a byte offset into data, as reported
// by a JSON decoder, into a line and column position in file.
func (e *WayfinderError) WithLocationFromOffset(file string, data []byte, offset int64) *WayfinderError {
	if offset <= 0 || offset > int64(len(data)) {
		return e
	}
	line, col := 1, 1
	for _, b := range data[:offset-1] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return e.WithLocation(file, line, col)
}

// WithTrace records the locations a failed resolution pass visited.
func (e *WayfinderError) WithTrace(trace []string) *WayfinderError {
	e.Trace = trace
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *WayfinderError) WithSuggestion(s string) *WayfinderError {
	e.Suggestion = s
	return e
}

// WithExample adds a configuration example to the error.
func (e *WayfinderError) WithExample(ex string) *WayfinderError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *WayfinderError) WithDetail(d string) *WayfinderError {
	e.Detail = d
	return e
}

// WithContext adds custom context lines to the error.
func (e *WayfinderError) WithContext(lines []string) *WayfinderError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *WayfinderError) Wrap(err error) *WayfinderError {
	e.Wrapped = err
	return e
}

// readContextLines returns the window of lines around target (1-based)
// from filename, or nil if the file cannot be read.
func readContextLines(filename string, target, window int) []string {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lo := max(target-window/2, 1)
	hi := min(target+window/2, len(all))
	if lo > hi {
		return nil
	}
	return all[lo-1 : hi]
}

// New creates a WayfinderError from a registered error code.
func New(code string) *WayfinderError {
	template, ok := registry[code]
	if !ok {
		return &WayfinderError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &WayfinderError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new WayfinderError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *WayfinderError {
	return &WayfinderError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a WayfinderError.
func FromError(err error, code string) *WayfinderError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WayfinderError); ok {
		return we
	}
	return New(code).Wrap(err)
}
