// Package errors provides structured, actionable error messages for Wayfinder.
//
// The errors package implements an error system that:
//   - Shows exact file locations in manifests and configs (file, line, column)
//   - Carries the redirect trace of a failed resolution pass
//   - Explains what went wrong in plain language
//   - Suggests how to fix issues with configuration examples
//   - Links to documentation for deeper understanding
//
// # Error Categories
//
// Errors are organized into categories:
//   - resolve: Resolution failures (no match, loop, limit, rule panic)
//   - manifest: Route manifest errors (bad JSON, bad templates, bad targets)
//   - protocol: Wire protocol errors (invalid messages, rejected origins)
//   - validation: Route tree validation errors
//   - config: wayfinder.json errors
//   - cli: Command-line usage errors
//
// # Error Codes
//
// Each error has a unique code (e.g., "E003") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E003").
//	    WithTrace([]string{"/", "/foo", "/"}).
//	    WithSuggestion("Make one of the two rules stop deferring to the other")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E003: Redirect loop detected
//	//
//	//   Trace:
//	//       /  (visited again below)
//	//       /foo
//	//     → /
//	//
//	//   Hint: Make one of the two rules stop deferring to the other
//	//
//	//   Learn more: https://wayfinder.dev/docs/errors/E003
package errors
