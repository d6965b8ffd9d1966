package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the resolution failure taxonomy. Every failed
// pass returns an *Error whose Kind is one of these, so callers can
// dispatch with errors.Is.
var (
	// ErrNotFound is returned when no route matches the final location.
	ErrNotFound = errors.New("resolve: not found")

	// ErrMissingBuilder is the not-found flavor raised when a matched
	// terminal route stops redirecting but has no builder to land on.
	// It matches ErrNotFound under errors.Is.
	ErrMissingBuilder = fmt.Errorf("%w: matched route has no builder", ErrNotFound)

	// ErrRedirectLimit is returned when a pass takes more redirects
	// than the configured limit allows.
	ErrRedirectLimit = errors.New("resolve: redirect limit exceeded")

	// ErrRedirectLoop is returned when a redirect target repeats a
	// location already visited in the same pass.
	ErrRedirectLoop = errors.New("resolve: redirect loop detected")

	// ErrRule is returned when an application redirect rule panics or
	// produces an unusable target.
	ErrRule = errors.New("resolve: redirect rule failed")
)

// Error describes a failed resolution pass. Failures are terminal for
// their pass; nothing is retried and no partial match stack is ever
// attached.
type Error struct {
	// Kind is the failure sentinel: ErrNotFound, ErrMissingBuilder,
	// ErrRedirectLimit, ErrRedirectLoop, or ErrRule.
	Kind error

	// Location is the location under resolution when the pass failed.
	// For loop and limit failures it is the rejected redirect target.
	Location string

	// Rule identifies the failing redirect rule when Kind is ErrRule:
	// "global", or the route's full template path.
	Rule string

	// Trace is the ordered list of locations visited during the pass,
	// ending at Location.
	Trace []string

	// Err is the underlying cause, if any: the recovered panic value
	// of a rule, or the parse error of a bad redirect target.
	Err error

	// Stack is the goroutine stack captured when a rule panicked.
	Stack []byte
}

// Error returns the failure message with rule, location, and trace
// context.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Rule != "" {
		fmt.Fprintf(&b, " (rule %s)", e.Rule)
	}
	if e.Location != "" {
		b.WriteString(": ")
		b.WriteString(e.Location)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Trace) > 1 {
		fmt.Fprintf(&b, " (trace: %s)", strings.Join(e.Trace, " -> "))
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and the underlying cause to
// errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns a short stable label for a resolution failure, suitable
// for metrics and wire messages: "not_found", "redirect_limit",
// "redirect_loop", "rule", "canceled", or "internal". The empty string
// is returned for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRedirectLimit):
		return "redirect_limit"
	case errors.Is(err, ErrRedirectLoop):
		return "redirect_loop"
	case errors.Is(err, ErrRule):
		return "rule"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// Trace extracts the resolution trace from a failed pass, nil when err
// carries none.
func Trace(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Trace
	}
	return nil
}
