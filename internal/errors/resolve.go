package errors

import (
	"github.com/wayfinder-dev/wayfinder/pkg/resolve"
)

// resolveCodes maps resolution failure kinds to registered error codes.
var resolveCodes = map[string]string{
	"not_found":      "E001",
	"redirect_limit": "E002",
	"redirect_loop":  "E003",
	"rule":           "E004",
	"canceled":       "E005",
}

// FromResolve converts a failed resolution pass into a coded error,
// carrying the pass trace along for display. Nil stays nil; errors
// with no registered kind fall back to a plain wrapped E001.
func FromResolve(err error) *WayfinderError {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WayfinderError); ok {
		return we
	}

	code, ok := resolveCodes[resolve.Kind(err)]
	if !ok {
		code = "E001"
	}
	return New(code).
		WithDetail(err.Error()).
		WithTrace(resolve.Trace(err)).
		Wrap(err)
}
