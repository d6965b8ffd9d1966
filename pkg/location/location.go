// Package location defines the navigation location value type shared by
// the matcher, the resolver, and the live service: a canonical absolute
// path plus an optional raw query string.
package location

import (
	"errors"
	"net/url"
	"strings"
)

// Location parse errors.
var (
	ErrEmpty        = errors.New("location: empty location")
	ErrNotRooted    = errors.New(`location: path must start with "/"`)
	ErrAbsoluteURL  = errors.New("location: absolute URLs are not navigable")
	ErrBackslash    = errors.New("location: path contains backslash")
	ErrNullByte     = errors.New("location: path contains null byte")
	ErrBadEscape    = errors.New("location: invalid percent escape sequence")
	ErrEscapesRoot  = errors.New("location: path escapes root via ..")
	ErrEncodedSlash = errors.New("location: encoded slash in path segment")
)

// Location is a navigation target: a canonical absolute path plus an
// optional query string. The zero Location is invalid; build one with
// Parse or MustParse.
type Location struct {
	path  string
	query string
}

// Parse canonicalizes raw into a Location.
//
// The path component is normalized before use:
//   - duplicate slashes collapse (/blog//post → /blog/post)
//   - "." segments are removed
//   - ".." segments resolve against their parent
//   - the trailing slash is dropped (except for root "/")
//
// The following inputs are rejected:
//   - empty strings and paths without a leading "/"
//   - absolute and protocol-relative URLs (http://…, //…)
//   - backslashes and NUL bytes (literal or %00)
//   - malformed percent escapes (%GG, trailing %2)
//   - ".." that would climb above root
//
// The query component is carried unchanged; it never participates in
// canonicalization or validation.
func Parse(raw string) (Location, error) {
	if raw == "" {
		return Location{}, ErrEmpty
	}

	// SECURITY: Reject cross-origin targets to keep redirects on-site.
	if strings.HasPrefix(raw, "http://") ||
		strings.HasPrefix(raw, "https://") ||
		strings.HasPrefix(raw, "//") {
		return Location{}, ErrAbsoluteURL
	}

	path, query, _ := strings.Cut(raw, "?")

	if !strings.HasPrefix(path, "/") {
		return Location{}, ErrNotRooted
	}

	// SECURITY: Reject backslash.
	if strings.Contains(path, `\`) {
		return Location{}, ErrBackslash
	}

	// SECURITY: Reject NUL byte (both literal and encoded).
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Location{}, ErrNullByte
	}

	if strings.Contains(path, "%") {
		if err := validateEscapes(path); err != nil {
			return Location{}, err
		}
	}

	// Collapse duplicate slashes before segment normalization.
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	segments := strings.Split(path, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(kept) == 0 {
				// SECURITY: ".." escapes root.
				return Location{}, ErrEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	return Location{path: "/" + strings.Join(kept, "/"), query: query}, nil
}

// MustParse is Parse for statically known locations; it panics on error.
func MustParse(raw string) Location {
	loc, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// Path returns the canonical path without the query component. This is
// the sub-location view that pattern matching consumes.
func (l Location) Path() string { return l.path }

// RawQuery returns the query string without the leading "?", or "" when
// the location has none.
func (l Location) RawQuery() string { return l.query }

// Full returns the complete location string, path plus query. Redirect
// traces and loop detection compare this form.
func (l Location) Full() string {
	if l.query == "" {
		return l.path
	}
	return l.path + "?" + l.query
}

// String returns Full().
func (l Location) String() string { return l.Full() }

// IsZero reports whether l was never parsed.
func (l Location) IsZero() bool { return l.path == "" }

// Equal reports whether two locations have the same full string.
func (l Location) Equal(other Location) bool { return l.Full() == other.Full() }

// Segments returns the path split into its segments, nil for root.
func (l Location) Segments() []string {
	if l.path == "" || l.path == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(l.path, "/"), "/")
}

// QueryValues parses the query into single-valued parameters. The first
// value wins when a name repeats; malformed pairs are dropped rather
// than failing the whole query. Returns nil when nothing parses.
func (l Location) QueryValues() map[string]string {
	if l.query == "" {
		return nil
	}
	values, _ := url.ParseQuery(l.query)
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for name, vs := range values {
		if len(vs) > 0 {
			out[name] = vs[0]
		}
	}
	return out
}

// SplitPathQuery splits raw at the first "?" without validating either
// component. The query is returned without the leading "?".
func SplitPathQuery(raw string) (path, query string) {
	path, query, _ = strings.Cut(raw, "?")
	return path, query
}

// DecodeSegment decodes percent escapes in one path segment bound to a
// parameter. splat permits "/" in the decoded value, for catch-all
// parameters that span segments; for single-segment parameters an
// encoded slash is rejected to prevent path smuggling.
func DecodeSegment(segment string, splat bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrBadEscape
	}
	if !splat && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlash
	}
	return decoded, nil
}

// validateEscapes checks that every percent escape in path is %XX with
// two hex digits.
func validateEscapes(path string) error {
	for i := 0; i < len(path); {
		if path[i] != '%' {
			i++
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrBadEscape
		}
		i += 3
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
