package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// style is an ANSI escape prefix applied when color output is on.
type style string

const (
	stReset  style = "\033[0m"
	stRed    style = "\033[31m"
	stYellow style = "\033[33m"
	stBlue   style = "\033[34m"
	stCyan   style = "\033[36m"
	stWhite  style = "\033[37m"
	stGray   style = "\033[90m"
	stBold   style = "\033[1m"
)

var colorEnabled = os.Getenv("NO_COLOR") == ""

// DisableColors turns off ANSI color output.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI color output back on.
func EnableColors() { colorEnabled = true }

func (s style) apply(text string) string {
	if !colorEnabled {
		return text
	}
	return string(s) + text + string(stReset)
}

// Format renders the error for terminal display: a code-and-message
// header, then the manifest or config location with a source snippet,
// the redirect trace, the detail paragraph, the hint, the example, and
// the documentation link. Empty sections are skipped.
func (e *WayfinderError) Format() string {
	var b strings.Builder
	b.WriteByte('\n')

	if e.Code != "" {
		fmt.Fprintf(&b, "%s%s%s", stRed.apply(stBold.apply("ERROR ")),
			stWhite.apply(stBold.apply(e.Code+": ")), stWhite.apply(e.Message))
	} else {
		fmt.Fprintf(&b, "%s%s", stRed.apply(stBold.apply("ERROR: ")), stWhite.apply(e.Message))
	}
	b.WriteString("\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", stCyan.apply(e.Location.String()))
		e.writeSnippet(&b)
	}
	e.writeTrace(&b)

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", stCyan.apply("Hint: "), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", stCyan.apply("Example:"))
		for _, line := range strings.Split(e.Example, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		b.WriteByte('\n')
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", stGray.apply("Learn more: "), stBlue.apply(e.DocURL))
	}

	return b.String()
}

// writeSnippet prints the context lines around the error location with
// a gutter of line numbers, an arrow on the offending line, and a caret
// under the offending column.
func (e *WayfinderError) writeSnippet(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	first := e.Location.Line - len(e.Context)/2
	for i, line := range e.Context {
		n := first + i
		marker := "    "
		if n == e.Location.Line {
			marker = "  " + stRed.apply("→ ")
		}
		fmt.Fprintf(b, "%s%4d%s%s\n", marker, n, stGray.apply(" │ "), line)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", stGray.apply("│ "),
				strings.Repeat(" ", e.Location.Column-1), stRed.apply("^"))
		}
	}
	b.WriteByte('\n')
}

// writeTrace prints the redirect trace one hop per line. The last entry
// is the revisited location; its earlier occurrence is annotated so the
// shape of the loop is visible at a glance.
func (e *WayfinderError) writeTrace(b *strings.Builder) {
	if len(e.Trace) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s\n", stYellow.apply("Trace:"))
	repeat := e.Trace[len(e.Trace)-1]
	for i, loc := range e.Trace {
		if i == len(e.Trace)-1 {
			fmt.Fprintf(b, "    %s%s\n", stRed.apply("→ "), loc)
			continue
		}
		suffix := ""
		if loc == repeat {
			suffix = stGray.apply("  (visited again below)")
		}
		fmt.Fprintf(b, "      %s%s\n", loc, suffix)
	}
	b.WriteByte('\n')
}

// FormatCompact returns a single-line rendering suitable for logs.
func (e *WayfinderError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String()+": ")
	}
	if e.Code != "" {
		parts = append(parts, e.Code+": ")
	}
	parts = append(parts, e.Message)
	if len(e.Trace) > 0 {
		parts = append(parts, " (trace: "+strings.Join(e.Trace, " -> ")+")")
	}
	return strings.Join(parts, "")
}

// jsonError is the wire shape of FormatJSON.
type jsonError struct {
	Code       string    `json:"code,omitempty"`
	Category   Category  `json:"category"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Trace      []string  `json:"trace,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
	DocURL     string    `json:"docUrl,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *WayfinderError) FormatJSON() string {
	data, err := json.Marshal(jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Location:   e.Location,
		Trace:      e.Trace,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	})
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText greedily wraps text at word boundaries to the given width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	return append(lines, line)
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	var we *WayfinderError
	if stderrors.As(err, &we) {
		fmt.Fprint(os.Stderr, we.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s %s\n\n", stRed.apply(stBold.apply("ERROR:")), err.Error())
}
