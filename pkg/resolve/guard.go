package resolve

import "github.com/wayfinder-dev/wayfinder/pkg/location"

// loopGuard tracks the locations one resolution pass has visited and
// decides whether another redirect may be taken. A pass owns exactly
// one guard; it is discarded when the pass ends.
type loopGuard struct {
	limit   int
	visited []string
}

func newLoopGuard(limit int) *loopGuard {
	return &loopGuard{limit: limit}
}

// record registers that the pass is leaving current for target. The
// cycle check runs before the limit check so a true loop is reported as
// a loop even when it would also blow the limit.
//
// The limit law: a pass taking k redirects succeeds iff k < limit.
func (g *loopGuard) record(current, target location.Location) error {
	g.visited = append(g.visited, current.Full())

	full := target.Full()
	for _, seen := range g.visited {
		if seen == full {
			return &Error{
				Kind:     ErrRedirectLoop,
				Location: full,
				Trace:    g.traceTo(full),
			}
		}
	}

	if len(g.visited) >= g.limit {
		return &Error{
			Kind:     ErrRedirectLimit,
			Location: full,
			Trace:    g.traceTo(full),
		}
	}
	return nil
}

// steps returns how many redirects the pass has taken so far.
func (g *loopGuard) steps() int { return len(g.visited) }

// traceTo returns the visited locations plus the place the pass ended,
// as a fresh slice safe to attach to an error.
func (g *loopGuard) traceTo(last string) []string {
	trace := make([]string, 0, len(g.visited)+1)
	trace = append(trace, g.visited...)
	return append(trace, last)
}
