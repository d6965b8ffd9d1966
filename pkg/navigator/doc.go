// Package navigator runs redirect resolution on behalf of one client.
//
// A Navigator owns a resolver over an immutable route tree and
// serializes all resolution passes on a single goroutine. Callers hand
// it work through two entry points:
//
//   - Navigate records a new requested location and schedules a pass.
//   - Refresh schedules re-resolution of the last requested location,
//     typically wired to a refresh.Source that fires when session state
//     consulted by redirect rules changes.
//
// # Coalescing
//
// The run loop is woken through a capacity-one channel. Any burst of
// Navigate and Refresh calls arriving while a pass is in flight
// collapses into exactly one follow-up pass, resolved against the
// newest request. Each request bumps a generation counter; a pass
// publishes its outcome only if its generation is still current, so an
// in-flight pass superseded by a newer request is silently dropped
// (last-request-wins).
//
// # Results
//
// Outcomes are delivered to the OnResult callback on the navigator
// goroutine. Failed passes never replace the last good resolution;
// Current and Location keep returning the previous success.
//
// # Usage
//
//	nav := navigator.New(tree,
//	    navigator.WithRedirect(loginGate),
//	    navigator.WithSource(sessionChanged),
//	    navigator.OnResult(func(res *resolve.Resolution, err error) {
//	        // render res, or show err
//	    }),
//	)
//	nav.Start(ctx)
//	defer nav.Close()
//
//	nav.Navigate("/settings")
package navigator
