// Package refresh provides the external refresh signal a navigator
// subscribes to. Anything that can say "something changed, re-resolve
// the current location" is a Source: a session store flipping its
// logged-in flag, a feature-gate cache, a ticker.
package refresh

import "sync"

// Source is an abstract notification feed. Subscribe registers fn to
// run on every notification and returns a cancel function; cancel is
// idempotent. Implementations decide which goroutine fn runs on, so fn
// must be cheap and non-blocking — the navigator's subscription just
// schedules a pass.
type Source interface {
	Subscribe(fn func()) (cancel func())
}

// Notifier is the standard fan-out Source. The zero value is ready to
// use; it is safe for concurrent use.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// Subscribe registers fn and returns its cancel function.
func (n *Notifier) Subscribe(fn func()) (cancel func()) {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify invokes every subscriber. Subscribers are copied out first so
// no lock is held while they run and a subscriber may cancel itself.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the current subscriber count.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Channel adapts a receive channel to a Source. A goroutine per
// subscription forwards each received value as one notification; the
// subscription ends when ch closes or cancel is called.
func Channel(ch <-chan struct{}) Source {
	return channelSource{ch: ch}
}

type channelSource struct {
	ch <-chan struct{}
}

func (c channelSource) Subscribe(fn func()) (cancel func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case _, ok := <-c.ch:
				if !ok {
					return
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// Merge combines sources into one Source that notifies whenever any of
// them does. Cancelling the merged subscription cancels every child
// subscription.
func Merge(sources ...Source) Source {
	return mergedSource(sources)
}

type mergedSource []Source

func (m mergedSource) Subscribe(fn func()) (cancel func()) {
	cancels := make([]func(), 0, len(m))
	for _, src := range m {
		cancels = append(cancels, src.Subscribe(fn))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, c := range cancels {
				c()
			}
		})
	}
}
