package bench

import "sync"

// abortChannel is a single-producer, multi-consumer one-shot broadcast.
// Signalling closes the underlying channel, so every receiver bound to this
// instance observes the abort, including receivers subscribing afterwards.
//
// Each benchmark run constructs a fresh abortChannel and replaces the shared
// one; receivers bound to the superseded instance keep observing their own
// channel, so a signal published on it before the replacement still reaches
// them, while a later AbortCurrentTest signals only the new instance.
type abortChannel struct {
	ch   chan struct{}
	once sync.Once
}

func newAbortChannel() *abortChannel {
	return &abortChannel{ch: make(chan struct{})}
}

// Signal broadcasts the abort. Idempotent.
func (a *abortChannel) Signal() {
	a.once.Do(func() { close(a.ch) })
}

// Done returns the receiver channel. It is closed once Signal has been called.
func (a *abortChannel) Done() <-chan struct{} {
	return a.ch
}
