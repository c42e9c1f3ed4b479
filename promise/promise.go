// Package promise implements the eventual-value type used for promises in
// the passable value model and for remote gateways.
//
// A Promise settles at most once, either fulfilled with a value or rejected
// with an error. Waiters block on a done channel, the same way a process
// result is awaited in the VM.
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadySettled is returned when resolving or rejecting a settled promise.
var ErrAlreadySettled = errors.New("promise: already settled")

// State reports whether a promise has settled and how.
type State int

const (
	Pending State = iota
	Fulfilled
	Rejected
)

func (s State) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Promise is a single-assignment eventual value. The zero value is not
// usable; create promises with New, Resolved or RejectedWith.
type Promise struct {
	mu        sync.Mutex
	done      chan struct{}
	state     State
	following bool // resolved to another promise, awaiting its outcome
	value     any
	reason    error
}

// Kit bundles a promise with its resolving functions.
type Kit struct {
	Promise *Promise
	Resolve func(v any) error
	Reject  func(err error) error
}

// New returns a pending promise.
func New() *Promise {
	return &Promise{done: make(chan struct{})}
}

// NewKit returns a pending promise together with functions that settle it.
func NewKit() Kit {
	p := New()
	return Kit{Promise: p, Resolve: p.Resolve, Reject: p.Reject}
}

// Resolved returns a promise already fulfilled with v.
func Resolved(v any) *Promise {
	p := New()
	_ = p.Resolve(v)
	return p
}

// RejectedWith returns a promise already rejected with err.
func RejectedWith(err error) *Promise {
	p := New()
	_ = p.Reject(err)
	return p
}

// Go runs fn on its own goroutine and returns a promise for its outcome.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Promise {
	p := New()
	go func() {
		v, err := fn(ctx)
		if err != nil {
			_ = p.Reject(err)
			return
		}
		_ = p.Resolve(v)
	}()
	return p
}

// Resolve fulfills the promise with v. Resolving with another promise
// adopts that promise's eventual outcome.
func (p *Promise) Resolve(v any) error {
	if other, ok := v.(*Promise); ok {
		if other == p {
			return p.Reject(errors.New("promise: cannot resolve a promise with itself"))
		}
		p.mu.Lock()
		if p.state != Pending || p.following {
			p.mu.Unlock()
			return ErrAlreadySettled
		}
		p.following = true
		p.mu.Unlock()
		go func() {
			select {
			case <-other.done:
			case <-p.done:
				return
			}
			val, err := other.Result()
			if err != nil {
				_ = p.settle(Rejected, nil, err, true)
				return
			}
			_ = p.settle(Fulfilled, val, nil, true)
		}()
		return nil
	}
	return p.settle(Fulfilled, v, nil, false)
}

// Reject rejects the promise with err. A nil err is replaced by a generic
// rejection reason so that Wait always reports failure. Reject also wins
// over a pending adoption started by Resolve.
func (p *Promise) Reject(err error) error {
	if err == nil {
		err = errors.New("promise: rejected")
	}
	return p.settle(Rejected, nil, err, false)
}

func (p *Promise) settle(state State, v any, err error, adopted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Pending || (p.following && !adopted && state != Rejected) {
		return ErrAlreadySettled
	}
	p.state = state
	p.value = v
	p.reason = err
	close(p.done)
	return nil
}

// Done returns a channel that is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// State returns the current settlement state.
func (p *Promise) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Result returns the settled value or rejection reason without blocking.
// A pending promise reports (nil, nil).
func (p *Promise) Result() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.reason
}

// Wait blocks until the promise settles or ctx is done.
func (p *Promise) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}
