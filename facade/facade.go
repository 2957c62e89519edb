// Package facade adapts engine.Engine's single blocking Submit primitive
// to the two calling conventions callers of a fieldbus client expect:
// fire-and-forget callbacks and single-slot futures. Go has no ambient
// callback-vs-promise duality the way some runtimes do, so both are
// built on top of the same blocking call rather than on two competing
// transports.
package facade

import (
	"context"

	"github.com/dkvol/gomodbus-transact/engine"
)

// Submitter is the subset of *engine.Engine that the facade needs. Tests
// substitute a fake to exercise callback/future wiring without a real
// transport.
type Submitter interface {
	Submit(ctx context.Context, req engine.SubmitRequest) (interface{}, error)
}

// ResultFunc receives the outcome of a submitted request: either a
// decoded result (one of the packet.*Result types) or an error.
type ResultFunc func(result interface{}, err error)

// Callback submits req on its own goroutine and hands the outcome to fn
// once the transaction completes, without blocking the caller. Grounded
// on the teacher's ClientHooks adapter-by-composition pattern: the
// caller supplies behavior, the facade supplies no state of its own.
func Callback(ctx context.Context, s Submitter, req engine.SubmitRequest, fn ResultFunc) {
	go func() {
		result, err := s.Submit(ctx, req)
		fn(result, err)
	}()
}

// Future is a single-slot handle to a request still in flight. It is
// the channel-based counterpart to Callback, grounded on the teacher
// poller package's Result-channel convention: a result is produced
// exactly once and Wait may be called from at most one goroutine.
type Future struct {
	done chan struct{}
	result interface{}
	err    error
}

// Submit starts req in the background and returns a Future that yields
// its outcome once Wait is called.
func Submit(ctx context.Context, s Submitter, req engine.SubmitRequest) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		f.result, f.err = s.Submit(ctx, req)
		close(f.done)
	}()
	return f
}

// Wait blocks until the future's request completes or ctx is done,
// whichever comes first. Calling Wait again after it has already
// returned a non-context error replays the same result.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done reports whether the future's request has completed.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
