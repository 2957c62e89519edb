package facade_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkvol/gomodbus-transact/engine"
	"github.com/dkvol/gomodbus-transact/facade"
)

type fakeSubmitter struct {
	delay  time.Duration
	result interface{}
	err    error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req engine.SubmitRequest) (interface{}, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func TestCallback_DeliversResultAsynchronously(t *testing.T) {
	s := &fakeSubmitter{delay: 5 * time.Millisecond, result: 42}

	resCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)
	facade.Callback(context.Background(), s, engine.SubmitRequest{}, func(result interface{}, err error) {
		resCh <- result
		errCh <- err
	})

	select {
	case res := <-resCh:
		assert.Equal(t, 42, res)
		require.NoError(t, <-errCh)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

func TestFuture_WaitReturnsOutcome(t *testing.T) {
	s := &fakeSubmitter{delay: 5 * time.Millisecond, result: "ok"}

	f := facade.Submit(context.Background(), s, engine.SubmitRequest{})
	assert.False(t, f.Done())

	result, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, f.Done())
}

func TestFuture_WaitRespectsCallerContext(t *testing.T) {
	s := &fakeSubmitter{delay: 50 * time.Millisecond, result: "ok"}

	f := facade.Submit(context.Background(), s, engine.SubmitRequest{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_PropagatesSubmitError(t *testing.T) {
	wantErr := errors.New("boom")
	s := &fakeSubmitter{err: wantErr}

	f := facade.Submit(context.Background(), s, engine.SubmitRequest{})
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, wantErr)
}
