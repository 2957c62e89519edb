package poller_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkvol/gomodbus-transact/poller"
)

func TestNewSingleConnectionPerAddressClientFunc_ReusesClientForSameAddress(t *testing.T) {
	var connectCount int32

	clientFunc := poller.NewSingleConnectionPerAddressClientFunc(func(ctx context.Context, address string) (poller.Client, error) {
		atomic.AddInt32(&connectCount, 1)
		return &fakeClient{}, nil
	})

	ctx := context.Background()
	client1, err := clientFunc(ctx, "tcp://plc:502")
	require.NoError(t, err)
	client2, err := clientFunc(ctx, "tcp://plc:502")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&connectCount))

	require.NoError(t, client1.Close())
	_, err = clientFunc(ctx, "tcp://plc:502")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&connectCount))

	_ = client2
}
