package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolExecutor_ExecutePropagatesAcquireError(t *testing.T) {
	pool := &fakePgxPool{acquireErr: errors.New("pool exhausted")}
	exec := &PoolExecutor{pool: pool}

	_, err := exec.Execute(context.Background(), "SELECT 1", nil, Options{})
	assert.EqualError(t, err, "pool exhausted")
}

func TestPoolExecutor_DeriveSessionPropagatesAcquireError(t *testing.T) {
	pool := &fakePgxPool{acquireErr: errors.New("pool exhausted")}
	exec := &PoolExecutor{pool: pool}

	_, err := exec.DeriveSession(context.Background())
	assert.EqualError(t, err, "pool exhausted")
}

func TestPoolExecutor_CloseClosesPoolRegardlessOfDestroyFlag(t *testing.T) {
	for _, destroy := range []bool{true, false} {
		pool := &fakePgxPool{}
		exec := &PoolExecutor{pool: pool}

		err := exec.Close(context.Background(), destroy)
		require.NoError(t, err)
		assert.True(t, pool.closed)
	}
}
