package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/budgetgate/types"
)

func TestMemoryLimiter_Burst(t *testing.T) {
	ml := NewMemoryLimiter(types.Rate{Period: time.Hour, Limit: 3})
	defer ml.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := ml.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}
	ok, err := ml.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = ml.Allow(ctx, "203.0.113.8")
	assert.True(t, ok, "keys are independent")
}

func TestMemoryLimiter_Reset(t *testing.T) {
	ml := NewMemoryLimiter(types.Rate{Period: time.Hour, Limit: 1})
	defer ml.Close()
	ctx := context.Background()

	ok, _ := ml.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = ml.Allow(ctx, "k")
	require.False(t, ok)

	require.NoError(t, ml.Reset(ctx, "k"))
	ok, _ = ml.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryLimiter_RemoveIdle(t *testing.T) {
	ml := NewMemoryLimiter(types.Rate{Period: time.Minute, Limit: 2})
	defer ml.Close()
	ctx := context.Background()

	_, _ = ml.Allow(ctx, "a")
	_, _ = ml.Allow(ctx, "b")
	require.Equal(t, 2, ml.Len())

	ml.removeIdle(time.Now())
	assert.Equal(t, 2, ml.Len())

	ml.removeIdle(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, ml.Len())
}

func TestMemoryLimiter_CloseTwice(t *testing.T) {
	ml := NewMemoryLimiter(types.Rate{})
	assert.NoError(t, ml.Close())
	assert.NoError(t, ml.Close())
}
