package cache

import (
	"context"
	"testing"
	"time"

	"lending-service/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisClient_InvalidateBumpsGeneration(t *testing.T) {
	rdb := testutil.SetupTestRedis(t)
	c, err := NewRedisClient(rdb.Options().Addr, "", 0, time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	itemID := uuid.New()

	gen, err := c.Generation(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Set(ctx, itemID, "0:2025-05-01:60", []byte(`{"days":60}`)))
	val, ok, err := c.Get(ctx, itemID, "0:2025-05-01:60")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"days":60}`, string(val))

	require.NoError(t, c.Invalidate(ctx, itemID))
	gen, err = c.Generation(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	_, ok, err = c.Get(ctx, itemID, "0:2025-05-01:60")
	require.NoError(t, err)
	assert.False(t, ok)

	// запоздавшая запись старого поколения не видна под новым
	require.NoError(t, c.Set(ctx, itemID, "0:2025-05-01:60", []byte(`{"days":60}`)))
	_, ok, err = c.Get(ctx, itemID, "1:2025-05-01:60")
	require.NoError(t, err)
	assert.False(t, ok)
}
