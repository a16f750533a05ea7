package idempotency

import (
	"context"
	"testing"
	"time"

	"lending-service/internal/service"
	"lending-service/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Lifecycle(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()
	r := NewRedis(client, 24*time.Hour, 30*time.Second)

	prev, err := r.Reserve(ctx, "u1:k1")
	require.NoError(t, err)
	assert.Nil(t, prev)

	_, err = r.Reserve(ctx, "u1:k1")
	assert.ErrorIs(t, err, service.ErrRequestInProgress)

	// ключ в работе живёт processing TTL, а не сутки
	ttl, err := client.TTL(ctx, r.key("u1:k1")).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 30*time.Second)
	assert.Greater(t, ttl, time.Duration(0))

	id := uuid.New()
	require.NoError(t, r.MarkSuccess(ctx, "u1:k1", id))
	ttl, err = client.TTL(ctx, r.key("u1:k1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)

	prev, err = r.Reserve(ctx, "u1:k1")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, id, *prev)

	require.NoError(t, r.MarkFailure(ctx, "u1:k2"))
	prev, err = r.Reserve(ctx, "u1:k2")
	require.NoError(t, err)
	assert.Nil(t, prev)
}
