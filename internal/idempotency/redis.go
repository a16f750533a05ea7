package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lending-service/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:create_reservation:"

type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	processing time.Duration
}

var _ service.IdempotencyStore = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl, processing time.Duration) *Redis {
	ttl, processing = ttls(ttl, processing)
	return &Redis{client: client, ttl: ttl, processing: processing}
}

func (r *Redis) key(k string) string { return keyPrefix + k }

func (r *Redis) Reserve(ctx context.Context, key string) (*uuid.UUID, error) {
	k := r.key(key)
	raw, _ := json.Marshal(state{Status: statusProcessing})

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// SET NX: ключ занимает первый запрос
		_, err := r.client.SetArgs(ctx, k, raw, redis.SetArgs{Mode: "NX", TTL: r.processing}).Result()
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis set: %w", err)
		}

		data, err := r.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// ключ истёк между SET и GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}

		var st state
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("redis unmarshal: %w", err)
		}
		switch st.Status {
		case statusSuccess:
			if st.ReservationID != nil {
				return st.ReservationID, nil
			}
		case statusProcessing:
			return nil, service.ErrRequestInProgress
		}
		// непонятное состояние: сбрасываем и пробуем занять заново
		if err := r.client.Del(ctx, k).Err(); err != nil {
			return nil, fmt.Errorf("redis del: %w", err)
		}
	}
}

func (r *Redis) MarkSuccess(ctx context.Context, key string, reservationID uuid.UUID) error {
	raw, err := json.Marshal(state{Status: statusSuccess, ReservationID: &reservationID})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), raw, r.ttl).Err()
}

func (r *Redis) MarkFailure(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
