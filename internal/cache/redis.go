package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lending-service/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ service.AvailabilityCache = (*RedisClient)(nil)

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return &RedisClient{
		client: rdb,
		ttl:    ttl,
		log:    log,
	}, nil
}

// Client: общий клиент для хранилища ключей идемпотентности
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Карта доступности: один hash на товар, поле "поколение:сегодня:дней".
// Счётчик поколения хранится без TTL.
func availabilityKey(itemID uuid.UUID) string {
	return fmt.Sprintf("availability:%s", itemID)
}

func generationKey(itemID uuid.UUID) string {
	return fmt.Sprintf("availability:%s:gen", itemID)
}

func (r *RedisClient) Generation(ctx context.Context, itemID uuid.UUID) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisClient) Get(ctx context.Context, itemID uuid.UUID, field string) ([]byte, bool, error) {
	val, err := r.client.HGet(ctx, availabilityKey(itemID), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisClient) Set(ctx context.Context, itemID uuid.UUID, field string, val []byte) error {
	key := availabilityKey(itemID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, field, val)
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisClient) Invalidate(ctx context.Context, itemID uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, generationKey(itemID))
	pipe.Del(ctx, availabilityKey(itemID))
	_, err := pipe.Exec(ctx)
	return err
}
