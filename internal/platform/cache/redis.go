package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache stores JSON payloads with a jittered TTL so that hot catalog
// entries do not all expire at once.
type RedisCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached value failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cached value failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, key, payload, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// RedisSearchHistory keeps a deduplicated, capped list of recent search terms
// per shopper. The most recent term is always first.
type RedisSearchHistory struct {
	client redis.Cmdable
	limit  int
	ttl    time.Duration
}

func NewRedisSearchHistory(client redis.Cmdable, limit int) *RedisSearchHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisSearchHistory{
		client: client,
		limit:  limit,
		ttl:    30 * 24 * time.Hour,
	}
}

func (r *RedisSearchHistory) Record(ctx context.Context, shopperID, term string) error {
	key := historyKey(shopperID)
	pipe := r.client.TxPipeline()
	pipe.LRem(ctx, key, 0, term)
	pipe.LPush(ctx, key, term)
	pipe.LTrim(ctx, key, 0, int64(r.limit-1))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record search failed: %w", err)
	}
	return nil
}

func (r *RedisSearchHistory) Recent(ctx context.Context, shopperID string) ([]string, error) {
	terms, err := r.client.LRange(ctx, historyKey(shopperID), 0, int64(r.limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent searches failed: %w", err)
	}
	return terms, nil
}

func (r *RedisSearchHistory) Clear(ctx context.Context, shopperID string) error {
	if err := r.client.Del(ctx, historyKey(shopperID)).Err(); err != nil {
		return fmt.Errorf("redis clear searches failed: %w", err)
	}
	return nil
}

func historyKey(shopperID string) string {
	return fmt.Sprintf("search_history:%s", shopperID)
}

var (
	_ Cache         = (*RedisCache)(nil)
	_ SearchHistory = (*RedisSearchHistory)(nil)
)
