package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "magicyan:artifact:"

// RedisStore 把产物放进 Redis，令多实例部署共享取件令牌。
// 过期交给 Redis 的键 TTL，无需清扫任务。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 产物缓存。
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

type redisEntry struct {
	Bytes     []byte    `json:"bytes"`
	MIMEType  string    `json:"mimeType"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *RedisStore) Put(ctx context.Context, token string, entry Entry) error {
	payload, err := json.Marshal(redisEntry{
		Bytes:     entry.Bytes,
		MIMEType:  entry.MIMEType,
		Filename:  entry.Filename,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal artifact entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Entry, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("fetch artifact: %w", err)
	}
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode artifact entry: %w", err)
	}
	return Entry{
		Bytes:     e.Bytes,
		MIMEType:  e.MIMEType,
		Filename:  e.Filename,
		CreatedAt: e.CreatedAt,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
