package cache

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// 文档注释：Redis 共享存储
// 背景：多进程/多实例部署时共享缓存；值以 JSON 编码，过期交给 Redis TTL。
// 约束：客户端按需建立连接，构造时不发起网络请求，可在 fork 前创建；SET 为原子替换。
type RedisStore struct {
	rc *redis.Client
}

func NewRedisStore(rc *redis.Client) *RedisStore { return &RedisStore{rc: rc} }

func (s *RedisStore) Load(ctx context.Context, k string, dst any) (bool, error) {
	b, err := s.rc.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Save(ctx context.Context, k string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, k, b, ttl).Err()
}
