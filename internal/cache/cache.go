// 包 cache：概览查询的记忆化缓存（按键 + TTL），支持进程内与 Redis 共享两种存储
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cubedash/internal/logger"
	"cubedash/internal/metrics"
)

// Store：缓存存储契约
// 约束：同一键的替换是原子的；Load 命中时把值写入 dst（指向 Entry[T] 的指针）；过期条目视为未命中。
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Entry：缓存值包装，Present=false 表示缓存的“无结果”
type Entry[T any] struct {
	Present bool `json:"present"`
	Value   T    `json:"value"`
}

// Key：查询名 + 位置参数；Limit 仅足迹列表查询使用
type Key struct {
	Query   string
	Product string
	Year    *int
	Month   *int
	Day     *int
	Limit   int
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Query)
	b.WriteByte(':')
	b.WriteString(k.Product)
	for _, v := range []*int{k.Year, k.Month, k.Day} {
		b.WriteByte(':')
		if v == nil {
			b.WriteByte('-')
		} else {
			fmt.Fprintf(&b, "%d", *v)
		}
	}
	if k.Limit > 0 {
		fmt.Fprintf(&b, ":%d", k.Limit)
	}
	return b.String()
}

// 文档注释：记忆化缓存
// 背景：摊销几何计算的开销；进程级构造一次后注入各查询。
// 约束：过期仅按时间，无显式失效；同一键并发未命中可能重复计算（不做 single-flight）。
type Cache struct {
	store  Store
	prefix string
}

func New(store Store, prefix string) *Cache {
	return &Cache{store: store, prefix: prefix}
}

// 文档注释：取值或计算
// 背景：TTL 内命中直接返回，不调用 compute；未命中或过期时调用 compute 并缓存结果（包括“无结果”）。
// 约束：compute 的错误原样返回且不缓存；存储读写失败只记录日志并退化为直接计算。
func GetOrCompute[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, compute func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	k := c.prefix + key.String()
	var e Entry[T]
	ok, err := c.store.Load(ctx, k, &e)
	if err != nil {
		logger.L().Warn("cache_load_error", "key", k, "err", err)
	}
	if ok {
		metrics.CacheHitsTotal.WithLabelValues(key.Query).Inc()
		return e.Value, e.Present, nil
	}
	metrics.CacheMissesTotal.WithLabelValues(key.Query).Inc()
	start := time.Now()
	v, present, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	metrics.ComputeDurationMs.WithLabelValues(key.Query).Observe(float64(time.Since(start).Milliseconds()))
	if err := c.store.Save(ctx, k, Entry[T]{Present: present, Value: v}, ttl); err != nil {
		logger.L().Warn("cache_save_error", "key", k, "err", err)
	}
	return v, present, nil
}
