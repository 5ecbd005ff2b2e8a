package cache

import (
	"container/list"
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// 文档注释：进程内 TTL LRU 存储
// 背景：单进程部署或未启用 Redis 时使用；容量满时淘汰最久未访问的条目。
// 约束：按引用保存值，调用方不得修改缓存返回的值；Now 可替换以便测试。
type MemoryStore struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[string]*list.Element
	Now  func() time.Time
}

type kv struct {
	k   string
	v   any
	exp time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryStore{cap: capacity, lst: list.New(), dict: make(map[string]*list.Element), Now: time.Now}
}

func (c *MemoryStore) Load(_ context.Context, k string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.dict[k]
	if !ok {
		return false, nil
	}
	it := e.Value.(kv)
	if !c.Now().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, k)
		return false, nil
	}
	d := reflect.ValueOf(dst)
	if d.Kind() != reflect.Pointer || d.IsNil() {
		return false, fmt.Errorf("cache: dst must be a non-nil pointer")
	}
	v := reflect.ValueOf(it.v)
	if !v.Type().AssignableTo(d.Elem().Type()) {
		return false, fmt.Errorf("cache: type mismatch for %s: %s", k, v.Type())
	}
	d.Elem().Set(v)
	c.lst.MoveToFront(e)
	return true, nil
}

func (c *MemoryStore) Save(_ context.Context, k string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := kv{k: k, v: v, exp: c.Now().Add(ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return nil
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(kv).k)
		c.lst.Remove(back)
	}
	return nil
}

// Len：当前条目数（含尚未清理的过期条目）
func (c *MemoryStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
