package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func intp(v int) *int { return &v }

func TestKeyString(t *testing.T) {
	cases := []struct {
		k    Key
		want string
	}{
		{Key{Query: "summary", Product: "ls8"}, "summary:ls8:-:-:-"},
		{Key{Query: "summary", Product: "ls8", Year: intp(2018), Month: intp(3)}, "summary:ls8:2018:3:-"},
		{Key{Query: "datasets", Product: "ls8", Year: intp(2018), Month: intp(3), Day: intp(9), Limit: 500}, "datasets:ls8:2018:3:9:500"},
		{Key{Query: "last_updated"}, "last_updated::-:-:-"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Fatalf("got %q want %q", got, c.want)
		}
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func counter(calls *int, v string, present bool) func(context.Context) (string, bool, error) {
	return func(context.Context) (string, bool, error) {
		*calls++
		return v, present, nil
	}
}

func TestGetOrComputeHitAndExpiry(t *testing.T) {
	clk := &clock{now: time.Unix(1000, 0)}
	ms := NewMemoryStore(16)
	ms.Now = clk.Now
	c := New(ms, "t:")
	ctx := context.Background()
	k := Key{Query: "summary", Product: "ls8"}

	calls := 0
	v1, ok1, err := GetOrCompute(ctx, c, k, time.Minute, counter(&calls, "a", true))
	if err != nil || !ok1 || v1 != "a" {
		t.Fatalf("first call: %q %v %v", v1, ok1, err)
	}
	v2, ok2, _ := GetOrCompute(ctx, c, k, time.Minute, counter(&calls, "b", true))
	if calls != 1 || v2 != v1 || ok2 != ok1 {
		t.Fatalf("expected cached value without recompute: calls=%d v=%q", calls, v2)
	}

	clk.now = clk.now.Add(61 * time.Second)
	v3, _, _ := GetOrCompute(ctx, c, k, time.Minute, counter(&calls, "b", true))
	if calls != 2 || v3 != "b" {
		t.Fatalf("expected recompute after expiry: calls=%d v=%q", calls, v3)
	}
}

func TestGetOrComputeNegativeCaching(t *testing.T) {
	c := New(NewMemoryStore(16), "")
	ctx := context.Background()
	k := Key{Query: "regions", Product: "none"}
	calls := 0
	for i := 0; i < 3; i++ {
		_, ok, err := GetOrCompute(ctx, c, k, time.Minute, counter(&calls, "", false))
		if err != nil || ok {
			t.Fatalf("expected absence, got %v %v", ok, err)
		}
	}
	if calls != 1 {
		t.Fatalf("absent result should be cached, calls=%d", calls)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(NewMemoryStore(16), "")
	ctx := context.Background()
	k := Key{Query: "summary", Product: "broken"}
	boom := errors.New("backend down")
	calls := 0
	fail := func(context.Context) (string, bool, error) { calls++; return "", false, boom }
	for i := 0; i < 2; i++ {
		if _, _, err := GetOrCompute(ctx, c, k, time.Minute, fail); !errors.Is(err, boom) {
			t.Fatalf("error must propagate unchanged, got %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("errors must not be cached, calls=%d", calls)
	}
}

func TestGetOrComputeDistinctKeys(t *testing.T) {
	c := New(NewMemoryStore(16), "")
	ctx := context.Background()
	calls := 0
	for _, y := range []int{2017, 2018, 2017} {
		k := Key{Query: "summary", Product: "ls8", Year: intp(y)}
		_, _, _ = GetOrCompute(ctx, c, k, time.Minute, counter(&calls, "x", true))
	}
	if calls != 2 {
		t.Fatalf("expected one computation per distinct key, calls=%d", calls)
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	ms := NewMemoryStore(2)
	ctx := context.Background()
	_ = ms.Save(ctx, "a", Entry[int]{Present: true, Value: 1}, time.Minute)
	_ = ms.Save(ctx, "b", Entry[int]{Present: true, Value: 2}, time.Minute)
	var e Entry[int]
	if ok, _ := ms.Load(ctx, "a", &e); !ok || e.Value != 1 {
		t.Fatalf("expected a")
	}
	_ = ms.Save(ctx, "c", Entry[int]{Present: true, Value: 3}, time.Minute)
	if ok, _ := ms.Load(ctx, "b", &e); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	if ms.Len() != 2 {
		t.Fatalf("len %d", ms.Len())
	}
	var wrong Entry[string]
	if _, err := ms.Load(ctx, "a", &wrong); err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

type payload struct {
	Name  string         `json:"name"`
	Count map[string]int `json:"count"`
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	c := New(NewRedisStore(rc), "cubedash:")
	ctx := context.Background()
	k := Key{Query: "summary", Product: "ls8", Year: intp(2019)}

	calls := 0
	compute := func(context.Context) (*payload, bool, error) {
		calls++
		return &payload{Name: "ls8", Count: map[string]int{"a": 2}}, true, nil
	}
	v1, _, err := GetOrCompute(ctx, c, k, time.Minute, compute)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !mr.Exists("cubedash:summary:ls8:2019:-:-") {
		t.Fatalf("expected key in redis, have %v", mr.Keys())
	}
	v2, ok, err := GetOrCompute(ctx, c, k, time.Minute, compute)
	if err != nil || !ok || calls != 1 {
		t.Fatalf("expected redis hit: calls=%d ok=%v err=%v", calls, ok, err)
	}
	if v2.Name != v1.Name || v2.Count["a"] != 2 {
		t.Fatalf("decoded value mismatch: %+v", v2)
	}

	mr.FastForward(2 * time.Minute)
	if _, _, err := GetOrCompute(ctx, c, k, time.Minute, compute); err != nil || calls != 2 {
		t.Fatalf("expected recompute after redis ttl: calls=%d err=%v", calls, err)
	}

	none := Key{Query: "regions", Product: "ls8"}
	for i := 0; i < 2; i++ {
		v, ok, err := GetOrCompute(ctx, c, none, time.Minute, func(context.Context) (*payload, bool, error) {
			calls++
			return nil, false, nil
		})
		if err != nil || ok || v != nil {
			t.Fatalf("expected cached absence, got %v %v %v", v, ok, err)
		}
	}
	if calls != 3 {
		t.Fatalf("absent result should be cached in redis, calls=%d", calls)
	}
}
