package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenBucketRefillsPerSecond(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	tb.lastSec = now.Unix()

	if !tb.Allow() || !tb.Allow() {
		t.Fatalf("first two requests should pass")
	}
	if tb.Allow() {
		t.Fatalf("third request in the same second should be limited")
	}
	now = now.Add(time.Second)
	if !tb.Allow() {
		t.Fatalf("bucket should refill on the next second")
	}
}

func TestLimitReturns429(t *testing.T) {
	tb := NewTokenBucket(1)
	fixed := time.Unix(2000, 0)
	tb.now = func() time.Time { return fixed }
	tb.lastSec = fixed.Unix()
	h := Limit(tb, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/footprint/ls8", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes %v", codes)
	}
}

func TestWrapDisabledByDefault(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := Wrap(next)
	if _, ok := h.(http.HandlerFunc); !ok {
		t.Fatalf("expected handler returned unchanged")
	}
}
