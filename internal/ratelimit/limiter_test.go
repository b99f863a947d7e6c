package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := NewRedis(mr.Addr(), "", "test:ratelimit", limit, window)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestLimiterCountsDownAndReportsRetryAfter(t *testing.T) {
	l, mr := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		d, err := l.Allow(ctx, "content:ws:198.51.100.1")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed || d.Remaining != want || d.Limit != 2 {
			t.Fatalf("decision = %+v, want allowed with %d remaining", d, want)
		}
	}

	mr.FastForward(20 * time.Second)
	d, err := l.Allow(ctx, "content:ws:198.51.100.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("third hit allowed: %+v", d)
	}
	if d.RetryAfter != 40*time.Second {
		t.Fatalf("retry after = %s, want the 40s left in the window", d.RetryAfter)
	}

	mr.FastForward(40 * time.Second)
	if d, err := l.Allow(ctx, "content:ws:198.51.100.1"); err != nil || !d.Allowed {
		t.Fatalf("new window refused: %+v %v", d, err)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()
	for _, key := range []string{"content:ws1:ip", "images:ws1:ip", "content:ws2:ip"} {
		if d, err := l.Allow(ctx, key); err != nil || !d.Allowed {
			t.Fatalf("first hit on %s refused: %+v %v", key, d, err)
		}
	}
	if d, _ := l.Allow(ctx, "content:ws1:ip"); d.Allowed {
		t.Fatalf("repeat key allowed")
	}
	if !mr.Exists("test:ratelimit:images:ws1:ip") {
		t.Fatalf("keys = %v", mr.Keys())
	}
}

func TestLimiterRestoresMissingTTL(t *testing.T) {
	l, mr := newTestLimiter(t, 5, time.Minute)
	if err := mr.Set("test:ratelimit:k", "3"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	d, err := l.Allow(context.Background(), "k")
	if err != nil || !d.Allowed || d.Remaining != 1 {
		t.Fatalf("decision = %+v %v", d, err)
	}
	if ttl := mr.TTL("test:ratelimit:k"); ttl != time.Minute {
		t.Fatalf("ttl = %s", ttl)
	}
}

func TestLimiterReportsRedisFailure(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Second)
	mr.Close()
	if _, err := l.Allow(context.Background(), "k"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := NewRedis("", "", "", 1, time.Second); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if _, err := New(client, "", 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := New(nil, "", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	l, err := New(client, " ", 1, time.Second)
	if err != nil || l.prefix != defaultPrefix {
		t.Fatalf("prefix = %q %v", l.prefix, err)
	}
}
