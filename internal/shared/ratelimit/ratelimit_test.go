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
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLimiter(rdb, limit, window), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := limiter.Allow(ctx, "token1:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if res.Remaining != 5-(i+1) {
			t.Errorf("request %d: expected remaining %d, got %d", i+1, 5-(i+1), res.Remaining)
		}
	}

	res, err := limiter.Allow(ctx, "token1:1.2.3.4")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if res.Allowed {
		t.Error("sixth request should be rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", res.Remaining)
	}
}

func TestAllowSeparateKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Hour)
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "tokenA:1.1.1.1"); !res.Allowed {
		t.Error("first key should be allowed")
	}
	if res, _ := limiter.Allow(ctx, "tokenA:1.1.1.1"); res.Allowed {
		t.Error("first key should now be exhausted")
	}
	if res, _ := limiter.Allow(ctx, "tokenA:2.2.2.2"); !res.Allowed {
		t.Error("different ip should have its own window")
	}
	if res, _ := limiter.Allow(ctx, "tokenB:1.1.1.1"); !res.Allowed {
		t.Error("different token should have its own window")
	}
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("first request should be allowed")
	}
	if res, _ := limiter.Allow(ctx, "k"); res.Allowed {
		t.Fatal("second request should be rejected")
	}

	mr.FastForward(time.Minute + time.Second)

	if res, _ := limiter.Allow(ctx, "k"); !res.Allowed {
		t.Error("request after window expiry should be allowed")
	}
}

func TestStatusDoesNotCount(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Hour)
	ctx := context.Background()

	res, err := limiter.Status(ctx, "k")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Errorf("fresh key: expected allowed with remaining 2, got %+v", res)
	}

	limiter.Allow(ctx, "k")

	res, err = limiter.Status(ctx, "k")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if res.Remaining != 1 {
		t.Errorf("expected remaining 1 after one request, got %d", res.Remaining)
	}

	// Status 本身不应消耗配额
	res, _ = limiter.Status(ctx, "k")
	if res.Remaining != 1 {
		t.Errorf("Status changed the count: remaining %d", res.Remaining)
	}
}
