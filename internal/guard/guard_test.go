package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows within limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Check(ctx, "user:1").Allowed)
		}
	})

	t.Run("blocks beyond limit", func(t *testing.T) {
		rl := NewRateLimiter(2, time.Minute)
		ctx := context.Background()
		rl.Check(ctx, "user:2")
		rl.Check(ctx, "user:2")
		result := rl.Check(ctx, "user:2")
		assert.False(t, result.Allowed)
		assert.Equal(t, "rate_limiter", result.Guard)
	})

	t.Run("windows are independent per key", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		ctx := context.Background()
		assert.True(t, rl.Check(ctx, "a").Allowed)
		assert.True(t, rl.Check(ctx, "b").Allowed)
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("opens after threshold failures", func(t *testing.T) {
		cb := NewCircuitBreaker(2, time.Minute)
		ctx := context.Background()
		cb.RecordFailure("redis")
		cb.RecordFailure("redis")
		result := cb.Check(ctx, "redis")
		assert.False(t, result.Allowed)
	})

	t.Run("resets to half-open after timeout", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond)
		ctx := context.Background()
		cb.RecordFailure("redis")
		cb.Check(ctx, "redis") // open: denied
		time.Sleep(20 * time.Millisecond)
		result := cb.Check(ctx, "redis")
		assert.True(t, result.Allowed)
	})

	t.Run("closes again after half-open success", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond)
		ctx := context.Background()
		cb.RecordFailure("redis")
		time.Sleep(20 * time.Millisecond)
		cb.Check(ctx, "redis") // half-open probe allowed
		cb.RecordSuccess("redis")
		result := cb.Check(ctx, "redis")
		assert.True(t, result.Allowed)
	})
}
