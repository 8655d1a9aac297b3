package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	first := rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	assert.Len(t, rl.clients, 2)

	// 10.0.0.1 stays active, 10.0.0.2 goes idle.
	now = now.Add(limiterIdleTTL / 2)
	assert.Same(t, first, rl.limiter("10.0.0.1"))

	now = now.Add(limiterIdleTTL / 2)
	rl.limiter("10.0.0.3")

	assert.Len(t, rl.clients, 2)
	assert.Contains(t, rl.clients, "10.0.0.1")
	assert.Contains(t, rl.clients, "10.0.0.3")
	assert.NotContains(t, rl.clients, "10.0.0.2")
}

func TestRateLimiter_IdleClientGetsFreshBucket(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(0.0001, 1)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	l := rl.limiter("10.0.0.1")
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	now = now.Add(limiterIdleTTL)
	fresh := rl.limiter("10.0.0.1")
	assert.NotSame(t, l, fresh)
	assert.True(t, fresh.Allow())
}
