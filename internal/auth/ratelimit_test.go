package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRateLimiter() (*RateLimiter, *testClock) {
	clk := &testClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	}, clk)
	return rl, clk
}

func TestRateLimiter_LocksOutAfterMaxAttempts(t *testing.T) {
	rl, clk := newTestRateLimiter()
	defer rl.Stop()

	assert.False(t, rl.RecordFailure("1.2.3.4", "alice"))
	assert.False(t, rl.RecordFailure("1.2.3.4", "alice"))
	allowed, _ := rl.Allow("1.2.3.4", "alice")
	assert.True(t, allowed)

	assert.True(t, rl.RecordFailure("1.2.3.4", "alice"))
	allowed, retryAfter := rl.Allow("1.2.3.4", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 5*time.Minute, retryAfter)

	// other pairs are unaffected
	allowed, _ = rl.Allow("1.2.3.4", "bob")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("5.6.7.8", "alice")
	assert.True(t, allowed)

	clk.Advance(5 * time.Minute)
	allowed, _ = rl.Allow("1.2.3.4", "alice")
	assert.True(t, allowed)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl, clk := newTestRateLimiter()
	defer rl.Stop()

	rl.RecordFailure("1.2.3.4", "alice")
	rl.RecordFailure("1.2.3.4", "alice")
	clk.Advance(2 * time.Minute)

	assert.False(t, rl.RecordFailure("1.2.3.4", "alice"), "old failures fall out of the window")
}

func TestRateLimiter_SuccessClears(t *testing.T) {
	rl, _ := newTestRateLimiter()
	defer rl.Stop()

	rl.RecordFailure("1.2.3.4", "alice")
	rl.RecordFailure("1.2.3.4", "alice")
	rl.RecordSuccess("1.2.3.4", "alice")

	assert.False(t, rl.RecordFailure("1.2.3.4", "alice"))
	assert.Equal(t, 1, rl.size())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clk := newTestRateLimiter()
	defer rl.Stop()

	rl.RecordFailure("1.2.3.4", "alice")
	for i := 0; i < 3; i++ {
		rl.RecordFailure("1.2.3.4", "bob")
	}

	clk.Advance(2 * time.Minute)
	rl.cleanup()
	assert.Equal(t, 1, rl.size(), "locked out pair is kept")

	clk.Advance(5 * time.Minute)
	rl.cleanup()
	assert.Equal(t, 0, rl.size())
}
