package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int) (*RoomRateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRoomRateLimiter(limit, time.Second)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterWindow(t *testing.T) {
	rl, clock := newTestLimiter(2)

	assert.True(t, rl.Allow("evt1", "u1"))
	assert.True(t, rl.Allow("evt1", "u1"))
	assert.False(t, rl.Allow("evt1", "u1"))
	assert.True(t, rl.Allow("evt1", "u2"), "limits are per user")
	assert.True(t, rl.Allow("evt2", "u1"), "limits are per room")

	clock.advance(500 * time.Millisecond)
	assert.False(t, rl.Allow("evt1", "u1"))

	clock.advance(600 * time.Millisecond)
	assert.True(t, rl.Allow("evt1", "u1"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl, _ := newTestLimiter(0)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("evt1", "u1"))
	}
	assert.Empty(t, rl.sent)
}

func TestRateLimiterPrune(t *testing.T) {
	rl, clock := newTestLimiter(5)

	rl.Allow("evt1", "u1")
	clock.advance(800 * time.Millisecond)
	rl.Allow("evt1", "u2")
	clock.advance(300 * time.Millisecond)

	assert.Equal(t, 1, rl.Prune())
	assert.Len(t, rl.sent, 1)
	assert.Contains(t, rl.sent, limitKey{"evt1", "u2"})
}
