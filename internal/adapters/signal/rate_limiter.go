package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Stage/internal/domain"
)

type limitKey struct {
	event domain.EventID
	user  domain.UserID
}

// RoomRateLimiter caps how many throttled interactions a user may publish
// into one room per sliding window. Rooms are counted independently.
type RoomRateLimiter struct {
	mu       sync.Mutex
	sent     map[limitKey][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		sent:     make(map[limitKey][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records an attempt and reports whether it fits the window.
// Rejected attempts are not recorded.
func (rl *RoomRateLimiter) Allow(eventID domain.EventID, uid domain.UserID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	k := limitKey{eventID, uid}
	now := rl.now()
	recent := trim(rl.sent[k], now.Add(-rl.interval))
	if len(recent) >= rl.limit {
		rl.sent[k] = recent
		return false
	}
	rl.sent[k] = append(recent, now)
	return true
}

// Prune forgets keys with no attempt inside the window and returns how
// many it dropped.
func (rl *RoomRateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.interval)
	n := 0
	for k, ts := range rl.sent {
		if len(trim(ts, cutoff)) == 0 {
			delete(rl.sent, k)
			n++
		}
	}
	return n
}

// trim drops timestamps at or before cutoff. ts is ordered oldest first.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
