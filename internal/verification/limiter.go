package verification

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendLimiter allows one send per interval for each address.
type sendLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSendLimiter(every time.Duration) *sendLimiter {
	return &sendLimiter{every: every, limiters: map[string]*limiterEntry{}}
}

func (l *sendLimiter) AllowAt(key string, now time.Time) bool {
	if l == nil || l.every <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.every), 1)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Prune drops limiters idle for longer than the interval. Such an entry would
// allow the next send anyway.
func (l *sendLimiter) Prune(now time.Time) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.every {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}
