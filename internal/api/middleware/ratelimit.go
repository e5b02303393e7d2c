package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// limiterIdle is how long a user's bucket survives without requests.
const limiterIdle = 10 * time.Minute

// RateLimiter keeps one token bucket per authenticated user.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[uuid.UUID]*userLimiter
	rps       rate.Limit
	burst     int
	lastSweep time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[uuid.UUID]*userLimiter),
		rps:       rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *RateLimiter) allow(userID uuid.UUID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > limiterIdle {
		rl.sweepLocked(now.Add(-limiterIdle))
		rl.lastSweep = now
	}

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.Allow()
}

// Limit rejects requests over the user's rate with 429. It must run after
// Auth; unauthenticated requests pass through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if ok && !rl.allow(userID) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep drops limiters idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(time.Now().Add(-idle))
}

func (rl *RateLimiter) sweepLocked(cutoff time.Time) {
	for id, ul := range rl.limiters {
		if ul.lastSeen.Before(cutoff) {
			delete(rl.limiters, id)
		}
	}
}

func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
