package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/apperror"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client. Buckets refill at limit
// tokens per second up to burst.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter

	done chan struct{}
	once sync.Once
}

type clientLimiter struct {
	lim  *rate.Limiter
	last time.Time
}

func NewRateLimiter(perSecond, burst int) *RateLimiter {
	rl := newRateLimiter(perSecond, burst, time.Now)
	go rl.sweepLoop()
	return rl
}

func newRateLimiter(perSecond, burst int, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     now,
		clients: make(map[string]*clientLimiter),
		done:    make(chan struct{}),
	}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep drops clients idle for limiterIdleAfter; their buckets would be full.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterIdleAfter)
	for key, c := range rl.clients {
		if c.last.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.last = now
	return c.lim
}

// take spends one token for key. When none is left it reports how long
// until the next one; the reservation is handed back so a rejected request
// costs nothing.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()
	r := rl.limiter(key, now).ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

var errRateLimited = apperror.New("rate_limit_exceeded", "Too many requests", http.StatusTooManyRequests)

// RateLimit rejects clients over their budget with 429 and a Retry-After
// header in whole seconds.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.take(clientKey(r))
			if !ok {
				if wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				apperror.WriteJSON(w, r, errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
