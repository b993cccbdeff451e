package middleware

import (
	"net/http"
	"parkade/pkg/auth"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/logger"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PrincipalRateLimiter keeps a token bucket per principal. Requests without
// a principal (health checks, reads behind the gateway) pass through.
type PrincipalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*principalLimiter
	rps      rate.Limit
	burst    int
	log      *logger.Logger
	stopCh   chan struct{}
}

type principalLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewPrincipalRateLimiter(requestsPerSecond int, burst int, log *logger.Logger) *PrincipalRateLimiter {
	rl := &PrincipalRateLimiter{
		limiters: make(map[string]*principalLimiter),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *PrincipalRateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for id, pl := range rl.limiters {
				if time.Since(pl.lastSeen) > 30*time.Minute {
					delete(rl.limiters, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PrincipalRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *PrincipalRateLimiter) Allow(principalID string) bool {
	if principalID == "" {
		return true
	}

	rl.mu.Lock()
	pl, ok := rl.limiters[principalID]
	if !ok {
		pl = &principalLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[principalID] = pl
	}
	pl.lastSeen = time.Now()
	rl.mu.Unlock()

	return pl.limiter.Allow()
}

func PrincipalRateLimit(limiter *PrincipalRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID := ""
			if p, ok := auth.FromContext(r.Context()); ok {
				principalID = p.ID
			}

			if !limiter.Allow(principalID) {
				requestID := ""
				if rid := r.Context().Value(RequestIDKey); rid != nil {
					requestID, _ = rid.(string)
				}

				limiter.log.Warn("Rate limit exceeded",
					"request_id", requestID,
					"principal_id", principalID,
					"path", r.URL.Path,
				)

				_ = apperrors.WriteError(w, apperrors.New(apperrors.CodeUnavailable, "Rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
