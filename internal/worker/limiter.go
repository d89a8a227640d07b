package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests per host. A non-positive rate leaves hosts
// unlimited until SetHostDelay says otherwise.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the given URL
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	return l.getLimiter(host).Wait(ctx)
}

func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter

	return limiter
}

// SetHostDelay spaces requests to host at least delay apart, unless the
// current limit is already stricter
func (l *Limiter) SetHostDelay(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	every := rate.Every(delay)

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.defaultRate
	if existing, ok := l.limiters[host]; ok {
		current = existing.Limit()
	}
	if current != rate.Inf && current <= every {
		return
	}
	l.limiters[host] = rate.NewLimiter(every, 1)
}

// Limit returns the rate currently applied to host
func (l *Limiter) Limit(host string) rate.Limit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if existing, ok := l.limiters[host]; ok {
		return existing.Limit()
	}
	return l.defaultRate
}

func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
