// Package ratelimit throttles MCP tool calls with one token bucket per tool.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nvandessel/enstat/internal/errkind"
)

// ErrRateLimited indicates a call rejected because its bucket is empty.
var ErrRateLimited = fmt.Errorf("rate limit exceeded: %w", errkind.Runtime)

// Limit configures one bucket: Rate tokens per second refill a bucket that
// holds at most Burst tokens and starts full.
type Limit struct {
	Rate  float64
	Burst int
}

// PerMinute returns a Limit of n calls per minute.
func PerMinute(n float64, burst int) Limit {
	return Limit{Rate: n / 60, Burst: burst}
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter enforces a Limit per tool name. Tools without a Limit are never
// throttled. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucket
	now     func() time.Time
}

// New returns a Limiter for the given per-tool limits.
func New(limits map[string]Limit) *Limiter {
	l := &Limiter{
		limits:  make(map[string]Limit, len(limits)),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	for tool, lim := range limits {
		l.limits[tool] = lim
	}
	return l
}

// Defaults are the limits of the enstat MCP tools. Analysis reads every
// selected file, so it is throttled hardest.
func Defaults() map[string]Limit {
	return map[string]Limit{
		"enstat_scan":    PerMinute(60, 10),
		"enstat_headers": PerMinute(30, 5),
		"enstat_analyse": PerMinute(10, 3),
		"enstat_peaks":   PerMinute(30, 5),
		"enstat_export":  PerMinute(5, 2),
		"enstat_runs":    PerMinute(60, 10),
	}
}

// Check takes one token for tool. When the bucket is empty it returns an
// error wrapping ErrRateLimited that says how long until the next token.
func (l *Limiter) Check(tool string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limits[tool]
	if !ok {
		return nil
	}
	now := l.now()
	b, ok := l.buckets[tool]
	if !ok {
		b = &bucket{tokens: float64(lim.Burst), last: now}
		l.buckets[tool] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+lim.Rate*elapsed, float64(lim.Burst))
		b.last = now
	}

	if b.tokens < 1 {
		return fmt.Errorf("%w for %s, retry in %s", ErrRateLimited, tool, retryAfter(b.tokens, lim.Rate))
	}
	b.tokens--
	return nil
}

func retryAfter(tokens, rate float64) time.Duration {
	if rate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	wait := time.Duration((1 - tokens) / rate * float64(time.Second))
	return wait.Round(time.Millisecond)
}
