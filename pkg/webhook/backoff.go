package webhook

import (
	"cmp"
	"math"
	"math/rand/v2"
	"time"
)

const (
	defaultBackoffInterval = time.Second
	defaultBackoffCap      = 30 * time.Second
)

// BackoffStrategy computes how long a failed delivery waits before its
// next attempt. attempt is the number of attempts already made; values
// below 1 mean no wait. Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff waits InitialInterval * Multiplier^(attempt-1),
// spread by ±JitterFactor and capped at MaxInterval. Zero fields use 1s,
// 30s and 2.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	limit := cmp.Or(e.MaxInterval, defaultBackoffCap)

	d := float64(cmp.Or(e.InitialInterval, defaultBackoffInterval)) *
		math.Pow(cmp.Or(e.Multiplier, 2), float64(attempt-1))
	if e.JitterFactor > 0 {
		d *= 1 + e.JitterFactor*(2*rand.Float64()-1)
	}
	// Compare as float: large attempts overflow time.Duration.
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// LinearBackoff waits Interval * attempt, capped at MaxInterval.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return min(cmp.Or(l.Interval, defaultBackoffInterval)*time.Duration(attempt), cmp.Or(l.MaxInterval, defaultBackoffCap))
}

// FixedBackoff waits Interval between attempts.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy is applied to failed queue entries by the retry
// sweep: 1s doubling to 30s with 10% jitter.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}
