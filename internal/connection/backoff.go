package connection

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes reconnection delays: base * factor^(attempt-1), scaled by
// a random jitter multiplier so simultaneous clients spread out.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Jitter float64 // delay is multiplied by a uniform value in [1-Jitter, 1+Jitter]
}

// DefaultBackoff returns the reconnection defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Factor: 1.5,
		Jitter: 0.1,
	}
}

// Delay returns the wait before the given attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 1.5
	}

	d := float64(base) * math.Pow(factor, float64(attempt-1))

	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}

	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
