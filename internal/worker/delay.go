package worker

import (
	"math/rand/v2"
	"time"
)

// DelayFunc returns how long a simulated step takes.
type DelayFunc func() time.Duration

// FixedDelay always returns d.
func FixedDelay(d time.Duration) DelayFunc {
	return func() time.Duration { return d }
}

// UniformDelay returns a duration drawn uniformly from [lo, hi).
func UniformDelay(lo, hi time.Duration) DelayFunc {
	if hi <= lo {
		return FixedDelay(lo)
	}
	return func() time.Duration {
		return lo + rand.N(hi-lo)
	}
}

func orNoDelay(d DelayFunc) DelayFunc {
	if d == nil {
		return FixedDelay(0)
	}
	return d
}
