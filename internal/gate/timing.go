package gate

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingDelay applies a randomized delay to credential checks so response
// timing leaks as little as possible. The same delay is applied on success and
// failure.
type TimingDelay struct {
	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(time.Duration)
}

// NewTimingDelay creates a delay in [min, max). Tests can swap the sleeper via
// WithSleeper.
func NewTimingDelay(minDelay, maxDelay time.Duration) *TimingDelay {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &TimingDelay{
		minDelay: minDelay,
		maxDelay: maxDelay,
		sleep:    time.Sleep,
	}
}

// WithSleeper replaces the sleep function. For tests.
func (td *TimingDelay) WithSleeper(sleep func(time.Duration)) *TimingDelay {
	td.sleep = sleep
	return td
}

// Wait blocks for a randomized duration inside the configured range.
func (td *TimingDelay) Wait() {
	td.sleep(td.minDelay + cryptoRandDuration(td.maxDelay-td.minDelay))
}

// cryptoRandDuration returns a secure random duration in [0, max).
// crypto/rand rather than math/rand: the jitter exists to defeat timing
// analysis.
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return time.Duration(randomValue % uint64(max))
}
