package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitStaysInsideRange(t *testing.T) {
	var slept time.Duration
	delay := NewTimingDelay(time.Second, 2*time.Second).
		WithSleeper(func(d time.Duration) { slept = d })

	for i := 0; i < 100; i++ {
		delay.Wait()
		assert.GreaterOrEqual(t, slept, time.Second)
		assert.Less(t, slept, 2*time.Second)
	}
}

func TestTimingDelay_EqualBoundsAreFixed(t *testing.T) {
	var slept time.Duration
	delay := NewTimingDelay(time.Second, time.Second).
		WithSleeper(func(d time.Duration) { slept = d })

	delay.Wait()
	assert.Equal(t, time.Second, slept)
}

func TestTimingDelay_SwappedBoundsCollapseToMin(t *testing.T) {
	var slept time.Duration
	delay := NewTimingDelay(2*time.Second, time.Second).
		WithSleeper(func(d time.Duration) { slept = d })

	delay.Wait()
	assert.Equal(t, 2*time.Second, slept)
}
