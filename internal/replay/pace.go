package replay

import (
	"math/rand"
	"time"
)

// randDuration draws a uniformly random duration in [min, max) (min itself
// when max <= min), matching
// spec §6's humanDelay pacing knob.
func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := max - min
	return min + time.Duration(rand.Int63n(int64(span)))
}
