package actionbox

import "time"

// Backoff returns the minimum delay before the given attempt. Attempt 1 is
// the first retry after an initial failure.
type Backoff func(attempt int) time.Duration

// defaultBackoffSteps is the retry ladder applied when no custom backoff is
// configured.
var defaultBackoffSteps = []time.Duration{
	time.Second,
	5 * time.Second,
	15 * time.Second,
	time.Minute,
	5 * time.Minute,
}

// Steps creates a table-driven backoff. Attempts past the end of the table
// keep the last delay.
func Steps(delays ...time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if len(delays) == 0 {
			return 0
		}
		if attempt <= 1 {
			return delays[0]
		}
		if attempt > len(delays) {
			return delays[len(delays)-1]
		}
		return delays[attempt-1]
	}
}

// Exponential creates a capped exponential backoff function.
func Exponential(base time.Duration, factor float64, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt <= 0 {
			return base
		}
		d := float64(base)
		for i := 1; i < attempt; i++ {
			d *= factor
			if time.Duration(d) >= max {
				return max
			}
		}
		delay := time.Duration(d)
		if delay > max {
			return max
		}
		if delay < base {
			return base
		}
		return delay
	}
}
