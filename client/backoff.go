package client

import "time"

// ReconnectDelay computes the backoff before reconnect attempt n:
// base doubled per prior attempt, capped at max. Attempts below 1 are
// treated as the first attempt.
func ReconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
