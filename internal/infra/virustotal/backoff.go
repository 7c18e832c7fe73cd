package virustotal

import "time"

const (
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 8 * time.Second
)

// Delay returns min(base * 2^(attempt-1), maxDelay). Attempts below 1 count as 1.
func Delay(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d >= maxDelay {
			return maxDelay
		}
		d *= 2
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
