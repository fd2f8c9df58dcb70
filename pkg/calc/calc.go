// Package calc holds small progress arithmetic helpers.
package calc

import (
	"math"
	"time"
)

// Progress calculates the percentage for a given pair of numbers.
func Progress(downloaded, total int) int {
	if total > 0 {
		return int(math.Round(float64(downloaded) / float64(total) * 100))
	}

	return 0
}

// ETA estimates the time left from the rate observed since started.
func ETA(downloaded, total int, started time.Time) time.Duration {
	if total <= 0 || downloaded <= 0 {
		return 0
	}

	elapsed := time.Since(started)

	return time.Duration(float64(elapsed) * (float64(total)/float64(downloaded) - 1))
}

// PerMinute returns the throughput of n items over elapsed.
func PerMinute(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(n) / elapsed.Minutes()
}
