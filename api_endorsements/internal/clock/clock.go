// Package clock quantizes wall-clock time for short-lived tokens and
// provides the injectable time source used by the endorsement service.
package clock

import "time"

// DefaultBucketWidth is the token bucket width
const DefaultBucketWidth = 5 * time.Minute

// Bucket maps t to an integer bucket of the given width. Widths under a
// millisecond fall back to DefaultBucketWidth.
func Bucket(t time.Time, width time.Duration) int64 {
	ms := width.Milliseconds()
	if ms <= 0 {
		ms = DefaultBucketWidth.Milliseconds()
	}
	return floorDiv(t.UnixMilli(), ms)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Clock is the time source for cooldown and token decisions
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real returns the system clock in UTC
func Real() Clock { return realClock{} }

// Func adapts a plain function to Clock
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
