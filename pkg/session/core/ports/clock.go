package ports

import "time"

// Clock abstracts time for the statement polling loop.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock.
type SystemClock struct{}

// NewSystemClock returns the wall clock as a Clock.
func NewSystemClock() Clock {
	return SystemClock{}
}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
