package rules

import "time"

// Clock supplies the evaluation time for date rules and audit timestamps.
// Injectable so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}
