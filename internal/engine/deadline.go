package engine

import (
	"time"

	"github.com/stemsi/exstem-session/internal/model"
)

// Deadline returns the instant after which the attempt accepts no answers.
func Deadline(a *model.Attempt, test *model.TestDefinition) time.Time {
	return a.StartedAt.Add(test.Duration())
}

// Remaining is the time left on an attempt at now, floored at zero.
// It only uses the server-recorded start and server clock.
func Remaining(a *model.Attempt, test *model.TestDefinition, now time.Time) time.Duration {
	left := test.Duration() - now.Sub(a.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds truncates Remaining to whole seconds. A partially
// elapsed last second still counts as time left.
func RemainingSeconds(a *model.Attempt, test *model.TestDefinition, now time.Time) int {
	left := Remaining(a, test, now)
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// Expired reports whether the deadline has been reached.
func Expired(a *model.Attempt, test *model.TestDefinition, now time.Time) bool {
	return Remaining(a, test, now) == 0
}
