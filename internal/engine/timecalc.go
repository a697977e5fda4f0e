// Package engine derives lifecycle stage, progress, and action eligibility
// from ledger snapshots. Every function is pure: the caller supplies the
// identity and the current instant, and nothing is read from global state.
//
// Eligibility is advisory. The ledger still decides whether an action succeeds.
package engine

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// maxSeconds is the longest span a time.Duration can hold, in seconds.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// addSeconds adds secs to t, saturating at the largest representable duration.
func addSeconds(t time.Time, secs int64) time.Time {
	if secs > maxSeconds {
		secs = maxSeconds
	}
	return t.Add(time.Duration(secs) * time.Second)
}

// DaysLeft returns the whole days remaining until target, rounded up.
// It never returns a negative number.
func DaysLeft(target, now time.Time) int {
	remaining := target.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := remaining / day
	if remaining%day != 0 {
		days++
	}
	return int(days)
}

// IsEnded reports whether now is at or past the deadline.
func IsEnded(deadline, now time.Time) bool {
	return !now.Before(deadline)
}

// PlannedEnd returns max(start, now) + duration: the end an entity would have
// if its term began at the later of its start and the current instant.
func PlannedEnd(start time.Time, durationSecs int64, now time.Time) time.Time {
	anchor := now
	if start.After(now) {
		anchor = start
	}
	return addSeconds(anchor, durationSecs)
}

// EffectiveDeadline returns the recorded end when present, else the planned end.
func EffectiveDeadline(start, end time.Time, durationSecs int64, now time.Time) time.Time {
	if !end.IsZero() {
		return end
	}
	return PlannedEnd(start, durationSecs, now)
}
