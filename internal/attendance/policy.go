// Package attendance enrolls people and marks attendance for recognized faces.
package attendance

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Policy enforces the minimum interval between two marks of the same identity.
type Policy struct {
	cooldownMillis int64
}

// NewPolicy creates a Policy. A non-positive cooldown disables the check.
func NewPolicy(cooldownMillis int64) *Policy {
	return &Policy{cooldownMillis: max(0, cooldownMillis)}
}

// Cooldown returns the configured interval.
func (p *Policy) Cooldown() time.Duration {
	return time.Duration(p.cooldownMillis) * time.Millisecond
}

// Decision is the result of evaluating the policy.
type Decision struct {
	Allowed bool
	// Remaining is the wait in milliseconds before a new mark is accepted. Zero when Allowed.
	Remaining int64
}

// RetryAfter returns Remaining as a duration.
func (d Decision) RetryAfter() time.Duration {
	return time.Duration(d.Remaining) * time.Millisecond
}

// RetryAfterSeconds rounds Remaining up to whole seconds.
func (d Decision) RetryAfterSeconds() int64 {
	return (d.Remaining + 999) / 1000
}

// Evaluate decides whether a mark at now (ms since epoch) is allowed given the last record.
// A mark is rejected while now - last.Timestamp < cooldown.
func (p *Policy) Evaluate(now int64, last *database.AttendanceRecord) Decision {
	if last == nil || p.cooldownMillis == 0 {
		return Decision{Allowed: true}
	}
	elapsed := now - last.Timestamp
	if elapsed >= p.cooldownMillis {
		return Decision{Allowed: true}
	}
	return Decision{Remaining: p.cooldownMillis - elapsed}
}
