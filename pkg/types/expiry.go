package types

import (
	"time"

	jww "github.com/spf13/jwalterweatherman"
)

// DefaultMaxTTLSeconds caps the self-destruct duration when Config does not
// override it. One year.
const DefaultMaxTTLSeconds uint32 = 365 * 24 * 3600

// ExpiryState is the message's position in the self-destruct protocol.
type ExpiryState string

// Expiry states. Disabled: no duration set. Armed: duration set, timer not
// yet started. Running: duration set and timer started; ExpiresAt is
// derivable. Actual deletion at ExpiresAt is an external scheduler's job.
const (
	ExpiryDisabled ExpiryState = "disabled"
	ExpiryArmed    ExpiryState = "armed"
	ExpiryRunning  ExpiryState = "running"
)

// ExpiryState returns the current expiry state from the two stored fields.
func (m *Message) ExpiryState() ExpiryState {
	switch {
	case m.TTLSeconds == 0:
		return ExpiryDisabled
	case m.TTLStartedAt == 0:
		return ExpiryArmed
	default:
		return ExpiryRunning
	}
}

// SetTTLSeconds sets the self-destruct duration. Values above max (when max
// is non-zero) are a reportable anomaly and are clamped. Derived fields are
// recomputed.
func (m *Message) SetTTLSeconds(v, max uint32) {
	if max > 0 && v > max {
		jww.WARN.Printf("message %s: ttl %d exceeds maximum %d, clamping",
			m.MessageID, v, max)
		v = max
	}
	m.TTLSeconds = v
	m.RecomputeDerived()
}

// SetTTLStartedAt records when the self-destruct timer started, in unix
// milliseconds. First start wins: if a start time is already recorded and t
// is later, the call is a no-op, so out-of-order start requests can never
// push expiry further out. A start time in the future is a reportable
// anomaly and is clamped to now. Derived fields are recomputed.
func (m *Message) SetTTLStartedAt(t, now int64) {
	if m.TTLStartedAt > 0 && t >= m.TTLStartedAt {
		return
	}
	if t > now {
		jww.WARN.Printf("message %s: ttl start %d is in the future (now %d), clamping",
			m.MessageID, t, now)
		t = now
	}
	m.TTLStartedAt = t
	m.RecomputeDerived()
}

// TimerEligible is the live timer-eligibility predicate: any message with a
// non-zero duration, started or not, is eligible. Cheap; no I/O.
func (m *Message) TimerEligible() bool {
	return m.TTLSeconds > 0
}

// RecomputeDerived re-derives ExpiresAt and the ShouldStartTimer cache from
// the stored fields. This is the only place either derived field is written;
// the gateway calls it after every mutation and before every persist.
func (m *Message) RecomputeDerived() {
	if m.ExpiryState() == ExpiryRunning {
		m.ExpiresAt = m.TTLStartedAt + int64(m.TTLSeconds)*1000
	} else {
		m.ExpiresAt = 0
	}
	m.ShouldStartTimer = m.TimerEligible()
}

// HasPendingExpiration reports whether the message is armed: a duration is
// set but the timer has not started.
func (m *Message) HasPendingExpiration() bool {
	return m.ExpiryState() == ExpiryArmed
}

// HasActiveExpiration reports whether the timer is running and ExpiresAt is
// meaningful.
func (m *Message) HasActiveExpiration() bool {
	return m.ExpiresAt > 0
}

// CheckExpiryConsistency verifies the expiry invariant: ExpiresAt is
// non-zero exactly when both stored fields are, and when active it equals
// TTLStartedAt + TTLSeconds in milliseconds. Violations are logged, never
// fatal; callers do not branch on the result in production paths.
func (m *Message) CheckExpiryConsistency() bool {
	active := m.TTLStartedAt > 0 && m.TTLSeconds > 0
	switch {
	case active && m.ExpiresAt != m.TTLStartedAt+int64(m.TTLSeconds)*1000:
		jww.ERROR.Printf("message %s: expiresAt %d inconsistent with start %d + ttl %ds",
			m.MessageID, m.ExpiresAt, m.TTLStartedAt, m.TTLSeconds)
		return false
	case !active && m.ExpiresAt != 0:
		jww.ERROR.Printf("message %s: expiresAt %d set without active timer",
			m.MessageID, m.ExpiresAt)
		return false
	}
	return true
}

// NowMillis returns the current time in unix milliseconds, the unit of the
// expiry fields.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
