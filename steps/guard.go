// ABOUTME: Anti-automation guard for step payloads
// ABOUTME: Rejects non-empty honeypot values and stale client timestamps
package steps

import "time"

// FreshnessWindow bounds how far a client timestamp may drift from server
// time in either direction.
const FreshnessWindow = 5 * time.Minute

// Guard validates the anti-automation fields on every payload. A zero
// value uses time.Now; tests inject now.
type Guard struct {
	now func() time.Time
}

// NewGuard returns a guard using the real clock.
func NewGuard() *Guard {
	return &Guard{now: time.Now}
}

// NewGuardAt returns a guard with an injected clock.
func NewGuardAt(now func() time.Time) *Guard {
	return &Guard{now: now}
}

// Check returns ErrAutomation if the honeypot is filled or the client
// timestamp (epoch millis) falls outside the freshness window. The payload
// is rejected whole; no field detail is reported.
func (g *Guard) Check(honeypot string, clientTimestampMillis int64) error {
	if honeypot != "" {
		return ErrAutomation
	}

	clientTime := time.UnixMilli(clientTimestampMillis)
	drift := g.now().Sub(clientTime)
	if drift < 0 {
		drift = -drift
	}
	if drift > FreshnessWindow {
		return ErrAutomation
	}

	return nil
}
