package attendance

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken is returned for tokens of the wrong length or alphabet.
	ErrInvalidToken = errors.New("invalid token")
	// ErrOrganizationMismatch is the tenant-isolation boundary: the scanning
	// user holds no active membership in the org that owns the session.
	ErrOrganizationMismatch = errors.New("user is not a member of the session's organization")
	// ErrNotOfficer is returned when a non-officer tries to create or end a
	// session.
	ErrNotOfficer = errors.New("user is not an officer of the organization")
	// ErrInvalidTTL is returned for a session TTL outside (0, 86400] seconds.
	ErrInvalidTTL = errors.New("ttl must be between 1 and 86400 seconds")
)

// SessionExpiredError is returned when a session exists but can no longer
// authorize check-ins, either past its window or ended early. The payload is
// safe to show to end users.
type SessionExpiredError struct {
	ExpiresAt        time.Time `json:"expires_at"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	Terminated       bool      `json:"terminated"`
}

func (e *SessionExpiredError) Error() string {
	if e.Terminated {
		return "session was ended early"
	}
	return fmt.Sprintf("session expired at %s", e.ExpiresAt.Format(time.RFC3339))
}
