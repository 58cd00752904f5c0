package models

import (
	"time"

	"github.com/google/uuid"
)

// Session security level constants
const (
	SecurityStrong     = "strong"
	SecurityModerate   = "moderate"
	SecurityAcceptable = "acceptable"
	SecurityWeak       = "weak"
)

// Session represents one time-bounded attendance window owned by an organization.
type Session struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	OrgID        uuid.UUID  `json:"org_id" db:"org_id"`
	EventID      uuid.UUID  `json:"event_id" db:"event_id"`
	Title        string     `json:"title" db:"title"`
	Token        string     `json:"token" db:"token"`
	StartsAt     time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt       time.Time  `json:"ends_at" db:"ends_at"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty" db:"terminated_at"`
	EntropyBits  float64    `json:"entropy_bits" db:"entropy_bits"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsValidAt reports whether the session can authorize check-ins at the given
// instant: the validity window covers now and the session was not ended early.
func (s *Session) IsValidAt(now time.Time) bool {
	if s.TerminatedAt != nil {
		return false
	}
	return !now.Before(s.StartsAt) && now.Before(s.EndsAt)
}

// SessionSummary is the listing shape returned for active sessions, including
// the beacon fields clients cross-check against a scanned advertisement.
type SessionSummary struct {
	ID            uuid.UUID `json:"id"`
	OrgID         uuid.UUID `json:"org_id"`
	EventID       uuid.UUID `json:"event_id"`
	Title         string    `json:"title"`
	Token         string    `json:"token"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	AttendeeCount int       `json:"attendee_count"`
	OrgCode       uint16    `json:"org_code"`
	TokenHash     uint16    `json:"token_hash"`
}

// CreateSessionRequest for minting a new attendance session.
type CreateSessionRequest struct {
	OrgID      uuid.UUID  `json:"org_id" binding:"required"`
	EventID    uuid.UUID  `json:"event_id" binding:"required"`
	Title      string     `json:"title" binding:"required,max=200"`
	StartsAt   *time.Time `json:"starts_at"`
	TTLSeconds int64      `json:"ttl_seconds" binding:"required,gt=0,lte=86400"`
	UserID     uuid.UUID  `json:"user_id"`
}

// CreateSessionResponse returns the minted token plus the beacon fields the
// officer's device should advertise.
type CreateSessionResponse struct {
	SessionID   uuid.UUID `json:"session_id"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	EntropyBits float64   `json:"entropy_bits"`
	OrgCode     uint16    `json:"org_code"`
	TokenHash   uint16    `json:"token_hash"`
}
