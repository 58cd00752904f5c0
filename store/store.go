// Package store defines the storage contracts of the attendance core and its
// Postgres and Redis implementations. The core depends only on these
// interfaces; tenant isolation and expiry are enforced above them so the
// logic is testable against any backend.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall-backend/models"
)

var (
	// ErrSessionNotFound is returned when no session exists for a token or id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicateActiveToken is returned when a create would reuse a token
	// held by a currently valid session. The generator already checks for
	// collisions, so hitting this indicates a consistency bug. Alertable.
	ErrDuplicateActiveToken = errors.New("duplicate active token")
)

// CreateSessionParams carries everything needed to persist a new session.
type CreateSessionParams struct {
	OrgID       uuid.UUID
	EventID     uuid.UUID
	Title       string
	Token       string
	StartsAt    time.Time
	EndsAt      time.Time
	EntropyBits float64
}

// ActiveSession is a session joined with its live attendee count.
type ActiveSession struct {
	Session       models.Session
	AttendeeCount int
}

// SessionStore persists sessions and resolves tokens back to them.
type SessionStore interface {
	// Create persists a session, failing with ErrDuplicateActiveToken if a
	// currently valid session already holds the token.
	Create(ctx context.Context, p CreateSessionParams) (*models.Session, error)

	// Resolve returns the most recently created session for the token
	// regardless of expiry, or ErrSessionNotFound. Callers check validity
	// themselves so "expired" and "not found" stay distinguishable.
	Resolve(ctx context.Context, token string) (*models.Session, error)

	// Get returns the session with the given id, or ErrSessionNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)

	// Terminate sets terminated_at to now. Terminating twice is a no-op.
	Terminate(ctx context.Context, id uuid.UUID) error

	// ListActive returns the org's currently valid sessions with attendee
	// counts, newest starts_at first. Terminated sessions never appear even
	// inside their window.
	ListActive(ctx context.Context, orgID uuid.UUID, now time.Time) ([]ActiveSession, error)

	// ActiveTokenExists reports whether a currently valid session holds the
	// token. Used by the generator's collision loop.
	ActiveTokenExists(ctx context.Context, token string) (bool, error)
}

// MembershipDirectory looks up a user's standing in an organization.
type MembershipDirectory interface {
	// Membership returns the active membership for (userID, orgID), or nil
	// when the user holds none.
	Membership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)

	// UpsertMembership activates or updates the (user, org) row.
	UpsertMembership(ctx context.Context, m models.Membership) error

	// DeactivateMembership clears is_active; missing rows are a no-op.
	DeactivateMembership(ctx context.Context, userID, orgID uuid.UUID) error
}

// AttendanceLedger records check-ins idempotently.
type AttendanceLedger interface {
	// UpsertAttendance inserts the record or, on (session_id, member_id)
	// conflict, updates method and recorded_at. Returns the stored row.
	UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, error)

	// ListAttendance returns a session's records, newest first.
	ListAttendance(ctx context.Context, sessionID uuid.UUID) ([]models.AttendanceRecord, error)
}

// Store is the full storage surface a backend provides.
type Store interface {
	SessionStore
	MembershipDirectory
	AttendanceLedger
}
