package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall-backend/models"
	"rollcall-backend/store"
	"rollcall-backend/token"
)

// Recorder turns a scanned token into an attendance record. The check order
// is fixed: token shape, resolution, validity, membership, then the
// idempotent write. Membership is checked here, above the storage layer, so
// tenant isolation holds with any backend.
type Recorder struct {
	sessions   store.SessionStore
	ledger     store.AttendanceLedger
	authorizer *Authorizer
	now        func() time.Time
}

// NewRecorder builds a Recorder over the given collaborators.
func NewRecorder(sessions store.SessionStore, ledger store.AttendanceLedger, authorizer *Authorizer) *Recorder {
	return &Recorder{
		sessions:   sessions,
		ledger:     ledger,
		authorizer: authorizer,
		now:        time.Now,
	}
}

// CheckIn records the user's attendance for the session behind the token.
// Errors: ErrInvalidToken, store.ErrSessionNotFound, *SessionExpiredError,
// ErrOrganizationMismatch. Re-submitting a valid check-in updates the
// existing record instead of failing.
func (r *Recorder) CheckIn(ctx context.Context, tok string, userID uuid.UUID, method string) (*models.AttendanceRecord, error) {
	if err := token.CheckShape(tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	session, err := r.sessions.Resolve(ctx, tok)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if !session.IsValidAt(now) {
		remaining := int64(session.EndsAt.Sub(now).Seconds())
		terminated := session.TerminatedAt != nil
		// An early-ended session can still be inside its natural window;
		// reporting leftover seconds there would read as "still open".
		if terminated && remaining > 0 {
			remaining = 0
		}
		return nil, &SessionExpiredError{
			ExpiresAt:        session.EndsAt,
			SecondsRemaining: remaining,
			Terminated:       terminated,
		}
	}

	member, err := r.authorizer.IsMember(ctx, userID, session.OrgID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrOrganizationMismatch
	}

	if method == "" {
		method = models.MethodBLE
	}
	return r.ledger.UpsertAttendance(ctx, models.AttendanceRecord{
		SessionID:  session.ID,
		MemberID:   userID,
		OrgID:      session.OrgID,
		Method:     method,
		RecordedAt: now,
	})
}
