package models

import (
	"time"

	"github.com/google/uuid"
)

// MethodBLE is the check-in method recorded for beacon scans.
const MethodBLE = "ble"

// AttendanceRecord is one member's check-in for a session. Unique on
// (session_id, member_id); a re-scan updates recorded_at and method instead
// of inserting a duplicate.
type AttendanceRecord struct {
	SessionID  uuid.UUID `json:"session_id" db:"session_id"`
	MemberID   uuid.UUID `json:"member_id" db:"member_id"`
	OrgID      uuid.UUID `json:"org_id" db:"org_id"`
	Method     string    `json:"method" db:"method"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// CheckInRequest for recording attendance against a scanned token.
type CheckInRequest struct {
	Token  string    `json:"token" binding:"required"`
	UserID uuid.UUID `json:"user_id"`
	Method string    `json:"method"`
}
