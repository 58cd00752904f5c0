package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall-backend/attendance"
	"rollcall-backend/models"
	"rollcall-backend/store"
)

type CheckinHandler struct {
	recorder *attendance.Recorder
	ledger   store.AttendanceLedger
}

func NewCheckinHandler(recorder *attendance.Recorder, ledger store.AttendanceLedger) *CheckinHandler {
	return &CheckinHandler{recorder: recorder, ledger: ledger}
}

// CheckIn records attendance for a scanned session token.
func (h *CheckinHandler) CheckIn(c *gin.Context) {
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	userID, ok := callerID(c, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "user_id is required"})
		return
	}

	record, err := h.recorder.CheckIn(c.Request.Context(), req.Token, userID, req.Method)
	if err != nil {
		var expired *attendance.SessionExpiredError
		switch {
		case errors.Is(err, attendance.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid session token"})
		case errors.Is(err, store.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No session found for this token"})
		case errors.As(err, &expired):
			c.JSON(http.StatusGone, gin.H{
				"success":           false,
				"message":           expired.Error(),
				"expires_at":        expired.ExpiresAt,
				"seconds_remaining": expired.SecondsRemaining,
			})
		case errors.Is(err, attendance.ErrOrganizationMismatch):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a member of this organization"})
		default:
			log.Printf("Error checking in user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to record check-in"})
		}
		return
	}

	log.Printf("Checked in member %s for session %s", record.MemberID, record.SessionID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully checked in",
		"record":  record,
	})
}

// GetAttendance lists a session's check-ins, newest first.
func (h *CheckinHandler) GetAttendance(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	records, err := h.ledger.ListAttendance(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("Error listing attendance for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// callerID prefers the identity injected by the auth middleware and falls
// back to the id supplied in the request body.
func callerID(c *gin.Context, bodyID uuid.UUID) (uuid.UUID, bool) {
	if v := c.GetString("user_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id, true
		}
	}
	if bodyID != uuid.Nil {
		return bodyID, true
	}
	return uuid.Nil, false
}
