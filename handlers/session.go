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
	"rollcall-backend/token"
)

type SessionHandler struct {
	lifecycle *attendance.Lifecycle
}

func NewSessionHandler(lifecycle *attendance.Lifecycle) *SessionHandler {
	return &SessionHandler{lifecycle: lifecycle}
}

// CreateSession mints a new attendance session for an event.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, ok := callerID(c, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	log.Printf("Creating session for org %s, event %s, ttl %ds", req.OrgID, req.EventID, req.TTLSeconds)

	resp, err := h.lifecycle.CreateSession(c.Request.Context(), actorID, req.OrgID, req.EventID, req.Title, req.StartsAt, req.TTLSeconds)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidTTL):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, attendance.ErrNotOfficer):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only officers can create sessions"})
		case errors.Is(err, store.ErrDuplicateActiveToken):
			log.Printf("ALERT: duplicate active token creating session for org %s: %v", req.OrgID, err)
			c.JSON(http.StatusConflict, gin.H{"error": "Token collision, please retry"})
		case errors.Is(err, token.ErrGenerationFailed):
			log.Printf("ALERT: token generation failed for org %s: %v", req.OrgID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate session token"})
		default:
			log.Printf("Error creating session for org %s: %v", req.OrgID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// EndSession terminates a session before its natural expiry.
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	// The body is optional when the auth middleware supplies the caller.
	_ = c.ShouldBindJSON(&req)

	actorID, ok := callerID(c, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	err = h.lifecycle.EndSessionEarly(c.Request.Context(), actorID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, attendance.ErrNotOfficer):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only officers can end sessions"})
		default:
			log.Printf("Error ending session %s: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		}
		return
	}

	log.Printf("Session %s ended early by %s", sessionID, actorID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session ended"})
}

// GetActiveSessions lists an org's currently valid sessions.
func (h *SessionHandler) GetActiveSessions(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	sessions, err := h.lifecycle.ActiveSessions(c.Request.Context(), orgID)
	if err != nil {
		log.Printf("Error listing active sessions for org %s: %v", orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
