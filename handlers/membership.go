package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall-backend/beacon"
	"rollcall-backend/models"
	"rollcall-backend/store"
)

type MembershipHandler struct {
	dir      store.MembershipDirectory
	registry *beacon.Registry
}

func NewMembershipHandler(dir store.MembershipDirectory, registry *beacon.Registry) *MembershipHandler {
	return &MembershipHandler{dir: dir, registry: registry}
}

// UpsertMembership activates a membership or changes its role.
func (h *MembershipHandler) UpsertMembership(c *gin.Context) {
	var req models.UpsertMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.dir.UpsertMembership(c.Request.Context(), models.Membership{
		UserID:   req.UserID,
		OrgID:    req.OrgID,
		Role:     req.Role,
		IsActive: true,
	})
	if err != nil {
		log.Printf("Error upserting membership for user %s in org %s: %v", req.UserID, req.OrgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save membership"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Membership saved"})
}

// DeactivateMembership clears a user's active standing in an org.
func (h *MembershipHandler) DeactivateMembership(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.dir.DeactivateMembership(c.Request.Context(), userID, orgID); err != nil {
		log.Printf("Error deactivating membership for user %s in org %s: %v", userID, orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate membership"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Membership deactivated"})
}

// GetMembership returns a user's active membership in an org, or null.
func (h *MembershipHandler) GetMembership(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	m, err := h.dir.Membership(c.Request.Context(), userID, orgID)
	if err != nil {
		log.Printf("Error loading membership for user %s in org %s: %v", userID, orgID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"membership": m})
}

// RegisterOrgCode assigns a beacon major code to an organization.
func (h *MembershipHandler) RegisterOrgCode(c *gin.Context) {
	var req models.RegisterOrgCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.registry.Register(req.OrgSlug, req.OrgCode)
	log.Printf("Registered beacon code %d for org %s", req.OrgCode, req.OrgSlug)
	c.JSON(http.StatusOK, gin.H{"success": true, "org_slug": req.OrgSlug, "org_code": req.OrgCode})
}
