package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership role constants
const (
	RoleMember        = "member"
	RoleOfficer       = "officer"
	RolePresident     = "president"
	RoleVicePresident = "vice_president"
	RoleAdmin         = "admin"
)

// OfficerRoles is the capability class allowed to create and end sessions.
var OfficerRoles = map[string]bool{
	RoleOfficer:       true,
	RolePresident:     true,
	RoleVicePresident: true,
	RoleAdmin:         true,
}

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	return role == RoleMember || OfficerRoles[role]
}

// Membership represents a user's standing in an organization. At most one
// active membership exists per (user, org) pair.
type Membership struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Role      string    `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertMembershipRequest for activating or changing a member's role.
type UpsertMembershipRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	OrgID  uuid.UUID `json:"org_id" binding:"required"`
	Role   string    `json:"role" binding:"required,oneof=member officer president vice_president admin"`
}

// RegisterOrgCodeRequest assigns a beacon major code to an organization at
// onboarding time. The slug is the registry key; it is conventionally the
// org's UUID string but any stable identifier works.
type RegisterOrgCodeRequest struct {
	OrgSlug string `json:"org_slug" binding:"required,max=100"`
	OrgCode uint16 `json:"org_code" binding:"required,gt=0"`
}
