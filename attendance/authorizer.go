package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rollcall-backend/models"
	"rollcall-backend/store"
)

// Authorizer answers "who may act where". It is the single authorization
// primitive of the core: no other component inspects memberships directly.
// Both predicates are read-only.
type Authorizer struct {
	dir store.MembershipDirectory
}

// NewAuthorizer wraps a membership directory.
func NewAuthorizer(dir store.MembershipDirectory) *Authorizer {
	return &Authorizer{dir: dir}
}

// IsMember reports whether the user holds an active membership in the org.
func (a *Authorizer) IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	m, err := a.dir.Membership(ctx, userID, orgID)
	if err != nil {
		return false, fmt.Errorf("looking up membership: %w", err)
	}
	return m != nil && m.IsActive, nil
}

// IsOfficer reports whether the user holds an active membership with an
// officer-class role (officer, president, vice_president, admin).
func (a *Authorizer) IsOfficer(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	m, err := a.dir.Membership(ctx, userID, orgID)
	if err != nil {
		return false, fmt.Errorf("looking up membership: %w", err)
	}
	return m != nil && m.IsActive && models.OfficerRoles[m.Role], nil
}
