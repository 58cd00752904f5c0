package attendance

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"rollcall-backend/models"
)

func TestOfficerRoleClass(t *testing.T) {
	st := newTestStore(t)
	a := NewAuthorizer(st)
	orgID := uuid.New()

	cases := []struct {
		role    string
		officer bool
	}{
		{models.RoleMember, false},
		{models.RoleOfficer, true},
		{models.RolePresident, true},
		{models.RoleVicePresident, true},
		{models.RoleAdmin, true},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			userID := uuid.New()
			addMember(t, st, userID, orgID, tc.role)

			member, err := a.IsMember(context.Background(), userID, orgID)
			if err != nil || !member {
				t.Fatalf("IsMember = (%v, %v), want (true, nil)", member, err)
			}
			officer, err := a.IsOfficer(context.Background(), userID, orgID)
			if err != nil {
				t.Fatalf("IsOfficer: %v", err)
			}
			if officer != tc.officer {
				t.Fatalf("IsOfficer(%s) = %v, want %v", tc.role, officer, tc.officer)
			}
		})
	}
}

func TestNonMemberHasNoStanding(t *testing.T) {
	st := newTestStore(t)
	a := NewAuthorizer(st)

	member, err := a.IsMember(context.Background(), uuid.New(), uuid.New())
	if err != nil || member {
		t.Fatalf("IsMember(stranger) = (%v, %v), want (false, nil)", member, err)
	}
	officer, err := a.IsOfficer(context.Background(), uuid.New(), uuid.New())
	if err != nil || officer {
		t.Fatalf("IsOfficer(stranger) = (%v, %v), want (false, nil)", officer, err)
	}
}
