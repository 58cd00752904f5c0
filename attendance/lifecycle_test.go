package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"rollcall-backend/beacon"
	"rollcall-backend/models"
	"rollcall-backend/store"
	"rollcall-backend/token"
)

func newTestLifecycle(t *testing.T) (*Lifecycle, *store.Redis) {
	t.Helper()
	st := newTestStore(t)
	lc := NewLifecycle(st, token.NewGenerator(st), token.NewEntropyValidator(), NewAuthorizer(st), beacon.NewRegistry())
	return lc, st
}

func TestCreateSessionHappyPath(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	addMember(t, st, officerID, orgID, models.RoleOfficer)
	lc.registry.Register(orgID.String(), 42)

	resp, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "general meeting", nil, 3600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := token.CheckShape(resp.Token); err != nil {
		t.Fatalf("minted token %q malformed: %v", resp.Token, err)
	}
	if resp.EntropyBits < 60 {
		t.Fatalf("entropy_bits = %.2f, want >= 60", resp.EntropyBits)
	}
	if resp.OrgCode != 42 {
		t.Fatalf("org_code = %d, want 42", resp.OrgCode)
	}
	if resp.TokenHash != beacon.TokenHash(resp.Token) {
		t.Fatal("token_hash does not match the minted token")
	}
	until := time.Until(resp.ExpiresAt)
	if until < 59*time.Minute || until > 61*time.Minute {
		t.Fatalf("expires_at %v is not about an hour out", resp.ExpiresAt)
	}

	// The session must be resolvable and active right away.
	session, err := st.Resolve(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("Resolve minted token: %v", err)
	}
	if session.ID != resp.SessionID || session.OrgID != orgID {
		t.Fatalf("resolved session %+v", session)
	}
}

func TestCreateSessionUnregisteredOrgGetsReservedCode(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	addMember(t, st, officerID, orgID, models.RolePresident)

	resp, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, 600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if resp.OrgCode != beacon.ReservedOrgCode {
		t.Fatalf("org_code = %d, want reserved %d", resp.OrgCode, beacon.ReservedOrgCode)
	}
}

func TestCreateSessionValidatesTTL(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	addMember(t, st, officerID, orgID, models.RoleOfficer)

	for _, ttl := range []int64{0, -1, MaxTTLSeconds + 1} {
		_, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, ttl)
		if !errors.Is(err, ErrInvalidTTL) {
			t.Errorf("CreateSession(ttl=%d) = %v, want ErrInvalidTTL", ttl, err)
		}
	}

	// The 24h ceiling itself is allowed.
	if _, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, MaxTTLSeconds); err != nil {
		t.Fatalf("CreateSession(ttl=max) = %v", err)
	}
}

func TestCreateSessionRequiresOfficer(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	memberID := uuid.New()
	addMember(t, st, memberID, orgID, models.RoleMember)

	_, err := lc.CreateSession(context.Background(), memberID, orgID, uuid.New(), "meeting", nil, 600)
	if !errors.Is(err, ErrNotOfficer) {
		t.Fatalf("member CreateSession = %v, want ErrNotOfficer", err)
	}

	_, err = lc.CreateSession(context.Background(), uuid.New(), orgID, uuid.New(), "meeting", nil, 600)
	if !errors.Is(err, ErrNotOfficer) {
		t.Fatalf("stranger CreateSession = %v, want ErrNotOfficer", err)
	}
}

func TestEndSessionEarlyRequiresOfficerOfOwningOrg(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgA := uuid.New()
	orgB := uuid.New()
	officerA := uuid.New()
	officerB := uuid.New()
	addMember(t, st, officerA, orgA, models.RoleOfficer)
	addMember(t, st, officerB, orgB, models.RoleOfficer)

	resp, err := lc.CreateSession(context.Background(), officerA, orgA, uuid.New(), "meeting", nil, 3600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// An officer of a different org cannot end it.
	err = lc.EndSessionEarly(context.Background(), officerB, resp.SessionID)
	if !errors.Is(err, ErrNotOfficer) {
		t.Fatalf("foreign officer EndSessionEarly = %v, want ErrNotOfficer", err)
	}

	if err := lc.EndSessionEarly(context.Background(), officerA, resp.SessionID); err != nil {
		t.Fatalf("EndSessionEarly: %v", err)
	}
	// Ending twice is a no-op.
	if err := lc.EndSessionEarly(context.Background(), officerA, resp.SessionID); err != nil {
		t.Fatalf("second EndSessionEarly: %v", err)
	}

	err = lc.EndSessionEarly(context.Background(), officerA, uuid.New())
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("EndSessionEarly(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestActiveSessionsCarriesBeaconFields(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	memberID := uuid.New()
	addMember(t, st, officerID, orgID, models.RoleOfficer)
	addMember(t, st, memberID, orgID, models.RoleMember)
	lc.registry.Register(orgID.String(), 7)

	resp, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, 3600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	r := newRecorder(st)
	if _, err := r.CheckIn(context.Background(), resp.Token, memberID, ""); err != nil {
		t.Fatalf("CheckIn: %v", err)
	}

	sessions, err := lc.ActiveSessions(context.Background(), orgID)
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d active sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.OrgCode != 7 || s.TokenHash != beacon.TokenHash(resp.Token) {
		t.Fatalf("beacon fields = (%d, %d)", s.OrgCode, s.TokenHash)
	}
	if s.AttendeeCount != 1 {
		t.Fatalf("attendee_count = %d, want 1", s.AttendeeCount)
	}
}

func TestActiveSessionsNeverListsTerminated(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	addMember(t, st, officerID, orgID, models.RoleOfficer)

	resp, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, 3600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := lc.EndSessionEarly(context.Background(), officerID, resp.SessionID); err != nil {
		t.Fatalf("EndSessionEarly: %v", err)
	}

	sessions, err := lc.ActiveSessions(context.Background(), orgID)
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("terminated session still listed: %+v", sessions)
	}
}

// The end-to-end scenario: create at t0, U1 scans at t0+10s, an officer ends
// the session at t0+20s, U2's scan at t0+30s fails as expired even though
// the natural window is still open.
func TestEarlyTerminationScenario(t *testing.T) {
	lc, st := newTestLifecycle(t)
	orgID := uuid.New()
	officerID := uuid.New()
	u1 := uuid.New()
	u2 := uuid.New()
	addMember(t, st, officerID, orgID, models.RoleOfficer)
	addMember(t, st, u1, orgID, models.RoleMember)
	addMember(t, st, u2, orgID, models.RoleMember)

	t0 := time.Now().UTC()
	resp, err := lc.CreateSession(context.Background(), officerID, orgID, uuid.New(), "meeting", nil, 3600)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	r := newRecorder(st)
	r.now = func() time.Time { return t0.Add(10 * time.Second) }
	if _, err := r.CheckIn(context.Background(), resp.Token, u1, ""); err != nil {
		t.Fatalf("U1 CheckIn: %v", err)
	}

	if err := lc.EndSessionEarly(context.Background(), officerID, resp.SessionID); err != nil {
		t.Fatalf("EndSessionEarly: %v", err)
	}

	r.now = func() time.Time { return t0.Add(30 * time.Second) }
	_, err = r.CheckIn(context.Background(), resp.Token, u2, "")
	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("U2 CheckIn = %v, want SessionExpiredError", err)
	}
	if !expired.Terminated {
		t.Fatal("expiry should be due to termination")
	}

	records, err := st.ListAttendance(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	if len(records) != 1 || records[0].MemberID != u1 {
		t.Fatalf("attendance = %+v, want only U1", records)
	}
}
