package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall-backend/beacon"
	"rollcall-backend/models"
	"rollcall-backend/store"
	"rollcall-backend/token"
)

// MaxTTLSeconds caps a session's validity window at 24 hours.
const MaxTTLSeconds = 86400

// Lifecycle orchestrates session creation, early termination and listing.
type Lifecycle struct {
	sessions   store.SessionStore
	generator  *token.Generator
	validator  *token.EntropyValidator
	authorizer *Authorizer
	registry   *beacon.Registry
	now        func() time.Time
}

// NewLifecycle wires the session-facing components together.
func NewLifecycle(sessions store.SessionStore, generator *token.Generator, validator *token.EntropyValidator, authorizer *Authorizer, registry *beacon.Registry) *Lifecycle {
	return &Lifecycle{
		sessions:   sessions,
		generator:  generator,
		validator:  validator,
		authorizer: authorizer,
		registry:   registry,
		now:        time.Now,
	}
}

// CreateSession mints a token, persists the session and returns everything
// the officer's device needs to advertise it. actorID must hold an
// officer-class role in the org. A nil startsAt means "now".
func (l *Lifecycle) CreateSession(ctx context.Context, actorID, orgID, eventID uuid.UUID, title string, startsAt *time.Time, ttlSeconds int64) (*models.CreateSessionResponse, error) {
	if ttlSeconds <= 0 || ttlSeconds > MaxTTLSeconds {
		return nil, ErrInvalidTTL
	}

	officer, err := l.authorizer.IsOfficer(ctx, actorID, orgID)
	if err != nil {
		return nil, err
	}
	if !officer {
		return nil, ErrNotOfficer
	}

	start := l.now().UTC()
	if startsAt != nil {
		start = startsAt.UTC()
	}
	end := start.Add(time.Duration(ttlSeconds) * time.Second)

	tok, err := l.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}
	score, err := l.validator.Validate(tok)
	if err != nil {
		return nil, fmt.Errorf("generated token failed validation: %w", err)
	}

	session, err := l.sessions.Create(ctx, store.CreateSessionParams{
		OrgID:       orgID,
		EventID:     eventID,
		Title:       title,
		Token:       tok,
		StartsAt:    start,
		EndsAt:      end,
		EntropyBits: score.CharsetBits,
	})
	if err != nil {
		return nil, err
	}

	return &models.CreateSessionResponse{
		SessionID:   session.ID,
		Token:       session.Token,
		ExpiresAt:   session.EndsAt,
		EntropyBits: session.EntropyBits,
		OrgCode:     l.registry.OrgCode(orgID.String()),
		TokenHash:   beacon.TokenHash(session.Token),
	}, nil
}

// EndSessionEarly terminates the session now. Subsequent ListActive and
// CheckIn calls see the termination immediately; terminating twice is a
// no-op. actorID must be an officer of the owning org.
func (l *Lifecycle) EndSessionEarly(ctx context.Context, actorID, sessionID uuid.UUID) error {
	session, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	officer, err := l.authorizer.IsOfficer(ctx, actorID, session.OrgID)
	if err != nil {
		return err
	}
	if !officer {
		return ErrNotOfficer
	}
	return l.sessions.Terminate(ctx, sessionID)
}

// ActiveSessions lists the org's currently valid sessions with the beacon
// fields scanners cross-check against advertisements.
func (l *Lifecycle) ActiveSessions(ctx context.Context, orgID uuid.UUID) ([]models.SessionSummary, error) {
	active, err := l.sessions.ListActive(ctx, orgID, l.now())
	if err != nil {
		return nil, err
	}
	orgCode := l.registry.OrgCode(orgID.String())

	out := make([]models.SessionSummary, 0, len(active))
	for _, as := range active {
		s := as.Session
		out = append(out, models.SessionSummary{
			ID:            s.ID,
			OrgID:         s.OrgID,
			EventID:       s.EventID,
			Title:         s.Title,
			Token:         s.Token,
			StartsAt:      s.StartsAt,
			EndsAt:        s.EndsAt,
			AttendeeCount: as.AttendeeCount,
			OrgCode:       orgCode,
			TokenHash:     beacon.TokenHash(s.Token),
		})
	}
	return out, nil
}
