package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rollcall-backend/models"
)

// Postgres is the production Store backed by a pgx pool. Races on the active
// token set and the attendance upsert are settled by the database: the
// partial unique index uniq_sessions_active_token covers concurrent creates
// and the attendance write uses ON CONFLICT.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const sessionColumns = "id, org_id, event_id, title, token, starts_at, ends_at, terminated_at, entropy_bits, created_at"

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.OrgID, &s.EventID, &s.Title, &s.Token,
		&s.StartsAt, &s.EndsAt, &s.TerminatedAt, &s.EntropyBits, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) Create(ctx context.Context, params CreateSessionParams) (*models.Session, error) {
	// uniq_sessions_active_token arbitrates concurrent creates racing on the
	// same token: the loser's insert fails with a unique violation, which is
	// surfaced as ErrDuplicateActiveToken. An application-level pre-check
	// would not close that window under READ COMMITTED.
	session, err := scanSession(p.db.QueryRow(ctx, `
		INSERT INTO sessions (id, org_id, event_id, title, token, starts_at, ends_at, entropy_bits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+sessionColumns,
		uuid.New(), params.OrgID, params.EventID, params.Title, params.Token,
		params.StartsAt, params.EndsAt, params.EntropyBits,
	))
	if err != nil {
		if isUniqueViolation(err, "uniq_sessions_active_token") {
			return nil, ErrDuplicateActiveToken
		}
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return session, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func (p *Postgres) Resolve(ctx context.Context, token string) (*models.Session, error) {
	session, err := scanSession(p.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}
	return session, nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session, err := scanSession(p.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return session, nil
}

func (p *Postgres) Terminate(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE sessions SET terminated_at = now()
		WHERE id = $1 AND terminated_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("terminating session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either already terminated (idempotent no-op) or missing.
		var exists bool
		if err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking session %s: %w", id, err)
		}
		if !exists {
			return ErrSessionNotFound
		}
	}
	return nil
}

func (p *Postgres) ListActive(ctx context.Context, orgID uuid.UUID, now time.Time) ([]ActiveSession, error) {
	rows, err := p.db.Query(ctx, `
		SELECT s.id, s.org_id, s.event_id, s.title, s.token, s.starts_at, s.ends_at,
		       s.terminated_at, s.entropy_bits, s.created_at,
		       COUNT(a.member_id) AS attendee_count
		FROM sessions s
		LEFT JOIN attendance_records a ON a.session_id = s.id
		WHERE s.org_id = $1
		  AND s.terminated_at IS NULL
		  AND s.starts_at <= $2
		  AND s.ends_at > $2
		GROUP BY s.id
		ORDER BY s.starts_at DESC
	`, orgID, now)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer rows.Close()

	var out []ActiveSession
	for rows.Next() {
		var as ActiveSession
		s := &as.Session
		err := rows.Scan(&s.ID, &s.OrgID, &s.EventID, &s.Title, &s.Token,
			&s.StartsAt, &s.EndsAt, &s.TerminatedAt, &s.EntropyBits, &s.CreatedAt,
			&as.AttendeeCount)
		if err != nil {
			return nil, fmt.Errorf("scanning active session: %w", err)
		}
		out = append(out, as)
	}
	return out, rows.Err()
}

func (p *Postgres) ActiveTokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sessions
			WHERE token = $1 AND terminated_at IS NULL AND ends_at > now()
		)
	`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking active token: %w", err)
	}
	return exists, nil
}

func (p *Postgres) Membership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := p.db.QueryRow(ctx, `
		SELECT user_id, org_id, role, is_active, updated_at
		FROM memberships
		WHERE user_id = $1 AND org_id = $2 AND is_active
	`, userID, orgID).Scan(&m.UserID, &m.OrgID, &m.Role, &m.IsActive, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	return &m, nil
}

func (p *Postgres) UpsertMembership(ctx context.Context, m models.Membership) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO memberships (user_id, org_id, role, is_active, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, org_id) DO UPDATE SET
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, m.UserID, m.OrgID, m.Role, m.IsActive)
	if err != nil {
		return fmt.Errorf("upserting membership: %w", err)
	}
	return nil
}

func (p *Postgres) DeactivateMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	_, err := p.db.Exec(ctx, `
		UPDATE memberships SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND org_id = $2
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("deactivating membership: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, error) {
	var out models.AttendanceRecord
	err := p.db.QueryRow(ctx, `
		INSERT INTO attendance_records (session_id, member_id, org_id, method, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, member_id) DO UPDATE SET
			method = EXCLUDED.method,
			recorded_at = EXCLUDED.recorded_at
		RETURNING session_id, member_id, org_id, method, recorded_at
	`, rec.SessionID, rec.MemberID, rec.OrgID, rec.Method, rec.RecordedAt).Scan(
		&out.SessionID, &out.MemberID, &out.OrgID, &out.Method, &out.RecordedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("upserting attendance: %w", err)
	}
	return &out, nil
}

func (p *Postgres) ListAttendance(ctx context.Context, sessionID uuid.UUID) ([]models.AttendanceRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT session_id, member_id, org_id, method, recorded_at
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY recorded_at DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.SessionID, &rec.MemberID, &rec.OrgID, &rec.Method, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning attendance record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Store = (*Postgres)(nil)
