package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rollcall-backend/models"
)

// Redis is a Store backed by a Redis instance. The active-token uniqueness
// invariant maps onto SET NX with the session's TTL, so expiry of the
// reservation needs no sweeper. Session bodies and the token resolution
// pointer are persistent: Resolve must keep working after expiry so callers
// can tell "expired" from "not found".
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps an existing client. prefix namespaces every key.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "rc"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) sessionKey(id uuid.UUID) string { return r.prefix + ":ses:" + id.String() }
func (r *Redis) tokenKey(token string) string   { return r.prefix + ":tok:" + token }
func (r *Redis) activeTokenKey(token string) string {
	return r.prefix + ":tokactive:" + token
}
func (r *Redis) orgIndexKey(orgID uuid.UUID) string {
	return r.prefix + ":org:" + orgID.String() + ":sessions"
}
func (r *Redis) attendanceKey(sessionID uuid.UUID) string {
	return r.prefix + ":att:" + sessionID.String()
}
func (r *Redis) membersKey(orgID uuid.UUID) string {
	return r.prefix + ":mem:" + orgID.String()
}

func (r *Redis) Create(ctx context.Context, p CreateSessionParams) (*models.Session, error) {
	ttl := time.Until(p.EndsAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	// The NX reservation is the uniqueness constraint on the active token
	// set; it expires with the session on its own.
	ok, err := r.rdb.SetNX(ctx, r.activeTokenKey(p.Token), "1", ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserving token: %w", err)
	}
	if !ok {
		return nil, ErrDuplicateActiveToken
	}

	session := &models.Session{
		ID:          uuid.New(),
		OrgID:       p.OrgID,
		EventID:     p.EventID,
		Title:       p.Title,
		Token:       p.Token,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
		EntropyBits: p.EntropyBits,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.writeSession(ctx, session); err != nil {
		// Release the reservation so the token does not stay blocked for a
		// session that was never stored.
		r.rdb.Del(ctx, r.activeTokenKey(p.Token))
		return nil, err
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.tokenKey(p.Token), session.ID.String(), 0)
	pipe.ZAdd(ctx, r.orgIndexKey(p.OrgID), redis.Z{
		Score:  float64(p.StartsAt.UnixNano()),
		Member: session.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		r.rdb.Del(ctx, r.activeTokenKey(p.Token), r.sessionKey(session.ID))
		return nil, fmt.Errorf("indexing session: %w", err)
	}
	return session, nil
}

func (r *Redis) writeSession(ctx context.Context, s *models.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.sessionKey(s.ID), blob, 0).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (r *Redis) loadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	blob, err := r.rdb.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	var s models.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &s, nil
}

func (r *Redis) Resolve(ctx context.Context, token string) (*models.Session, error) {
	idStr, err := r.rdb.Get(ctx, r.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving token: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt token pointer for %q: %w", token, err)
	}
	return r.loadSession(ctx, id)
}

func (r *Redis) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.loadSession(ctx, id)
}

func (r *Redis) Terminate(ctx context.Context, id uuid.UUID) error {
	session, err := r.loadSession(ctx, id)
	if err != nil {
		return err
	}
	if session.TerminatedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	session.TerminatedAt = &now
	if err := r.writeSession(ctx, session); err != nil {
		return err
	}
	// Release the token reservation so late scanners stop resolving the
	// session as active and the token becomes reusable.
	if err := r.rdb.Del(ctx, r.activeTokenKey(session.Token)).Err(); err != nil {
		return fmt.Errorf("releasing token reservation: %w", err)
	}
	return nil
}

func (r *Redis) ListActive(ctx context.Context, orgID uuid.UUID, now time.Time) ([]ActiveSession, error) {
	ids, err := r.rdb.ZRevRange(ctx, r.orgIndexKey(orgID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading org session index: %w", err)
	}

	var out []ActiveSession
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		session, err := r.loadSession(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !session.IsValidAt(now) {
			continue
		}
		count, err := r.rdb.HLen(ctx, r.attendanceKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("counting attendees: %w", err)
		}
		out = append(out, ActiveSession{Session: *session, AttendeeCount: int(count)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Session.StartsAt.After(out[j].Session.StartsAt)
	})
	return out, nil
}

func (r *Redis) ActiveTokenExists(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.activeTokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("checking token reservation: %w", err)
	}
	return n > 0, nil
}

type redisMembership struct {
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Redis) Membership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	blob, err := r.rdb.HGet(ctx, r.membersKey(orgID), userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	var m redisMembership
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("decoding membership: %w", err)
	}
	if !m.IsActive {
		return nil, nil
	}
	return &models.Membership{
		UserID:    userID,
		OrgID:     orgID,
		Role:      m.Role,
		IsActive:  true,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

func (r *Redis) UpsertMembership(ctx context.Context, m models.Membership) error {
	blob, err := json.Marshal(redisMembership{
		Role:      m.Role,
		IsActive:  m.IsActive,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding membership: %w", err)
	}
	if err := r.rdb.HSet(ctx, r.membersKey(m.OrgID), m.UserID.String(), blob).Err(); err != nil {
		return fmt.Errorf("storing membership: %w", err)
	}
	return nil
}

func (r *Redis) DeactivateMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	blob, err := r.rdb.HGet(ctx, r.membersKey(orgID), userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading membership: %w", err)
	}
	var m redisMembership
	if err := json.Unmarshal(blob, &m); err != nil {
		return fmt.Errorf("decoding membership: %w", err)
	}
	m.IsActive = false
	m.UpdatedAt = time.Now().UTC()
	out, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding membership: %w", err)
	}
	if err := r.rdb.HSet(ctx, r.membersKey(orgID), userID.String(), out).Err(); err != nil {
		return fmt.Errorf("storing membership: %w", err)
	}
	return nil
}

type redisAttendance struct {
	OrgID      uuid.UUID `json:"org_id"`
	Method     string    `json:"method"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (r *Redis) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, error) {
	blob, err := json.Marshal(redisAttendance{
		OrgID:      rec.OrgID,
		Method:     rec.Method,
		RecordedAt: rec.RecordedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding attendance: %w", err)
	}
	// HSET is the idempotent upsert: a re-scan overwrites method and
	// recorded_at for the same (session, member) field.
	if err := r.rdb.HSet(ctx, r.attendanceKey(rec.SessionID), rec.MemberID.String(), blob).Err(); err != nil {
		return nil, fmt.Errorf("storing attendance: %w", err)
	}
	return &rec, nil
}

func (r *Redis) ListAttendance(ctx context.Context, sessionID uuid.UUID) ([]models.AttendanceRecord, error) {
	entries, err := r.rdb.HGetAll(ctx, r.attendanceKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	out := make([]models.AttendanceRecord, 0, len(entries))
	for memberStr, blob := range entries {
		memberID, err := uuid.Parse(memberStr)
		if err != nil {
			continue
		}
		var a redisAttendance
		if err := json.Unmarshal([]byte(blob), &a); err != nil {
			return nil, fmt.Errorf("decoding attendance for %s: %w", memberStr, err)
		}
		out = append(out, models.AttendanceRecord{
			SessionID:  sessionID,
			MemberID:   memberID,
			OrgID:      a.OrgID,
			Method:     a.Method,
			RecordedAt: a.RecordedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

var _ Store = (*Redis)(nil)
