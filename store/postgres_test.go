package store

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// Concurrent creates racing on one token are settled by the
// uniq_sessions_active_token index; the loser's 23505 must come back as
// ErrDuplicateActiveToken and nothing else may be misread as one.
func TestUniqueViolationMapping(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uniq_sessions_active_token"}
	if !isUniqueViolation(dup, "uniq_sessions_active_token") {
		t.Fatal("active-token unique violation not recognized")
	}
	if !isUniqueViolation(fmt.Errorf("inserting session: %w", dup), "uniq_sessions_active_token") {
		t.Fatal("wrapped unique violation not recognized")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "sessions_pkey"}, "uniq_sessions_active_token") {
		t.Fatal("violation of a different constraint attributed to the token index")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation treated as unique violation")
	}
	if isUniqueViolation(fmt.Errorf("connection reset"), "") {
		t.Fatal("plain error treated as unique violation")
	}
}
