package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID int64 = 2026031501

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintActiveTypeName   = "document_types_active_name_uniq"
	constraintMeetingRequest   = "clearance_meetings_request_uniq"
	constraintMeetingRequestFK = "clearance_meetings_request_fk"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	role TEXT NOT NULL CHECK (role IN ('requester', 'approver', 'administrator', 'records-office')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL CHECK (char_length(name) BETWEEN 1 AND 128),
	requires_clearance BOOLEAN NOT NULL,
	assigned_approver TEXT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT document_types_approver_iff_clearance
		CHECK (requires_clearance = (assigned_approver IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS document_types_active_name_uniq
	ON document_types(name) WHERE active;

CREATE TABLE IF NOT EXISTS document_requests (
	id TEXT PRIMARY KEY,
	document_type TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	requires_clearance BOOLEAN NOT NULL,
	clearance_status TEXT NOT NULL CHECK (clearance_status IN ('none', 'awaiting', 'scheduled', 'completed')),
	assigned_approver TEXT,
	document_status TEXT NOT NULL CHECK (document_status IN ('pending', 'processing', 'ready-to-pickup', 'completed', 'cancelled')),
	cancel_reason TEXT,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT document_requests_cancel_reason_iff_cancelled
		CHECK ((document_status = 'cancelled') = (coalesce(cancel_reason, '') <> '')),
	CONSTRAINT document_requests_clearance_needs_flag
		CHECK (clearance_status = 'none' OR requires_clearance)
);

CREATE INDEX IF NOT EXISTS idx_document_requests_requested_by ON document_requests(requested_by, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_document_requests_approver ON document_requests(assigned_approver, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_document_requests_created_at ON document_requests(created_at DESC);

CREATE TABLE IF NOT EXISTS clearance_meetings (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	approver_id TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	room TEXT NOT NULL CHECK (room <> ''),
	scheduled_at TIMESTAMPTZ NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT clearance_meetings_request_uniq UNIQUE (request_id),
	CONSTRAINT clearance_meetings_request_fk FOREIGN KEY (request_id)
		REFERENCES document_requests(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clearance_meetings_approver ON clearance_meetings(approver_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_clearance_meetings_requester ON clearance_meetings(requester_id, scheduled_at);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	request_id TEXT NOT NULL,
	document_type TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
`

// EnsureSchema creates the tables and constraints if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isViolation(err error, code, constraint string) bool {
	gotCode, gotConstraint := pgErrorCode(err)
	return gotCode == code && (constraint == "" || gotConstraint == constraint)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}
