package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/config"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// SQLRepository is the Postgres document store: profiles, blood requests and
// credential accounts.
type SQLRepository struct {
	db     *sql.DB
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var (
	_ ports.ProfileRepository      = (*SQLRepository)(nil)
	_ ports.BloodRequestRepository = (*SQLRepository)(nil)
	_ ports.AccountRepository      = (*SQLRepository)(nil)
)

func NewSQLRepository(db *sql.DB, logger *zap.Logger) *SQLRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLRepository{
		db:     db,
		cb:     config.NewCircuitBreaker(config.BreakerPostgres, logger),
		logger: logger,
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		uid           TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS users (
		uid                     TEXT PRIMARY KEY,
		name                    TEXT,
		email                   TEXT,
		is_donor                BOOLEAN NOT NULL DEFAULT FALSE,
		blood_group             TEXT,
		location                TEXT,
		contact_number          TEXT,
		donor_registration_time TIMESTAMPTZ,
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS users_donors_idx ON users (is_donor) WHERE is_donor`,
	`CREATE TABLE IF NOT EXISTS blood_requests (
		id             TEXT PRIMARY KEY,
		requester_uid  TEXT,
		patient_name   TEXT,
		requester_name TEXT,
		blood_group    TEXT,
		location       TEXT,
		hospital_name  TEXT,
		contact_info   TEXT,
		urgency        TEXT,
		notes          TEXT,
		created_at     TIMESTAMPTZ DEFAULT NOW(),
		status         TEXT DEFAULT 'open'
	)`,
	`CREATE INDEX IF NOT EXISTS blood_requests_open_idx ON blood_requests (status, created_at DESC)`,
}

// Migrate creates the tables and indexes the list queries rely on.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", mapError(err))
		}
	}
	return mapError(tx.Commit())
}

// Ping reports whether the database answers. It bypasses the breaker so
// readiness reflects the live connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// run executes fn behind the breaker. Only outages count against it; a
// missing row or a constraint violation is the caller's answer, not a failure.
func (r *SQLRepository) run(fn func() error) error {
	var answer error
	_, err := r.cb.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && !isOutage(err) {
			answer = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return mapError(err)
	}
	return mapError(answer)
}

func isOutage(err error) bool {
	var netErr net.Error
	var pqErr *pq.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return true
	case errors.As(err, &pqErr):
		return pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57"
	}
	return false
}

// mapError translates driver errors into the domain taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: postgres circuit open", domain.ErrUnavailable)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42501":
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, pqErr.Message)
		case "42P01", "42703", "42P10":
			return fmt.Errorf("%w: %s", domain.ErrMissingIndex, pqErr.Message)
		}
	}
	if isOutage(err) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
