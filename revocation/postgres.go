package revocation

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	existsQuery = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`
	claimQuery  = `INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`
	pruneQuery  = `DELETE FROM revoked_tokens WHERE expires_at <= $1`
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply revocation migrations: %w", err)
	}
	return nil
}

// PostgresStore keeps revocation entries in the revoked_tokens table. The
// primary key on jti is the uniqueness constraint that settles concurrent
// rotations, including across processes.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection. Call Migrate once before use.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// IsBlacklisted reports whether a row for jti exists.
func (s *PostgresStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, existsQuery, jti); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists, nil
}

// Blacklist inserts jti, ignoring an existing row.
func (s *PostgresStore) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.Claim(ctx, jti, expiresAt)
	return err
}

// Claim inserts jti and reports whether a row was created.
func (s *PostgresStore) Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, claimQuery, jti, expiresAt.UTC())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// Prune deletes rows whose expiry is at or before now.
func (s *PostgresStore) Prune(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, pruneQuery, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(n), nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
