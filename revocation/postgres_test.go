package revocation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

const (
	existsPattern = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+revoked_tokens\s+WHERE\s+jti\s*=\s*\$1\)$`
	claimPattern  = `(?s)^INSERT\s+INTO\s+revoked_tokens\s+\(jti,\s*expires_at\)\s+VALUES\s+\(\$1,\s*\$2\)\s+ON\s+CONFLICT\s+\(jti\)\s+DO\s+NOTHING$`
	prunePattern  = `(?s)^DELETE\s+FROM\s+revoked_tokens\s+WHERE\s+expires_at\s*<=\s*\$1$`
)

func TestPostgresIsBlacklisted(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(existsPattern).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(existsPattern).
		WithArgs("jti-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	got, err := s.IsBlacklisted(context.Background(), "jti-1")
	if err != nil || !got {
		t.Fatalf("jti-1: got=%v err=%v", got, err)
	}
	got, err = s.IsBlacklisted(context.Background(), "jti-2")
	if err != nil || got {
		t.Fatalf("jti-2: got=%v err=%v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimUsesRowsAffected(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(claimPattern).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claimPattern).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := s.Claim(context.Background(), "jti-1", exp)
	if err != nil || !won {
		t.Fatalf("first claim: won=%v err=%v", won, err)
	}
	won, err = s.Claim(context.Background(), "jti-1", exp)
	if err != nil || won {
		t.Fatalf("conflicting claim: won=%v err=%v", won, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresBlacklistIgnoresConflict(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectExec(claimPattern).
		WithArgs("jti-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Blacklist(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Blacklist on existing row: %v", err)
	}
}

func TestPostgresErrorsWrapUnavailable(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(existsPattern).WithArgs("jti").WillReturnError(errors.New("conn reset"))
	mock.ExpectExec(claimPattern).WithArgs("jti", sqlmock.AnyArg()).WillReturnError(errors.New("conn reset"))

	if _, err := s.IsBlacklisted(context.Background(), "jti"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.Claim(context.Background(), "jti", time.Now()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPostgresPrune(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	now := time.Now()

	mock.ExpectExec(prunePattern).
		WithArgs(now.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := s.Prune(context.Background(), now)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}

func TestMigrateRunsEmbeddedMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if gotDir != "migrations" {
		t.Fatalf("unexpected migrations dir %q", gotDir)
	}

	entries, err := migrations.ReadDir("migrations")
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %d (%v)", len(entries), err)
	}
}

func TestMigratePropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	if err := Migrate(context.Background(), db); err == nil {
		t.Fatal("expected migration error")
	}
}
