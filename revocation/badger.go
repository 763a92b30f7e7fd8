package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "rv:"

// BadgerOptions configures an embedded BadgerStore.
type BadgerOptions struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir        string
	InMemory   bool
	SyncWrites bool
	// GCDiscardRatio is passed to RunValueLogGC during Prune. Defaults to 0.5.
	GCDiscardRatio float64
}

// BadgerStore keeps revocation entries in an embedded Badger database. Entry
// TTLs drop expired ids; optimistic transaction conflicts settle races.
type BadgerStore struct {
	db           *badger.DB
	discardRatio float64
	now          func() time.Time
}

// OpenBadgerStore opens (or creates) a Badger database for revocation entries.
func OpenBadgerStore(opts BadgerOptions, logger *zap.Logger) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.
		WithSyncWrites(opts.SyncWrites).
		WithDetectConflicts(true).
		WithLogger(&badgerLogger{s: logger.Named("badger").Sugar()})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	ratio := opts.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &BadgerStore{db: db, discardRatio: ratio, now: time.Now}, nil
}

func badgerKey(jti string) []byte {
	return []byte(badgerKeyPrefix + jti)
}

// IsBlacklisted reports whether a live entry for jti exists.
func (s *BadgerStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(jti))
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return found, nil
}

// Blacklist records jti with a TTL reaching expiresAt.
func (s *BadgerStore) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.Claim(ctx, jti, expiresAt)
	return err
}

// Claim records jti in a transaction; a conflicting commit loses.
func (s *BadgerStore) Claim(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, ErrEmptyID
	}
	key := badgerKey(jti)
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		entry := badger.NewEntry(key, []byte(strconv.FormatInt(expiresAt.Unix(), 10))).
			WithTTL(retention(expiresAt, s.now()))
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent transaction committed the same key first.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return created, nil
}

// Prune reclaims value-log space. Expired keys are already invisible through
// their TTL, so the count of removed entries is always zero.
func (s *BadgerStore) Prune(_ context.Context, _ time.Time) (int, error) {
	for {
		err := s.db.RunValueLogGC(s.discardRatio)
		if err == nil {
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts zap to Badger's Logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
