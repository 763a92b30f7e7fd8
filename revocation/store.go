package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure (network, disk, SQL).
	ErrUnavailable = errors.New("revocation store unavailable")
	// ErrEmptyID is returned when a blank token id is presented.
	ErrEmptyID = errors.New("revocation: empty token id")
)

// minRetention keeps an entry for a token that is already at or past expiry.
// Such a token cannot be replayed, but the record still settles a race.
const minRetention = time.Second

// Store records refresh-token identifiers that must no longer be accepted.
//
// Implementations are safe for concurrent use by multiple goroutines and,
// for the networked backends, multiple processes.
type Store interface {
	// IsBlacklisted reports whether jti was previously recorded.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// Blacklist records jti until expiresAt. Recording an id twice is a no-op success.
	Blacklist(ctx context.Context, jti string, expiresAt time.Time) error
	// Claim records jti and reports whether this call created the record.
	// Among concurrent callers presenting the same id exactly one observes true.
	Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
}

// Pruner is implemented by stores whose entries are not dropped by the
// backend itself once expired.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) (int, error)
}

func retention(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < minRetention {
		return minRetention
	}
	return ttl
}
