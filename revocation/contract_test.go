package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	t.Run("unknown id is not blacklisted", func(t *testing.T) {
		s := newStore(t)
		got, err := s.IsBlacklisted(ctx, "never-seen")
		if err != nil {
			t.Fatalf("IsBlacklisted: %v", err)
		}
		if got {
			t.Fatal("expected unknown id to be accepted")
		}
	})

	t.Run("blacklist is idempotent", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 3; i++ {
			if err := s.Blacklist(ctx, "jti-1", exp); err != nil {
				t.Fatalf("Blacklist #%d: %v", i+1, err)
			}
		}
		got, err := s.IsBlacklisted(ctx, "jti-1")
		if err != nil {
			t.Fatalf("IsBlacklisted: %v", err)
		}
		if !got {
			t.Fatal("expected jti-1 to be blacklisted")
		}
	})

	t.Run("claim reports first writer", func(t *testing.T) {
		s := newStore(t)
		won, err := s.Claim(ctx, "jti-2", exp)
		if err != nil || !won {
			t.Fatalf("first claim: won=%v err=%v", won, err)
		}
		won, err = s.Claim(ctx, "jti-2", exp)
		if err != nil || won {
			t.Fatalf("second claim: won=%v err=%v", won, err)
		}
		if err := s.Blacklist(ctx, "jti-3", exp); err != nil {
			t.Fatalf("Blacklist: %v", err)
		}
		won, err = s.Claim(ctx, "jti-3", exp)
		if err != nil || won {
			t.Fatalf("claim after blacklist: won=%v err=%v", won, err)
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.IsBlacklisted(ctx, ""); !errors.Is(err, ErrEmptyID) {
			t.Fatalf("expected ErrEmptyID, got %v", err)
		}
		if _, err := s.Claim(ctx, "", exp); !errors.Is(err, ErrEmptyID) {
			t.Fatalf("expected ErrEmptyID, got %v", err)
		}
	})

	t.Run("concurrent claims have a single winner", func(t *testing.T) {
		s := newStore(t)
		for round := 0; round < 5; round++ {
			jti := fmt.Sprintf("race-%d", round)

			const workers = 24
			start := make(chan struct{})
			var (
				wg      sync.WaitGroup
				winners atomic.Int32
				errs    atomic.Int32
			)
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					<-start
					won, err := s.Claim(ctx, jti, exp)
					if err != nil {
						errs.Add(1)
						return
					}
					if won {
						winners.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			if errs.Load() != 0 {
				t.Fatalf("round %d: %d claim errors", round, errs.Load())
			}
			if winners.Load() != 1 {
				t.Fatalf("round %d: expected exactly one winner, got %d", round, winners.Load())
			}
		}
	})
}
