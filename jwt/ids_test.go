package jwt

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestIDGeneratorsProduceUniqueIDs(t *testing.T) {
	for _, format := range []string{"", IDFormatUUID, IDFormatULID, IDFormatKSUID, IDFormatSnowflake} {
		t.Run("format="+format, func(t *testing.T) {
			gen, err := IDGeneratorFor(format, 7, nil)
			if err != nil {
				t.Fatalf("IDGeneratorFor(%q): %v", format, err)
			}

			const workers, perWorker = 8, 250
			var (
				mu   sync.Mutex
				seen = make(map[string]struct{}, workers*perWorker)
				wg   sync.WaitGroup
			)
			wg.Add(workers)
			for w := 0; w < workers; w++ {
				go func() {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						id, err := gen()
						if err != nil {
							t.Errorf("generate: %v", err)
							return
						}
						mu.Lock()
						seen[id] = struct{}{}
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if len(seen) != workers*perWorker {
				t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(seen))
			}
		})
	}
}

func TestIDGeneratorForRejectsUnknownFormat(t *testing.T) {
	if _, err := IDGeneratorFor("sequential", 0, nil); err == nil {
		t.Fatal("expected unknown format error")
	}
	if _, err := IDGeneratorFor(IDFormatSnowflake, 5000, nil); err == nil {
		t.Fatal("expected out-of-range snowflake node error")
	}
}

func TestULIDGeneratorUsesClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gen, err := IDGeneratorFor(IDFormatULID, 0, func() time.Time { return at })
	if err != nil {
		t.Fatalf("IDGeneratorFor: %v", err)
	}
	id, err := gen()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Fatalf("ulid time = %v, want %v", got, at)
	}
}
