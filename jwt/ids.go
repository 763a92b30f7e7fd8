package jwt

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

// IDGenerator returns a fresh unique token identifier (the jti claim).
type IDGenerator func() (string, error)

// Token id formats accepted by IDGeneratorFor.
const (
	IDFormatUUID      = "uuid"
	IDFormatULID      = "ulid"
	IDFormatKSUID     = "ksuid"
	IDFormatSnowflake = "snowflake"
)

// NewUUID returns a random (v4) UUID string.
func NewUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewKSUID returns a time-sortable KSUID string.
func NewKSUID() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewULIDGenerator returns a generator of monotonic ULIDs stamped with now,
// which defaults to time.Now. The monotonic entropy source is not
// goroutine-safe, so calls are serialized.
func NewULIDGenerator(now func() time.Time) IDGenerator {
	if now == nil {
		now = time.Now
	}
	var (
		mu      sync.Mutex
		entropy io.Reader = ulid.Monotonic(rand.Reader, 0)
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id, err := ulid.New(ulid.Timestamp(now()), entropy)
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// NewSnowflakeGenerator returns a generator bound to the given snowflake node.
// Node ids must be unique per process sharing a revocation store.
func NewSnowflakeGenerator(nodeID int64) (IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return func() (string, error) {
		return node.Generate().String(), nil
	}, nil
}

// IDGeneratorFor resolves a configured id format name. An empty name selects
// uuid. now stamps time-ordered formats that accept an explicit time.
func IDGeneratorFor(format string, snowflakeNode int64, now func() time.Time) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", IDFormatUUID:
		return NewUUID, nil
	case IDFormatULID:
		return NewULIDGenerator(now), nil
	case IDFormatKSUID:
		return NewKSUID, nil
	case IDFormatSnowflake:
		return NewSnowflakeGenerator(snowflakeNode)
	default:
		return nil, fmt.Errorf("unsupported token id format %q", format)
	}
}
