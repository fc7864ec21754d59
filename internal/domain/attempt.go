package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Attempt is one recorded !45 result. Timestamp is Unix milliseconds.
type Attempt struct {
	Epoch         int64
	BroadcasterID string
	ChatterID     string
	Value         decimal.Decimal
	Difference    decimal.Decimal
	Timestamp     int64
}

// IsPerfect reports whether the attempt landed exactly on 45.
func (a Attempt) IsPerfect() bool {
	return a.Difference.IsZero()
}

// RecordKind selects the ordering for record lookups.
type RecordKind int

const (
	// RecordBest is the attempt with the smallest difference.
	RecordBest RecordKind = iota
	// RecordWorst is the attempt with the largest difference.
	RecordWorst
)

func (k RecordKind) String() string {
	if k == RecordWorst {
		return "worst"
	}
	return "best"
}

// AttemptRepository persists attempts. The epoch of a new attempt is
// computed by the store at insert time.
//
// Record lookups are scoped to the broadcaster's current epoch and break
// ties by latest timestamp. A nil chatterID means the whole channel.
type AttemptRepository interface {
	Insert(ctx context.Context, attempt Attempt) (int64, error)
	CurrentRecord(ctx context.Context, broadcasterID string, chatterID *string, kind RecordKind) (*Attempt, error)
	HasAttempts(ctx context.Context, broadcasterID, chatterID string) (bool, error)
	LatestPerfect(ctx context.Context, broadcasterID string, epoch *int64) (*Attempt, error)
	Ping(ctx context.Context) error
}
