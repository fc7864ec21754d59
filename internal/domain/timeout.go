package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// MaxTimeoutSecs is the longest timeout whose length fits a time.Duration.
const MaxTimeoutSecs = math.MaxInt64 / int64(time.Second)

var ErrTimeoutOutOfRange = errors.New("timeout length out of range")

// Timeout suppresses a chatter's !45 results in one channel.
// StartedAt is Unix milliseconds.
type Timeout struct {
	StartedAt    int64
	DurationSecs int64
}

// Duration returns the timeout length, or ErrTimeoutOutOfRange when
// DurationSecs is not in 1..MaxTimeoutSecs.
func (t Timeout) Duration() (time.Duration, error) {
	if t.DurationSecs < 1 || t.DurationSecs > MaxTimeoutSecs {
		return 0, ErrTimeoutOutOfRange
	}
	return time.Duration(t.DurationSecs) * time.Second, nil
}

// TimeoutStore keeps timeouts with a store-enforced expiry.
type TimeoutStore interface {
	Put(ctx context.Context, broadcasterID, chatterID string, timeout Timeout) error
	Get(ctx context.Context, broadcasterID, chatterID string) (*Timeout, error)
	Delete(ctx context.Context, broadcasterID, chatterID string) (bool, error)
}
