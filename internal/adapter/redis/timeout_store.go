package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// TimeoutStore keeps !45 timeouts as JSON values whose Redis TTL equals the
// timeout length, so expiry needs no sweeper.
type TimeoutStore struct {
	rdb goredis.Cmdable
}

var _ domain.TimeoutStore = (*TimeoutStore)(nil)

func NewTimeoutStore(rdb goredis.Cmdable) *TimeoutStore {
	return &TimeoutStore{rdb: rdb}
}

type timeoutRecord struct {
	Timestamp int64 `json:"timestamp"`
	Secs      int64 `json:"secs"`
}

func (s *TimeoutStore) Put(ctx context.Context, broadcasterID, chatterID string, timeout domain.Timeout) error {
	ttl, err := timeout.Duration()
	if err != nil {
		return fmt.Errorf("invalid timeout of %d seconds: %w", timeout.DurationSecs, err)
	}

	encoded, err := json.Marshal(timeoutRecord{Timestamp: timeout.StartedAt, Secs: timeout.DurationSecs})
	if err != nil {
		return fmt.Errorf("failed to marshal timeout: %w", err)
	}

	if err := s.rdb.Set(ctx, timeoutKey(broadcasterID, chatterID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store timeout: %w", err)
	}
	return nil
}

func (s *TimeoutStore) Get(ctx context.Context, broadcasterID, chatterID string) (*domain.Timeout, error) {
	data, err := s.rdb.Get(ctx, timeoutKey(broadcasterID, chatterID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrTimeoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeout: %w", err)
	}

	var record timeoutRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timeout: %w", err)
	}
	return &domain.Timeout{StartedAt: record.Timestamp, DurationSecs: record.Secs}, nil
}

// Delete removes the timeout and reports whether one was present.
func (s *TimeoutStore) Delete(ctx context.Context, broadcasterID, chatterID string) (bool, error) {
	removed, err := s.rdb.Del(ctx, timeoutKey(broadcasterID, chatterID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete timeout: %w", err)
	}
	return removed > 0, nil
}

func timeoutKey(broadcasterID, chatterID string) string {
	return "timeout:broadcaster=" + broadcasterID + ";chatter=" + chatterID
}
