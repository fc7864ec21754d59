package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// ConfigStore keeps per-channel bot configuration as JSON without expiry.
type ConfigStore struct {
	rdb goredis.Cmdable
}

var _ domain.ConfigStore = (*ConfigStore)(nil)

func NewConfigStore(rdb goredis.Cmdable) *ConfigStore {
	return &ConfigStore{rdb: rdb}
}

type configDocument struct {
	FortyFive fortyFiveDocument `json:"forty_five"`
}

type fortyFiveDocument struct {
	PerfectMessage string `json:"perfect_45_message"`
}

// Get returns the stored config. Fields absent from the stored document keep
// their defaults.
func (s *ConfigStore) Get(ctx context.Context, broadcasterID string) (*domain.BroadcasterConfig, error) {
	data, err := s.rdb.Get(ctx, configKey(broadcasterID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	defaults := domain.DefaultBroadcasterConfig()
	doc := configDocument{FortyFive: fortyFiveDocument{PerfectMessage: defaults.FortyFive.PerfectMessage}}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &domain.BroadcasterConfig{
		FortyFive: domain.FortyFiveConfig{PerfectMessage: doc.FortyFive.PerfectMessage},
	}, nil
}

func (s *ConfigStore) Put(ctx context.Context, broadcasterID string, cfg domain.BroadcasterConfig) error {
	encoded, err := json.Marshal(configDocument{
		FortyFive: fortyFiveDocument{PerfectMessage: cfg.FortyFive.PerfectMessage},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := s.rdb.Set(ctx, configKey(broadcasterID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to store config: %w", err)
	}
	return nil
}

func (s *ConfigStore) Delete(ctx context.Context, broadcasterID string) error {
	if err := s.rdb.Del(ctx, configKey(broadcasterID)).Err(); err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}

func configKey(broadcasterID string) string {
	return "config:" + broadcasterID
}
