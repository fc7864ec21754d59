package domain

import "context"

const (
	// ChatterNamePlaceholder is replaced by the chatter's display name in templates.
	ChatterNamePlaceholder = "{{ chatter_user_name }}"

	DefaultPerfectMessage = ChatterNamePlaceholder + " has achieved perfect 45!"
)

// BroadcasterConfig is the per-channel customisation of the bot.
type BroadcasterConfig struct {
	FortyFive FortyFiveConfig
}

type FortyFiveConfig struct {
	PerfectMessage string
}

// DefaultBroadcasterConfig is used when a channel has no stored config.
func DefaultBroadcasterConfig() BroadcasterConfig {
	return BroadcasterConfig{
		FortyFive: FortyFiveConfig{PerfectMessage: DefaultPerfectMessage},
	}
}

type ConfigStore interface {
	Get(ctx context.Context, broadcasterID string) (*BroadcasterConfig, error)
	Put(ctx context.Context, broadcasterID string, cfg BroadcasterConfig) error
	Delete(ctx context.Context, broadcasterID string) error
}
