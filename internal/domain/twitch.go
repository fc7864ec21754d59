package domain

import (
	"context"
	"time"
)

// TwitchUser is a resolved Twitch account.
type TwitchUser struct {
	ID          string
	Login       string
	DisplayName string
}

// UserDirectory resolves Twitch accounts. Unknown accounts return ErrUserNotFound.
type UserDirectory interface {
	UserByLogin(ctx context.Context, login string) (*TwitchUser, error)
	UserByID(ctx context.Context, id string) (*TwitchUser, error)
}

// ChatSender posts a message to a channel as the bot.
type ChatSender interface {
	SendChatMessage(ctx context.Context, broadcasterID, message string) error
}

// TokenSource hands out a valid application access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenStore is the durable single slot holding the application access token.
type TokenStore interface {
	GetToken(ctx context.Context) (string, error)
	PutToken(ctx context.Context, token string) error
}

// TokenValidator checks a token against the identity provider.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// TokenGranter obtains a fresh application access token.
type TokenGranter interface {
	GrantAppToken(ctx context.Context) (string, error)
}

// EventSubSubscription is a record of a Twitch EventSub subscription
// linking a channel to a conduit-based webhook delivery.
type EventSubSubscription struct {
	BroadcasterUserID string
	SubscriptionID    string
	ConduitID         string
	CreatedAt         time.Time
}

// EventSubService manages Twitch EventSub subscriptions for channels.
type EventSubService interface {
	Subscribe(ctx context.Context, broadcasterUserID string) error
	Unsubscribe(ctx context.Context, broadcasterUserID string) error
}

// EventSubRepository persists EventSub subscription records.
type EventSubRepository interface {
	Create(ctx context.Context, broadcasterUserID, subscriptionID, conduitID string) error
	GetByBroadcasterID(ctx context.Context, broadcasterUserID string) (*EventSubSubscription, error)
	Delete(ctx context.Context, broadcasterUserID string) error
	DeleteByConduitID(ctx context.Context, conduitID string) error
	List(ctx context.Context) ([]EventSubSubscription, error)
}
