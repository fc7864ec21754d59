package domain

import (
	"context"
	"slices"
)

// ChatMessage is the subset of a channel.chat.message event the bot needs.
type ChatMessage struct {
	MessageID           string
	BroadcasterID       string
	SourceBroadcasterID *string
	ChatterID           string
	ChatterLogin        string
	ChatterName         string
	Text                string
	Badges              []string
}

// HasBadge reports whether the chatter carries the badge set id.
func (m ChatMessage) HasBadge(setID string) bool {
	return slices.Contains(m.Badges, setID)
}

// ChatMessageHandler consumes verified chat messages.
type ChatMessageHandler interface {
	HandleChatMessage(ctx context.Context, msg ChatMessage)
}

// DeliveryDeduplicator reports whether a webhook message id is seen for the first time.
type DeliveryDeduplicator interface {
	FirstDelivery(ctx context.Context, messageID string) (bool, error)
}
