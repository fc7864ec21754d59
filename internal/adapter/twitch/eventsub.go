package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/retry"
)

const (
	webhookShardID  = "0"
	appTokenTimeout = 15 * time.Second
)

// EventSubManager routes a single-shard conduit to the webhook callback and
// keeps one channel.chat.message subscription per served channel, read as the
// bot user.
type EventSubManager struct {
	client     *helix.Client
	repository domain.EventSubRepository
	policy     retry.Policy

	conduitID   string
	callbackURL string
	secret      string
	botUserID   string
}

func NewEventSubManager(clientID, clientSecret string, repository domain.EventSubRepository, callbackURL, secret, botUserID string) (*EventSubManager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), appTokenTimeout)
	defer cancel()

	auth := helix.NewAuthClient(helix.AuthConfig{ClientID: clientID, ClientSecret: clientSecret})
	if _, err := auth.GetAppAccessToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to get app access token: %w", err)
	}

	return newEventSubManager(helix.NewClient(clientID, auth), repository, callbackURL, secret, botUserID), nil
}

func newEventSubManager(client *helix.Client, repository domain.EventSubRepository, callbackURL, secret, botUserID string) *EventSubManager {
	return &EventSubManager{
		client:     client,
		repository: repository,
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   time.Second,
			RateLimitBackoff: 30 * time.Second,
		},
		callbackURL: callbackURL,
		secret:      secret,
		botUserID:   botUserID,
	}
}

// ConduitID returns the conduit configured by Setup, or "" before Setup.
func (m *EventSubManager) ConduitID() string {
	return m.conduitID
}

// Setup reuses the application's first conduit, creating one if none exists,
// and points its only shard at the callback URL.
func (m *EventSubManager) Setup(ctx context.Context) error {
	var conduits []helix.Conduit
	if _, err := callTwitch(ctx, m, "list conduits", func(ctx context.Context) (any, error) {
		resp, err := m.client.GetConduits(ctx)
		if err != nil {
			return nil, err
		}
		conduits = resp.Data
		return nil, nil
	}); err != nil {
		return err
	}

	var conduitID string
	if len(conduits) > 0 {
		conduitID = conduits[0].ID
	} else {
		created, err := callTwitch(ctx, m, "create conduit", func(ctx context.Context) (*helix.Conduit, error) {
			return m.client.CreateConduit(ctx, 1)
		})
		if err != nil {
			return err
		}
		if created == nil {
			return errors.New("twitch returned no conduit")
		}
		conduitID = created.ID
	}

	params := helix.UpdateConduitShardsParams{
		ConduitID: conduitID,
		Shards: []helix.UpdateConduitShardParams{{
			ID: webhookShardID,
			Transport: helix.UpdateConduitShardTransport{
				Method:   "webhook",
				Callback: m.callbackURL,
				Secret:   m.secret,
			},
		}},
	}
	if _, err := callTwitch(ctx, m, "update conduit shard", func(ctx context.Context) (any, error) {
		_, err := m.client.UpdateConduitShards(ctx, &params)
		return nil, err
	}); err != nil {
		return err
	}

	m.conduitID = conduitID
	slog.Info("Conduit routed to webhook", "conduit_id", conduitID, "callback_url", m.callbackURL)
	return nil
}

// Cleanup deletes the conduit. Twitch drops its subscriptions with it, so
// their records go too.
func (m *EventSubManager) Cleanup(ctx context.Context) error {
	if m.conduitID == "" {
		return nil
	}

	if err := m.repository.DeleteByConduitID(ctx, m.conduitID); err != nil {
		slog.Error("Failed to delete subscription records", "conduit_id", m.conduitID, "error", err)
	}
	if err := m.client.DeleteConduit(ctx, m.conduitID); err != nil {
		return fmt.Errorf("failed to delete conduit: %w", err)
	}

	slog.Info("Deleted conduit", "conduit_id", m.conduitID)
	m.conduitID = ""
	return nil
}

// SubscribeAll subscribes every channel, continuing past failures.
func (m *EventSubManager) SubscribeAll(ctx context.Context, broadcasterIDs []string) error {
	var errs []error
	for _, id := range broadcasterIDs {
		if err := m.Subscribe(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe makes sure the bot receives the channel's chat on the current
// conduit. A record pointing at another conduit is replaced.
func (m *EventSubManager) Subscribe(ctx context.Context, broadcasterUserID string) error {
	existing, err := m.repository.GetByBroadcasterID(ctx, broadcasterUserID)
	switch {
	case errors.Is(err, domain.ErrSubscriptionNotFound):
	case err != nil:
		return fmt.Errorf("failed to check existing subscription: %w", err)
	case existing.ConduitID == m.conduitID:
		return nil
	default:
		slog.Info("Replacing subscription from previous conduit", "broadcaster_user_id", broadcasterUserID, "old_conduit", existing.ConduitID)
		if err := m.repository.Delete(ctx, broadcasterUserID); err != nil {
			return fmt.Errorf("failed to delete stale subscription: %w", err)
		}
	}

	sub, err := callTwitch(ctx, m, "subscribe", func(ctx context.Context) (*helix.EventSubSubscription, error) {
		return m.createSubscription(ctx, broadcasterUserID)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", broadcasterUserID, err)
	}
	if sub == nil {
		return errors.New("twitch returned no subscription")
	}

	if err := m.repository.Create(ctx, broadcasterUserID, sub.ID, m.conduitID); err != nil {
		if delErr := m.client.DeleteEventSubSubscription(ctx, sub.ID); delErr != nil {
			slog.Error("Failed to roll back Twitch subscription", "subscription_id", sub.ID, "error", delErr)
		}
		return fmt.Errorf("failed to persist subscription: %w", err)
	}

	slog.Info("Subscribed to chat messages", "broadcaster_user_id", broadcasterUserID, "subscription_id", sub.ID)
	return nil
}

// createSubscription creates the subscription, or finds it when Twitch
// reports that it already exists.
func (m *EventSubManager) createSubscription(ctx context.Context, broadcasterUserID string) (*helix.EventSubSubscription, error) {
	condition := map[string]string{
		"broadcaster_user_id": broadcasterUserID,
		"user_id":             m.botUserID,
	}

	sub, err := m.client.CreateEventSubSubscription(ctx, &helix.CreateEventSubSubscriptionParams{
		Type:      helix.EventSubTypeChannelChatMessage,
		Version:   "1",
		Condition: condition,
		Transport: helix.CreateEventSubTransport{Method: "conduit", ConduitID: m.conduitID},
	})
	if statusOf(err) != http.StatusConflict {
		return sub, err
	}

	params := helix.GetEventSubSubscriptionsParams{Type: helix.EventSubTypeChannelChatMessage}
	for {
		resp, err := m.client.GetEventSubSubscriptions(ctx, &params)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, s := range resp.Data {
			if s.Condition["broadcaster_user_id"] == broadcasterUserID && s.Condition["user_id"] == m.botUserID {
				return &s, nil
			}
		}
		if resp.Pagination == nil || resp.Pagination.Cursor == "" {
			return nil, &retry.PermanentError{Err: errors.New("twitch reported a conflicting subscription that it does not list")}
		}
		params.PaginationParams = &helix.PaginationParams{After: resp.Pagination.Cursor}
	}
}

// Unsubscribe deletes the channel's subscription on Twitch and its record.
// The record goes even when Twitch cannot be reached.
func (m *EventSubManager) Unsubscribe(ctx context.Context, broadcasterUserID string) error {
	sub, err := m.repository.GetByBroadcasterID(ctx, broadcasterUserID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	_, err = callTwitch(ctx, m, "unsubscribe", func(ctx context.Context) (any, error) {
		return nil, m.client.DeleteEventSubSubscription(ctx, sub.SubscriptionID)
	})
	if err != nil && statusOf(err) != http.StatusNotFound {
		slog.Error("Twitch unsubscribe failed, subscription may be orphaned", "broadcaster_user_id", broadcasterUserID, "subscription_id", sub.SubscriptionID, "error", err)
	}

	if err := m.repository.Delete(ctx, broadcasterUserID); err != nil {
		return fmt.Errorf("failed to delete subscription record: %w", err)
	}
	slog.Info("Unsubscribed from chat messages", "broadcaster_user_id", broadcasterUserID, "subscription_id", sub.SubscriptionID)
	return nil
}

// callTwitch runs a Helix call under the manager's retry policy.
func callTwitch[T any](ctx context.Context, m *EventSubManager, op string, fn retry.Operation[T]) (T, error) {
	p := m.policy
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		slog.Warn("EventSub call failed, retrying", "op", op, "attempt", attempt, "wait", wait, "error", err)
	}

	val, err := retry.Do(ctx, p, classifyEventSubError, fn)
	if err != nil {
		return val, fmt.Errorf("%s: %w", op, err)
	}
	return val, nil
}

// statusOf returns the HTTP status of a Helix API error, or 0.
func statusOf(err error) int {
	if apiErr, ok := errors.AsType[*helix.APIError](err); ok {
		return apiErr.StatusCode
	}
	return 0
}

func classifyEventSubError(err error) retry.Action {
	if _, ok := errors.AsType[*retry.PermanentError](err); ok {
		return retry.Stop
	}

	status := statusOf(err)
	switch {
	case status == 0, status >= 500:
		return retry.Retry
	case status == http.StatusTooManyRequests:
		return retry.After
	default:
		return retry.Stop
	}
}
