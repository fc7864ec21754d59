package twitch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/correlation"
)

const (
	messageTypeVerification = "webhook_callback_verification"
	messageTypeRevocation   = "revocation"

	maxWebhookBodyBytes = 1 << 20
)

type envelope struct {
	Subscription struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Version string `json:"version"`
		Status  string `json:"status"`
	} `json:"subscription"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

type chatMessageEvent struct {
	MessageID               string  `json:"message_id"`
	BroadcasterUserID       string  `json:"broadcaster_user_id"`
	SourceBroadcasterUserID *string `json:"source_broadcaster_user_id"`
	ChatterUserID           string  `json:"chatter_user_id"`
	ChatterUserLogin        string  `json:"chatter_user_login"`
	ChatterUserName         string  `json:"chatter_user_name"`
	Message                 struct {
		Text string `json:"text"`
	} `json:"message"`
	Badges []struct {
		SetID string `json:"set_id"`
	} `json:"badges"`
}

func (e chatMessageEvent) toDomain() domain.ChatMessage {
	badges := make([]string, 0, len(e.Badges))
	for _, b := range e.Badges {
		badges = append(badges, b.SetID)
	}

	return domain.ChatMessage{
		MessageID:           e.MessageID,
		BroadcasterID:       e.BroadcasterUserID,
		SourceBroadcasterID: e.SourceBroadcasterUserID,
		ChatterID:           e.ChatterUserID,
		ChatterLogin:        e.ChatterUserLogin,
		ChatterName:         e.ChatterUserName,
		Text:                e.Message.Text,
		Badges:              badges,
	}
}

// WebhookHandler is the EventSub webhook intake. Every request is
// authenticated against the shared secret before its body is interpreted.
type WebhookHandler struct {
	secret  []byte
	handler domain.ChatMessageHandler
	dedup   domain.DeliveryDeduplicator
	metrics *metrics.WebhookMetrics
}

// NewWebhookHandler creates the intake. dedup and m may be nil.
func NewWebhookHandler(secret string, handler domain.ChatMessageHandler, dedup domain.DeliveryDeduplicator, m *metrics.WebhookMetrics) *WebhookHandler {
	return &WebhookHandler{
		secret:  []byte(secret),
		handler: handler,
		dedup:   dedup,
		metrics: m,
	}
}

func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	messageID := r.Header.Get(helix.EventSubHeaderMessageID)
	timestamp := r.Header.Get(helix.EventSubHeaderMessageTimestamp)
	signature := r.Header.Get(helix.EventSubHeaderMessageSignature)
	if messageID == "" || timestamp == "" || signature == "" {
		wh.reject(w, metrics.OutcomeInvalidSignature, "missing eventsub headers")
		return
	}

	expected, err := ParseSignatureHeader(signature)
	if err != nil {
		wh.reject(w, metrics.OutcomeInvalidSignature, "malformed signature header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		wh.reject(w, metrics.OutcomeMalformed, "failed to read body")
		return
	}

	if !VerifySignature(wh.secret, signedMessage(messageID, timestamp, body), expected) {
		wh.reject(w, metrics.OutcomeInvalidSignature, "signature mismatch")
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		wh.reject(w, metrics.OutcomeMalformed, "unparseable envelope")
		return
	}

	switch r.Header.Get(helix.EventSubHeaderMessageType) {
	case helix.EventSubMessageTypeNotification:
		wh.handleNotification(r.Context(), messageID, env)
		w.WriteHeader(http.StatusOK)
	case messageTypeVerification:
		wh.handleVerification(w, env)
	case messageTypeRevocation:
		slog.Warn("EventSub subscription revoked", "subscription_id", env.Subscription.ID, "type", env.Subscription.Type, "status", env.Subscription.Status)
		wh.metrics.Observe(metrics.OutcomeRevocation)
		w.WriteHeader(http.StatusOK)
	default:
		wh.metrics.Observe(metrics.OutcomeIgnored)
		w.WriteHeader(http.StatusOK)
	}
}

func (wh *WebhookHandler) reject(w http.ResponseWriter, outcome, reason string) {
	slog.Debug("Rejected EventSub delivery", "reason", reason)
	wh.metrics.Observe(outcome)
	w.WriteHeader(http.StatusBadRequest)
}

func (wh *WebhookHandler) handleVerification(w http.ResponseWriter, env envelope) {
	if env.Subscription.Type != helix.EventSubTypeChannelChatMessage {
		wh.metrics.Observe(metrics.OutcomeIgnored)
		w.WriteHeader(http.StatusOK)
		return
	}

	slog.Info("EventSub webhook verification", "subscription_id", env.Subscription.ID, "type", env.Subscription.Type)
	wh.metrics.Observe(metrics.OutcomeChallenge)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, env.Challenge)
}

func (wh *WebhookHandler) handleNotification(ctx context.Context, messageID string, env envelope) {
	if env.Subscription.Type != helix.EventSubTypeChannelChatMessage {
		wh.metrics.Observe(metrics.OutcomeIgnored)
		return
	}

	var event chatMessageEvent
	if err := json.Unmarshal(env.Event, &event); err != nil {
		slog.Error("Failed to parse chat message event", "message_id", messageID, "error", err)
		wh.metrics.Observe(metrics.OutcomeMalformed)
		return
	}

	if wh.dedup != nil {
		first, err := wh.dedup.FirstDelivery(ctx, messageID)
		if err != nil {
			slog.Warn("Delivery dedupe unavailable, processing anyway", "message_id", messageID, "error", err)
		} else if !first {
			slog.Debug("Dropping redelivered EventSub message", "message_id", messageID)
			wh.metrics.Observe(metrics.OutcomeDuplicate)
			return
		}
	}

	ctx = correlation.WithID(ctx, correlation.NewID())
	ctx = correlation.WithBroadcaster(ctx, event.BroadcasterUserID)

	wh.metrics.Observe(metrics.OutcomeNotification)
	wh.handler.HandleChatMessage(ctx, event.toDomain())
}
