package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/fortyfive"
	"github.com/pscheid92/fortyfive/internal/platform/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	badgeModerator   = "moderator"
	badgeBroadcaster = "broadcaster"
)

// Game is the !45 minigame as seen by the router.
type Game interface {
	Generate(ctx context.Context, inv fortyfive.Invocation) (string, error)
	Best(ctx context.Context, inv fortyfive.Invocation) (string, error)
	Worst(ctx context.Context, inv fortyfive.Invocation) (string, error)
	PersonalBest(ctx context.Context, inv fortyfive.Invocation, login string) (string, error)
	PersonalWorst(ctx context.Context, inv fortyfive.Invocation, login string) (string, error)
	HallOfFame(ctx context.Context, inv fortyfive.Invocation, epoch *int64) (string, error)
	Timeout(ctx context.Context, inv fortyfive.Invocation, login string, secs int64) (string, error)
	Untimeout(ctx context.Context, inv fortyfive.Invocation, login string) (string, error)
}

type Router struct {
	game      Game
	configs   domain.ConfigStore
	sender    domain.ChatSender
	botUserID string
	metrics   *metrics.CommandMetrics
}

func NewRouter(game Game, configs domain.ConfigStore, sender domain.ChatSender, botUserID string, m *metrics.CommandMetrics) *Router {
	return &Router{
		game:      game,
		configs:   configs,
		sender:    sender,
		botUserID: botUserID,
		metrics:   m,
	}
}

// Route handles one chat message synchronously. Every failure ends in
// silence; errors are only logged.
func (r *Router) Route(ctx context.Context, msg domain.ChatMessage) {
	tokens := Tokenize(msg.Text)
	if !r.eligible(msg, tokens) {
		return
	}

	cmd, err := Parse(tokens)
	if errors.Is(err, ErrNotForUs) {
		return
	}
	if err != nil {
		slog.DebugContext(ctx, "Ignoring unparseable command", "text", msg.Text, "error", err)
		r.metrics.Observe(Prefix, metrics.CommandUnparsed, 0)
		return
	}

	if cmd.moderatorOnly() && !isModerator(msg) {
		slog.DebugContext(ctx, "Ignoring moderator command from non-moderator", "command", cmd.Name(), "chatter_id", msg.ChatterID)
		r.metrics.Observe(cmd.Name(), metrics.CommandDenied, 0)
		return
	}

	r.run(ctx, cmd, msg)
}

// eligible applies the rules that silently drop a message before parsing.
func (r *Router) eligible(msg domain.ChatMessage, tokens []string) bool {
	if len(tokens) == 0 || !strings.HasPrefix(tokens[0], "!") {
		return false
	}
	if msg.ChatterID == r.botUserID {
		return false
	}
	// Shared chat delivers other channels' messages too.
	if msg.SourceBroadcasterID != nil && *msg.SourceBroadcasterID != msg.BroadcasterID {
		return false
	}
	return true
}

func isModerator(msg domain.ChatMessage) bool {
	return msg.HasBadge(badgeModerator) || msg.HasBadge(badgeBroadcaster)
}

func (r *Router) run(ctx context.Context, cmd Command, msg domain.ChatMessage) {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.InFlight.Inc()
		defer r.metrics.InFlight.Dec()
	}

	ctx, span := telemetry.StartSpan(ctx, "bot.command",
		attribute.String("command", cmd.Name()),
		attribute.String("chatter_id", msg.ChatterID),
	)

	outcome, err := r.execute(ctx, cmd, msg)
	telemetry.End(span, err)
	r.metrics.Observe(cmd.Name(), outcome, time.Since(start))

	if err != nil {
		slog.ErrorContext(ctx, "Command failed", "command", cmd.Name(), "chatter_id", msg.ChatterID, "error", err)
	}
}

func (r *Router) execute(ctx context.Context, cmd Command, msg domain.ChatMessage) (string, error) {
	inv := fortyfive.Invocation{
		BroadcasterID: msg.BroadcasterID,
		ChatterID:     msg.ChatterID,
		ChatterLogin:  msg.ChatterLogin,
		ChatterName:   msg.ChatterName,
		Config:        r.loadConfig(ctx, msg.BroadcasterID),
	}

	reply, err := r.dispatch(ctx, cmd, inv)
	if err != nil {
		return metrics.CommandFailed, err
	}
	if reply == "" {
		return metrics.CommandSilent, nil
	}

	if err := r.sender.SendChatMessage(ctx, msg.BroadcasterID, reply); err != nil {
		return metrics.CommandSendError, fmt.Errorf("failed to send reply: %w", err)
	}

	slog.DebugContext(ctx, "Replied to command", "command", cmd.Name(), "reply", reply)
	return metrics.CommandReplied, nil
}

func (r *Router) dispatch(ctx context.Context, cmd Command, inv fortyfive.Invocation) (string, error) {
	switch c := cmd.(type) {
	case Generate:
		return r.game.Generate(ctx, inv)
	case Best:
		return r.game.Best(ctx, inv)
	case Worst:
		return r.game.Worst(ctx, inv)
	case PersonalBest:
		return r.game.PersonalBest(ctx, inv, c.Login)
	case PersonalWorst:
		return r.game.PersonalWorst(ctx, inv, c.Login)
	case HallOfFame:
		return r.game.HallOfFame(ctx, inv, c.Epoch)
	case Timeout:
		return r.game.Timeout(ctx, inv, c.Login, c.Secs)
	case Untimeout:
		return r.game.Untimeout(ctx, inv, c.Login)
	default:
		return "", fmt.Errorf("unhandled command %T", cmd)
	}
}

// loadConfig falls back to defaults on a miss or a store error.
func (r *Router) loadConfig(ctx context.Context, broadcasterID string) domain.BroadcasterConfig {
	cfg, err := r.configs.Get(ctx, broadcasterID)
	switch {
	case errors.Is(err, domain.ErrConfigNotFound):
		return domain.DefaultBroadcasterConfig()
	case err != nil:
		slog.WarnContext(ctx, "Failed to load broadcaster config, using defaults", "error", err)
		return domain.DefaultBroadcasterConfig()
	default:
		return *cfg
	}
}
