package fortyfive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/fortyfive/internal/domain"
)

const (
	DefaultTimeoutSecs = 300
	MinTimeoutSecs     = 60
	MaxTimeoutSecs     = domain.MaxTimeoutSecs
)

// TimedOut reports whether the chatter's results are currently suppressed.
func (e *Engine) TimedOut(ctx context.Context, broadcasterID, chatterID string) (bool, error) {
	_, err := e.timeouts.Get(ctx, broadcasterID, chatterID)
	if errors.Is(err, domain.ErrTimeoutNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read timeout: %w", err)
	}
	return true, nil
}

// Timeout suppresses a chatter's !45 results for secs seconds, clamped to
// MinTimeoutSecs..MaxTimeoutSecs.
func (e *Engine) Timeout(ctx context.Context, inv Invocation, login string, secs int64) (string, error) {
	chatter := stripAt(login)

	user, err := e.lookupLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Sprintf("User %s not found.", chatter), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %q: %w", chatter, err)
	}

	secs = min(max(secs, MinTimeoutSecs), MaxTimeoutSecs)
	timeout := domain.Timeout{StartedAt: e.clock.Now().UnixMilli(), DurationSecs: secs}
	if err := e.timeouts.Put(ctx, inv.BroadcasterID, user.ID, timeout); err != nil {
		return "", fmt.Errorf("failed to store timeout: %w", err)
	}

	slog.InfoContext(ctx, "Chatter timed out from !45", "chatter_id", user.ID, "moderator_id", inv.ChatterID, "secs", secs)
	return fmt.Sprintf("Timed out %s from !45's for %d seconds.", chatter, secs), nil
}

// Untimeout lifts a chatter's timeout.
func (e *Engine) Untimeout(ctx context.Context, inv Invocation, login string) (string, error) {
	chatter := stripAt(login)

	user, err := e.lookupLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Sprintf("User %s not found.", chatter), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %q: %w", chatter, err)
	}

	removed, err := e.timeouts.Delete(ctx, inv.BroadcasterID, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to remove timeout: %w", err)
	}
	if !removed {
		return fmt.Sprintf("%s is not currently timed out.", chatter), nil
	}

	slog.InfoContext(ctx, "Chatter timeout lifted", "chatter_id", user.ID, "moderator_id", inv.ChatterID)
	return fmt.Sprintf("Removed !45 timeout for %s.", chatter), nil
}
