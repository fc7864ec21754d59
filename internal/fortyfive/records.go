package fortyfive

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/domain"
)

// Best replies with the channel's best result of the current epoch.
func (e *Engine) Best(ctx context.Context, inv Invocation) (string, error) {
	return e.record(ctx, inv, domain.RecordBest, false, "")
}

// Worst replies with the channel's worst result of the current epoch.
func (e *Engine) Worst(ctx context.Context, inv Invocation) (string, error) {
	return e.record(ctx, inv, domain.RecordWorst, false, "")
}

// PersonalBest replies with a chatter's best result of the current epoch.
// An empty login means the invoking chatter.
func (e *Engine) PersonalBest(ctx context.Context, inv Invocation, login string) (string, error) {
	return e.record(ctx, inv, domain.RecordBest, true, login)
}

// PersonalWorst replies with a chatter's worst result of the current epoch.
// An empty login means the invoking chatter.
func (e *Engine) PersonalWorst(ctx context.Context, inv Invocation, login string) (string, error) {
	return e.record(ctx, inv, domain.RecordWorst, true, login)
}

func (e *Engine) record(ctx context.Context, inv Invocation, kind domain.RecordKind, personal bool, login string) (string, error) {
	var chatterID *string
	if personal {
		id := inv.ChatterID
		if login != "" {
			user, err := e.lookupLogin(ctx, login)
			if errors.Is(err, domain.ErrUserNotFound) {
				return fmt.Sprintf("User %s not found.", login), nil
			}
			if err != nil {
				return "", fmt.Errorf("failed to look up %q: %w", login, err)
			}
			id = user.ID
		}
		chatterID = &id
	}

	attempt, err := e.attempts.CurrentRecord(ctx, inv.BroadcasterID, chatterID, kind)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		if login == "" {
			return "", nil
		}
		return e.noRecordMessage(ctx, inv.BroadcasterID, *chatterID, login)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s record: %w", kind, err)
	}

	name, ok, err := e.displayName(ctx, attempt.ChatterID)
	if err != nil || !ok {
		return "", err
	}
	return fmt.Sprintf("%s 45 by %s: %s", recordLabel(kind, personal), name, attempt.Value.StringFixed(3)), nil
}

// noRecordMessage tells "never played here" apart from "only played in
// earlier epochs".
func (e *Engine) noRecordMessage(ctx context.Context, broadcasterID, chatterID, login string) (string, error) {
	played, err := e.attempts.HasAttempts(ctx, broadcasterID, chatterID)
	if err != nil {
		return "", fmt.Errorf("failed to check attempt history: %w", err)
	}
	if played {
		return fmt.Sprintf("User %s has no !45's in the current epoch.", login), nil
	}
	return fmt.Sprintf("User %s hasn't done a !45 in this channel.", login), nil
}

func recordLabel(kind domain.RecordKind, personal bool) string {
	switch {
	case !personal && kind == domain.RecordBest:
		return "Current best"
	case !personal:
		return "Current worst"
	case kind == domain.RecordBest:
		return "Personal best"
	default:
		return "Personal worst"
	}
}
