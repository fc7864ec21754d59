package fortyfive

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/domain"
)

// HallOfFame replies with the latest perfect 45, or the perfect 45 of the
// given epoch.
func (e *Engine) HallOfFame(ctx context.Context, inv Invocation, epoch *int64) (string, error) {
	attempt, err := e.attempts.LatestPerfect(ctx, inv.BroadcasterID, epoch)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		if epoch != nil {
			return fmt.Sprintf("No perfect 45.000's found with epoch of %d", *epoch), nil
		}
		return "No perfect 45.000's in this channel.", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load hall of fame: %w", err)
	}

	name, ok, err := e.displayName(ctx, attempt.ChatterID)
	if err != nil || !ok {
		return "", err
	}

	if epoch != nil {
		return fmt.Sprintf("Perfect 45.000 #%d by: %s", *epoch, name), nil
	}
	return fmt.Sprintf("Latest perfect 45.000 by: %s", name), nil
}
