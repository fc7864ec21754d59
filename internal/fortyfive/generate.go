package fortyfive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/shopspring/decimal"
)

const perfectDraw = MaxDraw / 2

var (
	step      = decimal.New(5, -3)
	target    = decimal.NewFromInt(45)
	threshold = decimal.New(45005, -3)
)

// Score converts a raw draw into its value and distance from 45.
// Values from 45.005 upwards count as above 45; everything else is measured
// from below.
func Score(raw int64) (value, difference decimal.Decimal) {
	value = decimal.NewFromInt(raw).Mul(step)
	if value.GreaterThanOrEqual(threshold) {
		return value, value.Sub(target)
	}
	return value, target.Sub(value)
}

// Generate rolls a new !45 for the chatter and records it. Timed-out
// chatters get no result.
func (e *Engine) Generate(ctx context.Context, inv Invocation) (string, error) {
	active, err := e.TimedOut(ctx, inv.BroadcasterID, inv.ChatterID)
	if err != nil {
		return "", err
	}
	if active {
		slog.DebugContext(ctx, "Chatter is timed out, suppressing !45", "chatter_id", inv.ChatterID)
		return "", nil
	}

	raw := e.draw()
	value, difference := Score(raw)
	perfect := raw == perfectDraw

	attempt := domain.Attempt{
		BroadcasterID: inv.BroadcasterID,
		ChatterID:     inv.ChatterID,
		Value:         value,
		Difference:    difference,
		Timestamp:     e.clock.Now().UnixMilli(),
	}
	epoch, err := e.attempts.Insert(ctx, attempt)
	if err != nil {
		return "", fmt.Errorf("failed to record attempt: %w", err)
	}
	e.metrics.ObserveAttempt(perfect)

	if perfect {
		slog.InfoContext(ctx, "Perfect 45 achieved", "chatter_id", inv.ChatterID, "epoch", epoch)
		return perfectMessage(inv), nil
	}
	return fmt.Sprintf("%s, %s", inv.ChatterName, value.StringFixed(3)), nil
}

func perfectMessage(inv Invocation) string {
	template := inv.Config.FortyFive.PerfectMessage
	if template == "" {
		template = domain.DefaultPerfectMessage
	}
	return strings.ReplaceAll(template, domain.ChatterNamePlaceholder, inv.ChatterName)
}
