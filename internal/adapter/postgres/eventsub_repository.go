package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/fortyfive/internal/domain"
)

const (
	upsertEventSubSQL = `-- name: UpsertEventSubSubscription
INSERT INTO eventsub_subscriptions (broadcaster_user_id, subscription_id, conduit_id)
VALUES ($1, $2, $3)
ON CONFLICT (broadcaster_user_id) DO UPDATE
SET subscription_id = EXCLUDED.subscription_id, conduit_id = EXCLUDED.conduit_id, created_at = now()`

	getEventSubSQL = `-- name: GetEventSubByBroadcasterID
SELECT broadcaster_user_id, subscription_id, conduit_id, created_at
FROM eventsub_subscriptions
WHERE broadcaster_user_id = $1`

	deleteEventSubSQL = `-- name: DeleteEventSubByBroadcasterID
DELETE FROM eventsub_subscriptions WHERE broadcaster_user_id = $1`

	deleteEventSubByConduitSQL = `-- name: DeleteEventSubByConduitID
DELETE FROM eventsub_subscriptions WHERE conduit_id = $1`

	listEventSubSQL = `-- name: ListEventSubSubscriptions
SELECT broadcaster_user_id, subscription_id, conduit_id, created_at
FROM eventsub_subscriptions
ORDER BY created_at`
)

type EventSubRepo struct {
	pool *pgxpool.Pool
}

var _ domain.EventSubRepository = (*EventSubRepo)(nil)

func NewEventSubRepo(pool *pgxpool.Pool) *EventSubRepo {
	return &EventSubRepo{pool: pool}
}

func (r *EventSubRepo) Create(ctx context.Context, broadcasterUserID, subscriptionID, conduitID string) error {
	if _, err := r.pool.Exec(ctx, upsertEventSubSQL, broadcasterUserID, subscriptionID, conduitID); err != nil {
		return fmt.Errorf("failed to create EventSub subscription: %w", err)
	}
	return nil
}

func (r *EventSubRepo) GetByBroadcasterID(ctx context.Context, broadcasterUserID string) (*domain.EventSubSubscription, error) {
	var sub domain.EventSubSubscription
	err := r.pool.QueryRow(ctx, getEventSubSQL, broadcasterUserID).
		Scan(&sub.BroadcasterUserID, &sub.SubscriptionID, &sub.ConduitID, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get EventSub subscription by broadcaster ID: %w", err)
	}
	return &sub, nil
}

func (r *EventSubRepo) Delete(ctx context.Context, broadcasterUserID string) error {
	if _, err := r.pool.Exec(ctx, deleteEventSubSQL, broadcasterUserID); err != nil {
		return fmt.Errorf("failed to delete EventSub subscription by broadcaster ID: %w", err)
	}
	return nil
}

func (r *EventSubRepo) DeleteByConduitID(ctx context.Context, conduitID string) error {
	if _, err := r.pool.Exec(ctx, deleteEventSubByConduitSQL, conduitID); err != nil {
		return fmt.Errorf("failed to delete EventSub subscriptions by conduit ID: %w", err)
	}
	return nil
}

func (r *EventSubRepo) List(ctx context.Context) ([]domain.EventSubSubscription, error) {
	rows, err := r.pool.Query(ctx, listEventSubSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list EventSub subscriptions: %w", err)
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.EventSubSubscription, error) {
		var sub domain.EventSubSubscription
		err := row.Scan(&sub.BroadcasterUserID, &sub.SubscriptionID, &sub.ConduitID, &sub.CreatedAt)
		return sub, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan EventSub subscriptions: %w", err)
	}
	return subs, nil
}
