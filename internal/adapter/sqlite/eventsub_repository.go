package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/fortyfive/internal/domain"
)

const (
	upsertEventSubSQL = `-- name: UpsertEventSubSubscription
INSERT INTO eventsub_subscriptions (broadcaster_user_id, subscription_id, conduit_id, created_at)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (broadcaster_user_id) DO UPDATE
SET subscription_id = excluded.subscription_id, conduit_id = excluded.conduit_id, created_at = excluded.created_at`

	getEventSubSQL = `-- name: GetEventSubByBroadcasterID
SELECT broadcaster_user_id, subscription_id, conduit_id, created_at
FROM eventsub_subscriptions
WHERE broadcaster_user_id = ?1`

	deleteEventSubSQL = `-- name: DeleteEventSubByBroadcasterID
DELETE FROM eventsub_subscriptions WHERE broadcaster_user_id = ?1`

	deleteEventSubByConduitSQL = `-- name: DeleteEventSubByConduitID
DELETE FROM eventsub_subscriptions WHERE conduit_id = ?1`

	listEventSubSQL = `-- name: ListEventSubSubscriptions
SELECT broadcaster_user_id, subscription_id, conduit_id, created_at
FROM eventsub_subscriptions
ORDER BY created_at`
)

type EventSubRepo struct {
	db  *DB
	now func() time.Time
}

var _ domain.EventSubRepository = (*EventSubRepo)(nil)

func NewEventSubRepo(db *DB) *EventSubRepo {
	return &EventSubRepo{db: db, now: time.Now}
}

func (r *EventSubRepo) Create(ctx context.Context, broadcasterUserID, subscriptionID, conduitID string) error {
	if err := r.db.exec(ctx, upsertEventSubSQL, broadcasterUserID, subscriptionID, conduitID, r.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to create EventSub subscription: %w", err)
	}
	return nil
}

func (r *EventSubRepo) GetByBroadcasterID(ctx context.Context, broadcasterUserID string) (*domain.EventSubSubscription, error) {
	sub, err := scanSubscription(r.db.queryRow(ctx, getEventSubSQL, broadcasterUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get EventSub subscription by broadcaster ID: %w", err)
	}
	return sub, nil
}

func (r *EventSubRepo) Delete(ctx context.Context, broadcasterUserID string) error {
	if err := r.db.exec(ctx, deleteEventSubSQL, broadcasterUserID); err != nil {
		return fmt.Errorf("failed to delete EventSub subscription by broadcaster ID: %w", err)
	}
	return nil
}

func (r *EventSubRepo) DeleteByConduitID(ctx context.Context, conduitID string) error {
	if err := r.db.exec(ctx, deleteEventSubByConduitSQL, conduitID); err != nil {
		return fmt.Errorf("failed to delete EventSub subscriptions by conduit ID: %w", err)
	}
	return nil
}

func (r *EventSubRepo) List(ctx context.Context) ([]domain.EventSubSubscription, error) {
	rows, err := r.db.query(ctx, listEventSubSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list EventSub subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []domain.EventSubSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan EventSub subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list EventSub subscriptions: %w", err)
	}
	return subs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*domain.EventSubSubscription, error) {
	var (
		sub       domain.EventSubSubscription
		createdAt int64
	)
	if err := row.Scan(&sub.BroadcasterUserID, &sub.SubscriptionID, &sub.ConduitID, &createdAt); err != nil {
		return nil, err
	}
	sub.CreatedAt = time.UnixMilli(createdAt)
	return &sub, nil
}
