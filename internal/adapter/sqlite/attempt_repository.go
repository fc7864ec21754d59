package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/shopspring/decimal"
)

const currentEpoch = `(SELECT COUNT(*) FROM attempts WHERE broadcaster_user_id = ?1 AND forty_five_difference = 0)`

const (
	insertAttemptSQL = `-- name: InsertAttempt
INSERT INTO attempts (epoch, broadcaster_user_id, chatter_user_id, forty_five_value, forty_five_difference, forty_five_timestamp)
SELECT COUNT(*), ?1, ?2, ?3, ?4, ?5
FROM attempts
WHERE broadcaster_user_id = ?1 AND forty_five_difference = 0
RETURNING epoch`

	attemptColumns = `epoch, broadcaster_user_id, chatter_user_id, forty_five_value, forty_five_difference, forty_five_timestamp`

	bestAttemptSQL = `-- name: CurrentBestAttempt
SELECT ` + attemptColumns + `
FROM attempts
WHERE broadcaster_user_id = ?1
  AND (?2 IS NULL OR chatter_user_id = ?2)
  AND epoch = ` + currentEpoch + `
ORDER BY forty_five_difference ASC, forty_five_timestamp DESC
LIMIT 1`

	worstAttemptSQL = `-- name: CurrentWorstAttempt
SELECT ` + attemptColumns + `
FROM attempts
WHERE broadcaster_user_id = ?1
  AND (?2 IS NULL OR chatter_user_id = ?2)
  AND epoch = ` + currentEpoch + `
ORDER BY forty_five_difference DESC, forty_five_timestamp DESC
LIMIT 1`

	hasAttemptsSQL = `-- name: HasAttempts
SELECT EXISTS (SELECT 1 FROM attempts WHERE broadcaster_user_id = ?1 AND chatter_user_id = ?2)`

	latestPerfectSQL = `-- name: LatestPerfectAttempt
SELECT ` + attemptColumns + `
FROM attempts
WHERE broadcaster_user_id = ?1
  AND forty_five_difference = 0
  AND (?2 IS NULL OR epoch = ?2)
ORDER BY epoch DESC, forty_five_timestamp DESC
LIMIT 1`
)

type AttemptRepo struct {
	db *DB
}

var _ domain.AttemptRepository = (*AttemptRepo)(nil)

func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

func (r *AttemptRepo) Insert(ctx context.Context, a domain.Attempt) (int64, error) {
	var epoch int64
	err := r.db.queryRow(ctx, insertAttemptSQL,
		a.BroadcasterID, a.ChatterID, a.Value.InexactFloat64(), a.Difference.InexactFloat64(), a.Timestamp,
	).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attempt: %w", err)
	}
	return epoch, nil
}

func (r *AttemptRepo) CurrentRecord(ctx context.Context, broadcasterID string, chatterID *string, kind domain.RecordKind) (*domain.Attempt, error) {
	query := bestAttemptSQL
	if kind == domain.RecordWorst {
		query = worstAttemptSQL
	}

	attempt, err := scanAttempt(r.db.queryRow(ctx, query, broadcasterID, chatterID))
	if err != nil {
		return nil, fmt.Errorf("failed to get current %s attempt: %w", kind, err)
	}
	return attempt, nil
}

func (r *AttemptRepo) HasAttempts(ctx context.Context, broadcasterID, chatterID string) (bool, error) {
	var exists bool
	if err := r.db.queryRow(ctx, hasAttemptsSQL, broadcasterID, chatterID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check attempts: %w", err)
	}
	return exists, nil
}

func (r *AttemptRepo) LatestPerfect(ctx context.Context, broadcasterID string, epoch *int64) (*domain.Attempt, error) {
	attempt, err := scanAttempt(r.db.queryRow(ctx, latestPerfectSQL, broadcasterID, epoch))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest perfect attempt: %w", err)
	}
	return attempt, nil
}

func (r *AttemptRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanAttempt(row *sql.Row) (*domain.Attempt, error) {
	var (
		a                 domain.Attempt
		value, difference float64
	)
	err := row.Scan(&a.Epoch, &a.BroadcasterID, &a.ChatterID, &value, &difference, &a.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Value = decimal.NewFromFloat(value)
	a.Difference = decimal.NewFromFloat(difference)
	return &a, nil
}
