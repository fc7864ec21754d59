// Package storetest holds behaviour suites shared by the SQL attempt and
// subscription repositories.
package storetest

import (
	"context"
	"testing"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AttemptRepositoryFactory returns an empty repository for one subtest.
type AttemptRepositoryFactory func(t *testing.T) domain.AttemptRepository

func attempt(broadcasterID, chatterID, value, difference string, ts int64) domain.Attempt {
	return domain.Attempt{
		BroadcasterID: broadcasterID,
		ChatterID:     chatterID,
		Value:         decimal.RequireFromString(value),
		Difference:    decimal.RequireFromString(difference),
		Timestamp:     ts,
	}
}

func perfect(broadcasterID, chatterID string, ts int64) domain.Attempt {
	return attempt(broadcasterID, chatterID, "45", "0", ts)
}

func insert(t *testing.T, repo domain.AttemptRepository, a domain.Attempt) int64 {
	t.Helper()
	epoch, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	return epoch
}

func ptr[T any](v T) *T { return &v }

// RunAttemptRepository exercises the epoch and leaderboard semantics every
// attempt store must share.
func RunAttemptRepository(t *testing.T, newRepo AttemptRepositoryFactory) {
	ctx := context.Background()

	t.Run("EpochCountsPriorPerfects", func(t *testing.T) {
		repo := newRepo(t)

		assert.Equal(t, int64(0), insert(t, repo, attempt("b1", "c1", "44.5", "0.5", 1)))
		assert.Equal(t, int64(0), insert(t, repo, perfect("b1", "c1", 2)))
		assert.Equal(t, int64(1), insert(t, repo, attempt("b1", "c2", "46", "1", 3)))
		assert.Equal(t, int64(1), insert(t, repo, perfect("b1", "c2", 4)))
		assert.Equal(t, int64(2), insert(t, repo, attempt("b1", "c1", "45.1", "0.1", 5)))

		assert.Equal(t, int64(0), insert(t, repo, attempt("b2", "c1", "30", "15", 6)), "epochs are per channel")
	})

	t.Run("CurrentRecordBestAndWorst", func(t *testing.T) {
		repo := newRepo(t)

		insert(t, repo, attempt("b1", "c1", "44.5", "0.5", 1))
		insert(t, repo, attempt("b1", "c2", "45.2", "0.2", 2))
		insert(t, repo, attempt("b1", "c3", "50", "5", 3))
		insert(t, repo, attempt("b2", "c9", "45.005", "0.005", 4))

		best, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordBest)
		require.NoError(t, err)
		assert.Equal(t, "c2", best.ChatterID)
		assert.True(t, best.Value.Equal(decimal.RequireFromString("45.2")), best.Value.String())
		assert.True(t, best.Difference.Equal(decimal.RequireFromString("0.2")), best.Difference.String())
		assert.Equal(t, int64(2), best.Timestamp)

		worst, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordWorst)
		require.NoError(t, err)
		assert.Equal(t, "c3", worst.ChatterID)
	})

	t.Run("CurrentRecordTiesPreferLatest", func(t *testing.T) {
		repo := newRepo(t)

		insert(t, repo, attempt("b1", "c1", "44.9", "0.1", 10))
		insert(t, repo, attempt("b1", "c2", "45.1", "0.1", 30))
		insert(t, repo, attempt("b1", "c3", "44.9", "0.1", 20))

		best, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordBest)
		require.NoError(t, err)
		assert.Equal(t, "c2", best.ChatterID)

		worst, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordWorst)
		require.NoError(t, err)
		assert.Equal(t, "c2", worst.ChatterID)
	})

	t.Run("CurrentRecordIgnoresEarlierEpochs", func(t *testing.T) {
		repo := newRepo(t)

		insert(t, repo, attempt("b1", "c1", "10", "35", 1))
		insert(t, repo, perfect("b1", "c2", 2))

		_, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordWorst)
		require.ErrorIs(t, err, domain.ErrAttemptNotFound, "a perfect result opens an empty epoch")

		insert(t, repo, attempt("b1", "c1", "44", "1", 3))

		worst, err := repo.CurrentRecord(ctx, "b1", nil, domain.RecordWorst)
		require.NoError(t, err)
		assert.Equal(t, int64(1), worst.Epoch)
		assert.Equal(t, int64(3), worst.Timestamp)
	})

	t.Run("CurrentRecordForChatter", func(t *testing.T) {
		repo := newRepo(t)

		insert(t, repo, attempt("b1", "c1", "44", "1", 1))
		insert(t, repo, attempt("b1", "c1", "47", "2", 2))
		insert(t, repo, attempt("b1", "c2", "45.001", "0.001", 3))

		best, err := repo.CurrentRecord(ctx, "b1", ptr("c1"), domain.RecordBest)
		require.NoError(t, err)
		assert.Equal(t, int64(1), best.Timestamp)

		worst, err := repo.CurrentRecord(ctx, "b1", ptr("c1"), domain.RecordWorst)
		require.NoError(t, err)
		assert.Equal(t, int64(2), worst.Timestamp)

		_, err = repo.CurrentRecord(ctx, "b1", ptr("c3"), domain.RecordBest)
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)

		_, err = repo.CurrentRecord(ctx, "b2", nil, domain.RecordBest)
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)
	})

	t.Run("HasAttempts", func(t *testing.T) {
		repo := newRepo(t)

		insert(t, repo, attempt("b1", "c1", "44", "1", 1))

		has, err := repo.HasAttempts(ctx, "b1", "c1")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = repo.HasAttempts(ctx, "b1", "c2")
		require.NoError(t, err)
		assert.False(t, has)

		has, err = repo.HasAttempts(ctx, "b2", "c1")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("LatestPerfect", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.LatestPerfect(ctx, "b1", nil)
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)

		insert(t, repo, perfect("b1", "c1", 1))
		insert(t, repo, attempt("b1", "c2", "44", "1", 2))
		insert(t, repo, perfect("b1", "c2", 3))

		latest, err := repo.LatestPerfect(ctx, "b1", nil)
		require.NoError(t, err)
		assert.Equal(t, "c2", latest.ChatterID)
		assert.Equal(t, int64(1), latest.Epoch)
		assert.True(t, latest.IsPerfect())

		first, err := repo.LatestPerfect(ctx, "b1", ptr(int64(0)))
		require.NoError(t, err)
		assert.Equal(t, "c1", first.ChatterID)

		_, err = repo.LatestPerfect(ctx, "b1", ptr(int64(7)))
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)

		_, err = repo.LatestPerfect(ctx, "b2", nil)
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newRepo(t).Ping(ctx))
	})
}
