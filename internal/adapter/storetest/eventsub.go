package storetest

import (
	"context"
	"testing"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EventSubRepositoryFactory returns an empty repository for one subtest.
type EventSubRepositoryFactory func(t *testing.T) domain.EventSubRepository

// RunEventSubRepository exercises subscription record persistence.
func RunEventSubRepository(t *testing.T, newRepo EventSubRepositoryFactory) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "111", "sub-1", "conduit-1"))

		sub, err := repo.GetByBroadcasterID(ctx, "111")
		require.NoError(t, err)
		assert.Equal(t, "111", sub.BroadcasterUserID)
		assert.Equal(t, "sub-1", sub.SubscriptionID)
		assert.Equal(t, "conduit-1", sub.ConduitID)
		assert.False(t, sub.CreatedAt.IsZero())
	})

	t.Run("CreateUpserts", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "111", "sub-1", "conduit-1"))
		require.NoError(t, repo.Create(ctx, "111", "sub-2", "conduit-2"))

		sub, err := repo.GetByBroadcasterID(ctx, "111")
		require.NoError(t, err)
		assert.Equal(t, "sub-2", sub.SubscriptionID)
		assert.Equal(t, "conduit-2", sub.ConduitID)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := newRepo(t)

		sub, err := repo.GetByBroadcasterID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
		assert.Nil(t, sub)
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, "111", "sub-1", "conduit-1"))
		require.NoError(t, repo.Create(ctx, "222", "sub-2", "conduit-1"))
		require.NoError(t, repo.Create(ctx, "333", "sub-3", "conduit-2"))

		subs, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, subs, 3)

		require.NoError(t, repo.Delete(ctx, "333"))
		require.NoError(t, repo.Delete(ctx, "333"), "deleting twice is not an error")

		require.NoError(t, repo.DeleteByConduitID(ctx, "conduit-1"))

		subs, err = repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}
