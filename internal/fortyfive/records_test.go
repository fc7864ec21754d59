package fortyfive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestAndWorst(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, alice.ID, 8990, 1) // 44.950
	te.attempts.add(t, testBroadcaster, bob.ID, 9002, 2)   // 45.010
	te.attempts.add(t, testBroadcaster, bob.ID, 100, 3)    // 0.500
	te.attempts.add(t, "other", alice.ID, 8999, 4)

	best, err := te.Best(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Equal(t, "Current best 45 by BoB_: 45.010", best)

	worst, err := te.Worst(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Equal(t, "Current worst 45 by BoB_: 0.500", worst)
}

func TestBest_TiesPreferLatest(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, alice.ID, 8999, 1) // 44.995
	te.attempts.add(t, testBroadcaster, bob.ID, 9001, 2)   // 45.005

	best, err := te.Best(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Equal(t, "Current best 45 by BoB_: 45.005", best)
}

func TestBest_EmptyChannelIsSilent(t *testing.T) {
	te := newTestEngine(t)

	reply, err := te.Best(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestBest_OnlyCurrentEpoch(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, alice.ID, 8999, 1)
	te.attempts.add(t, testBroadcaster, alice.ID, 9000, 2) // closes epoch 0
	te.attempts.add(t, testBroadcaster, bob.ID, 5000, 3)

	reply, err := te.Best(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Equal(t, "Current best 45 by BoB_: 25.000", reply)
}

func TestPersonalBest_Self(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, alice.ID, 8000, 1)
	te.attempts.add(t, testBroadcaster, alice.ID, 8500, 2)
	te.attempts.add(t, testBroadcaster, bob.ID, 8999, 3)

	pb, err := te.PersonalBest(t.Context(), invocationFor(alice), "")
	require.NoError(t, err)
	assert.Equal(t, "Personal best 45 by Alice: 42.500", pb)

	pw, err := te.PersonalWorst(t.Context(), invocationFor(alice), "")
	require.NoError(t, err)
	assert.Equal(t, "Personal worst 45 by Alice: 40.000", pw)
}

func TestPersonalBest_SelfWithoutRowsIsSilent(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, bob.ID, 8999, 1)

	reply, err := te.PersonalBest(t.Context(), invocationFor(alice), "")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestPersonalBest_NamedChatter(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, bob.ID, 8999, 1)

	reply, err := te.PersonalBest(t.Context(), invocationFor(alice), "@BoB")
	require.NoError(t, err)
	assert.Equal(t, "Personal best 45 by BoB_: 44.995", reply)
	assert.Equal(t, []string{"bob"}, te.users.logins, "login is looked up without @ and lower-cased")
}

func TestPersonalWorst_UnknownLogin(t *testing.T) {
	te := newTestEngine(t)

	reply, err := te.PersonalWorst(t.Context(), invocationFor(alice), "@Ghost")
	require.NoError(t, err)
	assert.Equal(t, "User @Ghost not found.", reply)
}

func TestPersonalBest_NamedChatterNeverPlayed(t *testing.T) {
	te := newTestEngine(t)

	reply, err := te.PersonalBest(t.Context(), invocationFor(alice), "bob")
	require.NoError(t, err)
	assert.Equal(t, "User bob hasn't done a !45 in this channel.", reply)
}

func TestPersonalBest_NamedChatterOnlyInOldEpoch(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, bob.ID, 8000, 1)
	te.attempts.add(t, testBroadcaster, alice.ID, 9000, 2)

	reply, err := te.PersonalBest(t.Context(), invocationFor(alice), "bob")
	require.NoError(t, err)
	assert.Equal(t, "User bob has no !45's in the current epoch.", reply)
}

func TestBest_DisplayNameLookupFailureIsSilent(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, "u-deleted", 8999, 1)

	reply, err := te.Best(t.Context(), invocationFor(alice))
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestBest_UserDirectoryErrorPropagates(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.add(t, testBroadcaster, alice.ID, 8999, 1)
	te.users.err = errBoom

	reply, err := te.Best(t.Context(), invocationFor(alice))
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, reply)
}

func TestBest_RepositoryErrorPropagates(t *testing.T) {
	te := newTestEngine(t)
	te.attempts.err = errBoom

	_, err := te.Best(t.Context(), invocationFor(alice))
	assert.ErrorIs(t, err, errBoom)
}
