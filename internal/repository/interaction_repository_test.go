package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/squadup/teamfinder/internal/db"
	apperrors "github.com/squadup/teamfinder/internal/errors"
	"github.com/squadup/teamfinder/internal/repository"
)

func setupLedger(t *testing.T) (*gorm.DB, *repository.ProfileRepository, *repository.InteractionRepository) {
	t.Helper()
	dbase := setupTestDB(t)
	profiles := repository.NewProfileRepository(dbase)
	return dbase, profiles, repository.NewInteractionRepository(dbase, profiles)
}

func TestRecordLikeIdempotentAndMatch(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")

	matched, err := ledger.RecordLike(ctx, 1, 2, "cs2")
	require.NoError(t, err)
	assert.False(t, matched)

	// re-like is a no-op with the same outcome
	matched, err = ledger.RecordLike(ctx, 1, 2, "cs2")
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = ledger.RecordLike(ctx, 2, 1, "cs2")
	require.NoError(t, err)
	assert.True(t, matched)

	entries1, err := ledger.ListMatches(ctx, 1, "cs2")
	require.NoError(t, err)
	entries2, err := ledger.ListMatches(ctx, 2, "cs2")
	require.NoError(t, err)
	require.Len(t, entries1, 1)
	require.Len(t, entries2, 1)
	assert.Equal(t, uint64(2), entries1[0].Profile.UserID)
	assert.Equal(t, uint64(1), entries2[0].Profile.UserID)
}

func TestRecordLikeCanonicalMatchRow(t *testing.T) {
	ctx := context.Background()
	dbase, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 5, "eve", "cs2")
	seedProfile(t, profiles, 3, "carol", "cs2")

	// higher id likes first; the match row must still come out lo < hi
	_, err := ledger.RecordLike(ctx, 5, 3, "cs2")
	require.NoError(t, err)
	matched, err := ledger.RecordLike(ctx, 3, 5, "cs2")
	require.NoError(t, err)
	require.True(t, matched)

	var matches []db.Match
	require.NoError(t, dbase.Find(&matches).Error)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(3), matches[0].UserLoID)
	assert.Equal(t, uint64(5), matches[0].UserHiID)
}

func TestRecordLikeSelf(t *testing.T) {
	_, _, ledger := setupLedger(t)
	_, err := ledger.RecordLike(context.Background(), 1, 1, "cs2")
	assert.ErrorIs(t, err, apperrors.ErrSelfAction)
}

func TestLikesArePerGame(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")

	_, err := ledger.RecordLike(ctx, 1, 2, "cs2")
	require.NoError(t, err)

	// reciprocal like in a different game does not complete the pair
	matched, err := ledger.RecordLike(ctx, 2, 1, "dota2")
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestListIncomingLikesExcludesReciprocated(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")
	seedProfile(t, profiles, 3, "carol", "cs2")
	seedProfile(t, profiles, 4, "dave", "cs2")

	for _, from := range []uint64{2, 3, 4} {
		_, err := ledger.RecordLike(ctx, from, 1, "cs2")
		require.NoError(t, err)
	}
	// liking 3 back turns that pair into a match, off the likes list
	_, err := ledger.RecordLike(ctx, 1, 3, "cs2")
	require.NoError(t, err)

	entries, _, err := ledger.ListIncomingLikes(ctx, 1, "cs2", nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, uint64(3), e.Profile.UserID)
	}

	count, err := ledger.CountIncomingLikes(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListIncomingLikesPagination(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")
	seedProfile(t, profiles, 3, "carol", "cs2")

	for _, from := range []uint64{2, 3} {
		_, err := ledger.RecordLike(ctx, from, 1, "cs2")
		require.NoError(t, err)
	}

	page1, token, err := ledger.ListIncomingLikes(ctx, 1, "cs2", nil, 1)
	require.NoError(t, err)
	require.Len(t, page1, 1)
	require.NotNil(t, token)

	page2, token2, err := ledger.ListIncomingLikes(ctx, 1, "cs2", token, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Nil(t, token2)
	assert.NotEqual(t, page1[0].Profile.UserID, page2[0].Profile.UserID)
}

func TestUpsertReviewReplaceAndAggregate(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")
	seedProfile(t, profiles, 3, "carol", "cs2")

	require.NoError(t, ledger.UpsertReview(ctx, 2, 1, "cs2", 3, nil))
	require.NoError(t, ledger.UpsertReview(ctx, 3, 1, "cs2", 5, strptr("great igl")))

	record, err := profiles.Get(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.Equal(t, 4.0, record.AvgRating)
	assert.Equal(t, 2, record.ReviewCount)

	// re-review replaces, count stays
	require.NoError(t, ledger.UpsertReview(ctx, 2, 1, "cs2", 5, nil))

	record, err = profiles.Get(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.AvgRating)
	assert.Equal(t, 2, record.ReviewCount)
}

func TestUpsertReviewSelf(t *testing.T) {
	_, _, ledger := setupLedger(t)
	err := ledger.UpsertReview(context.Background(), 1, 1, "cs2", 5, nil)
	assert.ErrorIs(t, err, apperrors.ErrSelfAction)
}

func TestResetViewedReopensPool(t *testing.T) {
	ctx := context.Background()
	_, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")

	require.NoError(t, ledger.RecordView(ctx, 1, 2, "cs2"))
	ids, err := profiles.UnseenCandidateIDs(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, ledger.ResetViewed(ctx, 1, "cs2"))
	ids, err = profiles.UnseenCandidateIDs(ctx, 1, "cs2")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestRecordReportAppendOnly(t *testing.T) {
	ctx := context.Background()
	dbase, profiles, ledger := setupLedger(t)
	seedProfile(t, profiles, 1, "alice", "cs2")
	seedProfile(t, profiles, 2, "bob", "cs2")

	require.NoError(t, ledger.RecordReport(ctx, 1, 2, "cs2", "Toxicity", nil))
	require.NoError(t, ledger.RecordReport(ctx, 1, 2, "cs2", "Other", strptr("smurfing")))

	var reports []db.Report
	require.NoError(t, dbase.Find(&reports).Error)
	assert.Len(t, reports, 2)
}
