package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squadup/teamfinder/internal/flow"
)

func TestSearchGameSelection(t *testing.T) {
	res := step(t, flow.StateChoosingSearchGame, btn("search_game:dota2"), flow.Draft{})
	assert.Equal(t, flow.StateViewingProfiles, res.Next)
	assert.Equal(t, flow.EffectAdvanceQueue, res.Effect)
	assert.Equal(t, "dota2", res.Draft.SearchGame)

	_, ok := flow.Step(flow.StateChoosingSearchGame, btn("search_game:lol"), flow.Draft{})
	assert.False(t, ok)
}

func TestSwipeEffects(t *testing.T) {
	d := flow.Draft{SearchGame: "cs2", CurrentProfileID: 7}

	res := step(t, flow.StateViewingProfiles, btn("like"), d)
	assert.Equal(t, flow.EffectLike, res.Effect)

	res = step(t, flow.StateViewingProfiles, btn("dislike"), d)
	assert.Equal(t, flow.EffectAdvanceQueue, res.Effect)

	res = step(t, flow.StateViewingProfiles, btn("reset_viewed"), d)
	assert.Equal(t, flow.EffectResetViewed, res.Effect)
}

func TestSwipeWithoutCandidateDropped(t *testing.T) {
	// Exhausted queue: no current profile, so like/dislike/report mean nothing.
	d := flow.Draft{SearchGame: "cs2"}
	for _, payload := range []string{"like", "dislike", "report"} {
		_, ok := flow.Step(flow.StateViewingProfiles, btn(payload), d)
		assert.False(t, ok, payload)
	}
}

func TestToMenuClearsDraft(t *testing.T) {
	d := flow.Draft{SearchGame: "cs2", CurrentProfileID: 7}
	res := step(t, flow.StateViewingProfiles, btn("to_menu"), d)
	assert.Equal(t, flow.StateNone, res.Next)
	assert.Equal(t, flow.EffectReturnToMenu, res.Effect)
	assert.Equal(t, flow.Draft{}, res.Draft)
}

func TestReportWithFixedReason(t *testing.T) {
	d := flow.Draft{SearchGame: "cs2", CurrentProfileID: 7}

	res := step(t, flow.StateViewingProfiles, btn("report"), d)
	assert.Equal(t, flow.StateChoosingReportReason, res.Next)
	require.NotNil(t, res.Prompt)

	res = step(t, res.Next, btn("report_reason:Toxicity"), res.Draft)
	assert.Equal(t, flow.EffectSubmitReport, res.Effect)
	assert.Equal(t, flow.StateViewingProfiles, res.Next)
	assert.Equal(t, "Toxicity", res.Draft.ReportReason)
	assert.Nil(t, res.Draft.ReportComment)
}

func TestReportOtherRequiresComment(t *testing.T) {
	d := flow.Draft{SearchGame: "cs2", CurrentProfileID: 7}

	res := step(t, flow.StateChoosingReportReason, btn("report_reason:Other"), d)
	assert.Equal(t, flow.StateEnteringReportComment, res.Next)
	assert.Equal(t, flow.EffectNone, res.Effect)

	// Buttons are not a comment.
	_, ok := flow.Step(res.Next, btn("skip"), res.Draft)
	assert.False(t, ok)

	res = step(t, res.Next, txt("sold the game at minute 10"), res.Draft)
	assert.Equal(t, flow.EffectSubmitReport, res.Effect)
	require.NotNil(t, res.Draft.ReportComment)
}

func TestReportCancelReturnsToBrowsing(t *testing.T) {
	d := flow.Draft{SearchGame: "cs2", CurrentProfileID: 7, ReportReason: "Scam"}
	res := step(t, flow.StateChoosingReportReason, btn("report_cancel"), d)
	assert.Equal(t, flow.StateViewingProfiles, res.Next)
	assert.Equal(t, flow.EffectNone, res.Effect)
	assert.Empty(t, res.Draft.ReportReason)
}

func TestReviewRatingBounds(t *testing.T) {
	d := flow.Draft{ReviewTargetID: 9, ReviewGame: "cs2"}

	for _, payload := range []string{"rating:0", "rating:6", "rating:abc"} {
		_, ok := flow.Step(flow.StateChoosingRating, btn(payload), d)
		assert.False(t, ok, payload)
	}

	res := step(t, flow.StateChoosingRating, btn("rating:4"), d)
	assert.Equal(t, flow.StateEnteringReviewComment, res.Next)
	assert.Equal(t, 4, res.Draft.ReviewRating)
}

func TestReviewCommentOrSkip(t *testing.T) {
	d := flow.Draft{ReviewTargetID: 9, ReviewGame: "cs2", ReviewRating: 4}

	res := step(t, flow.StateEnteringReviewComment, txt("/skip"), d)
	assert.Equal(t, flow.EffectSubmitReview, res.Effect)
	assert.Equal(t, flow.StateNone, res.Next)
	assert.Nil(t, res.Draft.ReviewComment)

	res = step(t, flow.StateEnteringReviewComment, txt("solid support"), d)
	assert.Equal(t, flow.EffectSubmitReview, res.Effect)
	require.NotNil(t, res.Draft.ReviewComment)
	assert.Equal(t, "solid support", *res.Draft.ReviewComment)
}
