package flow

import "strconv"

// StepReview drives review submission. The rating range is enforced by the
// fixed choice-set; the comment step takes free text or the literal
// "/skip" signal.
func StepReview(s State, sig Signal, d Draft) (Result, bool) {
	switch s {
	case StateChoosingRating:
		arg, ok := payloadArg(sig, "rating:")
		if !ok {
			return Result{}, false
		}
		rating, err := strconv.Atoi(arg)
		if err != nil || rating < 1 || rating > 5 {
			return Result{}, false
		}
		d.ReviewRating = rating
		return Result{
			Next:  StateEnteringReviewComment,
			Draft: d,
			Prompt: &Prompt{
				Text: "Want to add a comment?\nSend a text message, or /skip to finish.",
			},
		}, true

	case StateEnteringReviewComment:
		if sig.Kind != SignalText || sig.Text == "" {
			return Result{}, false
		}
		if sig.Text == "/skip" {
			d.ReviewComment = nil
		} else {
			comment := sig.Text
			d.ReviewComment = &comment
		}
		return Result{Next: StateNone, Draft: d, Effect: EffectSubmitReview}, true
	}
	return Result{}, false
}
