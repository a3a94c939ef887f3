package flow

// StepBrowse drives profile browsing. The queue itself (candidate
// selection, viewed marks) lives behind effects; the machine only decides
// which ledger action the swipe maps to.
func StepBrowse(s State, sig Signal, d Draft) (Result, bool) {
	switch s {
	case StateChoosingSearchGame:
		game, ok := payloadArg(sig, "search_game:")
		if !ok || !validGame(game) {
			return Result{}, false
		}
		d.SearchGame = game
		return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectAdvanceQueue}, true

	case StateViewingProfiles:
		switch buttonPayload(sig) {
		case "like":
			if d.CurrentProfileID == 0 {
				return Result{}, false
			}
			return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectLike}, true
		case "dislike":
			if d.CurrentProfileID == 0 {
				return Result{}, false
			}
			return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectAdvanceQueue}, true
		case "report":
			if d.CurrentProfileID == 0 {
				return Result{}, false
			}
			return Result{
				Next:  StateChoosingReportReason,
				Draft: d,
				Prompt: &Prompt{
					Text:    "Why are you reporting this profile?",
					Choices: ReportReasonChoices(),
				},
			}, true
		case "reset_viewed":
			return Result{Next: StateViewingProfiles, Draft: d, Effect: EffectResetViewed}, true
		case "to_menu":
			return Result{Next: StateNone, Draft: Draft{}, Effect: EffectReturnToMenu}, true
		}
	}
	return Result{}, false
}
