package flow

import (
	"fmt"
	"strings"
)

// StepCreation drives the profile creation machine.
//
// Free-text link fields are screened by provider substring: text without
// the expected provider is stored as absent and the flow still advances —
// malformed input downgrades, it is never bounced back to the user.
func StepCreation(s State, sig Signal, d Draft) (Result, bool) {
	switch s {
	case StateChoosingGame:
		return creationGame(sig, d)
	case StateEnteringSteamLink:
		return creationSteamLink(sig, d)
	case StateEnteringFaceitLink:
		return creationFaceitLink(sig, d)
	case StateEnteringDotabuff:
		return creationDotabuffLink(sig, d)
	case StateChoosingCountry:
		return creationCountry(sig, d)
	case StateChoosingPositions:
		return creationPositions(sig, d)
	case StateChoosingGoals:
		return creationGoals(sig, d)
	case StateEnteringAbout:
		return creationAbout(sig, d)
	case StateUploadingScreenshot:
		return creationScreenshot(sig, d)
	case StateConfirming:
		return creationConfirm(sig, d)
	}
	return Result{}, false
}

func creationGame(sig Signal, d Draft) (Result, bool) {
	game, ok := payloadArg(sig, "game:")
	if !ok || !validGame(game) {
		return Result{}, false
	}
	d.Game = game
	d.Positions = nil
	d.Goals = nil
	return Result{
		Next:  StateEnteringSteamLink,
		Draft: d,
		Prompt: &Prompt{
			Text: fmt.Sprintf("You picked %s.\n\nSend a link to your Steam profile\n(e.g. https://steamcommunity.com/id/username)",
				GameName(game)),
			Choices: SkipChoices(),
		},
	}, true
}

func creationSteamLink(sig Signal, d Draft) (Result, bool) {
	switch {
	case sig.Kind == SignalText:
		d.SteamLink = linkOrAbsent(sig.Text, "steam")
	case isSkip(sig):
		d.SteamLink = nil
	default:
		return Result{}, false
	}
	return nextLinkStep(d), true
}

// nextLinkStep branches on game: CS2 asks for FaceIT, Dota 2 for
// Dotabuff/OpenDota.
func nextLinkStep(d Draft) Result {
	if d.Game == "cs2" {
		return Result{
			Next:  StateEnteringFaceitLink,
			Draft: d,
			Prompt: &Prompt{
				Text:    "Send a link to your FaceIT profile\n(e.g. https://www.faceit.com/en/players/nickname)",
				Choices: SkipChoices(),
			},
		}
	}
	return Result{
		Next:  StateEnteringDotabuff,
		Draft: d,
		Prompt: &Prompt{
			Text:    "Send a link to your Dotabuff/OpenDota profile",
			Choices: SkipChoices(),
		},
	}
}

func creationFaceitLink(sig Signal, d Draft) (Result, bool) {
	switch {
	case sig.Kind == SignalText:
		d.FaceitLink = linkOrAbsent(sig.Text, "faceit")
	case isSkip(sig):
		d.FaceitLink = nil
	default:
		return Result{}, false
	}
	return countryStep(d), true
}

func creationDotabuffLink(sig Signal, d Draft) (Result, bool) {
	switch {
	case sig.Kind == SignalText:
		d.DotabuffLink = linkOrAbsent(sig.Text, "dotabuff", "opendota")
	case isSkip(sig):
		d.DotabuffLink = nil
	default:
		return Result{}, false
	}
	return countryStep(d), true
}

func countryStep(d Draft) Result {
	return Result{
		Next:  StateChoosingCountry,
		Draft: d,
		Prompt: &Prompt{
			Text:    "Pick your country:",
			Choices: CountryChoices(),
		},
	}
}

func creationCountry(sig Signal, d Draft) (Result, bool) {
	country, ok := payloadArg(sig, "country:")
	if !ok {
		return Result{}, false
	}
	if country == "none" {
		d.Country = nil
	} else {
		d.Country = &country
	}
	return Result{
		Next:  StateChoosingPositions,
		Draft: d,
		Prompt: &Prompt{
			Text:    "Pick your in-game positions/roles\n(you can select several):",
			Choices: PositionChoices(d.Game, nil),
		},
	}, true
}

func creationPositions(sig Signal, d Draft) (Result, bool) {
	if item, ok := payloadArg(sig, "pos_add:"); ok {
		d.Positions = addItem(d.Positions, item)
		return toggleLoop(StateChoosingPositions, d, PositionChoices(d.Game, d.Positions)), true
	}
	if item, ok := payloadArg(sig, "pos_remove:"); ok {
		d.Positions = removeItem(d.Positions, item)
		return toggleLoop(StateChoosingPositions, d, PositionChoices(d.Game, d.Positions)), true
	}
	switch buttonPayload(sig) {
	case "positions_done":
		if len(d.Positions) == 0 {
			return Result{}, false
		}
	case "positions_skip":
		d.Positions = nil
	default:
		return Result{}, false
	}
	return Result{
		Next:  StateChoosingGoals,
		Draft: d,
		Prompt: &Prompt{
			Text:    "Pick your goals\n(you can select several):",
			Choices: GoalChoices(nil),
		},
	}, true
}

func creationGoals(sig Signal, d Draft) (Result, bool) {
	if item, ok := payloadArg(sig, "goal_add:"); ok {
		d.Goals = addItem(d.Goals, item)
		return toggleLoop(StateChoosingGoals, d, GoalChoices(d.Goals)), true
	}
	if item, ok := payloadArg(sig, "goal_remove:"); ok {
		d.Goals = removeItem(d.Goals, item)
		return toggleLoop(StateChoosingGoals, d, GoalChoices(d.Goals)), true
	}
	switch buttonPayload(sig) {
	case "goals_done":
		if len(d.Goals) == 0 {
			return Result{}, false
		}
	case "goals_skip":
		d.Goals = nil
	default:
		return Result{}, false
	}
	return Result{
		Next:  StateEnteringAbout,
		Draft: d,
		Prompt: &Prompt{
			Text: "Tell us about yourself:\n\n" +
				"For example:\n" +
				"- your experience and peak rank\n" +
				"- when you usually play\n" +
				"- preferred play style\n" +
				"- Discord or other contacts\n\n" +
				"Send it as a text message:",
		},
	}, true
}

// About is the one step with no skip: it only accepts text.
func creationAbout(sig Signal, d Draft) (Result, bool) {
	if sig.Kind != SignalText || strings.TrimSpace(sig.Text) == "" {
		return Result{}, false
	}
	text := sig.Text
	d.About = &text
	return Result{
		Next:  StateUploadingScreenshot,
		Draft: d,
		Prompt: &Prompt{
			Text:    "Send a screenshot of your rating/rank\n(helps other players gauge your level)",
			Choices: SkipChoices(),
		},
	}, true
}

func creationScreenshot(sig Signal, d Draft) (Result, bool) {
	switch {
	case sig.Kind == SignalPhoto && sig.MediaRef != "":
		ref := sig.MediaRef
		d.ScreenshotRef = &ref
	case isSkip(sig):
		d.ScreenshotRef = nil
	default:
		return Result{}, false
	}
	return Result{
		Next:   StateConfirming,
		Draft:  d,
		Prompt: previewPrompt(d),
	}, true
}

func creationConfirm(sig Signal, d Draft) (Result, bool) {
	switch buttonPayload(sig) {
	case "profile_save":
		return Result{Next: StateNone, Draft: d, Effect: EffectSaveProfile}, true
	case "profile_cancel":
		return Result{Next: StateNone, Draft: Draft{}, Effect: EffectCancelProfile}, true
	case "profile_edit":
		// Restart at game choice with the draft retained; each step
		// overwrites its field on the way back through.
		return Result{
			Next:  StateChoosingGame,
			Draft: d,
			Prompt: &Prompt{
				Text:    "Pick the game for your profile:",
				Choices: GameChoices(),
			},
		}, true
	}
	return Result{}, false
}

// previewPrompt renders the accumulated draft for confirmation.
func previewPrompt(d Draft) *Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s profile\n\n", GameName(d.Game))
	if d.Country != nil {
		fmt.Fprintf(&b, "Country: %s\n", *d.Country)
	}
	if len(d.Positions) > 0 {
		fmt.Fprintf(&b, "Positions: %s\n", strings.Join(d.Positions, ", "))
	}
	if len(d.Goals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", strings.Join(d.Goals, ", "))
	}
	if d.SteamLink != nil {
		fmt.Fprintf(&b, "Steam: %s\n", *d.SteamLink)
	}
	if d.FaceitLink != nil {
		fmt.Fprintf(&b, "FaceIT: %s\n", *d.FaceitLink)
	}
	if d.DotabuffLink != nil {
		fmt.Fprintf(&b, "Dotabuff: %s\n", *d.DotabuffLink)
	}
	if d.About != nil {
		fmt.Fprintf(&b, "\nAbout:\n%s\n", *d.About)
	}

	prompt := &Prompt{
		Text:    b.String(),
		Choices: ConfirmChoices(),
	}
	if d.ScreenshotRef != nil {
		prompt.MediaRef = *d.ScreenshotRef
	}
	return prompt
}

// --- helpers ---

func toggleLoop(s State, d Draft, choices []Choice) Result {
	return Result{
		Next:   s,
		Draft:  d,
		Prompt: &Prompt{Text: "Anything else?", Choices: choices},
	}
}

// linkOrAbsent accepts the text only if it mentions one of the given
// providers (case-insensitive); anything else downgrades to absent.
func linkOrAbsent(text string, providers ...string) *string {
	lower := strings.ToLower(text)
	for _, p := range providers {
		if strings.Contains(lower, p) {
			link := text
			return &link
		}
	}
	return nil
}

func isSkip(sig Signal) bool {
	return sig.Kind == SignalButton && sig.Payload == "skip"
}

func buttonPayload(sig Signal) string {
	if sig.Kind != SignalButton {
		return ""
	}
	return sig.Payload
}

// payloadArg extracts the argument of a "<prefix><arg>" button payload.
func payloadArg(sig Signal, prefix string) (string, bool) {
	if sig.Kind != SignalButton || !strings.HasPrefix(sig.Payload, prefix) {
		return "", false
	}
	arg := sig.Payload[len(prefix):]
	if arg == "" {
		return "", false
	}
	return arg, true
}

func addItem(list []string, item string) []string {
	if contains(list, item) {
		return list
	}
	return append(list, item)
}

func removeItem(list []string, item string) []string {
	var out []string
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
