package flow

import "fmt"

// Game is a supported title.
type Game struct {
	Key  string
	Name string
}

var Games = []Game{
	{Key: "cs2", Name: "Counter-Strike 2"},
	{Key: "dota2", Name: "Dota 2"},
}

var Countries = []string{
	"Russia", "Belarus", "Ukraine",
	"Kazakhstan", "Uzbekistan", "Other",
}

var Positions = map[string][]string{
	"cs2":   {"Support", "Sniper", "Lurker", "Entry-Fragger", "IGL"},
	"dota2": {"Carry", "Midlaner", "Offlaner", "Soft Support", "Hard Support"},
}

var Goals = []string{
	"Pub games", "Ranked",
	"Tournaments", "Social",
}

var ReportReasons = []string{
	"Toxicity",
	"Scam",
	"Inappropriate behavior",
	"Spam/advertising",
	"Fake profile",
	ReasonOther,
}

// ReasonOther is the one report reason that requires a free-text comment.
const ReasonOther = "Other"

// GameName resolves a game key to its display name, falling back to the
// key itself for unknown values.
func GameName(key string) string {
	for _, g := range Games {
		if g.Key == key {
			return g.Name
		}
	}
	return key
}

func validGame(key string) bool {
	for _, g := range Games {
		if g.Key == key {
			return true
		}
	}
	return false
}

// --- choice-set builders (the structured keyboards of the original UI) ---

func GameChoices() []Choice {
	choices := make([]Choice, 0, len(Games))
	for _, g := range Games {
		choices = append(choices, Choice{Label: g.Name, Payload: "game:" + g.Key})
	}
	return choices
}

func SearchGameChoices() []Choice {
	choices := make([]Choice, 0, len(Games))
	for _, g := range Games {
		choices = append(choices, Choice{Label: g.Name, Payload: "search_game:" + g.Key})
	}
	return choices
}

func SkipChoices() []Choice {
	return []Choice{{Label: "Skip", Payload: "skip"}}
}

func CountryChoices() []Choice {
	choices := make([]Choice, 0, len(Countries)+1)
	for _, c := range Countries {
		choices = append(choices, Choice{Label: c, Payload: "country:" + c})
	}
	choices = append(choices, Choice{Label: "Prefer not to say", Payload: "country:none"})
	return choices
}

// PositionChoices renders the toggle keyboard: selected entries flip to a
// remove action, and "Done" only appears once the set is non-empty.
func PositionChoices(game string, selected []string) []Choice {
	choices := make([]Choice, 0, len(Positions[game])+2)
	for _, p := range Positions[game] {
		if contains(selected, p) {
			choices = append(choices, Choice{Label: "✓ " + p, Payload: "pos_remove:" + p})
		} else {
			choices = append(choices, Choice{Label: p, Payload: "pos_add:" + p})
		}
	}
	if len(selected) > 0 {
		choices = append(choices, Choice{Label: "Done", Payload: "positions_done"})
	}
	choices = append(choices, Choice{Label: "Skip", Payload: "positions_skip"})
	return choices
}

func GoalChoices(selected []string) []Choice {
	choices := make([]Choice, 0, len(Goals)+2)
	for _, g := range Goals {
		if contains(selected, g) {
			choices = append(choices, Choice{Label: "✓ " + g, Payload: "goal_remove:" + g})
		} else {
			choices = append(choices, Choice{Label: g, Payload: "goal_add:" + g})
		}
	}
	if len(selected) > 0 {
		choices = append(choices, Choice{Label: "Done", Payload: "goals_done"})
	}
	choices = append(choices, Choice{Label: "Skip", Payload: "goals_skip"})
	return choices
}

func ConfirmChoices() []Choice {
	return []Choice{
		{Label: "Save", Payload: "profile_save"},
		{Label: "Edit", Payload: "profile_edit"},
		{Label: "Cancel", Payload: "profile_cancel"},
	}
}

func SearchChoices() []Choice {
	return []Choice{
		{Label: "Like", Payload: "like"},
		{Label: "Dislike", Payload: "dislike"},
		{Label: "Report", Payload: "report"},
		{Label: "Menu", Payload: "to_menu"},
	}
}

func ExhaustedChoices() []Choice {
	return []Choice{
		{Label: "Start over", Payload: "reset_viewed"},
		{Label: "Menu", Payload: "to_menu"},
	}
}

func ReportReasonChoices() []Choice {
	choices := make([]Choice, 0, len(ReportReasons)+1)
	for _, r := range ReportReasons {
		choices = append(choices, Choice{Label: r, Payload: "report_reason:" + r})
	}
	choices = append(choices, Choice{Label: "Cancel", Payload: "report_cancel"})
	return choices
}

func RatingChoices() []Choice {
	choices := make([]Choice, 0, 5)
	for i := 1; i <= 5; i++ {
		choices = append(choices, Choice{
			Label:   fmt.Sprintf("%d ★", i),
			Payload: fmt.Sprintf("rating:%d", i),
		})
	}
	return choices
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
