// Package flow holds the conversation state machines as pure transition
// functions: (state, signal, draft) → (next state, new draft, effect).
// Nothing in here touches storage; effects are executed by the
// conversation service.
package flow

// State names a position in one of the conversation machines. The prefix
// routes dispatch to the owning machine.
type State string

const (
	StateNone State = ""

	// Profile creation
	StateChoosingGame        State = "profile:choosing_game"
	StateEnteringSteamLink   State = "profile:entering_steam_link"
	StateEnteringFaceitLink  State = "profile:entering_faceit_link"
	StateEnteringDotabuff    State = "profile:entering_dotabuff_link"
	StateChoosingCountry     State = "profile:choosing_country"
	StateChoosingPositions   State = "profile:choosing_positions"
	StateChoosingGoals       State = "profile:choosing_goals"
	StateEnteringAbout       State = "profile:entering_about"
	StateUploadingScreenshot State = "profile:uploading_screenshot"
	StateConfirming          State = "profile:confirming"

	// Browsing
	StateChoosingSearchGame State = "search:choosing_game"
	StateViewingProfiles    State = "search:viewing"

	// Review
	StateChoosingRating        State = "review:choosing_rating"
	StateEnteringReviewComment State = "review:entering_comment"

	// Report
	StateChoosingReportReason  State = "report:choosing_reason"
	StateEnteringReportComment State = "report:entering_comment"
)

type SignalKind int

const (
	// SignalButton carries an opaque payload from a choice-set press.
	SignalButton SignalKind = iota
	// SignalText is a free-text message.
	SignalText
	// SignalPhoto is a message whose content is an attached media reference.
	SignalPhoto
)

// Signal is one inbound user action, already stripped of transport detail.
type Signal struct {
	Kind     SignalKind
	Payload  string
	Text     string
	MediaRef string
}

// Draft accumulates in-progress data across transitions. It is
// session-scoped and volatile: nothing in it is persisted until a terminal
// commit effect, and cancel discards it wholesale.
type Draft struct {
	// Profile creation
	Game          string   `json:"game,omitempty"`
	SteamLink     *string  `json:"steam_link,omitempty"`
	FaceitLink    *string  `json:"faceit_link,omitempty"`
	DotabuffLink  *string  `json:"dotabuff_link,omitempty"`
	Country       *string  `json:"country,omitempty"`
	Positions     []string `json:"positions,omitempty"`
	Goals         []string `json:"goals,omitempty"`
	About         *string  `json:"about,omitempty"`
	ScreenshotRef *string  `json:"screenshot_ref,omitempty"`

	// Browsing
	SearchGame       string `json:"search_game,omitempty"`
	CurrentProfileID uint64 `json:"current_profile_id,omitempty"`

	// Report
	ReportReason  string  `json:"report_reason,omitempty"`
	ReportComment *string `json:"report_comment,omitempty"`

	// Review
	ReviewTargetID uint64  `json:"review_target_id,omitempty"`
	ReviewGame     string  `json:"review_game,omitempty"`
	ReviewRating   int     `json:"review_rating,omitempty"`
	ReviewComment  *string `json:"review_comment,omitempty"`
}

// Effect names the storage/selector action the service must execute after
// a transition. Terminal effects clear the session.
type Effect int

const (
	EffectNone Effect = iota
	EffectSaveProfile
	EffectCancelProfile
	EffectLike
	EffectAdvanceQueue
	EffectResetViewed
	EffectSubmitReport
	EffectSubmitReview
	EffectReturnToMenu
)

// Result is the outcome of one transition. Prompt is nil when the effect
// produces the next outbound content itself.
type Result struct {
	Next   State
	Draft  Draft
	Effect Effect
	Prompt *Prompt
}

// Choice is one entry of a structured choice-set. Label is presentation,
// Payload is the opaque string the next button signal will carry.
type Choice struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Prompt is an outbound content request: what to say, which choice-set is
// valid next, and an optional media reference. Rendering is the transport
// collaborator's job.
type Prompt struct {
	Text     string   `json:"text"`
	Choices  []Choice `json:"choices,omitempty"`
	MediaRef string   `json:"media_ref,omitempty"`
}

// Step dispatches a signal to the machine owning the current state. The
// boolean is false when the signal is not enumerated for that state — the
// caller drops it silently instead of failing.
func Step(s State, sig Signal, d Draft) (Result, bool) {
	switch {
	case s == StateNone:
		return Result{}, false
	case hasPrefix(s, "profile:"):
		return StepCreation(s, sig, d)
	case hasPrefix(s, "search:"):
		return StepBrowse(s, sig, d)
	case hasPrefix(s, "review:"):
		return StepReview(s, sig, d)
	case hasPrefix(s, "report:"):
		return StepReport(s, sig, d)
	}
	return Result{}, false
}

func hasPrefix(s State, prefix string) bool {
	return len(s) >= len(prefix) && string(s)[:len(prefix)] == prefix
}
