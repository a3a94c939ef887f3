package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/squadup/teamfinder/internal/app"
	apperrors "github.com/squadup/teamfinder/internal/errors"
	"github.com/squadup/teamfinder/internal/flow"
	"github.com/squadup/teamfinder/internal/matchmaking"
	"github.com/squadup/teamfinder/internal/repository"
	"github.com/squadup/teamfinder/internal/session"
)

type EventKind int

const (
	// EventCommand is an explicit command (start, search, ...).
	EventCommand EventKind = iota
	// EventText is a free-text message, optionally carrying a media
	// reference.
	EventText
	// EventButton is a choice-set press carrying an opaque payload.
	EventButton
)

// Event is one inbound user action from the transport collaborator,
// tagged with the originating identity.
type Event struct {
	UserID      uint64
	DisplayName string
	Kind        EventKind
	Command     string
	Text        string
	Payload     string
	MediaRef    string
}

// Known commands.
const (
	CmdStart         = "start"
	CmdCreateProfile = "create_profile"
	CmdMyProfile     = "my_profile"
	CmdChangeGame    = "change_game"
	CmdSearch        = "search"
	CmdLikes         = "likes"
	CmdMatches       = "matches"
)

const likesPageSize = 20

// Service is the session orchestrator: it ties an inbound event to the
// user's current conversation state, runs the machine transition, executes
// the resulting effect against the store/ledger/selector, and returns the
// next outbound prompts.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	ledger   *repository.InteractionRepository
	selector *matchmaking.Selector
	sessions session.Store
}

// NewService creates the orchestrator with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	profiles := repository.NewProfileRepository(appCtx.DB)
	ledger := repository.NewInteractionRepository(appCtx.DB, profiles)
	return &Service{
		appCtx:   appCtx,
		profiles: profiles,
		ledger:   ledger,
		selector: matchmaking.NewSelector(profiles, ledger, nil),
		sessions: appCtx.Sessions,
	}
}

// HandleEvent processes one inbound event and returns the outbound
// prompts. Out-of-state signals come back as an empty prompt list, not an
// error; storage failures are fatal to this event only and leave any
// in-progress draft intact.
func (s *Service) HandleEvent(ctx context.Context, ev Event) ([]flow.Prompt, error) {
	log := s.appCtx.Logger.With("event_id", uuid.NewString(), "user_id", ev.UserID)

	switch ev.Kind {
	case EventCommand:
		return s.handleCommand(ctx, log, ev.UserID, ev.DisplayName, ev.Command)

	case EventButton:
		if prompts, handled, err := s.handleGlobalButton(ctx, log, ev); handled {
			return prompts, err
		}
		return s.dispatch(ctx, log, ev.UserID, flow.Signal{Kind: flow.SignalButton, Payload: ev.Payload})

	case EventText:
		sig := flow.Signal{Kind: flow.SignalText, Text: ev.Text}
		if ev.MediaRef != "" && ev.Text == "" {
			sig = flow.Signal{Kind: flow.SignalPhoto, MediaRef: ev.MediaRef}
		}
		return s.dispatch(ctx, log, ev.UserID, sig)
	}
	return nil, nil
}

// --- commands ---

func (s *Service) handleCommand(ctx context.Context, log *slog.Logger, userID uint64, displayName, cmd string) ([]flow.Prompt, error) {
	log.Debug("command", "cmd", cmd)

	switch cmd {
	case CmdStart:
		return s.cmdStart(ctx, userID, displayName)
	case CmdCreateProfile:
		return s.startCreation(ctx, userID, "Pick the game for your profile:")
	case CmdChangeGame:
		return s.cmdChangeGame(ctx, userID)
	case CmdMyProfile:
		return s.cmdMyProfile(ctx, userID)
	case CmdSearch:
		return s.cmdSearch(ctx, userID)
	case CmdLikes:
		return s.cmdLikes(ctx, userID)
	case CmdMatches:
		return s.cmdMatches(ctx, userID)
	}
	log.Debug("unknown command dropped", "cmd", cmd)
	return nil, nil
}

func (s *Service) cmdStart(ctx context.Context, userID uint64, displayName string) ([]flow.Prompt, error) {
	if err := s.profiles.EnsureUser(ctx, userID, displayName); err != nil {
		return nil, err
	}
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return nil, err
	}

	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(games) > 0 {
		return []flow.Prompt{{
			Text:    fmt.Sprintf("Welcome back, %s!\n\nPick an action from the menu:", displayName),
			Choices: menuChoices(true),
		}}, nil
	}
	return []flow.Prompt{{
		Text: fmt.Sprintf("Welcome to Teamfinder, %s!\n\n"+
			"This is a teammate finder for CS2 and Dota 2.\n\n"+
			"Create a profile to get started:", displayName),
		Choices: menuChoices(false),
	}}, nil
}

func (s *Service) startCreation(ctx context.Context, userID uint64, text string) ([]flow.Prompt, error) {
	// Starting a flow replaces whatever was mid-flight; drafts don't stack.
	sess := &session.Session{UserID: userID, State: flow.StateChoosingGame}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return []flow.Prompt{{Text: text, Choices: flow.GameChoices()}}, nil
}

func (s *Service) cmdChangeGame(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString("Pick a game:\n\n")
	for _, g := range games {
		fmt.Fprintf(&b, "✓ %s — profile created\n", flow.GameName(g))
	}
	return s.startCreation(ctx, userID, b.String())
}

func (s *Service) cmdMyProfile(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch len(games) {
	case 0:
		return []flow.Prompt{{
			Text:    "You have no profiles yet. Create your first one!",
			Choices: menuChoices(false),
		}}, nil
	case 1:
		return s.showOwnProfile(ctx, userID, games[0])
	}

	choices := make([]flow.Choice, 0, len(games))
	for _, g := range games {
		choices = append(choices, flow.Choice{Label: flow.GameName(g), Payload: "show_profile:" + g})
	}
	return []flow.Prompt{{Text: "Pick a game to view its profile:", Choices: choices}}, nil
}

func (s *Service) showOwnProfile(ctx context.Context, userID uint64, game string) ([]flow.Prompt, error) {
	record, err := s.profiles.Get(ctx, userID, game)
	if apperrors.IsNotFound(err) {
		return []flow.Prompt{{Text: "You have no profile for " + flow.GameName(game) + " yet."}}, nil
	}
	if err != nil {
		return nil, err
	}
	prompt := profilePrompt(record, nil)
	prompt.Text = "Your profile\n\n" + prompt.Text
	return []flow.Prompt{prompt}, nil
}

func (s *Service) cmdSearch(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch len(games) {
	case 0:
		return []flow.Prompt{{
			Text:    "Create a profile first!",
			Choices: menuChoices(false),
		}}, nil
	case 1:
		sess := &session.Session{
			UserID: userID,
			State:  flow.StateViewingProfiles,
			Draft:  flow.Draft{SearchGame: games[0]},
		}
		return s.advanceQueue(ctx, sess)
	}

	sess := &session.Session{UserID: userID, State: flow.StateChoosingSearchGame}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return []flow.Prompt{{Text: "Pick a game to search in:", Choices: flow.SearchGameChoices()}}, nil
}

func (s *Service) cmdLikes(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return []flow.Prompt{{Text: "You have no profiles yet."}}, nil
	}

	var total int64
	var b strings.Builder
	i := 0
	for _, game := range games {
		count, err := s.likeCount(ctx, userID, game)
		if err != nil {
			return nil, err
		}
		total += count

		entries, _, err := s.ledger.ListIncomingLikes(ctx, userID, game, nil, likesPageSize)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			i++
			fmt.Fprintf(&b, "%d. %s (%s)\n", i, e.Profile.Username, flow.GameName(game))
			if len(e.Profile.Positions) > 0 {
				fmt.Fprintf(&b, "   Positions: %s\n", strings.Join(e.Profile.Positions, ", "))
			}
			if len(e.Profile.Goals) > 0 {
				fmt.Fprintf(&b, "   Goals: %s\n", strings.Join(e.Profile.Goals, ", "))
			}
		}
	}

	if total == 0 {
		return []flow.Prompt{{Text: "Nobody has liked you yet.\n\nDon't worry — keep searching!"}}, nil
	}
	text := fmt.Sprintf("You've been liked (%d):\n\n%s\nLike them back in Search to create a match!", total, b.String())
	return []flow.Prompt{{Text: text}}, nil
}

// likeCount is cache-first: Redis counter when fresh, store fallback with
// a cache refresh on miss.
func (s *Service) likeCount(ctx context.Context, userID uint64, game string) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID, game); err == nil && ok {
		return n, nil
	}
	n, err := s.ledger.CountIncomingLikes(ctx, userID, game)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.UpdateLikeCount(ctx, userID, game, n)
	return n, nil
}

func (s *Service) cmdMatches(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return []flow.Prompt{{Text: "You have no profiles yet."}}, nil
	}

	var b strings.Builder
	var choices []flow.Choice
	i := 0
	for _, game := range games {
		entries, err := s.ledger.ListMatches(ctx, userID, game)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			i++
			fmt.Fprintf(&b, "%d. %s (%s)\n", i, e.Profile.Username, flow.GameName(game))
			if e.Profile.About != nil {
				for _, line := range strings.Split(*e.Profile.About, "\n") {
					if containsContact(line) {
						fmt.Fprintf(&b, "   %s\n", line)
					}
				}
			}
			choices = append(choices, flow.Choice{
				Label:   "Review " + e.Profile.Username,
				Payload: fmt.Sprintf("review:%d:%s", e.Profile.UserID, game),
			})
		}
	}

	if i == 0 {
		return []flow.Prompt{{Text: "No matches yet.\n\nKeep looking for teammates in Search!"}}, nil
	}
	text := "Your matches:\n\n" + b.String() + "\nMessage them and set up a game!"
	return []flow.Prompt{{Text: text, Choices: choices}}, nil
}

// containsContact flags about-text lines worth surfacing in the match
// list (Discord handles and the like).
func containsContact(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range []string{"discord", "telegram", "steam", "contact"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// --- global buttons (valid regardless of conversation state) ---

func (s *Service) handleGlobalButton(ctx context.Context, log *slog.Logger, ev Event) ([]flow.Prompt, bool, error) {
	switch {
	case strings.HasPrefix(ev.Payload, "menu:"):
		prompts, err := s.handleCommand(ctx, log, ev.UserID, ev.DisplayName, strings.TrimPrefix(ev.Payload, "menu:"))
		return prompts, true, err

	case strings.HasPrefix(ev.Payload, "show_profile:"):
		prompts, err := s.showOwnProfile(ctx, ev.UserID, strings.TrimPrefix(ev.Payload, "show_profile:"))
		return prompts, true, err

	case strings.HasPrefix(ev.Payload, "review:"):
		prompts, err := s.startReview(ctx, log, ev.UserID, ev.Payload)
		return prompts, true, err
	}
	return nil, false, nil
}

func (s *Service) startReview(ctx context.Context, log *slog.Logger, userID uint64, payload string) ([]flow.Prompt, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		log.Debug("malformed review payload dropped", "payload", payload)
		return nil, nil
	}
	targetID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || targetID == userID {
		log.Debug("malformed review payload dropped", "payload", payload)
		return nil, nil
	}

	sess := &session.Session{
		UserID: userID,
		State:  flow.StateChoosingRating,
		Draft:  flow.Draft{ReviewTargetID: targetID, ReviewGame: parts[2]},
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return []flow.Prompt{{Text: "Rate this player from 1 to 5 stars:", Choices: flow.RatingChoices()}}, nil
}

// --- state-machine dispatch ---

func (s *Service) dispatch(ctx context.Context, log *slog.Logger, userID uint64, sig flow.Signal) ([]flow.Prompt, error) {
	sess, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return s.fallback(ctx, userID, sig)
	}

	res, ok := flow.Step(sess.State, sig, sess.Draft)
	if !ok {
		log.Debug("out-of-state signal dropped", "state", sess.State, "payload", sig.Payload)
		return s.fallback(ctx, userID, sig)
	}
	return s.apply(ctx, log, sess, res)
}

// fallback covers signals with no active machine: only "to_menu" means
// anything there, everything else is dropped.
func (s *Service) fallback(ctx context.Context, userID uint64, sig flow.Signal) ([]flow.Prompt, error) {
	if sig.Kind == flow.SignalButton && sig.Payload == "to_menu" {
		return s.returnToMenu(ctx, userID)
	}
	return nil, nil
}

func (s *Service) returnToMenu(ctx context.Context, userID uint64) ([]flow.Prompt, error) {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		return nil, err
	}
	games, err := s.profiles.ListGames(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []flow.Prompt{{Text: "Main menu", Choices: menuChoices(len(games) > 0)}}, nil
}

// apply executes the transition's effect. Failed commits return an error
// without touching the stored session, so the draft survives for a retry.
func (s *Service) apply(ctx context.Context, log *slog.Logger, sess *session.Session, res flow.Result) ([]flow.Prompt, error) {
	switch res.Effect {
	case flow.EffectNone:
		sess.State, sess.Draft = res.Next, res.Draft
		if sess.State == flow.StateNone {
			if err := s.sessions.Clear(ctx, sess.UserID); err != nil {
				return nil, err
			}
		} else if err := s.sessions.Put(ctx, sess); err != nil {
			return nil, err
		}
		if res.Prompt != nil {
			return []flow.Prompt{*res.Prompt}, nil
		}
		return nil, nil

	case flow.EffectSaveProfile:
		d := res.Draft
		err := s.profiles.Upsert(ctx, sess.UserID, d.Game, repository.ProfileFields{
			SteamLink:     d.SteamLink,
			FaceitLink:    d.FaceitLink,
			DotabuffLink:  d.DotabuffLink,
			Country:       d.Country,
			Positions:     d.Positions,
			Goals:         d.Goals,
			About:         d.About,
			ScreenshotRef: d.ScreenshotRef,
		})
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Clear(ctx, sess.UserID); err != nil {
			return nil, err
		}
		return []flow.Prompt{{
			Text:    "Profile saved!\n\nYou can start searching for teammates now.",
			Choices: menuChoices(true),
		}}, nil

	case flow.EffectCancelProfile:
		if err := s.sessions.Clear(ctx, sess.UserID); err != nil {
			return nil, err
		}
		games, err := s.profiles.ListGames(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}
		return []flow.Prompt{{
			Text:    "Profile creation cancelled.",
			Choices: menuChoices(len(games) > 0),
		}}, nil

	case flow.EffectLike:
		d := res.Draft
		matched, err := s.ledger.RecordLike(ctx, sess.UserID, d.CurrentProfileID, d.SearchGame)
		if errors.Is(err, apperrors.ErrSelfAction) {
			log.Warn("self-like dropped", "target", d.CurrentProfileID)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		_ = s.appCtx.RedisCache.InvalidateLikeCount(ctx, d.CurrentProfileID, d.SearchGame)

		var prompts []flow.Prompt
		if matched {
			prompts = append(prompts, flow.Prompt{Text: "It's a match! Check the Matches section."})
		} else {
			prompts = append(prompts, flow.Prompt{Text: "Like sent!"})
		}
		sess.State, sess.Draft = res.Next, res.Draft
		next, err := s.advanceQueue(ctx, sess)
		if err != nil {
			return prompts, err
		}
		return append(prompts, next...), nil

	case flow.EffectAdvanceQueue:
		sess.State, sess.Draft = res.Next, res.Draft
		return s.advanceQueue(ctx, sess)

	case flow.EffectResetViewed:
		if err := s.ledger.ResetViewed(ctx, sess.UserID, res.Draft.SearchGame); err != nil {
			return nil, err
		}
		sess.State, sess.Draft = res.Next, res.Draft
		prompts, err := s.advanceQueue(ctx, sess)
		if err != nil {
			return nil, err
		}
		return append([]flow.Prompt{{Text: "Starting over!"}}, prompts...), nil

	case flow.EffectSubmitReport:
		d := res.Draft
		if err := s.ledger.RecordReport(ctx, sess.UserID, d.CurrentProfileID, d.SearchGame, d.ReportReason, d.ReportComment); err != nil {
			return nil, err
		}
		d.ReportReason = ""
		d.ReportComment = nil
		sess.State, sess.Draft = res.Next, d
		prompts, err := s.advanceQueue(ctx, sess)
		if err != nil {
			return nil, err
		}
		return append([]flow.Prompt{{Text: "Report submitted."}}, prompts...), nil

	case flow.EffectSubmitReview:
		d := res.Draft
		err := s.ledger.UpsertReview(ctx, sess.UserID, d.ReviewTargetID, d.ReviewGame, d.ReviewRating, d.ReviewComment)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.Clear(ctx, sess.UserID); err != nil {
			return nil, err
		}
		return []flow.Prompt{{Text: "Review submitted — thanks for rating!"}}, nil

	case flow.EffectReturnToMenu:
		return s.returnToMenu(ctx, sess.UserID)
	}
	return nil, nil
}

// advanceQueue asks the selector for the next candidate and updates the
// session's browse context. Pool exhaustion is an outcome, not an error.
func (s *Service) advanceQueue(ctx context.Context, sess *session.Session) ([]flow.Prompt, error) {
	record, err := s.selector.NextCandidate(ctx, sess.UserID, sess.Draft.SearchGame)
	if err != nil {
		return nil, err
	}

	sess.State = flow.StateViewingProfiles
	if record == nil {
		sess.Draft.CurrentProfileID = 0
		if err := s.sessions.Put(ctx, sess); err != nil {
			return nil, err
		}
		return []flow.Prompt{{
			Text: "No more profiles!\n\n" +
				"You've seen everyone available.\n" +
				"Start over, or come back later.",
			Choices: flow.ExhaustedChoices(),
		}}, nil
	}

	sess.Draft.CurrentProfileID = record.UserID
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return []flow.Prompt{profilePrompt(record, flow.SearchChoices())}, nil
}

// profilePrompt renders a profile card the way the browse and "my
// profile" views show it.
func profilePrompt(record *repository.ProfileRecord, choices []flow.Choice) flow.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", flow.GameName(record.Game), record.Username)
	if record.Country != nil {
		fmt.Fprintf(&b, "Country: %s\n", *record.Country)
	}
	if len(record.Positions) > 0 {
		fmt.Fprintf(&b, "Positions: %s\n", strings.Join(record.Positions, ", "))
	}
	if len(record.Goals) > 0 {
		fmt.Fprintf(&b, "Goals: %s\n", strings.Join(record.Goals, ", "))
	}
	if record.AvgRating > 0 {
		fmt.Fprintf(&b, "Rating: %.1f (%d reviews)\n", record.AvgRating, record.ReviewCount)
	}
	if record.About != nil {
		fmt.Fprintf(&b, "\nAbout:\n%s\n", *record.About)
	}

	prompt := flow.Prompt{Text: b.String(), Choices: choices}
	if record.ScreenshotRef != nil {
		prompt.MediaRef = *record.ScreenshotRef
	}
	return prompt
}

// menuChoices is the main menu; its payloads route back through the
// command handlers.
func menuChoices(hasProfile bool) []flow.Choice {
	if !hasProfile {
		return []flow.Choice{{Label: "Create profile", Payload: "menu:" + CmdCreateProfile}}
	}
	return []flow.Choice{
		{Label: "Search", Payload: "menu:" + CmdSearch},
		{Label: "My profile", Payload: "menu:" + CmdMyProfile},
		{Label: "Likes", Payload: "menu:" + CmdLikes},
		{Label: "Matches", Payload: "menu:" + CmdMatches},
		{Label: "Change game", Payload: "menu:" + CmdChangeGame},
	}
}
