package matchmaking

import (
	"context"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/squadup/teamfinder/internal/errors"
	"github.com/squadup/teamfinder/internal/repository"
)

// Selector picks the next unseen profile for a viewer in a given game.
//
// Selection is a uniform draw over the filtered candidate set done in Go,
// not in SQL — the repository hands back the eligible ids, the selector
// samples. The ViewedMark is recorded before the profile is returned, so
// "shown" is a side effect of selection, not of the viewer's swipe.
type Selector struct {
	profiles *repository.ProfileRepository
	ledger   *repository.InteractionRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. rng may be nil, in which case a
// time-seeded source is used; tests inject a fixed seed.
func NewSelector(profiles *repository.ProfileRepository, ledger *repository.InteractionRepository, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{profiles: profiles, ledger: ledger, rng: rng}
}

// NextCandidate returns the next profile to show the viewer, or (nil, nil)
// when the pool is exhausted — the caller renders that as an outcome, not
// an error. The viewer's own profile and anything already in the viewed
// set are never candidates.
func (s *Selector) NextCandidate(ctx context.Context, viewerID uint64, game string) (*repository.ProfileRecord, error) {
	ids, err := s.profiles.UnseenCandidateIDs(ctx, viewerID, game)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pick := ids[s.intn(len(ids))]

	if err := s.ledger.RecordView(ctx, viewerID, pick, game); err != nil {
		return nil, err
	}

	record, err := s.profiles.Get(ctx, pick, game)
	if apperrors.IsNotFound(err) {
		// Deactivated between the draw and the load; the viewed mark
		// stands, the pool just looks one smaller.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
