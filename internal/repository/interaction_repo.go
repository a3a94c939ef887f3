package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/squadup/teamfinder/internal/db"
	apperrors "github.com/squadup/teamfinder/internal/errors"
	"github.com/squadup/teamfinder/internal/utils/pagination"
)

// LikeEntry is an incoming like joined with the liker's profile.
type LikeEntry struct {
	Profile ProfileRecord
	LikedAt time.Time
}

// MatchEntry is a match joined with the counterpart's profile.
type MatchEntry struct {
	Profile   ProfileRecord
	MatchedAt time.Time
}

// InteractionRepository is the append-side of the matchmaking data
// pipeline: likes, matches, viewed marks, reviews, and reports.
//
// It holds a ProfileRepository because two of its writes cross aggregates:
// review upserts recompute the target profile's rating inside the same
// transaction, and listings hand back profiles, not raw ids.
type InteractionRepository struct {
	db       *gorm.DB
	profiles *ProfileRepository
}

// NewInteractionRepository creates a new repository bound to the given DB
// connection and profile store.
func NewInteractionRepository(database *gorm.DB, profiles *ProfileRepository) *InteractionRepository {
	return &InteractionRepository{db: database, profiles: profiles}
}

// RecordLike stores a like from → to and reports whether it completed a
// mutual pair.
//
// Behavior:
//   - The like insert is idempotent: a re-like is a no-op and yields the
//     same match boolean as the first call.
//   - Insert, reciprocal check, and match insert run in one transaction.
//     On MySQL the reciprocal check takes a row lock so two users liking
//     each other concurrently cannot both miss the other's like.
//   - The match row is written in canonical order (lo < hi); its composite
//     key absorbs the duplicate when both transactions race past the check.
func (r *InteractionRepository) RecordLike(ctx context.Context, fromUserID, toUserID uint64, game string) (bool, error) {
	if fromUserID == toUserID {
		return false, apperrors.ErrSelfAction
	}

	matched := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := db.Like{FromUserID: fromUserID, ToUserID: toUserID, Game: game}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil &&
			!apperrors.IsConstraintViolation(err) {
			return err
		}

		reciprocal := tx.Model(&db.Like{}).
			Where("from_user_id = ? AND to_user_id = ? AND game = ?", toUserID, fromUserID, game)
		if tx.Dialector.Name() == "mysql" {
			reciprocal = reciprocal.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var count int64
		if err := reciprocal.Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		lo, hi := fromUserID, toUserID
		if lo > hi {
			lo, hi = hi, lo
		}
		match := db.Match{UserLoID: lo, UserHiID: hi, Game: game}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil &&
			!apperrors.IsConstraintViolation(err) {
			return err
		}
		matched = true
		return nil
	})
	if err != nil {
		return false, apperrors.Storage("record like", err)
	}
	return matched, nil
}

// RecordView idempotently marks a profile as shown to the viewer. Called
// by the selector at hand-out time, not at swipe time.
func (r *InteractionRepository) RecordView(ctx context.Context, viewerID, viewedID uint64, game string) error {
	view := db.ProfileView{ViewerID: viewerID, ViewedID: viewedID, Game: game}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&view).Error
	if err != nil && !apperrors.IsConstraintViolation(err) {
		return apperrors.Storage("record view", err)
	}
	return nil
}

// ResetViewed clears the viewer's viewed set for one game, re-opening the
// full candidate pool.
func (r *InteractionRepository) ResetViewed(ctx context.Context, viewerID uint64, game string) error {
	err := r.db.WithContext(ctx).
		Where("viewer_id = ? AND game = ?", viewerID, game).
		Delete(&db.ProfileView{}).Error
	return apperrors.Storage("reset viewed", err)
}

// ListMatches returns the user's matches for a game, newest first, each
// joined with the counterpart's profile. Counterparts whose profile has
// since gone inactive are skipped.
func (r *InteractionRepository) ListMatches(ctx context.Context, userID uint64, game string) ([]MatchEntry, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_lo_id = ? OR user_hi_id = ?) AND game = ?", userID, userID, game).
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, apperrors.Storage("list matches", err)
	}

	counterparts := make([]uint64, 0, len(matches))
	for _, m := range matches {
		other := m.UserLoID
		if other == userID {
			other = m.UserHiID
		}
		counterparts = append(counterparts, other)
	}

	records, err := r.profiles.GetMany(ctx, counterparts, game)
	if err != nil {
		return nil, err
	}

	entries := make([]MatchEntry, 0, len(matches))
	for i, m := range matches {
		record, ok := records[counterparts[i]]
		if !ok {
			continue
		}
		entries = append(entries, MatchEntry{Profile: record, MatchedAt: m.CreatedAt})
	}
	return entries, nil
}

// ListIncomingLikes returns likes the user has not reciprocated, newest
// first, each joined with the liker's profile.
//
// Behavior:
//   - Pairs that are already matches are excluded: a reciprocal like from
//     the user removes the entry from this list.
//   - Supports cursor-based pagination via paginationToken.
func (r *InteractionRepository) ListIncomingLikes(
	ctx context.Context,
	userID uint64,
	game string,
	paginationToken *string,
	limit int,
) ([]LikeEntry, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.to_user_id = ? AND l.game = ?", userID, game).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l2
				WHERE l2.from_user_id = ?
				  AND l2.to_user_id = l.from_user_id
				  AND l2.game = l.game
			)`, userID).
		Order("l.created_at DESC, l.from_user_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.from_user_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	var likes []db.Like
	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, apperrors.Storage("list incoming likes", err)
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:      last.FromUserID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	likers := make([]uint64, 0, len(likes))
	for _, l := range likes {
		likers = append(likers, l.FromUserID)
	}
	records, err := r.profiles.GetMany(ctx, likers, game)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]LikeEntry, 0, len(likes))
	for _, l := range likes {
		record, ok := records[l.FromUserID]
		if !ok {
			continue
		}
		entries = append(entries, LikeEntry{Profile: record, LikedAt: l.CreatedAt})
	}
	return entries, nextToken, nil
}

// CountIncomingLikes counts unreciprocated likes for the user in one game.
// Backs the cache-first counter in the conversation service.
func (r *InteractionRepository) CountIncomingLikes(ctx context.Context, userID uint64, game string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("likes l").
		Where("l.to_user_id = ? AND l.game = ?", userID, game).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l2
				WHERE l2.from_user_id = ?
				  AND l2.to_user_id = l.from_user_id
				  AND l2.game = l.game
			)`, userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Storage("count incoming likes", err)
	}
	return count, nil
}

// UpsertReview writes a review with replace semantics — a later review
// from the same user overwrites the earlier one — then recomputes the
// target profile's rating aggregate in the same transaction.
func (r *InteractionRepository) UpsertReview(ctx context.Context, fromUserID, toUserID uint64, game string, rating int, comment *string) error {
	if fromUserID == toUserID {
		return apperrors.ErrSelfAction
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review := db.Review{
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			Game:       game,
			Rating:     rating,
			Comment:    comment,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}, {Name: "game"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
		}).Create(&review).Error
		if err != nil {
			return err
		}
		return r.profiles.RecordReviewAggregateTx(tx, toUserID, game)
	})
	return apperrors.Storage("upsert review", err)
}

// RecordReport appends a report. No uniqueness — repeat reports are
// allowed and recorded as-is.
func (r *InteractionRepository) RecordReport(ctx context.Context, fromUserID, reportedUserID uint64, game, reason string, comment *string) error {
	report := db.Report{
		FromUserID:     fromUserID,
		ReportedUserID: reportedUserID,
		Game:           game,
		Reason:         reason,
		Comment:        comment,
	}
	err := r.db.WithContext(ctx).Create(&report).Error
	return apperrors.Storage("record report", err)
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
