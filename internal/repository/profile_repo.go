package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/squadup/teamfinder/internal/db"
	apperrors "github.com/squadup/teamfinder/internal/errors"
)

// ProfileRecord is a profile joined with its owner's display name, the
// shape every listing and candidate hand-out works with.
type ProfileRecord struct {
	db.Profile
	Username string
}

// ProfileFields carries the mutable profile fields accumulated by the
// creation flow. Rating aggregates are not part of it; they belong to the
// review write path.
type ProfileFields struct {
	SteamLink     *string
	FaceitLink    *string
	DotabuffLink  *string
	Country       *string
	Positions     []string
	Goals         []string
	About         *string
	ScreenshotRef *string
}

// ProfileRepository provides data access for users and their per-game
// profiles.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// EnsureUser inserts the user on first contact, or refreshes the display
// name on a repeat one. Identity itself is immutable.
func (r *ProfileRepository) EnsureUser(ctx context.Context, userID uint64, username string) error {
	user := db.User{ID: userID, Username: username}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username"}),
		}).
		Create(&user).Error
	return apperrors.Storage("ensure user", err)
}

// Upsert inserts a profile for (user, game) or overwrites all mutable
// fields of the existing one wholesale.
//
// Behavior:
//   - AvgRating / ReviewCount are never touched here.
//   - The only validation is presence of game; field content arrives
//     pre-screened by the creation flow.
func (r *ProfileRepository) Upsert(ctx context.Context, userID uint64, game string, fields ProfileFields) error {
	if game == "" {
		return fmt.Errorf("game is required")
	}

	profile := db.Profile{
		UserID:        userID,
		Game:          game,
		SteamLink:     fields.SteamLink,
		FaceitLink:    fields.FaceitLink,
		DotabuffLink:  fields.DotabuffLink,
		Country:       fields.Country,
		Positions:     db.StringList(fields.Positions),
		Goals:         db.StringList(fields.Goals),
		About:         fields.About,
		ScreenshotRef: fields.ScreenshotRef,
		Active:        true,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "game"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"steam_link", "faceit_link", "dotabuff_link", "country",
				"positions", "goals", "about", "screenshot_ref", "active",
				"updated_at",
			}),
		}).
		Create(&profile).Error
	return apperrors.Storage("upsert profile", err)
}

// Get returns the active profile for (user, game), joined with the owner's
// username. A miss comes back as apperrors.ErrNotFound — callers treat it
// as the "no profile yet" outcome.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64, game string) (*ProfileRecord, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND active = ?", userID, game, true).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("get profile", err)
	}

	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storage("get profile owner", err)
	}

	return &ProfileRecord{Profile: profile, Username: user.Username}, nil
}

// ListGames returns the games for which the user has an active profile,
// oldest profile first.
func (r *ProfileRepository) ListGames(ctx context.Context, userID uint64) ([]string, error) {
	var games []string
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Pluck("game", &games).Error
	if err != nil {
		return nil, apperrors.Storage("list games", err)
	}
	return games, nil
}

// UnseenCandidateIDs returns the owner ids of every active profile for
// game that is not the viewer's own and not yet in the viewer's viewed
// set. The uniform draw over this set happens in the selector.
func (r *ProfileRepository) UnseenCandidateIDs(ctx context.Context, viewerID uint64, game string) ([]uint64, error) {
	viewed := r.db.
		Table("profile_views").
		Select("viewed_id").
		Where("viewer_id = ? AND game = ?", viewerID, game)

	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("game = ? AND active = ? AND user_id <> ?", game, true, viewerID).
		Where("user_id NOT IN (?)", viewed).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, apperrors.Storage("unseen candidates", err)
	}
	return ids, nil
}

// GetMany loads the active profiles of the given owners for one game,
// keyed by owner id. Used to enrich like/match listings.
func (r *ProfileRepository) GetMany(ctx context.Context, userIDs []uint64, game string) (map[uint64]ProfileRecord, error) {
	records := make(map[uint64]ProfileRecord, len(userIDs))
	if len(userIDs) == 0 {
		return records, nil
	}

	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND game = ? AND active = ?", userIDs, game, true).
		Find(&profiles).Error
	if err != nil {
		return nil, apperrors.Storage("get profiles", err)
	}

	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, apperrors.Storage("get profile owners", err)
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	for _, p := range profiles {
		records[p.UserID] = ProfileRecord{Profile: p, Username: names[p.UserID]}
	}
	return records, nil
}

// RecordReviewAggregate recomputes avg_rating / review_count for the
// target profile from the review set. The interaction ledger calls the Tx
// variant inside its review transaction; this wrapper serves direct use.
func (r *ProfileRepository) RecordReviewAggregate(ctx context.Context, toUserID uint64, game string) error {
	return r.RecordReviewAggregateTx(r.db.WithContext(ctx), toUserID, game)
}

// RecordReviewAggregateTx is RecordReviewAggregate scoped to an existing
// transaction, so the review upsert and the aggregate write commit as one
// unit.
func (r *ProfileRepository) RecordReviewAggregateTx(tx *gorm.DB, toUserID uint64, game string) error {
	var agg struct {
		Avg   *float64
		Count int64
	}
	err := tx.Model(&db.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("to_user_id = ? AND game = ?", toUserID, game).
		Scan(&agg).Error
	if err != nil {
		return apperrors.Storage("review aggregate", err)
	}

	avg := 0.0
	if agg.Avg != nil {
		avg = *agg.Avg
	}
	err = tx.Model(&db.Profile{}).
		Where("user_id = ? AND game = ?", toUserID, game).
		Updates(map[string]interface{}{
			"avg_rating":   avg,
			"review_count": agg.Count,
		}).Error
	return apperrors.Storage("write aggregate", err)
}
