package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores a multi-valued field (positions, goals) as an ordered
// JSON array of strings in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported StringList source type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// User table. ID is the transport-asserted identity, not auto-incremented;
// the row is created on first contact and the username refreshed after.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	Username  string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Profile is a user's per-game matchmaking card.
//
// Unique index (user_id, game): a user has at most one profile per game,
// and upserts overwrite the mutable fields wholesale. AvgRating and
// ReviewCount are derived from the reviews table and only written by the
// review aggregate recompute.
type Profile struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	UserID        uint64     `gorm:"not null;uniqueIndex:idx_profile_user_game,priority:1"`
	Game          string     `gorm:"size:32;not null;uniqueIndex:idx_profile_user_game,priority:2;index:idx_profile_game_active,priority:1"`
	SteamLink     *string    `gorm:"size:255"`
	FaceitLink    *string    `gorm:"size:255"`
	DotabuffLink  *string    `gorm:"size:255"`
	Country       *string    `gorm:"size:64"`
	Positions     StringList `gorm:"type:text"`
	Goals         StringList `gorm:"type:text"`
	About         *string    `gorm:"type:text"`
	ScreenshotRef *string    `gorm:"size:255"`
	AvgRating     float64    `gorm:"not null;default:0"`
	ReviewCount   int        `gorm:"not null;default:0"`
	Active        bool       `gorm:"not null;default:true;index:idx_profile_game_active,priority:2"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime"`
}

// Like is a directional like event.
//
// Composite PK (from, to, game) makes a re-like an idempotent no-op.
type Like struct {
	FromUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ToUserID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_like_to_game,priority:1"`
	Game       string    `gorm:"primaryKey;size:32;index:idx_like_to_game,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Match is a mutual-like pair for one game, stored once in canonical order
// (UserLoID < UserHiID) so the symmetric pair cannot produce two rows.
type Match struct {
	UserLoID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserHiID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	Game      string    `gorm:"primaryKey;size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Review is one user's rating of another for one game. The composite PK
// gives replace semantics: a later review overwrites the earlier one.
type Review struct {
	FromUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ToUserID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_review_to_game,priority:1"`
	Game       string    `gorm:"primaryKey;size:32;index:idx_review_to_game,priority:2"`
	Rating     int       `gorm:"not null"`
	Comment    *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Report is append-only; repeat reports against the same user are allowed.
type Report struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	FromUserID     uint64    `gorm:"not null;index"`
	ReportedUserID uint64    `gorm:"not null;index"`
	Game           string    `gorm:"size:32;not null"`
	Reason         string    `gorm:"size:128;not null"`
	Comment        *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// ProfileView marks a profile as already shown to a viewer. Written at
// selection time, so an abandoned session still never re-shows a profile.
type ProfileView struct {
	ViewerID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	ViewedID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	Game      string    `gorm:"primaryKey;size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
