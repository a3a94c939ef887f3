package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	seedGames     = []string{"cs2", "dota2"}
	seedCountries = []string{"Russia", "Belarus", "Ukraine", "Kazakhstan", "Uzbekistan", "Other"}
	seedPositions = map[string][]string{
		"cs2":   {"Support", "Sniper", "Lurker", "Entry-Fragger", "IGL"},
		"dota2": {"Carry", "Midlaner", "Offlaner", "Soft Support", "Hard Support"},
	}
	seedGoals = []string{"Pub games", "Ranked", "Tournaments", "Social"}
)

// SeedTestData resets the database and populates it with demo users,
// profiles, likes (with guaranteed mutuals and their match rows), and
// reviews with recomputed aggregates.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"profile_views", "reports", "reviews", "matches", "likes", "profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE reports AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('profiles', 'reports')")
	}

	log.Println("Cleared existing data")

	// --- Users + profiles ---
	for i := 1; i <= 20; i++ {
		user := User{
			ID:       uint64(i),
			Username: fmt.Sprintf("player%d", i),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		game := seedGames[i%len(seedGames)]
		country := seedCountries[r.Intn(len(seedCountries))]
		about := fmt.Sprintf("Looking for a stack, usually online evenings. Discord: player%d", i)
		screenshot := "media/" + uuid.NewString()

		positions := seedPositions[game]
		profile := Profile{
			UserID:        user.ID,
			Game:          game,
			Country:       &country,
			Positions:     StringList{positions[r.Intn(len(positions))]},
			Goals:         StringList{seedGoals[r.Intn(len(seedGoals))]},
			About:         &about,
			ScreenshotRef: &screenshot,
			Active:        true,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 users with profiles.")

	// --- Likes, with every 3rd made mutual ---
	counter := 0
	for from := 1; from <= 20; from++ {
		game := seedGames[from%len(seedGames)]
		for j := 0; j < 6; j++ {
			to := r.Intn(20) + 1
			if to == from || seedGames[to%len(seedGames)] != game {
				continue
			}

			like := Like{FromUserID: uint64(from), ToUserID: uint64(to), Game: game}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			if counter%3 == 0 {
				recip := Like{FromUserID: uint64(to), ToUserID: uint64(from), Game: game}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recip)

				lo, hi := uint64(from), uint64(to)
				if lo > hi {
					lo, hi = hi, lo
				}
				match := Match{UserLoID: lo, UserHiID: hi, Game: game}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
			}
			counter++
		}
	}
	log.Printf("Seeded %d likes.", counter)

	// --- Reviews between matched pairs ---
	var matches []Match
	if err := db.Find(&matches).Error; err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}
	for _, m := range matches {
		review := Review{
			FromUserID: m.UserLoID,
			ToUserID:   m.UserHiID,
			Game:       m.Game,
			Rating:     r.Intn(3) + 3, // 3..5
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&review).Error; err != nil {
			return fmt.Errorf("failed to seed review: %w", err)
		}
		if err := recomputeAggregate(db, m.UserHiID, m.Game); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d reviews.", len(matches))

	return nil
}

func recomputeAggregate(db *gorm.DB, toUserID uint64, game string) error {
	err := db.Exec(`
		UPDATE profiles
		SET avg_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE to_user_id = ? AND game = ?), 0),
		    review_count = (SELECT COUNT(*) FROM reviews WHERE to_user_id = ? AND game = ?)
		WHERE user_id = ? AND game = ?`,
		toUserID, game, toUserID, game, toUserID, game).Error
	if err != nil {
		return fmt.Errorf("failed to recompute aggregate: %w", err)
	}
	return nil
}
