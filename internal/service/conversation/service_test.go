package conversation_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/squadup/teamfinder/internal/app"
	"github.com/squadup/teamfinder/internal/cache"
	"github.com/squadup/teamfinder/internal/db"
	"github.com/squadup/teamfinder/internal/flow"
	"github.com/squadup/teamfinder/internal/repository"
	"github.com/squadup/teamfinder/internal/service/conversation"
	"github.com/squadup/teamfinder/internal/session"
)

func setupService(t *testing.T) (*gorm.DB, *conversation.Service) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	redisCache := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(database, redisCache, session.NewMemoryStore(), log)
	return database, conversation.NewService(appCtx)
}

func command(userID uint64, name, cmd string) conversation.Event {
	return conversation.Event{UserID: userID, DisplayName: name, Kind: conversation.EventCommand, Command: cmd}
}

func button(userID uint64, payload string) conversation.Event {
	return conversation.Event{UserID: userID, Kind: conversation.EventButton, Payload: payload}
}

func text(userID uint64, body string) conversation.Event {
	return conversation.Event{UserID: userID, Kind: conversation.EventText, Text: body}
}

// send runs one event and fails on error.
func send(t *testing.T, svc *conversation.Service, ev conversation.Event) []flow.Prompt {
	t.Helper()
	prompts, err := svc.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	return prompts
}

// makeProfile walks the whole creation machine for one user.
func makeProfile(t *testing.T, svc *conversation.Service, userID uint64, name string) {
	t.Helper()
	send(t, svc, command(userID, name, conversation.CmdStart))
	send(t, svc, command(userID, name, conversation.CmdCreateProfile))
	send(t, svc, button(userID, "game:cs2"))
	send(t, svc, text(userID, "https://steamcommunity.com/id/"+name))
	send(t, svc, button(userID, "skip")) // faceit
	send(t, svc, button(userID, "country:none"))
	send(t, svc, button(userID, "pos_add:IGL"))
	send(t, svc, button(userID, "positions_done"))
	send(t, svc, button(userID, "goals_skip"))
	send(t, svc, text(userID, "discord: "+name+"#1"))
	send(t, svc, button(userID, "skip")) // screenshot

	prompts := send(t, svc, button(userID, "profile_save"))
	require.Len(t, prompts, 1)
	require.Contains(t, prompts[0].Text, "Profile saved")
}

func TestCreateSearchMatchReview(t *testing.T) {
	database, svc := setupService(t)

	makeProfile(t, svc, 1, "alice")
	makeProfile(t, svc, 2, "bob")

	// alice searches: bob is the only candidate
	prompts := send(t, svc, command(1, "alice", conversation.CmdSearch))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "bob")

	// alice likes bob: no match yet, queue exhausted after him
	prompts = send(t, svc, button(1, "like"))
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0].Text, "Like sent")
	assert.Contains(t, prompts[len(prompts)-1].Text, "No more profiles")

	// bob sees alice's like in his list
	prompts = send(t, svc, command(2, "bob", conversation.CmdLikes))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "You've been liked (1)")
	assert.Contains(t, prompts[0].Text, "alice")

	// bob likes back: match
	prompts = send(t, svc, command(2, "bob", conversation.CmdSearch))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "alice")

	prompts = send(t, svc, button(2, "like"))
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0].Text, "It's a match")

	// both sides list the match
	prompts = send(t, svc, command(2, "bob", conversation.CmdMatches))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "alice")
	require.NotEmpty(t, prompts[0].Choices)
	reviewPayload := prompts[0].Choices[0].Payload
	assert.True(t, strings.HasPrefix(reviewPayload, "review:1:"), reviewPayload)

	prompts = send(t, svc, command(1, "alice", conversation.CmdMatches))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "bob")

	// bob reviews alice
	prompts = send(t, svc, button(2, reviewPayload))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Rate this player")

	send(t, svc, button(2, "rating:5"))
	prompts = send(t, svc, text(2, "great igl"))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Review submitted")

	record, err := repository.NewProfileRepository(database).Get(context.Background(), 1, "cs2")
	require.NoError(t, err)
	assert.Equal(t, 5.0, record.AvgRating)
	assert.Equal(t, 1, record.ReviewCount)
}

func TestIncomingLikesListing(t *testing.T) {
	_, svc := setupService(t)

	makeProfile(t, svc, 1, "alice")
	makeProfile(t, svc, 2, "bob")
	makeProfile(t, svc, 3, "carol")

	// carol likes alice; queue order is random, so swipe until done
	send(t, svc, command(3, "carol", conversation.CmdSearch))
	for i := 0; i < 2; i++ {
		prompts := send(t, svc, button(3, "like"))
		require.NotEmpty(t, prompts)
	}

	prompts := send(t, svc, command(1, "alice", conversation.CmdLikes))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "carol")
}

func TestSearchWithoutProfile(t *testing.T) {
	_, svc := setupService(t)

	send(t, svc, command(1, "alice", conversation.CmdStart))
	prompts := send(t, svc, command(1, "alice", conversation.CmdSearch))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Create a profile first")
}

func TestReportAdvancesQueue(t *testing.T) {
	_, svc := setupService(t)

	makeProfile(t, svc, 1, "alice")
	makeProfile(t, svc, 2, "bob")

	send(t, svc, command(1, "alice", conversation.CmdSearch))
	prompts := send(t, svc, button(1, "report"))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Why are you reporting")

	prompts = send(t, svc, button(1, "report_reason:Toxicity"))
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0].Text, "Report submitted")
	assert.Contains(t, prompts[len(prompts)-1].Text, "No more profiles")
}

func TestOutOfStateSignalDropped(t *testing.T) {
	_, svc := setupService(t)

	send(t, svc, command(1, "alice", conversation.CmdStart))

	// no active review flow: the rating press means nothing
	prompts := send(t, svc, button(1, "rating:3"))
	assert.Empty(t, prompts)

	// free text outside any flow is dropped too
	prompts = send(t, svc, text(1, "hello?"))
	assert.Empty(t, prompts)
}

func TestResetViewedRestartsQueue(t *testing.T) {
	_, svc := setupService(t)

	makeProfile(t, svc, 1, "alice")
	makeProfile(t, svc, 2, "bob")

	send(t, svc, command(1, "alice", conversation.CmdSearch))
	prompts := send(t, svc, button(1, "dislike"))
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[len(prompts)-1].Text, "No more profiles")

	prompts = send(t, svc, button(1, "reset_viewed"))
	require.NotEmpty(t, prompts)
	assert.Contains(t, prompts[0].Text, "Starting over")
	assert.Contains(t, prompts[len(prompts)-1].Text, "bob")
}

func TestMyProfileMultiGame(t *testing.T) {
	_, svc := setupService(t)

	makeProfile(t, svc, 1, "alice")

	// add a second game
	send(t, svc, command(1, "alice", conversation.CmdChangeGame))
	send(t, svc, button(1, "game:dota2"))
	send(t, svc, button(1, "skip")) // steam
	send(t, svc, button(1, "skip")) // dotabuff
	send(t, svc, button(1, "country:none"))
	send(t, svc, button(1, "positions_skip"))
	send(t, svc, button(1, "goals_skip"))
	send(t, svc, text(1, "dota enjoyer"))
	send(t, svc, button(1, "skip"))
	send(t, svc, button(1, "profile_save"))

	prompts := send(t, svc, command(1, "alice", conversation.CmdMyProfile))
	require.Len(t, prompts, 1)
	require.Len(t, prompts[0].Choices, 2)

	prompts = send(t, svc, button(1, prompts[0].Choices[1].Payload))
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "Dota 2")
	assert.Contains(t, prompts[0].Text, "dota enjoyer")
}
