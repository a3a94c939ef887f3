package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/squadup/teamfinder/internal/app"
	"github.com/squadup/teamfinder/internal/cache"
	"github.com/squadup/teamfinder/internal/config"
	"github.com/squadup/teamfinder/internal/db"
	"github.com/squadup/teamfinder/internal/logger"
	"github.com/squadup/teamfinder/internal/service/conversation"
	"github.com/squadup/teamfinder/internal/session"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.WithComponent("server")

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case "memory":
		sessions = session.NewMemoryStore()
	default:
		sessions = session.NewRedisStore(redisCache.Client)
	}

	// Inject logger into app context
	appCtx := app.New(database, redisCache, sessions, log)

	if cfg.App.Env == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	svc := conversation.NewService(appCtx)

	log.Info("starting console transport", "session_backend", cfg.Session.Backend)
	runConsole(svc)
}

// runConsole is a minimal local transport for manual testing: one fixed
// user identity, one event per input line.
//
//	/start            command
//	btn <payload>     choice press
//	photo <ref>       media message
//	anything else     free text
func runConsole(svc *conversation.Service) {
	const userID = 1

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("teamfinder console. Type /start to begin, Ctrl-D to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ev := conversation.Event{UserID: userID, DisplayName: "console"}
		switch {
		case strings.HasPrefix(line, "/"):
			ev.Kind = conversation.EventCommand
			ev.Command = strings.TrimPrefix(line, "/")
		case strings.HasPrefix(line, "btn "):
			ev.Kind = conversation.EventButton
			ev.Payload = strings.TrimPrefix(line, "btn ")
		case strings.HasPrefix(line, "photo "):
			ev.Kind = conversation.EventText
			ev.MediaRef = strings.TrimPrefix(line, "photo ")
		default:
			ev.Kind = conversation.EventText
			ev.Text = line
		}

		prompts, err := svc.HandleEvent(context.Background(), ev)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		for _, p := range prompts {
			fmt.Println(p.Text)
			if p.MediaRef != "" {
				fmt.Println("[media]", p.MediaRef)
			}
			for _, c := range p.Choices {
				fmt.Printf("  [%s] btn %s\n", c.Label, c.Payload)
			}
		}
	}
}
