package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/squadup/teamfinder/internal/cache"
	"github.com/squadup/teamfinder/internal/session"
)

// AppContext holds shared dependencies (DB, Redis, session store, logger).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Sessions   session.Store
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, sessions session.Store, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Sessions:   sessions,
		Logger:     logger,
	}
}
