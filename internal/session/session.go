// Package session holds per-user conversational context: which machine is
// active, its current state, and the in-progress draft. The store is an
// injected dependency so backends can be swapped without touching
// state-machine logic.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/squadup/teamfinder/internal/flow"
)

// Session is one user's conversational context. Exactly one machine is
// active at a time; starting a new flow replaces state and draft wholesale.
type Session struct {
	UserID uint64     `json:"user_id"`
	State  flow.State `json:"state"`
	Draft  flow.Draft `json:"draft"`
}

// Store is keyed by user id. Get returns nil for an absent session.
// Sessions have no TTL: an abandoned one stays in its last state until the
// user resumes or restarts.
type Store interface {
	Get(ctx context.Context, userID uint64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Clear(ctx context.Context, userID uint64) error
}

// MemoryStore is the in-process backend, fine for tests and single-node
// runs. Each user's events arrive as a single stream, so the lock only
// guards cross-user map access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uint64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uint64]Session)}
}

func (m *MemoryStore) Get(ctx context.Context, userID uint64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = *s
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// RedisStore persists sessions as JSON in Redis, surviving process
// restarts and shareable across nodes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(userID uint64) string {
	return fmt.Sprintf("session:%d", userID)
}

func (r *RedisStore) Get(ctx context.Context, userID uint64) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("nil session")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	// No TTL: abandonment cleanup is an explicit non-policy.
	if err := r.client.Set(ctx, sessionKey(s.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID uint64) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}
