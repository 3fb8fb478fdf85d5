package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bakingai/internal/browse"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	sessionPrefix     = "bakingai:session:"
	defaultSessionTTL = 24 * time.Hour
)

var ErrSessionNotFound = errors.New("session not found")

// SnapshotStore keeps the browsing state of each session between requests.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*browse.Snapshot, error)
	Save(ctx context.Context, id string, s *browse.Snapshot) error
	Delete(ctx context.Context, id string) error
}

// RedisSnapshotStore stores snapshots as JSON under bakingai:session:<id>.
// Every save refreshes the TTL.
type RedisSnapshotStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSnapshotStore{redis: client, ttl: ttl, logger: logger}
}

func sessionKey(id string) string {
	return sessionPrefix + id
}

func (s *RedisSnapshotStore) Load(ctx context.Context, id string) (*browse.Snapshot, error) {
	cached, err := s.redis.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var snap browse.Snapshot
	if err := json.Unmarshal([]byte(cached), &snap); err != nil {
		s.logger.WithError(err).WithField("session", id).Warn("Failed to unmarshal cached session")
		return nil, ErrSessionNotFound
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, id string, snap *browse.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	s.logger.WithField("session", id).Debug("Session cached successfully")
	return nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, id string) error {
	return s.redis.Del(ctx, sessionKey(id)).Err()
}

// MemorySnapshotStore is the in-process SnapshotStore used when no Redis is
// configured.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySnapshotStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemorySnapshotStore) Load(_ context.Context, id string) (*browse.Snapshot, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		return nil, ErrSessionNotFound
	}

	var snap browse.Snapshot
	if err := json.Unmarshal(e.raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

// Save stores a copy, so later changes to snap are not visible to Load.
func (s *MemorySnapshotStore) Save(_ context.Context, id string, snap *browse.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	s.mu.Lock()
	s.entries[id] = memoryEntry{raw: raw, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Cleanup drops expired entries and returns how many were removed.
func (s *MemorySnapshotStore) Cleanup() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
