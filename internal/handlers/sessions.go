package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"bakingai/internal/browse"
	"bakingai/internal/cache"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionCookie = "bakingai-session"

// Sessions maps browser sessions to their recipe listings. Live listings are
// kept in memory so concurrent requests of one session share a single list;
// a snapshot is written to the store after every action so a session
// survives restarts and can be served by another replica.
type Sessions struct {
	mu     sync.Mutex
	live   map[string]*liveSession
	store  cache.SnapshotStore
	source browse.RecipeSource
	opts   browse.Options
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

type liveSession struct {
	list     *browse.RecipeList
	lastSeen time.Time
}

func NewSessions(store cache.SnapshotStore, source browse.RecipeSource, opts browse.Options, ttl time.Duration) *Sessions {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		live:   make(map[string]*liveSession),
		store:  store,
		source: source,
		opts:   opts,
		ttl:    ttl,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Open returns the listing of the request's session, restoring it from the
// store or creating it as needed, and (re)sets the session cookie.
func (s *Sessions) Open(w http.ResponseWriter, r *http.Request) (string, *browse.RecipeList) {
	id, ok := sessionID(r)
	if !ok {
		id = uuid.NewString()
	}
	s.setCookie(w, id)

	s.mu.Lock()
	if ls, found := s.live[id]; found {
		ls.lastSeen = s.now()
		s.mu.Unlock()
		return id, ls.list
	}
	s.mu.Unlock()

	list := s.restore(r.Context(), id, ok)

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request of the same session may have won the race
	if ls, found := s.live[id]; found {
		ls.lastSeen = s.now()
		return id, ls.list
	}
	s.live[id] = &liveSession{list: list, lastSeen: s.now()}
	return id, list
}

// Fresh replaces the session's listing with a new one, as when the recipes
// page is entered from navigation.
func (s *Sessions) Fresh(w http.ResponseWriter, r *http.Request) (string, *browse.RecipeList) {
	id, ok := sessionID(r)
	if !ok {
		id = uuid.NewString()
	}
	s.setCookie(w, id)

	list := browse.NewRecipeList(s.source, s.opts)
	s.mu.Lock()
	s.live[id] = &liveSession{list: list, lastSeen: s.now()}
	s.mu.Unlock()
	return id, list
}

// Save writes the listing's snapshot. Failures are logged; the live listing
// stays authoritative.
func (s *Sessions) Save(ctx context.Context, id string, list *browse.RecipeList) {
	if err := s.store.Save(ctx, id, list.Snapshot()); err != nil {
		s.logger.WithError(err).WithField("session", id).Warn("Failed to save session")
	}
}

func (s *Sessions) restore(ctx context.Context, id string, known bool) *browse.RecipeList {
	if !known {
		return browse.NewRecipeList(s.source, s.opts)
	}

	snap, err := s.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrSessionNotFound) {
			s.logger.WithError(err).WithField("session", id).Warn("Failed to load session")
		}
		return browse.NewRecipeList(s.source, s.opts)
	}

	s.logger.WithField("session", id).Debug("Restored session from store")
	return browse.RestoreRecipeList(s.source, s.opts, snap)
}

// Cleanup drops live listings idle for longer than the session TTL.
func (s *Sessions) Cleanup() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ls := range s.live {
		if ls.lastSeen.Before(cutoff) {
			delete(s.live, id)
			removed++
		}
	}
	return removed
}

// Run cleans up expired sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	s.logger.Info("Starting session cleanup worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session cleanup worker stopped")
			return
		case <-ticker.C:
			removed := s.Cleanup()
			if c, ok := s.store.(interface{ Cleanup() int }); ok {
				removed += c.Cleanup()
			}
			if removed > 0 {
				s.logger.WithField("removed", removed).Debug("Cleaned up expired sessions")
			}
		}
	}
}

func (s *Sessions) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// sessionID reads the session cookie; values that are not UUIDs are ignored.
func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
