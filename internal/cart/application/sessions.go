package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
)

// DefaultMaxSessions caps the number of carts held in memory at once.
const DefaultMaxSessions = 10000

type sessionEntry struct {
	store    *Store
	lastUsed time.Time
}

// Sessions hands out one Store per session id. Requests for the same
// session share a Store and so serialize on its lock. A store idle for
// longer than the cart TTL is dropped and its session reloads from storage
// on the next use, where the cart may have expired.
type Sessions struct {
	mu        sync.Mutex
	entries   map[string]*sessionEntry
	kv        kv.Store
	ttl       time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
	logger    *slog.Logger
}

// NewSessions creates a registry whose carts live in store under
// "session:{id}:cart" and expire after ttl of inactivity.
func NewSessions(store kv.Store, ttl time.Duration, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		entries: make(map[string]*sessionEntry),
		kv:      store,
		ttl:     ttl,
		max:     DefaultMaxSessions,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock overrides the time source used for idle eviction.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

// WithMaxSessions sets how many stores stay in memory. When full, the least
// recently used store is dropped.
func (s *Sessions) WithMaxSessions(n int) *Sessions {
	if n > 0 {
		s.max = n
	}
	return s
}

// For returns the cart store for sessionID, creating it on first use.
func (s *Sessions) For(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if entry, ok := s.entries[sessionID]; ok {
		if !s.idle(entry, now) {
			entry.lastUsed = now
			return entry.store
		}
		delete(s.entries, sessionID)
	}

	if len(s.entries) >= s.max {
		s.evictOldest()
	}
	store := NewStore(
		kv.NewScope(s.kv, "session:"+sessionID, s.ttl),
		s.logger.With("session_id", sessionID),
	)
	s.entries[sessionID] = &sessionEntry{store: store, lastUsed: now}
	return store
}

// Forget drops the in-memory store for sessionID. The persisted cart is
// left alone and is reloaded on the next For.
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Sweep drops every store idle for longer than the TTL and returns how
// many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropIdle(s.now())
}

// Len returns the number of live stores.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Sessions) idle(entry *sessionEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastUsed) >= s.ttl
}

// sweep runs dropIdle at most once per TTL.
func (s *Sessions) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.dropIdle(now)
}

func (s *Sessions) dropIdle(now time.Time) int {
	dropped := 0
	for id, entry := range s.entries {
		if s.idle(entry, now) {
			delete(s.entries, id)
			dropped++
		}
	}
	s.lastSweep = now
	if dropped > 0 {
		s.logger.Debug("dropped idle cart sessions", "count", dropped, "live", len(s.entries))
	}
	return dropped
}

func (s *Sessions) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, entry := range s.entries {
		if oldestID == "" || entry.lastUsed.Before(oldest) {
			oldestID, oldest = id, entry.lastUsed
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
	}
}
