package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/cloudbot/core/logger"
)

// Store holds sessions in memory. The map lock only guards lookup and insert;
// each session has its own lock so users never wait on each other.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	now     func() time.Time
}

type entry struct {
	mu   sync.Mutex
	sess *Session
	dead bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[int64]*entry),
		now:     time.Now,
	}
}

func (s *Store) entry(userID int64) *entry {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[userID]; ok {
		return e
	}
	e = &entry{sess: newSession(userID, s.now())}
	s.entries[userID] = e
	return e
}

// Do runs fn with exclusive access to the user's session, creating it on first
// use. The lock is released even if fn panics.
func (s *Store) Do(userID int64, fn func(*Session) error) error {
	for {
		e := s.entry(userID)
		e.mu.Lock()
		if e.dead {
			// evicted between lookup and lock; take the fresh entry
			e.mu.Unlock()
			continue
		}
		err := func() error {
			defer e.mu.Unlock()
			e.sess.touched = s.now()
			return fn(e.sess)
		}()
		return err
	}
}

func (s *Store) do(userID int64, fn func(*Session)) {
	_ = s.Do(userID, func(sess *Session) error {
		fn(sess)
		return nil
	})
}

// GetOrCreate returns a detached copy of the user's session. A new session is
// Idle with no fields. Changes to the copy are not stored.
func (s *Store) GetOrCreate(userID int64) *Session {
	var out *Session
	s.do(userID, func(sess *Session) { out = sess.snapshot() })
	return out
}

// SetState replaces the user's state.
func (s *Store) SetState(userID int64, st State) {
	s.do(userID, func(sess *Session) { sess.SetState(st) })
}

// MergeFields adds or overwrites fields of the user's session.
func (s *Store) MergeFields(userID int64, f Fields) {
	s.do(userID, func(sess *Session) { sess.MergeFields(f) })
}

// Reset returns the user to Idle and clears fields.
func (s *Store) Reset(userID int64) {
	s.do(userID, func(sess *Session) { sess.Reset() })
}

// Unauthorize clears the user's credentials and cached clients.
func (s *Store) Unauthorize(userID int64) {
	s.do(userID, func(sess *Session) { sess.Unauthorize() })
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep evicts sessions idle for longer than ttl. Sessions currently locked by
// a handler are skipped. It returns the number of evicted sessions.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	evicted := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.touched.Before(cutoff) {
			e.dead = true
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if evicted > 0 {
		logger.Info(ctx, logger.ComponentFSM, "sessions.sweep",
			slog.String("status", "ok"),
			slog.String("cache", "evict"),
			slog.Int("evicted", evicted),
			slog.Int("sessions", remaining),
		)
	}
	return evicted
}
