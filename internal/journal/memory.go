package journal

import (
	"context"
	"sync"
)

// Memory keeps the newest entries per user in process memory.
type Memory struct {
	mu      sync.RWMutex
	perUser int
	entries map[int64][]Entry
}

// NewMemory keeps up to perUser entries for every user.
func NewMemory(perUser int) *Memory {
	if perUser <= 0 {
		perUser = 50
	}
	return &Memory{perUser: perUser, entries: make(map[int64][]Entry)}
}

// Record implements Store.
func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.entries[e.UserID], e)
	if len(list) > m.perUser {
		list = append([]Entry(nil), list[len(list)-m.perUser:]...)
	}
	m.entries[e.UserID] = list
	return nil
}

// Recent implements Store.
func (m *Memory) Recent(_ context.Context, userID int64, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Entry, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
