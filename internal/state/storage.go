// Package state persists per-user conversation state and serializes updates
// for each user.
package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Storage defines the persistence contract for user state.
type Storage interface {
	// GetState returns the current state for the specified user.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState saves the provided state for the specified user.
	SetState(ctx context.Context, userID int64, state *UserState) error
	// ClearState removes the state for the specified user.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates returns every stored state.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// MemoryStorage keeps states in process memory. It backs deployments without
// Redis and tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]UserState
	now    func() time.Time
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		states: make(map[int64]UserState),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}

	return cloneState(st)
}

func (m *MemoryStorage) SetState(_ context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = m.now()

	copied, err := cloneState(*state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.states[userID] = *copied
	m.mu.Unlock()

	return nil
}

func (m *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*UserState, 0, len(m.states))
	for _, st := range m.states {
		copied, err := cloneState(st)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })

	return out, nil
}
