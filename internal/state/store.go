package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/strike-bot/pkg/metrics"
)

var (
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates that another update for the same user is still running.
	ErrStateLocked = errors.New("state is locked, try again later")
)

// UpdateFunc mutates a loaded state. Returning an error discards the changes.
type UpdateFunc func(st *UserState) error

// Store is the conversation state store used by the transport.
type Store interface {
	// Load returns the user's state, or a fresh menu state when none is stored.
	Load(ctx context.Context, userID int64) (*UserState, error)
	// Update runs fn under the user's lock and saves the result when fn succeeds.
	Update(ctx context.Context, userID int64, fn UpdateFunc) (*UserState, error)
	// Clear removes the user's state.
	Clear(ctx context.Context, userID int64) error
	// GetAllStates returns every stored state.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type SessionStore struct {
	storage Storage
	locker  Locker
	log     *slog.Logger
}

var (
	_ Store                 = (*SessionStore)(nil)
	_ metrics.SessionSource = (*SessionStore)(nil)
)

// NewStore combines a storage backend with a per-user locker.
func NewStore(storage Storage, locker Locker, log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	if locker == nil {
		locker = NewMemoryLocker(0)
	}

	return &SessionStore{storage: storage, locker: locker, log: log.With(slog.String("component", "state"))}
}

func (s *SessionStore) Load(ctx context.Context, userID int64) (*UserState, error) {
	st, err := s.storage.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return NewUserState(userID), nil
		}
		return nil, err
	}
	if st == nil {
		return NewUserState(userID), nil
	}

	if st.UserID == 0 {
		st.UserID = userID
	}
	st.Session.UserID = userID

	return st, nil
}

func (s *SessionStore) Update(ctx context.Context, userID int64, fn UpdateFunc) (*UserState, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(st); err != nil {
		return nil, err
	}

	if err := s.storage.SetState(ctx, userID, st); err != nil {
		return nil, err
	}

	return st, nil
}

func (s *SessionStore) Clear(ctx context.Context, userID int64) error {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.storage.ClearState(ctx, userID)
}

// EvictIdle clears the user's state when it was last saved before cutoff.
// States currently locked by an update are left alone.
func (s *SessionStore) EvictIdle(ctx context.Context, userID int64, cutoff time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	st, err := s.storage.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return false, nil
		}
		return false, err
	}
	if st == nil || !st.UpdatedAt.Before(cutoff) {
		return false, nil
	}

	if err := s.storage.ClearState(ctx, userID); err != nil {
		return false, err
	}

	return true, nil
}

func (s *SessionStore) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return s.storage.GetAllStates(ctx)
}

// Snapshot counts stored sessions by mode and phase for the metrics collector.
func (s *SessionStore) Snapshot(ctx context.Context) (metrics.SessionSnapshot, error) {
	states, err := s.storage.GetAllStates(ctx)
	if err != nil {
		return metrics.SessionSnapshot{}, err
	}

	snap := metrics.SessionSnapshot{
		Total:   len(states),
		ByMode:  make(map[string]int),
		ByPhase: make(map[string]int),
	}
	for _, st := range states {
		snap.ByMode[string(st.CurrentMode())]++
		snap.ByPhase[string(st.Session.CurrentPhase())]++
	}

	return snap, nil
}

func cloneState(st UserState) (*UserState, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}

	var out UserState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
