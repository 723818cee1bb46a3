package state

import (
	"time"

	"github.com/Proton-105/strike-bot/internal/betting"
)

// Mode is the bot-level mode that decides how free text is interpreted.
type Mode string

const (
	// ModeMenu treats free text as either a search or a bet description.
	ModeMenu Mode = "menu"
	// ModeBetting routes free text into the bet assembly engine.
	ModeBetting Mode = "betting"
	// ModeSearch treats free text as a search query.
	ModeSearch Mode = "search"
)

// UserState is everything persisted for one Telegram user.
type UserState struct {
	UserID    int64           `json:"user_id"`
	Mode      Mode            `json:"mode"`
	Session   betting.Session `json:"session"`
	UpdatedAt time.Time       `json:"updated_at"`
	// Submitting is set while a finalized cart is being delivered.
	Submitting *time.Time `json:"submitting,omitempty"`
}

// NewUserState returns a menu-mode state with an idle session.
func NewUserState(userID int64) *UserState {
	return &UserState{
		UserID:  userID,
		Mode:    ModeMenu,
		Session: betting.NewSession(userID),
	}
}

// CurrentMode treats an unset mode as the menu.
func (s *UserState) CurrentMode() Mode {
	if s.Mode == "" {
		return ModeMenu
	}
	return s.Mode
}

// SubmissionInFlight reports whether a delivery started after cutoff is
// still pending. Older markers belong to a delivery that never finished.
func (s *UserState) SubmissionInFlight(cutoff time.Time) bool {
	return s.Submitting != nil && s.Submitting.After(cutoff)
}
