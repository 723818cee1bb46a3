package handlers

import (
	"context"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/state"
)

// Cancel drops any bet in progress and returns the user to the main menu.
// The cart is kept. Cancelling twice is harmless.
func (s *Service) Cancel(ctx context.Context, userID int64, _ string) ([]Message, error) {
	var (
		prev state.Mode
		step betting.Step
	)

	_, err := s.store.Update(ctx, userID, func(st *state.UserState) error {
		prev = st.CurrentMode()
		st.Mode = state.ModeMenu
		if inProgress(st.Session.CurrentPhase()) {
			step = s.engine.Handle(ctx, &st.Session, betting.Cancel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	text := s.tr.T("menu.title")
	switch {
	case len(step.Replies) > 0:
		text = step.Replies[0].Text
	case prev == state.ModeSearch:
		text = s.tr.T("search.exit")
	case prev == state.ModeBetting:
		text = s.tr.T("betting.exit")
	}

	return []Message{{Text: text, Markup: s.kb.MainMenu()}}, nil
}
