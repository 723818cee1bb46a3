package handlers

import (
	"context"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/internal/state"
)

// Menu items carried by menu: callbacks.
const (
	MenuStart  = "start"
	MenuBet    = "bet"
	MenuSearch = "search"
	MenuBrowse = "browse"
	MenuCart   = "cart"
)

// Start shows the main menu. An unfinished bet is cancelled; the cart is kept.
func (s *Service) Start(ctx context.Context, userID int64, _ string) ([]Message, error) {
	_, err := s.store.Update(ctx, userID, func(st *state.UserState) error {
		st.Mode = state.ModeMenu
		if inProgress(st.Session.CurrentPhase()) {
			s.engine.Handle(ctx, &st.Session, betting.Cancel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []Message{{Text: s.tr.T("menu.welcome"), Markup: s.kb.MainMenu()}}, nil
}

// Menu routes an inline menu button.
func (s *Service) Menu(ctx context.Context, userID int64, item string) ([]Message, error) {
	switch item {
	case MenuBet:
		return s.EnterBetting(ctx, userID, "")
	case MenuSearch:
		return s.EnterSearch(ctx, userID, "")
	case MenuBrowse:
		return s.Browse(ctx, userID, "")
	case MenuCart:
		return s.ViewCart(ctx, userID, "")
	default:
		return s.Start(ctx, userID, "")
	}
}
