package handlers

import (
	"context"

	"github.com/Proton-105/strike-bot/internal/ratelimit"
	"github.com/Proton-105/strike-bot/internal/render"
	"github.com/Proton-105/strike-bot/internal/search"
	"github.com/Proton-105/strike-bot/internal/state"
)

// EnterSearch switches to search mode, searching right away when a query follows the command.
func (s *Service) EnterSearch(ctx context.Context, userID int64, query string) ([]Message, error) {
	if err := s.setMode(ctx, userID, state.ModeSearch); err != nil {
		return nil, err
	}
	if query != "" {
		return s.SearchText(ctx, userID, query)
	}
	return s.text("search.enter"), nil
}

// SearchText runs a search and renders the matching lines.
func (s *Service) SearchText(ctx context.Context, userID int64, query string) ([]Message, error) {
	if err := s.allow(ctx, userID, ratelimit.ActionSearch); err != nil {
		return nil, err
	}

	result := s.search.Search(ctx, query)
	if result.Empty() {
		return s.text("search.no_results"), nil
	}

	title := s.tr.Tf("search.results", result.Title)
	if result.Category == search.CategoryTeam {
		title = s.tr.Tf("search.team", result.Title)
	}

	return []Message{{
		Text:   render.Events(title, result.Rows).HTML(),
		HTML:   true,
		Markup: s.kb.BetActions(),
	}}, nil
}
