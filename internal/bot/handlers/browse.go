package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Proton-105/strike-bot/internal/bot/keyboard"
	"github.com/Proton-105/strike-bot/internal/render"
	"github.com/Proton-105/strike-bot/internal/search"
)

const (
	PlayersPerPage = 10
	PopularCount   = 6

	browsePopular = "popular"
)

// Browse shows the browse dimensions.
func (s *Service) Browse(context.Context, int64, string) ([]Message, error) {
	return []Message{{Text: s.tr.T("browse.title"), Markup: s.kb.BrowseMenu()}}, nil
}

// BrowseKind lists the values of one browse dimension.
func (s *Service) BrowseKind(ctx context.Context, userID int64, kind string) ([]Message, error) {
	switch kind {
	case string(search.KindPlayer):
		return s.BrowsePlayers(ctx, userID, "0")
	case string(search.KindStat):
		return s.valueList("browse.pick_stat", search.KindStat, s.search.StatTypes()), nil
	case string(search.KindOpponent):
		return s.valueList("browse.pick_opponent", search.KindOpponent, s.search.Opponents()), nil
	case browsePopular:
		players, stats := s.search.Popular(PopularCount)
		if len(players) == 0 && len(stats) == 0 {
			return s.text("browse.empty"), nil
		}
		return []Message{{Text: s.tr.T("browse.pick_popular"), Markup: s.kb.Popular(players, stats)}}, nil
	default:
		return s.Browse(ctx, userID, "")
	}
}

// BrowsePlayers shows one zero-based page of players.
func (s *Service) BrowsePlayers(_ context.Context, _ int64, page string) ([]Message, error) {
	n, err := strconv.Atoi(page)
	if err != nil {
		n = 0
	}

	names, n, pages := s.search.Players(n, PlayersPerPage)
	if pages == 0 {
		return s.text("browse.empty"), nil
	}

	return []Message{{
		Text:   s.tr.Tf("browse.pick_player", n+1, pages),
		Markup: s.kb.Players(names, n, pages),
	}}, nil
}

// Lines renders every line for "<kind>:<value>".
func (s *Service) Lines(ctx context.Context, userID int64, arg string) ([]Message, error) {
	rawKind, value, ok := strings.Cut(arg, keyboard.CallbackDataSeparator)
	kind, known := search.ParseKind(rawKind)
	if !ok || !known || value == "" {
		return s.Browse(ctx, userID, "")
	}

	result, err := s.search.Browse(kind, value)
	if err != nil {
		return nil, err
	}
	if result.Empty() {
		return s.text("browse.empty"), nil
	}

	return []Message{{
		Text:   render.Events(result.Title, result.Rows).HTML(),
		HTML:   true,
		Markup: s.kb.BetActions(),
	}}, nil
}

func (s *Service) valueList(key string, kind search.Kind, values []string) []Message {
	if len(values) == 0 {
		return s.text("browse.empty")
	}
	return []Message{{Text: s.tr.T(key), Markup: s.kb.Values(kind, values)}}
}
