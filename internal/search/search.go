// Package search answers free-text and menu lookups over the dataset.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/internal/resolver"
)

const (
	CategoryTeam = "team"

	// BrowseLimit caps browse results to keep one reply under Telegram's size limit.
	BrowseLimit = 40
)

// Kind selects a browse dimension.
type Kind string

const (
	KindPlayer   Kind = "player"
	KindStat     Kind = "stat"
	KindOpponent Kind = "opponent"
)

// ParseKind maps a callback value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindPlayer, KindStat, KindOpponent:
		return k, true
	}
	return "", false
}

// Result is a titled set of dataset rows.
type Result struct {
	Category string
	Title    string
	Rows     []dataset.Event
}

func (r Result) Empty() bool {
	return len(r.Rows) == 0
}

type Service struct {
	ds       *dataset.Dataset
	resolver resolver.Resolver
	log      *slog.Logger
	limit    int
}

func NewService(ds *dataset.Dataset, res resolver.Resolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		ds:       ds,
		resolver: res,
		log:      log.With(slog.String("component", "search")),
		limit:    dataset.DefaultSearchLimit,
	}
}

// Search tries a team lookup first, then substring search on player,
// opponent and stat. Resolver failures fall through to substring search.
func (s *Service) Search(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}
	}

	if res, ok := s.searchTeam(ctx, query); ok {
		return res
	}

	found := s.ds.Search(query, s.limit)
	return Result{Category: found.Category, Title: query, Rows: found.Rows}
}

func (s *Service) searchTeam(ctx context.Context, query string) (Result, bool) {
	if s.resolver == nil {
		return Result{}, false
	}

	roster, err := s.resolver.ResolveTeam(ctx, query)
	if err != nil {
		s.log.WarnContext(ctx, "team resolution failed, using substring search", slog.Any("error", err))
		return Result{}, false
	}
	if roster == nil || roster.Team == "" {
		return Result{}, false
	}

	rows := s.ds.ByPlayers(roster.Players)
	if len(rows) == 0 {
		rows = s.ds.ByOpponent(roster.Team)
	}
	if len(rows) == 0 {
		return Result{}, false
	}

	if len(rows) > s.limit {
		rows = rows[:s.limit]
	}

	return Result{Category: CategoryTeam, Title: roster.Team, Rows: rows}, true
}

// Browse lists the rows for one player, stat type or opponent.
func (s *Service) Browse(kind Kind, value string) (Result, error) {
	var rows []dataset.Event
	switch kind {
	case KindPlayer:
		rows = s.ds.ByPlayer(value)
	case KindStat:
		rows = s.ds.ByStat(value)
	case KindOpponent:
		rows = s.ds.ByOpponent(value)
	default:
		return Result{}, fmt.Errorf("unknown browse kind %q", kind)
	}

	if len(rows) > BrowseLimit {
		rows = rows[:BrowseLimit]
	}

	return Result{Category: string(kind), Title: value, Rows: rows}, nil
}

// Players returns one page of player names, sorted, and the page count.
// Pages are zero-based; out-of-range pages are clamped.
func (s *Service) Players(page, perPage int) ([]string, int, int) {
	all := s.ds.SortedPlayers()
	if perPage <= 0 {
		perPage = 10
	}

	pages := (len(all) + perPage - 1) / perPage
	if pages == 0 {
		return nil, 0, 0
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * perPage
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], page, pages
}

func (s *Service) StatTypes() []string {
	return s.ds.AllStatTypes()
}

func (s *Service) Opponents() []string {
	return s.ds.Opponents()
}

// Popular returns the most listed players and stat types.
func (s *Service) Popular(n int) (players, stats []string) {
	return s.ds.PopularPlayers(n), s.ds.PopularStats(n)
}
