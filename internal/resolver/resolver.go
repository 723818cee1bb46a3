// Package resolver turns free-form chat text into structured bet guesses.
//
// Results are best effort. Callers validate every returned field against the
// dataset before trusting it, and must treat any error as a transient outage.
package resolver

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable marks a failed, timed out or short-circuited resolver call.
var ErrUnavailable = errors.New("resolver unavailable")

// LineHint is one partially filled bet line as understood by the resolver.
type LineHint struct {
	Name      string              `json:"name"`
	StatType  string              `json:"stat_type"`
	LineValue decimal.NullDecimal `json:"line_value"`
	Side      string              `json:"bet_type"`
}

// BetResolution is the structured form of a bet description.
type BetResolution struct {
	EntryFee            decimal.NullDecimal
	Lines               []LineHint
	InvalidPlayerTokens []string
}

// TeamRoster lists dataset players belonging to a team. Players may be empty
// when only the team code is known.
type TeamRoster struct {
	Team    string
	Players []string
}

type Resolver interface {
	ResolveBet(ctx context.Context, text string) (*BetResolution, error)
	// ResolvePlayer returns "" when no dataset player is a confident match.
	ResolvePlayer(ctx context.Context, text string) (string, error)
	// ResolveTeam returns nil when text does not name a team.
	ResolveTeam(ctx context.Context, text string) (*TeamRoster, error)
	ClassifyIsSearch(ctx context.Context, text string) (bool, error)
}

// PlayerCatalog is the dataset view resolvers validate names against.
type PlayerCatalog interface {
	PlayerNames() []string
	CanonicalPlayer(name string) (string, bool)
	StatTypes(player string) []string
}
