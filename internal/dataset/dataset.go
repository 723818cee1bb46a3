// Package dataset holds the read-only table of betting events the bot serves.
// Every lookup walks rows in load order so the first match always wins.
package dataset

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Event is one betting line offered for a player.
type Event struct {
	EventID    string          `json:"event_id"`
	PlayerName string          `json:"player_name"`
	StatType   string          `json:"stat_type"`
	LineValue  decimal.Decimal `json:"line_value"`
	Opponent   string          `json:"opponent"`
}

// Catalog is the query surface consumed by the betting engine and resolvers.
type Catalog interface {
	PlayerNames() []string
	CanonicalPlayer(name string) (string, bool)
	StatTypes(player string) []string
	CanonicalStat(player, stat string) (string, bool)
	LineValues(player, stat string) []decimal.Decimal
	HasLine(player, stat string, line decimal.Decimal) bool
	EventID(player, stat string, line decimal.Decimal) (string, bool)
	ClosestLine(player, stat string, v decimal.Decimal) (decimal.Decimal, bool)
}

// Search categories.
const (
	CategoryPlayer   = "player"
	CategoryOpponent = "opponent"
	CategoryStat     = "stat"
)

const DefaultSearchLimit = 15

// SearchResult groups rows found by a substring query.
type SearchResult struct {
	Category string
	Rows     []Event
}

// Dataset is an immutable table of events.
type Dataset struct {
	events  []Event
	players []string
	byName  map[string]string
}

var _ Catalog = (*Dataset)(nil)

// New builds a dataset from events, keeping their order.
func New(events []Event) *Dataset {
	d := &Dataset{
		events: append([]Event(nil), events...),
		byName: make(map[string]string),
	}

	for _, e := range d.events {
		key := strings.ToLower(e.PlayerName)
		if _, ok := d.byName[key]; ok {
			continue
		}
		d.byName[key] = e.PlayerName
		d.players = append(d.players, e.PlayerName)
	}

	return d
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.events)
}

// Events returns a copy of all rows.
func (d *Dataset) Events() []Event {
	return append([]Event(nil), d.events...)
}

// PlayerNames returns unique players in dataset order.
func (d *Dataset) PlayerNames() []string {
	return append([]string(nil), d.players...)
}

// CanonicalPlayer resolves name case-insensitively to its dataset spelling.
func (d *Dataset) CanonicalPlayer(name string) (string, bool) {
	p, ok := d.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// StatTypes lists stat types offered for player in dataset order.
func (d *Dataset) StatTypes(player string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range d.events {
		if e.PlayerName != player {
			continue
		}
		key := strings.ToLower(e.StatType)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e.StatType)
	}
	return out
}

// CanonicalStat resolves stat for player case-insensitively.
func (d *Dataset) CanonicalStat(player, stat string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(stat))
	for _, e := range d.events {
		if e.PlayerName == player && strings.ToLower(e.StatType) == want {
			return e.StatType, true
		}
	}
	return "", false
}

// LineValues lists unique line values for player and stat in dataset order.
func (d *Dataset) LineValues(player, stat string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, e := range d.events {
		if !matchesStat(e, player, stat) {
			continue
		}
		if containsDecimal(out, e.LineValue) {
			continue
		}
		out = append(out, e.LineValue)
	}
	return out
}

// HasLine reports whether an exact (player, stat, line) row exists.
func (d *Dataset) HasLine(player, stat string, line decimal.Decimal) bool {
	_, ok := d.find(player, stat, line)
	return ok
}

// EventID returns the event id of the first row matching the line key.
func (d *Dataset) EventID(player, stat string, line decimal.Decimal) (string, bool) {
	e, ok := d.find(player, stat, line)
	if !ok || e.EventID == "" {
		return "", false
	}
	return e.EventID, true
}

// ClosestLine finds the available line nearest to v. Ties keep the first value seen.
func (d *Dataset) ClosestLine(player, stat string, v decimal.Decimal) (decimal.Decimal, bool) {
	lines := d.LineValues(player, stat)
	if len(lines) == 0 {
		return decimal.Decimal{}, false
	}

	best := lines[0]
	bestDiff := best.Sub(v).Abs()
	for _, l := range lines[1:] {
		if diff := l.Sub(v).Abs(); diff.LessThan(bestDiff) {
			best, bestDiff = l, diff
		}
	}
	return best, true
}

// Search tries player names, then opponents, then stat types. A player hit
// returns every line of the first matching player.
func (d *Dataset) Search(query string, limit int) SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return SearchResult{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	for _, e := range d.events {
		if strings.Contains(strings.ToLower(e.PlayerName), q) {
			return SearchResult{Category: CategoryPlayer, Rows: capRows(d.ByPlayer(e.PlayerName), limit)}
		}
	}

	if rows := d.filter(func(e Event) bool { return strings.Contains(strings.ToLower(e.Opponent), q) }); len(rows) > 0 {
		return SearchResult{Category: CategoryOpponent, Rows: capRows(rows, limit)}
	}

	if rows := d.filter(func(e Event) bool { return strings.Contains(strings.ToLower(e.StatType), q) }); len(rows) > 0 {
		return SearchResult{Category: CategoryStat, Rows: capRows(rows, limit)}
	}

	return SearchResult{}
}

func (d *Dataset) ByPlayer(player string) []Event {
	return d.filter(func(e Event) bool { return strings.EqualFold(e.PlayerName, player) })
}

func (d *Dataset) ByStat(stat string) []Event {
	return d.filter(func(e Event) bool { return strings.EqualFold(e.StatType, stat) })
}

func (d *Dataset) ByOpponent(opponent string) []Event {
	return d.filter(func(e Event) bool { return strings.EqualFold(e.Opponent, opponent) })
}

// ByPlayers returns rows for any player in the set, in dataset order.
func (d *Dataset) ByPlayers(players []string) []Event {
	set := make(map[string]struct{}, len(players))
	for _, p := range players {
		set[strings.ToLower(p)] = struct{}{}
	}
	return d.filter(func(e Event) bool {
		_, ok := set[strings.ToLower(e.PlayerName)]
		return ok
	})
}

// SortedPlayers returns unique player names sorted alphabetically.
func (d *Dataset) SortedPlayers() []string {
	out := d.PlayerNames()
	sort.Strings(out)
	return out
}

func (d *Dataset) Opponents() []string {
	return d.sortedUnique(func(e Event) string { return e.Opponent })
}

func (d *Dataset) AllStatTypes() []string {
	return d.sortedUnique(func(e Event) string { return e.StatType })
}

// PopularPlayers returns the n players with the most lines, sorted by name.
func (d *Dataset) PopularPlayers(n int) []string {
	return d.popular(n, func(e Event) string { return e.PlayerName })
}

// PopularStats returns the n most offered stat types, sorted by name.
func (d *Dataset) PopularStats(n int) []string {
	return d.popular(n, func(e Event) string { return e.StatType })
}

func (d *Dataset) popular(n int, key func(Event) string) []string {
	counts := make(map[string]int)
	var order []string
	for _, e := range d.events {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	sort.Strings(order)
	return order
}

func (d *Dataset) sortedUnique(key func(Event) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range d.events {
		k := key(e)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *Dataset) filter(keep func(Event) bool) []Event {
	var out []Event
	for _, e := range d.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (d *Dataset) find(player, stat string, line decimal.Decimal) (Event, bool) {
	for _, e := range d.events {
		if matchesStat(e, player, stat) && e.LineValue.Equal(line) {
			return e, true
		}
	}
	return Event{}, false
}

func matchesStat(e Event, player, stat string) bool {
	return e.PlayerName == player && strings.EqualFold(e.StatType, stat)
}

func containsDecimal(values []decimal.Decimal, v decimal.Decimal) bool {
	for _, x := range values {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

func capRows(rows []Event, limit int) []Event {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
