package resolver

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/fuzzy"
)

var (
	segmentSplit = regexp.MustCompile(`(?i)\s+and\s+|,|&|\+|;`)
	amountRe     = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)
)

var fillerWords = map[string]struct{}{
	"i": {}, "want": {}, "to": {}, "bet": {}, "on": {}, "place": {}, "a": {}, "add": {},
	"for": {}, "the": {}, "my": {}, "of": {}, "with": {}, "please": {}, "put": {},
	"take": {}, "give": {}, "me": {}, "an": {}, "at": {}, "line": {}, "lines": {},
	"props": {}, "prop": {}, "show": {}, "get": {}, "all": {}, "what": {}, "are": {},
}

var statAliases = map[string]string{
	"pts": "points", "point": "points",
	"reb": "rebounds", "rebs": "rebounds", "rebound": "rebounds", "boards": "rebounds",
	"ast": "assists", "asts": "assists", "assist": "assists", "dimes": "assists",
	"stl": "steals", "steal": "steals",
	"blk": "blocks", "block": "blocks",
	"tov": "turnovers", "turnover": "turnovers",
	"3s": "threes", "3pm": "threes", "three": "threes",
}

// Local is a deterministic resolver that parses bet text without any
// network call. It backs deployments without an API key and tests.
type Local struct {
	players PlayerCatalog
	stats   []string
}

var _ Resolver = (*Local)(nil)

func NewLocal(players PlayerCatalog) *Local {
	seen := make(map[string]struct{})
	var stats []string
	for _, p := range players.PlayerNames() {
		for _, s := range players.StatTypes(p) {
			key := fuzzy.Normalize(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			stats = append(stats, s)
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return len(stats[i]) > len(stats[j]) })

	return &Local{players: players, stats: stats}
}

func (l *Local) ResolveBet(_ context.Context, text string) (*BetResolution, error) {
	res := &BetResolution{}

	if m := amountRe.FindStringSubmatch(text); m != nil {
		if fee, err := decimal.NewFromString(m[1]); err == nil {
			res.EntryFee = decimal.NewNullDecimal(fee)
		}
	}
	text = amountRe.ReplaceAllString(text, " ")

	for _, segment := range segmentSplit.Split(text, -1) {
		hint, token := l.parseSegment(segment)
		if token == "" {
			continue
		}
		name, ok := l.matchPlayer(token)
		if !ok {
			res.InvalidPlayerTokens = append(res.InvalidPlayerTokens, token)
			continue
		}
		hint.Name = name
		res.Lines = append(res.Lines, hint)
	}

	return res, nil
}

// parseSegment extracts side, line and stat from one bet clause and returns
// the leftover words as the player token.
func (l *Local) parseSegment(segment string) (LineHint, string) {
	var hint LineHint
	words := strings.Fields(stripPunctKeepDot(segment))

	var rest []string
	for _, w := range words {
		lw := strings.ToLower(w)
		switch {
		case hint.Side == "" && (lw == "over" || lw == "o"):
			hint.Side = "over"
		case hint.Side == "" && (lw == "under" || lw == "u"):
			hint.Side = "under"
		case !hint.LineValue.Valid && isNumber(lw):
			hint.LineValue = decimal.NewNullDecimal(decimal.RequireFromString(strings.TrimSuffix(lw, ".")))
		default:
			rest = append(rest, w)
		}
	}

	rest, hint.StatType = l.extractStat(rest)

	var name []string
	for _, w := range rest {
		if _, ok := fillerWords[strings.ToLower(w)]; ok {
			continue
		}
		name = append(name, w)
	}

	return hint, strings.Join(name, " ")
}

// extractStat removes the longest known stat phrase from words.
func (l *Local) extractStat(words []string) ([]string, string) {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = fuzzy.Normalize(w)
		if alias, ok := statAliases[lower[i]]; ok && l.knownStat(alias) != "" {
			lower[i] = fuzzy.Normalize(l.knownStat(alias))
		}
	}

	for _, stat := range l.stats {
		parts := strings.Fields(fuzzy.Normalize(stat))
		for i := 0; i+len(parts) <= len(lower); i++ {
			if equalWords(lower[i:i+len(parts)], parts) {
				out := append(append([]string(nil), words[:i]...), words[i+len(parts):]...)
				return out, stat
			}
		}
	}

	return words, ""
}

func (l *Local) knownStat(name string) string {
	for _, s := range l.stats {
		if fuzzy.Normalize(s) == name {
			return s
		}
	}
	return ""
}

// matchPlayer tries exact, first or last name, then fuzzy matching.
func (l *Local) matchPlayer(token string) (string, bool) {
	if p, ok := l.players.CanonicalPlayer(token); ok {
		return p, true
	}

	want := fuzzy.Normalize(token)
	names := l.players.PlayerNames()
	for _, p := range names {
		if fuzzy.Normalize(p) == want {
			return p, true
		}
	}
	for _, p := range names {
		parts := strings.Fields(fuzzy.Normalize(p))
		if len(parts) == 0 {
			continue
		}
		if parts[0] == want || parts[len(parts)-1] == want {
			return p, true
		}
	}

	return fuzzy.Best(token, names, fuzzy.DefaultCutoff)
}

func (l *Local) ResolvePlayer(_ context.Context, text string) (string, error) {
	token := strings.TrimSpace(text)
	if token == "" {
		return "", nil
	}
	p, ok := l.matchPlayer(token)
	if !ok {
		return "", nil
	}
	return p, nil
}

// ResolveTeam recognises team aliases only. Without roster data it returns
// the team code with no players.
func (l *Local) ResolveTeam(_ context.Context, text string) (*TeamRoster, error) {
	code, ok := TeamCode(text)
	if !ok {
		return nil, nil
	}
	return &TeamRoster{Team: code}, nil
}

// ClassifyIsSearch treats text without a side word or a number as a search.
func (l *Local) ClassifyIsSearch(_ context.Context, text string) (bool, error) {
	for _, w := range strings.Fields(strings.ToLower(stripPunctKeepDot(text))) {
		if w == "over" || w == "under" || isNumber(w) {
			return false, nil
		}
	}
	return true, nil
}

func isNumber(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil && strings.IndexFunc(s, func(r rune) bool { return r == 'e' || r == 'E' }) < 0
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stripPunctKeepDot(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', ',', ';', ':', '"':
			return ' '
		}
		return r
	}, s)
}
