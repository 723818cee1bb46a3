package betting

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/fuzzy"
)

// acceptPlayer confirms a resolver-provided name. Only exact dataset names count.
func (e *Engine) acceptPlayer(d *Draft, name string) error {
	canonical, ok := e.catalog.CanonicalPlayer(name)
	if !ok {
		return ErrUnknownPlayer
	}
	d.PlayerName = canonical
	return nil
}

// answerPlayer matches typed text: exact, then fuzzy, then the resolver.
func (e *Engine) answerPlayer(ctx context.Context, d *Draft, text string) error {
	if text == "" {
		return ErrUnknownPlayer
	}

	if err := e.acceptPlayer(d, text); err == nil {
		return nil
	}

	if best, ok := fuzzy.Best(text, e.catalog.PlayerNames(), fuzzy.DefaultCutoff); ok {
		d.PlayerName = best
		return nil
	}

	name, err := e.resolver.ResolvePlayer(ctx, text)
	if err != nil {
		e.log.WarnContext(ctx, "player name not resolved", slog.String("error", err.Error()))
		return ErrUnknownPlayer
	}
	if name == "" {
		return ErrUnknownPlayer
	}

	return e.acceptPlayer(d, name)
}

// acceptStat matches a stat exactly ignoring case, then fuzzily, among the
// player's own stat types.
func (e *Engine) acceptStat(d *Draft, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrUnknownStat
	}

	if canonical, ok := e.catalog.CanonicalStat(d.PlayerName, text); ok {
		d.StatType = canonical
		return nil
	}

	if best, ok := fuzzy.Best(text, e.catalog.StatTypes(d.PlayerName), fuzzy.DefaultCutoff); ok {
		d.StatType = best
		return nil
	}

	return ErrUnknownStat
}

// acceptLine requires an exact match. Near misses are never auto-accepted.
func (e *Engine) acceptLine(d *Draft, v decimal.Decimal) error {
	if !e.catalog.HasLine(d.PlayerName, d.StatType, v) {
		return ErrUnknownLine
	}

	for _, l := range e.catalog.LineValues(d.PlayerName, d.StatType) {
		if l.Equal(v) {
			d.LineValue = decimal.NewNullDecimal(l)
			return nil
		}
	}

	d.LineValue = decimal.NewNullDecimal(v)
	return nil
}

func (e *Engine) acceptSide(d *Draft, text string) error {
	side, ok := ParseSide(text)
	if !ok {
		return ErrInvalidSide
	}
	d.Side = side
	return nil
}

// ParseAmount reads a wager amount such as "20", "$20" or " 12.50 ".
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(strings.TrimPrefix(text, "$"))
	if text == "" {
		return decimal.Decimal{}, ErrNonPositiveAmount
	}

	amount, err := decimal.NewFromString(text)
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, ErrNonPositiveAmount
	}

	return amount, nil
}
