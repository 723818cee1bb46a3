package betting

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/pkg/metrics"
)

// BetEntry is one line of a submission. EventID is nil when the dataset has
// no row for the line.
type BetEntry struct {
	EventID   *string     `json:"event_id"`
	BetSide   Side        `json:"bet_side"`
	LineValue json.Number `json:"line_value"`
}

// Submission is the payload sent to the settlement API.
type Submission struct {
	UserID   int64       `json:"user_id"`
	EntryFee json.Number `json:"entry_fee"`
	Bets     []BetEntry  `json:"bets"`
}

// MissingEvents counts entries without an event id.
func (s *Submission) MissingEvents() int {
	n := 0
	for _, b := range s.Bets {
		if b.EventID == nil {
			n++
		}
	}
	return n
}

// BuildSubmission maps cart lines to dataset events. Lines without a matching
// event are kept with a null event id and reported in logs and metrics.
func BuildSubmission(ctx context.Context, userID int64, amount decimal.Decimal, lines []Line, catalog dataset.Catalog, log *slog.Logger) (*Submission, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if log == nil {
		log = slog.Default()
	}

	sub := &Submission{
		UserID:   userID,
		EntryFee: json.Number(amount.String()),
		Bets:     make([]BetEntry, 0, len(lines)),
	}

	for _, l := range lines {
		entry := BetEntry{
			BetSide:   l.Side,
			LineValue: json.Number(l.LineValue.String()),
		}

		if id, ok := catalog.EventID(l.PlayerName, l.StatType, l.LineValue); ok {
			entry.EventID = &id
		} else {
			log.WarnContext(ctx, "submission line has no dataset event",
				slog.Int64("user_id", userID),
				slog.String("player", l.PlayerName),
				slog.String("stat_type", l.StatType),
				slog.String("line_value", l.LineValue.String()),
			)
			metrics.RecordMissingEvent()
		}

		sub.Bets = append(sub.Bets, entry)
	}

	return sub, nil
}
