// Package repository implements Postgres persistence for betting events and
// submission records.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/strike-bot/internal/dataset"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
)

// EventRepository reads and replaces the betting_events table.
type EventRepository interface {
	List(ctx context.Context) ([]dataset.Event, error)
	ReplaceAll(ctx context.Context, events []dataset.Event) error
	// Import is ReplaceAll with onRow called after each inserted row.
	Import(ctx context.Context, events []dataset.Event, onRow func()) error
}

type eventRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewEventRepository creates a SQL-backed event repository.
func NewEventRepository(db *sql.DB, log *slog.Logger) EventRepository {
	if log == nil {
		log = slog.Default()
	}
	return &eventRepository{db: db, log: log}
}

// List returns every event in insertion order.
func (r *eventRepository) List(ctx context.Context) ([]dataset.Event, error) {
	const query = `
		SELECT event_id, player_name, stat_type, line_value, opponent
		FROM betting_events
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to query betting events", slog.Any("error", err))
		return nil, apperrors.NewDatabaseError(fmt.Errorf("select betting events: %w", err))
	}
	defer rows.Close()

	var events []dataset.Event
	for rows.Next() {
		var (
			e       dataset.Event
			eventID sql.NullString
			line    decimal.Decimal
		)
		if err := rows.Scan(&eventID, &e.PlayerName, &e.StatType, &line, &e.Opponent); err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan betting event: %w", err))
		}
		e.EventID = eventID.String
		e.LineValue = line
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("iterate betting events: %w", err))
	}

	return events, nil
}

// ReplaceAll swaps the table contents in one transaction.
func (r *eventRepository) ReplaceAll(ctx context.Context, events []dataset.Event) error {
	return r.Import(ctx, events, nil)
}

func (r *eventRepository) Import(ctx context.Context, events []dataset.Event, onRow func()) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("begin import: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM betting_events`); err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("clear betting events: %w", err))
	}

	const insert = `
		INSERT INTO betting_events (event_id, player_name, stat_type, line_value, opponent)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, e := range events {
		var eventID sql.NullString
		if e.EventID != "" {
			eventID = sql.NullString{String: e.EventID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert, eventID, e.PlayerName, e.StatType, e.LineValue, e.Opponent); err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("insert betting event: %w", err))
		}
		if onRow != nil {
			onRow()
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError(fmt.Errorf("commit import: %w", err))
	}

	r.log.Info("betting events imported", slog.Int("count", len(events)))
	return nil
}
