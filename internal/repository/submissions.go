package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Proton-105/strike-bot/internal/betting"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
)

// SubmissionRepository stores one row per delivery attempt.
type SubmissionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSubmissionRepository(db *sql.DB, log *slog.Logger) *SubmissionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &SubmissionRepository{db: db, log: log}
}

// Record inserts the submission payload with its delivery status.
func (r *SubmissionRepository) Record(ctx context.Context, sub *betting.Submission, status string) error {
	const query = `
		INSERT INTO submissions (user_id, entry_fee, payload, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, sub.UserID, sub.EntryFee.String(), payload, status); err != nil {
		r.log.Error("failed to record submission",
			slog.Int64("user_id", sub.UserID),
			slog.String("status", status),
			slog.Any("error", err),
		)
		return apperrors.NewDatabaseError(fmt.Errorf("insert submission: %w", err))
	}

	return nil
}
