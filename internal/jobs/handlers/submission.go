// Package handlers processes background tasks.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/jobs"
	"github.com/Proton-105/strike-bot/internal/settlement"
)

// SubmissionHandler delivers queued submissions.
type SubmissionHandler struct {
	submitter settlement.Submitter
	log       *slog.Logger
}

func NewSubmissionHandler(submitter settlement.Submitter, log *slog.Logger) *SubmissionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SubmissionHandler{submitter: submitter, log: log}
}

// ProcessTask sends the submission. Permanent failures skip asynq retries.
func (h *SubmissionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SubmissionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "submission: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	sub := payload.Submission
	if err := h.submitter.Submit(ctx, &sub); err != nil {
		if !apperrors.IsRetryable(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.log.InfoContext(ctx, "submission delivered",
		slog.Int64("user_id", sub.UserID),
		slog.Int("bets", len(sub.Bets)),
		slog.Duration("queued_for", time.Since(payload.QueuedAt)),
	)

	return nil
}
