// Package settlement delivers finalized bet submissions.
package settlement

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Proton-105/strike-bot/internal/betting"
	"github.com/Proton-105/strike-bot/pkg/metrics"
)

const (
	StatusSent   = "sent"
	StatusQueued = "queued"
	StatusFailed = "failed"
)

// Submitter hands a submission to whatever settles it.
type Submitter interface {
	Submit(ctx context.Context, sub *betting.Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub *betting.Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub *betting.Submission) error {
	return f(ctx, sub)
}

// Recorder stores the outcome of a delivery attempt.
type Recorder interface {
	Record(ctx context.Context, sub *betting.Submission, status string) error
}

// LogSubmitter only logs the payload.
type LogSubmitter struct {
	log *slog.Logger
}

func NewLogSubmitter(log *slog.Logger) *LogSubmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogSubmitter{log: log.With(slog.String("component", "settlement"))}
}

func (s *LogSubmitter) Submit(ctx context.Context, sub *betting.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "bet submission",
		slog.Int64("user_id", sub.UserID),
		slog.Int("bets", len(sub.Bets)),
		slog.Int("missing_events", sub.MissingEvents()),
		slog.String("payload", string(payload)),
	)

	return nil
}

// Tracked wraps a Submitter with metrics and an optional Recorder.
type Tracked struct {
	inner    Submitter
	recorder Recorder
	status   string
	log      *slog.Logger
}

// NewTracked reports successes under status, which is StatusQueued for
// asynchronous submitters and StatusSent otherwise.
func NewTracked(inner Submitter, recorder Recorder, status string, log *slog.Logger) *Tracked {
	if log == nil {
		log = slog.Default()
	}
	if status == "" {
		status = StatusSent
	}
	return &Tracked{inner: inner, recorder: recorder, status: status, log: log}
}

func (t *Tracked) Submit(ctx context.Context, sub *betting.Submission) error {
	err := t.inner.Submit(ctx, sub)

	status := t.status
	if err != nil {
		status = StatusFailed
	}
	metrics.RecordSubmission(status)

	if t.recorder != nil {
		if recErr := t.recorder.Record(ctx, sub, status); recErr != nil {
			t.log.ErrorContext(ctx, "failed to record submission",
				slog.Int64("user_id", sub.UserID),
				slog.String("status", status),
				slog.Any("error", recErr),
			)
		}
	}

	return err
}
