package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/betting"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/jobs"
	"github.com/Proton-105/strike-bot/internal/settlement"
	"github.com/Proton-105/strike-bot/internal/testutil"
)

func submissionTask(t *testing.T) *asynq.Task {
	t.Helper()
	id := "evt-1"
	task, err := jobs.NewSubmissionTask(&betting.Submission{
		UserID:   5,
		EntryFee: "10",
		Bets:     []betting.BetEntry{{EventID: &id, BetSide: betting.SideOver, LineValue: "25.5"}},
	}, time.Now())
	require.NoError(t, err)
	return task
}

func TestSubmissionHandler(t *testing.T) {
	testCases := []struct {
		name      string
		submitErr error
		wantErr   bool
		skipRetry bool
	}{
		{name: "delivered"},
		{name: "retryable failure", submitErr: apperrors.NewExternalAPIError("settlement", errors.New("502")), wantErr: true},
		{name: "permanent failure", submitErr: apperrors.NewPermanentAPIError("settlement", errors.New("422")), wantErr: true, skipRetry: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var got *betting.Submission
			submitter := settlement.SubmitterFunc(func(_ context.Context, sub *betting.Submission) error {
				got = sub
				return tc.submitErr
			})

			err := NewSubmissionHandler(submitter, testutil.Logger()).ProcessTask(context.Background(), submissionTask(t))
			require.NotNil(t, got)
			assert.Equal(t, int64(5), got.UserID)
			assert.Equal(t, "evt-1", *got.Bets[0].EventID)

			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestSubmissionHandler_BadPayload(t *testing.T) {
	h := NewSubmissionHandler(settlement.NewLogSubmitter(testutil.Logger()), testutil.Logger())
	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeSubmissionSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type sweeperFunc func(ctx context.Context) (int, error)

func (f sweeperFunc) Sweep(ctx context.Context) (int, error) { return f(ctx) }

func TestEvictHandler(t *testing.T) {
	calls := 0
	h := NewEvictHandler(sweeperFunc(func(context.Context) (int, error) {
		calls++
		return 3, nil
	}), testutil.Logger())

	require.NoError(t, h.ProcessTask(context.Background(), jobs.NewSessionEvictTask()))
	assert.Equal(t, 1, calls)

	failing := NewEvictHandler(sweeperFunc(func(context.Context) (int, error) {
		return 0, errors.New("redis down")
	}), testutil.Logger())
	assert.Error(t, failing.ProcessTask(context.Background(), jobs.NewSessionEvictTask()))
}
