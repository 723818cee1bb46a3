package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/betting"
	apperrors "github.com/Proton-105/strike-bot/internal/errors"
	"github.com/Proton-105/strike-bot/internal/testutil"
)

func sampleSubmission() *betting.Submission {
	id := "evt-1"
	return &betting.Submission{
		UserID:   42,
		EntryFee: "25",
		Bets: []betting.BetEntry{
			{EventID: &id, BetSide: betting.SideOver, LineValue: "25.5"},
			{EventID: nil, BetSide: betting.SideUnder, LineValue: "4.5"},
		},
	}
}

func TestHTTPClient_Submit(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(HTTPConfig{URL: server.URL, APIKey: "secret"}, testutil.Logger())
	require.NoError(t, client.Submit(context.Background(), sampleSubmission()))

	assert.Equal(t, float64(42), received["user_id"])
	assert.Equal(t, float64(25), received["entry_fee"])
	bets := received["bets"].([]any)
	require.Len(t, bets, 2)
	assert.Nil(t, bets[1].(map[string]any)["event_id"])
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(HTTPConfig{URL: server.URL}, testutil.Logger())
	require.NoError(t, client.Submit(context.Background(), sampleSubmission()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPClient_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	t.Cleanup(server.Close)

	client := NewHTTPClient(HTTPConfig{URL: server.URL}, testutil.Logger())
	err := client.Submit(context.Background(), sampleSubmission())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExternalAPI))
	assert.False(t, apperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "External API error")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, sub *betting.Submission, status string) error {
	return m.Called(ctx, sub, status).Error(0)
}

func TestTracked_RecordsOutcome(t *testing.T) {
	ctx := context.Background()
	sub := sampleSubmission()

	t.Run("success", func(t *testing.T) {
		rec := &mockRecorder{}
		rec.On("Record", mock.Anything, sub, StatusQueued).Return(nil).Once()

		tracked := NewTracked(SubmitterFunc(func(context.Context, *betting.Submission) error { return nil }), rec, StatusQueued, testutil.Logger())
		require.NoError(t, tracked.Submit(ctx, sub))
		rec.AssertExpectations(t)
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &mockRecorder{}
		rec.On("Record", mock.Anything, sub, StatusFailed).Return(errors.New("db down")).Once()

		tracked := NewTracked(SubmitterFunc(func(context.Context, *betting.Submission) error { return boom }), rec, "", testutil.Logger())
		assert.ErrorIs(t, tracked.Submit(ctx, sub), boom)
		rec.AssertExpectations(t)
	})
}

func TestLogSubmitter(t *testing.T) {
	assert.NoError(t, NewLogSubmitter(testutil.Logger()).Submit(context.Background(), sampleSubmission()))
}
