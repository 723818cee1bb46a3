package server

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/strike-bot/internal/dataset"
	"github.com/Proton-105/strike-bot/internal/health"
	"github.com/Proton-105/strike-bot/internal/lifecycle"
	"github.com/Proton-105/strike-bot/internal/testutil"
)

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("down") }

func TestRouter_Probes(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checkable
		drain      bool
		path       string
		wantCode   int
		wantInBody string
	}{
		{
			name:       "liveness",
			path:       "/healthz",
			checks:     map[string]health.Checkable{"redis": failingCheck{}},
			wantCode:   http.StatusOK,
			wantInBody: `"status":"ok"`,
		},
		{
			name:       "ready",
			path:       "/readyz",
			checks:     map[string]health.Checkable{"dataset": health.NewDatasetChecker(testutil.SampleDataset())},
			wantCode:   http.StatusOK,
			wantInBody: `"status":"ok"`,
		},
		{
			name:       "empty dataset",
			path:       "/readyz",
			checks:     map[string]health.Checkable{"dataset": health.NewDatasetChecker(dataset.New(nil))},
			wantCode:   http.StatusServiceUnavailable,
			wantInBody: "dataset: betting dataset is empty",
		},
		{
			name:       "draining",
			path:       "/readyz",
			drain:      true,
			wantCode:   http.StatusServiceUnavailable,
			wantInBody: "shutting down",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			checker := health.NewChecker(testutil.Logger())
			for name, c := range tc.checks {
				checker.AddCheck(name, c)
			}
			probes := lifecycle.NewProbes(checker, testutil.Logger())
			if tc.drain {
				probes.Drain()
			}

			rec := httptest.NewRecorder()
			NewRouter(probes, testutil.Logger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantInBody)
			assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(lifecycle.NewProbes(nil, nil), testutil.Logger()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_MetricsGzip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := httptest.NewRecorder()
	NewRouter(lifecycle.NewProbes(nil, nil), testutil.Logger()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}
