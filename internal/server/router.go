// Package server exposes the operations HTTP surface: probes and metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/strike-bot/internal/lifecycle"
	"github.com/Proton-105/strike-bot/internal/middleware"
	"github.com/Proton-105/strike-bot/pkg/logger"
)

// NewRouter builds the ops router with /healthz, /readyz and /metrics.
// Responses above gzhttp's size threshold are gzip-encoded when the client
// accepts it, so the metrics handler leaves compression to the router.
func NewRouter(probes lifecycle.HealthChecker, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.Middleware)
	r.Use(middleware.New(log))
	r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

	r.Get("/healthz", probeHandler(probes.Liveness))
	r.Get("/readyz", probeHandler(probes.Readiness))
	r.Method(http.MethodGet, "/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}),
	))

	return r
}

type probeResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := probeResponse{Status: "ok"}
		code := http.StatusOK
		if err := probe(r.Context()); err != nil {
			resp = probeResponse{Status: "unavailable", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
