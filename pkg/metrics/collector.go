package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation phase transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_rejections_total",
			Help: "Total number of bet validation rejections by kind",
		},
		[]string{"kind"},
	)
	resolverCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_calls_total",
			Help: "Total number of language resolver calls by operation and status",
		},
		[]string{"operation", "status"},
	)
	resolverDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolver_duration_seconds",
			Help:    "Duration of language resolver calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"operation"},
	)
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of finalized cart submissions by status",
		},
		[]string{"status"},
	)
	betsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bets_added_total",
			Help: "Total number of bet lines added to carts",
		},
	)
	missingEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "submission_missing_event_total",
			Help: "Total number of submitted lines without a dataset event id",
		},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of stored user sessions",
		},
	)
	sessionsByMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_mode",
			Help: "Number of sessions per interaction mode",
		},
		[]string{"mode"},
	)
	sessionsByPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_phase",
			Help: "Number of sessions per conversation phase",
		},
		[]string{"phase"},
	)
)

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	command = label(command)
	botCommandsTotal.WithLabelValues(command, label(status)).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks conversation phase transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(label(from), label(to)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(label(errType), label(severity)).Inc()
}

func RecordRejection(kind string) {
	rejectionsTotal.WithLabelValues(label(kind)).Inc()
}

// RecordResolverCall counts a resolver call and observes its latency.
func RecordResolverCall(operation, status string, duration time.Duration) {
	operation = label(operation)
	resolverCallsTotal.WithLabelValues(operation, label(status)).Inc()
	resolverDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordSubmission(status string) {
	submissionsTotal.WithLabelValues(label(status)).Inc()
}

func RecordBetAdded() {
	betsAddedTotal.Inc()
}

func RecordMissingEvent() {
	missingEventsTotal.Inc()
}

// SessionSnapshot is a point-in-time count of stored sessions.
type SessionSnapshot struct {
	Total   int
	ByMode  map[string]int
	ByPhase map[string]int
}

// SessionSource produces session snapshots for the collector.
type SessionSource interface {
	Snapshot(ctx context.Context) (SessionSnapshot, error)
}

// StateCollector periodically gathers session counts and emits gauge metrics.
type StateCollector struct {
	source   SessionSource
	interval time.Duration
}

// NewStateCollector builds a collector polling source every interval.
func NewStateCollector(source SessionSource, interval time.Duration) *StateCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StateCollector{source: source, interval: interval}
}

// Run polls the source until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.source == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(snap.Total))

	sessionsByMode.Reset()
	for mode, count := range snap.ByMode {
		sessionsByMode.WithLabelValues(label(mode)).Set(float64(count))
	}

	sessionsByPhase.Reset()
	for phase, count := range snap.ByPhase {
		sessionsByPhase.WithLabelValues(label(phase)).Set(float64(count))
	}

	return nil
}
