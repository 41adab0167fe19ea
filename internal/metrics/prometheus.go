package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion service

var (
	// Feed metrics
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_feed_fetches_total",
			Help: "Total number of upstream feed fetches",
		},
		[]string{"feed", "status"},
	)

	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickem_feed_fetch_duration_seconds",
			Help:    "Duration of upstream feed fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickem_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_cache_hits_total",
			Help: "Total number of feed cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_cache_misses_total",
			Help: "Total number of feed cache misses",
		},
	)

	LocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_locks_total",
			Help: "Run lock acquisitions by result",
		},
		[]string{"result"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pickem_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	RowsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_rows_skipped_total",
			Help: "Feed rows skipped because they could not be resolved",
		},
		[]string{"type"},
	)

	GamesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_games_upserted_total",
			Help: "Total number of game upserts",
		},
	)

	ScoresApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_scores_applied_total",
			Help: "Total number of score updates applied",
		},
	)

	TiebreakersAssigned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pickem_tiebreakers_assigned_total",
			Help: "Total number of tiebreaker games assigned",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_http_requests_total",
			Help: "Total number of control surface requests",
		},
		[]string{"route", "status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pickem_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pickem_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pickem_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
		[]string{"type"},
	)
)

// RecordFeedFetch records an upstream fetch
func RecordFeedFetch(feed, status string, duration float64) {
	FeedFetchesTotal.WithLabelValues(feed, status).Inc()
	FeedFetchDuration.WithLabelValues(feed).Observe(duration)
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordLock records a run lock attempt ("acquired", "busy", "error")
func RecordLock(result string) {
	LocksTotal.WithLabelValues(result).Inc()
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.WithLabelValues(syncType).SetToCurrentTime()
	}
}

// RecordSkippedRows records rows dropped during resolution
func RecordSkippedRows(rowType string, n int) {
	if n > 0 {
		RowsSkippedTotal.WithLabelValues(rowType).Add(float64(n))
	}
}

// RecordGamesUpserted records game upserts
func RecordGamesUpserted(n int) {
	GamesUpserted.Add(float64(n))
}

// RecordScoresApplied records applied score updates
func RecordScoresApplied(n int) {
	ScoresApplied.Add(float64(n))
}

// RecordTiebreakerAssigned records one tiebreaker assignment
func RecordTiebreakerAssigned() {
	TiebreakersAssigned.Inc()
}

// RecordHTTPRequest records a control surface request
func RecordHTTPRequest(route, status string) {
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
