// Package metrics exposes the Prometheus series the sync engine and its
// HTTP surfaces publish.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksPersisted counts blocks committed by the batch sink.
	BlocksPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_blocks_persisted_total",
			Help: "Total number of blocks committed to storage",
		},
	)

	// BlocksFetchFailed counts heights dropped from a batch after a
	// failed RPC fetch.
	BlocksFetchFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_blocks_fetch_failed_total",
			Help: "Total number of heights dropped after a failed block fetch",
		},
	)

	// BatchPersistFailed counts whole batches dropped by the sink after
	// a transactional failure.
	BatchPersistFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_batch_persist_failed_total",
			Help: "Total number of persist batches dropped after a transaction failure",
		},
	)

	// FetchQueueInFlight tracks outstanding concurrent RPC fetches.
	FetchQueueInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_fetch_queue_in_flight",
			Help: "Current number of outstanding RPC fetch calls",
		},
	)

	// SaveQueueInFlight tracks outstanding concurrent persist transactions.
	SaveQueueInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_save_queue_in_flight",
			Help: "Current number of outstanding persist transactions",
		},
	)

	// ChainTip tracks the RPC node's last observed tip height.
	ChainTip = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_chain_tip_height",
			Help: "Last observed chain tip height from status()",
		},
	)

	// StoredMaxHeight tracks the highest persisted block height.
	StoredMaxHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_stored_max_height",
			Help: "Highest persisted block height",
		},
	)

	// StoredMinHeight tracks the lowest persisted block height.
	StoredMinHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_stored_min_height",
			Help: "Lowest persisted block height",
		},
	)

	// PassDuration tracks wall-clock duration of each sync pass.
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_pass_duration_seconds",
			Help:    "Duration of a sync coordinator pass",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pass", "outcome"},
	)

	// DBConnectionPoolUsage tracks the percentage of the pool's max open
	// connections currently in use.
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_db_pool_usage_percent",
			Help: "Percentage of the database connection pool currently in use",
		},
	)

	// TelemetryReportsTotal counts node-telemetry reports forwarded
	// through the HTTP endpoint.
	TelemetryReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_telemetry_reports_total",
			Help: "Total number of telemetry reports received",
		},
	)
)
