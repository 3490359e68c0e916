package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OracleRequests counts aggregation attempts per asset and outcome.
var OracleRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablevault",
		Subsystem: "oracle",
		Name:      "requests_total",
		Help:      "Total number of price aggregation requests",
	},
	[]string{"asset", "result"},
)

// OracleSourcesDropped counts quotes dropped because a source failed or
// timed out.
var OracleSourcesDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablevault",
		Subsystem: "oracle",
		Name:      "sources_dropped_total",
		Help:      "Total number of price source failures or timeouts",
	},
	[]string{"source"},
)

// OracleFetchDuration observes per-source fetch latency.
var OracleFetchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "stablevault",
		Subsystem: "oracle",
		Name:      "fetch_duration_seconds",
		Help:      "Time to fetch a quote from an external price source",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
	[]string{"source"},
)

// Liquidations counts liquidation attempts by outcome.
var Liquidations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stablevault",
		Subsystem: "liquidation",
		Name:      "attempts_total",
		Help:      "Total number of liquidation attempts by outcome",
	},
	[]string{"result"},
)

// InconsistentSettlements counts settlements where the compensating transfer
// failed after the debt leg succeeded. Any non-zero value needs operator
// reconciliation against the settlement journal.
var InconsistentSettlements = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stablevault",
		Subsystem: "liquidation",
		Name:      "inconsistent_settlements_total",
		Help:      "Total number of settlements left inconsistent after failed compensation",
	},
)

// LiquidatablePositions is refreshed by the scanner job.
var LiquidatablePositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "stablevault",
		Subsystem: "liquidation",
		Name:      "liquidatable_positions",
		Help:      "Number of positions currently eligible for liquidation",
	},
)
