package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Graph metrics
	TokenCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pair_router_token_count",
		Help: "Number of tokens in the live snapshot",
	})

	MarketCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pair_router_market_count",
		Help: "Number of markets wired into the live snapshot",
	})

	DuplicateMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pair_router_duplicate_markets",
		Help: "Markets skipped in the live snapshot because their token pair was already served",
	})

	GraphSnapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_graph_snapshot_rebuilds_total",
		Help: "Total number of graph snapshot rebuilds",
	})

	GraphBuildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_graph_build_failures_total",
		Help: "Total number of graph builds rejected for data integrity",
	})

	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pair_router_graph_build_duration_seconds",
		Help:    "Snapshot build duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// Route metrics
	RouteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pair_router_route_requests_total",
			Help: "Total number of best-path queries",
		},
		[]string{"status"},
	)

	RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pair_router_route_duration_seconds",
		Help:    "Best-path query duration in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	RouteCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pair_router_route_candidates",
		Help:    "Number of candidate paths enumerated per query",
		Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000, 10000},
	})

	RouteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_route_cache_hits_total",
		Help: "Total number of route queries answered from the per-snapshot cache",
	})

	RouteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_route_cache_misses_total",
		Help: "Total number of route queries that ran the path search",
	})

	// Refresh metrics
	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pair_router_refresh_runs_total",
			Help: "Total number of reference data refreshes",
		},
		[]string{"trigger", "status"},
	)

	RefreshCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_refresh_coalesced_total",
		Help: "Refresh triggers that joined an in-flight refresh",
	})

	RefreshThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_refresh_throttled_total",
		Help: "Refresh triggers dropped by the minimum gap between refreshes",
	})

	RefreshDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pair_router_refresh_duration_seconds",
		Help: "Duration of the last reference data refresh",
	})

	RefdataPagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_refdata_pages_fetched_total",
		Help: "Subgraph pages fetched",
	})

	RefdataPageRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pair_router_refdata_page_retries_total",
		Help: "Subgraph page fetch attempts that failed and were retried",
	})

	LastBlockSeen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pair_router_last_block_seen",
		Help: "Latest block number observed by the block watcher",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pair_router_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pair_router_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
