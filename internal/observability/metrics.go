// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Search metrics
	SearchesTotal     *prometheus.CounterVec
	SearchDuration    prometheus.Histogram
	ListingsFetched   prometheus.Counter
	ListingsAnalyzed  prometheus.Counter
	ListingsSkipped   *prometheus.CounterVec
	ResultsReturned   prometheus.Histogram

	// Rent source metrics
	RentLookups *prometheus.CounterVec

	// Comps metrics
	CompRequestsTotal   *prometheus.CounterVec
	CompsReturned       prometheus.Histogram
	NeighborhoodsScanned prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter

	// Provider metrics
	ProviderCallsTotal  *prometheus.CounterVec
	ProviderCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSearch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dscr_analyzer"
	}

	return &Metrics{
		// Search metrics
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "searches_total",
			Help:      "Total number of property searches by outcome",
		}, []string{"status"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ListingsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "listings_fetched_total",
			Help:      "Total number of raw listings fetched from the listing provider",
		}),
		ListingsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "listings_analyzed_total",
			Help:      "Total number of listings that passed validation and were analyzed",
		}),
		ListingsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "listings_skipped_total",
			Help:      "Total number of listings skipped by reason",
		}, []string{"reason"}),
		ResultsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results_returned",
			Help:      "Number of ranked results returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50},
		}),

		// Rent source metrics
		RentLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "rent_lookups_total",
			Help:      "Total number of rent figures resolved by source",
		}, []string{"source"}),

		// Comps metrics
		CompRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comps",
			Name:      "requests_total",
			Help:      "Total number of comp aggregations by source path",
		}, []string{"path"}),
		CompsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "comps",
			Name:      "returned",
			Help:      "Number of scored comps returned per aggregation",
			Buckets:   []float64{0, 1, 3, 5, 10, 15},
		}),
		NeighborhoodsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comps",
			Name:      "neighborhoods_scanned_total",
			Help:      "Total number of neighborhoods scanned during fallback searches",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comps",
			Name:      "neighborhood_cache_hits_total",
			Help:      "Total number of neighborhood cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "comps",
			Name:      "neighborhood_cache_misses_total",
			Help:      "Total number of neighborhood cache misses",
		}),

		// Provider metrics
		ProviderCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider API calls by provider and status",
		}, []string{"provider", "status"}),
		ProviderCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "Provider API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSearch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_search_timestamp",
			Help:      "Unix timestamp of the last successful search",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSearch records a completed search.
func RecordSearch(status string, durationSeconds float64, resultsReturned int) {
	DefaultMetrics.SearchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SearchDuration.Observe(durationSeconds)
	DefaultMetrics.ResultsReturned.Observe(float64(resultsReturned))
	if status == "ok" {
		DefaultMetrics.LastSuccessfulSearch.SetToCurrentTime()
	}
}

// RecordListingsFetched adds to the fetched listings counter.
func RecordListingsFetched(n int) {
	DefaultMetrics.ListingsFetched.Add(float64(n))
}

// RecordListingAnalyzed increments the analyzed listings counter.
func RecordListingAnalyzed() {
	DefaultMetrics.ListingsAnalyzed.Inc()
}

// RecordListingSkipped records a skipped listing.
func RecordListingSkipped(reason string) {
	DefaultMetrics.ListingsSkipped.WithLabelValues(reason).Inc()
}

// RecordRentLookup records which source resolved a rent figure.
func RecordRentLookup(source string) {
	DefaultMetrics.RentLookups.WithLabelValues(source).Inc()
}

// RecordCompRequest records a comp aggregation and its source path.
func RecordCompRequest(path string, compsReturned int) {
	DefaultMetrics.CompRequestsTotal.WithLabelValues(path).Inc()
	DefaultMetrics.CompsReturned.Observe(float64(compsReturned))
}

// RecordNeighborhoodsScanned adds to the scanned neighborhoods counter.
func RecordNeighborhoodsScanned(n int) {
	DefaultMetrics.NeighborhoodsScanned.Add(float64(n))
}

// RecordCacheLookup records a neighborhood cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		DefaultMetrics.CacheHits.Inc()
	} else {
		DefaultMetrics.CacheMisses.Inc()
	}
}

// RecordProviderCall records a provider API call.
func RecordProviderCall(provider, status string, seconds float64) {
	DefaultMetrics.ProviderCallsTotal.WithLabelValues(provider, status).Inc()
	DefaultMetrics.ProviderCallLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
