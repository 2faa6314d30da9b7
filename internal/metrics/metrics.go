package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

// Fetch layer metrics
var (
	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total number of outbound HTTP requests by outcome.",
		},
		[]string{"outcome"},
	)

	DoHLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doh_lookups_total",
			Help: "Total number of DNS-over-HTTPS lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Provider and extractor metrics
var (
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Total number of provider operations.",
		},
		[]string{"provider", "op", "status"},
	)

	ProviderCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Duration of provider operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total number of video extractions by extractor.",
		},
		[]string{"extractor", "status"},
	)

	DomainChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_domain_changes_total",
			Help: "Total number of base-domain changes adopted by providers.",
		},
		[]string{"provider"},
	)
)

// Search metrics
var (
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "global_search_duration_seconds",
			Help:    "Duration of global searches until every provider finished.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45},
		},
	)

	SearchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "global_searches_in_flight",
			Help: "Number of global searches currently running.",
		},
	)
)

// API metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		FetchRequestsTotal,
		DoHLookupsTotal,
		ProviderCallsTotal,
		ProviderCallDuration,
		ExtractionsTotal,
		DomainChangesTotal,
		SearchDuration,
		SearchesInFlight,
	)
}

// Status returns the label value used for an operation outcome.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, &apperrors.ErrNotFound{}):
		return "not_found"
	case apperrors.IsStaleSession(err):
		return "stale"
	case errors.Is(err, &apperrors.ParseError{}), errors.Is(err, &apperrors.UnpackError{}):
		return "parse_error"
	case apperrors.IsRetryable(err):
		return "upstream_error"
	default:
		return "error"
	}
}
