package metrics

import "github.com/prometheus/client_golang/prometheus"

// Attribution pipeline Prometheus metrics.
var (
	AttributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ontology",
			Name:      "attributions_total",
			Help:      "Attribution requests by policy and outcome",
		},
		[]string{"policy", "outcome"},
	)

	AttributionDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ontology",
			Name:      "attribution_documents",
			Help:      "Documents analyzed per successful attribution",
			Buckets:   []float64{3, 5, 10, 20, 30, 40, 50, 75, 100},
		},
	)

	ContentFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ontology",
			Name:      "content_fetch_duration_seconds",
			Help:      "Content provider request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		},
		[]string{"provider", "status"},
	)

	PrototypesBuilt = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ontology",
			Name:      "prototypes",
			Help:      "Number of archetype prototypes built at startup",
		},
	)
)

var attrMetricsRegistered bool

// RegisterAttributionMetrics registers attribution metrics. Must be called once from main.
func RegisterAttributionMetrics() {
	if attrMetricsRegistered {
		return
	}
	prometheus.MustRegister(AttributionsTotal)
	prometheus.MustRegister(AttributionDocuments)
	prometheus.MustRegister(ContentFetchDuration)
	prometheus.MustRegister(PrototypesBuilt)
	attrMetricsRegistered = true
}
