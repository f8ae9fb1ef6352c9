package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrenthunt",
		Name:      "source_requests_total",
		Help:      "Total source queries by source and outcome.",
	}, []string{"source", "outcome"})

	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrenthunt",
		Name:      "source_request_duration_seconds",
		Help:      "Source query duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source"})

	SourceItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrenthunt",
		Name:      "source_items_total",
		Help:      "Total records kept per source after truncation and category filtering.",
	}, []string{"source"})

	AggregationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrenthunt",
		Name:      "aggregations_total",
		Help:      "Total aggregations by mode and result.",
	}, []string{"mode", "result"})

	AggregationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "torrenthunt",
		Name:      "aggregation_duration_seconds",
		Help:      "Wall time of a whole aggregation in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	})
)

// Outcome labels for SourceRequestsTotal.
const (
	OutcomeOK          = "ok"
	OutcomeTimeout     = "timeout"
	OutcomeUnavailable = "unavailable"
	OutcomeFormat      = "format"
)

// Register adds the collectors to reg. Collectors reg already holds are
// skipped, so calling it twice is harmless.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		SourceRequestsTotal,
		SourceRequestDuration,
		SourceItemsTotal,
		AggregationsTotal,
		AggregationDuration,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
