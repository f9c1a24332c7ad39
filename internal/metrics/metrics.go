package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the engine's operational counters
type Recorder struct {
	unitsProcessed  prometheus.Counter
	unitsFailed     *prometheus.CounterVec
	selections      prometheus.Counter
	reductionEvents prometheus.Counter
	storeRetries    prometheus.Counter
	unitDuration    prometheus.Histogram
}

// NewRecorder registers the engine metrics on the given registerer
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		unitsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_units_processed_total",
			Help: "Instrument/baseline units processed successfully",
		}),
		unitsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_units_failed_total",
			Help: "Instrument/baseline units that failed, by reason",
		}, []string{"reason"}),
		selections: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_strike_selections_written_total",
			Help: "Strike selection rows written to the output store",
		}),
		reductionEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_reduction_events_written_total",
			Help: "Reduction event rows written to the output store",
		}),
		storeRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_store_retries_total",
			Help: "Transient store errors retried at the accessor boundary",
		}),
		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_unit_duration_seconds",
			Help:    "End-to-end duration of one instrument/baseline unit",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// UnitProcessed counts one successful unit
func (r *Recorder) UnitProcessed(seconds float64) {
	r.unitsProcessed.Inc()
	r.unitDuration.Observe(seconds)
}

// UnitFailed counts one failed unit with its failure reason
func (r *Recorder) UnitFailed(reason string) {
	r.unitsFailed.WithLabelValues(reason).Inc()
}

// SelectionsWritten counts output selection rows
func (r *Recorder) SelectionsWritten(n int) {
	r.selections.Add(float64(n))
}

// ReductionEventsWritten counts output event rows
func (r *Recorder) ReductionEventsWritten(n int) {
	r.reductionEvents.Add(float64(n))
}

// StoreRetry counts one retried store call
func (r *Recorder) StoreRetry() {
	r.storeRetries.Inc()
}
