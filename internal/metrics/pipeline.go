package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stage names used as the "stage" label.
const (
	StageNormalize = "normalize"
	StageRetrieve  = "retrieve"
	StageScore     = "score"
	StageJoin      = "join"
	StageJudge     = "judge"
	StageRandom    = "random"
)

// Recommendation pipeline metrics.
var (
	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuerank",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each recommendation pipeline stage",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuerank",
			Name:      "fallbacks_total",
			Help:      "Degraded-path activations by component and reason",
		},
		[]string{"component", "reason"},
	)

	CategoryResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuerank",
			Name:      "category_results",
			Help:      "Number of venues returned per category",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"mode"}, // "pipeline" / "random"
	)

	ExternalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuerank",
			Name:      "external_request_duration_seconds",
			Help:      "Latency of rerank, judge and rewrite calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "status"},
	)
)

var pipelineOnce sync.Once

// RegisterPipelineMetrics registers the pipeline metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	pipelineOnce.Do(func() {
		prometheus.MustRegister(PipelineStageDuration, FallbacksTotal, CategoryResults, ExternalRequestDuration)
	})
}

// ObserveStage records the time elapsed since start for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Fallback counts one degraded-path activation.
func Fallback(component, reason string) {
	FallbacksTotal.WithLabelValues(component, reason).Inc()
}

// ObserveExternal records an outbound call to a model service.
func ObserveExternal(service string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ExternalRequestDuration.WithLabelValues(service, status).Observe(time.Since(start).Seconds())
}
